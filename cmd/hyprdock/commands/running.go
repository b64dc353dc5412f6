package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/bryanchriswhite/hyprdock/internal/hypr"
	"github.com/spf13/cobra"
)

var runningCmd = &cobra.Command{
	Use:   "running",
	Short: "List running window classes",
	Long: `List the window classes Hyprland reports, with how many windows each has.

Classes are shown the way the dock matches them: trimmed and lowercased.`,
	Example: `  # List classes in table format (default)
  hyprdock running

  # List classes in JSON format
  hyprdock running --format json`,
	RunE: runRunning,
}

var runningFormat string

func init() {
	rootCmd.AddCommand(runningCmd)

	runningCmd.Flags().StringVarP(&runningFormat, "format", "f", "table", "output format (table or json)")
}

func runRunning(cmd *cobra.Command, args []string) error {
	counts := hypr.NewClassCounter(hypr.ExecRunner{}).Counts(cmd.Context())
	return printCounts(os.Stdout, counts, runningFormat)
}

func printCounts(out io.Writer, counts map[string]int, format string) error {
	switch format {
	case "json":
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		return encoder.Encode(counts)
	case "table":
		classes := make([]string, 0, len(counts))
		for class := range counts {
			classes = append(classes, class)
		}
		sort.Strings(classes)

		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		defer w.Flush()

		fmt.Fprintln(w, "CLASS\tWINDOWS")
		fmt.Fprintln(w, "-----\t-------")
		for _, class := range classes {
			fmt.Fprintf(w, "%s\t%d\n", class, counts[class])
		}
		return nil
	default:
		return fmt.Errorf("unsupported format: %s (use 'table' or 'json')", format)
	}
}
