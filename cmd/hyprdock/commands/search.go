package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/bryanchriswhite/hyprdock/internal/control"
	"github.com/bryanchriswhite/hyprdock/internal/desktop"
	"github.com/bryanchriswhite/hyprdock/internal/search"
	"github.com/spf13/cobra"
)

var searchCmd = &cobra.Command{
	Use:   "search [QUERY]",
	Short: "Search installed applications",
	Long: `Search the installed desktop applications by name or desktop id.

Matching ignores case; results are ordered by how close the name is to the
query. Without a query every launchable application is listed.`,
	Example: `  # Find applications matching "term"
  hyprdock search term

  # List everything as JSON
  hyprdock search --format json

  # Show or hide the running dock's search overlay
  hyprdock search toggle`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSearch,
}

var searchToggleCmd = &cobra.Command{
	Use:   "toggle",
	Short: "Toggle the running dock's search overlay",
	Long: `Show or hide the application search of a running dock over D-Bus.

Sending SIGUSR1 to the dock process does the same.`,
	Args: cobra.NoArgs,
	RunE: runSearchToggle,
}

var searchFormat string

func init() {
	rootCmd.AddCommand(searchCmd)
	searchCmd.AddCommand(searchToggleCmd)

	searchCmd.Flags().StringVarP(&searchFormat, "format", "f", "table", "output format (table or json)")
}

func runSearch(cmd *cobra.Command, args []string) error {
	query := ""
	if len(args) == 1 {
		query = args[0]
	}

	registry := desktop.NewRegistry()
	registry.Load()
	entries := registry.Visible(desktop.CurrentDesktops())

	results := search.Filter(entries, query)
	if len(results) == 0 && strings.TrimSpace(query) != "" && searchFormat == "table" {
		if s := search.Suggest(entries, query); s != "" {
			fmt.Printf("No applications match %q. Did you mean %q?\n", query, s)
			return nil
		}
	}
	return printResults(os.Stdout, results, searchFormat)
}

func printResults(out io.Writer, results []search.Result, format string) error {
	switch format {
	case "json":
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		return encoder.Encode(results)
	case "table":
		if len(results) == 0 {
			fmt.Fprintln(out, "No applications found")
			return nil
		}
		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		defer w.Flush()

		fmt.Fprintln(w, "NAME\tID\tICON")
		fmt.Fprintln(w, "----\t--\t----")
		for _, r := range results {
			fmt.Fprintf(w, "%s\t%s\t%s\n", r.Name, r.ID, r.Icon)
		}
		return nil
	default:
		return fmt.Errorf("unsupported format: %s (use 'table' or 'json')", format)
	}
}

func runSearchToggle(cmd *cobra.Command, args []string) error {
	client, err := control.DialSession()
	if err != nil {
		return err
	}
	defer client.Close()

	if err := client.ToggleSearch(cmd.Context()); err != nil {
		return fmt.Errorf("failed to toggle search: %w", err)
	}
	return nil
}
