package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/bryanchriswhite/hyprdock/internal/config"
	"github.com/bryanchriswhite/hyprdock/internal/desktop"
	"github.com/bryanchriswhite/hyprdock/internal/hypr"
	"github.com/bryanchriswhite/hyprdock/internal/ident"
	"github.com/spf13/cobra"
)

var matchCmd = &cobra.Command{
	Use:   "match [ID...]",
	Short: "Show how desktop ids match window classes",
	Long: `Show the match key the dock derives for each desktop id and how many
windows currently match it.

The key is the desktop entry's StartupWMClass when present, otherwise the id
without its .desktop suffix, lowercased. Without arguments the pinned apps
are shown.`,
	Example: `  # Check every pinned app
  hyprdock match

  # Check specific ids
  hyprdock match firefox.desktop org.wezfurlong.wezterm.desktop`,
	RunE: runMatch,
}

var matchFormat string

func init() {
	rootCmd.AddCommand(matchCmd)

	matchCmd.Flags().StringVarP(&matchFormat, "format", "f", "table", "output format (table or json)")
}

// matchRow is one line of match output.
type matchRow struct {
	ID       string `json:"id"`
	MatchKey string `json:"match_key"`
	Known    bool   `json:"known"`
	Running  int    `json:"running"`
}

func runMatch(cmd *cobra.Command, args []string) error {
	ids := args
	if len(ids) == 0 {
		configMgr, err := config.NewManager(GetConfigFile())
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		ids = configMgr.Get().PinnedApps
	}

	registry := desktop.NewRegistry()
	registry.Load()
	counts := hypr.NewClassCounter(hypr.ExecRunner{}).Counts(cmd.Context())

	return printMatches(os.Stdout, matchRows(registry, counts, ids), matchFormat)
}

func matchRows(registry ident.HintLookup, counts map[string]int, ids []string) []matchRow {
	rows := make([]matchRow, 0, len(ids))
	for _, id := range ids {
		_, known := registry.WMClassHint(id)
		key := ident.Key(registry, id)
		rows = append(rows, matchRow{ID: id, MatchKey: key, Known: known, Running: counts[key]})
	}
	return rows
}

func printMatches(out io.Writer, rows []matchRow, format string) error {
	switch format {
	case "json":
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		return encoder.Encode(rows)
	case "table":
		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		defer w.Flush()

		fmt.Fprintln(w, "ID\tMATCH KEY\tKNOWN\tRUNNING")
		fmt.Fprintln(w, "--\t---------\t-----\t-------")
		for _, r := range rows {
			known := "No"
			if r.Known {
				known = "Yes"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\n", r.ID, r.MatchKey, known, r.Running)
		}
		return nil
	default:
		return fmt.Errorf("unsupported format: %s (use 'table' or 'json')", format)
	}
}
