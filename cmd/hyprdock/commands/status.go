package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/bryanchriswhite/hyprdock/internal/control"
	"github.com/bryanchriswhite/hyprdock/internal/dock"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the running dock's status",
	Long: `Ask the running dock over D-Bus how it follows the compositor: the
connection phase, the event socket, how many events it has seen and how many
pinned apps are running.`,
	Example: `  # Show status
  hyprdock status

  # Show status as JSON
  hyprdock status --format json

  # Ask the dock to re-check running windows
  hyprdock status --refresh`,
	RunE: runStatus,
}

var (
	statusFormat  string
	statusRefresh bool
)

func init() {
	rootCmd.AddCommand(statusCmd)

	statusCmd.Flags().StringVarP(&statusFormat, "format", "f", "text", "output format (text or json)")
	statusCmd.Flags().BoolVar(&statusRefresh, "refresh", false, "request a refresh first")
}

func runStatus(cmd *cobra.Command, args []string) error {
	client, err := control.DialSession()
	if err != nil {
		return err
	}
	defer client.Close()

	if statusRefresh {
		if err := client.Refresh(cmd.Context()); err != nil {
			return fmt.Errorf("failed to request refresh: %w", err)
		}
	}

	st, err := client.Status(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to get status: %w", err)
	}
	return printStatus(os.Stdout, st, statusFormat)
}

func printStatus(out io.Writer, st dock.Status, format string) error {
	switch format {
	case "json":
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		return encoder.Encode(st)
	case "text":
		socket := st.SocketPath
		if socket == "" {
			socket = "(none)"
		}
		fmt.Fprintf(out, "Phase:    %s\n", st.Phase)
		fmt.Fprintf(out, "Socket:   %s\n", socket)
		fmt.Fprintf(out, "Events:   %d\n", st.Events)
		fmt.Fprintf(out, "Polling:  %t\n", st.Polling)
		fmt.Fprintf(out, "Running:  %d of %d pinned\n", st.Running, st.Pinned)
		if !st.UpdatedAt.IsZero() {
			fmt.Fprintf(out, "Updated:  %s\n", st.UpdatedAt.Format("15:04:05"))
		}
		return nil
	default:
		return fmt.Errorf("unsupported format: %s (use 'text' or 'json')", format)
	}
}
