package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/bryanchriswhite/hyprdock/internal/config"
	"github.com/bryanchriswhite/hyprdock/internal/desktop"
	"github.com/spf13/cobra"
)

var pinCmd = &cobra.Command{
	Use:   "pin",
	Short: "Manage pinned applications",
	Long: `Add or remove applications from the dock.

A running dock picks changes up from the config file on its own.`,
}

var pinAddCmd = &cobra.Command{
	Use:   "add ID",
	Short: "Pin an application",
	Long:  `Pin an application by its desktop id.`,
	Example: `  # Pin Firefox
  hyprdock pin add firefox.desktop

  # Pin WezTerm
  hyprdock pin add org.wezfurlong.wezterm.desktop`,
	Args: cobra.ExactArgs(1),
	RunE: runPinAdd,
}

var pinRemoveCmd = &cobra.Command{
	Use:   "remove ID",
	Short: "Unpin an application",
	Long:  `Remove an application from the dock by its desktop id.`,
	Example: `  # Unpin Firefox
  hyprdock pin remove firefox.desktop`,
	Args: cobra.ExactArgs(1),
	RunE: runPinRemove,
}

var pinListCmd = &cobra.Command{
	Use:   "list",
	Short: "List pinned applications",
	Long:  `Display the pinned applications in dock order.`,
	RunE:  runPinList,
}

func init() {
	rootCmd.AddCommand(pinCmd)
	pinCmd.AddCommand(pinAddCmd)
	pinCmd.AddCommand(pinRemoveCmd)
	pinCmd.AddCommand(pinListCmd)
}

func runPinAdd(cmd *cobra.Command, args []string) error {
	id := args[0]

	configMgr, err := config.NewManager(GetConfigFile())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	registry := desktop.NewRegistry()
	registry.Load()
	if _, ok := registry.Lookup(id); !ok {
		fmt.Fprintf(os.Stderr, "Warning: no desktop entry named '%s' is installed\n", id)
	}

	if err := configMgr.AddPinnedApp(id); err != nil {
		return fmt.Errorf("failed to pin: %w", err)
	}

	fmt.Printf("✅ Pinned '%s'\n", id)
	return nil
}

func runPinRemove(cmd *cobra.Command, args []string) error {
	id := args[0]

	configMgr, err := config.NewManager(GetConfigFile())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	removed, err := configMgr.RemovePinnedApp(id)
	if err != nil {
		return fmt.Errorf("failed to unpin: %w", err)
	}
	if !removed {
		return fmt.Errorf("'%s' is not pinned", id)
	}

	fmt.Printf("✅ Unpinned '%s'\n", id)
	return nil
}

func runPinList(cmd *cobra.Command, args []string) error {
	configMgr, err := config.NewManager(GetConfigFile())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	registry := desktop.NewRegistry()
	registry.Load()

	printPinned(os.Stdout, configMgr.Get().PinnedApps, registry)
	return nil
}

// describer is the part of *desktop.Registry printPinned needs.
type describer interface {
	Describe(id string) (name, icon string, ok bool)
}

func printPinned(out io.Writer, pinned []string, registry describer) {
	fmt.Fprintln(out, "Pinned Applications:")
	if len(pinned) == 0 {
		fmt.Fprintln(out, "  (none)")
		return
	}
	for _, id := range pinned {
		if name, _, ok := registry.Describe(id); ok {
			fmt.Fprintf(out, "  • %s (%s)\n", name, id)
		} else {
			fmt.Fprintf(out, "  • %s (not installed)\n", id)
		}
	}
}
