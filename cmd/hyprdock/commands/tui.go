package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/bryanchriswhite/hyprdock/internal/config"
	"github.com/bryanchriswhite/hyprdock/internal/dock"
	"github.com/bryanchriswhite/hyprdock/internal/logger"
	"github.com/bryanchriswhite/hyprdock/internal/search"
	"github.com/bryanchriswhite/hyprdock/internal/tui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Run the dock in the terminal",
	Long: `Run the dock as a full-screen terminal program.

Running indicators follow the compositor exactly as in 'hyprdock run'. Press
/ to search applications, r to refresh and q to quit. Logs go to
$XDG_CACHE_HOME/hyprdock/tui.log.`,
	RunE: runTUI,
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(cmd *cobra.Command, args []string) error {
	logFile, err := openTUILog()
	if err != nil {
		return err
	}
	defer logFile.Close()

	configMgr, err := config.NewManager(GetConfigFile())
	if err != nil {
		return fmt.Errorf("failed to initialize config manager: %w", err)
	}

	level := viper.GetString("log_level")
	if level == "" {
		level = configMgr.Get().LogLevel
	}
	logger.InitWriter(logFile, level, false)

	eng := newEngine(configMgr)
	presenter := tui.NewPresenter()
	eng.build(presenter)
	defer eng.dock.Close()

	eng.searcher.OnChange(func(st search.State) {
		presenter.SearchChanged(st, eng.searcher.Results())
	})
	eng.dock.OnUpdate(func(dock.Snapshot) {
		presenter.StatusChanged(eng.dock.Status())
	})

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	loopDone := make(chan error, 1)
	go func() { loopDone <- eng.loop.Run(ctx) }()

	eng.start()

	tuiErr := tui.Run(ctx, presenter, eng.actions())
	stop()

	if err := <-loopDone; err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return tuiErr
}

func openTUILog() (*os.File, error) {
	dir, err := os.UserCacheDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get cache directory: %w", err)
	}
	dir = filepath.Join(dir, "hyprdock")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	return os.OpenFile(filepath.Join(dir, "tui.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
}
