package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bryanchriswhite/hyprdock/internal/api"
	"github.com/bryanchriswhite/hyprdock/internal/config"
	"github.com/bryanchriswhite/hyprdock/internal/control"
	"github.com/bryanchriswhite/hyprdock/internal/dock"
	"github.com/bryanchriswhite/hyprdock/internal/logger"
	"github.com/bryanchriswhite/hyprdock/internal/search"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the dock",
	Long: `Run the dock daemon.

The dock follows the Hyprland event socket and keeps each pinned app's
running indicator current. It serves the dock over HTTP when the API is
enabled, registers io.github.hyprdock on the session bus, and toggles the
application search on SIGUSR1.`,
	Example: `  # Run with the configured API settings
  hyprdock run

  # Serve the API on a custom port
  hyprdock run --port 9090

  # Run without the HTTP API
  hyprdock run --no-api

  # Run with debug logging
  hyprdock run --log-level debug`,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().Int("port", 0, "API port (default from config, 7373)")
	runCmd.Flags().Bool("no-api", false, "disable the HTTP API")
	runCmd.Flags().String("icon-theme", "", "icon theme searched before hicolor")

	viper.BindPFlag("api_port", runCmd.Flags().Lookup("port"))
	viper.BindPFlag("no_api", runCmd.Flags().Lookup("no-api"))
	viper.BindPFlag("icon_theme", runCmd.Flags().Lookup("icon-theme"))
}

func runRun(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("main")

	configMgr, err := config.NewManager(GetConfigFile())
	if err != nil {
		return fmt.Errorf("failed to initialize config manager: %w", err)
	}
	cfg := configMgr.Get()

	// The config file's log level applies unless a flag or env var set one.
	if viper.GetString("log_level") == "" {
		logger.Init(cfg.LogLevel, viper.GetBool("log_pretty"))
	}

	apiEnabled := cfg.API.Enabled && !viper.GetBool("no_api")
	port := cfg.API.Port
	if p := viper.GetInt("api_port"); p > 0 {
		port = p
		apiEnabled = !viper.GetBool("no_api")
	}

	eng := newEngine(configMgr)

	var srv *api.Server
	var presenters dock.Presenters
	if apiEnabled {
		srv = api.NewServer(api.Options{Config: configMgr, Searcher: eng.searcher, Icons: eng.icons})
		presenters = append(presenters, srv)
	}
	eng.build(presenters)
	if srv != nil {
		srv.Bind(eng.dock)
		eng.dock.OnUpdate(srv.Publish)
	}
	defer eng.dock.Close()

	eng.searcher.OnChange(func(st search.State) {
		log.Debug().Bool("visible", st.Visible).Str("query", st.Query).Msg("Search state changed")
	})

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	actions := eng.actions()

	svc, err := control.ServeSession(actions)
	if err != nil {
		log.Warn().Err(err).Msg("Control bus unavailable, use SIGUSR1 to toggle search")
	} else {
		defer svc.Close()
	}

	toggles := make(chan os.Signal, 1)
	signal.Notify(toggles, syscall.SIGUSR1)
	defer signal.Stop(toggles)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-toggles:
				actions.ToggleSearch()
			}
		}
	}()

	if srv != nil {
		go func() {
			if err := srv.Start(port); err != nil {
				log.Error().Err(err).Int("port", port).Msg("Server error")
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()
	}

	eng.start()

	ev := log.Info().Int("pid", os.Getpid())
	if srv != nil {
		ev = ev.Str("api", fmt.Sprintf("http://127.0.0.1:%d", port))
	}
	ev.Msg("hyprdock is running")

	if err := eng.loop.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	log.Info().Msg("Shutting down gracefully...")
	return nil
}
