package commands

import (
	"fmt"
	"os"
	"strings"

	"github.com/bryanchriswhite/hyprdock/internal/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	rootCmd = &cobra.Command{
		Use:   "hyprdock",
		Short: "hyprdock - a dock for Hyprland",
		Long: `hyprdock shows your pinned applications and marks the ones that have
open windows, following the compositor's event socket live.

Features:
  • Live running indicators from the Hyprland event socket
  • Polling fallback when the socket is unavailable
  • Application search overlay (SIGUSR1 or D-Bus to toggle)
  • Hot reload of config and style sheet
  • REST + websocket API and a terminal dock`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: initLogging,
	}
)

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $XDG_CONFIG_HOME/hyprdock/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level (trace, debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("pretty", true, "human readable log output")

	// Bind flags to viper
	viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("log_pretty", rootCmd.PersistentFlags().Lookup("pretty"))
}

func initConfig() {
	viper.SetEnvPrefix("HYPRDOCK")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	viper.AutomaticEnv()

	if cfgFile == "" {
		cfgFile = viper.GetString("config")
	}
}

func initLogging(cmd *cobra.Command, args []string) error {
	level := viper.GetString("log_level")
	if level == "" {
		level = "info"
	}
	logger.Init(level, viper.GetBool("log_pretty"))
	return nil
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// GetConfigFile returns the config file path
func GetConfigFile() string {
	return cfgFile
}
