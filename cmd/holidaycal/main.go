package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"holidaycal/internal/config"
	appLog "holidaycal/internal/log"
)

var version = "0.1.0-dev"

var (
	configPath string
	envFile    string
	logLevel   string
	conf       *config.Config
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "holidaycal",
		Short:         "China holiday calendar generator",
		Long:          "Builds an iCalendar feed of Chinese statutory holidays, make-up workdays, lunar festivals and common observances.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "version" {
				return nil
			}
			return loadConfig()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			appLog.Close()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultPath, "Config file path")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Optional .env file with HOLIDAYCAL_* overrides")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error); overrides config")

	rootCmd.AddCommand(generateCmd(), serveCmd(), versionCmd())

	if err := rootCmd.Execute(); err != nil {
		appLog.Error("holidaycal failed", err)
		appLog.Close()
		os.Exit(1)
	}
}

func loadConfig() error {
	cfg, err := config.Load(configPath)
	if err != nil {
		if cfg == nil {
			return fmt.Errorf("load config: %w", err)
		}
		appLog.Warn("could not write default config; continuing with defaults", "path", configPath, "err", err)
	}
	if err := cfg.ApplyEnv(envFile); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config %s: %w", configPath, err)
	}

	lvl := cfg.Log.Level
	if logLevel != "" {
		lvl = logLevel
	}
	appLog.SetLevel(appLog.ParseLevel(lvl))
	if cfg.Log.File != "" {
		appLog.SetFile(appLog.FileOptions{
			Path:       cfg.Log.File,
			MaxSizeMB:  cfg.Log.MaxSizeMB,
			MaxBackups: cfg.Log.MaxBackups,
			MaxAgeDays: cfg.Log.MaxAgeDays,
			Compress:   cfg.Log.Compress,
		})
	}

	appLog.Debug("effective config",
		"config_path", configPath,
		"output", cfg.Output,
		"timezone", cfg.Timezone,
		"start_year", cfg.StartYear,
		"years_ahead", cfg.YearsAhead,
		"refresh", cfg.RefreshCron,
		"listen", cfg.Listen,
		"floating_rules", len(cfg.Floating),
	)
	conf = cfg
	return nil
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "holidaycal", version)
		},
	}
}
