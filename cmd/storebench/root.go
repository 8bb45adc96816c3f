package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"storebench/internal/config"
	"storebench/internal/logging"
)

var (
	rootLogLevel   string
	rootConfigPath string
	rootSchemaPath string

	appCfg = config.Default()
	logger = slog.Default()
)

var rootCmd = &cobra.Command{
	Use:           "storebench",
	Short:         "State store benchmark toolkit",
	Long:          "storebench benchmarks a reducer store against an atom store, compares the results and audits bundle output.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(rootConfigPath, rootSchemaPath)
		if err != nil {
			return err
		}
		level := rootLogLevel
		if level == "" {
			level = cfg.LogLevel
		}
		appCfg = cfg
		logger = logging.New(level)
		slog.SetDefault(logger)
		cmd.SetContext(logging.NewContext(cmd.Context(), logger))
		return nil
	},
}

// loadConfig validates and loads path, or returns the built-in defaults with
// environment overrides when path is empty.
func loadConfig(path, schema string) (*config.Config, error) {
	if path == "" {
		cfg := config.Default()
		cfg.ApplyEnv()
		return cfg, nil
	}
	cfg, err := config.Load(path, schema)
	if err != nil {
		return nil, fmt.Errorf("config load failed: %w", err)
	}
	return cfg, nil
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&rootLogLevel, "log-level", "", "Log level (debug, info, warn, error); defaults to config or "+logging.LevelEnv)
	rootCmd.PersistentFlags().StringVar(&rootConfigPath, "config", "", "Path to storebench configuration YAML (built-in defaults when empty)")
	rootCmd.PersistentFlags().StringVar(&rootSchemaPath, "schema", "schemas/storebench.cue", "Path to CUE schema file")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(auditCmd)
	rootCmd.AddCommand(compareCmd)
	rootCmd.AddCommand(dashboardCmd)
}
