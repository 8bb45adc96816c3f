package main

import (
	"github.com/spf13/cobra"

	"storebench/internal/dashboard"
)

var dashboardOut string

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Render Grafana dashboards for the GreptimeDB tables",
	Long:  "dashboard renders Grafana dashboard JSON querying the configured runs and phases tables. " + dashboard.DatasourceEnv + " must name the datasource.",
	RunE: func(cmd *cobra.Command, args []string) error {
		tables := dashboard.DefaultTables()
		if t := appCfg.Greptime.RunsTable; t != "" {
			tables.Runs = t
		}
		if t := appCfg.Greptime.PhasesTable; t != "" {
			tables.Phases = t
		}
		if err := dashboard.Render(dashboardOut, tables); err != nil {
			return err
		}
		logger.Info("dashboards written", "dir", dashboardOut)
		return nil
	},
}

func init() {
	dashboardCmd.Flags().StringVar(&dashboardOut, "out", "build", "Output directory")
}
