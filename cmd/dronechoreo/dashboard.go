package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"dronechoreo/internal/dashboard"
)

var dashboardOutput string

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Render the Grafana dashboard",
	Long:  "dashboard renders the bundled Grafana dashboard JSON against the configured GreptimeDB datasource and table names.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := dashboard.Render(dashboardOutput); err != nil {
			return err
		}
		slog.Default().Info("dashboard rendered", "dir", dashboardOutput)
		return nil
	},
}

func init() {
	dashboardCmd.Flags().StringVar(&dashboardOutput, "output", "build", "Directory for rendered dashboard files")
}
