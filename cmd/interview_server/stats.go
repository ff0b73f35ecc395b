package main

import (
	"encoding/json"
	"time"

	"github.com/jonathan/interview-manager/internal/analytics"
	"github.com/jonathan/interview-manager/internal/observability"
	"github.com/spf13/cobra"
)

var statsJSON bool

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print the admin dashboard",
	Long:  `Compute the dashboard served at /analytics/dashboard and print it to stdout.`,
	RunE:  runStats,
}

func init() {
	statsCmd.Flags().BoolVar(&statsJSON, "json", false, "Print the dashboard as JSON")
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, _ []string) error {
	database, err := connectDB(cmd.Context())
	if err != nil {
		return err
	}
	defer database.Close()

	dashboard, err := analytics.Load(cmd.Context(), database, time.Now())
	if err != nil {
		return err
	}

	if statsJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(dashboard)
	}
	observability.NewPrinter(cmd.OutOrStdout()).PrintAll(dashboard)
	return nil
}
