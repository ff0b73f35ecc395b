// Package main provides the entry point for the interview manager server and its
// maintenance commands.
package main

import (
	"fmt"
	"os"

	"github.com/jonathan/interview-manager/internal/config"
	"github.com/jonathan/interview-manager/internal/logging"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	configPath string
	cfg        *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "interview_server",
	Short: "Interview Manager HTTP API Server",
	Long: "Interview Manager lets admins build interviews, invite candidates by email and review " +
		"their text, multiple choice and video answers via REST API.",
	SilenceUsage: true,
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if err := logging.Init(logging.Config{Level: loaded.Log.Level, Pretty: loaded.Log.Pretty}); err != nil {
			return fmt.Errorf("failed to initialize logging: %w", err)
		}
		cfg = loaded
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a YAML config file")
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	err := rootCmd.Execute()
	_ = logging.L().Sync()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
