package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jonathan/interview-manager/internal/events"
	"github.com/jonathan/interview-manager/internal/lifecycle"
	"github.com/jonathan/interview-manager/internal/logging"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Apply video processing results",
	Long: `Consume transcription results from the results queue and merge them into the stored
video answers. Runs until SIGINT or SIGTERM.`,
	RunE: runWorker,
}

func init() {
	rootCmd.AddCommand(workerCmd)
}

func runWorker(cmd *cobra.Command, _ []string) error {
	if cfg.Rabbit.URL == "" {
		return fmt.Errorf("RABBITMQ_URL is required")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	database, err := connectDB(ctx)
	if err != nil {
		return err
	}
	defer database.Close()

	var bus events.Consumer = newBus()
	logging.L().Info("worker starting",
		zap.String("queue", cfg.Rabbit.ResultQueue),
		zap.Int("prefetch", cfg.Rabbit.Prefetch),
	)

	if err := bus.Consume(ctx, lifecycle.ProcessingHandler(database)); err != nil {
		return fmt.Errorf("worker stopped: %w", err)
	}
	logging.L().Info("worker stopped")
	return nil
}
