package lifecycle

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jonathan/interview-manager/internal/db"
	"github.com/jonathan/interview-manager/internal/events"
	"github.com/jonathan/interview-manager/internal/logging"
	"go.uber.org/zap"
)

// ResultStore persists transcription results on video responses
type ResultStore interface {
	ApplyProcessingResult(ctx context.Context, id, jobID uuid.UUID, status string, patch map[string]any) error
}

var processingStatuses = map[string]string{
	events.ResultProcessing: db.ProcessingStatusProcessing,
	events.ResultCompleted:  db.ProcessingStatusCompleted,
	events.ResultFailed:     db.ProcessingStatusFailed,
}

// ProcessingHandler returns the handler the worker feeds pipeline results into. The
// transcript of a completed result is merged into the stored answer; failures only
// move processing_status. Results for a recording that has since been replaced are
// dropped and acknowledged.
func ProcessingHandler(store ResultStore) events.ResultHandler {
	return func(ctx context.Context, result *events.VideoResult) error {
		status, ok := processingStatuses[result.Status]
		if !ok {
			return fmt.Errorf("unknown result status %q", result.Status)
		}

		err := store.ApplyProcessingResult(ctx, result.ResponseID, result.JobID, status, result.Patch())
		if errors.Is(err, db.ErrStaleResult) {
			logging.FromContext(ctx).Info("stale video result dropped",
				zap.String("response_id", result.ResponseID.String()),
				zap.String("job_id", result.JobID.String()))
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to apply result for response %s: %w", result.ResponseID, err)
		}

		fields := []zap.Field{
			zap.String("response_id", result.ResponseID.String()),
			zap.String("job_id", result.JobID.String()),
			zap.String("processing_status", status),
		}
		if result.Error != "" {
			fields = append(fields, zap.String("pipeline_error", result.Error))
		}
		logging.FromContext(ctx).Info("video result applied", fields...)
		return nil
	}
}
