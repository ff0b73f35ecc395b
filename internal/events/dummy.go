package events

import (
	"context"
	"sync"

	"github.com/jonathan/interview-manager/internal/logging"
	"go.uber.org/zap"
)

// Dummy records jobs in memory instead of publishing them. Consume blocks until
// ctx is done. Used when no broker is configured.
type Dummy struct {
	mu   sync.Mutex
	jobs []VideoJob
}

func (d *Dummy) PublishVideoJob(ctx context.Context, job VideoJob) error {
	d.mu.Lock()
	d.jobs = append(d.jobs, job)
	d.mu.Unlock()
	logging.FromContext(ctx).Info("video job not published, no broker configured",
		zap.String("response_id", job.ResponseID.String()))
	return nil
}

func (d *Dummy) Consume(ctx context.Context, _ ResultHandler) error {
	<-ctx.Done()
	return nil
}

// Jobs returns a copy of the recorded jobs
func (d *Dummy) Jobs() []VideoJob {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]VideoJob(nil), d.jobs...)
}
