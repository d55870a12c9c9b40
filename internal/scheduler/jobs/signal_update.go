package jobs

import (
	"context"
	"fmt"

	"github.com/wonny/altsignals/internal/orchestrator"
	"github.com/wonny/altsignals/pkg/logger"
)

// SignalUpdateJob runs one orchestrator batch on a fixed schedule. It is
// the cron-managed alternative to the standalone update daemon: the due
// predicate keeps the two from double-fetching if both ever run.
type SignalUpdateJob struct {
	orch   *orchestrator.Orchestrator
	logger *logger.Logger
}

func NewSignalUpdateJob(orch *orchestrator.Orchestrator, log *logger.Logger) *SignalUpdateJob {
	return &SignalUpdateJob{
		orch:   orch,
		logger: log.WithField("job", "signal_update"),
	}
}

func (j *SignalUpdateJob) Name() string {
	return "signal_update"
}

// Schedule runs every 5 minutes; the realtime tier is the shortest
// update interval, so polling faster buys nothing.
func (j *SignalUpdateJob) Schedule() string {
	return "0 */5 * * * *"
}

func (j *SignalUpdateJob) Run(ctx context.Context) error {
	report, err := j.orch.RunOnce(ctx, orchestrator.Options{})
	if err != nil {
		return fmt.Errorf("update batch failed: %w", err)
	}

	j.logger.WithFields(map[string]interface{}{
		"due":             report.DueCount,
		"succeeded":       report.Succeeded,
		"failed":          report.Failed,
		"signals_written": report.SignalsWritten,
	}).Info("Update batch completed")

	// Per-pair failures are isolated and reported, not fatal; surface
	// them in the job history only when nothing succeeded.
	if report.Failed > 0 && report.Succeeded == 0 && report.DueCount > 0 {
		return fmt.Errorf("all %d due pairs failed", report.Failed)
	}
	return nil
}
