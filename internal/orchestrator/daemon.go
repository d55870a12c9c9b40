package orchestrator

import (
	"context"
	"time"
)

// RunDaemon runs the orchestrator as a continuous loop: on each tick it
// recomputes the due set, executes one fetch batch, and sleeps until the
// next tick. Ticks never overlap: a tick that is still running when the
// next is scheduled completes before the next one starts, so a pair is
// never scheduled twice concurrently.
//
// Cancelling ctx stops the loop cooperatively: the in-flight batch is
// allowed to finish its current fetch/persist units before RunDaemon
// returns.
func (o *Orchestrator) RunDaemon(ctx context.Context, opts Options) error {
	interval := o.cfg.PollInterval
	if interval <= 0 {
		interval = 5 * time.Minute
	}

	o.logger.WithField("poll_interval", interval.String()).Info("Starting update daemon")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		// A tick with zero due items is a no-op; a failing batch is
		// reported, never fatal. Only configuration errors stop the
		// daemon.
		report, err := o.RunOnce(ctx, opts)
		if err != nil {
			return err
		}

		if report.Failed > 0 {
			for _, failure := range report.Failures {
				o.logger.WithFields(map[string]interface{}{
					"company":     failure.CompanyID,
					"signal_type": failure.SignalType,
					"stage":       string(failure.Stage),
					"error":       failure.Message,
				}).Warn("Task failed, will retry on next due cycle")
			}
		}

		select {
		case <-ctx.Done():
			o.logger.Info("Update daemon stopped")
			return nil
		case <-ticker.C:
		}
	}
}
