package orchestrator

import (
	"context"
	"time"
)

// BackfillOptions controls a historical backfill run.
type BackfillOptions struct {
	Companies   []string
	SignalTypes []string

	// From/To bound the historical window. Zero values default to
	// (now - BackfillWindow, now).
	From time.Time
	To   time.Time

	DryRun bool
}

// Backfill runs an unconditional, maximum-depth ingestion: every
// requested pair is treated as due and collectors are asked for the full
// historical window instead of "since last update". It shares the batch
// machinery, concurrency cap, and failure isolation of the regular
// update path, and is expected to run once per pair.
func (o *Orchestrator) Backfill(ctx context.Context, opts BackfillOptions) (*BatchReport, error) {
	now := o.now()

	to := opts.To
	if to.IsZero() {
		to = now
	}
	from := opts.From
	if from.IsZero() {
		from = to.Add(-o.cfg.BackfillWindow)
	}
	if !from.Before(to) {
		return nil, NewConfigError("backfill window is empty: from %s, to %s",
			from.Format("2006-01-02"), to.Format("2006-01-02"))
	}

	companies, err := o.resolveCompanies(opts.Companies)
	if err != nil {
		return nil, err
	}

	var tasks []Task
	for _, company := range companies {
		collectors, err := o.resolveCollectors(company, opts.SignalTypes)
		if err != nil {
			return nil, err
		}

		for _, collector := range collectors {
			// Validate the tier even though backfill ignores due
			// checking: a malformed policy should fail loudly here too.
			if _, err := collector.Meta().Tier.Interval(); err != nil {
				return nil, NewConfigError("collector %s: %w", collector.Meta().SignalType, err)
			}

			tasks = append(tasks, Task{
				Company:   company,
				Collector: collector,
				Start:     from,
				End:       to,
			})
		}
	}

	o.logger.WithFields(map[string]interface{}{
		"pairs": len(tasks),
		"from":  from.Format("2006-01-02"),
		"to":    to.Format("2006-01-02"),
	}).Info("Starting backfill")

	report := o.ExecuteBatch(ctx, tasks, Options{DryRun: opts.DryRun})

	o.logger.WithFields(map[string]interface{}{
		"succeeded": report.Succeeded,
		"failed":    report.Failed,
		"written":   report.SignalsWritten,
	}).Info("Backfill completed")

	return report, nil
}
