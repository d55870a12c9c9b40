package orchestrator

import (
	"context"
	"sync"
	"time"

	"github.com/wonny/altsignals/internal/contracts"
	"github.com/wonny/altsignals/internal/frequency"
	"github.com/wonny/altsignals/pkg/config"
	"github.com/wonny/altsignals/pkg/logger"
)

// Orchestrator decides which (company, signal_type) pairs are due for an
// update, fans out concurrent fetch+process+persist tasks with failure
// isolation, and records what succeeded.
type Orchestrator struct {
	collectors *contracts.CollectorRegistry
	companies  *contracts.CompanyRegistry
	signals    contracts.SignalRepository
	state      contracts.UpdateStateRepository
	cfg        config.OrchestratorConfig
	logger     *logger.Logger

	// now is injectable for tests.
	now func() time.Time
}

// New creates a new Orchestrator.
func New(
	collectors *contracts.CollectorRegistry,
	companies *contracts.CompanyRegistry,
	signals contracts.SignalRepository,
	state contracts.UpdateStateRepository,
	cfg config.OrchestratorConfig,
	log *logger.Logger,
) *Orchestrator {
	return &Orchestrator{
		collectors: collectors,
		companies:  companies,
		signals:    signals,
		state:      state,
		cfg:        cfg,
		logger:     log.WithField("module", "orchestrator"),
		now:        time.Now,
	}
}

// Options controls a single update run.
type Options struct {
	// Companies restricts the run to specific company IDs. Empty means
	// all registered companies.
	Companies []string

	// SignalTypes restricts the run to specific signal types. Empty
	// means all applicable collectors. An unknown signal type is a
	// configuration error.
	SignalTypes []string

	// Force treats every requested pair as due regardless of
	// last_updated.
	Force bool

	// DryRun performs fetch + process but skips persistence and the
	// last_updated advance.
	DryRun bool
}

// Task is one due (company, signal_type) unit of work.
type Task struct {
	Company   *contracts.Company
	Collector contracts.Collector
	Start     time.Time
	End       time.Time
}

// TaskFailure records one failed task in a batch report.
type TaskFailure struct {
	CompanyID  string `json:"company_id"`
	SignalType string `json:"signal_type"`
	Source     string `json:"source"`
	Stage      Stage  `json:"stage"`
	Message    string `json:"message"`
}

// BatchReport aggregates the outcome of one fetch batch. Task failures
// are reported here, never thrown past the batch.
type BatchReport struct {
	StartedAt      time.Time     `json:"started_at"`
	FinishedAt     time.Time     `json:"finished_at"`
	DueCount       int           `json:"due_count"`
	Succeeded      int           `json:"succeeded"`
	Failed         int           `json:"failed"`
	SignalsWritten int           `json:"signals_written"`
	DryRun         bool          `json:"dry_run"`
	Failures       []TaskFailure `json:"failures,omitempty"`
}

// RunOnce computes the due set, executes one fetch batch, and returns
// the aggregate report. Only configuration errors are returned as error.
func (o *Orchestrator) RunOnce(ctx context.Context, opts Options) (*BatchReport, error) {
	tasks, err := o.BuildDueSet(ctx, opts)
	if err != nil {
		return nil, err
	}

	report := o.ExecuteBatch(ctx, tasks, opts)

	o.logger.WithFields(map[string]interface{}{
		"due":       report.DueCount,
		"succeeded": report.Succeeded,
		"failed":    report.Failed,
		"written":   report.SignalsWritten,
		"dry_run":   report.DryRun,
	}).Info("Update batch completed")

	return report, nil
}

// BuildDueSet computes the due (company, signal_type) pairs for this
// moment. The due predicate is recomputed fresh on every call: the
// orchestrator never caches last_updated across ticks.
func (o *Orchestrator) BuildDueSet(ctx context.Context, opts Options) ([]Task, error) {
	now := o.now()

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
			meta := collector.Meta()

			interval, err := meta.Tier.Interval()
			if err != nil {
				return nil, NewConfigError("collector %s: %w", meta.SignalType, err)
			}

			lastUpdated, err := o.state.GetLastUpdated(ctx, company.ID, meta.SignalType)
			if err != nil {
				return nil, NewConfigError("update state unavailable for %s/%s: %w", company.ID, meta.SignalType, err)
			}

			if !opts.Force && !frequency.Due(lastUpdated, now, interval) {
				o.logger.WithFields(map[string]interface{}{
					"company":     company.ID,
					"signal_type": meta.SignalType,
				}).Debug("Pair not due, skipping")
				continue
			}

			start := now.Add(-o.cfg.FirstUpdateWindow)
			if lastUpdated != nil {
				start = *lastUpdated
			}

			tasks = append(tasks, Task{
				Company:   company,
				Collector: collector,
				Start:     start,
				End:       now,
			})
		}
	}

	return tasks, nil
}

// ExecuteBatch runs tasks through a bounded worker pool. Each task is an
// independent fetch → process → persist unit: a failing task is recorded
// in the report and never affects its siblings.
func (o *Orchestrator) ExecuteBatch(ctx context.Context, tasks []Task, opts Options) *BatchReport {
	report := &BatchReport{
		StartedAt: o.now(),
		DueCount:  len(tasks),
		DryRun:    opts.DryRun,
	}

	if len(tasks) == 0 {
		report.FinishedAt = o.now()
		return report
	}

	workers := o.cfg.Concurrency
	if workers < 1 {
		workers = 1
	}
	if workers > len(tasks) {
		workers = len(tasks)
	}

	taskCh := make(chan Task, len(tasks))
	resultCh := make(chan taskResult, len(tasks))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for task := range taskCh {
				resultCh <- o.runTask(ctx, task, opts.DryRun)
			}
		}()
	}

	for _, task := range tasks {
		taskCh <- task
	}
	close(taskCh)

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	for result := range resultCh {
		if result.err != nil {
			report.Failed++
			report.Failures = append(report.Failures, TaskFailure{
				CompanyID:  result.err.CompanyID,
				SignalType: result.err.SignalType,
				Source:     result.err.Source,
				Stage:      result.err.Stage,
				Message:    result.err.Err.Error(),
			})
			continue
		}
		report.Succeeded++
		report.SignalsWritten += result.written
	}

	report.FinishedAt = o.now()
	return report
}

type taskResult struct {
	written int
	err     *TaskError
}

// runTask executes one fetch → process → persist unit. All failures are
// converted to a TaskError at this boundary; the pair's last_updated is
// advanced only after the whole unit succeeded.
func (o *Orchestrator) runTask(ctx context.Context, task Task, dryRun bool) taskResult {
	meta := task.Collector.Meta()
	log := o.logger.WithFields(map[string]interface{}{
		"company":     task.Company.ID,
		"signal_type": meta.SignalType,
	})

	fail := func(stage Stage, err error) taskResult {
		log.WithError(err).WithField("stage", string(stage)).Error("Task failed")
		return taskResult{err: &TaskError{
			CompanyID:  task.Company.ID,
			SignalType: meta.SignalType,
			Source:     meta.Source,
			Stage:      stage,
			Err:        err,
		}}
	}

	raw, err := task.Collector.Fetch(ctx, task.Company, task.Start, task.End)
	if err != nil {
		return fail(StageFetch, err)
	}

	signals, err := task.Collector.Process(task.Company, raw)
	if err != nil {
		return fail(StageProcess, err)
	}

	valid := make([]contracts.Signal, 0, len(signals))
	for _, s := range signals {
		if err := s.Validate(); err != nil {
			log.WithError(err).Warn("Dropping invalid signal")
			continue
		}
		valid = append(valid, s)
	}

	log.WithField("count", len(valid)).Debug("Signals generated")

	if dryRun {
		return taskResult{written: len(valid)}
	}

	written := 0
	if len(valid) > 0 {
		written, err = o.signals.UpsertSignals(ctx, valid)
		if err != nil {
			return fail(StagePersist, err)
		}
	}

	if err := o.state.SetLastUpdated(ctx, task.Company.ID, meta.SignalType, task.End); err != nil {
		return fail(StagePersist, err)
	}

	return taskResult{written: written}
}

// resolveCompanies maps requested IDs to registered companies. An
// unknown ID is a configuration error.
func (o *Orchestrator) resolveCompanies(ids []string) ([]*contracts.Company, error) {
	if len(ids) == 0 {
		return o.companies.ListAll(), nil
	}

	companies := make([]*contracts.Company, 0, len(ids))
	for _, id := range ids {
		company, ok := o.companies.Get(id)
		if !ok {
			return nil, NewConfigError("unknown company %q", id)
		}
		companies = append(companies, company)
	}
	return companies, nil
}

// resolveCollectors maps requested signal types to registered,
// applicable collectors. An unknown signal type is a configuration
// error, not a runtime skip.
func (o *Orchestrator) resolveCollectors(company *contracts.Company, signalTypes []string) ([]contracts.Collector, error) {
	if len(signalTypes) == 0 {
		return o.collectors.ListApplicable(company), nil
	}

	collectors := make([]contracts.Collector, 0, len(signalTypes))
	for _, st := range signalTypes {
		collector, ok := o.collectors.Get(st)
		if !ok {
			return nil, NewConfigError("unknown signal type %q", st)
		}
		if !collector.IsApplicable(company) {
			continue
		}
		collectors = append(collectors, collector)
	}
	return collectors, nil
}
