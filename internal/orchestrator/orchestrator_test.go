package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/altsignals/internal/contracts"
	"github.com/wonny/altsignals/internal/frequency"
	"github.com/wonny/altsignals/pkg/config"
	"github.com/wonny/altsignals/pkg/logger"
)

// memSignalRepo is an in-memory SignalRepository deduplicating on the
// signal uniqueness key.
type memSignalRepo struct {
	mu      sync.Mutex
	rows    map[string]contracts.Signal
	failing bool
}

func newMemSignalRepo() *memSignalRepo {
	return &memSignalRepo{rows: make(map[string]contracts.Signal)}
}

func (r *memSignalRepo) key(s contracts.Signal) string {
	return fmt.Sprintf("%s|%s|%d", s.CompanyID, s.SignalType, s.Timestamp.UnixNano())
}

func (r *memSignalRepo) UpsertSignals(_ context.Context, signals []contracts.Signal) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failing {
		return 0, errors.New("write refused")
	}
	for _, s := range signals {
		r.rows[r.key(s)] = s
	}
	return len(signals), nil
}

func (r *memSignalRepo) QuerySignals(_ context.Context, companyID, signalType string, start, end time.Time) ([]contracts.Signal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []contracts.Signal
	for _, s := range r.rows {
		if s.CompanyID != companyID {
			continue
		}
		if signalType != "" && s.SignalType != signalType {
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

func (r *memSignalRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rows)
}

// memStateRepo is an in-memory UpdateStateRepository.
type memStateRepo struct {
	mu    sync.Mutex
	state map[string]time.Time
}

func newMemStateRepo() *memStateRepo {
	return &memStateRepo{state: make(map[string]time.Time)}
}

func (r *memStateRepo) GetLastUpdated(_ context.Context, companyID, signalType string) (*time.Time, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.state[companyID+"|"+signalType]
	if !ok {
		return nil, nil
	}
	return &t, nil
}

func (r *memStateRepo) SetLastUpdated(_ context.Context, companyID, signalType string, t time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state[companyID+"|"+signalType] = t
	return nil
}

func (r *memStateRepo) get(companyID, signalType string) *time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.state[companyID+"|"+signalType]
	if !ok {
		return nil
	}
	return &t
}

// fakeCollector is a configurable collector for orchestrator tests.
type fakeCollector struct {
	signalType string
	tier       frequency.Tier
	fetchErr   error
	processErr error
	signals    []contracts.Signal

	mu        sync.Mutex
	fetches   int
	lastStart time.Time
	lastEnd   time.Time
}

func (c *fakeCollector) Meta() contracts.CollectorMeta {
	return contracts.CollectorMeta{
		SignalType: c.signalType,
		Category:   contracts.CategoryAlternative,
		Source:     "fake",
		Tier:       c.tier,
	}
}

func (c *fakeCollector) IsApplicable(*contracts.Company) bool { return true }

func (c *fakeCollector) Fetch(_ context.Context, _ *contracts.Company, start, end time.Time) (interface{}, error) {
	c.mu.Lock()
	c.fetches++
	c.lastStart = start
	c.lastEnd = end
	c.mu.Unlock()
	if c.fetchErr != nil {
		return nil, c.fetchErr
	}
	return "raw", nil
}

func (c *fakeCollector) Process(company *contracts.Company, _ interface{}) ([]contracts.Signal, error) {
	if c.processErr != nil {
		return nil, c.processErr
	}
	out := make([]contracts.Signal, len(c.signals))
	for i, s := range c.signals {
		s.CompanyID = company.ID
		s.SignalType = c.signalType
		out[i] = s
	}
	return out, nil
}

func makeSignals(n int, base time.Time) []contracts.Signal {
	signals := make([]contracts.Signal, n)
	for i := range signals {
		signals[i] = contracts.Signal{
			Category:   contracts.CategoryAlternative,
			Timestamp:  base.Add(time.Duration(i) * time.Hour),
			Score:      float64(10 + i),
			Confidence: 0.8,
			SourceName: "fake",
		}
	}
	return signals
}

func newTestOrchestrator(t *testing.T, collectors ...contracts.Collector) (*Orchestrator, *memSignalRepo, *memStateRepo) {
	t.Helper()

	registry := contracts.NewCollectorRegistry()
	for _, c := range collectors {
		registry.Register(c)
	}

	companies := contracts.NewCompanyRegistry()
	companies.Register(&contracts.Company{ID: "UBER", Ticker: "UBER", Name: "Uber Technologies Inc"})

	signalRepo := newMemSignalRepo()
	stateRepo := newMemStateRepo()

	cfg := config.OrchestratorConfig{
		Concurrency:       4,
		PollInterval:      time.Minute,
		FirstUpdateWindow: 30 * 24 * time.Hour,
		BackfillWindow:    2 * 365 * 24 * time.Hour,
	}

	return New(registry, companies, signalRepo, stateRepo, cfg, logger.NewNop()), signalRepo, stateRepo
}

func TestBuildDueSet_NeverUpdatedIsDue(t *testing.T) {
	collector := &fakeCollector{signalType: "wiki_pageviews", tier: frequency.TierDaily}
	o, _, _ := newTestOrchestrator(t, collector)

	tasks, err := o.BuildDueSet(context.Background(), Options{})
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "UBER", tasks[0].Company.ID)
}

func TestBuildDueSet_FreshPairIsSkipped(t *testing.T) {
	collector := &fakeCollector{signalType: "wiki_pageviews", tier: frequency.TierDaily}
	o, _, state := newTestOrchestrator(t, collector)

	now := time.Now()
	o.now = func() time.Time { return now }

	// Updated 2h ago on a daily tier: not due.
	require.NoError(t, state.SetLastUpdated(context.Background(), "UBER", "wiki_pageviews", now.Add(-2*time.Hour)))

	tasks, err := o.BuildDueSet(context.Background(), Options{})
	require.NoError(t, err)
	assert.Empty(t, tasks)

	// 26h ago: due again.
	require.NoError(t, state.SetLastUpdated(context.Background(), "UBER", "wiki_pageviews", now.Add(-26*time.Hour)))

	tasks, err = o.BuildDueSet(context.Background(), Options{})
	require.NoError(t, err)
	assert.Len(t, tasks, 1)
}

func TestBuildDueSet_ForceBypassesDueCheck(t *testing.T) {
	collector := &fakeCollector{signalType: "wiki_pageviews", tier: frequency.TierDaily}
	o, _, state := newTestOrchestrator(t, collector)

	now := time.Now()
	o.now = func() time.Time { return now }

	require.NoError(t, state.SetLastUpdated(context.Background(), "UBER", "wiki_pageviews", now.Add(-time.Minute)))

	tasks, err := o.BuildDueSet(context.Background(), Options{Force: true})
	require.NoError(t, err)
	assert.Len(t, tasks, 1)
}

func TestBuildDueSet_UnknownSignalTypeIsConfigError(t *testing.T) {
	collector := &fakeCollector{signalType: "wiki_pageviews", tier: frequency.TierDaily}
	o, _, _ := newTestOrchestrator(t, collector)

	_, err := o.BuildDueSet(context.Background(), Options{SignalTypes: []string{"no_such_type"}})
	require.Error(t, err)
	assert.True(t, IsConfigError(err))
}

func TestBuildDueSet_UnknownCompanyIsConfigError(t *testing.T) {
	collector := &fakeCollector{signalType: "wiki_pageviews", tier: frequency.TierDaily}
	o, _, _ := newTestOrchestrator(t, collector)

	_, err := o.BuildDueSet(context.Background(), Options{Companies: []string{"ENRON"}})
	require.Error(t, err)
	assert.True(t, IsConfigError(err))
}

func TestRunOnce_FailureIsolation(t *testing.T) {
	base := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)

	failing := &fakeCollector{
		signalType: "sec_form_4",
		tier:       frequency.TierDaily,
		fetchErr:   errors.New("EDGAR timeout"),
	}
	healthy := &fakeCollector{
		signalType: "wiki_pageviews",
		tier:       frequency.TierDaily,
		signals:    makeSignals(3, base),
	}

	o, signals, state := newTestOrchestrator(t, failing, healthy)

	report, err := o.RunOnce(context.Background(), Options{})
	require.NoError(t, err)

	assert.Equal(t, 2, report.DueCount)
	assert.Equal(t, 1, report.Succeeded)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, 3, report.SignalsWritten)
	assert.Equal(t, 3, signals.count())

	require.Len(t, report.Failures, 1)
	failure := report.Failures[0]
	assert.Equal(t, "UBER", failure.CompanyID)
	assert.Equal(t, "sec_form_4", failure.SignalType)
	assert.Equal(t, StageFetch, failure.Stage)
	assert.Contains(t, failure.Message, "EDGAR timeout")

	// The failed pair's last_updated must be untouched so the next
	// cycle retries it; the healthy pair's must be advanced.
	assert.Nil(t, state.get("UBER", "sec_form_4"))
	assert.NotNil(t, state.get("UBER", "wiki_pageviews"))
}

func TestRunOnce_PersistErrorDoesNotAdvanceState(t *testing.T) {
	base := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	collector := &fakeCollector{
		signalType: "wiki_pageviews",
		tier:       frequency.TierDaily,
		signals:    makeSignals(2, base),
	}

	o, signals, state := newTestOrchestrator(t, collector)
	signals.failing = true

	report, err := o.RunOnce(context.Background(), Options{})
	require.NoError(t, err)

	assert.Equal(t, 1, report.Failed)
	require.Len(t, report.Failures, 1)
	assert.Equal(t, StagePersist, report.Failures[0].Stage)
	assert.Nil(t, state.get("UBER", "wiki_pageviews"))
}

func TestRunOnce_Idempotence(t *testing.T) {
	base := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	collector := &fakeCollector{
		signalType: "wiki_pageviews",
		tier:       frequency.TierDaily,
		signals:    makeSignals(3, base),
	}

	o, signals, _ := newTestOrchestrator(t, collector)

	_, err := o.RunOnce(context.Background(), Options{Force: true})
	require.NoError(t, err)
	_, err = o.RunOnce(context.Background(), Options{Force: true})
	require.NoError(t, err)

	// Same observations ingested twice leave exactly one row each.
	assert.Equal(t, 3, signals.count())
}

func TestRunOnce_DryRun(t *testing.T) {
	base := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	collector := &fakeCollector{
		signalType: "wiki_pageviews",
		tier:       frequency.TierDaily,
		signals:    makeSignals(2, base),
	}

	o, signals, state := newTestOrchestrator(t, collector)

	report, err := o.RunOnce(context.Background(), Options{DryRun: true})
	require.NoError(t, err)

	assert.True(t, report.DryRun)
	assert.Equal(t, 1, report.Succeeded)
	assert.Equal(t, 2, report.SignalsWritten)
	// Nothing persisted, nothing advanced.
	assert.Equal(t, 0, signals.count())
	assert.Nil(t, state.get("UBER", "wiki_pageviews"))
}

func TestRunOnce_InvalidSignalsDropped(t *testing.T) {
	base := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	bad := contracts.Signal{
		Category:   contracts.CategoryAlternative,
		Timestamp:  base,
		Score:      250, // outside [-100, 100]
		Confidence: 0.5,
	}
	good := makeSignals(1, base.Add(time.Hour))[0]

	collector := &fakeCollector{
		signalType: "wiki_pageviews",
		tier:       frequency.TierDaily,
		signals:    []contracts.Signal{bad, good},
	}

	o, signals, _ := newTestOrchestrator(t, collector)

	report, err := o.RunOnce(context.Background(), Options{})
	require.NoError(t, err)
	assert.Equal(t, 1, report.SignalsWritten)
	assert.Equal(t, 1, signals.count())
}

func TestBackfill_AlwaysDueAndMaxWindow(t *testing.T) {
	collector := &fakeCollector{signalType: "wiki_pageviews", tier: frequency.TierDaily}
	o, _, state := newTestOrchestrator(t, collector)

	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	o.now = func() time.Time { return now }

	// Freshly updated: a regular run would skip it, backfill must not.
	require.NoError(t, state.SetLastUpdated(context.Background(), "UBER", "wiki_pageviews", now.Add(-time.Minute)))

	report, err := o.Backfill(context.Background(), BackfillOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, report.DueCount)

	// Maximum historical depth, not "since last update".
	assert.Equal(t, now.Add(-2*365*24*time.Hour), collector.lastStart)
	assert.Equal(t, now, collector.lastEnd)
}

func TestBackfill_ExplicitWindow(t *testing.T) {
	collector := &fakeCollector{signalType: "wiki_pageviews", tier: frequency.TierDaily}
	o, _, _ := newTestOrchestrator(t, collector)

	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	_, err := o.Backfill(context.Background(), BackfillOptions{From: from, To: to})
	require.NoError(t, err)
	assert.Equal(t, from, collector.lastStart)
	assert.Equal(t, to, collector.lastEnd)
}

func TestBackfill_EmptyWindowIsConfigError(t *testing.T) {
	collector := &fakeCollector{signalType: "wiki_pageviews", tier: frequency.TierDaily}
	o, _, _ := newTestOrchestrator(t, collector)

	from := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	_, err := o.Backfill(context.Background(), BackfillOptions{From: from, To: to})
	require.Error(t, err)
	assert.True(t, IsConfigError(err))
}

func TestRunDaemon_StopsOnCancel(t *testing.T) {
	collector := &fakeCollector{signalType: "wiki_pageviews", tier: frequency.TierRealtime}
	o, _, _ := newTestOrchestrator(t, collector)
	o.cfg.PollInterval = 10 * time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	err := o.RunDaemon(ctx, Options{Force: true})
	require.NoError(t, err)

	collector.mu.Lock()
	fetches := collector.fetches
	collector.mu.Unlock()

	// At least the first tick plus a few ticker fires.
	assert.GreaterOrEqual(t, fetches, 2)
}

func TestRunDaemon_ConfigErrorIsFatal(t *testing.T) {
	collector := &fakeCollector{signalType: "wiki_pageviews", tier: frequency.TierDaily}
	o, _, _ := newTestOrchestrator(t, collector)

	err := o.RunDaemon(context.Background(), Options{SignalTypes: []string{"bogus"}})
	require.Error(t, err)
	assert.True(t, IsConfigError(err))
}
