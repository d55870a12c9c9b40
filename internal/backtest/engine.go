package backtest

import (
	"context"
	"fmt"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/wonny/altsignals/internal/contracts"
	"github.com/wonny/altsignals/pkg/config"
	"github.com/wonny/altsignals/pkg/logger"
)

// Engine validates signal predictive power: it joins historical signal
// events to a daily price series, computes forward returns per holding
// horizon, and decides per signal type whether the relationship is
// statistically significant and in which direction.
//
// The engine is a pure function of its inputs: given the same signal
// set and price series it produces identical output on every run.
type Engine struct {
	signals contracts.SignalRepository
	prices  contracts.PriceRepository
	cfg     config.BacktestConfig
	logger  *logger.Logger
}

// RunConfig holds the parameters for one validation run. Zero values
// fall back to the engine's configured defaults.
type RunConfig struct {
	CompanyID string
	Ticker    string

	// Horizons are forward windows in trading days.
	Horizons   []int
	MinSamples int
	Alpha      float64

	// Start/End bound the signal window; zero means unbounded.
	Start time.Time
	End   time.Time
}

// BaselineStats describes the unconditional forward-return distribution
// for one horizon: what any random entry day would have earned. Signal
// statistics are only interesting relative to this.
type BaselineStats struct {
	Horizon      int     `json:"horizon"`
	N            int     `json:"n"`
	MeanReturn   float64 `json:"mean_return"`
	MedianReturn float64 `json:"median_return"`
	StdReturn    float64 `json:"std_return"`
}

// SignalTypeReport aggregates one signal type's results across all
// evaluated horizons.
type SignalTypeReport struct {
	SignalType  string                       `json:"signal_type"`
	Category    contracts.Category           `json:"category"`
	TotalEvents int                          `json:"total_events"`
	Horizons    []contracts.ValidationResult `json:"horizons"`

	// BestHorizon is the horizon with the lowest p-value among those
	// with an adequate sample; 0 when none qualifies.
	BestHorizon int  `json:"best_horizon"`
	Predictive  bool `json:"predictive"`
}

// Report is the complete validation output for one company.
type Report struct {
	CompanyID    string             `json:"company_id"`
	Ticker       string             `json:"ticker"`
	PriceStart   time.Time          `json:"price_start"`
	PriceEnd     time.Time          `json:"price_end"`
	TotalSignals int                `json:"total_signals"`
	Horizons     []int              `json:"horizons"`
	SignalTypes  []SignalTypeReport `json:"signal_types"`
	Baseline     []BaselineStats    `json:"baseline"`
}

// PredictiveTypes returns the reports flagged predictive, ordered by
// their best p-value ascending.
func (r *Report) PredictiveTypes() []SignalTypeReport {
	var out []SignalTypeReport
	for _, st := range r.SignalTypes {
		if st.Predictive {
			out = append(out, st)
		}
	}
	sort.SliceStable(out, func(a, b int) bool {
		return bestPValue(out[a]) < bestPValue(out[b])
	})
	return out
}

func bestPValue(st SignalTypeReport) float64 {
	best := 1.0
	for _, h := range st.Horizons {
		if !h.InsufficientData && h.PValue < best {
			best = h.PValue
		}
	}
	return best
}

// NewEngine creates a validation engine over the given repositories.
func NewEngine(
	signals contracts.SignalRepository,
	prices contracts.PriceRepository,
	cfg config.BacktestConfig,
	logger *logger.Logger,
) *Engine {
	return &Engine{
		signals: signals,
		prices:  prices,
		cfg:     cfg,
		logger:  logger,
	}
}

// Run validates every signal type recorded for one company against its
// price series.
func (e *Engine) Run(ctx context.Context, runCfg RunConfig) (*Report, error) {
	runCfg = e.applyDefaults(runCfg)

	e.logger.WithFields(map[string]interface{}{
		"company":  runCfg.CompanyID,
		"ticker":   runCfg.Ticker,
		"horizons": fmt.Sprint(runCfg.Horizons),
	}).Info("Starting signal validation")

	signals, err := e.signals.QuerySignals(ctx, runCfg.CompanyID, "", runCfg.Start, runCfg.End)
	if err != nil {
		return nil, fmt.Errorf("loading signals for %s: %w", runCfg.CompanyID, err)
	}
	prices, err := e.prices.QueryPrices(ctx, runCfg.Ticker, runCfg.Start, runCfg.End)
	if err != nil {
		return nil, fmt.Errorf("loading prices for %s: %w", runCfg.Ticker, err)
	}
	if len(signals) == 0 {
		return nil, fmt.Errorf("no signals recorded for %s", runCfg.CompanyID)
	}
	if len(prices) == 0 {
		return nil, fmt.Errorf("no price history for %s", runCfg.Ticker)
	}

	sort.Slice(prices, func(a, b int) bool { return prices[a].Date.Before(prices[b].Date) })
	sort.Slice(signals, func(a, b int) bool {
		if !signals[a].Timestamp.Equal(signals[b].Timestamp) {
			return signals[a].Timestamp.Before(signals[b].Timestamp)
		}
		return signals[a].SignalType < signals[b].SignalType
	})

	report := &Report{
		CompanyID:    runCfg.CompanyID,
		Ticker:       runCfg.Ticker,
		PriceStart:   prices[0].Date,
		PriceEnd:     prices[len(prices)-1].Date,
		TotalSignals: len(signals),
		Horizons:     runCfg.Horizons,
		Baseline:     e.calculateBaseline(prices, runCfg.Horizons),
	}

	// Group by signal type; iterate in sorted order so the report is
	// byte-identical across runs.
	byType := make(map[string][]contracts.Signal)
	for _, s := range signals {
		byType[s.SignalType] = append(byType[s.SignalType], s)
	}
	types := make([]string, 0, len(byType))
	for t := range byType {
		types = append(types, t)
	}
	sort.Strings(types)

	for _, signalType := range types {
		group := byType[signalType]
		st := e.analyzeSignalType(runCfg, signalType, group, prices)
		report.SignalTypes = append(report.SignalTypes, st)
	}

	predictive := 0
	for _, st := range report.SignalTypes {
		if st.Predictive {
			predictive++
		}
	}
	e.logger.WithFields(map[string]interface{}{
		"company":      runCfg.CompanyID,
		"signal_types": len(report.SignalTypes),
		"predictive":   predictive,
	}).Info("Signal validation completed")

	return report, nil
}

// RunPooled evaluates one signal type across several companies with the
// events pooled into a single sample. Per-company results come from
// Run; pooling is only computed on explicit request because a trend in
// one company can mask or be masked by another.
func (e *Engine) RunPooled(ctx context.Context, runCfg RunConfig, companies []*contracts.Company, signalType string) ([]contracts.ValidationResult, error) {
	runCfg = e.applyDefaults(runCfg)

	type series struct {
		signals []contracts.Signal
		prices  []contracts.Price
	}
	loaded := make([]series, 0, len(companies))
	for _, company := range companies {
		signals, err := e.signals.QuerySignals(ctx, company.ID, signalType, runCfg.Start, runCfg.End)
		if err != nil {
			return nil, fmt.Errorf("loading signals for %s: %w", company.ID, err)
		}
		prices, err := e.prices.QueryPrices(ctx, company.Ticker, runCfg.Start, runCfg.End)
		if err != nil {
			return nil, fmt.Errorf("loading prices for %s: %w", company.Ticker, err)
		}
		sort.Slice(prices, func(a, b int) bool { return prices[a].Date.Before(prices[b].Date) })
		sort.Slice(signals, func(a, b int) bool { return signals[a].Timestamp.Before(signals[b].Timestamp) })
		loaded = append(loaded, series{signals: signals, prices: prices})
	}

	results := make([]contracts.ValidationResult, 0, len(runCfg.Horizons))
	for _, horizon := range runCfg.Horizons {
		var records []contracts.BacktestRecord
		for _, s := range loaded {
			records = append(records, collectRecords(s.signals, s.prices, horizon)...)
		}
		results = append(results, e.evaluate("pooled", signalType, horizon, records, runCfg))
	}
	return results, nil
}

func (e *Engine) applyDefaults(runCfg RunConfig) RunConfig {
	if len(runCfg.Horizons) == 0 {
		runCfg.Horizons = e.cfg.Horizons
	}
	if runCfg.MinSamples <= 0 {
		runCfg.MinSamples = e.cfg.MinSamples
	}
	if runCfg.Alpha <= 0 {
		runCfg.Alpha = e.cfg.Alpha
	}
	if runCfg.Ticker == "" {
		runCfg.Ticker = runCfg.CompanyID
	}
	return runCfg
}

func (e *Engine) analyzeSignalType(
	runCfg RunConfig,
	signalType string,
	group []contracts.Signal,
	prices []contracts.Price,
) SignalTypeReport {
	st := SignalTypeReport{
		SignalType:  signalType,
		Category:    group[0].Category,
		TotalEvents: len(group),
	}

	bestP := 1.0
	for _, horizon := range runCfg.Horizons {
		records := collectRecords(group, prices, horizon)
		result := e.evaluate(runCfg.CompanyID, signalType, horizon, records, runCfg)
		st.Horizons = append(st.Horizons, result)

		if result.InsufficientData {
			continue
		}
		if result.Significant {
			st.Predictive = true
		}
		if result.PValue < bestP {
			bestP = result.PValue
			st.BestHorizon = horizon
		}
	}
	return st
}

// collectRecords joins one signal series to the price series at one
// horizon. Entry is the first trading day strictly after the signal
// timestamp; the signal day's own close already reflects the
// information that produced the signal and must not be tradable.
// Events whose entry or exit falls outside the price range are
// excluded, never imputed.
func collectRecords(group []contracts.Signal, prices []contracts.Price, horizon int) []contracts.BacktestRecord {
	records := make([]contracts.BacktestRecord, 0, len(group))
	for _, s := range group {
		entryIdx := sort.Search(len(prices), func(i int) bool {
			return prices[i].Date.After(s.Timestamp)
		})
		if entryIdx >= len(prices) {
			continue
		}
		exitIdx := entryIdx + horizon
		if exitIdx >= len(prices) {
			continue
		}

		entry := prices[entryIdx].EffectiveClose()
		exit := prices[exitIdx].EffectiveClose()
		if entry <= 0 {
			continue
		}

		records = append(records, contracts.BacktestRecord{
			SignalType:    s.SignalType,
			CompanyID:     s.CompanyID,
			SignalTime:    s.Timestamp,
			Score:         s.Score,
			EntryDate:     prices[entryIdx].Date,
			EntryPrice:    entry,
			ExitDate:      prices[exitIdx].Date,
			ExitPrice:     exit,
			ForwardReturn: exit/entry - 1,
		})
	}
	return records
}

// evaluate turns one record series into a ValidationResult.
func (e *Engine) evaluate(companyID, signalType string, horizon int, records []contracts.BacktestRecord, runCfg RunConfig) contracts.ValidationResult {
	result := contracts.ValidationResult{
		CompanyID:  companyID,
		SignalType: signalType,
		Horizon:    horizon,
		N:          len(records),
		Direction:  contracts.DirectionNone,
	}

	if len(records) < runCfg.MinSamples {
		result.InsufficientData = true
		return result
	}

	returns := make([]float64, len(records))
	scores := make([]float64, len(records))
	for i, rec := range records {
		returns[i] = rec.ForwardReturn
		scores[i] = rec.Score
	}

	result.MeanReturn = stat.Mean(returns, nil)
	result.StdReturn = stat.StdDev(returns, nil)
	result.TStat, result.PValue = oneSampleTTest(returns)
	result.InformationCoefficient = spearman(scores, returns)
	result.HitRate = hitRate(scores, returns)
	if result.StdReturn > 0 {
		result.Sharpe = result.MeanReturn / result.StdReturn
	}

	result.Significant = result.PValue < runCfg.Alpha
	if result.Significant {
		switch {
		case result.MeanReturn > 0:
			result.Direction = contracts.DirectionBullish
		case result.MeanReturn < 0:
			result.Direction = contracts.DirectionContrarian
		}
	}
	return result
}

// hitRate is the fraction of non-neutral events where the realized
// return agreed with the signal's own polarity.
func hitRate(scores, returns []float64) float64 {
	hits, nonNeutral := 0, 0
	for i, score := range scores {
		if score == 0 {
			continue
		}
		nonNeutral++
		if (score > 0 && returns[i] > 0) || (score < 0 && returns[i] < 0) {
			hits++
		}
	}
	if nonNeutral == 0 {
		return 0
	}
	return float64(hits) / float64(nonNeutral)
}

func (e *Engine) calculateBaseline(prices []contracts.Price, horizons []int) []BaselineStats {
	baseline := make([]BaselineStats, 0, len(horizons))
	for _, horizon := range horizons {
		var returns []float64
		for i := 0; i+horizon < len(prices); i++ {
			entry := prices[i].EffectiveClose()
			if entry <= 0 {
				continue
			}
			returns = append(returns, prices[i+horizon].EffectiveClose()/entry-1)
		}

		bs := BaselineStats{Horizon: horizon, N: len(returns)}
		if len(returns) > 0 {
			bs.MeanReturn = stat.Mean(returns, nil)
			bs.MedianReturn = median(returns)
			if len(returns) > 1 {
				bs.StdReturn = stat.StdDev(returns, nil)
			}
		}
		baseline = append(baseline, bs)
	}
	return baseline
}
