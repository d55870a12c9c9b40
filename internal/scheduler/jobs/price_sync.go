package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/altsignals/internal/contracts"
	"github.com/wonny/altsignals/internal/external/stooq"
	"github.com/wonny/altsignals/pkg/logger"
)

// PriceSyncJob keeps the daily price series current for every company
// in the coverage universe. The validation engine needs fresh bars to
// compute forward returns for recent signals.
type PriceSyncJob struct {
	stooq     *stooq.Client
	prices    contracts.PriceRepository
	companies *contracts.CompanyRegistry
	logger    *logger.Logger
}

// NewPriceSyncJob creates a new price sync job
func NewPriceSyncJob(
	client *stooq.Client,
	prices contracts.PriceRepository,
	companies *contracts.CompanyRegistry,
	log *logger.Logger,
) *PriceSyncJob {
	return &PriceSyncJob{
		stooq:     client,
		prices:    prices,
		companies: companies,
		logger:    log,
	}
}

// Name returns the job name
func (j *PriceSyncJob) Name() string {
	return "price_sync"
}

// Schedule runs on weekdays at 22:30 UTC, after the US close settles.
func (j *PriceSyncJob) Schedule() string {
	return "0 30 22 * * 1-5"
}

// Run fetches recent daily bars for every covered ticker and upserts
// them. Picks up from each ticker's latest stored bar, falling back to
// a 30-day window for tickers with no history yet.
func (j *PriceSyncJob) Run(ctx context.Context) error {
	now := time.Now().UTC()

	var failed int
	for _, company := range j.companies.ListAll() {
		start := now.AddDate(0, 0, -30)
		latest, err := j.prices.GetLatestByTicker(ctx, company.Ticker)
		if err != nil {
			return fmt.Errorf("reading latest bar for %s: %w", company.Ticker, err)
		}
		if latest != nil {
			start = latest.Date.AddDate(0, 0, 1)
		}
		if !start.Before(now) {
			continue
		}

		bars, err := j.stooq.FetchDaily(ctx, company.Ticker, start, now)
		if err != nil {
			j.logger.WithFields(map[string]interface{}{
				"ticker": company.Ticker,
				"error":  err.Error(),
			}).Warn("Price fetch failed, skipping ticker")
			failed++
			continue
		}
		if err := j.prices.SaveBatch(ctx, bars); err != nil {
			return fmt.Errorf("saving bars for %s: %w", company.Ticker, err)
		}

		j.logger.WithFields(map[string]interface{}{
			"ticker": company.Ticker,
			"bars":   len(bars),
		}).Info("Price series updated")
	}

	if failed == len(j.companies.ListAll()) && failed > 0 {
		return fmt.Errorf("price sync failed for all %d tickers", failed)
	}
	return nil
}
