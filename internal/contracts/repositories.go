package contracts

import (
	"context"
	"time"
)

// Price represents one daily OHLCV bar for a ticker.
type Price struct {
	Ticker   string    `json:"ticker"`
	Date     time.Time `json:"date"`
	Open     float64   `json:"open"`
	High     float64   `json:"high"`
	Low      float64   `json:"low"`
	Close    float64   `json:"close"`
	AdjClose float64   `json:"adj_close,omitempty"`
	Volume   int64     `json:"volume"`
}

// EffectiveClose returns the adjusted close when available, otherwise
// the raw close. Backtests should use this to stay split-consistent.
func (p *Price) EffectiveClose() float64 {
	if p.AdjClose > 0 {
		return p.AdjClose
	}
	return p.Close
}

// SignalRepository manages persisted signals.
type SignalRepository interface {
	// UpsertSignals writes signals, deduplicating on
	// (company_id, signal_type, timestamp). Re-ingesting the same
	// observation must not create a duplicate row. Returns the number
	// of rows written (inserted or enriched).
	UpsertSignals(ctx context.Context, signals []Signal) (int, error)

	// QuerySignals returns signals for a company and type within
	// [start, end], ordered by timestamp ascending. An empty
	// signalType matches all types.
	QuerySignals(ctx context.Context, companyID, signalType string, start, end time.Time) ([]Signal, error)
}

// UpdateStateRepository tracks the last successful update per
// (company, signal_type) pair.
type UpdateStateRepository interface {
	// GetLastUpdated returns the last successful update time, or nil
	// if the pair has never been updated.
	GetLastUpdated(ctx context.Context, companyID, signalType string) (*time.Time, error)

	// SetLastUpdated records a successful update cycle for the pair.
	SetLastUpdated(ctx context.Context, companyID, signalType string, t time.Time) error
}

// PriceRepository manages the daily price series.
type PriceRepository interface {
	// QueryPrices returns prices for a ticker within [start, end],
	// ordered by date ascending.
	QueryPrices(ctx context.Context, ticker string, start, end time.Time) ([]Price, error)

	// GetLatestByTicker returns the most recent price row.
	GetLatestByTicker(ctx context.Context, ticker string) (*Price, error)

	// SaveBatch upserts price rows, deduplicating on (ticker, date).
	SaveBatch(ctx context.Context, prices []Price) error
}
