package repos

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/altsignals/internal/contracts"
)

// PriceRepository implements contracts.PriceRepository on Postgres.
type PriceRepository struct {
	pool *pgxpool.Pool
}

// NewPriceRepository creates a new price repository
func NewPriceRepository(pool *pgxpool.Pool) *PriceRepository {
	return &PriceRepository{pool: pool}
}

// QueryPrices returns daily bars for a ticker ordered by trade date.
// Zero start/end leave that bound open.
func (r *PriceRepository) QueryPrices(ctx context.Context, ticker string, start, end time.Time) ([]contracts.Price, error) {
	query := `
		SELECT ticker, trade_date, open, high, low, close, adj_close, volume
		FROM daily_prices
		WHERE ticker = $1
	`
	args := []interface{}{ticker}

	if !start.IsZero() {
		args = append(args, start)
		query += fmt.Sprintf(" AND trade_date >= $%d", len(args))
	}
	if !end.IsZero() {
		args = append(args, end)
		query += fmt.Sprintf(" AND trade_date <= $%d", len(args))
	}
	query += " ORDER BY trade_date"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query prices for %s: %w", ticker, err)
	}
	defer rows.Close()

	var prices []contracts.Price
	for rows.Next() {
		var p contracts.Price
		err := rows.Scan(&p.Ticker, &p.Date, &p.Open, &p.High, &p.Low, &p.Close, &p.AdjClose, &p.Volume)
		if err != nil {
			return nil, fmt.Errorf("failed to scan price row: %w", err)
		}
		prices = append(prices, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating price rows: %w", err)
	}
	return prices, nil
}

// GetLatestByTicker returns the most recent bar for a ticker, or nil
// when no history exists.
func (r *PriceRepository) GetLatestByTicker(ctx context.Context, ticker string) (*contracts.Price, error) {
	query := `
		SELECT ticker, trade_date, open, high, low, close, adj_close, volume
		FROM daily_prices
		WHERE ticker = $1
		ORDER BY trade_date DESC
		LIMIT 1
	`

	var p contracts.Price
	err := r.pool.QueryRow(ctx, query, ticker).Scan(
		&p.Ticker, &p.Date, &p.Open, &p.High, &p.Low, &p.Close, &p.AdjClose, &p.Volume,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest price for %s: %w", ticker, err)
	}
	return &p, nil
}

// SaveBatch upserts daily bars. Re-ingesting a (ticker, trade_date)
// overwrites the bar; vendors restate closes after corporate actions.
func (r *PriceRepository) SaveBatch(ctx context.Context, prices []contracts.Price) error {
	if len(prices) == 0 {
		return nil
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO daily_prices (ticker, trade_date, open, high, low, close, adj_close, volume)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (ticker, trade_date)
		DO UPDATE SET
			open = EXCLUDED.open,
			high = EXCLUDED.high,
			low = EXCLUDED.low,
			close = EXCLUDED.close,
			adj_close = EXCLUDED.adj_close,
			volume = EXCLUDED.volume
	`

	for _, p := range prices {
		_, err := tx.Exec(ctx, query,
			p.Ticker, p.Date, p.Open, p.High, p.Low, p.Close, p.AdjClose, p.Volume,
		)
		if err != nil {
			return fmt.Errorf("failed to upsert price %s/%s: %w", p.Ticker, p.Date.Format("2006-01-02"), err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit prices: %w", err)
	}
	return nil
}
