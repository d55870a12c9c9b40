package repos

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/altsignals/internal/contracts"
)

// SignalRepository implements contracts.SignalRepository on Postgres.
type SignalRepository struct {
	pool *pgxpool.Pool
}

// NewSignalRepository creates a new signal repository
func NewSignalRepository(pool *pgxpool.Pool) *SignalRepository {
	return &SignalRepository{pool: pool}
}

// UpsertSignals writes a batch of signals. A signal is identified by
// (company_id, signal_type, timestamp); re-ingesting the same
// observation refreshes only its metadata, the scored fields are
// immutable once written. Returns the number of rows written.
func (r *SignalRepository) UpsertSignals(ctx context.Context, signals []contracts.Signal) (int, error) {
	if len(signals) == 0 {
		return 0, nil
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO signals (
			company_id, signal_type, category, timestamp, ingested_at,
			score, confidence, raw_value, source_name, description, metadata
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (company_id, signal_type, timestamp)
		DO UPDATE SET metadata = EXCLUDED.metadata
	`

	written := 0
	for _, s := range signals {
		ingestedAt := s.IngestedAt
		if ingestedAt.IsZero() {
			ingestedAt = time.Now().UTC()
		}

		tag, err := tx.Exec(ctx, query,
			s.CompanyID, s.SignalType, string(s.Category), s.Timestamp, ingestedAt,
			s.Score, s.Confidence, s.RawValue, s.SourceName, s.Description, s.Metadata,
		)
		if err != nil {
			return 0, fmt.Errorf("failed to upsert signal %s/%s: %w", s.CompanyID, s.SignalType, err)
		}
		written += int(tag.RowsAffected())
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit signals: %w", err)
	}
	return written, nil
}

// QuerySignals returns signals for a company ordered by timestamp.
// Empty signalType matches all types; zero start/end leave that bound
// open.
func (r *SignalRepository) QuerySignals(ctx context.Context, companyID, signalType string, start, end time.Time) ([]contracts.Signal, error) {
	query := `
		SELECT
			company_id, signal_type, category, timestamp, ingested_at,
			score, confidence, raw_value, source_name, description, metadata
		FROM signals
		WHERE company_id = $1
	`
	args := []interface{}{companyID}

	if signalType != "" {
		args = append(args, signalType)
		query += fmt.Sprintf(" AND signal_type = $%d", len(args))
	}
	if !start.IsZero() {
		args = append(args, start)
		query += fmt.Sprintf(" AND timestamp >= $%d", len(args))
	}
	if !end.IsZero() {
		args = append(args, end)
		query += fmt.Sprintf(" AND timestamp <= $%d", len(args))
	}
	query += " ORDER BY timestamp, signal_type"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query signals: %w", err)
	}
	defer rows.Close()

	var signals []contracts.Signal
	for rows.Next() {
		var s contracts.Signal
		var category string
		err := rows.Scan(
			&s.CompanyID, &s.SignalType, &category, &s.Timestamp, &s.IngestedAt,
			&s.Score, &s.Confidence, &s.RawValue, &s.SourceName, &s.Description, &s.Metadata,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan signal row: %w", err)
		}
		s.Category = contracts.Category(category)
		signals = append(signals, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating signal rows: %w", err)
	}
	return signals, nil
}

// CountByType returns per-type signal counts for a company.
func (r *SignalRepository) CountByType(ctx context.Context, companyID string) (map[string]int, error) {
	query := `
		SELECT signal_type, COUNT(*)
		FROM signals
		WHERE company_id = $1
		GROUP BY signal_type
		ORDER BY signal_type
	`

	rows, err := r.pool.Query(ctx, query, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to count signals: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var signalType string
		var count int
		if err := rows.Scan(&signalType, &count); err != nil {
			return nil, fmt.Errorf("failed to scan count row: %w", err)
		}
		counts[signalType] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating count rows: %w", err)
	}
	return counts, nil
}
