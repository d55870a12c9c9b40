package repos

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// UpdateStateRepository implements contracts.UpdateStateRepository on
// Postgres. One row per (company_id, signal_type) pair records when
// that pair last refreshed successfully.
type UpdateStateRepository struct {
	pool *pgxpool.Pool
}

// NewUpdateStateRepository creates a new update state repository
func NewUpdateStateRepository(pool *pgxpool.Pool) *UpdateStateRepository {
	return &UpdateStateRepository{pool: pool}
}

// GetLastUpdated returns the last successful refresh time for a pair,
// or nil when the pair has never been refreshed.
func (r *UpdateStateRepository) GetLastUpdated(ctx context.Context, companyID, signalType string) (*time.Time, error) {
	query := `
		SELECT last_updated
		FROM update_state
		WHERE company_id = $1 AND signal_type = $2
	`

	var lastUpdated time.Time
	err := r.pool.QueryRow(ctx, query, companyID, signalType).Scan(&lastUpdated)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get update state for %s/%s: %w", companyID, signalType, err)
	}
	return &lastUpdated, nil
}

// SetLastUpdated records a successful refresh for a pair.
func (r *UpdateStateRepository) SetLastUpdated(ctx context.Context, companyID, signalType string, t time.Time) error {
	query := `
		INSERT INTO update_state (company_id, signal_type, last_updated)
		VALUES ($1, $2, $3)
		ON CONFLICT (company_id, signal_type)
		DO UPDATE SET last_updated = EXCLUDED.last_updated
	`

	_, err := r.pool.Exec(ctx, query, companyID, signalType, t)
	if err != nil {
		return fmt.Errorf("failed to set update state for %s/%s: %w", companyID, signalType, err)
	}
	return nil
}

// ListStale returns pairs whose last refresh is older than cutoff,
// oldest first. Used for operational inspection, not scheduling.
func (r *UpdateStateRepository) ListStale(ctx context.Context, cutoff time.Time) (map[string]time.Time, error) {
	query := `
		SELECT company_id, signal_type, last_updated
		FROM update_state
		WHERE last_updated < $1
		ORDER BY last_updated
	`

	rows, err := r.pool.Query(ctx, query, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to list stale pairs: %w", err)
	}
	defer rows.Close()

	stale := make(map[string]time.Time)
	for rows.Next() {
		var companyID, signalType string
		var lastUpdated time.Time
		if err := rows.Scan(&companyID, &signalType, &lastUpdated); err != nil {
			return nil, fmt.Errorf("failed to scan stale row: %w", err)
		}
		stale[companyID+"/"+signalType] = lastUpdated
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating stale rows: %w", err)
	}
	return stale, nil
}
