package repos

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/altsignals/internal/contracts"
	"github.com/wonny/altsignals/pkg/config"
	"github.com/wonny/altsignals/pkg/database"
)

// Integration tests: require a running Postgres with the schema from
// scripts/schema.sql applied.

func testDB(t *testing.T) *database.DB {
	t.Helper()
	if os.Getenv("DATABASE_URL") == "" {
		t.Skip("DATABASE_URL not set, skipping integration test")
	}

	cfg, err := config.Load()
	require.NoError(t, err)

	db, err := database.New(cfg)
	require.NoError(t, err)
	t.Cleanup(db.Close)
	return db
}

func TestSignalRepository_RoundTrip(t *testing.T) {
	db := testDB(t)
	repo := NewSignalRepository(db.Pool)
	ctx := context.Background()

	ts := time.Date(2026, 2, 3, 0, 0, 0, 0, time.UTC)
	signals := []contracts.Signal{
		{
			CompanyID:  "TEST_RT",
			SignalType: "integration_check",
			Category:   contracts.CategoryAlternative,
			Timestamp:  ts,
			Score:      42,
			Confidence: 0.7,
			SourceName: "test",
			Metadata:   map[string]string{"rev": "1"},
		},
	}

	written, err := repo.UpsertSignals(ctx, signals)
	require.NoError(t, err)
	assert.Equal(t, 1, written)

	// Re-ingest refreshes metadata only, no duplicate row.
	signals[0].Metadata["rev"] = "2"
	signals[0].Score = 99 // must NOT overwrite
	_, err = repo.UpsertSignals(ctx, signals)
	require.NoError(t, err)

	got, err := repo.QuerySignals(ctx, "TEST_RT", "integration_check", time.Time{}, time.Time{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 42.0, got[0].Score)
	assert.Equal(t, "2", got[0].Metadata["rev"])
}

func TestUpdateStateRepository_RoundTrip(t *testing.T) {
	db := testDB(t)
	repo := NewUpdateStateRepository(db.Pool)
	ctx := context.Background()

	// Unknown pair: nil, not an error.
	got, err := repo.GetLastUpdated(ctx, "TEST_RT", "never_seen")
	require.NoError(t, err)
	assert.Nil(t, got)

	ts := time.Date(2026, 2, 3, 12, 0, 0, 0, time.UTC)
	require.NoError(t, repo.SetLastUpdated(ctx, "TEST_RT", "integration_check", ts))

	got, err = repo.GetLastUpdated(ctx, "TEST_RT", "integration_check")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.Equal(ts))
}

func TestPriceRepository_RoundTrip(t *testing.T) {
	db := testDB(t)
	repo := NewPriceRepository(db.Pool)
	ctx := context.Background()

	prices := []contracts.Price{
		{
			Ticker: "TEST_RT",
			Date:   time.Date(2026, 2, 2, 0, 0, 0, 0, time.UTC),
			Open:   10, High: 11, Low: 9.5, Close: 10.5, AdjClose: 10.5,
			Volume: 1000,
		},
		{
			Ticker: "TEST_RT",
			Date:   time.Date(2026, 2, 3, 0, 0, 0, 0, time.UTC),
			Open:   10.5, High: 12, Low: 10.4, Close: 11.8, AdjClose: 11.8,
			Volume: 1500,
		},
	}
	require.NoError(t, repo.SaveBatch(ctx, prices))

	got, err := repo.QueryPrices(ctx, "TEST_RT", time.Time{}, time.Time{})
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(got), 2)

	latest, err := repo.GetLatestByTicker(ctx, "TEST_RT")
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, 11.8, latest.Close)

	missing, err := repo.GetLatestByTicker(ctx, "NO_SUCH_TICKER")
	require.NoError(t, err)
	assert.Nil(t, missing)
}
