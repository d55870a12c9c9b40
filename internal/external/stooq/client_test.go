package stooq

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/altsignals/pkg/config"
	"github.com/wonny/altsignals/pkg/logger"
)

const sampleCSV = `Date,Open,High,Low,Close,Volume
2026-01-02,61.50,62.80,61.10,62.45,18234500
2026-01-05,62.50,63.20,61.90,62.10,15002300
2026-01-06,62.00,62.40,60.80,61.05,21400100
`

func TestParseCSV(t *testing.T) {
	prices, err := ParseCSV("UBER", []byte(sampleCSV))
	require.NoError(t, err)
	require.Len(t, prices, 3)

	first := prices[0]
	assert.Equal(t, "UBER", first.Ticker)
	assert.Equal(t, time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC), first.Date)
	assert.Equal(t, 61.50, first.Open)
	assert.Equal(t, 62.45, first.Close)
	assert.Equal(t, 62.45, first.AdjClose)
	assert.Equal(t, int64(18234500), first.Volume)
}

func TestParseCSV_SkipsMalformedRows(t *testing.T) {
	csv := "Date,Open,High,Low,Close,Volume\n" +
		"not-a-date,1,2,3,4,5\n" +
		"2026-01-02,61.50,62.80,61.10,bad,100\n" +
		"2026-01-05,62.50,63.20,61.90,62.10,15002300\n"

	prices, err := ParseCSV("UBER", []byte(csv))
	require.NoError(t, err)
	require.Len(t, prices, 1)
	assert.Equal(t, 62.10, prices[0].Close)
}

func TestParseCSV_NoData(t *testing.T) {
	_, err := ParseCSV("UBER", []byte("No data"))
	assert.Error(t, err)
}

func TestParseCSV_BadHeader(t *testing.T) {
	_, err := ParseCSV("UBER", []byte("Foo,Bar\n1,2\n"))
	assert.Error(t, err)
}

func TestFetchDaily(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/q/d/l/", r.URL.Path)
		assert.Equal(t, "uber.us", r.URL.Query().Get("s"))
		assert.Equal(t, "20260101", r.URL.Query().Get("d1"))
		assert.Equal(t, "d", r.URL.Query().Get("i"))
		w.Write([]byte(sampleCSV))
	}))
	defer server.Close()

	client := NewClient(config.StooqConfig{BaseURL: server.URL}, logger.NewNop())

	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC)
	prices, err := client.FetchDaily(context.Background(), "UBER", start, end)
	require.NoError(t, err)
	assert.Len(t, prices, 3)
}
