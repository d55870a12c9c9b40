package wikipedia

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/altsignals/internal/contracts"
)

func pageviewDays(views ...int64) []PageviewItem {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	items := make([]PageviewItem, len(views))
	for i, v := range views {
		items[i] = PageviewItem{
			Article:   "Uber",
			Timestamp: start.AddDate(0, 0, i).Format("2006010200"),
			Views:     v,
		}
	}
	return items
}

func TestAnalyzePageviews(t *testing.T) {
	items := pageviewDays(1000, 1000, 2000, 2000)
	m := analyzePageviews(items)

	assert.Equal(t, int64(6000), m.totalViews)
	assert.Equal(t, 1500.0, m.avgDailyViews)
	assert.Equal(t, int64(2000), m.maxViews)
	// Second half doubled the first half.
	assert.InDelta(t, 100.0, m.trendChangePct, 1e-9)
	assert.InDelta(t, 2000.0/1500.0, m.spikeRatio, 1e-9)
}

func TestPageviewScore(t *testing.T) {
	tests := []struct {
		name string
		m    pageviewMetrics
		want float64
	}{
		{"major brand", pageviewMetrics{avgDailyViews: 30000}, 80},
		{"strong brand", pageviewMetrics{avgDailyViews: 7500}, 50},
		{"moderate brand", pageviewMetrics{avgDailyViews: 3000}, 30},
		{"small brand", pageviewMetrics{avgDailyViews: 500}, 10},
		{"trend capped", pageviewMetrics{avgDailyViews: 500, trendChangePct: 500}, 30},
		{"never negative", pageviewMetrics{avgDailyViews: 0, trendChangePct: -500}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, pageviewScore(tt.m), 1e-9)
		})
	}
}

func TestCollectorProcess(t *testing.T) {
	company := &contracts.Company{
		ID:       "UBER",
		Ticker:   "UBER",
		Metadata: map[string]string{"wiki_article": "Uber"},
	}
	collector := &Collector{}

	items := pageviewDays(8000, 9000, 10000, 12000, 14000, 15000)
	signals, err := collector.Process(company, items)
	require.NoError(t, err)
	require.Len(t, signals, 1)

	s := signals[0]
	assert.Equal(t, "wikipedia_pageviews", s.SignalType)
	assert.Equal(t, contracts.CategoryAlternative, s.Category)
	// Timestamp is the last observed day, not ingestion time.
	assert.Equal(t, time.Date(2026, 1, 6, 0, 0, 0, 0, time.UTC), s.Timestamp)
	assert.Greater(t, s.Score, 50.0)
	assert.NoError(t, s.Validate())
	assert.Contains(t, s.Description, "avg daily views")
}

func TestCollectorProcess_Empty(t *testing.T) {
	collector := &Collector{}
	signals, err := collector.Process(&contracts.Company{ID: "UBER"}, []PageviewItem{})
	require.NoError(t, err)
	assert.Empty(t, signals)
}

func TestCollectorIsApplicable(t *testing.T) {
	collector := &Collector{}
	assert.True(t, collector.IsApplicable(&contracts.Company{Metadata: map[string]string{"wiki_article": "Uber"}}))
	assert.False(t, collector.IsApplicable(&contracts.Company{}))
}

func TestPageviewItemDate(t *testing.T) {
	item := PageviewItem{Timestamp: "2026011500"}
	date, err := item.Date()
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC), date)

	_, err = PageviewItem{Timestamp: fmt.Sprint("garbage")}.Date()
	assert.Error(t, err)
}
