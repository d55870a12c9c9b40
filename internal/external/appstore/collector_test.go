package appstore

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/altsignals/internal/contracts"
	"github.com/wonny/altsignals/pkg/logger"
)

func TestRatingScore(t *testing.T) {
	tests := []struct {
		rating float64
		want   float64
	}{
		{4.8, 80},
		{4.5, 80},
		{4.2, 50},
		{3.7, 20},
		{3.1, -20},
		{2.4, -60},
	}
	for _, tt := range tests {
		got, _ := ratingScore(tt.rating)
		assert.Equal(t, tt.want, got, "rating %.1f", tt.rating)
	}
}

func TestCollectorProcess(t *testing.T) {
	company := &contracts.Company{
		ID:       "UBER",
		HasApp:   true,
		Metadata: map[string]string{"appstore_id": "368677368"},
	}
	collector := &Collector{}

	rating := &AppRating{
		TrackName:                          "Uber - Request a ride",
		AverageUserRating:                  4.7,
		UserRatingCount:                    9_500_000,
		AverageUserRatingForCurrentVersion: 4.7,
		Version:                            "3.601.10001",
	}

	signals, err := collector.Process(company, rating)
	require.NoError(t, err)
	require.Len(t, signals, 1)

	s := signals[0]
	assert.Equal(t, "app_store_ratings", s.SignalType)
	assert.Equal(t, 80.0, s.Score)
	assert.Equal(t, 0.75, s.Confidence)
	assert.NoError(t, s.Validate())
}

func TestCollectorProcess_DecliningCurrentVersion(t *testing.T) {
	collector := &Collector{}
	rating := &AppRating{
		TrackName:                          "Lyft",
		AverageUserRating:                  4.6,
		UserRatingCount:                    2_000_000,
		AverageUserRatingForCurrentVersion: 3.9,
	}

	signals, err := collector.Process(&contracts.Company{ID: "LYFT"}, rating)
	require.NoError(t, err)
	require.Len(t, signals, 1)
	// 80 for the all-time rating minus the current-version penalty.
	assert.Equal(t, 60.0, signals[0].Score)
	assert.Contains(t, signals[0].Description, "declining")
}

func TestCollectorProcess_ThinReviewBaseLowersConfidence(t *testing.T) {
	collector := &Collector{}
	rating := &AppRating{TrackName: "Niche App", AverageUserRating: 4.9, UserRatingCount: 120}

	signals, err := collector.Process(&contracts.Company{ID: "UBER"}, rating)
	require.NoError(t, err)
	assert.Equal(t, 0.5, signals[0].Confidence)
}

func TestClientLookup(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/lookup", r.URL.Path)
		assert.Equal(t, "368677368", r.URL.Query().Get("id"))
		w.Write([]byte(`{"resultCount":1,"results":[{"trackId":368677368,"trackName":"Uber","averageUserRating":4.7,"userRatingCount":9500000}]}`))
	}))
	defer server.Close()

	client := NewClient(logger.NewNop())
	client.baseURL = server.URL

	rating, err := client.Lookup(context.Background(), "368677368")
	require.NoError(t, err)
	assert.Equal(t, "Uber", rating.TrackName)
	assert.Equal(t, 4.7, rating.AverageUserRating)
}

func TestClientLookup_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"resultCount":0,"results":[]}`))
	}))
	defer server.Close()

	client := NewClient(logger.NewNop())
	client.baseURL = server.URL

	_, err := client.Lookup(context.Background(), "999")
	assert.Error(t, err)
}

func TestCollectorIsApplicable(t *testing.T) {
	collector := &Collector{}
	assert.True(t, collector.IsApplicable(&contracts.Company{HasApp: true, Metadata: map[string]string{"appstore_id": "1"}}))
	assert.False(t, collector.IsApplicable(&contracts.Company{HasApp: true}))
	assert.False(t, collector.IsApplicable(&contracts.Company{Metadata: map[string]string{"appstore_id": "1"}}))
}
