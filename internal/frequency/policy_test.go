package frequency

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTierInterval(t *testing.T) {
	tests := []struct {
		tier Tier
		want time.Duration
	}{
		{TierRealtime, 5 * time.Minute},
		{TierHourly, time.Hour},
		{TierDaily, 24 * time.Hour},
		{TierWeekly, 7 * 24 * time.Hour},
		{TierMonthly, 30 * 24 * time.Hour},
		{TierQuarterly, 90 * 24 * time.Hour},
	}

	for _, tt := range tests {
		t.Run(string(tt.tier), func(t *testing.T) {
			got, err := tt.tier.Interval()
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTierInterval_Unknown(t *testing.T) {
	_, err := Tier("fortnightly").Interval()
	assert.Error(t, err)
	assert.False(t, Tier("fortnightly").Valid())
}

func TestDue(t *testing.T) {
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	daily := 24 * time.Hour

	stale := now.Add(-26 * time.Hour)
	fresh := now.Add(-2 * time.Hour)
	exact := now.Add(-24 * time.Hour)

	tests := []struct {
		name        string
		lastUpdated *time.Time
		want        bool
	}{
		{"never updated", nil, true},
		{"26h ago with daily tier", &stale, true},
		{"2h ago with daily tier", &fresh, false},
		{"exactly at interval boundary", &exact, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Due(tt.lastUpdated, now, daily))
		})
	}
}
