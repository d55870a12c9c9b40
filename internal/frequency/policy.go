package frequency

import (
	"fmt"
	"time"
)

// Tier is an update-interval class. Every signal type belongs to exactly
// one tier; the tier decides how often the orchestrator re-fetches it.
type Tier string

const (
	TierRealtime  Tier = "realtime"
	TierHourly    Tier = "hourly"
	TierDaily     Tier = "daily"
	TierWeekly    Tier = "weekly"
	TierMonthly   Tier = "monthly"
	TierQuarterly Tier = "quarterly"
)

// intervals maps each tier to its update interval. "Realtime" sources are
// still polled; five minutes is the floor.
var intervals = map[Tier]time.Duration{
	TierRealtime:  5 * time.Minute,
	TierHourly:    time.Hour,
	TierDaily:     24 * time.Hour,
	TierWeekly:    7 * 24 * time.Hour,
	TierMonthly:   30 * 24 * time.Hour,
	TierQuarterly: 90 * 24 * time.Hour,
}

// Valid reports whether t is a known tier.
func (t Tier) Valid() bool {
	_, ok := intervals[t]
	return ok
}

// Interval returns the update interval for the tier.
// Unknown tiers are a configuration error, not a runtime skip.
func (t Tier) Interval() (time.Duration, error) {
	d, ok := intervals[t]
	if !ok {
		return 0, fmt.Errorf("unknown frequency tier %q", t)
	}
	return d, nil
}

// Due reports whether an update is due for a pair with the given
// last-successful-update timestamp. A nil lastUpdated means the pair has
// never been updated and is always due.
func Due(lastUpdated *time.Time, now time.Time, interval time.Duration) bool {
	if lastUpdated == nil {
		return true
	}
	return now.Sub(*lastUpdated) >= interval
}
