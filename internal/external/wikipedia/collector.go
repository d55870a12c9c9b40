package wikipedia

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/altsignals/internal/contracts"
	"github.com/wonny/altsignals/internal/frequency"
)

// Collector turns Wikipedia article pageviews into an attention signal.
// Pageview volume proxies brand awareness; the trend between the first
// and second half of the window proxies growing or fading mindshare.
type Collector struct {
	client *Client
}

// NewCollector creates a pageviews collector.
func NewCollector(client *Client) *Collector {
	return &Collector{client: client}
}

func (c *Collector) Meta() contracts.CollectorMeta {
	return contracts.CollectorMeta{
		SignalType: "wikipedia_pageviews",
		Category:   contracts.CategoryAlternative,
		Source:     "Wikimedia Pageviews API",
		Tier:       frequency.TierDaily,
	}
}

func (c *Collector) IsApplicable(company *contracts.Company) bool {
	return company.Metadata["wiki_article"] != ""
}

func (c *Collector) Fetch(ctx context.Context, company *contracts.Company, start, end time.Time) (interface{}, error) {
	article := company.Metadata["wiki_article"]
	if article == "" {
		return nil, fmt.Errorf("no wiki_article configured for %s", company.ID)
	}
	return c.client.FetchDaily(ctx, article, start, end)
}

func (c *Collector) Process(company *contracts.Company, raw interface{}) ([]contracts.Signal, error) {
	items, ok := raw.([]PageviewItem)
	if !ok {
		return nil, fmt.Errorf("unexpected raw type %T for pageviews", raw)
	}
	if len(items) == 0 {
		return nil, nil
	}

	m := analyzePageviews(items)
	score := pageviewScore(m)

	lastDate, err := items[len(items)-1].Date()
	if err != nil {
		return nil, fmt.Errorf("bad pageview timestamp %q: %w", items[len(items)-1].Timestamp, err)
	}

	description := fmt.Sprintf("Wikipedia: %.0f avg daily views (%d days)", m.avgDailyViews, len(items))
	switch {
	case m.trendChangePct > 10:
		description += fmt.Sprintf(" | views trending up %+.0f%%", m.trendChangePct)
	case m.trendChangePct < -10:
		description += fmt.Sprintf(" | views trending down %.0f%%", m.trendChangePct)
	}
	if m.spikeRatio > 5 {
		description += fmt.Sprintf(" | peak %d views (%.1fx spike)", m.maxViews, m.spikeRatio)
	}

	signal := contracts.Signal{
		CompanyID:  company.ID,
		SignalType: "wikipedia_pageviews",
		Category:   contracts.CategoryAlternative,
		Timestamp:  lastDate,
		Score:      score,
		Confidence: 0.70,
		RawValue: map[string]interface{}{
			"avg_daily_views":  m.avgDailyViews,
			"total_views":      m.totalViews,
			"max_views":        m.maxViews,
			"trend_change_pct": m.trendChangePct,
			"spike_ratio":      m.spikeRatio,
		},
		SourceName:  "Wikipedia Pageviews",
		Description: description,
		Metadata: map[string]string{
			"article": company.Metadata["wiki_article"],
		},
	}
	return []contracts.Signal{signal}, nil
}

type pageviewMetrics struct {
	totalViews     int64
	avgDailyViews  float64
	maxViews       int64
	trendChangePct float64
	spikeRatio     float64
}

func analyzePageviews(items []PageviewItem) pageviewMetrics {
	var m pageviewMetrics
	for _, item := range items {
		m.totalViews += item.Views
		if item.Views > m.maxViews {
			m.maxViews = item.Views
		}
	}
	m.avgDailyViews = float64(m.totalViews) / float64(len(items))

	// Trend: first half average vs second half average.
	mid := len(items) / 2
	if mid > 0 && len(items) > mid {
		var firstHalf, secondHalf int64
		for _, item := range items[:mid] {
			firstHalf += item.Views
		}
		for _, item := range items[mid:] {
			secondHalf += item.Views
		}
		firstAvg := float64(firstHalf) / float64(mid)
		secondAvg := float64(secondHalf) / float64(len(items)-mid)
		if firstAvg > 0 {
			m.trendChangePct = (secondAvg - firstAvg) / firstAvg * 100
		}
	}

	if m.avgDailyViews > 0 {
		m.spikeRatio = float64(m.maxViews) / m.avgDailyViews
	} else {
		m.spikeRatio = 1
	}
	return m
}

// pageviewScore maps attention metrics onto [0, 100]: a base from
// absolute daily volume plus a trend adjustment capped at ±20.
func pageviewScore(m pageviewMetrics) float64 {
	var base float64
	switch {
	case m.avgDailyViews > 10000:
		base = 60 + (m.avgDailyViews-10000)/1000
		if base > 80 {
			base = 80
		}
	case m.avgDailyViews > 5000:
		base = 40 + (m.avgDailyViews-5000)/5000*20
	case m.avgDailyViews > 1000:
		base = 20 + (m.avgDailyViews-1000)/4000*20
	default:
		base = m.avgDailyViews / 1000 * 20
	}

	trend := m.trendChangePct / 5
	if trend > 20 {
		trend = 20
	}
	if trend < -20 {
		trend = -20
	}

	score := base + trend
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	return score
}
