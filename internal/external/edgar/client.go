package edgar

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/altsignals/pkg/config"
	"github.com/wonny/altsignals/pkg/httputil"
	"github.com/wonny/altsignals/pkg/logger"
	"github.com/wonny/altsignals/pkg/redis"
)

// Client handles communication with the SEC EDGAR submissions API.
// EDGAR enforces 10 requests/second and requires a descriptive
// User-Agent identifying the caller.
type Client struct {
	http    *httputil.Client
	cache   *redis.Cache
	baseURL string
	logger  *logger.Logger
}

// NewClient creates a new EDGAR client. cache and limiter may be nil.
// The 10 req/s cap is enforced per caller identity, not per process, so
// the limiter is shared through redis when available.
func NewClient(cfg config.EDGARConfig, cache *redis.Cache, limiter *redis.RateLimiter, log *logger.Logger) *Client {
	http := httputil.NewWithTimeout(log, 30*time.Second).
		WithUserAgent(cfg.UserAgent).
		WithRateLimit(10, 1)
	if limiter != nil {
		http = http.WithSharedRateLimit(limiter, redis.RateLimitConfig{
			Key:    "edgar",
			Limit:  10,
			Window: time.Second,
		})
	}
	return &Client{
		http:    http,
		cache:   cache,
		baseURL: cfg.BaseURL,
		logger:  log,
	}
}

// SubmissionsResponse is the EDGAR submissions payload for one filer.
// Recent filings come as parallel arrays indexed together.
type SubmissionsResponse struct {
	CIK     string `json:"cik"`
	Name    string `json:"name"`
	Filings struct {
		Recent RecentFilings `json:"recent"`
	} `json:"filings"`
}

// RecentFilings holds the parallel filing arrays.
type RecentFilings struct {
	AccessionNumber    []string `json:"accessionNumber"`
	FilingDate         []string `json:"filingDate"`
	AcceptanceDateTime []string `json:"acceptanceDateTime"`
	Form               []string `json:"form"`
	PrimaryDocument    []string `json:"primaryDocument"`
}

// Filing is one filing extracted from the parallel arrays.
type Filing struct {
	AccessionNumber    string
	FilingDate         time.Time
	AcceptanceDateTime string
	Form               string
	PrimaryDocument    string
}

// FetchSubmissions loads the submissions index for a zero-padded CIK.
func (c *Client) FetchSubmissions(ctx context.Context, cik string) (*SubmissionsResponse, error) {
	url := fmt.Sprintf("%s/submissions/CIK%s.json", c.baseURL, cik)

	if c.cache != nil {
		var cached SubmissionsResponse
		hit, err := c.cache.Get(ctx, redis.FilingsKey(cik), &cached)
		if err == nil && hit {
			return &cached, nil
		}
	}

	c.logger.WithField("cik", cik).Info("Fetching EDGAR submissions")

	var resp SubmissionsResponse
	if err := c.http.GetJSON(ctx, url, &resp); err != nil {
		return nil, fmt.Errorf("failed to fetch EDGAR submissions for CIK %s: %w", cik, err)
	}

	if c.cache != nil {
		_ = c.cache.Set(ctx, redis.FilingsKey(cik), &resp, redis.TTLLong)
	}
	return &resp, nil
}

// FilingsByForm extracts filings of one form type within [start, end]
// from a submissions payload, sorted oldest first by the source order.
func FilingsByForm(resp *SubmissionsResponse, form string, start, end time.Time) []Filing {
	recent := resp.Filings.Recent
	var filings []Filing
	for i, f := range recent.Form {
		if f != form {
			continue
		}
		if i >= len(recent.FilingDate) {
			break
		}
		filed, err := time.Parse("2006-01-02", recent.FilingDate[i])
		if err != nil {
			continue
		}
		if filed.Before(start) || filed.After(end) {
			continue
		}

		filing := Filing{
			FilingDate: filed,
			Form:       f,
		}
		if i < len(recent.AccessionNumber) {
			filing.AccessionNumber = recent.AccessionNumber[i]
		}
		if i < len(recent.AcceptanceDateTime) {
			filing.AcceptanceDateTime = recent.AcceptanceDateTime[i]
		}
		if i < len(recent.PrimaryDocument) {
			filing.PrimaryDocument = recent.PrimaryDocument[i]
		}
		filings = append(filings, filing)
	}
	return filings
}
