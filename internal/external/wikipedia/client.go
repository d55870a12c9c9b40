package wikipedia

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/altsignals/pkg/httputil"
	"github.com/wonny/altsignals/pkg/logger"
	"github.com/wonny/altsignals/pkg/redis"
)

const defaultBaseURL = "https://wikimedia.org/api/rest_v1/metrics/pageviews/per-article"

// Client fetches daily article pageviews from the Wikimedia REST API.
// The API is free and unauthenticated but expects a descriptive
// User-Agent.
type Client struct {
	http    *httputil.Client
	cache   *redis.Cache
	baseURL string
	logger  *logger.Logger
}

// NewClient creates a pageviews client. cache may be nil.
func NewClient(userAgent string, cache *redis.Cache, log *logger.Logger) *Client {
	return &Client{
		http: httputil.NewWithTimeout(log, 30*time.Second).
			WithUserAgent(userAgent).
			WithRateLimit(20, 2),
		cache:   cache,
		baseURL: defaultBaseURL,
		logger:  log,
	}
}

// PageviewsResponse is the per-article pageviews payload.
type PageviewsResponse struct {
	Items []PageviewItem `json:"items"`
}

// PageviewItem is one day of views for one article.
type PageviewItem struct {
	Article   string `json:"article"`
	Timestamp string `json:"timestamp"` // YYYYMMDD00
	Views     int64  `json:"views"`
}

// Date parses the item's YYYYMMDD00 timestamp.
func (p PageviewItem) Date() (time.Time, error) {
	return time.Parse("2006010200", p.Timestamp)
}

// FetchDaily returns daily pageviews for an English Wikipedia article
// over [start, end].
func (c *Client) FetchDaily(ctx context.Context, article string, start, end time.Time) ([]PageviewItem, error) {
	from := start.Format("2006010200")
	to := end.Format("2006010200")
	url := fmt.Sprintf("%s/en.wikipedia/all-access/all-agents/%s/daily/%s/%s", c.baseURL, article, from, to)

	if c.cache != nil {
		var cached []PageviewItem
		hit, err := c.cache.Get(ctx, redis.PageviewsKey(article, from, to), &cached)
		if err == nil && hit {
			return cached, nil
		}
	}

	c.logger.WithFields(map[string]interface{}{
		"article": article,
		"from":    from,
		"to":      to,
	}).Info("Fetching Wikipedia pageviews")

	var resp PageviewsResponse
	if err := c.http.GetJSON(ctx, url, &resp); err != nil {
		return nil, fmt.Errorf("failed to fetch pageviews for %s: %w", article, err)
	}

	if c.cache != nil {
		_ = c.cache.Set(ctx, redis.PageviewsKey(article, from, to), resp.Items, redis.TTLMedium)
	}
	return resp.Items, nil
}
