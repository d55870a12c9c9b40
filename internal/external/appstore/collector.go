package appstore

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/altsignals/internal/contracts"
	"github.com/wonny/altsignals/internal/frequency"
	"github.com/wonny/altsignals/pkg/httputil"
	"github.com/wonny/altsignals/pkg/logger"
)

const defaultBaseURL = "https://itunes.apple.com"

// Client fetches app metadata from the iTunes lookup API. Free and
// unauthenticated; Apple throttles around 20 calls/minute.
type Client struct {
	http    *httputil.Client
	baseURL string
	logger  *logger.Logger
}

// NewClient creates an iTunes lookup client.
func NewClient(log *logger.Logger) *Client {
	return &Client{
		http:    httputil.NewWithTimeout(log, 15*time.Second).WithRateLimit(0.3, 1),
		baseURL: defaultBaseURL,
		logger:  log,
	}
}

type lookupResponse struct {
	ResultCount int         `json:"resultCount"`
	Results     []AppRating `json:"results"`
}

// AppRating is one app's rating snapshot.
type AppRating struct {
	TrackID                            int64   `json:"trackId"`
	TrackName                          string  `json:"trackName"`
	AverageUserRating                  float64 `json:"averageUserRating"`
	UserRatingCount                    int64   `json:"userRatingCount"`
	AverageUserRatingForCurrentVersion float64 `json:"averageUserRatingForCurrentVersion"`
	UserRatingCountForCurrentVersion   int64   `json:"userRatingCountForCurrentVersion"`
	Version                            string  `json:"version"`
}

// Lookup returns the rating snapshot for one app store ID.
func (c *Client) Lookup(ctx context.Context, appID string) (*AppRating, error) {
	url := fmt.Sprintf("%s/lookup?id=%s&country=us", c.baseURL, appID)

	c.logger.WithField("app_id", appID).Info("Fetching App Store rating")

	var resp lookupResponse
	if err := c.http.GetJSON(ctx, url, &resp); err != nil {
		return nil, fmt.Errorf("failed to look up app %s: %w", appID, err)
	}
	if resp.ResultCount == 0 || len(resp.Results) == 0 {
		return nil, fmt.Errorf("app %s not found", appID)
	}
	return &resp.Results[0], nil
}

// Collector turns iOS App Store ratings into a product-quality signal.
// For consumer-app companies the app IS the product; rating decay
// precedes user churn.
type Collector struct {
	client *Client
}

// NewCollector creates an app rating collector.
func NewCollector(client *Client) *Collector {
	return &Collector{client: client}
}

func (c *Collector) Meta() contracts.CollectorMeta {
	return contracts.CollectorMeta{
		SignalType: "app_store_ratings",
		Category:   contracts.CategoryWebDigital,
		Source:     "iTunes Lookup API",
		Tier:       frequency.TierWeekly,
	}
}

func (c *Collector) IsApplicable(company *contracts.Company) bool {
	return company.HasApp && company.Metadata["appstore_id"] != ""
}

func (c *Collector) Fetch(ctx context.Context, company *contracts.Company, _, _ time.Time) (interface{}, error) {
	appID := company.Metadata["appstore_id"]
	if appID == "" {
		return nil, fmt.Errorf("no appstore_id configured for %s", company.ID)
	}
	return c.client.Lookup(ctx, appID)
}

func (c *Collector) Process(company *contracts.Company, raw interface{}) ([]contracts.Signal, error) {
	rating, ok := raw.(*AppRating)
	if !ok {
		return nil, fmt.Errorf("unexpected raw type %T for app rating", raw)
	}

	score, verdict := ratingScore(rating.AverageUserRating)

	// Current-version rating diverging below the all-time rating means
	// the latest release is landing badly.
	if rating.AverageUserRatingForCurrentVersion > 0 &&
		rating.AverageUserRating-rating.AverageUserRatingForCurrentVersion > 0.3 {
		score -= 20
		verdict = "recent version declining"
	}
	if score < -100 {
		score = -100
	}

	confidence := 0.75
	if rating.UserRatingCount < 1000 {
		confidence = 0.5
	}

	signal := contracts.Signal{
		CompanyID:  company.ID,
		SignalType: "app_store_ratings",
		Category:   contracts.CategoryWebDigital,
		Timestamp:  time.Now().UTC().Truncate(24 * time.Hour),
		Score:      score,
		Confidence: confidence,
		RawValue: map[string]interface{}{
			"rating":                       rating.AverageUserRating,
			"rating_count":                 rating.UserRatingCount,
			"rating_current_version":       rating.AverageUserRatingForCurrentVersion,
			"rating_count_current_version": rating.UserRatingCountForCurrentVersion,
			"version":                      rating.Version,
		},
		SourceName: "iOS App Store",
		Description: fmt.Sprintf("%s: %s rating %.1f/5 (%d reviews)",
			rating.TrackName, verdict, rating.AverageUserRating, rating.UserRatingCount),
		Metadata: map[string]string{
			"app_id":  company.Metadata["appstore_id"],
			"version": rating.Version,
		},
	}
	return []contracts.Signal{signal}, nil
}

// ratingScore maps a star rating onto a score band.
func ratingScore(rating float64) (float64, string) {
	switch {
	case rating >= 4.5:
		return 80, "excellent"
	case rating >= 4.0:
		return 50, "good"
	case rating >= 3.5:
		return 20, "average"
	case rating >= 3.0:
		return -20, "below average"
	default:
		return -60, "poor"
	}
}
