package careers

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/wonny/altsignals/internal/contracts"
	"github.com/wonny/altsignals/internal/frequency"
	"github.com/wonny/altsignals/pkg/httputil"
	"github.com/wonny/altsignals/pkg/logger"
)

// Client fetches and parses public careers pages. Hiring velocity
// leads revenue: companies staff up before expansion and freeze before
// trouble.
type Client struct {
	http   *httputil.Client
	logger *logger.Logger
}

// NewClient creates a careers page client.
func NewClient(log *logger.Logger) *Client {
	return &Client{
		http:   httputil.NewWithTimeout(log, 30*time.Second).WithRateLimit(1, 1),
		logger: log,
	}
}

// PostingsSnapshot is one scrape of a careers page.
type PostingsSnapshot struct {
	URL          string
	JobCount     int
	FetchedAt    time.Time
	CountIsExact bool
}

var jobWordPattern = regexp.MustCompile(`(?i)\bjobs?\b|\bposition\b|\bopening\b`)

// FetchSnapshot downloads a careers page and estimates the number of
// open postings.
func (c *Client) FetchSnapshot(ctx context.Context, url string) (*PostingsSnapshot, error) {
	c.logger.WithField("url", url).Info("Fetching careers page")

	body, err := c.http.GetBody(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch careers page %s: %w", url, err)
	}

	count, exact, err := CountPostings(body)
	if err != nil {
		return nil, err
	}

	return &PostingsSnapshot{
		URL:          url,
		JobCount:     count,
		FetchedAt:    time.Now().UTC(),
		CountIsExact: exact,
	}, nil
}

// CountPostings estimates open postings from a careers page. Pages
// built on standard job boards expose structured listing nodes; for
// anything else fall back to counting job-word mentions, which is a
// rough proxy, never an exact count.
func CountPostings(html []byte) (count int, exact bool, err error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return 0, false, fmt.Errorf("failed to parse careers page: %w", err)
	}

	// Structured listing selectors used by the common job boards
	// (Greenhouse, Lever, Workday embeds).
	selectors := []string{
		"div.opening",
		"div.posting",
		"li[data-job-id]",
		"[data-automation-id='jobTitle']",
	}
	for _, sel := range selectors {
		if n := doc.Find(sel).Length(); n > 0 {
			return n, true, nil
		}
	}

	// Fallback: job-word mentions in text nodes.
	mentions := 0
	doc.Find("a, h1, h2, h3, li, span").Each(func(_ int, s *goquery.Selection) {
		text := strings.TrimSpace(s.Text())
		if text != "" && jobWordPattern.MatchString(text) {
			mentions++
		}
	})
	return mentions, false, nil
}

// Collector turns careers-page scrapes into a hiring-velocity signal.
type Collector struct {
	client *Client
}

// NewCollector creates a job postings collector.
func NewCollector(client *Client) *Collector {
	return &Collector{client: client}
}

func (c *Collector) Meta() contracts.CollectorMeta {
	return contracts.CollectorMeta{
		SignalType: "job_postings",
		Category:   contracts.CategoryWorkforce,
		Source:     "Company careers page",
		Tier:       frequency.TierWeekly,
	}
}

func (c *Collector) IsApplicable(company *contracts.Company) bool {
	return company.Metadata["careers_url"] != ""
}

func (c *Collector) Fetch(ctx context.Context, company *contracts.Company, _, _ time.Time) (interface{}, error) {
	url := company.Metadata["careers_url"]
	if url == "" {
		return nil, fmt.Errorf("no careers_url configured for %s", company.ID)
	}
	return c.client.FetchSnapshot(ctx, url)
}

func (c *Collector) Process(company *contracts.Company, raw interface{}) ([]contracts.Signal, error) {
	snapshot, ok := raw.(*PostingsSnapshot)
	if !ok {
		return nil, fmt.Errorf("unexpected raw type %T for careers snapshot", raw)
	}

	score := postingsScore(snapshot.JobCount)
	confidence := 0.6
	if !snapshot.CountIsExact {
		confidence = 0.4
	}

	signal := contracts.Signal{
		CompanyID:  company.ID,
		SignalType: "job_postings",
		Category:   contracts.CategoryWorkforce,
		Timestamp:  snapshot.FetchedAt.Truncate(24 * time.Hour),
		Score:      score,
		Confidence: confidence,
		RawValue: map[string]interface{}{
			"job_count":      snapshot.JobCount,
			"count_is_exact": snapshot.CountIsExact,
			"url":            snapshot.URL,
		},
		SourceName:  "Careers page",
		Description: fmt.Sprintf("%s: ~%d open positions", company.Name, snapshot.JobCount),
		Metadata: map[string]string{
			"careers_url": snapshot.URL,
		},
	}
	return []contracts.Signal{signal}, nil
}

// postingsScore maps an absolute posting count onto a score band.
// Velocity against a historical baseline would be stronger; absolute
// count is the available approximation on a single snapshot.
func postingsScore(count int) float64 {
	switch {
	case count > 1000:
		return 70
	case count >= 100:
		return 40
	case count > 0:
		return 0
	default:
		return -30
	}
}
