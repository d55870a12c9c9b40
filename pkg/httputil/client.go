package httputil

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"

	"github.com/wonny/altsignals/pkg/logger"
	"github.com/wonny/altsignals/pkg/redis"
)

// Client is an HTTP client wrapper with retry, rate limiting and logging.
// All outbound HTTP requests from collectors go through this client.
type Client struct {
	httpClient   *http.Client
	logger       *logger.Logger
	userAgent    string
	limiter      *rate.Limiter
	redisLimiter *redis.RateLimiter
	redisCfg     *redis.RateLimitConfig
	retry        RetryConfig
}

// RetryConfig holds retry configuration
type RetryConfig struct {
	MaxElapsedTime  time.Duration
	InitialInterval time.Duration
	Enabled         bool
}

// New creates a new HTTP client with sane defaults.
func New(log *logger.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: log,
		retry: RetryConfig{
			MaxElapsedTime:  30 * time.Second,
			InitialInterval: 1 * time.Second,
			Enabled:         true,
		},
	}
}

// NewWithTimeout creates a client with custom timeout
func NewWithTimeout(log *logger.Logger, timeout time.Duration) *Client {
	client := New(log)
	client.httpClient.Timeout = timeout
	return client
}

// WithUserAgent sets the User-Agent header for all requests.
func (c *Client) WithUserAgent(ua string) *Client {
	c.userAgent = ua
	return c
}

// WithRateLimit installs a per-process token bucket limiter.
func (c *Client) WithRateLimit(rps float64, burst int) *Client {
	c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	return c
}

// WithSharedRateLimit installs a Redis-backed cross-process limiter on top
// of the local token bucket.
func (c *Client) WithSharedRateLimit(limiter *redis.RateLimiter, cfg redis.RateLimitConfig) *Client {
	c.redisLimiter = limiter
	c.redisCfg = &cfg
	return c
}

// DisableRetry disables automatic retry
func (c *Client) DisableRetry() *Client {
	c.retry.Enabled = false
	return c
}

// Get performs a GET request.
func (c *Client) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create GET request: %w", err)
	}
	return c.do(req)
}

// GetJSON performs a GET request and decodes the JSON response into dest.
func (c *Client) GetJSON(ctx context.Context, url string, dest interface{}) error {
	resp, err := c.Get(ctx, url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("unexpected status %d from %s: %s", resp.StatusCode, url, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("failed to decode JSON from %s: %w", url, err)
	}
	return nil
}

// GetBody performs a GET request and returns the full response body.
func (c *Client) GetBody(ctx context.Context, url string) ([]byte, error) {
	resp, err := c.Get(ctx, url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d from %s", resp.StatusCode, url)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return body, nil
}

// do executes the request with rate limiting and retry.
func (c *Client) do(req *http.Request) (*http.Response, error) {
	ctx := req.Context()

	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}
	}

	if c.redisLimiter != nil && c.redisCfg != nil {
		if err := c.redisLimiter.Wait(ctx, *c.redisCfg); err != nil {
			return nil, fmt.Errorf("shared rate limit wait: %w", err)
		}
	}

	if !c.retry.Enabled {
		return c.httpClient.Do(req)
	}

	var resp *http.Response

	operation := func() error {
		var err error
		resp, err = c.httpClient.Do(req)
		if err != nil {
			c.logger.WithError(err).WithField("url", req.URL.String()).Debug("HTTP request failed, retrying")
			return err
		}

		// Retry server errors and throttling; everything else is final.
		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			return fmt.Errorf("retryable status %d from %s", resp.StatusCode, req.URL.String())
		}

		return nil
	}

	strategy := backoff.NewExponentialBackOff()
	strategy.InitialInterval = c.retry.InitialInterval
	strategy.MaxElapsedTime = c.retry.MaxElapsedTime

	if err := backoff.Retry(operation, backoff.WithContext(strategy, ctx)); err != nil {
		return nil, fmt.Errorf("request to %s failed after retries: %w", req.URL.String(), err)
	}

	return resp, nil
}
