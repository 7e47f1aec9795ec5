// Package httputil is the outbound HTTP client (benchmark price downloads).
package httputil

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/bostonrobbie/Manus-Dashboard-sub003/pkg/logger"
)

// maxBodyBytes bounds decoded response bodies
const maxBodyBytes = 64 << 20

// Client issues GET requests with exponential backoff
// ⭐ SSOT: 외부 HTTP 요청은 이 클라이언트를 통해서만 수행
type Client struct {
	http    *http.Client
	logger  *logger.Logger
	retries int
	delay   time.Duration // first backoff, doubled per attempt
	ceiling time.Duration
}

// Option configures a Client
type Option func(*Client)

// WithTimeout sets the per-attempt timeout (default 30s)
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

// WithRetries sets the retry count and first backoff; 0 retries disables retrying
func WithRetries(n int, delay time.Duration) Option {
	return func(c *Client) {
		if n < 0 {
			n = 0
		}
		c.retries = n
		c.delay = delay
	}
}

// StatusError is returned for a non-2xx final response
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: unexpected status %d", e.URL, e.StatusCode)
}

// New creates a client: 30s timeout, 3 retries starting at 1s, capped at 10s
func New(log *logger.Logger, opts ...Option) *Client {
	c := &Client{
		http:    &http.Client{Timeout: 30 * time.Second},
		logger:  log,
		retries: 3,
		delay:   time.Second,
		ceiling: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get fetches url. Transport errors, 5xx and 429 are retried; the last response is returned as is.
func (c *Client) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create GET request: %w", err)
	}

	log := c.logger.WithField("url", url)
	start := time.Now()
	delay := c.delay

	for attempt := 0; ; attempt++ {
		resp, err := c.http.Do(req)
		if err == nil && !IsRetryable(resp.StatusCode) {
			log.WithFields(map[string]interface{}{
				"status_code": resp.StatusCode,
				"duration":    time.Since(start),
			}).Debug("HTTP request completed")
			return resp, nil
		}
		if attempt >= c.retries {
			if err != nil {
				log.WithError(err).Error("HTTP request failed")
				return nil, err
			}
			return resp, nil
		}
		if resp != nil {
			// 재시도 전 body 정리
			_, _ = io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
		}

		log.WithFields(map[string]interface{}{
			"attempt": attempt + 1,
			"delay":   delay,
		}).Warn("Retrying HTTP request")

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
		delay = min(delay*2, c.ceiling)
	}
}

// GetJSON fetches url and decodes a 2xx JSON body into dest
func (c *Client) GetJSON(ctx context.Context, url string, dest any) error {
	resp, err := c.Get(ctx, url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{URL: url, StatusCode: resp.StatusCode}
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(dest); err != nil {
		return fmt.Errorf("decode %s: %w", url, err)
	}
	return nil
}

// IsRetryable reports whether a status is worth another attempt (5xx, 429)
func IsRetryable(statusCode int) bool {
	return statusCode >= 500 || statusCode == http.StatusTooManyRequests
}
