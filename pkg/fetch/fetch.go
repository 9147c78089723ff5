// Package fetch retrieves feed documents and listing pages over HTTP with
// bounded retries.
package fetch

import (
	"context"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"
)

// Error reports a URL that could not be fetched after all retry attempts.
type Error struct {
	URL      string
	Attempts int
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("fetch %s after %d attempts: %v", e.URL, e.Attempts, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Client performs HTTP GETs with retry and exponential backoff. It holds no
// per-request state and is safe to share across sources.
type Client struct {
	http      *http.Client
	attempts  int
	baseDelay time.Duration
	growth    float64
	userAgent string
}

// Option tweaks a Client.
type Option func(*Client)

// WithAttempts overrides the retry attempt count.
func WithAttempts(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.attempts = n
		}
	}
}

// WithBackoff overrides the base delay and growth factor between attempts.
func WithBackoff(base time.Duration, growth float64) Option {
	return func(c *Client) {
		if base > 0 {
			c.baseDelay = base
		}
		if growth > 0 {
			c.growth = growth
		}
	}
}

// WithTimeout overrides the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

// New creates a Client with the default retry policy: 3 attempts, 500ms base
// delay growing 1.6x per attempt, 25s request timeout.
func New(opts ...Option) *Client {
	c := &Client{
		http:      &http.Client{Timeout: 25 * time.Second},
		attempts:  3,
		baseDelay: 500 * time.Millisecond,
		growth:    1.6,
		userAgent: "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/127.0.0.0 Safari/537.36",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get fetches url and returns the response body as text. Transport errors and
// non-2xx statuses are retried with exponential backoff; after the last
// attempt a *Error wrapping the final cause is returned.
func (c *Client) Get(ctx context.Context, url string) (string, error) {
	var lastErr error

	for i := 0; i < c.attempts; i++ {
		if i > 0 {
			delay := time.Duration(float64(c.baseDelay) * math.Pow(c.growth, float64(i-1)))
			select {
			case <-ctx.Done():
				return "", &Error{URL: url, Attempts: i, Err: ctx.Err()}
			case <-time.After(delay):
			}
		}

		body, err := c.get(ctx, url)
		if err == nil {
			return body, nil
		}
		lastErr = err
	}

	return "", &Error{URL: url, Attempts: c.attempts, Err: lastErr}
}

func (c *Client) get(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-GB,en;q=0.9")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, resp.Body)
		return "", fmt.Errorf("status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}
	return string(body), nil
}
