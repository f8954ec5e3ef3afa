// Package httpclient provides the JSON-over-HTTP client shared by the remote
// embedding and generation adapters. It retries HTTP 429 responses with
// exponential backoff and limits the outgoing request rate.
package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Default configuration values.
const (
	DefaultTimeout         = 30 * time.Second
	DefaultMaxRetries      = 3
	DefaultInitialInterval = 500 * time.Millisecond
	DefaultMaxInterval     = 10 * time.Second
)

// maxErrorBody caps how much of an error response body is kept.
const maxErrorBody = 4 << 10

// Config configures a Client.
type Config struct {
	// Timeout bounds each individual request (default: 30s).
	Timeout time.Duration

	// MaxRetries is how many times a 429 response is retried (default: 3).
	// Negative disables retries.
	MaxRetries int

	// InitialInterval is the first backoff delay (default: 500ms).
	InitialInterval time.Duration

	// MaxInterval caps a single backoff delay (default: 10s).
	MaxInterval time.Duration

	// RequestsPerSecond limits outgoing requests. Zero disables limiting.
	RequestsPerSecond float64

	// Notify is called before every backoff delay.
	Notify func(err error, delay time.Duration)

	// Timer drives backoff delays. Nil uses a real timer.
	Timer backoff.Timer

	// HTTPClient overrides the underlying client.
	HTTPClient *http.Client
}

// StatusError is a non-2xx response.
type StatusError struct {
	StatusCode int
	Body       string
	RetryAfter time.Duration
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("status %d: %s", e.StatusCode, e.Body)
}

// IsRateLimited reports whether err is an HTTP 429 response.
func IsRateLimited(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == http.StatusTooManyRequests
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode
	}
	return 0
}

// Client sends JSON requests to a remote backend.
type Client struct {
	http    *http.Client
	limiter *RateLimiter
	cfg     Config
}

// New creates a new client.
func New(cfg Config) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.InitialInterval == 0 {
		cfg.InitialInterval = DefaultInitialInterval
	}
	if cfg.MaxInterval == 0 {
		cfg.MaxInterval = DefaultMaxInterval
	}

	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: cfg.Timeout}
	}

	return &Client{
		http:    hc,
		limiter: NewRateLimiter(cfg.RequestsPerSecond, 1),
		cfg:     cfg,
	}
}

// PostJSON sends in as a JSON body to url and decodes the response into out.
// HTTP 429 responses are retried with exponential backoff; every other
// failure is returned immediately.
func (c *Client) PostJSON(ctx context.Context, url string, header http.Header, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	operation := func() error {
		return c.post(ctx, url, header, payload, out)
	}

	return backoff.RetryNotifyWithTimer(operation, c.newBackOff(ctx), c.cfg.Notify, c.cfg.Timer)
}

// Get issues a GET request and discards the body. It is used for health checks
// and is not retried.
func (c *Client) Get(ctx context.Context, url string, header http.Header) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	copyHeader(req.Header, header)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newStatusError(resp)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func (c *Client) post(ctx context.Context, url string, header http.Header, payload []byte, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return backoff.Permanent(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return backoff.Permanent(fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	copyHeader(req.Header, header)

	resp, err := c.http.Do(req)
	if err != nil {
		return backoff.Permanent(fmt.Errorf("send request: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		se := newStatusError(resp)
		c.limiter.RecordRateLimit(se.RetryAfter)
		return se
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return backoff.Permanent(newStatusError(resp))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return backoff.Permanent(fmt.Errorf("decode response: %w", err))
	}
	return nil
}

func (c *Client) newBackOff(ctx context.Context) backoff.BackOff {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = c.cfg.InitialInterval
	eb.MaxInterval = c.cfg.MaxInterval
	eb.MaxElapsedTime = 0

	return backoff.WithContext(backoff.WithMaxRetries(eb, uint64(c.cfg.MaxRetries)), ctx)
}

func newStatusError(resp *http.Response) *StatusError {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &StatusError{
		StatusCode: resp.StatusCode,
		Body:       string(bytes.TrimSpace(body)),
		RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
	}
}

// parseRetryAfter accepts both delay-seconds and HTTP-date forms.
func parseRetryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(v); err == nil {
		return time.Until(at)
	}
	return 0
}

func copyHeader(dst, src http.Header) {
	for k, vs := range src {
		for _, v := range vs {
			dst.Add(k, v)
		}
	}
}
