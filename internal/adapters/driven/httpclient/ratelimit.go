package httpclient

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter bounds the request rate to a remote backend.
// It uses a token bucket and additionally holds requests back until a
// server-provided Retry-After deadline has passed.
type RateLimiter struct {
	mu      sync.Mutex
	limiter *rate.Limiter
	retryAt time.Time
}

// NewRateLimiter creates a limiter allowing requestsPerSecond sustained
// requests. A non-positive rate disables the token bucket.
func NewRateLimiter(requestsPerSecond float64, burst int) *RateLimiter {
	limit := rate.Inf
	if requestsPerSecond > 0 {
		limit = rate.Limit(requestsPerSecond)
	}
	if burst <= 0 {
		burst = 1
	}
	return &RateLimiter{
		limiter: rate.NewLimiter(limit, burst),
	}
}

// Wait blocks until a request can be made without exceeding the rate limit.
// It also respects any backoff period set by RecordRateLimit.
func (r *RateLimiter) Wait(ctx context.Context) error {
	r.mu.Lock()
	retryAt := r.retryAt
	r.mu.Unlock()

	if wait := time.Until(retryAt); wait > 0 {
		t := time.NewTimer(wait)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}

	return r.limiter.Wait(ctx)
}

// RecordRateLimit holds further requests back for retryAfter.
// Non-positive durations are ignored.
func (r *RateLimiter) RecordRateLimit(retryAfter time.Duration) {
	if retryAfter <= 0 {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if at := time.Now().Add(retryAfter); at.After(r.retryAt) {
		r.retryAt = at
	}
}

// Allow checks if a request can be made immediately without blocking.
func (r *RateLimiter) Allow() bool {
	r.mu.Lock()
	retryAt := r.retryAt
	r.mu.Unlock()

	if time.Now().Before(retryAt) {
		return false
	}
	return r.limiter.Allow()
}
