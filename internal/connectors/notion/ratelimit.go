package notion

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// DefaultRetryAfter is the backoff used when a 429 carries no usable Retry-After.
const DefaultRetryAfter = 30 * time.Second

// RateLimiter paces Notion API requests.
// It uses a token bucket with a backoff window set by 429 responses.
type RateLimiter struct {
	mu       sync.Mutex
	limiter  *rate.Limiter
	retryAt  time.Time
	observer func(time.Duration)
}

// NewRateLimiter creates a limiter allowing requestsPerSecond with a burst of one.
func NewRateLimiter(requestsPerSecond float64) *RateLimiter {
	return &RateLimiter{
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), 1),
	}
}

// Wait blocks until a request can be made without exceeding the rate limit.
// It also respects any backoff period set by RecordRateLimitError.
func (r *RateLimiter) Wait(ctx context.Context) error {
	r.mu.Lock()
	retryAt := r.retryAt
	r.mu.Unlock()

	if wait := time.Until(retryAt); wait > 0 {
		timer := time.NewTimer(wait)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}

	return r.limiter.Wait(ctx)
}

// RecordRateLimitError sets a backoff period and reports it to the observer.
// Call this when receiving a 429 response.
func (r *RateLimiter) RecordRateLimitError(retryAfter time.Duration) {
	if retryAfter <= 0 {
		retryAfter = DefaultRetryAfter
	}

	r.mu.Lock()
	r.retryAt = time.Now().Add(retryAfter)
	observer := r.observer
	r.mu.Unlock()

	if observer != nil {
		observer(retryAfter)
	}
}

// setObserver registers a callback for every recorded rate limit hit.
func (r *RateLimiter) setObserver(fn func(time.Duration)) {
	r.mu.Lock()
	r.observer = fn
	r.mu.Unlock()
}

// parseRetryAfter reads a Retry-After header in seconds or HTTP-date form.
func parseRetryAfter(value string, now time.Time) time.Duration {
	if value == "" {
		return 0
	}
	if secs, err := strconv.ParseFloat(value, 64); err == nil {
		return time.Duration(secs * float64(time.Second))
	}
	if at, err := http.ParseTime(value); err == nil {
		return at.Sub(now)
	}
	return 0
}

// rateLimitTransport records 429 responses on the limiter.
type rateLimitTransport struct {
	base    http.RoundTripper
	limiter *RateLimiter
}

// RoundTrip implements http.RoundTripper.
func (t *rateLimitTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.base.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		t.limiter.RecordRateLimitError(parseRetryAfter(resp.Header.Get("Retry-After"), time.Now()))
	}
	return resp, nil
}
