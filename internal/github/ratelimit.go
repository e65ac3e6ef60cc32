package github

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	// GitHubRateLimit is the authenticated rate limit (5000/hour).
	GitHubRateLimit = 5000

	// ProactiveRate is the default proactive throttle rate (~1.2 req/sec = 4320/hr).
	ProactiveRate = 1.2

	// HeaderRateLimit is the rate limit header.
	HeaderRateLimit = "X-RateLimit-Limit"

	// HeaderRateRemaining is the remaining requests header.
	HeaderRateRemaining = "X-RateLimit-Remaining"

	// HeaderRateReset is the reset timestamp header (Unix seconds).
	HeaderRateReset = "X-RateLimit-Reset"
)

// RateLimiter implements dual-strategy rate limiting for the GitHub API:
// a proactive token bucket spreads requests below the hourly quota, and
// reactive header tracking detects an exhausted quota so the fetcher can
// wait for the advertised reset.
type RateLimiter struct {
	mu        sync.Mutex
	remaining int           // From API header
	limit     int           // From API header
	resetTime time.Time     // From API header
	bucket    *rate.Limiter // Proactive throttling, nil when disabled
}

// NewRateLimiter creates a rate limiter throttling proactively at
// requestsPerSecond. A rate <= 0 disables the proactive bucket; the
// reactive header tracking stays active either way.
func NewRateLimiter(requestsPerSecond float64) *RateLimiter {
	r := &RateLimiter{
		remaining: GitHubRateLimit, // Assume full quota initially
		limit:     GitHubRateLimit,
	}
	if requestsPerSecond > 0 {
		r.bucket = rate.NewLimiter(rate.Limit(requestsPerSecond), 1)
	}
	return r
}

// Wait blocks until the proactive bucket allows the next request.
func (r *RateLimiter) Wait(ctx context.Context) error {
	if r.bucket == nil {
		return nil
	}
	return r.bucket.Wait(ctx)
}

// UpdateFromResponse updates rate limit state from response headers.
func (r *RateLimiter) UpdateFromResponse(resp *http.Response) {
	if resp == nil {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if remaining := resp.Header.Get(HeaderRateRemaining); remaining != "" {
		if val, err := strconv.Atoi(remaining); err == nil {
			r.remaining = val
		}
	}

	if limit := resp.Header.Get(HeaderRateLimit); limit != "" {
		if val, err := strconv.Atoi(limit); err == nil {
			r.limit = val
		}
	}

	if reset := resp.Header.Get(HeaderRateReset); reset != "" {
		if val, err := strconv.ParseInt(reset, 10, 64); err == nil {
			r.resetTime = time.Unix(val, 0)
		}
	}
}

// CheckRateLimit reports whether the response headers describe an
// exhausted quota: a remaining count below one together with a reset
// timestamp. Status code is deliberately not consulted; the quota
// headers alone decide.
func (r *RateLimiter) CheckRateLimit(resp *http.Response) error {
	if resp == nil {
		return nil
	}

	remaining := resp.Header.Get(HeaderRateRemaining)
	reset := resp.Header.Get(HeaderRateReset)
	if remaining == "" || reset == "" {
		return nil
	}
	remainingVal, err := strconv.Atoi(remaining)
	if err != nil || remainingVal >= 1 {
		return nil
	}
	resetVal, err := strconv.ParseInt(reset, 10, 64)
	if err != nil {
		return nil
	}

	r.mu.Lock()
	limit := r.limit
	r.mu.Unlock()

	return &RateLimitError{
		ResetAt:   time.Unix(resetVal, 0),
		Remaining: remainingVal,
		Limit:     limit,
	}
}

// Remaining returns the current remaining requests.
func (r *RateLimiter) Remaining() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.remaining
}

// Limit returns the rate limit.
func (r *RateLimiter) Limit() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.limit
}

// ResetTime returns the rate limit reset time.
func (r *RateLimiter) ResetTime() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.resetTime
}

// WaitForReset blocks until resetAt, or until the context is cancelled.
func (r *RateLimiter) WaitForReset(ctx context.Context, resetAt time.Time) error {
	waitDuration := time.Until(resetAt)
	if waitDuration <= 0 {
		return nil // Already reset
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(waitDuration):
		return nil
	}
}
