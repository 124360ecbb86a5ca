package google

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// ServiceType identifies a Google API for throttling.
type ServiceType string

// Throttled services.
const (
	ServiceGmail ServiceType = "gmail"
	ServiceDrive ServiceType = "drive"
)

// RateLimitConfig holds a token bucket configuration.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained rate.
	RequestsPerSecond float64
	// BurstSize is the maximum burst.
	BurstSize int
}

// DefaultRateLimits stay well under Google's per-user quotas.
var DefaultRateLimits = map[ServiceType]RateLimitConfig{
	ServiceGmail: {RequestsPerSecond: 2.0, BurstSize: 5},
	ServiceDrive: {RequestsPerSecond: 8.0, BurstSize: 10},
}

// defaultBackoff applies when a 429 carries no Retry-After.
const defaultBackoff = 60 * time.Second

// RateLimiter is a token bucket that also honours server back-off.
// It is safe for concurrent use by the delivery workers.
type RateLimiter struct {
	mu      sync.Mutex
	limiter *rate.Limiter
	retryAt time.Time
	now     func() time.Time
}

// NewRateLimiter creates a limiter with the service's default budget.
func NewRateLimiter(service ServiceType) *RateLimiter {
	cfg, ok := DefaultRateLimits[service]
	if !ok {
		cfg = RateLimitConfig{RequestsPerSecond: 5.0, BurstSize: 10}
	}
	return NewRateLimiterWithConfig(cfg)
}

// NewRateLimiterWithConfig creates a limiter with a custom budget.
// A non-positive rate disables the token bucket.
func NewRateLimiterWithConfig(cfg RateLimitConfig) *RateLimiter {
	limit := rate.Limit(cfg.RequestsPerSecond)
	if cfg.RequestsPerSecond <= 0 {
		limit = rate.Inf
	}
	burst := cfg.BurstSize
	if burst <= 0 {
		burst = 1
	}
	return &RateLimiter{limiter: rate.NewLimiter(limit, burst), now: time.Now}
}

// Wait blocks until a request may be made, first sitting out any back-off
// recorded by RecordRateLimitError.
func (r *RateLimiter) Wait(ctx context.Context) error {
	r.mu.Lock()
	retryAt := r.retryAt
	r.mu.Unlock()

	if wait := retryAt.Sub(r.now()); wait > 0 {
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

// RecordRateLimitError backs off for retryAfterSeconds, or a minute when
// the server gave no hint.
func (r *RateLimiter) RecordRateLimitError(retryAfterSeconds int) {
	backoff := defaultBackoff
	if retryAfterSeconds > 0 {
		backoff = time.Duration(retryAfterSeconds) * time.Second
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if until := r.now().Add(backoff); until.After(r.retryAt) {
		r.retryAt = until
	}
}

// Allow reports whether a request may be made now without waiting.
func (r *RateLimiter) Allow() bool {
	r.mu.Lock()
	retryAt := r.retryAt
	r.mu.Unlock()

	if r.now().Before(retryAt) {
		return false
	}
	return r.limiter.Allow()
}
