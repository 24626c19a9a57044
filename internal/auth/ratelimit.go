package auth

import (
	"sync"
	"time"
)

// RateLimiterConfig configures a RateLimiter.
type RateLimiterConfig struct {
	MaxAttempts int
	Window      time.Duration
}

// RateLimiter enforces a sliding-window cap on attempts per key. A burst
// is punished until its oldest element ages out of the window, not
// reset wholesale on a fixed tick.
type RateLimiter struct {
	cfg RateLimiterConfig
	mu  sync.RWMutex
	// buckets maps a key to its attempt timestamps, oldest first.
	buckets map[string][]time.Time
}

// NewRateLimiter returns a RateLimiter configured with cfg.
func NewRateLimiter(cfg RateLimiterConfig) *RateLimiter {
	return &RateLimiter{
		cfg:     cfg,
		buckets: make(map[string][]time.Time),
	}
}

// prune drops entries older than the window, assuming they're sorted
// oldest-first (true since record_attempt always appends "now").
func (r *RateLimiter) prune(key string, now time.Time) []time.Time {
	attempts := r.buckets[key]
	cutoff := now.Add(-r.cfg.Window)
	i := 0
	for i < len(attempts) && attempts[i].Before(cutoff) {
		i++
	}
	if i > 0 {
		attempts = attempts[i:]
	}
	if len(attempts) == 0 {
		delete(r.buckets, key)
	} else {
		r.buckets[key] = attempts
	}
	return attempts
}

// Check succeeds if key's in-window attempt count is below MaxAttempts.
func (r *RateLimiter) Check(key string) error {
	now := time.Now()
	r.mu.Lock()
	defer r.mu.Unlock()
	attempts := r.prune(key, now)
	if len(attempts) < r.cfg.MaxAttempts {
		return nil
	}
	oldest := attempts[0]
	retryAfter := oldest.Add(r.cfg.Window).Sub(now)
	if retryAfter < 0 {
		retryAfter = 0
	}
	return &LimitExceededError{RetryAfterSecs: int64(retryAfter.Seconds())}
}

// RecordAttempt appends "now" to key's bucket and prunes aged-out
// entries.
func (r *RateLimiter) RecordAttempt(key string) {
	now := time.Now()
	r.mu.Lock()
	defer r.mu.Unlock()
	r.buckets[key] = append(r.buckets[key], now)
	r.prune(key, now)
}

// RecordSuccess removes key's bucket entirely.
func (r *RateLimiter) RecordSuccess(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.buckets, key)
}

// AttemptCount returns the number of in-window attempts for key.
func (r *RateLimiter) AttemptCount(key string) int {
	now := time.Now()
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.prune(key, now))
}

// RemainingAttempts returns MaxAttempts minus the in-window count,
// saturating at zero.
func (r *RateLimiter) RemainingAttempts(key string) int {
	remaining := r.cfg.MaxAttempts - r.AttemptCount(key)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// CleanupExpired removes buckets that are empty or fully aged out,
// returning the number removed.
func (r *RateLimiter) CleanupExpired() int {
	now := time.Now()
	r.mu.Lock()
	defer r.mu.Unlock()
	removed := 0
	for key := range r.buckets {
		if len(r.prune(key, now)) == 0 {
			removed++
		}
	}
	return removed
}
