package guard

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/multiplayers/arena/internal/domain"
)

// RateLimiter is a sliding-window per-key request limiter. Each limiter
// carries a name identifying the surface it protects ("admin_login",
// "social_login") so a rejection names its source.
type RateLimiter struct {
	mu      sync.Mutex
	windows map[string][]time.Time
	name    string
	limit   int
	window  time.Duration
	now     func() time.Time
}

// NewRateLimiter creates a named rate limiter with the given limit per window.
func NewRateLimiter(name string, limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		windows: make(map[string][]time.Time),
		name:    name,
		limit:   limit,
		window:  window,
		now:     time.Now,
	}
}

// Check returns a GuardResult indicating whether the key is within rate limits.
func (rl *RateLimiter) Check(_ context.Context, key string) domain.GuardResult {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	cutoff := now.Add(-rl.window)

	entries := rl.windows[key]
	valid := entries[:0]
	for _, t := range entries {
		if t.After(cutoff) {
			valid = append(valid, t)
		}
	}
	if len(valid) == 0 && len(entries) > 0 {
		// Every stamp for this key aged out, drop the key so one-shot
		// callers do not accumulate in the map.
		delete(rl.windows, key)
		valid = nil
	}

	if len(valid) >= rl.limit {
		rl.windows[key] = valid
		return domain.GuardResult{
			Allowed: false,
			Reason:  fmt.Sprintf("too many %s requests: limit %d per %s", rl.name, rl.limit, rl.window),
			Guard:   rl.name + "_rate_limiter",
		}
	}

	rl.windows[key] = append(valid, now)
	return domain.GuardResult{Allowed: true}
}
