package upload

import (
	"context"
	"sync"

	"github.com/fwojciec/crosspost"
	"golang.org/x/time/rate"
)

var _ crosspost.RateLimiter = (*PlatformLimiter)(nil)

// PlatformLimiter provides per-platform rate limiting using token buckets.
// Each platform gets its own limiter, so uploads to different platforms
// never wait on each other.
type PlatformLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	limit    rate.Limit
	burst    int
}

// NewPlatformLimiter creates a PlatformLimiter whose platforms default to
// rps requests per second with a burst of 1. A non-positive rps means
// unlimited.
func NewPlatformLimiter(rps float64) *PlatformLimiter {
	limit := rate.Inf
	if rps > 0 {
		limit = rate.Limit(rps)
	}
	return &PlatformLimiter{
		limiters: make(map[string]*rate.Limiter),
		limit:    limit,
		burst:    1,
	}
}

// SetTarget applies the upload rate declared by a target's capabilities.
func (l *PlatformLimiter) SetTarget(target *crosspost.Target) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.limiters[target.Name] = rate.NewLimiter(target.Capabilities.Limit(), target.Capabilities.Burst())
}

// Wait blocks until the rate limit allows an upload to platform.
// Returns an error if the context is canceled before the wait completes.
func (l *PlatformLimiter) Wait(ctx context.Context, platform string) error {
	l.mu.Lock()
	limiter, ok := l.limiters[platform]
	if !ok {
		limiter = rate.NewLimiter(l.limit, l.burst)
		l.limiters[platform] = limiter
	}
	l.mu.Unlock()

	return limiter.Wait(ctx)
}
