package security

import (
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// maxLimiters bounds the number of tracked callers before the map is recycled.
const maxLimiters = 10000

// RateLimiter keeps one token bucket per caller.
type RateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	rate     rate.Limit
	burst    int
}

// NewRateLimiter allows perSecond queries per caller with the given burst.
func NewRateLimiter(perSecond float64, burst int) *RateLimiter {
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{
		limiters: make(map[string]*rate.Limiter),
		rate:     rate.Limit(perSecond),
		burst:    burst,
	}
}

func (rl *RateLimiter) getLimiter(caller string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	limiter, exists := rl.limiters[caller]
	if !exists {
		if len(rl.limiters) >= maxLimiters {
			rl.limiters = make(map[string]*rate.Limiter)
		}
		limiter = rate.NewLimiter(rl.rate, rl.burst)
		rl.limiters[caller] = limiter
	}
	return limiter
}

// Allow consumes one token for caller at now.
func (rl *RateLimiter) Allow(caller string, now time.Time) error {
	if !rl.getLimiter(caller).AllowN(now, 1) {
		return fmt.Errorf("%w: caller %q", ErrRateLimited, caller)
	}
	return nil
}
