package security

import (
	"fmt"
	"sync"
	"time"
)

// BreakerStatus is a point-in-time view of the breaker.
type BreakerStatus struct {
	Tripped         bool          `json:"tripped"`
	CoolingDown     bool          `json:"cooling_down"`
	LastTrippedTime time.Time     `json:"last_tripped_time"`
	Cooldown        time.Duration `json:"cooldown"`
}

// Breaker is the engine's circuit breaker. Tripped and CoolingDown are
// independent: once the cooldown elapses calls are admitted again while the
// stored flag stays set until Reset.
type Breaker struct {
	mu              sync.RWMutex
	tripped         bool
	lastTrippedTime time.Time
	cooldown        time.Duration
}

// NewBreaker creates a closed breaker with the given cooldown.
func NewBreaker(cooldown time.Duration) *Breaker {
	if cooldown < 0 {
		cooldown = 0
	}
	return &Breaker{cooldown: cooldown}
}

// Tripped reports the stored flag.
func (b *Breaker) Tripped() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.tripped
}

// CoolingDown reports whether the breaker is tripped and its cooldown has not elapsed.
func (b *Breaker) CoolingDown(now time.Time) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.coolingDown(now)
}

func (b *Breaker) coolingDown(now time.Time) bool {
	return b.tripped && now.Sub(b.lastTrippedTime) < b.cooldown
}

// Admit fails with ErrCircuitBreakerOpen while the breaker is cooling down.
func (b *Breaker) Admit(now time.Time) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.coolingDown(now) {
		remaining := b.cooldown - now.Sub(b.lastTrippedTime)
		return fmt.Errorf("%w: %s of cooldown remaining", ErrCircuitBreakerOpen, remaining)
	}
	return nil
}

// Observe is called with an asset's streak after each suspicious event. It
// trips a clear breaker once the streak is at or past threshold and reports
// whether it did. The stored flag keeps a running streak from re-tripping
// until Reset.
func (b *Breaker) Observe(streak, threshold uint32, now time.Time) bool {
	if threshold == 0 || streak < threshold {
		return false
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.tripped {
		return false
	}
	b.tripped = true
	b.lastTrippedTime = now
	return true
}

// Reset clears the stored flag.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tripped = false
}

// SetCooldown replaces the cooldown.
func (b *Breaker) SetCooldown(cooldown time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cooldown = cooldown
}

// Status returns a snapshot of the breaker.
func (b *Breaker) Status(now time.Time) BreakerStatus {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return BreakerStatus{
		Tripped:         b.tripped,
		CoolingDown:     b.coolingDown(now),
		LastTrippedTime: b.lastTrippedTime,
		Cooldown:        b.cooldown,
	}
}
