package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/TejasMate/Quantra-sub003/pkg/metrics"
	"github.com/TejasMate/Quantra-sub003/pkg/server/security"
)

// admin authorizes the owner and acquires the guard.
func (e *Engine) admin(ctx context.Context) (func(), error) {
	caller := CallerFrom(ctx)
	if caller == "" || caller != e.Owner() {
		return nil, fmt.Errorf("%w: caller %q is not the owner", ErrUnauthorized, caller)
	}
	_, release, err := e.guard.enter(ctx)
	if err != nil {
		return nil, err
	}
	return release, nil
}

// UpdateSecurityParams replaces the security parameters.
func (e *Engine) UpdateSecurityParams(ctx context.Context, params security.Params) error {
	release, err := e.admin(ctx)
	if err != nil {
		return err
	}
	defer release()

	if err := params.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	e.mu.Lock()
	e.params = params
	e.mu.Unlock()

	e.logger.Info("Security parameters updated",
		"max_price_deviation_bps", params.MaxPriceDeviationBps,
		"min_confidence_bps", params.MinConfidenceBps,
		"max_price_age", params.MaxPriceAge.String(),
		"suspicious_threshold", params.SuspiciousThreshold)
	e.emit(SecurityEvent{Kind: EventParamsUpdated, FeedIndex: noFeed, Caller: CallerFrom(ctx)})
	return nil
}

// ResetCircuitBreaker clears the breaker flag.
func (e *Engine) ResetCircuitBreaker(ctx context.Context) error {
	release, err := e.admin(ctx)
	if err != nil {
		return err
	}
	defer release()

	e.breaker.Reset()
	metrics.RecordBreaker(false, false)
	e.logger.Info("Circuit breaker reset")
	e.emit(SecurityEvent{Kind: EventBreakerReset, FeedIndex: noFeed, Caller: CallerFrom(ctx)})
	return nil
}

// ConfigureCircuitBreaker sets the breaker cooldown.
func (e *Engine) ConfigureCircuitBreaker(ctx context.Context, cooldown time.Duration) error {
	release, err := e.admin(ctx)
	if err != nil {
		return err
	}
	defer release()

	if cooldown < 0 {
		return fmt.Errorf("%w: cooldown must not be negative", ErrInvalidInput)
	}
	e.breaker.SetCooldown(cooldown)
	e.logger.Info("Circuit breaker configured", "cooldown", cooldown.String())
	e.emit(SecurityEvent{Kind: EventBreakerConfigured, Reason: cooldown.String(), FeedIndex: noFeed, Caller: CallerFrom(ctx)})
	return nil
}

// Pause halts GetSecurePrice until Unpause.
func (e *Engine) Pause(ctx context.Context) error {
	return e.setPaused(ctx, true)
}

// Unpause resumes price delivery.
func (e *Engine) Unpause(ctx context.Context) error {
	return e.setPaused(ctx, false)
}

func (e *Engine) setPaused(ctx context.Context, paused bool) error {
	release, err := e.admin(ctx)
	if err != nil {
		return err
	}
	defer release()

	e.mu.Lock()
	e.paused = paused
	e.mu.Unlock()

	kind := EventUnpaused
	if paused {
		kind = EventPaused
	}
	e.logger.Info("Pause state changed", "paused", paused)
	e.emit(SecurityEvent{Kind: kind, FeedIndex: noFeed, Caller: CallerFrom(ctx)})
	return nil
}

// TransferOwnership hands the administrative surface to newOwner.
func (e *Engine) TransferOwnership(ctx context.Context, newOwner string) error {
	release, err := e.admin(ctx)
	if err != nil {
		return err
	}
	defer release()

	if newOwner == "" {
		return fmt.Errorf("%w: new owner is required", ErrInvalidInput)
	}

	e.mu.Lock()
	previous := e.owner
	e.owner = newOwner
	e.mu.Unlock()

	e.logger.Info("Ownership transferred", "from", previous, "to", newOwner)
	e.emit(SecurityEvent{Kind: EventOwnershipTransferred, Reason: newOwner, FeedIndex: noFeed, Caller: previous})
	return nil
}
