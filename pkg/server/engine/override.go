package engine

import (
	"context"
	"fmt"

	"github.com/TejasMate/Quantra-sub003/pkg/server/sources"
)

type emergencyOracle struct {
	source  sources.Adapter
	enabled bool
}

// SetEmergencyOracle replaces the fallback source and its enabled flag. While
// enabled, GetSecurePrice returns the fallback's latest answer unchecked.
func (e *Engine) SetEmergencyOracle(ctx context.Context, source sources.Adapter, activate bool) error {
	release, err := e.admin(ctx)
	if err != nil {
		return err
	}
	defer release()

	if activate && source == nil {
		return fmt.Errorf("%w: emergency oracle source is required", ErrInvalidInput)
	}

	e.mu.Lock()
	e.emergency = emergencyOracle{source: source, enabled: activate}
	e.mu.Unlock()

	description := ""
	if source != nil {
		description = source.Description()
	}
	e.logger.Warn("Emergency oracle changed", "enabled", activate, "source", description)
	e.emit(SecurityEvent{Kind: EventEmergencyOracleSet, Reason: fmt.Sprintf("enabled=%t", activate), FeedIndex: noFeed, Caller: CallerFrom(ctx)})
	return nil
}

// EmergencyEnabled reports whether the override is active.
func (e *Engine) EmergencyEnabled() bool {
	_, ok := e.emergencyOracle()
	return ok
}

func (e *Engine) emergencyOracle() (sources.Adapter, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if !e.emergency.enabled || e.emergency.source == nil {
		return nil, false
	}
	return e.emergency.source, true
}

// emergencyQuote reads the fallback. Nothing is validated or committed.
func (e *Engine) emergencyQuote(ctx context.Context, asset string, fallback sources.Adapter) (Quote, error) {
	round, err := fallback.LatestRound(ctx)
	if err != nil {
		return Quote{}, fmt.Errorf("%w: %s: %w", ErrFallbackUnavailable, asset, err)
	}
	price, err := e.normalize(round)
	if err != nil {
		return Quote{}, fmt.Errorf("%w: %s: %w", ErrFallbackUnavailable, asset, err)
	}
	e.logger.Debug("Serving emergency price", "asset", asset, "price", price.String())
	return Quote{Price: price, Confidence: FullConfidence, Emergency: true}, nil
}
