package engine

import (
	"errors"

	"github.com/TejasMate/Quantra-sub003/pkg/server/aggregator"
	"github.com/TejasMate/Quantra-sub003/pkg/server/security"
)

var (
	// ErrInvalidInput indicates malformed administrative parameters.
	ErrInvalidInput = errors.New("invalid input")
	// ErrOutOfRange indicates a bad feed index.
	ErrOutOfRange = errors.New("feed index out of range")
	// ErrReentrantCall indicates a nested call into the engine from inside an adapter.
	ErrReentrantCall = errors.New("reentrant call")
	// ErrPaused indicates price delivery is halted by the owner.
	ErrPaused = errors.New("engine paused")
	// ErrUnauthorized indicates a non-owner caller on an administrative operation.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrFallbackUnavailable indicates the emergency oracle could not be read.
	ErrFallbackUnavailable = errors.New("emergency oracle unavailable")
)

// Errors raised by the pipeline stages, re-exported so callers only need this package.
var (
	ErrNoValidFeeds         = aggregator.ErrNoValidFeeds
	ErrInvalidPrice         = security.ErrInvalidPrice
	ErrLowConfidence        = security.ErrLowConfidence
	ErrManipulationDetected = security.ErrManipulationDetected
	ErrCircuitBreakerOpen   = security.ErrCircuitBreakerOpen
	ErrRateLimited          = security.ErrRateLimited
)

// ErrorReason returns a short metrics label for an engine error.
func ErrorReason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrPaused):
		return "paused"
	case errors.Is(err, ErrReentrantCall):
		return "reentrant_call"
	case errors.Is(err, ErrCircuitBreakerOpen):
		return "circuit_breaker_open"
	case errors.Is(err, ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, ErrNoValidFeeds):
		return "no_valid_feeds"
	case errors.Is(err, ErrInvalidPrice):
		return "invalid_price"
	case errors.Is(err, ErrLowConfidence):
		return "low_confidence"
	case errors.Is(err, ErrManipulationDetected):
		return "manipulation_detected"
	case errors.Is(err, ErrFallbackUnavailable):
		return "fallback_unavailable"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, ErrOutOfRange):
		return "out_of_range"
	default:
		return "other"
	}
}
