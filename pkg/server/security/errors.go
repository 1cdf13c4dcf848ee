// Package security holds the anomaly detector, circuit breaker and per-asset
// security counters used by the price engine.
package security

import "errors"

var (
	// ErrInvalidPrice indicates an aggregated price of zero.
	ErrInvalidPrice = errors.New("invalid price")
	// ErrLowConfidence indicates confidence below the configured minimum.
	ErrLowConfidence = errors.New("low confidence")
	// ErrManipulationDetected indicates a price too far from the last accepted one.
	ErrManipulationDetected = errors.New("manipulation detected")
	// ErrCircuitBreakerOpen indicates the breaker is tripped and cooling down.
	ErrCircuitBreakerOpen = errors.New("circuit breaker open")
	// ErrRateLimited indicates the caller exceeded its query budget.
	ErrRateLimited = errors.New("rate limited")
	// ErrInvalidParams indicates malformed security parameters.
	ErrInvalidParams = errors.New("invalid security parameters")
)
