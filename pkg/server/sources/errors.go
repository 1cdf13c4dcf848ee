// Package sources defines the price source adapter contract and the factory
// registry used to build adapters from configuration.
package sources

import "errors"

var (
	// ErrUnknownSource indicates that no factory is registered for the source type.
	ErrUnknownSource = errors.New("unknown source")
	// ErrInvalidConfig indicates that the source configuration is invalid.
	ErrInvalidConfig = errors.New("invalid configuration")
	// ErrNoRoundData indicates that the adapter has no reading to report yet.
	ErrNoRoundData = errors.New("no round data")
	// ErrRoundNotFound indicates that the requested historical round is unknown.
	ErrRoundNotFound = errors.New("round not found")
	// ErrUnexpectedStatus indicates an unexpected HTTP status code.
	ErrUnexpectedStatus = errors.New("unexpected HTTP status code")
	// ErrInvalidResponse indicates an invalid response from the upstream.
	ErrInvalidResponse = errors.New("invalid response")
)
