// Package sources defines the price source adapter contract and the factory
// registry used to build adapters from configuration.
package sources

import (
	"context"
	"math/big"
	"time"
)

// Round is one reading reported by an upstream feed.
type Round struct {
	RoundID   uint64    `json:"round_id"`
	Answer    *big.Int  `json:"answer"`
	UpdatedAt time.Time `json:"updated_at"`
	Decimals  uint8     `json:"decimals"`
}

// Adapter wraps one upstream price feed. Implementations may fail or return
// stale data; callers treat any error the same as an invalid reading.
// Implementations that call back into the engine must pass along the ctx
// they were given.
type Adapter interface {
	// LatestRound returns the most recent reading.
	LatestRound(ctx context.Context) (Round, error)

	// RoundAt returns a historical reading.
	RoundAt(ctx context.Context, roundID uint64) (Round, error)

	// Description is a human readable feed description (e.g. "ETH / USD").
	Description() string

	// Decimals is the number of decimals the answer is expressed in.
	Decimals() uint8

	// Version is the adapter or upstream contract version.
	Version() uint64
}

// Factory builds an adapter from its configuration map.
type Factory func(name string, config map[string]interface{}) (Adapter, error)

// Closer is implemented by adapters that hold connections.
type Closer interface {
	Close() error
}
