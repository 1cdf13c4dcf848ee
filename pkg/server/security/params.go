package security

import (
	"fmt"
	"time"
)

// Params are the process-wide security parameters.
type Params struct {
	MaxPriceDeviationBps uint32        `json:"max_price_deviation_bps"`
	MinConfidenceBps     uint32        `json:"min_confidence_bps"`
	MaxPriceAge          time.Duration `json:"max_price_age"`
	SuspiciousThreshold  uint32        `json:"suspicious_threshold"`
}

// Defaults
const (
	DefaultMaxPriceDeviationBps = 1000
	DefaultMinConfidenceBps     = 5000
	DefaultMaxPriceAge          = time.Hour
	DefaultSuspiciousThreshold  = 5
	DefaultCooldown             = time.Hour
)

// DefaultParams returns the parameters an engine starts with.
func DefaultParams() Params {
	return Params{
		MaxPriceDeviationBps: DefaultMaxPriceDeviationBps,
		MinConfidenceBps:     DefaultMinConfidenceBps,
		MaxPriceAge:          DefaultMaxPriceAge,
		SuspiciousThreshold:  DefaultSuspiciousThreshold,
	}
}

// Validate checks that every parameter is usable.
func (p Params) Validate() error {
	if p.MaxPriceDeviationBps == 0 {
		return fmt.Errorf("%w: max price deviation must be positive", ErrInvalidParams)
	}
	if p.MinConfidenceBps > 10000 {
		return fmt.Errorf("%w: min confidence %d exceeds 10000 bps", ErrInvalidParams, p.MinConfidenceBps)
	}
	if p.MaxPriceAge <= 0 {
		return fmt.Errorf("%w: max price age must be positive", ErrInvalidParams)
	}
	if p.SuspiciousThreshold == 0 {
		return fmt.Errorf("%w: suspicious threshold must be positive", ErrInvalidParams)
	}
	return nil
}
