package security

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/TejasMate/Quantra-sub003/pkg/server/aggregator"
)

// ReasonManipulation tags a suspicious event raised by the detector.
const ReasonManipulation = "manipulation detected"

// Detector screens aggregated prices before they are committed.
type Detector struct{}

// Validate checks price and confidence against params. previous is the last
// valid accepted price, or zero when there is none. A returned
// ErrManipulationDetected must be recorded as a suspicious event by the caller.
func (Detector) Validate(params Params, price decimal.Decimal, confidence uint32, previous decimal.Decimal) error {
	if price.IsZero() {
		return ErrInvalidPrice
	}
	if confidence < params.MinConfidenceBps {
		return fmt.Errorf("%w: %d bps below minimum %d bps", ErrLowConfidence, confidence, params.MinConfidenceBps)
	}
	if previous.IsPositive() {
		dev := aggregator.DeviationBps(price, previous)
		if dev.GreaterThan(decimal.NewFromInt(int64(params.MaxPriceDeviationBps))) {
			return fmt.Errorf("%w: %s moved %s bps from %s (max %d bps)",
				ErrManipulationDetected, price.String(), dev.String(), previous.String(), params.MaxPriceDeviationBps)
		}
	}
	return nil
}
