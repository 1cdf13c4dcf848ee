package aggregator

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/TejasMate/Quantra-sub003/pkg/logging"
)

const (
	// ModeWeighted uses the weight-averaged price with worst-feed confidence.
	ModeWeighted = "weighted"
)

// Aggregator combines feed readings into one price and confidence.
type Aggregator interface {
	// Aggregate combines inputs observed at now. previous is the last accepted
	// valid price, or decimal.Zero when there is none.
	Aggregate(now time.Time, previous decimal.Decimal, inputs []Input) (Result, error)
}

// NewAggregator creates an aggregator for the given mode.
func NewAggregator(mode string, logger *logging.Logger) (Aggregator, error) {
	switch mode {
	case ModeWeighted, "":
		return NewWeightedAggregator(logger), nil
	default:
		return nil, fmt.Errorf("%w: %s (supported: weighted)", ErrUnknownMode, mode)
	}
}
