package aggregator

import (
	"time"

	"github.com/shopspring/decimal"
)

// MaxBps is 100% expressed in basis points.
const MaxBps = 10000

// Reason tags why a feed reading was discarded.
type Reason string

const (
	// ReasonInvalidFeedData marks a failed, non-positive, undated, future or stale reading.
	ReasonInvalidFeedData Reason = "invalid feed data"
	// ReasonFeedDeviation marks a reading too far from the last accepted price.
	ReasonFeedDeviation Reason = "feed deviation"
)

// Input is one active feed's reading, already normalized to engine units.
type Input struct {
	Index           int
	Name            string
	Weight          uint32
	MaxDeviationBps uint32
	Heartbeat       time.Duration
	Price           decimal.Decimal
	UpdatedAt       time.Time
	Err             error
}

// Rejection records a discarded reading.
type Rejection struct {
	Index  int
	Name   string
	Reason Reason
	Price  decimal.Decimal
	Err    error
}

// Result is the outcome of one aggregation run. Rejections are populated even
// when Aggregate returns ErrNoValidFeeds.
type Result struct {
	Price        decimal.Decimal
	Confidence   uint32
	TotalWeight  uint64
	Contributors []int
	Rejections   []Rejection
}
