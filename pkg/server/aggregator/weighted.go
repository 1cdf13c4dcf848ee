package aggregator

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/TejasMate/Quantra-sub003/pkg/logging"
	"github.com/TejasMate/Quantra-sub003/pkg/metrics"
)

var bpsScale = decimal.NewFromInt(MaxBps)

// WeightedAggregator computes sum(price*weight)/sum(weight) over the valid
// readings. Confidence is the minimum per-feed freshness score, so a single
// stale feed is never masked by fresher ones.
type WeightedAggregator struct {
	logger *logging.Logger
}

var _ Aggregator = (*WeightedAggregator)(nil)

// NewWeightedAggregator creates a new weighted aggregator.
func NewWeightedAggregator(logger *logging.Logger) *WeightedAggregator {
	if logger == nil {
		logger = logging.NewNoopLogger()
	}
	return &WeightedAggregator{logger: logger}
}

// Aggregate implements Aggregator.
func (a *WeightedAggregator) Aggregate(now time.Time, previous decimal.Decimal, inputs []Input) (Result, error) {
	start := time.Now()
	defer func() {
		metrics.RecordAggregation(ModeWeighted, time.Since(start))
	}()

	var res Result
	weightedSum := decimal.Zero
	confidence := uint32(MaxBps)

	for _, in := range inputs {
		if err := checkReading(now, in); err != nil {
			res.Rejections = append(res.Rejections, Rejection{
				Index: in.Index, Name: in.Name, Reason: ReasonInvalidFeedData, Price: in.Price, Err: err,
			})
			continue
		}

		if previous.IsPositive() {
			dev := DeviationBps(in.Price, previous)
			if dev.GreaterThan(decimal.NewFromInt(int64(in.MaxDeviationBps))) {
				a.logger.Debug("Rejecting deviating feed",
					"feed", in.Name,
					"price", in.Price.String(),
					"previous", previous.String(),
					"deviation_bps", dev.String(),
					"max_deviation_bps", in.MaxDeviationBps)
				res.Rejections = append(res.Rejections, Rejection{
					Index: in.Index, Name: in.Name, Reason: ReasonFeedDeviation, Price: in.Price,
					Err: fmt.Errorf("deviation %s bps exceeds %d bps", dev.String(), in.MaxDeviationBps),
				})
				continue
			}
		}

		weightedSum = weightedSum.Add(in.Price.Mul(decimal.NewFromInt(int64(in.Weight))))
		res.TotalWeight += uint64(in.Weight)
		res.Contributors = append(res.Contributors, in.Index)

		if c := Confidence(now.Sub(in.UpdatedAt), in.Heartbeat); c < confidence {
			confidence = c
		}
	}

	if len(res.Contributors) == 0 || res.TotalWeight == 0 {
		return res, fmt.Errorf("%w: %d feeds, %d rejected", ErrNoValidFeeds, len(inputs), len(res.Rejections))
	}

	// integer division, truncated toward zero
	res.Price, _ = weightedSum.QuoRem(decimal.NewFromInt(int64(res.TotalWeight)), 0) // #nosec G115 -- bounded by feed count * 10000
	res.Confidence = confidence

	a.logger.Debug("Aggregated price",
		"price", res.Price.String(),
		"confidence", res.Confidence,
		"contributors", len(res.Contributors),
		"rejected", len(res.Rejections))

	return res, nil
}

func checkReading(now time.Time, in Input) error {
	switch {
	case in.Err != nil:
		return in.Err
	case !in.Price.IsPositive():
		return fmt.Errorf("non-positive price %s", in.Price.String())
	case in.UpdatedAt.IsZero() || in.UpdatedAt.Unix() == 0:
		return fmt.Errorf("missing update time")
	case in.UpdatedAt.After(now):
		return fmt.Errorf("update time %s is in the future", in.UpdatedAt.UTC().Format(time.RFC3339))
	case now.Sub(in.UpdatedAt) > in.Heartbeat:
		return fmt.Errorf("stale: age %s exceeds heartbeat %s", now.Sub(in.UpdatedAt), in.Heartbeat)
	}
	return nil
}

// DeviationBps returns |price-reference| in basis points of reference,
// truncated. reference must be positive.
func DeviationBps(price, reference decimal.Decimal) decimal.Decimal {
	if !reference.IsPositive() {
		return decimal.Zero
	}
	q, _ := price.Sub(reference).Abs().Mul(bpsScale).QuoRem(reference, 0)
	return q
}

// Confidence decays linearly from 10000 at age 0 to 0 at age >= heartbeat.
func Confidence(age, heartbeat time.Duration) uint32 {
	if heartbeat <= 0 || age >= heartbeat {
		return 0
	}
	if age < 0 {
		age = 0
	}
	lost, _ := decimal.NewFromInt(int64(age)).Mul(bpsScale).QuoRem(decimal.NewFromInt(int64(heartbeat)), 0)
	return uint32(MaxBps - lost.IntPart()) // #nosec G115 -- 0 <= lost < MaxBps
}
