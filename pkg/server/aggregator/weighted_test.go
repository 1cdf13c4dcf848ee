package aggregator

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func input(index int, price int64, weight uint32, age time.Duration) Input {
	return Input{
		Index:           index,
		Name:            "feed",
		Weight:          weight,
		MaxDeviationBps: 1000,
		Heartbeat:       time.Hour,
		Price:           decimal.NewFromInt(price),
		UpdatedAt:       testNow.Add(-age),
	}
}

func TestWeightedAggregator_TruncatesWeightedMean(t *testing.T) {
	agg := NewWeightedAggregator(nil)

	res, err := agg.Aggregate(testNow, decimal.Zero, []Input{
		input(0, 100, 7000, 0),
		input(1, 110, 3000, 0),
	})
	require.NoError(t, err)

	// (100*7000 + 110*3000) / 10000 = 103
	assert.True(t, decimal.NewFromInt(103).Equal(res.Price), "got %s", res.Price)
	assert.Equal(t, uint32(10000), res.Confidence)
	assert.Equal(t, uint64(10000), res.TotalWeight)
	assert.Equal(t, []int{0, 1}, res.Contributors)
	assert.Empty(t, res.Rejections)

	res, err = agg.Aggregate(testNow, decimal.Zero, []Input{
		input(0, 100, 1, 0),
		input(1, 101, 1, 0),
	})
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(100).Equal(res.Price), "201/2 truncates to 100, got %s", res.Price)
}

func TestWeightedAggregator_WorstFeedConfidence(t *testing.T) {
	agg := NewWeightedAggregator(nil)

	res, err := agg.Aggregate(testNow, decimal.Zero, []Input{
		input(0, 100, 5000, 0),
		input(1, 100, 5000, 30*time.Minute),
	})
	require.NoError(t, err)
	assert.Equal(t, uint32(5000), res.Confidence)
}

func TestWeightedAggregator_InvalidReadings(t *testing.T) {
	stale := input(1, 200, 5000, 2*time.Hour)
	failed := input(2, 0, 1000, 0)
	failed.Err = errors.New("rpc down")
	zeroPrice := input(3, 0, 1000, 0)
	future := input(4, 100, 1000, -time.Minute)
	undated := input(5, 100, 1000, 0)
	undated.UpdatedAt = time.Time{}

	res, err := NewWeightedAggregator(nil).Aggregate(testNow, decimal.Zero, []Input{
		input(0, 100, 2000, 0), stale, failed, zeroPrice, future, undated,
	})
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(100).Equal(res.Price))
	assert.Equal(t, []int{0}, res.Contributors)
	require.Len(t, res.Rejections, 5)
	for _, r := range res.Rejections {
		assert.Equal(t, ReasonInvalidFeedData, r.Reason)
		assert.Error(t, r.Err)
	}
}

func TestWeightedAggregator_HeartbeatBoundary(t *testing.T) {
	res, err := NewWeightedAggregator(nil).Aggregate(testNow, decimal.Zero, []Input{
		input(0, 100, 5000, time.Hour),
	})
	require.NoError(t, err, "age equal to heartbeat is still valid")
	assert.Equal(t, uint32(0), res.Confidence)
}

func TestWeightedAggregator_DeviationSkip(t *testing.T) {
	previous := decimal.NewFromInt(100)

	res, err := NewWeightedAggregator(nil).Aggregate(testNow, previous, []Input{
		input(0, 110, 5000, 0), // exactly 1000 bps, kept
		input(1, 111, 5000, 0), // 1100 bps, skipped
	})
	require.NoError(t, err)
	assert.Equal(t, []int{0}, res.Contributors)
	require.Len(t, res.Rejections, 1)
	assert.Equal(t, ReasonFeedDeviation, res.Rejections[0].Reason)
	assert.Equal(t, 1, res.Rejections[0].Index)
	assert.True(t, decimal.NewFromInt(110).Equal(res.Price))
}

func TestWeightedAggregator_NoValidFeeds(t *testing.T) {
	agg := NewWeightedAggregator(nil)

	_, err := agg.Aggregate(testNow, decimal.Zero, nil)
	assert.ErrorIs(t, err, ErrNoValidFeeds)

	res, err := agg.Aggregate(testNow, decimal.NewFromInt(100), []Input{input(0, 300, 5000, 0)})
	assert.ErrorIs(t, err, ErrNoValidFeeds)
	require.Len(t, res.Rejections, 1)
	assert.Equal(t, ReasonFeedDeviation, res.Rejections[0].Reason)
}

func TestDeviationBps(t *testing.T) {
	tests := []struct {
		name      string
		price     int64
		reference int64
		want      int64
	}{
		{"equal", 100, 100, 0},
		{"up ten percent", 110, 100, 1000},
		{"down ten percent", 90, 100, 1000},
		{"truncated", 1001, 1000, 10},
		{"below one bp", 100001, 100000, 0},
		{"zero reference", 5, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DeviationBps(decimal.NewFromInt(tt.price), decimal.NewFromInt(tt.reference))
			assert.True(t, decimal.NewFromInt(tt.want).Equal(got), "got %s", got)
		})
	}
}

func TestConfidence(t *testing.T) {
	assert.Equal(t, uint32(10000), Confidence(0, time.Hour))
	assert.Equal(t, uint32(7500), Confidence(15*time.Minute, time.Hour))
	assert.Equal(t, uint32(0), Confidence(time.Hour, time.Hour))
	assert.Equal(t, uint32(0), Confidence(2*time.Hour, time.Hour))
	assert.Equal(t, uint32(10000), Confidence(-time.Second, time.Hour))
	assert.Equal(t, uint32(0), Confidence(0, 0))
	// 1s of 3h: 10000 - 10000/10800 = 10000 - 0
	assert.Equal(t, uint32(10000), Confidence(time.Second, 3*time.Hour))
}

func TestNewAggregator(t *testing.T) {
	agg, err := NewAggregator(ModeWeighted, nil)
	require.NoError(t, err)
	assert.IsType(t, &WeightedAggregator{}, agg)

	_, err = NewAggregator("median", nil)
	assert.ErrorIs(t, err, ErrUnknownMode)
}
