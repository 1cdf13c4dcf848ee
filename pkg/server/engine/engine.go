// Package engine implements the multi-source price security engine: feed
// registry, secure aggregation pipeline, circuit breaker gating, emergency
// override and the owner-restricted administrative surface.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/TejasMate/Quantra-sub003/pkg/logging"
	"github.com/TejasMate/Quantra-sub003/pkg/metrics"
	"github.com/TejasMate/Quantra-sub003/pkg/server/aggregator"
	"github.com/TejasMate/Quantra-sub003/pkg/server/security"
	"github.com/TejasMate/Quantra-sub003/pkg/server/sources"
)

const (
	// DefaultPriceDecimals is the fixed-point precision of engine prices.
	DefaultPriceDecimals = 8
	// FullConfidence is 100% confidence in basis points.
	FullConfidence = aggregator.MaxBps
)

// AcceptedPrice is the latest committed price of an asset.
type AcceptedPrice struct {
	Price      decimal.Decimal `json:"price"`
	Timestamp  time.Time       `json:"timestamp"`
	Confidence uint32          `json:"confidence"`
	Valid      bool            `json:"valid"`
}

// Quote is the result of a secure price query.
type Quote struct {
	Price      decimal.Decimal `json:"price"`
	Confidence uint32          `json:"confidence"`
	Emergency  bool            `json:"emergency,omitempty"`
}

// Options configure a new Engine.
type Options struct {
	// Owner is the identity allowed to run administrative operations.
	Owner string
	// Params defaults to security.DefaultParams when zero.
	Params security.Params
	// Cooldown defaults to security.DefaultCooldown when zero.
	Cooldown time.Duration
	// PriceDecimals defaults to DefaultPriceDecimals when zero.
	PriceDecimals uint8

	Logger      *logging.Logger
	Clock       func() time.Time
	Aggregator  aggregator.Aggregator
	RateLimiter *security.RateLimiter
	Cache       PriceCache
	Sinks       []EventSink
}

// Engine is safe for concurrent use. Mutating operations are serialized by a
// guard; reads take a shared lock only.
type Engine struct {
	logger     *logging.Logger
	clock      func() time.Time
	aggregator aggregator.Aggregator
	detector   security.Detector
	breaker    *security.Breaker
	metrics    *security.MetricsStore
	limiter    *security.RateLimiter
	cache      PriceCache
	sinks      []EventSink
	decimals   uint8
	guard      *guard

	mu        sync.RWMutex
	owner     string
	paused    bool
	params    security.Params
	feeds     map[string][]*FeedConfig
	prices    map[string]AcceptedPrice
	emergency emergencyOracle
}

// New creates an engine.
func New(opts Options) (*Engine, error) {
	if opts.Owner == "" {
		return nil, fmt.Errorf("%w: owner is required", ErrInvalidInput)
	}
	params := opts.Params
	if params == (security.Params{}) {
		params = security.DefaultParams()
	}
	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	cooldown := opts.Cooldown
	if cooldown == 0 {
		cooldown = security.DefaultCooldown
	}
	if cooldown < 0 {
		return nil, fmt.Errorf("%w: cooldown must not be negative", ErrInvalidInput)
	}
	decimals := opts.PriceDecimals
	if decimals == 0 {
		decimals = DefaultPriceDecimals
	}
	if decimals > sources.MaxDecimals {
		return nil, fmt.Errorf("%w: price decimals %d exceeds %d", ErrInvalidInput, decimals, sources.MaxDecimals)
	}

	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNoopLogger()
	}
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	agg := opts.Aggregator
	if agg == nil {
		agg = aggregator.NewWeightedAggregator(logger)
	}

	return &Engine{
		logger:     logger.With("component", "engine"),
		clock:      clock,
		aggregator: agg,
		breaker:    security.NewBreaker(cooldown),
		metrics:    security.NewMetricsStore(),
		limiter:    opts.RateLimiter,
		cache:      opts.Cache,
		sinks:      opts.Sinks,
		decimals:   decimals,
		guard:      newGuard(),
		owner:      opts.Owner,
		params:     params,
		feeds:      make(map[string][]*FeedConfig),
		prices:     make(map[string]AcceptedPrice),
	}, nil
}

// GetSecurePrice runs the full pipeline for asset: gates, aggregation,
// anomaly screening and commit.
func (e *Engine) GetSecurePrice(ctx context.Context, asset string) (quote Quote, err error) {
	defer func() {
		if err != nil {
			metrics.RecordRejection(asset, ErrorReason(err))
		}
	}()

	if e.Paused() {
		return Quote{}, ErrPaused
	}

	ctx, release, err := e.guard.enter(ctx)
	if err != nil {
		return Quote{}, err
	}
	defer release()

	now := e.clock()
	if err := e.breaker.Admit(now); err != nil {
		return Quote{}, err
	}

	caller := CallerFrom(ctx)
	if e.limiter != nil {
		if err := e.limiter.Allow(caller, now); err != nil {
			return Quote{}, err
		}
	}
	e.metrics.RecordQuery(asset, caller)

	if fallback, ok := e.emergencyOracle(); ok {
		return e.emergencyQuote(ctx, asset, fallback)
	}

	inputs := e.readFeeds(ctx, asset)
	previous := e.previousPrice(asset, now)

	res, aggErr := e.aggregator.Aggregate(now, previous, inputs)
	for _, r := range res.Rejections {
		metrics.RecordFeedReading(asset, r.Name, string(r.Reason))
		e.recordSuspicious(asset, string(r.Reason), r.Index, r.Price, r.Err, now)
	}
	if len(res.Contributors) > 0 {
		e.mu.Lock()
		for _, idx := range res.Contributors {
			feed := e.feeds[asset][idx]
			feed.LastUpdateTime = now
			metrics.RecordFeedReading(asset, feed.Name, "accepted")
		}
		e.mu.Unlock()
	}
	if aggErr != nil {
		return Quote{}, fmt.Errorf("%s: %w", asset, aggErr)
	}

	params := e.SecurityParams()
	if err := e.detector.Validate(params, res.Price, res.Confidence, previous); err != nil {
		if errors.Is(err, ErrManipulationDetected) {
			e.recordSuspicious(asset, security.ReasonManipulation, noFeed, res.Price, err, now)
		}
		return Quote{}, fmt.Errorf("%s: %w", asset, err)
	}

	e.metrics.ResetStreak(asset)
	accepted := AcceptedPrice{Price: res.Price, Timestamp: now, Confidence: res.Confidence, Valid: true}
	e.mu.Lock()
	e.prices[asset] = accepted
	e.mu.Unlock()

	metrics.RecordAcceptedPrice(asset, res.Price.Shift(-int32(e.decimals)).InexactFloat64(), res.Confidence)
	e.logger.Debug("Price accepted",
		"asset", asset,
		"price", res.Price.String(),
		"confidence", res.Confidence,
		"feeds", len(res.Contributors))
	e.emit(SecurityEvent{
		Kind: EventPriceAccepted, Asset: asset, FeedIndex: noFeed,
		Price: res.Price, Confidence: res.Confidence, Caller: caller, Time: now,
	})

	if e.cache != nil {
		if err := e.cache.Store(ctx, asset, accepted); err != nil {
			e.logger.Warn("Failed to cache accepted price", "asset", asset, "error", err)
		}
	}

	return Quote{Price: res.Price, Confidence: res.Confidence}, nil
}

// readFeeds queries every active feed of asset. Input.Index is the feed's
// registry index; adapter failures are carried in Input.Err.
func (e *Engine) readFeeds(ctx context.Context, asset string) []aggregator.Input {
	e.mu.RLock()
	var inputs []aggregator.Input
	var adapters []sources.Adapter
	for i, f := range e.feeds[asset] {
		if !f.Active {
			continue
		}
		inputs = append(inputs, aggregator.Input{
			Index:           i,
			Name:            f.Name,
			Weight:          f.Weight,
			MaxDeviationBps: f.MaxDeviationBps,
			Heartbeat:       f.Heartbeat,
		})
		adapters = append(adapters, f.Source)
	}
	e.mu.RUnlock()

	for i := range inputs {
		round, err := adapters[i].LatestRound(ctx)
		if err == nil {
			inputs[i].Price, err = e.normalize(round)
			inputs[i].UpdatedAt = round.UpdatedAt
		}
		inputs[i].Err = err
	}
	return inputs
}

func (e *Engine) normalize(round sources.Round) (decimal.Decimal, error) {
	if round.Answer == nil {
		return decimal.Zero, fmt.Errorf("%w: round %d has no answer", sources.ErrInvalidResponse, round.RoundID)
	}
	if round.Decimals > sources.MaxDecimals {
		return decimal.Zero, fmt.Errorf("%w: %d decimals", sources.ErrInvalidResponse, round.Decimals)
	}
	exp := int32(e.decimals) - int32(round.Decimals)
	return decimal.NewFromBigInt(round.Answer, exp).Truncate(0), nil
}

// previousPrice returns the stored price if it is still valid, else zero.
func (e *Engine) previousPrice(asset string, now time.Time) decimal.Decimal {
	p := e.latest(asset, now)
	if !p.Valid {
		return decimal.Zero
	}
	return p.Price
}

func (e *Engine) recordSuspicious(asset, reason string, feed int, price decimal.Decimal, cause error, now time.Time) {
	streak := e.metrics.RecordSuspicious(asset, now)
	metrics.RecordSuspicious(asset, reason)
	e.logger.Warn("Suspicious activity",
		"asset", asset,
		"reason", reason,
		"feed_index", feed,
		"streak", streak,
		"error", cause)
	e.emit(SecurityEvent{Kind: EventSuspiciousActivity, Asset: asset, Reason: reason, FeedIndex: feed, Price: price, Time: now})

	if e.breaker.Observe(streak, e.SecurityParams().SuspiciousThreshold, now) {
		metrics.RecordBreaker(true, true)
		e.logger.Error("Circuit breaker tripped", "asset", asset, "streak", streak)
		e.emit(SecurityEvent{Kind: EventBreakerTripped, Asset: asset, Reason: reason, FeedIndex: noFeed, Time: now})
	}
}

// GetLatestPrice returns the stored price of asset without gating or side
// effects. Valid is false when nothing was ever accepted or the price is older
// than MaxPriceAge.
func (e *Engine) GetLatestPrice(asset string) AcceptedPrice {
	return e.latest(asset, e.clock())
}

func (e *Engine) latest(asset string, now time.Time) AcceptedPrice {
	e.mu.RLock()
	defer e.mu.RUnlock()
	p, ok := e.prices[asset]
	if !ok {
		return AcceptedPrice{}
	}
	p.Valid = p.Valid && now.Sub(p.Timestamp) <= e.params.MaxPriceAge
	return p
}

// Metrics returns a copy of the asset's security counters.
func (e *Engine) Metrics(asset string) security.AssetMetrics {
	return e.metrics.Snapshot(asset)
}

// SecurityParams returns the current security parameters.
func (e *Engine) SecurityParams() security.Params {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.params
}

// BreakerStatus returns the circuit breaker state at the engine clock.
func (e *Engine) BreakerStatus() security.BreakerStatus {
	return e.breaker.Status(e.clock())
}

// Paused reports whether price delivery is halted.
func (e *Engine) Paused() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.paused
}

// Owner returns the administrative identity.
func (e *Engine) Owner() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.owner
}

// PriceDecimals returns the fixed-point precision of engine prices.
func (e *Engine) PriceDecimals() uint8 {
	return e.decimals
}
