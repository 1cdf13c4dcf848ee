package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/TejasMate/Quantra-sub003/pkg/server/aggregator"
	"github.com/TejasMate/Quantra-sub003/pkg/server/sources"
)

// MaxTotalWeightBps caps the sum of active feed weights per asset.
const MaxTotalWeightBps = aggregator.MaxBps

// FeedSpec describes a feed to register.
type FeedSpec struct {
	Source          sources.Adapter
	Name            string
	Weight          uint32
	MaxDeviationBps uint32
	Heartbeat       time.Duration
}

// FeedConfig is a registered feed. Entries are never removed so indices stay stable.
type FeedConfig struct {
	Source          sources.Adapter
	Name            string
	Description     string
	Weight          uint32
	MaxDeviationBps uint32
	Heartbeat       time.Duration
	Active          bool
	LastUpdateTime  time.Time
}

// FeedInfo is a copy of a FeedConfig without the adapter.
type FeedInfo struct {
	Index           int           `json:"index"`
	Name            string        `json:"name"`
	Description     string        `json:"description"`
	Weight          uint32        `json:"weight"`
	MaxDeviationBps uint32        `json:"max_deviation_bps"`
	Heartbeat       time.Duration `json:"heartbeat"`
	Active          bool          `json:"active"`
	LastUpdateTime  time.Time     `json:"last_update_time"`
}

func (f *FeedConfig) info(index int) FeedInfo {
	return FeedInfo{
		Index:           index,
		Name:            f.Name,
		Description:     f.Description,
		Weight:          f.Weight,
		MaxDeviationBps: f.MaxDeviationBps,
		Heartbeat:       f.Heartbeat,
		Active:          f.Active,
		LastUpdateTime:  f.LastUpdateTime,
	}
}

// checkWeightCap is the only place the active weight cap is enforced. Every
// mutation that can raise an asset's active weight must call it.
func checkWeightCap(feeds []*FeedConfig, extra uint32) error {
	total := uint64(extra)
	for _, f := range feeds {
		if f.Active {
			total += uint64(f.Weight)
		}
	}
	if total > MaxTotalWeightBps {
		return fmt.Errorf("%w: total active weight %d exceeds %d bps", ErrInvalidInput, total, MaxTotalWeightBps)
	}
	return nil
}

// AddFeed registers a feed for asset and returns its index.
func (e *Engine) AddFeed(ctx context.Context, asset string, spec FeedSpec) (int, error) {
	release, err := e.admin(ctx)
	if err != nil {
		return 0, err
	}
	defer release()

	switch {
	case asset == "":
		return 0, fmt.Errorf("%w: asset is required", ErrInvalidInput)
	case spec.Source == nil:
		return 0, fmt.Errorf("%w: source is required", ErrInvalidInput)
	case spec.Weight == 0 || spec.Weight > MaxTotalWeightBps:
		return 0, fmt.Errorf("%w: weight %d must be within 1-%d bps", ErrInvalidInput, spec.Weight, MaxTotalWeightBps)
	case spec.Heartbeat <= 0:
		return 0, fmt.Errorf("%w: heartbeat must be positive", ErrInvalidInput)
	}

	description := spec.Source.Description()
	name := spec.Name
	if name == "" {
		name = description
	}
	now := e.clock()

	e.mu.Lock()
	if err := checkWeightCap(e.feeds[asset], spec.Weight); err != nil {
		e.mu.Unlock()
		return 0, err
	}
	e.feeds[asset] = append(e.feeds[asset], &FeedConfig{
		Source:          spec.Source,
		Name:            name,
		Description:     description,
		Weight:          spec.Weight,
		MaxDeviationBps: spec.MaxDeviationBps,
		Heartbeat:       spec.Heartbeat,
		Active:          true,
		LastUpdateTime:  now,
	})
	index := len(e.feeds[asset]) - 1
	e.mu.Unlock()

	e.logger.Info("Feed added", "asset", asset, "index", index, "feed", name, "weight", spec.Weight)
	e.emit(SecurityEvent{Kind: EventFeedAdded, Asset: asset, Reason: name, FeedIndex: index, Caller: CallerFrom(ctx)})
	return index, nil
}

// RemoveFeed deactivates a feed. The entry keeps its index.
func (e *Engine) RemoveFeed(ctx context.Context, asset string, index int) error {
	release, err := e.admin(ctx)
	if err != nil {
		return err
	}
	defer release()

	e.mu.Lock()
	feed, err := e.feedAt(asset, index)
	if err != nil {
		e.mu.Unlock()
		return err
	}
	feed.Active = false
	e.mu.Unlock()

	e.logger.Info("Feed removed", "asset", asset, "index", index)
	e.emit(SecurityEvent{Kind: EventFeedRemoved, Asset: asset, FeedIndex: index, Caller: CallerFrom(ctx)})
	return nil
}

// ReactivateFeed re-enables a removed feed if the weight cap still holds.
func (e *Engine) ReactivateFeed(ctx context.Context, asset string, index int) error {
	release, err := e.admin(ctx)
	if err != nil {
		return err
	}
	defer release()

	e.mu.Lock()
	feed, err := e.feedAt(asset, index)
	if err != nil {
		e.mu.Unlock()
		return err
	}
	if feed.Active {
		e.mu.Unlock()
		return nil
	}
	if err := checkWeightCap(e.feeds[asset], feed.Weight); err != nil {
		e.mu.Unlock()
		return err
	}
	feed.Active = true
	e.mu.Unlock()

	e.logger.Info("Feed reactivated", "asset", asset, "index", index)
	e.emit(SecurityEvent{Kind: EventFeedReactivated, Asset: asset, FeedIndex: index, Caller: CallerFrom(ctx)})
	return nil
}

// FeedCount returns the number of registered feeds for asset, active or not.
func (e *Engine) FeedCount(asset string) int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.feeds[asset])
}

// FeedInfo returns a copy of one feed.
func (e *Engine) FeedInfo(asset string, index int) (FeedInfo, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	feed, err := e.feedAt(asset, index)
	if err != nil {
		return FeedInfo{}, err
	}
	return feed.info(index), nil
}

// Feeds returns copies of all feeds registered for asset.
func (e *Engine) Feeds(asset string) []FeedInfo {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]FeedInfo, 0, len(e.feeds[asset]))
	for i, f := range e.feeds[asset] {
		out = append(out, f.info(i))
	}
	return out
}

// feedAt must be called with e.mu held.
func (e *Engine) feedAt(asset string, index int) (*FeedConfig, error) {
	feeds := e.feeds[asset]
	if index < 0 || index >= len(feeds) {
		return nil, fmt.Errorf("%w: %s has %d feeds, got index %d", ErrOutOfRange, asset, len(feeds), index)
	}
	return feeds[index], nil
}
