// Package aggregator combines feed readings into a single weighted price.
package aggregator

import "errors"

var (
	// ErrNoValidFeeds indicates that no feed contributed to the aggregate.
	ErrNoValidFeeds = errors.New("no valid feeds")
	// ErrUnknownMode indicates that the aggregation mode is unknown.
	ErrUnknownMode = errors.New("unknown aggregation mode")
)
