package engine

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EventKind classifies a SecurityEvent.
type EventKind string

// Event kinds
const (
	EventSuspiciousActivity   EventKind = "suspicious_activity"
	EventBreakerTripped       EventKind = "circuit_breaker_tripped"
	EventBreakerReset         EventKind = "circuit_breaker_reset"
	EventBreakerConfigured    EventKind = "circuit_breaker_configured"
	EventPriceAccepted        EventKind = "price_accepted"
	EventFeedAdded            EventKind = "feed_added"
	EventFeedRemoved          EventKind = "feed_removed"
	EventFeedReactivated      EventKind = "feed_reactivated"
	EventParamsUpdated        EventKind = "security_params_updated"
	EventPaused               EventKind = "paused"
	EventUnpaused             EventKind = "unpaused"
	EventEmergencyOracleSet   EventKind = "emergency_oracle_set"
	EventOwnershipTransferred EventKind = "ownership_transferred"
)

// noFeed is the FeedIndex of events not tied to a feed.
const noFeed = -1

// SecurityEvent is published for every state change and suspicious observation.
type SecurityEvent struct {
	ID         string          `json:"id"`
	Kind       EventKind       `json:"kind"`
	Asset      string          `json:"asset,omitempty"`
	Reason     string          `json:"reason,omitempty"`
	FeedIndex  int             `json:"feed_index"`
	Price      decimal.Decimal `json:"price"`
	Confidence uint32          `json:"confidence,omitempty"`
	Caller     string          `json:"caller,omitempty"`
	Time       time.Time       `json:"time"`
}

// EventSink receives engine events. Publish must not block.
type EventSink interface {
	Publish(event SecurityEvent)
}

// PriceCache mirrors accepted prices to an external store.
type PriceCache interface {
	Store(ctx context.Context, asset string, price AcceptedPrice) error
}

func (e *Engine) emit(event SecurityEvent) {
	event.ID = uuid.NewString()
	if event.Time.IsZero() {
		event.Time = e.clock()
	}
	for _, sink := range e.sinks {
		sink.Publish(event)
	}
}
