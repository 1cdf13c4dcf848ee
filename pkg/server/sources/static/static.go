// Package static provides an in-process adapter whose readings are set by the
// operator. It backs the emergency fallback and manual feeds.
package static

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/TejasMate/Quantra-sub003/pkg/server/sources"
)

const (
	// Kind is the registry key for this adapter.
	Kind = "static"

	defaultDecimals = 8
	maxHistory      = 256
)

// Source is an adapter serving operator-pushed rounds.
type Source struct {
	name        string
	description string
	decimals    uint8

	mu     sync.RWMutex
	rounds []sources.Round
	nextID uint64
	err    error
}

var _ sources.Adapter = (*Source)(nil)

// New creates an empty static source.
func New(name, description string, decimals uint8) *Source {
	if description == "" {
		description = name
	}
	return &Source{
		name:        name,
		description: description,
		decimals:    decimals,
		nextID:      1,
	}
}

// NewFromConfig builds a static source. Optional keys: description, decimals,
// price (decimal string pushed as the first round with the current time).
func NewFromConfig(name string, config map[string]interface{}) (sources.Adapter, error) {
	decimals, err := sources.GetDecimals(config, "decimals", defaultDecimals)
	if err != nil {
		return nil, err
	}

	s := New(name, sources.GetString(config, "description", name), decimals)
	if price := sources.GetString(config, "price", ""); price != "" {
		answer, err := sources.ParseAnswer(price, decimals)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", sources.ErrInvalidConfig, err)
		}
		s.Push(answer, time.Now())
	}
	return s, nil
}

// Push records a new round and clears any injected failure. It returns the round id.
func (s *Source) Push(answer *big.Int, updatedAt time.Time) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	s.rounds = append(s.rounds, sources.Round{
		RoundID:   id,
		Answer:    new(big.Int).Set(answer),
		UpdatedAt: updatedAt,
		Decimals:  s.decimals,
	})
	if len(s.rounds) > maxHistory {
		s.rounds = s.rounds[len(s.rounds)-maxHistory:]
	}
	s.err = nil
	return id
}

// PushInt is Push for small integer answers.
func (s *Source) PushInt(answer int64, updatedAt time.Time) uint64 {
	return s.Push(big.NewInt(answer), updatedAt)
}

// Fail makes every subsequent read return err until the next Push.
func (s *Source) Fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

// LatestRound returns the most recently pushed round.
func (s *Source) LatestRound(_ context.Context) (sources.Round, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.err != nil {
		return sources.Round{}, s.err
	}
	if len(s.rounds) == 0 {
		return sources.Round{}, fmt.Errorf("%w: %s", sources.ErrNoRoundData, s.name)
	}
	return copyRound(s.rounds[len(s.rounds)-1]), nil
}

// RoundAt returns a round still held in history.
func (s *Source) RoundAt(_ context.Context, roundID uint64) (sources.Round, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.err != nil {
		return sources.Round{}, s.err
	}
	for _, r := range s.rounds {
		if r.RoundID == roundID {
			return copyRound(r), nil
		}
	}
	return sources.Round{}, fmt.Errorf("%w: %s round %d", sources.ErrRoundNotFound, s.name, roundID)
}

// Description returns the feed description.
func (s *Source) Description() string { return s.description }

// Decimals returns the answer decimals.
func (s *Source) Decimals() uint8 { return s.decimals }

// Version returns the adapter version.
func (s *Source) Version() uint64 { return 1 }

func copyRound(r sources.Round) sources.Round {
	r.Answer = new(big.Int).Set(r.Answer)
	return r
}

func init() {
	sources.Register(Kind, NewFromConfig)
}
