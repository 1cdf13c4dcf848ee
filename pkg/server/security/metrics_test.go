package security

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMetricsStore(t *testing.T) {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	s := NewMetricsStore()

	empty := s.Snapshot("BTC/USD")
	assert.Zero(t, empty.TotalQueries)
	assert.NotNil(t, empty.PerCallerQueryCount)

	s.RecordQuery("BTC/USD", "alice")
	s.RecordQuery("BTC/USD", "alice")
	s.RecordQuery("BTC/USD", "bob")
	assert.Equal(t, uint32(1), s.RecordSuspicious("BTC/USD", now))
	assert.Equal(t, uint32(2), s.RecordSuspicious("BTC/USD", now.Add(time.Second)))

	snap := s.Snapshot("BTC/USD")
	assert.Equal(t, uint64(3), snap.TotalQueries)
	assert.Equal(t, uint64(2), snap.SuspiciousQueries)
	assert.Equal(t, uint32(2), snap.ConsecutiveSuspicious)
	assert.Equal(t, now.Add(time.Second), snap.LastSuspiciousTime)
	assert.Equal(t, map[string]uint64{"alice": 2, "bob": 1}, snap.PerCallerQueryCount)

	snap.PerCallerQueryCount["alice"] = 99
	assert.Equal(t, uint64(2), s.Snapshot("BTC/USD").PerCallerQueryCount["alice"])

	s.ResetStreak("BTC/USD")
	after := s.Snapshot("BTC/USD")
	assert.Zero(t, after.ConsecutiveSuspicious)
	assert.Equal(t, uint64(2), after.SuspiciousQueries)

	assert.Zero(t, s.Snapshot("ETH/USD").ConsecutiveSuspicious)
}

func TestRateLimiter(t *testing.T) {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(1, 2)

	assert.NoError(t, rl.Allow("alice", now))
	assert.NoError(t, rl.Allow("alice", now))
	assert.ErrorIs(t, rl.Allow("alice", now), ErrRateLimited)
	assert.NoError(t, rl.Allow("bob", now))

	assert.NoError(t, rl.Allow("alice", now.Add(time.Second)))
}
