package security

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBreaker_TripsOncePerStreak(t *testing.T) {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	b := NewBreaker(time.Hour)

	for streak := uint32(1); streak < 5; streak++ {
		assert.False(t, b.Observe(streak, 5, now))
	}
	assert.False(t, b.Tripped())

	assert.True(t, b.Observe(5, 5, now))
	assert.True(t, b.Tripped())
	assert.False(t, b.Observe(6, 5, now.Add(time.Minute)))
	assert.Equal(t, now, b.Status(now).LastTrippedTime)
}

func TestBreaker_RetripsAfterResetPastThreshold(t *testing.T) {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	b := NewBreaker(time.Hour)

	require.True(t, b.Observe(2, 2, now))
	b.Reset()

	assert.True(t, b.Observe(3, 2, now.Add(time.Minute)), "streak already past threshold")
	assert.Equal(t, now.Add(time.Minute), b.Status(now).LastTrippedTime)
	assert.False(t, b.Observe(4, 2, now.Add(2*time.Minute)))
}

func TestBreaker_TripsWhenThresholdLoweredBelowStreak(t *testing.T) {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	b := NewBreaker(time.Hour)

	assert.False(t, b.Observe(4, 10, now))
	assert.True(t, b.Observe(5, 3, now))
	assert.True(t, b.Tripped())
}

func TestBreaker_CooldownDoesNotClearFlag(t *testing.T) {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	b := NewBreaker(time.Hour)
	require.NoError(t, b.Admit(now))

	b.Observe(3, 3, now)

	assert.True(t, b.CoolingDown(now.Add(59*time.Minute)))
	assert.ErrorIs(t, b.Admit(now.Add(59*time.Minute)), ErrCircuitBreakerOpen)

	later := now.Add(time.Hour)
	assert.False(t, b.CoolingDown(later))
	assert.NoError(t, b.Admit(later))
	assert.True(t, b.Tripped(), "flag stays set after cooldown")

	status := b.Status(later)
	assert.True(t, status.Tripped)
	assert.False(t, status.CoolingDown)

	b.Reset()
	assert.False(t, b.Tripped())
	assert.NoError(t, b.Admit(now))
}

func TestBreaker_SetCooldown(t *testing.T) {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	b := NewBreaker(time.Hour)
	b.Observe(1, 1, now)

	b.SetCooldown(10 * time.Minute)
	assert.NoError(t, b.Admit(now.Add(10*time.Minute)))
	assert.Equal(t, 10*time.Minute, b.Status(now).Cooldown)
}
