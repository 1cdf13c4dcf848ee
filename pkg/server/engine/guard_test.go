package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGuard(t *testing.T) {
	g := newGuard()

	ctx, release, err := g.enter(context.Background())
	require.NoError(t, err)

	_, _, err = g.enter(ctx)
	assert.ErrorIs(t, err, ErrReentrantCall)

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err = g.enter(cancelled)
	assert.ErrorIs(t, err, context.Canceled)

	release()
	release()

	// another guard's token does not count
	_, releaseOther, err := newGuard().enter(ctx)
	require.NoError(t, err)
	releaseOther()

	_, release, err = g.enter(context.Background())
	require.NoError(t, err)
	release()
}

func TestWithCaller(t *testing.T) {
	assert.Equal(t, "", CallerFrom(context.Background()))
	assert.Equal(t, "alice", CallerFrom(WithCaller(context.Background(), "alice")))
}

func TestErrorReason(t *testing.T) {
	assert.Equal(t, "", ErrorReason(nil))
	assert.Equal(t, "circuit_breaker_open", ErrorReason(ErrCircuitBreakerOpen))
	assert.Equal(t, "no_valid_feeds", ErrorReason(ErrNoValidFeeds))
	assert.Equal(t, "other", ErrorReason(context.Canceled))
}
