package engine

import (
	"context"
	"sync"
)

// guard serializes mutating operations. Holding it marks the context handed to
// adapters, so an adapter that calls back into the same engine is refused
// instead of deadlocking.
type guard struct {
	sem chan struct{}
}

func newGuard() *guard {
	return &guard{sem: make(chan struct{}, 1)}
}

// enter acquires the guard. The returned release is safe to call more than once.
func (g *guard) enter(ctx context.Context) (context.Context, func(), error) {
	if ctx.Value(g) != nil {
		return ctx, func() {}, ErrReentrantCall
	}

	select {
	case g.sem <- struct{}{}:
	case <-ctx.Done():
		return ctx, func() {}, ctx.Err()
	}

	var once sync.Once
	release := func() {
		once.Do(func() { <-g.sem })
	}
	return context.WithValue(ctx, g, struct{}{}), release, nil
}
