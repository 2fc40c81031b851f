package flight

import (
	"context"
	"fmt"
	"sync"
)

// Producer computes the cell value. It may block; it receives the context of
// the caller that launched it.
type Producer[T any] func(ctx context.Context) (T, error)

// Cell memoizes the outcome of a single Producer invocation.
//
// State is a single tracked computation: either nil (empty) or the one
// in-flight or successfully-completed call. The mutex guards only the
// decide-and-launch step and the clear-on-failure step; it is never held
// while waiting for the computation.
type Cell[T any] struct {
	produce  Producer[T]
	fallback Producer[T]

	mu   sync.Mutex
	call *call[T]
}

type call[T any] struct {
	done      chan struct{} // closed once val/err are final
	val       T
	err       error
	cancelled bool // launching context was done when the producer failed
}

// Option configures a Cell.
type Option[T any] func(*Cell[T])

// WithFallback supplies a producer invoked when the main producer fails
// without its launching context having been cancelled. Timeout-shaped errors
// from the producer itself (an HTTP client deadline, say) count as ordinary
// failures and take the fallback. The fallback runs under the failing
// caller's context and its result is never cached.
func WithFallback[T any](fb Producer[T]) Option[T] {
	return func(c *Cell[T]) { c.fallback = fb }
}

// NewCell returns a Cell around produce.
func NewCell[T any](produce Producer[T], opts ...Option[T]) *Cell[T] {
	c := &Cell[T]{produce: produce}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get joins the tracked computation, launching one if the cell is empty.
//
// All callers that arrive before the computation completes receive its single
// outcome; after a success every Get returns the cached value without
// re-invoking the producer. On failure the cell is cleared before any caller
// observes the error, so the next Get retries.
//
// The producer runs under the launching caller's context. Cancelling a
// waiter's own context returns that context's error to the waiter alone;
// cancelling the launching context can fail the shared computation, in which
// case the cancellation is propagated to every joined caller and the
// fallback is not consulted. Whether a failure counts as a cancellation is
// decided by the launching context's state, not by the error's shape, so a
// producer-side timeout still degrades through the fallback.
func (c *Cell[T]) Get(ctx context.Context) (T, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, err
	}

	c.mu.Lock()
	cl := c.call
	if cl == nil {
		cl = &call[T]{done: make(chan struct{})}
		c.call = cl
		go c.run(ctx, cl)
	}
	c.mu.Unlock()

	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case <-cl.done:
	}

	if cl.err == nil {
		return cl.val, nil
	}
	if cl.cancelled || c.fallback == nil {
		return zero, cl.err
	}
	return c.fallback(ctx)
}

func (c *Cell[T]) run(ctx context.Context, cl *call[T]) {
	defer close(cl.done)
	defer func() {
		if r := recover(); r != nil {
			cl.err = fmt.Errorf("flight: producer panicked: %v", r)
			c.clear(cl)
		}
	}()
	v, err := c.produce(ctx)
	if err != nil {
		cl.cancelled = ctx.Err() != nil
		c.clear(cl)
	}
	cl.val, cl.err = v, err
}

// clear empties the cell before the failure is observable, and only if it
// still holds this computation (a racing newer call must not be evicted).
func (c *Cell[T]) clear(cl *call[T]) {
	c.mu.Lock()
	if c.call == cl {
		c.call = nil
	}
	c.mu.Unlock()
}
