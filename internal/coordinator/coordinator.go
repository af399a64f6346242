// Package coordinator serializes mutating operations against a single
// ride. All seat-ledger and booking mutations for a ride must run inside
// WithRideLock; operations on different rides proceed in parallel.
package coordinator

import (
	"context"
	"sync"
)

type Coordinator interface {
	// WithRideLock runs fn with exclusive access to the ride's ledger and
	// bookings. Waiting for the lock is cancellable through ctx; once fn
	// has started it always runs to completion.
	WithRideLock(ctx context.Context, rideID string, fn func() error) error
}

type rideLock struct {
	sem  chan struct{}
	refs int
}

type keyedCoordinator struct {
	mu    sync.Mutex
	locks map[string]*rideLock
}

func New() Coordinator {
	return &keyedCoordinator{locks: make(map[string]*rideLock)}
}

func (c *keyedCoordinator) WithRideLock(ctx context.Context, rideID string, fn func() error) error {
	l := c.retain(rideID)

	select {
	case l.sem <- struct{}{}:
	case <-ctx.Done():
		c.release(rideID)
		return ctx.Err()
	}

	defer func() {
		<-l.sem
		c.release(rideID)
	}()

	return fn()
}

// retain returns the lock for rideID, creating it on first use. Entries
// are reference counted so the map does not grow with every ride ever
// touched.
func (c *keyedCoordinator) retain(rideID string) *rideLock {
	c.mu.Lock()
	defer c.mu.Unlock()

	l, ok := c.locks[rideID]
	if !ok {
		l = &rideLock{sem: make(chan struct{}, 1)}
		c.locks[rideID] = l
	}
	l.refs++
	return l
}

func (c *keyedCoordinator) release(rideID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	l, ok := c.locks[rideID]
	if !ok {
		return
	}
	l.refs--
	if l.refs <= 0 {
		delete(c.locks, rideID)
	}
}
