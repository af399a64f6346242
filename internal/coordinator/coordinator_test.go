package coordinator

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestWithRideLockMutualExclusion(t *testing.T) {
	c := New()
	ctx := context.Background()

	const workers = 50
	var inside, maxInside, counter int
	var mu sync.Mutex

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := c.WithRideLock(ctx, "ride-1", func() error {
				mu.Lock()
				inside++
				if inside > maxInside {
					maxInside = inside
				}
				mu.Unlock()

				counter++ // protected by the ride lock, not mu

				mu.Lock()
				inside--
				mu.Unlock()
				return nil
			})
			if err != nil {
				t.Errorf("WithRideLock() error = %v", err)
			}
		}()
	}
	wg.Wait()

	if maxInside != 1 {
		t.Errorf("max concurrent critical sections = %d, want 1", maxInside)
	}
	if counter != workers {
		t.Errorf("counter = %d, want %d", counter, workers)
	}
}

func TestWithRideLockDistinctRidesDoNotBlock(t *testing.T) {
	c := New()
	ctx := context.Background()

	held := make(chan struct{})
	done := make(chan struct{})

	go func() {
		c.WithRideLock(ctx, "ride-a", func() error {
			close(held)
			<-done
			return nil
		})
	}()
	<-held

	finished := make(chan struct{})
	go func() {
		c.WithRideLock(ctx, "ride-b", func() error { return nil })
		close(finished)
	}()

	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatal("lock on ride-b blocked behind ride-a")
	}
	close(done)
}

func TestWithRideLockPropagatesError(t *testing.T) {
	c := New()
	want := errors.New("boom")

	err := c.WithRideLock(context.Background(), "ride-1", func() error { return want })
	if !errors.Is(err, want) {
		t.Errorf("WithRideLock() error = %v, want %v", err, want)
	}
}

func TestWithRideLockCancelledWhileWaiting(t *testing.T) {
	c := New()

	held := make(chan struct{})
	done := make(chan struct{})
	go func() {
		c.WithRideLock(context.Background(), "ride-1", func() error {
			close(held)
			<-done
			return nil
		})
	}()
	<-held

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	ran := false
	err := c.WithRideLock(ctx, "ride-1", func() error {
		ran = true
		return nil
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("WithRideLock() error = %v, want deadline exceeded", err)
	}
	if ran {
		t.Error("fn ran despite cancelled wait")
	}
	close(done)
}

func TestLockMapDoesNotLeak(t *testing.T) {
	c := New().(*keyedCoordinator)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			id := string(rune('a' + n%5))
			for j := 0; j < 10; j++ {
				c.WithRideLock(ctx, id, func() error { return nil })
			}
		}(i)
	}
	wg.Wait()

	c.mu.Lock()
	remaining := len(c.locks)
	c.mu.Unlock()
	if remaining != 0 {
		t.Errorf("lock map has %d entries after all work finished, want 0", remaining)
	}
}
