// Package audit emits best-effort audit events after a transition has
// committed. Delivery failures are logged and swallowed; they never roll
// back or delay the transition that produced them.
package audit

import (
	"context"
	"log"
	"sync"
	"time"

	"go.uber.org/atomic"
)

// Action types recorded in the audit trail
const (
	ActionCreate   = "CREATE"
	ActionUpdate   = "UPDATE"
	ActionDelete   = "DELETE"
	ActionBook     = "BOOK"
	ActionApprove  = "APPROVE"
	ActionReject   = "REJECT"
	ActionCancel   = "CANCEL"
	ActionComplete = "COMPLETE"
)

// Entity types
const (
	EntityRide    = "RIDE"
	EntityBooking = "BOOKING"
)

type Event struct {
	ActorID     string    `json:"actor_id"`
	ActionType  string    `json:"action_type"`
	EntityType  string    `json:"entity_type"`
	EntityID    string    `json:"entity_id"`
	Description string    `json:"description"`
	Timestamp   time.Time `json:"timestamp"`
}

// Sink receives audit events. Implementations may be slow or unreliable;
// the notifier isolates callers from both.
type Sink interface {
	Write(ctx context.Context, event Event) error
}

const sinkWriteTimeout = 5 * time.Second

// Notifier buffers events on a channel and drains them on a background
// goroutine, strictly off the caller's critical path.
type Notifier struct {
	sink    Sink
	events  chan Event
	emitted atomic.Int64
	dropped atomic.Int64
	mu      sync.RWMutex
	closed  bool
	wg      sync.WaitGroup
	once    sync.Once
}

func NewNotifier(sink Sink, buffer int) *Notifier {
	if buffer <= 0 {
		buffer = 256
	}
	n := &Notifier{
		sink:   sink,
		events: make(chan Event, buffer),
	}
	n.wg.Add(1)
	go n.drain()
	return n
}

// Notify queues an event without blocking. When the buffer is full, or
// the notifier is already closed, the event is dropped and counted;
// audit delivery is at-most-once. A transition that already committed
// must never fail here.
func (n *Notifier) Notify(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	n.mu.RLock()
	defer n.mu.RUnlock()

	if n.closed {
		n.dropped.Inc()
		log.Printf("audit: notifier closed, dropped %s %s %s", event.ActionType, event.EntityType, event.EntityID)
		return
	}

	select {
	case n.events <- event:
	default:
		n.dropped.Inc()
		log.Printf("audit: buffer full, dropped %s %s %s", event.ActionType, event.EntityType, event.EntityID)
	}
}

// Close stops accepting events and waits for the buffer to drain.
// Notify remains safe to call afterwards; late events are dropped.
func (n *Notifier) Close() {
	n.once.Do(func() {
		n.mu.Lock()
		n.closed = true
		n.mu.Unlock()
		close(n.events)
	})
	n.wg.Wait()
}

// Stats returns the number of events delivered and dropped so far.
func (n *Notifier) Stats() (emitted, dropped int64) {
	return n.emitted.Load(), n.dropped.Load()
}

func (n *Notifier) drain() {
	defer n.wg.Done()

	for event := range n.events {
		ctx, cancel := context.WithTimeout(context.Background(), sinkWriteTimeout)
		err := n.sink.Write(ctx, event)
		cancel()

		if err != nil {
			log.Printf("audit: failed to deliver %s %s %s: %v", event.ActionType, event.EntityType, event.EntityID, err)
			continue
		}
		n.emitted.Inc()
	}
}
