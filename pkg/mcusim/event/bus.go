package event

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/alphadose/haxmap"
	"github.com/google/uuid"
)

// BusConfig configures bus behavior.
type BusConfig struct {
	// BufferSize is the channel buffer size per subscription.
	// Default: 64
	BufferSize int

	// OnLag is called when an event is evicted from a full subscriber
	// buffer. It runs on the publishing goroutine and must not block.
	OnLag func(subscriberID string, missed uint64)
}

// DefaultBusConfig provides reasonable defaults.
var DefaultBusConfig = BusConfig{
	BufferSize: 64,
}

// Bus is the broadcast fan-out: every subscriber receives every event
// published after it subscribed.
//
// Publish never blocks. A subscriber that falls behind loses its oldest
// unread events and is told how many it missed (drop-oldest lag policy).
type Bus struct {
	config BusConfig

	// mu orders Subscribe against Close so no subscription is registered
	// on a closed bus.
	mu   sync.Mutex
	subs *haxmap.Map[string, *Subscription]

	published atomic.Uint64
	closed    atomic.Bool
}

// NewBus creates a broadcast bus.
func NewBus(config BusConfig) *Bus {
	if config.BufferSize <= 0 {
		config.BufferSize = DefaultBusConfig.BufferSize
	}
	return &Bus{
		config: config,
		subs:   haxmap.New[string, *Subscription](),
	}
}

// Subscribe registers a new receiver with its own bounded buffer.
// Events published before this call are never delivered to it.
func (b *Bus) Subscribe() (*Subscription, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed.Load() {
		return nil, ErrBusClosed
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, err
	}

	sub := &Subscription{
		id:  id.String(),
		bus: b,
		ch:  make(chan Event, b.config.BufferSize),
	}
	b.subs.Set(sub.id, sub)
	return sub, nil
}

// Publish delivers evt to every current subscriber and returns how many
// were reached. It returns ErrNoSubscribers when nobody is listening and
// ErrBusClosed after Close; both are non-fatal to the caller.
func (b *Bus) Publish(evt Event) (int, error) {
	if b.closed.Load() {
		return 0, ErrBusClosed
	}
	b.published.Add(1)

	reached := 0
	b.subs.ForEach(func(_ string, sub *Subscription) bool {
		delivered, evicted := sub.deliver(evt)
		if delivered {
			reached++
		}
		if evicted && b.config.OnLag != nil {
			b.config.OnLag(sub.id, 1)
		}
		return true
	})

	if reached == 0 {
		return 0, ErrNoSubscribers
	}
	return reached, nil
}

// SubscriberCount returns the number of live subscriptions.
func (b *Bus) SubscriberCount() int {
	return int(b.subs.Len())
}

// Published returns the number of Publish calls accepted by the bus.
func (b *Bus) Published() uint64 {
	return b.published.Load()
}

// Close shuts down the bus and closes every subscription channel.
// Subscribers still drain whatever is buffered before seeing closure.
func (b *Bus) Close() error {
	b.mu.Lock()
	if !b.closed.CompareAndSwap(false, true) {
		b.mu.Unlock()
		return nil
	}
	b.mu.Unlock()

	var ids []string
	b.subs.ForEach(func(id string, sub *Subscription) bool {
		ids = append(ids, id)
		sub.close()
		return true
	})
	if len(ids) > 0 {
		b.subs.Del(ids...)
	}
	return nil
}

// SubscriptionStats reports per-subscriber delivery counters.
type SubscriptionStats struct {
	Delivered uint64
	Dropped   uint64
	Buffered  int
}

// Subscription is one receiver on a Bus.
type Subscription struct {
	id  string
	bus *Bus
	ch  chan Event

	// mu serializes eviction, delivery and close on ch.
	mu     sync.Mutex
	closed bool

	missed    atomic.Uint64
	delivered atomic.Uint64
	dropped   atomic.Uint64
}

// ID returns the subscription identifier.
func (s *Subscription) ID() string {
	return s.id
}

// C returns the receive channel. It is closed on Unsubscribe or bus Close.
func (s *Subscription) C() <-chan Event {
	return s.ch
}

// TakeMissed returns the number of events skipped since the last call and
// resets the counter.
func (s *Subscription) TakeMissed() uint64 {
	return s.missed.Swap(0)
}

// Recv returns the next event. If events were skipped since the last call
// it first returns a *LagError; the following call continues with the
// oldest event still buffered. Returns ErrChannelClosed once the
// subscription is closed and drained.
func (s *Subscription) Recv(ctx context.Context) (Event, error) {
	if n := s.TakeMissed(); n > 0 {
		return nil, &LagError{Subscriber: s.id, Missed: n}
	}
	select {
	case evt, ok := <-s.ch:
		if !ok {
			return nil, ErrChannelClosed
		}
		return evt, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Stats returns a snapshot of the delivery counters.
func (s *Subscription) Stats() SubscriptionStats {
	return SubscriptionStats{
		Delivered: s.delivered.Load(),
		Dropped:   s.dropped.Load(),
		Buffered:  len(s.ch),
	}
}

// Unsubscribe removes the subscription from its bus and closes C.
func (s *Subscription) Unsubscribe() {
	s.bus.subs.Del(s.id)
	s.close()
}

// deliver enqueues evt, evicting the oldest buffered event if the buffer is
// full. It reports whether evt was enqueued and whether an event was lost.
func (s *Subscription) deliver(evt Event) (delivered, evicted bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false, false
	}

	for {
		select {
		case s.ch <- evt:
			s.delivered.Add(1)
			return true, evicted
		default:
		}

		select {
		case <-s.ch:
			s.missed.Add(1)
			s.dropped.Add(1)
			evicted = true
		default:
			// The reader freed a slot between the two selects.
		}
	}
}

func (s *Subscription) close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	close(s.ch)
}
