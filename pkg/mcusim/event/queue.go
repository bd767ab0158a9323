package event

import (
	"context"
	"sync"
	"sync/atomic"
)

// queue is the shared state behind a Sender/Receiver pair.
type queue struct {
	ch chan Event

	// senders counts open Sender handles. The last Close closes ch.
	senders atomic.Int64

	rxDone chan struct{}
	rxOnce sync.Once
}

// NewQueue creates the primary channel: a bounded FIFO with any number of
// producer ends and exactly one consumer end.
//
// Send blocks while the queue is full. Once the Receiver is closed every send
// fails with ErrSendRefused. Once every Sender is closed and the buffer is
// drained, Recv returns ErrChannelClosed.
//
// Example:
//
//	tx, rx, err := event.NewQueue(64)
//	if err != nil {
//	    return err
//	}
//	go func() {
//	    defer tx.Close()
//	    _ = tx.Send(ctx, event.Tick{Seq: 1})
//	}()
//	evt, err := rx.Recv(ctx)
func NewQueue(capacity int) (*Sender, *Receiver, error) {
	if capacity < 1 {
		return nil, nil, ErrInvalidCapacity
	}
	q := &queue{
		ch:     make(chan Event, capacity),
		rxDone: make(chan struct{}),
	}
	q.senders.Store(1)
	return &Sender{q: q}, &Receiver{q: q}, nil
}

// Sender is one producer end of a Queue.
//
// A Sender must not be closed while a Send on the same handle is in flight.
// Give each producer goroutine its own handle via Clone.
type Sender struct {
	q      *queue
	closed atomic.Bool
}

// Clone returns a new producer end. Cloning after the queue has closed for
// receiving yields a handle whose sends are always refused.
func (s *Sender) Clone() *Sender {
	for {
		n := s.q.senders.Load()
		if n == 0 {
			c := &Sender{q: s.q}
			c.closed.Store(true)
			return c
		}
		if s.q.senders.CompareAndSwap(n, n+1) {
			return &Sender{q: s.q}
		}
	}
}

// Send enqueues evt, blocking while the queue is full.
//
// Returns ErrSendRefused if the receiver is gone or this handle is closed,
// or ctx.Err() if ctx is cancelled while waiting.
func (s *Sender) Send(ctx context.Context, evt Event) error {
	if s.closed.Load() {
		return ErrSendRefused
	}

	// A dropped receiver must win over free buffer space.
	select {
	case <-s.q.rxDone:
		return ErrSendRefused
	default:
	}

	select {
	case s.q.ch <- evt:
		return nil
	case <-s.q.rxDone:
		return ErrSendRefused
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TrySend enqueues evt without blocking. It reports false if the queue is
// full; the error is non-nil only when the send is refused.
func (s *Sender) TrySend(evt Event) (bool, error) {
	if s.closed.Load() {
		return false, ErrSendRefused
	}
	select {
	case <-s.q.rxDone:
		return false, ErrSendRefused
	default:
	}

	select {
	case s.q.ch <- evt:
		return true, nil
	default:
		return false, nil
	}
}

// Close drops this producer end. Closing an already closed handle is a no-op.
func (s *Sender) Close() {
	if !s.closed.CompareAndSwap(false, true) {
		return
	}
	if s.q.senders.Add(-1) == 0 {
		close(s.q.ch)
	}
}

// Receiver is the single consumer end of a Queue.
type Receiver struct {
	q *queue
}

// Recv returns the next event in arrival order.
//
// Returns ErrChannelClosed once all senders are closed and the queue is
// drained, or ctx.Err() if ctx is cancelled while waiting.
func (r *Receiver) Recv(ctx context.Context) (Event, error) {
	select {
	case evt, ok := <-r.q.ch:
		if !ok {
			return nil, ErrChannelClosed
		}
		return evt, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close drops the consumer end. Every later Send is refused, including sends
// currently blocked on a full queue.
func (r *Receiver) Close() {
	r.q.rxOnce.Do(func() {
		close(r.q.rxDone)
	})
}

// Len returns the number of buffered events.
func (r *Receiver) Len() int {
	return len(r.q.ch)
}

// Cap returns the queue capacity.
func (r *Receiver) Cap() int {
	return cap(r.q.ch)
}
