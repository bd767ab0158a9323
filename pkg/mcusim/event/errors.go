package event

import (
	"errors"
	"fmt"
)

// Sentinel errors for channel operations. None of them is fatal: each one is
// the normal termination signal for exactly one goroutine.
var (
	// ErrChannelClosed indicates the channel has no more data and never will.
	// Receivers exit their loop when they see it.
	ErrChannelClosed = errors.New("channel closed")

	// ErrSendRefused indicates a send on a channel with no live receiver.
	// Senders treat it exactly like ErrChannelClosed.
	ErrSendRefused = errors.New("send refused: receiver dropped")

	// ErrSubscriberLag indicates a bus subscriber missed events because its
	// buffer overflowed. Match a *LagError with errors.Is against it.
	ErrSubscriberLag = errors.New("subscriber lagged")

	// ErrNoSubscribers indicates a publish reached nobody.
	ErrNoSubscribers = errors.New("no subscribers")

	// ErrBusClosed indicates the bus has been shut down.
	ErrBusClosed = errors.New("bus closed")

	// ErrInvalidCapacity indicates a channel was configured with capacity < 1.
	ErrInvalidCapacity = errors.New("channel capacity must be at least 1")
)

// LagError reports how many events a subscriber skipped since it last
// received. It is recoverable; the subscriber keeps receiving newer events.
type LagError struct {
	// Subscriber is the subscription ID.
	Subscriber string
	// Missed is the number of events evicted from the subscriber's buffer.
	Missed uint64
}

// Error implements the error interface.
func (e *LagError) Error() string {
	return fmt.Sprintf("subscriber %s lagged: %d events skipped", e.Subscriber, e.Missed)
}

// Is lets errors.Is(err, ErrSubscriberLag) match.
func (e *LagError) Is(target error) bool {
	return target == ErrSubscriberLag
}

// IsTerminal reports whether err means the channel is permanently gone from
// the caller's point of view.
func IsTerminal(err error) bool {
	return errors.Is(err, ErrChannelClosed) ||
		errors.Is(err, ErrSendRefused) ||
		errors.Is(err, ErrBusClosed)
}
