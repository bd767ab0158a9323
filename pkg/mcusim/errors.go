package mcusim

import (
	"errors"
	"fmt"
)

// Sentinel errors for simulation building.
var (
	// ErrInvalidTimer indicates a non-positive tick period.
	ErrInvalidTimer = errors.New("timer period must be positive")

	// ErrInvalidChannel indicates a primary channel capacity below 1.
	ErrInvalidChannel = errors.New("channel capacity must be at least 1")

	// ErrInvalidBroadcast indicates a negative fan-out capacity.
	ErrInvalidBroadcast = errors.New("broadcast capacity must not be negative")

	// ErrDuplicateProducer indicates two producers share a name.
	ErrDuplicateProducer = errors.New("duplicate producer name")

	// ErrNilProducer indicates AddProducer was given nil.
	ErrNilProducer = errors.New("producer cannot be nil")

	// ErrNilContext indicates Run was called with a nil context.
	ErrNilContext = errors.New("context cannot be nil")
)

// SetupError wraps a failure that prevented a run from starting.
type SetupError struct {
	// Op is the setup step that failed ("validate", "queue", "producer", ...).
	Op string
	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *SetupError) Error() string {
	return fmt.Sprintf("setup %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *SetupError) Unwrap() error {
	return e.Err
}
