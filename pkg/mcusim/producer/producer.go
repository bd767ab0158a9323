// Package producer implements the event sources of the simulated core: the
// periodic timer that emits Tick and Stop, and peripheral generators that
// emit Interrupt.
//
// Producers run in their own goroutine with their own event.Sender. They
// stop when a send is refused (the dispatcher is gone) or when the context
// is cancelled, and they never retry a failed send.
package producer

import (
	"context"
	"errors"
	"log/slog"

	"github.com/randalmurphal/mcusim/pkg/mcusim/event"
	"github.com/randalmurphal/mcusim/pkg/mcusim/observability"
)

// Producer emits events onto the primary channel until stopped.
type Producer interface {
	// Name identifies the producer in logs.
	Name() string

	// Run emits events on tx until the receiver goes away or ctx is done.
	// A refused send returns nil. Run does not close tx.
	Run(ctx context.Context, tx *event.Sender) error
}

// Option configures a producer.
type Option func(*options)

type options struct {
	logger *slog.Logger
}

// WithLogger sets the logger used for exit records.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

func buildOptions(opts []Option) options {
	o := options{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Exit reasons reported by producers.
const (
	ExitCompleted = "completed"
	ExitRefused   = "receiver dropped"
	ExitCanceled  = "canceled"
)

// send pushes evt and classifies the outcome. It returns done=true when
// the producer must stop, with err non-nil only on context cancellation.
func send(ctx context.Context, tx *event.Sender, logger *slog.Logger, name string, evt event.Event) (done bool, err error) {
	err = tx.Send(ctx, evt)
	switch {
	case err == nil:
		return false, nil
	case errors.Is(err, event.ErrSendRefused):
		observability.LogProducerExit(logger, name, ExitRefused)
		return true, nil
	default:
		observability.LogProducerExit(logger, name, ExitCanceled)
		return true, err
	}
}
