// Package dispatcher implements the single consumer of the primary channel.
//
// The dispatcher receives events in arrival order, republishes each one on
// the broadcast fan-out, performs its own bookkeeping (structured log
// record, metrics, registered handlers) and stops on the first Stop event
// or when every producer has gone away.
package dispatcher

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/randalmurphal/mcusim/pkg/mcusim/event"
	"github.com/randalmurphal/mcusim/pkg/mcusim/observability"
)

// State is the dispatcher lifecycle state.
type State int32

// Dispatcher states. Stopped is terminal.
const (
	StateRunning State = iota
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Reason explains why Run returned.
type Reason string

// Stop reasons.
const (
	ReasonStopEvent     Reason = "stop-event"
	ReasonChannelClosed Reason = "channel-closed"
	ReasonCanceled      Reason = "canceled"
)

// ErrAlreadyRun is returned by a second call to Run.
var ErrAlreadyRun = errors.New("dispatcher already run")

// Publisher is the broadcast side of the fan-out. *event.Bus implements it.
type Publisher interface {
	Publish(evt event.Event) (int, error)
}

// Config configures a Dispatcher.
type Config struct {
	// Publisher receives a copy of every event. Nil disables the fan-out.
	Publisher Publisher

	// Logger receives one record per event. Default: slog.Default().
	Logger *slog.Logger

	// Metrics records dispatch counts. Default: NoopMetrics.
	Metrics observability.MetricsRecorder

	// OnError is called when a handler fails.
	OnError func(evt event.Event, handler string, err error)
}

// Summary describes a finished dispatch loop.
type Summary struct {
	Events     uint64 `json:"events"`
	Ticks      uint64 `json:"ticks"`
	Interrupts uint64 `json:"interrupts"`
	LastTick   uint64 `json:"last_tick"`
	Reason     Reason `json:"reason"`
}

// Dispatcher consumes the primary channel.
type Dispatcher struct {
	rx     *event.Receiver
	config Config

	mu         sync.RWMutex
	handlers   []Handler
	middleware []MiddlewareFunc

	state   atomic.Int32
	started atomic.Bool
}

// New creates a dispatcher reading from rx.
func New(rx *event.Receiver, config Config) *Dispatcher {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.Metrics == nil {
		config.Metrics = observability.NoopMetrics{}
	}
	return &Dispatcher{rx: rx, config: config}
}

// Use adds middleware that applies to subsequently registered handlers.
func (d *Dispatcher) Use(middleware MiddlewareFunc) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.middleware = append(d.middleware, middleware)
}

// Register adds a handler, wrapped in the middleware added so far.
func (d *Dispatcher) Register(h Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers = append(d.handlers, ChainMiddleware(h, d.middleware...))
}

// State returns the current lifecycle state.
func (d *Dispatcher) State() State {
	return State(d.state.Load())
}

// Run consumes events until a Stop event, channel closure or ctx
// cancellation, then moves to StateStopped. The error is non-nil only for
// cancellation (ctx.Err()) or a repeated call.
func (d *Dispatcher) Run(ctx context.Context) (Summary, error) {
	if !d.started.CompareAndSwap(false, true) {
		return Summary{}, ErrAlreadyRun
	}
	defer d.state.Store(int32(StateStopped))

	d.mu.RLock()
	handlers := append([]Handler(nil), d.handlers...)
	d.mu.RUnlock()

	book := &bookkeeper{logger: d.config.Logger}

	for {
		evt, err := d.rx.Recv(ctx)
		if err != nil {
			if errors.Is(err, event.ErrChannelClosed) {
				book.summary.Reason = ReasonChannelClosed
				return book.summary, nil
			}
			book.summary.Reason = ReasonCanceled
			return book.summary, err
		}

		d.publish(ctx, evt)

		evt.Accept(book)
		d.config.Metrics.RecordDispatch(ctx, evt.Kind().String())

		for _, h := range handlers {
			if err := h.Handle(ctx, evt); err != nil && d.config.OnError != nil {
				d.config.OnError(evt, handlerName(h), err)
			}
		}

		if book.stopped {
			book.summary.Reason = ReasonStopEvent
			return book.summary, nil
		}
	}
}

func (d *Dispatcher) publish(ctx context.Context, evt event.Event) {
	if d.config.Publisher == nil {
		return
	}
	n, err := d.config.Publisher.Publish(evt)
	if err != nil {
		d.config.Logger.Debug("broadcast skipped",
			slog.String("kind", evt.Kind().String()),
			slog.String("error", err.Error()),
		)
		return
	}
	d.config.Metrics.RecordFanout(ctx, n)
}

// bookkeeper is the dispatcher's own terminal handling for each variant.
type bookkeeper struct {
	logger  *slog.Logger
	summary Summary
	stopped bool
}

func (b *bookkeeper) VisitTick(t event.Tick) {
	b.summary.Events++
	b.summary.Ticks++
	b.summary.LastTick = t.Seq
	observability.LogTick(b.logger, t.Seq)
}

func (b *bookkeeper) VisitInterrupt(i event.Interrupt) {
	b.summary.Events++
	b.summary.Interrupts++
	observability.LogInterrupt(b.logger, i.Source)
}

func (b *bookkeeper) VisitStop(event.Stop) {
	b.summary.Events++
	b.stopped = true
	observability.LogStop(b.logger)
}
