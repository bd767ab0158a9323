package mcusim

import (
	"context"
	"log/slog"

	"github.com/randalmurphal/mcusim/pkg/mcusim/dispatcher"
	"github.com/randalmurphal/mcusim/pkg/mcusim/event"
	"github.com/randalmurphal/mcusim/pkg/mcusim/observability"
	"github.com/randalmurphal/mcusim/pkg/mcusim/report"
)

// Observer consumes its own fan-out subscription for the length of a run.
// It should return when the subscription channel closes or ctx is done.
type Observer func(ctx context.Context, sub *event.Subscription) error

// runConfig holds configuration for one Run.
type runConfig struct {
	runID      string
	logger     *slog.Logger
	metrics    observability.MetricsRecorder
	spans      observability.SpanManager
	sink       report.Sink
	handlers   []dispatcher.Handler
	middleware []dispatcher.MiddlewareFunc
	observers  []Observer
}

func defaultRunConfig() runConfig {
	return runConfig{
		logger:  slog.Default(),
		metrics: observability.NoopMetrics{},
		spans:   observability.NoopSpanManager{},
	}
}

// RunOption configures execution behavior.
type RunOption func(*runConfig)

// WithRunID sets the run identifier stamped on logs, spans and reports.
// Default: a fresh UUIDv7.
func WithRunID(id string) RunOption {
	return func(c *runConfig) {
		c.runID = id
	}
}

// WithLogger sets the base logger. Default: slog.Default().
func WithLogger(logger *slog.Logger) RunOption {
	return func(c *runConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMetrics sets the metrics recorder. Default: no metrics.
//
// Example:
//
//	result, err := sim.Run(ctx, mcusim.WithMetrics(observability.NewMetricsRecorder()))
func WithMetrics(m observability.MetricsRecorder) RunOption {
	return func(c *runConfig) {
		if m != nil {
			c.metrics = m
		}
	}
}

// WithTracing enables a run span on the global tracer provider, with one
// span event per monitor report.
func WithTracing(enabled bool) RunOption {
	return func(c *runConfig) {
		if enabled {
			c.spans = observability.NewSpanManager()
		} else {
			c.spans = observability.NoopSpanManager{}
		}
	}
}

// WithReportSink sets where monitor reports go. Default: the run logger.
func WithReportSink(sink report.Sink) RunOption {
	return func(c *runConfig) {
		c.sink = sink
	}
}

// WithHandler registers a dispatcher handler. Handlers see every event
// after it has been republished, in arrival order.
func WithHandler(h dispatcher.Handler) RunOption {
	return func(c *runConfig) {
		if h != nil {
			c.handlers = append(c.handlers, h)
		}
	}
}

// WithMiddleware wraps every handler registered through WithHandler.
// The first middleware is the outermost.
func WithMiddleware(mw ...dispatcher.MiddlewareFunc) RunOption {
	return func(c *runConfig) {
		c.middleware = append(c.middleware, mw...)
	}
}

// WithObserver attaches an extra passive fan-out observer. Ignored when
// the broadcast is disabled.
func WithObserver(o Observer) RunOption {
	return func(c *runConfig) {
		if o != nil {
			c.observers = append(c.observers, o)
		}
	}
}
