package dispatcher

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/randalmurphal/mcusim/pkg/mcusim/event"
)

// Handler observes events after the dispatcher's own bookkeeping.
// Errors are reported through Config.OnError and never stop the loop.
type Handler interface {
	Handle(ctx context.Context, evt event.Event) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, evt event.Event) error

// Handle calls f.
func (f HandlerFunc) Handle(ctx context.Context, evt event.Event) error {
	return f(ctx, evt)
}

// MiddlewareFunc wraps a Handler.
type MiddlewareFunc func(next Handler) Handler

// ChainMiddleware applies middleware so the first one listed is outermost.
func ChainMiddleware(h Handler, middleware ...MiddlewareFunc) Handler {
	for i := len(middleware) - 1; i >= 0; i-- {
		h = middleware[i](h)
	}
	return h
}

// handlerName extracts a name for a handler (for logging).
func handlerName(h Handler) string {
	if n, ok := h.(interface{ Name() string }); ok {
		return n.Name()
	}
	return fmt.Sprintf("%T", h)
}

// RecoveryMiddleware turns handler panics into errors.
func RecoveryMiddleware() MiddlewareFunc {
	return func(next Handler) Handler {
		return HandlerFunc(func(ctx context.Context, evt event.Event) (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("handler panic on %s: %v", evt, r)
				}
			}()
			return next.Handle(ctx, evt)
		})
	}
}

// LoggingMiddleware logs each handler invocation at debug level.
func LoggingMiddleware(logger *slog.Logger) MiddlewareFunc {
	return func(next Handler) Handler {
		name := handlerName(next)
		return HandlerFunc(func(ctx context.Context, evt event.Event) error {
			start := time.Now()
			err := next.Handle(ctx, evt)
			if logger != nil {
				attrs := []any{
					slog.String("handler", name),
					slog.String("kind", evt.Kind().String()),
					slog.Duration("duration", time.Since(start)),
				}
				if err != nil {
					attrs = append(attrs, slog.String("error", err.Error()))
				}
				logger.Debug("handler completed", attrs...)
			}
			return err
		})
	}
}

// KindFilter returns middleware that only passes events of the given kinds.
func KindFilter(kinds ...event.Kind) MiddlewareFunc {
	return func(next Handler) Handler {
		return HandlerFunc(func(ctx context.Context, evt event.Event) error {
			for _, k := range kinds {
				if evt.Kind() == k {
					return next.Handle(ctx, evt)
				}
			}
			return nil
		})
	}
}
