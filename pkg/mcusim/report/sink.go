package report

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/randalmurphal/mcusim/pkg/mcusim/observability"
)

// Sink receives reports as the monitor produces them. Emit is called from
// the monitor goroutine; a slow sink delays the next report.
type Sink interface {
	Emit(ctx context.Context, r Report) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, r Report) error

// Emit calls f.
func (f SinkFunc) Emit(ctx context.Context, r Report) error { return f(ctx, r) }

// LogSink writes each report as one structured log record.
type LogSink struct {
	Logger *slog.Logger
}

// Emit implements Sink.
func (s LogSink) Emit(_ context.Context, r Report) error {
	observability.LogReport(s.Logger, string(r.Kind), r.Seq, r.TickCount, r.Interrupts, r.Missed)
	return nil
}

// StoreSink saves each report to a Store.
type StoreSink struct {
	Store Store
}

// Emit implements Sink.
func (s StoreSink) Emit(ctx context.Context, r Report) error {
	return s.Store.Save(ctx, r)
}

// MultiSink fans a report out to several sinks. Every sink is called even
// if an earlier one fails; the errors are joined.
type MultiSink []Sink

// Emit implements Sink.
func (m MultiSink) Emit(ctx context.Context, r Report) error {
	var errs []error
	for _, s := range m {
		if s == nil {
			continue
		}
		if err := s.Emit(ctx, r); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Collector keeps every report in memory. It is safe for concurrent use.
type Collector struct {
	mu      sync.Mutex
	reports []Report
}

// Emit implements Sink.
func (c *Collector) Emit(_ context.Context, r Report) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reports = append(c.reports, r.Clone())
	return nil
}

// Reports returns a copy of everything collected so far.
func (c *Collector) Reports() []Report {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Report, len(c.reports))
	for i, r := range c.reports {
		out[i] = r.Clone()
	}
	return out
}

// Last returns the most recent report, if any.
func (c *Collector) Last() (Report, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.reports) == 0 {
		return Report{}, false
	}
	return c.reports[len(c.reports)-1].Clone(), true
}
