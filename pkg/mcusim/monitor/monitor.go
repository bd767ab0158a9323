// Package monitor aggregates statistics over the broadcast fan-out.
//
// A Monitor waits on two triggers at once: the next event from its
// subscription and a fixed-cadence report ticker. Events update its
// counters; the ticker produces interim reports without resetting them.
// Seeing Stop produces the final report and ends the loop.
package monitor

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/randalmurphal/mcusim/pkg/mcusim/event"
	"github.com/randalmurphal/mcusim/pkg/mcusim/observability"
	"github.com/randalmurphal/mcusim/pkg/mcusim/report"
)

// DefaultInterval is the interim report period.
const DefaultInterval = 2 * time.Second

// Config configures a Monitor.
type Config struct {
	// RunID is stamped on every report.
	RunID string

	// Interval between interim reports. Negative disables them.
	// Default: 2s
	Interval time.Duration

	// Sink receives every report. Nil drops them after logging.
	Sink report.Sink

	// Logger. Default: slog.Default().
	Logger *slog.Logger

	// Metrics. Default: NoopMetrics.
	Metrics observability.MetricsRecorder
}

// Monitor consumes one fan-out subscription.
type Monitor struct {
	sub    *event.Subscription
	config Config

	state *State
	seq   uint64
}

// New creates a monitor reading from sub.
func New(sub *event.Subscription, config Config) *Monitor {
	if config.Interval == 0 {
		config.Interval = DefaultInterval
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.Metrics == nil {
		config.Metrics = observability.NoopMetrics{}
	}
	return &Monitor{
		sub:    sub,
		config: config,
		state:  NewState(),
	}
}

// Run aggregates until Stop (final report), subscription closure
// (abnormal report) or ctx cancellation (abnormal report, returns
// ctx.Err()). It returns the last report emitted.
func (m *Monitor) Run(ctx context.Context) (report.Report, error) {
	var tick <-chan time.Time
	if m.config.Interval > 0 {
		ticker := time.NewTicker(m.config.Interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case evt, ok := <-m.sub.C():
			m.absorbLag(ctx)
			if !ok {
				return m.emit(ctx, report.KindAbnormal), nil
			}

			m.state.Observe(evt)
			m.config.Logger.Debug("monitor received event", slog.String("kind", evt.Kind().String()))

			if event.IsStop(evt) {
				return m.emit(ctx, report.KindFinal), nil
			}

		case <-tick:
			m.absorbLag(ctx)
			m.emit(ctx, report.KindInterim)

		case <-ctx.Done():
			m.absorbLag(ctx)
			return m.emit(context.WithoutCancel(ctx), report.KindAbnormal), ctx.Err()
		}
	}
}

func (m *Monitor) absorbLag(ctx context.Context) {
	n := m.sub.TakeMissed()
	if n == 0 {
		return
	}
	m.state.AddMissed(n)
	observability.LogLag(m.config.Logger, m.sub.ID(), n)
	m.config.Metrics.RecordLag(ctx, n)
}

func (m *Monitor) emit(ctx context.Context, kind report.Kind) report.Report {
	m.seq++
	r := report.Report{
		RunID:      m.config.RunID,
		Seq:        m.seq,
		Kind:       kind,
		TickCount:  m.state.TickCount,
		Interrupts: m.state.Counts(),
		Missed:     m.state.Missed,
		At:         time.Now(),
	}

	m.config.Metrics.RecordReport(ctx, string(kind))
	observability.AddSpanEvent(ctx, "monitor.report",
		attribute.String("kind", string(kind)),
		attribute.Int64("seq", int64(r.Seq)),
		attribute.Int64("ticks", int64(r.TickCount)),
	)

	if m.config.Sink == nil {
		observability.LogReport(m.config.Logger, string(kind), r.Seq, r.TickCount, r.Interrupts, r.Missed)
		return r
	}
	if err := m.config.Sink.Emit(ctx, r); err != nil {
		observability.LogSinkError(m.config.Logger, string(kind), err)
	}
	return r
}
