package mcusim

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/randalmurphal/mcusim/pkg/mcusim/dispatcher"
	"github.com/randalmurphal/mcusim/pkg/mcusim/event"
	"github.com/randalmurphal/mcusim/pkg/mcusim/monitor"
	"github.com/randalmurphal/mcusim/pkg/mcusim/observability"
	"github.com/randalmurphal/mcusim/pkg/mcusim/producer"
	"github.com/randalmurphal/mcusim/pkg/mcusim/report"
)

// Result describes a finished run.
type Result struct {
	RunID   string             `json:"run_id"`
	Summary dispatcher.Summary `json:"summary"`

	// FinalReport is the monitor's last report. Zero when the monitor or
	// the fan-out is disabled.
	FinalReport report.Report `json:"final_report"`

	Duration time.Duration `json:"duration"`
}

// Run wires the primary channel, producers, dispatcher, fan-out, monitor
// and observers, and blocks until the dispatcher stops. It then drops the
// consumer end, cancels the producers, closes the fan-out and waits for
// the monitor and observers to finish.
//
// The error is a *SetupError when the run could not start, or ctx.Err()
// when ctx was cancelled mid-run; in the latter case the partial Result is
// still returned.
func (s *Simulation) Run(ctx context.Context, opts ...RunOption) (result *Result, err error) {
	if ctx == nil {
		return nil, &SetupError{Op: "run", Err: ErrNilContext}
	}
	if err := s.Validate(); err != nil {
		return nil, &SetupError{Op: "validate", Err: err}
	}

	cfg := defaultRunConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.runID == "" {
		cfg.runID = newRunID()
	}
	logger := observability.EnrichLogger(cfg.logger, cfg.runID, "simulation")

	producers, err := s.buildProducers(logger)
	if err != nil {
		return nil, &SetupError{Op: "producer", Err: err}
	}

	tx, rx, err := event.NewQueue(s.channelCapacity)
	if err != nil {
		return nil, &SetupError{Op: "queue", Err: err}
	}

	ctx, span := cfg.spans.StartRunSpan(ctx, cfg.runID)
	defer func() { cfg.spans.EndSpanWithError(span, err) }()

	start := time.Now()
	observability.LogRunStart(logger, cfg.runID, len(producers), s.Broadcasting())

	// Subscriptions exist before any producer starts so observers see the
	// whole run.
	var (
		bus       *event.Bus
		observers sync.WaitGroup
		monDone   chan monitorResult
	)
	dcfg := dispatcher.Config{
		Logger:  observability.EnrichLogger(cfg.logger, cfg.runID, "dispatcher"),
		Metrics: cfg.metrics,
		OnError: func(evt event.Event, handler string, herr error) {
			logger.Warn("handler failed",
				slog.String("handler", handler),
				slog.String("event", evt.String()),
				slog.String("error", herr.Error()),
			)
		},
	}

	if s.Broadcasting() {
		bus = event.NewBus(event.BusConfig{
			BufferSize: s.broadcastCapacity,
			OnLag: func(id string, missed uint64) {
				logger.Debug("subscriber buffer overflow",
					slog.String("subscriber", id),
					slog.Uint64("missed", missed),
				)
			},
		})
		dcfg.Publisher = bus

		if s.monitorEnabled {
			sub, err := bus.Subscribe()
			if err != nil {
				_ = bus.Close()
				return nil, &SetupError{Op: "monitor", Err: err}
			}
			mon := monitor.New(sub, monitor.Config{
				RunID:    cfg.runID,
				Interval: s.monitorInterval,
				Sink:     cfg.sink,
				Logger:   observability.EnrichLogger(cfg.logger, cfg.runID, "monitor"),
				Metrics:  cfg.metrics,
			})
			monDone = make(chan monitorResult, 1)
			go func() {
				r, err := mon.Run(ctx)
				monDone <- monitorResult{report: r, err: err}
			}()
		}

		for _, o := range cfg.observers {
			sub, err := bus.Subscribe()
			if err != nil {
				_ = bus.Close()
				return nil, &SetupError{Op: "observer", Err: err}
			}
			observers.Add(1)
			go func(o Observer) {
				defer observers.Done()
				if err := o(ctx, sub); err != nil && !errors.Is(err, context.Canceled) {
					logger.Warn("observer failed",
						slog.String("subscriber", sub.ID()),
						slog.String("error", err.Error()),
					)
				}
			}(o)
		}
	}

	d := dispatcher.New(rx, dcfg)
	for _, mw := range cfg.middleware {
		d.Use(mw)
	}
	for _, h := range cfg.handlers {
		d.Register(h)
	}

	prodCtx, cancelProducers := context.WithCancel(ctx)
	defer cancelProducers()

	var workers sync.WaitGroup
	for _, p := range producers {
		ptx := tx.Clone()
		workers.Add(1)
		go func(p producer.Producer) {
			defer workers.Done()
			defer ptx.Close()
			if err := p.Run(prodCtx, ptx); err != nil && prodCtx.Err() == nil {
				logger.Warn("producer failed",
					slog.String("producer", p.Name()),
					slog.String("error", err.Error()),
				)
			}
		}(p)
	}
	// The clones keep the channel open; the queue closes once every
	// producer has exited.
	tx.Close()

	summary, runErr := d.Run(ctx)

	rx.Close()
	cancelProducers()
	workers.Wait()

	result = &Result{
		RunID:   cfg.runID,
		Summary: summary,
	}

	if bus != nil {
		_ = bus.Close()
		if monDone != nil {
			res := <-monDone
			result.FinalReport = res.report
			if res.err != nil && !errors.Is(res.err, context.Canceled) {
				logger.Warn("monitor stopped early", slog.String("error", res.err.Error()))
			}
		}
		observers.Wait()
	}

	result.Duration = time.Since(start)
	cfg.metrics.RecordRun(ctx, string(summary.Reason), result.Duration)
	observability.LogRunComplete(logger, cfg.runID, string(summary.Reason), summary.Events,
		float64(result.Duration.Microseconds())/1000)

	return result, runErr
}

type monitorResult struct {
	report report.Report
	err    error
}

func (s *Simulation) buildProducers(logger *slog.Logger) ([]producer.Producer, error) {
	opt := producer.WithLogger(logger)

	timer, err := producer.NewTimer(s.timer, opt)
	if err != nil {
		return nil, err
	}
	all := []producer.Producer{timer}

	for _, cfg := range s.peripherals {
		p, err := producer.NewPeripheral(cfg, opt)
		if err != nil {
			return nil, err
		}
		all = append(all, p)
	}
	return append(all, s.producers...), nil
}

// newRunID returns a time-ordered UUIDv7, falling back to a random UUID
// if the clock source fails.
func newRunID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
