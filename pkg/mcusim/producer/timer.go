package producer

import (
	"context"
	"fmt"
	"time"

	"github.com/randalmurphal/mcusim/pkg/mcusim/event"
	"github.com/randalmurphal/mcusim/pkg/mcusim/observability"
)

// DefaultCoupledLabel is the interrupt label a timer emits on coupled ticks.
const DefaultCoupledLabel = "UART_RX"

// TimerConfig configures the core timer.
type TimerConfig struct {
	// Period between ticks. Must be positive.
	Period time.Duration

	// MaxTicks is the number of ticks before Stop. Zero emits Stop at once.
	MaxTicks uint64

	// CoupledEvery, when positive, makes the timer emit an Interrupt after
	// every CoupledEvery-th tick.
	CoupledEvery uint64

	// CoupledLabel is the coupled interrupt label.
	// Default: "UART_RX"
	CoupledLabel string
}

// Timer is the core clock. It is the only producer of Tick and Stop.
type Timer struct {
	cfg  TimerConfig
	opts options
}

// NewTimer validates cfg and returns a timer.
func NewTimer(cfg TimerConfig, opts ...Option) (*Timer, error) {
	if cfg.Period <= 0 {
		return nil, fmt.Errorf("timer period must be positive, got %s", cfg.Period)
	}
	if cfg.CoupledEvery > 0 && cfg.CoupledLabel == "" {
		cfg.CoupledLabel = DefaultCoupledLabel
	}
	return &Timer{cfg: cfg, opts: buildOptions(opts)}, nil
}

// Name returns "timer".
func (t *Timer) Name() string { return "timer" }

// Config returns the effective configuration.
func (t *Timer) Config() TimerConfig { return t.cfg }

// Run emits Tick(1..MaxTicks) on a fixed schedule followed by one Stop.
// Processing delays do not shift later ticks. Returns nil when finished or
// when the receiver is gone, ctx.Err() on cancellation.
func (t *Timer) Run(ctx context.Context, tx *event.Sender) error {
	logger := t.opts.logger

	if t.cfg.MaxTicks == 0 {
		if done, err := send(ctx, tx, logger, t.Name(), event.Stop{}); done {
			return err
		}
		observability.LogProducerExit(logger, t.Name(), ExitCompleted)
		return nil
	}

	ticker := time.NewTicker(t.cfg.Period)
	defer ticker.Stop()

	for seq := uint64(1); ; seq++ {
		select {
		case <-ticker.C:
		case <-ctx.Done():
			observability.LogProducerExit(logger, t.Name(), ExitCanceled)
			return ctx.Err()
		}

		if done, err := send(ctx, tx, logger, t.Name(), event.Tick{Seq: seq}); done {
			return err
		}

		if t.cfg.CoupledEvery > 0 && seq%t.cfg.CoupledEvery == 0 {
			if done, err := send(ctx, tx, logger, t.Name(), event.Interrupt{Source: t.cfg.CoupledLabel}); done {
				return err
			}
		}

		if seq >= t.cfg.MaxTicks {
			if done, err := send(ctx, tx, logger, t.Name(), event.Stop{}); done {
				return err
			}
			observability.LogProducerExit(logger, t.Name(), ExitCompleted)
			return nil
		}
	}
}
