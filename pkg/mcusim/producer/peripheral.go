package producer

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/randalmurphal/mcusim/pkg/mcusim/event"
	"github.com/randalmurphal/mcusim/pkg/mcusim/observability"
)

// PeripheralConfig configures a simulated peripheral.
type PeripheralConfig struct {
	// Name identifies the peripheral in logs.
	Name string

	// Period is the fixed interval, or the mean interval when Jitter is set.
	Period time.Duration

	// Jitter draws each wait uniformly from [Period/2, Period*3/2].
	Jitter bool

	// Seed seeds the peripheral's random stream. Zero picks a random seed.
	Seed uint64

	// Payload generates interrupt labels. Required.
	Payload Payload
}

// Peripheral emits Interrupt events until the receiver goes away.
type Peripheral struct {
	cfg  PeripheralConfig
	rng  *rand.Rand
	opts options
}

// NewPeripheral validates cfg and returns a peripheral with its own
// random stream.
func NewPeripheral(cfg PeripheralConfig, opts ...Option) (*Peripheral, error) {
	if cfg.Name == "" {
		return nil, errors.New("peripheral name is required")
	}
	if cfg.Period <= 0 {
		return nil, fmt.Errorf("peripheral %s: period must be positive, got %s", cfg.Name, cfg.Period)
	}
	if cfg.Jitter && cfg.Period < 2 {
		return nil, fmt.Errorf("peripheral %s: jittered period too small", cfg.Name)
	}
	if cfg.Payload == nil {
		return nil, fmt.Errorf("peripheral %s: payload is required", cfg.Name)
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}

	return &Peripheral{
		cfg:  cfg,
		rng:  rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		opts: buildOptions(opts),
	}, nil
}

// Name returns the configured name.
func (p *Peripheral) Name() string { return p.cfg.Name }

// NextWait returns the delay before the next interrupt.
func (p *Peripheral) NextWait() time.Duration {
	if !p.cfg.Jitter {
		return p.cfg.Period
	}
	return JitteredWait(p.rng, p.cfg.Period)
}

// JitteredWait draws uniformly from [period/2, period*3/2] inclusive.
func JitteredWait(rng *rand.Rand, period time.Duration) time.Duration {
	lo := period / 2
	hi := period + period/2
	return lo + time.Duration(rng.Int64N(int64(hi-lo)+1))
}

// Run emits one Interrupt per wait until a send is refused (returns nil)
// or ctx is cancelled (returns ctx.Err()). Run must not be called
// concurrently on the same Peripheral.
func (p *Peripheral) Run(ctx context.Context, tx *event.Sender) error {
	if p.cfg.Jitter {
		return p.runJittered(ctx, tx)
	}
	return p.runFixed(ctx, tx)
}

func (p *Peripheral) runFixed(ctx context.Context, tx *event.Sender) error {
	ticker := time.NewTicker(p.cfg.Period)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return p.canceled(ctx)
		}
		if done, err := p.emit(ctx, tx); done {
			return err
		}
	}
}

func (p *Peripheral) runJittered(ctx context.Context, tx *event.Sender) error {
	timer := time.NewTimer(p.NextWait())
	defer timer.Stop()

	for {
		select {
		case <-timer.C:
		case <-ctx.Done():
			return p.canceled(ctx)
		}
		if done, err := p.emit(ctx, tx); done {
			return err
		}
		timer.Reset(p.NextWait())
	}
}

func (p *Peripheral) emit(ctx context.Context, tx *event.Sender) (bool, error) {
	label := p.cfg.Payload.Next(p.rng)
	return send(ctx, tx, p.opts.logger, p.cfg.Name, event.Interrupt{Source: label})
}

func (p *Peripheral) canceled(ctx context.Context) error {
	observability.LogProducerExit(p.opts.logger, p.cfg.Name, ExitCanceled)
	return ctx.Err()
}
