package mcusim

import (
	"errors"
	"fmt"
	"time"

	"github.com/randalmurphal/mcusim/pkg/mcusim/config"
	"github.com/randalmurphal/mcusim/pkg/mcusim/monitor"
	"github.com/randalmurphal/mcusim/pkg/mcusim/producer"
)

// Builder defaults.
const (
	DefaultTickPeriod        = 200 * time.Millisecond
	DefaultMaxTicks          = 60
	DefaultChannelCapacity   = 64
	DefaultBroadcastCapacity = 64
)

// Simulation is a builder for one simulated core: a timer, any number of
// peripherals, the primary channel, the broadcast fan-out and the monitor.
// Configure it with the Set/Add methods, then call Run.
//
// Simulation is NOT thread-safe while building.
//
// Example:
//
//	sim := mcusim.NewSimulation().
//	    SetTimer(producer.TimerConfig{Period: 200 * time.Millisecond, MaxTicks: 20}).
//	    AddPeripheral(producer.PeripheralConfig{
//	        Name:    "uart",
//	        Period:  500 * time.Millisecond,
//	        Payload: producer.UARTBytes(),
//	    })
//
//	result, err := sim.Run(ctx)
type Simulation struct {
	timer       producer.TimerConfig
	peripherals []producer.PeripheralConfig
	producers   []producer.Producer

	channelCapacity   int
	broadcastCapacity int

	monitorEnabled  bool
	monitorInterval time.Duration
}

// NewSimulation returns a builder with the reference defaults: a 200ms
// timer running 60 ticks, channel and fan-out capacity 64, and a monitor
// reporting every 2s. It has no peripherals.
func NewSimulation() *Simulation {
	return &Simulation{
		timer: producer.TimerConfig{
			Period:   DefaultTickPeriod,
			MaxTicks: DefaultMaxTicks,
		},
		channelCapacity:   DefaultChannelCapacity,
		broadcastCapacity: DefaultBroadcastCapacity,
		monitorEnabled:    true,
		monitorInterval:   monitor.DefaultInterval,
	}
}

// SetTimer replaces the timer configuration.
func (s *Simulation) SetTimer(cfg producer.TimerConfig) *Simulation {
	s.timer = cfg
	return s
}

// AddPeripheral adds a peripheral generator.
func (s *Simulation) AddPeripheral(cfg producer.PeripheralConfig) *Simulation {
	s.peripherals = append(s.peripherals, cfg)
	return s
}

// AddProducer adds a custom event source. Its name must not collide with
// the timer or a peripheral.
func (s *Simulation) AddProducer(p producer.Producer) *Simulation {
	s.producers = append(s.producers, p)
	return s
}

// SetChannelCapacity sets the primary channel capacity.
func (s *Simulation) SetChannelCapacity(n int) *Simulation {
	s.channelCapacity = n
	return s
}

// SetBroadcast sets the per-subscriber fan-out buffer. Zero disables the
// fan-out, and with it the monitor and any observers.
func (s *Simulation) SetBroadcast(capacity int) *Simulation {
	s.broadcastCapacity = capacity
	return s
}

// SetMonitor enables the monitor with the given interim report interval.
// A negative interval keeps only the terminal report.
func (s *Simulation) SetMonitor(interval time.Duration) *Simulation {
	s.monitorEnabled = true
	s.monitorInterval = interval
	return s
}

// DisableMonitor runs without the monitor.
func (s *Simulation) DisableMonitor() *Simulation {
	s.monitorEnabled = false
	return s
}

// Broadcasting reports whether the fan-out is enabled.
func (s *Simulation) Broadcasting() bool {
	return s.broadcastCapacity > 0
}

// Validate checks the configuration and returns every problem found.
func (s *Simulation) Validate() error {
	var errs []error

	if s.timer.Period <= 0 {
		errs = append(errs, ErrInvalidTimer)
	}
	if s.channelCapacity < 1 {
		errs = append(errs, fmt.Errorf("%w: %d", ErrInvalidChannel, s.channelCapacity))
	}
	if s.broadcastCapacity < 0 {
		errs = append(errs, fmt.Errorf("%w: %d", ErrInvalidBroadcast, s.broadcastCapacity))
	}

	seen := map[string]bool{"timer": true}
	claim := func(name string) {
		if seen[name] {
			errs = append(errs, fmt.Errorf("%w: %q", ErrDuplicateProducer, name))
		}
		seen[name] = true
	}

	for _, cfg := range s.peripherals {
		if _, err := producer.NewPeripheral(cfg); err != nil {
			errs = append(errs, err)
			continue
		}
		claim(cfg.Name)
	}
	for _, p := range s.producers {
		if p == nil {
			errs = append(errs, ErrNilProducer)
			continue
		}
		claim(p.Name())
	}

	return errors.Join(errs...)
}

// FromSettings builds a Simulation from validated configuration, resolving
// peripheral kinds through the default payload registry.
func FromSettings(settings config.Settings) (*Simulation, error) {
	return FromSettingsWithPayloads(settings, producer.DefaultPayloads())
}

// FromSettingsWithPayloads is FromSettings with a caller-supplied payload
// registry.
func FromSettingsWithPayloads(settings config.Settings, payloads *producer.PayloadRegistry) (*Simulation, error) {
	sim := NewSimulation().
		SetTimer(producer.TimerConfig{
			Period:       settings.Timer.Period,
			MaxTicks:     settings.Timer.MaxTicks,
			CoupledEvery: settings.Timer.CoupledEvery,
			CoupledLabel: settings.Timer.CoupledLabel,
		}).
		SetChannelCapacity(settings.Channel.Capacity)

	if settings.Broadcast.Enabled {
		sim.SetBroadcast(settings.Broadcast.Capacity)
	} else {
		sim.SetBroadcast(0)
	}

	if settings.Monitor.Enabled {
		sim.SetMonitor(settings.Monitor.ReportInterval)
	} else {
		sim.DisableMonitor()
	}

	for _, p := range settings.Peripherals {
		payload, err := payloads.Build(p.Kind, p.Label)
		if err != nil {
			return nil, fmt.Errorf("peripheral %q: %w", p.Name, err)
		}
		sim.AddPeripheral(producer.PeripheralConfig{
			Name:    p.Name,
			Period:  p.Period,
			Jitter:  p.Jitter,
			Seed:    p.Seed,
			Payload: payload,
		})
	}

	if err := sim.Validate(); err != nil {
		return nil, err
	}
	return sim, nil
}
