package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Peripheral payload kinds understood by the producer payload registry.
const (
	KindUART  = "uart"
	KindGPIO  = "gpio"
	KindLabel = "label"
)

// Store drivers.
const (
	StoreNone   = "none"
	StoreMemory = "memory"
	StoreSQLite = "sqlite"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "MCUSIM_"

// Settings is the typed simulation configuration.
type Settings struct {
	Timer       TimerSettings
	Peripherals []PeripheralSettings `validate:"dive"`
	Channel     ChannelSettings
	Broadcast   BroadcastSettings
	Monitor     MonitorSettings
	Logging     LoggingSettings
	Telemetry   TelemetrySettings
	Store       StoreSettings
}

type TimerSettings struct {
	Period       time.Duration `validate:"gt=0"`
	MaxTicks     uint64
	CoupledEvery uint64
	CoupledLabel string
}

type PeripheralSettings struct {
	Name   string        `validate:"required"`
	Kind   string        `validate:"oneof=uart gpio label"`
	Period time.Duration `validate:"gt=0"`
	Jitter bool
	Seed   uint64
	Label  string `validate:"required_if=Kind label"`
}

type ChannelSettings struct {
	Capacity int `validate:"min=1"`
}

type BroadcastSettings struct {
	Enabled  bool
	Capacity int `validate:"min=0"`
}

type MonitorSettings struct {
	Enabled        bool
	ReportInterval time.Duration
}

type LoggingSettings struct {
	Level  string `validate:"oneof=debug info warn error"`
	Format string `validate:"oneof=text json console"`
}

type TelemetrySettings struct {
	Metrics       bool
	Tracing       bool
	TraceExporter string `validate:"oneof=none stdout"`
}

type StoreSettings struct {
	Driver string `validate:"oneof=none memory sqlite"`
	Path   string `validate:"required_if=Driver sqlite"`
}

// Defaults reproduce the reference program: a 200ms timer stopping after
// 60 ticks, a fixed 500ms UART and a jittered 700ms GPIO peripheral.
func Defaults() Settings {
	return Settings{
		Timer: TimerSettings{
			Period:       200 * time.Millisecond,
			MaxTicks:     60,
			CoupledLabel: "UART_RX",
		},
		Peripherals: []PeripheralSettings{
			{Name: "uart", Kind: KindUART, Period: 500 * time.Millisecond},
			{Name: "gpio", Kind: KindGPIO, Period: 700 * time.Millisecond, Jitter: true},
		},
		Channel:   ChannelSettings{Capacity: 64},
		Broadcast: BroadcastSettings{Enabled: true, Capacity: 64},
		Monitor:   MonitorSettings{Enabled: true, ReportInterval: 2 * time.Second},
		Logging:   LoggingSettings{Level: "info", Format: "text"},
		Telemetry: TelemetrySettings{TraceExporter: "none"},
		Store:     StoreSettings{Driver: StoreNone},
	}
}

// Decode reads Settings from c, keeping the default for every absent key.
// A present but empty peripherals list disables the peripherals.
func Decode(c Config) Settings {
	s := Defaults()

	timer := c.Section("timer")
	s.Timer.Period = timer.Duration("period", s.Timer.Period)
	s.Timer.MaxTicks = timer.Uint64("max_ticks", s.Timer.MaxTicks)
	s.Timer.CoupledEvery = timer.Uint64("coupled_every", s.Timer.CoupledEvery)
	s.Timer.CoupledLabel = timer.String("coupled_label", s.Timer.CoupledLabel)

	if sections, ok := c.Sections("peripherals"); ok {
		s.Peripherals = make([]PeripheralSettings, 0, len(sections))
		for i, p := range sections {
			kind := p.String("kind", "")
			s.Peripherals = append(s.Peripherals, PeripheralSettings{
				Name:   p.String("name", fmt.Sprintf("%s-%d", kind, i)),
				Kind:   kind,
				Period: p.Duration("period", 0),
				Jitter: p.Bool("jitter", false),
				Seed:   p.Uint64("seed", 0),
				Label:  p.String("label", ""),
			})
		}
	}

	s.Channel.Capacity = c.Section("channel").Int("capacity", s.Channel.Capacity)

	broadcast := c.Section("broadcast")
	s.Broadcast.Enabled = broadcast.Bool("enabled", s.Broadcast.Enabled)
	s.Broadcast.Capacity = broadcast.Int("capacity", s.Broadcast.Capacity)

	monitor := c.Section("monitor")
	s.Monitor.Enabled = monitor.Bool("enabled", s.Monitor.Enabled)
	s.Monitor.ReportInterval = monitor.Duration("report_interval", s.Monitor.ReportInterval)

	logging := c.Section("logging")
	s.Logging.Level = logging.String("level", s.Logging.Level)
	s.Logging.Format = logging.String("format", s.Logging.Format)

	telemetry := c.Section("telemetry")
	s.Telemetry.Metrics = telemetry.Bool("metrics", s.Telemetry.Metrics)
	s.Telemetry.Tracing = telemetry.Bool("tracing", s.Telemetry.Tracing)
	s.Telemetry.TraceExporter = telemetry.String("trace_exporter", s.Telemetry.TraceExporter)

	store := c.Section("store")
	s.Store.Driver = store.String("driver", s.Store.Driver)
	s.Store.Path = store.String("path", s.Store.Path)

	return s
}

// Load reads the file at path (defaults only when path is empty), applies
// MCUSIM_* environment overrides and validates the result.
func Load(path string) (Settings, error) {
	c := New(nil)
	if path != "" {
		var err error
		if c, err = FromFile(path); err != nil {
			return Settings{}, err
		}
	}

	s := Decode(c)
	if err := s.ApplyEnv(os.LookupEnv); err != nil {
		return Settings{}, err
	}
	if err := s.Validate(); err != nil {
		return Settings{}, fmt.Errorf("config validation failed: %w", err)
	}
	return s, nil
}

// ApplyEnv overrides fields from MCUSIM_* variables found through lookup.
// An unparsable value is an error naming the variable.
func (s *Settings) ApplyEnv(lookup func(string) (string, bool)) error {
	overrides := []struct {
		key   string
		apply func(string) error
	}{
		{"TIMER_PERIOD", durationInto(&s.Timer.Period)},
		{"TIMER_MAX_TICKS", uintInto(&s.Timer.MaxTicks)},
		{"TIMER_COUPLED_EVERY", uintInto(&s.Timer.CoupledEvery)},
		{"TIMER_COUPLED_LABEL", stringInto(&s.Timer.CoupledLabel)},
		{"CHANNEL_CAPACITY", intInto(&s.Channel.Capacity)},
		{"BROADCAST_ENABLED", boolInto(&s.Broadcast.Enabled)},
		{"BROADCAST_CAPACITY", intInto(&s.Broadcast.Capacity)},
		{"MONITOR_ENABLED", boolInto(&s.Monitor.Enabled)},
		{"MONITOR_REPORT_INTERVAL", durationInto(&s.Monitor.ReportInterval)},
		{"LOG_LEVEL", stringInto(&s.Logging.Level)},
		{"LOG_FORMAT", stringInto(&s.Logging.Format)},
		{"TELEMETRY_METRICS", boolInto(&s.Telemetry.Metrics)},
		{"TELEMETRY_TRACING", boolInto(&s.Telemetry.Tracing)},
		{"TRACE_EXPORTER", stringInto(&s.Telemetry.TraceExporter)},
		{"STORE_DRIVER", stringInto(&s.Store.Driver)},
		{"STORE_PATH", stringInto(&s.Store.Path)},
	}

	for _, o := range overrides {
		v, ok := lookup(EnvPrefix + o.key)
		if !ok || v == "" {
			continue
		}
		if err := o.apply(v); err != nil {
			return fmt.Errorf("%s%s: %w", EnvPrefix, o.key, err)
		}
	}
	return nil
}

var validate = validator.New()

// Validate checks field constraints and the cross-field rules the tags
// cannot express.
func (s Settings) Validate() error {
	if err := validate.Struct(s); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return err
		}
		msgs := make([]string, 0, len(fieldErrs))
		for _, fe := range fieldErrs {
			msgs = append(msgs, formatFieldError(fe))
		}
		return errors.New(strings.Join(msgs, "; "))
	}

	if s.Broadcast.Enabled && s.Broadcast.Capacity < 1 {
		return errors.New("broadcast.capacity must be at least 1 when broadcast is enabled")
	}
	if s.Timer.CoupledEvery > 0 && s.Timer.CoupledLabel == "" {
		return errors.New("timer.coupled_label is required when timer.coupled_every is set")
	}

	seen := make(map[string]bool, len(s.Peripherals))
	for _, p := range s.Peripherals {
		if seen[p.Name] {
			return fmt.Errorf("peripheral %q declared twice", p.Name)
		}
		seen[p.Name] = true
		if p.Jitter && p.Period < 2 {
			return fmt.Errorf("peripheral %q: jittered period must be at least 2ns", p.Name)
		}
	}
	return nil
}

func formatFieldError(fe validator.FieldError) string {
	field := fe.Namespace()
	if i := strings.IndexByte(field, '.'); i >= 0 {
		field = field[i+1:]
	}
	switch fe.Tag() {
	case "required", "required_if":
		return fmt.Sprintf("%s is required", field)
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
	}
}

func stringInto(dst *string) func(string) error {
	return func(v string) error {
		*dst = v
		return nil
	}
}

func durationInto(dst *time.Duration) func(string) error {
	return func(v string) error {
		d, err := time.ParseDuration(v)
		if err != nil {
			return err
		}
		*dst = d
		return nil
	}
}

func intInto(dst *int) func(string) error {
	return func(v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return err
		}
		*dst = n
		return nil
	}
}

func uintInto(dst *uint64) func(string) error {
	return func(v string) error {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return err
		}
		*dst = n
		return nil
	}
}

func boolInto(dst *bool) func(string) error {
	return func(v string) error {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return err
		}
		*dst = b
		return nil
	}
}
