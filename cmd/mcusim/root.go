package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/randalmurphal/mcusim/pkg/mcusim"
	"github.com/randalmurphal/mcusim/pkg/mcusim/config"
	"github.com/randalmurphal/mcusim/pkg/mcusim/observability"
	"github.com/randalmurphal/mcusim/pkg/mcusim/report"
)

var errInterrupted = errors.New("run interrupted")

type rootFlags struct {
	configPath      string
	maxTicks        uint64
	tickPeriod      time.Duration
	channelCapacity int
	reportInterval  time.Duration
	noBroadcast     bool
	logFormat       string
	logLevel        string
	storeDriver     string
	storePath       string
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	flags := &rootFlags{}

	cmd := &cobra.Command{
		Use:   "mcusim",
		Short: "Simulate the event plumbing of a microcontroller core",
		Long: `mcusim runs a periodic timer and peripheral generators that feed a single
dispatcher over a bounded channel. Every event is republished on a broadcast
fan-out where a monitor keeps running totals and reports them.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSimulation(cmd, flags)
		},
	}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	f := cmd.PersistentFlags()
	f.StringVarP(&flags.configPath, "config", "c", "", "config file (.yaml, .yml or .json)")
	f.StringVar(&flags.logFormat, "log-format", "", "log format: text, json or console")
	f.StringVar(&flags.logLevel, "log-level", "", "log level: debug, info, warn or error")
	f.StringVar(&flags.storeDriver, "store", "", "report store: none, memory or sqlite")
	f.StringVar(&flags.storePath, "store-path", "", "sqlite report database path")

	rf := cmd.Flags()
	rf.Uint64Var(&flags.maxTicks, "max-ticks", 0, "ticks before the timer emits Stop")
	rf.DurationVar(&flags.tickPeriod, "tick-period", 0, "timer period")
	rf.IntVar(&flags.channelCapacity, "channel-capacity", 0, "primary channel capacity")
	rf.DurationVar(&flags.reportInterval, "report-interval", 0, "interim monitor report interval")
	rf.BoolVar(&flags.noBroadcast, "no-broadcast", false, "run without the fan-out and monitor")

	cmd.AddCommand(newReportsCmd(flags))
	return cmd
}

// loadSettings reads the config file and environment, then applies the
// flags the user actually set.
func loadSettings(cmd *cobra.Command, flags *rootFlags) (config.Settings, error) {
	settings, err := config.Load(flags.configPath)
	if err != nil {
		return config.Settings{}, err
	}

	changed := cmd.Flags().Changed
	if changed("max-ticks") {
		settings.Timer.MaxTicks = flags.maxTicks
	}
	if changed("tick-period") {
		settings.Timer.Period = flags.tickPeriod
	}
	if changed("channel-capacity") {
		settings.Channel.Capacity = flags.channelCapacity
	}
	if changed("report-interval") {
		settings.Monitor.ReportInterval = flags.reportInterval
	}
	if changed("no-broadcast") {
		settings.Broadcast.Enabled = !flags.noBroadcast
	}
	if changed("log-format") {
		settings.Logging.Format = flags.logFormat
	}
	if changed("log-level") {
		settings.Logging.Level = flags.logLevel
	}
	if changed("store") {
		settings.Store.Driver = flags.storeDriver
	}
	if changed("store-path") {
		settings.Store.Path = flags.storePath
	}

	if err := settings.Validate(); err != nil {
		return config.Settings{}, fmt.Errorf("invalid flags: %w", err)
	}
	return settings, nil
}

func runSimulation(cmd *cobra.Command, flags *rootFlags) error {
	settings, err := loadSettings(cmd, flags)
	if err != nil {
		return err
	}

	logger := newLogger(settings.Logging, cmd.ErrOrStderr())

	sim, err := mcusim.FromSettings(settings)
	if err != nil {
		return err
	}

	store, err := openStore(settings.Store)
	if err != nil {
		return err
	}
	if store != nil {
		defer store.Close()
	}

	opts := []mcusim.RunOption{
		mcusim.WithLogger(logger),
		mcusim.WithReportSink(reportSink(logger, store)),
	}

	var reader *sdkmetric.ManualReader
	if settings.Telemetry.Metrics {
		reader = sdkmetric.NewManualReader()
		provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
		defer func() { _ = provider.Shutdown(context.Background()) }()

		recorder, err := observability.NewProviderMetricsRecorder(provider)
		if err != nil {
			return fmt.Errorf("init metrics: %w", err)
		}
		opts = append(opts, mcusim.WithMetrics(recorder))
	}

	if settings.Telemetry.Tracing {
		tp, err := observability.NewTracerProvider(observability.TracingConfig{
			Exporter: settings.Telemetry.TraceExporter,
			Writer:   cmd.ErrOrStderr(),
		})
		if err != nil {
			return fmt.Errorf("init tracing: %w", err)
		}
		defer func() {
			if err := tp.Shutdown(context.Background()); err != nil {
				logger.Warn("trace flush failed", slog.String("error", err.Error()))
			}
		}()
		opts = append(opts, mcusim.WithTracing(true))
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	result, runErr := sim.Run(ctx, opts...)
	if result == nil {
		return runErr
	}

	totals, err := metricTotals(reader)
	if err != nil {
		logger.Warn("metrics collection failed", slog.String("error", err.Error()))
	}
	printSummary(cmd.OutOrStdout(), result, totals)

	if runErr != nil {
		return fmt.Errorf("%w: %v", errInterrupted, runErr)
	}
	return nil
}

// reportSink logs every report and, with a store, persists it too.
func reportSink(logger *slog.Logger, store report.Store) report.Sink {
	sinks := report.MultiSink{report.LogSink{Logger: logger}}
	if store != nil {
		sinks = append(sinks, report.StoreSink{Store: store})
	}
	return sinks
}
