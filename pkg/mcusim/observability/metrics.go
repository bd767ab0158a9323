package observability

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MetricsRecorder records simulator metrics.
// Use NewMetricsRecorder() for OTel metrics or NoopMetrics{} when disabled.
type MetricsRecorder interface {
	// RecordDispatch records one event handled by the dispatcher.
	RecordDispatch(ctx context.Context, kind string)

	// RecordFanout records how many subscribers a publish reached.
	RecordFanout(ctx context.Context, receivers int)

	// RecordLag records events skipped by a lagging subscriber.
	RecordLag(ctx context.Context, missed uint64)

	// RecordReport records a monitor report emission.
	RecordReport(ctx context.Context, kind string)

	// RecordRun records a finished run.
	RecordRun(ctx context.Context, reason string, duration time.Duration)
}

// otelMetrics implements MetricsRecorder using OpenTelemetry.
type otelMetrics struct {
	dispatched metric.Int64Counter
	receivers  metric.Int64Histogram
	lagged     metric.Int64Counter
	reports    metric.Int64Counter
	runs       metric.Int64Counter
	runLatency metric.Float64Histogram
}

var (
	defaultMetrics     *otelMetrics
	defaultMetricsOnce sync.Once
	defaultMetricsErr  error
)

// getDefaultMetrics returns the default OTel metrics instance.
// Lazily initializes the metrics on first call.
func getDefaultMetrics() (*otelMetrics, error) {
	defaultMetricsOnce.Do(func() {
		defaultMetrics, defaultMetricsErr = newOtelMetrics(otel.Meter("mcusim"))
	})
	return defaultMetrics, defaultMetricsErr
}

func newOtelMetrics(meter metric.Meter) (*otelMetrics, error) {
	dispatched, err := meter.Int64Counter("mcusim.events.dispatched",
		metric.WithDescription("Number of events handled by the dispatcher"),
	)
	if err != nil {
		return nil, err
	}

	receivers, err := meter.Int64Histogram("mcusim.fanout.receivers",
		metric.WithDescription("Subscribers reached per broadcast publish"),
	)
	if err != nil {
		return nil, err
	}

	lagged, err := meter.Int64Counter("mcusim.fanout.lagged",
		metric.WithDescription("Events skipped by lagging subscribers"),
	)
	if err != nil {
		return nil, err
	}

	reports, err := meter.Int64Counter("mcusim.monitor.reports",
		metric.WithDescription("Number of monitor reports emitted"),
	)
	if err != nil {
		return nil, err
	}

	runs, err := meter.Int64Counter("mcusim.run.count",
		metric.WithDescription("Number of simulation runs"),
	)
	if err != nil {
		return nil, err
	}

	runLatency, err := meter.Float64Histogram("mcusim.run.latency_ms",
		metric.WithDescription("Simulation run duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	return &otelMetrics{
		dispatched: dispatched,
		receivers:  receivers,
		lagged:     lagged,
		reports:    reports,
		runs:       runs,
		runLatency: runLatency,
	}, nil
}

// NewMetricsRecorder returns a MetricsRecorder that uses OpenTelemetry.
// If metrics initialization fails, returns a no-op recorder.
//
// The recorder uses the global OTel meter provider. Configure the provider
// before calling this function:
//
//	import "go.opentelemetry.io/otel"
//	otel.SetMeterProvider(yourProvider)
func NewMetricsRecorder() MetricsRecorder {
	m, err := getDefaultMetrics()
	if err != nil {
		slog.Warn("metrics initialization failed, using no-op recorder",
			slog.String("error", err.Error()))
		return NoopMetrics{}
	}
	return m
}

func (m *otelMetrics) RecordDispatch(ctx context.Context, kind string) {
	m.dispatched.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))
}

func (m *otelMetrics) RecordFanout(ctx context.Context, receivers int) {
	m.receivers.Record(ctx, int64(receivers))
}

func (m *otelMetrics) RecordLag(ctx context.Context, missed uint64) {
	m.lagged.Add(ctx, int64(missed))
}

func (m *otelMetrics) RecordReport(ctx context.Context, kind string) {
	m.reports.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))
}

func (m *otelMetrics) RecordRun(ctx context.Context, reason string, duration time.Duration) {
	attrs := metric.WithAttributes(attribute.String("reason", reason))
	m.runs.Add(ctx, 1, attrs)
	m.runLatency.Record(ctx, float64(duration.Milliseconds()), attrs)
}

// NewProviderMetricsRecorder returns a MetricsRecorder bound to provider
// instead of the global one.
func NewProviderMetricsRecorder(provider metric.MeterProvider) (MetricsRecorder, error) {
	return newOtelMetrics(provider.Meter("mcusim"))
}
