package observability

import (
	"context"
	"fmt"
	"io"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Trace exporters understood by NewTracerProvider.
const (
	ExporterNone   = "none"
	ExporterStdout = "stdout"
)

// TracingConfig configures the tracer provider.
type TracingConfig struct {
	// Exporter selects the export backend: "stdout" or "none".
	// With "none" spans are still created for in-process correlation.
	Exporter string

	// Writer receives stdout exporter output. Default: os.Stdout.
	Writer io.Writer

	// ServiceName identifies this process in traces.
	// Default: "mcusim"
	ServiceName string
}

// TracerProvider wraps an SDK provider installed as the global provider.
type TracerProvider struct {
	provider *sdktrace.TracerProvider
}

// NewTracerProvider builds an SDK tracer provider, installs it globally
// and returns it so the caller can flush it with Shutdown.
func NewTracerProvider(cfg TracingConfig) (*TracerProvider, error) {
	var exporter sdktrace.SpanExporter

	switch cfg.Exporter {
	case ExporterStdout:
		opts := []stdouttrace.Option{stdouttrace.WithPrettyPrint()}
		if cfg.Writer != nil {
			opts = append(opts, stdouttrace.WithWriter(cfg.Writer))
		}
		exp, err := stdouttrace.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("create stdout exporter: %w", err)
		}
		exporter = exp
	case ExporterNone, "":
	default:
		return nil, fmt.Errorf("unsupported exporter type: %s", cfg.Exporter)
	}

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "mcusim"
	}

	opts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(resource.NewSchemaless(
			attribute.String("service.name", serviceName),
		)),
	}
	if exporter != nil {
		opts = append(opts, sdktrace.WithBatcher(exporter))
	}

	provider := sdktrace.NewTracerProvider(opts...)
	otel.SetTracerProvider(provider)
	tracer = otel.Tracer("mcusim")

	return &TracerProvider{provider: provider}, nil
}

// Shutdown flushes pending spans and stops the provider.
func (p *TracerProvider) Shutdown(ctx context.Context) error {
	if p == nil || p.provider == nil {
		return nil
	}
	return p.provider.Shutdown(ctx)
}
