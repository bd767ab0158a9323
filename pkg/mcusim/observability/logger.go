// Package observability provides structured logging, metrics and tracing
// for the simulator.
//
// Features:
//   - Structured logging via slog
//   - Metrics via OpenTelemetry
//   - Tracing via OpenTelemetry
//
// All helpers are nil-safe, and metrics and tracing have no-op
// implementations for when they are disabled.
package observability

import (
	"log/slog"
	"slices"
	"time"
)

// EnrichLogger adds run context to a logger.
// Returns a new logger with run_id and component fields.
//
// Example:
//
//	enriched := EnrichLogger(logger, "0192...", "monitor")
//	enriched.Info("report") // includes run_id, component
func EnrichLogger(logger *slog.Logger, runID, component string) *slog.Logger {
	if logger == nil {
		return nil
	}
	return logger.With(
		slog.String("run_id", runID),
		slog.String("component", component),
	)
}

// LogRunStart logs the start of a simulation run.
func LogRunStart(logger *slog.Logger, runID string, producers int, broadcast bool) {
	if logger == nil {
		return
	}
	logger.Info("simulation starting",
		slog.String("run_id", runID),
		slog.Int("producers", producers),
		slog.Bool("broadcast", broadcast),
	)
}

// LogRunComplete logs the end of a simulation run.
func LogRunComplete(logger *slog.Logger, runID, reason string, events uint64, durationMs float64) {
	if logger == nil {
		return
	}
	logger.Info("simulation finished",
		slog.String("run_id", runID),
		slog.String("reason", reason),
		slog.Uint64("events", events),
		slog.Float64("duration_ms", durationMs),
	)
}

// LogTick logs a dispatched tick.
func LogTick(logger *slog.Logger, seq uint64) {
	if logger == nil {
		return
	}
	logger.Info("tick", slog.Uint64("seq", seq))
}

// LogInterrupt logs a dispatched peripheral interrupt.
func LogInterrupt(logger *slog.Logger, source string) {
	if logger == nil {
		return
	}
	logger.Info("peripheral interrupt", slog.String("source", source))
}

// LogStop logs the stop request.
func LogStop(logger *slog.Logger) {
	if logger == nil {
		return
	}
	logger.Info("simulation stop requested")
}

// LogReport logs a monitor report: total ticks and one count per label,
// labels in sorted order.
func LogReport(logger *slog.Logger, kind string, seq, ticks uint64, interrupts map[string]uint64, missed uint64) {
	if logger == nil {
		return
	}

	labels := make([]string, 0, len(interrupts))
	for label := range interrupts {
		labels = append(labels, label)
	}
	slices.Sort(labels)

	counts := make([]any, 0, len(labels))
	for _, label := range labels {
		counts = append(counts, slog.Uint64(label, interrupts[label]))
	}

	logger.Info("system monitor report",
		slog.String("kind", kind),
		slog.Uint64("seq", seq),
		slog.Uint64("total_ticks", ticks),
		slog.Group("interrupts", counts...),
		slog.Uint64("missed", missed),
	)
}

// LogLag logs events skipped by a lagging subscriber (non-fatal).
func LogLag(logger *slog.Logger, subscriber string, missed uint64) {
	if logger == nil {
		return
	}
	logger.Warn("subscriber lagged",
		slog.String("subscriber", subscriber),
		slog.Uint64("missed", missed),
	)
}

// LogProducerExit logs a producer leaving its loop.
func LogProducerExit(logger *slog.Logger, producer, reason string) {
	if logger == nil {
		return
	}
	logger.Info("producer stopped",
		slog.String("producer", producer),
		slog.String("reason", reason),
	)
}

// LogSinkError logs a failed report delivery (non-fatal).
func LogSinkError(logger *slog.Logger, kind string, err error) {
	if logger == nil {
		return
	}
	logger.Warn("report sink failed",
		slog.String("kind", kind),
		slog.String("error", err.Error()),
	)
}

// TimedOperation measures the duration of an operation.
// Returns a function that, when called, returns the elapsed time in milliseconds.
//
// Example:
//
//	done := TimedOperation()
//	// ... do work ...
//	durationMs := done()
func TimedOperation() func() float64 {
	start := time.Now()
	return func() float64 {
		return float64(time.Since(start).Milliseconds())
	}
}
