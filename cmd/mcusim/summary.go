package main

import (
	"context"
	"fmt"
	"io"
	"maps"
	"slices"
	"time"

	"github.com/fatih/color"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/randalmurphal/mcusim/pkg/mcusim"
	"github.com/randalmurphal/mcusim/pkg/mcusim/dispatcher"
	"github.com/randalmurphal/mcusim/pkg/mcusim/report"
)

var (
	headerColor = color.New(color.FgCyan, color.Bold)
	labelColor  = color.New(color.FgYellow)
	okColor     = color.New(color.FgGreen)
	warnColor   = color.New(color.FgRed)
)

// printSummary writes the end-of-run summary.
func printSummary(w io.Writer, result *mcusim.Result, metrics map[string]int64) {
	headerColor.Fprintf(w, "\nrun %s\n", result.RunID)

	reason := okColor.Sprint(result.Summary.Reason)
	if result.Summary.Reason != dispatcher.ReasonStopEvent {
		reason = warnColor.Sprint(result.Summary.Reason)
	}
	fmt.Fprintf(w, "  %s %s\n", labelColor.Sprint("stopped:"), reason)
	fmt.Fprintf(w, "  %s %s\n", labelColor.Sprint("duration:"), result.Duration.Round(time.Millisecond))
	fmt.Fprintf(w, "  %s %d (ticks %d, interrupts %d, last tick %d)\n",
		labelColor.Sprint("dispatched:"),
		result.Summary.Events, result.Summary.Ticks, result.Summary.Interrupts, result.Summary.LastTick)

	if r := result.FinalReport; r.Kind != "" {
		printReport(w, r)
	}

	if len(metrics) > 0 {
		fmt.Fprintf(w, "  %s\n", labelColor.Sprint("metrics:"))
		for _, name := range slices.Sorted(maps.Keys(metrics)) {
			fmt.Fprintf(w, "    %-28s %d\n", name, metrics[name])
		}
	}
}

func printReport(w io.Writer, r report.Report) {
	kind := okColor.Sprint(r.Kind)
	if r.Kind != report.KindFinal {
		kind = warnColor.Sprint(r.Kind)
	}
	fmt.Fprintf(w, "  %s %s report #%d: %d ticks\n", labelColor.Sprint("monitor:"), kind, r.Seq, r.TickCount)
	for _, label := range r.Labels() {
		fmt.Fprintf(w, "    %-20s %d\n", label, r.Interrupts[label])
	}
	if r.Missed > 0 {
		fmt.Fprintf(w, "    %s %d\n", warnColor.Sprint("missed:"), r.Missed)
	}
}

// metricTotals sums every integer counter collected by reader. A nil
// reader yields no totals.
func metricTotals(reader *sdkmetric.ManualReader) (map[string]int64, error) {
	if reader == nil {
		return nil, nil
	}

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		return nil, err
	}

	totals := make(map[string]int64)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				continue
			}
			for _, dp := range sum.DataPoints {
				totals[m.Name] += dp.Value
			}
		}
	}
	return totals, nil
}
