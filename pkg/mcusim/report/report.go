// Package report defines monitor reports and where they go: sinks that
// receive them as they are produced and stores that keep them per run.
package report

import (
	"maps"
	"slices"
	"time"
)

// Kind classifies a report.
type Kind string

// Report kinds.
const (
	// KindInterim is emitted on every report interval.
	KindInterim Kind = "interim"
	// KindFinal is emitted once when the monitor sees Stop.
	KindFinal Kind = "final"
	// KindAbnormal is emitted when the monitor ends without seeing Stop.
	KindAbnormal Kind = "abnormal"
)

// Report is a snapshot of the monitor's counters.
type Report struct {
	RunID      string            `json:"run_id"`
	Seq        uint64            `json:"seq"`
	Kind       Kind              `json:"kind"`
	TickCount  uint64            `json:"tick_count"`
	Interrupts map[string]uint64 `json:"interrupts"`
	Missed     uint64            `json:"missed"`
	At         time.Time         `json:"at"`
}

// Labels returns the interrupt labels in sorted order.
func (r Report) Labels() []string {
	return slices.Sorted(maps.Keys(r.Interrupts))
}

// TotalInterrupts sums the per-label counts.
func (r Report) TotalInterrupts() uint64 {
	var total uint64
	for _, n := range r.Interrupts {
		total += n
	}
	return total
}

// SameCounts reports whether r and other carry the same tick count and
// interrupt counts. Kind, sequence, time and lag are ignored.
func (r Report) SameCounts(other Report) bool {
	if r.TickCount != other.TickCount || len(r.Interrupts) != len(other.Interrupts) {
		return false
	}
	for label, n := range r.Interrupts {
		if m, ok := other.Interrupts[label]; !ok || m != n {
			return false
		}
	}
	return true
}

// Clone returns a deep copy.
func (r Report) Clone() Report {
	c := r
	c.Interrupts = maps.Clone(r.Interrupts)
	if c.Interrupts == nil {
		c.Interrupts = map[string]uint64{}
	}
	return c
}
