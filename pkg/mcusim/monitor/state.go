package monitor

import (
	"maps"

	"github.com/randalmurphal/mcusim/pkg/mcusim/event"
)

// State holds the monitor's running counters. It is owned by one goroutine
// and only leaves it as a copy.
type State struct {
	TickCount  uint64
	Interrupts map[string]uint64
	Missed     uint64
}

// NewState returns zeroed counters.
func NewState() *State {
	return &State{Interrupts: make(map[string]uint64)}
}

// VisitTick counts a tick.
func (s *State) VisitTick(event.Tick) {
	s.TickCount++
}

// VisitInterrupt counts an interrupt under its label.
func (s *State) VisitInterrupt(i event.Interrupt) {
	s.Interrupts[i.Source]++
}

// VisitStop does not change the counters.
func (s *State) VisitStop(event.Stop) {}

// Observe applies evt to the counters.
func (s *State) Observe(evt event.Event) {
	evt.Accept(s)
}

// AddMissed records events lost to subscriber lag.
func (s *State) AddMissed(n uint64) {
	s.Missed += n
}

// Counts returns a copy of the interrupt counts.
func (s *State) Counts() map[string]uint64 {
	return maps.Clone(s.Interrupts)
}
