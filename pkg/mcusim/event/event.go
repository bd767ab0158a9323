package event

import (
	"fmt"
	"strconv"
)

// Kind identifies an event variant.
type Kind uint8

// Event kinds.
const (
	KindTick Kind = iota + 1
	KindInterrupt
	KindStop
)

// String returns the kind name used in logs and metric attributes.
func (k Kind) String() string {
	switch k {
	case KindTick:
		return "tick"
	case KindInterrupt:
		return "interrupt"
	case KindStop:
		return "stop"
	default:
		return "unknown"
	}
}

// Event is the closed set of messages producers may emit.
// The only implementations are Tick, Interrupt and Stop.
type Event interface {
	// Kind returns the variant tag.
	Kind() Kind

	// Accept calls the Visitor method matching the variant.
	Accept(v Visitor)

	// String renders the event for logs.
	String() string

	sealed()
}

// Visitor handles every event variant. Implementing it is how consumers
// get a compile-time guarantee that no variant is silently ignored.
type Visitor interface {
	VisitTick(Tick)
	VisitInterrupt(Interrupt)
	VisitStop(Stop)
}

// Tick is a periodic timer event. Seq starts at 1 and increases by exactly
// one per emission for the lifetime of a timer.
type Tick struct {
	Seq uint64 `json:"seq"`
}

// Kind returns KindTick.
func (Tick) Kind() Kind { return KindTick }

// Accept calls v.VisitTick.
func (t Tick) Accept(v Visitor) { v.VisitTick(t) }

func (t Tick) String() string { return "Tick(" + strconv.FormatUint(t.Seq, 10) + ")" }

func (Tick) sealed() {}

// Interrupt is a peripheral event. Source is an opaque label that may carry
// both the origin and the content of the interrupt (e.g. "UART_BYTE:3").
type Interrupt struct {
	Source string `json:"source"`
}

// Kind returns KindInterrupt.
func (Interrupt) Kind() Kind { return KindInterrupt }

// Accept calls v.VisitInterrupt.
func (i Interrupt) Accept(v Visitor) { v.VisitInterrupt(i) }

func (i Interrupt) String() string { return fmt.Sprintf("Interrupt(%q)", i.Source) }

func (Interrupt) sealed() {}

// Stop is the terminal sentinel. At most one is produced per run.
type Stop struct{}

// Kind returns KindStop.
func (Stop) Kind() Kind { return KindStop }

// Accept calls v.VisitStop.
func (s Stop) Accept(v Visitor) { v.VisitStop(s) }

func (Stop) String() string { return "Stop" }

func (Stop) sealed() {}

// Match dispatches evt to the function for its variant. All three functions
// must be non-nil.
func Match(evt Event, onTick func(Tick), onInterrupt func(Interrupt), onStop func(Stop)) {
	evt.Accept(funcVisitor{onTick: onTick, onInterrupt: onInterrupt, onStop: onStop})
}

type funcVisitor struct {
	onTick      func(Tick)
	onInterrupt func(Interrupt)
	onStop      func(Stop)
}

func (f funcVisitor) VisitTick(t Tick)           { f.onTick(t) }
func (f funcVisitor) VisitInterrupt(i Interrupt) { f.onInterrupt(i) }
func (f funcVisitor) VisitStop(s Stop)           { f.onStop(s) }

// IsStop reports whether evt is the terminal sentinel.
func IsStop(evt Event) bool {
	return evt != nil && evt.Kind() == KindStop
}
