package event_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/randalmurphal/mcusim/pkg/mcusim/event"
)

type recordingVisitor struct {
	ticks      []uint64
	interrupts []string
	stops      int
}

func (r *recordingVisitor) VisitTick(t event.Tick)           { r.ticks = append(r.ticks, t.Seq) }
func (r *recordingVisitor) VisitInterrupt(i event.Interrupt) { r.interrupts = append(r.interrupts, i.Source) }
func (r *recordingVisitor) VisitStop(event.Stop)             { r.stops++ }

func TestEvent_Kinds(t *testing.T) {
	tests := []struct {
		evt  event.Event
		kind event.Kind
		name string
		str  string
	}{
		{event.Tick{Seq: 7}, event.KindTick, "tick", "Tick(7)"},
		{event.Interrupt{Source: "UART_BYTE:3"}, event.KindInterrupt, "interrupt", `Interrupt("UART_BYTE:3")`},
		{event.Stop{}, event.KindStop, "stop", "Stop"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.kind, tt.evt.Kind())
			assert.Equal(t, tt.name, tt.evt.Kind().String())
			assert.Equal(t, tt.str, tt.evt.String())
		})
	}

	assert.Equal(t, "unknown", event.Kind(0).String())
}

func TestEvent_Accept(t *testing.T) {
	v := &recordingVisitor{}
	for _, evt := range []event.Event{
		event.Tick{Seq: 1},
		event.Interrupt{Source: "GPIO_STATE:true"},
		event.Tick{Seq: 2},
		event.Stop{},
	} {
		evt.Accept(v)
	}

	assert.Equal(t, []uint64{1, 2}, v.ticks)
	assert.Equal(t, []string{"GPIO_STATE:true"}, v.interrupts)
	assert.Equal(t, 1, v.stops)
}

func TestMatch(t *testing.T) {
	var got string
	match := func(evt event.Event) {
		event.Match(evt,
			func(tk event.Tick) { got = fmt.Sprintf("tick %d", tk.Seq) },
			func(i event.Interrupt) { got = "irq " + i.Source },
			func(event.Stop) { got = "stop" },
		)
	}

	match(event.Tick{Seq: 4})
	assert.Equal(t, "tick 4", got)
	match(event.Interrupt{Source: "X"})
	assert.Equal(t, "irq X", got)
	match(event.Stop{})
	assert.Equal(t, "stop", got)
}

func TestIsStop(t *testing.T) {
	assert.True(t, event.IsStop(event.Stop{}))
	assert.False(t, event.IsStop(event.Tick{Seq: 1}))
	assert.False(t, event.IsStop(nil))
}

func TestLagError(t *testing.T) {
	var err error = &event.LagError{Subscriber: "s1", Missed: 3}

	assert.True(t, errors.Is(err, event.ErrSubscriberLag))
	assert.Contains(t, err.Error(), "3 events skipped")

	var lag *event.LagError
	assert.True(t, errors.As(fmt.Errorf("recv: %w", err), &lag))
	assert.Equal(t, uint64(3), lag.Missed)
}

func TestIsTerminal(t *testing.T) {
	assert.True(t, event.IsTerminal(event.ErrChannelClosed))
	assert.True(t, event.IsTerminal(fmt.Errorf("send: %w", event.ErrSendRefused)))
	assert.True(t, event.IsTerminal(event.ErrBusClosed))
	assert.False(t, event.IsTerminal(event.ErrNoSubscribers))
	assert.False(t, event.IsTerminal(&event.LagError{Missed: 1}))
}
