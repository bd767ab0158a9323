package producer_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/mcusim/pkg/mcusim/event"
	"github.com/randalmurphal/mcusim/pkg/mcusim/producer"
)

// drain runs p to completion against a fresh queue and returns every event.
func drain(t *testing.T, p producer.Producer, capacity int) ([]event.Event, error) {
	t.Helper()

	tx, rx, err := event.NewQueue(capacity)
	require.NoError(t, err)

	errCh := make(chan error, 1)
	go func() {
		defer tx.Close()
		errCh <- p.Run(context.Background(), tx)
	}()

	var events []event.Event
	for {
		evt, err := rx.Recv(context.Background())
		if err != nil {
			require.ErrorIs(t, err, event.ErrChannelClosed)
			break
		}
		events = append(events, evt)
	}
	return events, <-errCh
}

func TestNewTimer_Validation(t *testing.T) {
	_, err := producer.NewTimer(producer.TimerConfig{Period: 0, MaxTicks: 1})
	assert.Error(t, err)

	timer, err := producer.NewTimer(producer.TimerConfig{Period: time.Millisecond, CoupledEvery: 3})
	require.NoError(t, err)
	assert.Equal(t, producer.DefaultCoupledLabel, timer.Config().CoupledLabel)
	assert.Equal(t, "timer", timer.Name())
}

func TestTimer_TicksThenStop(t *testing.T) {
	timer, err := producer.NewTimer(producer.TimerConfig{Period: 2 * time.Millisecond, MaxTicks: 5})
	require.NoError(t, err)

	events, err := drain(t, timer, 64)
	require.NoError(t, err)

	assert.Equal(t, []event.Event{
		event.Tick{Seq: 1},
		event.Tick{Seq: 2},
		event.Tick{Seq: 3},
		event.Tick{Seq: 4},
		event.Tick{Seq: 5},
		event.Stop{},
	}, events)
}

func TestTimer_ZeroTicks(t *testing.T) {
	timer, err := producer.NewTimer(producer.TimerConfig{Period: time.Hour, MaxTicks: 0})
	require.NoError(t, err)

	start := time.Now()
	events, err := drain(t, timer, 1)
	require.NoError(t, err)

	assert.Equal(t, []event.Event{event.Stop{}}, events)
	assert.Less(t, time.Since(start), time.Second)
}

func TestTimer_CoupledInterrupts(t *testing.T) {
	timer, err := producer.NewTimer(producer.TimerConfig{
		Period:       time.Millisecond,
		MaxTicks:     20,
		CoupledEvery: 7,
	})
	require.NoError(t, err)

	events, err := drain(t, timer, 4)
	require.NoError(t, err)

	var ticks []uint64
	var irqAfter []uint64
	for i, evt := range events {
		switch e := evt.(type) {
		case event.Tick:
			ticks = append(ticks, e.Seq)
		case event.Interrupt:
			assert.Equal(t, "UART_RX", e.Source)
			prev, ok := events[i-1].(event.Tick)
			require.True(t, ok)
			irqAfter = append(irqAfter, prev.Seq)
		}
	}

	assert.Len(t, ticks, 20)
	assert.Equal(t, []uint64{7, 14}, irqAfter)
	assert.Equal(t, event.Stop{}, events[len(events)-1])
}

func TestTimer_RefusedSendIsGraceful(t *testing.T) {
	tx, rx, err := event.NewQueue(1)
	require.NoError(t, err)
	defer tx.Close()

	rx.Close()

	timer, err := producer.NewTimer(producer.TimerConfig{Period: time.Millisecond, MaxTicks: 100})
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- timer.Run(context.Background(), tx) }()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("timer did not stop after receiver dropped")
	}
}

func TestTimer_Cancel(t *testing.T) {
	tx, _, err := event.NewQueue(64)
	require.NoError(t, err)
	defer tx.Close()

	timer, err := producer.NewTimer(producer.TimerConfig{Period: time.Hour, MaxTicks: 10})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- timer.Run(ctx, tx) }()

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("timer ignored cancellation")
	}
}
