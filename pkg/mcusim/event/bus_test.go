package event_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/mcusim/pkg/mcusim/event"
)

func TestBus_FanOut(t *testing.T) {
	bus := event.NewBus(event.BusConfig{BufferSize: 8})
	defer bus.Close()

	a, err := bus.Subscribe()
	require.NoError(t, err)
	b, err := bus.Subscribe()
	require.NoError(t, err)
	assert.NotEqual(t, a.ID(), b.ID())
	assert.Equal(t, 2, bus.SubscriberCount())

	n, err := bus.Publish(event.Tick{Seq: 1})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	ctx := context.Background()
	for _, sub := range []*event.Subscription{a, b} {
		evt, err := sub.Recv(ctx)
		require.NoError(t, err)
		assert.Equal(t, event.Tick{Seq: 1}, evt)
		assert.Equal(t, uint64(1), sub.Stats().Delivered)
	}
	assert.Equal(t, uint64(1), bus.Published())
}

func TestBus_NoSubscribers(t *testing.T) {
	bus := event.NewBus(event.BusConfig{})
	defer bus.Close()

	n, err := bus.Publish(event.Stop{})
	assert.ErrorIs(t, err, event.ErrNoSubscribers)
	assert.Zero(t, n)
}

func TestBus_LateSubscriberMissesEarlierEvents(t *testing.T) {
	bus := event.NewBus(event.BusConfig{BufferSize: 4})
	defer bus.Close()

	early, err := bus.Subscribe()
	require.NoError(t, err)

	_, err = bus.Publish(event.Tick{Seq: 1})
	require.NoError(t, err)

	late, err := bus.Subscribe()
	require.NoError(t, err)

	_, err = bus.Publish(event.Tick{Seq: 2})
	require.NoError(t, err)

	ctx := context.Background()
	evt, err := late.Recv(ctx)
	require.NoError(t, err)
	assert.Equal(t, event.Tick{Seq: 2}, evt)

	assert.Equal(t, 2, early.Stats().Buffered)
}

func TestBus_DropOldest(t *testing.T) {
	var lagged atomic.Uint64
	bus := event.NewBus(event.BusConfig{
		BufferSize: 2,
		OnLag: func(_ string, missed uint64) {
			lagged.Add(missed)
		},
	})
	defer bus.Close()

	sub, err := bus.Subscribe()
	require.NoError(t, err)

	for i := uint64(1); i <= 5; i++ {
		n, err := bus.Publish(event.Tick{Seq: i})
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	}

	assert.Equal(t, uint64(3), lagged.Load())
	stats := sub.Stats()
	assert.Equal(t, uint64(5), stats.Delivered)
	assert.Equal(t, uint64(3), stats.Dropped)
	assert.Equal(t, 2, stats.Buffered)

	ctx := context.Background()

	_, err = sub.Recv(ctx)
	var lag *event.LagError
	require.ErrorAs(t, err, &lag)
	assert.Equal(t, uint64(3), lag.Missed)
	assert.Equal(t, sub.ID(), lag.Subscriber)

	// The newest events survive, in order.
	evt, err := sub.Recv(ctx)
	require.NoError(t, err)
	assert.Equal(t, event.Tick{Seq: 4}, evt)
	evt, err = sub.Recv(ctx)
	require.NoError(t, err)
	assert.Equal(t, event.Tick{Seq: 5}, evt)

	assert.Zero(t, sub.TakeMissed())
}

func TestBus_TakeMissedResets(t *testing.T) {
	bus := event.NewBus(event.BusConfig{BufferSize: 1})
	defer bus.Close()

	sub, err := bus.Subscribe()
	require.NoError(t, err)

	_, _ = bus.Publish(event.Tick{Seq: 1})
	_, _ = bus.Publish(event.Tick{Seq: 2})

	assert.Equal(t, uint64(1), sub.TakeMissed())
	assert.Zero(t, sub.TakeMissed())

	evt := <-sub.C()
	assert.Equal(t, event.Tick{Seq: 2}, evt)
}

func TestBus_SlowSubscriberDoesNotAffectOthers(t *testing.T) {
	bus := event.NewBus(event.BusConfig{BufferSize: 1})
	defer bus.Close()

	slow, err := bus.Subscribe()
	require.NoError(t, err)
	fast, err := bus.Subscribe()
	require.NoError(t, err)

	ctx := context.Background()
	var got []uint64
	for i := uint64(1); i <= 10; i++ {
		_, err := bus.Publish(event.Tick{Seq: i})
		require.NoError(t, err)

		evt, err := fast.Recv(ctx)
		require.NoError(t, err)
		got = append(got, evt.(event.Tick).Seq)
	}

	assert.Equal(t, []uint64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, got)
	assert.Equal(t, uint64(9), slow.Stats().Dropped)
	assert.Zero(t, fast.Stats().Dropped)
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := event.NewBus(event.BusConfig{BufferSize: 4})
	defer bus.Close()

	sub, err := bus.Subscribe()
	require.NoError(t, err)

	_, err = bus.Publish(event.Tick{Seq: 1})
	require.NoError(t, err)

	sub.Unsubscribe()
	sub.Unsubscribe()
	assert.Zero(t, bus.SubscriberCount())

	_, err = bus.Publish(event.Tick{Seq: 2})
	assert.ErrorIs(t, err, event.ErrNoSubscribers)

	// Buffered events drain before closure is reported.
	ctx := context.Background()
	evt, err := sub.Recv(ctx)
	require.NoError(t, err)
	assert.Equal(t, event.Tick{Seq: 1}, evt)

	_, err = sub.Recv(ctx)
	assert.ErrorIs(t, err, event.ErrChannelClosed)
}

func TestBus_Close(t *testing.T) {
	bus := event.NewBus(event.BusConfig{BufferSize: 4})

	sub, err := bus.Subscribe()
	require.NoError(t, err)

	require.NoError(t, bus.Close())
	require.NoError(t, bus.Close())

	_, err = bus.Publish(event.Tick{Seq: 1})
	assert.ErrorIs(t, err, event.ErrBusClosed)

	_, err = bus.Subscribe()
	assert.ErrorIs(t, err, event.ErrBusClosed)

	_, ok := <-sub.C()
	assert.False(t, ok)
	assert.Zero(t, bus.SubscriberCount())
}

func TestBus_RecvHonorsContext(t *testing.T) {
	bus := event.NewBus(event.BusConfig{})
	defer bus.Close()

	sub, err := bus.Subscribe()
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err = sub.Recv(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestBus_ConcurrentPublishAndReceive(t *testing.T) {
	bus := event.NewBus(event.BusConfig{BufferSize: 4})

	const subscribers = 3
	const events = 500

	var wg sync.WaitGroup
	totals := make([]uint64, subscribers)
	for i := 0; i < subscribers; i++ {
		sub, err := bus.Subscribe()
		require.NoError(t, err)

		wg.Add(1)
		go func(i int, sub *event.Subscription) {
			defer wg.Done()
			for range sub.C() {
				totals[i]++
			}
			totals[i] += sub.TakeMissed()
		}(i, sub)
	}

	for i := uint64(1); i <= events; i++ {
		_, err := bus.Publish(event.Tick{Seq: i})
		require.NoError(t, err)
	}
	require.NoError(t, bus.Close())
	wg.Wait()

	// Every event is either received or accounted for as missed.
	for i := range totals {
		assert.Equal(t, uint64(events), totals[i], "subscriber %d", i)
	}
}
