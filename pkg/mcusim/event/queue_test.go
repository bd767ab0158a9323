package event_test

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/mcusim/pkg/mcusim/event"
)

func TestNewQueue_InvalidCapacity(t *testing.T) {
	for _, c := range []int{0, -1} {
		tx, rx, err := event.NewQueue(c)
		assert.ErrorIs(t, err, event.ErrInvalidCapacity)
		assert.Nil(t, tx)
		assert.Nil(t, rx)
	}
}

func TestQueue_FIFO(t *testing.T) {
	ctx := context.Background()
	tx, rx, err := event.NewQueue(4)
	require.NoError(t, err)
	assert.Equal(t, 4, rx.Cap())

	require.NoError(t, tx.Send(ctx, event.Tick{Seq: 1}))
	require.NoError(t, tx.Send(ctx, event.Interrupt{Source: "A"}))
	require.NoError(t, tx.Send(ctx, event.Tick{Seq: 2}))
	assert.Equal(t, 3, rx.Len())

	for _, want := range []event.Event{event.Tick{Seq: 1}, event.Interrupt{Source: "A"}, event.Tick{Seq: 2}} {
		got, err := rx.Recv(ctx)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestQueue_ClosesWhenLastSenderDropped(t *testing.T) {
	ctx := context.Background()
	tx, rx, err := event.NewQueue(4)
	require.NoError(t, err)

	tx2 := tx.Clone()
	require.NoError(t, tx2.Send(ctx, event.Tick{Seq: 1}))
	tx.Close()
	tx.Close()

	got, err := rx.Recv(ctx)
	require.NoError(t, err)
	assert.Equal(t, event.Tick{Seq: 1}, got)

	// tx2 still open: the queue is empty but not closed.
	short, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	_, err = rx.Recv(short)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	require.NoError(t, tx2.Send(ctx, event.Stop{}))
	tx2.Close()

	got, err = rx.Recv(ctx)
	require.NoError(t, err)
	assert.Equal(t, event.Stop{}, got)

	_, err = rx.Recv(ctx)
	assert.ErrorIs(t, err, event.ErrChannelClosed)
}

func TestQueue_ClosedHandleRefuses(t *testing.T) {
	tx, _, err := event.NewQueue(1)
	require.NoError(t, err)

	keep := tx.Clone()
	defer keep.Close()

	tx.Close()
	assert.ErrorIs(t, tx.Send(context.Background(), event.Tick{Seq: 1}), event.ErrSendRefused)
}

func TestQueue_CloneAfterClosed(t *testing.T) {
	tx, rx, err := event.NewQueue(1)
	require.NoError(t, err)
	tx.Close()

	late := tx.Clone()
	assert.ErrorIs(t, late.Send(context.Background(), event.Tick{Seq: 1}), event.ErrSendRefused)
	late.Close()

	_, err = rx.Recv(context.Background())
	assert.ErrorIs(t, err, event.ErrChannelClosed)
}

func TestQueue_ReceiverCloseRefusesSends(t *testing.T) {
	tx, rx, err := event.NewQueue(8)
	require.NoError(t, err)
	defer tx.Close()

	rx.Close()
	rx.Close()

	assert.ErrorIs(t, tx.Send(context.Background(), event.Tick{Seq: 1}), event.ErrSendRefused)
	ok, err := tx.TrySend(event.Tick{Seq: 1})
	assert.False(t, ok)
	assert.ErrorIs(t, err, event.ErrSendRefused)
}

func TestQueue_ReceiverCloseUnblocksFullSend(t *testing.T) {
	ctx := context.Background()
	tx, rx, err := event.NewQueue(1)
	require.NoError(t, err)
	defer tx.Close()

	require.NoError(t, tx.Send(ctx, event.Tick{Seq: 1}))

	done := make(chan error, 1)
	go func() {
		done <- tx.Send(ctx, event.Tick{Seq: 2})
	}()

	select {
	case <-done:
		t.Fatal("send on full queue should block")
	case <-time.After(20 * time.Millisecond):
	}

	rx.Close()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, event.ErrSendRefused)
	case <-time.After(time.Second):
		t.Fatal("blocked send was not released by receiver close")
	}
}

func TestQueue_SendHonorsContext(t *testing.T) {
	tx, _, err := event.NewQueue(1)
	require.NoError(t, err)
	defer tx.Close()

	require.NoError(t, tx.Send(context.Background(), event.Tick{Seq: 1}))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, tx.Send(ctx, event.Tick{Seq: 2}), context.DeadlineExceeded)
}

func TestQueue_TrySendFull(t *testing.T) {
	tx, _, err := event.NewQueue(1)
	require.NoError(t, err)
	defer tx.Close()

	ok, err := tx.TrySend(event.Tick{Seq: 1})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = tx.TrySend(event.Tick{Seq: 2})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestQueue_CapacityOneBackpressure(t *testing.T) {
	ctx := context.Background()
	tx, rx, err := event.NewQueue(1)
	require.NoError(t, err)

	const producers = 4
	const perProducer = 50

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		h := tx.Clone()
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer h.Close()
			for i := 1; i <= perProducer; i++ {
				assert.NoError(t, h.Send(ctx, event.Tick{Seq: uint64(i)}))
			}
		}()
	}
	tx.Close()

	received := 0
	for {
		_, err := rx.Recv(ctx)
		if err != nil {
			assert.ErrorIs(t, err, event.ErrChannelClosed)
			break
		}
		received++
	}
	wg.Wait()

	assert.Equal(t, producers*perProducer, received)
}

func TestQueue_PerProducerOrder(t *testing.T) {
	ctx := context.Background()
	tx, rx, err := event.NewQueue(3)
	require.NoError(t, err)

	const perProducer = 100
	for _, label := range []string{"A", "B"} {
		h := tx.Clone()
		go func(label string) {
			defer h.Close()
			for i := 1; i <= perProducer; i++ {
				if h.Send(ctx, event.Interrupt{Source: fmt.Sprintf("%s:%d", label, i)}) != nil {
					return
				}
			}
		}(label)
	}
	tx.Close()

	last := map[string]int{}
	for {
		evt, err := rx.Recv(ctx)
		if err != nil {
			require.ErrorIs(t, err, event.ErrChannelClosed)
			break
		}
		var label string
		var n int
		_, scanErr := fmt.Sscanf(strings.Replace(evt.(event.Interrupt).Source, ":", " ", 1), "%s %d", &label, &n)
		require.NoError(t, scanErr)
		assert.Equal(t, last[label]+1, n, "producer %s out of order", label)
		last[label] = n
	}

	assert.Equal(t, map[string]int{"A": perProducer, "B": perProducer}, last)
}
