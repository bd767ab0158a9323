// Package event provides the event model and channel primitives of the
// simulated microcontroller core.
//
// # Event Model
//
// Event is a closed union of three variants:
//
//   - Tick: periodic timer event carrying a strictly increasing sequence number
//   - Interrupt: peripheral event carrying an opaque label
//   - Stop: terminal sentinel, emitted at most once per run
//
// Consumers handle every variant through the Visitor interface, so adding a
// variant breaks every consumer at compile time:
//
//	type counter struct{ ticks int }
//
//	func (c *counter) VisitTick(event.Tick)           { c.ticks++ }
//	func (c *counter) VisitInterrupt(event.Interrupt) {}
//	func (c *counter) VisitStop(event.Stop)           {}
//
//	evt.Accept(&counter{})
//
// # Primary Channel
//
// NewQueue returns a bounded multi-producer, single-consumer FIFO. Producers
// block while it is full. Each producer goroutine owns a Sender obtained with
// Clone and closes it on exit; when the last Sender is closed and the buffer
// drained, Recv returns ErrChannelClosed. Closing the Receiver makes every
// Send fail with ErrSendRefused, which producers treat as a stop signal.
//
// # Broadcast Fan-out
//
// Bus delivers each published event to every subscriber. Publish never
// blocks: a full subscriber buffer loses its oldest event, and the
// subscriber learns how many it missed from TakeMissed or from a *LagError
// returned by Recv.
//
//	bus := event.NewBus(event.BusConfig{BufferSize: 64})
//	sub, _ := bus.Subscribe()
//	_, _ = bus.Publish(event.Tick{Seq: 1})
//	evt, err := sub.Recv(ctx)
//
// # Errors
//
// None of the channel errors is fatal. ErrChannelClosed, ErrSendRefused and
// ErrBusClosed end exactly one goroutine's loop; ErrNoSubscribers and
// *LagError are informational.
package event
