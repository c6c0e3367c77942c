// internal/app/status_bus.go
package app

import (
	"context"
	"sync"
	"sync/atomic"

	"procurement_digest_bot/internal/domain/status"
)

const defaultStatusBuffer = 64

// StatusSink receives events drained from the StatusBus.
type StatusSink interface {
	HandleStatus(ctx context.Context, event status.Event)
}

// StatusBus is a single-consumer stream of status events. Publishing never
// blocks the pipeline: when the buffer is full the event is dropped and counted.
type StatusBus struct {
	mu      sync.RWMutex
	events  chan status.Event
	closed  bool
	dropped atomic.Int64
}

func NewStatusBus(buffer int) *StatusBus {
	if buffer <= 0 {
		buffer = defaultStatusBuffer
	}
	return &StatusBus{events: make(chan status.Event, buffer)}
}

// Publish queues an event for the consumer.
func (b *StatusBus) Publish(event status.Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}
	select {
	case b.events <- event:
	default:
		b.dropped.Add(1)
	}
}

func (b *StatusBus) Info(message string)    { b.Publish(status.Info(message)) }
func (b *StatusBus) Success(message string) { b.Publish(status.Success(message)) }
func (b *StatusBus) Warning(message string) { b.Publish(status.Warning(message)) }
func (b *StatusBus) Error(message string)   { b.Publish(status.Error(message)) }

// Events is the consumer side of the bus. It is closed by Close.
func (b *StatusBus) Events() <-chan status.Event {
	return b.events
}

// Dropped returns how many events were discarded because the consumer fell behind.
func (b *StatusBus) Dropped() int64 {
	return b.dropped.Load()
}

// Close stops accepting events and closes the stream. Safe to call more than once.
func (b *StatusBus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	close(b.events)
}

// Consume drains the bus into sinks, in order, until the bus is closed or ctx is done.
// It is the bus's only consumer.
func (b *StatusBus) Consume(ctx context.Context, sinks ...StatusSink) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-b.events:
			if !ok {
				return
			}
			for _, sink := range sinks {
				sink.HandleStatus(ctx, event)
			}
		}
	}
}
