package app

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// ErrSyncTimeout is returned when the surface did not report a redraw in time.
// Callers treat it as non-fatal and continue with whatever the surface shows.
var ErrSyncTimeout = fmt.Errorf("timed out waiting for surface redraw")

// DefaultRenderSyncTimeout bounds how long the send workflow waits for a redraw.
const DefaultRenderSyncTimeout = 15 * time.Second

// RenderSyncBarrier is a one-shot wait/signal point between "data is fresh"
// and "pixels are fresh". It supports a single outstanding waiter; a Signal
// with nobody waiting is dropped, not buffered.
type RenderSyncBarrier struct {
	mu      sync.Mutex
	pending chan string
}

// RenderTicket is an armed wait on the barrier.
type RenderTicket struct {
	barrier *RenderSyncBarrier
	ch      chan string
}

func NewRenderSyncBarrier() *RenderSyncBarrier {
	return &RenderSyncBarrier{}
}

// Arm registers the waiter before the redraw is triggered, so a fast
// signal is not lost. Arming again supersedes the previous ticket, which
// will then only ever time out.
func (b *RenderSyncBarrier) Arm() *RenderTicket {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan string, 1)
	b.pending = ch
	return &RenderTicket{barrier: b, ch: ch}
}

// Wait arms the barrier and blocks until Signal, timeout or ctx cancellation.
func (b *RenderSyncBarrier) Wait(ctx context.Context, timeout time.Duration) (string, error) {
	return b.Arm().Wait(ctx, timeout)
}

// Signal releases the pending waiter with payload. It reports whether a waiter was released.
func (b *RenderSyncBarrier) Signal(payload string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.pending == nil {
		return false
	}
	b.pending <- payload // capacity 1, only ever written once
	b.pending = nil
	return true
}

func (b *RenderSyncBarrier) disarm(ch chan string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.pending == ch {
		b.pending = nil
	}
}

// expire disarms the ticket and picks up a signal that landed after the
// timer fired but before the barrier lock was taken.
func (t *RenderTicket) expire() (string, bool) {
	t.barrier.disarm(t.ch)
	select {
	case payload := <-t.ch:
		return payload, true
	default:
		return "", false
	}
}

// Wait blocks until the ticket is signalled, timeout elapses or ctx is done.
func (t *RenderTicket) Wait(ctx context.Context, timeout time.Duration) (string, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case payload := <-t.ch:
		return payload, nil
	case <-timer.C:
		if payload, ok := t.expire(); ok {
			return payload, nil
		}
		return "", fmt.Errorf("%w after %s", ErrSyncTimeout, timeout)
	case <-ctx.Done():
		t.barrier.disarm(t.ch)
		return "", ctx.Err()
	}
}
