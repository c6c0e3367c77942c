package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderSyncBarrier_TimesOutWithoutSignal(t *testing.T) {
	barrier := NewRenderSyncBarrier()
	timeout := 50 * time.Millisecond

	start := time.Now()
	_, err := barrier.Wait(context.Background(), timeout)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSyncTimeout)
	assert.GreaterOrEqual(t, time.Since(start), timeout)
}

func TestRenderSyncBarrier_SignalReleasesWaiter(t *testing.T) {
	barrier := NewRenderSyncBarrier()
	ticket := barrier.Arm()

	go func() {
		time.Sleep(10 * time.Millisecond)
		barrier.Signal("rendered")
	}()

	start := time.Now()
	payload, err := ticket.Wait(context.Background(), 5*time.Second)

	require.NoError(t, err)
	assert.Equal(t, "rendered", payload)
	assert.Less(t, time.Since(start), time.Second)
}

func TestRenderSyncBarrier_SignalBetweenArmAndWait(t *testing.T) {
	barrier := NewRenderSyncBarrier()
	ticket := barrier.Arm()

	require.True(t, barrier.Signal("fast redraw"))

	payload, err := ticket.Wait(context.Background(), time.Second)
	require.NoError(t, err)
	assert.Equal(t, "fast redraw", payload)
}

func TestRenderSyncBarrier_SignalWithoutWaiterIsDropped(t *testing.T) {
	barrier := NewRenderSyncBarrier()

	assert.False(t, barrier.Signal("nobody listening"))

	_, err := barrier.Wait(context.Background(), 20*time.Millisecond)
	assert.ErrorIs(t, err, ErrSyncTimeout, "an earlier signal must not be buffered")
}

func TestRenderSyncBarrier_SignalReleasesOnlyOnce(t *testing.T) {
	barrier := NewRenderSyncBarrier()
	ticket := barrier.Arm()

	assert.True(t, barrier.Signal("first"))
	assert.False(t, barrier.Signal("second"))

	payload, err := ticket.Wait(context.Background(), time.Second)
	require.NoError(t, err)
	assert.Equal(t, "first", payload)
}

func TestRenderSyncBarrier_ArmSupersedesPreviousTicket(t *testing.T) {
	barrier := NewRenderSyncBarrier()
	stale := barrier.Arm()
	current := barrier.Arm()

	require.True(t, barrier.Signal("redraw"))

	payload, err := current.Wait(context.Background(), time.Second)
	require.NoError(t, err)
	assert.Equal(t, "redraw", payload)

	_, err = stale.Wait(context.Background(), 20*time.Millisecond)
	assert.ErrorIs(t, err, ErrSyncTimeout)
}

func TestRenderSyncBarrier_TimeoutDisarms(t *testing.T) {
	barrier := NewRenderSyncBarrier()

	_, err := barrier.Wait(context.Background(), 10*time.Millisecond)
	require.ErrorIs(t, err, ErrSyncTimeout)

	assert.False(t, barrier.Signal("late"), "a late signal after timeout has no waiter")
}

func TestRenderSyncBarrier_ContextCancelled(t *testing.T) {
	barrier := NewRenderSyncBarrier()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := barrier.Wait(ctx, time.Second)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, ErrSyncTimeout)
	assert.False(t, barrier.Signal("late"))
}

func TestRenderTicket_ExpireKeepsLateSignal(t *testing.T) {
	barrier := NewRenderSyncBarrier()
	ticket := barrier.Arm()

	// Signal wins the lock just after the timer fired.
	require.True(t, barrier.Signal("late redraw"))

	payload, ok := ticket.expire()
	require.True(t, ok)
	assert.Equal(t, "late redraw", payload)
	assert.False(t, barrier.Signal("after expiry"), "the ticket is disarmed")
}

func TestRenderTicket_ExpireWithoutSignal(t *testing.T) {
	barrier := NewRenderSyncBarrier()
	ticket := barrier.Arm()

	_, ok := ticket.expire()
	assert.False(t, ok)
	assert.False(t, barrier.Signal("too late"))
}

func TestRenderSyncBarrier_SignalledTicketNeverTimesOut(t *testing.T) {
	for i := 0; i < 200; i++ {
		barrier := NewRenderSyncBarrier()
		ticket := barrier.Arm()
		require.True(t, barrier.Signal("drawn"))

		payload, err := ticket.Wait(context.Background(), time.Nanosecond)
		require.NoError(t, err)
		assert.Equal(t, "drawn", payload)
	}
}
