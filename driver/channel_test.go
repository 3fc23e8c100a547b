package driver

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newWaitContext(guards []*GuardHandle, subs []*SubscriptionHandle) *WaitContext {
	wc := NewWaitContext()
	for _, g := range guards {
		wc.AddGuard(g)
	}
	for _, s := range subs {
		wc.AddSubscription(s)
	}
	return wc
}

func TestChannelPollReadyGuard(t *testing.T) {
	d := NewChannel()
	g := d.NewGuard()
	g.Trigger()

	wc := newWaitContext([]*GuardHandle{g}, nil)
	ready, err := d.WaitMany(context.Background(), wc, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, ready)
	assert.True(t, wc.GuardReady(0))

	// The report consumed the trigger.
	assert.False(t, g.Ready())
}

func TestChannelPollNothingReady(t *testing.T) {
	d := NewChannel()
	g := d.NewGuard()

	wc := newWaitContext([]*GuardHandle{g}, nil)
	ready, err := d.WaitMany(context.Background(), wc, 0)
	require.NoError(t, err)
	assert.Zero(t, ready)
	assert.False(t, wc.GuardReady(0))
}

func TestChannelBoundedTimeout(t *testing.T) {
	d := NewChannel()
	g := d.NewGuard()

	wc := newWaitContext([]*GuardHandle{g}, nil)

	start := time.Now()
	ready, err := d.WaitMany(context.Background(), wc, 100*time.Millisecond)
	elapsed := time.Since(start)

	require.NoError(t, err)
	assert.Zero(t, ready)
	assert.GreaterOrEqual(t, elapsed, 100*time.Millisecond)
	assert.Less(t, elapsed, time.Second)
}

func TestChannelWakeDuringBlock(t *testing.T) {
	d := NewChannel()
	g := d.NewGuard()

	go func() {
		time.Sleep(20 * time.Millisecond)
		g.Trigger()
	}()

	wc := newWaitContext([]*GuardHandle{g}, nil)
	ready, err := d.WaitMany(context.Background(), wc, 5*time.Second)
	require.NoError(t, err)
	assert.Equal(t, 1, ready)
	assert.True(t, wc.GuardReady(0))
}

func TestChannelSubscriptionWake(t *testing.T) {
	d := NewChannel()
	s := d.NewSubscription()

	go func() {
		time.Sleep(20 * time.Millisecond)
		s.Notify()
	}()

	wc := newWaitContext(nil, []*SubscriptionHandle{s})
	ready, err := d.WaitMany(context.Background(), wc, 5*time.Second)
	require.NoError(t, err)
	assert.Equal(t, 1, ready)
	assert.True(t, wc.SubscriptionReady(0))

	// Waiting does not retire subscription readiness.
	assert.True(t, s.Ready())
	assert.Equal(t, 1, s.Pending())
}

func TestChannelCollectsCoalescedReadiness(t *testing.T) {
	d := NewChannel()
	g1, g2 := d.NewGuard(), d.NewGuard()
	s := d.NewSubscription()

	g1.Trigger()
	g2.Trigger()
	s.Notify()

	wc := newWaitContext([]*GuardHandle{g1, g2}, []*SubscriptionHandle{s})
	ready, err := d.WaitMany(context.Background(), wc, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, ready)
	assert.True(t, wc.GuardReady(0))
	assert.True(t, wc.GuardReady(1))
	assert.True(t, wc.SubscriptionReady(0))
}

func TestChannelDuplicateGuardEntries(t *testing.T) {
	d := NewChannel()
	g := d.NewGuard()
	other := d.NewGuard()

	// The same handle collected in two entries: one trigger must mark both,
	// with the first entry consuming and the second inheriting.
	g.Trigger()

	wc := newWaitContext([]*GuardHandle{g, other, g}, nil)
	ready, err := d.WaitMany(context.Background(), wc, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, ready)
	assert.True(t, wc.GuardReady(0))
	assert.False(t, wc.GuardReady(1))
	assert.True(t, wc.GuardReady(2))

	// Exactly one consumption happened.
	assert.False(t, g.Ready())
}

func TestChannelContextCancellation(t *testing.T) {
	d := NewChannel()
	g := d.NewGuard()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	wc := newWaitContext([]*GuardHandle{g}, nil)
	_, err := d.WaitMany(ctx, wc, -1)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestChannelStaleWakeTokenTolerated(t *testing.T) {
	d := NewChannel()
	g := d.NewGuard()

	// Leave a token in the wake channel without a corresponding flag, as a
	// consume race would. The waiter must re-sweep, find nothing, and keep
	// blocking until the deadline.
	g.Trigger()
	require.True(t, g.triggered.Swap(false))

	wc := newWaitContext([]*GuardHandle{g}, nil)
	start := time.Now()
	ready, err := d.WaitMany(context.Background(), wc, 50*time.Millisecond)
	require.NoError(t, err)
	assert.Zero(t, ready)
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
}

func TestChannelTriggerJustBeforeDeadline(t *testing.T) {
	d := NewChannel()
	g := d.NewGuard()

	// Set the flag directly without a wake token; only the final deadline
	// re-sweep can observe it.
	go func() {
		time.Sleep(10 * time.Millisecond)
		g.triggered.Store(true)
	}()

	wc := newWaitContext([]*GuardHandle{g}, nil)
	ready, err := d.WaitMany(context.Background(), wc, 60*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, 1, ready)
}

func TestWaitContextReuse(t *testing.T) {
	d := NewChannel()
	g := d.NewGuard()
	wc := NewWaitContext()

	for _n := 0; _n < 3; _n++ {
		wc.Reset()
		wc.AddGuard(g)

		g.Trigger()
		ready, err := d.WaitMany(context.Background(), wc, 0)
		require.NoError(t, err)
		require.Equal(t, 1, ready)
	}

	wc.Release()
	assert.Empty(t, wc.Guards())
	assert.Empty(t, wc.Subscriptions())
}
