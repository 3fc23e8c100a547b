package subscription

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smnsjas/go-waitmux"
)

func newTestContext(t *testing.T) *waitmux.Context {
	t.Helper()
	ctx := waitmux.NewContext(waitmux.DefaultOptions())
	t.Cleanup(func() { _ = ctx.Shutdown() })
	return ctx
}

func TestSubscriptionLifecycle(t *testing.T) {
	ctx := newTestContext(t)

	var sub Subscription
	assert.False(t, sub.Valid())

	require.NoError(t, sub.Init(ctx, DefaultOptions()))
	assert.True(t, sub.Valid())

	require.NoError(t, sub.Fini())
	assert.False(t, sub.Valid())

	require.NoError(t, sub.Init(ctx, DefaultOptions()))
	require.NoError(t, sub.Fini())
}

func TestSubscriptionInitTwice(t *testing.T) {
	ctx := newTestContext(t)

	sub, err := New(ctx, DefaultOptions())
	require.NoError(t, err)
	defer sub.Fini()

	assert.ErrorIs(t, sub.Init(ctx, DefaultOptions()), waitmux.ErrAlreadyInitialized)
}

func TestSubscriptionInitInvalidContext(t *testing.T) {
	var sub Subscription
	assert.ErrorIs(t, sub.Init(nil, DefaultOptions()), waitmux.ErrInvalidArgument)

	down := waitmux.NewContext(waitmux.DefaultOptions())
	require.NoError(t, down.Shutdown())
	assert.ErrorIs(t, sub.Init(down, DefaultOptions()), waitmux.ErrInvalidArgument)
}

func TestSubscriptionFiniZeroValued(t *testing.T) {
	var sub Subscription
	require.NoError(t, sub.Fini())
	require.NoError(t, sub.Fini())

	var nilSub *Subscription
	require.NoError(t, nilSub.Fini())
}

func TestSubscriptionNotificationSurface(t *testing.T) {
	ctx := newTestContext(t)

	sub, err := New(ctx, DefaultOptions())
	require.NoError(t, err)
	defer sub.Fini()

	h, err := sub.Handle()
	require.NoError(t, err)

	// Transport side produces readiness; owner side retires it. The core
	// never calls either - this just exercises the collaborator surface.
	h.Notify()
	h.Notify()
	assert.Equal(t, 2, h.Pending())
	assert.True(t, h.Consume())
	assert.True(t, h.Consume())
	assert.False(t, h.Ready())
}

func TestSubscriptionHandleInvalid(t *testing.T) {
	var zero Subscription
	_, err := zero.Handle()
	assert.ErrorIs(t, err, waitmux.ErrInvalidArgument)

	ctx := newTestContext(t)
	sub, err := New(ctx, DefaultOptions())
	require.NoError(t, err)
	require.NoError(t, sub.Fini())

	_, err = sub.Handle()
	assert.ErrorIs(t, err, waitmux.ErrInvalidArgument)
}
