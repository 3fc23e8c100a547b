package waitmux

import (
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smnsjas/go-waitmux/driver"
)

func TestNewContextDefaults(t *testing.T) {
	ctx := NewContext(Options{})
	defer ctx.Shutdown()

	assert.True(t, ctx.Valid())
	assert.NotEqual(t, uuid.Nil, ctx.ID())
	assert.NotNil(t, ctx.Driver())
	assert.Same(t, driver.Default(), ctx.Driver())
}

func TestContextShutdown(t *testing.T) {
	ctx := NewContext(DefaultOptions())

	select {
	case <-ctx.Done():
		t.Fatal("done channel closed before shutdown")
	default:
	}

	require.NoError(t, ctx.Shutdown())
	assert.False(t, ctx.Valid())

	select {
	case <-ctx.Done():
	default:
		t.Fatal("done channel not closed after shutdown")
	}

	// Idempotent.
	require.NoError(t, ctx.Shutdown())
	assert.False(t, ctx.Valid())
}

func TestContextNilReceivers(t *testing.T) {
	var ctx *Context
	assert.False(t, ctx.Valid())
	assert.Equal(t, uuid.Nil, ctx.ID())
	assert.ErrorIs(t, ctx.Shutdown(), ErrInvalidArgument)
}

func TestContextInjectedLogger(t *testing.T) {
	out := &testWriter{}
	logger := zerolog.New(out).Level(zerolog.DebugLevel)

	ctx := NewContext(Options{Logger: logger})
	defer ctx.Shutdown()

	assert.Contains(t, out.String(), "context created")
}

type testWriter struct {
	buf []byte
}

func (w *testWriter) Write(p []byte) (int, error) {
	w.buf = append(w.buf, p...)
	return len(p), nil
}

func (w *testWriter) String() string {
	return string(w.buf)
}
