package waitmux

import (
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/smnsjas/go-waitmux/driver"
)

// Options configures a Context.
type Options struct {
	// Driver is the underlying wait primitive binding. If nil, the default
	// in-process channel driver is used.
	Driver driver.Driver
	// Logger receives debug events. Defaults to a no-op logger.
	Logger zerolog.Logger
}

// DefaultOptions returns the default Context options: the in-process channel
// driver and a no-op logger.
func DefaultOptions() Options {
	return Options{
		Driver: driver.Default(),
		Logger: zerolog.Nop(),
	}
}

// Context is the owning context that guard conditions and subscriptions are
// bound to. Entities are valid only while their owning context is valid;
// after Shutdown, triggering bound entities and initializing new ones fails.
//
// A Context never owns the entities bound to it - it only provides the
// validity check and the driver binding they inherit.
type Context struct {
	mu sync.RWMutex

	id     uuid.UUID
	valid  bool
	driver driver.Driver
	logger zerolog.Logger

	doneCh       chan struct{}
	shutdownOnce sync.Once
}

// NewContext creates a valid Context from the given options.
// Zero-valued Options are usable: the default driver and a no-op logger.
func NewContext(opts Options) *Context {
	drv := opts.Driver
	if drv == nil {
		drv = driver.Default()
	}

	c := &Context{
		id:     uuid.New(),
		valid:  true,
		driver: drv,
		logger: opts.Logger,
		doneCh: make(chan struct{}),
	}

	c.logger.Debug().Stringer("context", c.id).Msg("context created")
	return c
}

// ID returns the unique identifier of the context.
func (c *Context) ID() uuid.UUID {
	if c == nil {
		return uuid.Nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.id
}

// Valid reports whether the context is live. A nil or shut-down context is
// not valid.
func (c *Context) Valid() bool {
	if c == nil {
		return false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.valid
}

// Driver returns the wait primitive binding entities bound to this context
// inherit.
func (c *Context) Driver() driver.Driver {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.driver
}

// Logger returns the context's logger.
func (c *Context) Logger() zerolog.Logger {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.logger
}

// Done returns a channel that is closed when the context is shut down.
func (c *Context) Done() <-chan struct{} {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.doneCh
}

// Shutdown invalidates the context. It is idempotent. After Shutdown returns,
// Valid reports false and entities bound to this context reject triggers and
// new initializations. Entities themselves still require their own Fini.
func (c *Context) Shutdown() error {
	if c == nil {
		return ErrInvalidArgument
	}

	c.shutdownOnce.Do(func() {
		c.mu.Lock()
		c.valid = false
		close(c.doneCh)
		c.mu.Unlock()

		c.logger.Debug().Stringer("context", c.id).Msg("context shut down")
	})

	return nil
}
