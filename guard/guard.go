// Package guard implements guard conditions: software-triggerable,
// cross-thread readiness signals.
//
// A guard condition is bound to an owning waitmux.Context and is valid only
// while that context is. Triggering is level-triggered and coalescing - any
// number of triggers before the next wait-consumption collapse into a single
// readiness observation.
//
// # Lifecycle
//
// A Condition is a zero-valued placeholder until Init, and returns to that
// state after Fini:
//
//	Zero-valued → Init → valid → Fini → Zero-valued
//
// Re-Init after Fini is legal. Trigger is safe from any number of goroutines,
// but never concurrently with Fini on the same instance - the caller
// guarantees no in-flight triggers when finalizing.
//
// # Usage
//
//	gc, err := guard.New(wctx, guard.DefaultOptions())
//	if err != nil {
//	    return err
//	}
//	defer gc.Fini()
//
//	// From any goroutine:
//	gc.Trigger()
package guard

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/smnsjas/go-waitmux"
	"github.com/smnsjas/go-waitmux/alloc"
	"github.com/smnsjas/go-waitmux/driver"
)

// Options configures a Condition.
type Options struct {
	// Allocator provides the condition's private storage. If nil, the
	// default heap allocator is used.
	Allocator alloc.Slots[*driver.GuardHandle]
	// Logger receives debug events. Defaults to a no-op logger.
	Logger zerolog.Logger
}

// DefaultOptions returns the default Condition options.
func DefaultOptions() Options {
	return Options{
		Allocator: alloc.DefaultSlots[*driver.GuardHandle](),
		Logger:    zerolog.Nop(),
	}
}

// Condition is a guard condition. The zero value is an uninitialized
// placeholder; use Init (or New) before anything else.
type Condition struct {
	mu sync.RWMutex

	owner *waitmux.Context

	// impl is the allocator-provided private storage holding the driver-side
	// signaling primitive. nil while zero-valued or finalized.
	impl      []*driver.GuardHandle
	allocator alloc.Slots[*driver.GuardHandle]
	logger    zerolog.Logger
}

// New allocates a Condition and initializes it against ctx.
func New(ctx *waitmux.Context, opts Options) (*Condition, error) {
	c := &Condition{}
	if err := c.Init(ctx, opts); err != nil {
		return nil, err
	}
	return c, nil
}

// Init initializes a zero-valued Condition against a valid owning context.
// The context reference is borrowed - the condition does not extend its
// lifetime. Not safe concurrently with other lifecycle operations on the
// same instance.
func (c *Condition) Init(ctx *waitmux.Context, opts Options) error {
	if c == nil {
		return fmt.Errorf("guard condition: %w", waitmux.ErrInvalidArgument)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.impl != nil {
		return fmt.Errorf("guard condition: %w", waitmux.ErrAlreadyInitialized)
	}
	if !ctx.Valid() {
		return fmt.Errorf("guard condition: owning context invalid: %w", waitmux.ErrInvalidArgument)
	}

	allocator := opts.Allocator
	if allocator == nil {
		allocator = alloc.DefaultSlots[*driver.GuardHandle]()
	}

	impl, err := allocator.Allocate(1)
	if err != nil {
		return fmt.Errorf("guard condition: allocate storage: %w", err)
	}
	impl[0] = ctx.Driver().NewGuard()

	c.owner = ctx
	c.impl = impl
	c.allocator = allocator
	c.logger = opts.Logger

	c.logger.Debug().
		Stringer("guard", impl[0].ID()).
		Stringer("context", ctx.ID()).
		Msg("guard condition initialized")
	return nil
}

// Fini releases the condition's storage and returns it to the zero-valued
// state. A no-op success on a zero-valued instance. After Fini, Trigger
// fails; re-Init is legal. The caller guarantees no in-flight triggers.
func (c *Condition) Fini() error {
	if c == nil {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.impl == nil {
		return nil
	}

	c.logger.Debug().Stringer("guard", c.impl[0].ID()).Msg("guard condition finalized")

	c.impl[0] = nil
	c.allocator.Deallocate(c.impl)
	c.impl = nil
	c.owner = nil
	c.allocator = nil
	return nil
}

// Trigger marks the condition ready. Safe to call concurrently from any
// number of goroutines. Triggers coalesce: multiple calls before the next
// wait-consumption produce a single readiness observation.
func (c *Condition) Trigger() error {
	if c == nil {
		return fmt.Errorf("trigger: nil guard condition: %w", waitmux.ErrInvalidArgument)
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.impl == nil {
		return fmt.Errorf("trigger: guard condition not initialized: %w", waitmux.ErrInvalidArgument)
	}
	if !c.owner.Valid() {
		return fmt.Errorf("trigger: owning context invalid: %w", waitmux.ErrInvalidArgument)
	}

	c.impl[0].Trigger()
	return nil
}

// Handle returns the driver-side handle used by the wait primitive. The
// handle is valid only as long as the condition is.
func (c *Condition) Handle() (*driver.GuardHandle, error) {
	if c == nil {
		return nil, fmt.Errorf("guard condition handle: %w", waitmux.ErrInvalidArgument)
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.impl == nil {
		return nil, fmt.Errorf("guard condition handle: not initialized: %w", waitmux.ErrInvalidArgument)
	}
	return c.impl[0], nil
}

// Valid reports whether the condition is initialized and its owning context
// is still valid.
func (c *Condition) Valid() bool {
	if c == nil {
		return false
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.impl != nil && c.owner.Valid()
}
