// Package subscription implements the waitable wrapper around message-arrival
// notifications.
//
// The readiness core is payload-blind: a Subscription here is only a blind
// waitable reference with a lifecycle and a driver-side handle. What a ready
// subscription means at the transport level, and how messages are taken, is
// the embedding middleware's business - the transport side produces readiness
// through the handle's Notify, and the subscription owner retires it with
// Consume, neither of which this core ever calls.
//
// Lifecycle and validity rules match guard.Condition: zero-valued until Init,
// back to zero-valued after Fini, valid only while the owning context is.
package subscription

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/smnsjas/go-waitmux"
	"github.com/smnsjas/go-waitmux/alloc"
	"github.com/smnsjas/go-waitmux/driver"
)

// Options configures a Subscription.
type Options struct {
	// Allocator provides the subscription's private storage. If nil, the
	// default heap allocator is used.
	Allocator alloc.Slots[*driver.SubscriptionHandle]
	// Logger receives debug events. Defaults to a no-op logger.
	Logger zerolog.Logger
}

// DefaultOptions returns the default Subscription options.
func DefaultOptions() Options {
	return Options{
		Allocator: alloc.DefaultSlots[*driver.SubscriptionHandle](),
		Logger:    zerolog.Nop(),
	}
}

// Subscription is an opaque waitable message-arrival reference. The zero
// value is an uninitialized placeholder; use Init (or New) before anything
// else.
type Subscription struct {
	mu sync.RWMutex

	owner *waitmux.Context

	// impl is the allocator-provided private storage holding the driver-side
	// notification handle. nil while zero-valued or finalized.
	impl      []*driver.SubscriptionHandle
	allocator alloc.Slots[*driver.SubscriptionHandle]
	logger    zerolog.Logger
}

// New allocates a Subscription and initializes it against ctx.
func New(ctx *waitmux.Context, opts Options) (*Subscription, error) {
	s := &Subscription{}
	if err := s.Init(ctx, opts); err != nil {
		return nil, err
	}
	return s, nil
}

// Init initializes a zero-valued Subscription against a valid owning context.
// Not safe concurrently with other lifecycle operations on the same instance.
func (s *Subscription) Init(ctx *waitmux.Context, opts Options) error {
	if s == nil {
		return fmt.Errorf("subscription: %w", waitmux.ErrInvalidArgument)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.impl != nil {
		return fmt.Errorf("subscription: %w", waitmux.ErrAlreadyInitialized)
	}
	if !ctx.Valid() {
		return fmt.Errorf("subscription: owning context invalid: %w", waitmux.ErrInvalidArgument)
	}

	allocator := opts.Allocator
	if allocator == nil {
		allocator = alloc.DefaultSlots[*driver.SubscriptionHandle]()
	}

	impl, err := allocator.Allocate(1)
	if err != nil {
		return fmt.Errorf("subscription: allocate storage: %w", err)
	}
	impl[0] = ctx.Driver().NewSubscription()

	s.owner = ctx
	s.impl = impl
	s.allocator = allocator
	s.logger = opts.Logger

	s.logger.Debug().
		Stringer("subscription", impl[0].ID()).
		Stringer("context", ctx.ID()).
		Msg("subscription initialized")
	return nil
}

// Fini releases the subscription's storage and returns it to the zero-valued
// state. A no-op success on a zero-valued instance; re-Init is legal.
func (s *Subscription) Fini() error {
	if s == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.impl == nil {
		return nil
	}

	s.logger.Debug().Stringer("subscription", s.impl[0].ID()).Msg("subscription finalized")

	s.impl[0] = nil
	s.allocator.Deallocate(s.impl)
	s.impl = nil
	s.owner = nil
	s.allocator = nil
	return nil
}

// Handle returns the driver-side handle used by the wait primitive. The
// handle is valid only as long as the subscription is.
func (s *Subscription) Handle() (*driver.SubscriptionHandle, error) {
	if s == nil {
		return nil, fmt.Errorf("subscription handle: %w", waitmux.ErrInvalidArgument)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.impl == nil {
		return nil, fmt.Errorf("subscription handle: not initialized: %w", waitmux.ErrInvalidArgument)
	}
	return s.impl[0], nil
}

// Valid reports whether the subscription is initialized and its owning
// context is still valid.
func (s *Subscription) Valid() bool {
	if s == nil {
		return false
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.impl != nil && s.owner.Valid()
}
