// Package waitset implements the wait set: a reusable, resizable container
// that aggregates guard-condition and subscription references for one
// blocking wait cycle.
//
// # State Machine
//
// A WaitSet follows a strict lifecycle:
//
//	Uninitialized → Initialized → Uninitialized
//	      (Init)          (Fini)
//
// All mutating operations except Fini fail on an Uninitialized instance;
// Resize is the one exception, bootstrapping an array without a full Init.
//
// # Wait Cycle
//
// The expected usage is a populate-wait-inspect loop:
//
//	ws, _ := waitset.New(1, 1, waitset.DefaultOptions())
//	defer ws.Fini()
//
//	for {
//	    ws.ClearSubscriptions()
//	    ws.ClearGuardConditions()
//	    ws.AddSubscription(sub)
//	    ws.AddGuardCondition(gc)
//
//	    err := ws.Wait(ctx, 500*time.Millisecond)
//	    if errors.Is(err, waitmux.ErrTimeout) {
//	        continue
//	    }
//	    if err != nil {
//	        return err
//	    }
//
//	    // Slots still non-nil after Wait are ready.
//	    for _, s := range ws.Subscriptions() {
//	        if s != nil {
//	            // take messages from s's owner-side surface
//	        }
//	    }
//	}
//
// After Wait returns, the set is pruned: not-ready slots are nil and adding
// fails until a Clear or Resize. Slots hold borrowed references only - the
// wait set never owns or finalizes the entities it tracks, and entities must
// outlive any wait cycle that references them.
//
// # Concurrency
//
// Operations on one WaitSet must be serialized by its owner; distinct
// instances may be used from distinct goroutines. Wait is additionally
// globally serialized: at most one Wait call is in flight process-wide, even
// across distinct instances, because the underlying wait primitive may hold
// shared, non-reentrant wait state. The package owns that gate; callers never
// see it beyond Wait calls queuing behind each other.
package waitset

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"github.com/smnsjas/go-waitmux"
	"github.com/smnsjas/go-waitmux/alloc"
	"github.com/smnsjas/go-waitmux/driver"
	"github.com/smnsjas/go-waitmux/guard"
	"github.com/smnsjas/go-waitmux/subscription"
)

// waitGate serializes Wait process-wide. The underlying wait primitive may
// hold shared, non-reentrant wait state, so no two WaitMany calls may
// overlap, even from distinct wait sets.
var waitGate = semaphore.NewWeighted(1)

// Options configures a WaitSet.
type Options struct {
	// SubscriptionAllocator provides the subscription slot array. If nil,
	// the default heap allocator is used.
	SubscriptionAllocator alloc.Slots[*subscription.Subscription]
	// GuardAllocator provides the guard-condition slot array. If nil, the
	// default heap allocator is used.
	GuardAllocator alloc.Slots[*guard.Condition]
	// Driver is the underlying wait primitive. If nil, the default
	// in-process channel driver is used.
	Driver driver.Driver
	// Logger receives debug events. Defaults to a no-op logger.
	Logger zerolog.Logger
}

// DefaultOptions returns the default WaitSet options.
func DefaultOptions() Options {
	return Options{
		SubscriptionAllocator: alloc.DefaultSlots[*subscription.Subscription](),
		GuardAllocator:        alloc.DefaultSlots[*guard.Condition](),
		Driver:                driver.Default(),
		Logger:                zerolog.Nop(),
	}
}

// normalize fills nil option fields with their defaults.
func (o Options) normalize() Options {
	if o.SubscriptionAllocator == nil {
		o.SubscriptionAllocator = alloc.DefaultSlots[*subscription.Subscription]()
	}
	if o.GuardAllocator == nil {
		o.GuardAllocator = alloc.DefaultSlots[*guard.Condition]()
	}
	if o.Driver == nil {
		o.Driver = driver.Default()
	}
	return o
}

// WaitSet aggregates borrowed guard-condition and subscription references
// into nullable slots and orchestrates wait cycles over them. The zero value
// is an uninitialized wait set; use Init (or New) or Resize before anything
// else.
//
// A WaitSet is not safe for concurrent use; its owner serializes access.
type WaitSet struct {
	initialized bool

	// Slot arrays hold borrowed references. Entries are either a live
	// reference or nil; the cursors never exceed the capacities.
	subs   []*subscription.Subscription
	guards []*guard.Condition

	subCursor   int
	guardCursor int
	subCap      int
	guardCap    int

	// pruned blocks population between a wait cycle and the next clear.
	pruned bool

	subAlloc   alloc.Slots[*subscription.Subscription]
	guardAlloc alloc.Slots[*guard.Condition]
	drv        driver.Driver
	logger     zerolog.Logger

	// wc is the reusable collection storage handed to the driver each cycle.
	wc *driver.WaitContext

	// Collection scratch mapping wait-context entries back to slot indices.
	subSlots   []int
	guardSlots []int
}

// New allocates a WaitSet and initializes it with the given capacities.
func New(nSubscriptions, nGuardConditions int, opts Options) (*WaitSet, error) {
	ws := &WaitSet{}
	if err := ws.Init(nSubscriptions, nGuardConditions, opts); err != nil {
		return nil, err
	}
	return ws, nil
}

// Init initializes an uninitialized WaitSet: both slot arrays are allocated
// to the requested capacities with all slots nil and cursors zero.
//
// On an allocation failure the wait set is left safely finalizable (call
// Fini; do not assume partial success) and the wrapped cause is returned.
func (w *WaitSet) Init(nSubscriptions, nGuardConditions int, opts Options) error {
	if w == nil {
		return fmt.Errorf("wait set: %w", waitmux.ErrInvalidArgument)
	}
	if w.initialized {
		return fmt.Errorf("wait set: %w", waitmux.ErrAlreadyInitialized)
	}
	if nSubscriptions < 0 || nGuardConditions < 0 {
		return fmt.Errorf("wait set: negative capacity: %w", waitmux.ErrInvalidArgument)
	}

	opts = opts.normalize()
	w.subAlloc = opts.SubscriptionAllocator
	w.guardAlloc = opts.GuardAllocator
	w.drv = opts.Driver
	w.logger = opts.Logger

	subs, err := w.subAlloc.Allocate(nSubscriptions)
	if err != nil {
		return fmt.Errorf("wait set: allocate subscription slots: %w", err)
	}
	w.subs = subs
	w.subCap = nSubscriptions

	guards, err := w.guardAlloc.Allocate(nGuardConditions)
	if err != nil {
		// Leave the subscription array in place for Fini to release.
		return fmt.Errorf("wait set: allocate guard condition slots: %w", err)
	}
	w.guards = guards
	w.guardCap = nGuardConditions

	w.subCursor = 0
	w.guardCursor = 0
	w.pruned = false
	w.wc = driver.NewWaitContext()
	w.initialized = true

	w.logger.Debug().
		Int("subscriptions", nSubscriptions).
		Int("guard_conditions", nGuardConditions).
		Msg("wait set initialized")
	return nil
}

// Fini releases both slot arrays and returns the wait set to the
// uninitialized zero-valued state. Idempotent; a no-op success on a
// zero-valued instance. Re-Init is legal afterwards.
func (w *WaitSet) Fini() error {
	if w == nil {
		return nil
	}

	if w.subs != nil {
		clear(w.subs)
		w.subAlloc.Deallocate(w.subs)
		w.subs = nil
	}
	if w.guards != nil {
		clear(w.guards)
		w.guardAlloc.Deallocate(w.guards)
		w.guards = nil
	}
	if w.wc != nil {
		w.wc.Release()
		w.wc = nil
	}

	if w.initialized {
		w.logger.Debug().Msg("wait set finalized")
	}

	*w = WaitSet{}
	return nil
}

// AddSubscription stores a borrowed reference to s at the next free
// subscription slot and returns the occupied slot index. The wait set does
// not deduplicate; adding the same subscription twice occupies two slots.
func (w *WaitSet) AddSubscription(s *subscription.Subscription) (int, error) {
	if w == nil || !w.initialized {
		return 0, fmt.Errorf("add subscription: %w", waitmux.ErrNotInitialized)
	}
	if !s.Valid() {
		return 0, fmt.Errorf("add subscription: %w", waitmux.ErrInvalidArgument)
	}
	if w.pruned {
		return 0, fmt.Errorf("add subscription: clear required after wait: %w", waitmux.ErrPruned)
	}
	if w.subCursor >= w.subCap {
		return 0, fmt.Errorf("add subscription: %w", waitmux.ErrWaitSetFull)
	}

	idx := w.subCursor
	w.subs[idx] = s
	w.subCursor++
	return idx, nil
}

// AddGuardCondition stores a borrowed reference to g at the next free
// guard-condition slot and returns the occupied slot index.
func (w *WaitSet) AddGuardCondition(g *guard.Condition) (int, error) {
	if w == nil || !w.initialized {
		return 0, fmt.Errorf("add guard condition: %w", waitmux.ErrNotInitialized)
	}
	if !g.Valid() {
		return 0, fmt.Errorf("add guard condition: %w", waitmux.ErrInvalidArgument)
	}
	if w.pruned {
		return 0, fmt.Errorf("add guard condition: clear required after wait: %w", waitmux.ErrPruned)
	}
	if w.guardCursor >= w.guardCap {
		return 0, fmt.Errorf("add guard condition: %w", waitmux.ErrWaitSetFull)
	}

	idx := w.guardCursor
	w.guards[idx] = g
	w.guardCursor++
	return idx, nil
}

// ClearSubscriptions nils every subscription slot and resets that cursor.
// Capacity is unchanged, nothing is deallocated, and the pruned state is
// cleared.
func (w *WaitSet) ClearSubscriptions() error {
	if w == nil || !w.initialized {
		return fmt.Errorf("clear subscriptions: %w", waitmux.ErrNotInitialized)
	}

	clear(w.subs)
	w.subCursor = 0
	w.pruned = false
	return nil
}

// ClearGuardConditions nils every guard-condition slot and resets that
// cursor. Capacity is unchanged, nothing is deallocated, and the pruned
// state is cleared.
func (w *WaitSet) ClearGuardConditions() error {
	if w == nil || !w.initialized {
		return fmt.Errorf("clear guard conditions: %w", waitmux.ErrNotInitialized)
	}

	clear(w.guards)
	w.guardCursor = 0
	w.pruned = false
	return nil
}

// ResizeSubscriptions reallocates the subscription array to exactly size
// slots. All slots end up nil and the cursor resets, whether or not a
// reallocation was needed; a size of zero releases the array entirely.
//
// Resize is legal on an uninitialized wait set: it bootstraps the instance
// with default options. No partial-resize state is ever observable - on an
// allocation failure the array is gone and the wait set remains safely
// finalizable.
func (w *WaitSet) ResizeSubscriptions(size int) error {
	if w == nil {
		return fmt.Errorf("resize subscriptions: %w", waitmux.ErrInvalidArgument)
	}
	if size < 0 {
		return fmt.Errorf("resize subscriptions: negative size: %w", waitmux.ErrInvalidArgument)
	}
	w.bootstrap()

	if size == w.subCap {
		// No reallocation, but resize always clears.
		clear(w.subs)
		w.subCursor = 0
		w.pruned = false
		return nil
	}

	clear(w.subs)
	subs, err := w.subAlloc.Reallocate(w.subs, size)
	if err != nil {
		w.subs = nil
		w.subCap = 0
		w.subCursor = 0
		return fmt.Errorf("resize subscriptions: %w", err)
	}

	w.subs = subs
	w.subCap = size
	w.subCursor = 0
	w.pruned = false

	w.logger.Debug().Int("size", size).Msg("subscription slots resized")
	return nil
}

// ResizeGuardConditions reallocates the guard-condition array to exactly
// size slots, with the same semantics as ResizeSubscriptions.
func (w *WaitSet) ResizeGuardConditions(size int) error {
	if w == nil {
		return fmt.Errorf("resize guard conditions: %w", waitmux.ErrInvalidArgument)
	}
	if size < 0 {
		return fmt.Errorf("resize guard conditions: negative size: %w", waitmux.ErrInvalidArgument)
	}
	w.bootstrap()

	if size == w.guardCap {
		clear(w.guards)
		w.guardCursor = 0
		w.pruned = false
		return nil
	}

	clear(w.guards)
	guards, err := w.guardAlloc.Reallocate(w.guards, size)
	if err != nil {
		w.guards = nil
		w.guardCap = 0
		w.guardCursor = 0
		return fmt.Errorf("resize guard conditions: %w", err)
	}

	w.guards = guards
	w.guardCap = size
	w.guardCursor = 0
	w.pruned = false

	w.logger.Debug().Int("size", size).Msg("guard condition slots resized")
	return nil
}

// bootstrap makes an uninitialized wait set usable with default options, so
// Resize can build an instance without a full Init. Anything already wired
// in (a failed Init leaves its allocators and arrays behind) is kept, so a
// surviving array is still released through the allocator that produced it.
func (w *WaitSet) bootstrap() {
	if w.initialized {
		return
	}

	opts := Options{
		SubscriptionAllocator: w.subAlloc,
		GuardAllocator:        w.guardAlloc,
		Driver:                w.drv,
	}.normalize()
	w.subAlloc = opts.SubscriptionAllocator
	w.guardAlloc = opts.GuardAllocator
	w.drv = opts.Driver
	if w.wc == nil {
		w.wc = driver.NewWaitContext()
	}
	w.initialized = true
}

// Wait blocks until at least one tracked entity becomes ready, the timeout
// elapses, or ctx is cancelled.
//
// A negative timeout (waitmux.Forever) blocks indefinitely; zero polls
// current readiness without blocking; positive blocks up to that duration.
// The timeout value itself is never mutated.
//
// On a nil or waitmux.ErrTimeout return the set has been pruned: every slot
// whose entity did not become ready is nil, ready slots still reference
// their entities, and population is blocked until a Clear or Resize. Wait
// returns nil if at least one entity became ready, waitmux.ErrTimeout if the
// deadline elapsed with nothing ready, and a wrapped error for cancellation
// or driver failure (slots untouched in that case).
//
// Wait is globally serialized: concurrent calls, on this or any other
// instance, queue behind a process-wide gate.
func (w *WaitSet) Wait(ctx context.Context, timeout time.Duration) error {
	if w == nil || !w.initialized {
		return fmt.Errorf("wait: %w", waitmux.ErrNotInitialized)
	}

	// Collect non-nil slots before blocking. nil slots are legal and skipped.
	w.wc.Reset()
	w.subSlots = w.subSlots[:0]
	w.guardSlots = w.guardSlots[:0]

	for i, s := range w.subs {
		if s == nil {
			continue
		}
		h, err := s.Handle()
		if err != nil {
			return fmt.Errorf("wait: subscription slot %d finalized: %w", i, waitmux.ErrInvalidArgument)
		}
		w.wc.AddSubscription(h)
		w.subSlots = append(w.subSlots, i)
	}
	for i, g := range w.guards {
		if g == nil {
			continue
		}
		h, err := g.Handle()
		if err != nil {
			return fmt.Errorf("wait: guard condition slot %d finalized: %w", i, waitmux.ErrInvalidArgument)
		}
		w.wc.AddGuard(h)
		w.guardSlots = append(w.guardSlots, i)
	}

	if len(w.subSlots) == 0 && len(w.guardSlots) == 0 {
		return fmt.Errorf("wait: %w", waitmux.ErrWaitSetEmpty)
	}

	// The underlying wait primitive is not reentrant, even across distinct
	// wait sets. One call in flight process-wide.
	if err := waitGate.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("wait: %w", err)
	}
	defer waitGate.Release(1)

	ready, err := w.drv.WaitMany(ctx, w.wc, timeout)
	if err != nil {
		return fmt.Errorf("wait: %w", err)
	}

	// Prune: not-ready slots go nil, ready slots stay. Population is blocked
	// until the next clear or resize.
	for k, slot := range w.subSlots {
		if !w.wc.SubscriptionReady(k) {
			w.subs[slot] = nil
		}
	}
	for k, slot := range w.guardSlots {
		if !w.wc.GuardReady(k) {
			w.guards[slot] = nil
		}
	}
	w.pruned = true

	w.logger.Debug().
		Int("ready", ready).
		Dur("timeout", timeout).
		Msg("wait cycle complete")

	if ready == 0 {
		return fmt.Errorf("wait: %w", waitmux.ErrTimeout)
	}
	return nil
}

// Initialized reports whether the wait set has been initialized.
func (w *WaitSet) Initialized() bool {
	return w != nil && w.initialized
}

// Pruned reports whether the wait set holds the result of a wait cycle and
// needs a clear or resize before repopulation.
func (w *WaitSet) Pruned() bool {
	return w != nil && w.pruned
}

// SubscriptionCapacity returns the allocated subscription slot count.
func (w *WaitSet) SubscriptionCapacity() int {
	if w == nil {
		return 0
	}
	return w.subCap
}

// GuardConditionCapacity returns the allocated guard-condition slot count.
func (w *WaitSet) GuardConditionCapacity() int {
	if w == nil {
		return 0
	}
	return w.guardCap
}

// Subscriptions returns the live subscription slot array for inspection
// after a wait cycle. The returned slice is a view, valid until the next
// Resize or Fini; callers must not retain it across those.
func (w *WaitSet) Subscriptions() []*subscription.Subscription {
	if w == nil {
		return nil
	}
	return w.subs
}

// GuardConditions returns the live guard-condition slot array for inspection
// after a wait cycle, with the same view semantics as Subscriptions.
func (w *WaitSet) GuardConditions() []*guard.Condition {
	if w == nil {
		return nil
	}
	return w.guards
}
