package driver

import (
	"context"
	"reflect"
	"time"
)

// Driver is the underlying wait primitive. It creates the driver-side
// handles entities are built on and performs the actual block-with-timeout
// over a collected handle set.
type Driver interface {
	// NewGuard creates the signaling primitive behind a guard condition.
	NewGuard() *GuardHandle

	// NewSubscription creates the notification handle behind a subscription.
	NewSubscription() *SubscriptionHandle

	// WaitMany blocks until at least one collected handle is ready, the
	// timeout elapses, or ctx is cancelled. A negative timeout blocks
	// indefinitely; zero polls without blocking.
	//
	// On a nil error WaitMany has filled wc's readiness marks and returns the
	// number of ready handles; zero ready with a nil error means timeout.
	// Guard readiness is consumed by the report; subscription readiness is
	// not.
	//
	// Callers guarantee at most one WaitMany call is in flight process-wide.
	WaitMany(ctx context.Context, wc *WaitContext, timeout time.Duration) (int, error)
}

// WaitContext is the reusable per-wait-set collection storage handed to
// WaitMany: the handles collected for one cycle and, on return, the per-handle
// readiness marks. A wait set creates one at init, resets it each cycle and
// releases it at fini, so steady-state wait cycles do not allocate.
type WaitContext struct {
	guards []*GuardHandle
	subs   []*SubscriptionHandle

	guardReady []bool
	subReady   []bool

	// Select scratch for the channel driver.
	selCases []reflect.SelectCase
}

// NewWaitContext creates an empty wait context.
func NewWaitContext() *WaitContext {
	return &WaitContext{}
}

// Reset empties the collection for the next cycle, retaining storage.
func (wc *WaitContext) Reset() {
	wc.guards = wc.guards[:0]
	wc.subs = wc.subs[:0]
	wc.guardReady = wc.guardReady[:0]
	wc.subReady = wc.subReady[:0]
	wc.selCases = wc.selCases[:0]
}

// Release drops all retained storage. The context is reusable afterwards.
func (wc *WaitContext) Release() {
	wc.guards = nil
	wc.subs = nil
	wc.guardReady = nil
	wc.subReady = nil
	wc.selCases = nil
}

// AddGuard collects a guard handle for the next WaitMany call.
func (wc *WaitContext) AddGuard(h *GuardHandle) {
	wc.guards = append(wc.guards, h)
	wc.guardReady = append(wc.guardReady, false)
}

// AddSubscription collects a subscription handle for the next WaitMany call.
func (wc *WaitContext) AddSubscription(h *SubscriptionHandle) {
	wc.subs = append(wc.subs, h)
	wc.subReady = append(wc.subReady, false)
}

// Guards returns the collected guard handles, in collection order.
func (wc *WaitContext) Guards() []*GuardHandle {
	return wc.guards
}

// Subscriptions returns the collected subscription handles, in collection order.
func (wc *WaitContext) Subscriptions() []*SubscriptionHandle {
	return wc.subs
}

// GuardReady reports whether the i-th collected guard became ready.
func (wc *WaitContext) GuardReady(i int) bool {
	return wc.guardReady[i]
}

// SubscriptionReady reports whether the i-th collected subscription became ready.
func (wc *WaitContext) SubscriptionReady(i int) bool {
	return wc.subReady[i]
}

// MarkGuardReady records readiness for the i-th collected guard.
// For Driver implementations.
func (wc *WaitContext) MarkGuardReady(i int) {
	wc.guardReady[i] = true
}

// MarkSubscriptionReady records readiness for the i-th collected subscription.
// For Driver implementations.
func (wc *WaitContext) MarkSubscriptionReady(i int) {
	wc.subReady[i] = true
}
