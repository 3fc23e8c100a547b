package driver

import (
	"sync/atomic"

	"github.com/google/uuid"
)

// GuardHandle is the driver-side signaling primitive behind a guard
// condition: an atomic readiness flag plus a single-token wake channel.
//
// The flag is authoritative; the wake token only exists to unblock a waiter.
// Trigger sets the flag and hands off at most one token, so any number of
// triggers before the next Consume coalesce into one readiness observation.
type GuardHandle struct {
	id        uuid.UUID
	triggered atomic.Bool
	wakeCh    chan struct{}
}

// NewGuardHandle creates an untriggered guard handle.
func NewGuardHandle() *GuardHandle {
	return &GuardHandle{
		id:     uuid.New(),
		wakeCh: make(chan struct{}, 1),
	}
}

// ID returns the unique identifier of the handle.
func (h *GuardHandle) ID() uuid.UUID {
	return h.id
}

// Trigger marks the handle ready. Safe to call concurrently from any number
// of goroutines.
func (h *GuardHandle) Trigger() {
	h.triggered.Store(true)

	// Hand off a wake token; a token already in flight wakes the waiter anyway.
	select {
	case h.wakeCh <- struct{}{}:
	default:
	}
}

// Ready reports current readiness without consuming it.
func (h *GuardHandle) Ready() bool {
	return h.triggered.Load()
}

// Consume retires the current readiness, reporting whether the handle was
// ready. A trigger racing with Consume may leave the flag set for the next
// sweep; it is never lost.
func (h *GuardHandle) Consume() bool {
	if !h.triggered.Swap(false) {
		return false
	}

	// Drain a stale wake token so an already-retired trigger does not wake
	// the next wait cycle spuriously.
	select {
	case <-h.wakeCh:
	default:
	}
	return true
}

// WakeChan returns the wake channel drivers block on. Receiving a token is
// only a hint to re-sweep; the readiness flag is authoritative.
func (h *GuardHandle) WakeChan() <-chan struct{} {
	return h.wakeCh
}

// SubscriptionHandle is the driver-side message-arrival notification handle:
// a pending-notification counter plus a single-token wake channel.
//
// The transport side calls Notify when a message arrives; the subscription
// owner retires notifications with Consume after taking messages. Waiting
// never consumes readiness - a subscription stays ready while messages are
// pending.
type SubscriptionHandle struct {
	id      uuid.UUID
	pending atomic.Int64
	wakeCh  chan struct{}
}

// NewSubscriptionHandle creates a handle with no pending notifications.
func NewSubscriptionHandle() *SubscriptionHandle {
	return &SubscriptionHandle{
		id:     uuid.New(),
		wakeCh: make(chan struct{}, 1),
	}
}

// ID returns the unique identifier of the handle.
func (h *SubscriptionHandle) ID() uuid.UUID {
	return h.id
}

// Notify records an arrived message and wakes any waiter. Safe to call
// concurrently from any number of goroutines.
func (h *SubscriptionHandle) Notify() {
	h.pending.Add(1)

	select {
	case h.wakeCh <- struct{}{}:
	default:
	}
}

// Ready reports whether notifications are pending.
func (h *SubscriptionHandle) Ready() bool {
	return h.pending.Load() > 0
}

// Pending returns the number of pending notifications.
func (h *SubscriptionHandle) Pending() int {
	return int(h.pending.Load())
}

// Consume retires one pending notification, reporting whether one was
// pending. Called by the subscription owner after taking a message, not by
// the wait path.
func (h *SubscriptionHandle) Consume() bool {
	for {
		n := h.pending.Load()
		if n <= 0 {
			return false
		}
		if h.pending.CompareAndSwap(n, n-1) {
			return true
		}
	}
}

// WakeChan returns the wake channel drivers block on.
func (h *SubscriptionHandle) WakeChan() <-chan struct{} {
	return h.wakeCh
}
