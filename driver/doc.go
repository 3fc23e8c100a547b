// Package driver defines the underlying wait primitive boundary.
//
// The wait set delegates all actual blocking to a Driver: it collects the
// non-nil handles of its slots into a WaitContext and calls WaitMany, which
// blocks per the timeout semantics and marks, per handle, whether it became
// ready. The wait set then prunes its slots from those marks. Nothing above
// this package interprets what readiness means at the transport level.
//
// # Handles
//
//   - GuardHandle: a level-triggered, coalescing software signal. Trigger is
//     safe from any number of goroutines; triggers before the next readiness
//     report collapse into a single observation, and the report consumes it.
//   - SubscriptionHandle: a message-arrival notification handle. The transport
//     side calls Notify when a message arrives; the entity owner retires
//     notifications with Consume. Readiness is level-triggered at the pending
//     count and is not consumed by waiting.
//
// # Reentrancy
//
// WaitMany implementations may hold shared, non-reentrant wait state; callers
// guarantee at most one WaitMany call is in flight process-wide. The wait-set
// layer owns that gate.
//
// # Default Driver
//
// Channel is the in-process default: handles are woken through single-token
// wake channels and WaitMany multiplexes them with reflect.Select. Embedders
// backed by a real middleware layer substitute their own Driver.
package driver
