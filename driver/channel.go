package driver

import (
	"context"
	"fmt"
	"reflect"
	"time"
)

// defaultDriver is shared by everything that does not inject its own.
var defaultDriver = NewChannel()

// Default returns the process-wide default in-process driver.
func Default() Driver {
	return defaultDriver
}

// Channel is the default in-process Driver. Readiness flags and counters on
// the handles are authoritative; the wake channels only unblock the waiter.
// WaitMany sweeps current readiness first, so anything triggered or notified
// before the call begins is always observed by it, and a wake racing with the
// call is observed by it or by the next one.
//
// Channel holds no per-call state, but the WaitMany reentrancy rule still
// applies: the caller serializes WaitMany process-wide.
type Channel struct{}

// NewChannel creates an in-process channel driver.
func NewChannel() *Channel {
	return &Channel{}
}

// NewGuard creates the signaling primitive behind a guard condition.
func (*Channel) NewGuard() *GuardHandle {
	return NewGuardHandle()
}

// NewSubscription creates the notification handle behind a subscription.
func (*Channel) NewSubscription() *SubscriptionHandle {
	return NewSubscriptionHandle()
}

// WaitMany implements Driver.
func (d *Channel) WaitMany(ctx context.Context, wc *WaitContext, timeout time.Duration) (int, error) {
	if ready := d.sweep(wc); ready > 0 {
		return ready, nil
	}

	if timeout == 0 {
		// Poll: current readiness only.
		return 0, nil
	}

	var timer *time.Timer
	if timeout > 0 {
		timer = time.NewTimer(timeout)
		defer timer.Stop()
	}

	for {
		timedOut, err := d.selectWake(ctx, wc, timer)
		if err != nil {
			return 0, err
		}
		if timedOut {
			// One last sweep: a trigger may have landed just before the
			// deadline without its wake token being selected.
			return d.sweep(wc), nil
		}

		// A wake token is only a hint; re-check the authoritative state. A
		// stale token (its readiness already consumed by a previous cycle)
		// sweeps to zero and we keep blocking.
		if ready := d.sweep(wc); ready > 0 {
			return ready, nil
		}
	}
}

// sweep marks every currently ready handle and returns how many are ready.
// Guard readiness is consumed by the mark; subscription readiness is not.
//
// The same handle may be collected in more than one entry. Readiness is per
// handle: the first entry consumes it, and every other entry for that handle
// inherits the result rather than consuming again.
func (*Channel) sweep(wc *WaitContext) int {
	ready := 0

	for i, g := range wc.guards {
		if wc.GuardReady(i) {
			ready++
			continue
		}
		if duplicateGuardReady(wc, i, g) || g.Consume() {
			wc.MarkGuardReady(i)
			ready++
		}
	}

	for i, s := range wc.subs {
		if wc.SubscriptionReady(i) {
			ready++
			continue
		}
		if s.Ready() {
			wc.MarkSubscriptionReady(i)
			ready++
		}
	}

	return ready
}

// duplicateGuardReady reports whether an earlier entry for the same handle
// was already marked ready, so entry i inherits that readiness instead of
// consuming the flag a second time.
func duplicateGuardReady(wc *WaitContext, i int, g *GuardHandle) bool {
	for j := 0; j < i; j++ {
		if wc.guards[j] == g && wc.GuardReady(j) {
			return true
		}
	}
	return false
}

// selectWake blocks in a reflect.Select over every wake channel plus the
// timer and ctx.Done. It reports whether the deadline fired.
func (*Channel) selectWake(ctx context.Context, wc *WaitContext, timer *time.Timer) (bool, error) {
	cases := wc.selCases[:0]

	for _, g := range wc.guards {
		cases = append(cases, reflect.SelectCase{
			Dir:  reflect.SelectRecv,
			Chan: reflect.ValueOf(g.WakeChan()),
		})
	}
	for _, s := range wc.subs {
		cases = append(cases, reflect.SelectCase{
			Dir:  reflect.SelectRecv,
			Chan: reflect.ValueOf(s.WakeChan()),
		})
	}

	timerIdx := -1
	if timer != nil {
		timerIdx = len(cases)
		cases = append(cases, reflect.SelectCase{
			Dir:  reflect.SelectRecv,
			Chan: reflect.ValueOf(timer.C),
		})
	}

	doneIdx := len(cases)
	cases = append(cases, reflect.SelectCase{
		Dir:  reflect.SelectRecv,
		Chan: reflect.ValueOf(ctx.Done()),
	})

	wc.selCases = cases

	chosen, _, _ := reflect.Select(cases)
	switch chosen {
	case doneIdx:
		return false, fmt.Errorf("wait interrupted: %w", ctx.Err())
	case timerIdx:
		return true, nil
	default:
		return false, nil
	}
}
