// Package waitmux provides readiness multiplexing for a middleware client layer.
//
// This library implements wait sets and guard conditions following a sans-OS
// pattern - it handles slot management and wait orchestration only, with no
// platform blocking code of its own. Consumers provide (or accept the default)
// driver.Driver that performs the actual block-with-timeout on the collected
// handles.
//
// # Architecture
//
// The library is organized into layers:
//
//   - Context: Owning context that entities are bound to
//   - waitset: Reusable wait-set container and wait orchestration
//   - guard: Software-triggerable guard conditions for cross-thread wakeups
//   - subscription: Opaque message-arrival waitables
//   - driver: The underlying wait primitive boundary and its default in-process implementation
//   - alloc: Injected slot-array allocators (heap and pooled)
//
// # Basic Usage
//
//	wctx := waitmux.NewContext(waitmux.DefaultOptions())
//	defer wctx.Shutdown()
//
//	gc, err := guard.New(wctx, guard.DefaultOptions())
//	if err != nil {
//	    return err
//	}
//	defer gc.Fini()
//
//	ws, err := waitset.New(0, 1, waitset.DefaultOptions())
//	if err != nil {
//	    return err
//	}
//	defer ws.Fini()
//
//	for {
//	    ws.ClearGuardConditions()
//	    ws.AddGuardCondition(gc)
//	    err := ws.Wait(ctx, 100*time.Millisecond)
//	    if errors.Is(err, waitmux.ErrTimeout) {
//	        continue
//	    }
//	    // Inspect ws.GuardConditions(): non-nil slots are ready.
//	}
//
// # Driver Agnostic
//
// The wait set never interprets readiness - it forwards the current handle set
// to the driver and prunes the slots whose entities did not become ready. The
// default driver multiplexes in-process wake channels; embedders backed by a
// real middleware layer supply their own driver.Driver.
//
// # Concurrency
//
// Distinct wait sets may be used from distinct goroutines, but operations on
// one instance must be serialized by its owner. Wait itself is globally
// serialized: process-wide, at most one Wait call is in flight at any time,
// because the underlying wait primitive may hold shared, non-reentrant wait
// state.
package waitmux

// Version is the library version.
const Version = "0.1.0-dev"
