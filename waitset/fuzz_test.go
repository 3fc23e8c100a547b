package waitset

import (
	"context"
	"testing"

	"github.com/smnsjas/go-waitmux"
	"github.com/smnsjas/go-waitmux/guard"
	"github.com/smnsjas/go-waitmux/subscription"
)

// FuzzOpSequence drives a wait set through arbitrary interleavings of
// lifecycle, population and poll operations. Whatever the sequence, the wait
// set must not panic, cursors must stay within capacity, and slot arrays
// must match the reported capacities.
func FuzzOpSequence(f *testing.F) {
	f.Add([]byte{0, 2, 2, 3, 5, 0})          // init, adds, trigger, wait, clear
	f.Add([]byte{1, 1, 6, 2, 7})             // fini paths and resizes
	f.Add([]byte{7, 2, 5, 2, 4, 0, 1, 0})    // bootstrap via resize first
	f.Add([]byte{0, 3, 3, 3, 3, 3, 4, 5, 6}) // overfill then clear

	f.Fuzz(func(t *testing.T, ops []byte) {
		wctx := waitmux.NewContext(waitmux.DefaultOptions())
		defer wctx.Shutdown()

		gc, err := guard.New(wctx, guard.DefaultOptions())
		if err != nil {
			t.Fatal(err)
		}
		defer gc.Fini()

		sub, err := subscription.New(wctx, subscription.DefaultOptions())
		if err != nil {
			t.Fatal(err)
		}
		defer sub.Fini()

		var ws WaitSet
		defer ws.Fini()

		for _, op := range ops {
			switch op % 8 {
			case 0:
				_ = ws.Init(2, 2, DefaultOptions())
			case 1:
				_ = ws.Fini()
			case 2:
				_, _ = ws.AddGuardCondition(gc)
			case 3:
				_, _ = ws.AddSubscription(sub)
			case 4:
				_ = ws.ClearGuardConditions()
				_ = ws.ClearSubscriptions()
			case 5:
				_ = gc.Trigger()
				_ = ws.Wait(context.Background(), 0)
			case 6:
				_ = ws.ResizeGuardConditions(int(op % 5))
			case 7:
				_ = ws.ResizeSubscriptions(int(op % 5))
			}

			checkInvariants(t, &ws)
		}
	})
}

func checkInvariants(t *testing.T, ws *WaitSet) {
	t.Helper()

	if ws.subCursor > ws.subCap || ws.subCursor < 0 {
		t.Fatalf("subscription cursor %d outside capacity %d", ws.subCursor, ws.subCap)
	}
	if ws.guardCursor > ws.guardCap || ws.guardCursor < 0 {
		t.Fatalf("guard cursor %d outside capacity %d", ws.guardCursor, ws.guardCap)
	}
	if len(ws.subs) != ws.subCap {
		t.Fatalf("subscription array length %d != capacity %d", len(ws.subs), ws.subCap)
	}
	if len(ws.guards) != ws.guardCap {
		t.Fatalf("guard array length %d != capacity %d", len(ws.guards), ws.guardCap)
	}
	if !ws.Initialized() && (ws.subs != nil || ws.guards != nil) {
		t.Fatal("uninitialized wait set retains slot arrays")
	}
}
