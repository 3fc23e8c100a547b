// Package alloc provides the slot-array allocator capability injected into
// wait sets and entities.
//
// Every init/resize/fini path in this library goes through a Slots allocator
// rather than allocating directly, so embedders can recycle slot storage or
// account for it. Two implementations are provided: Heap (make-backed, the
// default) and Pool (sync.Pool-backed with power-of-two capacity classes).
//
// # Contract
//
// Allocate returns an array of exactly n zero slots. Reallocate never
// preserves contents: the input array is released and a fresh zeroed array is
// returned, so a resize is always also a clear. Reallocate with n == 0
// releases the input and returns nil. On a Reallocate error the input array
// has already been released - callers drop their reference and remain safely
// finalizable.
//
// Allocators must be safe for concurrent use from distinct owners.
package alloc

import "fmt"

// Slots allocates, reallocates and releases slot arrays of T.
type Slots[T any] interface {
	// Allocate returns an array of exactly n zero-valued slots.
	Allocate(n int) ([]T, error)
	// Reallocate releases buf and returns a fresh array of exactly n zero
	// slots. Contents are never preserved. n == 0 returns nil.
	Reallocate(buf []T, n int) ([]T, error)
	// Deallocate releases buf. Releasing nil is a no-op.
	Deallocate(buf []T)
}

// DefaultSlots returns the default allocator for T: the heap allocator.
func DefaultSlots[T any]() Slots[T] {
	return Heap[T]{}
}

// Heap is the default allocator. It defers entirely to the Go runtime and
// never fails for non-negative sizes.
type Heap[T any] struct{}

// Allocate returns a zeroed array of n slots.
func (Heap[T]) Allocate(n int) ([]T, error) {
	if n < 0 {
		return nil, fmt.Errorf("allocate %d slots: negative size", n)
	}
	if n == 0 {
		return nil, nil
	}
	return make([]T, n), nil
}

// Reallocate releases buf and allocates a fresh zeroed array of n slots.
func (h Heap[T]) Reallocate(buf []T, n int) ([]T, error) {
	h.Deallocate(buf)
	return h.Allocate(n)
}

// Deallocate releases buf to the garbage collector.
func (Heap[T]) Deallocate([]T) {}
