package alloc

import (
	"fmt"
	"math/bits"
	"sync"
)

// maxPooledClass caps the largest recycled capacity class at 1<<maxPooledClass
// slots. Larger arrays are allocated directly and not returned to the pool,
// to avoid hoarding memory for outlier sizes.
const maxPooledClass = 10

// Pool is a recycling allocator. Arrays are drawn from per-capacity-class
// sync.Pools (capacities rounded up to the next power of two) and zeroed
// before reuse, so the Slots contract of all-zero slots still holds.
//
// Pool is safe for concurrent use.
type Pool[T any] struct {
	classes [maxPooledClass + 1]sync.Pool
}

// NewPool creates a recycling allocator.
func NewPool[T any]() *Pool[T] {
	return &Pool[T]{}
}

// class returns the capacity class index for n, or -1 if n is too large to pool.
func (*Pool[T]) class(n int) int {
	c := bits.Len(uint(n - 1)) // ceil(log2(n))
	if c > maxPooledClass {
		return -1
	}
	return c
}

// Allocate returns a zeroed array of n slots, recycled when possible.
func (p *Pool[T]) Allocate(n int) ([]T, error) {
	if n < 0 {
		return nil, fmt.Errorf("allocate %d slots: negative size", n)
	}
	if n == 0 {
		return nil, nil
	}

	c := p.class(n)
	if c < 0 {
		return make([]T, n), nil
	}

	if v := p.classes[c].Get(); v != nil {
		buf := v.([]T)[:n]
		clear(buf)
		return buf, nil
	}
	return make([]T, n, 1<<c), nil
}

// Reallocate releases buf and returns a fresh zeroed array of n slots.
func (p *Pool[T]) Reallocate(buf []T, n int) ([]T, error) {
	p.Deallocate(buf)
	return p.Allocate(n)
}

// Deallocate returns buf to its capacity class for reuse.
func (p *Pool[T]) Deallocate(buf []T) {
	if buf == nil {
		return
	}

	cp := cap(buf)
	if cp == 0 || cp&(cp-1) != 0 {
		// Not one of ours; let the garbage collector have it.
		return
	}
	c := p.class(cp)
	if c < 0 {
		return
	}

	// Clear retained references before pooling so released entities are not
	// kept alive by the recycler.
	buf = buf[:cp]
	clear(buf)
	//nolint:staticcheck // SA6002: slice header copy is cheaper than a pointer pool here
	p.classes[c].Put(buf)
}
