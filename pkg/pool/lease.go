package pool

import (
	"sync/atomic"
)

// Lease is a scoped handle on one checked-out pool item. Exactly one return
// to the pool happens per checkout: Release is idempotent, and Value yields
// the zero value after release so use-after-return surfaces as a nil
// dereference rather than silent corruption of a recycled item.
//
// Callers should release on every exit path, typically with defer:
//
//	lease, err := p.CheckOut(ctx)
//	if err != nil { ... }
//	defer lease.Release()
type Lease[T any] struct {
	pool     *Pool[T]
	seg      *segment[T]
	slot     int
	value    T
	released atomic.Bool
}

// Value returns the leased item, or the zero value if the lease was already
// released.
func (l *Lease[T]) Value() T {
	if l.released.Load() {
		var zero T
		return zero
	}
	return l.value
}

// Release returns the item to the pool. Safe to call more than once; only
// the first call has effect.
func (l *Lease[T]) Release() {
	if l == nil || !l.released.CompareAndSwap(false, true) {
		return
	}
	if l.seg.release(l.slot) {
		atomic.AddUint64(&l.pool.metrics.Returns, 1)
		l.pool.wake()
	}
}
