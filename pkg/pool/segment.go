package pool

import (
	"sync/atomic"
	"time"
)

// Slot states. A slot only ever cycles Free -> Leased -> Free; claiming is a
// single compare-and-swap so concurrent checkouts never double-issue a slot.
const (
	slotFree uint32 = iota
	slotLeased
)

// segment is a fixed group of pre-constructed items plus per-slot state.
// Segments are the unit of pool growth and shrink: the pool only ever adds or
// removes whole segments.
type segment[T any] struct {
	items []T
	state []atomic.Uint32

	// free counts slots in slotFree state, maintained alongside the CAS
	// transitions so exhaustion checks do not scan.
	free atomic.Int32

	// idleSince is the unix-nano time at which the segment last became fully
	// free, or 0 while any slot is leased. The reclaimer uses it to find
	// segments that have sat idle past the timeout.
	idleSince atomic.Int64
}

func newSegment[T any](n int, factory func() T) *segment[T] {
	s := &segment[T]{
		items: make([]T, n),
		state: make([]atomic.Uint32, n),
	}
	for i := range s.items {
		s.items[i] = factory()
	}
	s.free.Store(int32(n))
	s.idleSince.Store(time.Now().UnixNano())
	return s
}

// claim finds and leases a free slot, first-fit. Concentrating reuse in the
// earliest free slot keeps later segments fully free so they become
// reclaimable once traffic subsides.
func (s *segment[T]) claim() (int, bool) {
	if s.free.Load() == 0 {
		return -1, false
	}
	for i := range s.state {
		if s.state[i].CompareAndSwap(slotFree, slotLeased) {
			s.free.Add(-1)
			s.idleSince.Store(0)
			return i, true
		}
	}
	return -1, false
}

// release frees a previously claimed slot. Returns false if the slot was not
// leased, which indicates a double release upstream.
func (s *segment[T]) release(slot int) bool {
	if !s.state[slot].CompareAndSwap(slotLeased, slotFree) {
		return false
	}
	if s.free.Add(1) == int32(len(s.items)) {
		s.idleSince.Store(time.Now().UnixNano())
	}
	return true
}

// fullyFreeSince returns the unix-nano time the segment became fully free, or
// 0 if any slot is currently leased.
func (s *segment[T]) fullyFreeSince() int64 {
	if s.free.Load() != int32(len(s.items)) {
		return 0
	}
	return s.idleSince.Load()
}

func (s *segment[T]) size() int { return len(s.items) }
