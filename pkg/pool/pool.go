// Package pool implements a generic, segmented object pool for hot-path
// reuse of fixed-size resources such as datagram buffers.
//
// Capacity is organized in whole segments of pre-constructed items. The
// minimum segment count is allocated eagerly so steady-state traffic never
// pays allocation cost; under load the pool grows one segment at a time, and
// a background sweep removes segments that have been fully free for longer
// than the idle timeout, never shrinking below the configured floor.
package pool

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/irctrakz/vwproto/pkg/logging"
)

var (
	// ErrExhausted is returned when no slot could be claimed before the
	// caller's deadline. Transient; callers retry or apply backpressure.
	ErrExhausted = errors.New("pool: exhausted")

	// ErrClosed is returned for checkouts against a closed pool.
	ErrClosed = errors.New("pool: closed")
)

// Config controls pool geometry and reclamation.
type Config struct {
	// ItemsPerSegment is the number of items in each segment.
	ItemsPerSegment int

	// MinSegments is the resident floor. This many segments are allocated up
	// front and are never reclaimed regardless of idle time.
	MinSegments int

	// AllowGrowth permits allocating new segments when all slots are leased.
	// When false, CheckOut blocks until a slot frees or the context ends.
	AllowGrowth bool

	// IdleTimeout is how long a segment beyond the floor must be fully free
	// before the sweep removes it. The sweep runs every IdleTimeout/2.
	IdleTimeout time.Duration
}

// DefaultConfig returns a pool geometry suitable for a datagram receive loop.
func DefaultConfig() Config {
	return Config{
		ItemsPerSegment: 16,
		MinSegments:     1,
		AllowGrowth:     true,
		IdleTimeout:     60 * time.Second,
	}
}

func (c Config) validate() error {
	if c.ItemsPerSegment <= 0 {
		return fmt.Errorf("pool: items per segment must be positive, got %d", c.ItemsPerSegment)
	}
	if c.MinSegments <= 0 {
		return fmt.Errorf("pool: minimum segments must be positive, got %d", c.MinSegments)
	}
	if c.IdleTimeout <= 0 {
		return fmt.Errorf("pool: idle timeout must be positive, got %v", c.IdleTimeout)
	}
	return nil
}

// Metrics contains pool counters, updated with sync/atomic.
type Metrics struct {
	CheckOuts      uint64
	Returns        uint64
	Grows          uint64
	Shrinks        uint64
	ExhaustedWaits uint64
	Timeouts       uint64
}

// Pool is a thread-safe segmented pool of items of type T.
type Pool[T any] struct {
	cfg     Config
	factory func() T
	reset   func(T)
	log     *logrus.Entry

	// mu guards the segments slice. Slot claims inside a segment are
	// lock-free; only grow/shrink take the write lock.
	mu       sync.RWMutex
	segments []*segment[T]

	notify  chan struct{}
	stopCh  chan struct{}
	closed  atomic.Bool
	metrics Metrics
}

// New creates a pool and eagerly allocates MinSegments*ItemsPerSegment items
// via factory. The optional reset is applied to every item as it is checked
// out, before the caller sees it. Geometry errors are configuration bugs and
// fail construction.
func New[T any](cfg Config, factory func() T, reset func(T)) (*Pool[T], error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if factory == nil {
		return nil, errors.New("pool: factory must not be nil")
	}

	p := &Pool[T]{
		cfg:     cfg,
		factory: factory,
		reset:   reset,
		log:     logging.Component("pool"),
		notify:  make(chan struct{}, 1),
		stopCh:  make(chan struct{}),
	}
	p.segments = make([]*segment[T], 0, cfg.MinSegments)
	for i := 0; i < cfg.MinSegments; i++ {
		p.segments = append(p.segments, newSegment(cfg.ItemsPerSegment, factory))
	}

	go p.reclaimLoop()

	p.log.Debugf("pool created: %d segment(s) x %d item(s), growth=%v, idle=%v",
		cfg.MinSegments, cfg.ItemsPerSegment, cfg.AllowGrowth, cfg.IdleTimeout)
	return p, nil
}

// SetLogger replaces the pool's log sink.
func (p *Pool[T]) SetLogger(entry *logrus.Entry) {
	if entry != nil {
		p.log = entry
	}
}

// CheckOut claims an item. When all slots are leased it grows by one segment
// if growth is allowed; otherwise it blocks until a return frees a slot or
// ctx ends, in which case it fails with ErrExhausted. The backpressure of a
// bounded wait is what throttles a receive loop during a burst.
func (p *Pool[T]) CheckOut(ctx context.Context) (*Lease[T], error) {
	if ctx == nil {
		ctx = context.Background()
	}
	for {
		if p.closed.Load() {
			return nil, ErrClosed
		}
		if lease := p.tryCheckOut(); lease != nil {
			return lease, nil
		}
		if p.cfg.AllowGrowth {
			p.grow()
			continue
		}
		atomic.AddUint64(&p.metrics.ExhaustedWaits, 1)
		select {
		case <-ctx.Done():
			atomic.AddUint64(&p.metrics.Timeouts, 1)
			return nil, fmt.Errorf("%w: %v", ErrExhausted, ctx.Err())
		case <-p.notify:
		case <-p.stopCh:
			return nil, ErrClosed
		}
	}
}

// tryCheckOut scans segments first-fit for a free slot.
func (p *Pool[T]) tryCheckOut() *Lease[T] {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, s := range p.segments {
		if slot, ok := s.claim(); ok {
			item := s.items[slot]
			if p.reset != nil {
				p.reset(item)
			}
			atomic.AddUint64(&p.metrics.CheckOuts, 1)
			return &Lease[T]{pool: p, seg: s, slot: slot, value: item}
		}
	}
	return nil
}

// grow appends one segment, unless capacity freed up while waiting on the
// write lock.
func (p *Pool[T]) grow() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, s := range p.segments {
		if s.free.Load() > 0 {
			return
		}
	}
	p.segments = append(p.segments, newSegment(p.cfg.ItemsPerSegment, p.factory))
	atomic.AddUint64(&p.metrics.Grows, 1)
	p.log.Debugf("pool grew to %d segments (%d items)", len(p.segments), len(p.segments)*p.cfg.ItemsPerSegment)
}

// wake signals one blocked checkout that a slot freed. The channel holds a
// single token; a waiter that loses the subsequent claim race simply waits
// for the next return.
func (p *Pool[T]) wake() {
	select {
	case p.notify <- struct{}{}:
	default:
	}
}

func (p *Pool[T]) reclaimLoop() {
	interval := p.cfg.IdleTimeout / 2
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-p.stopCh:
			return
		case <-ticker.C:
			p.reclaim(time.Now())
		}
	}
}

// reclaim removes segments beyond the floor that have been fully free for
// longer than the idle timeout. A segment with any leased slot is never
// removed.
func (p *Pool[T]) reclaim(now time.Time) {
	cutoff := now.Add(-p.cfg.IdleTimeout).UnixNano()

	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.segments) <= p.cfg.MinSegments {
		return
	}

	kept := make([]*segment[T], 0, len(p.segments))
	dropped := 0
	for _, s := range p.segments {
		idle := s.fullyFreeSince()
		if idle != 0 && idle <= cutoff && len(p.segments)-dropped > p.cfg.MinSegments {
			dropped++
			continue
		}
		kept = append(kept, s)
	}
	if dropped == 0 {
		return
	}
	p.segments = kept
	atomic.AddUint64(&p.metrics.Shrinks, uint64(dropped))
	p.log.Debugf("pool reclaimed %d idle segment(s), %d remain", dropped, len(p.segments))
}

// Segments returns the current segment count.
func (p *Pool[T]) Segments() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.segments)
}

// Capacity returns the current total item capacity.
func (p *Pool[T]) Capacity() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	total := 0
	for _, s := range p.segments {
		total += s.size()
	}
	return total
}

// InUse returns the number of currently leased items.
func (p *Pool[T]) InUse() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	leased := 0
	for _, s := range p.segments {
		leased += s.size() - int(s.free.Load())
	}
	return leased
}

// Metrics returns a snapshot of the pool counters.
func (p *Pool[T]) Metrics() Metrics {
	return Metrics{
		CheckOuts:      atomic.LoadUint64(&p.metrics.CheckOuts),
		Returns:        atomic.LoadUint64(&p.metrics.Returns),
		Grows:          atomic.LoadUint64(&p.metrics.Grows),
		Shrinks:        atomic.LoadUint64(&p.metrics.Shrinks),
		ExhaustedWaits: atomic.LoadUint64(&p.metrics.ExhaustedWaits),
		Timeouts:       atomic.LoadUint64(&p.metrics.Timeouts),
	}
}

// Close stops the reclaim loop and fails further checkouts with ErrClosed.
// Outstanding leases stay valid; their items are released to the (closed)
// pool and reclaimed by normal garbage collection.
func (p *Pool[T]) Close() {
	if !p.closed.CompareAndSwap(false, true) {
		return
	}
	close(p.stopCh)
	p.log.Debugf("pool closed")
}
