package transport

import (
	"context"
	"fmt"

	"github.com/irctrakz/vwproto/pkg/core"
	"github.com/irctrakz/vwproto/pkg/logging"
	"github.com/irctrakz/vwproto/pkg/pool"
)

// BufferPool is the datagram buffer pool backing a transport. Every buffer
// has the same fixed capacity; a recycled buffer is handed out with zero
// length and an unbound peer address, so stale routing data from a prior
// lease cannot leak into the next one.
type BufferPool struct {
	inner    *pool.Pool[*core.Buffer]
	capacity int
}

// NewBufferPool creates a pool of fixed-capacity buffers. A non-positive
// capacity falls back to core.DefaultBufferCapacity; invalid pool geometry
// is a startup configuration error.
func NewBufferPool(capacity int, cfg pool.Config) (*BufferPool, error) {
	if capacity <= 0 {
		capacity = core.DefaultBufferCapacity
	}
	inner, err := pool.New(cfg,
		func() *core.Buffer { return core.NewPooledBuffer(capacity) },
		func(b *core.Buffer) { b.Reset() },
	)
	if err != nil {
		return nil, fmt.Errorf("transport: buffer pool: %w", err)
	}
	inner.SetLogger(logging.Component("bufpool"))
	return &BufferPool{inner: inner, capacity: capacity}, nil
}

// CheckOut leases a buffer, blocking per the pool's growth/backpressure
// policy until ctx ends.
func (p *BufferPool) CheckOut(ctx context.Context) (*pool.Lease[*core.Buffer], error) {
	return p.inner.CheckOut(ctx)
}

// Capacity returns the fixed per-buffer capacity.
func (p *BufferPool) Capacity() int { return p.capacity }

// Segments returns the current segment count.
func (p *BufferPool) Segments() int { return p.inner.Segments() }

// Metrics returns a snapshot of the pool counters.
func (p *BufferPool) Metrics() pool.Metrics { return p.inner.Metrics() }

// Close shuts the pool down. Outstanding leases remain usable until
// released.
func (p *BufferPool) Close() { p.inner.Close() }
