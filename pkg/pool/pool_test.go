package pool

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type item struct {
	n      int
	resets int
}

func newTestPool(t *testing.T, cfg Config) *Pool[*item] {
	t.Helper()
	counter := 0
	p, err := New(cfg, func() *item {
		counter++
		return &item{n: counter}
	}, func(it *item) {
		it.resets++
	})
	require.NoError(t, err)
	t.Cleanup(p.Close)
	return p
}

// TestPoolConfigValidation tests that geometry errors fail construction.
func TestPoolConfigValidation(t *testing.T) {
	bad := []Config{
		{ItemsPerSegment: 0, MinSegments: 1, IdleTimeout: time.Second},
		{ItemsPerSegment: 4, MinSegments: 0, IdleTimeout: time.Second},
		{ItemsPerSegment: 4, MinSegments: 1, IdleTimeout: 0},
	}
	for _, cfg := range bad {
		_, err := New(cfg, func() *item { return &item{} }, nil)
		assert.Error(t, err, "config %+v should be rejected", cfg)
	}

	_, err := New[*item](DefaultConfig(), nil, nil)
	assert.Error(t, err, "nil factory should be rejected")
}

// TestPoolEagerAllocation tests that the floor capacity exists up front.
func TestPoolEagerAllocation(t *testing.T) {
	cfg := Config{ItemsPerSegment: 8, MinSegments: 3, AllowGrowth: false, IdleTimeout: time.Minute}
	p := newTestPool(t, cfg)

	assert.Equal(t, 3, p.Segments())
	assert.Equal(t, 24, p.Capacity())
	assert.Equal(t, 0, p.InUse())
}

// TestPoolGrowth tests the concrete growth scenario: one 16-item segment,
// checking out a 17th buffer grows capacity by exactly one full segment.
func TestPoolGrowth(t *testing.T) {
	cfg := Config{ItemsPerSegment: 16, MinSegments: 1, AllowGrowth: true, IdleTimeout: time.Minute}
	p := newTestPool(t, cfg)

	var leases []*Lease[*item]
	for i := 0; i < 16; i++ {
		l, err := p.CheckOut(context.Background())
		require.NoError(t, err)
		leases = append(leases, l)
	}
	assert.Equal(t, 1, p.Segments())
	assert.Equal(t, 16, p.InUse())

	// 17th checkout triggers growth to exactly 2 segments.
	l17, err := p.CheckOut(context.Background())
	require.NoError(t, err)
	leases = append(leases, l17)
	assert.Equal(t, 2, p.Segments())
	assert.Equal(t, 32, p.Capacity())
	assert.Equal(t, 17, p.InUse())

	for _, l := range leases {
		l.Release()
	}
	assert.Equal(t, 0, p.InUse())
	assert.Equal(t, uint64(1), p.Metrics().Grows)
}

// TestPoolNoDoubleIssue tests that no two live leases ever share a slot.
func TestPoolNoDoubleIssue(t *testing.T) {
	cfg := Config{ItemsPerSegment: 4, MinSegments: 2, AllowGrowth: true, IdleTimeout: time.Minute}
	p := newTestPool(t, cfg)

	const workers = 8
	const rounds = 200

	var mu sync.Mutex
	live := make(map[*item]bool)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < rounds; i++ {
				l, err := p.CheckOut(context.Background())
				if err != nil {
					t.Errorf("checkout failed: %v", err)
					return
				}
				it := l.Value()
				mu.Lock()
				if live[it] {
					t.Errorf("item %p issued twice concurrently", it)
				}
				live[it] = true
				mu.Unlock()

				mu.Lock()
				delete(live, it)
				mu.Unlock()
				l.Release()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 0, p.InUse())
	m := p.Metrics()
	assert.Equal(t, m.CheckOuts, m.Returns)
}

// TestPoolCapacityInvariant tests that leased items never exceed capacity.
func TestPoolCapacityInvariant(t *testing.T) {
	cfg := Config{ItemsPerSegment: 4, MinSegments: 1, AllowGrowth: true, IdleTimeout: time.Minute}
	p := newTestPool(t, cfg)

	var leases []*Lease[*item]
	for i := 0; i < 13; i++ {
		l, err := p.CheckOut(context.Background())
		require.NoError(t, err)
		leases = append(leases, l)
		assert.LessOrEqual(t, p.InUse(), p.Capacity())
	}
	assert.Equal(t, 4, p.Segments())
	for _, l := range leases {
		l.Release()
	}
}

// TestPoolExhaustedTimeout tests the bounded-blocking policy when growth is
// disabled.
func TestPoolExhaustedTimeout(t *testing.T) {
	cfg := Config{ItemsPerSegment: 1, MinSegments: 1, AllowGrowth: false, IdleTimeout: time.Minute}
	p := newTestPool(t, cfg)

	l, err := p.CheckOut(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	_, err = p.CheckOut(ctx)
	assert.ErrorIs(t, err, ErrExhausted)
	assert.Equal(t, uint64(1), p.Metrics().Timeouts)

	l.Release()
}

// TestPoolBlockedCheckoutWakes tests that a return unblocks a waiting
// checkout.
func TestPoolBlockedCheckoutWakes(t *testing.T) {
	cfg := Config{ItemsPerSegment: 1, MinSegments: 1, AllowGrowth: false, IdleTimeout: time.Minute}
	p := newTestPool(t, cfg)

	l, err := p.CheckOut(context.Background())
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		l2, err := p.CheckOut(ctx)
		if err == nil {
			l2.Release()
		}
		done <- err
	}()

	time.Sleep(20 * time.Millisecond)
	l.Release()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("blocked checkout never woke after release")
	}
}

// TestPoolIdleReclaim tests that idle segments beyond the floor are removed
// and the floor is always kept.
func TestPoolIdleReclaim(t *testing.T) {
	cfg := Config{ItemsPerSegment: 16, MinSegments: 1, AllowGrowth: true, IdleTimeout: 50 * time.Millisecond}
	p := newTestPool(t, cfg)

	var leases []*Lease[*item]
	for i := 0; i < 17; i++ {
		l, err := p.CheckOut(context.Background())
		require.NoError(t, err)
		leases = append(leases, l)
	}
	require.Equal(t, 2, p.Segments())

	for _, l := range leases {
		l.Release()
	}

	// Sweep well past the idle timeout: settles at the floor, never below.
	p.reclaim(time.Now().Add(time.Second))
	assert.Equal(t, 1, p.Segments())

	p.reclaim(time.Now().Add(time.Hour))
	assert.Equal(t, 1, p.Segments())
}

// TestPoolReclaimSkipsBusySegments tests that a segment with a leased slot
// survives the sweep regardless of elapsed time.
func TestPoolReclaimSkipsBusySegments(t *testing.T) {
	cfg := Config{ItemsPerSegment: 2, MinSegments: 1, AllowGrowth: true, IdleTimeout: 50 * time.Millisecond}
	p := newTestPool(t, cfg)

	// Fill two segments, then return only the first segment's items.
	var leases []*Lease[*item]
	for i := 0; i < 4; i++ {
		l, err := p.CheckOut(context.Background())
		require.NoError(t, err)
		leases = append(leases, l)
	}
	require.Equal(t, 2, p.Segments())
	leases[0].Release()
	leases[1].Release()

	p.reclaim(time.Now().Add(time.Hour))
	// The second segment still has leases; with the floor at 1 the first
	// (idle) segment is reclaimable, but never the busy one.
	assert.Equal(t, 1, p.Segments())
	assert.Equal(t, 2, p.InUse())

	leases[2].Release()
	leases[3].Release()
}

// TestLeaseReleaseIdempotent tests exactly-once return semantics.
func TestLeaseReleaseIdempotent(t *testing.T) {
	cfg := Config{ItemsPerSegment: 2, MinSegments: 1, AllowGrowth: false, IdleTimeout: time.Minute}
	p := newTestPool(t, cfg)

	l, err := p.CheckOut(context.Background())
	require.NoError(t, err)
	require.NotNil(t, l.Value())

	l.Release()
	l.Release()
	l.Release()

	assert.Nil(t, l.Value(), "value must be unreachable after release")
	assert.Equal(t, 0, p.InUse())
	assert.Equal(t, uint64(1), p.Metrics().Returns)
}

// TestPoolReset tests that the reset hook runs on every checkout.
func TestPoolReset(t *testing.T) {
	cfg := Config{ItemsPerSegment: 1, MinSegments: 1, AllowGrowth: false, IdleTimeout: time.Minute}
	p := newTestPool(t, cfg)

	for i := 1; i <= 3; i++ {
		l, err := p.CheckOut(context.Background())
		require.NoError(t, err)
		assert.Equal(t, i, l.Value().resets)
		l.Release()
	}
}

// TestPoolClose tests that checkouts fail after Close and blocked waiters
// are released.
func TestPoolClose(t *testing.T) {
	cfg := Config{ItemsPerSegment: 1, MinSegments: 1, AllowGrowth: false, IdleTimeout: time.Minute}
	p := newTestPool(t, cfg)

	l, err := p.CheckOut(context.Background())
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := p.CheckOut(context.Background())
		done <- err
	}()
	time.Sleep(20 * time.Millisecond)

	p.Close()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrClosed)
	case <-time.After(2 * time.Second):
		t.Fatal("blocked checkout not released by Close")
	}

	_, err = p.CheckOut(context.Background())
	assert.ErrorIs(t, err, ErrClosed)

	// Outstanding leases can still be returned after close.
	l.Release()
}
