// Package transport implements the UDP side of the simulator protocol:
// pooled receive buffers, parallel read workers and pooled sends. Decoding
// of datagram contents belongs to the layers above; the transport's job is
// to move bytes without allocating on the hot path.
package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/irctrakz/vwproto/pkg/core"
	"github.com/irctrakz/vwproto/pkg/logging"
	"github.com/irctrakz/vwproto/pkg/pool"
)

// Config controls a UDPTransport.
type Config struct {
	// ListenAddress is the local UDP address, e.g. "0.0.0.0:0".
	ListenAddress string

	// BufferCapacity is the fixed datagram buffer size. Defaults to
	// core.DefaultBufferCapacity.
	BufferCapacity int

	// ReadWorkers is the number of parallel receive goroutines.
	ReadWorkers int

	// CheckoutTimeout bounds how long a worker waits for a pool buffer
	// before counting a drop and retrying.
	CheckoutTimeout time.Duration

	// Pool is the buffer pool geometry.
	Pool pool.Config
}

// DefaultConfig returns a transport configuration with the standard
// datagram capacity and pool geometry.
func DefaultConfig() Config {
	return Config{
		ListenAddress:   "0.0.0.0:0",
		BufferCapacity:  core.DefaultBufferCapacity,
		ReadWorkers:     2,
		CheckoutTimeout: time.Second,
		Pool:            pool.DefaultConfig(),
	}
}

// UDPTransport moves datagrams between the socket and a DatagramHandler
// using pooled buffers. Safe for concurrent Send calls; the handler runs on
// the receive workers and owns each buffer only for the duration of the
// call.
type UDPTransport struct {
	config  Config
	handler core.DatagramHandler
	metrics core.TransportMetrics

	conn *net.UDPConn
	pool *BufferPool
	log  *logrus.Entry

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// NewUDPTransport validates the configuration and creates the transport and
// its buffer pool. Geometry and capacity errors are fatal here, at startup,
// never on a per-datagram path.
func NewUDPTransport(config Config) (*UDPTransport, error) {
	if config.ListenAddress == "" {
		config.ListenAddress = "0.0.0.0:0"
	}
	if config.BufferCapacity <= 0 {
		config.BufferCapacity = core.DefaultBufferCapacity
	}
	if config.ReadWorkers <= 0 {
		config.ReadWorkers = 1
	}
	if config.CheckoutTimeout <= 0 {
		config.CheckoutTimeout = time.Second
	}

	bufPool, err := NewBufferPool(config.BufferCapacity, config.Pool)
	if err != nil {
		return nil, err
	}
	return &UDPTransport{
		config: config,
		pool:   bufPool,
		log:    logging.Component("transport"),
		stopCh: make(chan struct{}),
	}, nil
}

// SetHandler sets the datagram consumer. Must be called before Start.
func (t *UDPTransport) SetHandler(h core.DatagramHandler) {
	t.handler = h
}

// Start binds the socket and launches the receive workers.
func (t *UDPTransport) Start() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.running {
		return fmt.Errorf("transport: already running")
	}
	addr, err := net.ResolveUDPAddr("udp", t.config.ListenAddress)
	if err != nil {
		return fmt.Errorf("transport: resolve %q: %w", t.config.ListenAddress, err)
	}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return fmt.Errorf("transport: listen: %w", err)
	}
	t.conn = conn
	t.running = true

	for i := 0; i < t.config.ReadWorkers; i++ {
		t.wg.Add(1)
		go t.readLoop(i)
	}

	t.log.Infof("transport listening on %s (%d workers, %d-byte buffers)",
		conn.LocalAddr(), t.config.ReadWorkers, t.config.BufferCapacity)
	return nil
}

// Stop closes the socket, waits for the workers and shuts the pool down.
func (t *UDPTransport) Stop() error {
	t.mu.Lock()
	if !t.running {
		t.mu.Unlock()
		return nil
	}
	t.running = false
	close(t.stopCh)
	_ = t.conn.Close()
	t.mu.Unlock()

	t.wg.Wait()
	t.pool.Close()
	t.log.Infof("transport stopped")
	return nil
}

// LocalAddr returns the bound address, or nil before Start.
func (t *UDPTransport) LocalAddr() *net.UDPAddr {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.conn == nil {
		return nil
	}
	return t.conn.LocalAddr().(*net.UDPAddr)
}

func (t *UDPTransport) readLoop(worker int) {
	defer t.wg.Done()
	for {
		select {
		case <-t.stopCh:
			return
		default:
		}
		if err := t.receiveOne(); err != nil {
			select {
			case <-t.stopCh:
				return
			default:
			}
			if errors.Is(err, pool.ErrExhausted) {
				// Pool pressure, not a socket problem: count the drop and
				// keep the worker alive. The blocked checkout already
				// provided the backpressure window.
				atomic.AddUint64(&t.metrics.Drops, 1)
				t.log.Warnf("worker %d: buffer pool exhausted, datagram window dropped", worker)
				continue
			}
			if errors.Is(err, pool.ErrClosed) {
				return
			}
			atomic.AddUint64(&t.metrics.Errors, 1)
			t.log.Debugf("worker %d: receive: %v", worker, err)
		}
	}
}

// receiveOne checks out one pooled buffer, fills it from the socket and
// hands it to the handler. The deferred release returns the buffer on every
// exit path.
func (t *UDPTransport) receiveOne() error {
	ctx, cancel := context.WithTimeout(context.Background(), t.config.CheckoutTimeout)
	defer cancel()
	lease, err := t.pool.CheckOut(ctx)
	if err != nil {
		return err
	}
	defer lease.Release()

	buf := lease.Value()
	n, remote, err := t.conn.ReadFromUDP(buf.Storage())
	if err != nil {
		return err
	}
	if err := buf.SetLength(n); err != nil {
		return err
	}
	buf.SetRemote(remote)

	atomic.AddUint64(&t.metrics.PacketsReceived, 1)
	atomic.AddUint64(&t.metrics.BytesReceived, uint64(n))

	if t.handler != nil {
		if err := t.handler.HandleDatagram(buf); err != nil {
			atomic.AddUint64(&t.metrics.Errors, 1)
			t.log.Debugf("handler: %v", err)
		}
	}
	return nil
}

// Send assembles a datagram in a pooled buffer and writes it to remote. A
// payload larger than the buffer capacity fails with
// core.ErrCapacityExceeded before anything is written.
func (t *UDPTransport) Send(remote *net.UDPAddr, payload []byte) error {
	t.mu.Lock()
	conn := t.conn
	t.mu.Unlock()
	if conn == nil {
		return fmt.Errorf("transport: not started")
	}

	ctx, cancel := context.WithTimeout(context.Background(), t.config.CheckoutTimeout)
	defer cancel()
	lease, err := t.pool.CheckOut(ctx)
	if err != nil {
		atomic.AddUint64(&t.metrics.Drops, 1)
		return err
	}
	defer lease.Release()

	buf := lease.Value()
	if err := buf.CopyFrom(payload); err != nil {
		return err
	}
	buf.SetRemote(remote)

	n, err := conn.WriteToUDP(buf.Bytes(), remote)
	if err != nil {
		atomic.AddUint64(&t.metrics.Errors, 1)
		return fmt.Errorf("transport: write to %v: %w", remote, err)
	}
	atomic.AddUint64(&t.metrics.PacketsSent, 1)
	atomic.AddUint64(&t.metrics.BytesSent, uint64(n))
	return nil
}

// Metrics returns a snapshot of the transport counters.
func (t *UDPTransport) Metrics() core.TransportMetrics {
	return core.TransportMetrics{
		PacketsReceived: atomic.LoadUint64(&t.metrics.PacketsReceived),
		PacketsSent:     atomic.LoadUint64(&t.metrics.PacketsSent),
		BytesReceived:   atomic.LoadUint64(&t.metrics.BytesReceived),
		BytesSent:       atomic.LoadUint64(&t.metrics.BytesSent),
		Errors:          atomic.LoadUint64(&t.metrics.Errors),
		Drops:           atomic.LoadUint64(&t.metrics.Drops),
	}
}

// PoolMetrics returns a snapshot of the buffer pool counters.
func (t *UDPTransport) PoolMetrics() pool.Metrics {
	return t.pool.Metrics()
}
