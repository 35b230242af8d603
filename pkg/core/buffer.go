package core

import (
	"errors"
	"fmt"
	"net"
)

// DefaultBufferCapacity is the default datagram buffer size. Simulator
// datagrams are bounded well below this in practice.
const DefaultBufferCapacity = 4096

// ErrCapacityExceeded is returned when a copy into a Buffer would overrun its
// fixed capacity. It indicates a caller bug, not a network condition.
var ErrCapacityExceeded = errors.New("buffer: capacity exceeded")

// Buffer is a fixed-capacity datagram buffer plus the peer address the bytes
// came from (or are destined to). The backing array is allocated once at
// construction and never reallocated; all operations are bounded copies.
type Buffer struct {
	data   []byte
	length int
	remote *net.UDPAddr
	pooled bool
}

// NewBuffer creates an unbound Buffer with zeroed storage.
func NewBuffer(capacity int) *Buffer {
	if capacity <= 0 {
		capacity = DefaultBufferCapacity
	}
	return &Buffer{data: make([]byte, capacity)}
}

// NewBufferTo creates a Buffer bound to a remote peer, for transmit use.
func NewBufferTo(remote *net.UDPAddr, capacity int) *Buffer {
	b := NewBuffer(capacity)
	b.remote = remote
	return b
}

// NewPooledBuffer creates a Buffer marked as pool-owned. Only pools should
// call this; the marker lets consumers tell a recycled buffer from an
// ephemeral one.
func NewPooledBuffer(capacity int) *Buffer {
	b := NewBuffer(capacity)
	b.pooled = true
	return b
}

// Capacity returns the fixed size of the backing array.
func (b *Buffer) Capacity() int { return len(b.data) }

// Length returns the number of valid bytes currently held.
func (b *Buffer) Length() int { return b.length }

// Bytes returns the valid portion of the buffer. The slice aliases the
// backing array; it is invalidated when the buffer is reused.
func (b *Buffer) Bytes() []byte { return b.data[:b.length] }

// Storage returns the full backing array for socket reads. Callers must
// follow a read with SetLength.
func (b *Buffer) Storage() []byte { return b.data }

// SetLength records how many bytes of the backing array are valid after a
// direct write into Storage.
func (b *Buffer) SetLength(n int) error {
	if n < 0 || n > len(b.data) {
		return fmt.Errorf("%w: length %d, capacity %d", ErrCapacityExceeded, n, len(b.data))
	}
	b.length = n
	return nil
}

// CopyFrom copies src into the buffer. The capacity check happens before any
// bytes move; a too-large source fails without truncating.
func (b *Buffer) CopyFrom(src []byte) error {
	if len(src) > len(b.data) {
		return fmt.Errorf("%w: copy %d bytes, capacity %d", ErrCapacityExceeded, len(src), len(b.data))
	}
	copy(b.data, src)
	b.length = len(src)
	return nil
}

// Remote returns the peer address, or nil when unbound.
func (b *Buffer) Remote() *net.UDPAddr { return b.remote }

// SetRemote binds the buffer to a peer address.
func (b *Buffer) SetRemote(addr *net.UDPAddr) { b.remote = addr }

// ResetRemote restores the unbound state. Pools call this before handing a
// recycled buffer out again so stale routing data cannot leak forward.
func (b *Buffer) ResetRemote() { b.remote = nil }

// Pooled reports whether the buffer came from a pool.
func (b *Buffer) Pooled() bool { return b.pooled }

// Reset clears the length and peer address ahead of reuse. The backing array
// is left as-is; the length field bounds what callers may observe.
func (b *Buffer) Reset() {
	b.length = 0
	b.remote = nil
}
