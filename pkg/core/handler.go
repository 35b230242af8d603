package core

// DatagramHandler consumes inbound datagrams from a transport. The Buffer is
// only valid for the duration of the call; implementations that need the
// bytes afterwards must copy them, since the transport returns the buffer to
// its pool when the call completes.
type DatagramHandler interface {
	// HandleDatagram processes one received datagram. An error is counted by
	// the transport but never stops the receive loop.
	HandleDatagram(buf *Buffer) error
}

// DatagramHandlerFunc adapts a function to the DatagramHandler interface.
type DatagramHandlerFunc func(buf *Buffer) error

// HandleDatagram implements DatagramHandler.
func (f DatagramHandlerFunc) HandleDatagram(buf *Buffer) error { return f(buf) }
