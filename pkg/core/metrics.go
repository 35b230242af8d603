package core

// TransportMetrics contains counters for a datagram transport. Fields are
// updated with sync/atomic; read them with atomic loads or via a snapshot.
type TransportMetrics struct {
	// PacketsReceived is the number of datagrams received.
	PacketsReceived uint64

	// PacketsSent is the number of datagrams sent.
	PacketsSent uint64

	// BytesReceived is the number of payload bytes received.
	BytesReceived uint64

	// BytesSent is the number of payload bytes sent.
	BytesSent uint64

	// Errors is the number of socket or handler errors encountered.
	Errors uint64

	// Drops is the number of datagrams dropped, e.g. on pool exhaustion.
	Drops uint64
}

// DispatchMetrics contains counters for the message decode/dispatch path.
type DispatchMetrics struct {
	// Dispatched is the number of envelopes decoded and delivered.
	Dispatched uint64

	// UnknownType is the number of envelopes dropped for an unrecognized tag.
	UnknownType uint64

	// DecodeErrors is the number of envelopes that failed to decode.
	DecodeErrors uint64

	// Unhandled is the number of decoded messages with no subscriber.
	Unhandled uint64
}

// EventQueueMetrics contains counters for the HTTP event-queue side channel.
type EventQueueMetrics struct {
	// Polls is the number of completed poll cycles.
	Polls uint64

	// Events is the number of events received.
	Events uint64

	// Errors is the number of failed polls or unparseable responses.
	Errors uint64

	// Dropped is the number of events discarded before dispatch.
	Dropped uint64
}
