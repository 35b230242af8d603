package message

import (
	"errors"
	"sync"
	"sync/atomic"

	"github.com/puzpuzpuz/xsync/v4"
	"github.com/sirupsen/logrus"

	"github.com/irctrakz/vwproto/pkg/core"
	"github.com/irctrakz/vwproto/pkg/logging"
	"github.com/irctrakz/vwproto/pkg/sdata"
)

// Handler consumes decoded messages for a subscribed type-tag.
type Handler func(tag string, msg Message)

// Dispatcher is the consumer boundary: higher-level components subscribe by
// type-tag and receive fully-typed messages. Decoding is stateless, so any
// number of goroutines may call Dispatch concurrently; the handler tables are
// copy-on-write.
type Dispatcher struct {
	reg      *Registry
	handlers *xsync.Map[string, []Handler]
	subMu    sync.Mutex
	metrics  core.DispatchMetrics
	log      *logrus.Entry
}

// NewDispatcher creates a dispatcher over a registry.
func NewDispatcher(reg *Registry) *Dispatcher {
	return &Dispatcher{
		reg:      reg,
		handlers: xsync.NewMap[string, []Handler](),
		log:      logging.Component("dispatch"),
	}
}

// SetLogger replaces the dispatcher's log sink.
func (d *Dispatcher) SetLogger(entry *logrus.Entry) {
	if entry != nil {
		d.log = entry
	}
}

// Subscribe registers a handler for a type-tag. Handlers for one tag run in
// registration order within a single Dispatch call.
func (d *Dispatcher) Subscribe(tag string, h Handler) {
	if h == nil {
		return
	}
	d.subMu.Lock()
	defer d.subMu.Unlock()
	existing, _ := d.handlers.Load(tag)
	next := make([]Handler, len(existing)+1)
	copy(next, existing)
	next[len(existing)] = h
	d.handlers.Store(tag, next)
}

// Dispatch decodes an envelope and fans it out to the tag's subscribers.
// Unknown tags and malformed envelopes are counted, logged and returned as
// recoverable errors; neither stops subsequent dispatches.
func (d *Dispatcher) Dispatch(tag string, env sdata.Map) error {
	msg, err := d.reg.Decode(tag, env)
	if err != nil {
		var de *DecodeError
		switch {
		case errors.Is(err, ErrUnknownMessageType):
			atomic.AddUint64(&d.metrics.UnknownType, 1)
			d.log.Debugf("dropping unknown message type %q", tag)
		case errors.As(err, &de):
			atomic.AddUint64(&d.metrics.DecodeErrors, 1)
			d.log.Warnf("decode failed: %v", de)
		default:
			atomic.AddUint64(&d.metrics.DecodeErrors, 1)
			d.log.Warnf("decode failed for %q: %v", tag, err)
		}
		return err
	}

	hs, _ := d.handlers.Load(tag)
	if len(hs) == 0 {
		atomic.AddUint64(&d.metrics.Unhandled, 1)
		d.log.Debugf("no subscriber for %q", tag)
		return nil
	}
	for _, h := range hs {
		h(tag, msg)
	}
	atomic.AddUint64(&d.metrics.Dispatched, 1)
	return nil
}

// Metrics returns a snapshot of the dispatch counters.
func (d *Dispatcher) Metrics() core.DispatchMetrics {
	return core.DispatchMetrics{
		Dispatched:   atomic.LoadUint64(&d.metrics.Dispatched),
		UnknownType:  atomic.LoadUint64(&d.metrics.UnknownType),
		DecodeErrors: atomic.LoadUint64(&d.metrics.DecodeErrors),
		Unhandled:    atomic.LoadUint64(&d.metrics.Unhandled),
	}
}
