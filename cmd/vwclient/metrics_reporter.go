package main

import (
	"encoding/json"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/irctrakz/vwproto/pkg/eventqueue"
	"github.com/irctrakz/vwproto/pkg/logging"
	"github.com/irctrakz/vwproto/pkg/message"
	"github.com/irctrakz/vwproto/pkg/transport"
)

type metricsSnapshot struct {
	Timestamp  string            `json:"ts"`
	Transport  map[string]uint64 `json:"transport"`
	Pool       map[string]uint64 `json:"pool"`
	Dispatch   map[string]uint64 `json:"dispatch"`
	EventQueue map[string]uint64 `json:"event_queue,omitempty"`
	Runtime    map[string]uint64 `json:"runtime"`
}

func runMetricsReporter(tr *transport.UDPTransport, d *message.Dispatcher, eq *eventqueue.Client) {
	iv := strings.TrimSpace(os.Getenv("METRICS_INTERVAL"))
	if iv == "" {
		iv = "30s"
	}
	interval, err := time.ParseDuration(iv)
	if err != nil {
		interval = 30 * time.Second
	}

	format := strings.ToLower(strings.TrimSpace(os.Getenv("METRICS_FORMAT")))
	if format == "" {
		format = "text"
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		dumpMetrics(tr, d, eq, format)
		<-ticker.C
	}
}

func dumpMetrics(tr *transport.UDPTransport, d *message.Dispatcher, eq *eventqueue.Client, format string) {
	tm := tr.Metrics()
	pm := tr.PoolMetrics()
	dm := d.Metrics()

	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	snap := metricsSnapshot{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Transport: map[string]uint64{
			"packets_received": tm.PacketsReceived,
			"packets_sent":     tm.PacketsSent,
			"bytes_received":   tm.BytesReceived,
			"bytes_sent":       tm.BytesSent,
			"errors":           tm.Errors,
			"drops":            tm.Drops,
		},
		Pool: map[string]uint64{
			"checkouts":       pm.CheckOuts,
			"returns":         pm.Returns,
			"grows":           pm.Grows,
			"shrinks":         pm.Shrinks,
			"exhausted_waits": pm.ExhaustedWaits,
			"timeouts":        pm.Timeouts,
		},
		Dispatch: map[string]uint64{
			"dispatched":    dm.Dispatched,
			"unknown_type":  dm.UnknownType,
			"decode_errors": dm.DecodeErrors,
			"unhandled":     dm.Unhandled,
		},
		Runtime: map[string]uint64{
			"heap_alloc": ms.HeapAlloc,
			"num_gc":     uint64(ms.NumGC),
			"goroutines": uint64(runtime.NumGoroutine()),
		},
	}
	if eq != nil {
		em := eq.Metrics()
		snap.EventQueue = map[string]uint64{
			"polls":   em.Polls,
			"events":  em.Events,
			"errors":  em.Errors,
			"dropped": em.Dropped,
		}
	}

	if format == "json" {
		if data, err := json.Marshal(snap); err == nil {
			logging.Infof("metrics: %s", data)
		}
		return
	}
	logging.WithFields(logging.Fields{
		"rx":        snap.Transport["packets_received"],
		"tx":        snap.Transport["packets_sent"],
		"drops":     snap.Transport["drops"],
		"checkouts": snap.Pool["checkouts"],
		"grows":     snap.Pool["grows"],
		"shrinks":   snap.Pool["shrinks"],
		"decoded":   snap.Dispatch["dispatched"],
	}).Infof("metrics")
}
