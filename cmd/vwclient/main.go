package main

import (
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/irctrakz/vwproto/pkg/config"
	"github.com/irctrakz/vwproto/pkg/core"
	"github.com/irctrakz/vwproto/pkg/eventqueue"
	"github.com/irctrakz/vwproto/pkg/logging"
	"github.com/irctrakz/vwproto/pkg/message"
	"github.com/irctrakz/vwproto/pkg/transport"
)

func main() {
	// Debug logging toggle via DEBUG env (truthy parser)
	dval := strings.ToLower(strings.TrimSpace(os.Getenv("DEBUG")))
	debugOn := dval == "1" || dval == "true" || dval == "yes" || dval == "on"
	metricsEnabled := strings.TrimSpace(os.Getenv("METRICS_INTERVAL")) != ""

	cfg := config.DefaultConfig()
	if path := configPath(); path != "" {
		if err := config.LoadFromFile(path, cfg); err != nil {
			log.Fatalf("config: %v", err)
		}
	}
	config.LoadFromEnv(cfg)
	if debugOn {
		cfg.Logging.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config: %v", err)
	}
	if err := cfg.ApplyLogging(); err != nil {
		log.Fatalf("logging: %v", err)
	}
	if !debugOn && !metricsEnabled && cfg.Logging.Level == "info" {
		// Keep the runtime quiet unless explicitly enabled.
		logging.SetLevel(logging.WarnLevel)
	}

	// Message registry and consumer boundary.
	registry := message.NewRegistry()
	if err := message.RegisterBuiltins(registry); err != nil {
		log.Fatalf("registry: %v", err)
	}
	dispatcher := message.NewDispatcher(registry)
	dispatcher.Subscribe(message.TeleportFinishTag, func(tag string, msg message.Message) {
		tf := msg.(*message.TeleportFinish)
		logging.Infof("teleport finished: agent=%s sim=%v:%d", tf.AgentID, []byte(tf.SimIP), tf.SimPort)
	})
	dispatcher.Subscribe(message.EnableSimulatorTag, func(tag string, msg message.Message) {
		es := msg.(*message.EnableSimulator)
		logging.Infof("neighbor simulator enabled: %v:%d", []byte(es.IP), es.Port)
	})

	// UDP transport with pooled buffers.
	tr, err := transport.NewUDPTransport(cfg.TransportConfig())
	if err != nil {
		log.Fatalf("transport: %v", err)
	}
	tr.SetHandler(core.DatagramHandlerFunc(func(buf *core.Buffer) error {
		// Packet-level decoding is handled by the circuit layer; here we
		// account for traffic so idle circuits are visible.
		logging.Debugf("datagram: %d bytes from %v", buf.Length(), buf.Remote())
		return nil
	}))
	if err := tr.Start(); err != nil {
		log.Fatalf("transport start: %v", err)
	}
	defer tr.Stop()

	// Optional event-queue side channel.
	var eq *eventqueue.Client
	if cfg.EventQueue.URL != "" {
		eqCfg := eventqueue.DefaultConfig(cfg.EventQueue.URL)
		eq, err = eventqueue.NewClient(eqCfg, jsonParser, dispatcher)
		if err != nil {
			log.Fatalf("event queue: %v", err)
		}
		if err := eq.Start(); err != nil {
			log.Fatalf("event queue start: %v", err)
		}
		defer eq.Stop()
	}

	if metricsEnabled {
		go runMetricsReporter(tr, dispatcher, eq)
	}

	logging.Infof("vwclient running on %s", tr.LocalAddr())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	logging.Infof("shutting down")
}

// configPath returns the config file path from argv or CONFIG_FILE.
func configPath() string {
	if len(os.Args) > 1 {
		return os.Args[1]
	}
	return strings.TrimSpace(os.Getenv("CONFIG_FILE"))
}
