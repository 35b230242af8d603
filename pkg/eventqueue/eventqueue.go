// Package eventqueue implements the HTTP long-poll side channel that
// delivers capability events alongside the UDP circuit. Each poll returns a
// structured-data body holding an acknowledgement id and a batch of events;
// events are queued and drained to the message dispatcher on a separate
// goroutine so a slow handler never stalls the poll cycle.
package eventqueue

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/eapache/queue"
	"github.com/sirupsen/logrus"

	"github.com/irctrakz/vwproto/pkg/core"
	"github.com/irctrakz/vwproto/pkg/logging"
	"github.com/irctrakz/vwproto/pkg/message"
	"github.com/irctrakz/vwproto/pkg/sdata"
)

// Parser converts a raw poll response body into a structured-data tree. The
// wire format (binary or XML structured data) is handled outside this
// package; tests and the daemon inject a concrete parser.
type Parser func(body []byte) (sdata.Map, error)

// Config controls the event-queue client.
type Config struct {
	// URL is the event-queue capability endpoint.
	URL string

	// PollTimeout bounds one long-poll request. The server normally holds
	// the request open until events arrive or its own timeout fires.
	PollTimeout time.Duration

	// RetryDelay is the wait after a failed poll before the next attempt.
	RetryDelay time.Duration
}

// DefaultConfig returns the standard poll timings.
func DefaultConfig(url string) Config {
	return Config{
		URL:         url,
		PollTimeout: 30 * time.Second,
		RetryDelay:  time.Second,
	}
}

type event struct {
	tag  string
	body sdata.Map
}

// Client polls the event queue and feeds decoded events to a dispatcher.
type Client struct {
	config     Config
	httpClient *http.Client
	parser     Parser
	dispatcher *message.Dispatcher
	log        *logrus.Entry

	// pending holds events between the poll and drain goroutines. The ring
	// itself is not goroutine safe; mu guards it and signal carries the
	// wakeup token.
	mu      sync.Mutex
	pending *queue.Queue
	signal  chan struct{}

	ack     atomic.Int64
	metrics core.EventQueueMetrics

	startMu sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewClient creates an event-queue client. The parser and dispatcher are
// required collaborators.
func NewClient(config Config, parser Parser, dispatcher *message.Dispatcher) (*Client, error) {
	if config.URL == "" {
		return nil, errors.New("eventqueue: URL must not be empty")
	}
	if parser == nil {
		return nil, errors.New("eventqueue: parser must not be nil")
	}
	if dispatcher == nil {
		return nil, errors.New("eventqueue: dispatcher must not be nil")
	}
	if config.PollTimeout <= 0 {
		config.PollTimeout = 30 * time.Second
	}
	if config.RetryDelay <= 0 {
		config.RetryDelay = time.Second
	}
	return &Client{
		config:     config,
		httpClient: &http.Client{Timeout: config.PollTimeout},
		parser:     parser,
		dispatcher: dispatcher,
		log:        logging.Component("eventqueue"),
		pending:    queue.New(),
		signal:     make(chan struct{}, 1),
	}, nil
}

// Start launches the poll and drain goroutines.
func (c *Client) Start() error {
	c.startMu.Lock()
	defer c.startMu.Unlock()
	if c.running {
		return errors.New("eventqueue: already running")
	}
	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.running = true

	c.wg.Add(2)
	go c.pollLoop(ctx)
	go c.drainLoop(ctx)

	c.log.Infof("event queue polling %s", c.config.URL)
	return nil
}

// Stop cancels in-flight polls and waits for both goroutines.
func (c *Client) Stop() error {
	c.startMu.Lock()
	defer c.startMu.Unlock()
	if !c.running {
		return nil
	}
	c.running = false
	c.cancel()
	c.wg.Wait()
	c.log.Infof("event queue stopped")
	return nil
}

func (c *Client) pollLoop(ctx context.Context) {
	defer c.wg.Done()
	for {
		if ctx.Err() != nil {
			return
		}
		if err := c.pollOnce(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			atomic.AddUint64(&c.metrics.Errors, 1)
			c.log.Warnf("poll: %v", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(c.config.RetryDelay):
			}
		}
	}
}

// pollOnce runs one long-poll cycle: request with the current ack id, parse
// the body, enqueue the events and advance the ack.
func (c *Client) pollOnce(ctx context.Context) error {
	url := fmt.Sprintf("%s?ack=%s", c.config.URL, strconv.FormatInt(c.ack.Load(), 10))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	// 502/504 are the server's idle-timeout answers; treat them as an empty
	// poll, not an error.
	if resp.StatusCode == http.StatusBadGateway || resp.StatusCode == http.StatusGatewayTimeout {
		atomic.AddUint64(&c.metrics.Polls, 1)
		return nil
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("eventqueue: poll status %s", resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	tree, err := c.parser(body)
	if err != nil {
		return fmt.Errorf("eventqueue: parse: %w", err)
	}

	if id, ok := tree.Int("id"); ok {
		c.ack.Store(int64(id))
	}
	events, _ := tree.Array("events")
	enqueued := 0
	for _, raw := range events {
		ev, ok := asEvent(raw)
		if !ok {
			atomic.AddUint64(&c.metrics.Dropped, 1)
			c.log.Debugf("dropping malformed event entry")
			continue
		}
		c.mu.Lock()
		c.pending.Add(ev)
		c.mu.Unlock()
		enqueued++
	}
	if enqueued > 0 {
		atomic.AddUint64(&c.metrics.Events, uint64(enqueued))
		select {
		case c.signal <- struct{}{}:
		default:
		}
	}
	atomic.AddUint64(&c.metrics.Polls, 1)
	return nil
}

// asEvent validates one entry of the poll body's events array.
func asEvent(raw any) (event, bool) {
	m, ok := raw.(map[string]any)
	var node sdata.Map
	if ok {
		node = sdata.Map(m)
	} else if node, ok = raw.(sdata.Map); !ok {
		return event{}, false
	}
	tag, ok := node.String("message")
	if !ok || tag == "" {
		return event{}, false
	}
	body, ok := node.Map("body")
	if !ok {
		return event{}, false
	}
	return event{tag: tag, body: body}, true
}

func (c *Client) drainLoop(ctx context.Context) {
	defer c.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.signal:
		}
		for {
			c.mu.Lock()
			if c.pending.Length() == 0 {
				c.mu.Unlock()
				break
			}
			ev := c.pending.Remove().(event)
			c.mu.Unlock()

			// Dispatch errors are recoverable per-message; the dispatcher
			// already counted and logged them.
			_ = c.dispatcher.Dispatch(ev.tag, ev.body)
		}
	}
}

// Ack returns the last acknowledged event id.
func (c *Client) Ack() int64 { return c.ack.Load() }

// Metrics returns a snapshot of the event-queue counters.
func (c *Client) Metrics() core.EventQueueMetrics {
	return core.EventQueueMetrics{
		Polls:   atomic.LoadUint64(&c.metrics.Polls),
		Events:  atomic.LoadUint64(&c.metrics.Events),
		Errors:  atomic.LoadUint64(&c.metrics.Errors),
		Dropped: atomic.LoadUint64(&c.metrics.Dropped),
	}
}
