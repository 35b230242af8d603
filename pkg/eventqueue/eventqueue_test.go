package eventqueue

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/irctrakz/vwproto/pkg/message"
	"github.com/irctrakz/vwproto/pkg/sdata"
)

// jsonParser is the parser used in tests; the production wire format is
// produced by an external structured-data codec with the same tree shape.
func jsonParser(body []byte) (sdata.Map, error) {
	var m map[string]any
	if err := json.Unmarshal(body, &m); err != nil {
		return nil, err
	}
	return sdata.Map(m), nil
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestClientValidation(t *testing.T) {
	d := message.NewDispatcher(message.NewDefaultRegistry())

	_, err := NewClient(Config{}, jsonParser, d)
	assert.Error(t, err)
	_, err = NewClient(DefaultConfig("http://x"), nil, d)
	assert.Error(t, err)
	_, err = NewClient(DefaultConfig("http://x"), jsonParser, nil)
	assert.Error(t, err)
}

// TestClientPollAndDispatch tests a full cycle: poll, parse, queue, decode
// and fan out to a subscriber, with the ack id advancing.
func TestClientPollAndDispatch(t *testing.T) {
	sessionID := uuid.New()

	var served sync.Once
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		first := false
		served.Do(func() { first = true })
		if !first {
			// Hold subsequent polls open like a real event queue.
			time.Sleep(50 * time.Millisecond)
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		assert.Equal(t, "0", r.URL.Query().Get("ack"))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id": 7,
			"events": []any{
				map[string]any{
					"message": message.ChatterBoxSessionStartTag,
					"body": map[string]any{
						"success":    true,
						"session_id": sessionID.String(),
					},
				},
			},
		})
	}))
	defer srv.Close()

	reg := message.NewDefaultRegistry()
	disp := message.NewDispatcher(reg)

	var mu sync.Mutex
	var got []message.Message
	disp.Subscribe(message.ChatterBoxSessionStartTag, func(tag string, msg message.Message) {
		mu.Lock()
		got = append(got, msg)
		mu.Unlock()
	})

	cfg := DefaultConfig(srv.URL)
	cfg.PollTimeout = 2 * time.Second
	cfg.RetryDelay = 10 * time.Millisecond
	client, err := NewClient(cfg, jsonParser, disp)
	require.NoError(t, err)

	require.NoError(t, client.Start())
	defer client.Stop()

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 1
	})

	mu.Lock()
	reply, ok := got[0].(*message.ChatterBoxSessionStartReply)
	mu.Unlock()
	require.True(t, ok)
	assert.True(t, reply.Success)
	assert.Equal(t, sessionID, reply.SessionID)
	assert.Equal(t, int64(7), client.Ack())

	m := client.Metrics()
	assert.Equal(t, uint64(1), m.Events)
	assert.Equal(t, uint64(0), m.Dropped)
}

// TestClientMalformedEvents tests that unparseable bodies and malformed
// event entries are counted and skipped without stopping the poller.
func TestClientMalformedEvents(t *testing.T) {
	responses := []string{
		`not json at all`,
		`{"id": 3, "events": [{"no_message_key": true}, {"message": "", "body": {}}]}`,
	}
	var idx int
	var mu sync.Mutex
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		resp := `{"id": 3, "events": []}`
		if idx < len(responses) {
			resp = responses[idx]
			idx++
		}
		mu.Unlock()
		_, _ = w.Write([]byte(resp))
	}))
	defer srv.Close()

	disp := message.NewDispatcher(message.NewDefaultRegistry())
	cfg := DefaultConfig(srv.URL)
	cfg.RetryDelay = 10 * time.Millisecond
	client, err := NewClient(cfg, jsonParser, disp)
	require.NoError(t, err)

	require.NoError(t, client.Start())
	defer client.Stop()

	waitFor(t, func() bool {
		m := client.Metrics()
		return m.Errors >= 1 && m.Dropped >= 2
	})
	assert.Equal(t, int64(3), client.Ack())
}

// TestClientStop tests that Stop cancels an in-flight long poll promptly.
func TestClientStop(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
		w.WriteHeader(http.StatusGatewayTimeout)
	}))
	defer srv.Close()
	defer close(release)

	disp := message.NewDispatcher(message.NewDefaultRegistry())
	client, err := NewClient(DefaultConfig(srv.URL), jsonParser, disp)
	require.NoError(t, err)
	require.NoError(t, client.Start())

	time.Sleep(50 * time.Millisecond)

	done := make(chan struct{})
	go func() {
		_ = client.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("Stop blocked on in-flight poll")
	}
}
