package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fslarfn/toto-backend-sub000/internal/events"
	"github.com/fslarfn/toto-backend-sub000/internal/models"
)

type fakeRelay struct {
	mu  sync.Mutex
	got [][]byte
}

func (r *fakeRelay) Publish(_ context.Context, data []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, data)
	return nil
}

func (r *fakeRelay) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.got)
}

func startHub(t *testing.T, opts Options) (*Hub, *httptest.Server) {
	t.Helper()
	hub := NewHub(opts)
	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = hub.Run(ctx) }()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := hub.Serve(w, r, "tester"); err != nil {
			t.Logf("serve: %v", err)
		}
	}))
	t.Cleanup(func() {
		srv.Close()
		cancel()
	})
	return hub, srv
}

func dial(t *testing.T, srv *httptest.Server) (*websocket.Conn, string) {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	env := readEnvelope(t, conn)
	require.Equal(t, "session_created", env.Event)
	var hello struct {
		SessionID string `json:"session_id"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &hello))
	require.NotEmpty(t, hello.SessionID)
	return conn, hello.SessionID
}

func readEnvelope(t *testing.T, conn *websocket.Conn) events.Envelope {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var env events.Envelope
	require.NoError(t, json.Unmarshal(data, &env))
	return env
}

func TestHub_RelaysClientEventsToOtherSessions(t *testing.T) {
	relay := &fakeRelay{}
	hub, srv := startHub(t, Options{Relay: relay})

	a, idA := dial(t, srv)
	b, idB := dial(t, srv)
	assert.NotEqual(t, idA, idB)
	require.Eventually(t, func() bool { return hub.SessionCount() == 2 }, time.Second, 10*time.Millisecond)

	// junk and unknown kinds are ignored
	require.NoError(t, a.WriteMessage(websocket.TextMessage, []byte("not json")))
	require.NoError(t, a.WriteJSON(map[string]interface{}{"event": "drop_table", "data": nil}))
	require.NoError(t, a.WriteJSON(map[string]interface{}{"event": "wo_updated", "data": map[string]interface{}{"id": 1, "qty": 20}}))

	env := readEnvelope(t, b)
	assert.Equal(t, "wo_updated", env.Event)
	assert.JSONEq(t, `{"id":1,"qty":20}`, string(env.Data))
	require.Eventually(t, func() bool { return relay.count() == 1 }, time.Second, 10*time.Millisecond)

	// the origin never sees its own event; its next message is the server broadcast
	require.NoError(t, hub.Deliver(context.Background(), events.Deleted(9, time.Now())))
	env = readEnvelope(t, a)
	assert.Equal(t, "wo_deleted", env.Event)
	assert.JSONEq(t, `{"id":9}`, string(env.Data))
	env = readEnvelope(t, b)
	assert.Equal(t, "wo_deleted", env.Event)
	assert.Equal(t, 2, relay.count())
}

func TestHub_DeliverRemoteReachesAllSessions(t *testing.T) {
	hub, srv := startHub(t, Options{})
	a, _ := dial(t, srv)
	b, _ := dial(t, srv)
	require.Eventually(t, func() bool { return hub.SessionCount() == 2 }, time.Second, 10*time.Millisecond)

	data, err := events.Created(&models.WorkOrder{ID: 4, Customer: "Budi"}).Encode()
	require.NoError(t, err)
	require.NoError(t, hub.DeliverRemote(context.Background(), data))

	for _, conn := range []*websocket.Conn{a, b} {
		env := readEnvelope(t, conn)
		assert.Equal(t, "wo_created", env.Event)
		assert.Contains(t, string(env.Data), `"customer":"Budi"`)
	}

	assert.Error(t, hub.DeliverRemote(context.Background(), []byte("{")))
}

func TestHub_FullBufferDropsOnlyForThatSession(t *testing.T) {
	hub := NewHub(Options{SendBuffer: 1})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = hub.Run(ctx) }()

	slow := &Session{ID: "slow", hub: hub, send: make(chan []byte, 1)}
	fast := &Session{ID: "fast", hub: hub, send: make(chan []byte, 4)}
	hub.register <- slow
	hub.register <- fast

	for i := 0; i < 3; i++ {
		require.NoError(t, hub.Deliver(ctx, events.Deleted(uint(i+1), time.Now())))
	}

	require.Eventually(t, func() bool { return len(fast.send) == 3 }, time.Second, 10*time.Millisecond)
	assert.Len(t, slow.send, 1)
}

func TestHub_CloseDisconnectsSessions(t *testing.T) {
	hub, srv := startHub(t, Options{})
	conn, _ := dial(t, srv)
	require.Eventually(t, func() bool { return hub.SessionCount() == 1 }, time.Second, 10*time.Millisecond)

	hub.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	require.Error(t, err)
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure))

	assert.ErrorIs(t, hub.Deliver(context.Background(), events.Deleted(1, time.Now())), ErrClosed)
}
