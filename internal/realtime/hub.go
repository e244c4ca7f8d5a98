// Package realtime keeps the websocket sessions of connected grid clients
// and fans work order changes out to them.
package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/fslarfn/toto-backend-sub000/internal/events"
	"github.com/fslarfn/toto-backend-sub000/internal/metrics"
)

// Delivery paths, used as metric labels
const (
	PathServer = "server"
	PathPeer   = "peer"
	PathRemote = "remote"
)

const defaultSendBuffer = 256

// ErrClosed is returned when publishing to a stopped hub
var ErrClosed = errors.New("realtime hub closed")

// Relay carries encoded envelopes to hubs running in other processes
type Relay interface {
	Publish(ctx context.Context, data []byte) error
}

type outbound struct {
	event string
	data  []byte
	from  *Session
	path  string
}

// Hub owns the set of connected sessions. A single Run goroutine mutates it;
// everything else talks to it over channels.
type Hub struct {
	sessions   map[*Session]struct{}
	register   chan *Session
	unregister chan *Session
	broadcast  chan outbound

	relay      Relay
	sendBuffer int
	upgrader   websocket.Upgrader

	count     int64
	done      chan struct{}
	closeOnce sync.Once
}

// Options tune a hub
type Options struct {
	// SendBuffer is the number of queued messages per session before drops start
	SendBuffer int
	// Relay, when set, receives every event so other instances can deliver it
	Relay Relay
}

// NewHub creates a hub. Call Run before serving sessions.
func NewHub(opts Options) *Hub {
	buf := opts.SendBuffer
	if buf <= 0 {
		buf = defaultSendBuffer
	}
	return &Hub{
		sessions:   make(map[*Session]struct{}),
		register:   make(chan *Session),
		unregister: make(chan *Session),
		broadcast:  make(chan outbound, 64),
		relay:      opts.Relay,
		sendBuffer: buf,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// Sessions authenticate with a bearer token, not cookies
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		done: make(chan struct{}),
	}
}

// Run processes registrations and broadcasts until ctx ends or Close is called
func (h *Hub) Run(ctx context.Context) error {
	log.Info().Msg("realtime hub started")
	defer h.shutdown()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-h.done:
			return nil

		case s := <-h.register:
			h.sessions[s] = struct{}{}
			atomic.AddInt64(&h.count, 1)
			metrics.SessionOpened()
			log.Info().Str("session_id", s.ID).Str("user", s.User).Msg("realtime session opened")

		case s := <-h.unregister:
			if _, ok := h.sessions[s]; ok {
				h.drop(s)
				log.Info().Str("session_id", s.ID).Msg("realtime session closed")
			}

		case m := <-h.broadcast:
			for s := range h.sessions {
				if s == m.from {
					continue
				}
				select {
				case s.send <- m.data:
					metrics.EventDelivered(m.event, m.path)
				default:
					metrics.EventDropped()
					log.Warn().Str("session_id", s.ID).Str("event", m.event).Msg("session send buffer full, event dropped")
				}
			}
		}
	}
}

// Close stops the hub and disconnects every session
func (h *Hub) Close() {
	h.closeOnce.Do(func() { close(h.done) })
}

func (h *Hub) shutdown() {
	h.Close()
	for s := range h.sessions {
		h.drop(s)
	}
	log.Info().Msg("realtime hub stopped")
}

func (h *Hub) drop(s *Session) {
	delete(h.sessions, s)
	close(s.send)
	atomic.AddInt64(&h.count, -1)
	metrics.SessionClosed()
}

// SessionCount returns the number of registered sessions
func (h *Hub) SessionCount() int {
	return int(atomic.LoadInt64(&h.count))
}

// Serve upgrades the request to a websocket session owned by user
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, user string) error {
	select {
	case <-h.done:
		return ErrClosed
	default:
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return errors.Wrap(err, "failed to upgrade websocket")
	}

	s := &Session{
		ID:   uuid.New().String(),
		User: user,
		hub:  h,
		conn: conn,
		send: make(chan []byte, h.sendBuffer),
	}

	hello, _ := json.Marshal(map[string]interface{}{
		"event": "session_created",
		"data":  map[string]string{"session_id": s.ID},
	})
	s.send <- hello

	select {
	case h.register <- s:
	case <-h.done:
		_ = conn.Close()
		return ErrClosed
	}

	go s.writePump()
	go s.readPump()
	return nil
}

// Name implements events.Sink
func (h *Hub) Name() string { return "realtime" }

// Deliver implements events.Sink: the change goes to every local session and,
// when a relay is configured, to the other instances.
func (h *Hub) Deliver(ctx context.Context, change events.Change) error {
	data, err := change.Encode()
	if err != nil {
		return errors.Wrap(err, "failed to encode change")
	}
	if err := h.send(ctx, outbound{event: string(change.Kind), data: data, path: PathServer}); err != nil {
		return err
	}
	return h.publishRelay(ctx, data)
}

// DeliverRemote hands an envelope received from another instance to local sessions
func (h *Hub) DeliverRemote(ctx context.Context, data []byte) error {
	var env events.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return errors.Wrap(err, "invalid relayed envelope")
	}
	return h.send(ctx, outbound{event: env.Event, data: data, path: PathRemote})
}

// relayPeer forwards a client-originated event to every other session
func (h *Hub) relayPeer(from *Session, kind events.Kind, data []byte) {
	ctx := context.Background()
	if err := h.send(ctx, outbound{event: string(kind), data: data, from: from, path: PathPeer}); err != nil {
		return
	}
	if err := h.publishRelay(ctx, data); err != nil {
		log.Warn().Err(err).Str("event", string(kind)).Msg("failed to relay peer event")
	}
}

func (h *Hub) send(ctx context.Context, m outbound) error {
	select {
	case <-h.done:
		return ErrClosed
	default:
	}

	select {
	case h.broadcast <- m:
		return nil
	case <-h.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *Hub) publishRelay(ctx context.Context, data []byte) error {
	if h.relay == nil {
		return nil
	}
	return h.relay.Publish(ctx, data)
}

func (h *Hub) leave(s *Session) {
	select {
	case h.unregister <- s:
	case <-h.done:
	}
}
