package realtime

import (
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/fslarfn/toto-backend-sub000/internal/events"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 1 << 20
)

// Session is one connected websocket client
type Session struct {
	ID   string
	User string

	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

// readPump relays client edit events to the other sessions. Client messages
// never reach the store.
func (s *Session) readPump() {
	defer func() {
		s.hub.leave(s)
		_ = s.conn.Close()
	}()

	s.conn.SetReadLimit(maxMessageSize)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug().Err(err).Str("session_id", s.ID).Msg("websocket closed unexpectedly")
			}
			return
		}

		var env events.Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			log.Debug().Err(err).Str("session_id", s.ID).Msg("ignoring malformed client message")
			continue
		}
		kind := events.Kind(env.Event)
		if !kind.Valid() {
			log.Debug().Str("session_id", s.ID).Str("event", env.Event).Msg("ignoring unknown client event")
			continue
		}

		out, err := json.Marshal(env)
		if err != nil {
			continue
		}
		s.hub.relayPeer(s, kind, out)
	}
}

// writePump is the only writer on the connection
func (s *Session) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = s.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// hub closed the session
				_ = s.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}

		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
