package server

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/haivivi/voicelock/pkg/voicelock"
)

const (
	eventBuffer  = 16
	writeTimeout = 5 * time.Second
	pingInterval = 30 * time.Second
)

// handleEvents streams lock transitions as JSON text frames until the
// client goes away. The current state is sent first. A client that falls
// eventBuffer events behind loses the oldest ones.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request, sess *voicelock.Session) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("events upgrade failed", "session", sess.ID(), "error", err)
		return
	}
	defer conn.Close()

	events := make(chan voicelock.Event, eventBuffer)
	cancel := sess.Subscribe(func(ev voicelock.Event) {
		select {
		case events <- ev:
		default:
			s.logger.Warn("events client slow, dropping event", "session", sess.ID(), "type", ev.Type)
		}
	})
	defer cancel()

	// The reader only detects the close frame.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	st := sess.Status()
	initial := voicelock.EventLocked
	if !st.Locked() {
		initial = voicelock.EventUnlocked
	}
	if err := s.writeEvent(conn, voicelock.Event{
		Type: initial, SessionID: sess.ID(), State: st, At: time.Now(),
	}); err != nil {
		return
	}

	ping := time.NewTicker(pingInterval)
	defer ping.Stop()
	for {
		select {
		case <-gone:
			return
		case <-r.Context().Done():
			return
		case ev := <-events:
			if err := s.writeEvent(conn, ev); err != nil {
				s.logger.Debug("events write failed", "session", sess.ID(), "error", err)
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout)); err != nil {
				return
			}
		}
	}
}

func (s *Server) writeEvent(conn *websocket.Conn, ev voicelock.Event) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return conn.WriteJSON(eventView(ev))
}
