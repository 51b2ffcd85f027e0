package relay

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// LogSink logs every command. It is useful without an actuator attached.
type LogSink struct {
	Logger *slog.Logger
}

func (s LogSink) Send(_ context.Context, cmd Command) error {
	l := s.Logger
	if l == nil {
		l = slog.Default()
	}
	l.Info("relay: command",
		"channel", cmd.Channel,
		"value", cmd.Value,
		"latency", time.Since(cmd.IssuedAt))
	return nil
}

func (LogSink) Close() error { return nil }

// WebSocketSink writes each command as a JSON text frame to a WebSocket
// endpoint. The connection is dialed lazily and redialed once when a write
// fails.
type WebSocketSink struct {
	url    string
	header http.Header
	dialer websocket.Dialer

	mu   sync.Mutex
	conn *websocket.Conn
}

// NewWebSocketSink creates a sink for url ("ws://" or "wss://").
func NewWebSocketSink(url string, header http.Header) *WebSocketSink {
	return &WebSocketSink{
		url:    url,
		header: header,
		dialer: websocket.Dialer{HandshakeTimeout: 5 * time.Second},
	}
}

func (s *WebSocketSink) Send(ctx context.Context, cmd Command) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for attempt := 0; ; attempt++ {
		if s.conn == nil {
			conn, _, err := s.dialer.DialContext(ctx, s.url, s.header)
			if err != nil {
				return fmt.Errorf("relay: dial %s: %w", s.url, err)
			}
			s.conn = conn
		}
		err := s.conn.WriteJSON(cmd)
		if err == nil {
			return nil
		}
		s.conn.Close()
		s.conn = nil
		if attempt > 0 {
			return fmt.Errorf("relay: write command: %w", err)
		}
	}
}

func (s *WebSocketSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return nil
	}
	_ = s.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	err := s.conn.Close()
	s.conn = nil
	return err
}
