// Package server exposes voicelock sessions over HTTP.
//
// Routes:
//
//	POST   /v1/sessions                 create a session
//	GET    /v1/sessions                 list sessions
//	GET    /v1/sessions/{id}            session state
//	DELETE /v1/sessions/{id}            close a session
//	POST   /v1/sessions/{id}/captures   submit a WAV or audio/L16 capture
//	POST   /v1/sessions/{id}/reset      lock and clear the profile
//	GET    /v1/sessions/{id}/journal    recorded attempts
//	GET    /v1/sessions/{id}/events     WebSocket stream of lock events
//	POST   /v1/sessions/{id}/commands   relay an actuator command
//	GET    /metrics                     Prometheus metrics
//	GET    /healthz                     liveness probe
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/haivivi/voicelock/pkg/audio/capture"
	"github.com/haivivi/voicelock/pkg/journal"
	"github.com/haivivi/voicelock/pkg/relay"
	"github.com/haivivi/voicelock/pkg/voicelock"
)

// DefaultMaxCaptureBytes bounds capture uploads (about 8 minutes of 16 kHz
// 16-bit mono).
const DefaultMaxCaptureBytes = 16 << 20

// Options configures a Server.
type Options struct {
	// Manager holds the sessions. Required.
	Manager *voicelock.Manager

	// Journal serves /journal. Nil disables the route.
	Journal journal.Store

	// Registry serves /metrics. Nil disables the route.
	Registry *prometheus.Registry

	// NewSink creates the actuator sink for a session's relay. Nil logs
	// commands.
	NewSink func(sessionID string) relay.Sink

	// Debounce is the relay quiet interval.
	Debounce time.Duration

	// MaxCaptureBytes bounds capture bodies. Default DefaultMaxCaptureBytes.
	MaxCaptureBytes int64

	Logger *slog.Logger
}

// Server is the HTTP front end of a Manager.
type Server struct {
	opts     Options
	logger   *slog.Logger
	upgrader websocket.Upgrader

	mu     sync.Mutex
	relays map[string]*sessionRelay
}

type sessionRelay struct {
	relay  *relay.Relay
	cancel func()
}

// New creates a Server.
func New(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.MaxCaptureBytes <= 0 {
		opts.MaxCaptureBytes = DefaultMaxCaptureBytes
	}
	return &Server{
		opts:   opts,
		logger: opts.Logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		relays: make(map[string]*sessionRelay),
	}
}

// Handler returns the route multiplexer.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/sessions", s.handleCreate)
	mux.HandleFunc("GET /v1/sessions", s.handleList)
	mux.HandleFunc("GET /v1/sessions/{id}", s.withSession(s.handleGet))
	mux.HandleFunc("DELETE /v1/sessions/{id}", s.handleDelete)
	mux.HandleFunc("POST /v1/sessions/{id}/captures", s.withSession(s.handleCapture))
	mux.HandleFunc("POST /v1/sessions/{id}/reset", s.withSession(s.handleReset))
	mux.HandleFunc("GET /v1/sessions/{id}/events", s.withSession(s.handleEvents))
	mux.HandleFunc("POST /v1/sessions/{id}/commands", s.withSession(s.handleCommand))
	if s.opts.Journal != nil {
		mux.HandleFunc("GET /v1/sessions/{id}/journal", s.withSession(s.handleJournal))
	}
	if s.opts.Registry != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(s.opts.Registry, promhttp.HandlerOpts{}))
	}
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	return mux
}

// Close stops every relay. Sessions belong to the Manager.
func (s *Server) Close() {
	s.mu.Lock()
	relays := s.relays
	s.relays = make(map[string]*sessionRelay)
	s.mu.Unlock()
	for id, r := range relays {
		r.cancel()
		if err := r.relay.Close(); err != nil {
			s.logger.Warn("close relay", "session", id, "error", err)
		}
	}
}

func (s *Server) withSession(h func(http.ResponseWriter, *http.Request, *voicelock.Session)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		sess, ok := s.opts.Manager.Get(id)
		if !ok {
			writeError(w, http.StatusNotFound, fmt.Errorf("session %q not found", id))
			return
		}
		h(w, r, sess)
	}
}

func (s *Server) handleCreate(w http.ResponseWriter, _ *http.Request) {
	sess, err := s.opts.Manager.Create()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.logger.Info("session created", "session", sess.ID())
	writeJSON(w, http.StatusCreated, sessionView(sess))
}

func (s *Server) handleList(w http.ResponseWriter, _ *http.Request) {
	sessions := s.opts.Manager.List()
	views := make([]SessionView, len(sessions))
	for i, sess := range sessions {
		views[i] = sessionView(sess)
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleGet(w http.ResponseWriter, _ *http.Request, sess *voicelock.Session) {
	writeJSON(w, http.StatusOK, sessionView(sess))
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	s.closeRelay(id)
	if !s.opts.Manager.Delete(id) {
		writeError(w, http.StatusNotFound, fmt.Errorf("session %q not found", id))
		return
	}
	s.logger.Info("session deleted", "session", id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCapture(w http.ResponseWriter, r *http.Request, sess *voicelock.Session) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.opts.MaxCaptureBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, err)
			return
		}
		writeError(w, http.StatusBadRequest, err)
		return
	}
	sig, err := capture.Decode(body, r.Header.Get("Content-Type"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	out := sess.Submit(r.Context(), sig)
	writeJSON(w, StatusOf(out.Err), NewOutcomeView(out))
}

func (s *Server) handleReset(w http.ResponseWriter, _ *http.Request, sess *voicelock.Session) {
	sess.Reset()
	writeJSON(w, http.StatusOK, sessionView(sess))
}

func (s *Server) handleJournal(w http.ResponseWriter, r *http.Request, sess *voicelock.Session) {
	recs, err := journal.Collect(r.Context(), s.opts.Journal, sess.ID())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if recs == nil {
		recs = []journal.Record{}
	}
	writeJSON(w, http.StatusOK, recs)
}

func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request, sess *voicelock.Session) {
	var cmd relay.Command
	if err := json.NewDecoder(io.LimitReader(r.Body, 64<<10)).Decode(&cmd); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode command: %w", err))
		return
	}
	if cmd.Channel == "" {
		writeError(w, http.StatusBadRequest, errors.New("command has no channel"))
		return
	}
	if err := s.relayFor(sess).Send(cmd); err != nil {
		writeError(w, StatusOf(err), err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// relayFor returns the session's relay, creating it on first use.
func (s *Server) relayFor(sess *voicelock.Session) *relay.Relay {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.relays[sess.ID()]; ok {
		return r.relay
	}
	var sink relay.Sink = relay.LogSink{Logger: s.logger.With("session", sess.ID())}
	if s.opts.NewSink != nil {
		sink = s.opts.NewSink(sess.ID())
	}
	r := relay.New(sink, sess,
		relay.WithDebounce(s.opts.Debounce),
		relay.WithLogger(s.logger.With("component", "relay", "session", sess.ID())),
	)
	s.relays[sess.ID()] = &sessionRelay{relay: r, cancel: r.Watch(sess)}
	return r
}

func (s *Server) closeRelay(id string) {
	s.mu.Lock()
	r, ok := s.relays[id]
	delete(s.relays, id)
	s.mu.Unlock()
	if !ok {
		return
	}
	r.cancel()
	if err := r.relay.Close(); err != nil {
		s.logger.Warn("close relay", "session", id, "error", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorView{Error: err.Error()})
}
