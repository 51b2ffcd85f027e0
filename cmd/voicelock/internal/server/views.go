package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/haivivi/voicelock/pkg/audio/capture"
	"github.com/haivivi/voicelock/pkg/audio/mfcc"
	"github.com/haivivi/voicelock/pkg/relay"
	"github.com/haivivi/voicelock/pkg/voicelock"
)

// SessionView is the JSON form of a session.
type SessionView struct {
	ID       string    `json:"id"`
	State    string    `json:"state"`
	Phase    string    `json:"phase"`
	Locked   bool      `json:"locked"`
	Enrolled int       `json:"enrolled"`
	Target   int       `json:"target"`
	Created  time.Time `json:"created"`
}

func sessionView(s *voicelock.Session) SessionView {
	st := s.Status()
	return SessionView{
		ID:       s.ID(),
		State:    st.String(),
		Phase:    st.Phase.String(),
		Locked:   st.Locked(),
		Enrolled: st.Enrolled,
		Target:   st.Target,
		Created:  s.Created(),
	}
}

// OutcomeView is the JSON form of a capture outcome.
type OutcomeView struct {
	Action     string    `json:"action"`
	Verdict    string    `json:"verdict"`
	State      string    `json:"state"`
	Locked     bool      `json:"locked"`
	Score      *float32  `json:"score,omitempty"`
	Scores     []float32 `json:"scores,omitempty"`
	Threshold  *float32  `json:"threshold,omitempty"`
	Label      string    `json:"label,omitempty"`
	DurationMs float64   `json:"duration_ms"`
	Error      string    `json:"error,omitempty"`
}

// NewOutcomeView converts an Outcome.
func NewOutcomeView(out voicelock.Outcome) OutcomeView {
	v := OutcomeView{
		Action:     out.Action.String(),
		Verdict:    out.Verdict.String(),
		State:      out.State.String(),
		Locked:     out.State.Locked(),
		Label:      out.Label,
		DurationMs: float64(out.Duration) / float64(time.Millisecond),
	}
	if m := out.Match; m != nil {
		v.Score = &m.Score
		v.Scores = m.Scores
		v.Threshold = &m.Threshold
	}
	if out.Err != nil {
		v.Error = out.Err.Error()
	}
	return v
}

// EventView is the JSON frame streamed on the events socket.
type EventView struct {
	Type      string    `json:"type"`
	SessionID string    `json:"session_id"`
	State     string    `json:"state"`
	Locked    bool      `json:"locked"`
	At        time.Time `json:"at"`
}

func eventView(ev voicelock.Event) EventView {
	return EventView{
		Type:      ev.Type.String(),
		SessionID: ev.SessionID,
		State:     ev.State.String(),
		Locked:    ev.State.Locked(),
		At:        ev.At,
	}
}

type errorView struct {
	Error string `json:"error"`
}

// StatusOf maps pipeline and session errors to HTTP status codes.
func StatusOf(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, mfcc.ErrSignalTooShort),
		errors.Is(err, mfcc.ErrInvalidSampleRate),
		errors.Is(err, capture.ErrUnsupportedFormat):
		return http.StatusBadRequest
	case errors.Is(err, voicelock.ErrProfileEmpty),
		errors.Is(err, voicelock.ErrEnrollmentIncomplete),
		errors.Is(err, voicelock.ErrEnrollmentComplete),
		errors.Is(err, voicelock.ErrResetDuringVerify):
		return http.StatusConflict
	case errors.Is(err, relay.ErrLocked):
		return http.StatusLocked
	case errors.Is(err, relay.ErrClosed):
		return http.StatusGone
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
