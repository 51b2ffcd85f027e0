package voicelock

import (
	"errors"
	"fmt"
	"time"

	"github.com/haivivi/voicelock/pkg/voiceprint"
)

// Sentinel errors.
var (
	// ErrProfileEmpty is returned by Verify when nothing is enrolled. The
	// matcher is never invoked with an empty profile.
	ErrProfileEmpty = errors.New("voicelock: no voice profile enrolled")

	// ErrEnrollmentIncomplete is returned by Verify while the profile has
	// fewer embeddings than the enrollment target.
	ErrEnrollmentIncomplete = errors.New("voicelock: enrollment incomplete")

	// ErrEnrollmentComplete is returned by Enroll once the profile is full.
	ErrEnrollmentComplete = errors.New("voicelock: enrollment already complete")

	// ErrResetDuringVerify is returned when the session was reset while a
	// verification was running. The stale result is discarded.
	ErrResetDuringVerify = errors.New("voicelock: session reset during verification")
)

// Phase is the coarse session state.
type Phase int

const (
	// PhaseEnrolling collects enrollment captures. With zero captures this
	// is the locked initial state.
	PhaseEnrolling Phase = iota

	// PhaseReady has a complete profile and is waiting for a verification.
	PhaseReady

	// PhaseUnlocked has accepted a verification.
	PhaseUnlocked
)

func (p Phase) String() string {
	switch p {
	case PhaseEnrolling:
		return "enrolling"
	case PhaseReady:
		return "ready"
	case PhaseUnlocked:
		return "unlocked"
	default:
		return fmt.Sprintf("Phase(%d)", int(p))
	}
}

// State is a snapshot of a session.
type State struct {
	Phase    Phase `json:"phase" yaml:"phase"`
	Enrolled int   `json:"enrolled" yaml:"enrolled"`
	Target   int   `json:"target" yaml:"target"`
}

// Locked reports whether the actuator is locked.
func (s State) Locked() bool { return s.Phase != PhaseUnlocked }

func (s State) String() string {
	if s.Phase == PhaseEnrolling {
		return fmt.Sprintf("enrolling(%d/%d)", s.Enrolled, s.Target)
	}
	return s.Phase.String()
}

// Action identifies the operation that produced an Outcome.
type Action int

const (
	ActionEnroll Action = iota
	ActionVerify
)

func (a Action) String() string {
	switch a {
	case ActionEnroll:
		return "enroll"
	case ActionVerify:
		return "verify"
	default:
		return fmt.Sprintf("Action(%d)", int(a))
	}
}

// Verdict is the result of one capture.
type Verdict int

const (
	// VerdictEnrolled means the capture was added to the profile.
	VerdictEnrolled Verdict = iota

	// VerdictAccepted means verification succeeded and the session unlocked.
	VerdictAccepted

	// VerdictRejected means verification failed; the session stays ready.
	VerdictRejected

	// VerdictAlreadyUnlocked means the session was unlocked before the
	// capture; nothing was matched and no observer was notified.
	VerdictAlreadyUnlocked

	// VerdictRetry means the capture could not be processed (for example it
	// was too short). Outcome.Err holds the cause; state is unchanged.
	VerdictRetry
)

func (v Verdict) String() string {
	switch v {
	case VerdictEnrolled:
		return "enrolled"
	case VerdictAccepted:
		return "accepted"
	case VerdictRejected:
		return "rejected"
	case VerdictAlreadyUnlocked:
		return "already_unlocked"
	case VerdictRetry:
		return "retry"
	default:
		return fmt.Sprintf("Verdict(%d)", int(v))
	}
}

// Outcome describes the processing of one capture.
type Outcome struct {
	Action  Action
	Verdict Verdict

	// State is the session state after the capture.
	State State

	// Match is set for verifications that reached the matcher.
	Match *voiceprint.MatchResult

	// Label is the voice label of the captured embedding.
	Label string

	// Duration is the time spent in the numeric pipeline.
	Duration time.Duration

	// Err is the recovered error for VerdictRetry outcomes from Submit.
	Err error
}

// EventType identifies a lock transition.
type EventType int

const (
	EventUnlocked EventType = iota
	EventLocked
)

func (e EventType) String() string {
	switch e {
	case EventUnlocked:
		return "unlocked"
	case EventLocked:
		return "locked"
	default:
		return fmt.Sprintf("EventType(%d)", int(e))
	}
}

// Event is delivered to observers on a lock transition.
type Event struct {
	Type      EventType
	SessionID string
	State     State
	At        time.Time
}
