package voicelock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/haivivi/voicelock/pkg/archive"
	"github.com/haivivi/voicelock/pkg/audio/capture"
	"github.com/haivivi/voicelock/pkg/audio/mfcc"
	"github.com/haivivi/voicelock/pkg/journal"
	"github.com/haivivi/voicelock/pkg/voiceprint"
)

// labelSeed fixes the label hyperplanes so labels are stable across runs.
const labelSeed = 0x766f6963

// Config controls a Session.
type Config struct {
	// SampleRate is the pipeline sample rate. Captures at other rates are
	// resampled. Default: 16000.
	SampleRate int

	// EnrollTarget is the number of captures that complete a profile.
	// Default: 3.
	EnrollTarget int

	// Threshold is the cosine similarity a verification must exceed.
	// Zero means voiceprint.DefaultThreshold (0.75); use WithThreshold for
	// an explicit zero.
	Threshold float32
}

// DefaultConfig returns the default session configuration.
func DefaultConfig() Config {
	return Config{
		SampleRate:   16000,
		EnrollTarget: 3,
		Threshold:    voiceprint.DefaultThreshold,
	}
}

// Option configures a Session.
type Option func(*Session)

// WithID sets the session id. Default: a random UUID.
func WithID(id string) Option {
	return func(s *Session) { s.id = id }
}

// WithThreshold sets the acceptance threshold, overriding Config.Threshold.
// Unlike the Config field, zero is taken literally.
func WithThreshold(t float32) Option {
	return func(s *Session) {
		s.cfg.Threshold = t
		s.thresholdSet = true
	}
}

// WithGenerator sets the embedding generator. The generator is shared and
// not closed by the session. Default: identity embeddings.
func WithGenerator(g *voiceprint.Generator) Option {
	return func(s *Session) { s.generator = g }
}

// WithHasher sets the hasher used for voice labels.
func WithHasher(h *voiceprint.Hasher) Option {
	return func(s *Session) { s.hasher = h }
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) { s.logger = l }
}

// WithMetrics records every outcome on m.
func WithMetrics(m *Metrics) Option {
	return func(s *Session) { s.metrics = m }
}

// WithJournal records every attempt in j.
func WithJournal(j journal.Store) Option {
	return func(s *Session) { s.journal = j }
}

// WithArchive stores every capture as a WAV clip in a.
func WithArchive(a archive.Store) Option {
	return func(s *Session) { s.archive = a }
}

// Session is one enrollment/verification context with its own profile and
// lock. All methods are safe for concurrent use.
type Session struct {
	id      string
	cfg     Config
	created time.Time

	thresholdSet bool

	extractor *mfcc.Extractor
	generator *voiceprint.Generator
	matcher   *voiceprint.Matcher
	hasher    *voiceprint.Hasher
	logger    *slog.Logger
	metrics   *Metrics
	journal   journal.Store
	archive   archive.Store

	// mu orders profile changes with lock transitions.
	mu       sync.RWMutex
	profile  *voiceprint.Profile
	unlocked bool
	epoch    uint64 // incremented by Reset

	subMu   sync.Mutex
	subs    map[int]func(Event)
	nextSub int

	clipMu sync.Mutex
	clips  []string

	seq atomic.Uint64
}

// New creates a locked session with an empty profile.
func New(cfg Config, opts ...Option) (*Session, error) {
	def := DefaultConfig()
	if cfg.SampleRate == 0 {
		cfg.SampleRate = def.SampleRate
	}
	if cfg.EnrollTarget == 0 {
		cfg.EnrollTarget = def.EnrollTarget
	}
	if cfg.EnrollTarget < 0 {
		return nil, fmt.Errorf("voicelock: enroll target must be positive, got %d", cfg.EnrollTarget)
	}

	ext, err := mfcc.New(mfcc.DefaultConfig(cfg.SampleRate))
	if err != nil {
		return nil, fmt.Errorf("voicelock: %w", err)
	}

	s := &Session{
		cfg:       cfg,
		created:   time.Now(),
		extractor: ext,
		logger:    slog.Default(),
		profile:   voiceprint.NewProfile(),
		subs:      make(map[int]func(Event)),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.cfg.Threshold == 0 && !s.thresholdSet {
		s.cfg.Threshold = def.Threshold
	}
	if s.cfg.Threshold < -1 || s.cfg.Threshold > 1 {
		return nil, fmt.Errorf("voicelock: threshold %v outside [-1, 1]", s.cfg.Threshold)
	}
	s.matcher = voiceprint.NewMatcher(s.cfg.Threshold)

	if s.id == "" {
		s.id = uuid.NewString()
	}
	s.logger = s.logger.With("session", s.id)
	if s.generator == nil {
		s.generator = voiceprint.NewGenerator(nil, voiceprint.WithLogger(s.logger))
	}
	if s.hasher == nil {
		dim := s.generator.Dimension()
		if dim == 0 {
			dim = ext.Config().NumCoeffs
		}
		s.hasher = voiceprint.NewHasher(dim, 16, labelSeed)
	}
	return s, nil
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// Config returns the effective configuration.
func (s *Session) Config() Config { return s.cfg }

// Created returns the creation time.
func (s *Session) Created() time.Time { return s.created }

// Status returns a snapshot of the session state.
func (s *Session) Status() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stateLocked()
}

// Locked reports whether the actuator is locked.
func (s *Session) Locked() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return !s.unlocked
}

func (s *Session) stateLocked() State {
	st := State{Enrolled: s.profile.Len(), Target: s.cfg.EnrollTarget}
	switch {
	case s.unlocked:
		st.Phase = PhaseUnlocked
	case st.Enrolled >= st.Target:
		st.Phase = PhaseReady
	default:
		st.Phase = PhaseEnrolling
	}
	return st
}

// Enroll adds one capture to the profile. It fails with
// ErrEnrollmentComplete once the target is reached, leaving the state
// unchanged. A capture that cannot be processed changes nothing.
func (s *Session) Enroll(ctx context.Context, sig capture.Signal) (Outcome, error) {
	out := Outcome{Action: ActionEnroll}
	if err := ctx.Err(); err != nil {
		return s.fail(ctx, sig, out, s.Status(), err)
	}
	if st := s.Status(); st.Phase != PhaseEnrolling {
		return s.fail(ctx, sig, out, st, ErrEnrollmentComplete)
	}

	emb, dur, err := s.embed(sig)
	out.Duration = dur
	if err != nil {
		return s.fail(ctx, sig, out, s.Status(), err)
	}
	out.Label = s.hasher.Label(emb)

	s.mu.Lock()
	if s.unlocked || s.profile.Len() >= s.cfg.EnrollTarget {
		st := s.stateLocked()
		s.mu.Unlock()
		return s.fail(ctx, sig, out, st, ErrEnrollmentComplete)
	}
	s.profile.Append(emb)
	out.State = s.stateLocked()
	s.mu.Unlock()

	out.Verdict = VerdictEnrolled
	s.logger.Info("voicelock: enrolled",
		"label", out.Label,
		"state", out.State.String(),
		"duration", dur)
	s.record(ctx, sig, out)
	return out, nil
}

// Verify matches one capture against the profile. An empty profile fails
// with ErrProfileEmpty and a partial one with ErrEnrollmentIncomplete,
// before the capture is processed. An accepted verification unlocks the
// session and notifies observers once. When already unlocked the capture
// is ignored and the outcome reports VerdictAlreadyUnlocked.
func (s *Session) Verify(ctx context.Context, sig capture.Signal) (Outcome, error) {
	out := Outcome{Action: ActionVerify}
	if err := ctx.Err(); err != nil {
		return s.fail(ctx, sig, out, s.Status(), err)
	}

	s.mu.RLock()
	st := s.stateLocked()
	epoch := s.epoch
	var enrolled [][]float32
	if st.Phase == PhaseReady {
		enrolled = s.profile.Embeddings()
	}
	s.mu.RUnlock()

	switch {
	case st.Phase == PhaseUnlocked:
		out.Verdict = VerdictAlreadyUnlocked
		out.State = st
		s.record(ctx, sig, out)
		return out, nil
	case st.Enrolled == 0:
		return s.fail(ctx, sig, out, st, ErrProfileEmpty)
	case st.Phase == PhaseEnrolling:
		return s.fail(ctx, sig, out, st, fmt.Errorf("%w: %d of %d captures", ErrEnrollmentIncomplete, st.Enrolled, st.Target))
	}

	emb, dur, err := s.embed(sig)
	out.Duration = dur
	if err != nil {
		return s.fail(ctx, sig, out, st, err)
	}
	out.Label = s.hasher.Label(emb)

	res := s.matcher.Match(emb, enrolled)
	out.Match = &res
	s.logger.Info("voicelock: verify",
		"label", out.Label,
		"scores", res.Scores,
		"score", res.Score,
		"threshold", res.Threshold,
		"accepted", res.Accepted)

	if !res.Accepted {
		out.Verdict = VerdictRejected
		out.State = s.Status()
		s.record(ctx, sig, out)
		return out, nil
	}

	s.mu.Lock()
	if s.epoch != epoch {
		st := s.stateLocked()
		s.mu.Unlock()
		return s.fail(ctx, sig, out, st, ErrResetDuringVerify)
	}
	if s.unlocked {
		out.State = s.stateLocked()
		s.mu.Unlock()
		out.Verdict = VerdictAlreadyUnlocked
		s.record(ctx, sig, out)
		return out, nil
	}
	s.unlocked = true
	out.State = s.stateLocked()
	s.mu.Unlock()

	out.Verdict = VerdictAccepted
	s.notify(EventUnlocked, out.State)
	s.record(ctx, sig, out)
	return out, nil
}

// Submit handles a capture-button press: enroll while enrolling, verify
// when ready, no-op when unlocked. Every error is recovered into a
// VerdictRetry outcome with the cause in Outcome.Err.
func (s *Session) Submit(ctx context.Context, sig capture.Signal) Outcome {
	var (
		out Outcome
		err error
	)
	if s.Status().Phase == PhaseEnrolling {
		out, err = s.Enroll(ctx, sig)
	} else {
		out, err = s.Verify(ctx, sig)
	}
	if err != nil {
		s.logger.Warn("voicelock: capture not accepted, retry", "action", out.Action.String(), "error", err)
	}
	return out
}

// Reset discards the profile and locks the session. It is idempotent;
// observers receive EventLocked only when the session was unlocked.
func (s *Session) Reset() {
	s.mu.Lock()
	wasUnlocked := s.unlocked
	s.profile.Clear()
	s.unlocked = false
	s.epoch++
	st := s.stateLocked()
	s.mu.Unlock()

	s.logger.Info("voicelock: reset", "was_unlocked", wasUnlocked)
	if wasUnlocked {
		s.notify(EventLocked, st)
	}
	s.appendJournal(context.Background(), s.seq.Add(1), journal.Record{
		Kind:     journal.KindReset,
		Enrolled: st.Enrolled,
	})
}

// Subscribe registers fn for lock transitions and returns a function that
// removes it.
func (s *Session) Subscribe(fn func(Event)) (cancel func()) {
	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.subMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.subMu.Lock()
			delete(s.subs, id)
			s.subMu.Unlock()
		})
	}
}

// Close resets the session and drops all observers.
func (s *Session) Close() {
	s.Reset()
	s.subMu.Lock()
	clear(s.subs)
	s.subMu.Unlock()
}

// Purge removes the session's journal records and archived clips. Call it
// after Close when the session is discarded for good.
func (s *Session) Purge(ctx context.Context) error {
	var errs []error
	if s.journal != nil {
		if err := s.journal.Clear(ctx, s.id); err != nil {
			errs = append(errs, fmt.Errorf("voicelock: clear journal: %w", err))
		}
	}
	s.clipMu.Lock()
	keys := s.clips
	s.clips = nil
	s.clipMu.Unlock()
	for _, key := range keys {
		if err := s.archive.Delete(ctx, key); err != nil {
			errs = append(errs, fmt.Errorf("voicelock: delete clip %s: %w", key, err))
		}
	}
	return errors.Join(errs...)
}

func (s *Session) notify(typ EventType, st State) {
	s.subMu.Lock()
	ids := make([]int, 0, len(s.subs))
	for id := range s.subs {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	fns := make([]func(Event), len(ids))
	for i, id := range ids {
		fns[i] = s.subs[id]
	}
	s.subMu.Unlock()

	ev := Event{Type: typ, SessionID: s.id, State: st, At: time.Now()}
	for _, fn := range fns {
		fn(ev)
	}
}

// embed runs the numeric pipeline: resample, extract, generate.
func (s *Session) embed(sig capture.Signal) ([]float32, time.Duration, error) {
	start := time.Now()
	if sig.SampleRate != s.cfg.SampleRate {
		var err error
		if sig, err = capture.Resample(sig, s.cfg.SampleRate); err != nil {
			return nil, time.Since(start), err
		}
	}
	features, err := s.extractor.Extract(sig.Samples)
	if err != nil {
		return nil, time.Since(start), err
	}
	emb, err := s.generator.Generate(features)
	return emb, time.Since(start), err
}

func (s *Session) fail(ctx context.Context, sig capture.Signal, out Outcome, st State, err error) (Outcome, error) {
	out.Verdict = VerdictRetry
	out.State = st
	out.Err = err
	s.record(ctx, sig, out)
	return out, err
}

// record fans an outcome out to metrics, journal and archive.
func (s *Session) record(ctx context.Context, sig capture.Signal, out Outcome) {
	ctx = context.WithoutCancel(ctx)
	s.metrics.recordOutcome(ctx, out)

	seq := s.seq.Add(1)
	rec := journal.Record{
		Verdict:  out.Verdict.String(),
		Enrolled: out.State.Enrolled,
		Label:    out.Label,
	}
	switch out.Action {
	case ActionEnroll:
		rec.Kind = journal.KindEnroll
	case ActionVerify:
		rec.Kind = journal.KindVerify
	}
	if out.Match != nil {
		rec.Score = out.Match.Score
		rec.Scores = out.Match.Scores
		rec.Threshold = out.Match.Threshold
	}
	if out.Err != nil {
		rec.Error = out.Err.Error()
	}
	s.appendJournal(ctx, seq, rec)

	if s.archive != nil && len(sig.Samples) > 0 {
		key := archive.ClipKey(s.id, seq, out.Action.String())
		data, err := capture.EncodeWAV(sig)
		if err == nil {
			err = s.archive.Put(ctx, key, data)
		}
		if err != nil {
			s.logger.Warn("voicelock: archive clip", "seq", seq, "error", err)
			return
		}
		s.clipMu.Lock()
		s.clips = append(s.clips, key)
		s.clipMu.Unlock()
	}
}

func (s *Session) appendJournal(ctx context.Context, seq uint64, rec journal.Record) {
	if s.journal == nil {
		return
	}
	rec.SessionID = s.id
	rec.Seq = seq
	rec.At = time.Now()
	if err := s.journal.Append(ctx, rec); err != nil {
		s.logger.Warn("voicelock: journal append", "seq", seq, "error", err)
	}
}
