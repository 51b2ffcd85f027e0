// Package relay forwards actuator control commands (sliders, buttons) while
// the voice lock is open.
//
// Commands are debounced per channel on the trailing edge: a burst of slider
// moves collapses to the last value once the channel has been quiet for the
// debounce interval (50 ms by default). Commands sent while the gate is
// locked are refused with [ErrLocked], and pending commands are dropped as
// soon as the gate locks again.
//
// Delivery is abstracted by [Sink]. [WebSocketSink] streams JSON frames to
// an actuator bridge; [LogSink] only logs.
package relay

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/bep/debounce"

	"github.com/haivivi/voicelock/pkg/voicelock"
)

// DefaultDebounce is the default per-channel quiet interval.
const DefaultDebounce = 50 * time.Millisecond

var (
	// ErrLocked is returned by Send while the gate is locked.
	ErrLocked = errors.New("relay: actuator locked")

	// ErrClosed is returned by Send after Close.
	ErrClosed = errors.New("relay: closed")
)

// Command is one control change for the actuator.
type Command struct {
	// Channel names the control (e.g. "slider1", "button").
	Channel string `json:"channel"`

	// Value is the control value.
	Value float64 `json:"value"`

	// IssuedAt is when the user issued the command.
	IssuedAt time.Time `json:"issued_at"`
}

// Sink delivers commands to the actuator.
type Sink interface {
	Send(ctx context.Context, cmd Command) error
	Close() error
}

// Gate reports whether commands may pass. *voicelock.Session implements it.
type Gate interface {
	Locked() bool
}

// Option configures a Relay.
type Option func(*Relay)

// WithDebounce sets the per-channel quiet interval. Zero disables
// debouncing.
func WithDebounce(d time.Duration) Option {
	return func(r *Relay) { r.delay = d }
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(r *Relay) { r.logger = l }
}

// Relay debounces commands and forwards them to a Sink while the gate is
// open. It is safe for concurrent use.
type Relay struct {
	sink   Sink
	gate   Gate
	delay  time.Duration
	logger *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu        sync.Mutex
	debounced map[string]func(func())
	pending   map[string]Command
	closed    bool
	wg        sync.WaitGroup
}

// New creates a Relay delivering to sink and gated by gate.
func New(sink Sink, gate Gate, opts ...Option) *Relay {
	ctx, cancel := context.WithCancel(context.Background())
	r := &Relay{
		sink:      sink,
		gate:      gate,
		delay:     DefaultDebounce,
		logger:    slog.Default(),
		ctx:       ctx,
		cancel:    cancel,
		debounced: make(map[string]func(func())),
		pending:   make(map[string]Command),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Send queues cmd for delivery. It returns ErrLocked while the gate is
// locked. Delivery errors are logged, not returned.
func (r *Relay) Send(cmd Command) error {
	if cmd.Channel == "" {
		return errors.New("relay: command has no channel")
	}
	if r.gate.Locked() {
		return ErrLocked
	}
	if cmd.IssuedAt.IsZero() {
		cmd.IssuedAt = time.Now()
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return ErrClosed
	}
	if r.delay <= 0 {
		r.wg.Add(1)
		r.mu.Unlock()
		defer r.wg.Done()
		r.deliver(cmd)
		return nil
	}
	r.pending[cmd.Channel] = cmd
	fn, ok := r.debounced[cmd.Channel]
	if !ok {
		fn = debounce.New(r.delay)
		r.debounced[cmd.Channel] = fn
	}
	r.mu.Unlock()

	ch := cmd.Channel
	fn(func() { r.flush(ch) })
	return nil
}

func (r *Relay) flush(channel string) {
	r.mu.Lock()
	cmd, ok := r.pending[channel]
	delete(r.pending, channel)
	if !ok || r.closed {
		r.mu.Unlock()
		return
	}
	r.wg.Add(1)
	r.mu.Unlock()
	defer r.wg.Done()

	if r.gate.Locked() {
		r.logger.Debug("relay: dropped command, gate locked", "channel", channel)
		return
	}
	r.deliver(cmd)
}

func (r *Relay) deliver(cmd Command) {
	if err := r.sink.Send(r.ctx, cmd); err != nil {
		r.logger.Warn("relay: deliver command", "channel", cmd.Channel, "error", err)
	}
}

// Drop discards every pending command.
func (r *Relay) Drop() {
	r.mu.Lock()
	n := len(r.pending)
	clear(r.pending)
	r.mu.Unlock()
	if n > 0 {
		r.logger.Info("relay: dropped pending commands", "count", n)
	}
}

// Watch drops pending commands whenever s locks. The returned function
// stops watching.
func (r *Relay) Watch(s *voicelock.Session) (cancel func()) {
	return s.Subscribe(func(ev voicelock.Event) {
		if ev.Type == voicelock.EventLocked {
			r.Drop()
		}
	})
}

// Close drops pending commands, waits for in-flight deliveries and closes
// the sink.
func (r *Relay) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	clear(r.pending)
	r.mu.Unlock()

	r.cancel()
	r.wg.Wait()
	return r.sink.Close()
}
