// Package journal records every enrollment, verification and reset attempt
// so score distributions can be inspected after the fact.
//
// Records are encoded with msgpack and stored under hierarchical keys:
//
//	session/<session-id>/<seq>
//
// where seq is a zero-padded per-session sequence number, so lexicographic
// key order is chronological order. Two backends are provided: [Memory]
// for tests and short-lived processes, and [Badger] for on-disk retention.
//
// A journal never holds embeddings or audio. Profiles stay volatile.
package journal

import (
	"context"
	"fmt"
	"iter"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/vmihailenco/msgpack/v5"
)

// Kind identifies the operation a record describes.
type Kind string

const (
	KindEnroll Kind = "enroll"
	KindVerify Kind = "verify"
	KindReset  Kind = "reset"
)

// Record is one journal entry.
type Record struct {
	ID        string    `msgpack:"id" json:"id" yaml:"id"`
	SessionID string    `msgpack:"session_id" json:"session_id" yaml:"session_id"`
	Seq       uint64    `msgpack:"seq" json:"seq" yaml:"seq"`
	Kind      Kind      `msgpack:"kind" json:"kind" yaml:"kind"`
	At        time.Time `msgpack:"at" json:"at" yaml:"at"`

	// Verdict is the outcome verdict name (e.g. "accepted").
	Verdict string `msgpack:"verdict,omitempty" json:"verdict,omitempty" yaml:"verdict,omitempty"`

	// Enrolled is the profile size after the operation.
	Enrolled int `msgpack:"enrolled" json:"enrolled" yaml:"enrolled"`

	// Score, Scores and Threshold are set for verifications that reached
	// the matcher.
	Score     float32   `msgpack:"score,omitempty" json:"score,omitempty" yaml:"score,omitempty"`
	Scores    []float32 `msgpack:"scores,omitempty" json:"scores,omitempty" yaml:"scores,omitempty"`
	Threshold float32   `msgpack:"threshold,omitempty" json:"threshold,omitempty" yaml:"threshold,omitempty"`

	// Label is the voice label of the captured embedding.
	Label string `msgpack:"label,omitempty" json:"label,omitempty" yaml:"label,omitempty"`

	// Error is the pipeline error message, if any.
	Error string `msgpack:"error,omitempty" json:"error,omitempty" yaml:"error,omitempty"`
}

// Store persists journal records.
type Store interface {
	// Append stores rec under its session and sequence number. An empty
	// ID is filled with a random UUID.
	Append(ctx context.Context, rec Record) error

	// List iterates over a session's records in sequence order.
	List(ctx context.Context, sessionID string) iter.Seq2[Record, error]

	// Clear removes all records of a session.
	Clear(ctx context.Context, sessionID string) error

	// Close releases resources held by the store.
	Close() error
}

// Collect drains List into a slice.
func Collect(ctx context.Context, s Store, sessionID string) ([]Record, error) {
	var out []Record
	for rec, err := range s.List(ctx, sessionID) {
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func sessionPrefix(sessionID string) string {
	return "session/" + sessionID + "/"
}

func recordKey(sessionID string, seq uint64) string {
	return fmt.Sprintf("%s%020d", sessionPrefix(sessionID), seq)
}

func validate(rec *Record) error {
	if rec.SessionID == "" {
		return fmt.Errorf("journal: record has no session id")
	}
	if strings.Contains(rec.SessionID, "/") {
		return fmt.Errorf("journal: session id %q contains '/'", rec.SessionID)
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	return nil
}

func encode(rec Record) ([]byte, error) {
	data, err := msgpack.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("journal: encode record: %w", err)
	}
	return data, nil
}

func decode(data []byte) (Record, error) {
	var rec Record
	if err := msgpack.Unmarshal(data, &rec); err != nil {
		return Record{}, fmt.Errorf("journal: decode record: %w", err)
	}
	return rec, nil
}
