package journal

import (
	"context"
	"iter"
	"slices"
	"strings"
	"sync"
)

// Memory is an in-memory Store. Records are kept encoded so it behaves
// like the persistent backend.
type Memory struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemory creates an empty in-memory Store.
func NewMemory() *Memory {
	return &Memory{data: make(map[string][]byte)}
}

func (m *Memory) Append(_ context.Context, rec Record) error {
	if err := validate(&rec); err != nil {
		return err
	}
	data, err := encode(rec)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[recordKey(rec.SessionID, rec.Seq)] = data
	return nil
}

func (m *Memory) List(_ context.Context, sessionID string) iter.Seq2[Record, error] {
	prefix := sessionPrefix(sessionID)

	m.mu.RLock()
	var keys []string
	for k := range m.data {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)
	values := make([][]byte, len(keys))
	for i, k := range keys {
		values[i] = m.data[k]
	}
	m.mu.RUnlock()

	return func(yield func(Record, error) bool) {
		for _, v := range values {
			rec, err := decode(v)
			if !yield(rec, err) {
				return
			}
		}
	}
}

func (m *Memory) Clear(_ context.Context, sessionID string) error {
	prefix := sessionPrefix(sessionID)
	m.mu.Lock()
	defer m.mu.Unlock()
	for k := range m.data {
		if strings.HasPrefix(k, prefix) {
			delete(m.data, k)
		}
	}
	return nil
}

func (m *Memory) Close() error { return nil }
