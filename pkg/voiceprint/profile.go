package voiceprint

import "sync"

// Profile is the set of embeddings enrolled for one identity.
//
// It is append-only until cleared. All methods are safe for concurrent use;
// readers never observe a partially appended embedding.
type Profile struct {
	mu         sync.RWMutex
	embeddings [][]float32
}

// NewProfile creates an empty profile.
func NewProfile() *Profile {
	return &Profile{}
}

// Append stores a copy of emb and returns the new embedding count.
func (p *Profile) Append(emb []float32) int {
	c := make([]float32, len(emb))
	copy(c, emb)

	p.mu.Lock()
	defer p.mu.Unlock()
	p.embeddings = append(p.embeddings, c)
	return len(p.embeddings)
}

// Embeddings returns a deep copy of the enrolled embeddings in enrollment
// order.
func (p *Profile) Embeddings() [][]float32 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([][]float32, len(p.embeddings))
	for i, e := range p.embeddings {
		c := make([]float32, len(e))
		copy(c, e)
		out[i] = c
	}
	return out
}

// Len returns the number of enrolled embeddings.
func (p *Profile) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.embeddings)
}

// Clear removes every embedding.
func (p *Profile) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.embeddings = nil
}
