package voiceprint

import (
	"sync"
	"testing"
)

func TestProfile(t *testing.T) {
	p := NewProfile()
	if p.Len() != 0 {
		t.Fatalf("new profile Len = %d", p.Len())
	}

	emb := []float32{1, 2, 3}
	if n := p.Append(emb); n != 1 {
		t.Errorf("Append returned %d, want 1", n)
	}
	emb[0] = 100
	if n := p.Append([]float32{4, 5}); n != 2 {
		t.Errorf("Append returned %d, want 2", n)
	}

	got := p.Embeddings()
	if len(got) != 2 {
		t.Fatalf("expected 2 embeddings, got %d", len(got))
	}
	if got[0][0] != 1 {
		t.Errorf("profile aliases caller slice: got %f", got[0][0])
	}
	got[1][0] = -1
	if p.Embeddings()[1][0] != 4 {
		t.Error("Embeddings did not return a copy")
	}

	p.Clear()
	if p.Len() != 0 || len(p.Embeddings()) != 0 {
		t.Errorf("Clear left %d embeddings", p.Len())
	}
}

func TestProfileConcurrent(t *testing.T) {
	p := NewProfile()
	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			p.Append([]float32{float32(i)})
		}()
		go func() {
			defer wg.Done()
			for _, e := range p.Embeddings() {
				if len(e) != 1 {
					t.Errorf("torn embedding %v", e)
				}
			}
		}()
	}
	wg.Wait()
	if p.Len() != 8 {
		t.Errorf("Len = %d, want 8", p.Len())
	}
}
