package voiceprint

import (
	"encoding/hex"
	"strings"
)

// Hasher projects embedding vectors into compact locality-sensitive hashes
// using random hyperplane LSH.
//
// Each hash is an uppercase hex string of bits/4 characters. For 16 bits
// the output is 4 hex chars (e.g., "A3F8"). Similar embeddings fall on the
// same side of most random hyperplanes, so repeated captures of one voice
// usually share a hash or a long hash prefix.
//
// Hashes are labels for logs and journals. They are never used to decide a
// verification.
type Hasher struct {
	dim    int
	bits   int
	planes [][]float32 // bits × dim, each row is a unit hyperplane
}

// NewHasher creates a Hasher with the given embedding dimension and
// output bit count. The bits parameter must be a positive multiple of 4
// (for clean hex encoding). Use a fixed seed for labels that are stable
// across restarts.
func NewHasher(dim, bits int, seed uint64) *Hasher {
	if bits <= 0 || bits%4 != 0 {
		panic("voiceprint: bits must be a positive multiple of 4")
	}
	if dim <= 0 {
		panic("voiceprint: dim must be positive")
	}
	return &Hasher{dim: dim, bits: bits, planes: unitGaussianRows(bits, dim, seed)}
}

// Hash projects an embedding into a hex hash string. Embeddings of a
// different length are fitted to the hasher dimension first.
func (h *Hasher) Hash(embedding []float32) string {
	if len(embedding) != h.dim {
		embedding = Fit(embedding, h.dim)
	}

	hashBytes := make([]byte, (h.bits+7)/8)
	for i, plane := range h.planes {
		if dot32(plane, embedding) > 0 {
			hashBytes[i/8] |= 1 << (7 - uint(i%8))
		}
	}
	return strings.ToUpper(hex.EncodeToString(hashBytes))[:h.bits/4]
}

// Label returns the voice label ("voice:A3F8") for an embedding.
func (h *Hasher) Label(embedding []float32) string {
	return VoiceLabel(h.Hash(embedding))
}

// Bits returns the number of hash bits.
func (h *Hasher) Bits() int { return h.bits }

// Dim returns the expected embedding dimension.
func (h *Hasher) Dim() int { return h.dim }
