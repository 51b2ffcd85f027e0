package voiceprint

import (
	"fmt"
	"math"
	"math/rand/v2"
)

// ProjectionModel is a deterministic linear embedding: each output component
// is the dot product of the input with a fixed random unit vector.
//
// Random projections approximately preserve angles (Johnson-Lindenstrauss),
// so cosine similarity between projected feature vectors tracks similarity
// between the original vectors. The same seed always yields the same
// projection, so embeddings are comparable across process restarts.
type ProjectionModel struct {
	in   int
	rows [][]float32 // dim × in
}

// NewProjectionModel creates a projection from inputWidth to dim.
func NewProjectionModel(inputWidth, dim int, seed uint64) *ProjectionModel {
	if inputWidth <= 0 || dim <= 0 {
		panic("voiceprint: projection sizes must be positive")
	}
	return &ProjectionModel{
		in:   inputWidth,
		rows: unitGaussianRows(dim, inputWidth, seed),
	}
}

// Embed projects input into the embedding space.
func (p *ProjectionModel) Embed(input []float32) ([]float32, error) {
	if len(input) != p.in {
		return nil, fmt.Errorf("voiceprint: projection input has %d values, want %d", len(input), p.in)
	}
	out := make([]float32, len(p.rows))
	for i, row := range p.rows {
		out[i] = dot32(row, input)
	}
	return out, nil
}

// Dimension returns the embedding dimension.
func (p *ProjectionModel) Dimension() int { return len(p.rows) }

// InputWidth returns the expected input width.
func (p *ProjectionModel) InputWidth() int { return p.in }

// Close is a no-op.
func (p *ProjectionModel) Close() error { return nil }

// unitGaussianRows samples n vectors of length dim from a standard normal
// distribution and normalizes each to unit length.
func unitGaussianRows(n, dim int, seed uint64) [][]float32 {
	rng := rand.New(rand.NewPCG(seed, seed^0xdeadbeef))
	rows := make([][]float32, n)
	for i := range rows {
		row := make([]float32, dim)
		var norm float64
		for j := range row {
			v := float32(rng.NormFloat64())
			row[j] = v
			norm += float64(v) * float64(v)
		}
		norm = math.Sqrt(norm)
		if norm > 0 {
			scale := float32(1.0 / norm)
			for j := range row {
				row[j] *= scale
			}
		}
		rows[i] = row
	}
	return rows
}

// dot32 computes the dot product of two float32 slices.
func dot32(a, b []float32) float32 {
	var sum float32
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}
