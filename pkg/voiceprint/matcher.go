package voiceprint

import "math"

// DefaultThreshold is the acceptance threshold for cosine similarity.
const DefaultThreshold float32 = 0.75

const cosineEpsilon = 1e-10

// Cosine returns the cosine similarity of a and b in [-1, 1].
//
// When the lengths differ only the first min(len(a), len(b)) components are
// compared. A zero vector has similarity 0 with everything.
func Cosine(a, b []float32) float32 {
	n := min(len(a), len(b))
	var dot, na, nb float64
	for i := range n {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	sim := dot / (math.Sqrt(na)*math.Sqrt(nb) + cosineEpsilon)
	return float32(max(-1, min(1, sim)))
}

// MatchResult is the outcome of matching one candidate against a profile.
type MatchResult struct {
	// Scores holds the similarity to each enrolled embedding, in
	// enrollment order.
	Scores []float32

	// Score is the maximum of Scores.
	Score float32

	// Best is the index of the enrolled embedding with the highest score,
	// or -1 when nothing was enrolled.
	Best int

	// Threshold is the threshold the verdict was taken against.
	Threshold float32

	// Accepted is Score > Threshold.
	Accepted bool
}

// Matcher compares a candidate embedding against enrolled embeddings.
type Matcher struct {
	Threshold float32
}

// NewMatcher creates a Matcher with the given threshold.
func NewMatcher(threshold float32) *Matcher {
	return &Matcher{Threshold: threshold}
}

// Match scores candidate against every enrolled embedding and accepts when
// the best score strictly exceeds the threshold. An empty enrolled set is
// never accepted.
func (m *Matcher) Match(candidate []float32, enrolled [][]float32) MatchResult {
	res := MatchResult{
		Scores:    make([]float32, len(enrolled)),
		Best:      -1,
		Threshold: m.Threshold,
	}
	for i, e := range enrolled {
		s := Cosine(candidate, e)
		res.Scores[i] = s
		if res.Best < 0 || s > res.Score {
			res.Score = s
			res.Best = i
		}
	}
	res.Accepted = res.Best >= 0 && res.Score > m.Threshold
	return res
}
