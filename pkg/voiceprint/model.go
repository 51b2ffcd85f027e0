package voiceprint

import "errors"

// InputWidth is the feature width every embedding model receives.
const InputWidth = 128

// ErrModelUnavailable indicates that an embedding model could not be loaded.
// Callers fall back to an identity Generator.
var ErrModelUnavailable = errors.New("voiceprint: embedding model unavailable")

// Model maps a fixed-width feature vector to a speaker embedding.
//
// The input has exactly the width the model was built for (normally
// [InputWidth]). The output is a dense float32 vector whose dimensionality
// is returned by Dimension().
//
// # Thread Safety
//
// Implementations must be deterministic for a given instance and safe for
// concurrent use. Multiple goroutines may call Embed simultaneously.
type Model interface {
	// Embed computes an embedding from a fitted feature vector.
	Embed(input []float32) ([]float32, error)

	// Dimension returns the dimensionality of the embeddings produced by
	// Embed (e.g., 64).
	Dimension() int

	// Close releases any resources held by the model (e.g., ONNX session).
	Close() error
}

// ONNXConfig describes an exported embedding network.
type ONNXConfig struct {
	// Path is the .onnx model file.
	Path string

	// InputName and OutputName are the graph tensor names.
	// Defaults: "input" and "embedding".
	InputName  string
	OutputName string

	// InputWidth is the model input width. Default: InputWidth.
	InputWidth int

	// Dimension is the embedding size produced by the graph.
	Dimension int
}

func (c ONNXConfig) withDefaults() ONNXConfig {
	if c.InputName == "" {
		c.InputName = "input"
	}
	if c.OutputName == "" {
		c.OutputName = "embedding"
	}
	if c.InputWidth <= 0 {
		c.InputWidth = InputWidth
	}
	return c
}

// Fit adapts v to exactly width components: longer vectors are truncated,
// shorter vectors are zero padded. The result never aliases v.
func Fit(v []float32, width int) []float32 {
	out := make([]float32, width)
	copy(out, v)
	return out
}
