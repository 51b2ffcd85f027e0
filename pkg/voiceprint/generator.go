package voiceprint

import (
	"fmt"
	"log/slog"
)

// Generator produces embeddings from feature vectors.
//
// With a Model, the feature vector is fitted to the model input width and
// embedded. Without one, Generate is the identity on the feature vector
// (degraded mode). A Generator is safe for concurrent use when its Model is.
type Generator struct {
	model  Model
	width  int
	logger *slog.Logger
}

// GeneratorOption configures a Generator.
type GeneratorOption func(*Generator)

// WithInputWidth overrides the fitted input width (default InputWidth).
func WithInputWidth(width int) GeneratorOption {
	return func(g *Generator) {
		if width > 0 {
			g.width = width
		}
	}
}

// WithLogger sets the logger used for the degraded-mode notice.
func WithLogger(logger *slog.Logger) GeneratorOption {
	return func(g *Generator) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// NewGenerator creates a Generator around model. A nil model selects the
// identity fallback and logs a single warning.
func NewGenerator(model Model, opts ...GeneratorOption) *Generator {
	g := &Generator{
		model:  model,
		width:  InputWidth,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	if model == nil {
		g.logger.Warn("voiceprint: no embedding model, using identity embeddings",
			"error", ErrModelUnavailable)
	}
	return g
}

// Degraded reports whether the generator runs without a model.
func (g *Generator) Degraded() bool { return g.model == nil }

// Dimension returns the embedding dimension, or 0 in degraded mode where
// the dimension follows the feature vector.
func (g *Generator) Dimension() int {
	if g.model == nil {
		return 0
	}
	return g.model.Dimension()
}

// Generate maps a feature vector to an embedding.
func (g *Generator) Generate(features []float32) ([]float32, error) {
	if len(features) == 0 {
		return nil, fmt.Errorf("voiceprint: empty feature vector")
	}
	if g.model == nil {
		out := make([]float32, len(features))
		copy(out, features)
		return out, nil
	}

	emb, err := g.model.Embed(Fit(features, g.width))
	if err != nil {
		return nil, fmt.Errorf("voiceprint: embed: %w", err)
	}
	if d := g.model.Dimension(); len(emb) != d {
		return nil, fmt.Errorf("voiceprint: model returned %d values, want %d", len(emb), d)
	}
	return emb, nil
}

// Close releases the underlying model.
func (g *Generator) Close() error {
	if g.model == nil {
		return nil
	}
	return g.model.Close()
}
