//go:build onnx

package voiceprint

import (
	"fmt"
	"os"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

var (
	ortInitOnce sync.Once
	ortInitErr  error
)

// ONNXAvailable reports that ONNX Runtime support is compiled in.
func ONNXAvailable() bool { return true }

// ONNXModel runs a [1, width] → [1, dim] embedding graph through ONNX
// Runtime. Input and output tensors are reused between calls, so Embed
// serializes on a mutex.
type ONNXModel struct {
	mu      sync.Mutex
	session *ort.AdvancedSession
	input   *ort.Tensor[float32]
	output  *ort.Tensor[float32]
	width   int
	dim     int
}

// NewONNXModel loads the model at cfg.Path. The ONNX Runtime shared library
// is located once per process (see resolveORTLibPath). Load failures wrap
// ErrModelUnavailable so callers can fall back to identity embeddings.
func NewONNXModel(cfg ONNXConfig) (Model, error) {
	cfg = cfg.withDefaults()
	if cfg.Dimension <= 0 {
		return nil, fmt.Errorf("voiceprint: onnx: dimension must be positive, got %d", cfg.Dimension)
	}

	ortInitOnce.Do(func() {
		libPath, err := resolveORTLibPath()
		if err != nil {
			ortInitErr = fmt.Errorf("resolve ORT lib: %w", err)
			return
		}
		ort.SetSharedLibraryPath(libPath)
		ortInitErr = ort.InitializeEnvironment()
	})
	if ortInitErr != nil {
		return nil, fmt.Errorf("%w: %w", ErrModelUnavailable, ortInitErr)
	}

	data, err := os.ReadFile(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: read model: %w", ErrModelUnavailable, err)
	}

	input, err := ort.NewEmptyTensor[float32](ort.NewShape(1, int64(cfg.InputWidth)))
	if err != nil {
		return nil, fmt.Errorf("voiceprint: onnx: create input tensor: %w", err)
	}
	output, err := ort.NewEmptyTensor[float32](ort.NewShape(1, int64(cfg.Dimension)))
	if err != nil {
		input.Destroy()
		return nil, fmt.Errorf("voiceprint: onnx: create output tensor: %w", err)
	}

	session, err := ort.NewAdvancedSessionWithONNXData(
		data,
		[]string{cfg.InputName},
		[]string{cfg.OutputName},
		[]ort.Value{input},
		[]ort.Value{output},
		nil,
	)
	if err != nil {
		input.Destroy()
		output.Destroy()
		return nil, fmt.Errorf("%w: create session: %w", ErrModelUnavailable, err)
	}

	return &ONNXModel{
		session: session,
		input:   input,
		output:  output,
		width:   cfg.InputWidth,
		dim:     cfg.Dimension,
	}, nil
}

// Embed runs one inference.
func (m *ONNXModel) Embed(in []float32) ([]float32, error) {
	if len(in) != m.width {
		return nil, fmt.Errorf("voiceprint: onnx input has %d values, want %d", len(in), m.width)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return nil, fmt.Errorf("voiceprint: onnx model closed")
	}

	copy(m.input.GetData(), in)
	if err := m.session.Run(); err != nil {
		return nil, fmt.Errorf("voiceprint: onnx run: %w", err)
	}
	out := make([]float32, m.dim)
	copy(out, m.output.GetData())
	return out, nil
}

// Dimension returns the embedding dimension.
func (m *ONNXModel) Dimension() int { return m.dim }

// Close releases ONNX Runtime resources. Safe to call multiple times.
func (m *ONNXModel) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session != nil {
		m.session.Destroy()
		m.session = nil
	}
	if m.input != nil {
		m.input.Destroy()
		m.input = nil
	}
	if m.output != nil {
		m.output.Destroy()
		m.output = nil
	}
	return nil
}
