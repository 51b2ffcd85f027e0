//go:build !onnx

package voiceprint

// ONNXAvailable reports that ONNX Runtime support is not compiled in.
func ONNXAvailable() bool { return false }

// NewONNXModel returns ErrModelUnavailable when built without the onnx tag.
func NewONNXModel(_ ONNXConfig) (Model, error) {
	return nil, ErrModelUnavailable
}
