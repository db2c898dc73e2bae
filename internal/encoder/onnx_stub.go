//go:build !cgo
// +build !cgo

package encoder

import "errors"

// ONNXEncoder stub type when built without CGO (see onnx.go for the real implementation).
type ONNXEncoder struct{}

// NewONNXEncoder returns an error when built without CGO (ONNX not available).
func NewONNXEncoder(_ string, _ int, _ Options) (*ONNXEncoder, error) {
	return nil, errors.New("ONNX encoder requires CGO; build with CGO_ENABLED=1 and onnxruntime")
}

// Forward is unreachable in the stub.
func (e *ONNXEncoder) Forward(_ Input) ([][]float32, error) {
	return nil, errors.New("ONNX encoder not available without CGO")
}

// HiddenSize is unreachable in the stub.
func (e *ONNXEncoder) HiddenSize() int { return 0 }

// Device is unreachable in the stub.
func (e *ONNXEncoder) Device() string { return "cpu" }

// Close is a no-op in the stub.
func (e *ONNXEncoder) Close() error { return nil }
