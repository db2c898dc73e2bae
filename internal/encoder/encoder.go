// Package encoder runs the transformer forward pass for tokenized input.
package encoder

// Input is a single tokenized sequence. All three slices must have equal length.
type Input struct {
	IDs     []int64
	TypeIDs []int64
	Mask    []int64
}

// Encoder produces per-token hidden states for one tokenized sequence.
// Implementations are not required to be safe for concurrent use; the model
// registry serializes all calls.
type Encoder interface {
	// Forward returns hidden states shaped [sequence][hidden].
	Forward(in Input) ([][]float32, error)
	// HiddenSize returns the width of each hidden state.
	HiddenSize() int
	// Close releases resources held by the encoder.
	Close() error
}

// Options configure the ONNX-backed encoder.
type Options struct {
	// LibraryPath points at the onnxruntime shared library when it is not on
	// the default search path.
	LibraryPath string
	// UseCPU disables the CUDA execution provider.
	UseCPU bool
}
