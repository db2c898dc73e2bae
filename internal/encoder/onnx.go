//go:build cgo
// +build cgo

package encoder

import (
	"fmt"

	ort "github.com/yalue/onnxruntime_go"
)

// ONNXEncoder runs a BERT-style graph with ONNX Runtime. Sequence length
// varies per call, so it uses a dynamic session and allocates input tensors
// per Forward call.
type ONNXEncoder struct {
	session    *ort.DynamicAdvancedSession
	hiddenSize int
	device     string
}

// NewONNXEncoder opens the graph at modelPath. When opts.UseCPU is false it
// tries to attach the CUDA execution provider and falls back to CPU if that
// fails; the device actually selected is reported by Device.
func NewONNXEncoder(modelPath string, hiddenSize int, opts Options) (*ONNXEncoder, error) {
	if hiddenSize <= 0 {
		return nil, fmt.Errorf("invalid hidden size %d", hiddenSize)
	}
	if opts.LibraryPath != "" {
		ort.SetSharedLibraryPath(opts.LibraryPath)
	}
	if !ort.IsInitialized() {
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, fmt.Errorf("failed to initialize ONNX runtime: %w", err)
		}
	}

	sessOpts, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("failed to create session options: %w", err)
	}
	defer sessOpts.Destroy()

	device := "cpu"
	if !opts.UseCPU {
		if cudaOpts, cudaErr := ort.NewCUDAProviderOptions(); cudaErr == nil {
			if appendErr := sessOpts.AppendExecutionProviderCUDA(cudaOpts); appendErr == nil {
				device = "cuda"
			}
			cudaOpts.Destroy()
		}
	}

	session, err := ort.NewDynamicAdvancedSession(
		modelPath,
		[]string{"input_ids", "attention_mask", "token_type_ids"},
		[]string{"last_hidden_state"},
		sessOpts,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create ONNX session: %w", err)
	}

	return &ONNXEncoder{
		session:    session,
		hiddenSize: hiddenSize,
		device:     device,
	}, nil
}

// Forward runs one sequence through the graph and returns per-token hidden states.
func (e *ONNXEncoder) Forward(in Input) ([][]float32, error) {
	seq := len(in.IDs)
	if seq == 0 {
		return nil, fmt.Errorf("empty input sequence")
	}
	if len(in.Mask) != seq || len(in.TypeIDs) != seq {
		return nil, fmt.Errorf("input length mismatch: ids=%d mask=%d type_ids=%d", seq, len(in.Mask), len(in.TypeIDs))
	}

	shape := ort.NewShape(1, int64(seq))
	idsTensor, err := ort.NewTensor(shape, in.IDs)
	if err != nil {
		return nil, fmt.Errorf("failed to create input_ids tensor: %w", err)
	}
	defer idsTensor.Destroy()
	maskTensor, err := ort.NewTensor(shape, in.Mask)
	if err != nil {
		return nil, fmt.Errorf("failed to create attention_mask tensor: %w", err)
	}
	defer maskTensor.Destroy()
	typeTensor, err := ort.NewTensor(shape, in.TypeIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to create token_type_ids tensor: %w", err)
	}
	defer typeTensor.Destroy()

	outTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(1, int64(seq), int64(e.hiddenSize)))
	if err != nil {
		return nil, fmt.Errorf("failed to create output tensor: %w", err)
	}
	defer outTensor.Destroy()

	err = e.session.Run(
		[]ort.ArbitraryTensor{idsTensor, maskTensor, typeTensor},
		[]ort.ArbitraryTensor{outTensor},
	)
	if err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}

	data := outTensor.GetData()
	states := make([][]float32, seq)
	for t := 0; t < seq; t++ {
		row := make([]float32, e.hiddenSize)
		copy(row, data[t*e.hiddenSize:(t+1)*e.hiddenSize])
		states[t] = row
	}
	return states, nil
}

// HiddenSize returns the hidden state width.
func (e *ONNXEncoder) HiddenSize() int {
	return e.hiddenSize
}

// Device reports which execution provider was selected ("cpu" or "cuda").
func (e *ONNXEncoder) Device() string {
	return e.device
}

// Close destroys the session.
func (e *ONNXEncoder) Close() error {
	if e.session != nil {
		err := e.session.Destroy()
		e.session = nil
		return err
	}
	return nil
}
