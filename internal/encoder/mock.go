package encoder

import (
	"fmt"
	"math"
)

// MockEncoder is a deterministic encoder for tests. Hidden states are derived
// from the token ids so that the same token sequence always produces the same
// states and different sequences diverge.
type MockEncoder struct {
	hidden int
}

// NewMockEncoder returns a mock encoder with the given hidden size.
func NewMockEncoder(hidden int) *MockEncoder {
	if hidden <= 0 {
		hidden = 8
	}
	return &MockEncoder{hidden: hidden}
}

// Forward returns one deterministic hidden state per input token.
func (e *MockEncoder) Forward(in Input) ([][]float32, error) {
	seq := len(in.IDs)
	if seq == 0 {
		return nil, fmt.Errorf("empty input sequence")
	}
	if len(in.Mask) != seq || len(in.TypeIDs) != seq {
		return nil, fmt.Errorf("input length mismatch: ids=%d mask=%d type_ids=%d", seq, len(in.Mask), len(in.TypeIDs))
	}
	states := make([][]float32, seq)
	for t, id := range in.IDs {
		row := make([]float32, e.hidden)
		for i := range row {
			row[i] = float32(math.Sin(float64(id)*float64(i+1)+float64(t))*0.1 + 0.01)
		}
		states[t] = row
	}
	return states, nil
}

// HiddenSize returns the hidden state width.
func (e *MockEncoder) HiddenSize() int {
	return e.hidden
}

// Close is a no-op for MockEncoder.
func (e *MockEncoder) Close() error {
	return nil
}
