// Package pipeline turns raw text into normalized embeddings.
package pipeline

import (
	"errors"
	"fmt"

	"github.com/hyperjump/semblance/internal/encoder"
	"github.com/hyperjump/semblance/internal/tokenize"
	"github.com/hyperjump/semblance/pkg/utils"
)

// Tokenizer is the tokenization capability the pipeline depends on.
type Tokenizer interface {
	Tokenize(text string, maxLength int) (*tokenize.Result, error)
}

// Pipeline orchestrates tokenize -> forward -> mean pool -> normalize.
// Single-segment input only: token type ids are always zero.
type Pipeline struct {
	tokenizer Tokenizer
	encoder   encoder.Encoder
}

// New builds a pipeline over a tokenizer and an encoder.
func New(tok Tokenizer, enc encoder.Encoder) *Pipeline {
	return &Pipeline{tokenizer: tok, encoder: enc}
}

// Embed produces the unit-normalized embedding for text. The mean pool runs
// over real tokens only: padding rows carry a zero mask entry and contribute
// neither to the sum nor to the denominator.
func (p *Pipeline) Embed(text string, maxLength int) ([]float32, error) {
	res, err := p.tokenizer.Tokenize(text, maxLength)
	if err != nil {
		return nil, fmt.Errorf("tokenize: %w", err)
	}

	in := encoder.Input{
		IDs:     make([]int64, len(res.IDs)),
		TypeIDs: make([]int64, len(res.IDs)),
		Mask:    make([]int64, len(res.Mask)),
	}
	for i, id := range res.IDs {
		in.IDs[i] = int64(id)
	}
	for i, m := range res.Mask {
		in.Mask[i] = int64(m)
	}

	states, err := p.encoder.Forward(in)
	if err != nil {
		return nil, fmt.Errorf("forward: %w", err)
	}

	emb, err := meanPool(states, res.Mask)
	if err != nil {
		return nil, err
	}
	utils.NormalizeL2(emb)
	return emb, nil
}

// meanPool sums hidden states across the token dimension and divides by the
// attention mask sum.
func meanPool(states [][]float32, mask []int32) ([]float32, error) {
	if len(states) == 0 {
		return nil, errors.New("no hidden states to pool")
	}
	if len(states) != len(mask) {
		return nil, fmt.Errorf("hidden states and mask length mismatch: %d != %d", len(states), len(mask))
	}

	dim := len(states[0])
	sum := make([]float32, dim)
	var maskSum float32
	for t, row := range states {
		if mask[t] == 0 {
			continue
		}
		if len(row) != dim {
			return nil, fmt.Errorf("ragged hidden states: row %d has %d values, want %d", t, len(row), dim)
		}
		maskSum++
		for i, v := range row {
			sum[i] += v
		}
	}
	if maskSum == 0 {
		return nil, errors.New("attention mask has no real tokens")
	}
	for i := range sum {
		sum[i] /= maskSum
	}
	return sum, nil
}
