// Package tokenize adapts a HuggingFace tokenizer to the embedding pipeline.
package tokenize

import (
	"fmt"

	"github.com/sugarme/tokenizer"
	"github.com/sugarme/tokenizer/pretrained"
)

// DefaultMaxLength is the sequence cap applied when the caller passes a
// non-positive max length.
const DefaultMaxLength = 512

// Backend is the subset of tokenizer.Tokenizer the adapter uses.
type Backend interface {
	EncodeSingle(sequence string, addSpecialTokens ...bool) (*tokenizer.Encoding, error)
	WithTruncation(params *tokenizer.TruncationParams)
}

// Result is one tokenized text: ids, token strings, and attention mask, all
// of equal length and bounded by the effective max length.
type Result struct {
	IDs    []int32
	Tokens []string
	Mask   []int32
}

// Adapter wraps a tokenizer backend with per-call truncation. It carries no
// truncation state between calls beyond what each call sets; callers must
// serialize access (the registry lock does).
type Adapter struct {
	tk Backend
}

// NewAdapter wraps an existing backend.
func NewAdapter(tk Backend) *Adapter {
	return &Adapter{tk: tk}
}

// FromFile loads a tokenizer.json and wraps it.
func FromFile(path string) (*Adapter, error) {
	tk, err := pretrained.FromFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load tokenizer: %w", err)
	}
	return &Adapter{tk: tk}, nil
}

// Tokenize encodes text with special tokens added, truncating from the right
// (longest sequence first, no stride) to maxLength. A non-positive maxLength
// selects DefaultMaxLength. Empty input still yields the special tokens.
func (a *Adapter) Tokenize(text string, maxLength int) (*Result, error) {
	if maxLength <= 0 {
		maxLength = DefaultMaxLength
	}
	a.tk.WithTruncation(&tokenizer.TruncationParams{
		MaxLength: maxLength,
		Strategy:  tokenizer.LongestFirst,
		Stride:    0,
	})

	en, err := a.tk.EncodeSingle(text, true)
	if err != nil {
		return nil, fmt.Errorf("encode failed: %w", err)
	}
	if len(en.Ids) != len(en.Tokens) || len(en.Ids) != len(en.AttentionMask) {
		return nil, fmt.Errorf("tokenizer returned inconsistent lengths: ids=%d tokens=%d mask=%d",
			len(en.Ids), len(en.Tokens), len(en.AttentionMask))
	}

	res := &Result{
		IDs:    make([]int32, len(en.Ids)),
		Tokens: append([]string(nil), en.Tokens...),
		Mask:   make([]int32, len(en.AttentionMask)),
	}
	for i, id := range en.Ids {
		res.IDs[i] = int32(id)
	}
	for i, m := range en.AttentionMask {
		res.Mask[i] = int32(m)
	}
	return res, nil
}
