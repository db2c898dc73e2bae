package pipeline

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/hyperjump/semblance/internal/encoder"
	"github.com/hyperjump/semblance/internal/tokenize"
	"github.com/hyperjump/semblance/pkg/utils"
)

// fakeTokenizer hashes whitespace-separated words into ids and wraps them in
// special tokens, mirroring a BERT-style encoding.
type fakeTokenizer struct {
	err error
}

func (f *fakeTokenizer) Tokenize(text string, maxLength int) (*tokenize.Result, error) {
	if f.err != nil {
		return nil, f.err
	}
	if maxLength <= 0 {
		maxLength = tokenize.DefaultMaxLength
	}
	ids := []int32{101}
	tokens := []string{"[CLS]"}
	for _, w := range strings.Fields(text) {
		var h int32
		for _, c := range w {
			h = 31*h + int32(c)
		}
		if h < 0 {
			h = -h
		}
		ids = append(ids, 1000+h%20000)
		tokens = append(tokens, w)
	}
	ids = append(ids, 102)
	tokens = append(tokens, "[SEP]")
	if len(ids) > maxLength {
		ids = ids[:maxLength]
		tokens = tokens[:maxLength]
	}
	mask := make([]int32, len(ids))
	for i := range mask {
		mask[i] = 1
	}
	return &tokenize.Result{IDs: ids, Tokens: tokens, Mask: mask}, nil
}

func TestEmbed_unitNorm(t *testing.T) {
	p := New(&fakeTokenizer{}, encoder.NewMockEncoder(16))
	for _, text := range []string{"the cat sat", "a", "", "stock market crashed today again"} {
		emb, err := p.Embed(text, 32)
		if err != nil {
			t.Fatalf("Embed(%q): %v", text, err)
		}
		if len(emb) != 16 {
			t.Fatalf("dimension = %d, want 16", len(emb))
		}
		if norm := utils.L2Norm(emb); math.Abs(norm-1.0) > 1e-5 {
			t.Errorf("Embed(%q) norm = %f, want 1.0", text, norm)
		}
	}
}

func TestEmbed_deterministic(t *testing.T) {
	p := New(&fakeTokenizer{}, encoder.NewMockEncoder(8))
	a, err := p.Embed("hello world", 16)
	if err != nil {
		t.Fatal(err)
	}
	b, err := p.Embed("hello world", 16)
	if err != nil {
		t.Fatal(err)
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatal("same text should embed identically")
		}
	}
}

func TestEmbed_tokenizerError(t *testing.T) {
	wantErr := errors.New("bad input")
	p := New(&fakeTokenizer{err: wantErr}, encoder.NewMockEncoder(8))
	if _, err := p.Embed("x", 16); !errors.Is(err, wantErr) {
		t.Errorf("err = %v, want wrapped %v", err, wantErr)
	}
}

func TestMeanPool_excludesPadding(t *testing.T) {
	states := [][]float32{
		{2, 4},
		{4, 8},
		{100, 100}, // padding row, must not contribute
	}
	mask := []int32{1, 1, 0}
	got, err := meanPool(states, mask)
	if err != nil {
		t.Fatal(err)
	}
	if got[0] != 3 || got[1] != 6 {
		t.Errorf("meanPool = %v, want [3 6]", got)
	}
}

func TestMeanPool_allPaddingFails(t *testing.T) {
	if _, err := meanPool([][]float32{{1, 2}}, []int32{0}); err == nil {
		t.Error("expected error when the mask has no real tokens")
	}
}

func TestMeanPool_shapeMismatch(t *testing.T) {
	if _, err := meanPool([][]float32{{1}}, []int32{1, 1}); err == nil {
		t.Error("expected error for states/mask length mismatch")
	}
	if _, err := meanPool(nil, nil); err == nil {
		t.Error("expected error for empty states")
	}
}
