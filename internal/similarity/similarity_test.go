package similarity

import (
	"errors"
	"fmt"
	"math"
	"testing"
)

// tableEmbedder returns fixed unit vectors per text.
type tableEmbedder struct {
	vectors map[string][]float32
	failOn  string
}

func (e *tableEmbedder) Embed(text string, _ int) ([]float32, error) {
	if e.failOn != "" && text == e.failOn {
		return nil, errors.New("embed failed")
	}
	v, ok := e.vectors[text]
	if !ok {
		return nil, fmt.Errorf("no vector for %q", text)
	}
	return v, nil
}

func newEmbedder() *tableEmbedder {
	inv2 := float32(1 / math.Sqrt2)
	return &tableEmbedder{vectors: map[string][]float32{
		"x":  {1, 0, 0},
		"y":  {0, 1, 0},
		"z":  {0, 0, 1},
		"xy": {inv2, inv2, 0},
	}}
}

func TestDot(t *testing.T) {
	if got := Dot([]float32{1, 0}, []float32{1, 0}); got != 1 {
		t.Errorf("Dot = %f", got)
	}
	if got := Dot([]float32{1, 0}, []float32{0, 1}); got != 0 {
		t.Errorf("orthogonal Dot = %f", got)
	}
	if got := Dot([]float32{1}, []float32{1, 0}); got != 0 {
		t.Errorf("mismatched lengths should score 0, got %f", got)
	}
	if got := Dot(nil, nil); got != 0 {
		t.Errorf("empty vectors should score 0, got %f", got)
	}
}

func TestBetween_selfSimilarity(t *testing.T) {
	e := newEmbedder()
	for _, text := range []string{"x", "xy"} {
		got, err := Between(e, text, text, 0)
		if err != nil {
			t.Fatal(err)
		}
		if math.Abs(float64(got)-1.0) > 1e-5 {
			t.Errorf("Between(%q, %q) = %f, want 1.0", text, text, got)
		}
	}
}

func TestBetween_symmetry(t *testing.T) {
	e := newEmbedder()
	ab, err := Between(e, "x", "xy", 0)
	if err != nil {
		t.Fatal(err)
	}
	ba, err := Between(e, "xy", "x", 0)
	if err != nil {
		t.Fatal(err)
	}
	if ab != ba {
		t.Errorf("similarity not symmetric: %f != %f", ab, ba)
	}
}

func TestRank_returnsArgmax(t *testing.T) {
	e := newEmbedder()
	m, err := Rank(e, "x", []string{"y", "xy", "z"}, 0)
	if err != nil {
		t.Fatal(err)
	}
	if m.Index != 1 {
		t.Errorf("index = %d, want 1", m.Index)
	}
	if math.Abs(float64(m.Score)-1/math.Sqrt2) > 1e-5 {
		t.Errorf("score = %f", m.Score)
	}
}

func TestRank_tieBreaksTowardSmallestIndex(t *testing.T) {
	e := newEmbedder()
	// "xy" scores identically against "x" and a second copy of "x".
	m, err := Rank(e, "xy", []string{"x", "x", "y"}, 0)
	if err != nil {
		t.Fatal(err)
	}
	if m.Index != 0 {
		t.Errorf("tie should go to the first candidate, got index %d", m.Index)
	}
}

func TestRank_emptyCandidates(t *testing.T) {
	m, err := Rank(newEmbedder(), "x", nil, 0)
	if !errors.Is(err, ErrEmptyCandidates) {
		t.Fatalf("err = %v, want ErrEmptyCandidates", err)
	}
	if m != NoMatch {
		t.Errorf("match = %+v, want %+v", m, NoMatch)
	}
}

func TestRank_candidateEmbedError(t *testing.T) {
	e := newEmbedder()
	e.failOn = "y"
	m, err := Rank(e, "x", []string{"z", "y"}, 0)
	if err == nil {
		t.Fatal("expected error when a candidate fails to embed")
	}
	if m != NoMatch {
		t.Errorf("match = %+v, want %+v", m, NoMatch)
	}
}
