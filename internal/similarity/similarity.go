// Package similarity scores and ranks normalized embeddings.
package similarity

import (
	"errors"
	"fmt"
)

// ErrEmptyCandidates is returned by Rank when the candidate list is empty.
var ErrEmptyCandidates = errors.New("empty candidate list")

// Embedder is the embedding capability the engine ranks with.
type Embedder interface {
	Embed(text string, maxLength int) ([]float32, error)
}

// Match is the best candidate found by Rank.
type Match struct {
	Index int
	Score float32
}

// NoMatch is the sentinel returned alongside a Rank error.
var NoMatch = Match{Index: -1, Score: -1.0}

// Dot returns the inner product of two vectors. For unit-normalized vectors
// this is the cosine similarity. Mismatched or empty vectors score 0.
func Dot(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot float32
	for i := range a {
		dot += a[i] * b[i]
	}
	return dot
}

// Between embeds both texts independently and returns their cosine similarity.
func Between(e Embedder, text1, text2 string, maxLength int) (float32, error) {
	emb1, err := e.Embed(text1, maxLength)
	if err != nil {
		return 0, fmt.Errorf("embed first text: %w", err)
	}
	emb2, err := e.Embed(text2, maxLength)
	if err != nil {
		return 0, fmt.Errorf("embed second text: %w", err)
	}
	return Dot(emb1, emb2), nil
}

// Rank embeds query once, then scores each candidate in order and returns the
// best. The best score starts below the valid similarity range and is only
// replaced on a strictly greater score, so the earliest candidate wins ties.
func Rank(e Embedder, query string, candidates []string, maxLength int) (Match, error) {
	if len(candidates) == 0 {
		return NoMatch, ErrEmptyCandidates
	}

	queryEmb, err := e.Embed(query, maxLength)
	if err != nil {
		return NoMatch, fmt.Errorf("embed query: %w", err)
	}

	best := Match{Index: 0, Score: -1.0}
	for i, candidate := range candidates {
		emb, err := e.Embed(candidate, maxLength)
		if err != nil {
			return NoMatch, fmt.Errorf("embed candidate %d: %w", i, err)
		}
		if score := Dot(queryEmb, emb); score > best.Score {
			best = Match{Index: i, Score: score}
		}
	}
	return best, nil
}
