// Package registry owns the loaded model and serializes all access to it.
package registry

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/hyperjump/semblance/internal/cache"
	"github.com/hyperjump/semblance/internal/encoder"
	"github.com/hyperjump/semblance/internal/hub"
	"github.com/hyperjump/semblance/internal/model"
	"github.com/hyperjump/semblance/internal/pipeline"
	"github.com/hyperjump/semblance/internal/similarity"
	"github.com/hyperjump/semblance/internal/tokenize"
	"github.com/hyperjump/semblance/pkg/utils"
)

// ErrNotInitialized is returned by every operation before Initialize succeeds.
var ErrNotInitialized = errors.New("model not initialized")

// ErrEmptyCandidates is returned by Rank for an empty candidate list.
var ErrEmptyCandidates = similarity.ErrEmptyCandidates

// Handle is one fully loaded model: encoder, tokenizer, and the metadata a
// diagnostic needs. It is never partially constructed; a LoadFunc either
// returns a complete Handle or an error.
type Handle struct {
	ModelID   string
	Device    string
	Format    hub.WeightFormat
	Config    *model.Config
	Encoder   encoder.Encoder
	Tokenizer *tokenize.Adapter
}

// Close releases the encoder.
func (h *Handle) Close() error {
	if h.Encoder != nil {
		return h.Encoder.Close()
	}
	return nil
}

// LoadFunc builds a Handle for a model id. Loading runs outside the registry
// lock; only the swap of the finished handle happens under it.
type LoadFunc func(modelID string, useCPU bool) (*Handle, error)

// Registry holds at most one live Handle behind a single mutex. The mutex is
// held for the full duration of every operation, forward pass included, so a
// re-initialization can never be observed mid-replacement.
type Registry struct {
	mu     sync.Mutex
	handle *Handle // nil until the first successful Initialize
	load   LoadFunc
	cache  *cache.Tiered
	logger *zap.Logger
}

// New creates a Registry. The cache may be nil to disable embedding caching.
func New(load LoadFunc, embCache *cache.Tiered, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{load: load, cache: embCache, logger: logger}
}

// Initialize loads modelID (empty selects the built-in default) and installs
// it, replacing any previous model. On failure the prior model, if any, stays
// untouched and usable.
func (r *Registry) Initialize(modelID string, useCPU bool) error {
	h, err := r.load(modelID, useCPU)
	if err != nil {
		r.logger.Error("model initialization failed",
			zap.String("model", modelID),
			zap.Bool("use_cpu", useCPU),
			zap.Error(err),
		)
		return err
	}

	r.mu.Lock()
	old := r.handle
	r.handle = h
	r.mu.Unlock()

	// No in-flight call can still hold the old handle: they all run under the
	// mutex we just released.
	if old != nil {
		if err := old.Close(); err != nil {
			r.logger.Warn("failed to close replaced model", zap.String("model", old.ModelID), zap.Error(err))
		}
	}

	r.logger.Info("model initialized",
		zap.String("model", h.ModelID),
		zap.String("device", h.Device),
		zap.String("format", string(h.Format)),
		zap.Int("hidden_size", h.Config.HiddenSize),
	)
	return nil
}

// Describe reports the loaded model, or ok=false when uninitialized.
func (r *Registry) Describe() (modelID, device string, format hub.WeightFormat, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.handle == nil {
		return "", "", "", false
	}
	return r.handle.ModelID, r.handle.Device, r.handle.Format, true
}

// Tokenize tokenizes text with the loaded model's tokenizer.
func (r *Registry) Tokenize(text string, maxLength int) (*tokenize.Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.handle == nil {
		return nil, ErrNotInitialized
	}
	res, err := r.handle.Tokenizer.Tokenize(text, maxLength)
	if err != nil {
		r.logger.Error("tokenization failed",
			zap.String("text", utils.Truncate(text, 80)),
			zap.Error(err),
		)
		return nil, err
	}
	return res, nil
}

// Embed returns the unit-normalized embedding for text.
func (r *Registry) Embed(text string, maxLength int) ([]float32, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.embedLocked(text, maxLength)
}

// embedLocked embeds text; r.mu must be held.
func (r *Registry) embedLocked(text string, maxLength int) ([]float32, error) {
	if r.handle == nil {
		return nil, ErrNotInitialized
	}
	if maxLength <= 0 {
		maxLength = tokenize.DefaultMaxLength
	}

	ctx := context.Background()
	key := cache.Key(r.handle.ModelID, maxLength, text)
	if emb, ok := r.cache.Get(ctx, key); ok {
		return emb, nil
	}

	emb, err := pipeline.New(r.handle.Tokenizer, r.handle.Encoder).Embed(text, maxLength)
	if err != nil {
		r.logger.Error("embedding failed",
			zap.String("text", utils.Truncate(text, 80)),
			zap.Error(err),
		)
		return nil, err
	}
	r.cache.Put(ctx, key, r.handle.ModelID, emb)
	return emb, nil
}

// Similarity embeds both texts and returns their cosine similarity.
func (r *Registry) Similarity(text1, text2 string, maxLength int) (float32, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.handle == nil {
		return 0, ErrNotInitialized
	}
	score, err := similarity.Between(lockedEmbedder{r}, text1, text2, maxLength)
	if err != nil {
		return 0, err
	}
	return score, nil
}

// Rank embeds query and candidates and returns the best candidate. An empty
// candidate list is an error, not an empty result.
func (r *Registry) Rank(query string, candidates []string, maxLength int) (similarity.Match, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.handle == nil {
		return similarity.NoMatch, ErrNotInitialized
	}
	m, err := similarity.Rank(lockedEmbedder{r}, query, candidates, maxLength)
	if err != nil {
		r.logger.Error("ranking failed",
			zap.String("query", utils.Truncate(query, 80)),
			zap.Int("candidates", len(candidates)),
			zap.Error(err),
		)
		return similarity.NoMatch, err
	}
	return m, nil
}

// lockedEmbedder adapts embedLocked to the similarity.Embedder interface.
// Only valid while the registry mutex is held.
type lockedEmbedder struct {
	r *Registry
}

func (e lockedEmbedder) Embed(text string, maxLength int) ([]float32, error) {
	return e.r.embedLocked(text, maxLength)
}
