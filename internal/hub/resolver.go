// Package hub resolves model artifacts (config, tokenizer, weights) from a
// local directory or a remote artifact hub, caching downloads on disk.
package hub

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
)

// WeightFormat identifies which weights layout a model was loaded from.
type WeightFormat string

const (
	// FormatModern is the memory-mappable export under the onnx/ subdirectory.
	FormatModern WeightFormat = "onnx"
	// FormatLegacy is the older export with the graph at the repository root.
	FormatLegacy WeightFormat = "onnx-legacy"
)

// DefaultModelID is used when the caller passes an empty model identifier.
const DefaultModelID = "sentence-transformers/all-MiniLM-L6-v2"

const (
	configFile    = "config.json"
	tokenizerFile = "tokenizer.json"
	modernWeights = "onnx/model.onnx"
	legacyWeights = "model.onnx"
)

// legacyFamilies lists model-id prefixes whose repositories keep the graph at
// the root instead of the onnx/ subdirectory. These skip the modern attempt.
var legacyFamilies = []string{
	"optimum/",
}

// Files are the resolved artifact paths for one model.
type Files struct {
	ModelID   string
	Config    string
	Tokenizer string
	Weights   string
	Format    WeightFormat
}

// Resolver locates model artifacts. Remote fetches go through a local cache
// directory; a path that already exists on disk is used as-is.
type Resolver struct {
	endpoint string
	cacheDir string
	client   *http.Client
	logger   *zap.Logger
}

// NewResolver creates a Resolver. An empty endpoint selects the public hub.
func NewResolver(endpoint, cacheDir string, logger *zap.Logger) *Resolver {
	if endpoint == "" {
		endpoint = "https://huggingface.co"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{
		endpoint: strings.TrimRight(endpoint, "/"),
		cacheDir: cacheDir,
		client:   &http.Client{Timeout: 5 * time.Minute},
		logger:   logger,
	}
}

// Resolve locates config, tokenizer, and weights for modelID. Weight-format
// selection is a one-shot decision: known legacy families fetch the legacy
// layout directly; everything else tries the modern layout first and falls
// back to legacy on retrieval failure, without retrying. The chosen format is
// recorded on the returned Files.
func (r *Resolver) Resolve(ctx context.Context, modelID string) (*Files, error) {
	if modelID == "" {
		modelID = DefaultModelID
	}

	if info, err := os.Stat(modelID); err == nil && info.IsDir() {
		return r.resolveLocal(modelID)
	}
	return r.resolveRemote(ctx, modelID)
}

func (r *Resolver) resolveLocal(dir string) (*Files, error) {
	files := &Files{
		ModelID:   dir,
		Config:    filepath.Join(dir, configFile),
		Tokenizer: filepath.Join(dir, tokenizerFile),
	}
	for _, p := range []string{files.Config, files.Tokenizer} {
		if _, err := os.Stat(p); err != nil {
			return nil, fmt.Errorf("model directory %s is missing %s: %w", dir, filepath.Base(p), err)
		}
	}

	modern := filepath.Join(dir, filepath.FromSlash(modernWeights))
	if _, err := os.Stat(modern); err == nil {
		files.Weights = modern
		files.Format = FormatModern
		return files, nil
	}
	legacy := filepath.Join(dir, legacyWeights)
	if _, err := os.Stat(legacy); err == nil {
		r.logger.Info("using legacy weights layout", zap.String("model", dir))
		files.Weights = legacy
		files.Format = FormatLegacy
		return files, nil
	}
	return nil, fmt.Errorf("model directory %s has no weights file (%s or %s)", dir, modernWeights, legacyWeights)
}

func (r *Resolver) resolveRemote(ctx context.Context, modelID string) (*Files, error) {
	configPath, err := r.fetch(ctx, modelID, configFile)
	if err != nil {
		return nil, err
	}
	tokenizerPath, err := r.fetch(ctx, modelID, tokenizerFile)
	if err != nil {
		return nil, err
	}

	files := &Files{
		ModelID:   modelID,
		Config:    configPath,
		Tokenizer: tokenizerPath,
	}

	if requiresLegacy(modelID) {
		weights, err := r.fetch(ctx, modelID, legacyWeights)
		if err != nil {
			return nil, err
		}
		r.logger.Info("model family requires legacy weights layout", zap.String("model", modelID))
		files.Weights = weights
		files.Format = FormatLegacy
		return files, nil
	}

	weights, err := r.fetch(ctx, modelID, modernWeights)
	if err == nil {
		files.Weights = weights
		files.Format = FormatModern
		return files, nil
	}

	r.logger.Warn("modern weights unavailable, falling back to legacy layout",
		zap.String("model", modelID), zap.Error(err))
	weights, err = r.fetch(ctx, modelID, legacyWeights)
	if err != nil {
		return nil, fmt.Errorf("no usable weights for %s: %w", modelID, err)
	}
	files.Weights = weights
	files.Format = FormatLegacy
	return files, nil
}

func requiresLegacy(modelID string) bool {
	for _, prefix := range legacyFamilies {
		if strings.HasPrefix(modelID, prefix) {
			return true
		}
	}
	return false
}

// fetch downloads one artifact into the cache directory and returns its local
// path. A file already present in the cache is reused without a network call.
func (r *Resolver) fetch(ctx context.Context, modelID, filename string) (string, error) {
	local := filepath.Join(r.cacheDir, strings.ReplaceAll(modelID, "/", "--"), filepath.FromSlash(filename))
	if _, err := os.Stat(local); err == nil {
		return local, nil
	}
	if err := os.MkdirAll(filepath.Dir(local), 0755); err != nil {
		return "", fmt.Errorf("failed to create cache directory: %w", err)
	}

	url := fmt.Sprintf("%s/%s/resolve/main/%s", r.endpoint, modelID, filename)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", filename, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch %s: hub returned status %d", filename, resp.StatusCode)
	}

	// Write to a temp file first so a partial download never lands in the cache.
	tmp, err := os.CreateTemp(filepath.Dir(local), ".download-*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		return "", fmt.Errorf("download %s: %w", filename, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), local); err != nil {
		return "", fmt.Errorf("move %s into cache: %w", filename, err)
	}

	r.logger.Debug("artifact downloaded",
		zap.String("model", modelID),
		zap.String("file", filename),
		zap.String("path", local),
	)
	return local, nil
}
