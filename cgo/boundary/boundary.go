//go:build cgo

// Package main exports the embedding engine across a C function-call boundary.
// Build with:
//
//	go build -buildmode=c-shared -o libsemblance.so ./cgo/boundary
//
// Every buffer returned to the caller is allocated with C.malloc and ownership
// transfers at the return point. The caller must release each result exactly
// once through the matching semblance_free_* function. Releasing a null buffer
// is a no-op; releasing a buffer twice, or one not produced by this layer, is
// undefined behavior.
package main

/*
#include <stdlib.h>
#include "semblance.h"
*/
import "C"

import (
	"os"
	"path/filepath"
	"sync"
	"unsafe"

	"go.uber.org/zap"

	"github.com/hyperjump/semblance/internal/cache"
	"github.com/hyperjump/semblance/internal/encoder"
	"github.com/hyperjump/semblance/internal/hub"
	"github.com/hyperjump/semblance/internal/registry"
	"github.com/hyperjump/semblance/pkg/utils"
)

var (
	engineOnce sync.Once
	engine     *registry.Registry
)

// eng lazily constructs the process-wide registry. The hosting process owns
// its lifetime; it dies with the process and is never torn down explicitly.
func eng() *registry.Registry {
	engineOnce.Do(func() {
		logger, err := utils.NewProductionLogger()
		if err != nil {
			logger = zap.NewNop()
		}

		cacheDir := os.Getenv("SEMBLANCE_CACHE_DIR")
		if cacheDir == "" {
			if base, err := os.UserCacheDir(); err == nil {
				cacheDir = filepath.Join(base, "semblance", "models")
			} else {
				cacheDir = ".cache/semblance/models"
			}
		}

		resolver := hub.NewResolver(os.Getenv("SEMBLANCE_HUB_ENDPOINT"), cacheDir, logger)
		loader := registry.NewLoader(resolver, encoder.Options{
			LibraryPath: os.Getenv("SEMBLANCE_ORT_LIBRARY"),
		}, logger)
		engine = registry.New(loader, cache.NewTiered(cache.NewLRU(1024), nil), logger)
	})
	return engine
}

// semblance_init loads the model (empty id selects the built-in default) and
// installs it as the process-wide model. Returns false on failure, leaving
// any previously loaded model in place.
//
//export semblance_init
func semblance_init(modelID *C.char, useCPU C.bool) C.bool {
	id := ""
	if modelID != nil {
		id = C.GoString(modelID)
	}
	if err := eng().Initialize(id, bool(useCPU)); err != nil {
		return C.bool(false)
	}
	return C.bool(true)
}

// semblance_tokenize tokenizes text. A non-positive max_length selects the
// default (512). The caller owns the result and must release it with
// semblance_free_tokenization.
//
//export semblance_tokenize
func semblance_tokenize(text *C.char, maxLength C.int32_t) C.tokenization_result_t {
	failure := C.tokenization_result_t{error: C.bool(true)}
	if text == nil {
		return failure
	}

	res, err := eng().Tokenize(C.GoString(text), int(maxLength))
	if err != nil {
		return failure
	}

	n := len(res.IDs)
	out := C.tokenization_result_t{len: C.int32_t(n), error: C.bool(false)}
	if n == 0 {
		return out
	}

	ids := (*C.int32_t)(C.malloc(C.size_t(n) * C.size_t(unsafe.Sizeof(C.int32_t(0)))))
	idsSlice := unsafe.Slice(ids, n)
	for i, id := range res.IDs {
		idsSlice[i] = C.int32_t(id)
	}

	tokens := (**C.char)(C.malloc(C.size_t(n) * C.size_t(unsafe.Sizeof((*C.char)(nil)))))
	tokensSlice := unsafe.Slice(tokens, n)
	for i, tok := range res.Tokens {
		tokensSlice[i] = C.CString(tok)
	}

	out.token_ids = ids
	out.tokens = tokens
	return out
}

// semblance_free_tokenization releases a tokenization result. Safe to call on
// a zeroed or failed result.
//
//export semblance_free_tokenization
func semblance_free_tokenization(res C.tokenization_result_t) {
	if res.tokens != nil {
		tokensSlice := unsafe.Slice(res.tokens, int(res.len))
		for _, tok := range tokensSlice {
			if tok != nil {
				C.free(unsafe.Pointer(tok))
			}
		}
		C.free(unsafe.Pointer(res.tokens))
	}
	if res.token_ids != nil {
		C.free(unsafe.Pointer(res.token_ids))
	}
}

// semblance_embed returns the unit-normalized embedding for text. The caller
// owns the data buffer and must release it with semblance_free_embedding.
//
//export semblance_embed
func semblance_embed(text *C.char, maxLength C.int32_t) C.embedding_result_t {
	failure := C.embedding_result_t{error: C.bool(true)}
	if text == nil {
		return failure
	}

	emb, err := eng().Embed(C.GoString(text), int(maxLength))
	if err != nil {
		return failure
	}

	n := len(emb)
	data := (*C.float)(C.malloc(C.size_t(n) * C.size_t(unsafe.Sizeof(C.float(0)))))
	dataSlice := unsafe.Slice(data, n)
	for i, v := range emb {
		dataSlice[i] = C.float(v)
	}
	return C.embedding_result_t{data: data, len: C.int32_t(n), error: C.bool(false)}
}

// semblance_free_embedding releases an embedding buffer of the given length.
// A null buffer is a no-op.
//
//export semblance_free_embedding
func semblance_free_embedding(data *C.float, length C.int32_t) {
	_ = length
	if data != nil {
		C.free(unsafe.Pointer(data))
	}
}

// semblance_similarity returns the cosine similarity of two texts, or -1.0 on
// any failure including an uninitialized model.
//
//export semblance_similarity
func semblance_similarity(text1, text2 *C.char, maxLength C.int32_t) C.float {
	if text1 == nil || text2 == nil {
		return C.float(-1.0)
	}
	score, err := eng().Similarity(C.GoString(text1), C.GoString(text2), int(maxLength))
	if err != nil {
		return C.float(-1.0)
	}
	return C.float(score)
}

// semblance_rank returns the candidate most similar to query, or
// {-1, -1.0} on any failure. An empty candidate list is a failure.
//
//export semblance_rank
func semblance_rank(query *C.char, candidates **C.char, count C.int32_t, maxLength C.int32_t) C.similarity_result_t {
	failure := C.similarity_result_t{index: C.int32_t(-1), score: C.float(-1.0)}
	if query == nil || candidates == nil || count <= 0 {
		return failure
	}

	list := unsafe.Slice(candidates, int(count))
	texts := make([]string, 0, int(count))
	for _, c := range list {
		if c == nil {
			return failure
		}
		texts = append(texts, C.GoString(c))
	}

	m, err := eng().Rank(C.GoString(query), texts, int(maxLength))
	if err != nil {
		return failure
	}
	return C.similarity_result_t{index: C.int32_t(m.Index), score: C.float(m.Score)}
}

// semblance_free_cstring releases a single string allocated by this layer.
// A null pointer is a no-op.
//
//export semblance_free_cstring
func semblance_free_cstring(s *C.char) {
	if s != nil {
		C.free(unsafe.Pointer(s))
	}
}

func main() {}
