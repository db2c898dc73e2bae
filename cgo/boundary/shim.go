//go:build cgo

package main

/*
#include <stdlib.h>
#include "semblance.h"
*/
import "C"

import "unsafe"

// Go-callable shims over the exported surface. The package tests drive the
// boundary through these, so every call crosses the real C argument and
// result conversions, including the paired free functions.

func cInit(modelID string, useCPU bool) bool {
	cs := C.CString(modelID)
	defer C.free(unsafe.Pointer(cs))
	return bool(semblance_init(cs, C.bool(useCPU)))
}

func cSimilarity(text1, text2 string, maxLength int32) float32 {
	c1 := C.CString(text1)
	defer C.free(unsafe.Pointer(c1))
	c2 := C.CString(text2)
	defer C.free(unsafe.Pointer(c2))
	return float32(semblance_similarity(c1, c2, C.int32_t(maxLength)))
}

func cSimilarityNilArgs() float32 {
	return float32(semblance_similarity(nil, nil, 0))
}

func cRank(query string, candidates []string, maxLength int32) (int32, float32) {
	cq := C.CString(query)
	defer C.free(unsafe.Pointer(cq))

	var arr **C.char
	if n := len(candidates); n > 0 {
		arr = (**C.char)(C.malloc(C.size_t(n) * C.size_t(unsafe.Sizeof((*C.char)(nil)))))
		list := unsafe.Slice(arr, n)
		for i, c := range candidates {
			list[i] = C.CString(c)
		}
		defer func() {
			for _, p := range list {
				C.free(unsafe.Pointer(p))
			}
			C.free(unsafe.Pointer(arr))
		}()
	}

	res := semblance_rank(cq, arr, C.int32_t(len(candidates)), C.int32_t(maxLength))
	return int32(res.index), float32(res.score)
}

// cEmbed copies the embedding out and releases the C buffer before returning.
func cEmbed(text string, maxLength int32) ([]float32, bool) {
	cs := C.CString(text)
	defer C.free(unsafe.Pointer(cs))

	res := semblance_embed(cs, C.int32_t(maxLength))
	if bool(res.error) {
		return nil, true
	}
	out := make([]float32, int(res.len))
	if res.data != nil {
		data := unsafe.Slice(res.data, int(res.len))
		for i, v := range data {
			out[i] = float32(v)
		}
	}
	semblance_free_embedding(res.data, res.len)
	return out, false
}

// cTokenize copies ids and tokens out and releases the C record before returning.
func cTokenize(text string, maxLength int32) ([]int32, []string, bool) {
	cs := C.CString(text)
	defer C.free(unsafe.Pointer(cs))

	res := semblance_tokenize(cs, C.int32_t(maxLength))
	if bool(res.error) {
		return nil, nil, true
	}
	n := int(res.len)
	ids := make([]int32, n)
	tokens := make([]string, n)
	if n > 0 {
		idList := unsafe.Slice(res.token_ids, n)
		tokList := unsafe.Slice(res.tokens, n)
		for i := 0; i < n; i++ {
			ids[i] = int32(idList[i])
			tokens[i] = C.GoString(tokList[i])
		}
	}
	semblance_free_tokenization(res)
	return ids, tokens, false
}

func cTokenizeNilText() bool {
	res := semblance_tokenize(nil, 0)
	return bool(res.error)
}

func cFreeEmbeddingNil() {
	semblance_free_embedding(nil, 0)
}

func cFreeTokenizationZeroed() {
	semblance_free_tokenization(C.tokenization_result_t{})
}

func cFreeCStringNil() {
	semblance_free_cstring(nil)
}
