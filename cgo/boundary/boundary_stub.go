//go:build !cgo

// Package main exports the embedding engine across a C function-call boundary.
// This is a stub for builds without CGO; the exported surface only exists in
// the cgo build.
package main

func main() {}
