// Package cgo holds the C boundary for foreign hosts.
// This package isolates all CGO code from the pure Go core.
//
// Sub-packages:
//   - boundary: c-shared exports for the embedding engine
package cgo
