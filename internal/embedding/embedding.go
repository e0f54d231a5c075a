// Package embedding turns canonical text into dense vectors via an external provider.
//
// Embed never returns an error. When the provider fails, the result is an all-zero
// vector of the configured dimension with Degraded set, so callers keep a uniform
// control flow and can decide for themselves whether a degraded vector is usable.
package embedding

import "context"

// DefaultDimension is the vector size of text-embedding-004.
const DefaultDimension = 768

// Result is the outcome of an embedding call.
type Result struct {
	Vector   []float32
	Degraded bool // Vector is the zero placeholder, not a real embedding
}

// Embedder produces embeddings of a fixed dimension.
type Embedder interface {
	Embed(ctx context.Context, text string) Result
	Dimension() int
}

// ZeroVector returns an all-zero vector of length dim.
func ZeroVector(dim int) []float32 {
	return make([]float32, dim)
}

func degraded(dim int) Result {
	return Result{Vector: ZeroVector(dim), Degraded: true}
}
