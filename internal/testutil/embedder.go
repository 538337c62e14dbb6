// Package testutil provides shared test doubles for the inteldoc core:
// a deterministic embedder, a scripted generator, and an SSE parser.
package testutil

import (
	"context"
	"hash/fnv"
	"math"
)

// Embedder is a deterministic gateway.Embedder double. Identical texts embed
// to identical vectors, so retrieval tests can rely on exact-match
// similarity without a real model.
type Embedder struct {
	Dim int

	// Err, when set, is returned by every Embed call.
	Err error

	// Calls records the texts embedded, in order.
	Calls []string
}

// NewEmbedder creates an Embedder producing unit vectors of dim dimensions.
func NewEmbedder(dim int) *Embedder {
	return &Embedder{Dim: dim}
}

// Embed hashes text into a stable unit vector.
func (e *Embedder) Embed(_ context.Context, text string) ([]float32, error) {
	if e.Err != nil {
		return nil, e.Err
	}
	e.Calls = append(e.Calls, text)

	vec := make([]float32, e.Dim)
	h := fnv.New64a()
	for i := range vec {
		h.Reset()
		_, _ = h.Write([]byte(text))
		_, _ = h.Write([]byte{byte(i)})
		// Spread hash values into [-1, 1).
		vec[i] = float32(int64(h.Sum64())%1000) / 1000
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		vec[0] = 1
		return vec, nil
	}
	scale := float32(1 / math.Sqrt(norm))
	for i := range vec {
		vec[i] *= scale
	}
	return vec, nil
}
