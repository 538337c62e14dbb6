// Package gateway defines the narrow interfaces through which the core
// reaches its external capability providers: the embedding model, the
// vector similarity index, and the streaming text-generation model.
//
// The core constructs concrete gateways once and passes them into the
// pipelines and the chat session controller. There are no ambient
// singletons; everything is injected.
package gateway

import (
	"context"
	"errors"
)

var (
	// ErrEmbeddingUnavailable indicates the embedding capability failed or
	// rejected the input.
	ErrEmbeddingUnavailable = errors.New("embedding gateway unavailable")

	// ErrIndexUnavailable indicates the vector index failed during an
	// upsert, query, or removal.
	ErrIndexUnavailable = errors.New("vector index unavailable")

	// ErrGenerationUnavailable indicates the generation capability failed
	// before or during streaming.
	ErrGenerationUnavailable = errors.New("generation gateway unavailable")
)

// Embedder turns text into a fixed-dimension vector.
//
// Implementations must be safe for concurrent use.
type Embedder interface {
	// Embed returns the embedding vector for text. Failures wrap
	// ErrEmbeddingUnavailable.
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Item is one fragment plus its embedding, ready for an index upsert. The
// vector is paired 1:1 with the text it was derived from and has no identity
// of its own.
type Item struct {
	FragmentID string
	DocumentID string
	Seq        int
	Text       string
	Vector     []float32
}

// Match is one retrieval hit. Score is a similarity, higher is better;
// backends convert their native distance.
type Match struct {
	FragmentID string
	DocumentID string
	Seq        int
	Text       string
	Score      float64
}

// VectorIndex is a namespaced similarity index. A query against namespace N
// can never observe items written to namespace M != N; a query against a
// namespace that was never written returns an empty result, not an error.
//
// Implementations must be safe for concurrent use and must treat FragmentID
// as the upsert key so re-ingestion overwrites instead of duplicating.
type VectorIndex interface {
	// Upsert writes items into namespace. Failures wrap ErrIndexUnavailable.
	Upsert(ctx context.Context, namespace string, items []Item) error

	// Query returns the topK items most similar to vector within namespace,
	// in descending score order. Failures wrap ErrIndexUnavailable.
	Query(ctx context.Context, namespace string, vector []float32, topK int) ([]Match, error)

	// Remove deletes every item in namespace. Removing a namespace that was
	// never written is not an error.
	Remove(ctx context.Context, namespace string) error
}

// StreamFunc receives one generation increment. Returning an error stops
// the stream.
type StreamFunc func(ctx context.Context, chunk string) error

// Generator produces a streamed answer grounded on retrieved context. The
// increment sequence is finite, ordered, and not restartable.
type Generator interface {
	// Generate streams the answer to question through stream and returns
	// the full text. stream may be nil for non-streaming callers.
	// Failures wrap ErrGenerationUnavailable.
	Generate(ctx context.Context, contextText, question string, stream StreamFunc) (string, error)
}
