// Package ingest orchestrates the ingestion path: raw extracted text is
// fragmented, embedded, and upserted into the vector index under an explicit
// namespace.
//
// Ingestion is idempotent per (documentID, namespace, text): fragment ids
// derive from the document id and sequence index, so re-running an ingestion
// overwrites instead of duplicating. On a mid-write failure the pipeline
// reports and stops; the caller decides whether to re-run. Partial
// visibility during a failed run is tolerated (at-least-once, not
// exactly-once).
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/pareekutkarsh004/Intell-doc-ai/internal/fragment"
	"github.com/pareekutkarsh004/Intell-doc-ai/internal/gateway"
)

var (
	// ErrExtractionFailed indicates the source text is missing, empty, or
	// not valid UTF-8.
	ErrExtractionFailed = errors.New("document text extraction failed")

	// ErrEmbeddingFailed indicates the embedding gateway was unavailable or
	// rejected a fragment.
	ErrEmbeddingFailed = errors.New("fragment embedding failed")

	// ErrIndexWriteFailed indicates the vector index was unavailable while
	// writing the fragment batch.
	ErrIndexWriteFailed = errors.New("index write failed")

	// ErrMissingIdentifier indicates an empty document id or namespace.
	// Namespaces are mandatory and explicit end-to-end; there is no shared
	// default to fall back to.
	ErrMissingIdentifier = errors.New("document id and namespace are required")
)

// defaultEmbedWorkers bounds concurrent embedding calls per ingestion.
const defaultEmbedWorkers = 4

// Config configures a Pipeline.
type Config struct {
	ChunkSize    int // fragment length in characters; default fragment.DefaultChunkSize
	Overlap      int // overlap between consecutive fragments; default fragment.DefaultOverlap
	EmbedWorkers int // concurrent embedding calls; default 4
}

// Result reports a completed ingestion.
type Result struct {
	FragmentCount int    `json:"fragmentCount"`
	Namespace     string `json:"namespaceId"`
}

// Pipeline is the ingestion orchestrator. Safe for concurrent use; separate
// documents may be ingested in parallel without coordination.
type Pipeline struct {
	embedder  gateway.Embedder
	index     gateway.VectorIndex
	chunkSize int
	overlap   int
	workers   int
	logger    *slog.Logger
}

// New creates a Pipeline over the given gateways. logger may be nil.
func New(embedder gateway.Embedder, index gateway.VectorIndex, cfg Config, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = fragment.DefaultChunkSize
	}
	if cfg.Overlap <= 0 {
		cfg.Overlap = fragment.DefaultOverlap
	}
	if cfg.EmbedWorkers <= 0 {
		cfg.EmbedWorkers = defaultEmbedWorkers
	}

	return &Pipeline{
		embedder:  embedder,
		index:     index,
		chunkSize: cfg.ChunkSize,
		overlap:   cfg.Overlap,
		workers:   cfg.EmbedWorkers,
		logger:    logger,
	}
}

// Ingest fragments rawText, embeds every fragment, and upserts the batch
// into namespace. Fragments become visible to retrieval in their namespace
// once the batch succeeds.
func (p *Pipeline) Ingest(ctx context.Context, documentID, namespace, rawText string) (Result, error) {
	if documentID == "" || namespace == "" {
		return Result{}, ErrMissingIdentifier
	}
	if strings.TrimSpace(rawText) == "" {
		return Result{}, fmt.Errorf("%w: no text in document %q", ErrExtractionFailed, documentID)
	}

	fragments, err := fragment.Split(documentID, namespace, rawText, p.chunkSize, p.overlap)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrExtractionFailed, err)
	}

	items := make([]gateway.Item, len(fragments))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)
	for i, frag := range fragments {
		g.Go(func() error {
			vec, err := p.embedder.Embed(gctx, frag.Text)
			if err != nil {
				return fmt.Errorf("fragment %s: %w", frag.ID(), err)
			}
			items[i] = gateway.Item{
				FragmentID: frag.ID(),
				DocumentID: frag.DocumentID,
				Seq:        frag.Seq,
				Text:       frag.Text,
				Vector:     vec,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrEmbeddingFailed, err)
	}

	if err := p.index.Upsert(ctx, namespace, items); err != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrIndexWriteFailed, err)
	}

	p.logger.Info("document ingested",
		"document_id", documentID,
		"namespace", namespace,
		"fragments", len(items),
	)

	return Result{FragmentCount: len(items), Namespace: namespace}, nil
}
