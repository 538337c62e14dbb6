// Package memory implements the vector index gateway on an embedded vecgo
// database. Each namespace gets its own store with a cosine HNSW index, so
// isolation holds by construction and removing a namespace is dropping its
// store.
//
// This is the default backend for development and tests; production setups
// point the config at the pgvector backend instead.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/hupe1980/vecgo"

	"github.com/pareekutkarsh004/Intell-doc-ai/internal/gateway"
)

// payload is the per-vector data stored alongside each embedding.
type payload struct {
	FragmentID string `json:"fragmentId"`
	DocumentID string `json:"documentId"`
	Seq        int    `json:"seq"`
	Text       string `json:"text"`
}

// namespaceIndex is one isolated vecgo store plus the fragment-id to
// internal-id mapping that gives us upsert semantics.
type namespaceIndex struct {
	db  *vecgo.DB
	dir string
	ids map[string]vecgo.ID
}

// Index is an in-process gateway.VectorIndex. Safe for concurrent use.
// Namespace stores live under a private temp directory that Close removes.
type Index struct {
	mu         sync.RWMutex
	dimension  int
	root       string
	namespaces map[string]*namespaceIndex
	logger     *slog.Logger
}

// New creates an empty Index for vectors of the given dimension. logger may
// be nil.
func New(dimension int, logger *slog.Logger) *Index {
	if logger == nil {
		logger = slog.Default()
	}
	return &Index{
		dimension:  dimension,
		namespaces: make(map[string]*namespaceIndex),
		logger:     logger,
	}
}

// namespaceFor returns the store for namespace, opening it on first use.
// Callers must hold the write lock.
func (ix *Index) namespaceFor(ctx context.Context, namespace string) (*namespaceIndex, error) {
	if ns, ok := ix.namespaces[namespace]; ok {
		return ns, nil
	}

	if ix.root == "" {
		root, err := os.MkdirTemp("", "inteldoc-index-*")
		if err != nil {
			return nil, fmt.Errorf("%w: creating index directory: %w", gateway.ErrIndexUnavailable, err)
		}
		ix.root = root
	}

	// Namespace names are caller-supplied; hash them into a safe dir name.
	h := fnv.New64a()
	_, _ = h.Write([]byte(namespace))
	dir := filepath.Join(ix.root, fmt.Sprintf("%016x", h.Sum64()))

	db, err := vecgo.Open(ctx, vecgo.Local(dir),
		vecgo.Create(ix.dimension, vecgo.MetricCosine),
		vecgo.WithLogger(ix.logger),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: opening namespace store: %w", gateway.ErrIndexUnavailable, err)
	}

	ns := &namespaceIndex{db: db, dir: dir, ids: make(map[string]vecgo.ID)}
	ix.namespaces[namespace] = ns
	return ns, nil
}

// Upsert writes items into namespace, overwriting any item with the same
// fragment id.
func (ix *Index) Upsert(ctx context.Context, namespace string, items []gateway.Item) error {
	if namespace == "" {
		return fmt.Errorf("%w: empty namespace", gateway.ErrIndexUnavailable)
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()

	ns, err := ix.namespaceFor(ctx, namespace)
	if err != nil {
		return err
	}

	for _, item := range items {
		if len(item.Vector) != ix.dimension {
			return fmt.Errorf("%w: vector dimension %d, index dimension %d",
				gateway.ErrIndexUnavailable, len(item.Vector), ix.dimension)
		}

		data, err := json.Marshal(payload{
			FragmentID: item.FragmentID,
			DocumentID: item.DocumentID,
			Seq:        item.Seq,
			Text:       item.Text,
		})
		if err != nil {
			return fmt.Errorf("%w: encoding %s: %w", gateway.ErrIndexUnavailable, item.FragmentID, err)
		}

		// vecgo ids are append-only, so an upsert is delete-then-insert.
		if old, exists := ns.ids[item.FragmentID]; exists {
			if err := ns.db.Delete(ctx, old); err != nil {
				return fmt.Errorf("%w: replacing %s: %w", gateway.ErrIndexUnavailable, item.FragmentID, err)
			}
		}

		id, err := ns.db.Insert(ctx, item.Vector, nil, data)
		if err != nil {
			return fmt.Errorf("%w: inserting %s: %w", gateway.ErrIndexUnavailable, item.FragmentID, err)
		}
		ns.ids[item.FragmentID] = id
	}

	ix.logger.Debug("upserted fragments", "namespace", namespace, "count", len(items))
	return nil
}

// Query returns the topK most similar items in namespace, best first. An
// unknown namespace yields an empty result.
//
// The read lock is held for the whole search so a concurrent Remove cannot
// close the namespace store mid-search.
func (ix *Index) Query(ctx context.Context, namespace string, vector []float32, topK int) ([]gateway.Match, error) {
	if topK <= 0 {
		return nil, nil
	}

	ix.mu.RLock()
	defer ix.mu.RUnlock()

	ns, ok := ix.namespaces[namespace]
	if !ok {
		return nil, nil
	}

	results, err := ns.db.Search(ctx, vector, topK)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", gateway.ErrIndexUnavailable, err)
	}

	// Cosine search already returns similarity, best first.
	matches := make([]gateway.Match, 0, len(results))
	for _, r := range results {
		var p payload
		if err := json.Unmarshal(r.Payload, &p); err != nil {
			return nil, fmt.Errorf("%w: decoding result %d: %w", gateway.ErrIndexUnavailable, r.ID, err)
		}
		matches = append(matches, gateway.Match{
			FragmentID: p.FragmentID,
			DocumentID: p.DocumentID,
			Seq:        p.Seq,
			Text:       p.Text,
			Score:      float64(r.Score),
		})
	}
	return matches, nil
}

// Remove drops the whole namespace. Unknown namespaces are a no-op.
func (ix *Index) Remove(_ context.Context, namespace string) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	if ns, ok := ix.namespaces[namespace]; ok {
		if err := ns.db.Close(); err != nil {
			ix.logger.Warn("closing namespace store", "namespace", namespace, "error", err)
		}
		if err := os.RemoveAll(ns.dir); err != nil {
			ix.logger.Warn("removing namespace store", "namespace", namespace, "error", err)
		}
		delete(ix.namespaces, namespace)
		ix.logger.Debug("removed namespace", "namespace", namespace)
	}
	return nil
}

// Close drops every namespace and releases their backing stores.
func (ix *Index) Close() error {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	var firstErr error
	for name, ns := range ix.namespaces {
		if err := ns.db.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(ix.namespaces, name)
	}
	if ix.root != "" {
		if err := os.RemoveAll(ix.root); err != nil && firstErr == nil {
			firstErr = err
		}
		ix.root = ""
	}
	return firstErr
}

// Count reports the number of fragments stored in namespace. Used by tests
// and the readiness probe.
func (ix *Index) Count(namespace string) int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	if ns, ok := ix.namespaces[namespace]; ok {
		return len(ns.ids)
	}
	return 0
}
