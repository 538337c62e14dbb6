// Package pgvector implements the vector index gateway on PostgreSQL with
// the pgvector extension. Fragments live in a single table keyed by
// fragment id, with the namespace as a mandatory predicate on every query,
// so isolation is enforced in SQL.
package pgvector

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgv "github.com/pgvector/pgvector-go"
	pgxvec "github.com/pgvector/pgvector-go/pgx"

	"github.com/pareekutkarsh004/Intell-doc-ai/internal/gateway"
)

// Store is a gateway.VectorIndex backed by a pgxpool.Pool. Safe for
// concurrent use; the pool handles connection management.
type Store struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// New wraps an existing pool. The pool must have pgvector types registered;
// use NewPool unless you already have one.
func New(pool *pgxpool.Pool, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{pool: pool, logger: logger}
}

// NewPool opens a pool for connURL with pgvector type support registered on
// every connection.
func NewPool(ctx context.Context, connURL string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(connURL)
	if err != nil {
		return nil, fmt.Errorf("parsing connection config: %w", err)
	}
	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvec.RegisterTypes(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	return pool, nil
}

const upsertSQL = `
INSERT INTO fragments (id, namespace, document_id, seq, content, embedding)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (id) DO UPDATE
SET namespace = EXCLUDED.namespace,
    document_id = EXCLUDED.document_id,
    seq = EXCLUDED.seq,
    content = EXCLUDED.content,
    embedding = EXCLUDED.embedding`

// Upsert writes items into namespace. The whole batch runs in one
// transaction; a failed batch leaves no new fragments visible.
func (s *Store) Upsert(ctx context.Context, namespace string, items []gateway.Item) error {
	if len(items) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%w: beginning transaction: %w", gateway.ErrIndexUnavailable, err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	batch := &pgx.Batch{}
	for _, item := range items {
		vec := pgv.NewVector(item.Vector)
		batch.Queue(upsertSQL, item.FragmentID, namespace, item.DocumentID, item.Seq, item.Text, vec)
	}

	results := tx.SendBatch(ctx, batch)
	for range items {
		if _, err := results.Exec(); err != nil {
			_ = results.Close()
			return fmt.Errorf("%w: upserting fragment: %w", gateway.ErrIndexUnavailable, err)
		}
	}
	if err := results.Close(); err != nil {
		return fmt.Errorf("%w: closing batch: %w", gateway.ErrIndexUnavailable, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%w: committing upsert: %w", gateway.ErrIndexUnavailable, err)
	}

	s.logger.Debug("upserted fragments", "namespace", namespace, "count", len(items))
	return nil
}

const querySQL = `
SELECT id, document_id, seq, content, 1 - (embedding <=> $2) AS similarity
FROM fragments
WHERE namespace = $1
ORDER BY embedding <=> $2
LIMIT $3`

// Query returns the topK most similar fragments within namespace, best
// first. An unknown namespace yields an empty result by construction.
func (s *Store) Query(ctx context.Context, namespace string, vector []float32, topK int) ([]gateway.Match, error) {
	if topK <= 0 {
		return nil, nil
	}

	rows, err := s.pool.Query(ctx, querySQL, namespace, pgv.NewVector(vector), topK)
	if err != nil {
		return nil, fmt.Errorf("%w: querying namespace %q: %w", gateway.ErrIndexUnavailable, namespace, err)
	}
	defer rows.Close()

	var matches []gateway.Match
	for rows.Next() {
		var m gateway.Match
		if err := rows.Scan(&m.FragmentID, &m.DocumentID, &m.Seq, &m.Text, &m.Score); err != nil {
			return nil, fmt.Errorf("%w: scanning match: %w", gateway.ErrIndexUnavailable, err)
		}
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: reading matches: %w", gateway.ErrIndexUnavailable, err)
	}

	return matches, nil
}

// Remove deletes every fragment in namespace.
func (s *Store) Remove(ctx context.Context, namespace string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM fragments WHERE namespace = $1`, namespace)
	if err != nil {
		return fmt.Errorf("%w: removing namespace %q: %w", gateway.ErrIndexUnavailable, namespace, err)
	}

	s.logger.Debug("removed namespace", "namespace", namespace, "fragments", tag.RowsAffected())
	return nil
}

// Count reports the number of fragments stored in namespace.
func (s *Store) Count(ctx context.Context, namespace string) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM fragments WHERE namespace = $1`, namespace).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("%w: counting namespace %q: %w", gateway.ErrIndexUnavailable, namespace, err)
	}
	return count, nil
}
