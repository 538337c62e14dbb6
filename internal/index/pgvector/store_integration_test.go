package pgvector

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/pareekutkarsh004/Intell-doc-ai/internal/gateway"
	"github.com/pareekutkarsh004/Intell-doc-ai/internal/log"
)

const testSchema = `
CREATE EXTENSION IF NOT EXISTS vector;
CREATE TABLE IF NOT EXISTS fragments (
    id          TEXT PRIMARY KEY,
    namespace   TEXT NOT NULL,
    document_id TEXT NOT NULL,
    seq         INT  NOT NULL,
    content     TEXT NOT NULL,
    embedding   vector(3) NOT NULL,
    created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS fragments_namespace_idx ON fragments (namespace);`

// setupStore starts a pgvector container and returns a Store wired to it.
// Skipped in short mode and when Docker is unavailable.
func setupStore(t *testing.T) *Store {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"pgvector/pgvector:pg16",
		postgres.WithDatabase("inteldoc_test"),
		postgres.WithUsername("inteldoc_test"),
		postgres.WithPassword("test_password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		t.Skipf("could not start postgres container (docker unavailable?): %v", err)
	}
	t.Cleanup(func() {
		_ = container.Terminate(context.Background())
	})

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := NewPool(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	_, err = pool.Exec(ctx, testSchema)
	require.NoError(t, err)

	return New(pool, log.NewNop())
}

func frag(fragID, docID string, seq int, text string, vec []float32) gateway.Item {
	return gateway.Item{FragmentID: fragID, DocumentID: docID, Seq: seq, Text: text, Vector: vec}
}

func TestStoreRoundTrip(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	err := store.Upsert(ctx, "ns", []gateway.Item{
		frag("doc:0", "doc", 0, "about cats", []float32{1, 0, 0}),
		frag("doc:1", "doc", 1, "about dogs", []float32{0, 1, 0}),
	})
	require.NoError(t, err)

	matches, err := store.Query(ctx, "ns", []float32{1, 0, 0}, 2)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "about cats", matches[0].Text)
	assert.Greater(t, matches[0].Score, matches[1].Score)
}

func TestStoreUpsertIdempotent(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	items := []gateway.Item{
		frag("doc:0", "doc", 0, "first", []float32{1, 0, 0}),
		frag("doc:1", "doc", 1, "second", []float32{0, 1, 0}),
	}
	require.NoError(t, store.Upsert(ctx, "ns", items))
	require.NoError(t, store.Upsert(ctx, "ns", items))

	count, err := store.Count(ctx, "ns")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestStoreNamespaceIsolation(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, "ns-b", []gateway.Item{
		frag("doc:0", "doc", 0, "only in b", []float32{1, 0, 0}),
	}))

	matches, err := store.Query(ctx, "ns-a", []float32{1, 0, 0}, 5)
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestStoreRemove(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, "ns", []gateway.Item{
		frag("doc:0", "doc", 0, "gone soon", []float32{1, 0, 0}),
	}))
	require.NoError(t, store.Remove(ctx, "ns"))

	count, err := store.Count(ctx, "ns")
	require.NoError(t, err)
	assert.Zero(t, count)

	require.NoError(t, store.Remove(ctx, "ns"))
}
