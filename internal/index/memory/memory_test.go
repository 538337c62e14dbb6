package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pareekutkarsh004/Intell-doc-ai/internal/gateway"
	"github.com/pareekutkarsh004/Intell-doc-ai/internal/log"
)

func item(fragID, docID string, seq int, text string, vec []float32) gateway.Item {
	return gateway.Item{FragmentID: fragID, DocumentID: docID, Seq: seq, Text: text, Vector: vec}
}

func newIndex(t *testing.T, dimension int) *Index {
	t.Helper()
	ix := New(dimension, log.NewNop())
	t.Cleanup(func() { _ = ix.Close() })
	return ix
}

func TestQueryUnknownNamespaceReturnsEmpty(t *testing.T) {
	ix := newIndex(t, 3)

	matches, err := ix.Query(context.Background(), "never-written", []float32{1, 0, 0}, 5)
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestUpsertAndQuery(t *testing.T) {
	ctx := context.Background()
	ix := newIndex(t, 3)

	err := ix.Upsert(ctx, "ns", []gateway.Item{
		item("doc:0", "doc", 0, "about cats", []float32{1, 0, 0}),
		item("doc:1", "doc", 1, "about dogs", []float32{0, 1, 0}),
		item("doc:2", "doc", 2, "about fish", []float32{0, 0, 1}),
	})
	require.NoError(t, err)

	matches, err := ix.Query(ctx, "ns", []float32{0.9, 0.1, 0}, 2)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "about cats", matches[0].Text)
	assert.GreaterOrEqual(t, matches[0].Score, matches[1].Score)
}

func TestUpsertIsIdempotent(t *testing.T) {
	ctx := context.Background()
	ix := newIndex(t, 2)

	items := []gateway.Item{
		item("doc:0", "doc", 0, "first", []float32{1, 0}),
		item("doc:1", "doc", 1, "second", []float32{0, 1}),
	}

	require.NoError(t, ix.Upsert(ctx, "ns", items))
	require.NoError(t, ix.Upsert(ctx, "ns", items))

	assert.Equal(t, 2, ix.Count("ns"))
}

func TestNamespaceIsolation(t *testing.T) {
	ctx := context.Background()
	ix := newIndex(t, 2)

	require.NoError(t, ix.Upsert(ctx, "ns-b", []gateway.Item{
		item("doc:0", "doc", 0, "only in b", []float32{1, 0}),
	}))

	matches, err := ix.Query(ctx, "ns-a", []float32{1, 0}, 5)
	require.NoError(t, err)
	assert.Empty(t, matches, "namespace A must never observe namespace B's fragments")

	matches, err = ix.Query(ctx, "ns-b", []float32{1, 0}, 5)
	require.NoError(t, err)
	assert.Len(t, matches, 1)
}

func TestRemoveNamespace(t *testing.T) {
	ctx := context.Background()
	ix := newIndex(t, 2)

	require.NoError(t, ix.Upsert(ctx, "ns", []gateway.Item{
		item("doc:0", "doc", 0, "gone soon", []float32{1, 0}),
	}))
	require.NoError(t, ix.Remove(ctx, "ns"))

	matches, err := ix.Query(ctx, "ns", []float32{1, 0}, 5)
	require.NoError(t, err)
	assert.Empty(t, matches)

	// Removing again is a no-op, not an error.
	require.NoError(t, ix.Remove(ctx, "ns"))
}

func TestQueryDuringRemoveNeverSearchesClosedStore(t *testing.T) {
	ctx := context.Background()
	ix := newIndex(t, 2)

	require.NoError(t, ix.Upsert(ctx, "ns", []gateway.Item{
		item("doc:0", "doc", 0, "racy", []float32{1, 0}),
	}))

	done := make(chan struct{})
	go func() {
		defer close(done)
		for range 50 {
			// Either a hit before the removal or an empty result after,
			// never a closed-store error.
			matches, err := ix.Query(ctx, "ns", []float32{1, 0}, 1)
			assert.NoError(t, err)
			assert.LessOrEqual(t, len(matches), 1)
		}
	}()

	require.NoError(t, ix.Remove(ctx, "ns"))
	<-done
}

func TestUpsertRejectsWrongDimension(t *testing.T) {
	ix := newIndex(t, 3)

	err := ix.Upsert(context.Background(), "ns", []gateway.Item{
		item("doc:0", "doc", 0, "bad", []float32{1, 0}),
	})
	require.ErrorIs(t, err, gateway.ErrIndexUnavailable)
}
