package retrieval

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pareekutkarsh004/Intell-doc-ai/internal/gateway"
	"github.com/pareekutkarsh004/Intell-doc-ai/internal/index/memory"
	"github.com/pareekutkarsh004/Intell-doc-ai/internal/log"
	"github.com/pareekutkarsh004/Intell-doc-ai/internal/testutil"
)

const testDim = 8

func newIndex(t *testing.T) *memory.Index {
	t.Helper()
	ix := memory.New(testDim, log.NewNop())
	t.Cleanup(func() { _ = ix.Close() })
	return ix
}

// seed embeds texts with the same deterministic embedder used for queries
// and writes them into ns.
func seed(t *testing.T, embedder *testutil.Embedder, ix *memory.Index, ns string, texts ...string) {
	t.Helper()
	items := make([]gateway.Item, len(texts))
	for i, text := range texts {
		vec, err := embedder.Embed(context.Background(), text)
		require.NoError(t, err)
		items[i] = gateway.Item{
			FragmentID: "doc:" + text,
			DocumentID: "doc",
			Seq:        i,
			Text:       text,
			Vector:     vec,
		}
	}
	require.NoError(t, ix.Upsert(context.Background(), ns, items))
}

func TestRetrieveFindsMatchingFragment(t *testing.T) {
	embedder := testutil.NewEmbedder(testDim)
	ix := newIndex(t)
	seed(t, embedder, ix, "ns", "chunking strategies", "transformer attention", "vector databases")

	p := New(embedder, ix, log.NewNop())
	res, err := p.Retrieve(context.Background(), "transformer attention", "ns", 2)
	require.NoError(t, err)

	assert.False(t, res.NoContext)
	require.Len(t, res.Fragments, 2)
	// The identical text embeds identically, so it ranks first.
	assert.Equal(t, "transformer attention", res.Fragments[0].Text)
	assert.True(t, strings.HasPrefix(res.ContextText, "transformer attention"))
	assert.Contains(t, res.ContextText, "\n\n")
}

func TestRetrieveEmptyNamespaceIsNotAnError(t *testing.T) {
	embedder := testutil.NewEmbedder(testDim)
	ix := newIndex(t)

	p := New(embedder, ix, log.NewNop())
	res, err := p.Retrieve(context.Background(), "anything", "never-ingested", 2)
	require.NoError(t, err)

	assert.True(t, res.NoContext)
	assert.Equal(t, NoContextSentinel, res.ContextText)
	assert.Empty(t, res.Fragments)
}

func TestRetrieveNamespaceIsolation(t *testing.T) {
	embedder := testutil.NewEmbedder(testDim)
	ix := newIndex(t)
	seed(t, embedder, ix, "ns-b", "only in b")

	p := New(embedder, ix, log.NewNop())
	res, err := p.Retrieve(context.Background(), "only in b", "ns-a", 5)
	require.NoError(t, err)

	assert.True(t, res.NoContext)
	assert.Empty(t, res.Fragments)
}

func TestRetrieveUnreachableIndexDegrades(t *testing.T) {
	embedder := testutil.NewEmbedder(testDim)
	failing := &testutil.FailingIndex{Err: gateway.ErrIndexUnavailable}

	p := New(embedder, failing, log.NewNop())
	res, err := p.Retrieve(context.Background(), "anything", "ns", 2)
	require.NoError(t, err)

	assert.True(t, res.NoContext)
	assert.Equal(t, NoContextSentinel, res.ContextText)
}

func TestRetrieveEmbeddingFailurePropagates(t *testing.T) {
	embedder := testutil.NewEmbedder(testDim)
	embedder.Err = gateway.ErrEmbeddingUnavailable
	ix := newIndex(t)

	p := New(embedder, ix, log.NewNop())
	_, err := p.Retrieve(context.Background(), "anything", "ns", 2)
	require.ErrorIs(t, err, ErrRetrievalUnavailable)
	require.ErrorIs(t, err, gateway.ErrEmbeddingUnavailable)
}

func TestRetrieveRequiresNamespace(t *testing.T) {
	p := New(testutil.NewEmbedder(testDim), newIndex(t), log.NewNop())
	_, err := p.Retrieve(context.Background(), "anything", "", 2)
	require.ErrorIs(t, err, ErrMissingNamespace)
}

func TestRetrieveDefaultTopK(t *testing.T) {
	embedder := testutil.NewEmbedder(testDim)
	ix := newIndex(t)
	seed(t, embedder, ix, "ns", "one", "two", "three", "four")

	p := New(embedder, ix, log.NewNop())
	res, err := p.Retrieve(context.Background(), "one", "ns", 0)
	require.NoError(t, err)
	assert.Len(t, res.Fragments, DefaultTopK)
}
