// Package retrieval orchestrates the query path: embed the question, run a
// namespaced top-K similarity query, and assemble the context string the
// generator is grounded on.
//
// An empty or unreachable namespace is not an error. A research assistant
// with no indexed material still answers from general knowledge, so those
// cases degrade to an explicit no-context sentinel and the caller is told
// that no citations are available.
package retrieval

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/pareekutkarsh004/Intell-doc-ai/internal/gateway"
)

// NoContextSentinel is the context handed to the generator when the
// namespace holds nothing retrievable. The wording is what the assistant's
// library surface has always shown.
const NoContextSentinel = "No research papers found in the library yet."

// DefaultTopK is the similarity cutoff carried over from the original
// query behavior.
const DefaultTopK = 2

var (
	// ErrRetrievalUnavailable indicates no query could be formed because
	// the embedding gateway failed.
	ErrRetrievalUnavailable = errors.New("retrieval unavailable")

	// ErrMissingNamespace indicates a retrieval without an explicit
	// namespace. Namespaces are never defaulted to a shared value.
	ErrMissingNamespace = errors.New("namespace is required")
)

// Result is one retrieval outcome. When NoContext is true, ContextText
// holds NoContextSentinel and Fragments is empty.
type Result struct {
	ContextText string
	Fragments   []gateway.Match
	NoContext   bool
}

// Pipeline is the retrieval orchestrator. Safe for concurrent use.
type Pipeline struct {
	embedder gateway.Embedder
	index    gateway.VectorIndex
	logger   *slog.Logger
}

// New creates a Pipeline over the given gateways. logger may be nil.
func New(embedder gateway.Embedder, index gateway.VectorIndex, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{embedder: embedder, index: index, logger: logger}
}

// Retrieve embeds question and returns the topK most similar fragments in
// namespace, concatenated in descending similarity order with a blank line
// between fragments.
//
// Embedding failure is propagated as ErrRetrievalUnavailable. An index
// failure or an empty result is not an error; both degrade to the
// no-context sentinel.
func (p *Pipeline) Retrieve(ctx context.Context, question, namespace string, topK int) (Result, error) {
	if namespace == "" {
		return Result{}, ErrMissingNamespace
	}
	if topK <= 0 {
		topK = DefaultTopK
	}

	vec, err := p.embedder.Embed(ctx, question)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrRetrievalUnavailable, err)
	}

	matches, err := p.index.Query(ctx, namespace, vec, topK)
	if err != nil {
		// Unreachable index degrades like an empty namespace: the turn
		// continues on general knowledge.
		p.logger.Warn("index query failed, answering without context",
			"namespace", namespace, "error", err)
		return Result{ContextText: NoContextSentinel, NoContext: true}, nil
	}
	if len(matches) == 0 {
		p.logger.Debug("no fragments retrieved", "namespace", namespace)
		return Result{ContextText: NoContextSentinel, NoContext: true}, nil
	}

	texts := make([]string, len(matches))
	for i, m := range matches {
		texts[i] = m.Text
	}

	return Result{
		ContextText: strings.Join(texts, "\n\n"),
		Fragments:   matches,
	}, nil
}
