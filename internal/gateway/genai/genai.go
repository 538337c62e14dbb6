// Package genai implements the embedding and generation gateways on top of
// Genkit with the Google AI plugin.
package genai

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/googlegenai"

	"github.com/pareekutkarsh004/Intell-doc-ai/internal/gateway"
)

// Embedder wraps a Genkit ai.Embedder behind the gateway.Embedder contract.
type Embedder struct {
	embedder ai.Embedder
	logger   *slog.Logger
}

// NewEmbedder creates an Embedder for the given model (e.g.
// "text-embedding-004"). logger may be nil.
func NewEmbedder(g *genkit.Genkit, model string, logger *slog.Logger) *Embedder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Embedder{
		embedder: googlegenai.GoogleAIEmbedder(g, model),
		logger:   logger,
	}
}

// Embed returns the embedding vector for text.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := e.embedder.Embed(ctx, &ai.EmbedRequest{
		Input: []*ai.Document{ai.DocumentFromText(text, nil)},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", gateway.ErrEmbeddingUnavailable, err)
	}
	if len(resp.Embeddings) == 0 || len(resp.Embeddings[0].Embedding) == 0 {
		return nil, fmt.Errorf("%w: empty embedding returned", gateway.ErrEmbeddingUnavailable)
	}
	return resp.Embeddings[0].Embedding, nil
}

// systemPrompt grounds the model on retrieved fragments. The context block is
// the concatenated fragment text from retrieval, or its no-context sentinel.
const systemPrompt = `You are an expert research assistant.
Answer using the context from the user's papers when it is relevant.
Context from papers: %s`

// Generator wraps Genkit streaming generation behind the gateway.Generator
// contract.
type Generator struct {
	g      *genkit.Genkit
	model  string
	logger *slog.Logger
}

// NewGenerator creates a Generator for the given model name (e.g.
// "googleai/gemini-2.5-flash"). logger may be nil.
func NewGenerator(g *genkit.Genkit, model string, logger *slog.Logger) *Generator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{g: g, model: model, logger: logger}
}

// Generate streams the grounded answer through stream and returns the full
// response text.
func (gen *Generator) Generate(ctx context.Context, contextText, question string, stream gateway.StreamFunc) (string, error) {
	opts := []ai.GenerateOption{
		ai.WithModelName(gen.model),
		ai.WithSystem(systemPrompt, contextText),
		ai.WithPrompt("%s", question),
	}

	if stream != nil {
		opts = append(opts, ai.WithStreaming(func(ctx context.Context, chunk *ai.ModelResponseChunk) error {
			text := chunk.Text()
			if text == "" {
				return nil
			}
			return stream(ctx, text)
		}))
	}

	resp, err := genkit.Generate(ctx, gen.g, opts...)
	if err != nil {
		return "", fmt.Errorf("%w: %w", gateway.ErrGenerationUnavailable, err)
	}

	gen.logger.Debug("generation completed", "model", gen.model, "response_length", len(resp.Text()))
	return resp.Text(), nil
}
