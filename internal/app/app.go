// Package app wires the application: Genkit, the AI gateways, the chosen
// vector index backend, and the ingestion and retrieval pipelines. Both
// the serve and ingest commands go through Setup so they share one wiring
// path.
package app

import (
	"context"
	"fmt"

	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/googlegenai"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pareekutkarsh004/Intell-doc-ai/db"
	"github.com/pareekutkarsh004/Intell-doc-ai/internal/config"
	"github.com/pareekutkarsh004/Intell-doc-ai/internal/gateway"
	"github.com/pareekutkarsh004/Intell-doc-ai/internal/gateway/genai"
	"github.com/pareekutkarsh004/Intell-doc-ai/internal/index/memory"
	"github.com/pareekutkarsh004/Intell-doc-ai/internal/index/pgvector"
	"github.com/pareekutkarsh004/Intell-doc-ai/internal/ingest"
	"github.com/pareekutkarsh004/Intell-doc-ai/internal/log"
	"github.com/pareekutkarsh004/Intell-doc-ai/internal/retrieval"
)

// App is the application container.
type App struct {
	Config *config.Config
	Logger log.Logger

	Genkit    *genkit.Genkit
	Embedder  gateway.Embedder
	Generator gateway.Generator
	Index     gateway.VectorIndex

	// Pool is nil when the memory backend is selected.
	Pool *pgxpool.Pool

	Ingest    *ingest.Pipeline
	Retriever *retrieval.Pipeline
}

// Setup initializes the application. Call Close to release resources.
func Setup(ctx context.Context, cfg *config.Config, logger log.Logger) (_ *App, retErr error) {
	a := &App{Config: cfg, Logger: logger}

	defer func() {
		if retErr != nil {
			_ = a.Close()
		}
	}()

	// GEMINI_API_KEY is read by the plugin from the environment; config
	// validation already checked its presence.
	g := genkit.Init(ctx, genkit.WithPlugins(&googlegenai.GoogleAI{}))
	if g == nil {
		return nil, fmt.Errorf("initializing genkit")
	}
	a.Genkit = g

	a.Embedder = genai.NewEmbedder(g, cfg.EmbedderModel, logger)
	// Genkit resolves generation models by "<provider>/<model>".
	a.Generator = genai.NewGenerator(g, "googleai/"+cfg.ModelName, logger)

	switch cfg.IndexBackend {
	case config.IndexMemory:
		a.Index = memory.New(cfg.EmbedderDimension, logger)

	case config.IndexPgvector:
		if err := db.Migrate(cfg.PostgresURL(), logger); err != nil {
			return nil, fmt.Errorf("migrating database: %w", err)
		}
		pool, err := pgvector.NewPool(ctx, cfg.PostgresConnectionString())
		if err != nil {
			return nil, fmt.Errorf("connecting to postgres: %w", err)
		}
		a.Pool = pool
		a.Index = pgvector.New(pool, logger)

	default:
		return nil, fmt.Errorf("unknown index backend %q", cfg.IndexBackend)
	}

	a.Ingest = ingest.New(a.Embedder, a.Index, ingest.Config{
		ChunkSize: cfg.ChunkSize,
		Overlap:   cfg.Overlap,
	}, logger)
	a.Retriever = retrieval.New(a.Embedder, a.Index, logger)

	logger.Info("application initialized",
		"index_backend", cfg.IndexBackend,
		"model", cfg.ModelName,
		"embedder", cfg.EmbedderModel,
		"dimension", cfg.EmbedderDimension,
	)

	return a, nil
}

// Close releases all resources.
func (a *App) Close() error {
	if a.Pool != nil {
		a.Pool.Close()
	}
	if closer, ok := a.Index.(interface{ Close() error }); ok {
		return closer.Close()
	}
	return nil
}
