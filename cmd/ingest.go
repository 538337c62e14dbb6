package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/pareekutkarsh004/Intell-doc-ai/internal/app"
	"github.com/pareekutkarsh004/Intell-doc-ai/internal/config"
	"github.com/pareekutkarsh004/Intell-doc-ai/internal/log"
)

var (
	ingestDocumentID string
	ingestNamespace  string
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <file>",
	Short: "Ingest a document from a file",
	Long: `Reads a text file, splits it into overlapping fragments, embeds them,
and upserts the fragments into the vector index.

Without --document-id a fresh UUID is assigned. Without --namespace the
document gets its own namespace, "doc-<document-id>", so re-running the
command with the same --document-id replaces the previous fragments
instead of duplicating them.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runIngest(cmd.Context(), args[0])
	},
}

func init() {
	ingestCmd.Flags().StringVar(&ingestDocumentID, "document-id", "", "stable document identifier (default: new UUID)")
	ingestCmd.Flags().StringVar(&ingestNamespace, "namespace", "", "target namespace (default: doc-<document-id>)")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(ctx context.Context, path string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	text, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	documentID := ingestDocumentID
	if documentID == "" {
		documentID = uuid.New().String()
	}
	namespace := ingestNamespace
	if namespace == "" {
		namespace = "doc-" + documentID
	}

	logger := log.New(log.Config{Level: parseLogLevel(os.Getenv("INTELDOC_LOG_LEVEL"))})

	a, err := app.Setup(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer func() {
		if closeErr := a.Close(); closeErr != nil {
			logger.Warn("shutdown error", "error", closeErr)
		}
	}()

	result, err := a.Ingest.Ingest(ctx, documentID, namespace, string(text))
	if err != nil {
		return fmt.Errorf("ingesting %s: %w", path, err)
	}

	fmt.Printf("Ingested %s\n", path)
	fmt.Printf("  Document ID: %s\n", documentID)
	fmt.Printf("  Namespace:   %s\n", result.Namespace)
	fmt.Printf("  Fragments:   %d\n", result.FragmentCount)
	return nil
}
