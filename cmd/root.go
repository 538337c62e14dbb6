// Package cmd defines the CLI: a serve command running the HTTP API and an
// ingest command for loading documents from files.
package cmd

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "inteldoc",
	Short: "Document intelligence assistant with retrieval-grounded chat",
	Long: `inteldoc ingests documents into namespaced vector indexes and answers
questions about them over streaming chat, grounding every answer in the
most similar document fragments.

Run "inteldoc serve" to start the HTTP API, or "inteldoc ingest" to load
a document from the command line.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	// A missing .env file is fine; the environment may already be set.
	_ = godotenv.Load()
	return rootCmd.Execute()
}
