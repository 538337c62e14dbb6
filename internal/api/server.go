package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/pareekutkarsh004/Intell-doc-ai/internal/chat"
	"github.com/pareekutkarsh004/Intell-doc-ai/internal/gateway"
	"github.com/pareekutkarsh004/Intell-doc-ai/internal/ingest"
	"github.com/pareekutkarsh004/Intell-doc-ai/internal/retrieval"
)

// ServerConfig contains the collaborators for the API server.
type ServerConfig struct {
	Logger      *slog.Logger
	Ingest      *ingest.Pipeline    // Required
	Retriever   *retrieval.Pipeline // Required
	Generator   gateway.Generator   // Required
	Index       gateway.VectorIndex // Required: namespace removal
	Chat        chat.Config         // Turn bounds; zero values get defaults
	Pinger      Pinger              // Optional: backing store probe for /ready
	CORSOrigins []string            // Allowed origins for CORS and WebSocket
}

// Server is the JSON/streaming HTTP server.
type Server struct {
	mux *http.ServeMux
}

// NewServer creates an API server with all routes configured.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Ingest == nil {
		return nil, errors.New("ingest pipeline is required")
	}
	if cfg.Retriever == nil {
		return nil, errors.New("retrieval pipeline is required")
	}
	if cfg.Generator == nil {
		return nil, errors.New("generator is required")
	}
	if cfg.Index == nil {
		return nil, errors.New("vector index is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	dh := &documentsHandler{pipeline: cfg.Ingest, index: cfg.Index, logger: logger}
	ch := &chatHandler{retriever: cfg.Retriever, generator: cfg.Generator, cfg: cfg.Chat, logger: logger}
	wh := newWSHandler(cfg.Retriever, cfg.Generator, cfg.Chat, cfg.CORSOrigins, logger)

	mux := http.NewServeMux()

	// Ingestion and namespace lifecycle
	mux.HandleFunc("POST /api/v1/documents", dh.create)
	mux.HandleFunc("DELETE /api/v1/namespaces/{id}", dh.deleteNamespace)

	// Chat transports
	mux.HandleFunc("POST /api/v1/chat/stream", ch.stream)
	mux.HandleFunc("GET /ws/chat", wh.serve)

	// Middleware stack (outermost first):
	//   Recovery → RequestID → Logging → CORS → Routes
	// RequestID must be before Logging so request_id is available in log
	// attributes. CORS must see preflight OPTIONS before routing.
	var handler http.Handler = mux
	handler = corsMiddleware(cfg.CORSOrigins)(handler)
	handler = loggingMiddleware(logger)(handler)
	handler = requestIDMiddleware()(handler)
	handler = recoveryMiddleware(logger)(handler)

	// Health probes bypass the middleware stack.
	topMux := http.NewServeMux()
	topMux.HandleFunc("GET /health", health(logger))
	topMux.Handle("GET /ready", readiness(cfg.Pinger, logger))
	topMux.Handle("/", handler)

	return &Server{mux: topMux}, nil
}

// Handler returns the server as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}
