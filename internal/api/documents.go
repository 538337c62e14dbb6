package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/pareekutkarsh004/Intell-doc-ai/internal/gateway"
	"github.com/pareekutkarsh004/Intell-doc-ai/internal/ingest"
)

// documentsHandler serves ingestion and namespace lifecycle endpoints.
type documentsHandler struct {
	pipeline *ingest.Pipeline
	index    gateway.VectorIndex
	logger   *slog.Logger
}

// ingestRequest is the POST /api/v1/documents body.
type ingestRequest struct {
	DocumentID string `json:"documentId"`
	Namespace  string `json:"namespaceId"`
	Text       string `json:"text"`
}

// create runs the ingestion pipeline for one document.
func (h *documentsHandler) create(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 10<<20)

	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid request body", h.logger)
		return
	}

	result, err := h.pipeline.Ingest(r.Context(), req.DocumentID, req.Namespace, req.Text)
	if err != nil {
		h.writeIngestError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, result, h.logger)
}

func (h *documentsHandler) writeIngestError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ingest.ErrMissingIdentifier):
		writeError(w, http.StatusBadRequest, "missing_identifier", err.Error(), h.logger)
	case errors.Is(err, ingest.ErrExtractionFailed):
		writeError(w, http.StatusUnprocessableEntity, "extraction_failed", err.Error(), h.logger)
	case errors.Is(err, ingest.ErrEmbeddingFailed):
		writeError(w, http.StatusBadGateway, "embedding_failed", "embedding provider unavailable", h.logger)
	case errors.Is(err, ingest.ErrIndexWriteFailed):
		writeError(w, http.StatusBadGateway, "index_write_failed", "vector index unavailable", h.logger)
	default:
		writeError(w, http.StatusInternalServerError, "ingest_failed", "document ingestion failed", h.logger)
	}
}

// deleteNamespace removes every fragment in a namespace. Deleting an
// absent namespace succeeds; the operation is idempotent.
func (h *documentsHandler) deleteNamespace(w http.ResponseWriter, r *http.Request) {
	namespace := r.PathValue("id")
	if namespace == "" {
		writeError(w, http.StatusBadRequest, "missing_namespace", "namespace is required", h.logger)
		return
	}

	if err := h.index.Remove(r.Context(), namespace); err != nil {
		h.logger.Error("namespace removal failed", "namespace", namespace, "error", err)
		writeError(w, http.StatusBadGateway, "remove_failed", "vector index unavailable", h.logger)
		return
	}

	h.logger.Info("namespace removed", "namespace", namespace)
	w.WriteHeader(http.StatusNoContent)
}
