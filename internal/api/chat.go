package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/pareekutkarsh004/Intell-doc-ai/internal/chat"
	"github.com/pareekutkarsh004/Intell-doc-ai/internal/gateway"
	"github.com/pareekutkarsh004/Intell-doc-ai/internal/retrieval"
)

// SSE event types for chat streaming. One request carries one turn:
// optional status events, increment events in generation order, then
// exactly one done or error.
const (
	EventStatus    = "status"
	EventIncrement = "increment"
	EventDone      = "done"
	EventError     = "error"
)

// StatusPayload is the SSE data payload for turn progress notices.
type StatusPayload struct {
	Text      string `json:"text"`
	NoContext bool   `json:"noContext,omitempty"`
}

// IncrementPayload is the SSE data payload for one answer increment.
type IncrementPayload struct {
	Text string `json:"text"`
}

// DonePayload is the SSE data payload when a turn completes.
type DonePayload struct {
	Answer string `json:"answer"`
}

// ErrorPayload is the SSE data payload when a turn fails.
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// chatHandler serves the SSE chat transport. Each request is its own turn,
// so a fresh session is built per request; the WebSocket transport in
// ws.go is the one that holds a session across turns.
type chatHandler struct {
	retriever *retrieval.Pipeline
	generator gateway.Generator
	cfg       chat.Config
	logger    *slog.Logger
}

// chatRequest is the POST /api/v1/chat/stream body.
type chatRequest struct {
	Question  string `json:"question"`
	Namespace string `json:"namespaceId"`
}

// stream handles one SSE chat turn.
func (h *chatHandler) stream(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	var req chatRequest
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = writeEvent(w, flusher, EventError, ErrorPayload{
			Code:    "INVALID_REQUEST",
			Message: "invalid request body",
		})
		return
	}

	session := chat.NewSession(h.retriever, h.generator, h.cfg, h.logger)
	events, err := session.Ask(r.Context(), req.Question, req.Namespace)
	if err != nil {
		_ = writeEvent(w, flusher, EventError, askErrorPayload(err))
		return
	}

	ctx := r.Context()
	h.logger.Debug("SSE turn started", "namespace", req.Namespace)

	for ev := range events {
		select {
		case <-ctx.Done():
			h.logger.Info("client disconnected mid-turn", "namespace", req.Namespace)
			return
		default:
		}
		if err := writeTurnEvent(w, flusher, ev); err != nil {
			// Write failure usually means the connection closed.
			h.logger.Debug("failed to write event", "error", err)
			return
		}
	}

	h.logger.Debug("SSE turn finished", "namespace", req.Namespace)
}

// writeTurnEvent maps one controller event onto the wire.
func writeTurnEvent(w io.Writer, f http.Flusher, ev chat.Event) error {
	switch ev.Kind {
	case chat.EventStatus:
		return writeEvent(w, f, EventStatus, StatusPayload{Text: ev.Text, NoContext: ev.NoContext})
	case chat.EventIncrement:
		return writeEvent(w, f, EventIncrement, IncrementPayload{Text: ev.Text})
	case chat.EventDone:
		return writeEvent(w, f, EventDone, DonePayload{Answer: ev.Answer})
	case chat.EventError:
		return writeEvent(w, f, EventError, ErrorPayload{Code: "TURN_FAILED", Message: ev.Cause})
	default:
		return fmt.Errorf("unknown event kind %q", ev.Kind)
	}
}

// askErrorPayload maps session admission errors onto wire codes.
func askErrorPayload(err error) ErrorPayload {
	code := "TURN_REJECTED"
	switch {
	case errors.Is(err, chat.ErrEmptyQuestion):
		code = "EMPTY_QUESTION"
	case errors.Is(err, retrieval.ErrMissingNamespace):
		code = "MISSING_NAMESPACE"
	case errors.Is(err, chat.ErrTurnInProgress):
		code = "TURN_IN_PROGRESS"
	}
	return ErrorPayload{Code: code, Message: err.Error()}
}

// writeEvent writes a single SSE event with JSON-encoded data.
// SSE format: "event: <type>\ndata: <json>\n\n"
func writeEvent[T any](w io.Writer, flusher http.Flusher, event string, data T) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}

	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, jsonData); err != nil {
		return fmt.Errorf("write event: %w", err)
	}

	flusher.Flush()
	return nil
}
