package api

import (
	"context"
	"encoding/json"
	"iter"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/pareekutkarsh004/Intell-doc-ai/internal/chat"
	"github.com/pareekutkarsh004/Intell-doc-ai/internal/gateway"
	"github.com/pareekutkarsh004/Intell-doc-ai/internal/retrieval"
)

// wsHandler serves the persistent WebSocket chat transport. One connection
// holds one session: turns run strictly one at a time, a rejected turn
// leaves the running one untouched, and a failed turn ends with an error
// frame while the connection stays open for the next question.
type wsHandler struct {
	retriever *retrieval.Pipeline
	generator gateway.Generator
	cfg       chat.Config
	upgrader  websocket.Upgrader
	logger    *slog.Logger
}

func newWSHandler(retriever *retrieval.Pipeline, generator gateway.Generator, cfg chat.Config, corsOrigins []string, logger *slog.Logger) *wsHandler {
	originSet := make(map[string]struct{}, len(corsOrigins))
	for _, o := range corsOrigins {
		originSet[o] = struct{}{}
	}

	return &wsHandler{
		retriever: retriever,
		generator: generator,
		cfg:       cfg,
		logger:    logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" {
					// Non-browser clients carry no Origin header.
					return true
				}
				_, ok := originSet[origin]
				return ok
			},
		},
	}
}

// questionFrame is the inbound message shape.
type questionFrame struct {
	Type      string `json:"type"`
	Question  string `json:"question"`
	Namespace string `json:"namespaceId"`
}

// eventFrame is the outbound message shape, one frame per turn event.
type eventFrame struct {
	Type      string `json:"type"`
	Text      string `json:"text,omitempty"`
	Answer    string `json:"answer,omitempty"`
	Code      string `json:"code,omitempty"`
	Message   string `json:"message,omitempty"`
	NoContext bool   `json:"noContext,omitempty"`
}

// wsConn serializes writes. The read loop and the turn goroutine both
// write frames, and gorilla permits one concurrent writer.
type wsConn struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *wsConn) writeFrame(frame eventFrame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(frame)
}

// serve upgrades the connection and runs its read loop until the client
// disconnects.
func (h *wsHandler) serve(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		h.logger.Debug("websocket upgrade failed", "error", err)
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	wc := &wsConn{conn: conn}
	session := chat.NewSession(h.retriever, h.generator, h.cfg, h.logger)

	var turns sync.WaitGroup
	defer func() {
		cancel()
		turns.Wait()
		_ = conn.Close()
	}()

	h.logger.Debug("websocket connected", "remote", conn.RemoteAddr())

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.Debug("websocket closed unexpectedly", "error", err)
			}
			return
		}

		var frame questionFrame
		if err := json.Unmarshal(data, &frame); err != nil || frame.Type != "question" {
			_ = wc.writeFrame(eventFrame{
				Type:    EventError,
				Code:    "INVALID_REQUEST",
				Message: "expected a question frame",
			})
			continue
		}

		events, err := session.Ask(ctx, frame.Question, frame.Namespace)
		if err != nil {
			payload := askErrorPayload(err)
			_ = wc.writeFrame(eventFrame{Type: EventError, Code: payload.Code, Message: payload.Message})
			continue
		}

		turns.Add(1)
		go func() {
			defer turns.Done()
			h.runTurn(ctx, wc, events)
		}()
	}
}

// runTurn forwards one turn's events as frames. A write failure means the
// connection is gone; abandoning the range stops the turn.
func (h *wsHandler) runTurn(ctx context.Context, wc *wsConn, events iter.Seq[chat.Event]) {
	for ev := range events {
		if ctx.Err() != nil {
			return
		}

		var frame eventFrame
		switch ev.Kind {
		case chat.EventStatus:
			frame = eventFrame{Type: EventStatus, Text: ev.Text, NoContext: ev.NoContext}
		case chat.EventIncrement:
			frame = eventFrame{Type: EventIncrement, Text: ev.Text}
		case chat.EventDone:
			frame = eventFrame{Type: EventDone, Answer: ev.Answer}
		case chat.EventError:
			frame = eventFrame{Type: EventError, Code: "TURN_FAILED", Message: ev.Cause}
		default:
			continue
		}

		if err := wc.writeFrame(frame); err != nil {
			h.logger.Debug("failed to write frame", "error", err)
			return
		}
	}
}
