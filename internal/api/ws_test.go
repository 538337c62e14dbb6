package api

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pareekutkarsh004/Intell-doc-ai/internal/gateway"
)

// blockingGenerator streams one increment, then holds the turn open until
// released.
type blockingGenerator struct {
	release   chan struct{}
	streaming chan struct{}
}

func newBlockingGenerator() *blockingGenerator {
	return &blockingGenerator{
		release:   make(chan struct{}),
		streaming: make(chan struct{}, 1),
	}
}

func (g *blockingGenerator) Generate(ctx context.Context, _, _ string, stream gateway.StreamFunc) (string, error) {
	if err := stream(ctx, "partial"); err != nil {
		return "", err
	}
	select {
	case g.streaming <- struct{}{}:
	default:
	}
	select {
	case <-g.release:
		return "partial", nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func dialWS(t *testing.T, d *testDeps) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(d.server.URL, "http") + "/ws/chat"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func sendQuestion(t *testing.T, conn *websocket.Conn, question, namespace string) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(questionFrame{
		Type:      "question",
		Question:  question,
		Namespace: namespace,
	}))
}

func readFrame(t *testing.T, conn *websocket.Conn) eventFrame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var frame eventFrame
	require.NoError(t, conn.ReadJSON(&frame))
	return frame
}

// readUntilTerminal collects frames until a done or error frame arrives.
func readUntilTerminal(t *testing.T, conn *websocket.Conn) []eventFrame {
	t.Helper()
	var frames []eventFrame
	for {
		frame := readFrame(t, conn)
		frames = append(frames, frame)
		if frame.Type == EventDone || frame.Type == EventError {
			return frames
		}
	}
}

func ingestDoc(t *testing.T, d *testDeps, namespace, text string) {
	t.Helper()
	resp := postJSON(t, d.server.URL+"/api/v1/documents", map[string]string{
		"documentId":  "doc-1",
		"namespaceId": namespace,
		"text":        text,
	})
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)
}

func TestWebSocketTurn(t *testing.T) {
	d := newTestServer(t, nil)
	ingestDoc(t, d, "ws-1", "websocket grounding material")

	conn := dialWS(t, d)
	sendQuestion(t, conn, "websocket grounding material", "ws-1")

	frames := readUntilTerminal(t, conn)
	last := frames[len(frames)-1]
	require.Equal(t, EventDone, last.Type)
	assert.Equal(t, "The answer is 42.", last.Answer)

	var increments []string
	for _, f := range frames {
		if f.Type == EventIncrement {
			increments = append(increments, f.Text)
		}
	}
	assert.Equal(t, []string{"The ", "answer ", "is 42."}, increments)
}

func TestWebSocketSecondQuestionRejectedMidTurn(t *testing.T) {
	gen := newBlockingGenerator()
	d := newTestServer(t, gen)
	ingestDoc(t, d, "ws-1", "material")

	conn := dialWS(t, d)
	sendQuestion(t, conn, "first question", "ws-1")

	select {
	case <-gen.streaming:
	case <-time.After(5 * time.Second):
		t.Fatal("first turn never started streaming")
	}

	sendQuestion(t, conn, "second question", "ws-1")

	// Frames for the stalled first turn and the rejection interleave;
	// collect until the first turn's done arrives.
	var sawRejection bool
	var done eventFrame
	go func() {
		// Release after the rejection had a chance to be written.
		time.Sleep(100 * time.Millisecond)
		close(gen.release)
	}()
	for done.Type == "" {
		frame := readFrame(t, conn)
		switch frame.Type {
		case EventError:
			assert.Equal(t, "TURN_IN_PROGRESS", frame.Code)
			sawRejection = true
		case EventDone:
			done = frame
		}
	}

	assert.True(t, sawRejection)
	assert.Equal(t, "partial", done.Answer)

	// The connection and session survive; a third question runs normally.
	gen.release = make(chan struct{})
	close(gen.release)
	sendQuestion(t, conn, "third question", "ws-1")
	frames := readUntilTerminal(t, conn)
	assert.Equal(t, EventDone, frames[len(frames)-1].Type)
}

func TestWebSocketInvalidFrameKeepsConnection(t *testing.T) {
	d := newTestServer(t, nil)
	ingestDoc(t, d, "ws-1", "material")

	conn := dialWS(t, d)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{not json")))

	frame := readFrame(t, conn)
	require.Equal(t, EventError, frame.Type)
	assert.Equal(t, "INVALID_REQUEST", frame.Code)

	sendQuestion(t, conn, "material", "ws-1")
	frames := readUntilTerminal(t, conn)
	assert.Equal(t, EventDone, frames[len(frames)-1].Type)
}

func TestWebSocketTurnFailureKeepsConnection(t *testing.T) {
	d := newTestServer(t, nil)
	d.embedder.Err = gateway.ErrEmbeddingUnavailable

	conn := dialWS(t, d)

	for range 2 {
		sendQuestion(t, conn, "a question", "ws-1")
		frames := readUntilTerminal(t, conn)
		last := frames[len(frames)-1]
		require.Equal(t, EventError, last.Type)
		assert.Equal(t, "TURN_FAILED", last.Code)
	}
}

func TestWebSocketEmptyQuestionRejected(t *testing.T) {
	d := newTestServer(t, nil)
	conn := dialWS(t, d)

	sendQuestion(t, conn, "undefined", "ws-1")
	frame := readFrame(t, conn)
	require.Equal(t, EventError, frame.Type)
	assert.Equal(t, "EMPTY_QUESTION", frame.Code)
}
