// Package chat owns one logical conversation turn: it drives the retrieval
// pipeline, hands the grounded context to the generation gateway, and emits
// an ordered event sequence for a transport adapter to forward.
//
// The controller is transport-agnostic. It produces a finite iter.Seq of
// typed events rather than writing to a socket, so the turn logic is
// testable without a live connection and any adapter (SSE, WebSocket) can
// forward the same stream.
package chat

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/pareekutkarsh004/Intell-doc-ai/internal/gateway"
	"github.com/pareekutkarsh004/Intell-doc-ai/internal/retrieval"
)

// EventKind discriminates the events of one turn. Per turn a client
// observes: zero or more status events, zero or more increments, then
// exactly one terminal done or error.
type EventKind string

const (
	// EventStatus is informational ("searching", no-context notice).
	EventStatus EventKind = "status"

	// EventIncrement carries one answer increment, forwarded in the exact
	// order the generation gateway produced it.
	EventIncrement EventKind = "increment"

	// EventDone terminates a successful turn.
	EventDone EventKind = "done"

	// EventError terminates a failed turn with a human-readable cause.
	EventError EventKind = "error"
)

// Event is one element of a turn's ordered event stream.
type Event struct {
	Kind EventKind `json:"type"`

	// Text carries the increment or status message.
	Text string `json:"text,omitempty"`

	// Answer is the full response text, set on done events.
	Answer string `json:"answer,omitempty"`

	// Cause is the human-readable failure cause, set on error events.
	Cause string `json:"cause,omitempty"`

	// NoContext marks the status event telling the client no citations
	// are available for this turn.
	NoContext bool `json:"noContext,omitempty"`
}

var (
	// ErrEmptyQuestion rejects empty, whitespace-only, or absence-marker
	// questions before any gateway call is made.
	ErrEmptyQuestion = errors.New("question must not be empty")

	// ErrTurnInProgress rejects a question arriving while another turn on
	// the same session is still running. The running turn is unaffected.
	ErrTurnInProgress = errors.New("a turn is already in progress")
)

// absenceMarker is the literal some upstream transports serialize a missing
// question payload to. It is rejected like an empty question.
const absenceMarker = "undefined"

// turn states, for logging. Transitions:
// idle -> awaitingRetrieval -> awaitingGeneration -> streaming -> completed,
// with any non-terminal state able to fail.
type turnState string

const (
	stateIdle               turnState = "idle"
	stateAwaitingRetrieval  turnState = "awaiting_retrieval"
	stateAwaitingGeneration turnState = "awaiting_generation"
	stateStreaming          turnState = "streaming"
	stateCompleted          turnState = "completed"
	stateFailed             turnState = "failed"
)

// errStreamAbandoned signals that the event consumer stopped pulling; the
// generator is stopped and no terminal event is emitted.
var errStreamAbandoned = errors.New("event stream abandoned")

// Retriever is the slice of the retrieval pipeline the controller needs.
type Retriever interface {
	Retrieve(ctx context.Context, question, namespace string, topK int) (retrieval.Result, error)
}

// Config bounds one turn. Zero values get sensible defaults.
type Config struct {
	TopK              int           // fragments per retrieval; default retrieval.DefaultTopK
	RetrievalTimeout  time.Duration // per-turn retrieval budget; default 15s
	GenerationTimeout time.Duration // per-turn generation budget; default 2m
}

func (c Config) withDefaults() Config {
	if c.TopK <= 0 {
		c.TopK = retrieval.DefaultTopK
	}
	if c.RetrievalTimeout <= 0 {
		c.RetrievalTimeout = 15 * time.Second
	}
	if c.GenerationTimeout <= 0 {
		c.GenerationTimeout = 2 * time.Minute
	}
	return c
}

// Session serializes turns for one client connection. At most one turn runs
// at a time; a second question is rejected immediately without touching the
// running turn. Sessions share the read-only gateways and nothing else, so
// any number of sessions may run in parallel.
type Session struct {
	retriever Retriever
	generator gateway.Generator
	cfg       Config
	logger    *slog.Logger

	mu     sync.Mutex
	active bool
}

// NewSession creates a Session over the given collaborators. logger may
// be nil.
func NewSession(retriever Retriever, generator gateway.Generator, cfg Config, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{
		retriever: retriever,
		generator: generator,
		cfg:       cfg.withDefaults(),
		logger:    logger,
	}
}

// Ask validates question, claims the session's single turn slot, and
// returns the turn's event sequence. The sequence is finite and must be
// consumed; the turn runs as it is pulled and the slot is released when
// iteration ends, whether the consumer drains it or walks away.
//
// A malformed question or a busy session is reported as an error here,
// before any gateway call; the transport adapter turns it into an
// immediate error event.
func (s *Session) Ask(ctx context.Context, question, namespace string) (iter.Seq[Event], error) {
	trimmed := strings.TrimSpace(question)
	if trimmed == "" || trimmed == absenceMarker {
		return nil, ErrEmptyQuestion
	}
	if namespace == "" {
		return nil, retrieval.ErrMissingNamespace
	}

	s.mu.Lock()
	if s.active {
		s.mu.Unlock()
		return nil, ErrTurnInProgress
	}
	s.active = true
	s.mu.Unlock()

	return func(yield func(Event) bool) {
		defer s.release()
		s.run(ctx, trimmed, namespace, yield)
	}, nil
}

func (s *Session) release() {
	s.mu.Lock()
	s.active = false
	s.mu.Unlock()
}

// run executes one turn, yielding its events in order. Exactly one terminal
// event is yielded unless the consumer abandons the stream or the client
// context is canceled, in which case there is no one left to deliver it to.
func (s *Session) run(ctx context.Context, question, namespace string, yield func(Event) bool) {
	state := stateIdle
	fail := func(cause string) {
		state = stateFailed
		s.logger.Warn("turn failed", "state", state, "cause", cause)
		yield(Event{Kind: EventError, Cause: cause})
	}

	if !yield(Event{Kind: EventStatus, Text: "searching"}) {
		return
	}

	state = stateAwaitingRetrieval
	retrCtx, cancelRetr := context.WithTimeout(ctx, s.cfg.RetrievalTimeout)
	res, err := s.retriever.Retrieve(retrCtx, question, namespace, s.cfg.TopK)
	retrTimedOut := errors.Is(retrCtx.Err(), context.DeadlineExceeded)
	cancelRetr()
	if err != nil {
		switch {
		case ctx.Err() != nil:
			// Client gone; stop without a terminal event.
		case retrTimedOut || errors.Is(err, context.DeadlineExceeded):
			fail("retrieval timed out")
		default:
			fail(fmt.Sprintf("retrieval unavailable: %v", err))
		}
		return
	}

	if res.NoContext {
		if !yield(Event{Kind: EventStatus, Text: retrieval.NoContextSentinel, NoContext: true}) {
			return
		}
	}

	state = stateAwaitingGeneration
	genCtx, cancelGen := context.WithTimeout(ctx, s.cfg.GenerationTimeout)
	defer cancelGen()

	increments := 0
	answer, err := s.generator.Generate(genCtx, res.ContextText, question,
		func(_ context.Context, chunk string) error {
			state = stateStreaming
			if !yield(Event{Kind: EventIncrement, Text: chunk}) {
				return errStreamAbandoned
			}
			increments++
			return nil
		})
	if err != nil {
		switch {
		case errors.Is(err, errStreamAbandoned), ctx.Err() != nil:
			// Consumer or client gone; increments already sent stand.
		case errors.Is(genCtx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded):
			fail("generation timed out")
		default:
			fail(fmt.Sprintf("generation failed: %v", err))
		}
		return
	}

	state = stateCompleted
	s.logger.Debug("turn completed",
		"namespace", namespace,
		"increments", increments,
		"no_context", res.NoContext,
	)
	yield(Event{Kind: EventDone, Answer: answer})
}
