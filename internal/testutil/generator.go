package testutil

import (
	"context"
	"strings"

	"github.com/pareekutkarsh004/Intell-doc-ai/internal/gateway"
)

// Generator is a scripted gateway.Generator double. It streams Increments in
// order, then returns their concatenation.
type Generator struct {
	// Increments are streamed one per callback invocation.
	Increments []string

	// Err, when set, is returned before any increment is streamed.
	Err error

	// MidStreamErr, when set, is returned after streaming exactly one
	// increment. Used to exercise mid-stream failure paths.
	MidStreamErr error

	// LastContext and LastQuestion capture the most recent call.
	LastContext  string
	LastQuestion string
}

// Generate streams the scripted increments.
func (g *Generator) Generate(ctx context.Context, contextText, question string, stream gateway.StreamFunc) (string, error) {
	g.LastContext = contextText
	g.LastQuestion = question

	if g.Err != nil {
		return "", g.Err
	}

	for i, inc := range g.Increments {
		if stream != nil {
			if err := stream(ctx, inc); err != nil {
				return "", err
			}
		}
		if g.MidStreamErr != nil && i == 0 {
			return "", g.MidStreamErr
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		default:
		}
	}

	return strings.Join(g.Increments, ""), nil
}
