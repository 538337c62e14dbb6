package testutil

import (
	"context"

	"github.com/pareekutkarsh004/Intell-doc-ai/internal/gateway"
)

// FailingIndex is a gateway.VectorIndex double whose operations all return
// the configured error. Used to exercise unreachable-index fallbacks.
type FailingIndex struct {
	Err error
}

func (f *FailingIndex) Upsert(context.Context, string, []gateway.Item) error { return f.Err }

func (f *FailingIndex) Query(context.Context, string, []float32, int) ([]gateway.Match, error) {
	return nil, f.Err
}

func (f *FailingIndex) Remove(context.Context, string) error { return f.Err }
