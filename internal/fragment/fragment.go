// Package fragment splits extracted document text into overlapping,
// ordered fragments — the unit of embedding and retrieval.
//
// Splitting is purely length-based. Sentence or paragraph awareness is a
// deliberate non-feature: deterministic spans make re-ingestion idempotent
// because fragment identity is derived from the document id and the
// sequence index alone.
package fragment

import (
	"errors"
	"fmt"
	"unicode/utf8"
)

// Defaults carried over from the original ingestion behavior: 1000-character
// fragments with a 200-character overlap between consecutive fragments.
const (
	DefaultChunkSize = 1000
	DefaultOverlap   = 200
)

var (
	// ErrInvalidChunkSize indicates a non-positive chunk size.
	ErrInvalidChunkSize = errors.New("chunk size must be positive")

	// ErrInvalidOverlap indicates an overlap that is negative or not
	// smaller than the chunk size.
	ErrInvalidOverlap = errors.New("overlap must be non-negative and smaller than chunk size")

	// ErrInvalidText indicates text that is not valid UTF-8.
	ErrInvalidText = errors.New("text is not valid UTF-8")
)

// Fragment is a contiguous slice of a document's text. Start and End are the
// character span [Start,End) in the source text. Fragments are immutable once
// created; after an index upsert the vector index owns them.
type Fragment struct {
	DocumentID string
	Namespace  string
	Seq        int
	Start      int
	End        int
	Text       string
}

// ID returns the fragment's upsert key: documentID:seq. Re-ingesting the same
// document produces the same ids, so the index overwrites instead of
// duplicating.
func (f Fragment) ID() string {
	return fmt.Sprintf("%s:%d", f.DocumentID, f.Seq)
}

// Split divides text into overlapping fragments of at most chunkSize
// characters, each consecutive pair sharing exactly overlap characters
// (except possibly at the end of the text).
//
// Fragment i spans [i*(chunkSize-overlap), min(len, i*(chunkSize-overlap)+chunkSize)).
// Empty text yields no fragments and no error; text shorter than chunkSize
// yields exactly one fragment covering the whole text.
func Split(documentID, namespace, text string, chunkSize, overlap int) ([]Fragment, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidChunkSize, chunkSize)
	}
	if overlap < 0 || overlap >= chunkSize {
		return nil, fmt.Errorf("%w: got overlap=%d chunkSize=%d", ErrInvalidOverlap, overlap, chunkSize)
	}
	if !utf8.ValidString(text) {
		return nil, ErrInvalidText
	}

	runes := []rune(text)
	if len(runes) == 0 {
		return nil, nil
	}

	stride := chunkSize - overlap
	fragments := make([]Fragment, 0, (len(runes)+stride-1)/stride)

	for seq := 0; ; seq++ {
		start := seq * stride
		if start >= len(runes) {
			break
		}
		end := min(start+chunkSize, len(runes))

		fragments = append(fragments, Fragment{
			DocumentID: documentID,
			Namespace:  namespace,
			Seq:        seq,
			Start:      start,
			End:        end,
			Text:       string(runes[start:end]),
		})

		if end == len(runes) {
			break
		}
	}

	return fragments, nil
}
