package fragment

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitSpans(t *testing.T) {
	// 2400 characters, chunkSize 1000, overlap 200 must give exactly the
	// spans [0,1000) [800,1800) [1600,2400).
	text := strings.Repeat("a", 2400)

	frags, err := Split("doc-1", "ns-1", text, 1000, 200)
	require.NoError(t, err)
	require.Len(t, frags, 3)

	wantSpans := [][2]int{{0, 1000}, {800, 1800}, {1600, 2400}}
	for i, f := range frags {
		assert.Equal(t, i, f.Seq)
		assert.Equal(t, wantSpans[i][0], f.Start)
		assert.Equal(t, wantSpans[i][1], f.End)
		assert.Equal(t, "doc-1", f.DocumentID)
		assert.Equal(t, "ns-1", f.Namespace)
		assert.Len(t, f.Text, f.End-f.Start)
	}
}

func TestSplitEdgeCases(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		chunkSize int
		overlap   int
		wantLen   int
		wantErr   error
	}{
		{name: "empty text yields no fragments", text: "", chunkSize: 100, overlap: 10, wantLen: 0},
		{name: "shorter than chunk size yields one fragment", text: "hello world", chunkSize: 100, overlap: 10, wantLen: 1},
		{name: "exact chunk size yields one fragment", text: strings.Repeat("x", 100), chunkSize: 100, overlap: 10, wantLen: 1},
		{name: "one char past chunk size yields two", text: strings.Repeat("x", 101), chunkSize: 100, overlap: 10, wantLen: 2},
		{name: "zero chunk size rejected", text: "abc", chunkSize: 0, overlap: 0, wantErr: ErrInvalidChunkSize},
		{name: "negative overlap rejected", text: "abc", chunkSize: 10, overlap: -1, wantErr: ErrInvalidOverlap},
		{name: "overlap equal to chunk size rejected", text: "abc", chunkSize: 10, overlap: 10, wantErr: ErrInvalidOverlap},
		{name: "invalid utf8 rejected", text: string([]byte{0xff, 0xfe}), chunkSize: 10, overlap: 0, wantErr: ErrInvalidText},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frags, err := Split("doc", "ns", tt.text, tt.chunkSize, tt.overlap)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Len(t, frags, tt.wantLen)
		})
	}
}

func TestSplitSingleFragmentCoversWholeText(t *testing.T) {
	text := "short document"
	frags, err := Split("doc", "ns", text, DefaultChunkSize, DefaultOverlap)
	require.NoError(t, err)
	require.Len(t, frags, 1)
	assert.Equal(t, 0, frags[0].Start)
	assert.Equal(t, len([]rune(text)), frags[0].End)
	assert.Equal(t, text, frags[0].Text)
}

func TestSplitCoverageAndOverlap(t *testing.T) {
	// Concatenating spans in order must cover the source text with exactly
	// the configured overlap between consecutive fragments (except possibly
	// the final one).
	text := strings.Repeat("abcdefghij", 137) // 1370 chars
	const chunkSize, overlap = 300, 60

	frags, err := Split("doc", "ns", text, chunkSize, overlap)
	require.NoError(t, err)
	require.NotEmpty(t, frags)

	runes := []rune(text)
	assert.Equal(t, 0, frags[0].Start)
	assert.Equal(t, len(runes), frags[len(frags)-1].End)

	for i := 1; i < len(frags); i++ {
		prev, cur := frags[i-1], frags[i]
		assert.Equal(t, overlap, prev.End-cur.Start, "fragment %d overlap", i)
		assert.Equal(t, string(runes[cur.Start:cur.End]), cur.Text)
	}
}

func TestFragmentID(t *testing.T) {
	f := Fragment{DocumentID: "doc-42", Seq: 7}
	assert.Equal(t, "doc-42:7", f.ID())
}

func TestSplitDeterministic(t *testing.T) {
	text := strings.Repeat("z", 5000)
	a, err := Split("doc", "ns", text, 1000, 200)
	require.NoError(t, err)
	b, err := Split("doc", "ns", text, 1000, 200)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}
