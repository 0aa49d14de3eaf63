package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkID(t *testing.T) {
	assert.Equal(t, "abc-chunk-0", ChunkID("abc", 0))
	c := Chunk{DocumentID: "abc", Index: 3}
	assert.Equal(t, "abc-chunk-3", c.ID())
}

func TestChunk_FormattedContent(t *testing.T) {
	assert.Equal(t, "plain", Chunk{Text: "plain"}.FormattedContent())
	assert.Equal(t, "Summary: S\n\nbody", Chunk{Text: "body", Summary: "S"}.FormattedContent())
}

func TestLinkChunks(t *testing.T) {
	chunks := []Chunk{{Text: "a", Index: 7}, {Text: "b"}, {Text: "c", Next: "stale"}}

	linked := LinkChunks("doc", chunks)

	require.Len(t, linked, 3)
	for i, c := range linked {
		assert.Equal(t, "doc", c.DocumentID)
		assert.Equal(t, i, c.Index)
	}
	assert.Equal(t, "doc-chunk-1", linked[0].Next)
	assert.Equal(t, "doc-chunk-2", linked[1].Next)
	assert.Empty(t, linked[2].Next)

	// input is not mutated
	assert.Equal(t, 7, chunks[0].Index)
	assert.Equal(t, "stale", chunks[2].Next)
}

func TestLinkChunks_Empty(t *testing.T) {
	assert.Empty(t, LinkChunks("doc", nil))
}
