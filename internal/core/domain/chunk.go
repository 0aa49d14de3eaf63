package domain

import "fmt"

// ChunkMethod records how a document was segmented.
type ChunkMethod string

const (
	// ChunkMethodLLM is semantic segmentation by the language model.
	ChunkMethodLLM ChunkMethod = "llm"

	// ChunkMethodToken is the deterministic overlapping token window fallback.
	ChunkMethodToken ChunkMethod = "token"
)

// Provenance records which models produced a chunk's derived fields.
// Empty fields mean the step did not run.
type Provenance struct {
	ChunkingModel     string
	ChunkingProvider  string
	SummaryModel      string
	SummaryProvider   string
	EmbeddingModel    string
	EmbeddingProvider string
}

// Chunk is a bounded-size unit of a document.
// Text is always set; Summary, Embedding and Provenance are optional.
type Chunk struct {
	// DocumentID links to the parent Document.
	DocumentID string

	// Index is the 0-based position within the document.
	Index int

	// Title is the parent document's title.
	Title string

	// Text is the chunk body.
	Text string

	// TokenCount is the cl100k token count of Text.
	TokenCount int

	// Summary is a one-line description of the chunk. May be empty.
	Summary string

	// Embedding is the vector of FormattedContent. May be nil.
	Embedding []float32

	Provenance Provenance

	// Next is the ID of the following chunk, empty for the last one.
	// Populated on reads.
	Next string
}

// ChunkID returns the identifier for the chunk at index of a document.
func ChunkID(documentID string, index int) string {
	return fmt.Sprintf("%s-chunk-%d", documentID, index)
}

// ID returns the chunk identifier.
func (c Chunk) ID() string {
	return ChunkID(c.DocumentID, c.Index)
}

// HasSummary reports whether the chunk carries a non-empty summary.
func (c Chunk) HasSummary() bool {
	return c.Summary != ""
}

// FormattedContent returns the text stored and embedded for the chunk.
func (c Chunk) FormattedContent() string {
	if c.Summary == "" {
		return c.Text
	}
	return "Summary: " + c.Summary + "\n\n" + c.Text
}

// LinkChunks assigns document IDs, contiguous indices and next links.
func LinkChunks(documentID string, chunks []Chunk) []Chunk {
	out := make([]Chunk, len(chunks))
	for i, c := range chunks {
		c.DocumentID = documentID
		c.Index = i
		c.Next = ""
		if i+1 < len(chunks) {
			c.Next = ChunkID(documentID, i+1)
		}
		out[i] = c
	}
	return out
}
