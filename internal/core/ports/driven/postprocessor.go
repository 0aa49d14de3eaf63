package driven

import (
	"context"

	"github.com/custodia-labs/notesync/internal/core/domain"
)

// ChunkSegmenter splits document text into bounded-size chunks.
type ChunkSegmenter interface {
	// Segment returns unlinked chunks carrying title and the method that produced them.
	// Only context cancellation is reported as an error; model failures fall back internally.
	Segment(ctx context.Context, text, title string) ([]domain.Chunk, domain.ChunkMethod, error)
}

// RelationshipExtractor derives entity relationships from document text.
type RelationshipExtractor interface {
	// Extract returns the valid triples found in content.
	// Unparseable model output is reported as domain.ErrExtraction.
	Extract(ctx context.Context, content string) (domain.ExtractionResult, error)
}
