package driven

import (
	"context"

	"github.com/custodia-labs/notesync/internal/core/domain"
)

// DocumentSource fetches pages from an external system and renders them to markdown.
// Each source type (notion, filesystem) implements this interface.
type DocumentSource interface {
	// Type returns the source type identifier.
	Type() string

	// ListDocuments returns every page the source currently exposes.
	// A failure here aborts the sync pass.
	ListDocuments(ctx context.Context) ([]domain.DocumentRef, error)

	// FetchDocument returns a page rendered to markdown.
	FetchDocument(ctx context.Context, ref domain.DocumentRef) (*domain.SourceDocument, error)

	// Close releases resources.
	Close() error
}
