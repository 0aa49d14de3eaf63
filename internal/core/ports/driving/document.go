package driving

import (
	"context"

	"github.com/custodia-labs/notesync/internal/core/domain"
)

// DocumentService reads synchronised documents.
type DocumentService interface {
	// ListDocuments returns every stored document.
	ListDocuments(ctx context.Context) ([]domain.Document, error)

	// GetDocument retrieves a document by ID.
	GetDocument(ctx context.Context, documentID string) (*domain.Document, error)

	// GetChunks returns a document's chunks in index order.
	GetChunks(ctx context.Context, documentID string) ([]domain.Chunk, error)

	// ListRelationships returns the relationship graph, when a store keeps one.
	ListRelationships(ctx context.Context) ([]domain.RelationshipRecord, error)
}
