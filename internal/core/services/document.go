package services

import (
	"context"
	"fmt"

	"github.com/custodia-labs/notesync/internal/core/domain"
	"github.com/custodia-labs/notesync/internal/core/ports/driven"
	"github.com/custodia-labs/notesync/internal/core/ports/driving"
)

// Ensure DocumentService implements the interface.
var _ driving.DocumentService = (*DocumentService)(nil)

// DocumentService reads synchronised documents from one store.
type DocumentService struct {
	store driven.StoreAdapter
}

// NewDocumentService creates a document service reading from store.
func NewDocumentService(store driven.StoreAdapter) *DocumentService {
	return &DocumentService{store: store}
}

// ListDocuments returns every stored document.
func (s *DocumentService) ListDocuments(ctx context.Context) ([]domain.Document, error) {
	if s.store == nil {
		return nil, domain.ErrNotFound
	}
	return s.store.GetDocuments(ctx, nil)
}

// GetDocument retrieves a document by ID.
func (s *DocumentService) GetDocument(ctx context.Context, documentID string) (*domain.Document, error) {
	if s.store == nil {
		return nil, domain.ErrNotFound
	}
	docs, err := s.store.GetDocuments(ctx, []string{documentID})
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("document %s: %w", documentID, domain.ErrNotFound)
	}
	return &docs[0], nil
}

// GetChunks returns a document's chunks in index order.
func (s *DocumentService) GetChunks(ctx context.Context, documentID string) ([]domain.Chunk, error) {
	// Verify document exists
	if _, err := s.GetDocument(ctx, documentID); err != nil {
		return nil, err
	}
	return s.store.GetChunks(ctx, documentID)
}

// ListRelationships returns the relationship graph of the store.
func (s *DocumentService) ListRelationships(ctx context.Context) ([]domain.RelationshipRecord, error) {
	exporter, ok := s.store.(driven.GraphExporter)
	if !ok {
		return nil, fmt.Errorf("%w: store does not keep relationships", domain.ErrUnsupportedType)
	}
	return exporter.ListRelationships(ctx)
}
