package mcp

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/notesync/internal/core/domain"
)

// mockSyncService is a mock implementation of driving.SyncService.
type mockSyncService struct {
	report *domain.SyncReport
	calls  int
	err    error
}

func (m *mockSyncService) Sync(_ context.Context) (*domain.SyncReport, error) {
	m.calls++
	return m.report, m.err
}

func (m *mockSyncService) ClearAll(_ context.Context) error {
	return m.err
}

func (m *mockSyncService) DeletionCandidates(_ context.Context) ([]domain.DeletionCandidate, error) {
	return nil, m.err
}

func (m *mockSyncService) Purge(_ context.Context, _ []string) error {
	return m.err
}

// mockDocumentService is a mock implementation of driving.DocumentService.
type mockDocumentService struct {
	documents     []domain.Document
	document      *domain.Document
	chunks        []domain.Chunk
	relationships []domain.RelationshipRecord
	requestedID   string
	err           error
}

func (m *mockDocumentService) ListDocuments(_ context.Context) ([]domain.Document, error) {
	return m.documents, m.err
}

func (m *mockDocumentService) GetDocument(_ context.Context, id string) (*domain.Document, error) {
	m.requestedID = id
	return m.document, m.err
}

func (m *mockDocumentService) GetChunks(_ context.Context, id string) ([]domain.Chunk, error) {
	m.requestedID = id
	return m.chunks, m.err
}

func (m *mockDocumentService) ListRelationships(_ context.Context) ([]domain.RelationshipRecord, error) {
	return m.relationships, m.err
}

func newTestServer(t *testing.T, sync *mockSyncService, docs *mockDocumentService) *Server {
	t.Helper()
	if sync == nil {
		sync = &mockSyncService{report: &domain.SyncReport{}}
	}
	if docs == nil {
		docs = &mockDocumentService{}
	}
	s, err := NewServer(&Ports{Sync: sync, Document: docs}, "test")
	require.NoError(t, err)
	return s
}
