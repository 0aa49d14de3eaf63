package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/custodia-labs/notesync/internal/core/domain"
)

// mockSyncService implements driving.SyncService for testing.
type mockSyncService struct {
	report     *domain.SyncReport
	candidates []domain.DeletionCandidate
	purged     []string
	cleared    bool
	err        error
}

func (m *mockSyncService) Sync(_ context.Context) (*domain.SyncReport, error) {
	return m.report, m.err
}

func (m *mockSyncService) ClearAll(_ context.Context) error {
	if m.err == nil {
		m.cleared = true
	}
	return m.err
}

func (m *mockSyncService) DeletionCandidates(_ context.Context) ([]domain.DeletionCandidate, error) {
	return m.candidates, m.err
}

func (m *mockSyncService) Purge(_ context.Context, ids []string) error {
	m.purged = append(m.purged, ids...)
	return m.err
}

// mockDocumentService implements driving.DocumentService for testing.
type mockDocumentService struct {
	documents     []domain.Document
	chunks        map[string][]domain.Chunk
	relationships []domain.RelationshipRecord
	err           error
}

func (m *mockDocumentService) ListDocuments(_ context.Context) ([]domain.Document, error) {
	return m.documents, m.err
}

func (m *mockDocumentService) GetDocument(_ context.Context, id string) (*domain.Document, error) {
	if m.err != nil {
		return nil, m.err
	}
	for i := range m.documents {
		if m.documents[i].ID == id {
			return &m.documents[i], nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockDocumentService) GetChunks(_ context.Context, id string) ([]domain.Chunk, error) {
	return m.chunks[id], m.err
}

func (m *mockDocumentService) ListRelationships(_ context.Context) ([]domain.RelationshipRecord, error) {
	return m.relationships, m.err
}

func testDocuments() *mockDocumentService {
	modified := time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)
	return &mockDocumentService{
		documents: []domain.Document{
			{
				ID: "doc-1", Title: "Test Document 1", Content: "# Test Document 1\n\nHello.",
				ContentHash: "abc123", LastModified: modified, ChunkCount: 2, ReferenceCount: 3,
			},
			{ID: "doc-2", Title: "Test Document 2", LastModified: modified, ChunkCount: 1},
		},
		chunks: map[string][]domain.Chunk{
			"doc-1": domain.LinkChunks("doc-1", []domain.Chunk{
				{Text: "First chunk text", Summary: "Opening", TokenCount: 4,
					Provenance: domain.Provenance{ChunkingModel: "mistral:7b", ChunkingProvider: "ollama"}},
				{Text: "Second chunk text", TokenCount: 5},
			}),
		},
		relationships: []domain.RelationshipRecord{{
			Relationship: domain.Relationship{Subject: "Alice", Type: "works_on", Object: "Atlas"},
			References:   1,
			NoteIDs:      []string{"doc-1"},
		}},
	}
}

// setupTestServices installs mocks and a temporary data directory.
func setupTestServices(t *testing.T) (*mockSyncService, *mockDocumentService) {
	t.Helper()
	oldSync, oldDoc, oldDir := syncService, documentService, dataDir

	syncMock := &mockSyncService{report: &domain.SyncReport{DocumentsFound: 2, DocumentsProcessed: 2}}
	docMock := testDocuments()
	syncService = syncMock
	documentService = docMock
	dataDir = t.TempDir()

	t.Cleanup(func() {
		syncService, documentService, dataDir = oldSync, oldDoc, oldDir
	})
	return syncMock, docMock
}

// execute runs the root command with args and stdin, returning its output.
// Flag variables are reset afterwards since cobra keeps them between runs.
func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)
	defer func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetIn(nil)
		clearYes, purgeYes, documentContent = false, false, false
		exportFormat = formatJSON
		mcpHTTPAddr = ""
	}()

	err := rootCmd.Execute()
	return buf.String(), err
}
