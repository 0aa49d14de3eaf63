package mcp

import (
	"context"
	"errors"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/notesync/internal/core/domain"
)

func TestExtractDocumentID(t *testing.T) {
	tests := []struct {
		name     string
		uri      string
		expected string
	}{
		{
			name:     "valid document URI",
			uri:      "notesync://documents/doc-456",
			expected: "doc-456",
		},
		{
			name:     "escaped path ID",
			uri:      "notesync://documents/notes%2Fplan.md",
			expected: "notes/plan.md",
		},
		{
			name:     "invalid prefix",
			uri:      "file://documents/doc-456",
			expected: "",
		},
		{
			name:     "chunks URI is not a document URI",
			uri:      "notesync://documents/doc-456/chunks",
			expected: "",
		},
		{
			name:     "bad escape",
			uri:      "notesync://documents/%zz",
			expected: "",
		},
		{
			name:     "empty URI",
			uri:      "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := extractDocumentID(tt.uri)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestExtractChunksDocumentID(t *testing.T) {
	assert.Equal(t, "doc-1", extractChunksDocumentID("notesync://documents/doc-1/chunks"))
	assert.Equal(t, "a/b.md", extractChunksDocumentID("notesync://documents/a%2Fb.md/chunks"))
	assert.Empty(t, extractChunksDocumentID("notesync://documents/doc-1"))
}

func TestDocumentURI_RoundTripsThroughExtract(t *testing.T) {
	id := "projects/2024 plan.md"
	assert.Equal(t, id, extractDocumentID(documentURI(id)))
}

// Helper to create a ReadResourceRequest with the given URI.
func makeReadResourceRequest(uri string) *mcp.ReadResourceRequest {
	return &mcp.ReadResourceRequest{
		Params: &mcp.ReadResourceParams{
			URI: uri,
		},
	}
}

func TestServer_handleDocumentsResource(t *testing.T) {
	ctx := context.Background()

	t.Run("returns documents successfully", func(t *testing.T) {
		docs := &mockDocumentService{documents: []domain.Document{
			{ID: "doc-1", Title: "README"},
			{ID: "doc-2", Title: "Guide"},
		}}
		server := newTestServer(t, nil, docs)

		result, err := server.handleDocumentsResource(ctx, makeReadResourceRequest("notesync://documents"))

		require.NoError(t, err)
		require.Len(t, result.Contents, 1)
		assert.Equal(t, "application/json", result.Contents[0].MIMEType)
		assert.Contains(t, result.Contents[0].Text, "doc-1")
		assert.Contains(t, result.Contents[0].Text, "README")
		assert.Contains(t, result.Contents[0].Text, "notesync://documents/doc-2")
	})

	t.Run("handles empty document list", func(t *testing.T) {
		server := newTestServer(t, nil, &mockDocumentService{documents: []domain.Document{}})

		result, err := server.handleDocumentsResource(ctx, makeReadResourceRequest("notesync://documents"))

		require.NoError(t, err)
		assert.Equal(t, "[]", result.Contents[0].Text)
	})

	t.Run("returns error on list failure", func(t *testing.T) {
		server := newTestServer(t, nil, &mockDocumentService{err: errors.New("storage error")})

		_, err := server.handleDocumentsResource(ctx, makeReadResourceRequest("notesync://documents"))

		require.Error(t, err)
		assert.Contains(t, err.Error(), "listing documents")
	})
}

func TestServer_handleRelationshipsResource(t *testing.T) {
	ctx := context.Background()

	t.Run("serialises triples with note ids", func(t *testing.T) {
		docs := &mockDocumentService{relationships: []domain.RelationshipRecord{{
			Relationship: domain.Relationship{Subject: "Alice", Type: "works_on", Object: "Atlas"},
			References:   2,
			NoteIDs:      []string{"n1", "n2"},
		}}}
		server := newTestServer(t, nil, docs)

		result, err := server.handleRelationshipsResource(ctx, makeReadResourceRequest("notesync://relationships"))

		require.NoError(t, err)
		text := result.Contents[0].Text
		assert.Contains(t, text, `"subject": "Alice"`)
		assert.Contains(t, text, `"relationship": "works_on"`)
		assert.Contains(t, text, `"note_ids"`)
	})

	t.Run("nil result is an empty list", func(t *testing.T) {
		server := newTestServer(t, nil, &mockDocumentService{})

		result, err := server.handleRelationshipsResource(ctx, makeReadResourceRequest("notesync://relationships"))

		require.NoError(t, err)
		assert.Equal(t, "[]", result.Contents[0].Text)
	})
}

func TestServer_handleDocumentContentResource(t *testing.T) {
	ctx := context.Background()

	t.Run("invalid URI returns not found", func(t *testing.T) {
		server := newTestServer(t, nil, nil)

		_, err := server.handleDocumentContentResource(ctx, makeReadResourceRequest("notesync://invalid/uri"))

		require.Error(t, err)
	})

	t.Run("returns content successfully", func(t *testing.T) {
		docs := &mockDocumentService{document: &domain.Document{
			ID:      "notes/hello.md",
			Content: "# Hello World\n\nThis is the document content.",
		}}
		server := newTestServer(t, nil, docs)

		result, err := server.handleDocumentContentResource(ctx, makeReadResourceRequest("notesync://documents/notes%2Fhello.md"))

		require.NoError(t, err)
		require.Len(t, result.Contents, 1)
		assert.Equal(t, "notes/hello.md", docs.requestedID)
		assert.Equal(t, "# Hello World\n\nThis is the document content.", result.Contents[0].Text)
		assert.Equal(t, "text/markdown", result.Contents[0].MIMEType)
	})

	t.Run("missing document returns not found", func(t *testing.T) {
		server := newTestServer(t, nil, &mockDocumentService{err: domain.ErrNotFound})

		_, err := server.handleDocumentContentResource(ctx, makeReadResourceRequest("notesync://documents/missing"))

		require.Error(t, err)
		assert.NotContains(t, err.Error(), "getting document")
	})

	t.Run("returns error on get failure", func(t *testing.T) {
		server := newTestServer(t, nil, &mockDocumentService{err: errors.New("storage error")})

		_, err := server.handleDocumentContentResource(ctx, makeReadResourceRequest("notesync://documents/doc-123"))

		require.Error(t, err)
		assert.Contains(t, err.Error(), "getting document")
	})
}

func TestServer_handleDocumentChunksResource(t *testing.T) {
	ctx := context.Background()
	docs := &mockDocumentService{chunks: domain.LinkChunks("doc-1", []domain.Chunk{{Text: "only chunk", TokenCount: 2}})}
	server := newTestServer(t, nil, docs)

	result, err := server.handleDocumentChunksResource(ctx, makeReadResourceRequest("notesync://documents/doc-1/chunks"))

	require.NoError(t, err)
	assert.Equal(t, "doc-1", docs.requestedID)
	assert.Contains(t, result.Contents[0].Text, "only chunk")
	assert.Contains(t, result.Contents[0].Text, "doc-1-chunk-0")

	_, err = server.handleDocumentChunksResource(ctx, makeReadResourceRequest("notesync://documents/doc-1"))
	assert.Error(t, err)
}
