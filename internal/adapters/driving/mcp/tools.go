package mcp

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/notesync/internal/core/domain"
	"github.com/custodia-labs/notesync/internal/core/services"
)

// SyncInput is the input schema for the sync tool.
type SyncInput struct{}

// SyncOutput is the output schema for the sync tool.
type SyncOutput struct {
	Processed          int      `json:"processed"`
	UpToDate           int      `json:"up_to_date"`
	Skipped            int      `json:"skipped"`
	Errored            int      `json:"errored"`
	Relationships      int      `json:"relationships"`
	DeletionCandidates []string `json:"deletion_candidates,omitempty"`
	Report             string   `json:"report"`
}

// ListDocumentsInput is the input schema for the list_documents tool.
type ListDocumentsInput struct {
	Query string `json:"query,omitempty" jsonschema:"only return documents whose title contains this text (case-insensitive)"`
}

// ListDocumentsOutput is the output schema for the list_documents tool.
type ListDocumentsOutput struct {
	Documents []DocumentOutput `json:"documents"`
	Count     int              `json:"count"`
}

// DocumentOutput describes one synchronised document.
type DocumentOutput struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	LastModified string `json:"last_modified"`
	Chunks       int    `json:"chunks"`
	References   int    `json:"references"`
	URI          string `json:"uri"`
}

// DocumentInput identifies a document.
type DocumentInput struct {
	DocumentID string `json:"document_id" jsonschema:"the document identifier"`
}

// GetDocumentOutput is the output schema for the get_document tool.
type GetDocumentOutput struct {
	Document DocumentOutput `json:"document"`
	Content  string         `json:"content,omitempty"`
}

// GetChunksOutput is the output schema for the get_chunks tool.
type GetChunksOutput struct {
	Chunks []ChunkOutput `json:"chunks"`
	Count  int           `json:"count"`
}

// ChunkOutput is one chunk of a document.
type ChunkOutput struct {
	ID      string `json:"id"`
	Index   int    `json:"index"`
	Summary string `json:"summary,omitempty"`
	Text    string `json:"text"`
	Tokens  int    `json:"tokens"`
	Next    string `json:"next,omitempty"`
}

// ListRelationshipsInput is the input schema for the list_relationships tool.
type ListRelationshipsInput struct {
	Entity string `json:"entity,omitempty" jsonschema:"only return relationships whose subject or object is this entity"`
}

// ListRelationshipsOutput is the output schema for the list_relationships tool.
type ListRelationshipsOutput struct {
	Relationships []RelationshipOutput `json:"relationships"`
	Count         int                  `json:"count"`
}

// RelationshipOutput is one stored triple.
type RelationshipOutput struct {
	Subject      string   `json:"subject"`
	Relationship string   `json:"relationship"`
	Object       string   `json:"object"`
	NoteIDs      []string `json:"note_ids"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "sync",
		Description: "Synchronise changed documents from the source into every store and return the sync report",
	}, s.handleSync)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_documents",
		Description: "List synchronised documents",
	}, s.handleListDocuments)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "get_document",
		Description: "Get a synchronised document with its content",
	}, s.handleGetDocument)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "get_chunks",
		Description: "Get the chunks of a document in reading order",
	}, s.handleGetChunks)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_relationships",
		Description: "List subject/relationship/object triples extracted from the documents",
	}, s.handleListRelationships)
}

// handleSync handles the sync tool invocation.
func (s *Server) handleSync(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ SyncInput,
) (*mcp.CallToolResult, SyncOutput, error) {
	if s.ports.Lock != nil {
		release, err := s.ports.Lock()
		if err != nil {
			return nil, SyncOutput{}, err
		}
		defer release()
	}

	report, err := s.ports.Sync.Sync(ctx)
	if err != nil {
		return nil, SyncOutput{}, fmt.Errorf("sync failed: %w", err)
	}

	output := SyncOutput{
		Processed:     report.DocumentsProcessed,
		UpToDate:      report.DocumentsUpToDate,
		Skipped:       report.DocumentsSkipped,
		Errored:       report.DocumentsErrored,
		Relationships: report.RelationshipsExtracted,
		Report:        services.FormatReport(report),
	}
	for _, c := range report.DeletionCandidates {
		output.DeletionCandidates = append(output.DeletionCandidates, c.DocumentID)
	}

	return nil, output, nil
}

// handleListDocuments handles the list_documents tool invocation.
func (s *Server) handleListDocuments(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ListDocumentsInput,
) (*mcp.CallToolResult, ListDocumentsOutput, error) {
	docs, err := s.ports.Document.ListDocuments(ctx)
	if err != nil {
		return nil, ListDocumentsOutput{}, err
	}

	query := strings.ToLower(input.Query)
	output := ListDocumentsOutput{Documents: make([]DocumentOutput, 0, len(docs))}
	for i := range docs {
		if query != "" && !strings.Contains(strings.ToLower(docs[i].Title), query) {
			continue
		}
		output.Documents = append(output.Documents, toDocumentOutput(docs[i]))
	}
	output.Count = len(output.Documents)

	return nil, output, nil
}

// handleGetDocument handles the get_document tool invocation.
func (s *Server) handleGetDocument(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input DocumentInput,
) (*mcp.CallToolResult, GetDocumentOutput, error) {
	doc, err := s.ports.Document.GetDocument(ctx, input.DocumentID)
	if err != nil {
		return nil, GetDocumentOutput{}, err
	}

	return nil, GetDocumentOutput{
		Document: toDocumentOutput(*doc),
		Content:  doc.Content,
	}, nil
}

// handleGetChunks handles the get_chunks tool invocation.
func (s *Server) handleGetChunks(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input DocumentInput,
) (*mcp.CallToolResult, GetChunksOutput, error) {
	chunks, err := s.ports.Document.GetChunks(ctx, input.DocumentID)
	if err != nil {
		return nil, GetChunksOutput{}, err
	}

	output := GetChunksOutput{
		Chunks: make([]ChunkOutput, len(chunks)),
		Count:  len(chunks),
	}
	for i := range chunks {
		output.Chunks[i] = toChunkOutput(chunks[i])
	}

	return nil, output, nil
}

// handleListRelationships handles the list_relationships tool invocation.
func (s *Server) handleListRelationships(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ListRelationshipsInput,
) (*mcp.CallToolResult, ListRelationshipsOutput, error) {
	records, err := s.ports.Document.ListRelationships(ctx)
	if err != nil {
		return nil, ListRelationshipsOutput{}, err
	}

	output := ListRelationshipsOutput{Relationships: make([]RelationshipOutput, 0, len(records))}
	for _, r := range records {
		if input.Entity != "" && r.Subject != input.Entity && r.Object != input.Entity {
			continue
		}
		output.Relationships = append(output.Relationships, RelationshipOutput{
			Subject:      r.Subject,
			Relationship: r.Type,
			Object:       r.Object,
			NoteIDs:      r.NoteIDs,
		})
	}
	output.Count = len(output.Relationships)

	return nil, output, nil
}

func toDocumentOutput(doc domain.Document) DocumentOutput {
	return DocumentOutput{
		ID:           doc.ID,
		Title:        doc.Title,
		LastModified: doc.LastModified.UTC().Format(time.RFC3339),
		Chunks:       doc.ChunkCount,
		References:   doc.ReferenceCount,
		URI:          documentURI(doc.ID),
	}
}

func toChunkOutput(c domain.Chunk) ChunkOutput {
	return ChunkOutput{
		ID:      c.ID(),
		Index:   c.Index,
		Summary: c.Summary,
		Text:    c.Text,
		Tokens:  c.TokenCount,
		Next:    c.Next,
	}
}
