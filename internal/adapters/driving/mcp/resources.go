package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/notesync/internal/core/domain"
)

const (
	// uriScheme is the custom URI scheme for notesync resources.
	uriScheme = "notesync://"

	documentsPrefix = uriScheme + "documents/"
	chunksSuffix    = "/chunks"
)

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	// Static resource listing every document.
	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "documents",
		Name:        "documents",
		Description: "All synchronised documents",
		MIMEType:    "application/json",
	}, s.handleDocumentsResource)

	// Static resource for the relationship graph.
	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "relationships",
		Name:        "relationships",
		Description: "Subject/relationship/object triples with the documents that support them",
		MIMEType:    "application/json",
	}, s.handleRelationshipsResource)

	// Template for document content.
	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "documents/{documentId}",
		Name:        "document-content",
		Description: "Content of a specific document",
		MIMEType:    "text/markdown",
	}, s.handleDocumentContentResource)

	// Template for document chunks.
	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "documents/{documentId}/chunks",
		Name:        "document-chunks",
		Description: "Chunks of a specific document in reading order",
		MIMEType:    "application/json",
	}, s.handleDocumentChunksResource)
}

// handleDocumentsResource returns every synchronised document.
func (s *Server) handleDocumentsResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	docs, err := s.ports.Document.ListDocuments(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}

	infos := make([]DocumentOutput, len(docs))
	for i := range docs {
		infos[i] = toDocumentOutput(docs[i])
	}
	return jsonResource(req.Params.URI, infos)
}

// handleRelationshipsResource returns the stored relationship graph.
func (s *Server) handleRelationshipsResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	records, err := s.ports.Document.ListRelationships(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing relationships: %w", err)
	}
	if records == nil {
		records = []domain.RelationshipRecord{}
	}
	return jsonResource(req.Params.URI, records)
}

// handleDocumentContentResource returns the content of a specific document.
func (s *Server) handleDocumentContentResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	docID := extractDocumentID(req.Params.URI)
	if docID == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	doc, err := s.ports.Document.GetDocument(ctx, docID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}
	if err != nil {
		return nil, fmt.Errorf("getting document: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "text/markdown",
			Text:     doc.Content,
		}},
	}, nil
}

// handleDocumentChunksResource returns the chunks of a specific document.
func (s *Server) handleDocumentChunksResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	docID := extractChunksDocumentID(req.Params.URI)
	if docID == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	chunks, err := s.ports.Document.GetChunks(ctx, docID)
	if err != nil {
		return nil, fmt.Errorf("getting chunks: %w", err)
	}

	out := make([]ChunkOutput, len(chunks))
	for i := range chunks {
		out[i] = toChunkOutput(chunks[i])
	}
	return jsonResource(req.Params.URI, out)
}

func jsonResource(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling %s: %w", uri, err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

// documentURI returns the content resource URI of a document.
// IDs are path-escaped since filesystem IDs contain slashes.
func documentURI(id string) string {
	return documentsPrefix + url.PathEscape(id)
}

// extractDocumentID extracts the document ID from a URI like notesync://documents/{documentId}.
func extractDocumentID(uri string) string {
	if !strings.HasPrefix(uri, documentsPrefix) {
		return ""
	}
	rest := strings.TrimPrefix(uri, documentsPrefix)
	if strings.Contains(rest, "/") {
		return ""
	}
	id, err := url.PathUnescape(rest)
	if err != nil {
		return ""
	}
	return id
}

// extractChunksDocumentID extracts the document ID from a URI like
// notesync://documents/{documentId}/chunks.
func extractChunksDocumentID(uri string) string {
	if !strings.HasSuffix(uri, chunksSuffix) {
		return ""
	}
	return extractDocumentID(strings.TrimSuffix(uri, chunksSuffix))
}
