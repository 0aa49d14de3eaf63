// Package mcp provides an MCP (Model Context Protocol) server adapter for notesync.
// It lets AI assistants read synchronised documents, chunks and relationships
// and trigger a sync pass.
package mcp

import "errors"

var (
	// ErrMissingDocumentService is returned when the document service is not provided.
	ErrMissingDocumentService = errors.New("mcp: document service is required")

	// ErrMissingSyncService is returned when the sync service is not provided.
	ErrMissingSyncService = errors.New("mcp: sync service is required")
)
