package mcp

import (
	"github.com/custodia-labs/notesync/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the MCP server.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Sync runs synchronisation passes.
	Sync driving.SyncService

	// Document reads synchronised documents.
	Document driving.DocumentService

	// Lock, when set, guards the sync tool with the single-run lock.
	// It returns the release function.
	Lock func() (func(), error)
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p.Document == nil {
		return ErrMissingDocumentService
	}
	if p.Sync == nil {
		return ErrMissingSyncService
	}
	return nil
}
