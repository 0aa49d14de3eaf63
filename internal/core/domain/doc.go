// Package domain defines the core business entities for notesync.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Document: A synchronised page and its freshness metadata
//   - Chunk: A bounded-size, optionally summarised unit of a document
//   - Entity, Relationship, SourceReference: The knowledge graph
//   - SourceDocument: Markdown fetched from a document source
//   - SyncReport: The end-of-run statistics of a sync pass
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
