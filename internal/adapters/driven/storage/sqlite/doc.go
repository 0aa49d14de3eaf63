// Package sqlite provides the SQLite graph store.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO, enabling easy cross-compilation. One database file holds the full
// derived model of a store:
//
//   - documents: the last synchronised timestamp and content hash per document
//   - chunks: chunk text, summary, embedding and provenance, linked by next_chunk_id
//   - entities and relationships: the corpus-global entity graph
//   - source_references: provenance records tying graph nodes to documents
//
// # Schema
//
// The database schema is managed through versioned, forward-only migrations
// embedded from the migrations/ directory.
//
// # Reference counting
//
// Every entity and relationship is linked to the source references that
// introduced it (entity_sources, relationship_sources). Cleaning a document
// deletes its references; entities left without any are garbage collected.
//
// # Thread Safety
//
// All operations are thread-safe. The store uses database-level locking provided
// by SQLite in WAL mode. Busy and locked errors are reported as domain.ErrTransient.
package sqlite
