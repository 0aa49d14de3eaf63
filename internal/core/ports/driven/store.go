package driven

import (
	"context"
	"time"

	"github.com/custodia-labs/notesync/internal/core/domain"
)

// StoreCapabilities describes which parts of the derived model a store holds.
type StoreCapabilities struct {
	// Relationships indicates the store maintains the entity graph.
	Relationships bool

	// Vectors indicates the store requires chunk embeddings.
	Vectors bool
}

// StoreAdapter is the common contract over one persistence backend.
// Stores do not share a transaction boundary; the orchestrator handles each
// independently. Vector-only stores implement the graph operations as no-ops.
type StoreAdapter interface {
	// Name returns the configured store name.
	Name() string

	// Capabilities returns what the store supports.
	Capabilities() StoreCapabilities

	// CleanDocument removes the document, its chunks and its source references,
	// then deletes entities left without references. Unknown ids are a no-op.
	CleanDocument(ctx context.Context, documentID string) error

	// CreateChunks replaces the document's chunk set and writes the document
	// record. Chunks must carry contiguous indices from 0.
	CreateChunks(ctx context.Context, doc domain.Document, chunks []domain.Chunk) error

	// CreateRelationships records each triple with a fresh source reference.
	// Invalid triples are skipped.
	CreateRelationships(ctx context.Context, documentID string, rels []domain.Relationship, ts time.Time) error

	// AddEntityReference records a mention of an entity by a document.
	AddEntityReference(ctx context.Context, name, documentID string, ts time.Time) error

	// RemoveNoteReferences deletes every reference owned by the document,
	// drops relationships left without references and returns the names of
	// entities whose reference count is now zero. Entities are not deleted.
	RemoveNoteReferences(ctx context.Context, documentID string) ([]string, error)

	// DeleteEntities deletes the named entities and their edges.
	// Entities that still have references are left alone.
	DeleteEntities(ctx context.Context, names []string) error

	// GetLastModified returns the stored source timestamp of a document.
	// ok is false when the store has no record of it.
	GetLastModified(ctx context.Context, documentID string) (ts time.Time, ok bool, err error)

	// GetNoteHash returns the stored content hash of a document.
	GetNoteHash(ctx context.Context, documentID string) (hash string, ok bool, err error)

	// GetDocuments returns the named documents, or all of them when ids is empty.
	// Unknown ids are omitted from the result.
	GetDocuments(ctx context.Context, ids []string) ([]domain.Document, error)

	// GetChunks returns a document's chunks in index order.
	GetChunks(ctx context.Context, documentID string) ([]domain.Chunk, error)

	// Clear wipes every record from the store.
	Clear(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// DocumentReplacer is implemented by stores that can clean a document and
// write its chunks and relationships in one transaction.
type DocumentReplacer interface {
	ReplaceDocument(ctx context.Context, doc domain.Document, chunks []domain.Chunk, rels []domain.Relationship, ts time.Time) error
}

// GraphExporter is implemented by stores that can enumerate their graph.
type GraphExporter interface {
	// ListRelationships returns every relationship with its reference count.
	ListRelationships(ctx context.Context) ([]domain.RelationshipRecord, error)

	// GetEntity returns an entity with its reference count.
	GetEntity(ctx context.Context, name string) (*domain.Entity, error)
}
