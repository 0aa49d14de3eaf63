// Package memory provides an in-memory graph store.
// It holds the same model as the SQLite store and is used for ephemeral
// runs and tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/notesync/internal/core/domain"
	"github.com/custodia-labs/notesync/internal/core/ports/driven"
	"github.com/custodia-labs/notesync/internal/logger"
)

// Ensure Store implements the interfaces.
var (
	_ driven.StoreAdapter     = (*Store)(nil)
	_ driven.DocumentReplacer = (*Store)(nil)
	_ driven.GraphExporter    = (*Store)(nil)
)

type reference struct {
	domain.SourceReference
	entities     []string
	relationship string // relationship key, empty for entity mentions
}

type relationshipRecord struct {
	rel  domain.Relationship
	refs map[string]struct{}
}

// Store is an in-memory implementation of driven.StoreAdapter with full graph support.
type Store struct {
	name string

	mu            sync.RWMutex
	documents     map[string]domain.Document
	chunks        map[string][]domain.Chunk
	entities      map[string]map[string]struct{} // name -> reference ids
	relationships map[string]*relationshipRecord  // relationship key -> record
	references    map[string]reference
}

// New creates a new in-memory store.
func New(name string) *Store {
	s := &Store{name: name}
	s.reset()
	return s
}

func (s *Store) reset() {
	s.documents = make(map[string]domain.Document)
	s.chunks = make(map[string][]domain.Chunk)
	s.entities = make(map[string]map[string]struct{})
	s.relationships = make(map[string]*relationshipRecord)
	s.references = make(map[string]reference)
}

// Name returns the configured store name.
func (s *Store) Name() string { return s.name }

// Capabilities reports graph support without vectors.
func (s *Store) Capabilities() driven.StoreCapabilities {
	return driven.StoreCapabilities{Relationships: true}
}

// ==================== Documents and chunks ====================

// CleanDocument removes the document, its chunks and references, and orphaned entities.
func (s *Store) CleanDocument(_ context.Context, documentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cleanLocked(documentID)
	return nil
}

func (s *Store) cleanLocked(documentID string) {
	delete(s.documents, documentID)
	delete(s.chunks, documentID)
	orphans := s.removeReferencesLocked(documentID)
	s.deleteEntitiesLocked(orphans)
}

// CreateChunks replaces the document's chunk set and writes the document record.
func (s *Store) CreateChunks(_ context.Context, doc domain.Document, chunks []domain.Chunk) error {
	if err := checkChunks(chunks); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.putLocked(doc, chunks)
	return nil
}

func (s *Store) putLocked(doc domain.Document, chunks []domain.Chunk) {
	doc.ChunkCount = 0
	doc.ReferenceCount = 0
	s.documents[doc.ID] = doc
	s.chunks[doc.ID] = domain.LinkChunks(doc.ID, chunks)
}

func checkChunks(chunks []domain.Chunk) error {
	for i, c := range chunks {
		if c.Index != i {
			return fmt.Errorf("%w: chunk %d has index %d", domain.ErrInvalidInput, i, c.Index)
		}
	}
	return nil
}

// ReplaceDocument cleans the document and writes its chunks and relationships under one lock.
func (s *Store) ReplaceDocument(_ context.Context, doc domain.Document, chunks []domain.Chunk, rels []domain.Relationship, ts time.Time) error {
	if err := checkChunks(chunks); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cleanLocked(doc.ID)
	s.putLocked(doc, chunks)
	s.createRelationshipsLocked(doc.ID, rels, ts)
	return nil
}

// GetLastModified returns the stored source timestamp of a document.
func (s *Store) GetLastModified(_ context.Context, documentID string) (time.Time, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.documents[documentID]
	if !ok {
		return time.Time{}, false, nil
	}
	return doc.LastModified, true, nil
}

// GetNoteHash returns the stored content hash of a document.
func (s *Store) GetNoteHash(_ context.Context, documentID string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.documents[documentID]
	if !ok {
		return "", false, nil
	}
	return doc.ContentHash, true, nil
}

// GetDocuments returns the named documents, or all when ids is empty, sorted by ID.
func (s *Store) GetDocuments(_ context.Context, ids []string) ([]domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(ids) == 0 {
		ids = make([]string, 0, len(s.documents))
		for id := range s.documents {
			ids = append(ids, id)
		}
	}

	refCounts := make(map[string]int)
	for _, ref := range s.references {
		refCounts[ref.NoteID]++
	}

	docs := make([]domain.Document, 0, len(ids))
	for _, id := range ids {
		doc, ok := s.documents[id]
		if !ok {
			continue
		}
		doc.ChunkCount = len(s.chunks[id])
		doc.ReferenceCount = refCounts[id]
		docs = append(docs, doc)
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })
	return docs, nil
}

// GetChunks returns a document's chunks in index order.
func (s *Store) GetChunks(_ context.Context, documentID string) ([]domain.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Chunk(nil), s.chunks[documentID]...), nil
}

// ==================== Graph ====================

// CreateRelationships records each valid triple with a fresh source reference.
func (s *Store) CreateRelationships(_ context.Context, documentID string, rels []domain.Relationship, ts time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.createRelationshipsLocked(documentID, rels, ts)
	return nil
}

func (s *Store) createRelationshipsLocked(documentID string, rels []domain.Relationship, ts time.Time) {
	for _, rel := range rels {
		if err := rel.Validate(); err != nil {
			logger.Warn("skipping relationship %s: %v", rel, err)
			continue
		}

		ref := s.newReferenceLocked(documentID, domain.ReferenceRelationship, ts, rel.Subject, rel.Object)
		ref.relationship = rel.Key()
		s.references[ref.ID] = ref

		rec, ok := s.relationships[rel.Key()]
		if !ok {
			rec = &relationshipRecord{rel: rel, refs: make(map[string]struct{})}
			s.relationships[rel.Key()] = rec
		}
		rec.refs[ref.ID] = struct{}{}
	}
}

// AddEntityReference records a mention of an entity by a document.
func (s *Store) AddEntityReference(_ context.Context, name, documentID string, ts time.Time) error {
	if name == "" {
		return fmt.Errorf("%w: empty entity name", domain.ErrValidation)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	ref := s.newReferenceLocked(documentID, domain.ReferenceEntityMention, ts, name)
	s.references[ref.ID] = ref
	return nil
}

// newReferenceLocked merges the entities and attaches a new reference to them.
func (s *Store) newReferenceLocked(documentID string, kind domain.ReferenceKind, ts time.Time, entities ...string) reference {
	ref := reference{
		SourceReference: domain.SourceReference{
			ID:        uuid.NewString(),
			NoteID:    documentID,
			Kind:      kind,
			Timestamp: ts.UTC(),
		},
		entities: entities,
	}
	for _, name := range entities {
		refs, ok := s.entities[name]
		if !ok {
			refs = make(map[string]struct{})
			s.entities[name] = refs
		}
		refs[ref.ID] = struct{}{}
	}
	return ref
}

// RemoveNoteReferences deletes the document's references and returns entities left at zero.
func (s *Store) RemoveNoteReferences(_ context.Context, documentID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.removeReferencesLocked(documentID), nil
}

func (s *Store) removeReferencesLocked(documentID string) []string {
	// 1. Collect and delete the document's references
	affected := make(map[string]struct{})
	for id, ref := range s.references {
		if ref.NoteID != documentID {
			continue
		}
		for _, name := range ref.entities {
			affected[name] = struct{}{}
			delete(s.entities[name], id)
		}
		if rec, ok := s.relationships[ref.relationship]; ok {
			delete(rec.refs, id)
		}
		delete(s.references, id)
	}

	// 2. Drop relationships with no references left
	for key, rec := range s.relationships {
		if len(rec.refs) == 0 {
			delete(s.relationships, key)
		}
	}

	// 3. Recount after deletion
	var orphans []string
	for name := range affected {
		if refs, ok := s.entities[name]; ok && len(refs) == 0 {
			orphans = append(orphans, name)
		}
	}
	sort.Strings(orphans)
	return orphans
}

// DeleteEntities deletes entities that have no references, with their relationships.
func (s *Store) DeleteEntities(_ context.Context, names []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleteEntitiesLocked(names)
	return nil
}

func (s *Store) deleteEntitiesLocked(names []string) {
	for _, name := range names {
		refs, ok := s.entities[name]
		if !ok {
			continue
		}
		if len(refs) > 0 {
			logger.Debug("entity %q still has %d references, keeping it", name, len(refs))
			continue
		}
		delete(s.entities, name)
		for key, rec := range s.relationships {
			if rec.rel.Subject == name || rec.rel.Object == name {
				delete(s.relationships, key)
			}
		}
	}
}

// ListRelationships returns every relationship with its reference count, sorted.
func (s *Store) ListRelationships(_ context.Context) ([]domain.RelationshipRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.RelationshipRecord, 0, len(s.relationships))
	for _, rec := range s.relationships {
		notes := make(map[string]struct{})
		for id := range rec.refs {
			notes[s.references[id].NoteID] = struct{}{}
		}
		noteIDs := make([]string, 0, len(notes))
		for id := range notes {
			noteIDs = append(noteIDs, id)
		}
		sort.Strings(noteIDs)
		out = append(out, domain.RelationshipRecord{
			Relationship: rec.rel,
			References:   len(rec.refs),
			NoteIDs:      noteIDs,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key() < out[j].Key() })
	return out, nil
}

// GetEntity returns an entity with its reference count.
func (s *Store) GetEntity(_ context.Context, name string) (*domain.Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	refs, ok := s.entities[name]
	if !ok {
		return nil, fmt.Errorf("entity %q: %w", name, domain.ErrNotFound)
	}
	return &domain.Entity{Name: name, References: len(refs)}, nil
}

// ==================== Lifecycle ====================

// Clear wipes every record.
func (s *Store) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reset()
	return nil
}

// Close is a no-op.
func (s *Store) Close() error { return nil }
