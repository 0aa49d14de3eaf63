// Package storetest holds behaviour tests shared by the graph store adapters.
package storetest

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/notesync/internal/core/domain"
	"github.com/custodia-labs/notesync/internal/core/ports/driven"
)

// GraphStore is the set of interfaces a full graph store provides.
type GraphStore interface {
	driven.StoreAdapter
	driven.DocumentReplacer
	driven.GraphExporter
}

var ts = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

// Doc returns a document record for tests.
func Doc(id string) domain.Document {
	return domain.NewDocument(id, "Title "+id, "# Title "+id+"\n\nbody", ts)
}

// Chunks returns n linked chunks for a document.
func Chunks(docID string, n int) []domain.Chunk {
	chunks := make([]domain.Chunk, n)
	for i := range chunks {
		chunks[i] = domain.Chunk{
			Title:      "Title " + docID,
			Text:       fmt.Sprintf("chunk %d of %s", i, docID),
			TokenCount: 4,
			Summary:    fmt.Sprintf("summary %d", i),
			Embedding:  []float32{float32(i), 0.5, 0.25},
			Provenance: domain.Provenance{ChunkingModel: "m", ChunkingProvider: "ollama"},
		}
	}
	return domain.LinkChunks(docID, chunks)
}

// RunGraphStore runs the shared behaviour tests against fresh stores from newStore.
func RunGraphStore(t *testing.T, newStore func(t *testing.T) GraphStore) {
	t.Helper()
	ctx := context.Background()

	t.Run("chain contiguity", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.CreateChunks(ctx, Doc("d1"), Chunks("d1", 4)))

		got, err := s.GetChunks(ctx, "d1")
		require.NoError(t, err)
		require.Len(t, got, 4)
		for i, c := range got {
			assert.Equal(t, i, c.Index)
			assert.Equal(t, "d1", c.DocumentID)
			if i < 3 {
				assert.Equal(t, domain.ChunkID("d1", i+1), c.Next)
			} else {
				assert.Empty(t, c.Next)
			}
		}
		assert.Equal(t, "summary 2", got[2].Summary)
		assert.Equal(t, "m", got[0].Provenance.ChunkingModel)
	})

	t.Run("create chunks replaces previous set", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.CreateChunks(ctx, Doc("d1"), Chunks("d1", 5)))
		require.NoError(t, s.CreateChunks(ctx, Doc("d1"), Chunks("d1", 2)))

		got, err := s.GetChunks(ctx, "d1")
		require.NoError(t, err)
		assert.Len(t, got, 2)
	})

	t.Run("create chunks rejects gaps", func(t *testing.T) {
		s := newStore(t)
		chunks := Chunks("d1", 2)
		chunks[1].Index = 5
		assert.ErrorIs(t, s.CreateChunks(ctx, Doc("d1"), chunks), domain.ErrInvalidInput)
	})

	t.Run("freshness reads", func(t *testing.T) {
		s := newStore(t)

		_, ok, err := s.GetLastModified(ctx, "d1")
		require.NoError(t, err)
		assert.False(t, ok)
		_, ok, err = s.GetNoteHash(ctx, "d1")
		require.NoError(t, err)
		assert.False(t, ok)

		doc := Doc("d1")
		require.NoError(t, s.CreateChunks(ctx, doc, Chunks("d1", 1)))

		got, ok, err := s.GetLastModified(ctx, "d1")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.True(t, ts.Equal(got))
		hash, ok, err := s.GetNoteHash(ctx, "d1")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, doc.ContentHash, hash)
	})

	t.Run("clean unknown document is a no-op", func(t *testing.T) {
		s := newStore(t)
		assert.NoError(t, s.CleanDocument(ctx, "missing"))
	})

	t.Run("orphan collection across two documents", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.CreateRelationships(ctx, "D1", []domain.Relationship{{Subject: "Acme Corp", Type: "employs", Object: "Alice"}}, ts))
		require.NoError(t, s.CreateRelationships(ctx, "D2", []domain.Relationship{{Subject: "Acme Corp", Type: "acquired", Object: "Widgets Inc"}}, ts))

		acme, err := s.GetEntity(ctx, "Acme Corp")
		require.NoError(t, err)
		assert.Equal(t, 2, acme.References)

		orphans, err := s.RemoveNoteReferences(ctx, "D1")
		require.NoError(t, err)
		assert.Equal(t, []string{"Alice"}, orphans)

		acme, err = s.GetEntity(ctx, "Acme Corp")
		require.NoError(t, err)
		assert.Equal(t, 1, acme.References)

		orphans, err = s.RemoveNoteReferences(ctx, "D2")
		require.NoError(t, err)
		assert.Equal(t, []string{"Acme Corp", "Widgets Inc"}, orphans)

		// still present until deleted
		_, err = s.GetEntity(ctx, "Acme Corp")
		require.NoError(t, err)

		require.NoError(t, s.DeleteEntities(ctx, orphans))
		_, err = s.GetEntity(ctx, "Acme Corp")
		assert.ErrorIs(t, err, domain.ErrNotFound)

		rels, err := s.ListRelationships(ctx)
		require.NoError(t, err)
		assert.Empty(t, rels)
	})

	t.Run("delete entities keeps referenced ones", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.CreateRelationships(ctx, "D1", []domain.Relationship{{Subject: "A", Type: "knows", Object: "B"}}, ts))

		require.NoError(t, s.DeleteEntities(ctx, []string{"A", "missing"}))

		a, err := s.GetEntity(ctx, "A")
		require.NoError(t, err)
		assert.Equal(t, 1, a.References)
	})

	t.Run("shared relationship keeps both references", func(t *testing.T) {
		s := newStore(t)
		rel := domain.Relationship{Subject: "Alice", Type: "manages", Object: "Bob"}
		require.NoError(t, s.CreateRelationships(ctx, "D1", []domain.Relationship{rel}, ts))
		require.NoError(t, s.CreateRelationships(ctx, "D2", []domain.Relationship{rel}, ts))

		rels, err := s.ListRelationships(ctx)
		require.NoError(t, err)
		require.Len(t, rels, 1)
		assert.Equal(t, 2, rels[0].References)
		assert.Equal(t, []string{"D1", "D2"}, rels[0].NoteIDs)

		require.NoError(t, s.CleanDocument(ctx, "D1"))

		rels, err = s.ListRelationships(ctx)
		require.NoError(t, err)
		require.Len(t, rels, 1)
		assert.Equal(t, 1, rels[0].References)
		assert.Equal(t, []string{"D2"}, rels[0].NoteIDs)
	})

	t.Run("invalid triples are skipped", func(t *testing.T) {
		s := newStore(t)
		rels := []domain.Relationship{
			{Subject: "", Type: "manages", Object: "Bob"},
			{Subject: "Alice", Type: "knows", Object: strings.Repeat("x", domain.MaxRelationshipFieldLength+1)},
			{Subject: "Alice", Type: "knows", Object: "Carol"},
		}
		require.NoError(t, s.CreateRelationships(ctx, "D1", rels, ts))

		got, err := s.ListRelationships(ctx)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "Carol", got[0].Object)
		_, err = s.GetEntity(ctx, "Bob")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("entity mentions", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.AddEntityReference(ctx, "Zed", "D1", ts))
		require.NoError(t, s.AddEntityReference(ctx, "Zed", "D2", ts))

		orphans, err := s.RemoveNoteReferences(ctx, "D1")
		require.NoError(t, err)
		assert.Empty(t, orphans)

		require.NoError(t, s.CleanDocument(ctx, "D2"))
		_, err = s.GetEntity(ctx, "Zed")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("clean removes document and collects orphans", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.CreateChunks(ctx, Doc("D1"), Chunks("D1", 3)))
		require.NoError(t, s.CreateRelationships(ctx, "D1", []domain.Relationship{{Subject: "X", Type: "y", Object: "Z"}}, ts))

		require.NoError(t, s.CleanDocument(ctx, "D1"))

		docs, err := s.GetDocuments(ctx, nil)
		require.NoError(t, err)
		assert.Empty(t, docs)
		chunks, err := s.GetChunks(ctx, "D1")
		require.NoError(t, err)
		assert.Empty(t, chunks)
		_, err = s.GetEntity(ctx, "X")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("documents carry counts", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.CreateChunks(ctx, Doc("b"), Chunks("b", 2)))
		require.NoError(t, s.CreateChunks(ctx, Doc("a"), Chunks("a", 3)))
		require.NoError(t, s.CreateRelationships(ctx, "a", []domain.Relationship{
			{Subject: "P", Type: "q", Object: "R"},
			{Subject: "P", Type: "q", Object: "S"},
		}, ts))

		docs, err := s.GetDocuments(ctx, nil)
		require.NoError(t, err)
		require.Len(t, docs, 2)
		assert.Equal(t, "a", docs[0].ID)
		assert.Equal(t, "Title a", docs[0].Title)
		assert.Equal(t, 3, docs[0].ChunkCount)
		assert.Equal(t, 2, docs[0].ReferenceCount)
		assert.Equal(t, 0, docs[1].ReferenceCount)

		only, err := s.GetDocuments(ctx, []string{"b", "missing"})
		require.NoError(t, err)
		require.Len(t, only, 1)
		assert.Equal(t, "b", only[0].ID)
	})

	t.Run("replace document", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.ReplaceDocument(ctx, Doc("D1"), Chunks("D1", 3),
			[]domain.Relationship{{Subject: "Old", Type: "was", Object: "Here"}}, ts))
		require.NoError(t, s.ReplaceDocument(ctx, Doc("D1"), Chunks("D1", 1),
			[]domain.Relationship{{Subject: "New", Type: "is", Object: "Here"}}, ts))

		chunks, err := s.GetChunks(ctx, "D1")
		require.NoError(t, err)
		assert.Len(t, chunks, 1)

		_, err = s.GetEntity(ctx, "Old")
		assert.ErrorIs(t, err, domain.ErrNotFound)
		here, err := s.GetEntity(ctx, "Here")
		require.NoError(t, err)
		assert.Equal(t, 1, here.References)
	})

	t.Run("replace rejects bad chunks without touching the old copy", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.ReplaceDocument(ctx, Doc("D1"), Chunks("D1", 2), nil, ts))

		bad := Chunks("D1", 2)
		bad[0].Index = 1
		assert.Error(t, s.ReplaceDocument(ctx, Doc("D1"), bad, nil, ts))

		chunks, err := s.GetChunks(ctx, "D1")
		require.NoError(t, err)
		assert.Len(t, chunks, 2)
	})

	t.Run("clear", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.CreateChunks(ctx, Doc("D1"), Chunks("D1", 1)))
		require.NoError(t, s.CreateRelationships(ctx, "D1", []domain.Relationship{{Subject: "A", Type: "b", Object: "C"}}, ts))

		require.NoError(t, s.Clear(ctx))

		docs, err := s.GetDocuments(ctx, nil)
		require.NoError(t, err)
		assert.Empty(t, docs)
		rels, err := s.ListRelationships(ctx)
		require.NoError(t, err)
		assert.Empty(t, rels)
	})
}
