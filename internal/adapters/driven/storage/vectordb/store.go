// Package vectordb provides a vector-only store backed by sqvect.
//
// Each chunk is stored as one embedding with its formatted content and a
// metadata map carrying the document fields needed for freshness checks.
// The store holds no graph: relationship and entity operations are no-ops.
package vectordb

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/liliang-cn/sqvect/v2/pkg/core"

	"github.com/custodia-labs/notesync/internal/core/domain"
	"github.com/custodia-labs/notesync/internal/core/ports/driven"
)

// Metadata keys stored with every chunk.
const (
	metaTitle        = "title"
	metaChunkIndex   = "chunk_number"
	metaTotalChunks  = "total_chunks"
	metaLastModified = "last_modified"
	metaContentHash  = "content_hash"
	metaSummary      = "summary"
	metaTokenCount   = "token_count"
	metaNext         = "next_chunk_id"

	metaChunkingModel     = "chunking_model"
	metaChunkingProvider  = "chunking_provider"
	metaSummaryModel      = "summary_model"
	metaSummaryProvider   = "summary_provider"
	metaEmbeddingModel    = "embedding_model"
	metaEmbeddingProvider = "embedding_provider"
)

// Ensure Store implements the interface.
var _ driven.StoreAdapter = (*Store)(nil)

// Store is a sqvect-backed implementation of driven.StoreAdapter.
type Store struct {
	name string
	path string
	db   *core.SQLiteStore
}

// New opens the vector database at path. dims of 0 lets sqvect detect the dimension.
func New(ctx context.Context, name, path string, dims int) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: vector store %q has no path", domain.ErrConfiguration, name)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	db, err := core.New(path, dims)
	if err != nil {
		return nil, fmt.Errorf("creating vector store: %w", err)
	}
	if err := db.Init(ctx); err != nil {
		return nil, fmt.Errorf("initialising vector store: %w", err)
	}
	return &Store{name: name, path: path, db: db}, nil
}

// Name returns the configured store name.
func (s *Store) Name() string { return s.name }

// Capabilities reports that chunks must carry embeddings.
func (s *Store) Capabilities() driven.StoreCapabilities {
	return driven.StoreCapabilities{Vectors: true}
}

// CleanDocument removes the document record and every chunk of it.
func (s *Store) CleanDocument(ctx context.Context, documentID string) error {
	if documentID == "" {
		return nil
	}
	if err := s.db.DeleteByDocID(ctx, documentID); err != nil {
		return fmt.Errorf("deleting chunks: %w", err)
	}
	if err := s.db.DeleteDocument(ctx, documentID); err != nil {
		return fmt.Errorf("deleting document: %w", err)
	}
	return nil
}

// CreateChunks replaces the document's chunks. Every chunk needs an embedding.
//
// Chunk ids are stable per index, so the new set overwrites the old one in
// place and only chunks past the new end are deleted afterwards. A failed
// write leaves the previous set readable.
func (s *Store) CreateChunks(ctx context.Context, doc domain.Document, chunks []domain.Chunk) error {
	embs := make([]*core.Embedding, 0, len(chunks))
	for i, c := range domain.LinkChunks(doc.ID, chunks) {
		if chunks[i].Index != i {
			return fmt.Errorf("%w: chunk %d has index %d", domain.ErrInvalidInput, i, chunks[i].Index)
		}
		if len(c.Embedding) == 0 {
			return fmt.Errorf("%w: chunk %s", domain.ErrEmbeddingUnavailable, c.ID())
		}
		embs = append(embs, &core.Embedding{
			ID:       c.ID(),
			Vector:   c.Embedding,
			Content:  c.FormattedContent(),
			DocID:    doc.ID,
			Metadata: chunkMetadata(doc, c, len(chunks)),
		})
	}

	if len(embs) == 0 {
		return s.CleanDocument(ctx, doc.ID)
	}

	previous, err := s.embeddings(ctx, doc.ID)
	if err != nil {
		return err
	}
	if err := s.putDocument(ctx, doc); err != nil {
		return err
	}
	if err := s.db.UpsertBatch(ctx, embs); err != nil {
		return fmt.Errorf("upserting chunks: %w", err)
	}

	var stale []string
	for _, e := range previous {
		if atoi(e.Metadata[metaChunkIndex]) >= len(embs) {
			stale = append(stale, e.ID)
		}
	}
	if len(stale) > 0 {
		if err := s.db.DeleteBatch(ctx, stale); err != nil {
			return fmt.Errorf("deleting surplus chunks: %w", err)
		}
	}
	return nil
}

// putDocument writes the sqvect document row the chunks reference.
func (s *Store) putDocument(ctx context.Context, doc domain.Document) error {
	record := &core.Document{
		ID:    doc.ID,
		Title: doc.Title,
		Metadata: map[string]interface{}{
			metaLastModified: domain.FormatTimestamp(doc.LastModified),
			metaContentHash:  doc.ContentHash,
		},
	}
	if err := s.db.UpdateDocument(ctx, record); err == nil {
		return nil
	}
	if err := s.db.CreateDocument(ctx, record); err != nil {
		return fmt.Errorf("writing document %s: %w", doc.ID, err)
	}
	return nil
}

// GetLastModified returns the source timestamp recorded on the document's chunks.
func (s *Store) GetLastModified(ctx context.Context, documentID string) (time.Time, bool, error) {
	embs, err := s.embeddings(ctx, documentID)
	if err != nil || len(embs) == 0 {
		return time.Time{}, false, err
	}
	ts, err := domain.ParseTimestamp(embs[0].Metadata[metaLastModified])
	if err != nil {
		return time.Time{}, false, fmt.Errorf("document %s: %w", documentID, err)
	}
	return ts, true, nil
}

// GetNoteHash returns the content hash recorded on the document's chunks.
func (s *Store) GetNoteHash(ctx context.Context, documentID string) (string, bool, error) {
	embs, err := s.embeddings(ctx, documentID)
	if err != nil || len(embs) == 0 {
		return "", false, err
	}
	return embs[0].Metadata[metaContentHash], true, nil
}

// GetDocuments rebuilds document records from chunk metadata. Content is not stored.
func (s *Store) GetDocuments(ctx context.Context, ids []string) ([]domain.Document, error) {
	if len(ids) == 0 {
		all, err := s.db.ListDocuments(ctx)
		if err != nil {
			return nil, fmt.Errorf("listing documents: %w", err)
		}
		ids = all
	}

	docs := make([]domain.Document, 0, len(ids))
	for _, id := range ids {
		embs, err := s.embeddings(ctx, id)
		if err != nil {
			return nil, err
		}
		if len(embs) == 0 {
			continue
		}
		meta := embs[0].Metadata
		ts, err := domain.ParseTimestamp(meta[metaLastModified])
		if err != nil {
			return nil, fmt.Errorf("document %s: %w", id, err)
		}
		docs = append(docs, domain.Document{
			ID:           id,
			Title:        meta[metaTitle],
			ContentHash:  meta[metaContentHash],
			LastModified: ts,
			ChunkCount:   len(embs),
		})
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })
	return docs, nil
}

// GetChunks returns a document's chunks in index order.
func (s *Store) GetChunks(ctx context.Context, documentID string) ([]domain.Chunk, error) {
	embs, err := s.embeddings(ctx, documentID)
	if err != nil {
		return nil, err
	}
	chunks := make([]domain.Chunk, 0, len(embs))
	for _, e := range embs {
		chunks = append(chunks, toChunk(e))
	}
	return chunks, nil
}

// ==================== Graph (unsupported) ====================

// CreateRelationships is a no-op.
func (s *Store) CreateRelationships(context.Context, string, []domain.Relationship, time.Time) error {
	return nil
}

// AddEntityReference is a no-op.
func (s *Store) AddEntityReference(context.Context, string, string, time.Time) error {
	return nil
}

// RemoveNoteReferences is a no-op.
func (s *Store) RemoveNoteReferences(context.Context, string) ([]string, error) {
	return nil, nil
}

// DeleteEntities is a no-op.
func (s *Store) DeleteEntities(context.Context, []string) error {
	return nil
}

// ==================== Lifecycle ====================

// Clear wipes every embedding and document record.
func (s *Store) Clear(ctx context.Context) error {
	if err := s.db.Clear(ctx); err != nil {
		return fmt.Errorf("clearing vector store: %w", err)
	}
	docs, err := s.db.ListDocumentsWithFilter(ctx, "", -1)
	if err != nil {
		return fmt.Errorf("listing document records: %w", err)
	}
	for _, d := range docs {
		if err := s.db.DeleteDocument(ctx, d.ID); err != nil {
			return fmt.Errorf("deleting document %s: %w", d.ID, err)
		}
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// embeddings returns the document's embeddings sorted by chunk index.
func (s *Store) embeddings(ctx context.Context, documentID string) ([]*core.Embedding, error) {
	if documentID == "" {
		return nil, nil
	}
	embs, err := s.db.GetByDocID(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("reading chunks of %s: %w", documentID, err)
	}
	sort.Slice(embs, func(i, j int) bool {
		return atoi(embs[i].Metadata[metaChunkIndex]) < atoi(embs[j].Metadata[metaChunkIndex])
	})
	return embs, nil
}

func chunkMetadata(doc domain.Document, c domain.Chunk, total int) map[string]string {
	p := c.Provenance
	meta := map[string]string{
		metaTitle:        doc.Title,
		metaChunkIndex:   strconv.Itoa(c.Index),
		metaTotalChunks:  strconv.Itoa(total),
		metaLastModified: domain.FormatTimestamp(doc.LastModified),
		metaContentHash:  doc.ContentHash,
		metaSummary:      c.Summary,
		metaTokenCount:   strconv.Itoa(c.TokenCount),
		metaNext:         c.Next,

		metaChunkingModel:     p.ChunkingModel,
		metaChunkingProvider:  p.ChunkingProvider,
		metaSummaryModel:      p.SummaryModel,
		metaSummaryProvider:   p.SummaryProvider,
		metaEmbeddingModel:    p.EmbeddingModel,
		metaEmbeddingProvider: p.EmbeddingProvider,
	}
	return meta
}

func toChunk(e *core.Embedding) domain.Chunk {
	meta := e.Metadata
	summary := meta[metaSummary]
	text := e.Content
	if summary != "" {
		text = strings.TrimPrefix(text, "Summary: "+summary+"\n\n")
	}
	return domain.Chunk{
		DocumentID: e.DocID,
		Index:      atoi(meta[metaChunkIndex]),
		Title:      meta[metaTitle],
		Text:       text,
		TokenCount: atoi(meta[metaTokenCount]),
		Summary:    summary,
		Embedding:  e.Vector,
		Next:       meta[metaNext],
		Provenance: domain.Provenance{
			ChunkingModel:     meta[metaChunkingModel],
			ChunkingProvider:  meta[metaChunkingProvider],
			SummaryModel:      meta[metaSummaryModel],
			SummaryProvider:   meta[metaSummaryProvider],
			EmbeddingModel:    meta[metaEmbeddingModel],
			EmbeddingProvider: meta[metaEmbeddingProvider],
		},
	}
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
