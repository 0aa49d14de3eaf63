package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/notesync/internal/core/domain"
)

// ==================== Documents and chunks ====================

// CleanDocument removes the document, its chunks and references, and orphaned entities.
func (s *Store) CleanDocument(ctx context.Context, documentID string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		return cleanDocument(ctx, tx, documentID)
	})
}

// CreateChunks replaces the document's chunk set and writes the document record.
func (s *Store) CreateChunks(ctx context.Context, doc domain.Document, chunks []domain.Chunk) error {
	if err := checkChunks(chunks); err != nil {
		return err
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		return putDocument(ctx, tx, doc, chunks)
	})
}

// ReplaceDocument cleans the document and writes its chunks and relationships in one transaction.
func (s *Store) ReplaceDocument(ctx context.Context, doc domain.Document, chunks []domain.Chunk, rels []domain.Relationship, ts time.Time) error {
	if err := checkChunks(chunks); err != nil {
		return err
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if err := cleanDocument(ctx, tx, doc.ID); err != nil {
			return err
		}
		if err := putDocument(ctx, tx, doc, chunks); err != nil {
			return err
		}
		return createRelationships(ctx, tx, doc.ID, rels, ts)
	})
}

// GetLastModified returns the stored source timestamp of a document.
func (s *Store) GetLastModified(ctx context.Context, documentID string) (time.Time, bool, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, "SELECT last_modified FROM documents WHERE id = ?", documentID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, classify(fmt.Errorf("reading last modified: %w", err))
	}
	ts, err := domain.ParseTimestamp(raw)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("document %s: %w", documentID, err)
	}
	return ts, true, nil
}

// GetNoteHash returns the stored content hash of a document.
func (s *Store) GetNoteHash(ctx context.Context, documentID string) (string, bool, error) {
	var hash string
	err := s.db.QueryRowContext(ctx, "SELECT content_hash FROM documents WHERE id = ?", documentID).Scan(&hash)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, classify(fmt.Errorf("reading content hash: %w", err))
	}
	return hash, true, nil
}

// GetDocuments returns the named documents, or all when ids is empty, sorted by ID.
func (s *Store) GetDocuments(ctx context.Context, ids []string) ([]domain.Document, error) {
	query := `
		SELECT d.id, d.title, d.content, d.content_hash, d.last_modified,
			(SELECT COUNT(*) FROM chunks c WHERE c.document_id = d.id),
			(SELECT COUNT(*) FROM source_references r WHERE r.note_id = d.id)
		FROM documents d`
	args := make([]any, 0, len(ids))
	if len(ids) > 0 {
		query += " WHERE d.id IN (" + placeholders(len(ids)) + ")"
		for _, id := range ids {
			args = append(args, id)
		}
	}
	query += " ORDER BY d.id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, classify(fmt.Errorf("querying documents: %w", err))
	}
	defer rows.Close()

	var docs []domain.Document //nolint:prealloc // size unknown from query
	for rows.Next() {
		var doc domain.Document
		var lastModified string
		if err := rows.Scan(&doc.ID, &doc.Title, &doc.Content, &doc.ContentHash, &lastModified,
			&doc.ChunkCount, &doc.ReferenceCount); err != nil {
			return nil, fmt.Errorf("scanning document: %w", err)
		}
		if doc.LastModified, err = domain.ParseTimestamp(lastModified); err != nil {
			return nil, fmt.Errorf("document %s: %w", doc.ID, err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating documents: %w", err)
	}
	return docs, nil
}

// GetChunks returns a document's chunks in index order.
func (s *Store) GetChunks(ctx context.Context, documentID string) ([]domain.Chunk, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT document_id, position, title, text, token_count, summary, embedding,
			chunking_model, chunking_provider, summary_model, summary_provider,
			embedding_model, embedding_provider, next_chunk_id
		FROM chunks WHERE document_id = ?
		ORDER BY position
	`, documentID)
	if err != nil {
		return nil, classify(fmt.Errorf("querying chunks: %w", err))
	}
	defer rows.Close()

	var chunks []domain.Chunk //nolint:prealloc // size unknown from query
	for rows.Next() {
		chunk, err := scanChunk(rows)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, *chunk)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chunks: %w", err)
	}
	return chunks, nil
}

// cleanDocument deletes the document row (chunks cascade), then its references and orphans.
func cleanDocument(ctx context.Context, tx *sql.Tx, documentID string) error {
	if _, err := tx.ExecContext(ctx, "DELETE FROM documents WHERE id = ?", documentID); err != nil {
		return fmt.Errorf("deleting document: %w", err)
	}
	orphans, err := removeReferences(ctx, tx, documentID)
	if err != nil {
		return err
	}
	return deleteEntities(ctx, tx, orphans)
}

// putDocument upserts the document and rewrites its chunk chain.
func putDocument(ctx context.Context, tx *sql.Tx, doc domain.Document, chunks []domain.Chunk) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO documents (id, title, content, content_hash, last_modified, updated_at)
		VALUES (?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			content = excluded.content,
			content_hash = excluded.content_hash,
			last_modified = excluded.last_modified,
			updated_at = excluded.updated_at
	`, doc.ID, doc.Title, doc.Content, doc.ContentHash, domain.FormatTimestamp(doc.LastModified))
	if err != nil {
		return fmt.Errorf("saving document: %w", err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM chunks WHERE document_id = ?", doc.ID); err != nil {
		return fmt.Errorf("deleting old chunks: %w", err)
	}

	linked := domain.LinkChunks(doc.ID, chunks)

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (id, document_id, position, title, text, content, token_count, summary,
			embedding, chunking_model, chunking_provider, summary_model, summary_provider,
			embedding_model, embedding_provider)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	for _, c := range linked {
		p := c.Provenance
		if _, err := stmt.ExecContext(ctx, c.ID(), c.DocumentID, c.Index, c.Title, c.Text,
			c.FormattedContent(), c.TokenCount, c.Summary, float32SliceToBytes(c.Embedding),
			p.ChunkingModel, p.ChunkingProvider, p.SummaryModel, p.SummaryProvider,
			p.EmbeddingModel, p.EmbeddingProvider); err != nil {
			return fmt.Errorf("saving chunk %s: %w", c.ID(), err)
		}
	}

	return linkChunks(ctx, tx, linked)
}

// linkChunks sets next_chunk_id in index order once every chunk row exists.
func linkChunks(ctx context.Context, tx *sql.Tx, chunks []domain.Chunk) error {
	stmt, err := tx.PrepareContext(ctx, "UPDATE chunks SET next_chunk_id = ? WHERE id = ?")
	if err != nil {
		return fmt.Errorf("preparing link statement: %w", err)
	}
	defer stmt.Close()

	for _, c := range chunks {
		if c.Next == "" {
			continue
		}
		if _, err := stmt.ExecContext(ctx, c.Next, c.ID()); err != nil {
			return fmt.Errorf("linking chunk %s: %w", c.ID(), err)
		}
	}
	return nil
}

func checkChunks(chunks []domain.Chunk) error {
	for i, c := range chunks {
		if c.Index != i {
			return fmt.Errorf("%w: chunk %d has index %d", domain.ErrInvalidInput, i, c.Index)
		}
	}
	return nil
}

// scanChunk scans a chunk from *sql.Rows.
func scanChunk(rows *sql.Rows) (*domain.Chunk, error) {
	var c domain.Chunk
	var embeddingBlob []byte
	var next sql.NullString
	p := &c.Provenance

	if err := rows.Scan(&c.DocumentID, &c.Index, &c.Title, &c.Text, &c.TokenCount, &c.Summary,
		&embeddingBlob, &p.ChunkingModel, &p.ChunkingProvider, &p.SummaryModel, &p.SummaryProvider,
		&p.EmbeddingModel, &p.EmbeddingProvider, &next); err != nil {
		return nil, fmt.Errorf("scanning chunk: %w", err)
	}

	c.Embedding = bytesToFloat32Slice(embeddingBlob)
	c.Next = next.String
	return &c, nil
}
