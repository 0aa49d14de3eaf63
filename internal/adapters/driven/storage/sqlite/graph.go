package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/notesync/internal/core/domain"
	"github.com/custodia-labs/notesync/internal/logger"
)

// ==================== Graph ====================

// CreateRelationships records each valid triple with a fresh source reference.
func (s *Store) CreateRelationships(ctx context.Context, documentID string, rels []domain.Relationship, ts time.Time) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		return createRelationships(ctx, tx, documentID, rels, ts)
	})
}

// AddEntityReference records a mention of an entity by a document.
func (s *Store) AddEntityReference(ctx context.Context, name, documentID string, ts time.Time) error {
	if name == "" {
		return fmt.Errorf("%w: empty entity name", domain.ErrValidation)
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := newReference(ctx, tx, documentID, domain.ReferenceEntityMention, ts, name)
		return err
	})
}

// RemoveNoteReferences deletes the document's references and returns entities left at zero.
func (s *Store) RemoveNoteReferences(ctx context.Context, documentID string) ([]string, error) {
	var orphans []string
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		orphans, err = removeReferences(ctx, tx, documentID)
		return err
	})
	return orphans, err
}

// DeleteEntities deletes entities that have no references, with their relationships.
func (s *Store) DeleteEntities(ctx context.Context, names []string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		return deleteEntities(ctx, tx, names)
	})
}

// ListRelationships returns every relationship with its reference count, sorted.
func (s *Store) ListRelationships(ctx context.Context) ([]domain.RelationshipRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT rel.id, rel.subject, rel.type, rel.object, r.note_id
		FROM relationships rel
		JOIN relationship_sources rs ON rs.relationship_id = rel.id
		JOIN source_references r ON r.id = rs.reference_id
	`)
	if err != nil {
		return nil, classify(fmt.Errorf("querying relationships: %w", err))
	}
	defer rows.Close()

	type agg struct {
		rec   domain.RelationshipRecord
		notes map[string]struct{}
	}
	byID := make(map[int64]*agg)
	for rows.Next() {
		var id int64
		var rel domain.Relationship
		var noteID string
		if err := rows.Scan(&id, &rel.Subject, &rel.Type, &rel.Object, &noteID); err != nil {
			return nil, fmt.Errorf("scanning relationship: %w", err)
		}
		a, ok := byID[id]
		if !ok {
			a = &agg{rec: domain.RelationshipRecord{Relationship: rel}, notes: make(map[string]struct{})}
			byID[id] = a
		}
		a.rec.References++
		a.notes[noteID] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating relationships: %w", err)
	}

	out := make([]domain.RelationshipRecord, 0, len(byID))
	for _, a := range byID {
		a.rec.NoteIDs = make([]string, 0, len(a.notes))
		for id := range a.notes {
			a.rec.NoteIDs = append(a.rec.NoteIDs, id)
		}
		sort.Strings(a.rec.NoteIDs)
		out = append(out, a.rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key() < out[j].Key() })
	return out, nil
}

// GetEntity returns an entity with its reference count.
func (s *Store) GetEntity(ctx context.Context, name string) (*domain.Entity, error) {
	var refs int
	err := s.db.QueryRowContext(ctx, `
		SELECT (SELECT COUNT(*) FROM entity_sources WHERE entity_name = e.name)
		FROM entities e WHERE e.name = ?
	`, name).Scan(&refs)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("entity %q: %w", name, domain.ErrNotFound)
	}
	if err != nil {
		return nil, classify(fmt.Errorf("reading entity: %w", err))
	}
	return &domain.Entity{Name: name, References: refs}, nil
}

func createRelationships(ctx context.Context, tx *sql.Tx, documentID string, rels []domain.Relationship, ts time.Time) error {
	for _, rel := range rels {
		if err := rel.Validate(); err != nil {
			logger.Warn("skipping relationship %s: %v", rel, err)
			continue
		}

		refID, err := newReference(ctx, tx, documentID, domain.ReferenceRelationship, ts, rel.Subject, rel.Object)
		if err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO relationships (subject, type, object) VALUES (?, ?, ?)
			ON CONFLICT(subject, type, object) DO NOTHING
		`, rel.Subject, rel.Type, rel.Object); err != nil {
			return fmt.Errorf("saving relationship %s: %w", rel, err)
		}

		var relID int64
		if err := tx.QueryRowContext(ctx,
			"SELECT id FROM relationships WHERE subject = ? AND type = ? AND object = ?",
			rel.Subject, rel.Type, rel.Object).Scan(&relID); err != nil {
			return fmt.Errorf("reading relationship %s: %w", rel, err)
		}

		if _, err := tx.ExecContext(ctx,
			"INSERT INTO relationship_sources (relationship_id, reference_id) VALUES (?, ?)",
			relID, refID); err != nil {
			return fmt.Errorf("linking relationship %s: %w", rel, err)
		}
	}
	return nil
}

// newReference merges the entities and attaches a new source reference to them.
func newReference(ctx context.Context, tx *sql.Tx, documentID string, kind domain.ReferenceKind, ts time.Time, entities ...string) (string, error) {
	id := uuid.NewString()
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO source_references (id, note_id, kind, timestamp) VALUES (?, ?, ?, ?)",
		id, documentID, string(kind), domain.FormatTimestamp(ts)); err != nil {
		return "", fmt.Errorf("saving source reference: %w", err)
	}

	for _, name := range entities {
		if _, err := tx.ExecContext(ctx, "INSERT OR IGNORE INTO entities (name) VALUES (?)", name); err != nil {
			return "", fmt.Errorf("saving entity %q: %w", name, err)
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT OR IGNORE INTO entity_sources (entity_name, reference_id) VALUES (?, ?)",
			name, id); err != nil {
			return "", fmt.Errorf("linking entity %q: %w", name, err)
		}
	}
	return id, nil
}

func removeReferences(ctx context.Context, tx *sql.Tx, documentID string) ([]string, error) {
	// 1. Collect the entities the document's references point at
	rows, err := tx.QueryContext(ctx, `
		SELECT DISTINCT es.entity_name
		FROM entity_sources es
		JOIN source_references r ON r.id = es.reference_id
		WHERE r.note_id = ?
	`, documentID)
	if err != nil {
		return nil, fmt.Errorf("querying affected entities: %w", err)
	}
	var affected []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning entity: %w", err)
		}
		affected = append(affected, name)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating entities: %w", err)
	}

	// 2. Delete the references; HAS_SOURCE edges cascade
	if _, err := tx.ExecContext(ctx, "DELETE FROM source_references WHERE note_id = ?", documentID); err != nil {
		return nil, fmt.Errorf("deleting source references: %w", err)
	}

	// 3. Drop relationships with no references left
	if _, err := tx.ExecContext(ctx, `
		DELETE FROM relationships
		WHERE id NOT IN (SELECT relationship_id FROM relationship_sources)
	`); err != nil {
		return nil, fmt.Errorf("deleting unreferenced relationships: %w", err)
	}

	// 4. Recount after deletion
	var orphans []string
	for _, name := range affected {
		refs, err := countReferences(ctx, tx, name)
		if err != nil {
			return nil, err
		}
		if refs == 0 {
			orphans = append(orphans, name)
		}
	}
	sort.Strings(orphans)
	return orphans, nil
}

func deleteEntities(ctx context.Context, tx *sql.Tx, names []string) error {
	for _, name := range names {
		refs, err := countReferences(ctx, tx, name)
		if err != nil {
			return err
		}
		if refs > 0 {
			logger.Debug("entity %q still has %d references, keeping it", name, refs)
			continue
		}
		// relationships cascade
		if _, err := tx.ExecContext(ctx, "DELETE FROM entities WHERE name = ?", name); err != nil {
			return fmt.Errorf("deleting entity %q: %w", name, err)
		}
	}
	return nil
}

func countReferences(ctx context.Context, tx *sql.Tx, name string) (int, error) {
	var n int
	if err := tx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM entity_sources WHERE entity_name = ?", name).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting references of %q: %w", name, err)
	}
	return n, nil
}
