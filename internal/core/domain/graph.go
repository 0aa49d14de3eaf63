package domain

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// MaxRelationshipFieldLength bounds each field of an extracted triple, in characters.
const MaxRelationshipFieldLength = 1000

// ReferenceKind distinguishes what a SourceReference anchors.
type ReferenceKind string

const (
	// ReferenceRelationship anchors a relationship and its two endpoints.
	ReferenceRelationship ReferenceKind = "relationship"

	// ReferenceEntityMention anchors a single entity mention.
	ReferenceEntityMention ReferenceKind = "entity_mention"
)

// Entity is a corpus-global named node.
type Entity struct {
	// Name is the identity of the entity.
	Name string

	// References is the number of SourceReferences linked via HAS_SOURCE.
	References int
}

// Relationship is a directed, typed edge between two entities.
type Relationship struct {
	Subject string `json:"subject" yaml:"subject"`
	Type    string `json:"relationship" yaml:"relationship"`
	Object  string `json:"object" yaml:"object"`
}

// Validate checks the triple has non-empty fields within the length bound.
func (r Relationship) Validate() error {
	fields := []struct {
		name  string
		value string
	}{
		{"subject", r.Subject},
		{"relationship", r.Type},
		{"object", r.Object},
	}
	for _, f := range fields {
		if strings.TrimSpace(f.value) == "" {
			return fmt.Errorf("%w: empty %s", ErrValidation, f.name)
		}
		if utf8.RuneCountInString(f.value) > MaxRelationshipFieldLength {
			return fmt.Errorf("%w: %s exceeds %d characters", ErrValidation, f.name, MaxRelationshipFieldLength)
		}
	}
	return nil
}

// Key returns a string identifying the triple.
func (r Relationship) Key() string {
	return r.Subject + "\x00" + r.Type + "\x00" + r.Object
}

// String renders the triple for logs.
func (r Relationship) String() string {
	return fmt.Sprintf("(%s)-[%s]->(%s)", r.Subject, r.Type, r.Object)
}

// SourceReference is the provenance record that anchors graph nodes to a document.
// It is the unit of reference counting for orphan collection.
type SourceReference struct {
	ID        string
	NoteID    string
	Kind      ReferenceKind
	Timestamp time.Time
}

// RelationshipRecord is a stored relationship with its backing references.
type RelationshipRecord struct {
	Relationship
	References int      `json:"references" yaml:"references"`
	NoteIDs    []string `json:"note_ids" yaml:"note_ids"`
}

// ExtractionResult is the outcome of relationship extraction for one document.
type ExtractionResult struct {
	// Relationships are the valid, normalised, de-duplicated triples.
	Relationships []Relationship

	// Skipped counts triples rejected by validation or as duplicates.
	Skipped int
}
