package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

// Document represents a synchronised page as recorded by a store.
type Document struct {
	// ID is the stable identifier shared with the document source.
	ID string

	// Title is the human-readable title.
	Title string

	// Content is the full text that was chunked, including the title heading.
	Content string

	// ContentHash is the hex SHA-256 of Content.
	ContentHash string

	// LastModified is the source timestamp the store last synchronised.
	LastModified time.Time

	// ChunkCount is the number of chunks the store holds for the document.
	// Populated on reads only.
	ChunkCount int

	// ReferenceCount is the number of source references the document owns.
	// Populated on reads only; always zero for vector-only stores.
	ReferenceCount int
}

// NewDocument builds the record written alongside a document's chunks.
func NewDocument(id, title, content string, lastModified time.Time) Document {
	return Document{
		ID:           id,
		Title:        title,
		Content:      content,
		ContentHash:  HashContent(content),
		LastModified: lastModified.UTC(),
	}
}

// HashContent returns the hex SHA-256 of content.
func HashContent(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

// timestampLayouts are tried in order when parsing source timestamps.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.000Z",
	"2006-01-02 15:04:05.999999",
	"2006-01-02 15:04:05",
}

// ParseTimestamp parses a source or store timestamp.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("%w: empty timestamp", ErrInvalidInput)
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: unparseable timestamp %q", ErrInvalidInput, s)
}

// FormatTimestamp renders a timestamp the way stores persist it.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// DeletionCandidate is a stored document that the source no longer lists.
type DeletionCandidate struct {
	DocumentID     string
	Title          string
	ChunkCount     int
	ReferenceCount int
}
