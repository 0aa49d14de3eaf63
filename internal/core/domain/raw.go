package domain

import (
	"regexp"
	"strings"
)

// SkipMarker excludes a page from synchronisation when present in its markdown.
const SkipMarker = "#skip"

// DocumentRef is a source listing entry.
type DocumentRef struct {
	// ID is the source's stable identifier for the page.
	ID string

	// LastEditedTime is the source timestamp, unparsed.
	LastEditedTime string
}

// SourceDocument is a page fetched and rendered to markdown by a DocumentSource.
// It is the source's output before gating and chunking.
type SourceDocument struct {
	// ID is the source's stable identifier for the page.
	ID string

	// Title is the page title.
	Title string

	// Markdown is the rendered page body, without the title heading.
	Markdown string

	// LastEditedTime is the source timestamp, unparsed.
	// Parsing is deferred so an unparseable value can force a rewrite.
	LastEditedTime string
}

var excessNewlines = regexp.MustCompile(`\n{3,}`)

// CleanMarkdown trims the markdown and collapses runs of three or more newlines.
func CleanMarkdown(markdown string) string {
	return excessNewlines.ReplaceAllString(strings.TrimSpace(markdown), "\n\n")
}

// IsEmpty reports whether the page has no usable body.
func (d SourceDocument) IsEmpty() bool {
	return CleanMarkdown(d.Markdown) == ""
}

// IsSkipped reports whether the page carries the skip marker.
func (d SourceDocument) IsSkipped() bool {
	return strings.Contains(d.Markdown, SkipMarker)
}

// Content returns the full text used for chunking and extraction.
func (d SourceDocument) Content() string {
	return "# " + d.Title + "\n\n" + CleanMarkdown(d.Markdown)
}
