// Package connectors holds the document sources notesync can synchronise
// from. Each subpackage implements driven.DocumentSource for one source
// type (a Notion workspace or a local directory of markdown files) and
// returns documents as markdown whose first line is a "# Title" heading.
package connectors
