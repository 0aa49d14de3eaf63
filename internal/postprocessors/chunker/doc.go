// Package chunker segments document text into bounded-size chunks.
//
// The primary path asks the language model for a semantic segmentation in a
// line protocol:
//
//	CHUNK 1 SUMMARY:
//	One-line summary of the chunk.
//	CHUNK 1 CONTENT:
//	Chunk text...
//
// The parsed chunks are merged and validated against token bounds. When the
// model fails, returns nothing usable or the merged result is invalid, the text
// is split into overlapping token windows and each window is summarised
// individually by a (usually smaller) summary model.
package chunker
