package chunker

import (
	"strings"

	"github.com/custodia-labs/notesync/internal/core/domain"
	"github.com/custodia-labs/notesync/internal/core/ports/driven"
	"github.com/custodia-labs/notesync/internal/logger"
)

// Token bounds for model-produced chunks.
const (
	MinChunkTokens = 35
	MaxChunkTokens = 1200
)

// Validate reports whether a chunk sequence is acceptable as model output.
// A sole chunk needs a summary and at most MaxChunkTokens; otherwise every
// chunk must be within [MinChunkTokens, MaxChunkTokens] and carry a summary.
func Validate(chunks []domain.Chunk) bool {
	if len(chunks) == 0 {
		return false
	}

	if len(chunks) == 1 {
		return chunks[0].HasSummary() && chunks[0].TokenCount <= MaxChunkTokens
	}

	for i, c := range chunks {
		if c.TokenCount < MinChunkTokens || c.TokenCount > MaxChunkTokens {
			logger.Debug("chunk %d has %d tokens, outside [%d, %d]", i, c.TokenCount, MinChunkTokens, MaxChunkTokens)
			return false
		}
		if !c.HasSummary() {
			logger.Debug("chunk %d has no summary", i)
			return false
		}
	}
	return true
}

// Merge folds undersized chunks into a neighbour, left to right.
// A chunk below MinChunkTokens joins the next chunk if the result fits in
// MaxChunkTokens, otherwise the previous one, otherwise it is dropped.
// A sole chunk is returned unchanged. The input slice is not modified.
func Merge(chunks []domain.Chunk, tok driven.Tokenizer) []domain.Chunk {
	out := make([]domain.Chunk, len(chunks))
	copy(out, chunks)

	i := 0
	for i < len(out) && len(out) > 1 {
		if out[i].TokenCount >= MinChunkTokens {
			i++
			continue
		}

		if i+1 < len(out) {
			if merged := join(out[i], out[i+1], tok); merged.TokenCount <= MaxChunkTokens {
				out[i] = merged
				out = append(out[:i+1], out[i+2:]...)
				continue
			}
		}

		if i > 0 {
			if merged := join(out[i-1], out[i], tok); merged.TokenCount <= MaxChunkTokens {
				out[i-1] = merged
				out = append(out[:i], out[i+1:]...)
				continue
			}
		}

		logger.Warn("dropping %d-token chunk %d: no neighbour can absorb it", out[i].TokenCount, i)
		out = append(out[:i], out[i+1:]...)
	}

	return out
}

// join concatenates b onto a. The title is taken from a.
func join(a, b domain.Chunk, tok driven.Tokenizer) domain.Chunk {
	merged := a
	merged.Text = a.Text + "\n" + b.Text
	merged.TokenCount = tok.Count(merged.Text)

	var parts []string
	for _, s := range []string{a.Summary, b.Summary} {
		if s != "" {
			parts = append(parts, s)
		}
	}
	merged.Summary = strings.Join(parts, "; ")
	return merged
}
