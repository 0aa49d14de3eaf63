package chunker

import (
	"context"
	"fmt"
	"strings"

	"github.com/custodia-labs/notesync/internal/core/domain"
	"github.com/custodia-labs/notesync/internal/core/ports/driven"
	"github.com/custodia-labs/notesync/internal/logger"
)

// DefaultChunkingPrompt is the fallback prompt when no PromptStore is configured.
const DefaultChunkingPrompt = `Split the text into self-contained semantic chunks of roughly 200 to 800 tokens.
Keep the original wording. For every chunk output exactly:

CHUNK <n> SUMMARY:
<one sentence describing the chunk>
CHUNK <n> CONTENT:
<the chunk text>

Output nothing else.`

// DefaultChunkSummaryPrompt is the fallback prompt when no PromptStore is configured.
const DefaultChunkSummaryPrompt = `Summarise the following text in one sentence.
Return ONLY the summary.

Text:
%s

Summary:`

// chunkingTemplate wraps the instructions and the text to segment.
const chunkingTemplate = `
%s

Below is the text to chunk. Process ONLY the text between the [START] and [END] markers:

[START]
%s
[END]
`

// Ensure Segmenter implements the interface.
var _ driven.ChunkSegmenter = (*Segmenter)(nil)

// Segmenter turns document text into chunks.
type Segmenter struct {
	llm        driven.LLMService
	summaryLLM driven.LLMService
	tokenizer  driven.Tokenizer
	prompts    driven.PromptStore

	targetTokens   int
	overlapTokens  int
	minChunkTokens int
}

// Option configures the segmenter.
type Option func(*Segmenter)

// WithSummaryLLM sets the model used for fallback chunk summaries.
// Defaults to the segmentation model.
func WithSummaryLLM(llm driven.LLMService) Option {
	return func(s *Segmenter) {
		if llm != nil {
			s.summaryLLM = llm
		}
	}
}

// WithPromptStore sets the store for customisable prompts.
func WithPromptStore(store driven.PromptStore) Option {
	return func(s *Segmenter) {
		s.prompts = store
	}
}

// WithWindow sets the fallback window size, overlap and minimum final remainder in tokens.
func WithWindow(target, overlap, minChunk int) Option {
	return func(s *Segmenter) {
		if target > 0 {
			s.targetTokens = target
		}
		if overlap >= 0 {
			s.overlapTokens = overlap
		}
		if minChunk >= 0 {
			s.minChunkTokens = minChunk
		}
	}
}

// New creates a segmenter. llm may be nil, in which case every document
// goes straight to the token window fallback without summaries.
func New(llm driven.LLMService, tokenizer driven.Tokenizer, opts ...Option) *Segmenter {
	s := &Segmenter{
		llm:            llm,
		summaryLLM:     llm,
		tokenizer:      tokenizer,
		targetTokens:   domain.DefaultTargetTokens,
		overlapTokens:  domain.DefaultOverlapTokens,
		minChunkTokens: domain.DefaultMinChunkTokens,
	}

	for _, opt := range opts {
		opt(s)
	}

	// Ensure overlap doesn't reach the window size
	if s.overlapTokens >= s.targetTokens {
		s.overlapTokens = s.targetTokens / 4
	}

	return s
}

// Segment splits text into chunks carrying title. The returned chunks are
// not yet linked to a document; the method reports which path produced them.
// The only error returned is context cancellation.
func (s *Segmenter) Segment(ctx context.Context, text, title string) ([]domain.Chunk, domain.ChunkMethod, error) {
	if s.llm != nil {
		chunks, err := s.segmentWithLLM(ctx, text, title)
		if err == nil {
			return chunks, domain.ChunkMethodLLM, nil
		}
		if ctx.Err() != nil {
			return nil, "", ctx.Err()
		}
		logger.Warn("semantic chunking of %q failed, using token windows: %v", title, err)
	}

	chunks, err := s.fallback(ctx, text, title)
	if err != nil {
		return nil, "", err
	}
	return chunks, domain.ChunkMethodToken, nil
}

func (s *Segmenter) segmentWithLLM(ctx context.Context, text, title string) ([]domain.Chunk, error) {
	instructions := loadPrompt(s.prompts, driven.PromptChunking, DefaultChunkingPrompt)
	response, err := s.llm.Generate(ctx, fmt.Sprintf(chunkingTemplate, instructions, text), driven.GenerateOptions{
		Temperature: 0.1,
	})
	if err != nil {
		return nil, fmt.Errorf("generate: %w", err)
	}

	drafts := parseResponse(response)
	if len(drafts) == 0 {
		return nil, fmt.Errorf("%w: no chunks in response", domain.ErrExtraction)
	}

	provenance := domain.Provenance{
		ChunkingModel:    s.llm.ModelName(),
		ChunkingProvider: s.llm.Provider(),
		SummaryModel:     s.llm.ModelName(),
		SummaryProvider:  s.llm.Provider(),
	}

	chunks := make([]domain.Chunk, len(drafts))
	for i, d := range drafts {
		chunks[i] = domain.Chunk{
			Title:      title,
			Text:       d.text,
			Summary:    d.summary,
			TokenCount: s.tokenizer.Count(d.text),
			Provenance: provenance,
		}
	}
	logger.Debug("model returned %d chunks for %q", len(chunks), title)

	chunks = Merge(chunks, s.tokenizer)
	if !Validate(chunks) {
		return nil, fmt.Errorf("%w: %d chunks failed validation after merge", domain.ErrValidation, len(chunks))
	}
	return chunks, nil
}

// fallback slices text into overlapping token windows and summarises each.
func (s *Segmenter) fallback(ctx context.Context, text, title string) ([]domain.Chunk, error) {
	windows := s.windows(s.tokenizer.Encode(text))

	chunks := make([]domain.Chunk, 0, len(windows))
	for _, w := range windows {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		chunk := domain.Chunk{
			Title:      title,
			Text:       s.tokenizer.Decode(w),
			TokenCount: len(w),
			Provenance: domain.Provenance{
				ChunkingModel:    s.tokenizer.Name(),
				ChunkingProvider: string(domain.ChunkMethodToken),
			},
		}
		s.summarise(ctx, &chunk)
		chunks = append(chunks, chunk)
	}

	return chunks, nil
}

// windows returns token slices of targetTokens, each prefixed by up to
// overlapTokens of the previous window. A final remainder of at most
// minChunkTokens is absorbed into the last window instead of standing alone.
func (s *Segmenter) windows(tokens []int) [][]int {
	var out [][]int

	for pos := 0; pos < len(tokens); pos += s.targetTokens {
		start := max(0, pos-s.overlapTokens)
		end := min(len(tokens), pos+s.targetTokens)

		remaining := len(tokens) - end
		if remaining > 0 && remaining <= s.minChunkTokens {
			out = append(out, tokens[start:])
			break
		}
		out = append(out, tokens[start:end])
	}

	return out
}

// summarise fills a fallback chunk's summary. Failures leave it empty.
func (s *Segmenter) summarise(ctx context.Context, chunk *domain.Chunk) {
	if s.summaryLLM == nil {
		return
	}

	template := loadPrompt(s.prompts, driven.PromptChunkSummary, DefaultChunkSummaryPrompt)
	summary, err := s.summaryLLM.Generate(ctx, fmt.Sprintf(template, chunk.Text), driven.GenerateOptions{
		MaxTokens:   100,
		Temperature: 0.3,
	})
	if err != nil {
		logger.Warn("summary for chunk of %q failed: %v", chunk.Title, err)
		return
	}

	chunk.Summary = strings.TrimSpace(summary)
	if chunk.Summary != "" {
		chunk.Provenance.SummaryModel = s.summaryLLM.ModelName()
		chunk.Provenance.SummaryProvider = s.summaryLLM.Provider()
	}
}

// loadPrompt loads a prompt from the store, falling back to the default if unavailable.
func loadPrompt(store driven.PromptStore, name, fallback string) string {
	if store == nil {
		return fallback
	}
	prompt, err := store.Load(name)
	if err != nil || strings.TrimSpace(prompt) == "" {
		return fallback
	}
	return prompt
}
