// Package relations extracts subject/relationship/object triples from text
// with a language model.
package relations

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/custodia-labs/notesync/internal/core/domain"
	"github.com/custodia-labs/notesync/internal/core/ports/driven"
	"github.com/custodia-labs/notesync/internal/logger"
)

// DefaultRelationshipsPrompt is the fallback prompt when no PromptStore is configured.
const DefaultRelationshipsPrompt = `Extract the relationships between people, organisations, projects and concepts in the text.
Return ONLY a JSON array of objects with the keys "subject", "relationship" and "object".
Use short, consistent entity names. Return [] when there are none.`

var (
	thinkBlock = regexp.MustCompile(`(?s)<think>.*?</think>`)
	codeFence  = regexp.MustCompile("```json\\s*|\\s*```")
)

// Ensure Extractor implements the interface.
var _ driven.RelationshipExtractor = (*Extractor)(nil)

// Extractor asks the model for relationship triples.
type Extractor struct {
	llm     driven.LLMService
	prompts driven.PromptStore
}

// New creates an extractor. prompts may be nil.
func New(llm driven.LLMService, prompts driven.PromptStore) *Extractor {
	return &Extractor{llm: llm, prompts: prompts}
}

// Extract returns the relationships found in content. Unparseable model
// output is reported as domain.ErrExtraction; callers treat it as no
// relationships.
func (e *Extractor) Extract(ctx context.Context, content string) (domain.ExtractionResult, error) {
	prompt := loadPrompt(e.prompts) + "\n\nText to analyze:\n" + content

	response, err := e.llm.Generate(ctx, prompt, driven.GenerateOptions{Temperature: 0})
	if err != nil {
		return domain.ExtractionResult{}, fmt.Errorf("generate: %w", err)
	}

	raw, err := parse(response)
	if err != nil {
		logger.Debug("raw relationship response: %s", response)
		return domain.ExtractionResult{}, err
	}

	return filter(raw), nil
}

// parse cleans the model response and decodes the JSON array.
func parse(response string) ([]domain.Relationship, error) {
	cleaned := thinkBlock.ReplaceAllString(response, "")
	cleaned = codeFence.ReplaceAllString(cleaned, "")

	start := strings.Index(cleaned, "[")
	end := strings.LastIndex(cleaned, "]")
	if start == -1 || end < start {
		return nil, fmt.Errorf("%w: no JSON array in response", domain.ErrExtraction)
	}
	cleaned = cleaned[start : end+1]

	var items []map[string]any
	if err := json.Unmarshal([]byte(cleaned), &items); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrExtraction, err)
	}

	rels := make([]domain.Relationship, len(items))
	for i, item := range items {
		// non-string values become empty and fail validation
		subject, _ := item["subject"].(string)
		relationship, _ := item["relationship"].(string)
		object, _ := item["object"].(string)
		rels[i] = domain.Relationship{Subject: subject, Type: relationship, Object: object}
	}
	return rels, nil
}

// filter validates, normalises and de-duplicates triples, keeping first occurrences.
func filter(raw []domain.Relationship) domain.ExtractionResult {
	var res domain.ExtractionResult
	seen := make(map[string]struct{}, len(raw))

	for _, r := range raw {
		r = Normalize(r)
		if err := r.Validate(); err != nil {
			logger.Warn("skipping relationship %s: %v", r, err)
			res.Skipped++
			continue
		}
		if _, dup := seen[r.Key()]; dup {
			res.Skipped++
			continue
		}
		seen[r.Key()] = struct{}{}
		res.Relationships = append(res.Relationships, r)
	}

	return res
}

// Normalize converts each field to Unicode NFC.
// Case and whitespace are preserved.
func Normalize(r domain.Relationship) domain.Relationship {
	return domain.Relationship{
		Subject: NormalizeName(r.Subject),
		Type:    NormalizeName(r.Type),
		Object:  NormalizeName(r.Object),
	}
}

// NormalizeName returns the identity form of an entity name.
func NormalizeName(name string) string {
	return norm.NFC.String(name)
}

func loadPrompt(store driven.PromptStore) string {
	if store == nil {
		return DefaultRelationshipsPrompt
	}
	prompt, err := store.Load(driven.PromptRelationships)
	if err != nil || strings.TrimSpace(prompt) == "" {
		return DefaultRelationshipsPrompt
	}
	return prompt
}
