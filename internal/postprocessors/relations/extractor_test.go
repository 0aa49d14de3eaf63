package relations

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/notesync/internal/core/domain"
	"github.com/custodia-labs/notesync/internal/core/ports/driven"
)

type mockLLM struct {
	response string
	err      error
	prompt   string
}

func (m *mockLLM) Generate(_ context.Context, prompt string, _ driven.GenerateOptions) (string, error) {
	m.prompt = prompt
	return m.response, m.err
}
func (m *mockLLM) ModelName() string            { return "m" }
func (m *mockLLM) Provider() string             { return "mock" }
func (m *mockLLM) Ping(_ context.Context) error { return nil }
func (m *mockLLM) Close() error                 { return nil }

type stubPrompts struct{ prompt string }

func (s stubPrompts) Load(string) (string, error) { return s.prompt, nil }
func (s stubPrompts) Reload()                     {}

func TestExtract_CleansResponse(t *testing.T) {
	llm := &mockLLM{response: "<think>\nLet me think about [things].\n</think>\nHere you go:\n```json\n" +
		`[{"subject": "Alice", "relationship": "manages", "object": "Bob"}]` + "\n```\nDone."}

	res, err := New(llm, stubPrompts{prompt: "EXTRACT"}).Extract(context.Background(), "# Team\n\nAlice manages Bob.")

	require.NoError(t, err)
	assert.Equal(t, []domain.Relationship{{Subject: "Alice", Type: "manages", Object: "Bob"}}, res.Relationships)
	assert.Equal(t, "EXTRACT\n\nText to analyze:\n# Team\n\nAlice manages Bob.", llm.prompt)
}

func TestExtract_EmptySubjectSkipped(t *testing.T) {
	llm := &mockLLM{response: `[
		{"subject": "", "relationship": "manages", "object": "Bob"},
		{"subject": "Alice", "relationship": "knows", "object": "Bob"}
	]`}

	res, err := New(llm, nil).Extract(context.Background(), "text")

	require.NoError(t, err)
	require.Len(t, res.Relationships, 1)
	assert.Equal(t, "Alice", res.Relationships[0].Subject)
	assert.Equal(t, 1, res.Skipped)
}

func TestExtract_DeduplicatesAndValidates(t *testing.T) {
	long := strings.Repeat("x", domain.MaxRelationshipFieldLength+1)
	llm := &mockLLM{response: `[
		{"subject": "Acme Corp", "relationship": "employs", "object": "Alice"},
		{"subject": "Acme Corp", "relationship": "employs", "object": "Alice"},
		{"subject": "acme corp", "relationship": "employs", "object": "Alice"},
		{"subject": 42, "relationship": "is", "object": "number"},
		{"subject": "A", "relationship": "b", "object": "` + long + `"}
	]`}

	res, err := New(llm, nil).Extract(context.Background(), "text")

	require.NoError(t, err)
	assert.Len(t, res.Relationships, 2)
	assert.Equal(t, 3, res.Skipped)
}

func TestExtract_NormalizesToNFC(t *testing.T) {
	// e followed by a combining acute accent
	llm := &mockLLM{response: `[{"subject": "Cafe\u0301", "relationship": "serves", "object": "coffee"}]`}

	res, err := New(llm, nil).Extract(context.Background(), "text")

	require.NoError(t, err)
	require.Len(t, res.Relationships, 1)
	assert.Equal(t, "Caf\u00e9", res.Relationships[0].Subject)
}

func TestExtract_Unparseable(t *testing.T) {
	tests := []struct {
		name     string
		response string
	}{
		{"no array", "I found no relationships."},
		{"broken json", `[{"subject": "A", "relationship": }]`},
		{"reversed brackets", "] nothing ["},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(&mockLLM{response: tt.response}, nil).Extract(context.Background(), "text")
			assert.ErrorIs(t, err, domain.ErrExtraction)
		})
	}
}

func TestExtract_EmptyArray(t *testing.T) {
	res, err := New(&mockLLM{response: "[]"}, nil).Extract(context.Background(), "text")
	require.NoError(t, err)
	assert.Empty(t, res.Relationships)
}

func TestExtract_GenerateError(t *testing.T) {
	boom := errors.New("boom")
	_, err := New(&mockLLM{err: boom}, nil).Extract(context.Background(), "text")
	assert.ErrorIs(t, err, boom)
}
