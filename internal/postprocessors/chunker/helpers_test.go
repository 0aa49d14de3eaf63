package chunker

import (
	"context"
	"strings"
	"sync"

	"github.com/custodia-labs/notesync/internal/core/ports/driven"
)

// wordTokenizer treats every whitespace-separated word as one token.
type wordTokenizer struct {
	mu    sync.Mutex
	vocab []string
	ids   map[string]int
}

func newWordTokenizer() *wordTokenizer {
	return &wordTokenizer{ids: make(map[string]int)}
}

func (w *wordTokenizer) Encode(text string) []int {
	w.mu.Lock()
	defer w.mu.Unlock()
	fields := strings.Fields(text)
	out := make([]int, len(fields))
	for i, f := range fields {
		id, ok := w.ids[f]
		if !ok {
			id = len(w.vocab)
			w.vocab = append(w.vocab, f)
			w.ids[f] = id
		}
		out[i] = id
	}
	return out
}

func (w *wordTokenizer) Decode(tokens []int) string {
	w.mu.Lock()
	defer w.mu.Unlock()
	words := make([]string, len(tokens))
	for i, id := range tokens {
		words[i] = w.vocab[id]
	}
	return strings.Join(words, " ")
}

func (w *wordTokenizer) Count(text string) int { return len(strings.Fields(text)) }
func (w *wordTokenizer) Name() string          { return "words" }

// mockLLM answers prompts with a callback.
type mockLLM struct {
	model    string
	generate func(prompt string) (string, error)
	prompts  []string
}

func (m *mockLLM) Generate(_ context.Context, prompt string, _ driven.GenerateOptions) (string, error) {
	m.prompts = append(m.prompts, prompt)
	return m.generate(prompt)
}
func (m *mockLLM) ModelName() string            { return m.model }
func (m *mockLLM) Provider() string             { return "mock" }
func (m *mockLLM) Ping(_ context.Context) error { return nil }
func (m *mockLLM) Close() error                 { return nil }

// words returns n distinct space-separated words with the given prefix.
func words(prefix string, n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = prefix + strings.Repeat("x", i%7) + string(rune('a'+i%26))
	}
	return strings.Join(parts, " ")
}

type mapPrompts map[string]string

func (m mapPrompts) Load(name string) (string, error) {
	if p, ok := m[name]; ok {
		return p, nil
	}
	return "", errNoPrompt
}
func (m mapPrompts) Reload() {}
