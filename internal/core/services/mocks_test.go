package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/custodia-labs/notesync/internal/core/domain"
	"github.com/custodia-labs/notesync/internal/core/ports/driven"
)

// --- Mock implementations for sync testing ---

type mockSource struct {
	mu       sync.Mutex
	docs     map[string]*domain.SourceDocument
	listErr  error
	fetchErr map[string]error
	onFetch  func(id string)
	fetches  int
}

func newMockSource(docs ...*domain.SourceDocument) *mockSource {
	m := &mockSource{docs: make(map[string]*domain.SourceDocument), fetchErr: make(map[string]error)}
	for _, d := range docs {
		m.docs[d.ID] = d
	}
	return m
}

func (m *mockSource) Type() string { return "mock" }

func (m *mockSource) ListDocuments(_ context.Context) ([]domain.DocumentRef, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	refs := make([]domain.DocumentRef, 0, len(m.docs))
	for _, d := range m.docs {
		refs = append(refs, domain.DocumentRef{ID: d.ID, LastEditedTime: d.LastEditedTime})
	}
	sort.Slice(refs, func(i, j int) bool { return refs[i].ID < refs[j].ID })
	return refs, nil
}

func (m *mockSource) FetchDocument(_ context.Context, ref domain.DocumentRef) (*domain.SourceDocument, error) {
	m.mu.Lock()
	m.fetches++
	hook := m.onFetch
	m.mu.Unlock()
	if hook != nil {
		hook(ref.ID)
	}
	if err := m.fetchErr[ref.ID]; err != nil {
		return nil, err
	}
	d, ok := m.docs[ref.ID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *d
	return &cp, nil
}

func (m *mockSource) Close() error { return nil }

// mockSegmenter splits text on blank lines.
type mockSegmenter struct {
	calls int
}

func (m *mockSegmenter) Segment(_ context.Context, text, title string) ([]domain.Chunk, domain.ChunkMethod, error) {
	m.calls++
	var chunks []domain.Chunk
	for _, part := range strings.Split(text, "\n\n") {
		chunks = append(chunks, domain.Chunk{
			Title:      title,
			Text:       part,
			TokenCount: len(strings.Fields(part)),
			Summary:    "about " + title,
		})
	}
	return chunks, domain.ChunkMethodLLM, nil
}

type mockExtractor struct {
	rels  []domain.Relationship
	err   error
	calls int
}

func (m *mockExtractor) Extract(_ context.Context, _ string) (domain.ExtractionResult, error) {
	m.calls++
	if m.err != nil {
		return domain.ExtractionResult{}, m.err
	}
	return domain.ExtractionResult{Relationships: m.rels, Skipped: 1}, nil
}

type mockEmbedder struct {
	err   error
	calls int
}

func (m *mockEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	return []float32{float32(len(text))}, m.err
}

func (m *mockEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i], _ = m.Embed(ctx, t)
	}
	return out, nil
}

func (m *mockEmbedder) Dimensions() int              { return 1 }
func (m *mockEmbedder) ModelName() string            { return "embed-model" }
func (m *mockEmbedder) Provider() string             { return "mock" }
func (m *mockEmbedder) Ping(_ context.Context) error { return nil }
func (m *mockEmbedder) Close() error                 { return nil }

// stepStore wraps a store, hides its transactional replace, counts writes
// and injects failures per operation.
type stepStore struct {
	driven.StoreAdapter
	caps *driven.StoreCapabilities

	mu     sync.Mutex
	writes int
	fail   map[string][]error // op -> errors returned by successive calls
}

func newStepStore(inner driven.StoreAdapter) *stepStore {
	return &stepStore{StoreAdapter: inner, fail: make(map[string][]error)}
}

func (s *stepStore) failNext(op string, errs ...error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail[op] = append(s.fail[op], errs...)
}

func (s *stepStore) write(op string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writes++
	if queue := s.fail[op]; len(queue) > 0 {
		s.fail[op] = queue[1:]
		return queue[0]
	}
	return nil
}

func (s *stepStore) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}

func (s *stepStore) Capabilities() driven.StoreCapabilities {
	if s.caps != nil {
		return *s.caps
	}
	return s.StoreAdapter.Capabilities()
}

func (s *stepStore) CleanDocument(ctx context.Context, id string) error {
	if err := s.write(domain.OpClean); err != nil {
		return err
	}
	return s.StoreAdapter.CleanDocument(ctx, id)
}

func (s *stepStore) CreateChunks(ctx context.Context, doc domain.Document, chunks []domain.Chunk) error {
	if err := s.write(domain.OpChunks); err != nil {
		return err
	}
	return s.StoreAdapter.CreateChunks(ctx, doc, chunks)
}

func (s *stepStore) CreateRelationships(ctx context.Context, id string, rels []domain.Relationship, ts time.Time) error {
	if err := s.write(domain.OpRelationships); err != nil {
		return err
	}
	return s.StoreAdapter.CreateRelationships(ctx, id, rels, ts)
}

func (s *stepStore) GetLastModified(ctx context.Context, id string) (time.Time, bool, error) {
	s.mu.Lock()
	queue := s.fail[domain.OpRead]
	if len(queue) > 0 {
		s.fail[domain.OpRead] = queue[1:]
		s.mu.Unlock()
		return time.Time{}, false, queue[0]
	}
	s.mu.Unlock()
	return s.StoreAdapter.GetLastModified(ctx, id)
}

var errPermanent = errors.New("disk full")

func transient(msg string) error {
	return fmt.Errorf("%w: %s", domain.ErrTransient, msg)
}
