package services

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/notesync/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/notesync/internal/adapters/driven/storage/vectordb"
	"github.com/custodia-labs/notesync/internal/core/domain"
	"github.com/custodia-labs/notesync/internal/core/ports/driven"
	"github.com/custodia-labs/notesync/internal/retry"
)

func fastRetry() retry.Config {
	return retry.Config{MaxRetries: 2, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, Multiplier: 2}
}

func sourceDoc(id, edited string) *domain.SourceDocument {
	return &domain.SourceDocument{
		ID:             id,
		Title:          "Note " + id,
		Markdown:       "Alice manages Bob.\n\n\n\nBob works at Acme Corp.",
		LastEditedTime: edited,
	}
}

type syncFixture struct {
	source    *mockSource
	segmenter *mockSegmenter
	extractor *mockExtractor
	graph     *memory.Store
	plain     *stepStore
	plainMem  *memory.Store
	orch      *SyncOrchestrator
}

// setupSyncTest wires a transactional graph store and a step-by-step store
// that does not take relationships.
func setupSyncTest(t *testing.T, docs ...*domain.SourceDocument) *syncFixture {
	t.Helper()
	f := &syncFixture{
		source:    newMockSource(docs...),
		segmenter: &mockSegmenter{},
		extractor: &mockExtractor{rels: []domain.Relationship{{Subject: "Alice", Type: "manages", Object: "Bob"}}},
		graph:     memory.New("graph"),
		plainMem:  memory.New("plain"),
	}
	f.plain = newStepStore(f.plainMem)
	f.orch = NewSyncOrchestrator(f.source, f.segmenter, []StoreBinding{
		{Name: "graph", Store: f.graph, Relationships: true},
		{Name: "plain", Store: f.plain, Relationships: false},
	}, NewSyncStats(nil), WithExtractor(f.extractor), WithRetry(fastRetry()))
	return f
}

func TestSync_FirstRunWritesEveryStore(t *testing.T) {
	f := setupSyncTest(t,
		sourceDoc("d1", "2024-03-01T10:00:00.000Z"),
		sourceDoc("d2", "2024-03-02T10:00:00.000Z"),
	)
	ctx := context.Background()

	report, err := f.orch.Sync(ctx)

	require.NoError(t, err)
	assert.Equal(t, 2, report.DocumentsFound)
	assert.Equal(t, 2, report.DocumentsProcessed)
	assert.Equal(t, domain.OperationCount{Succeeded: 2}, report.StoreOperations["graph"][domain.OpReplace])
	assert.Equal(t, domain.OperationCount{Succeeded: 2}, report.StoreOperations["plain"][domain.OpChunks])
	assert.Equal(t, domain.ChunkingCount{Documents: 2, Chunks: 6}, report.Chunking[domain.ChunkMethodLLM])
	assert.Equal(t, 2, report.RelationshipsExtracted)
	assert.Equal(t, 2, report.RelationshipsSkipped)

	chunks, err := f.graph.GetChunks(ctx, "d1")
	require.NoError(t, err)
	require.Len(t, chunks, 3)
	assert.Equal(t, "# Note d1", chunks[0].Text)
	assert.Equal(t, "d1-chunk-1", chunks[0].Next)

	docs, err := f.graph.GetDocuments(ctx, []string{"d1"})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "# Note d1\n\nAlice manages Bob.\n\nBob works at Acme Corp.", docs[0].Content)
	assert.Equal(t, 1, docs[0].ReferenceCount)

	// relationships only reach the store configured for them
	rels, err := f.graph.ListRelationships(ctx)
	require.NoError(t, err)
	require.Len(t, rels, 1)
	assert.Equal(t, []string{"d1", "d2"}, rels[0].NoteIDs)
	plainRels, err := f.plainMem.ListRelationships(ctx)
	require.NoError(t, err)
	assert.Empty(t, plainRels)

	assert.Equal(t, 2, f.extractor.calls)
}

func TestSync_UnchangedDocumentsWriteNothing(t *testing.T) {
	f := setupSyncTest(t, sourceDoc("d1", "2024-03-01T10:00:00.000Z"))
	ctx := context.Background()

	_, err := f.orch.Sync(ctx)
	require.NoError(t, err)
	writes := f.plain.Writes()
	hash, _, _ := f.graph.GetNoteHash(ctx, "d1")

	report, err := f.orch.Sync(ctx)

	require.NoError(t, err)
	assert.Equal(t, 1, report.DocumentsUpToDate)
	assert.Equal(t, 0, report.DocumentsProcessed)
	assert.Equal(t, writes, f.plain.Writes())
	assert.Empty(t, report.StoreOperations)
	assert.Equal(t, 1, f.segmenter.calls)
	assert.Equal(t, 1, f.extractor.calls)

	again, _, _ := f.graph.GetNoteHash(ctx, "d1")
	assert.Equal(t, hash, again)
}

func TestSync_ModifiedDocumentIsRewritten(t *testing.T) {
	f := setupSyncTest(t, sourceDoc("d1", "2024-03-01T10:00:00.000Z"), sourceDoc("d2", "2024-03-01T10:00:00.000Z"))
	ctx := context.Background()
	_, err := f.orch.Sync(ctx)
	require.NoError(t, err)

	f.source.docs["d2"].LastEditedTime = "2024-03-05T08:00:00.000Z"
	f.source.docs["d2"].Markdown = "Completely new text."

	report, err := f.orch.Sync(ctx)

	require.NoError(t, err)
	assert.Equal(t, 1, report.DocumentsProcessed)
	assert.Equal(t, 1, report.DocumentsUpToDate)

	chunks, err := f.plainMem.GetChunks(ctx, "d2")
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Equal(t, "Completely new text.", chunks[1].Text)

	ts, ok, err := f.graph.GetLastModified(ctx, "d2")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, time.Date(2024, 3, 5, 8, 0, 0, 0, time.UTC).Equal(ts))

	// the shared relationship keeps one reference per document
	rels, err := f.graph.ListRelationships(ctx)
	require.NoError(t, err)
	require.Len(t, rels, 1)
	assert.Equal(t, 2, rels[0].References)
}

func TestSync_UnparseableTimestampForcesRewrite(t *testing.T) {
	f := setupSyncTest(t, sourceDoc("d1", "2024-03-01T10:00:00.000Z"))
	ctx := context.Background()
	_, err := f.orch.Sync(ctx)
	require.NoError(t, err)
	writes := f.plain.Writes()

	f.source.docs["d1"].LastEditedTime = "last tuesday"
	report, err := f.orch.Sync(ctx)

	require.NoError(t, err)
	assert.Equal(t, 1, report.DocumentsProcessed)
	assert.Greater(t, f.plain.Writes(), writes)
	assert.Equal(t, 1, report.StoreOperations["graph"][domain.OpReplace].Succeeded)
}

func TestSync_StoreFailureIsolated(t *testing.T) {
	f := setupSyncTest(t, sourceDoc("d1", "2024-03-01T10:00:00.000Z"))
	f.plain.failNext(domain.OpChunks, errPermanent)
	ctx := context.Background()

	report, err := f.orch.Sync(ctx)

	require.NoError(t, err)
	assert.Equal(t, 1, report.DocumentsProcessed)
	assert.Equal(t, domain.OperationCount{Failed: 1}, report.StoreOperations["plain"][domain.OpChunks])
	assert.Equal(t, 1, report.StoreFailures())

	chunks, err := f.graph.GetChunks(ctx, "d1")
	require.NoError(t, err)
	assert.Len(t, chunks, 3)

	// the failed store is still stale and catches up on the next run
	report, err = f.orch.Sync(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.DocumentsProcessed)
	assert.Empty(t, report.StoreOperations["graph"])
	chunks, err = f.plainMem.GetChunks(ctx, "d1")
	require.NoError(t, err)
	assert.Len(t, chunks, 3)
}

func TestSync_AllStoresFailingCountsErrored(t *testing.T) {
	source := newMockSource(sourceDoc("d1", "2024-03-01T10:00:00.000Z"))
	store := newStepStore(memory.New("only"))
	store.failNext(domain.OpClean, errPermanent)
	orch := NewSyncOrchestrator(source, &mockSegmenter{}, []StoreBinding{{Name: "only", Store: store}}, nil, WithRetry(fastRetry()))

	report, err := orch.Sync(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, report.DocumentsErrored)
	assert.Equal(t, 0, report.DocumentsProcessed)
	assert.Equal(t, 1, report.StoreOperations["only"][domain.OpClean].Failed)
	assert.Zero(t, report.StoreOperations["only"][domain.OpChunks].Succeeded)
}

func TestSync_TransientStoreErrorRetried(t *testing.T) {
	f := setupSyncTest(t, sourceDoc("d1", "2024-03-01T10:00:00.000Z"))
	f.plain.failNext(domain.OpChunks, transient("database is locked"), transient("database is locked"))

	report, err := f.orch.Sync(context.Background())

	require.NoError(t, err)
	assert.Equal(t, domain.OperationCount{Succeeded: 1}, report.StoreOperations["plain"][domain.OpChunks])
}

func TestSync_StoreReadErrorMeansStale(t *testing.T) {
	f := setupSyncTest(t, sourceDoc("d1", "2024-03-01T10:00:00.000Z"))
	ctx := context.Background()
	_, err := f.orch.Sync(ctx)
	require.NoError(t, err)

	f.plain.failNext(domain.OpRead, errPermanent)
	report, err := f.orch.Sync(ctx)

	require.NoError(t, err)
	assert.Equal(t, 1, report.DocumentsProcessed)
	assert.Equal(t, 1, report.StoreOperations["plain"][domain.OpRead].Failed)
	assert.Equal(t, 1, report.StoreOperations["plain"][domain.OpChunks].Succeeded)
	assert.Empty(t, report.StoreOperations["graph"][domain.OpReplace])
	// only the plain store was stale, which takes no relationships
	assert.Equal(t, 1, f.extractor.calls)
}

func TestSync_Gate(t *testing.T) {
	f := setupSyncTest(t, sourceDoc("empty", "2024-03-01T10:00:00.000Z"), sourceDoc("skipped", "2024-03-01T10:00:00.000Z"))
	ctx := context.Background()
	_, err := f.orch.Sync(ctx)
	require.NoError(t, err)

	f.source.docs["empty"].Markdown = "  \n\n "
	f.source.docs["skipped"].Markdown = "draft #skip"

	report, err := f.orch.Sync(ctx)

	require.NoError(t, err)
	assert.Equal(t, 1, report.DocumentsErrored)
	assert.Equal(t, 1, report.DocumentsSkipped)
	assert.Equal(t, 2, report.StoreOperations["graph"][domain.OpClean].Succeeded)
	assert.Equal(t, 2, report.StoreOperations["plain"][domain.OpClean].Succeeded)

	for _, s := range []driven.StoreAdapter{f.graph, f.plainMem} {
		docs, err := s.GetDocuments(ctx, nil)
		require.NoError(t, err)
		assert.Empty(t, docs)
	}
	_, err = f.graph.GetEntity(ctx, "Alice")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSync_ListingFailureIsFatal(t *testing.T) {
	f := setupSyncTest(t)
	f.source.listErr = errPermanent

	report, err := f.orch.Sync(context.Background())

	assert.ErrorIs(t, err, domain.ErrFatalSync)
	assert.ErrorIs(t, err, errPermanent)
	require.NotNil(t, report)
	assert.Zero(t, report.DocumentsFound)
}

func TestSync_FetchFailureCountsErrored(t *testing.T) {
	f := setupSyncTest(t, sourceDoc("d1", "2024-03-01T10:00:00.000Z"), sourceDoc("d2", "2024-03-01T10:00:00.000Z"))
	f.source.fetchErr["d1"] = errPermanent

	report, err := f.orch.Sync(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, report.DocumentsErrored)
	assert.Equal(t, 1, report.DocumentsProcessed)
}

func TestSync_CancellationStopsRun(t *testing.T) {
	f := setupSyncTest(t,
		sourceDoc("d1", "2024-03-01T10:00:00.000Z"),
		sourceDoc("d2", "2024-03-01T10:00:00.000Z"),
		sourceDoc("d3", "2024-03-01T10:00:00.000Z"),
	)
	ctx, cancel := context.WithCancel(context.Background())
	f.source.onFetch = func(string) { cancel() }

	report, err := f.orch.Sync(ctx)

	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, report)
	assert.Equal(t, 3, report.DocumentsFound)
	assert.Equal(t, 1, f.source.fetches)
	assert.Zero(t, report.DocumentsProcessed)
}

func TestSync_DeletionSweepReportsOnly(t *testing.T) {
	f := setupSyncTest(t, sourceDoc("d1", "2024-03-01T10:00:00.000Z"), sourceDoc("gone", "2024-03-01T10:00:00.000Z"))
	ctx := context.Background()
	_, err := f.orch.Sync(ctx)
	require.NoError(t, err)

	delete(f.source.docs, "gone")
	report, err := f.orch.Sync(ctx)

	require.NoError(t, err)
	require.Len(t, report.DeletionCandidates, 1)
	c := report.DeletionCandidates[0]
	assert.Equal(t, "gone", c.DocumentID)
	assert.Equal(t, "Note gone", c.Title)
	assert.Equal(t, 3, c.ChunkCount)
	assert.Equal(t, 1, c.ReferenceCount)

	// nothing was deleted
	docs, err := f.graph.GetDocuments(ctx, []string{"gone"})
	require.NoError(t, err)
	assert.Len(t, docs, 1)

	candidates, err := f.orch.DeletionCandidates(ctx)
	require.NoError(t, err)
	assert.Equal(t, report.DeletionCandidates, candidates)

	require.NoError(t, f.orch.Purge(ctx, []string{"gone"}))
	for _, s := range []driven.StoreAdapter{f.graph, f.plainMem} {
		docs, err := s.GetDocuments(ctx, []string{"gone"})
		require.NoError(t, err)
		assert.Empty(t, docs)
	}
	// Alice is still referenced by d1
	alice, err := f.graph.GetEntity(ctx, "Alice")
	require.NoError(t, err)
	assert.Equal(t, 1, alice.References)
}

func TestSync_ExtractionFailureStoresNoRelationships(t *testing.T) {
	f := setupSyncTest(t, sourceDoc("d1", "2024-03-01T10:00:00.000Z"))
	f.extractor.err = domain.ErrExtraction

	report, err := f.orch.Sync(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, report.DocumentsProcessed)
	rels, err := f.graph.ListRelationships(context.Background())
	require.NoError(t, err)
	assert.Empty(t, rels)
}

func TestSync_Embeddings(t *testing.T) {
	source := newMockSource(sourceDoc("d1", "2024-03-01T10:00:00.000Z"))
	vectorMem := memory.New("vectors")
	vectors := newStepStore(vectorMem)
	vectors.caps = &driven.StoreCapabilities{Vectors: true}
	graph := memory.New("graph")
	embedder := &mockEmbedder{}

	orch := NewSyncOrchestrator(source, &mockSegmenter{}, []StoreBinding{
		{Name: "graph", Store: graph, Relationships: true},
		{Name: "vectors", Store: vectors},
	}, nil, WithEmbedder(embedder), WithRetry(fastRetry()))

	report, err := orch.Sync(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, report.DocumentsProcessed)
	assert.Equal(t, 1, embedder.calls)

	chunks, err := vectorMem.GetChunks(context.Background(), "d1")
	require.NoError(t, err)
	require.Len(t, chunks, 3)
	assert.Equal(t, []float32{float32(len(chunks[0].FormattedContent()))}, chunks[0].Embedding)
	assert.Equal(t, "embed-model", chunks[0].Provenance.EmbeddingModel)
	assert.Equal(t, "mock", chunks[0].Provenance.EmbeddingProvider)
}

// vectorEmbedder returns fixed three-dimensional vectors.
type vectorEmbedder struct {
	mockEmbedder
}

func (v *vectorEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	return []float32{float32(len(text)), 1, 0.5}, nil
}

func (v *vectorEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	v.calls++
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i], _ = v.Embed(ctx, t)
	}
	return out, nil
}

func (v *vectorEmbedder) Dimensions() int { return 3 }

func TestSync_VectorStoreResyncWritesNothing(t *testing.T) {
	ctx := context.Background()
	vectors, err := vectordb.New(ctx, "vectors", filepath.Join(t.TempDir(), "vectors.db"), 3)
	require.NoError(t, err)
	t.Cleanup(func() { _ = vectors.Close() })

	source := newMockSource(sourceDoc("d1", "2024-03-01T10:00:00.000Z"), sourceDoc("d2", "2024-03-02T10:00:00.000Z"))
	segmenter := &mockSegmenter{}
	embedder := &vectorEmbedder{}
	orch := NewSyncOrchestrator(source, segmenter, []StoreBinding{
		{Name: "graph", Store: memory.New("graph"), Relationships: true},
		{Name: "vectors", Store: vectors},
	}, NewSyncStats(nil), WithEmbedder(embedder), WithRetry(fastRetry()))

	report, err := orch.Sync(ctx)

	require.NoError(t, err)
	assert.Equal(t, 2, report.DocumentsProcessed)
	assert.Zero(t, report.DocumentsErrored)
	assert.Equal(t, domain.OperationCount{Succeeded: 2}, report.StoreOperations["vectors"][domain.OpChunks])

	chunks, err := vectors.GetChunks(ctx, "d1")
	require.NoError(t, err)
	require.Len(t, chunks, 3)
	assert.Equal(t, "d1-chunk-1", chunks[0].Next)
	assert.Len(t, chunks[0].Embedding, 3)

	report, err = orch.Sync(ctx)

	require.NoError(t, err)
	assert.Equal(t, 2, report.DocumentsUpToDate)
	assert.Zero(t, report.DocumentsProcessed)
	assert.Empty(t, report.StoreOperations)
	assert.Equal(t, 2, segmenter.calls)
	assert.Equal(t, 2, embedder.calls)
}

func TestSync_EmbeddingFailureOnlyAffectsVectorStores(t *testing.T) {
	source := newMockSource(sourceDoc("d1", "2024-03-01T10:00:00.000Z"))
	vectors := newStepStore(memory.New("vectors"))
	vectors.caps = &driven.StoreCapabilities{Vectors: true}
	graph := memory.New("graph")

	orch := NewSyncOrchestrator(source, &mockSegmenter{}, []StoreBinding{
		{Name: "graph", Store: graph, Relationships: true},
		{Name: "vectors", Store: vectors},
	}, nil, WithEmbedder(&mockEmbedder{err: errPermanent}), WithRetry(fastRetry()))

	report, err := orch.Sync(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, report.DocumentsProcessed)
	assert.Equal(t, 1, report.StoreOperations["vectors"][domain.OpChunks].Failed)
	assert.Zero(t, vectors.Writes())
	assert.Equal(t, 1, report.StoreOperations["graph"][domain.OpReplace].Succeeded)
}

func TestSync_InProgress(t *testing.T) {
	f := setupSyncTest(t)
	f.orch.running.Store(true)

	_, err := f.orch.Sync(context.Background())

	assert.ErrorIs(t, err, domain.ErrSyncInProgress)
}

func TestClearAll(t *testing.T) {
	f := setupSyncTest(t, sourceDoc("d1", "2024-03-01T10:00:00.000Z"))
	ctx := context.Background()
	_, err := f.orch.Sync(ctx)
	require.NoError(t, err)

	require.NoError(t, f.orch.ClearAll(ctx))

	for _, s := range []driven.StoreAdapter{f.graph, f.plainMem} {
		docs, err := s.GetDocuments(ctx, nil)
		require.NoError(t, err)
		assert.Empty(t, docs)
	}
}
