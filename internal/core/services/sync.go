package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync/atomic"
	"time"

	"github.com/custodia-labs/notesync/internal/core/domain"
	"github.com/custodia-labs/notesync/internal/core/ports/driven"
	"github.com/custodia-labs/notesync/internal/core/ports/driving"
	"github.com/custodia-labs/notesync/internal/logger"
	"github.com/custodia-labs/notesync/internal/retry"
)

// Ensure SyncOrchestrator implements the interface.
var _ driving.SyncService = (*SyncOrchestrator)(nil)

// StoreBinding is a configured store together with its per-store settings.
type StoreBinding struct {
	Name  string
	Store driven.StoreAdapter

	// Relationships enables graph writes for this store. It only takes
	// effect when the store also has the Relationships capability.
	Relationships bool
}

func (b StoreBinding) takesRelationships() bool {
	return b.Relationships && b.Store.Capabilities().Relationships
}

func (b StoreBinding) takesVectors() bool {
	return b.Store.Capabilities().Vectors
}

// SyncOrchestrator keeps every configured store in step with the document source.
type SyncOrchestrator struct {
	source    driven.DocumentSource
	segmenter driven.ChunkSegmenter
	extractor driven.RelationshipExtractor
	embedder  driven.EmbeddingService
	stores    []StoreBinding
	stats     *SyncStats
	retry     retry.Config

	running atomic.Bool
}

// SyncOption configures the orchestrator.
type SyncOption func(*SyncOrchestrator)

// WithExtractor enables relationship extraction.
func WithExtractor(e driven.RelationshipExtractor) SyncOption {
	return func(o *SyncOrchestrator) { o.extractor = e }
}

// WithEmbedder enables chunk embeddings.
func WithEmbedder(e driven.EmbeddingService) SyncOption {
	return func(o *SyncOrchestrator) { o.embedder = e }
}

// WithRetry sets the backoff for transient store and source failures.
func WithRetry(cfg retry.Config) SyncOption {
	return func(o *SyncOrchestrator) { o.retry = cfg }
}

// NewSyncOrchestrator creates a new sync orchestrator.
// stats may be shared with the rate gate; it is reset at the start of every Sync.
func NewSyncOrchestrator(
	source driven.DocumentSource,
	segmenter driven.ChunkSegmenter,
	stores []StoreBinding,
	stats *SyncStats,
	opts ...SyncOption,
) *SyncOrchestrator {
	if stats == nil {
		stats = NewSyncStats(nil)
	}
	o := &SyncOrchestrator{
		source:    source,
		segmenter: segmenter,
		stores:    stores,
		stats:     stats,
		retry:     retry.DefaultConfig(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Sync runs one pass over the source. The report is returned even when the
// pass fails: a failed listing returns domain.ErrFatalSync, cancellation
// returns the context error.
func (o *SyncOrchestrator) Sync(ctx context.Context) (*domain.SyncReport, error) {
	if !o.running.CompareAndSwap(false, true) {
		return nil, domain.ErrSyncInProgress
	}
	defer o.running.Store(false)

	o.stats.Reset()
	logger.Section("Sync")

	// 1. List the source
	refs, err := retry.DoWithResult(ctx, o.retry, func() ([]domain.DocumentRef, error) {
		return o.source.ListDocuments(ctx)
	})
	if err != nil {
		logger.Error("listing %s documents failed: %v", o.source.Type(), err)
		return o.stats.Report(), fmt.Errorf("%w: list documents: %w", domain.ErrFatalSync, err)
	}
	o.stats.DocumentsFound(len(refs))
	logger.Info("Found %d documents in %s", len(refs), o.source.Type())

	// 2. Synchronise each document
	for i, ref := range refs {
		if err := ctx.Err(); err != nil {
			logger.Warn("sync cancelled after %d of %d documents", i, len(refs))
			return o.stats.Report(), err
		}
		o.syncDocument(ctx, ref)
	}
	if err := ctx.Err(); err != nil {
		return o.stats.Report(), err
	}

	// 3. Report documents the source no longer lists
	candidates, err := o.sweep(ctx, refs)
	if err != nil {
		logger.Warn("deletion sweep failed: %v", err)
	} else {
		o.stats.SetDeletionCandidates(candidates)
	}

	report := o.stats.Report()
	logger.Info("Sync complete: %d processed, %d up to date, %d skipped, %d errored",
		report.DocumentsProcessed, report.DocumentsUpToDate, report.DocumentsSkipped, report.DocumentsErrored)
	return report, nil
}

// syncDocument runs fetch, gate, staleness, derive and apply for one document.
//
//nolint:gocyclo // Pipeline orchestration with sequential steps
func (o *SyncOrchestrator) syncDocument(ctx context.Context, ref domain.DocumentRef) {
	// 1. FETCH
	doc, err := retry.DoWithResult(ctx, o.retry, func() (*domain.SourceDocument, error) {
		return o.source.FetchDocument(ctx, ref)
	})
	if err != nil {
		logger.Error("fetching %s failed: %v", ref.ID, err)
		o.stats.DocumentErrored()
		return
	}
	logger.Debug("Processing %s (%q)", doc.ID, doc.Title)

	// 2. GATE
	if doc.IsEmpty() {
		logger.Warn("%s (%q) has no content, removing it from every store", doc.ID, doc.Title)
		_ = o.cleanEverywhere(ctx, doc.ID)
		o.stats.DocumentErrored()
		return
	}
	if doc.IsSkipped() {
		logger.Info("%s (%q) is marked %s, removing it from every store", doc.ID, doc.Title, domain.SkipMarker)
		_ = o.cleanEverywhere(ctx, doc.ID)
		o.stats.DocumentSkipped()
		return
	}
	content := doc.Content()

	// 3. STALENESS
	ts, tsErr := domain.ParseTimestamp(doc.LastEditedTime)
	if tsErr != nil {
		logger.Warn("%s has an unparseable edit time, rewriting it everywhere: %v", doc.ID, tsErr)
		ts = time.Now().UTC()
	}
	stale := o.staleStores(ctx, doc.ID, ts, tsErr != nil)
	if len(stale) == 0 {
		logger.Debug("%s is up to date in every store", doc.ID)
		o.stats.DocumentUpToDate()
		return
	}

	// 4. DERIVE chunks, embeddings and relationships once
	chunks, method, err := o.segmenter.Segment(ctx, content, doc.Title)
	if err != nil || len(chunks) == 0 {
		logger.Error("chunking %s failed: %v", doc.ID, err)
		o.stats.DocumentErrored()
		return
	}
	o.stats.Chunked(method, len(chunks))
	chunks = domain.LinkChunks(doc.ID, chunks)

	embedded := false
	if o.embedder != nil && anyStore(stale, StoreBinding.takesVectors) {
		if err := o.embed(ctx, chunks); err != nil {
			logger.Error("embedding %s failed: %v", doc.ID, err)
		} else {
			embedded = true
		}
	}

	var rels []domain.Relationship
	if o.extractor != nil && anyStore(stale, StoreBinding.takesRelationships) {
		res, err := o.extractor.Extract(ctx, content)
		if err != nil {
			logger.Warn("relationship extraction for %s failed, storing none: %v", doc.ID, err)
		}
		rels = res.Relationships
		o.stats.Relationships(len(res.Relationships), res.Skipped)
	}

	// 5. APPLY to each stale store independently
	record := domain.NewDocument(doc.ID, doc.Title, content, ts)
	succeeded := 0
	for _, b := range stale {
		if ctx.Err() != nil {
			break
		}
		if b.takesVectors() && !embedded {
			o.recordOp(b.Name, domain.OpChunks, doc.ID, fmt.Errorf("%w: no embeddings for vector store", domain.ErrEmbeddingUnavailable))
			continue
		}
		var storeRels []domain.Relationship
		if b.takesRelationships() {
			storeRels = rels
		}
		if o.apply(ctx, b, record, chunks, storeRels, ts) {
			succeeded++
		}
	}

	if succeeded > 0 {
		o.stats.DocumentProcessed()
		logger.Info("Synced %s (%q): %d chunks to %d of %d stale stores", doc.ID, doc.Title, len(chunks), succeeded, len(stale))
		return
	}
	o.stats.DocumentErrored()
}

// staleStores returns the stores whose copy of the document is missing or older than ts.
func (o *SyncOrchestrator) staleStores(ctx context.Context, docID string, ts time.Time, force bool) []StoreBinding {
	if force {
		return o.stores
	}

	var stale []StoreBinding
	for _, b := range o.stores {
		stored, ok, err := b.Store.GetLastModified(ctx, docID)
		switch {
		case err != nil:
			o.recordOp(b.Name, domain.OpRead, docID, err)
			stale = append(stale, b)
		case !ok:
			stale = append(stale, b)
		case stored.Before(ts):
			stale = append(stale, b)
		}
	}
	return stale
}

// apply writes the document to one store. Stores offering a transaction
// replace it atomically; the others are cleaned and rewritten step by step.
func (o *SyncOrchestrator) apply(
	ctx context.Context,
	b StoreBinding,
	doc domain.Document,
	chunks []domain.Chunk,
	rels []domain.Relationship,
	ts time.Time,
) bool {
	if r, ok := b.Store.(driven.DocumentReplacer); ok {
		err := retry.Do(ctx, o.retry, func() error {
			return r.ReplaceDocument(ctx, doc, chunks, rels, ts)
		})
		return o.recordOp(b.Name, domain.OpReplace, doc.ID, err)
	}

	err := retry.Do(ctx, o.retry, func() error { return b.Store.CleanDocument(ctx, doc.ID) })
	if !o.recordOp(b.Name, domain.OpClean, doc.ID, err) {
		return false
	}

	err = retry.Do(ctx, o.retry, func() error { return b.Store.CreateChunks(ctx, doc, chunks) })
	if !o.recordOp(b.Name, domain.OpChunks, doc.ID, err) {
		return false
	}

	if len(rels) > 0 {
		err = retry.Do(ctx, o.retry, func() error { return b.Store.CreateRelationships(ctx, doc.ID, rels, ts) })
		// chunks are in place; a relationship failure is counted but the store holds the document
		o.recordOp(b.Name, domain.OpRelationships, doc.ID, err)
	}
	return true
}

// embed fills chunk embeddings from their formatted content.
func (o *SyncOrchestrator) embed(ctx context.Context, chunks []domain.Chunk) error {
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.FormattedContent()
	}

	vectors, err := retry.DoWithResult(ctx, o.retry, func() ([][]float32, error) {
		return o.embedder.EmbedBatch(ctx, texts)
	})
	if err != nil {
		return err
	}
	if len(vectors) != len(chunks) {
		return fmt.Errorf("embedder returned %d vectors for %d chunks", len(vectors), len(chunks))
	}

	for i := range chunks {
		chunks[i].Embedding = vectors[i]
		chunks[i].Provenance.EmbeddingModel = o.embedder.ModelName()
		chunks[i].Provenance.EmbeddingProvider = o.embedder.Provider()
	}
	return nil
}

// cleanEverywhere removes a document from every store, failures isolated per store.
func (o *SyncOrchestrator) cleanEverywhere(ctx context.Context, docID string) error {
	var errs []error
	for _, b := range o.stores {
		err := retry.Do(ctx, o.retry, func() error { return b.Store.CleanDocument(ctx, docID) })
		if !o.recordOp(b.Name, domain.OpClean, docID, err) {
			errs = append(errs, &domain.StoreError{Store: b.Name, Op: domain.OpClean, DocumentID: docID, Err: err})
		}
	}
	return errors.Join(errs...)
}

// recordOp counts an operation outcome and logs failures. It reports success.
func (o *SyncOrchestrator) recordOp(store, op, docID string, err error) bool {
	o.stats.StoreOperation(store, op, err == nil)
	if err != nil {
		logger.Error("%v", &domain.StoreError{Store: store, Op: op, DocumentID: docID, Err: err})
		return false
	}
	return true
}

// listingStore is the store whose document listing drives the deletion sweep.
func (o *SyncOrchestrator) listingStore() (StoreBinding, bool) {
	for _, b := range o.stores {
		if b.Store.Capabilities().Relationships {
			return b, true
		}
	}
	if len(o.stores) > 0 {
		return o.stores[0], true
	}
	return StoreBinding{}, false
}

// sweep returns stored documents missing from the source listing.
func (o *SyncOrchestrator) sweep(ctx context.Context, refs []domain.DocumentRef) ([]domain.DeletionCandidate, error) {
	b, ok := o.listingStore()
	if !ok {
		return nil, nil
	}

	docs, err := b.Store.GetDocuments(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("list %s documents: %w", b.Name, err)
	}

	live := make(map[string]struct{}, len(refs))
	for _, r := range refs {
		live[r.ID] = struct{}{}
	}

	var candidates []domain.DeletionCandidate
	for _, d := range docs {
		if _, ok := live[d.ID]; ok {
			continue
		}
		candidates = append(candidates, domain.DeletionCandidate{
			DocumentID:     d.ID,
			Title:          d.Title,
			ChunkCount:     d.ChunkCount,
			ReferenceCount: d.ReferenceCount,
		})
		logger.Warn("%s (%q) is no longer in the source: purging removes %d chunks and %d references",
			d.ID, d.Title, d.ChunkCount, d.ReferenceCount)
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].DocumentID < candidates[j].DocumentID })
	return candidates, nil
}

// DeletionCandidates lists stored documents the source no longer exposes.
func (o *SyncOrchestrator) DeletionCandidates(ctx context.Context) ([]domain.DeletionCandidate, error) {
	refs, err := o.source.ListDocuments(ctx)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	return o.sweep(ctx, refs)
}

// Purge removes the given documents from every store.
func (o *SyncOrchestrator) Purge(ctx context.Context, documentIDs []string) error {
	var errs []error
	for _, id := range documentIDs {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := o.cleanEverywhere(ctx, id); err != nil {
			errs = append(errs, err)
			continue
		}
		logger.Info("Purged %s", id)
	}
	return errors.Join(errs...)
}

// ClearAll wipes every configured store.
func (o *SyncOrchestrator) ClearAll(ctx context.Context) error {
	var errs []error
	for _, b := range o.stores {
		if err := b.Store.Clear(ctx); err != nil {
			errs = append(errs, &domain.StoreError{Store: b.Name, Op: "clear", Err: err})
			continue
		}
		logger.Info("Cleared store %s", b.Name)
	}
	return errors.Join(errs...)
}

func anyStore(stores []StoreBinding, pred func(StoreBinding) bool) bool {
	for _, b := range stores {
		if pred(b) {
			return true
		}
	}
	return false
}
