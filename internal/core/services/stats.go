package services

import (
	"sync"
	"time"

	"github.com/custodia-labs/notesync/internal/core/domain"
)

// SyncStats collects the statistics of one sync pass.
// It is shared by the orchestrator and the rate gate and is safe for concurrent use.
type SyncStats struct {
	mu     sync.Mutex
	now    func() time.Time
	report domain.SyncReport
}

// NewSyncStats creates a collector. now defaults to time.Now.
func NewSyncStats(now func() time.Time) *SyncStats {
	if now == nil {
		now = time.Now
	}
	s := &SyncStats{now: now}
	s.Reset()
	return s
}

// Reset clears all counters and restarts the clock.
func (s *SyncStats) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.report = domain.SyncReport{
		StartedAt:       s.now(),
		StoreOperations: make(map[string]map[string]domain.OperationCount),
		Chunking:        make(map[domain.ChunkMethod]domain.ChunkingCount),
	}
}

// DocumentsFound records the size of the source listing.
func (s *SyncStats) DocumentsFound(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.report.DocumentsFound = n
}

// DocumentProcessed counts a document written to at least one store.
func (s *SyncStats) DocumentProcessed() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.report.DocumentsProcessed++
}

// DocumentUpToDate counts a document no store needed.
func (s *SyncStats) DocumentUpToDate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.report.DocumentsUpToDate++
}

// DocumentSkipped counts a document carrying the skip marker.
func (s *SyncStats) DocumentSkipped() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.report.DocumentsSkipped++
}

// DocumentErrored counts a document that could not be written anywhere.
func (s *SyncStats) DocumentErrored() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.report.DocumentsErrored++
}

// StoreOperation counts one store operation outcome.
func (s *SyncStats) StoreOperation(store, op string, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ops, exists := s.report.StoreOperations[store]
	if !exists {
		ops = make(map[string]domain.OperationCount)
		s.report.StoreOperations[store] = ops
	}
	c := ops[op]
	if ok {
		c.Succeeded++
	} else {
		c.Failed++
	}
	ops[op] = c
}

// Chunked counts a segmented document.
func (s *SyncStats) Chunked(method domain.ChunkMethod, chunks int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.report.Chunking[method]
	c.Documents++
	c.Chunks += chunks
	s.report.Chunking[method] = c
}

// Relationships counts extracted and skipped triples.
func (s *SyncStats) Relationships(extracted, skipped int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.report.RelationshipsExtracted += extracted
	s.report.RelationshipsSkipped += skipped
}

// RateLimited counts a paced call and the time spent waiting.
func (s *SyncStats) RateLimited(wait time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.report.RateLimitHits++
	s.report.RateLimitWaitTime += wait
}

// SetDeletionCandidates records the result of the deletion sweep.
func (s *SyncStats) SetDeletionCandidates(candidates []domain.DeletionCandidate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.report.DeletionCandidates = append([]domain.DeletionCandidate(nil), candidates...)
}

// Report returns a snapshot with the elapsed duration filled in.
func (s *SyncStats) Report() *domain.SyncReport {
	s.mu.Lock()
	defer s.mu.Unlock()

	r := s.report
	r.Duration = s.now().Sub(r.StartedAt)

	r.StoreOperations = make(map[string]map[string]domain.OperationCount, len(s.report.StoreOperations))
	for store, ops := range s.report.StoreOperations {
		cp := make(map[string]domain.OperationCount, len(ops))
		for op, c := range ops {
			cp[op] = c
		}
		r.StoreOperations[store] = cp
	}
	r.Chunking = make(map[domain.ChunkMethod]domain.ChunkingCount, len(s.report.Chunking))
	for m, c := range s.report.Chunking {
		r.Chunking[m] = c
	}
	r.DeletionCandidates = append([]domain.DeletionCandidate(nil), s.report.DeletionCandidates...)

	return &r
}
