package domain

import "time"

// Store operation names counted in reports.
const (
	OpClean         = "clean"
	OpChunks        = "chunks"
	OpRelationships = "relationships"
	OpReplace       = "replace"
	OpRead          = "read"
)

// OperationCount tallies one store operation.
type OperationCount struct {
	Succeeded int
	Failed    int
}

// ChunkingCount tallies documents and chunks produced by one method.
type ChunkingCount struct {
	Documents int
	Chunks    int
}

// SyncReport is the end-of-run statistics of a sync pass.
// It is produced even when the pass fails part-way.
type SyncReport struct {
	StartedAt time.Time
	Duration  time.Duration

	DocumentsFound     int
	DocumentsProcessed int
	DocumentsUpToDate  int
	DocumentsSkipped   int
	DocumentsErrored   int

	// StoreOperations is keyed by store name then operation name.
	StoreOperations map[string]map[string]OperationCount

	Chunking map[ChunkMethod]ChunkingCount

	RelationshipsExtracted int
	RelationshipsSkipped   int

	RateLimitHits     int
	RateLimitWaitTime time.Duration

	DeletionCandidates []DeletionCandidate
}

// StoreFailures returns the number of failed operations across stores.
func (r *SyncReport) StoreFailures() int {
	total := 0
	for _, ops := range r.StoreOperations {
		for _, c := range ops {
			total += c.Failed
		}
	}
	return total
}
