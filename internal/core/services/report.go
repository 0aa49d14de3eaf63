package services

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/custodia-labs/notesync/internal/core/domain"
)

// FormatReport renders a sync report as plain text.
func FormatReport(r *domain.SyncReport) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Sync Report\n")
	fmt.Fprintf(&b, "  Started:   %s\n", r.StartedAt.UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, "  Duration:  %s\n", r.Duration.Round(time.Millisecond))

	fmt.Fprintf(&b, "\nDocuments\n")
	fmt.Fprintf(&b, "  Found:       %d\n", r.DocumentsFound)
	fmt.Fprintf(&b, "  Processed:   %d\n", r.DocumentsProcessed)
	fmt.Fprintf(&b, "  Up to date:  %d\n", r.DocumentsUpToDate)
	fmt.Fprintf(&b, "  Skipped:     %d\n", r.DocumentsSkipped)
	fmt.Fprintf(&b, "  Errored:     %d\n", r.DocumentsErrored)

	if len(r.StoreOperations) > 0 {
		fmt.Fprintf(&b, "\nStore Operations\n")
		for _, store := range sortedKeys(r.StoreOperations) {
			ops := r.StoreOperations[store]
			fmt.Fprintf(&b, "  %s\n", store)
			for _, op := range sortedKeys(ops) {
				c := ops[op]
				fmt.Fprintf(&b, "    %-14s ok %-4d failed %d\n", op, c.Succeeded, c.Failed)
			}
		}
	}

	if len(r.Chunking) > 0 {
		fmt.Fprintf(&b, "\nChunking\n")
		for _, method := range sortedKeys(r.Chunking) {
			c := r.Chunking[method]
			fmt.Fprintf(&b, "  %-6s %d documents, %d chunks\n", method, c.Documents, c.Chunks)
		}
	}

	fmt.Fprintf(&b, "\nRelationships\n")
	fmt.Fprintf(&b, "  Extracted:  %d\n", r.RelationshipsExtracted)
	fmt.Fprintf(&b, "  Skipped:    %d\n", r.RelationshipsSkipped)

	fmt.Fprintf(&b, "\nRate Limiting\n")
	fmt.Fprintf(&b, "  Hits:       %d\n", r.RateLimitHits)
	fmt.Fprintf(&b, "  Wait time:  %s\n", r.RateLimitWaitTime.Round(time.Millisecond))

	if len(r.DeletionCandidates) > 0 {
		fmt.Fprintf(&b, "\nDeletion Candidates\n")
		for _, c := range r.DeletionCandidates {
			fmt.Fprintf(&b, "  %s  %q  (%d chunks, %d references)\n", c.DocumentID, c.Title, c.ChunkCount, c.ReferenceCount)
		}
		fmt.Fprintf(&b, "  Run `notesync purge` to remove them.\n")
	}

	return b.String()
}

func sortedKeys[K ~string, V any](m map[K]V) []K {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
