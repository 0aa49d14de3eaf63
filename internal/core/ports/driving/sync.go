package driving

import (
	"context"

	"github.com/custodia-labs/notesync/internal/core/domain"
)

// SyncService synchronises source documents into every configured store.
type SyncService interface {
	// Sync runs one pass over the source. The report is returned even when
	// the pass fails part-way.
	Sync(ctx context.Context) (*domain.SyncReport, error)

	// ClearAll wipes every configured store.
	ClearAll(ctx context.Context) error

	// DeletionCandidates lists stored documents the source no longer exposes.
	DeletionCandidates(ctx context.Context) ([]domain.DeletionCandidate, error)

	// Purge cleans the given documents from every store.
	Purge(ctx context.Context, documentIDs []string) error
}
