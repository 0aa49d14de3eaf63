package domain

import (
	"errors"
	"fmt"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedType indicates an unknown store, source or provider type.
	ErrUnsupportedType = errors.New("unsupported type")

	// ErrSyncInProgress indicates a sync is already running.
	ErrSyncInProgress = errors.New("sync in progress")

	// ErrLLMUnavailable indicates the LLM service is not configured.
	ErrLLMUnavailable = errors.New("LLM service unavailable")

	// ErrEmbeddingUnavailable indicates the embedding service is not configured.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrRateLimited indicates the API rate limit was exceeded.
	ErrRateLimited = errors.New("rate limited")
)

// Error taxonomy. Adapters wrap their failures with one of these so the
// core can decide between retrying, skipping, falling back and aborting.
var (
	// ErrTransient marks failures worth retrying: network blips, rate limits,
	// busy databases, eventual-consistency lag.
	ErrTransient = errors.New("transient error")

	// ErrValidation marks a unit (triple, chunk) that failed its bounds.
	// The unit is skipped and logged.
	ErrValidation = errors.New("validation error")

	// ErrExtraction marks unparseable language model output.
	ErrExtraction = errors.New("extraction failure")

	// ErrConfiguration marks missing credentials or unknown providers.
	// Fatal at startup.
	ErrConfiguration = errors.New("configuration error")

	// ErrFatalSync marks a failure that aborts the whole sync run.
	ErrFatalSync = errors.New("fatal sync error")
)

// IsTransient reports whether err is worth retrying.
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransient) || errors.Is(err, ErrRateLimited)
}

// StoreError is a failure of one store operation for one document.
type StoreError struct {
	Store      string
	Op         string
	DocumentID string
	Err        error
}

func (e *StoreError) Error() string {
	if e.DocumentID == "" {
		return fmt.Sprintf("store %s: %s: %v", e.Store, e.Op, e.Err)
	}
	return fmt.Sprintf("store %s: %s %s: %v", e.Store, e.Op, e.DocumentID, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}
