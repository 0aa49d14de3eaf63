// Package cached wraps an embedding service with an LRU cache and bounded
// concurrent batching.
package cached

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/notesync/internal/core/domain"
	"github.com/custodia-labs/notesync/internal/core/ports/driven"
)

// Ensure Embedder implements the interface.
var _ driven.EmbeddingService = (*Embedder)(nil)

// Defaults for batching.
const (
	DefaultBatchSize   = 32
	DefaultConcurrency = 4
)

// Embedder caches embeddings by text and model, and splits large batches
// into concurrent sub-batches.
type Embedder struct {
	inner       driven.EmbeddingService
	cache       *lru.Cache[string, []float32]
	batchSize   int
	concurrency int
}

// Option configures the Embedder.
type Option func(*Embedder)

// WithBatching sets the sub-batch size and how many sub-batches run at once.
func WithBatching(size, concurrency int) Option {
	return func(e *Embedder) {
		if size > 0 {
			e.batchSize = size
		}
		if concurrency > 0 {
			e.concurrency = concurrency
		}
	}
}

// New creates a cached embedder wrapping inner.
func New(inner driven.EmbeddingService, cacheSize int, opts ...Option) *Embedder {
	if cacheSize <= 0 {
		cacheSize = domain.DefaultEmbeddingCacheSize
	}
	cache, _ := lru.New[string, []float32](cacheSize)
	e := &Embedder{
		inner:       inner,
		cache:       cache,
		batchSize:   DefaultBatchSize,
		concurrency: DefaultConcurrency,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// cacheKey hashes the text together with the model name.
func (e *Embedder) cacheKey(text string) string {
	sum := sha256.Sum256([]byte(text + "\x00" + e.inner.ModelName()))
	return hex.EncodeToString(sum[:])
}

// Embed returns the cached embedding if available, otherwise computes and caches it.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	key := e.cacheKey(text)
	if vec, ok := e.cache.Get(key); ok {
		return vec, nil
	}

	vec, err := e.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	e.cache.Add(key, vec)
	return vec, nil
}

// EmbedBatch embeds texts in input order. Cached texts are not resent.
func (e *Embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	results := make([][]float32, len(texts))
	var missing []int

	// 1. Serve what the cache has
	for i, text := range texts {
		if vec, ok := e.cache.Get(e.cacheKey(text)); ok {
			results[i] = vec
		} else {
			missing = append(missing, i)
		}
	}
	if len(missing) == 0 {
		return results, nil
	}

	// 2. Embed the rest in bounded concurrent sub-batches; each writes its own slots
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)
	for start := 0; start < len(missing); start += e.batchSize {
		idx := missing[start:min(start+e.batchSize, len(missing))]
		g.Go(func() error {
			batch := make([]string, len(idx))
			for j, i := range idx {
				batch[j] = texts[i]
			}
			vecs, err := e.inner.EmbedBatch(gctx, batch)
			if err != nil {
				return err
			}
			if len(vecs) != len(batch) {
				return fmt.Errorf("%s: got %d embeddings for %d inputs", e.inner.Provider(), len(vecs), len(batch))
			}
			for j, i := range idx {
				results[i] = vecs[j]
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// 3. Cache the new vectors
	for _, i := range missing {
		e.cache.Add(e.cacheKey(texts[i]), results[i])
	}
	return results, nil
}

// Dimensions returns the embedding dimension (passthrough to inner).
func (e *Embedder) Dimensions() int { return e.inner.Dimensions() }

// ModelName returns the model identifier (passthrough to inner).
func (e *Embedder) ModelName() string { return e.inner.ModelName() }

// Provider returns the provider name (passthrough to inner).
func (e *Embedder) Provider() string { return e.inner.Provider() }

// Ping checks the inner service.
func (e *Embedder) Ping(ctx context.Context) error { return e.inner.Ping(ctx) }

// Close closes the inner embedder.
func (e *Embedder) Close() error { return e.inner.Close() }

// Len returns the number of cached embeddings.
func (e *Embedder) Len() int { return e.cache.Len() }
