package cached

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockEmbedder is a test double that counts calls and encodes text length in the vector.
type mockEmbedder struct {
	embedCalls atomic.Int64
	batchCalls atomic.Int64
	modelName  string
	failOn     string

	mu      sync.Mutex
	batches [][]string
}

func newMockEmbedder() *mockEmbedder {
	return &mockEmbedder{modelName: "mock-model"}
}

func (m *mockEmbedder) vector(text string) []float32 {
	return []float32{float32(len(text)), 1}
}

func (m *mockEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	m.embedCalls.Add(1)
	return m.vector(text), nil
}

func (m *mockEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	m.batchCalls.Add(1)
	m.mu.Lock()
	m.batches = append(m.batches, append([]string(nil), texts...))
	m.mu.Unlock()

	result := make([][]float32, len(texts))
	for i, text := range texts {
		if text == m.failOn {
			return nil, errors.New("embedding failed")
		}
		result[i] = m.vector(text)
	}
	return result, nil
}

func (m *mockEmbedder) Dimensions() int { return 2 }
func (m *mockEmbedder) ModelName() string { return m.modelName }
func (m *mockEmbedder) Provider() string { return "mock" }
func (m *mockEmbedder) Ping(_ context.Context) error { return nil }
func (m *mockEmbedder) Close() error { return nil }

func TestEmbed_CachesByText(t *testing.T) {
	inner := newMockEmbedder()
	e := New(inner, 10)
	ctx := context.Background()

	first, err := e.Embed(ctx, "hello")
	require.NoError(t, err)
	second, err := e.Embed(ctx, "hello")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int64(1), inner.embedCalls.Load())
	assert.Equal(t, 1, e.Len())
}

func TestEmbed_KeyIncludesModel(t *testing.T) {
	inner := newMockEmbedder()
	e := New(inner, 10)
	ctx := context.Background()

	_, err := e.Embed(ctx, "hello")
	require.NoError(t, err)
	inner.modelName = "other-model"
	_, err = e.Embed(ctx, "hello")
	require.NoError(t, err)

	assert.Equal(t, int64(2), inner.embedCalls.Load())
}

func TestEmbedBatch_OnlySendsUncachedTexts(t *testing.T) {
	inner := newMockEmbedder()
	e := New(inner, 10)
	ctx := context.Background()

	_, err := e.Embed(ctx, "bb")
	require.NoError(t, err)

	vecs, err := e.EmbedBatch(ctx, []string{"a", "bb", "ccc"})
	require.NoError(t, err)

	require.Len(t, vecs, 3)
	assert.Equal(t, float32(1), vecs[0][0])
	assert.Equal(t, float32(2), vecs[1][0])
	assert.Equal(t, float32(3), vecs[2][0])
	require.Len(t, inner.batches, 1)
	assert.Equal(t, []string{"a", "ccc"}, inner.batches[0])
}

func TestEmbedBatch_AllCached(t *testing.T) {
	inner := newMockEmbedder()
	e := New(inner, 10)
	ctx := context.Background()

	_, err := e.EmbedBatch(ctx, []string{"a", "b"})
	require.NoError(t, err)
	_, err = e.EmbedBatch(ctx, []string{"b", "a"})
	require.NoError(t, err)

	assert.Equal(t, int64(1), inner.batchCalls.Load())
}

func TestEmbedBatch_SplitsIntoSubBatchesInOrder(t *testing.T) {
	inner := newMockEmbedder()
	e := New(inner, 100, WithBatching(2, 3))

	texts := []string{"a", "bb", "ccc", "dddd", "eeeee"}
	vecs, err := e.EmbedBatch(context.Background(), texts)
	require.NoError(t, err)

	assert.Equal(t, int64(3), inner.batchCalls.Load())
	for i, text := range texts {
		assert.Equal(t, float32(len(text)), vecs[i][0], text)
	}
}

func TestEmbedBatch_ErrorIsNotCached(t *testing.T) {
	inner := newMockEmbedder()
	inner.failOn = "bad"
	e := New(inner, 10, WithBatching(1, 1))

	_, err := e.EmbedBatch(context.Background(), []string{"good", "bad"})

	require.Error(t, err)
	assert.Equal(t, 0, e.Len())
}

func TestEmbedBatch_Empty(t *testing.T) {
	e := New(newMockEmbedder(), 10)
	vecs, err := e.EmbedBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, vecs)
}

func TestPassthrough(t *testing.T) {
	e := New(newMockEmbedder(), 0)
	assert.Equal(t, 2, e.Dimensions())
	assert.Equal(t, "mock-model", e.ModelName())
	assert.Equal(t, "mock", e.Provider())
	assert.NoError(t, e.Ping(context.Background()))
	assert.NoError(t, e.Close())
}
