package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/notesync/internal/core/domain"
)

func TestNewEmbeddingService_RequiresAPIKey(t *testing.T) {
	_, err := NewEmbeddingService(Config{})
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}

func TestNewEmbeddingService_ModelDimensions(t *testing.T) {
	tests := []struct {
		model string
		want  int
	}{
		{"text-embedding-3-small", 1536},
		{"text-embedding-3-large", 3072},
		{"custom-model", 1536},
	}

	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			s, err := NewEmbeddingService(Config{APIKey: "k", Model: tt.model})
			require.NoError(t, err)
			assert.Equal(t, tt.want, s.Dimensions())
		})
	}
}

func TestEmbeddingService_EmbedBatchOrdersByIndex(t *testing.T) {
	var got embeddingRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/embeddings", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"data":[{"index":1,"embedding":[0.5,0.5]},{"index":0,"embedding":[1,0]}]}`))
	}))
	defer server.Close()

	s, err := NewEmbeddingService(Config{APIKey: "secret", BaseURL: server.URL, Dimensions: 2})
	require.NoError(t, err)

	vecs, err := s.EmbedBatch(context.Background(), []string{"first", "second"})

	require.NoError(t, err)
	assert.Equal(t, [][]float32{{1, 0}, {0.5, 0.5}}, vecs)
	assert.Equal(t, 2, got.Dimensions)
	assert.Equal(t, []string{"first", "second"}, got.Input)
}

func TestEmbeddingService_MissingEmbedding(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"data":[{"index":0,"embedding":[1]}]}`))
	}))
	defer server.Close()

	s, err := NewEmbeddingService(Config{APIKey: "k", BaseURL: server.URL})
	require.NoError(t, err)

	_, err = s.EmbedBatch(context.Background(), []string{"a", "b"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no embedding returned for input 1")
}

func TestEmbeddingService_RateLimited(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"slow down"}}`))
	}))
	defer server.Close()

	s, err := NewEmbeddingService(Config{APIKey: "k", BaseURL: server.URL})
	require.NoError(t, err)

	_, err = s.Embed(context.Background(), "x")
	assert.ErrorIs(t, err, domain.ErrRateLimited)
}

func TestEmbeddingService_Ping(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer good" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"data":[]}`))
	}))
	defer server.Close()

	good, err := NewEmbeddingService(Config{APIKey: "good", BaseURL: server.URL})
	require.NoError(t, err)
	assert.NoError(t, good.Ping(context.Background()))

	bad, err := NewEmbeddingService(Config{APIKey: "bad", BaseURL: server.URL})
	require.NoError(t, err)
	assert.ErrorIs(t, bad.Ping(context.Background()), domain.ErrEmbeddingUnavailable)
	assert.Equal(t, "openai", bad.Provider())
}
