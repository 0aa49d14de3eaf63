package ollama

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

func TestNewEmbeddingService_Defaults(t *testing.T) {
	s := NewEmbeddingService(Config{})
	assert.Equal(t, DefaultBaseURL, s.baseURL)
	assert.Equal(t, DefaultModel, s.ModelName())
	assert.Equal(t, DefaultDimensions, s.Dimensions())
	assert.Equal(t, "ollama", s.Provider())
}

func TestEmbeddingService_EmbedBatch(t *testing.T) {
	var got embedRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/embed", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(embedResponse{Embeddings: [][]float32{{1, 2, 3}, {4, 5, 6}}})
	}))
	defer server.Close()

	s := NewEmbeddingService(Config{BaseURL: server.URL, Dimensions: 3})
	vecs, err := s.EmbedBatch(context.Background(), []string{"one", "two"})

	require.NoError(t, err)
	assert.Equal(t, [][]float32{{1, 2, 3}, {4, 5, 6}}, vecs)
	assert.Equal(t, DefaultModel, got.Model)
	assert.Equal(t, []string{"one", "two"}, got.Input)
}

func TestEmbeddingService_Embed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(embedResponse{Embeddings: [][]float32{{0.5, 0.25}}})
	}))
	defer server.Close()

	s := NewEmbeddingService(Config{BaseURL: server.URL, Dimensions: 2})
	vec, err := s.Embed(context.Background(), "text")

	require.NoError(t, err)
	assert.Equal(t, []float32{0.5, 0.25}, vec)
}

func TestEmbeddingService_RejectsMismatchedResponses(t *testing.T) {
	tests := []struct {
		name       string
		embeddings [][]float32
		wantErr    string
	}{
		{"wrong count", [][]float32{{1, 2}}, "got 1 embeddings for 2 inputs"},
		{"wrong dimension", [][]float32{{1, 2}, {1}}, "embedding 1 has 1 dimensions"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				_ = json.NewEncoder(w).Encode(embedResponse{Embeddings: tt.embeddings})
			}))
			defer server.Close()

			s := NewEmbeddingService(Config{BaseURL: server.URL, Dimensions: 2})
			_, err := s.EmbedBatch(context.Background(), []string{"a", "b"})

			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestEmbeddingService_ServerErrorIsTransient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	_, err := NewEmbeddingService(Config{BaseURL: server.URL}).Embed(context.Background(), "x")

	require.Error(t, err)
	assert.True(t, domain.IsTransient(err))
}

func TestEmbeddingService_EmptyBatch(t *testing.T) {
	vecs, err := NewEmbeddingService(Config{}).EmbedBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, vecs)
}

func TestEmbeddingService_Ping(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	err := NewEmbeddingService(Config{BaseURL: server.URL}).Ping(context.Background())
	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
}
