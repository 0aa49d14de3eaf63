// Package ai provides factory functions for creating AI service adapters.
package ai

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/notesync/internal/adapters/driven/embedding/cached"
	ollamaembed "github.com/custodia-labs/notesync/internal/adapters/driven/embedding/ollama"
	openaiembed "github.com/custodia-labs/notesync/internal/adapters/driven/embedding/openai"
	anthropicllm "github.com/custodia-labs/notesync/internal/adapters/driven/llm/anthropic"
	ollamallm "github.com/custodia-labs/notesync/internal/adapters/driven/llm/ollama"
	openaillm "github.com/custodia-labs/notesync/internal/adapters/driven/llm/openai"
	"github.com/custodia-labs/notesync/internal/core/domain"
	"github.com/custodia-labs/notesync/internal/core/ports/driven"
)

// pingTimeout is the maximum time to wait for service connectivity validation.
const pingTimeout = 5 * time.Second

// Services holds the AI adapters a sync pass uses.
type Services struct {
	// LLM segments documents and extracts relationships.
	LLM driven.LLMService

	// SummaryLLM writes fallback chunk summaries. Same as LLM unless a
	// summary model is configured.
	SummaryLLM driven.LLMService

	// Embedding is nil when no embedding provider is configured.
	Embedding driven.EmbeddingService
}

// Close releases all resources held by the services.
func (s *Services) Close() error {
	var errs []error
	if s.Embedding != nil {
		errs = append(errs, s.Embedding.Close())
	}
	if s.SummaryLLM != nil && s.SummaryLLM != s.LLM {
		errs = append(errs, s.SummaryLLM.Close())
	}
	if s.LLM != nil {
		errs = append(errs, s.LLM.Close())
	}
	return errors.Join(errs...)
}

// NewServices builds every AI adapter named by the configuration.
func NewServices(cfg *domain.Config) (*Services, error) {
	llm, err := CreateLLMService(cfg.Model, cfg.Model.ModelName())
	if err != nil {
		return nil, err
	}

	summary := llm
	if cfg.Model.SummaryModel != "" && cfg.Model.SummaryModel != llm.ModelName() {
		summary, err = CreateLLMService(cfg.Model, cfg.Model.SummaryModel)
		if err != nil {
			return nil, err
		}
	}

	embedding, err := CreateEmbeddingService(cfg.Embedding)
	if err != nil {
		return nil, err
	}

	return &Services{LLM: llm, SummaryLLM: summary, Embedding: embedding}, nil
}

// Check pings each service and returns a warning per unreachable one.
// Unreachable models are not fatal: segmentation falls back to token windows.
func (s *Services) Check(ctx context.Context) []string {
	var warnings []string

	ping := func(name string, fn func(context.Context) error) {
		pctx, cancel := context.WithTimeout(ctx, pingTimeout)
		defer cancel()
		if err := fn(pctx); err != nil {
			warnings = append(warnings, fmt.Sprintf("%s unreachable: %v", name, err))
		}
	}

	ping("llm", s.LLM.Ping)
	if s.SummaryLLM != s.LLM {
		ping("summary llm", s.SummaryLLM.Ping)
	}
	if s.Embedding != nil {
		ping("embedding", s.Embedding.Ping)
	}
	return warnings
}

// CreateLLMService creates the LLM adapter for the configured provider and the given model.
func CreateLLMService(settings domain.ModelSettings, model string) (driven.LLMService, error) {
	switch settings.Provider {
	case domain.AIProviderOllama:
		return ollamallm.NewLLMService(ollamallm.LLMConfig{
			BaseURL: settings.BaseURL,
			Model:   model,
		}), nil

	case domain.AIProviderOpenAI, domain.AIProviderGroq:
		svc, err := openaillm.NewLLMService(openaillm.LLMConfig{
			APIKey:   settings.APIKey,
			BaseURL:  settings.BaseURL,
			Model:    model,
			Provider: settings.Provider,
		})
		if err != nil {
			return nil, err
		}
		return svc, nil

	case domain.AIProviderAnthropic:
		svc, err := anthropicllm.NewLLMService(anthropicllm.Config{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   model,
		})
		if err != nil {
			return nil, err
		}
		return svc, nil

	default:
		return nil, fmt.Errorf("%w: unsupported LLM provider: %s", domain.ErrConfiguration, settings.Provider)
	}
}

// CreateEmbeddingService creates the embedding adapter wrapped in an LRU cache.
// Returns nil if no embedding provider is configured.
func CreateEmbeddingService(settings domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	if settings.Provider == "" {
		return nil, nil
	}

	var inner driven.EmbeddingService
	switch settings.Provider {
	case domain.AIProviderOllama:
		inner = ollamaembed.NewEmbeddingService(ollamaembed.Config{
			BaseURL:    settings.BaseURL,
			Model:      settings.Model,
			Dimensions: settings.Dimensions,
		})

	case domain.AIProviderOpenAI:
		svc, err := openaiembed.NewEmbeddingService(openaiembed.Config{
			APIKey:     settings.APIKey,
			BaseURL:    settings.BaseURL,
			Model:      settings.Model,
			Dimensions: settings.Dimensions,
		})
		if err != nil {
			return nil, err
		}
		inner = svc

	case domain.AIProviderAnthropic, domain.AIProviderGroq:
		return nil, fmt.Errorf("%w: %s does not support embeddings, use ollama or openai",
			domain.ErrConfiguration, settings.Provider)

	default:
		return nil, fmt.Errorf("%w: unsupported embedding provider: %s", domain.ErrConfiguration, settings.Provider)
	}

	return cached.New(inner, settings.CacheSize), nil
}
