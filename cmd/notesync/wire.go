package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/custodia-labs/notesync/internal/adapters/driven/ai"
	"github.com/custodia-labs/notesync/internal/adapters/driven/config/file"
	"github.com/custodia-labs/notesync/internal/adapters/driven/storage"
	"github.com/custodia-labs/notesync/internal/adapters/driven/tokenizer/tiktoken"
	"github.com/custodia-labs/notesync/internal/adapters/driving/cli"
	"github.com/custodia-labs/notesync/internal/connectors/filesystem"
	"github.com/custodia-labs/notesync/internal/connectors/notion"
	"github.com/custodia-labs/notesync/internal/core/domain"
	"github.com/custodia-labs/notesync/internal/core/ports/driven"
	"github.com/custodia-labs/notesync/internal/core/services"
	"github.com/custodia-labs/notesync/internal/logger"
	"github.com/custodia-labs/notesync/internal/postprocessors/chunker"
	"github.com/custodia-labs/notesync/internal/postprocessors/relations"
	"github.com/custodia-labs/notesync/internal/retry"
)

// build loads the configuration and wires every adapter into the core services.
func build(ctx context.Context, opts cli.Options) (*cli.Services, error) {
	cfg, err := file.Load(opts.ConfigPath)
	if err != nil {
		return nil, err
	}
	logger.Debug("data directory: %s", cfg.DataDir)

	aiServices, err := ai.NewServices(cfg)
	if err != nil {
		return nil, err
	}
	closers := []func() error{aiServices.Close}
	closeAll := func() error {
		var errs []error
		for i := len(closers) - 1; i >= 0; i-- {
			errs = append(errs, closers[i]())
		}
		return errors.Join(errs...)
	}
	fail := func(err error) (*cli.Services, error) {
		_ = closeAll()
		return nil, err
	}

	for _, w := range aiServices.Check(ctx) {
		logger.Warn("%s", w)
	}

	tok, err := tiktoken.New("")
	if err != nil {
		return fail(err)
	}

	prompts, err := file.NewPromptStore(filepath.Join(cfg.DataDir, "prompts"), map[string]string{
		driven.PromptChunking:      chunker.DefaultChunkingPrompt,
		driven.PromptChunkSummary:  chunker.DefaultChunkSummaryPrompt,
		driven.PromptRelationships: relations.DefaultRelationshipsPrompt,
	})
	if err != nil {
		return fail(err)
	}

	retryCfg := retry.FromSettings(cfg.Retry)
	stats := services.NewSyncStats(nil)
	gate := services.NewRateGate(rateDelays(cfg), stats)

	llm := services.NewGatedLLM(aiServices.LLM, gate, retryCfg)
	summary := llm
	if aiServices.SummaryLLM != aiServices.LLM {
		summary = services.NewGatedLLM(aiServices.SummaryLLM, gate, retryCfg)
	}

	segmenter := chunker.New(llm, tok,
		chunker.WithSummaryLLM(summary),
		chunker.WithPromptStore(prompts),
		chunker.WithWindow(cfg.Chunking.TargetTokens, cfg.Chunking.OverlapTokens, cfg.Chunking.MinChunkTokens),
	)

	source, err := newSource(cfg, stats)
	if err != nil {
		return fail(err)
	}
	closers = append(closers, source.Close)

	bindings := make([]services.StoreBinding, 0, len(cfg.Stores))
	for _, name := range cfg.EnabledStores() {
		storeCfg := cfg.Stores[name]
		store, err := storage.Open(ctx, name, storeCfg, cfg.DataDir, cfg.Embedding.Dimensions)
		if err != nil {
			return fail(fmt.Errorf("opening store %s: %w", name, err))
		}
		closers = append(closers, store.Close)
		bindings = append(bindings, services.StoreBinding{
			Name:          name,
			Store:         store,
			Relationships: storeCfg.SupportsRelationships,
		})
		logger.Debug("store %s (%s) opened", name, storeCfg.Type)
	}

	syncOpts := []services.SyncOption{services.WithRetry(retryCfg)}
	if cfg.RelationshipExtraction.Enabled {
		syncOpts = append(syncOpts, services.WithExtractor(relations.New(llm, prompts)))
	}
	if aiServices.Embedding != nil {
		syncOpts = append(syncOpts, services.WithEmbedder(aiServices.Embedding))
	}

	orchestrator := services.NewSyncOrchestrator(source, segmenter, bindings, stats, syncOpts...)

	return &cli.Services{
		Sync:     orchestrator,
		Document: services.NewDocumentService(readStore(bindings)),
		DataDir:  cfg.DataDir,
		Close:    closeAll,
	}, nil
}

// newSource creates the configured document source.
func newSource(cfg *domain.Config, stats *services.SyncStats) (driven.DocumentSource, error) {
	switch cfg.Source.Type {
	case domain.SourceTypeNotion:
		c, err := notion.New(notion.Config{
			Token:             cfg.Source.Notion.Token,
			RequestsPerSecond: cfg.Source.Notion.RequestsPerSecond,
		}, notion.WithRateLimitObserver(stats.RateLimited))
		if err != nil {
			return nil, err
		}
		return c, nil
	case domain.SourceTypeFilesystem:
		root, err := file.ExpandHome(cfg.Source.Filesystem.Path)
		if err != nil {
			return nil, fmt.Errorf("%w: source.filesystem.path: %w", domain.ErrConfiguration, err)
		}
		return filesystem.New(root), nil
	default:
		return nil, fmt.Errorf("%w: unknown source type %q", domain.ErrConfiguration, cfg.Source.Type)
	}
}

// rateDelays returns the configured minimum delay per model provider.
func rateDelays(cfg *domain.Config) map[string]time.Duration {
	delays := make(map[string]time.Duration, len(cfg.RateLimits))
	for provider := range cfg.RateLimits {
		delays[provider] = cfg.RateLimit(provider)
	}
	return delays
}

// readStore picks the store that answers document queries: the first
// relationship-capable store, else the first store.
func readStore(bindings []services.StoreBinding) driven.StoreAdapter {
	for _, b := range bindings {
		if b.Relationships && b.Store.Capabilities().Relationships {
			return b.Store
		}
	}
	return bindings[0].Store
}
