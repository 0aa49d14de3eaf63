package services

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/notesync/internal/core/ports/driven"
	"github.com/custodia-labs/notesync/internal/logger"
	"github.com/custodia-labs/notesync/internal/retry"
)

// RateGate paces calls to each LLM provider so that consecutive calls are
// at least the provider's configured delay apart. One gate is shared by
// every component that invokes a model.
type RateGate struct {
	mu       sync.Mutex
	delays   map[string]time.Duration
	limiters map[string]*rate.Limiter
	stats    *SyncStats
}

// NewRateGate creates a gate. Providers without a positive delay are not paced.
// stats may be nil.
func NewRateGate(delays map[string]time.Duration, stats *SyncStats) *RateGate {
	d := make(map[string]time.Duration, len(delays))
	for provider, delay := range delays {
		if delay > 0 {
			d[provider] = delay
		}
	}
	return &RateGate{
		delays:   d,
		limiters: make(map[string]*rate.Limiter),
		stats:    stats,
	}
}

// Wait blocks until a call to provider is allowed.
func (g *RateGate) Wait(ctx context.Context, provider string) error {
	g.mu.Lock()
	lim, ok := g.limiters[provider]
	if !ok {
		delay, paced := g.delays[provider]
		if !paced {
			g.mu.Unlock()
			return nil
		}
		lim = rate.NewLimiter(rate.Every(delay), 1)
		g.limiters[provider] = lim
	}
	reservation := lim.Reserve()
	g.mu.Unlock()

	wait := reservation.Delay()
	if wait <= 0 {
		return nil
	}

	logger.Info("Rate limiting: sleeping for %.1fs before %s call", wait.Seconds(), provider)
	if g.stats != nil {
		g.stats.RateLimited(wait)
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		reservation.Cancel()
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Ensure GatedLLM implements the interface.
var _ driven.LLMService = (*GatedLLM)(nil)

// GatedLLM paces and retries calls to an LLM service.
type GatedLLM struct {
	inner driven.LLMService
	gate  *RateGate
	retry retry.Config
}

// NewGatedLLM wraps llm so every Generate waits on gate and retries transient failures.
func NewGatedLLM(llm driven.LLMService, gate *RateGate, cfg retry.Config) *GatedLLM {
	return &GatedLLM{inner: llm, gate: gate, retry: cfg}
}

// Generate waits for the provider's slot, then calls the wrapped service.
func (g *GatedLLM) Generate(ctx context.Context, prompt string, opts driven.GenerateOptions) (string, error) {
	return retry.DoWithResult(ctx, g.retry, func() (string, error) {
		if err := g.gate.Wait(ctx, g.inner.Provider()); err != nil {
			return "", err
		}
		return g.inner.Generate(ctx, prompt, opts)
	})
}

// ModelName returns the wrapped model name.
func (g *GatedLLM) ModelName() string { return g.inner.ModelName() }

// Provider returns the wrapped provider.
func (g *GatedLLM) Provider() string { return g.inner.Provider() }

// Ping checks the wrapped service without pacing.
func (g *GatedLLM) Ping(ctx context.Context) error { return g.inner.Ping(ctx) }

// Close closes the wrapped service.
func (g *GatedLLM) Close() error { return g.inner.Close() }
