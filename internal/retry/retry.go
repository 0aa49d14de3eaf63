// Package retry runs fallible operations with exponential backoff.
// Only errors classified as transient (domain.ErrTransient, domain.ErrRateLimited)
// are retried; any other error is returned immediately.
package retry

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/custodia-labs/notesync/internal/core/domain"
	"github.com/custodia-labs/notesync/internal/logger"
)

// Config configures retry behaviour.
type Config struct {
	// MaxRetries is the maximum number of retry attempts (not including initial attempt).
	MaxRetries int

	// InitialDelay is the delay before the first retry.
	InitialDelay time.Duration

	// MaxDelay is the maximum delay between retries.
	MaxDelay time.Duration

	// Multiplier is the factor by which delay increases after each retry.
	Multiplier float64

	// Jitter adds randomness to delay to prevent thundering herd.
	Jitter bool

	// Retryable decides whether an error is retried. Defaults to domain.IsTransient.
	Retryable func(error) bool
}

// DefaultConfig returns the default backoff: 3 retries from 1s doubling to 16s.
func DefaultConfig() Config {
	return Config{
		MaxRetries:   domain.DefaultMaxRetries,
		InitialDelay: time.Second,
		MaxDelay:     16 * time.Second,
		Multiplier:   2.0,
	}
}

// FromSettings builds a Config from the retry section of the configuration.
func FromSettings(s domain.RetrySettings) Config {
	cfg := DefaultConfig()
	cfg.MaxRetries = s.MaxRetries
	if d := s.InitialDelay(); d > 0 {
		cfg.InitialDelay = d
	}
	if d := s.MaxDelay(); d > 0 {
		cfg.MaxDelay = d
	}
	return cfg
}

// Do executes fn, retrying transient failures with exponential backoff.
func Do(ctx context.Context, cfg Config, fn func() error) error {
	_, err := DoWithResult(ctx, cfg, func() (struct{}, error) {
		return struct{}{}, fn()
	})
	return err
}

// DoWithResult executes fn, retrying transient failures with exponential backoff.
// If the context is cancelled, it returns the context error immediately.
func DoWithResult[T any](ctx context.Context, cfg Config, fn func() (T, error)) (T, error) {
	var zero T
	retryable := cfg.Retryable
	if retryable == nil {
		retryable = domain.IsTransient
	}
	multiplier := cfg.Multiplier
	if multiplier < 1 {
		multiplier = 2.0
	}

	delay := cfg.InitialDelay
	var lastErr error

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		result, err := fn()
		if err == nil {
			return result, nil
		}
		if !retryable(err) {
			return zero, err
		}
		lastErr = err

		if attempt >= cfg.MaxRetries {
			break
		}

		wait := delay
		if cfg.Jitter {
			wait = time.Duration(float64(delay) * (0.5 + rand.Float64()*0.5)) //nolint:gosec // jitter only
		}
		logger.Debug("retry %d/%d in %s: %v", attempt+1, cfg.MaxRetries, wait, err)

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, ctx.Err()
		case <-timer.C:
		}

		delay = time.Duration(float64(delay) * multiplier)
		if cfg.MaxDelay > 0 && delay > cfg.MaxDelay {
			delay = cfg.MaxDelay
		}
	}

	return zero, fmt.Errorf("failed after %d retries: %w", cfg.MaxRetries, lastErr)
}
