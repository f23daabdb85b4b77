package metric

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// RetryConfig configures retry behavior for provider fetches.
//
// Retries are a phase-level policy: the default is zero retries, so a
// provider failure surfaces immediately unless the caller opts in.
type RetryConfig struct {
	// MaxRetries is the number of retry attempts after the first failure.
	// Default: 0 (no retry).
	MaxRetries int `json:"max_retries" koanf:"max_retries"`

	// InitialBackoff is the delay before the first retry.
	// Default: 1 second.
	InitialBackoff time.Duration `json:"initial_backoff" koanf:"initial_backoff"`

	// MaxBackoff caps the backoff growth.
	// Default: 30 seconds.
	MaxBackoff time.Duration `json:"max_backoff" koanf:"max_backoff"`

	// BackoffMultiplier grows the backoff between attempts.
	// Default: 2.
	BackoffMultiplier float64 `json:"backoff_multiplier" koanf:"backoff_multiplier"`
}

// DefaultRetryConfig returns the retry defaults.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:        0,
		InitialBackoff:    time.Second,
		MaxBackoff:        30 * time.Second,
		BackoffMultiplier: 2.0,
	}
}

// ApplyDefaults fills unset duration and multiplier fields. MaxRetries is
// left alone: zero is a meaningful value.
func (c *RetryConfig) ApplyDefaults() {
	defaults := DefaultRetryConfig()
	if c.InitialBackoff == 0 {
		c.InitialBackoff = defaults.InitialBackoff
	}
	if c.MaxBackoff == 0 {
		c.MaxBackoff = defaults.MaxBackoff
	}
	if c.BackoffMultiplier == 0 {
		c.BackoffMultiplier = defaults.BackoffMultiplier
	}
}

// RetryingProvider retries fetches with exponential backoff.
type RetryingProvider struct {
	inner  Provider
	config RetryConfig
	logger *zap.Logger
}

// NewRetryingProvider wraps inner with the given retry policy.
func NewRetryingProvider(inner Provider, config RetryConfig, logger *zap.Logger) *RetryingProvider {
	config.ApplyDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RetryingProvider{
		inner:  inner,
		config: config,
		logger: logger,
	}
}

// Fetch attempts the fetch up to 1+MaxRetries times. Context cancellation
// aborts both in-flight fetches and backoff sleeps and is never retried.
func (p *RetryingProvider) Fetch(ctx context.Context, target string) (Set, error) {
	backoff := p.config.InitialBackoff

	var lastErr error
	for attempt := 0; attempt <= p.config.MaxRetries; attempt++ {
		if attempt > 0 {
			p.logger.Debug("retrying metric fetch",
				zap.String("target", target),
				zap.Int("attempt", attempt),
				zap.Duration("backoff", backoff),
			)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
			backoff = time.Duration(float64(backoff) * p.config.BackoffMultiplier)
			if backoff > p.config.MaxBackoff {
				backoff = p.config.MaxBackoff
			}
		}

		metrics, err := p.inner.Fetch(ctx, target)
		if err == nil {
			return metrics, nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		lastErr = err
	}

	return nil, &ProviderError{
		Provider: "retrying",
		Err:      fmt.Errorf("exhausted %d retries: %w", p.config.MaxRetries, lastErr),
	}
}
