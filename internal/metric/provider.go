package metric

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

// Provider supplies metric values for an assessment target.
//
// Implementations wrap CI systems, static analyzers, or monitoring APIs.
// Every fetch crosses an I/O boundary and must honor context cancellation.
// Providers return deterministic, typed values; placeholder randomness is
// not an acceptable implementation.
type Provider interface {
	// Fetch returns the metric set for the target.
	Fetch(ctx context.Context, target string) (Set, error)
}

// ProviderError wraps a failure from an external metric source. The owning
// workflow phase decides whether to retry; the error never aborts phases
// that do not depend on the provider.
type ProviderError struct {
	Provider string
	Err      error
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	return fmt.Sprintf("metric provider %s: %v", e.Provider, e.Err)
}

// Unwrap allows errors.Is and errors.As to reach the underlying cause.
func (e *ProviderError) Unwrap() error {
	return e.Err
}

// StaticProvider returns a fixed metric set regardless of target. It is the
// provider used for request-supplied metrics: the calling CI system already
// measured everything and hands the values over in the AssessmentRequest.
type StaticProvider struct {
	metrics Set
}

// NewStaticProvider creates a provider serving the given set.
func NewStaticProvider(metrics Set) *StaticProvider {
	return &StaticProvider{metrics: metrics}
}

// Fetch returns a copy of the configured set. The copy keeps the provider's
// backing set immutable even if a caller mutates the result.
func (p *StaticProvider) Fetch(ctx context.Context, target string) (Set, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make(Set, len(p.metrics))
	for name, m := range p.metrics {
		out[name] = m
	}
	return out, nil
}

// RateLimitedProvider throttles fetches against an upstream provider.
// External metric sources (monitoring APIs, CI systems) commonly enforce
// request quotas; the limiter keeps the orchestrator inside them.
type RateLimitedProvider struct {
	inner   Provider
	limiter *rate.Limiter
}

// NewRateLimitedProvider wraps inner with a token-bucket limiter allowing
// rps fetches per second with the given burst.
func NewRateLimitedProvider(inner Provider, rps float64, burst int) *RateLimitedProvider {
	return &RateLimitedProvider{
		inner:   inner,
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
	}
}

// Fetch waits for limiter capacity, then delegates. A cancelled context
// aborts the wait.
func (p *RateLimitedProvider) Fetch(ctx context.Context, target string) (Set, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return p.inner.Fetch(ctx, target)
}
