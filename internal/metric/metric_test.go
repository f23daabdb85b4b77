package metric

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSet(t *testing.T) {
	s := NewSet(map[string]float64{"coverage": 96, "pass_rate": 99.2})

	require.Len(t, s, 2)
	v, ok := s.Value("coverage")
	require.True(t, ok)
	assert.Equal(t, 96.0, v)
	assert.Equal(t, UnitPercent, s["coverage"].Unit)
}

func TestSet_Put(t *testing.T) {
	s := NewSet(nil)
	s.Put("debt_hours", 120, UnitHours)

	m, ok := s["debt_hours"]
	require.True(t, ok)
	assert.Equal(t, 120.0, m.Value)
	assert.Equal(t, UnitHours, m.Unit)
}

func TestSet_NamesSorted(t *testing.T) {
	s := NewSet(map[string]float64{"zeta": 1, "alpha": 2, "mid": 3})

	assert.Equal(t, []string{"alpha", "mid", "zeta"}, s.Names())
}

func TestSet_Merge(t *testing.T) {
	base := NewSet(map[string]float64{"coverage": 50, "complexity": 8})
	override := NewSet(map[string]float64{"coverage": 96})

	merged := base.Merge(override)

	v, _ := merged.Value("coverage")
	assert.Equal(t, 96.0, v)
	v, _ = merged.Value("complexity")
	assert.Equal(t, 8.0, v)

	// Merge must not mutate the receivers.
	v, _ = base.Value("coverage")
	assert.Equal(t, 50.0, v)
}

func TestMetric_Validate(t *testing.T) {
	tests := []struct {
		name    string
		metric  Metric
		wantErr bool
	}{
		{name: "valid", metric: Metric{Name: "coverage", Value: 96, Unit: UnitPercent}},
		{name: "missing name", metric: Metric{Value: 1}, wantErr: true},
		{name: "NaN value", metric: Metric{Name: "coverage", Value: math.NaN()}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.metric.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestStaticProvider_Fetch(t *testing.T) {
	p := NewStaticProvider(NewSet(map[string]float64{"coverage": 96}))

	got, err := p.Fetch(context.Background(), "svc-a")
	require.NoError(t, err)
	v, ok := got.Value("coverage")
	require.True(t, ok)
	assert.Equal(t, 96.0, v)

	// Returned set is a copy; mutating it must not leak into the provider.
	got.Put("coverage", 0, UnitPercent)
	again, err := p.Fetch(context.Background(), "svc-a")
	require.NoError(t, err)
	v, _ = again.Value("coverage")
	assert.Equal(t, 96.0, v)
}

func TestStaticProvider_CancelledContext(t *testing.T) {
	p := NewStaticProvider(NewSet(map[string]float64{"coverage": 96}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Fetch(ctx, "svc-a")
	assert.ErrorIs(t, err, context.Canceled)
}

// failingProvider fails a fixed number of times, then succeeds.
type failingProvider struct {
	failures int
	calls    int
}

func (p *failingProvider) Fetch(ctx context.Context, target string) (Set, error) {
	p.calls++
	if p.calls <= p.failures {
		return nil, errors.New("upstream unavailable")
	}
	return NewSet(map[string]float64{"coverage": 90}), nil
}

func TestRetryingProvider_NoRetryByDefault(t *testing.T) {
	inner := &failingProvider{failures: 1}
	p := NewRetryingProvider(inner, RetryConfig{}, nil)

	_, err := p.Fetch(context.Background(), "svc-a")

	require.Error(t, err)
	var provErr *ProviderError
	assert.ErrorAs(t, err, &provErr)
	assert.Equal(t, 1, inner.calls)
}

func TestRetryingProvider_RecoversWithinBudget(t *testing.T) {
	inner := &failingProvider{failures: 2}
	p := NewRetryingProvider(inner, RetryConfig{
		MaxRetries:     3,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     2 * time.Millisecond,
	}, nil)

	got, err := p.Fetch(context.Background(), "svc-a")

	require.NoError(t, err)
	assert.Equal(t, 3, inner.calls)
	v, _ := got.Value("coverage")
	assert.Equal(t, 90.0, v)
}

func TestRetryingProvider_ExhaustsBudget(t *testing.T) {
	inner := &failingProvider{failures: 10}
	p := NewRetryingProvider(inner, RetryConfig{
		MaxRetries:     2,
		InitialBackoff: time.Millisecond,
	}, nil)

	_, err := p.Fetch(context.Background(), "svc-a")

	require.Error(t, err)
	assert.Equal(t, 3, inner.calls)
}

func TestRetryingProvider_CancellationNotRetried(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	inner := &failingProvider{failures: 10}
	p := NewRetryingProvider(inner, RetryConfig{MaxRetries: 5, InitialBackoff: time.Millisecond}, nil)

	_, err := p.Fetch(ctx, "svc-a")

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, inner.calls)
}

func TestRateLimitedProvider_Delegates(t *testing.T) {
	inner := NewStaticProvider(NewSet(map[string]float64{"coverage": 96}))
	p := NewRateLimitedProvider(inner, 100, 1)

	got, err := p.Fetch(context.Background(), "svc-a")
	require.NoError(t, err)
	v, _ := got.Value("coverage")
	assert.Equal(t, 96.0, v)
}
