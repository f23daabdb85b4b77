package gates

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/readygate/internal/metric"
)

func TestRule_Validate(t *testing.T) {
	tests := []struct {
		name    string
		rule    Rule
		wantErr bool
	}{
		{name: "at_least", rule: Rule{Metric: "coverage", Comparison: AtLeast, Threshold: 75}},
		{name: "at_most", rule: Rule{Metric: "debt_ratio", Comparison: AtMost, Threshold: 0.3}},
		{name: "missing metric name", rule: Rule{Comparison: AtLeast}, wantErr: true},
		{name: "unknown comparison", rule: Rule{Metric: "coverage", Comparison: "above"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.rule.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestEvaluator_AllPass(t *testing.T) {
	e, err := NewEvaluator([]Rule{
		{Metric: "coverage", Comparison: AtLeast, Threshold: 75},
		{Metric: "complexity", Comparison: AtMost, Threshold: 10},
	})
	require.NoError(t, err)

	summary := e.Evaluate(metric.NewSet(map[string]float64{
		"coverage":   96,
		"complexity": 6,
	}))

	assert.Equal(t, 100.0, summary.CompliancePct)
	assert.True(t, summary.Passed(DefaultMinCompliance))
	assert.Empty(t, summary.Warnings)
	require.Len(t, summary.Results, 2)
	assert.InDelta(t, 21.0, summary.Results[0].Deviation, 1e-9)
	assert.InDelta(t, 4.0, summary.Results[1].Deviation, 1e-9)
}

func TestEvaluator_FailingGate(t *testing.T) {
	e, err := NewEvaluator([]Rule{
		{Metric: "coverage", Comparison: AtLeast, Threshold: 75},
	})
	require.NoError(t, err)

	summary := e.Evaluate(metric.NewSet(map[string]float64{"coverage": 40}))

	require.Len(t, summary.Results, 1)
	assert.False(t, summary.Results[0].Passed)
	assert.InDelta(t, -35.0, summary.Results[0].Deviation, 1e-9)
	assert.Equal(t, 0.0, summary.CompliancePct)
	assert.False(t, summary.Passed(DefaultMinCompliance))
}

func TestEvaluator_MissingMetricDegradesGate(t *testing.T) {
	e, err := NewEvaluator([]Rule{
		{Metric: "coverage", Comparison: AtLeast, Threshold: 75},
		{Metric: "pass_rate", Comparison: AtLeast, Threshold: 95},
	})
	require.NoError(t, err)

	summary := e.Evaluate(metric.NewSet(map[string]float64{"coverage": 96}))

	require.Len(t, summary.Results, 2)
	missing := summary.Results[1]
	assert.False(t, missing.Passed)
	assert.True(t, missing.Missing)
	assert.True(t, math.IsNaN(missing.Deviation))

	require.Len(t, summary.Warnings, 1)
	assert.Equal(t, "pass_rate", summary.Warnings[0].Metric)
	assert.ErrorIs(t, summary.Warnings[0].Err, ErrMissingMetric)

	assert.Equal(t, 50.0, summary.CompliancePct)
}

func TestEvaluator_AtMostBoundary(t *testing.T) {
	e, err := NewEvaluator([]Rule{
		{Metric: "debt_ratio", Comparison: AtMost, Threshold: 0.3},
	})
	require.NoError(t, err)

	// Exactly at the threshold passes for both directions.
	summary := e.Evaluate(metric.NewSet(map[string]float64{"debt_ratio": 0.3}))
	assert.True(t, summary.Results[0].Passed)
	assert.InDelta(t, 0.0, summary.Results[0].Deviation, 1e-9)
}

func TestEvaluator_NoRules(t *testing.T) {
	e, err := NewEvaluator(nil)
	require.NoError(t, err)

	summary := e.Evaluate(metric.NewSet(nil))
	assert.Equal(t, 100.0, summary.CompliancePct)
	assert.Empty(t, summary.Results)
}

// Gate monotonicity: raising the value of an at_least metric never flips a
// passing gate to failing, and lowering an at_most metric likewise.
func TestEvaluator_Monotonicity(t *testing.T) {
	e, err := NewEvaluator([]Rule{
		{Metric: "coverage", Comparison: AtLeast, Threshold: 75},
		{Metric: "debt_ratio", Comparison: AtMost, Threshold: 0.5},
	})
	require.NoError(t, err)

	for cov := 75.0; cov <= 100; cov += 5 {
		summary := e.Evaluate(metric.NewSet(map[string]float64{
			"coverage":   cov,
			"debt_ratio": 0.5,
		}))
		assert.True(t, summary.Results[0].Passed, "coverage %v must pass", cov)
	}
	for ratio := 0.5; ratio >= 0; ratio -= 0.1 {
		summary := e.Evaluate(metric.NewSet(map[string]float64{
			"coverage":   80,
			"debt_ratio": ratio,
		}))
		assert.True(t, summary.Results[1].Passed, "debt_ratio %v must pass", ratio)
	}
}

func TestNewEvaluator_RejectsBadRule(t *testing.T) {
	_, err := NewEvaluator([]Rule{{Metric: "coverage", Comparison: "sideways"}})
	assert.Error(t, err)
}
