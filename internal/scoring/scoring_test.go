package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/readygate/internal/metric"
)

func TestWeights_Validate(t *testing.T) {
	tests := []struct {
		name    string
		weights Weights
		wantErr bool
	}{
		{name: "defaults", weights: DefaultWeights()},
		{name: "exact sum", weights: Weights{"a": 0.5, "b": 0.5}},
		{name: "within epsilon", weights: Weights{"a": 0.5, "b": 0.5 + 1e-9}},
		{name: "empty", weights: Weights{}, wantErr: true},
		{name: "sum below one", weights: Weights{"a": 0.5, "b": 0.4}, wantErr: true},
		{name: "sum above one", weights: Weights{"a": 0.7, "b": 0.5}, wantErr: true},
		{name: "negative weight", weights: Weights{"a": -0.1, "b": 1.1}, wantErr: true},
		{name: "weight above one", weights: Weights{"a": 1.5, "b": -0.5}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.weights.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNormalization_Apply(t *testing.T) {
	tests := []struct {
		name  string
		rule  Normalization
		value float64
		want  float64
	}{
		{name: "passthrough in range", rule: Normalization{}, value: 85, want: 85},
		{name: "passthrough clamps high", rule: Normalization{}, value: 140, want: 100},
		{name: "passthrough clamps negative", rule: Normalization{}, value: -3, want: 0},
		{name: "invert below target", rule: Normalization{Invert: true, Target: 20}, value: 6, want: 70},
		{name: "invert at target", rule: Normalization{Invert: true, Target: 20}, value: 20, want: 0},
		{name: "invert above target floors at zero", rule: Normalization{Invert: true, Target: 20}, value: 35, want: 0},
		{name: "invert at zero", rule: Normalization{Invert: true, Target: 20}, value: 0, want: 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, tt.rule.Apply(tt.value), 1e-9)
		})
	}
}

func TestNormalization_Validate(t *testing.T) {
	assert.NoError(t, Normalization{}.Validate())
	assert.NoError(t, Normalization{Invert: true, Target: 15}.Validate())
	assert.Error(t, Normalization{Invert: true}.Validate())
	assert.Error(t, Normalization{Invert: true, Target: -1}.Validate())
}

func TestScorer_Score(t *testing.T) {
	scorer, err := NewScorer(map[string]Normalization{
		"complexity": {Invert: true, Target: 20},
	})
	require.NoError(t, err)

	metrics := metric.NewSet(map[string]float64{
		"coverage":   90,
		"complexity": 5,
	})
	weights := Weights{"coverage": 0.6, "complexity": 0.4}

	result, err := scorer.Score(metrics, weights)
	require.NoError(t, err)

	// coverage 90*0.6 + normalized complexity 75*0.4 = 54 + 30.
	assert.InDelta(t, 84.0, result.Score, 1e-9)
	assert.False(t, result.Incomplete)
	assert.Empty(t, result.Missing)
	assert.InDelta(t, 75.0, result.Components["complexity"], 1e-9)
}

func TestScorer_MissingMetricIsConservative(t *testing.T) {
	scorer, err := NewScorer(nil)
	require.NoError(t, err)

	metrics := metric.NewSet(map[string]float64{"coverage": 100})
	weights := Weights{"coverage": 0.5, "pass_rate": 0.5}

	result, err := scorer.Score(metrics, weights)
	require.NoError(t, err)

	assert.True(t, result.Incomplete)
	assert.Equal(t, []string{"pass_rate"}, result.Missing)
	assert.InDelta(t, 50.0, result.Score, 1e-9)
}

func TestScorer_Deterministic(t *testing.T) {
	scorer, err := NewScorer(map[string]Normalization{
		"complexity": {Invert: true, Target: 15},
	})
	require.NoError(t, err)

	metrics := metric.NewSet(map[string]float64{
		"coverage":   87.3,
		"complexity": 6.2,
		"pass_rate":  99.1,
	})
	weights := Weights{"coverage": 0.4, "complexity": 0.3, "pass_rate": 0.3}

	first, err := scorer.Score(metrics, weights)
	require.NoError(t, err)

	for i := 0; i < 50; i++ {
		again, err := scorer.Score(metrics, weights)
		require.NoError(t, err)
		assert.Equal(t, first.Score, again.Score)
	}
}

func TestScorer_InvalidWeightsRejected(t *testing.T) {
	scorer, err := NewScorer(nil)
	require.NoError(t, err)

	_, err = scorer.Score(metric.NewSet(nil), Weights{"a": 0.3})
	assert.Error(t, err)
}

func TestNewScorer_InvalidNormalization(t *testing.T) {
	_, err := NewScorer(map[string]Normalization{
		"complexity": {Invert: true, Target: 0},
	})
	assert.Error(t, err)
}
