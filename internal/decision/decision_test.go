package decision

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/readygate/internal/gates"
	"github.com/fyrsmithlabs/readygate/internal/risk"
)

func summaryWith(compliance float64, results ...gates.GateResult) gates.Summary {
	return gates.Summary{Results: results, CompliancePct: compliance}
}

func riskAt(overall float64, level risk.Level) risk.Assessment {
	return risk.Assessment{Overall: overall, Level: level}
}

func TestPolicy_Validate(t *testing.T) {
	assert.NoError(t, DefaultPolicy().Validate())

	bad := DefaultPolicy()
	bad.MinCompliance = 140
	assert.Error(t, bad.Validate())

	bad = DefaultPolicy()
	bad.MaxRisk = 1.2
	assert.Error(t, bad.Validate())

	bad = DefaultPolicy()
	bad.MinScore = -5
	assert.Error(t, bad.Validate())

	bad = DefaultPolicy()
	bad.VoteWeights = VoteWeights{Compliance: 0.9, Risk: 0.9, Score: 0.9}
	assert.Error(t, bad.Validate())
}

func TestEngine_ApprovesWhenAllPass(t *testing.T) {
	engine, err := NewEngine(DefaultPolicy())
	require.NoError(t, err)

	d := engine.Decide(92, summaryWith(100), riskAt(0.2, risk.LevelLow))

	assert.True(t, d.Approved)
	assert.InDelta(t, 1.0, d.Confidence, 1e-9)
}

// Conjunctive property: any single failing bound blocks approval
// regardless of the other two values.
func TestEngine_ConjunctiveGate(t *testing.T) {
	engine, err := NewEngine(DefaultPolicy())
	require.NoError(t, err)

	tests := []struct {
		name       string
		score      float64
		compliance float64
		overall    float64
	}{
		{name: "compliance fails alone", score: 100, compliance: 50, overall: 0.0},
		{name: "risk fails alone", score: 100, compliance: 100, overall: 0.9},
		{name: "score fails alone", score: 10, compliance: 100, overall: 0.0},
		{name: "all fail", score: 10, compliance: 10, overall: 0.95},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := engine.Decide(tt.score, summaryWith(tt.compliance), riskAt(tt.overall, risk.LevelHigh))
			assert.False(t, d.Approved)
			assert.NotEmpty(t, d.Reasoning)
		})
	}
}

func TestEngine_ApprovedMatchesSubDecisions(t *testing.T) {
	policy := DefaultPolicy()
	engine, err := NewEngine(policy)
	require.NoError(t, err)

	for _, score := range []float64{10, 70, 95} {
		for _, compliance := range []float64{50, 90, 100} {
			for _, overall := range []float64{0.1, 0.5, 0.9} {
				d := engine.Decide(score, summaryWith(compliance), riskAt(overall, risk.LevelMedium))
				want := compliance >= policy.MinCompliance &&
					overall <= policy.MaxRisk &&
					score >= policy.MinScore
				assert.Equal(t, want, d.Approved,
					"score=%v compliance=%v risk=%v", score, compliance, overall)
			}
		}
	}
}

func TestEngine_ConfidenceIsWeightedVotes(t *testing.T) {
	policy := DefaultPolicy()
	policy.VoteWeights = VoteWeights{Compliance: 0.5, Risk: 0.3, Score: 0.2}
	engine, err := NewEngine(policy)
	require.NoError(t, err)

	// Compliance passes, risk fails, score passes.
	d := engine.Decide(95, summaryWith(100), riskAt(0.9, risk.LevelCritical))

	assert.False(t, d.Approved)
	assert.InDelta(t, 0.7, d.Confidence, 1e-9)
}

func TestEngine_ReasoningDeterministic(t *testing.T) {
	engine, err := NewEngine(DefaultPolicy())
	require.NoError(t, err)

	failedGate := gates.GateResult{
		Rule:         gates.Rule{Metric: "coverage", Comparison: gates.AtLeast, Threshold: 75},
		CurrentValue: 40,
		Passed:       false,
		Deviation:    -35,
	}

	first := engine.Decide(60, summaryWith(50, failedGate), riskAt(0.8, risk.LevelCritical))
	for i := 0; i < 10; i++ {
		again := engine.Decide(60, summaryWith(50, failedGate), riskAt(0.8, risk.LevelCritical))
		assert.Equal(t, first.Reasoning, again.Reasoning)
	}

	require.NotEmpty(t, first.Reasoning)
	assert.Contains(t, first.Reasoning[0], "compliance")
	assert.Contains(t, first.Reasoning[1], "coverage")
}

func TestEngine_NearThresholdReasoning(t *testing.T) {
	policy := DefaultPolicy()
	policy.MinScore = 70
	policy.NearThresholdMargin = 5
	engine, err := NewEngine(policy)
	require.NoError(t, err)

	d := engine.Decide(72, summaryWith(100), riskAt(0.1, risk.LevelLow))

	assert.True(t, d.Approved)
	require.NotEmpty(t, d.Reasoning)
	assert.Contains(t, d.Reasoning[len(d.Reasoning)-1], "within")
}

func TestEngine_Tiers(t *testing.T) {
	engine, err := NewEngine(DefaultPolicy())
	require.NoError(t, err)

	tests := []struct {
		name       string
		score      float64
		compliance float64
		overall    float64
		want       Tier
	}{
		{name: "deploy", score: 96, compliance: 100, overall: 0.1, want: TierDeploy},
		{name: "monitored", score: 88, compliance: 95, overall: 0.2, want: TierDeployMonitored},
		{name: "staging on rejection", score: 75, compliance: 50, overall: 0.2, want: TierStagingOnly},
		{name: "not ready", score: 40, compliance: 20, overall: 0.9, want: TierNotReady},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := engine.Decide(tt.score, summaryWith(tt.compliance), riskAt(tt.overall, risk.LevelMedium))
			assert.Equal(t, tt.want, d.Tier)
		})
	}
}

func TestEngine_RecommendationsFromFailedGates(t *testing.T) {
	engine, err := NewEngine(DefaultPolicy())
	require.NoError(t, err)

	summary := summaryWith(0,
		gates.GateResult{
			Rule:         gates.Rule{Metric: "coverage", Comparison: gates.AtLeast, Threshold: 75},
			CurrentValue: 40,
		},
		gates.GateResult{
			Rule:    gates.Rule{Metric: "pass_rate", Comparison: gates.AtLeast, Threshold: 95},
			Missing: true,
		},
		gates.GateResult{
			Rule:         gates.Rule{Metric: "debt_ratio", Comparison: gates.AtMost, Threshold: 0.3},
			CurrentValue: 0.8,
		},
	)

	d := engine.Decide(40, summary, riskAt(0.8, risk.LevelCritical))

	require.GreaterOrEqual(t, len(d.Recommendations), 4)
	assert.Contains(t, d.Recommendations[0], "raise coverage")
	assert.Contains(t, d.Recommendations[1], "supply the pass_rate metric")
	assert.Contains(t, d.Recommendations[2], "reduce debt_ratio")
	assert.Contains(t, d.Recommendations[len(d.Recommendations)-1], "re-run")
}

func TestGrade(t *testing.T) {
	tests := []struct {
		score float64
		want  string
	}{
		{99, "A+"}, {95, "A+"}, {91, "A"}, {87, "B+"}, {82, "B"}, {76, "C+"}, {72, "C"}, {66, "D"}, {30, "F"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Grade(tt.score), "score=%v", tt.score)
	}
}

func TestNextSteps_AllTiers(t *testing.T) {
	for _, tier := range []Tier{TierDeploy, TierDeployMonitored, TierStagingOnly, TierNotReady} {
		assert.NotEmpty(t, NextSteps(tier))
	}
}
