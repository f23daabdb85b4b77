// Package decision fuses scorer output, gate results, and risk into a
// deploy/no-deploy decision with confidence, reasoning, and
// recommendations.
package decision

import (
	"fmt"
	"math"

	"github.com/fyrsmithlabs/readygate/internal/gates"
	"github.com/fyrsmithlabs/readygate/internal/risk"
)

// VoteWeights weighs the three sub-decisions when computing confidence.
// Confidence is a review-prioritization signal only; it never overrides
// the hard gate.
type VoteWeights struct {
	Compliance float64 `json:"compliance" koanf:"compliance"`
	Risk       float64 `json:"risk" koanf:"risk"`
	Score      float64 `json:"score" koanf:"score"`
}

// DefaultVoteWeights returns an even split.
func DefaultVoteWeights() VoteWeights {
	return VoteWeights{Compliance: 0.4, Risk: 0.3, Score: 0.3}
}

// Validate requires a normalized weight set.
func (w VoteWeights) Validate() error {
	sum := w.Compliance + w.Risk + w.Score
	if math.Abs(sum-1.0) > 1e-6 {
		return fmt.Errorf("vote weights sum to %v, expected 1.0", sum)
	}
	for _, v := range []float64{w.Compliance, w.Risk, w.Score} {
		if v < 0 || v > 1 {
			return fmt.Errorf("vote weight %v outside [0,1]", v)
		}
	}
	return nil
}

// Policy is the set of numeric bounds defining the conjunctive approval
// rule. Loaded once at process start and immutable for a workflow run.
type Policy struct {
	// MinCompliance is the gate compliance percentage required for
	// approval.
	MinCompliance float64 `json:"min_compliance" koanf:"min_compliance"`

	// MaxRisk is the highest acceptable overall risk in [0,1].
	MaxRisk float64 `json:"max_risk" koanf:"max_risk"`

	// MinScore is the lowest acceptable weighted quality score.
	MinScore float64 `json:"min_score" koanf:"min_score"`

	// VoteWeights weighs the confidence votes.
	VoteWeights VoteWeights `json:"vote_weights" koanf:"vote_weights"`

	// NearThresholdMargin flags passing conditions sitting within this
	// margin of their bound in the reasoning output. Expressed in the
	// unit of each bound.
	NearThresholdMargin float64 `json:"near_threshold_margin" koanf:"near_threshold_margin"`
}

// DefaultPolicy returns the policy defaults. All values are tunable.
func DefaultPolicy() Policy {
	return Policy{
		MinCompliance:       gates.DefaultMinCompliance,
		MaxRisk:             0.5,
		MinScore:            70,
		VoteWeights:         DefaultVoteWeights(),
		NearThresholdMargin: 5,
	}
}

// Validate fails fast on malformed bounds.
func (p Policy) Validate() error {
	if p.MinCompliance < 0 || p.MinCompliance > 100 {
		return fmt.Errorf("min_compliance %v outside [0,100]", p.MinCompliance)
	}
	if p.MaxRisk < 0 || p.MaxRisk > 1 {
		return fmt.Errorf("max_risk %v outside [0,1]", p.MaxRisk)
	}
	if p.MinScore < 0 || p.MinScore > 100 {
		return fmt.Errorf("min_score %v outside [0,100]", p.MinScore)
	}
	if p.NearThresholdMargin < 0 {
		return fmt.Errorf("near_threshold_margin must not be negative")
	}
	return p.VoteWeights.Validate()
}

// Tier is the deployment recommendation band.
type Tier string

const (
	TierDeploy          Tier = "deploy"
	TierDeployMonitored Tier = "deploy_with_monitoring"
	TierStagingOnly     Tier = "staging_only"
	TierNotReady        Tier = "not_ready"
)

// Decision is the engine output.
type Decision struct {
	Approved bool `json:"approved"`

	// Confidence is the weighted agreement of the three sub-decisions in
	// [0,1].
	Confidence float64 `json:"confidence"`

	// Reasoning lists one deterministic, template-filled string per
	// failed or near-threshold condition, in a fixed order.
	Reasoning []string `json:"reasoning"`

	// Tier is the recommendation band derived from score, compliance,
	// and approval.
	Tier Tier `json:"tier"`

	// Recommendations are actionable follow-ups derived from structured
	// causes.
	Recommendations []string `json:"recommendations,omitempty"`
}

// Engine applies a policy. Approval is conjunctive: any single hard
// failure blocks deployment regardless of the other signals.
type Engine struct {
	policy Policy
}

// NewEngine validates the policy and builds an engine.
func NewEngine(policy Policy) (*Engine, error) {
	if err := policy.Validate(); err != nil {
		return nil, fmt.Errorf("decision policy: %w", err)
	}
	return &Engine{policy: policy}, nil
}

// Policy returns the engine's policy.
func (e *Engine) Policy() Policy {
	return e.policy
}

// Decide evaluates the conjunctive gate against the policy bounds.
func (e *Engine) Decide(score float64, summary gates.Summary, riskAssessment risk.Assessment) Decision {
	complianceOK := summary.CompliancePct >= e.policy.MinCompliance
	riskOK := riskAssessment.Overall <= e.policy.MaxRisk
	scoreOK := score >= e.policy.MinScore

	d := Decision{
		Approved:   complianceOK && riskOK && scoreOK,
		Confidence: e.confidence(complianceOK, riskOK, scoreOK),
	}
	d.Reasoning = e.reason(score, summary, riskAssessment, complianceOK, riskOK, scoreOK)
	d.Tier = e.tier(d.Approved, score, summary.CompliancePct)
	d.Recommendations = e.recommend(d.Tier, summary, riskAssessment)
	return d
}

func (e *Engine) confidence(complianceOK, riskOK, scoreOK bool) float64 {
	w := e.policy.VoteWeights
	c := 0.0
	if complianceOK {
		c += w.Compliance
	}
	if riskOK {
		c += w.Risk
	}
	if scoreOK {
		c += w.Score
	}
	return c
}

// reason emits one string per failed condition, then per near-threshold
// condition, always in compliance/risk/score order so output is stable.
func (e *Engine) reason(score float64, summary gates.Summary, ra risk.Assessment, complianceOK, riskOK, scoreOK bool) []string {
	p := e.policy
	var reasons []string

	if !complianceOK {
		reasons = append(reasons, fmt.Sprintf(
			"gate compliance %.1f%% below required %.1f%%", summary.CompliancePct, p.MinCompliance))
		for _, r := range summary.Results {
			if r.Passed {
				continue
			}
			if r.Missing {
				reasons = append(reasons, fmt.Sprintf(
					"gate %s failed: metric not supplied", r.Rule.Metric))
				continue
			}
			reasons = append(reasons, fmt.Sprintf(
				"gate %s failed: value %.2f vs %s %.2f (deviation %.2f)",
				r.Rule.Metric, r.CurrentValue, r.Rule.Comparison, r.Rule.Threshold, r.Deviation))
		}
	}
	if !riskOK {
		reasons = append(reasons, fmt.Sprintf(
			"overall risk %.2f (%s) exceeds maximum %.2f", ra.Overall, ra.Level, p.MaxRisk))
	}
	if !scoreOK {
		reasons = append(reasons, fmt.Sprintf(
			"quality score %.1f below minimum %.1f", score, p.MinScore))
	}

	// Near-threshold warnings on passing conditions.
	if complianceOK && summary.CompliancePct-p.MinCompliance < p.NearThresholdMargin {
		reasons = append(reasons, fmt.Sprintf(
			"gate compliance %.1f%% is within %.1f of the %.1f%% bound", summary.CompliancePct, p.NearThresholdMargin, p.MinCompliance))
	}
	if riskOK && p.MaxRisk-ra.Overall < p.NearThresholdMargin/100 {
		reasons = append(reasons, fmt.Sprintf(
			"overall risk %.2f is close to the %.2f bound", ra.Overall, p.MaxRisk))
	}
	if scoreOK && score-p.MinScore < p.NearThresholdMargin {
		reasons = append(reasons, fmt.Sprintf(
			"quality score %.1f is within %.1f of the %.1f bound", score, p.NearThresholdMargin, p.MinScore))
	}

	return reasons
}
