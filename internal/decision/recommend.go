package decision

import (
	"fmt"

	"github.com/fyrsmithlabs/readygate/internal/gates"
	"github.com/fyrsmithlabs/readygate/internal/risk"
)

// Tier score bands. The bands come from the historical recommendation
// model (95/85/70) and are intentionally coarser than the policy bounds:
// the tier is advice, the policy is the gate.
const (
	tierDeployScore    = 95.0
	tierMonitoredScore = 85.0
	tierStagingScore   = 70.0
)

func (e *Engine) tier(approved bool, score, compliance float64) Tier {
	switch {
	case approved && score >= tierDeployScore && compliance == 100:
		return TierDeploy
	case approved && score >= tierMonitoredScore:
		return TierDeployMonitored
	case approved || score >= tierStagingScore:
		return TierStagingOnly
	default:
		return TierNotReady
	}
}

// recommend derives actionable follow-ups from structured causes. Strings
// are template-filled, ordered, and deterministic.
func (e *Engine) recommend(tier Tier, summary gates.Summary, ra risk.Assessment) []string {
	var recs []string

	for _, r := range summary.Results {
		if r.Passed {
			continue
		}
		if r.Missing {
			recs = append(recs, fmt.Sprintf("supply the %s metric so its gate can be evaluated", r.Rule.Metric))
			continue
		}
		if r.Rule.Comparison == gates.AtMost {
			recs = append(recs, fmt.Sprintf("reduce %s from %.2f to at most %.2f", r.Rule.Metric, r.CurrentValue, r.Rule.Threshold))
		} else {
			recs = append(recs, fmt.Sprintf("raise %s from %.2f to at least %.2f", r.Rule.Metric, r.CurrentValue, r.Rule.Threshold))
		}
	}

	if ra.Level == risk.LevelHigh || ra.Level == risk.LevelCritical {
		for _, f := range ra.Factors {
			if f.Value >= 0.5 && f.Weight > 0 {
				recs = append(recs, fmt.Sprintf("address the %s risk factor (%.2f)", f.Name, f.Value))
			}
		}
	}

	recs = append(recs, NextSteps(tier)...)
	return recs
}

// NextSteps returns the operator playbook for a recommendation tier.
func NextSteps(tier Tier) []string {
	switch tier {
	case TierDeploy:
		return []string{
			"execute production deployment",
			"monitor performance metrics after rollout",
		}
	case TierDeployMonitored:
		return []string{
			"deploy with enhanced monitoring",
			"plan follow-up work for near-threshold conditions",
		}
	case TierStagingOnly:
		return []string{
			"deploy to staging only",
			"address failing conditions before re-running the assessment",
		}
	default:
		return []string{
			"do not deploy",
			"resolve all failed gates and re-run the complete assessment",
		}
	}
}

// Grade maps a quality score onto a letter grade for reports. Bands
// follow the historical grading model (95/90/85/80/75/70/65).
func Grade(score float64) string {
	switch {
	case score >= 95:
		return "A+"
	case score >= 90:
		return "A"
	case score >= 85:
		return "B+"
	case score >= 80:
		return "B"
	case score >= 75:
		return "C+"
	case score >= 70:
		return "C"
	case score >= 65:
		return "D"
	default:
		return "F"
	}
}
