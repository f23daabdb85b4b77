package risk

import (
	"fmt"
	"math"
)

// Factor names used by the standard deployment-readiness factor set.
const (
	FactorQualityGap  = "quality_gap"
	FactorCoverageGap = "coverage_gap"
	FactorDebtRatio   = "debt_ratio"
	FactorComplexity  = "complexity"
	FactorTrend       = "trend"
)

// FactorWeights configures the standard factor set. The defaults mirror
// the historical model and are tunable, not derived.
type FactorWeights struct {
	QualityGap  float64 `json:"quality_gap" koanf:"quality_gap"`
	CoverageGap float64 `json:"coverage_gap" koanf:"coverage_gap"`
	DebtRatio   float64 `json:"debt_ratio" koanf:"debt_ratio"`
	Complexity  float64 `json:"complexity" koanf:"complexity"`
}

// DefaultFactorWeights returns the default split 0.35/0.25/0.20/0.20.
func DefaultFactorWeights() FactorWeights {
	return FactorWeights{
		QualityGap:  0.35,
		CoverageGap: 0.25,
		DebtRatio:   0.20,
		Complexity:  0.20,
	}
}

// Validate requires the weights to form a normalized set.
func (w FactorWeights) Validate() error {
	sum := w.QualityGap + w.CoverageGap + w.DebtRatio + w.Complexity
	if math.Abs(sum-1.0) > WeightEpsilon {
		return fmt.Errorf("risk factor weights sum to %v, expected 1.0", sum)
	}
	for _, v := range []float64{w.QualityGap, w.CoverageGap, w.DebtRatio, w.Complexity} {
		if v < 0 || v > 1 {
			return fmt.Errorf("risk factor weight %v outside [0,1]", v)
		}
	}
	return nil
}

// Inputs carries the normalized signal values for the standard factor set.
// All values are gaps or ratios in [0,1]; the callers normalize before
// handing them over.
type Inputs struct {
	// QualityGap is (100-qualityScore)/100.
	QualityGap float64

	// CoverageGap is (100-coveragePct)/100. Zero when coverage was not
	// measured; the missing-metric penalty already lowered the score.
	CoverageGap float64

	// DebtRatio is debt hours over budget, capped at 1.
	DebtRatio float64

	// Complexity is average complexity over the acceptable ceiling,
	// capped at 1.
	Complexity float64
}

// BuildFactors produces the standard weighted factor set from inputs.
func BuildFactors(in Inputs, weights FactorWeights) ([]Factor, error) {
	if err := weights.Validate(); err != nil {
		return nil, err
	}
	factors := []Factor{
		{Name: FactorQualityGap, Value: clamp01(in.QualityGap), Weight: weights.QualityGap},
		{Name: FactorCoverageGap, Value: clamp01(in.CoverageGap), Weight: weights.CoverageGap},
		{Name: FactorDebtRatio, Value: clamp01(in.DebtRatio), Weight: weights.DebtRatio},
		{Name: FactorComplexity, Value: clamp01(in.Complexity), Weight: weights.Complexity},
	}
	return factors, nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
