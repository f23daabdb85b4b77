// Package risk combines weighted risk factors into an overall risk score
// and categorical level, and derives the factor set from quality gaps,
// technical debt, and historical trend.
package risk

import (
	"fmt"
	"math"
)

// WeightEpsilon is the tolerance for factor weight-sum validation.
const WeightEpsilon = 1e-6

// Level is the categorical risk bucket.
type Level string

const (
	LevelLow      Level = "low"
	LevelMedium   Level = "medium"
	LevelHigh     Level = "high"
	LevelCritical Level = "critical"
)

// Factor is one normalized contributor to the aggregate risk score.
type Factor struct {
	Name   string  `json:"name"`
	Value  float64 `json:"value"`
	Weight float64 `json:"weight"`
}

// Validate rejects factors outside the model ranges.
func (f Factor) Validate() error {
	if f.Name == "" {
		return fmt.Errorf("risk factor name is required")
	}
	if f.Value < 0 || f.Value > 1 {
		return fmt.Errorf("risk factor %s: value %v outside [0,1]", f.Name, f.Value)
	}
	if f.Weight < 0 || f.Weight > 1 {
		return fmt.Errorf("risk factor %s: weight %v outside [0,1]", f.Name, f.Weight)
	}
	return nil
}

// Levels holds the upper boundaries of each risk bucket. Boundaries are
// configuration so operators can tune strictness per environment.
type Levels struct {
	Low    float64 `json:"low" koanf:"low"`
	Medium float64 `json:"medium" koanf:"medium"`
	High   float64 `json:"high" koanf:"high"`
}

// DefaultLevels returns the default bucket boundaries: low up to 0.25,
// medium up to 0.5, high up to 0.75, critical above.
func DefaultLevels() Levels {
	return Levels{Low: 0.25, Medium: 0.5, High: 0.75}
}

// Validate requires strictly increasing boundaries within (0,1].
func (l Levels) Validate() error {
	if l.Low <= 0 || l.Medium <= l.Low || l.High <= l.Medium || l.High > 1 {
		return fmt.Errorf("risk level boundaries must satisfy 0 < low < medium < high <= 1, got %v/%v/%v",
			l.Low, l.Medium, l.High)
	}
	return nil
}

// Classify maps an overall score onto a level. Bucket upper bounds are
// inclusive, so an overall of exactly 0.5 still classifies as medium under
// the default boundaries.
func (l Levels) Classify(overall float64) Level {
	switch {
	case overall <= l.Low:
		return LevelLow
	case overall <= l.Medium:
		return LevelMedium
	case overall <= l.High:
		return LevelHigh
	default:
		return LevelCritical
	}
}

// Assessment is the aggregate risk outcome.
type Assessment struct {
	Overall float64  `json:"overall"`
	Level   Level    `json:"level"`
	Factors []Factor `json:"factors"`
}

// Assessor combines factors under configured level boundaries.
type Assessor struct {
	levels Levels
}

// NewAssessor validates the boundaries and builds an assessor.
func NewAssessor(levels Levels) (*Assessor, error) {
	if err := levels.Validate(); err != nil {
		return nil, err
	}
	return &Assessor{levels: levels}, nil
}

// Assess computes overall = sum(value*weight) clamped to [0,1] and
// classifies it. Factor weights in one call must sum to 1.0; a
// non-normalized weight set is a configuration error.
func (a *Assessor) Assess(factors []Factor) (Assessment, error) {
	if len(factors) == 0 {
		return Assessment{}, fmt.Errorf("at least one risk factor is required")
	}

	weightSum := 0.0
	for _, f := range factors {
		if err := f.Validate(); err != nil {
			return Assessment{}, err
		}
		weightSum += f.Weight
	}
	if math.Abs(weightSum-1.0) > WeightEpsilon {
		return Assessment{}, fmt.Errorf("risk factor weights sum to %v, expected 1.0", weightSum)
	}

	overall := 0.0
	for _, f := range factors {
		overall += f.Value * f.Weight
	}
	if overall < 0 {
		overall = 0
	}
	if overall > 1 {
		overall = 1
	}

	return Assessment{
		Overall: overall,
		Level:   a.levels.Classify(overall),
		Factors: factors,
	}, nil
}
