// Package scoring combines heterogeneous quality metrics into a single
// deterministic 0-100 score using a configurable weight table.
package scoring

import (
	"fmt"
	"math"
	"sort"

	"github.com/fyrsmithlabs/readygate/internal/metric"
)

// WeightEpsilon is the tolerance for weight-sum validation.
const WeightEpsilon = 1e-6

// Weights maps metric names to weights in [0,1]. Weights for one scoring
// context must sum to 1.0 within WeightEpsilon; violations are a
// configuration error rejected at load time, not at evaluation time.
type Weights map[string]float64

// Validate rejects weight tables that are empty, carry out-of-range
// weights, or do not sum to 1.0.
func (w Weights) Validate() error {
	if len(w) == 0 {
		return fmt.Errorf("weight table is empty")
	}
	sum := 0.0
	for name, weight := range w {
		if weight < 0 || weight > 1 {
			return fmt.Errorf("weight %s=%v outside [0,1]", name, weight)
		}
		sum += weight
	}
	if math.Abs(sum-1.0) > WeightEpsilon {
		return fmt.Errorf("weights sum to %v, expected 1.0 (epsilon %v)", sum, WeightEpsilon)
	}
	return nil
}

// Names returns the weighted metric names in sorted order.
func (w Weights) Names() []string {
	names := make([]string, 0, len(w))
	for name := range w {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultWeights returns the score weight defaults: code quality,
// coverage, performance, and security. These are tunable defaults, not
// derived constants.
func DefaultWeights() Weights {
	return Weights{
		"code_quality":  0.35,
		"test_coverage": 0.25,
		"performance":   0.20,
		"security":      0.20,
	}
}

// Normalization maps a raw metric value onto [0,100].
type Normalization struct {
	// Invert flips lower-is-better metrics (complexity, debt, latency):
	// normalized = max(0, Target-value)/Target * 100. When false, the raw
	// value is treated as already on a 0-100 scale and clamped.
	Invert bool `json:"invert"`

	// Target is the value yielding 0 for inverted metrics. Required when
	// Invert is set.
	Target float64 `json:"target"`
}

// Validate checks the rule is usable.
func (n Normalization) Validate() error {
	if n.Invert && n.Target <= 0 {
		return fmt.Errorf("inverted normalization requires a positive target")
	}
	return nil
}

// Apply normalizes value to [0,100].
func (n Normalization) Apply(value float64) float64 {
	if n.Invert {
		return clamp(math.Max(0, n.Target-value)/n.Target*100, 0, 100)
	}
	return clamp(value, 0, 100)
}

// Result is the output of one scoring pass.
type Result struct {
	// Score is the weighted aggregate in [0,100].
	Score float64 `json:"score"`

	// Incomplete is set when any weighted metric was absent from the
	// input. Missing metrics contribute zero, so an incomplete score is
	// conservatively low rather than an error.
	Incomplete bool `json:"incomplete"`

	// Missing lists the absent metric names, sorted.
	Missing []string `json:"missing,omitempty"`

	// Components holds the normalized per-metric contributions, keyed by
	// metric name, for reporting.
	Components map[string]float64 `json:"components,omitempty"`
}

// Scorer normalizes and weighs metrics. Identical inputs always yield the
// identical score; there is no hidden randomness anywhere in the pipeline.
type Scorer struct {
	normalizations map[string]Normalization
}

// NewScorer creates a scorer with per-metric normalization rules. Metrics
// without a rule are treated as already normalized (clamped passthrough).
func NewScorer(normalizations map[string]Normalization) (*Scorer, error) {
	for name, n := range normalizations {
		if err := n.Validate(); err != nil {
			return nil, fmt.Errorf("normalization %s: %w", name, err)
		}
	}
	return &Scorer{normalizations: normalizations}, nil
}

// Score combines the metric set into a single 0-100 score.
//
// The weight table must already be validated; Score re-checks it anyway so
// a scorer used outside config loading cannot silently produce a skewed
// aggregate.
func (s *Scorer) Score(metrics metric.Set, weights Weights) (Result, error) {
	if err := weights.Validate(); err != nil {
		return Result{}, err
	}

	result := Result{Components: make(map[string]float64, len(weights))}
	total := 0.0
	for _, name := range weights.Names() {
		value, ok := metrics.Value(name)
		if !ok {
			result.Incomplete = true
			result.Missing = append(result.Missing, name)
			result.Components[name] = 0
			continue
		}
		normalized := s.normalize(name, value)
		result.Components[name] = normalized
		total += normalized * weights[name]
	}

	result.Score = clamp(total, 0, 100)
	return result, nil
}

func (s *Scorer) normalize(name string, value float64) float64 {
	if n, ok := s.normalizations[name]; ok {
		return n.Apply(value)
	}
	return clamp(value, 0, 100)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
