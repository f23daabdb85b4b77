// Package gates evaluates metric values against configured pass/fail
// thresholds and reports aggregate compliance.
package gates

import (
	"errors"
	"fmt"
	"math"

	"github.com/fyrsmithlabs/readygate/internal/metric"
)

// ErrMissingMetric marks a rule whose metric was absent from the input.
// A missing metric degrades its single gate; it never aborts the run.
var ErrMissingMetric = errors.New("required metric not supplied")

// DefaultMinCompliance is the default compliance percentage a target must
// reach for the overall gate to pass. Tunable per environment.
const DefaultMinCompliance = 90.0

// Comparison is the direction of a threshold check.
type Comparison string

const (
	// AtLeast passes when value >= threshold (coverage, pass rate).
	AtLeast Comparison = "at_least"

	// AtMost passes when value <= threshold (debt ratio, bug likelihood).
	AtMost Comparison = "at_most"
)

// Rule is one configured threshold gate. Rules are configured once per
// environment and looked up by metric name at evaluation time.
type Rule struct {
	Metric     string     `json:"metric" koanf:"metric"`
	Comparison Comparison `json:"comparison" koanf:"comparison"`
	Threshold  float64    `json:"threshold" koanf:"threshold"`
}

// Validate rejects malformed rules at configuration load time.
func (r Rule) Validate() error {
	if r.Metric == "" {
		return fmt.Errorf("rule metric name is required")
	}
	switch r.Comparison {
	case AtLeast, AtMost:
	default:
		return fmt.Errorf("rule %s: unknown comparison %q", r.Metric, r.Comparison)
	}
	return nil
}

// check applies the comparison to a present value.
func (r Rule) check(value float64) bool {
	if r.Comparison == AtMost {
		return value <= r.Threshold
	}
	return value >= r.Threshold
}

// GateResult is the outcome of one rule against one assessment. Produced
// once per assessment, never mutated after creation.
type GateResult struct {
	Rule         Rule    `json:"rule"`
	CurrentValue float64 `json:"current_value"`
	Passed       bool    `json:"passed"`

	// Deviation is value-threshold for at_least rules and
	// threshold-value for at_most rules, so positive always means
	// headroom. NaN when the metric was missing.
	Deviation float64 `json:"deviation"`

	// Missing is set when the metric was absent from the input.
	Missing bool `json:"missing,omitempty"`
}

// Warning captures a non-fatal evaluation problem.
type Warning struct {
	Metric string `json:"metric"`
	Err    error  `json:"-"`
	Detail string `json:"detail"`
}

// Summary aggregates an evaluation pass.
type Summary struct {
	Results       []GateResult `json:"results"`
	CompliancePct float64      `json:"compliance_pct"`
	Warnings      []Warning    `json:"warnings,omitempty"`
}

// Passed reports whether compliance meets the given minimum.
func (s Summary) Passed(minCompliance float64) bool {
	return s.CompliancePct >= minCompliance
}

// Evaluator runs threshold rules against metric sets.
type Evaluator struct {
	rules []Rule
}

// NewEvaluator validates and captures the rule set.
func NewEvaluator(rules []Rule) (*Evaluator, error) {
	for i, r := range rules {
		if err := r.Validate(); err != nil {
			return nil, fmt.Errorf("rule %d: %w", i, err)
		}
	}
	return &Evaluator{rules: rules}, nil
}

// Rules returns the configured rules in declaration order.
func (e *Evaluator) Rules() []Rule {
	return e.rules
}

// Evaluate checks every rule against the metric set.
//
// A rule whose metric is absent produces a failed GateResult with NaN
// deviation plus a MissingMetric warning rather than aborting the whole
// evaluation: fail-open per rule, fail-closed in aggregate, since the
// failed gate still drags compliance down.
func (e *Evaluator) Evaluate(metrics metric.Set) Summary {
	summary := Summary{Results: make([]GateResult, 0, len(e.rules))}
	if len(e.rules) == 0 {
		summary.CompliancePct = 100
		return summary
	}

	passed := 0
	for _, rule := range e.rules {
		value, ok := metrics.Value(rule.Metric)
		if !ok {
			summary.Results = append(summary.Results, GateResult{
				Rule:      rule,
				Passed:    false,
				Deviation: math.NaN(),
				Missing:   true,
			})
			summary.Warnings = append(summary.Warnings, Warning{
				Metric: rule.Metric,
				Err:    ErrMissingMetric,
				Detail: fmt.Sprintf("metric %s required by gate but not supplied", rule.Metric),
			})
			continue
		}

		result := GateResult{
			Rule:         rule,
			CurrentValue: value,
			Passed:       rule.check(value),
			Deviation:    deviation(rule, value),
		}
		if result.Passed {
			passed++
		}
		summary.Results = append(summary.Results, result)
	}

	summary.CompliancePct = float64(passed) / float64(len(e.rules)) * 100
	return summary
}

func deviation(rule Rule, value float64) float64 {
	if rule.Comparison == AtMost {
		return rule.Threshold - value
	}
	return value - rule.Threshold
}
