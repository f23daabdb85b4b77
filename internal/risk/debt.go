package risk

import (
	"fmt"

	"github.com/fyrsmithlabs/readygate/internal/metric"
)

// Debt metric names consumed by the analyzer.
const (
	MetricDebtHours  = "debt_hours"
	MetricComplexity = "complexity"
)

// DebtSeverity classifies how urgent the accumulated debt is.
type DebtSeverity string

const (
	DebtSeverityLow      DebtSeverity = "low"
	DebtSeverityModerate DebtSeverity = "moderate"
	DebtSeverityHigh     DebtSeverity = "high"
	DebtSeverityCritical DebtSeverity = "critical"
)

// DebtConfig parameterizes the debt cost model.
type DebtConfig struct {
	// BudgetHours is the debt level treated as fully saturated risk.
	BudgetHours float64 `json:"budget_hours" koanf:"budget_hours"`

	// HourlyRate converts debt hours into a remediation cost estimate.
	HourlyRate float64 `json:"hourly_rate" koanf:"hourly_rate"`

	// ComplexityCeiling is the average complexity treated as fully
	// saturated complexity risk.
	ComplexityCeiling float64 `json:"complexity_ceiling" koanf:"complexity_ceiling"`
}

// DefaultDebtConfig returns the debt model defaults.
func DefaultDebtConfig() DebtConfig {
	return DebtConfig{
		BudgetHours:       400,
		HourlyRate:        95,
		ComplexityCeiling: 20,
	}
}

// Validate rejects non-positive model parameters.
func (c DebtConfig) Validate() error {
	if c.BudgetHours <= 0 {
		return fmt.Errorf("debt budget_hours must be positive, got %v", c.BudgetHours)
	}
	if c.HourlyRate < 0 {
		return fmt.Errorf("debt hourly_rate must not be negative, got %v", c.HourlyRate)
	}
	if c.ComplexityCeiling <= 0 {
		return fmt.Errorf("debt complexity_ceiling must be positive, got %v", c.ComplexityCeiling)
	}
	return nil
}

// DebtAnalysis is the outcome of one debt pass. It feeds the risk factor
// set (Ratio, ComplexityRatio) and the report (Cost, Severity).
type DebtAnalysis struct {
	Hours           float64      `json:"hours"`
	Ratio           float64      `json:"ratio"`
	EstimatedCost   float64      `json:"estimated_cost"`
	Complexity      float64      `json:"complexity"`
	ComplexityRatio float64      `json:"complexity_ratio"`
	Severity        DebtSeverity `json:"severity"`

	// Measured is false when neither debt metric was supplied; the
	// analysis then contributes zero risk rather than failing the run.
	Measured bool `json:"measured"`
}

// DebtAnalyzer converts debt metrics into normalized risk inputs.
type DebtAnalyzer struct {
	config DebtConfig
}

// NewDebtAnalyzer validates the cost model.
func NewDebtAnalyzer(config DebtConfig) (*DebtAnalyzer, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &DebtAnalyzer{config: config}, nil
}

// Analyze reads debt_hours and complexity from the metric set. Missing
// metrics contribute zero: debt analysis degrades, it does not abort.
func (a *DebtAnalyzer) Analyze(metrics metric.Set) DebtAnalysis {
	analysis := DebtAnalysis{}

	if hours, ok := metrics.Value(MetricDebtHours); ok {
		analysis.Measured = true
		analysis.Hours = hours
		analysis.Ratio = clamp01(hours / a.config.BudgetHours)
		analysis.EstimatedCost = hours * a.config.HourlyRate
	}
	if complexity, ok := metrics.Value(MetricComplexity); ok {
		analysis.Measured = true
		analysis.Complexity = complexity
		analysis.ComplexityRatio = clamp01(complexity / a.config.ComplexityCeiling)
	}

	analysis.Severity = classifyDebt(analysis.Ratio)
	return analysis
}

func classifyDebt(ratio float64) DebtSeverity {
	switch {
	case ratio < 0.25:
		return DebtSeverityLow
	case ratio < 0.5:
		return DebtSeverityModerate
	case ratio < 0.75:
		return DebtSeverityHigh
	default:
		return DebtSeverityCritical
	}
}
