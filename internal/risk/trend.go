package risk

import (
	"sort"
	"time"
)

// TrendDirection summarizes where quality scores are heading.
type TrendDirection string

const (
	TrendImproving TrendDirection = "improving"
	TrendStable    TrendDirection = "stable"
	TrendDegrading TrendDirection = "degrading"
)

// stableSlopeBand is the per-assessment slope magnitude treated as noise.
const stableSlopeBand = 0.5

// HistoryPoint is one historical quality score for a target.
type HistoryPoint struct {
	Timestamp time.Time `json:"timestamp"`
	Score     float64   `json:"score"`
}

// Trend is the outcome of historical trend analysis. A degrading trend
// raises the trend risk factor even when the current snapshot looks fine.
type Trend struct {
	Direction TrendDirection `json:"direction"`

	// Slope is the least-squares score change per assessment.
	Slope float64 `json:"slope"`

	// Samples is the number of points the trend is based on.
	Samples int `json:"samples"`

	// RiskValue is the normalized [0,1] trend contribution: 0 for
	// improving or unknown trends, growing with the rate of decline.
	RiskValue float64 `json:"risk_value"`
}

// AnalyzeTrend fits a least-squares line through the points ordered by
// time. Fewer than two points yield a stable trend with zero risk: a new
// target is not penalized for having no history.
func AnalyzeTrend(points []HistoryPoint) Trend {
	if len(points) < 2 {
		return Trend{Direction: TrendStable, Samples: len(points)}
	}

	sorted := make([]HistoryPoint, len(points))
	copy(sorted, points)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Timestamp.Before(sorted[j].Timestamp) })

	// Least squares with x = assessment index. Index spacing, not wall
	// time, is what trend dashboards chart.
	n := float64(len(sorted))
	var sumX, sumY, sumXY, sumXX float64
	for i, p := range sorted {
		x := float64(i)
		sumX += x
		sumY += p.Score
		sumXY += x * p.Score
		sumXX += x * x
	}
	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return Trend{Direction: TrendStable, Samples: len(sorted)}
	}
	slope := (n*sumXY - sumX*sumY) / denom

	trend := Trend{Slope: slope, Samples: len(sorted)}
	switch {
	case slope > stableSlopeBand:
		trend.Direction = TrendImproving
	case slope < -stableSlopeBand:
		trend.Direction = TrendDegrading
		// A 10-point drop per assessment saturates the factor.
		trend.RiskValue = clamp01(-slope / 10)
	default:
		trend.Direction = TrendStable
	}
	return trend
}

// MergeTrendFactor rebalances a factor set to include the trend factor at
// the given weight, scaling the existing weights down proportionally so
// the set stays normalized.
func MergeTrendFactor(factors []Factor, trend Trend, weight float64) []Factor {
	if weight <= 0 || weight >= 1 {
		return factors
	}
	merged := make([]Factor, 0, len(factors)+1)
	for _, f := range factors {
		f.Weight *= 1 - weight
		merged = append(merged, f)
	}
	merged = append(merged, Factor{
		Name:   FactorTrend,
		Value:  trend.RiskValue,
		Weight: weight,
	})
	return merged
}
