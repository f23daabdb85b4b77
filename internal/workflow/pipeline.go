package workflow

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/readygate/internal/assessment"
	"github.com/fyrsmithlabs/readygate/internal/decision"
	"github.com/fyrsmithlabs/readygate/internal/gates"
	"github.com/fyrsmithlabs/readygate/internal/metric"
	"github.com/fyrsmithlabs/readygate/internal/risk"
	"github.com/fyrsmithlabs/readygate/internal/scoring"
)

// DefaultTrendWeight is the share of overall risk carried by the
// historical trend factor.
const DefaultTrendWeight = 0.15

// DefaultCoverageMetric is the metric name the risk phase reads the
// coverage gap from.
const DefaultCoverageMetric = "test_coverage"

// PipelineConfig is the validated tuning surface of the pipeline. All
// thresholds and weights are configuration, not code.
type PipelineConfig struct {
	Scoring        ScoringConfig      `json:"scoring" koanf:"scoring"`
	Rules          []gates.Rule       `json:"rules" koanf:"rules"`
	Policy         decision.Policy    `json:"policy" koanf:"policy"`
	RiskLevels     risk.Levels        `json:"risk_levels" koanf:"risk_levels"`
	FactorWeights  risk.FactorWeights `json:"factor_weights" koanf:"factor_weights"`
	TrendWeight    float64            `json:"trend_weight" koanf:"trend_weight"`
	CoverageMetric string             `json:"coverage_metric" koanf:"coverage_metric"`
	Debt           risk.DebtConfig    `json:"debt" koanf:"debt"`
	Retry          metric.RetryConfig `json:"retry" koanf:"retry"`
}

// DefaultPipelineConfig returns the standard tuning.
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		Scoring: DefaultScoringConfig(),
		Rules: []gates.Rule{
			{Metric: "test_coverage", Comparison: gates.AtLeast, Threshold: 80},
			{Metric: "code_quality", Comparison: gates.AtLeast, Threshold: 85},
			{Metric: "security", Comparison: gates.AtLeast, Threshold: 90},
		},
		Policy:         decision.DefaultPolicy(),
		RiskLevels:     risk.DefaultLevels(),
		FactorWeights:  risk.DefaultFactorWeights(),
		TrendWeight:    DefaultTrendWeight,
		CoverageMetric: DefaultCoverageMetric,
		Debt:           risk.DefaultDebtConfig(),
		Retry:          metric.DefaultRetryConfig(),
	}
}

// Validate fails fast on any inconsistent tuning.
func (c PipelineConfig) Validate() error {
	if err := c.Scoring.Validate(); err != nil {
		return err
	}
	for i, rule := range c.Rules {
		if err := rule.Validate(); err != nil {
			return fmt.Errorf("rule %d: %w", i, err)
		}
	}
	if err := c.Policy.Validate(); err != nil {
		return err
	}
	if err := c.RiskLevels.Validate(); err != nil {
		return err
	}
	if err := c.FactorWeights.Validate(); err != nil {
		return err
	}
	if c.TrendWeight < 0 || c.TrendWeight >= 1 {
		return fmt.Errorf("trend weight must be in [0,1)")
	}
	if c.CoverageMetric == "" {
		return fmt.Errorf("coverage metric name is required")
	}
	return c.Debt.Validate()
}

// Options carries the runner's collaborators. Provider and Store may be
// nil: a nil provider scores only inline request metrics, a nil store
// disables persistence and trend history.
type Options struct {
	Provider metric.Provider
	Store    assessment.Store
	Logger   *zap.Logger
	Metrics  *Metrics
}

// NewRunner validates the configuration and assembles the standard
// eight-phase pipeline.
func NewRunner(cfg PipelineConfig, opts Options) (*Runner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("pipeline config: %w", err)
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	scorer, err := scoring.NewScorer(cfg.Scoring.Normalizations)
	if err != nil {
		return nil, fmt.Errorf("pipeline config: %w", err)
	}
	analyzer, err := risk.NewDebtAnalyzer(cfg.Debt)
	if err != nil {
		return nil, fmt.Errorf("pipeline config: %w", err)
	}
	assessor, err := risk.NewAssessor(cfg.RiskLevels)
	if err != nil {
		return nil, fmt.Errorf("pipeline config: %w", err)
	}

	retry := cfg.Retry
	retry.ApplyDefaults()

	return &Runner{
		phases: []Phase{
			&infrastructurePhase{store: opts.Store},
			&collectPhase{retry: retry, logger: logger},
			&scorePhase{config: cfg.Scoring, scorer: scorer},
			&gatePhase{},
			&debtPhase{analyzer: analyzer},
			&riskPhase{
				assessor:       assessor,
				factorWeights:  cfg.FactorWeights,
				trendWeight:    cfg.TrendWeight,
				coverageMetric: cfg.CoverageMetric,
				store:          opts.Store,
				logger:         logger,
			},
			&decidePhase{},
			&finalizePhase{store: opts.Store, logger: logger},
		},
		provider: opts.Provider,
		rules:    cfg.Rules,
		policy:   cfg.Policy,
		logger:   logger,
		metrics:  opts.Metrics,
		now:      time.Now,
	}, nil
}
