package workflow

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/readygate/internal/assessment"
	"github.com/fyrsmithlabs/readygate/internal/decision"
	"github.com/fyrsmithlabs/readygate/internal/gates"
	"github.com/fyrsmithlabs/readygate/internal/metric"
	"github.com/fyrsmithlabs/readygate/internal/risk"
	"github.com/fyrsmithlabs/readygate/internal/scoring"
)

// InfraOutput is the infrastructure phase product.
type InfraOutput struct {
	StoreReachable     bool `json:"store_reachable"`
	ProviderConfigured bool `json:"provider_configured"`
}

// infrastructurePhase validates the request and probes the assessment
// store before any analysis work is spent.
type infrastructurePhase struct {
	store assessment.Store
}

func (p *infrastructurePhase) Name() string   { return PhaseInfrastructure }
func (p *infrastructurePhase) Critical() bool { return true }
func (p *infrastructurePhase) Required() bool { return true }

func (p *infrastructurePhase) Run(ctx context.Context, rc *RunContext, _ *Report) (any, error) {
	if rc.Request.Target == "" {
		return nil, fmt.Errorf("%w: target is required", errInvalidRequest)
	}
	if rc.Provider == nil && len(rc.Request.Metrics) == 0 {
		return nil, fmt.Errorf("%w: no metric source: supply metrics or configure a provider", errInvalidRequest)
	}

	out := InfraOutput{ProviderConfigured: rc.Provider != nil}
	if p.store != nil {
		probe := assessment.TimeRange{From: rc.Now, To: rc.Now}
		if _, err := p.store.Query(ctx, rc.Request.Target, probe); err != nil {
			return nil, fmt.Errorf("assessment store probe: %w", err)
		}
		out.StoreReachable = true
	}
	return out, nil
}

// collectPhase gathers metrics from the configured provider, with
// retries, and overlays the request's inline metrics on top.
type collectPhase struct {
	retry  metric.RetryConfig
	logger *zap.Logger
}

func (p *collectPhase) Name() string   { return PhaseCollect }
func (p *collectPhase) Critical() bool { return false }
func (p *collectPhase) Required() bool { return true }

func (p *collectPhase) Run(ctx context.Context, rc *RunContext, _ *Report) (any, error) {
	set := metric.NewSet(nil)
	if rc.Provider != nil {
		retrying := metric.NewRetryingProvider(rc.Provider, p.retry, p.logger)
		fetched, err := retrying.Fetch(ctx, rc.Request.Target)
		if err != nil {
			return nil, err
		}
		set = fetched
	}
	set = set.Merge(metric.NewSet(rc.Request.Metrics))
	for _, m := range set.List() {
		if err := m.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %v", errInvalidRequest, err)
		}
	}
	return set, nil
}

// ScoreGroup is one independently scored weight table.
type ScoreGroup struct {
	Name    string          `json:"name" koanf:"name"`
	Weights scoring.Weights `json:"weights" koanf:"weights"`
}

// ScoringConfig parameterizes the score phase. Groups are scored
// concurrently and combined with GroupWeights.
type ScoringConfig struct {
	Groups         []ScoreGroup                     `json:"groups" koanf:"groups"`
	GroupWeights   scoring.Weights                  `json:"group_weights" koanf:"group_weights"`
	Normalizations map[string]scoring.Normalization `json:"normalizations" koanf:"normalizations"`
	Concurrency    int                              `json:"concurrency" koanf:"concurrency"`
}

// DefaultScoringConfig returns a single-group configuration with the
// standard weights.
func DefaultScoringConfig() ScoringConfig {
	return ScoringConfig{
		Groups:       []ScoreGroup{{Name: "overall", Weights: scoring.DefaultWeights()}},
		GroupWeights: scoring.Weights{"overall": 1},
		Concurrency:  DefaultConcurrency,
	}
}

// Validate rejects scoring configurations that cannot produce a
// well-defined aggregate.
func (c ScoringConfig) Validate() error {
	if len(c.Groups) == 0 {
		return fmt.Errorf("scoring: at least one group is required")
	}
	seen := make(map[string]bool, len(c.Groups))
	for _, g := range c.Groups {
		if g.Name == "" {
			return fmt.Errorf("scoring: group name is required")
		}
		if seen[g.Name] {
			return fmt.Errorf("scoring: duplicate group %s", g.Name)
		}
		seen[g.Name] = true
		if err := g.Weights.Validate(); err != nil {
			return fmt.Errorf("scoring group %s: %w", g.Name, err)
		}
		if _, ok := c.GroupWeights[g.Name]; !ok {
			return fmt.Errorf("scoring: group %s has no group weight", g.Name)
		}
	}
	if len(c.GroupWeights) != len(c.Groups) {
		return fmt.Errorf("scoring: group weights name unknown groups")
	}
	return c.GroupWeights.Validate()
}

// ScoreOutput is the score phase product: the combined result plus the
// per-group scores it was folded from.
type ScoreOutput struct {
	Result scoring.Result     `json:"result"`
	Groups map[string]float64 `json:"groups"`
}

// ScoreResult returns the score phase output.
func (r *Report) ScoreResult() (ScoreOutput, bool) {
	out, ok := r.output(PhaseScore)
	if !ok {
		return ScoreOutput{}, false
	}
	s, ok := out.(ScoreOutput)
	return s, ok
}

// scorePhase scores every configured group concurrently through the
// bounded pool and folds the group scores with the group weights.
type scorePhase struct {
	config ScoringConfig
	scorer *scoring.Scorer
}

func (p *scorePhase) Name() string   { return PhaseScore }
func (p *scorePhase) Critical() bool { return false }
func (p *scorePhase) Required() bool { return true }

func (p *scorePhase) Run(ctx context.Context, _ *RunContext, report *Report) (any, error) {
	metrics, ok := report.CollectedMetrics()
	if !ok {
		return nil, fmt.Errorf("score: no collected metrics")
	}

	collector := &scoreCollector{}
	tasks := make([]func(ctx context.Context), 0, len(p.config.Groups))
	for _, g := range p.config.Groups {
		group := g
		tasks = append(tasks, func(ctx context.Context) {
			res, err := p.scorer.Score(metrics, group.Weights)
			collector.add(groupScore{
				name:       group.Name,
				score:      res.Score,
				incomplete: res.Incomplete,
				missing:    res.Missing,
				err:        err,
			})
		})
	}
	runPool(ctx, p.config.Concurrency, tasks)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(collector.results) != len(tasks) {
		return nil, fmt.Errorf("score: %d of %d groups did not report", len(tasks)-len(collector.results), len(tasks))
	}

	// fold deterministically regardless of worker completion order
	sort.Slice(collector.results, func(i, j int) bool {
		return collector.results[i].name < collector.results[j].name
	})

	out := ScoreOutput{Groups: make(map[string]float64, len(collector.results))}
	missing := make(map[string]bool)
	for _, gs := range collector.results {
		if gs.err != nil {
			return nil, fmt.Errorf("score group %s: %w", gs.name, gs.err)
		}
		out.Groups[gs.name] = gs.score
		out.Result.Score += p.config.GroupWeights[gs.name] * gs.score
		if gs.incomplete {
			out.Result.Incomplete = true
		}
		for _, name := range gs.missing {
			missing[name] = true
		}
	}
	if len(missing) > 0 {
		out.Result.Missing = make([]string, 0, len(missing))
		for name := range missing {
			out.Result.Missing = append(out.Result.Missing, name)
		}
		sort.Strings(out.Result.Missing)
	}
	out.Result.Components = out.Groups
	return out, nil
}

// GateSummary returns the gate phase output.
func (r *Report) GateSummary() (gates.Summary, bool) {
	out, ok := r.output(PhaseGate)
	if !ok {
		return gates.Summary{}, false
	}
	s, ok := out.(gates.Summary)
	return s, ok
}

// gatePhase evaluates the threshold rules against the collected metrics.
type gatePhase struct{}

func (p *gatePhase) Name() string   { return PhaseGate }
func (p *gatePhase) Critical() bool { return false }
func (p *gatePhase) Required() bool { return true }

func (p *gatePhase) Run(_ context.Context, rc *RunContext, report *Report) (any, error) {
	metrics, ok := report.CollectedMetrics()
	if !ok {
		return nil, fmt.Errorf("gate: no collected metrics")
	}
	return rc.Evaluator.Evaluate(metrics), nil
}

// DebtResult returns the debt phase output.
func (r *Report) DebtResult() (risk.DebtAnalysis, bool) {
	out, ok := r.output(PhaseDebt)
	if !ok {
		return risk.DebtAnalysis{}, false
	}
	d, ok := out.(risk.DebtAnalysis)
	return d, ok
}

// debtPhase runs the debt cost model. It is not required: an unmeasured
// debt signal degrades the risk inputs instead of failing the run.
type debtPhase struct {
	analyzer *risk.DebtAnalyzer
}

func (p *debtPhase) Name() string   { return PhaseDebt }
func (p *debtPhase) Critical() bool { return false }
func (p *debtPhase) Required() bool { return false }

func (p *debtPhase) Run(_ context.Context, _ *RunContext, report *Report) (any, error) {
	metrics, ok := report.CollectedMetrics()
	if !ok {
		return nil, fmt.Errorf("debt: no collected metrics")
	}
	return p.analyzer.Analyze(metrics), nil
}

// RiskOutput is the risk phase product.
type RiskOutput struct {
	Assessment risk.Assessment `json:"assessment"`
	Trend      risk.Trend      `json:"trend"`

	// HistorySamples is the number of stored assessments the trend was
	// fitted over.
	HistorySamples int `json:"history_samples"`
}

// RiskResult returns the risk phase output.
func (r *Report) RiskResult() (RiskOutput, bool) {
	out, ok := r.output(PhaseRisk)
	if !ok {
		return RiskOutput{}, false
	}
	ro, ok := out.(RiskOutput)
	return ro, ok
}

// riskPhase builds the weighted factor set from the score, coverage,
// debt, and historical trend signals, then classifies the overall risk.
type riskPhase struct {
	assessor       *risk.Assessor
	factorWeights  risk.FactorWeights
	trendWeight    float64
	coverageMetric string
	store          assessment.Store
	logger         *zap.Logger
}

func (p *riskPhase) Name() string   { return PhaseRisk }
func (p *riskPhase) Critical() bool { return false }
func (p *riskPhase) Required() bool { return true }

func (p *riskPhase) Run(ctx context.Context, rc *RunContext, report *Report) (any, error) {
	score, ok := report.ScoreResult()
	if !ok {
		return nil, fmt.Errorf("risk: no quality score")
	}
	metrics, ok := report.CollectedMetrics()
	if !ok {
		return nil, fmt.Errorf("risk: no collected metrics")
	}

	in := risk.Inputs{QualityGap: (100 - score.Result.Score) / 100}
	if cov, ok := metrics.Value(p.coverageMetric); ok {
		in.CoverageGap = (100 - cov) / 100
	}
	if debt, ok := report.DebtResult(); ok && debt.Measured {
		in.DebtRatio = debt.Ratio
		in.Complexity = debt.ComplexityRatio
	}

	factors, err := risk.BuildFactors(in, p.factorWeights)
	if err != nil {
		return nil, err
	}

	out := RiskOutput{Trend: risk.AnalyzeTrend(nil)}
	if p.store != nil && p.trendWeight > 0 {
		records, err := p.store.Query(ctx, rc.Request.Target, assessment.TimeRange{To: rc.Now})
		if err != nil {
			if ctx.Err() != nil {
				return nil, err
			}
			// trend is advisory: a history read failure degrades to a
			// stable trend instead of failing the phase
			p.logger.Warn("trend history unavailable",
				zap.String("target", rc.Request.Target),
				zap.Error(err))
		} else {
			points := assessment.History(records)
			out.Trend = risk.AnalyzeTrend(points)
			out.HistorySamples = len(points)
			factors = risk.MergeTrendFactor(factors, out.Trend, p.trendWeight)
		}
	}

	out.Assessment, err = p.assessor.Assess(factors)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// DecisionResult returns the decide phase output.
func (r *Report) DecisionResult() (decision.Decision, bool) {
	out, ok := r.output(PhaseDecide)
	if !ok {
		return decision.Decision{}, false
	}
	d, ok := out.(decision.Decision)
	return d, ok
}

// decidePhase runs the conjunctive decision gate.
type decidePhase struct{}

func (p *decidePhase) Name() string   { return PhaseDecide }
func (p *decidePhase) Critical() bool { return false }
func (p *decidePhase) Required() bool { return true }

func (p *decidePhase) Run(_ context.Context, rc *RunContext, report *Report) (any, error) {
	score, ok := report.ScoreResult()
	if !ok {
		return nil, fmt.Errorf("decide: no quality score")
	}
	summary, ok := report.GateSummary()
	if !ok {
		return nil, fmt.Errorf("decide: no gate summary")
	}
	riskOut, ok := report.RiskResult()
	if !ok {
		return nil, fmt.Errorf("decide: no risk assessment")
	}
	return rc.Engine.Decide(score.Result.Score, summary, riskOut.Assessment), nil
}

// FinalizeOutput is the finalize phase product. Persisted is false when
// the store write failed; the assessment and its decision stay valid.
type FinalizeOutput struct {
	Assessment *assessment.Assessment `json:"assessment"`
	Persisted  bool                   `json:"persisted"`
	Warning    string                 `json:"warning,omitempty"`
}

// finalizePhase folds the phase outputs into one immutable assessment
// record and persists it.
type finalizePhase struct {
	store  assessment.Store
	logger *zap.Logger
}

func (p *finalizePhase) Name() string   { return PhaseFinalize }
func (p *finalizePhase) Critical() bool { return false }
func (p *finalizePhase) Required() bool { return true }

func (p *finalizePhase) Run(ctx context.Context, rc *RunContext, report *Report) (any, error) {
	metrics, ok := report.CollectedMetrics()
	if !ok {
		return nil, fmt.Errorf("finalize: no collected metrics")
	}
	score, ok := report.ScoreResult()
	if !ok {
		return nil, fmt.Errorf("finalize: no quality score")
	}
	summary, ok := report.GateSummary()
	if !ok {
		return nil, fmt.Errorf("finalize: no gate summary")
	}
	riskOut, ok := report.RiskResult()
	if !ok {
		return nil, fmt.Errorf("finalize: no risk assessment")
	}
	d, ok := report.DecisionResult()
	if !ok {
		return nil, fmt.Errorf("finalize: no decision")
	}

	a := assessment.New(rc.Request.Target, rc.Now)
	a.Metrics = metrics.List()
	a.GateResults = summary.Results
	a.Risk = riskOut.Assessment
	a.Trend = riskOut.Trend
	if debt, ok := report.DebtResult(); ok {
		a.Debt = debt
	}
	a.QualityScore = score.Result.Score
	a.Grade = decision.Grade(score.Result.Score)
	a.ScoreIncomplete = score.Result.Incomplete
	a.Decision = assessment.DecisionRecord{
		Approved:   d.Approved,
		Confidence: d.Confidence,
		Reasoning:  d.Reasoning,
		Tier:       d.Tier,
	}
	a.Recommendations = d.Recommendations

	out := FinalizeOutput{Assessment: a}
	if p.store == nil {
		return out, nil
	}
	if err := p.store.Save(ctx, a); err != nil {
		if ctx.Err() != nil {
			return nil, err
		}
		// the decision must survive a persistence failure
		out.Warning = fmt.Sprintf("assessment not persisted: %v", err)
		p.logger.Error("assessment save failed",
			zap.String("target", rc.Request.Target),
			zap.String("assessment_id", a.ID),
			zap.Error(err))
		return out, nil
	}
	out.Persisted = true
	return out, nil
}
