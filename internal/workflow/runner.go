package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/readygate/internal/decision"
	"github.com/fyrsmithlabs/readygate/internal/gates"
	"github.com/fyrsmithlabs/readygate/internal/metric"
)

// Runner executes the phase pipeline. Phases run strictly in order, one
// terminal transition each; a failed critical phase short-circuits the
// rest, which stay pending in the report.
type Runner struct {
	phases   []Phase
	provider metric.Provider
	rules    []gates.Rule
	policy   decision.Policy
	logger   *zap.Logger
	metrics  *Metrics
	now      func() time.Time
}

// Run executes one assessment. The returned report is always structured,
// including on partial failure and cancellation; the error is non-nil
// only when the request itself or its overrides are invalid.
func (r *Runner) Run(ctx context.Context, req Request) (*Report, error) {
	report := &Report{
		RunID:     uuid.NewString(),
		Target:    req.Target,
		StartedAt: r.now().UTC(),
	}
	for _, p := range r.phases {
		report.Phases = append(report.Phases, PhaseResult{
			Name:     p.Name(),
			Status:   StatusPending,
			Critical: p.Critical(),
			Required: p.Required(),
		})
	}

	rc, err := r.runContext(req)
	if err != nil {
		report.CompletedAt = r.now().UTC()
		return report, fmt.Errorf("%w: %v", errInvalidRequest, err)
	}

	r.logger.Info("assessment run started",
		zap.String("run_id", report.RunID),
		zap.String("target", req.Target))

	shortCircuit := false
	for i, phase := range r.phases {
		pr := &report.Phases[i]
		if shortCircuit {
			continue
		}
		if err := ctx.Err(); err != nil {
			// mark the phase that would have run next so the report
			// records the cancellation; the rest stay pending
			pr.Status = StatusFailed
			pr.Error = err.Error()
			pr.Cause = CauseCancelled
			shortCircuit = true
			continue
		}

		pr.Status = StatusRunning
		pr.StartedAt = r.now().UTC()

		out, err := r.runPhase(ctx, phase, rc, report)

		pr.EndedAt = r.now().UTC()
		elapsed := pr.EndedAt.Sub(pr.StartedAt)

		if err != nil {
			perr := NewPhaseError(phase.Name(), err)
			pr.Status = StatusFailed
			pr.Error = err.Error()
			pr.Cause = perr.Cause
			r.logger.Warn("phase failed",
				zap.String("run_id", report.RunID),
				zap.String("phase", phase.Name()),
				zap.String("cause", string(perr.Cause)),
				zap.Error(err))
			if phase.Critical() || perr.Cause == CauseCancelled {
				shortCircuit = true
			}
		} else {
			pr.Status = StatusSuccess
			pr.Output = out
		}

		if r.metrics != nil {
			r.metrics.RecordPhase(ctx, phase.Name(), pr.Status, pr.Cause, elapsed)
		}
	}

	r.fold(report)
	report.CompletedAt = r.now().UTC()

	if r.metrics != nil {
		r.metrics.RecordRun(ctx, report)
	}
	r.logger.Info("assessment run finished",
		zap.String("run_id", report.RunID),
		zap.String("target", req.Target),
		zap.Bool("overall_success", report.OverallSuccess),
		zap.Bool("deployment_ready", report.DeploymentReady),
		zap.Bool("persisted", report.Persisted))
	return report, nil
}

// runContext resolves per-run collaborators, applying request overrides
// on top of the configured rules and policy.
func (r *Runner) runContext(req Request) (*RunContext, error) {
	rules := r.rules
	if req.Rules != nil {
		rules = req.Rules
	}
	evaluator, err := gates.NewEvaluator(rules)
	if err != nil {
		return nil, err
	}

	policy := r.policy
	if req.Policy != nil {
		policy = *req.Policy
	}
	engine, err := decision.NewEngine(policy)
	if err != nil {
		return nil, err
	}

	return &RunContext{
		Request:   req,
		Evaluator: evaluator,
		Engine:    engine,
		Provider:  r.provider,
		Now:       r.now().UTC(),
	}, nil
}

// runPhase isolates one phase execution; a panicking phase is converted
// into a failed phase rather than tearing down the run.
func (r *Runner) runPhase(ctx context.Context, phase Phase, rc *RunContext, report *Report) (out any, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			out = nil
			err = fmt.Errorf("phase panicked: %v", rec)
		}
	}()
	return phase.Run(ctx, rc, report)
}

// fold derives the run-level outcome fields from the phase results.
func (r *Runner) fold(report *Report) {
	report.OverallSuccess = true
	for _, pr := range report.Phases {
		if pr.Required && pr.Status != StatusSuccess {
			report.OverallSuccess = false
		}
	}

	if fr, ok := report.Result(PhaseFinalize); ok && fr.Status == StatusSuccess {
		if out, ok := fr.Output.(FinalizeOutput); ok {
			report.Assessment = out.Assessment
			report.Persisted = out.Persisted
			if out.Warning != "" {
				report.Warnings = append(report.Warnings, out.Warning)
			}
		}
	}
	if summary, ok := report.GateSummary(); ok {
		for _, w := range summary.Warnings {
			report.Warnings = append(report.Warnings, w.Detail)
		}
	}

	report.DeploymentReady = report.OverallSuccess &&
		report.Assessment != nil &&
		report.Assessment.Decision.Approved
}
