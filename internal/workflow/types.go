// Package workflow runs the deployment-readiness pipeline: a fixed
// ordered sequence of isolated phases feeding the scorer, threshold
// evaluator, risk assessor, and decision engine, folded into one
// persisted assessment.
package workflow

import (
	"context"
	"time"

	"github.com/fyrsmithlabs/readygate/internal/assessment"
	"github.com/fyrsmithlabs/readygate/internal/decision"
	"github.com/fyrsmithlabs/readygate/internal/gates"
	"github.com/fyrsmithlabs/readygate/internal/metric"
)

// Status is the lifecycle state of one phase. A phase transitions exactly
// once from running to a terminal state and is never revisited.
type Status string

const (
	StatusPending Status = "pending"
	StatusRunning Status = "running"
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

// Terminal reports whether the status is final.
func (s Status) Terminal() bool {
	return s == StatusSuccess || s == StatusFailed
}

// Standard phase names, in execution order.
const (
	PhaseInfrastructure = "infrastructure"
	PhaseCollect        = "collect"
	PhaseScore          = "score"
	PhaseGate           = "gate"
	PhaseDebt           = "debt"
	PhaseRisk           = "risk"
	PhaseDecide         = "decide"
	PhaseFinalize       = "finalize"
)

// PhaseResult captures the outcome of one phase execution.
type PhaseResult struct {
	Name      string    `json:"name"`
	Status    Status    `json:"status"`
	Critical  bool      `json:"critical,omitempty"`
	Required  bool      `json:"required"`
	StartedAt time.Time `json:"started_at,omitempty"`
	EndedAt   time.Time `json:"ended_at,omitempty"`

	// Output is the phase's JSON-serializable product. Later phases read
	// it through the report's typed accessors.
	Output any `json:"output,omitempty"`

	Error string `json:"error,omitempty"`
	Cause Cause  `json:"cause,omitempty"`
}

// Request is the external input for one workflow run, supplied by the
// calling CI/CD system.
type Request struct {
	Target  string             `json:"target_id"`
	Metrics map[string]float64 `json:"metrics"`

	// Rules overrides the configured threshold rules when non-nil.
	Rules []gates.Rule `json:"rules,omitempty"`

	// Policy overrides the configured decision policy when non-nil.
	Policy *decision.Policy `json:"policy,omitempty"`
}

// Report is the aggregated outcome of one run. The caller always
// receives a report, even on partial failure.
type Report struct {
	RunID       string    `json:"run_id"`
	Target      string    `json:"target"`
	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at,omitempty"`

	// Phases holds every declared phase in execution order. Phases after
	// a short circuit stay pending.
	Phases []PhaseResult `json:"phases"`

	// OverallSuccess is true only when every required phase succeeded.
	OverallSuccess bool `json:"overall_success"`

	// DeploymentReady is the binary outcome: the pipeline succeeded and
	// the decision engine approved.
	DeploymentReady bool `json:"deployment_ready"`

	// Assessment is the folded, persisted record. Nil when the pipeline
	// short-circuited before finalize.
	Assessment *assessment.Assessment `json:"assessment,omitempty"`

	// Persisted is false when the assessment store write failed; the
	// decision is still valid and returned.
	Persisted bool `json:"persisted"`

	Warnings []string `json:"warnings,omitempty"`
}

// phase result lookup; only terminal successful output is visible, which
// enforces the ordering guarantee that phase N+1 never reads in-flight
// output of phase N.
func (r *Report) output(name string) (any, bool) {
	for i := range r.Phases {
		p := &r.Phases[i]
		if p.Name == name && p.Status == StatusSuccess {
			return p.Output, true
		}
	}
	return nil, false
}

// Result returns the recorded result for a phase name.
func (r *Report) Result(name string) (PhaseResult, bool) {
	for _, p := range r.Phases {
		if p.Name == name {
			return p, true
		}
	}
	return PhaseResult{}, false
}

// CollectedMetrics returns the collect phase output.
func (r *Report) CollectedMetrics() (metric.Set, bool) {
	out, ok := r.output(PhaseCollect)
	if !ok {
		return nil, false
	}
	set, ok := out.(metric.Set)
	return set, ok
}

// Phase is one ordered, isolated unit of work. Implementations read
// prior outputs from the report and must treat it as read-only; the
// runner alone mutates the report.
type Phase interface {
	// Name identifies the phase in reports.
	Name() string

	// Critical phases short-circuit the remaining pipeline on failure.
	Critical() bool

	// Required phases must succeed for OverallSuccess.
	Required() bool

	// Run executes the phase and returns its output.
	Run(ctx context.Context, rc *RunContext, report *Report) (any, error)
}

// RunContext carries per-run collaborators resolved from configuration
// and request overrides. State flows through explicit arguments and
// results; there is no shared mutable global state in the pipeline.
type RunContext struct {
	Request   Request
	Evaluator *gates.Evaluator
	Engine    *decision.Engine
	Provider  metric.Provider
	Now       time.Time
}
