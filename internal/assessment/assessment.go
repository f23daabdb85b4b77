// Package assessment defines the persisted aggregate root of one
// orchestrator run and the narrow store interface used for audit and
// trend queries.
package assessment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/fyrsmithlabs/readygate/internal/decision"
	"github.com/fyrsmithlabs/readygate/internal/gates"
	"github.com/fyrsmithlabs/readygate/internal/metric"
	"github.com/fyrsmithlabs/readygate/internal/risk"
)

// ErrPersistence marks an Assessment Store failure. Persistence failures
// are reported but never invalidate a computed decision.
var ErrPersistence = errors.New("assessment persistence failed")

// DecisionRecord is the persisted shape of the engine output.
type DecisionRecord struct {
	Approved   bool          `json:"approved"`
	Confidence float64       `json:"confidence"`
	Reasoning  []string      `json:"reasoning"`
	Tier       decision.Tier `json:"tier"`
}

// Assessment is the immutable outcome record of one orchestrator run.
// Created once, owned exclusively by the store after Save, never updated
// in place.
type Assessment struct {
	ID          string             `json:"id"`
	Target      string             `json:"target"`
	Timestamp   time.Time          `json:"timestamp"`
	Metrics     []metric.Metric    `json:"metrics"`
	GateResults []gates.GateResult `json:"gate_results"`
	Risk        risk.Assessment    `json:"risk"`
	Debt        risk.DebtAnalysis  `json:"debt"`
	Trend       risk.Trend         `json:"trend"`

	QualityScore float64 `json:"quality_score"`
	Grade        string  `json:"grade"`

	// ScoreIncomplete is set when weighted metrics were missing and the
	// score is conservatively low.
	ScoreIncomplete bool `json:"score_incomplete,omitempty"`

	Decision        DecisionRecord `json:"decision"`
	Recommendations []string       `json:"recommendations,omitempty"`
}

// New creates an assessment skeleton with identity and timestamp. The
// orchestrator's finalize phase fills the remaining fields before the
// record becomes immutable.
func New(target string, now time.Time) *Assessment {
	return &Assessment{
		ID:        uuid.NewString(),
		Target:    target,
		Timestamp: now.UTC(),
	}
}

// Validate rejects records that cannot be persisted.
func (a *Assessment) Validate() error {
	if a.ID == "" {
		return fmt.Errorf("assessment id is required")
	}
	if a.Target == "" {
		return fmt.Errorf("assessment target is required")
	}
	if a.Timestamp.IsZero() {
		return fmt.Errorf("assessment timestamp is required")
	}
	return nil
}

// TimeRange bounds a history query. A zero bound is open.
type TimeRange struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// Contains reports whether t falls inside the range.
func (r TimeRange) Contains(t time.Time) bool {
	if !r.From.IsZero() && t.Before(r.From) {
		return false
	}
	if !r.To.IsZero() && t.After(r.To) {
		return false
	}
	return true
}

// Store is the persistence boundary for assessments. Records are
// append-only historical data keyed by (target, timestamp); there are no
// updates and no deletes.
type Store interface {
	// Save persists one assessment.
	Save(ctx context.Context, a *Assessment) error

	// Query returns assessments for the target inside the range, oldest
	// first. An empty target matches every target.
	Query(ctx context.Context, target string, tr TimeRange) ([]*Assessment, error)

	// Close releases store resources.
	Close() error
}

// History converts stored assessments into trend points, oldest first.
func History(records []*Assessment) []risk.HistoryPoint {
	points := make([]risk.HistoryPoint, 0, len(records))
	for _, a := range records {
		points = append(points, risk.HistoryPoint{
			Timestamp: a.Timestamp,
			Score:     a.QualityScore,
		})
	}
	return points
}
