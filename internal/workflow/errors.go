package workflow

import (
	"context"
	"errors"
	"fmt"

	"github.com/fyrsmithlabs/readygate/internal/assessment"
	"github.com/fyrsmithlabs/readygate/internal/metric"
)

// Cause classifies a phase failure for reporting and exit-code mapping.
type Cause string

const (
	// CauseCancelled marks a failure from context cancellation or
	// deadline expiry.
	CauseCancelled Cause = "cancelled"

	// CauseProvider marks a metric provider failure after retries were
	// exhausted.
	CauseProvider Cause = "provider"

	// CausePersistence marks an assessment store write failure.
	CausePersistence Cause = "persistence"

	// CauseInvalidInput marks a rejected request or configuration.
	CauseInvalidInput Cause = "invalid_input"

	// CauseInternal marks any other phase failure, including recovered
	// panics.
	CauseInternal Cause = "internal"
)

// PhaseError is a structured failure of one workflow phase.
type PhaseError struct {
	Phase string
	Cause Cause
	Err   error
}

func (e *PhaseError) Error() string {
	return fmt.Sprintf("phase %s failed: %v", e.Phase, e.Err)
}

func (e *PhaseError) Unwrap() error {
	return e.Err
}

// NewPhaseError wraps err with phase identity and a classified cause.
func NewPhaseError(phase string, err error) *PhaseError {
	return &PhaseError{Phase: phase, Cause: classify(err), Err: err}
}

// classify maps an error onto the failure taxonomy. Cancellation wins
// over everything else so a provider error raised during shutdown is
// still reported as cancelled.
func classify(err error) Cause {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return CauseCancelled
	case errors.Is(err, assessment.ErrPersistence):
		return CausePersistence
	case isProviderError(err):
		return CauseProvider
	case errors.Is(err, errInvalidRequest):
		return CauseInvalidInput
	default:
		return CauseInternal
	}
}

func isProviderError(err error) bool {
	var pe *metric.ProviderError
	return errors.As(err, &pe)
}

var errInvalidRequest = errors.New("invalid assessment request")
