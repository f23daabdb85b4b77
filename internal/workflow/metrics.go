package workflow

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

const instrumentationName = "github.com/fyrsmithlabs/readygate/internal/workflow"

// Metrics holds the workflow instrumentation. Creation failures degrade
// to no-op instruments so a broken meter provider never blocks a run.
type Metrics struct {
	meter  otelmetric.Meter
	logger *zap.Logger

	runs          otelmetric.Int64Counter
	phaseDuration otelmetric.Float64Histogram
	phaseFailures otelmetric.Int64Counter
	decisions     otelmetric.Int64Counter
}

// NewMetrics creates workflow metrics on the global meter provider.
func NewMetrics(logger *zap.Logger) *Metrics {
	m := &Metrics{
		meter:  otel.Meter(instrumentationName),
		logger: logger,
	}
	m.init()
	return m
}

func (m *Metrics) init() {
	var err error

	m.runs, err = m.meter.Int64Counter(
		"readygate.workflow.runs_total",
		otelmetric.WithDescription("Total number of assessment workflow runs"),
		otelmetric.WithUnit("{run}"),
	)
	if err != nil {
		m.logger.Warn("failed to create runs counter", zap.Error(err))
	}

	m.phaseDuration, err = m.meter.Float64Histogram(
		"readygate.workflow.phase.duration_seconds",
		otelmetric.WithDescription("Duration of workflow phases"),
		otelmetric.WithUnit("s"),
		otelmetric.WithExplicitBucketBoundaries(0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0, 10.0, 30.0),
	)
	if err != nil {
		m.logger.Warn("failed to create phase duration histogram", zap.Error(err))
	}

	m.phaseFailures, err = m.meter.Int64Counter(
		"readygate.workflow.phase.failures_total",
		otelmetric.WithDescription("Total number of failed workflow phases"),
		otelmetric.WithUnit("{failure}"),
	)
	if err != nil {
		m.logger.Warn("failed to create phase failures counter", zap.Error(err))
	}

	m.decisions, err = m.meter.Int64Counter(
		"readygate.workflow.decisions_total",
		otelmetric.WithDescription("Total number of deployment decisions by outcome"),
		otelmetric.WithUnit("{decision}"),
	)
	if err != nil {
		m.logger.Warn("failed to create decisions counter", zap.Error(err))
	}
}

// RecordPhase records one phase execution.
func (m *Metrics) RecordPhase(ctx context.Context, phase string, status Status, cause Cause, duration time.Duration) {
	attrs := []attribute.KeyValue{
		attribute.String("phase", phase),
		attribute.String("status", string(status)),
	}
	if m.phaseDuration != nil {
		m.phaseDuration.Record(ctx, duration.Seconds(), otelmetric.WithAttributes(attrs...))
	}
	if status == StatusFailed && m.phaseFailures != nil {
		m.phaseFailures.Add(ctx, 1, otelmetric.WithAttributes(
			attribute.String("phase", phase),
			attribute.String("cause", string(cause)),
		))
	}
}

// RecordRun records one completed run and its decision outcome.
func (m *Metrics) RecordRun(ctx context.Context, report *Report) {
	if m.runs != nil {
		m.runs.Add(ctx, 1, otelmetric.WithAttributes(
			attribute.Bool("success", report.OverallSuccess),
		))
	}
	if m.decisions != nil && report.Assessment != nil {
		m.decisions.Add(ctx, 1, otelmetric.WithAttributes(
			attribute.Bool("approved", report.Assessment.Decision.Approved),
			attribute.String("tier", string(report.Assessment.Decision.Tier)),
		))
	}
}
