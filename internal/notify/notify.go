// Package notify publishes completed assessment outcomes to NATS so
// downstream deploy tooling can react without polling the API.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/readygate/internal/config"
	"github.com/fyrsmithlabs/readygate/internal/workflow"
)

// Conn is the subset of nats.Conn the publisher needs.
type Conn interface {
	Publish(subject string, data []byte) error
	Drain() error
}

// Event is the published message body: a compact summary, not the full
// report, so consumers stay decoupled from the report shape.
type Event struct {
	RunID           string    `json:"run_id"`
	Target          string    `json:"target"`
	Timestamp       time.Time `json:"timestamp"`
	OverallSuccess  bool      `json:"overall_success"`
	DeploymentReady bool      `json:"deployment_ready"`
	Persisted       bool      `json:"persisted"`

	Approved     bool    `json:"approved"`
	Tier         string  `json:"tier,omitempty"`
	QualityScore float64 `json:"quality_score,omitempty"`
	RiskLevel    string  `json:"risk_level,omitempty"`
}

// Publisher sends assessment events to one subject.
type Publisher struct {
	conn    Conn
	subject string
	logger  *zap.Logger
}

// Connect dials NATS and builds a publisher.
func Connect(cfg config.NotifyConfig, logger *zap.Logger) (*Publisher, error) {
	opts := []nats.Option{
		nats.Name("readygate"),
		nats.MaxReconnects(-1),
	}
	if cfg.Credentials.IsSet() {
		opts = append(opts, nats.UserCredentials(cfg.Credentials.Value()))
	}
	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("nats connect %s: %w", cfg.URL, err)
	}
	return NewPublisher(nc, cfg.Subject, logger), nil
}

// NewPublisher builds a publisher on an existing connection.
func NewPublisher(conn Conn, subject string, logger *zap.Logger) *Publisher {
	return &Publisher{conn: conn, subject: subject, logger: logger}
}

// Publish sends the event derived from a finished report.
func (p *Publisher) Publish(ctx context.Context, report *workflow.Report) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	event := Event{
		RunID:           report.RunID,
		Target:          report.Target,
		Timestamp:       report.CompletedAt,
		OverallSuccess:  report.OverallSuccess,
		DeploymentReady: report.DeploymentReady,
		Persisted:       report.Persisted,
	}
	if a := report.Assessment; a != nil {
		event.Approved = a.Decision.Approved
		event.Tier = string(a.Decision.Tier)
		event.QualityScore = a.QualityScore
		event.RiskLevel = string(a.Risk.Level)
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := p.conn.Publish(p.subject, data); err != nil {
		return fmt.Errorf("publish to %s: %w", p.subject, err)
	}
	p.logger.Debug("assessment event published",
		zap.String("subject", p.subject),
		zap.String("run_id", report.RunID))
	return nil
}

// Close drains the connection.
func (p *Publisher) Close() error {
	return p.conn.Drain()
}
