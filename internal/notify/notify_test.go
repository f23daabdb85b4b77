package notify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/readygate/internal/assessment"
	"github.com/fyrsmithlabs/readygate/internal/decision"
	"github.com/fyrsmithlabs/readygate/internal/risk"
	"github.com/fyrsmithlabs/readygate/internal/workflow"
)

type fakeConn struct {
	subject string
	data    []byte
	err     error
	drained bool
}

func (f *fakeConn) Publish(subject string, data []byte) error {
	f.subject = subject
	f.data = data
	return f.err
}

func (f *fakeConn) Drain() error {
	f.drained = true
	return nil
}

func sampleReport() *workflow.Report {
	a := assessment.New("svc-checkout", time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC))
	a.QualityScore = 92.5
	a.Risk = risk.Assessment{Overall: 0.2, Level: risk.LevelLow}
	a.Decision = assessment.DecisionRecord{
		Approved: true,
		Tier:     decision.TierDeployMonitored,
	}
	return &workflow.Report{
		RunID:           "run-1",
		Target:          "svc-checkout",
		CompletedAt:     a.Timestamp,
		OverallSuccess:  true,
		DeploymentReady: true,
		Persisted:       true,
		Assessment:      a,
	}
}

func TestPublisher_Publish(t *testing.T) {
	conn := &fakeConn{}
	p := NewPublisher(conn, "readygate.assessments", zap.NewNop())

	require.NoError(t, p.Publish(context.Background(), sampleReport()))
	assert.Equal(t, "readygate.assessments", conn.subject)

	var event Event
	require.NoError(t, json.Unmarshal(conn.data, &event))
	assert.Equal(t, "run-1", event.RunID)
	assert.Equal(t, "svc-checkout", event.Target)
	assert.True(t, event.DeploymentReady)
	assert.True(t, event.Approved)
	assert.Equal(t, "deploy_with_monitoring", event.Tier)
	assert.Equal(t, 92.5, event.QualityScore)
	assert.Equal(t, "low", event.RiskLevel)
}

func TestPublisher_PublishFailedRun(t *testing.T) {
	conn := &fakeConn{}
	p := NewPublisher(conn, "s", zap.NewNop())

	report := &workflow.Report{RunID: "run-2", Target: "svc"}
	require.NoError(t, p.Publish(context.Background(), report))

	var event Event
	require.NoError(t, json.Unmarshal(conn.data, &event))
	assert.False(t, event.Approved)
	assert.Empty(t, event.Tier)
}

func TestPublisher_PublishError(t *testing.T) {
	conn := &fakeConn{err: errors.New("no responders")}
	p := NewPublisher(conn, "s", zap.NewNop())
	assert.Error(t, p.Publish(context.Background(), sampleReport()))
}

func TestPublisher_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	conn := &fakeConn{}
	p := NewPublisher(conn, "s", zap.NewNop())
	assert.Error(t, p.Publish(ctx, sampleReport()))
	assert.Nil(t, conn.data)
}

func TestPublisher_Close(t *testing.T) {
	conn := &fakeConn{}
	p := NewPublisher(conn, "s", zap.NewNop())
	require.NoError(t, p.Close())
	assert.True(t, conn.drained)
}
