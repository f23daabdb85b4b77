package assessment

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/readygate/internal/decision"
	"github.com/fyrsmithlabs/readygate/internal/risk"
)

func sampleAssessment(target string, ts time.Time, score float64) *Assessment {
	a := New(target, ts)
	a.QualityScore = score
	a.Grade = decision.Grade(score)
	a.Decision = DecisionRecord{
		Approved:   score >= 70,
		Confidence: 0.9,
		Reasoning:  []string{"ok"},
		Tier:       decision.TierDeployMonitored,
	}
	a.Risk = risk.Assessment{Overall: 0.2, Level: risk.LevelLow}
	return a
}

func TestNew(t *testing.T) {
	now := time.Date(2025, 7, 1, 12, 0, 0, 0, time.FixedZone("x", 3600))
	a := New("svc-a", now)

	assert.NotEmpty(t, a.ID)
	assert.Equal(t, "svc-a", a.Target)
	assert.Equal(t, time.UTC, a.Timestamp.Location())
	assert.NoError(t, a.Validate())
}

func TestAssessment_Validate(t *testing.T) {
	a := New("svc-a", time.Now())
	assert.NoError(t, a.Validate())

	assert.Error(t, (&Assessment{Target: "svc", Timestamp: time.Now()}).Validate())
	assert.Error(t, (&Assessment{ID: "x", Timestamp: time.Now()}).Validate())
	assert.Error(t, (&Assessment{ID: "x", Target: "svc"}).Validate())
}

func TestTimeRange_Contains(t *testing.T) {
	base := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	tr := TimeRange{From: base, To: base.Add(48 * time.Hour)}

	assert.True(t, tr.Contains(base))
	assert.True(t, tr.Contains(base.Add(24*time.Hour)))
	assert.True(t, tr.Contains(base.Add(48*time.Hour)))
	assert.False(t, tr.Contains(base.Add(-time.Second)))
	assert.False(t, tr.Contains(base.Add(49*time.Hour)))

	open := TimeRange{}
	assert.True(t, open.Contains(base))
}

func TestMemoryStore_SaveAndQuery(t *testing.T) {
	store := NewMemoryStore()
	defer store.Close()

	base := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, sampleAssessment("svc-a", base, 80)))
	require.NoError(t, store.Save(ctx, sampleAssessment("svc-a", base.Add(24*time.Hour), 85)))
	require.NoError(t, store.Save(ctx, sampleAssessment("svc-b", base, 60)))

	got, err := store.Query(ctx, "svc-a", TimeRange{})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.True(t, got[0].Timestamp.Before(got[1].Timestamp))

	all, err := store.Query(ctx, "", TimeRange{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	ranged, err := store.Query(ctx, "svc-a", TimeRange{From: base.Add(time.Hour)})
	require.NoError(t, err)
	assert.Len(t, ranged, 1)
}

func TestMemoryStore_FailSaves(t *testing.T) {
	store := NewMemoryStore()
	store.FailSaves = true

	err := store.Save(context.Background(), sampleAssessment("svc-a", time.Now(), 80))
	assert.ErrorIs(t, err, ErrPersistence)
}

func TestMemoryStore_CancelledContextKeepsChain(t *testing.T) {
	store := NewMemoryStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := store.Save(ctx, sampleAssessment("svc-a", time.Now(), 80))
	assert.ErrorIs(t, err, ErrPersistence)
	assert.ErrorIs(t, err, context.Canceled)

	_, err = store.Query(ctx, "svc-a", TimeRange{})
	assert.ErrorIs(t, err, ErrPersistence)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSQLiteStore_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "assessments.db")
	store, err := NewSQLiteStore(path)
	require.NoError(t, err)
	defer store.Close()

	base := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	ctx := context.Background()

	saved := sampleAssessment("svc-a", base, 88)
	saved.Recommendations = []string{"deploy with enhanced monitoring"}
	require.NoError(t, store.Save(ctx, saved))
	require.NoError(t, store.Save(ctx, sampleAssessment("svc-a", base.Add(24*time.Hour), 91)))
	require.NoError(t, store.Save(ctx, sampleAssessment("svc-b", base, 55)))

	got, err := store.Query(ctx, "svc-a", TimeRange{})
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, saved.ID, got[0].ID)
	assert.Equal(t, saved.QualityScore, got[0].QualityScore)
	assert.Equal(t, saved.Decision.Tier, got[0].Decision.Tier)
	assert.Equal(t, saved.Recommendations, got[0].Recommendations)
	assert.True(t, got[0].Decision.Approved)
}

func TestSQLiteStore_TimeRangeQuery(t *testing.T) {
	path := filepath.Join(t.TempDir(), "assessments.db")
	store, err := NewSQLiteStore(path)
	require.NoError(t, err)
	defer store.Close()

	base := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		require.NoError(t, store.Save(ctx, sampleAssessment("svc-a", base.Add(time.Duration(i)*24*time.Hour), 80)))
	}

	got, err := store.Query(ctx, "svc-a", TimeRange{
		From: base.Add(24 * time.Hour),
		To:   base.Add(72 * time.Hour),
	})
	require.NoError(t, err)
	assert.Len(t, got, 3)
}

func TestSQLiteStore_DuplicateKeyRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "assessments.db")
	store, err := NewSQLiteStore(path)
	require.NoError(t, err)
	defer store.Close()

	base := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, sampleAssessment("svc-a", base, 80)))
	err = store.Save(ctx, sampleAssessment("svc-a", base, 81))
	assert.ErrorIs(t, err, ErrPersistence)
}

func TestHistory(t *testing.T) {
	base := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	records := []*Assessment{
		sampleAssessment("svc-a", base, 80),
		sampleAssessment("svc-a", base.Add(24*time.Hour), 85),
	}

	points := History(records)
	require.Len(t, points, 2)
	assert.Equal(t, 80.0, points[0].Score)
	assert.Equal(t, 85.0, points[1].Score)
}
