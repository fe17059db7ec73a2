package service

import (
	"context"
	"testing"
	"time"

	"github.com/Harshitk-cp/axiom/internal/config"
	"github.com/Harshitk-cp/axiom/internal/domain"
	"github.com/Harshitk-cp/axiom/internal/journal"
	"github.com/Harshitk-cp/axiom/internal/store"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// testBelief extracts a belief from text and pins its confidence and uuid.
func testBelief(t *testing.T, text string, confidence float64) *domain.Belief {
	t.Helper()
	b, err := ExtractBelief(text, domain.DefaultSource)
	require.NoError(t, err)
	b.Confidence = confidence
	b.UUID = uuid.NewString()
	return b
}

func testConfig() *config.ContradictionConfig {
	cfg := config.DefaultContradictionConfig()
	return &cfg
}

type monitorFixture struct {
	cfg      *config.ContradictionConfig
	recorder *journal.Recorder
	store    *store.InMemoryStore
	detector *Detector
	monitor  *Monitor
	now      time.Time
}

func newMonitorFixture(t *testing.T) *monitorFixture {
	t.Helper()
	f := &monitorFixture{
		cfg:      testConfig(),
		recorder: journal.NewRecorder(0),
		store:    store.NewInMemoryStore(),
		now:      time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	f.detector = NewDetector(f.cfg, f.recorder, zap.NewNop())
	f.monitor = NewMonitor(f.store, f.store, f.detector, f.cfg, f.recorder, zap.NewNop())
	f.monitor.now = func() time.Time { return f.now }
	return f
}

// saveBelief persists b the way the pipeline does.
func saveBelief(t *testing.T, s domain.BeliefStore, b *domain.Belief) {
	t.Helper()
	require.NoError(t, s.Save(context.Background(), &domain.MemoryRecord{
		ID:          b.UUID,
		UUID:        b.UUID,
		Type:        domain.RecordTypeBelief,
		Content:     b.Text,
		Confidence:  b.Confidence,
		Source:      b.Source,
		Tags:        b.Tags,
		LastUpdated: b.LastUpdated,
		Metadata:    map[string]any{"key": b.Key},
	}))
}

func (f *monitorFixture) saveBelief(t *testing.T, b *domain.Belief) {
	t.Helper()
	saveBelief(t, f.store, b)
}

func storedConfidence(t *testing.T, s domain.BeliefStore, id string) float64 {
	t.Helper()
	rec, err := s.GetByID(context.Background(), id)
	require.NoError(t, err)
	return rec.Confidence
}

// detected runs the detector on a fresh pair and returns the single conflict.
func (f *monitorFixture) detected(t *testing.T, newText, oldText string) (domain.Conflict, *domain.Belief, *domain.Belief) {
	t.Helper()
	a := testBelief(t, newText, 0.8)
	b := testBelief(t, oldText, 0.8)
	conflicts := f.detector.DetectPairwise(context.Background(), a, []*domain.Belief{b})
	require.Len(t, conflicts, 1)
	return conflicts[0], a, b
}

func (f *monitorFixture) record(t *testing.T, c domain.Conflict) {
	t.Helper()
	require.NoError(t, f.monitor.Record(context.Background(), &c))
}

func (f *monitorFixture) latest(t *testing.T, id string) domain.Conflict {
	t.Helper()
	c, err := f.monitor.Find(context.Background(), id)
	require.NoError(t, err)
	return c
}

func ago(now time.Time, d time.Duration) *time.Time {
	ts := now.Add(-d)
	return &ts
}
