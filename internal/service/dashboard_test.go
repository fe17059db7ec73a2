package service

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/Harshitk-cp/axiom/internal/domain"
	"github.com/Harshitk-cp/axiom/internal/journal"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestDashboard(f *monitorFixture, cache *BeliefCache, dreams *DreamQueue) *Dashboard {
	d := NewDashboard(f.monitor, cache, dreams, prometheus.NewRegistry(), f.recorder, zap.NewNop())
	d.SetRandSource(rand.NewSource(1))
	return d
}

func TestDashboard_Metrics(t *testing.T) {
	f := newMonitorFixture(t)
	f.record(t, domain.Conflict{UUID: "1", BeliefA: "tea is good", Confidence: 0.4})
	f.record(t, domain.Conflict{UUID: "2", BeliefA: "tea is good", Confidence: 0.6, Resolution: domain.ResolutionPending})
	f.record(t, domain.Conflict{UUID: "3", BeliefA: "cats are fast", Confidence: 0.8, Resolution: domain.ResolutionResolved})

	cache := NewBeliefCache("a is b||c is d", time.Hour, zap.NewNop())
	cache.Current()
	dreams := NewDreamQueue(2, zap.NewNop())
	dreams.Publish(DreamRequest{Kind: DreamKindProbe})

	d := newTestDashboard(f, cache, dreams)
	s := d.Metrics(context.Background())

	assert.Equal(t, 3, s.Total)
	assert.Equal(t, map[string]int{"pending": 2, "resolved": 1}, s.ByStatus)
	assert.Equal(t, map[string]int{"tea_is_good": 2, "cats_are_fast": 1}, s.ByTheme)
	assert.InDelta(t, 0.6, s.AvgConfidence, 1e-9)
	assert.Equal(t, 2, s.CacheSize)
	assert.Equal(t, 1, s.DreamBacklog)

	assert.Equal(t, 2.0, testutil.ToFloat64(d.gauges.conflicts.WithLabelValues("pending")))
	assert.Equal(t, 1.0, testutil.ToFloat64(d.gauges.conflicts.WithLabelValues("resolved")))
	assert.InDelta(t, 0.6, testutil.ToFloat64(d.gauges.avgConfidence), 1e-9)
	assert.Equal(t, 2.0, testutil.ToFloat64(d.gauges.cacheSize))
	assert.Equal(t, 1.0, testutil.ToFloat64(d.gauges.dreamBacklog))
	assert.Len(t, f.recorder.OfType(journal.TypeMetrics), 1)
}

func TestDashboard_MetricsEmpty(t *testing.T) {
	f := newMonitorFixture(t)
	d := newTestDashboard(f, nil, nil)

	s := d.Metrics(context.Background())
	assert.Equal(t, 0, s.Total)
	assert.Equal(t, 0.0, s.AvgConfidence)
}

func TestDashboard_Nag(t *testing.T) {
	f := newMonitorFixture(t)
	d := newTestDashboard(f, nil, nil)

	assert.Equal(t, NagSummary{}, d.Nag(context.Background()))
	assert.Empty(t, f.recorder.OfType(journal.TypeNag))

	f.record(t, domain.Conflict{UUID: "new", BeliefA: "x", BeliefB: "y", DetectedAt: ago(f.now, day)})
	f.record(t, domain.Conflict{UUID: "old", BeliefA: "p", BeliefB: "q", DetectedAt: ago(f.now, 10*day)})

	n := d.Nag(context.Background())
	assert.Equal(t, 2, n.Pending)
	assert.Equal(t, "old", n.OldestUUID)
	assert.Equal(t, "p / q", n.OldestText)
	assert.InDelta(t, 10.0, n.OldestAgeDay, 1e-9)
	assert.Len(t, f.recorder.OfType(journal.TypeNag), 1)
}

func TestDashboard_DreamProbe(t *testing.T) {
	f := newMonitorFixture(t)
	dreams := NewDreamQueue(2, zap.NewNop())
	d := newTestDashboard(f, nil, dreams)

	_, ok := d.DreamProbe(context.Background())
	assert.False(t, ok)

	f.record(t, domain.Conflict{UUID: "1", BeliefA: "x", BeliefB: "y"})
	req, ok := d.DreamProbe(context.Background())
	require.True(t, ok)
	assert.Equal(t, DreamKindProbe, req.Kind)
	assert.Equal(t, "1", req.Conflict.UUID)
	assert.Contains(t, req.Prompt, `"x"`)
	assert.Equal(t, 1, dreams.Len())
	assert.Equal(t, 1.0, testutil.ToFloat64(d.gauges.probes))
	assert.Len(t, f.recorder.OfType(journal.TypeDreamProbe), 1)
}
