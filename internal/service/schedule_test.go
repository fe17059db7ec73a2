package service

import (
	"context"
	"testing"
	"time"

	"github.com/Harshitk-cp/axiom/internal/domain"
	"github.com/Harshitk-cp/axiom/internal/journal"
	"github.com/stretchr/testify/assert"
)

const day = 24 * time.Hour

func TestRetestThreshold(t *testing.T) {
	tests := []struct {
		days  int
		hours float64
		want  time.Duration
	}{
		{0, 0, DefaultRetestAge},
		{-2, 0, DefaultRetestAge},
		{3, 0, 3 * day},
		{3, 1.5, 90 * time.Minute},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, RetestThreshold(tt.days, tt.hours))
	}
}

func TestScheduleRetest(t *testing.T) {
	f := newMonitorFixture(t)

	aged := domain.Conflict{UUID: "aged", BeliefA: "x", BeliefB: "y", DetectedAt: ago(f.now, 10*day)}
	young := domain.Conflict{UUID: "young", BeliefA: "x", BeliefB: "z", DetectedAt: ago(f.now, 2*day)}
	resolved := domain.Conflict{UUID: "done", BeliefA: "x", BeliefB: "w", DetectedAt: ago(f.now, 30*day), Resolution: domain.ResolutionResolved}
	pending := []domain.Conflict{aged, young, resolved}

	got := f.monitor.ScheduleRetest(context.Background(), pending, 7*day)
	assert.Equal(t, []string{"aged"}, ids(got))
	assert.Len(t, f.recorder.OfType(journal.TypeRetestScheduled), 1)
	assert.Len(t, f.recorder.OfType(journal.TypeRetestScheduleSummary), 1)

	// checked too recently
	f.now = f.now.Add(3 * day)
	assert.Empty(t, f.monitor.ScheduleRetest(context.Background(), pending, 7*day))

	f.now = f.now.Add(12 * time.Hour)
	assert.Equal(t, []string{"aged"}, ids(f.monitor.ScheduleRetest(context.Background(), pending, 7*day)))
}

func TestScheduleRetest_FallsBackToEmbeddedTimestamps(t *testing.T) {
	f := newMonitorFixture(t)
	c := domain.Conflict{
		UUID:        "meta-only",
		BeliefA:     "x",
		BeliefB:     "y",
		BeliefAMeta: &domain.Belief{LastUpdated: f.now.Add(-9 * day)},
	}
	got := f.monitor.ScheduleRetest(context.Background(), []domain.Conflict{c}, 0)
	assert.Equal(t, []string{"meta-only"}, ids(got))

	epoch := domain.Conflict{UUID: "epoch", BeliefA: "x", BeliefB: "q"}
	got = f.monitor.ScheduleRetest(context.Background(), []domain.Conflict{epoch}, day)
	assert.Equal(t, []string{"epoch"}, ids(got))
}
