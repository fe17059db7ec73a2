package domain

import (
	"testing"
	"time"
)

func TestConflict_ReferenceTime(t *testing.T) {
	t1 := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	t2 := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		c    Conflict
		want time.Time
	}{
		{"timestamp wins", Conflict{Timestamp: &t1, DetectedAt: &t2, CreatedAt: t2}, t1},
		{"detected_at before created_at", Conflict{DetectedAt: &t2, CreatedAt: t1}, t2},
		{"created_at", Conflict{CreatedAt: t1, LoggedAt: &t2}, t1},
		{"observed_at", Conflict{ObservedAt: &t2}, t2},
		{"belief snapshot", Conflict{BeliefBMeta: &Belief{LastUpdated: t1}}, t1},
		{"epoch fallback", Conflict{}, time.Unix(0, 0).UTC()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.c.ReferenceTime(); !got.Equal(tt.want) {
				t.Errorf("ReferenceTime() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestConflict_Identity(t *testing.T) {
	c := Conflict{BeliefA: "a", BeliefB: "b"}
	id := c.Identity()
	if id == "" || id != (&Conflict{BeliefA: "a", BeliefB: "b"}).Identity() {
		t.Errorf("hash identity not stable: %q", id)
	}
	if id == (&Conflict{BeliefA: "b", BeliefB: "a"}).Identity() {
		t.Error("identity should depend on order")
	}
	c.UUID = "u"
	if c.Identity() != "u" {
		t.Errorf("Identity() = %q, want uuid", c.Identity())
	}
}

func TestStatuses(t *testing.T) {
	for _, s := range []ResolutionStatus{ResolutionResolved, ResolutionUnresolvable, ResolutionAutoResolved} {
		if !s.IsTerminal() {
			t.Errorf("%s should be terminal", s)
		}
	}
	if ResolutionPending.IsTerminal() {
		t.Error("pending is not terminal")
	}
	if !(&Conflict{}).IsPending() || (&Conflict{Resolution: ResolutionResolved}).IsPending() {
		t.Error("IsPending mismatch")
	}
	if Strategy("shrug").Known() || !StrategyReframe.Known() {
		t.Error("Strategy.Known mismatch")
	}
}
