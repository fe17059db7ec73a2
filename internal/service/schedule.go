package service

import (
	"context"
	"time"

	"github.com/Harshitk-cp/axiom/internal/domain"
	"github.com/Harshitk-cp/axiom/internal/journal"
)

// DefaultRetestAge is the default age after which a pending conflict is retested.
const DefaultRetestAge = 7 * 24 * time.Hour

// RetestThreshold converts a day threshold, or an hour threshold when
// positive, into a duration.
func RetestThreshold(days int, hours float64) time.Duration {
	if hours > 0 {
		return time.Duration(hours * float64(time.Hour))
	}
	if days > 0 {
		return time.Duration(days) * 24 * time.Hour
	}
	return DefaultRetestAge
}

// ScheduleRetest selects pending conflicts older than threshold whose last
// scheduling check is at least threshold/2 in the past.
func (m *Monitor) ScheduleRetest(ctx context.Context, pending []domain.Conflict, threshold time.Duration) []domain.Conflict {
	if threshold <= 0 {
		threshold = DefaultRetestAge
	}
	now := m.now().UTC()
	gap := threshold / 2

	var selected []domain.Conflict

	m.schedMu.Lock()
	for _, c := range pending {
		if !c.IsPending() {
			continue
		}
		age := now.Sub(c.ReferenceTime())
		if age <= threshold {
			continue
		}
		id := c.Identity()
		if last, ok := m.lastChecked.Get(id); ok && now.Sub(last) < gap {
			continue
		}
		m.lastChecked.Add(id, now)
		selected = append(selected, c)
	}
	m.schedMu.Unlock()

	for _, c := range selected {
		m.journal.Log(ctx, journal.New(journal.TypeRetestScheduled, map[string]any{
			"uuid":     c.Identity(),
			"belief_a": c.BeliefA,
			"belief_b": c.BeliefB,
			"age_days": now.Sub(c.ReferenceTime()).Hours() / 24,
		}), monitorSource)
	}
	m.journal.Log(ctx, journal.New(journal.TypeRetestScheduleSummary, map[string]any{
		"pending":         len(pending),
		"scheduled":       len(selected),
		"threshold_hours": threshold.Hours(),
	}), monitorSource)
	return selected
}
