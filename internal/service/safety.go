package service

import (
	"context"
	"time"

	"github.com/Harshitk-cp/axiom/internal/config"
	"github.com/Harshitk-cp/axiom/internal/journal"
)

// SafetyLimits bound the unresolved backlog before warnings are raised.
type SafetyLimits struct {
	Backlog    int
	StaleAfter time.Duration
}

// DefaultSafetyLimits reads the backlog and staleness limits from the environment.
func DefaultSafetyLimits() SafetyLimits {
	return SafetyLimits{
		Backlog:    config.BacklogWarning(),
		StaleAfter: time.Duration(config.StalenessDays()) * 24 * time.Hour,
	}
}

type SafetyReport struct {
	Unresolved       int  `json:"unresolved"`
	Stale            int  `json:"stale"`
	BacklogWarning   bool `json:"backlog_warning"`
	StalenessWarning bool `json:"staleness_warning"`
}

// SafetyCheck inspects the unresolved backlog and emits warnings. It never
// mutates state.
func (m *Monitor) SafetyCheck(ctx context.Context, limits SafetyLimits) SafetyReport {
	if limits.Backlog <= 0 {
		limits.Backlog = 50
	}
	if limits.StaleAfter <= 0 {
		limits.StaleAfter = 7 * 24 * time.Hour
	}

	pending := m.LoadPending(ctx)
	now := m.now().UTC()

	report := SafetyReport{Unresolved: len(pending)}
	for _, c := range pending {
		if now.Sub(c.ReferenceTime()) > limits.StaleAfter {
			report.Stale++
		}
	}

	if report.Unresolved > limits.Backlog {
		report.BacklogWarning = true
		m.journal.Log(ctx, journal.New(journal.TypeSafetyWarning, map[string]any{
			"unresolved": report.Unresolved,
			"threshold":  limits.Backlog,
		}), monitorSource)
	}
	if report.Stale > 0 {
		report.StalenessWarning = true
		m.journal.Log(ctx, journal.New(journal.TypeStalenessWarning, map[string]any{
			"stale":          report.Stale,
			"threshold_days": limits.StaleAfter.Hours() / 24,
		}), monitorSource)
	}
	return report
}
