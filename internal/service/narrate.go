package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/Harshitk-cp/axiom/internal/domain"
	"github.com/Harshitk-cp/axiom/internal/journal"
)

const defaultChainLimit = 50

// NarrateStory renders one conflict as a single line.
func (m *Monitor) NarrateStory(c domain.Conflict) string {
	if strings.TrimSpace(c.BeliefA) == "" && strings.TrimSpace(c.BeliefB) == "" {
		return ""
	}
	status := string(c.Resolution)
	if status == "" {
		status = string(domain.ResolutionPending)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%q conflicts with %q", c.BeliefA, c.BeliefB)
	if c.Cause != "" {
		fmt.Fprintf(&sb, " (%s)", c.Cause)
	}
	fmt.Fprintf(&sb, "; confidence %.2f; status %s", c.Confidence, status)
	if c.ResolvedMethod != "" {
		fmt.Fprintf(&sb, " via %s", c.ResolvedMethod)
	}
	if c.RetestStatus != "" {
		fmt.Fprintf(&sb, "; last retest %s", c.RetestStatus)
	}
	return sb.String()
}

// NarrateChain renders the logged conflicts touching key and/or theme,
// oldest first, keeping only the last limit entries.
func (m *Monitor) NarrateChain(ctx context.Context, key, theme string, limit int) string {
	if limit <= 0 {
		limit = defaultChainLimit
	}

	var matched []domain.Conflict
	for _, c := range m.LoadAll(ctx) {
		if key != "" && !touchesKey(c, key) {
			continue
		}
		if theme != "" && m.themeOf(c) != theme {
			continue
		}
		matched = append(matched, c)
	}

	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].ReferenceTime().Before(matched[j].ReferenceTime())
	})
	if len(matched) > limit {
		matched = matched[len(matched)-limit:]
	}

	lines := make([]string, 0, len(matched))
	for _, c := range matched {
		story := m.NarrateStory(c)
		if story == "" {
			continue
		}
		lines = append(lines, c.ReferenceTime().Format(time.RFC3339)+" "+story)
	}

	m.journal.Log(ctx, journal.New(journal.TypeChainSummary, map[string]any{
		"key":   key,
		"theme": theme,
		"count": len(lines),
	}), monitorSource)
	return strings.Join(lines, "\n")
}

func touchesKey(c domain.Conflict, key string) bool {
	for _, side := range []struct {
		meta *domain.Belief
		text string
	}{{c.BeliefAMeta, c.BeliefA}, {c.BeliefBMeta, c.BeliefB}} {
		if side.meta != nil && side.meta.Key == key {
			return true
		}
		if Canonicalize(side.text).Key == key {
			return true
		}
	}
	return false
}
