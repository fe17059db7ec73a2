package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Harshitk-cp/axiom/internal/domain"
	"github.com/Harshitk-cp/axiom/internal/journal"
	"go.uber.org/zap"
)

// MethodUnresolvable closes a conflict without picking a side.
const MethodUnresolvable = "unresolvable"

const (
	newerBoost   = 0.08
	olderDecay   = 0.10
	neutralDecay = 0.03
)

var errBeliefNotLocated = errors.New("belief not located in store")

var favorNewerMethods = map[string]struct{}{
	"favor_newer": {}, "prefer_newer": {}, "newer": {}, "synthesized": {}, "synthesis": {},
}

// ConfidenceAdjustment is one side's nudge after a resolution.
type ConfidenceAdjustment struct {
	Side      domain.Target `json:"side"`
	Text      string        `json:"text"`
	Key       string        `json:"key"`
	Delta     float64       `json:"delta"`
	Before    float64       `json:"before"`
	After     float64       `json:"after"`
	Located   bool          `json:"located"`
	Persisted bool          `json:"persisted"`
	Error     string        `json:"error,omitempty"`
}

// propagationDeltas decides how much each side moves for a resolution method.
func propagationDeltas(c *domain.Conflict, method string) (deltaA, deltaB float64) {
	m := strings.ToLower(strings.TrimSpace(method))
	if _, ok := favorNewerMethods[m]; ok {
		switch newerSide(c) {
		case domain.TargetBeliefA:
			return newerBoost, -olderDecay
		case domain.TargetBeliefB:
			return -olderDecay, newerBoost
		}
		return -neutralDecay, -neutralDecay
	}
	if m == MethodUnresolvable {
		return -olderDecay / 2, -olderDecay / 2
	}
	return -neutralDecay, -neutralDecay
}

// newerSide picks the superseding belief by tags, then by last update.
// It returns TargetBoth when neither side is distinguishable.
func newerSide(c *domain.Conflict) domain.Target {
	a, b := c.BeliefAMeta, c.BeliefBMeta
	if a == nil || b == nil {
		return domain.TargetBoth
	}
	switch {
	case hasTag(a.Tags, "supersedes") || hasTag(b.Tags, "superseded"):
		return domain.TargetBeliefA
	case hasTag(b.Tags, "supersedes") || hasTag(a.Tags, "superseded"):
		return domain.TargetBeliefB
	}
	switch {
	case a.LastUpdated.After(b.LastUpdated):
		return domain.TargetBeliefA
	case b.LastUpdated.After(a.LastUpdated):
		return domain.TargetBeliefB
	}
	return domain.TargetBoth
}

func hasTag(tags []string, tag string) bool {
	for _, t := range tags {
		if strings.EqualFold(t, tag) {
			return true
		}
	}
	return false
}

// propagate nudges both sides of a resolved conflict and writes the new
// confidences back to the belief store where they can be located.
func (m *Monitor) propagate(ctx context.Context, c *domain.Conflict, method string) []ConfidenceAdjustment {
	deltaA, deltaB := propagationDeltas(c, method)
	now := m.now().UTC()

	var out []ConfidenceAdjustment
	for _, s := range []struct {
		target domain.Target
		meta   **domain.Belief
		text   string
		delta  float64
	}{
		{domain.TargetBeliefA, &c.BeliefAMeta, c.BeliefA, deltaA},
		{domain.TargetBeliefB, &c.BeliefBMeta, c.BeliefB, deltaB},
	} {
		if *s.meta == nil {
			*s.meta = beliefFromSide(nil, s.text)
		}
		b := *s.meta
		if domain.IsSimulated(b.Source, b.Tags) {
			continue
		}

		adj := ConfidenceAdjustment{Side: s.target, Text: s.text, Key: b.Key, Delta: s.delta, Before: b.Confidence}
		b.Confidence = domain.ClampConfidence(b.Confidence + s.delta)
		b.LastUpdated = now
		adj.After = b.Confidence

		if m.writer != nil {
			res, err := m.writer.adjust(ctx, b, s.delta, now)
			adj.Located, adj.Persisted = res.located, res.persisted
			if res.located {
				adj.Before, adj.After = res.before, res.after
			}
			if err != nil && !errors.Is(err, errBeliefNotLocated) {
				adj.Error = err.Error()
			}
		}

		m.journal.Log(ctx, journal.New(journal.TypeBeliefConfidenceAdjusted, map[string]any{
			"conflict":  c.Identity(),
			"method":    method,
			"side":      string(adj.Side),
			"belief":    adj.Text,
			"key":       adj.Key,
			"delta":     adj.Delta,
			"before":    adj.Before,
			"after":     adj.After,
			"located":   adj.Located,
			"persisted": adj.Persisted,
		}), monitorSource)
		out = append(out, adj)
	}
	return out
}

// beliefWriter locates stored belief records for in-memory beliefs and
// writes changes back to them.
type beliefWriter struct {
	store  domain.BeliefStore
	logger *zap.Logger
}

type adjustResult struct {
	located   bool
	persisted bool
	before    float64
	after     float64
}

// locate finds the stored record by uuid/id first, then by canonical key.
func (w *beliefWriter) locate(ctx context.Context, b *domain.Belief) (*domain.MemoryRecord, error) {
	if b.UUID != "" {
		rec, err := w.store.GetByID(ctx, b.UUID)
		if err == nil && rec != nil && rec.Type == domain.RecordTypeBelief && !rec.IsSimulated() {
			return rec, nil
		}
	}

	records, err := w.store.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("snapshot belief store: %w", err)
	}
	key := b.Key
	if key == "" {
		key = Canonicalize(b.Text).Key
	}
	for i := range records {
		rec := &records[i]
		if rec.Type != domain.RecordTypeBelief || rec.IsSimulated() {
			continue
		}
		if b.UUID != "" && (rec.ID == b.UUID || rec.UUID == b.UUID) {
			return rec, nil
		}
	}
	if key == "" {
		return nil, errBeliefNotLocated
	}
	for i := range records {
		rec := &records[i]
		if rec.Type != domain.RecordTypeBelief || rec.IsSimulated() {
			continue
		}
		if Canonicalize(rec.Content).Key == key {
			return rec, nil
		}
	}
	return nil, errBeliefNotLocated
}

func (w *beliefWriter) adjust(ctx context.Context, b *domain.Belief, delta float64, now time.Time) (adjustResult, error) {
	var res adjustResult
	rec, err := w.locate(ctx, b)
	if err != nil {
		return res, err
	}
	res.located = true
	res.before = rec.Confidence
	rec.Confidence = domain.ClampConfidence(rec.Confidence + delta)
	rec.LastUpdated = now
	res.after = rec.Confidence

	if err := w.store.Save(ctx, rec); err != nil {
		w.logger.Warn("failed to persist belief confidence", zap.String("id", rec.ID), zap.Error(err))
		return res, fmt.Errorf("save belief %s: %w", rec.ID, err)
	}
	res.persisted = true
	return res, nil
}

func (w *beliefWriter) tag(ctx context.Context, b *domain.Belief, tag string) bool {
	rec, err := w.locate(ctx, b)
	if err != nil {
		return false
	}
	if rec.HasTag(tag) {
		return true
	}
	rec.AddTag(tag)
	if err := w.store.Save(ctx, rec); err != nil {
		w.logger.Warn("failed to tag belief", zap.String("id", rec.ID), zap.String("tag", tag), zap.Error(err))
		return false
	}
	return true
}

// link adds other to the stored record's contradicted_with metadata.
func (w *beliefWriter) link(ctx context.Context, b *domain.Belief, other string) error {
	rec, err := w.locate(ctx, b)
	if err != nil {
		return err
	}
	links, added := mergeLink(rec.Metadata["contradicted_with"], other)
	if !added {
		return nil
	}
	if rec.Metadata == nil {
		rec.Metadata = make(map[string]any)
	}
	rec.Metadata["contradicted_with"] = links
	if err := w.store.Save(ctx, rec); err != nil {
		w.logger.Warn("failed to link belief", zap.String("id", rec.ID), zap.String("other", other), zap.Error(err))
		return fmt.Errorf("save belief link: %w", err)
	}
	return nil
}

// mergeLink normalizes stored links, which come back as []any after a JSON
// round trip, and appends v when missing.
func mergeLink(existing any, v string) ([]string, bool) {
	var links []string
	switch t := existing.(type) {
	case []string:
		links = append(links, t...)
	case []any:
		for _, x := range t {
			if s, ok := x.(string); ok {
				links = append(links, s)
			}
		}
	case string:
		if t != "" {
			links = append(links, t)
		}
	}
	for _, l := range links {
		if l == v {
			return links, false
		}
	}
	return append(links, v), true
}
