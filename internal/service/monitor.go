package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Harshitk-cp/axiom/internal/config"
	"github.com/Harshitk-cp/axiom/internal/domain"
	"github.com/Harshitk-cp/axiom/internal/journal"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
)

const (
	monitorSource = "contradiction_monitor"

	retestChangeTolerance = 0.05
	lastCheckedCacheSize  = 4096
)

// ErrConflictNotFound is returned when no logged conflict has the given id.
var ErrConflictNotFound = errors.New("conflict not found")

// Monitor owns the lifecycle of logged conflicts: retesting, scheduling,
// outcome logging, clustering, narration and export.
type Monitor struct {
	conflicts domain.ConflictLog
	writer    *beliefWriter
	detector  *Detector
	cfg       *config.ContradictionConfig
	journal   journal.Sink
	logger    *zap.Logger
	now       func() time.Time

	schedMu     sync.Mutex
	lastChecked *lru.Cache[string, time.Time]
}

// NewMonitor builds a monitor. conflicts and beliefs may be nil; every
// store-touching operation then degrades to an empty result.
func NewMonitor(conflicts domain.ConflictLog, beliefs domain.BeliefStore, detector *Detector, cfg *config.ContradictionConfig, j journal.Sink, logger *zap.Logger) *Monitor {
	if cfg == nil {
		def := config.DefaultContradictionConfig()
		cfg = &def
	}
	cache, _ := lru.New[string, time.Time](lastCheckedCacheSize)
	m := &Monitor{
		conflicts:   conflicts,
		detector:    detector,
		cfg:         cfg,
		journal:     journal.Safe(j, logger),
		logger:      logger,
		now:         time.Now,
		lastChecked: cache,
	}
	if beliefs != nil {
		m.writer = &beliefWriter{store: beliefs, logger: logger}
	}
	return m
}

// LoadAll returns the latest version of every logged conflict.
func (m *Monitor) LoadAll(ctx context.Context) []domain.Conflict {
	if m.conflicts == nil {
		return nil
	}
	all, err := m.conflicts.Scan(ctx)
	if err != nil {
		m.logger.Warn("failed to scan conflict log", zap.Error(err))
		return nil
	}
	return all
}

// LoadPending returns conflicts that are not yet in a terminal state.
func (m *Monitor) LoadPending(ctx context.Context) []domain.Conflict {
	var pending []domain.Conflict
	for _, c := range m.LoadAll(ctx) {
		if c.IsPending() {
			pending = append(pending, c)
		}
	}
	return pending
}

// Find returns the latest version of the conflict with the given identity.
func (m *Monitor) Find(ctx context.Context, id string) (domain.Conflict, error) {
	for _, c := range m.LoadAll(ctx) {
		if c.Identity() == id {
			return c, nil
		}
	}
	return domain.Conflict{}, fmt.Errorf("%w: %s", ErrConflictNotFound, id)
}

// Record appends a conflict version to the log.
func (m *Monitor) Record(ctx context.Context, c *domain.Conflict) error {
	if m.conflicts == nil {
		return nil
	}
	if err := m.conflicts.Append(ctx, c); err != nil {
		m.logger.Warn("failed to append conflict", zap.String("conflict", c.Identity()), zap.Error(err))
		return err
	}
	return nil
}

// RetestUnresolved retests every pending conflict in the log.
func (m *Monitor) RetestUnresolved(ctx context.Context) ([]domain.Conflict, *BatchOutcome) {
	return m.RetestConflicts(ctx, m.LoadPending(ctx))
}

// RetestConflicts rebuilds belief stand-ins for each pending conflict and
// reruns the detector. Conflicts that no longer fire are auto-resolved.
func (m *Monitor) RetestConflicts(ctx context.Context, pending []domain.Conflict) ([]domain.Conflict, *BatchOutcome) {
	outcome := &BatchOutcome{}
	out := make([]domain.Conflict, 0, len(pending))
	for _, c := range pending {
		if !c.IsPending() {
			outcome.Skip()
			continue
		}
		updated, err := m.retestOne(ctx, c)
		if err != nil {
			outcome.Fail(err)
		} else {
			outcome.Succeed()
		}
		out = append(out, updated)
	}
	m.logger.Info("retest complete", outcome.ZapFields()...)
	return out, outcome
}

func (m *Monitor) retestOne(ctx context.Context, c domain.Conflict) (updated domain.Conflict, err error) {
	defer func() {
		if r := recover(); r != nil {
			updated, err = c, fmt.Errorf("retest %s panicked: %v", c.Identity(), r)
		}
	}()

	now := m.now().UTC()
	oldConfidence := c.Confidence
	a := standIn(c.BeliefAMeta, c.BeliefA, domain.PolarityPositive, c.Scope)
	b := standIn(c.BeliefBMeta, c.BeliefB, domain.PolarityNegative, c.Scope)

	var fired bool
	var fresh domain.Conflict
	if m.detector != nil {
		fresh, fired = m.detector.Recheck(a, b)
	}

	c.RetestedAt = &now
	switch {
	case !fired:
		c.RetestStatus = domain.RetestAutoResolved
		c.Resolution = domain.ResolutionAutoResolved
		c.Confidence = 0
		c.ResolvedMethod = "retest"
		c.ResolvedAt = &now
	case math.Abs(fresh.Confidence-oldConfidence) > retestChangeTolerance:
		c.RetestStatus = domain.RetestChanged
		c.Confidence = fresh.Confidence
	default:
		c.RetestStatus = domain.RetestStillConflicts
	}

	m.journal.Log(ctx, journal.New(journal.TypeRetest, map[string]any{
		"uuid":           c.Identity(),
		"belief_a":       c.BeliefA,
		"belief_b":       c.BeliefB,
		"status":         string(c.RetestStatus),
		"old_confidence": oldConfidence,
		"new_confidence": c.Confidence,
	}), monitorSource)

	return c, m.Record(ctx, &c)
}

// standIn is a lightweight belief rebuilt from a logged conflict side with
// an assumed polarity.
func standIn(meta *domain.Belief, text string, polarity domain.Polarity, scope string) *domain.Belief {
	form := Canonicalize(text)
	b := &domain.Belief{
		Key:        form.Key,
		KeyVersion: form.Version,
		Text:       strings.TrimSpace(text),
		Polarity:   polarity,
		Confidence: 0.5,
		Scope:      scope,
	}
	if meta != nil {
		b.Confidence = meta.Confidence
		b.LastUpdated = meta.LastUpdated
		b.Source = meta.Source
		b.Tags = meta.Tags
	}
	if b.Scope == "" {
		b.Scope = domain.DefaultScope
	}
	return b
}

// LogOutcome closes a conflict as resolved, or unresolvable when method says
// so, then narrates it and propagates confidence. Each step is independent.
func (m *Monitor) LogOutcome(ctx context.Context, c domain.Conflict, method string) domain.Conflict {
	outcome := &BatchOutcome{}
	now := m.now().UTC()
	c.BeliefAMeta = cloneBelief(c.BeliefAMeta)
	c.BeliefBMeta = cloneBelief(c.BeliefBMeta)

	if method == MethodUnresolvable {
		c.Resolution = domain.ResolutionUnresolvable
	} else {
		c.Resolution = domain.ResolutionResolved
	}
	c.ResolvedMethod = method
	c.ResolvedAt = &now

	m.step(outcome, "journal outcome", func() error {
		eventType := journal.TypeResolved
		if c.Resolution == domain.ResolutionUnresolvable {
			eventType = journal.TypeUnresolvable
		}
		m.journal.Log(ctx, journal.New(eventType, map[string]any{
			"uuid":            c.Identity(),
			"belief_a":        c.BeliefA,
			"belief_b":        c.BeliefB,
			"resolved_method": method,
		}), monitorSource)
		return nil
	})

	m.step(outcome, "narrate", func() error {
		m.journal.Log(ctx, journal.New(journal.TypeNarrative, map[string]any{
			"uuid":  c.Identity(),
			"story": m.NarrateStory(c),
		}), monitorSource)
		return nil
	})

	m.step(outcome, "propagate", func() error {
		for _, adj := range m.propagate(ctx, &c, method) {
			if adj.Error != "" {
				return errors.New(adj.Error)
			}
		}
		return nil
	})

	m.step(outcome, "persist", func() error {
		return m.Record(ctx, &c)
	})

	if outcome.Failed > 0 {
		m.logger.Warn("outcome logged with failures", append(outcome.ZapFields(), zap.String("conflict", c.Identity()))...)
	}
	return c
}

// step runs one best-effort unit, recovering panics into the outcome.
func (m *Monitor) step(outcome *BatchOutcome, name string, fn func() error) {
	defer func() {
		if r := recover(); r != nil {
			outcome.Fail(fmt.Errorf("%s panicked: %v", name, r))
		}
	}()
	if err := fn(); err != nil {
		outcome.Fail(fmt.Errorf("%s: %w", name, err))
		return
	}
	outcome.Succeed()
}

// ClusterByTheme groups conflicts by explicit theme, else the configured
// theme for the derived key, else the key itself, else "unclassified".
func (m *Monitor) ClusterByTheme(ctx context.Context, conflicts []domain.Conflict) map[string][]domain.Conflict {
	clusters := make(map[string][]domain.Conflict)
	for _, c := range conflicts {
		theme := m.themeOf(c)
		clusters[theme] = append(clusters[theme], c)
	}

	counts := make(map[string]int, len(clusters))
	for theme, members := range clusters {
		counts[theme] = len(members)
	}
	m.journal.Log(ctx, journal.New(journal.TypeClustered, map[string]any{
		"total":  len(conflicts),
		"themes": counts,
	}), monitorSource)
	return clusters
}

func (m *Monitor) themeOf(c domain.Conflict) string {
	if t := strings.TrimSpace(c.Theme); t != "" {
		return t
	}
	key := conflictKey(c)
	if key == "" {
		return "unclassified"
	}
	if theme, ok := m.cfg.Themes[key]; ok && theme != "" {
		return theme
	}
	return key
}

// conflictKey derives the canonical key of the conflict's first side.
func conflictKey(c domain.Conflict) string {
	if c.BeliefAMeta != nil && c.BeliefAMeta.Key != "" {
		return c.BeliefAMeta.Key
	}
	return Canonicalize(c.BeliefA).Key
}

// PrioritizeByEmotion orders conflicts by |emotion| * confidence. With no
// emotion data anywhere the input order is kept. topN <= 0 means all.
func (m *Monitor) PrioritizeByEmotion(ctx context.Context, conflicts []domain.Conflict, topN int) []domain.Conflict {
	type scored struct {
		c     domain.Conflict
		score float64
	}
	items := make([]scored, len(conflicts))
	anyEmotion := false
	for i, c := range conflicts {
		items[i].c = c
		if e, ok := emotionOf(c); ok {
			anyEmotion = true
			items[i].score = math.Abs(e) * c.Confidence
		}
	}

	if anyEmotion {
		sort.SliceStable(items, func(i, j int) bool { return items[i].score > items[j].score })
	}

	out := make([]domain.Conflict, 0, len(items))
	for _, it := range items {
		out = append(out, it.c)
	}
	if topN > 0 && topN < len(out) {
		out = out[:topN]
	}

	top := make([]map[string]any, 0, len(out))
	for i, c := range out {
		top = append(top, map[string]any{"uuid": c.Identity(), "score": items[i].score})
	}
	m.journal.Log(ctx, journal.New(journal.TypePriorityScored, map[string]any{
		"total":       len(conflicts),
		"has_emotion": anyEmotion,
		"top":         top,
	}), monitorSource)
	return out
}

// emotionOf reads the conflict's emotion score, else the strongest one on
// its embedded belief snapshots.
func emotionOf(c domain.Conflict) (float64, bool) {
	if c.EmotionScore != nil {
		return *c.EmotionScore, true
	}
	var best float64
	found := false
	for _, meta := range []*domain.Belief{c.BeliefAMeta, c.BeliefBMeta} {
		if meta != nil && meta.EmotionScore != nil {
			if !found || math.Abs(*meta.EmotionScore) > math.Abs(best) {
				best = *meta.EmotionScore
			}
			found = true
		}
	}
	return best, found
}
