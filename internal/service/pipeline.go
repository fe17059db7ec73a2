package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Harshitk-cp/axiom/internal/domain"
	"github.com/Harshitk-cp/axiom/internal/journal"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const pipelineSource = "belief_pipeline"

type IngestResult struct {
	Belief    *domain.Belief    `json:"belief"`
	Conflicts []domain.Conflict `json:"conflicts"`
	Outcome   *BatchOutcome     `json:"outcome"`
}

// Pipeline runs the full path for one new statement: coerce, compare against
// the active cache, resolve, log, then extend the cache.
type Pipeline struct {
	cache    *BeliefCache
	detector *Detector
	applier  *Applier
	monitor  *Monitor
	beliefs  domain.BeliefStore
	writer   *beliefWriter
	journal  journal.Sink
	logger   *zap.Logger
}

func NewPipeline(cache *BeliefCache, detector *Detector, applier *Applier, monitor *Monitor, beliefs domain.BeliefStore, j journal.Sink, logger *zap.Logger) *Pipeline {
	p := &Pipeline{
		cache:    cache,
		detector: detector,
		applier:  applier,
		monitor:  monitor,
		beliefs:  beliefs,
		journal:  journal.Safe(j, logger),
		logger:   logger,
	}
	if beliefs != nil {
		p.writer = &beliefWriter{store: beliefs, logger: logger}
	}
	return p
}

// Ingest accepts anything CoerceBelief accepts. Rejected input is the only
// error; downstream failures are counted in the outcome.
func (p *Pipeline) Ingest(ctx context.Context, input any) (*IngestResult, error) {
	belief, err := CoerceBelief(input)
	if err != nil {
		if errors.Is(err, domain.ErrSimulatedContent) {
			p.journal.Log(ctx, journal.New(journal.TypeSimulatedContentRejected, map[string]any{
				"input": fmt.Sprint(input),
			}), pipelineSource)
		}
		return nil, err
	}
	if belief.UUID == "" {
		belief.UUID = uuid.NewString()
	}

	outcome := &BatchOutcome{}
	current := p.cache.Current()
	recent := make([]*domain.Belief, len(current))
	for i := range current {
		recent[i] = &current[i]
	}

	detected := p.detector.DetectPairwise(ctx, belief, recent)

	conflicts := make([]domain.Conflict, 0, len(detected))
	for _, c := range detected {
		if err := p.linkBack(ctx, belief, c.BeliefBMeta); err != nil {
			outcome.Fail(err)
		}
		if p.applier != nil {
			c = p.applier.Apply(ctx, c)
		}
		if p.monitor != nil {
			if err := p.monitor.Record(ctx, &c); err != nil {
				outcome.Fail(err)
			} else {
				outcome.Succeed()
			}
		}
		conflicts = append(conflicts, c)
	}

	if err := p.persist(ctx, belief); err != nil {
		outcome.Fail(err)
	}
	p.cache.Extend(*belief)

	p.logger.Debug("belief ingested",
		zap.String("key", belief.Key),
		zap.Int("conflicts", len(conflicts)),
		zap.Int("failed", outcome.Failed))
	return &IngestResult{Belief: belief, Conflicts: conflicts, Outcome: outcome}, nil
}

type ScanResult struct {
	Beliefs   int               `json:"beliefs"`
	Conflicts []domain.Conflict `json:"conflicts"`
	Recorded  int               `json:"recorded"`
	Outcome   *BatchOutcome     `json:"outcome"`
}

// Scan runs the bulk pairwise scan over the active cache. With record set,
// conflicts not already logged for the same pair are resolved and logged.
func (p *Pipeline) Scan(ctx context.Context, record bool) *ScanResult {
	current := p.cache.Current()
	beliefs := make([]*domain.Belief, len(current))
	for i := range current {
		beliefs[i] = &current[i]
	}

	detected := p.detector.DetectBatch(ctx, beliefs)
	result := &ScanResult{Beliefs: len(beliefs), Conflicts: detected, Outcome: &BatchOutcome{}}
	if result.Conflicts == nil {
		result.Conflicts = []domain.Conflict{}
	}
	if !record || p.monitor == nil {
		return result
	}

	logged := make(map[string]struct{})
	for _, c := range p.monitor.LoadAll(ctx) {
		logged[pairKey(c.BeliefA, c.BeliefB)] = struct{}{}
	}
	for i, c := range detected {
		k := pairKey(c.BeliefA, c.BeliefB)
		if _, ok := logged[k]; ok {
			result.Outcome.Skip()
			continue
		}
		if p.applier != nil {
			c = p.applier.Apply(ctx, c)
		}
		if err := p.monitor.Record(ctx, &c); err != nil {
			result.Outcome.Fail(err)
			continue
		}
		logged[k] = struct{}{}
		result.Conflicts[i] = c
		result.Recorded++
		result.Outcome.Succeed()
	}

	p.logger.Info("belief scan complete",
		zap.Int("beliefs", result.Beliefs),
		zap.Int("conflicts", len(detected)),
		zap.Int("recorded", result.Recorded))
	return result
}

// pairKey identifies a conflict by its two statements regardless of order.
func pairKey(a, b string) string {
	a, b = strings.ToLower(strings.TrimSpace(a)), strings.ToLower(strings.TrimSpace(b))
	if b < a {
		a, b = b, a
	}
	return a + "\x00" + b
}

// linkBack mirrors the incoming belief's contradicted_with link onto the
// counterpart's cache entry and stored record. Detection only links the
// snapshot copies it was handed.
func (p *Pipeline) linkBack(ctx context.Context, incoming, counterpart *domain.Belief) error {
	if counterpart == nil || !linkedTo(incoming, counterpart.Ref()) {
		return nil
	}
	p.cache.Link(counterpart.Ref(), incoming.Ref())
	if p.writer == nil {
		return nil
	}
	err := p.writer.link(ctx, counterpart, incoming.Ref())
	if errors.Is(err, errBeliefNotLocated) {
		return nil
	}
	return err
}

func linkedTo(b *domain.Belief, ref string) bool {
	for _, l := range b.ContradictedWith {
		if l == ref {
			return true
		}
	}
	return false
}

func (p *Pipeline) persist(ctx context.Context, b *domain.Belief) error {
	if p.beliefs == nil {
		return nil
	}
	rec := &domain.MemoryRecord{
		ID:          b.UUID,
		UUID:        b.UUID,
		Type:        domain.RecordTypeBelief,
		Content:     b.Text,
		Confidence:  b.Confidence,
		Tags:        b.Tags,
		Source:      b.Source,
		MemoryType:  "semantic",
		LastUpdated: b.LastUpdated,
		Metadata: map[string]any{
			"key":         b.Key,
			"key_version": b.KeyVersion,
			"polarity":    int(b.Polarity),
			"scope":       b.Scope,
		},
	}
	if len(b.ContradictedWith) > 0 {
		rec.Metadata["contradicted_with"] = b.ContradictedWith
	}
	if err := p.beliefs.Save(ctx, rec); err != nil {
		p.logger.Warn("failed to persist belief", zap.String("key", b.Key), zap.Error(err))
		return fmt.Errorf("persist belief: %w", err)
	}
	return nil
}

// Warm extends the active cache with the genuine beliefs already in the store.
func (p *Pipeline) Warm(ctx context.Context) int {
	if p.beliefs == nil {
		return 0
	}
	records, err := p.beliefs.Snapshot(ctx)
	if err != nil {
		p.logger.Warn("failed to snapshot belief store", zap.Error(err))
		return 0
	}
	var beliefs []domain.Belief
	for _, rec := range records {
		if rec.Type != domain.RecordTypeBelief || rec.IsSimulated() {
			continue
		}
		b, err := BeliefFromRecord(rec)
		if err != nil {
			continue
		}
		beliefs = append(beliefs, *b)
	}
	n := p.cache.Extend(beliefs...)
	p.logger.Info("belief cache warmed from store", zap.Int("beliefs", n))
	return n
}

// BeliefFromRecord rebuilds a belief from a stored memory record.
func BeliefFromRecord(rec domain.MemoryRecord) (*domain.Belief, error) {
	if rec.Type != "" && rec.Type != domain.RecordTypeBelief {
		return nil, fmt.Errorf("%w: record type %q", domain.ErrUnsupportedBelief, rec.Type)
	}
	m := map[string]any{
		"uuid":         firstNonEmpty(rec.UUID, rec.ID),
		"text":         rec.Content,
		"confidence":   rec.Confidence,
		"source":       rec.Source,
		"last_updated": rec.LastUpdated.Format(time.RFC3339Nano),
	}
	tags := make([]any, 0, len(rec.Tags))
	for _, t := range rec.Tags {
		tags = append(tags, t)
	}
	m["tags"] = tags
	for _, k := range []string{"key", "key_version", "polarity", "scope", "emotion_score", "contradicted_with"} {
		if v, ok := rec.Metadata[k]; ok {
			m[k] = v
		}
	}
	return CoerceBelief(m)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
