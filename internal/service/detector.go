package service

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/Harshitk-cp/axiom/internal/config"
	"github.com/Harshitk-cp/axiom/internal/domain"
	"github.com/Harshitk-cp/axiom/internal/journal"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	detectorSource = "contradiction_detector"

	minSimilarityGate   = 0.6
	gateSlack           = 0.2
	similarityWeight    = 0.6
	polarityWeight      = 0.4
	decayWindowDays     = 30.0
	negationOnlyPartial = 0.5
)

// PairwiseScore is the breakdown of one pairwise comparison.
type PairwiseScore struct {
	Similarity        float64
	Opposite          bool
	NegationMismatch  bool
	Emphasis          float64
	PolarityComponent float64
	BaseConfidence    float64
	Fires             bool
}

// EstimatePairwiseConflict applies the contradiction formula to two beliefs.
//
//	base  = clamp01(0.6*sim + 0.4*polarity_component + emphasis)
//	fires = (opposite || negation_mismatch) &&
//	        sim >= max(0.6, SIM-0.2) && base >= STRONG-0.2
func EstimatePairwiseConflict(a, b *domain.Belief, th config.Thresholds) PairwiseScore {
	var s PairwiseScore
	s.Similarity = KeySimilarity(a.Key, b.Key)
	s.Opposite = int(a.Polarity)*int(b.Polarity) < 0
	s.NegationMismatch = HasNegationCue(a.Text) != HasNegationCue(b.Text)
	s.Emphasis = (EmphasisScore(a.Text) + EmphasisScore(b.Text)) / 2

	switch {
	case s.Opposite:
		s.PolarityComponent = 1.0
	case s.NegationMismatch:
		s.PolarityComponent = negationOnlyPartial
	}

	s.BaseConfidence = domain.ClampConfidence(similarityWeight*s.Similarity + polarityWeight*s.PolarityComponent + s.Emphasis)

	simGate := math.Max(minSimilarityGate, th.SimThreshold-gateSlack)
	confGate := th.StrongContradictionThreshold - gateSlack
	s.Fires = (s.Opposite || s.NegationMismatch) && s.Similarity >= simGate && s.BaseConfidence >= confGate
	return s
}

// Detector compares beliefs pairwise and emits conflict records.
type Detector struct {
	cfg     *config.ContradictionConfig
	advisor *Advisor
	journal journal.Sink
	logger  *zap.Logger
	now     func() time.Time
}

func NewDetector(cfg *config.ContradictionConfig, j journal.Sink, logger *zap.Logger) *Detector {
	if cfg == nil {
		def := config.DefaultContradictionConfig()
		cfg = &def
	}
	return &Detector{
		cfg:     cfg,
		journal: journal.Safe(j, logger),
		logger:  logger,
		now:     time.Now,
	}
}

func (d *Detector) SetAdvisor(a *Advisor) {
	d.advisor = a
}

// Recheck evaluates a pair without journaling or tagging.
func (d *Detector) Recheck(a, b *domain.Belief) (domain.Conflict, bool) {
	c, fired, err := d.comparePair(context.Background(), a, b, nil, false)
	if err != nil {
		d.logger.Warn("recheck failed", zap.Error(err))
		return domain.Conflict{}, false
	}
	return c, fired
}

// DetectPairwise compares newBelief with each recent belief in order and
// returns the conflicts that fire. A failing pair is counted and skipped.
func (d *Detector) DetectPairwise(ctx context.Context, newBelief *domain.Belief, recent []*domain.Belief) []domain.Conflict {
	outcome := &BatchOutcome{}
	if newBelief == nil || strings.TrimSpace(newBelief.Text) == "" {
		return nil
	}
	if newBelief.Validate() != nil {
		d.logger.Debug("skipping detection for invalid belief", zap.String("text", newBelief.Text))
		return nil
	}

	byUUID := indexByUUID(append([]*domain.Belief{newBelief}, recent...))

	var conflicts []domain.Conflict
	for _, candidate := range recent {
		c, fired, err := d.comparePair(ctx, newBelief, candidate, byUUID, true)
		switch {
		case err != nil:
			outcome.Fail(err)
		case fired:
			conflicts = append(conflicts, c)
			outcome.Succeed()
		default:
			outcome.Skip()
		}
	}

	if outcome.Failed > 0 {
		d.logger.Warn("pairwise detection had failures", outcome.ZapFields()...)
	}
	return conflicts
}

// DetectBatch scans every pair in beliefs. It is the bulk historical scan.
func (d *Detector) DetectBatch(ctx context.Context, beliefs []*domain.Belief) []domain.Conflict {
	outcome := &BatchOutcome{}
	byUUID := indexByUUID(beliefs)

	var conflicts []domain.Conflict
	for i := 0; i < len(beliefs); i++ {
		for j := i + 1; j < len(beliefs); j++ {
			c, fired, err := d.comparePair(ctx, beliefs[j], beliefs[i], byUUID, false)
			switch {
			case err != nil:
				outcome.Fail(err)
			case fired:
				conflicts = append(conflicts, c)
				outcome.Succeed()
			default:
				outcome.Skip()
			}
		}
	}

	fields := outcome.Fields()
	fields["beliefs"] = len(beliefs)
	fields["conflicts"] = len(conflicts)
	d.journal.Log(ctx, journal.New(journal.TypeContradictionBatchScanned, fields), detectorSource)
	return conflicts
}

func (d *Detector) comparePair(ctx context.Context, a, b *domain.Belief, byUUID map[string][]*domain.Belief, withSideEffects bool) (c domain.Conflict, fired bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pair comparison panicked: %v", r)
			fired = false
		}
	}()

	if a == nil || b == nil {
		return c, false, nil
	}
	if a.Validate() != nil || b.Validate() != nil {
		return c, false, nil
	}
	if strings.EqualFold(strings.TrimSpace(a.Text), strings.TrimSpace(b.Text)) {
		return c, false, nil
	}
	if d.cfg.ScopePolicy == config.ScopeIntraOnly && scopeOf(a) != scopeOf(b) {
		return c, false, nil
	}

	score := EstimatePairwiseConflict(a, b, d.cfg.Thresholds)
	if !score.Fires {
		return c, false, nil
	}

	c = d.buildConflict(a, b, score)

	if withSideEffects {
		d.journal.Log(ctx, journal.New(journal.TypeContradictionDetected, map[string]any{
			"uuid":       c.UUID,
			"belief_a":   c.BeliefA,
			"belief_b":   c.BeliefB,
			"confidence": c.Confidence,
			"conflict":   c.Cause,
			"similarity": score.Similarity,
			"scope":      c.Scope,
		}), detectorSource)

		d.suggest(ctx, &c, a, b)

		if d.cfg.TaggingEnabled() {
			d.tag(a, b, byUUID)
		}
	}
	return c, true, nil
}

func (d *Detector) buildConflict(a, b *domain.Belief, score PairwiseScore) domain.Conflict {
	now := d.now().UTC()
	effective := score.BaseConfidence * (domain.ClampConfidence(a.Confidence) + domain.ClampConfidence(b.Confidence)) / 2
	effective *= d.ageFactor(a, b)

	penalty := d.cfg.Penalties.BasePenalty
	if score.Opposite {
		penalty *= d.cfg.Penalties.OppositePolarityMultiplier
	}

	metaA, metaB := snapshot(a), snapshot(b)
	c := domain.Conflict{
		UUID:        uuid.NewString(),
		BeliefA:     a.Text,
		BeliefB:     b.Text,
		BeliefAMeta: metaA,
		BeliefBMeta: metaB,
		Cause:       d.cause(a, b, score),
		Confidence:  domain.ClampConfidence(effective),
		Resolution:  domain.ResolutionPending,
		Scope:       scopeOf(a),
		Penalty:     penalty,
		DetectedAt:  &now,
		CreatedAt:   now,
	}
	if theme, ok := d.cfg.Themes[a.Key]; ok {
		c.Theme = theme
	} else if theme, ok := d.cfg.Themes[b.Key]; ok {
		c.Theme = theme
	}
	return c
}

// ageFactor decays confidence when the two beliefs are far apart in time.
func (d *Detector) ageFactor(a, b *domain.Belief) float64 {
	w := d.cfg.DecayWeight
	if w == 1.0 || w <= 0 || a.LastUpdated.IsZero() || b.LastUpdated.IsZero() {
		return 1.0
	}
	gapDays := math.Abs(a.LastUpdated.Sub(b.LastUpdated).Hours()) / 24
	return domain.ClampConfidence(math.Pow(w, gapDays/decayWindowDays))
}

func (d *Detector) cause(a, b *domain.Belief, score PairwiseScore) string {
	var parts []string
	if score.Opposite {
		parts = append(parts, "Opposite polarity")
	}
	if score.NegationMismatch {
		parts = append(parts, "Negation mismatch")
	}
	if score.Similarity >= d.cfg.Thresholds.SimThreshold {
		parts = append(parts, "High semantic similarity")
	} else {
		parts = append(parts, "Moderate semantic similarity")
	}
	if score.Emphasis > 0 {
		parts = append(parts, "Emphatic language")
	}
	if hasHedge(a.Text) || hasHedge(b.Text) {
		parts = append(parts, "Hedged language present")
	}
	return strings.Join(parts, "; ")
}

func (d *Detector) suggest(ctx context.Context, c *domain.Conflict, a, b *domain.Belief) {
	if d.advisor == nil || !d.cfg.Modes.AlignmentEnabled {
		return
	}
	res := d.advisor.Suggest(a, b)
	c.ProposedResolution = &res

	d.journal.Log(ctx, journal.New(journal.TypeResolutionSuggested, map[string]any{
		"uuid":                c.UUID,
		"resolution_strategy": string(res.Strategy),
		"confidence":          res.Confidence,
		"notes":               res.Notes,
	}), detectorSource)

	if res.Strategy == domain.StrategyDreamResolution {
		d.journal.Log(ctx, journal.New(journal.TypeDreamResolutionQueued, map[string]any{
			"uuid":     c.UUID,
			"belief_a": c.BeliefA,
			"belief_b": c.BeliefB,
		}), detectorSource)
	}
}

// tag links both beliefs, and any records sharing their uuids, to each other.
func (d *Detector) tag(a, b *domain.Belief, byUUID map[string][]*domain.Belief) {
	a.LinkContradiction(b.Ref())
	b.LinkContradiction(a.Ref())
	for _, twin := range byUUID[a.UUID] {
		if twin != a {
			twin.LinkContradiction(b.Ref())
		}
	}
	for _, twin := range byUUID[b.UUID] {
		if twin != b {
			twin.LinkContradiction(a.Ref())
		}
	}
}

func indexByUUID(beliefs []*domain.Belief) map[string][]*domain.Belief {
	idx := make(map[string][]*domain.Belief)
	for _, b := range beliefs {
		if b != nil && b.UUID != "" {
			idx[b.UUID] = append(idx[b.UUID], b)
		}
	}
	return idx
}

func scopeOf(b *domain.Belief) string {
	if b.Scope == "" {
		return domain.DefaultScope
	}
	return b.Scope
}

// snapshot copies a belief for embedding in a conflict record.
func snapshot(b *domain.Belief) *domain.Belief {
	cp := *b
	cp.Origin = nil
	cp.ContradictedWith = append([]string(nil), b.ContradictedWith...)
	cp.Tags = append([]string(nil), b.Tags...)
	cp.Annotations = nil
	return &cp
}
