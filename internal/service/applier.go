package service

import (
	"context"
	"time"

	"github.com/Harshitk-cp/axiom/internal/domain"
	"github.com/Harshitk-cp/axiom/internal/journal"
	"go.uber.org/zap"
)

const applierSource = "contradiction_applier"

const (
	ambiguousLow  = 0.4
	ambiguousHigh = 0.6
)

// Applier executes a conflict's proposed resolution.
type Applier struct {
	advisor *Advisor
	dreams  *DreamQueue
	beliefs *beliefWriter
	journal journal.Sink
	logger  *zap.Logger
	now     func() time.Time
}

func NewApplier(j journal.Sink, logger *zap.Logger) *Applier {
	return &Applier{
		journal: journal.Safe(j, logger),
		logger:  logger,
		now:     time.Now,
	}
}

// SetAdvisor lets Apply fill in a missing proposal.
func (a *Applier) SetAdvisor(adv *Advisor) {
	a.advisor = adv
}

func (a *Applier) SetDreamQueue(q *DreamQueue) {
	a.dreams = q
}

// SetBeliefStore mirrors inhibit/review tags onto stored belief records.
func (a *Applier) SetBeliefStore(s domain.BeliefStore) {
	if s == nil {
		a.beliefs = nil
		return
	}
	a.beliefs = &beliefWriter{store: s, logger: a.logger}
}

// Apply executes the proposed resolution and returns the updated conflict.
// Ambiguous proposals are escalated to PromptUserForResolution first.
func (a *Applier) Apply(ctx context.Context, c domain.Conflict) domain.Conflict {
	c.BeliefAMeta = cloneBelief(c.BeliefAMeta)
	c.BeliefBMeta = cloneBelief(c.BeliefBMeta)
	proposed := a.proposal(c)
	chosen := proposed

	if !chosen.UserOverride && chosen.Confidence >= ambiguousLow && chosen.Confidence <= ambiguousHigh {
		chosen = a.PromptUserForResolution(ctx, c, proposed)
	}

	applied := domain.AppliedResolution{
		Strategy:     chosen.Strategy,
		Confidence:   chosen.Confidence,
		AppliedAt:    a.now().UTC(),
		UserOverride: chosen.UserOverride,
	}

	switch chosen.Strategy {
	case domain.StrategyInhibit:
		target := chosen.Target
		if target != domain.TargetBeliefA && target != domain.TargetBeliefB {
			target = domain.TargetBeliefB
		}
		meta, text := side(&c, target)
		applied.Target = target
		applied.Inhibited = text
		a.mark(ctx, meta, "inhibited")

	case domain.StrategyReframe:
		target := chosen.Target
		if target != domain.TargetBeliefA && target != domain.TargetBeliefB {
			target = weakerSide(&c)
		}
		meta, text := side(&c, target)
		applied.Target = target
		applied.ReframedFrom = text
		applied.ReframedBelief = chosen.ReframedBelief
		if meta != nil && !domain.IsSimulated(meta.Source, meta.Tags) {
			meta.Annotate("reframed_from", text)
		}

	case domain.StrategyDreamResolution:
		applied.Target = domain.TargetBoth
		applied.DeferredToDream = true
		if a.dreams != nil {
			a.dreams.Publish(DreamRequest{Kind: DreamKindResolution, Conflict: c})
		}

	case domain.StrategyFlagForReview:
		a.flagBoth(ctx, &c, &applied)

	default:
		applied.Strategy = domain.StrategyFlagForReview
		applied.Fallback = true
		a.flagBoth(ctx, &c, &applied)
	}

	c.AppliedResolution = &applied

	a.journal.Log(ctx, journal.New(journal.TypeResolutionApplied, map[string]any{
		"uuid":     c.UUID,
		"proposed": proposed,
		"applied":  applied,
	}), applierSource)
	return c
}

// PromptUserForResolution is where a human decision attaches. Without an
// interactive channel it deterministically chooses flag_for_review.
func (a *Applier) PromptUserForResolution(ctx context.Context, c domain.Conflict, proposed domain.Resolution) domain.Resolution {
	choice := domain.Resolution{
		Strategy:     domain.StrategyFlagForReview,
		Confidence:   proposed.Confidence,
		Notes:        "Ambiguous resolution confidence; escalated for human review.",
		CreatedAt:    a.now().UTC(),
		Source:       "user_prompt",
		Target:       domain.TargetBoth,
		UserOverride: true,
	}
	a.journal.Log(ctx, journal.New(journal.TypeUserIntervention, map[string]any{
		"uuid":                c.UUID,
		"belief_a":            c.BeliefA,
		"belief_b":            c.BeliefB,
		"proposed_strategy":   string(proposed.Strategy),
		"proposed_confidence": proposed.Confidence,
		"chosen_strategy":     string(choice.Strategy),
	}), applierSource)
	return choice
}

func (a *Applier) proposal(c domain.Conflict) domain.Resolution {
	if c.ProposedResolution != nil {
		return *c.ProposedResolution
	}
	if a.advisor != nil {
		return a.advisor.Suggest(beliefFromSide(c.BeliefAMeta, c.BeliefA), beliefFromSide(c.BeliefBMeta, c.BeliefB))
	}
	return domain.Resolution{CreatedAt: a.now().UTC(), Source: applierSource}
}

func (a *Applier) flagBoth(ctx context.Context, c *domain.Conflict, applied *domain.AppliedResolution) {
	applied.Target = domain.TargetBoth
	applied.NeedsReview = []string{c.BeliefA, c.BeliefB}
	a.mark(ctx, c.BeliefAMeta, "needs_review")
	a.mark(ctx, c.BeliefBMeta, "needs_review")
}

// mark annotates a belief snapshot and mirrors the tag onto its stored record.
func (a *Applier) mark(ctx context.Context, meta *domain.Belief, tag string) {
	if meta == nil || domain.IsSimulated(meta.Source, meta.Tags) {
		return
	}
	meta.Annotate(tag, true)
	if a.beliefs != nil {
		a.beliefs.tag(ctx, meta, tag)
	}
}

func side(c *domain.Conflict, t domain.Target) (*domain.Belief, string) {
	if t == domain.TargetBeliefA {
		return c.BeliefAMeta, c.BeliefA
	}
	return c.BeliefBMeta, c.BeliefB
}

func weakerSide(c *domain.Conflict) domain.Target {
	if c.BeliefAMeta != nil && c.BeliefBMeta != nil && c.BeliefAMeta.Confidence < c.BeliefBMeta.Confidence {
		return domain.TargetBeliefA
	}
	if c.BeliefAMeta != nil && c.BeliefBMeta != nil && c.BeliefBMeta.Confidence < c.BeliefAMeta.Confidence {
		return domain.TargetBeliefB
	}
	return domain.TargetBeliefA
}

// beliefFromSide rebuilds a belief from a conflict side, preferring the
// embedded snapshot.
func beliefFromSide(meta *domain.Belief, text string) *domain.Belief {
	if meta != nil {
		cp := *meta
		return &cp
	}
	form := Canonicalize(text)
	b := &domain.Belief{Key: form.Key, KeyVersion: form.Version, Text: text, Polarity: PolarityOf(text), Confidence: 0.5}
	b.Normalize()
	return b
}

func cloneBelief(b *domain.Belief) *domain.Belief {
	if b == nil {
		return nil
	}
	cp := *b
	if b.Annotations != nil {
		cp.Annotations = make(map[string]any, len(b.Annotations))
		for k, v := range b.Annotations {
			cp.Annotations[k] = v
		}
	}
	cp.Tags = append([]string(nil), b.Tags...)
	cp.ContradictedWith = append([]string(nil), b.ContradictedWith...)
	cp.Origin = nil
	return &cp
}
