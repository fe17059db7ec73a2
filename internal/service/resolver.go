package service

import (
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/Harshitk-cp/axiom/internal/domain"
	"go.uber.org/zap"
)

const resolverSource = "contradiction_resolver"

const (
	reframeConfidence       = 0.82
	dreamConfidence         = 0.7
	flagConfidence          = 0.52
	defaultInhibitConf      = 0.62
	weakInhibitBase         = 0.65
	weakInhibitBonusCap     = 0.25
	confidenceGapForInhibit = 0.25
	weakerConfidenceMargin  = 0.15
)

var (
	yearRe     = regexp.MustCompile(`\b\d{4}\b`)
	temporalRe = regexp.MustCompile(`\b(before|after|since|as of|currently|previously|now|used to|anymore|no longer|today|yesterday|recently|formerly|nowadays)\b`)
)

var valueLadenWords = map[string]struct{}{
	"should": {}, "believe": {}, "think": {}, "prefer": {}, "good": {}, "bad": {},
	"ethical": {}, "unethical": {}, "moral": {}, "immoral": {}, "right": {},
	"wrong": {}, "better": {}, "worse": {}, "ought": {}, "feel": {}, "value": {},
	"matters": {}, "overrated": {}, "underrated": {},
}

var weakSources = map[string]struct{}{
	"unknown": {}, "unspecified": {}, "inferred": {}, "auto": {}, "heuristic": {}, "system": {},
}

// Advisor proposes a resolution strategy for a pair of conflicting beliefs.
type Advisor struct {
	logger *zap.Logger
	now    func() time.Time
}

func NewAdvisor(logger *zap.Logger) *Advisor {
	return &Advisor{logger: logger, now: time.Now}
}

// SuggestAny coerces loosely typed inputs before suggesting. Inputs that
// cannot be coerced become neutral defaults with confidence 0.5.
func (a *Advisor) SuggestAny(x, y any) domain.Resolution {
	return a.Suggest(a.coerceOrDefault(x), a.coerceOrDefault(y))
}

func (a *Advisor) coerceOrDefault(v any) *domain.Belief {
	b, err := CoerceBelief(v)
	if err != nil {
		a.logger.Debug("advisor input defaulted", zap.Error(err))
		return &domain.Belief{Confidence: 0.5, Source: domain.DefaultSource, Scope: domain.DefaultScope}
	}
	return b
}

// Suggest picks the first matching rule: time dependence, weak source,
// opinionated pair, then confidence level.
func (a *Advisor) Suggest(b1, b2 *domain.Belief) domain.Resolution {
	if b1 == nil {
		b1 = &domain.Belief{Confidence: 0.5, Source: domain.DefaultSource}
	}
	if b2 == nil {
		b2 = &domain.Belief{Confidence: 0.5, Source: domain.DefaultSource}
	}

	res := domain.Resolution{CreatedAt: a.now().UTC(), Source: resolverSource}
	c1, c2 := domain.ClampConfidence(b1.Confidence), domain.ClampConfidence(b2.Confidence)
	gap := math.Abs(c1 - c2)

	switch {
	case isTimeDependent(b1.Text) || isTimeDependent(b2.Text):
		older, newer := chronological(b1, b2)
		target := weaker(b1, b2)
		res.Strategy = domain.StrategyReframe
		res.Confidence = reframeConfidence
		res.Target = target
		res.TargetText = textFor(b1, b2, target)
		res.ReframedBelief = "Historically: " + older.Text + " | Currently: " + newer.Text
		res.Notes = "Statements appear time dependent; keep both as a historical and current view."

	case isWeakSource(b1.Source) || isWeakSource(b2.Source) || gap >= confidenceGapForInhibit:
		target := weaker(b1, b2)
		res.Strategy = domain.StrategyInhibit
		res.Confidence = weakInhibitBase + math.Min(weakInhibitBonusCap, math.Max(0, gap-0.1))
		res.Target = target
		res.TargetText = textFor(b1, b2, target)
		res.Notes = "One side has a weak source or clearly lower confidence; inhibit it."

	case isOpinionated(b1.Text) && isOpinionated(b2.Text):
		res.Strategy = domain.StrategyDreamResolution
		res.Confidence = dreamConfidence
		res.Target = domain.TargetBoth
		res.Notes = "Both statements are value laden; defer to simulation before choosing."

	case (c1+c2)/2 < 0.5 || math.Min(c1, c2) < 0.35:
		res.Strategy = domain.StrategyFlagForReview
		res.Confidence = flagConfidence
		res.Target = domain.TargetBoth
		res.Notes = "Both beliefs are weakly held; flag for review."

	default:
		target := weaker(b1, b2)
		res.Strategy = domain.StrategyInhibit
		res.Confidence = defaultInhibitConf
		res.Target = target
		res.TargetText = textFor(b1, b2, target)
		res.Notes = "No distinguishing signal; inhibit the weaker belief."
	}
	return res
}

func isTimeDependent(text string) bool {
	t := strings.ToLower(text)
	return yearRe.MatchString(t) || temporalRe.MatchString(t)
}

func isWeakSource(source string) bool {
	_, ok := weakSources[strings.ToLower(strings.TrimSpace(source))]
	return ok
}

func isOpinionated(text string) bool {
	return containsAny(text, valueLadenWords)
}

// weaker picks the side to act on: lower confidence by a clear margin, else
// the unclear source, else the weaker stance, else the second belief.
func weaker(b1, b2 *domain.Belief) domain.Target {
	c1, c2 := domain.ClampConfidence(b1.Confidence), domain.ClampConfidence(b2.Confidence)
	switch {
	case c2-c1 > weakerConfidenceMargin:
		return domain.TargetBeliefA
	case c1-c2 > weakerConfidenceMargin:
		return domain.TargetBeliefB
	}

	w1, w2 := isWeakSource(b1.Source), isWeakSource(b2.Source)
	switch {
	case w1 && !w2:
		return domain.TargetBeliefA
	case w2 && !w1:
		return domain.TargetBeliefB
	}

	p1, p2 := abs(int(b1.Polarity)), abs(int(b2.Polarity))
	if p1 < p2 {
		return domain.TargetBeliefA
	}
	return domain.TargetBeliefB
}

// chronological orders the pair by LastUpdated for the reframed text; ties
// keep the given order.
func chronological(b1, b2 *domain.Belief) (older, newer *domain.Belief) {
	if !b2.LastUpdated.IsZero() && !b1.LastUpdated.IsZero() && b2.LastUpdated.Before(b1.LastUpdated) {
		return b2, b1
	}
	return b1, b2
}

func textFor(b1, b2 *domain.Belief, t domain.Target) string {
	if t == domain.TargetBeliefA {
		return b1.Text
	}
	return b2.Text
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
