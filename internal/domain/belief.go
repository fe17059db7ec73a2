package domain

import (
	"errors"
	"math"
	"strings"
	"time"
)

// KeyVersion identifies the canonicalization rule set that produced a Belief key.
// Bump it whenever the synonym tables or key construction change.
const KeyVersion = 2

const (
	DefaultScope  = "general"
	DefaultSource = "ingest"
)

var (
	ErrNilBelief         = errors.New("belief is nil")
	ErrEmptyBeliefText   = errors.New("belief text is empty")
	ErrUnsupportedBelief = errors.New("unsupported belief representation")
	ErrSimulatedContent  = errors.New("simulated content cannot become a belief")
)

// Polarity is the stance of a belief: affirmative, negated or neutral.
type Polarity int

const (
	PolarityNegative Polarity = -1
	PolarityNeutral  Polarity = 0
	PolarityPositive Polarity = 1
)

// ClampPolarity folds any integer stance into {-1, 0, 1}.
func ClampPolarity(p int) Polarity {
	switch {
	case p > 0:
		return PolarityPositive
	case p < 0:
		return PolarityNegative
	default:
		return PolarityNeutral
	}
}

// ClampConfidence bounds c to [0, 1]. NaN maps to 0.
func ClampConfidence(c float64) float64 {
	if math.IsNaN(c) || c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}

// Belief is a canonicalized, polarity and confidence scored statement.
type Belief struct {
	Key         string    `json:"key"`
	KeyVersion  int       `json:"key_version"`
	Text        string    `json:"text"`
	Polarity    Polarity  `json:"polarity"`
	Confidence  float64   `json:"confidence"`
	Scope       string    `json:"scope"`
	Source      string    `json:"source"`
	LastUpdated time.Time `json:"last_updated"`
	UUID        string    `json:"uuid,omitempty"`
	Tags        []string  `json:"tags,omitempty"`

	EmotionScore     *float64       `json:"emotion_score,omitempty"`
	ContradictedWith []string       `json:"contradicted_with,omitempty"`
	Annotations      map[string]any `json:"annotations,omitempty"`

	// Origin is the producer's raw record when the belief was coerced from a map.
	// Tagging side channels write through to it.
	Origin map[string]any `json:"-"`
}

// Normalize trims text, clamps confidence, fills defaults and stamps LastUpdated.
func (b *Belief) Normalize() {
	b.Text = strings.TrimSpace(b.Text)
	b.Confidence = ClampConfidence(b.Confidence)
	b.Polarity = ClampPolarity(int(b.Polarity))
	if strings.TrimSpace(b.Scope) == "" {
		b.Scope = DefaultScope
	}
	if strings.TrimSpace(b.Source) == "" {
		b.Source = DefaultSource
	}
	if b.LastUpdated.IsZero() {
		b.LastUpdated = time.Now().UTC()
	} else {
		b.LastUpdated = b.LastUpdated.UTC()
	}
	if b.KeyVersion == 0 {
		b.KeyVersion = KeyVersion
	}
}

// Validate reports whether b may exist as a genuine belief.
func (b *Belief) Validate() error {
	if b == nil {
		return ErrNilBelief
	}
	if strings.TrimSpace(b.Text) == "" {
		return ErrEmptyBeliefText
	}
	if IsSimulated(b.Source, b.Tags) {
		return ErrSimulatedContent
	}
	return nil
}

// Annotate sets a marker on the belief and, when present, on its origin record.
func (b *Belief) Annotate(key string, value any) {
	if b == nil {
		return
	}
	if b.Annotations == nil {
		b.Annotations = make(map[string]any)
	}
	b.Annotations[key] = value
	if b.Origin != nil {
		b.Origin[key] = value
	}
}

// LinkContradiction records other as contradicting b, once.
func (b *Belief) LinkContradiction(other string) {
	if b == nil || other == "" {
		return
	}
	for _, existing := range b.ContradictedWith {
		if existing == other {
			return
		}
	}
	b.ContradictedWith = append(b.ContradictedWith, other)
	if b.Origin != nil {
		b.Origin["contradicted_with"] = appendUniqueAny(b.Origin["contradicted_with"], other)
	}
}

// Ref returns the identity used when linking contradictions: uuid if known, else key.
func (b *Belief) Ref() string {
	if b.UUID != "" {
		return b.UUID
	}
	return b.Key
}

func appendUniqueAny(existing any, v string) []any {
	var out []any
	switch list := existing.(type) {
	case []any:
		out = list
	case []string:
		for _, s := range list {
			out = append(out, s)
		}
	}
	for _, e := range out {
		if s, ok := e.(string); ok && s == v {
			return out
		}
	}
	return append(out, v)
}

var simulatedSources = map[string]struct{}{
	"dream":        {},
	"dreamer":      {},
	"simulation":   {},
	"simulated":    {},
	"empathy":      {},
	"wonder":       {},
	"hypothetical": {},
}

var simulatedTags = map[string]struct{}{
	"simulated":    {},
	"simulation":   {},
	"hypothetical": {},
	"dream":        {},
}

// IsSimulated reports whether content carries a simulation marker. Simulated
// content is contained: it never becomes a belief and never moves a belief's confidence.
func IsSimulated(source string, tags []string) bool {
	if _, ok := simulatedSources[strings.ToLower(strings.TrimSpace(source))]; ok {
		return true
	}
	for _, t := range tags {
		if _, ok := simulatedTags[strings.ToLower(strings.TrimSpace(t))]; ok {
			return true
		}
	}
	return false
}
