package service

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/Harshitk-cp/axiom/internal/domain"
)

const maxKeyLength = 128

// CanonicalForm is the normalized identity of a statement.
type CanonicalForm struct {
	Key        string
	Normalized string
	Version    int
}

type phraseRule struct {
	pattern *regexp.Regexp
	concept string
}

var (
	whitespaceRe = regexp.MustCompile(`\s+`)
	apostropheRe = regexp.MustCompile(`['’]`)
	punctRe      = regexp.MustCompile(`[^a-z0-9_:\s]`)
	keyCharRe    = regexp.MustCompile(`[^a-z0-9:_]`)
	underscoreRe = regexp.MustCompile(`_+`)

	// Epistemic framing carries no propositional content.
	framingRe = regexp.MustCompile(`^(i think|i believe|i feel|i guess|i suspect|in my opinion|i am convinced|i'm convinced)( that)?\s+`)

	modalRe = regexp.MustCompile(`\b(must|ought to|ought|needs to|need to|has to|have to)\b`)

	headwordSynonyms = []phraseRule{
		{regexp.MustCompile(`\bai[ _-]safety\b`), "ai_alignment"},
		{regexp.MustCompile(`\bai[ _-]alignment\b`), "ai_alignment"},
		{regexp.MustCompile(`\bartificial intelligence\b`), "artificial_intelligence"},
		{regexp.MustCompile(`\bmachine learning\b`), "machine_learning"},
		{regexp.MustCompile(`\b(climate change|global warming)\b`), "climate_change"},
		{regexp.MustCompile(`\bmental health\b`), "mental_health"},
		{regexp.MustCompile(`\bsocial media\b`), "social_media"},
		{regexp.MustCompile(`\bfree will\b`), "free_will"},
	}

	legacyTokens = []phraseRule{
		{regexp.MustCompile(`\bai\b`), "artificial_intelligence"},
		{regexp.MustCompile(`\bml\b`), "machine_learning"},
		{regexp.MustCompile(`\b(govt|gov)\b`), "government"},
	}
)

// Canonicalize derives a deterministic key from free text. It never fails;
// empty input yields an empty key.
func Canonicalize(text string) CanonicalForm {
	s := strings.ToLower(strings.TrimSpace(text))
	s = whitespaceRe.ReplaceAllString(s, " ")
	s = framingRe.ReplaceAllString(s, "")

	for _, rule := range headwordSynonyms {
		s = rule.pattern.ReplaceAllString(s, rule.concept)
	}
	for _, rule := range legacyTokens {
		s = rule.pattern.ReplaceAllString(s, rule.concept)
	}
	s = modalRe.ReplaceAllString(s, "should")

	s = apostropheRe.ReplaceAllString(s, "")
	s = punctRe.ReplaceAllString(s, " ")
	s = strings.TrimSpace(whitespaceRe.ReplaceAllString(s, " "))

	return CanonicalForm{Key: buildKey(s), Normalized: s, Version: domain.KeyVersion}
}

func buildKey(normalized string) string {
	if normalized == "" {
		return ""
	}
	key := strings.Join(strings.Fields(normalized), "_")
	key = keyCharRe.ReplaceAllString(key, "")
	key = underscoreRe.ReplaceAllString(key, "_")
	key = strings.Trim(key, "_")
	if len(key) > maxKeyLength {
		key = strings.TrimRight(key[:maxKeyLength], "_")
	}
	return key
}

// keyTokens splits a key on underscores, dropping empties.
func keyTokens(key string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, tok := range strings.Split(key, "_") {
		if tok != "" {
			out[tok] = struct{}{}
		}
	}
	return out
}

// KeySimilarity is the Jaccard index of the underscore tokens of two keys.
// It is a cheap lexical proxy, not a semantic measure.
func KeySimilarity(a, b string) float64 {
	ta, tb := keyTokens(a), keyTokens(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}
	inter := 0
	for tok := range ta {
		if _, ok := tb[tok]; ok {
			inter++
		}
	}
	union := len(ta) + len(tb) - inter
	return float64(inter) / float64(union)
}

var negationCues = map[string]struct{}{
	"not": {}, "no": {}, "never": {}, "none": {}, "nobody": {}, "nothing": {},
	"neither": {}, "nor": {}, "cannot": {}, "cant": {}, "dont": {}, "doesnt": {},
	"didnt": {}, "isnt": {}, "arent": {}, "wasnt": {}, "werent": {}, "wont": {},
	"shouldnt": {}, "wouldnt": {}, "couldnt": {}, "mustnt": {},
}

var absolutistWords = map[string]struct{}{
	"always": {}, "never": {}, "must": {}, "definitely": {}, "certainly": {},
	"absolutely": {}, "completely": {}, "totally": {}, "undeniably": {},
	"unquestionably": {}, "every": {}, "everyone": {}, "nobody": {},
}

var hedgeWords = map[string]struct{}{
	"maybe": {}, "perhaps": {}, "possibly": {}, "might": {}, "probably": {},
	"somewhat": {}, "likely": {}, "arguably": {}, "unsure": {}, "seemingly": {},
}

func textTokens(text string) []string {
	s := apostropheRe.ReplaceAllString(strings.ToLower(text), "")
	s = punctRe.ReplaceAllString(s, " ")
	return strings.Fields(s)
}

func containsAny(text string, words map[string]struct{}) bool {
	for _, tok := range textTokens(text) {
		if _, ok := words[tok]; ok {
			return true
		}
	}
	return false
}

// HasNegationCue reports whether text contains a negation marker.
func HasNegationCue(text string) bool {
	return containsAny(text, negationCues)
}

// EmphasisScore is +0.15 for absolutist language and -0.10 for hedging.
func EmphasisScore(text string) float64 {
	score := 0.0
	if containsAny(text, absolutistWords) {
		score += 0.15
	}
	if containsAny(text, hedgeWords) {
		score -= 0.10
	}
	return score
}

func hasHedge(text string) bool {
	return containsAny(text, hedgeWords)
}

// PolarityOf derives stance from negation cues. Questions are neutral.
func PolarityOf(text string) domain.Polarity {
	t := strings.TrimSpace(text)
	switch {
	case t == "":
		return domain.PolarityNeutral
	case strings.HasSuffix(t, "?"):
		return domain.PolarityNeutral
	case HasNegationCue(t):
		return domain.PolarityNegative
	default:
		return domain.PolarityPositive
	}
}

// ExtractBelief turns a raw statement into a Belief.
func ExtractBelief(text, source string) (*domain.Belief, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, domain.ErrEmptyBeliefText
	}
	if domain.IsSimulated(source, nil) {
		return nil, domain.ErrSimulatedContent
	}
	form := Canonicalize(text)
	b := &domain.Belief{
		Key:        form.Key,
		KeyVersion: form.Version,
		Text:       text,
		Polarity:   PolarityOf(text),
		Confidence: 0.6 + EmphasisScore(text),
		Source:     source,
	}
	b.Normalize()
	return b, nil
}

// CoerceBelief converts a Belief, *Belief, map or string into a Belief.
// The error distinguishes rejected input from a valid conversion.
func CoerceBelief(v any) (*domain.Belief, error) {
	switch in := v.(type) {
	case nil:
		return nil, domain.ErrNilBelief
	case *domain.Belief:
		if in == nil {
			return nil, domain.ErrNilBelief
		}
		return coerceStruct(*in, in.Origin)
	case domain.Belief:
		return coerceStruct(in, in.Origin)
	case map[string]any:
		return coerceMap(in)
	case string:
		return ExtractBelief(in, domain.DefaultSource)
	case fmt.Stringer:
		return ExtractBelief(in.String(), domain.DefaultSource)
	default:
		return nil, fmt.Errorf("%w: %T", domain.ErrUnsupportedBelief, v)
	}
}

func coerceStruct(b domain.Belief, origin map[string]any) (*domain.Belief, error) {
	b.Origin = origin
	b.Text = strings.TrimSpace(b.Text)
	if b.Key == "" {
		form := Canonicalize(b.Text)
		b.Key, b.KeyVersion = form.Key, form.Version
	}
	b.Normalize()
	if err := b.Validate(); err != nil {
		return nil, err
	}
	return &b, nil
}

func coerceMap(m map[string]any) (*domain.Belief, error) {
	text := firstString(m, "text", "content", "belief", "statement")
	b := domain.Belief{
		Text:   text,
		Key:    firstString(m, "key"),
		Scope:  firstString(m, "scope"),
		Source: firstString(m, "source"),
		UUID:   firstString(m, "uuid", "id"),
		Tags:   toStrings(m["tags"]),

		ContradictedWith: toStrings(m["contradicted_with"]),
	}
	if v, ok := toFloat(m["key_version"]); ok {
		b.KeyVersion = int(v)
	}
	if v, ok := toFloat(m["polarity"]); ok {
		b.Polarity = domain.ClampPolarity(int(v))
	} else {
		b.Polarity = PolarityOf(text)
	}
	if v, ok := toFloat(m["confidence"]); ok {
		b.Confidence = v
	} else {
		b.Confidence = 0.5
	}
	if v, ok := toFloat(m["emotion_score"]); ok {
		b.EmotionScore = &v
	}
	if t, ok := toTime(firstPresent(m, "last_updated", "timestamp")); ok {
		b.LastUpdated = t
	}
	return coerceStruct(b, m)
}

func firstString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if s, ok := m[k].(string); ok && strings.TrimSpace(s) != "" {
			return s
		}
	}
	return ""
}

func firstPresent(m map[string]any, keys ...string) any {
	for _, k := range keys {
		if v, ok := m[k]; ok && v != nil {
			return v
		}
	}
	return nil
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	}
	return 0, false
}

func toTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, !t.IsZero()
	case *time.Time:
		if t == nil {
			return time.Time{}, false
		}
		return *t, !t.IsZero()
	case string:
		for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
			if parsed, err := time.Parse(layout, t); err == nil {
				return parsed, true
			}
		}
	}
	return time.Time{}, false
}

func toStrings(v any) []string {
	switch list := v.(type) {
	case []string:
		return list
	case []any:
		out := make([]string, 0, len(list))
		for _, e := range list {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
