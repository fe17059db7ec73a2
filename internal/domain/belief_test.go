package domain

import (
	"errors"
	"math"
	"testing"
	"time"
)

func TestClampConfidence(t *testing.T) {
	tests := []struct {
		name string
		in   float64
		want float64
	}{
		{"negative", -0.3, 0},
		{"zero", 0, 0},
		{"mid", 0.42, 0.42},
		{"one", 1, 1},
		{"above", 1.7, 1},
		{"nan", math.NaN(), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClampConfidence(tt.in); got != tt.want {
				t.Errorf("ClampConfidence(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestClampPolarity(t *testing.T) {
	for in, want := range map[int]Polarity{-7: PolarityNegative, -1: PolarityNegative, 0: PolarityNeutral, 1: PolarityPositive, 3: PolarityPositive} {
		if got := ClampPolarity(in); got != want {
			t.Errorf("ClampPolarity(%d) = %d, want %d", in, got, want)
		}
	}
}

func TestBelief_Normalize(t *testing.T) {
	b := &Belief{Text: "  tea is good  ", Confidence: 2, Polarity: 5}
	b.Normalize()

	if b.Text != "tea is good" {
		t.Errorf("text not trimmed: %q", b.Text)
	}
	if b.Confidence != 1 || b.Polarity != PolarityPositive {
		t.Errorf("confidence/polarity not clamped: %v %v", b.Confidence, b.Polarity)
	}
	if b.Scope != DefaultScope || b.Source != DefaultSource {
		t.Errorf("defaults not applied: scope=%q source=%q", b.Scope, b.Source)
	}
	if b.LastUpdated.IsZero() || b.LastUpdated.Location() != time.UTC {
		t.Errorf("last_updated not stamped in UTC: %v", b.LastUpdated)
	}
	if b.KeyVersion != KeyVersion {
		t.Errorf("key version = %d, want %d", b.KeyVersion, KeyVersion)
	}
}

func TestBelief_Validate(t *testing.T) {
	tests := []struct {
		name string
		b    *Belief
		want error
	}{
		{"nil", nil, ErrNilBelief},
		{"empty", &Belief{Text: "   "}, ErrEmptyBeliefText},
		{"simulated source", &Belief{Text: "I can fly", Source: "Dream"}, ErrSimulatedContent},
		{"simulated tag", &Belief{Text: "I can fly", Tags: []string{"hypothetical"}}, ErrSimulatedContent},
		{"genuine", &Belief{Text: "I can swim", Source: "ingest"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.b.Validate(); !errors.Is(err, tt.want) {
				t.Errorf("Validate() = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestBelief_LinkContradictionWritesThroughOnce(t *testing.T) {
	origin := map[string]any{"contradicted_with": []string{"x"}}
	b := &Belief{Text: "a", Origin: origin}

	b.LinkContradiction("y")
	b.LinkContradiction("y")
	b.LinkContradiction("")

	if len(b.ContradictedWith) != 1 || b.ContradictedWith[0] != "y" {
		t.Fatalf("ContradictedWith = %v", b.ContradictedWith)
	}
	got, ok := origin["contradicted_with"].([]any)
	if !ok || len(got) != 2 || got[0] != "x" || got[1] != "y" {
		t.Errorf("origin contradicted_with = %#v", origin["contradicted_with"])
	}
}

func TestBelief_AnnotateAndRef(t *testing.T) {
	origin := map[string]any{}
	b := &Belief{Key: "k", Origin: origin}
	b.Annotate("inhibited", true)

	if b.Annotations["inhibited"] != true || origin["inhibited"] != true {
		t.Errorf("annotation not written through: %v %v", b.Annotations, origin)
	}
	if b.Ref() != "k" {
		t.Errorf("Ref() = %q, want key", b.Ref())
	}
	b.UUID = "u-1"
	if b.Ref() != "u-1" {
		t.Errorf("Ref() = %q, want uuid", b.Ref())
	}
}

func TestMemoryRecord_Tags(t *testing.T) {
	r := &MemoryRecord{}
	r.AddTag("inhibited")
	r.AddTag("inhibited")
	if len(r.Tags) != 1 || !r.HasTag("inhibited") {
		t.Errorf("tags = %v", r.Tags)
	}
	r.AddTag("simulation")
	if !r.IsSimulated() {
		t.Error("record tagged simulation should be simulated")
	}
}
