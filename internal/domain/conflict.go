package domain

import (
	"crypto/sha1"
	"encoding/hex"
	"time"
)

// ResolutionStatus is the lifecycle state of a conflict.
type ResolutionStatus string

const (
	ResolutionPending      ResolutionStatus = "pending"
	ResolutionResolved     ResolutionStatus = "resolved"
	ResolutionUnresolvable ResolutionStatus = "unresolvable"
	ResolutionAutoResolved ResolutionStatus = "auto-resolved"
)

// IsTerminal reports whether no further transitions are expected.
func (s ResolutionStatus) IsTerminal() bool {
	switch s {
	case ResolutionResolved, ResolutionUnresolvable, ResolutionAutoResolved:
		return true
	}
	return false
}

// RetestStatus records the outcome of the last retest of a pending conflict.
type RetestStatus string

const (
	RetestStillConflicts RetestStatus = "still_conflicts"
	RetestChanged        RetestStatus = "changed"
	RetestAutoResolved   RetestStatus = "auto-resolved"
)

// Strategy is a resolution approach proposed by the advisor.
type Strategy string

const (
	StrategyReframe         Strategy = "reframe"
	StrategyInhibit         Strategy = "inhibit"
	StrategyFlagForReview   Strategy = "flag_for_review"
	StrategyDreamResolution Strategy = "dream_resolution"
)

// Known reports whether s is one of the four supported strategies.
func (s Strategy) Known() bool {
	switch s {
	case StrategyReframe, StrategyInhibit, StrategyFlagForReview, StrategyDreamResolution:
		return true
	}
	return false
}

// Target names which side of a conflict a resolution acts on.
type Target string

const (
	TargetBeliefA Target = "belief_1"
	TargetBeliefB Target = "belief_2"
	TargetBoth    Target = "both"
)

// Resolution is a proposed way to settle a conflict.
type Resolution struct {
	Strategy       Strategy  `json:"resolution_strategy"`
	Confidence     float64   `json:"confidence"`
	Notes          string    `json:"notes"`
	CreatedAt      time.Time `json:"created_at"`
	Source         string    `json:"source"`
	Target         Target    `json:"target,omitempty"`
	TargetText     string    `json:"target_text,omitempty"`
	ReframedBelief string    `json:"reframed_belief,omitempty"`
	UserOverride   bool      `json:"user_override,omitempty"`
}

// AppliedResolution is what the applier actually did.
type AppliedResolution struct {
	Strategy        Strategy  `json:"resolution_strategy"`
	Confidence      float64   `json:"confidence"`
	Target          Target    `json:"target,omitempty"`
	Inhibited       string    `json:"inhibited,omitempty"`
	NeedsReview     []string  `json:"needs_review,omitempty"`
	ReframedFrom    string    `json:"reframed_from,omitempty"`
	ReframedBelief  string    `json:"reframed_belief,omitempty"`
	DeferredToDream bool      `json:"deferred_to_dream"`
	Fallback        bool      `json:"fallback,omitempty"`
	UserOverride    bool      `json:"user_override,omitempty"`
	AppliedAt       time.Time `json:"applied_at"`
}

// Conflict is a detected tension between two beliefs.
type Conflict struct {
	UUID        string           `json:"uuid"`
	BeliefA     string           `json:"belief_a"`
	BeliefB     string           `json:"belief_b"`
	BeliefAMeta *Belief          `json:"belief_a_meta,omitempty"`
	BeliefBMeta *Belief          `json:"belief_b_meta,omitempty"`
	Cause       string           `json:"conflict"`
	Confidence  float64          `json:"confidence"`
	Resolution  ResolutionStatus `json:"resolution"`
	Scope       string           `json:"scope,omitempty"`
	Theme       string           `json:"theme,omitempty"`
	Penalty     float64          `json:"penalty,omitempty"`

	EmotionScore *float64 `json:"emotion_score,omitempty"`

	ProposedResolution *Resolution        `json:"proposed_resolution,omitempty"`
	AppliedResolution  *AppliedResolution `json:"applied_resolution,omitempty"`

	RetestStatus RetestStatus `json:"retest_status,omitempty"`
	RetestedAt   *time.Time   `json:"retested_at,omitempty"`

	ResolvedMethod string     `json:"resolved_method,omitempty"`
	ResolvedAt     *time.Time `json:"resolved_at,omitempty"`

	Timestamp  *time.Time `json:"timestamp,omitempty"`
	DetectedAt *time.Time `json:"detected_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	LoggedAt   *time.Time `json:"logged_at,omitempty"`
	ObservedAt *time.Time `json:"observed_at,omitempty"`
}

// IsPending reports whether the conflict still awaits a terminal resolution.
func (c *Conflict) IsPending() bool {
	return c.Resolution == "" || c.Resolution == ResolutionPending
}

// ReferenceTime is the first known timestamp of the conflict: timestamp,
// detected_at, created_at, logged_at, observed_at, then the embedded belief
// snapshots, else the Unix epoch.
func (c *Conflict) ReferenceTime() time.Time {
	for _, t := range []*time.Time{c.Timestamp, c.DetectedAt, &c.CreatedAt, c.LoggedAt, c.ObservedAt} {
		if t != nil && !t.IsZero() {
			return t.UTC()
		}
	}
	for _, meta := range []*Belief{c.BeliefAMeta, c.BeliefBMeta} {
		if meta != nil && !meta.LastUpdated.IsZero() {
			return meta.LastUpdated.UTC()
		}
	}
	return time.Unix(0, 0).UTC()
}

// Identity is a stable key for the conflict: its uuid, else a hash of both texts.
func (c *Conflict) Identity() string {
	if c.UUID != "" {
		return c.UUID
	}
	h := sha1.Sum([]byte(c.BeliefA + "\x00" + c.BeliefB))
	return "h:" + hex.EncodeToString(h[:8])
}
