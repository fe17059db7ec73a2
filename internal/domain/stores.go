package domain

import (
	"context"
	"time"
)

// RecordTypeBelief marks memory records that hold beliefs.
const RecordTypeBelief = "belief"

// MemoryRecord is the shape of an entry in the external memory/belief store.
type MemoryRecord struct {
	ID          string         `json:"id"`
	UUID        string         `json:"uuid,omitempty"`
	Type        string         `json:"type"`
	Content     string         `json:"content"`
	Confidence  float64        `json:"confidence"`
	Tags        []string       `json:"tags,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	Source      string         `json:"source,omitempty"`
	MemoryType  string         `json:"memory_type,omitempty"`
	LastUpdated time.Time      `json:"last_updated"`
}

// HasTag reports whether the record carries tag.
func (r *MemoryRecord) HasTag(tag string) bool {
	for _, t := range r.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// AddTag appends tag once.
func (r *MemoryRecord) AddTag(tag string) {
	if !r.HasTag(tag) {
		r.Tags = append(r.Tags, tag)
	}
}

// IsSimulated reports whether the record is contained simulation output.
func (r *MemoryRecord) IsSimulated() bool {
	return IsSimulated(r.Source, r.Tags)
}

// BeliefStore is the consumed memory store: iterate, look up, persist in place.
type BeliefStore interface {
	Snapshot(ctx context.Context) ([]MemoryRecord, error)
	GetByID(ctx context.Context, id string) (*MemoryRecord, error)
	Save(ctx context.Context, r *MemoryRecord) error
}

// ConflictLog is an append/scan store for conflict records. Updating a
// conflict appends a newer version; Scan returns the latest version per uuid.
type ConflictLog interface {
	Append(ctx context.Context, c *Conflict) error
	Scan(ctx context.Context) ([]Conflict, error)
}
