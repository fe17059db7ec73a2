// Package journal is the append-only event sink for the contradiction
// pipeline. Logging an event never fails the caller.
package journal

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Event types emitted by the contradiction pipeline.
const (
	TypeContradictionDetected     = "contradiction_detected"
	TypeResolutionSuggested       = "contradiction_resolution_suggested"
	TypeDreamResolutionQueued     = "dream_contradiction_resolution_queued"
	TypeRetest                    = "contradiction_retest"
	TypeRetestScheduled           = "contradiction_retest_scheduled"
	TypeRetestScheduleSummary     = "contradiction_retest_schedule_summary"
	TypeClustered                 = "contradiction_clustered"
	TypeResolved                  = "contradiction_resolved"
	TypeUnresolvable              = "contradiction_unresolvable"
	TypePriorityScored            = "contradiction_priority_scored"
	TypeGraphExported             = "contradiction_graph_exported"
	TypeChainSummary              = "contradiction_chain_summary"
	TypeNarrative                 = "contradiction_narrative"
	TypeNag                       = "contradiction_nag"
	TypeMetrics                   = "contradiction_metrics"
	TypeBeliefConfidenceAdjusted  = "belief_confidence_adjusted"
	TypeUserIntervention          = "contradiction_user_intervention"
	TypeResolutionApplied         = "contradiction_resolution_applied"
	TypeDreamProbe                = "dream_contradiction_probe"
	TypeSafetyWarning             = "contradiction_safety_warning"
	TypeStalenessWarning          = "contradiction_staleness_warning"
	TypeBootSweep                 = "contradiction_boot_sweep"
	TypeBootSweepSkipped          = "contradiction_boot_sweep_skipped"
	TypeSimulatedContentRejected  = "simulated_content_rejected"
	TypeContradictionBatchScanned = "contradiction_batch_scanned"
)

// Event is a single journal entry. Fields are flattened next to type, source
// and created_at when encoded.
type Event struct {
	Type      string
	Source    string
	CreatedAt time.Time
	Fields    map[string]any
}

// New builds an event with the given fields.
func New(eventType string, fields map[string]any) Event {
	return Event{Type: eventType, Fields: fields}
}

// Get returns a field value.
func (e Event) Get(key string) any {
	return e.Fields[key]
}

func (e Event) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(e.Fields)+3)
	for k, v := range e.Fields {
		out[k] = v
	}
	out["type"] = e.Type
	out["source"] = e.Source
	out["created_at"] = e.CreatedAt.UTC().Format(time.RFC3339Nano)
	return json.Marshal(out)
}

func (e *Event) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	e.Type, _ = raw["type"].(string)
	e.Source, _ = raw["source"].(string)
	if ts, ok := raw["created_at"].(string); ok {
		if t, err := time.Parse(time.RFC3339Nano, ts); err == nil {
			e.CreatedAt = t
		}
	}
	delete(raw, "type")
	delete(raw, "source")
	delete(raw, "created_at")
	e.Fields = raw
	return nil
}

// Sink accepts events. Implementations must never panic or block for long.
type Sink interface {
	Log(ctx context.Context, e Event, defaultSource string)
}

// EventStore persists journal events.
type EventStore interface {
	AppendEvent(ctx context.Context, e Event) error
}

// Journal mirrors events to zap and optionally persists them.
type Journal struct {
	store  EventStore
	logger *zap.Logger
	now    func() time.Time
}

func NewJournal(store EventStore, logger *zap.Logger) *Journal {
	return &Journal{store: store, logger: logger, now: time.Now}
}

// Log stamps the event and hands it to the store. Failures are logged only.
func (j *Journal) Log(ctx context.Context, e Event, defaultSource string) {
	defer func() {
		if r := recover(); r != nil {
			j.logger.Warn("journal write panicked", zap.String("type", e.Type), zap.Any("panic", r))
		}
	}()

	e = stamp(e, defaultSource, j.now)

	j.logger.Debug("journal event",
		zap.String("type", e.Type),
		zap.String("source", e.Source),
		zap.Any("fields", e.Fields))

	if j.store == nil {
		return
	}
	if err := j.store.AppendEvent(ctx, e); err != nil {
		j.logger.Warn("failed to persist journal event", zap.String("type", e.Type), zap.Error(err))
	}
}

func stamp(e Event, defaultSource string, now func() time.Time) Event {
	if e.Source == "" {
		e.Source = defaultSource
	}
	if e.Source == "" {
		e.Source = "axiom"
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now().UTC()
	}
	if e.Fields == nil {
		e.Fields = map[string]any{}
	}
	return e
}

// Recorder keeps events in memory. It backs tests and the /v1/events endpoint.
type Recorder struct {
	mu     sync.Mutex
	events []Event
	limit  int
}

// NewRecorder keeps at most limit events; limit <= 0 keeps everything.
func NewRecorder(limit int) *Recorder {
	return &Recorder{limit: limit}
}

func (r *Recorder) Log(_ context.Context, e Event, defaultSource string) {
	e = stamp(e, defaultSource, time.Now)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	if r.limit > 0 && len(r.events) > r.limit {
		r.events = r.events[len(r.events)-r.limit:]
	}
}

// Events returns a copy of everything recorded.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// OfType returns recorded events with the given type.
func (r *Recorder) OfType(eventType string) []Event {
	var out []Event
	for _, e := range r.Events() {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

// Tee fans an event out to several sinks.
type Tee []Sink

func (t Tee) Log(ctx context.Context, e Event, defaultSource string) {
	for _, s := range t {
		if s != nil {
			s.Log(ctx, e, defaultSource)
		}
	}
}

// Nop discards events.
type Nop struct{}

func (Nop) Log(context.Context, Event, string) {}

// Safe wraps a sink so a panicking implementation cannot reach the caller.
func Safe(s Sink, logger *zap.Logger) Sink {
	if s == nil {
		return Nop{}
	}
	return safeSink{inner: s, logger: logger}
}

type safeSink struct {
	inner  Sink
	logger *zap.Logger
}

func (s safeSink) Log(ctx context.Context, e Event, defaultSource string) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Warn("journal sink panicked", zap.String("type", e.Type), zap.String("panic", fmt.Sprint(r)))
		}
	}()
	s.inner.Log(ctx, e, defaultSource)
}
