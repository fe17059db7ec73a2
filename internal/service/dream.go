package service

import (
	"sync/atomic"
	"time"

	"github.com/Harshitk-cp/axiom/internal/domain"
	"go.uber.org/zap"
)

const defaultDreamQueueSize = 256

type DreamKind string

const (
	DreamKindResolution DreamKind = "resolution"
	DreamKindProbe      DreamKind = "probe"
)

// DreamRequest hands a conflict to the simulation subsystem. Whatever the
// subsystem produces is simulated content and cannot flow back as a belief.
type DreamRequest struct {
	Kind     DreamKind       `json:"kind"`
	Conflict domain.Conflict `json:"conflict"`
	Prompt   string          `json:"prompt"`
	QueuedAt time.Time       `json:"queued_at"`
}

// DreamQueue is the hand-off point for deferred resolutions and probes.
// Publishing never blocks; requests beyond capacity are dropped and counted.
type DreamQueue struct {
	ch      chan DreamRequest
	dropped atomic.Int64
	logger  *zap.Logger
}

func NewDreamQueue(size int, logger *zap.Logger) *DreamQueue {
	if size <= 0 {
		size = defaultDreamQueueSize
	}
	return &DreamQueue{ch: make(chan DreamRequest, size), logger: logger}
}

func (q *DreamQueue) Publish(r DreamRequest) bool {
	if r.QueuedAt.IsZero() {
		r.QueuedAt = time.Now().UTC()
	}
	if r.Prompt == "" {
		r.Prompt = dreamPrompt(r.Conflict)
	}
	select {
	case q.ch <- r:
		return true
	default:
		q.dropped.Add(1)
		q.logger.Warn("dream queue full, request dropped",
			zap.String("kind", string(r.Kind)),
			zap.String("conflict", r.Conflict.Identity()))
		return false
	}
}

// Requests is the subscription side for the simulation subsystem.
func (q *DreamQueue) Requests() <-chan DreamRequest {
	return q.ch
}

func (q *DreamQueue) Len() int {
	return len(q.ch)
}

func (q *DreamQueue) Dropped() int64 {
	return q.dropped.Load()
}

func dreamPrompt(c domain.Conflict) string {
	return "Imagine a world where both hold: \"" + c.BeliefA + "\" and \"" + c.BeliefB + "\". What reconciles them?"
}
