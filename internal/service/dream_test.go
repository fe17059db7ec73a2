package service

import (
	"testing"

	"github.com/Harshitk-cp/axiom/internal/domain"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestDreamQueue(t *testing.T) {
	q := NewDreamQueue(1, zap.NewNop())
	c := domain.Conflict{UUID: "1", BeliefA: "x", BeliefB: "y"}

	assert.True(t, q.Publish(DreamRequest{Kind: DreamKindResolution, Conflict: c}))
	assert.False(t, q.Publish(DreamRequest{Kind: DreamKindProbe, Conflict: c}))
	assert.Equal(t, 1, q.Len())
	assert.Equal(t, int64(1), q.Dropped())

	req := <-q.Requests()
	assert.Equal(t, DreamKindResolution, req.Kind)
	assert.Equal(t, `Imagine a world where both hold: "x" and "y". What reconciles them?`, req.Prompt)
	assert.False(t, req.QueuedAt.IsZero())
	assert.Equal(t, 0, q.Len())
}

func TestDreamQueue_DefaultSize(t *testing.T) {
	q := NewDreamQueue(0, zap.NewNop())
	assert.Equal(t, defaultDreamQueueSize, cap(q.ch))
}
