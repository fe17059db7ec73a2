package service

import (
	"context"
	"testing"
	"time"

	"github.com/Harshitk-cp/axiom/internal/journal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMonitorWorker_RunOnce(t *testing.T) {
	f := newMonitorFixture(t)

	kept, _, _ := f.detected(t, "a should do x", "a should not do x")
	kept.DetectedAt = ago(f.now, 10*day)
	f.record(t, kept)

	gone, _, _ := f.detected(t, "b should do y", "b should not do y")
	gone.DetectedAt = ago(f.now, 10*day)
	gone.BeliefB = ""
	f.record(t, gone)

	w := NewMonitorWorker(f.monitor, 7*day, SafetyLimits{Backlog: 10, StaleAfter: 30 * day}, zap.NewNop())
	result := w.RunOnce(context.Background())

	assert.Equal(t, 2, result.Scheduled)
	assert.Equal(t, 2, result.Retested)
	assert.Equal(t, 1, result.AutoResolved)
	assert.Equal(t, 1, result.Safety.Unresolved)

	again := w.RunOnce(context.Background())
	assert.Equal(t, 0, again.Scheduled)
}

func TestMonitorWorker_StartStop(t *testing.T) {
	f := newMonitorFixture(t)
	w := NewMonitorWorker(f.monitor, 7*day, SafetyLimits{}, zap.NewNop())
	w.SetInterval(10 * time.Millisecond)
	w.SetInterval(0)

	w.Start()
	require.Eventually(t, func() bool {
		return len(f.recorder.OfType(journal.TypeRetestScheduleSummary)) > 0
	}, time.Second, 5*time.Millisecond)
	w.Stop()
}
