package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

const defaultMonitorInterval = 1 * time.Hour

type MonitorRunResult struct {
	Scheduled    int          `json:"scheduled"`
	Retested     int          `json:"retested"`
	AutoResolved int          `json:"auto_resolved"`
	Safety       SafetyReport `json:"safety"`
}

// MonitorWorker periodically schedules and retests pending conflicts and
// runs the safety check.
type MonitorWorker struct {
	monitor   *Monitor
	threshold time.Duration
	limits    SafetyLimits
	logger    *zap.Logger

	interval time.Duration
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

func NewMonitorWorker(m *Monitor, threshold time.Duration, limits SafetyLimits, logger *zap.Logger) *MonitorWorker {
	return &MonitorWorker{
		monitor:   m,
		threshold: threshold,
		limits:    limits,
		logger:    logger,
		interval:  defaultMonitorInterval,
		stopCh:    make(chan struct{}),
	}
}

func (w *MonitorWorker) SetInterval(d time.Duration) {
	if d > 0 {
		w.interval = d
	}
}

func (w *MonitorWorker) Start() {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()

		w.logger.Info("contradiction monitor started", zap.Duration("interval", w.interval))

		for {
			select {
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
				w.RunOnce(ctx)
				cancel()
			case <-w.stopCh:
				w.logger.Info("contradiction monitor stopped")
				return
			}
		}
	}()
}

func (w *MonitorWorker) Stop() {
	close(w.stopCh)
	w.wg.Wait()
}

// RunOnce performs a single monitoring pass.
func (w *MonitorWorker) RunOnce(ctx context.Context) *MonitorRunResult {
	result := &MonitorRunResult{}

	pending := w.monitor.LoadPending(ctx)
	scheduled := w.monitor.ScheduleRetest(ctx, pending, w.threshold)
	result.Scheduled = len(scheduled)

	retested, _ := w.monitor.RetestConflicts(ctx, scheduled)
	result.Retested = len(retested)
	for _, c := range retested {
		if !c.IsPending() {
			result.AutoResolved++
		}
	}

	result.Safety = w.monitor.SafetyCheck(ctx, w.limits)

	if result.Scheduled > 0 || result.Safety.BacklogWarning || result.Safety.StalenessWarning {
		w.logger.Info("contradiction monitor pass complete",
			zap.Int("scheduled", result.Scheduled),
			zap.Int("retested", result.Retested),
			zap.Int("auto_resolved", result.AutoResolved),
			zap.Int("unresolved", result.Safety.Unresolved),
			zap.Int("stale", result.Safety.Stale))
	}
	return result
}
