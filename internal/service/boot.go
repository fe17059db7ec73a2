package service

import (
	"context"
	"fmt"
	"time"

	"github.com/Harshitk-cp/axiom/internal/journal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	bootSource          = "contradiction_boot_sweep"
	DefaultBootSweepAge = 3 * 24 * time.Hour
)

type BootOptions struct {
	AgeThreshold time.Duration
	FastMode     bool
	Safety       SafetyLimits
}

type BootReport struct {
	Skipped   bool          `json:"skipped"`
	Pending   int           `json:"pending"`
	Scheduled int           `json:"scheduled"`
	Retested  int           `json:"retested"`
	Stories   []string      `json:"stories,omitempty"`
	Tasks     *BatchOutcome `json:"tasks,omitempty"`
	Duration  time.Duration `json:"duration"`
}

// BootSweep retests aged pending conflicts at startup and, unless in fast
// mode, fans out metrics, a dream probe, the safety check and a nag.
// A failing task never cancels the others.
func BootSweep(ctx context.Context, m *Monitor, dash *Dashboard, j journal.Sink, logger *zap.Logger, opts BootOptions) BootReport {
	j = journal.Safe(j, logger)
	start := time.Now()

	if m == nil {
		j.Log(ctx, journal.New(journal.TypeBootSweepSkipped, map[string]any{
			"reason": "monitor unavailable",
		}), bootSource)
		return BootReport{Skipped: true}
	}
	if opts.AgeThreshold <= 0 {
		opts.AgeThreshold = DefaultBootSweepAge
	}

	pending := m.LoadPending(ctx)
	scheduled := m.ScheduleRetest(ctx, pending, opts.AgeThreshold)
	retested, _ := m.RetestConflicts(ctx, scheduled)

	report := BootReport{
		Pending:   len(pending),
		Scheduled: len(scheduled),
		Retested:  len(retested),
		Tasks:     &BatchOutcome{},
	}
	for _, c := range retested {
		if story := m.NarrateStory(c); story != "" {
			report.Stories = append(report.Stories, story)
		}
	}

	if !opts.FastMode {
		tasks := map[string]func(context.Context){
			"safety": func(ctx context.Context) { m.SafetyCheck(ctx, opts.Safety) },
		}
		if dash != nil {
			tasks["metrics"] = func(ctx context.Context) { dash.Metrics(ctx) }
			tasks["dream_probe"] = func(ctx context.Context) { dash.DreamProbe(ctx) }
			tasks["nag"] = func(ctx context.Context) { dash.Nag(ctx) }
		}

		var g errgroup.Group
		for name, task := range tasks {
			name, task := name, task
			g.Go(func() error {
				if err := runTask(ctx, task); err != nil {
					report.Tasks.Fail(fmt.Errorf("%s: %w", name, err))
					return nil
				}
				report.Tasks.Succeed()
				return nil
			})
		}
		_ = g.Wait()
	}

	report.Duration = time.Since(start)
	fields := report.Tasks.Fields()
	fields["pending"] = report.Pending
	fields["scheduled"] = report.Scheduled
	fields["retested"] = report.Retested
	fields["fast_mode"] = opts.FastMode
	fields["duration_ms"] = report.Duration.Milliseconds()
	j.Log(ctx, journal.New(journal.TypeBootSweep, fields), bootSource)

	logger.Info("boot sweep complete",
		zap.Int("pending", report.Pending),
		zap.Int("scheduled", report.Scheduled),
		zap.Int("retested", report.Retested),
		zap.Bool("fast_mode", opts.FastMode),
		zap.Duration("duration", report.Duration))
	return report
}

func runTask(ctx context.Context, task func(context.Context)) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	task(ctx)
	return nil
}

// StartBootSweep runs BootSweep in the background. The returned channel
// receives the report once and is then closed.
func StartBootSweep(ctx context.Context, m *Monitor, dash *Dashboard, j journal.Sink, logger *zap.Logger, opts BootOptions) <-chan BootReport {
	done := make(chan BootReport, 1)
	go func() {
		defer close(done)
		done <- BootSweep(ctx, m, dash, j, logger, opts)
	}()
	return done
}
