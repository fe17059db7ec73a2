package service

import (
	"sync"

	"go.uber.org/zap"
)

// BatchOutcome aggregates best-effort steps so partial failure is observable
// without aborting the batch.
type BatchOutcome struct {
	mu        sync.Mutex
	Succeeded int      `json:"succeeded"`
	Skipped   int      `json:"skipped"`
	Failed    int      `json:"failed"`
	Errors    []string `json:"errors,omitempty"`
}

const maxOutcomeErrors = 20

func (o *BatchOutcome) Succeed() {
	o.mu.Lock()
	o.Succeeded++
	o.mu.Unlock()
}

func (o *BatchOutcome) Skip() {
	o.mu.Lock()
	o.Skipped++
	o.mu.Unlock()
}

// Fail counts a failure and keeps the first few messages.
func (o *BatchOutcome) Fail(err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.Failed++
	if err != nil && len(o.Errors) < maxOutcomeErrors {
		o.Errors = append(o.Errors, err.Error())
	}
}

// Fields renders the outcome for journal events.
func (o *BatchOutcome) Fields() map[string]any {
	o.mu.Lock()
	defer o.mu.Unlock()
	return map[string]any{
		"succeeded": o.Succeeded,
		"skipped":   o.Skipped,
		"failed":    o.Failed,
		"errors":    append([]string(nil), o.Errors...),
	}
}

// ZapFields renders the outcome for structured logs.
func (o *BatchOutcome) ZapFields() []zap.Field {
	o.mu.Lock()
	defer o.mu.Unlock()
	return []zap.Field{
		zap.Int("succeeded", o.Succeeded),
		zap.Int("skipped", o.Skipped),
		zap.Int("failed", o.Failed),
	}
}
