package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Harshitk-cp/axiom/internal/domain"
	"github.com/Harshitk-cp/axiom/internal/journal"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// BreakerConfig controls when a store breaker trips and recovers.
type BreakerConfig struct {
	MaxFailures          uint32
	Timeout              time.Duration
	HalfOpenMaxSuccesses uint32
}

func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		MaxFailures:          3,
		Timeout:              30 * time.Second,
		HalfOpenMaxSuccesses: 2,
	}
}

// Breaker fails store calls fast once the backend keeps erroring, so
// best-effort callers degrade instead of piling up on a dead database.
type Breaker struct {
	cb *gobreaker.CircuitBreaker
}

func NewBreaker(name string, cfg BreakerConfig, logger *zap.Logger) *Breaker {
	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.HalfOpenMaxSuccesses,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.MaxFailures
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrNotFound)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("store breaker state change",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	}
	return &Breaker{cb: gobreaker.NewCircuitBreaker(settings)}
}

func (b *Breaker) State() string {
	return b.cb.State().String()
}

func (b *Breaker) do(ctx context.Context, fn func() (any, error)) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out, err := b.cb.Execute(fn)
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: %v", ErrCircuitOpen, err)
	}
	return out, err
}

// GuardedBeliefStore runs every call to the wrapped store through a breaker.
type GuardedBeliefStore struct {
	inner   domain.BeliefStore
	breaker *Breaker
}

func NewGuardedBeliefStore(inner domain.BeliefStore, b *Breaker) *GuardedBeliefStore {
	return &GuardedBeliefStore{inner: inner, breaker: b}
}

func (g *GuardedBeliefStore) Snapshot(ctx context.Context) ([]domain.MemoryRecord, error) {
	out, err := g.breaker.do(ctx, func() (any, error) { return g.inner.Snapshot(ctx) })
	if err != nil {
		return nil, err
	}
	return out.([]domain.MemoryRecord), nil
}

func (g *GuardedBeliefStore) GetByID(ctx context.Context, id string) (*domain.MemoryRecord, error) {
	out, err := g.breaker.do(ctx, func() (any, error) { return g.inner.GetByID(ctx, id) })
	if err != nil {
		return nil, err
	}
	return out.(*domain.MemoryRecord), nil
}

func (g *GuardedBeliefStore) Save(ctx context.Context, r *domain.MemoryRecord) error {
	_, err := g.breaker.do(ctx, func() (any, error) { return nil, g.inner.Save(ctx, r) })
	return err
}

// GuardedConflictLog runs every call to the wrapped log through a breaker.
type GuardedConflictLog struct {
	inner   domain.ConflictLog
	breaker *Breaker
}

func NewGuardedConflictLog(inner domain.ConflictLog, b *Breaker) *GuardedConflictLog {
	return &GuardedConflictLog{inner: inner, breaker: b}
}

func (g *GuardedConflictLog) Append(ctx context.Context, c *domain.Conflict) error {
	_, err := g.breaker.do(ctx, func() (any, error) { return nil, g.inner.Append(ctx, c) })
	return err
}

func (g *GuardedConflictLog) Scan(ctx context.Context) ([]domain.Conflict, error) {
	out, err := g.breaker.do(ctx, func() (any, error) { return g.inner.Scan(ctx) })
	if err != nil {
		return nil, err
	}
	return out.([]domain.Conflict), nil
}

// GuardedEventStore runs journal persistence through a breaker.
type GuardedEventStore struct {
	inner   journal.EventStore
	breaker *Breaker
}

func NewGuardedEventStore(inner journal.EventStore, b *Breaker) *GuardedEventStore {
	return &GuardedEventStore{inner: inner, breaker: b}
}

func (g *GuardedEventStore) AppendEvent(ctx context.Context, e journal.Event) error {
	_, err := g.breaker.do(ctx, func() (any, error) { return nil, g.inner.AppendEvent(ctx, e) })
	return err
}
