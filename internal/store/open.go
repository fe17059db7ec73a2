package store

import (
	"context"
	"fmt"

	"github.com/Harshitk-cp/axiom/internal/domain"
	"github.com/Harshitk-cp/axiom/internal/journal"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// HealthChecker is implemented by every backend.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Stores bundles the backend selected by Open.
type Stores struct {
	Driver    string
	Beliefs   domain.BeliefStore
	Conflicts domain.ConflictLog
	Events    journal.EventStore
	Health    HealthChecker

	closeFn func()
}

func (s *Stores) Close() {
	if s.closeFn != nil {
		s.closeFn()
	}
}

// Open connects the configured backend. Persistent backends are wrapped in
// circuit breakers.
func Open(ctx context.Context, driver, dsn string, logger *zap.Logger) (*Stores, error) {
	switch driver {
	case DriverMemory, "":
		mem := NewInMemoryStore()
		return &Stores{Driver: DriverMemory, Beliefs: mem, Conflicts: mem, Events: mem, Health: mem}, nil

	case DriverSQLite:
		db, err := NewSQLiteStore(dsn)
		if err != nil {
			return nil, err
		}
		logger.Info("opened sqlite store", zap.String("path", dsn))
		return guarded(DriverSQLite, db, db, db, db, func() { _ = db.Close() }, logger), nil

	case DriverPostgres:
		if dsn == "" {
			return nil, fmt.Errorf("postgres driver requires DATABASE_URL")
		}
		pool, err := pgxpool.New(ctx, dsn)
		if err != nil {
			return nil, fmt.Errorf("connect to database: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("ping database: %w", err)
		}
		if err := EnsureSchema(ctx, pool); err != nil {
			pool.Close()
			return nil, err
		}
		logger.Info("connected to database")
		memories := NewMemoryStore(pool)
		return guarded(DriverPostgres, memories, NewContradictionStore(pool), NewEventStore(pool), memories, pool.Close, logger), nil

	default:
		return nil, fmt.Errorf("unknown store driver %q", driver)
	}
}

func guarded(driver string, beliefs domain.BeliefStore, conflicts domain.ConflictLog, events journal.EventStore, health HealthChecker, closeFn func(), logger *zap.Logger) *Stores {
	cfg := DefaultBreakerConfig()
	return &Stores{
		Driver:    driver,
		Beliefs:   NewGuardedBeliefStore(beliefs, NewBreaker(driver+"-beliefs", cfg, logger)),
		Conflicts: NewGuardedConflictLog(conflicts, NewBreaker(driver+"-conflicts", cfg, logger)),
		Events:    NewGuardedEventStore(events, NewBreaker(driver+"-events", cfg, logger)),
		Health:    health,
		closeFn:   closeFn,
	}
}
