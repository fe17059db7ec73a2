package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/Harshitk-cp/axiom/internal/domain"
	"github.com/Harshitk-cp/axiom/internal/journal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type backend interface {
	domain.BeliefStore
	domain.ConflictLog
	journal.EventStore
	HealthChecker
}

func backends(t *testing.T) map[string]backend {
	t.Helper()
	sqlite, err := NewSQLiteStore(filepath.Join(t.TempDir(), "nested", "axiom.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlite.Close() })

	return map[string]backend{
		"memory": NewInMemoryStore(),
		"sqlite": sqlite,
	}
}

func TestBeliefStoreContract(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, s.HealthCheck(ctx))

			rec := &domain.MemoryRecord{
				Content:    "tea is good",
				Confidence: 0.7,
				Source:     "ingest",
				Metadata:   map[string]any{"key": "tea_is_good"},
			}
			require.NoError(t, s.Save(ctx, rec))
			assert.NotEmpty(t, rec.ID)
			assert.Equal(t, rec.ID, rec.UUID)
			assert.Equal(t, domain.RecordTypeBelief, rec.Type)

			got, err := s.GetByID(ctx, rec.ID)
			require.NoError(t, err)
			assert.Equal(t, "tea is good", got.Content)
			assert.Equal(t, "tea_is_good", got.Metadata["key"])

			rec.Confidence = 0.4
			rec.AddTag("inhibited")
			require.NoError(t, s.Save(ctx, rec))

			all, err := s.Snapshot(ctx)
			require.NoError(t, err)
			require.Len(t, all, 1)
			assert.InDelta(t, 0.4, all[0].Confidence, 1e-9)
			assert.True(t, all[0].HasTag("inhibited"))

			_, err = s.GetByID(ctx, "missing")
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestConflictLogContract_LatestVersionWins(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			now := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
			first := &domain.Conflict{UUID: "c1", BeliefA: "a", BeliefB: "not a", Confidence: 0.8, Resolution: domain.ResolutionPending, CreatedAt: now}
			second := &domain.Conflict{UUID: "c2", BeliefA: "b", BeliefB: "not b", Confidence: 0.7, Resolution: domain.ResolutionPending, CreatedAt: now}
			require.NoError(t, s.Append(ctx, first))
			require.NoError(t, s.Append(ctx, second))

			updated := *first
			updated.Resolution = domain.ResolutionResolved
			updated.ResolvedMethod = "manual"
			require.NoError(t, s.Append(ctx, &updated))

			all, err := s.Scan(ctx)
			require.NoError(t, err)
			require.Len(t, all, 2)

			byID := map[string]domain.Conflict{}
			for _, c := range all {
				byID[c.Identity()] = c
			}
			assert.Equal(t, domain.ResolutionResolved, byID["c1"].Resolution)
			assert.Equal(t, "manual", byID["c1"].ResolvedMethod)
			assert.Equal(t, domain.ResolutionPending, byID["c2"].Resolution)
		})
	}
}

func TestEventStoreContract(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			e := journal.New(journal.TypeNag, map[string]any{"pending": 2})
			e.Source = "test"
			e.CreatedAt = time.Now()
			assert.NoError(t, s.AppendEvent(ctx, e))
		})
	}
}

func TestInMemoryStore_EventCap(t *testing.T) {
	s := NewInMemoryStore()
	for i := 0; i < defaultInMemoryEventLimit+5; i++ {
		require.NoError(t, s.AppendEvent(context.Background(), journal.New("x", nil)))
	}
	assert.Equal(t, defaultInMemoryEventLimit, s.EventCount())
}

func TestInMemoryStore_SnapshotIsACopy(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore()
	require.NoError(t, s.Save(ctx, &domain.MemoryRecord{ID: "1", Content: "x", Tags: []string{"a"}}))

	snap, err := s.Snapshot(ctx)
	require.NoError(t, err)
	snap[0].Tags[0] = "mutated"

	got, err := s.GetByID(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, got.Tags)
}

type failingLog struct {
	calls int
}

func (f *failingLog) Append(context.Context, *domain.Conflict) error {
	f.calls++
	return errors.New("db down")
}

func (f *failingLog) Scan(context.Context) ([]domain.Conflict, error) {
	f.calls++
	return nil, errors.New("db down")
}

func TestBreaker_TripsAfterConsecutiveFailures(t *testing.T) {
	inner := &failingLog{}
	cfg := BreakerConfig{MaxFailures: 2, Timeout: time.Minute, HalfOpenMaxSuccesses: 1}
	b := NewBreaker("test", cfg, zap.NewNop())
	g := NewGuardedConflictLog(inner, b)
	ctx := context.Background()

	assert.Error(t, g.Append(ctx, &domain.Conflict{}))
	_, err := g.Scan(ctx)
	assert.Error(t, err)
	assert.Equal(t, "open", b.State())

	err = g.Append(ctx, &domain.Conflict{})
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.Equal(t, 2, inner.calls)
}

func TestBreaker_NotFoundDoesNotTrip(t *testing.T) {
	cfg := BreakerConfig{MaxFailures: 1, Timeout: time.Minute, HalfOpenMaxSuccesses: 1}
	b := NewBreaker("beliefs", cfg, zap.NewNop())
	g := NewGuardedBeliefStore(NewInMemoryStore(), b)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := g.GetByID(ctx, "missing")
		assert.ErrorIs(t, err, ErrNotFound)
	}
	assert.Equal(t, "closed", b.State())
}

func TestBreaker_CancelledContext(t *testing.T) {
	b := NewBreaker("ctx", DefaultBreakerConfig(), zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := NewGuardedEventStore(NewInMemoryStore(), b).AppendEvent(ctx, journal.New("x", nil))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	s, err := Open(ctx, DriverMemory, "", zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, DriverMemory, s.Driver)
	s.Close()

	s, err = Open(ctx, DriverSQLite, filepath.Join(t.TempDir(), "a.db"), zap.NewNop())
	require.NoError(t, err)
	_, guardedBeliefs := s.Beliefs.(*GuardedBeliefStore)
	assert.True(t, guardedBeliefs)
	require.NoError(t, s.Health.HealthCheck(ctx))
	s.Close()

	_, err = Open(ctx, DriverPostgres, "", zap.NewNop())
	assert.Error(t, err)

	_, err = Open(ctx, "mongo", "", zap.NewNop())
	assert.Error(t, err)
}
