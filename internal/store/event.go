package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Harshitk-cp/axiom/internal/journal"
	"github.com/jackc/pgx/v5/pgxpool"
)

// EventStore persists journal events in Postgres.
type EventStore struct {
	db *pgxpool.Pool
}

func NewEventStore(db *pgxpool.Pool) *EventStore {
	return &EventStore{db: db}
}

func (s *EventStore) AppendEvent(ctx context.Context, e journal.Event) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	_, err = s.db.Exec(ctx,
		`INSERT INTO journal_events (type, source, created_at, payload) VALUES ($1, $2, $3, $4)`,
		e.Type, e.Source, e.CreatedAt, payload,
	)
	return err
}
