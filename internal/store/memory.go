package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Harshitk-cp/axiom/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// MemoryStore is the Postgres-backed store of memory records, beliefs included.
type MemoryStore struct {
	db *pgxpool.Pool
}

func NewMemoryStore(db *pgxpool.Pool) *MemoryStore {
	return &MemoryStore{db: db}
}

const memoryColumns = `id, uuid, type, content, confidence, tags, metadata, source, memory_type, last_updated`

func (s *MemoryStore) Snapshot(ctx context.Context) ([]domain.MemoryRecord, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+memoryColumns+` FROM memory_records ORDER BY last_updated, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []domain.MemoryRecord
	for rows.Next() {
		r, err := scanMemoryRecord(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, *r)
	}
	return results, rows.Err()
}

func (s *MemoryStore) GetByID(ctx context.Context, id string) (*domain.MemoryRecord, error) {
	row := s.db.QueryRow(ctx,
		`SELECT `+memoryColumns+` FROM memory_records WHERE id = $1 OR uuid = $1 LIMIT 1`, id)
	r, err := scanMemoryRecord(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return r, err
}

// Save inserts the record or updates it in place. An empty ID is assigned.
func (s *MemoryStore) Save(ctx context.Context, r *domain.MemoryRecord) error {
	prepareRecord(r)
	_, err := s.db.Exec(ctx,
		`INSERT INTO memory_records (id, uuid, type, content, confidence, tags, metadata, source, memory_type, last_updated)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 ON CONFLICT (id) DO UPDATE SET
		   uuid = EXCLUDED.uuid, type = EXCLUDED.type, content = EXCLUDED.content,
		   confidence = EXCLUDED.confidence, tags = EXCLUDED.tags, metadata = EXCLUDED.metadata,
		   source = EXCLUDED.source, memory_type = EXCLUDED.memory_type, last_updated = EXCLUDED.last_updated`,
		r.ID, r.UUID, r.Type, r.Content, r.Confidence, r.Tags, r.Metadata, r.Source, r.MemoryType, r.LastUpdated,
	)
	if err != nil {
		return fmt.Errorf("save memory record %s: %w", r.ID, err)
	}
	return nil
}

func (s *MemoryStore) HealthCheck(ctx context.Context) error {
	return s.db.Ping(ctx)
}

func scanMemoryRecord(row pgx.Row) (*domain.MemoryRecord, error) {
	r := &domain.MemoryRecord{}
	var tags []string
	var metadata map[string]any
	if err := row.Scan(&r.ID, &r.UUID, &r.Type, &r.Content, &r.Confidence, &tags, &metadata, &r.Source, &r.MemoryType, &r.LastUpdated); err != nil {
		return nil, err
	}
	r.Tags = tags
	r.Metadata = metadata
	return r, nil
}

// prepareRecord fills the identity and timestamp of a record about to be saved.
func prepareRecord(r *domain.MemoryRecord) {
	if r.ID == "" {
		if r.UUID != "" {
			r.ID = r.UUID
		} else {
			r.ID = uuid.NewString()
		}
	}
	if r.UUID == "" {
		r.UUID = r.ID
	}
	if r.Type == "" {
		r.Type = domain.RecordTypeBelief
	}
	if r.Tags == nil {
		r.Tags = []string{}
	}
	if r.Metadata == nil {
		r.Metadata = map[string]any{}
	}
	if r.LastUpdated.IsZero() {
		r.LastUpdated = time.Now().UTC()
	}
}
