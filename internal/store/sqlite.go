package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/Harshitk-cp/axiom/internal/domain"
	"github.com/Harshitk-cp/axiom/internal/journal"
	_ "modernc.org/sqlite" // SQLite driver
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS memory_records (
    id           TEXT PRIMARY KEY,
    uuid         TEXT NOT NULL DEFAULT '',
    type         TEXT NOT NULL DEFAULT 'belief',
    content      TEXT NOT NULL,
    confidence   REAL NOT NULL DEFAULT 0.5,
    tags         TEXT NOT NULL DEFAULT '[]',
    metadata     TEXT NOT NULL DEFAULT '{}',
    source       TEXT NOT NULL DEFAULT '',
    memory_type  TEXT NOT NULL DEFAULT '',
    last_updated TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_memory_records_uuid ON memory_records (uuid);

CREATE TABLE IF NOT EXISTS contradictions (
    seq         INTEGER PRIMARY KEY AUTOINCREMENT,
    conflict_id TEXT NOT NULL,
    resolution  TEXT NOT NULL DEFAULT 'pending',
    payload     TEXT NOT NULL,
    logged_at   TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_contradictions_conflict ON contradictions (conflict_id, seq);

CREATE TABLE IF NOT EXISTS journal_events (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    type       TEXT NOT NULL,
    source     TEXT NOT NULL,
    created_at TEXT NOT NULL,
    payload    TEXT NOT NULL
);
`

// SQLiteStore keeps memory records, the conflict log and journal events in
// one local SQLite file.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens dsn, switches it to WAL and creates the schema.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	if dsn != ":memory:" {
		if dir := filepath.Dir(dsn); dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("sqlite: create data dir: %w", err)
			}
		}
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}

	// One writer at a time; WAL lets readers proceed.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("sqlite: %s: %w", pragma, err)
		}
	}

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: create schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) HealthCheck(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) Snapshot(ctx context.Context) ([]domain.MemoryRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+memoryColumns+` FROM memory_records ORDER BY last_updated, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []domain.MemoryRecord
	for rows.Next() {
		r, err := scanSQLiteRecord(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, *r)
	}
	return results, rows.Err()
}

func (s *SQLiteStore) GetByID(ctx context.Context, id string) (*domain.MemoryRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+memoryColumns+` FROM memory_records WHERE id = ? OR uuid = ? LIMIT 1`, id, id)
	r, err := scanSQLiteRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return r, err
}

func (s *SQLiteStore) Save(ctx context.Context, r *domain.MemoryRecord) error {
	prepareRecord(r)
	tags, err := json.Marshal(r.Tags)
	if err != nil {
		return fmt.Errorf("marshal tags: %w", err)
	}
	metadata, err := json.Marshal(r.Metadata)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO memory_records (id, uuid, type, content, confidence, tags, metadata, source, memory_type, last_updated)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   uuid = excluded.uuid, type = excluded.type, content = excluded.content,
		   confidence = excluded.confidence, tags = excluded.tags, metadata = excluded.metadata,
		   source = excluded.source, memory_type = excluded.memory_type, last_updated = excluded.last_updated`,
		r.ID, r.UUID, r.Type, r.Content, r.Confidence, string(tags), string(metadata), r.Source, r.MemoryType,
		r.LastUpdated.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("save memory record %s: %w", r.ID, err)
	}
	return nil
}

func (s *SQLiteStore) Append(ctx context.Context, c *domain.Conflict) error {
	payload, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal conflict: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO contradictions (conflict_id, resolution, payload, logged_at) VALUES (?, ?, ?, ?)`,
		c.Identity(), string(c.Resolution), string(payload), time.Now().UTC().Format(time.RFC3339Nano),
	)
	return err
}

func (s *SQLiteStore) Scan(ctx context.Context) ([]domain.Conflict, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT payload FROM contradictions
		 WHERE seq IN (SELECT MAX(seq) FROM contradictions GROUP BY conflict_id)
		 ORDER BY seq`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []domain.Conflict
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var c domain.Conflict
		if err := json.Unmarshal([]byte(payload), &c); err != nil {
			return nil, fmt.Errorf("decode conflict: %w", err)
		}
		results = append(results, c)
	}
	return results, rows.Err()
}

func (s *SQLiteStore) AppendEvent(ctx context.Context, e journal.Event) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO journal_events (type, source, created_at, payload) VALUES (?, ?, ?, ?)`,
		e.Type, e.Source, e.CreatedAt.UTC().Format(time.RFC3339Nano), string(payload),
	)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteRecord(row rowScanner) (*domain.MemoryRecord, error) {
	r := &domain.MemoryRecord{}
	var tags, metadata, lastUpdated string
	if err := row.Scan(&r.ID, &r.UUID, &r.Type, &r.Content, &r.Confidence, &tags, &metadata, &r.Source, &r.MemoryType, &lastUpdated); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(tags), &r.Tags); err != nil {
		return nil, fmt.Errorf("decode tags of %s: %w", r.ID, err)
	}
	if err := json.Unmarshal([]byte(metadata), &r.Metadata); err != nil {
		return nil, fmt.Errorf("decode metadata of %s: %w", r.ID, err)
	}
	t, err := time.Parse(time.RFC3339Nano, lastUpdated)
	if err != nil {
		return nil, fmt.Errorf("decode last_updated of %s: %w", r.ID, err)
	}
	r.LastUpdated = t
	return r, nil
}
