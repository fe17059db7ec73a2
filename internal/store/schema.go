package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS memory_records (
    id           TEXT PRIMARY KEY,
    uuid         TEXT NOT NULL DEFAULT '',
    type         TEXT NOT NULL DEFAULT 'belief',
    content      TEXT NOT NULL,
    confidence   DOUBLE PRECISION NOT NULL DEFAULT 0.5,
    tags         TEXT[] NOT NULL DEFAULT '{}',
    metadata     JSONB NOT NULL DEFAULT '{}',
    source       TEXT NOT NULL DEFAULT '',
    memory_type  TEXT NOT NULL DEFAULT '',
    last_updated TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_memory_records_uuid ON memory_records (uuid);
CREATE INDEX IF NOT EXISTS idx_memory_records_type ON memory_records (type);

CREATE TABLE IF NOT EXISTS contradictions (
    seq         BIGSERIAL PRIMARY KEY,
    conflict_id TEXT NOT NULL,
    resolution  TEXT NOT NULL DEFAULT 'pending',
    payload     JSONB NOT NULL,
    logged_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_contradictions_conflict ON contradictions (conflict_id, seq DESC);

CREATE TABLE IF NOT EXISTS journal_events (
    id         BIGSERIAL PRIMARY KEY,
    type       TEXT NOT NULL,
    source     TEXT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL,
    payload    JSONB NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_journal_events_type ON journal_events (type, created_at);
`

// EnsureSchema creates the Postgres tables if they do not exist.
func EnsureSchema(ctx context.Context, db *pgxpool.Pool) error {
	if _, err := db.Exec(ctx, postgresSchema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}
