package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Harshitk-cp/axiom/internal/domain"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ContradictionStore is the Postgres conflict log. Each update appends a
// row; reads return the newest row per conflict.
type ContradictionStore struct {
	db *pgxpool.Pool
}

func NewContradictionStore(db *pgxpool.Pool) *ContradictionStore {
	return &ContradictionStore{db: db}
}

func (s *ContradictionStore) Append(ctx context.Context, c *domain.Conflict) error {
	payload, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal conflict: %w", err)
	}
	_, err = s.db.Exec(ctx,
		`INSERT INTO contradictions (conflict_id, resolution, payload) VALUES ($1, $2, $3)`,
		c.Identity(), string(c.Resolution), payload,
	)
	return err
}

func (s *ContradictionStore) Scan(ctx context.Context) ([]domain.Conflict, error) {
	rows, err := s.db.Query(ctx,
		`SELECT payload FROM (
		   SELECT DISTINCT ON (conflict_id) seq, payload
		   FROM contradictions
		   ORDER BY conflict_id, seq DESC
		 ) latest ORDER BY seq`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []domain.Conflict
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var c domain.Conflict
		if err := json.Unmarshal(payload, &c); err != nil {
			return nil, fmt.Errorf("decode conflict: %w", err)
		}
		results = append(results, c)
	}
	return results, rows.Err()
}
