package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"examprep-engine/internal/domain"
	"github.com/jackc/pgx/v4/pgxpool"
)

// ResultStore persists submission results as JSONB, indexed by user and
// creation time for the analyzer's recent-history reads.
type ResultStore struct {
	pool *pgxpool.Pool
}

func NewResultStore(pool *pgxpool.Pool) *ResultStore {
	return &ResultStore{pool: pool}
}

func (s *ResultStore) Save(ctx context.Context, r domain.Result) error {
	raw, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO results (id, user_id, test_id, created_at, data)
		VALUES ($1, $2, $3, $4, $5::jsonb)`,
		r.ID, r.UserID, r.TestID, r.CreatedAt, string(raw))
	if err != nil {
		return fmt.Errorf("save result: %w", err)
	}
	return nil
}

func (s *ResultStore) Recent(ctx context.Context, userID string, limit int) ([]domain.Result, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT data FROM results WHERE user_id=$1 ORDER BY created_at DESC LIMIT $2`,
		userID, limit)
	if err != nil {
		return nil, fmt.Errorf("recent results: %w", err)
	}
	defer rows.Close()

	var out []domain.Result
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		var r domain.Result
		if err := json.Unmarshal(raw, &r); err != nil {
			return nil, fmt.Errorf("unmarshal result: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate results: %w", err)
	}
	return out, nil
}
