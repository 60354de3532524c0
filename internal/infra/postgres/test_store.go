package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"examprep-engine/internal/domain"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// TestStore persists assembled tests. A partial unique index on
// (kind, exam_type) WHERE active guarantees at most one active singleton per
// slot; CreateIfAbsent leans on it with an insert-if-absent instead of a
// lookup-then-create, so concurrent first requests cannot both win.
type TestStore struct {
	pool *pgxpool.Pool
}

func NewTestStore(pool *pgxpool.Pool) *TestStore {
	return &TestStore{pool: pool}
}

func (s *TestStore) Get(ctx context.Context, id string) (domain.AssembledTest, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx, `SELECT data FROM tests WHERE id=$1`, id).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.AssembledTest{}, domain.ErrTestNotFound
	}
	if err != nil {
		return domain.AssembledTest{}, fmt.Errorf("get test: %w", err)
	}
	return unmarshalTest(raw)
}

func (s *TestStore) Save(ctx context.Context, t domain.AssembledTest) error {
	raw, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("marshal test: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO tests (id, kind, exam_type, active, data)
		VALUES ($1, $2, $3, $4, $5::jsonb)
		ON CONFLICT (id) DO UPDATE SET active=EXCLUDED.active, data=EXCLUDED.data`,
		t.ID, string(t.Kind), string(t.ExamType), t.Active, string(raw))
	if err != nil {
		return fmt.Errorf("save test: %w", err)
	}
	return nil
}

func (s *TestStore) FindActive(ctx context.Context, kind domain.TestKind, examType domain.ExamType) (domain.AssembledTest, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx,
		`SELECT data FROM tests WHERE kind=$1 AND exam_type=$2 AND active`,
		string(kind), string(examType)).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.AssembledTest{}, domain.ErrNoActiveTest
	}
	if err != nil {
		return domain.AssembledTest{}, fmt.Errorf("find active test: %w", err)
	}
	return unmarshalTest(raw)
}

func (s *TestStore) CreateIfAbsent(ctx context.Context, t domain.AssembledTest) (domain.AssembledTest, bool, error) {
	t.Active = true
	raw, err := json.Marshal(t)
	if err != nil {
		return domain.AssembledTest{}, false, fmt.Errorf("marshal test: %w", err)
	}

	tag, err := s.pool.Exec(ctx, `
		INSERT INTO tests (id, kind, exam_type, active, data)
		VALUES ($1, $2, $3, true, $4::jsonb)
		ON CONFLICT (kind, exam_type) WHERE active DO NOTHING`,
		t.ID, string(t.Kind), string(t.ExamType), string(raw))
	if err != nil {
		return domain.AssembledTest{}, false, fmt.Errorf("create active test: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return t, true, nil
	}

	// Lost the race; adopt the winner's row.
	existing, err := s.FindActive(ctx, t.Kind, t.ExamType)
	if err != nil {
		return domain.AssembledTest{}, false, err
	}
	return existing, false, nil
}

func (s *TestStore) SwapActive(ctx context.Context, t domain.AssembledTest) error {
	t.Active = true
	raw, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("marshal test: %w", err)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin swap: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`UPDATE tests SET active=false, data=jsonb_set(data, '{active}', 'false') WHERE kind=$1 AND exam_type=$2 AND active`,
		string(t.Kind), string(t.ExamType)); err != nil {
		return fmt.Errorf("deactivate previous test: %w", err)
	}
	if _, err := tx.Exec(ctx, `
		INSERT INTO tests (id, kind, exam_type, active, data)
		VALUES ($1, $2, $3, true, $4::jsonb)
		ON CONFLICT (id) DO UPDATE SET active=true, data=EXCLUDED.data`,
		t.ID, string(t.Kind), string(t.ExamType), string(raw)); err != nil {
		return fmt.Errorf("install new active test: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit swap: %w", err)
	}
	return nil
}

func unmarshalTest(raw []byte) (domain.AssembledTest, error) {
	var t domain.AssembledTest
	if err := json.Unmarshal(raw, &t); err != nil {
		return domain.AssembledTest{}, fmt.Errorf("unmarshal test: %w", err)
	}
	return t, nil
}
