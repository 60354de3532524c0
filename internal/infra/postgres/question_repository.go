package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"examprep-engine/internal/domain"
	"github.com/jackc/pgx/v4/pgxpool"
)

// QuestionRepository reads the question bank from Postgres. Rows keep the
// full question as JSONB with the filterable taxonomy extracted into
// indexed columns; random sampling happens in SQL.
type QuestionRepository struct {
	pool *pgxpool.Pool
}

func NewQuestionRepository(pool *pgxpool.Pool) *QuestionRepository {
	return &QuestionRepository{pool: pool}
}

func (r *QuestionRepository) Sample(ctx context.Context, f domain.QuestionFilter, n int, exclude map[string]struct{}) ([]domain.Question, error) {
	if n <= 0 {
		return nil, nil
	}

	var (
		clauses []string
		args    []interface{}
	)
	add := func(column string, value string) {
		if value == "" {
			return
		}
		args = append(args, value)
		clauses = append(clauses, column+"=$"+strconv.Itoa(len(args)))
	}
	add("exam_type", string(f.ExamType))
	add("subject", f.Subject)
	add("chapter", f.Chapter)
	add("topic", f.Topic)
	add("question_type", string(f.Type))
	add("section", string(f.Section))

	if len(exclude) > 0 {
		ids := make([]string, 0, len(exclude))
		for id := range exclude {
			ids = append(ids, id)
		}
		args = append(args, ids)
		clauses = append(clauses, "NOT (id = ANY($"+strconv.Itoa(len(args))+"))")
	}

	query := `SELECT data FROM questions`
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	args = append(args, n)
	query += " ORDER BY random() LIMIT $" + strconv.Itoa(len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sample questions: %w", err)
	}
	defer rows.Close()
	return scanQuestions(rows)
}

func (r *QuestionRepository) ByIDs(ctx context.Context, ids []string) ([]domain.Question, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := r.pool.Query(ctx, `SELECT data FROM questions WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("questions by ids: %w", err)
	}
	defer rows.Close()
	return scanQuestions(rows)
}

// Insert bulk-loads bank entries (used by the seed command).
func (r *QuestionRepository) Insert(ctx context.Context, questions []domain.Question) error {
	for _, q := range questions {
		data, err := json.Marshal(q)
		if err != nil {
			return fmt.Errorf("marshal question %s: %w", q.ID, err)
		}
		_, err = r.pool.Exec(ctx, `
			INSERT INTO questions (id, exam_type, subject, chapter, topic, question_type, section, difficulty, data)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9::jsonb)
			ON CONFLICT (id) DO UPDATE SET
				exam_type=EXCLUDED.exam_type, subject=EXCLUDED.subject,
				chapter=EXCLUDED.chapter, topic=EXCLUDED.topic,
				question_type=EXCLUDED.question_type, section=EXCLUDED.section,
				difficulty=EXCLUDED.difficulty, data=EXCLUDED.data`,
			q.ID, string(q.ExamType), q.Subject, q.Chapter, q.Topic,
			string(q.Type), string(q.Section), string(q.Difficulty), string(data))
		if err != nil {
			return fmt.Errorf("insert question %s: %w", q.ID, err)
		}
	}
	return nil
}

type pgxRows interface {
	Next() bool
	Scan(dest ...interface{}) error
	Err() error
}

func scanQuestions(rows pgxRows) ([]domain.Question, error) {
	var out []domain.Question
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		var q domain.Question
		if err := json.Unmarshal(raw, &q); err != nil {
			return nil, fmt.Errorf("unmarshal question: %w", err)
		}
		out = append(out, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate questions: %w", err)
	}
	return out, nil
}
