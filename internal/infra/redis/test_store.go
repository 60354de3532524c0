package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"examprep-engine/internal/domain"
	"github.com/redis/go-redis/v9"
)

// TestStore keeps assembled tests in Redis. The active singleton per
// (kind, examType) slot is claimed with SET NX, so two instances racing to
// create the first demo test elect exactly one winner; the loser reads and
// adopts the winner's test.
//
// The slot key carries the configured TTL (expiry just triggers a fresh
// assembly later); id keys persist so stored results keep resolving.
type TestStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewTestStore(client *redis.Client, ttl time.Duration) *TestStore {
	return &TestStore{client: client, ttl: ttl}
}

func (s *TestStore) Get(ctx context.Context, id string) (domain.AssembledTest, error) {
	raw, err := s.client.Get(ctx, s.testKey(id)).Bytes()
	if err == redis.Nil {
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
	if err := s.client.Set(ctx, s.testKey(t.ID), raw, 0).Err(); err != nil {
		return fmt.Errorf("save test: %w", err)
	}
	return nil
}

func (s *TestStore) FindActive(ctx context.Context, kind domain.TestKind, examType domain.ExamType) (domain.AssembledTest, error) {
	raw, err := s.client.Get(ctx, s.slotKey(kind, examType)).Bytes()
	if err == redis.Nil {
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

	claimed, err := s.client.SetNX(ctx, s.slotKey(t.Kind, t.ExamType), raw, s.ttl).Result()
	if err != nil {
		return domain.AssembledTest{}, false, fmt.Errorf("claim active slot: %w", err)
	}
	if !claimed {
		existing, err := s.FindActive(ctx, t.Kind, t.ExamType)
		if err == domain.ErrNoActiveTest {
			// The winner's key expired between SETNX and GET; retry once.
			return s.CreateIfAbsent(ctx, t)
		}
		if err != nil {
			return domain.AssembledTest{}, false, err
		}
		return existing, false, nil
	}

	if err := s.client.Set(ctx, s.testKey(t.ID), raw, 0).Err(); err != nil {
		return domain.AssembledTest{}, false, fmt.Errorf("save test: %w", err)
	}
	return t, true, nil
}

func (s *TestStore) SwapActive(ctx context.Context, t domain.AssembledTest) error {
	t.Active = true
	raw, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("marshal test: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.slotKey(t.Kind, t.ExamType), raw, s.ttl)
	pipe.Set(ctx, s.testKey(t.ID), raw, 0)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("swap active test: %w", err)
	}
	return nil
}

func (s *TestStore) testKey(id string) string {
	return "exam:test:" + id
}

func (s *TestStore) slotKey(kind domain.TestKind, examType domain.ExamType) string {
	return "exam:active:" + string(kind) + ":" + string(examType)
}

func unmarshalTest(raw []byte) (domain.AssembledTest, error) {
	var t domain.AssembledTest
	if err := json.Unmarshal(raw, &t); err != nil {
		return domain.AssembledTest{}, fmt.Errorf("unmarshal test: %w", err)
	}
	return t, nil
}
