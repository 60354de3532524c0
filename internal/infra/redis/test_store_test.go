package redis

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"examprep-engine/internal/domain"
	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newStore(t *testing.T) (*TestStore, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewTestStore(client, time.Hour), mr
}

func demoTest(id string) domain.AssembledTest {
	return domain.AssembledTest{
		ID:          id,
		Kind:        domain.KindDemo,
		ExamType:    domain.ExamJEE,
		Pattern:     "JEE Main",
		QuestionIDs: []string{"q1", "q2"},
	}
}

func TestSaveAndGetRoundTrip(t *testing.T) {
	ctx := context.Background()
	store, mr := newStore(t)

	if err := store.Save(ctx, demoTest("t1")); err != nil {
		t.Fatalf("save: %v", err)
	}
	if !mr.Exists("exam:test:t1") {
		t.Fatalf("expected test key in redis")
	}

	got, err := store.Get(ctx, "t1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.ID != "t1" || len(got.QuestionIDs) != 2 {
		t.Fatalf("round trip mangled test: %+v", got)
	}

	if _, err := store.Get(ctx, "missing"); err != domain.ErrTestNotFound {
		t.Fatalf("expected ErrTestNotFound, got %v", err)
	}
}

func TestFindActiveEmptySlot(t *testing.T) {
	store, _ := newStore(t)
	if _, err := store.FindActive(context.Background(), domain.KindDemo, domain.ExamJEE); err != domain.ErrNoActiveTest {
		t.Fatalf("expected ErrNoActiveTest, got %v", err)
	}
}

func TestConcurrentCreateElectsOneSingleton(t *testing.T) {
	ctx := context.Background()
	store, _ := newStore(t)

	var wg sync.WaitGroup
	winners := make([]string, 8)
	createdCount := make([]bool, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			winner, created, err := store.CreateIfAbsent(ctx, demoTest(fmt.Sprintf("candidate-%d", i)))
			if err != nil {
				t.Errorf("create: %v", err)
				return
			}
			winners[i] = winner.ID
			createdCount[i] = created
		}(i)
	}
	wg.Wait()

	wins := 0
	for i := range winners {
		if createdCount[i] {
			wins++
		}
		if winners[i] != winners[0] {
			t.Fatalf("split brain: %s vs %s", winners[i], winners[0])
		}
	}
	if wins != 1 {
		t.Fatalf("expected exactly one SETNX winner, got %d", wins)
	}

	active, err := store.FindActive(ctx, domain.KindDemo, domain.ExamJEE)
	if err != nil {
		t.Fatalf("find active: %v", err)
	}
	if active.ID != winners[0] || !active.Active {
		t.Fatalf("slot does not hold the winner: %+v", active)
	}
}

func TestSwapActiveReplacesSlot(t *testing.T) {
	ctx := context.Background()
	store, _ := newStore(t)

	if _, _, err := store.CreateIfAbsent(ctx, demoTest("first")); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := store.SwapActive(ctx, demoTest("second")); err != nil {
		t.Fatalf("swap: %v", err)
	}

	active, err := store.FindActive(ctx, domain.KindDemo, domain.ExamJEE)
	if err != nil {
		t.Fatalf("find active: %v", err)
	}
	if active.ID != "second" {
		t.Fatalf("expected second in slot, got %s", active.ID)
	}

	// The replaced test stays readable for stored results.
	if _, err := store.Get(ctx, "first"); err != nil {
		t.Fatalf("old test vanished after swap: %v", err)
	}
}
