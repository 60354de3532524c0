package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"examprep-engine/internal/domain"
)

func demoTest(id string) domain.AssembledTest {
	return domain.AssembledTest{
		ID:       id,
		Kind:     domain.KindDemo,
		ExamType: domain.ExamJEE,
		Pattern:  "JEE Main",
	}
}

func TestCreateIfAbsentSingleWinner(t *testing.T) {
	ctx := context.Background()
	store := NewTestStore()

	var wg sync.WaitGroup
	created := make([]bool, 16)
	winners := make([]string, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			winner, ok, err := store.CreateIfAbsent(ctx, demoTest(fmt.Sprintf("candidate-%d", i)))
			if err != nil {
				t.Errorf("create: %v", err)
				return
			}
			created[i] = ok
			winners[i] = winner.ID
		}(i)
	}
	wg.Wait()

	wins := 0
	for i, ok := range created {
		if ok {
			wins++
		}
		if winners[i] != winners[0] {
			t.Fatalf("callers adopted different singletons: %s vs %s", winners[i], winners[0])
		}
	}
	if wins != 1 {
		t.Fatalf("expected exactly one winner, got %d", wins)
	}

	active, err := store.FindActive(ctx, domain.KindDemo, domain.ExamJEE)
	if err != nil {
		t.Fatalf("find active: %v", err)
	}
	if active.ID != winners[0] {
		t.Fatalf("active singleton %s does not match winner %s", active.ID, winners[0])
	}
}

func TestSwapActiveDeactivatesPrevious(t *testing.T) {
	ctx := context.Background()
	store := NewTestStore()

	first, _, err := store.CreateIfAbsent(ctx, demoTest("first"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := store.SwapActive(ctx, demoTest("second")); err != nil {
		t.Fatalf("swap: %v", err)
	}

	active, err := store.FindActive(ctx, domain.KindDemo, domain.ExamJEE)
	if err != nil {
		t.Fatalf("find active: %v", err)
	}
	if active.ID != "second" || !active.Active {
		t.Fatalf("expected second active, got %+v", active)
	}

	old, err := store.Get(ctx, first.ID)
	if err != nil {
		t.Fatalf("get old: %v", err)
	}
	if old.Active {
		t.Fatalf("previous singleton still marked active")
	}
}

func TestSlotsAreIndependent(t *testing.T) {
	ctx := context.Background()
	store := NewTestStore()

	jee := demoTest("jee")
	neet := demoTest("neet")
	neet.Kind = domain.KindNEETDemo
	neet.ExamType = domain.ExamNEET

	if _, _, err := store.CreateIfAbsent(ctx, jee); err != nil {
		t.Fatalf("create jee: %v", err)
	}
	if _, created, err := store.CreateIfAbsent(ctx, neet); err != nil || !created {
		t.Fatalf("neet slot must be independent, created=%v err=%v", created, err)
	}
}
