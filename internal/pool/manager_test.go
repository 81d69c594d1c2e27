package pool

import (
	"context"
	"testing"
	"time"
)

func TestManagerCreatePoolRejectsDuplicates(t *testing.T) {
	m := NewManager(echoExecutor)
	ctx := context.Background()

	if _, err := m.CreatePool(ctx, "p1"); err != nil {
		t.Fatalf("CreatePool: %v", err)
	}
	if _, err := m.CreatePool(ctx, "p1"); err == nil {
		t.Fatal("expected duplicate pool id to be rejected")
	}
}

func TestManagerRouteTaskLeastLoaded(t *testing.T) {
	m := NewManager(echoExecutor)
	ctx := context.Background()

	if _, err := m.CreatePool(ctx, "a"); err != nil {
		t.Fatalf("CreatePool: %v", err)
	}
	if _, err := m.CreatePool(ctx, "b"); err != nil {
		t.Fatalf("CreatePool: %v", err)
	}

	id, result, err := m.RouteTask(ctx, "hi", nil, SelectorLeastLoaded, time.Second)
	if err != nil {
		t.Fatalf("RouteTask: %v", err)
	}
	if id != "a" && id != "b" {
		t.Fatalf("unexpected pool id %q", id)
	}
	if result != "hi" {
		t.Fatalf("unexpected result %v", result)
	}
}

func TestManagerRouteTaskRoundRobinAlternates(t *testing.T) {
	m := NewManager(echoExecutor)
	ctx := context.Background()
	_, _ = m.CreatePool(ctx, "a")
	_, _ = m.CreatePool(ctx, "b")

	first, _, err := m.RouteTask(ctx, "1", nil, SelectorRoundRobin, time.Second)
	if err != nil {
		t.Fatalf("RouteTask: %v", err)
	}
	second, _, err := m.RouteTask(ctx, "2", nil, SelectorRoundRobin, time.Second)
	if err != nil {
		t.Fatalf("RouteTask: %v", err)
	}
	if first == second {
		t.Fatalf("expected round robin to alternate pools, got %q twice", first)
	}
}

func TestManagerRouteTaskUnknownSelectorRejected(t *testing.T) {
	m := NewManager(echoExecutor)
	ctx := context.Background()
	_, _ = m.CreatePool(ctx, "a")

	if _, _, err := m.RouteTask(ctx, "x", nil, Selector("bogus"), time.Second); err == nil {
		t.Fatal("expected unknown selector to be rejected")
	}
}

func TestManagerDeletePoolRemovesFromList(t *testing.T) {
	m := NewManager(echoExecutor)
	ctx := context.Background()
	_, _ = m.CreatePool(ctx, "a")
	_, _ = m.CreatePool(ctx, "b")

	if err := m.DeletePool("a", time.Second); err != nil {
		t.Fatalf("DeletePool: %v", err)
	}

	pools := m.ListPools()
	if len(pools) != 1 || pools[0] != "b" {
		t.Fatalf("expected only pool b to remain, got %v", pools)
	}
}

func TestGetOrCreateManagerReturnsSameInstance(t *testing.T) {
	ResetGlobalManager()
	defer ResetGlobalManager()

	a := GetOrCreateManager(echoExecutor)
	b := GetOrCreateManager(echoExecutor)
	if a != b {
		t.Fatal("expected GetOrCreateManager to return the same instance")
	}
}
