package evolution

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/lesleslie/session-buddy/internal/domain/evolution"
)

func memoriesAround(centers [][]float32, perCenter int) []Memory {
	var memories []Memory
	id := 0
	for _, c := range centers {
		for i := 0; i < perCenter; i++ {
			id++
			memories = append(memories, Memory{
				ID:        string(rune('a' + id)),
				Content:   "content",
				Embedding: c,
			})
		}
	}
	return memories
}

func TestEvolveCategorySkipsBelowMemoryThreshold(t *testing.T) {
	store := &fakeSubcategoryStore{subs: map[evolution.Category][]evolution.Subcategory{}}
	engine := NewEngine(store, nil)

	cfg := testCfg()
	cfg.MemoryCountThreshold = 10
	snapshot, err := engine.EvolveCategory(context.Background(), evolution.CategoryFacts, []Memory{{ID: "a"}}, cfg)
	if err != nil {
		t.Fatalf("EvolveCategory: %v", err)
	}
	if snapshot.SkippedReason == "" {
		t.Fatal("expected skipped snapshot below memory count threshold")
	}
}

func TestEvolveCategoryRejectsInvalidConfig(t *testing.T) {
	store := &fakeSubcategoryStore{subs: map[evolution.Category][]evolution.Subcategory{}}
	engine := NewEngine(store, nil)

	cfg := testCfg()
	cfg.MinClusterSize = 10
	cfg.MaxClusters = 2
	if _, err := engine.EvolveCategory(context.Background(), evolution.CategoryFacts, nil, cfg); err == nil {
		t.Fatal("expected validation error when min_cluster_size > max_clusters")
	}
}

func TestEvolveCategoryClustersWithinBounds(t *testing.T) {
	store := &fakeSubcategoryStore{subs: map[evolution.Category][]evolution.Subcategory{}}
	engine := NewEngine(store, nil)

	memories := memoriesAround([][]float32{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}, 5)
	cfg := testCfg()
	cfg.MinClusterSize = 2
	cfg.MaxClusters = 3
	cfg.MemoryCountThreshold = 3

	snapshot, err := engine.EvolveCategory(context.Background(), evolution.CategoryFacts, memories, cfg)
	if err != nil {
		t.Fatalf("EvolveCategory: %v", err)
	}
	if snapshot.AfterState.SubcategoryCount < 1 || snapshot.AfterState.SubcategoryCount > cfg.MaxClusters {
		t.Fatalf("subcategory count %d out of bounds [1,%d]", snapshot.AfterState.SubcategoryCount, cfg.MaxClusters)
	}
	if len(store.subs[evolution.CategoryFacts]) != snapshot.AfterState.SubcategoryCount {
		t.Fatal("expected ReplaceSubcategories to persist the new clustering")
	}
}

func TestEvolveCategoryAppliesTemporalDecay(t *testing.T) {
	stale := time.Now().AddDate(0, 0, -60)
	store := &fakeSubcategoryStore{subs: map[evolution.Category][]evolution.Subcategory{
		evolution.CategoryFacts: {
			{ID: "s1", Name: "sub-1", Centroid: []float32{1, 0, 0}, LastUsedAt: &stale, AccessCount: 1},
			{ID: "s2", Name: "sub-2", Centroid: []float32{0, 1, 0}, LastUsedAt: &stale, AccessCount: 1},
		},
	}}
	engine := NewEngine(store, nil)

	memories := memoriesAround([][]float32{{1, 0, 0}, {0, 1, 0}}, 3)
	cfg := testCfg()
	cfg.MinClusterSize = 1
	cfg.MaxClusters = 2
	cfg.MemoryCountThreshold = 3
	cfg.TemporalDecayEnabled = true
	cfg.TemporalDecayDays = 30
	cfg.DecayAccessThreshold = 100
	cfg.ArchiveOption = false

	snapshot, err := engine.EvolveCategory(context.Background(), evolution.CategoryFacts, memories, cfg)
	if err != nil {
		t.Fatalf("EvolveCategory: %v", err)
	}
	if len(snapshot.DecayResults) == 0 {
		t.Fatal("expected decay to fire for subcategories carrying stale usage history forward from the existing clustering")
	}
}

func TestEvolveCategoryPreservesUsageHistoryAcrossReclustering(t *testing.T) {
	used := time.Now().AddDate(0, 0, -60)
	store := &fakeSubcategoryStore{subs: map[evolution.Category][]evolution.Subcategory{
		evolution.CategoryFacts: {
			{ID: "s1", Name: "sub-1", Centroid: []float32{1, 0, 0}, LastUsedAt: &used, AccessCount: 500},
			{ID: "s2", Name: "sub-2", Centroid: []float32{0, 1, 0}, LastUsedAt: &used, AccessCount: 500},
		},
	}}
	engine := NewEngine(store, nil)

	memories := memoriesAround([][]float32{{1, 0, 0}, {0, 1, 0}}, 3)
	cfg := testCfg()
	cfg.MinClusterSize = 1
	cfg.MaxClusters = 2
	cfg.MemoryCountThreshold = 3
	cfg.TemporalDecayEnabled = true
	cfg.TemporalDecayDays = 30
	cfg.DecayAccessThreshold = 100
	cfg.ArchiveOption = false

	snapshot, err := engine.EvolveCategory(context.Background(), evolution.CategoryFacts, memories, cfg)
	if err != nil {
		t.Fatalf("EvolveCategory: %v", err)
	}
	if len(snapshot.DecayResults) != 0 {
		t.Fatalf("expected no decay when carried-forward access count clears the threshold, got %+v", snapshot.DecayResults)
	}
}

func TestImprovementSummaryReflectsSilhouetteDelta(t *testing.T) {
	snapshot := evolution.EvolutionSnapshot{
		BeforeState: evolution.StateSnapshot{Silhouette: 0.2, SubcategoryCount: 3},
		AfterState:  evolution.StateSnapshot{Silhouette: 0.4, SubcategoryCount: 4},
	}
	summary := snapshot.ImprovementSummary()
	if summary == "" {
		t.Fatal("expected non-empty improvement summary")
	}
}

func TestDecayResultBytesFreedAggregatesAcrossSubcategories(t *testing.T) {
	snapshot := evolution.EvolutionSnapshot{
		DecayResults: []evolution.DecayResult{
			{SubcategoryID: "a", Deleted: true, BytesFreed: 100},
			{SubcategoryID: "b", Archived: true, BytesFreed: 200},
		},
	}
	summary := snapshot.ImprovementSummary()
	if !strings.Contains(summary, "300") {
		t.Fatalf("expected summary to report total bytes freed (300), got %q", summary)
	}
}

func TestGetOrCreateEngineReturnsSameInstance(t *testing.T) {
	ResetGlobalEngine()
	defer ResetGlobalEngine()

	store := &fakeSubcategoryStore{subs: map[evolution.Category][]evolution.Subcategory{}}
	a := GetOrCreateEngine(store, nil)
	b := GetOrCreateEngine(store, nil)
	if a != b {
		t.Fatal("expected GetOrCreateEngine to return the same instance")
	}
}
