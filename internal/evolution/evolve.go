package evolution

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/lesleslie/session-buddy/internal/domain/evolution"
	"github.com/lesleslie/session-buddy/internal/embedder"
)

const kMeansIterations = 25

// EvolveCategory re-clusters a category's memories into subcategories and
// applies temporal decay, per the configured bounds.
func (e *Engine) EvolveCategory(ctx context.Context, category evolution.Category, memories []Memory, cfg evolution.Config) (evolution.EvolutionSnapshot, error) {
	if err := cfg.Validate(); err != nil {
		return evolution.EvolutionSnapshot{}, err
	}

	start := time.Now()
	snapshot := evolution.EvolutionSnapshot{
		ID:        uuid.NewString(),
		Category:  category,
		Timestamp: start,
	}

	existing, err := e.store.Subcategories(ctx, category)
	if err != nil {
		return evolution.EvolutionSnapshot{}, err
	}
	beforeAssignments := assignmentsFromExisting(memories, existing)
	snapshot.BeforeState = evolution.StateSnapshot{
		SubcategoryCount: len(existing),
		Silhouette:       silhouetteScore(memories, beforeAssignments, len(existing)),
		TotalMemories:    len(memories),
	}

	if len(memories) < cfg.MemoryCountThreshold {
		snapshot.AfterState = snapshot.BeforeState
		snapshot.SkippedReason = "not enough memories"
		snapshot.DurationMS = elapsedMS(start)
		return snapshot, nil
	}

	k := cfg.MaxClusters
	if desired := len(memories) / cfg.MinClusterSize; desired < k {
		k = desired
	}
	if k < 1 {
		k = 1
	}

	assignments, centroids := cluster(memories, k, kMeansIterations)
	subs := buildSubcategories(category, assignments, centroids, memories)
	carryUsageHistory(subs, existing)

	decayResults := e.applyTemporalDecay(ctx, &subs, cfg)

	byID := make(map[string]string, len(memories))
	for i, m := range memories {
		c := assignments[i]
		if c < len(subs) {
			byID[m.ID] = subs[c].ID
		}
	}
	if err := e.store.ReplaceSubcategories(ctx, category, subs, byID); err != nil {
		return evolution.EvolutionSnapshot{}, err
	}

	snapshot.AfterState = evolution.StateSnapshot{
		SubcategoryCount: len(subs),
		Silhouette:       silhouetteScore(memories, assignments, len(subs)),
		TotalMemories:    len(memories),
	}
	snapshot.DecayResults = decayResults
	snapshot.DurationMS = elapsedMS(start)
	return snapshot, nil
}

func elapsedMS(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000.0
}

func assignmentsFromExisting(memories []Memory, existing []evolution.Subcategory) []int {
	assignments := make([]int, len(memories))
	if len(existing) == 0 {
		return assignments
	}
	for i, m := range memories {
		best, bestSim := 0, -2.0
		for c, sub := range existing {
			if len(sub.Centroid) == 0 || len(m.Embedding) == 0 {
				continue
			}
			sim := embedder.CosineSimilarity(m.Embedding, sub.Centroid)
			if sim > bestSim {
				bestSim = sim
				best = c
			}
		}
		assignments[i] = best
	}
	return assignments
}

func buildSubcategories(category evolution.Category, assignments []int, centroids [][]float32, memories []Memory) []evolution.Subcategory {
	now := time.Now()
	counts := make([]int, len(centroids))
	keywordSets := make([]map[string]bool, len(centroids))
	for i := range keywordSets {
		keywordSets[i] = make(map[string]bool)
	}
	for i, c := range assignments {
		counts[c]++
		for k := range keywordsOf(memories[i].Content) {
			keywordSets[c][k] = true
		}
	}

	subs := make([]evolution.Subcategory, len(centroids))
	for c := range centroids {
		keywords := make([]string, 0, len(keywordSets[c]))
		for k := range keywordSets[c] {
			keywords = append(keywords, k)
			if len(keywords) >= 10 {
				break
			}
		}
		subs[c] = evolution.Subcategory{
			ID:             uuid.NewString(),
			ParentCategory: category,
			Name:           fmt.Sprintf("%s-cluster-%d", category, c),
			Keywords:       keywords,
			MemoryCount:    counts[c],
			CreatedAt:      now,
			UpdatedAt:      now,
			Centroid:       centroids[c],
		}
	}
	return subs
}

// carryUsageHistory matches each freshly built subcategory to the existing
// subcategory with the nearest centroid and copies its usage history
// forward, so that applyTemporalDecay sees real LastUsedAt/AccessCount
// values instead of a freshly zeroed subcategory.
func carryUsageHistory(subs []evolution.Subcategory, existing []evolution.Subcategory) {
	if len(existing) == 0 {
		return
	}
	for i := range subs {
		if len(subs[i].Centroid) == 0 {
			continue
		}
		best, bestSim := -1, -2.0
		for j, ex := range existing {
			if len(ex.Centroid) == 0 {
				continue
			}
			sim := embedder.CosineSimilarity(subs[i].Centroid, ex.Centroid)
			if sim > bestSim {
				bestSim = sim
				best = j
			}
		}
		if best >= 0 {
			subs[i].LastUsedAt = existing[best].LastUsedAt
			subs[i].AccessCount = existing[best].AccessCount
		}
	}
}

func (e *Engine) applyTemporalDecay(ctx context.Context, subs *[]evolution.Subcategory, cfg evolution.Config) []evolution.DecayResult {
	if !cfg.TemporalDecayEnabled {
		return nil
	}

	now := time.Now()
	var results []evolution.DecayResult
	kept := (*subs)[:0]
	for _, sub := range *subs {
		if sub.LastUsedAt == nil || now.Sub(*sub.LastUsedAt).Hours()/24 <= float64(cfg.TemporalDecayDays) {
			kept = append(kept, sub)
			continue
		}
		if sub.AccessCount >= cfg.DecayAccessThreshold {
			kept = append(kept, sub)
			continue
		}

		var (
			freed int64
			err   error
		)
		result := evolution.DecayResult{SubcategoryID: sub.ID}
		if cfg.ArchiveOption {
			freed, err = e.store.ArchiveSubcategory(ctx, sub.ID)
			result.Archived = err == nil
		} else {
			freed, err = e.store.DeleteSubcategory(ctx, sub.ID)
			result.Deleted = err == nil
		}
		if err == nil {
			result.BytesFreed = freed
			results = append(results, result)
			if cfg.ArchiveOption {
				sub.Archived = true
				kept = append(kept, sub)
			}
			continue
		}
		kept = append(kept, sub)
	}
	*subs = kept
	return results
}
