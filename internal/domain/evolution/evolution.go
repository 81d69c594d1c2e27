// Package evolution defines the domain types for category assignment and
// subcategory clustering: the closed top-level category enum, tunable
// evolution parameters, and the records produced by an evolution run.
package evolution

import (
	"fmt"
	"time"
)

// Category is one of the closed top-level categories every memory is
// assigned to.
type Category string

const (
	CategoryFacts       Category = "facts"
	CategoryPreferences Category = "preferences"
	CategorySkills      Category = "skills"
	CategoryRules       Category = "rules"
	CategoryContext     Category = "context"
)

// ValidCategory reports whether c is one of the closed enum values.
func ValidCategory(c Category) bool {
	switch c {
	case CategoryFacts, CategoryPreferences, CategorySkills, CategoryRules, CategoryContext:
		return true
	default:
		return false
	}
}

// AssignmentMethod records how a subcategory assignment was reached.
type AssignmentMethod string

const (
	MethodFingerprintPrefilter AssignmentMethod = "fingerprint_prefilter"
	MethodEmbeddingCosine      AssignmentMethod = "embedding_cosine"
	MethodKeywordMatch         AssignmentMethod = "keyword_match"
	MethodDefault              AssignmentMethod = "default"
)

// Config tunes the evolution engine's clustering and decay behavior.
type Config struct {
	TemporalDecayEnabled  bool
	TemporalDecayDays     int
	DecayAccessThreshold  int
	ArchiveOption         bool
	MinSilhouetteScore    float64
	MinClusterSize        int
	MaxClusters           int
	SimilarityThreshold   float64
	FingerprintThreshold  float64
	MemoryCountThreshold  int
}

// Validate checks the cross-field consistency the spec requires.
func (c Config) Validate() error {
	if c.MinClusterSize <= 0 || c.MaxClusters <= 0 {
		return errConfig("min_cluster_size and max_clusters must be positive")
	}
	if c.MinClusterSize > c.MaxClusters {
		return errConfig("min_cluster_size must be <= max_clusters")
	}
	for _, p := range []float64{c.SimilarityThreshold, c.FingerprintThreshold} {
		if p < 0 || p > 1 {
			return errConfig("thresholds must be in [0,1]")
		}
	}
	return nil
}

type configError string

func (e configError) Error() string { return string(e) }

func errConfig(msg string) error { return configError(msg) }

// Subcategory is a named cluster of memories within a top-level category.
type Subcategory struct {
	ID             string
	ParentCategory Category
	Name           string
	Keywords       []string
	MemoryCount    int
	CreatedAt      time.Time
	UpdatedAt      time.Time
	LastUsedAt     *time.Time
	AccessCount    int
	Centroid       []float32
	Archived       bool
}

// AssignmentResult is the outcome of assigning a memory to a subcategory.
type AssignmentResult struct {
	Category    Category
	Subcategory string
	Confidence  float64
	Method      AssignmentMethod
}

// StateSnapshot captures subcategory/silhouette/memory counts at a point in
// time, used for both before_state and after_state.
type StateSnapshot struct {
	SubcategoryCount int
	Silhouette       float64
	TotalMemories    int
}

// DecayResult records the outcome of temporal decay for one subcategory.
type DecayResult struct {
	SubcategoryID string
	Archived      bool
	Deleted       bool
	BytesFreed    int64
}

// EvolutionSnapshot is the full record of one evolve_category run.
type EvolutionSnapshot struct {
	ID            string
	Category      Category
	BeforeState   StateSnapshot
	AfterState    StateSnapshot
	DecayResults  []DecayResult
	DurationMS    float64
	Timestamp     time.Time
	SkippedReason string
}

// ImprovementSummary renders a human-readable sentence describing the
// silhouette and subcategory-count deltas plus storage freed.
func (s EvolutionSnapshot) ImprovementSummary() string {
	delta := s.AfterState.Silhouette - s.BeforeState.Silhouette
	var verdict string
	switch {
	case delta > 0.1:
		verdict = "significant improvement"
	case delta >= 0:
		verdict = "moderate improvement"
	case delta >= -0.1:
		verdict = "minor regression"
	default:
		verdict = "regression"
	}

	var freed int64
	for _, d := range s.DecayResults {
		freed += d.BytesFreed
	}

	countDelta := s.AfterState.SubcategoryCount - s.BeforeState.SubcategoryCount

	return fmt.Sprintf(
		"%s (silhouette %+.3f), subcategory count changed by %+d, %d bytes freed by decay",
		verdict, delta, countDelta, freed,
	)
}
