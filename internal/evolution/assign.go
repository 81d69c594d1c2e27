package evolution

import (
	"context"

	"github.com/lesleslie/session-buddy/internal/domain/evolution"
	"github.com/lesleslie/session-buddy/internal/embedder"
	"github.com/lesleslie/session-buddy/internal/fingerprint"
)

// CategoryDetector assigns a default category to a memory when none is
// supplied. Content-based category detection is an out-of-scope heuristic;
// the contract is only that it returns a non-empty category.
type CategoryDetector func(content string) evolution.Category

// Engine assigns memories to subcategories and periodically re-clusters
// each category's subcategories.
type Engine struct {
	detector CategoryDetector
	store    SubcategoryStore
}

// SubcategoryStore is the persistence collaborator the engine depends on:
// reading a category's current subcategories and their member memories,
// and replacing them after a clustering pass.
type SubcategoryStore interface {
	Subcategories(ctx context.Context, category evolution.Category) ([]evolution.Subcategory, error)
	Members(ctx context.Context, subcategoryID string) ([]Memory, error)
	ReplaceSubcategories(ctx context.Context, category evolution.Category, subs []evolution.Subcategory, assignments map[string]string) error
	ArchiveSubcategory(ctx context.Context, id string) (bytesFreed int64, err error)
	DeleteSubcategory(ctx context.Context, id string) (bytesFreed int64, err error)
}

// NewEngine constructs the evolution engine. A nil detector defaults every
// memory without an explicit category to CategoryContext.
func NewEngine(store SubcategoryStore, detector CategoryDetector) *Engine {
	if detector == nil {
		detector = func(string) evolution.Category { return evolution.CategoryContext }
	}
	return &Engine{store: store, detector: detector}
}

// AssignSubcategory implements the assignment algorithm: fingerprint
// prefilter, then cosine similarity (or keyword overlap without an
// embedding), falling back to a default subcategory when nothing clears
// the similarity threshold.
func (e *Engine) AssignSubcategory(ctx context.Context, mem Memory, category *evolution.Category, cfg evolution.Config, useFingerprintPrefilter bool) (evolution.AssignmentResult, error) {
	cat := evolution.CategoryContext
	if category != nil {
		cat = *category
	} else {
		cat = e.detector(mem.Content)
	}
	if !evolution.ValidCategory(cat) {
		cat = evolution.CategoryContext
	}

	subs, err := e.store.Subcategories(ctx, cat)
	if err != nil {
		return evolution.AssignmentResult{}, err
	}

	candidates := subs
	usedPrefilter := false
	if useFingerprintPrefilter && mem.Fingerprint != nil {
		filtered, err := e.fingerprintCandidates(ctx, subs, *mem.Fingerprint, cfg.FingerprintThreshold)
		if err != nil {
			return evolution.AssignmentResult{}, err
		}
		if len(filtered) > 0 {
			candidates = filtered
			usedPrefilter = true
		}
	}

	best := ""
	bestScore := 0.0
	method := evolution.MethodEmbeddingCosine
	memKeywords := keywordsOf(mem.Content)

	for _, sub := range candidates {
		var score float64
		if len(mem.Embedding) > 0 && len(sub.Centroid) > 0 {
			score = embedder.CosineSimilarity(mem.Embedding, sub.Centroid)
		} else {
			score = keywordOverlap(memKeywords, sub.Keywords)
			method = evolution.MethodKeywordMatch
		}
		if score > bestScore {
			bestScore = score
			best = sub.Name
		}
	}

	if best == "" || bestScore < cfg.SimilarityThreshold {
		return evolution.AssignmentResult{
			Category:    cat,
			Subcategory: "default",
			Confidence:  bestScore,
			Method:      evolution.MethodDefault,
		}, nil
	}

	if usedPrefilter {
		method = evolution.MethodFingerprintPrefilter
	}

	return evolution.AssignmentResult{
		Category:    cat,
		Subcategory: best,
		Confidence:  bestScore,
		Method:      method,
	}, nil
}

func (e *Engine) fingerprintCandidates(ctx context.Context, subs []evolution.Subcategory, sig fingerprint.Signature, threshold float64) ([]evolution.Subcategory, error) {
	var out []evolution.Subcategory
	for _, sub := range subs {
		members, err := e.store.Members(ctx, sub.ID)
		if err != nil {
			return nil, err
		}
		for _, m := range members {
			if m.Fingerprint == nil {
				continue
			}
			if fingerprint.EstimateJaccardSimilarity(sig, *m.Fingerprint) >= threshold {
				out = append(out, sub)
				break
			}
		}
	}
	return out, nil
}
