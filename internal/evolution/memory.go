// Package evolution implements the category evolution engine: subcategory
// assignment for individual memories, and periodic re-clustering with
// temporal decay of stale subcategories.
package evolution

import (
	"strings"
	"time"

	"github.com/lesleslie/session-buddy/internal/fingerprint"
)

// Memory is the minimal view of a stored record the engine needs: its
// embedding and fingerprint for similarity, and keywords for the
// no-embedding fallback.
type Memory struct {
	ID          string
	Content     string
	Embedding   []float32
	Fingerprint *fingerprint.Signature
	LastUsedAt  *time.Time
	AccessCount int
}

func keywordsOf(content string) map[string]bool {
	set := make(map[string]bool)
	for _, w := range strings.Fields(strings.ToLower(content)) {
		w = strings.Trim(w, ".,!?;:\"'()")
		if len(w) > 2 {
			set[w] = true
		}
	}
	return set
}

func keywordOverlap(a map[string]bool, keywords []string) float64 {
	if len(a) == 0 || len(keywords) == 0 {
		return 0
	}
	hits := 0
	for _, k := range keywords {
		if a[strings.ToLower(k)] {
			hits++
		}
	}
	return float64(hits) / float64(len(keywords))
}
