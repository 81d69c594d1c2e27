// Package embedder provides a dependency-free default Embedder
// implementation: a deterministic, hashed bag-of-n-grams projection. It
// exists so the memory store always has a usable embedder out of the box;
// production deployments are expected to supply a real model-backed
// implementation of the port.embedder.Embedder interface instead (an LLM
// provider client is an out-of-scope collaborator per the system's
// external-interfaces boundary).
package embedder

import (
	"context"
	"hash/fnv"
	"math"
	"strings"

	"github.com/lesleslie/session-buddy/internal/port/embedder"
)

// Local is a deterministic, non-semantic Embedder: it hashes character
// trigrams into a fixed-width vector and L2-normalizes it. It is useful as
// a default so embedding-backed code paths are exercised without an
// external model dependency, and for tests.
type Local struct {
	dim int
}

// NewLocal returns a Local embedder producing vectors of the given
// dimension.
func NewLocal(dim int) *Local {
	if dim <= 0 {
		dim = 384
	}
	return &Local{dim: dim}
}

var _ embedder.Embedder = (*Local)(nil)

// Dimension implements embedder.Embedder.
func (l *Local) Dimension() int { return l.dim }

// Embed implements embedder.Embedder.
func (l *Local) Embed(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, l.dim)
	norm := strings.ToLower(strings.TrimSpace(text))
	runes := []rune(norm)

	n := 3
	if len(runes) < n {
		n = len(runes)
	}
	if n == 0 {
		return vec, nil
	}

	for i := 0; i+n <= len(runes); i++ {
		gram := string(runes[i : i+n])
		h := fnv.New32a()
		_, _ = h.Write([]byte(gram))
		idx := int(h.Sum32()) % l.dim
		if idx < 0 {
			idx += l.dim
		}
		vec[idx]++
	}

	var sumSq float64
	for _, v := range vec {
		sumSq += float64(v) * float64(v)
	}
	if sumSq == 0 {
		return vec, nil
	}
	normFactor := float32(1.0 / math.Sqrt(sumSq))
	for i := range vec {
		vec[i] *= normFactor
	}
	return vec, nil
}

// CosineSimilarity returns the cosine similarity of two equal-length
// vectors, in [-1, 1].
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
