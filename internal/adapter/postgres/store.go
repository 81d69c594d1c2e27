// Package postgres implements the layered memory store (conversations,
// reflections, insights) on top of a pgx connection pool, plus the
// collection health/admin operations that sit alongside it.
package postgres

import (
	"context"
	"math"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lesleslie/session-buddy/internal/domain/memory"
	"github.com/lesleslie/session-buddy/internal/fingerprint"
	"github.com/lesleslie/session-buddy/internal/port/embedder"
)

// Store is the Postgres-backed memory.Store. A pgxpool.Pool already
// serializes work per acquired connection, so mu here only guards the
// one-time-per-collection schema migration, not ordinary reads/writes.
type Store struct {
	pool        *pgxpool.Pool
	embedder    embedder.Embedder
	fingerprint *fingerprint.CachingComputer

	mu       sync.Mutex
	migrated map[string]bool
}

// NewStore constructs a Store. embed may be nil, in which case the store
// transparently degrades semantic search to text search per collection.
// Fingerprints are computed uncached; use WithFingerprintCache to back them
// with a cache.Cache.
func NewStore(pool *pgxpool.Pool, embed embedder.Embedder) *Store {
	return &Store{
		pool:        pool,
		embedder:    embed,
		fingerprint: fingerprint.NewCachingComputer(nil),
		migrated:    make(map[string]bool),
	}
}

// WithFingerprintCache replaces the store's fingerprint computer with one
// backed by the given cache, so re-storing previously seen content skips
// the MinHash pass.
func (s *Store) WithFingerprintCache(computer *fingerprint.CachingComputer) *Store {
	s.fingerprint = computer
	return s
}

// Open validates the collection name and runs its idempotent schema
// migration exactly once per Store instance per collection name.
func (s *Store) Open(ctx context.Context, collection string) error {
	if err := memory.ValidateCollectionName(collection); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.migrated[collection] {
		return nil
	}
	if err := s.ensureSchema(ctx, collection); err != nil {
		return err
	}
	s.migrated[collection] = true
	return nil
}

// embeddingEnabled reports whether this store can compute vector embeddings.
func (s *Store) embeddingEnabled() bool { return s.embedder != nil }

func (s *Store) embed(ctx context.Context, text string) ([]float32, error) {
	if s.embedder == nil {
		return nil, nil
	}
	return s.embedder.Embed(ctx, text)
}

func pgVector(v []float32) any {
	if v == nil {
		return nil
	}
	return v
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
