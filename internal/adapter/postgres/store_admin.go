package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lesleslie/session-buddy/internal/domain/memory"
)

// StoreCodeGraph upserts a write-only code graph snapshot for a repository
// at a given commit.
func (s *Store) StoreCodeGraph(ctx context.Context, collection string, g memory.CodeGraph) error {
	if err := s.Open(ctx, collection); err != nil {
		return err
	}

	id := g.RepoPath + ":" + g.CommitHash
	graphJSON, err := json.Marshal(orMap(g.GraphData))
	if err != nil {
		return fmt.Errorf("marshal graph data: %w", err)
	}
	metaJSON, err := json.Marshal(orMap(g.Metadata))
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}

	stmt := fmt.Sprintf(`
		INSERT INTO %s (id, repo_path, commit_hash, indexed_at, nodes_count, graph_data, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			indexed_at = EXCLUDED.indexed_at,
			nodes_count = EXCLUDED.nodes_count,
			graph_data = EXCLUDED.graph_data,
			metadata = EXCLUDED.metadata
	`, codeGraphsTable(collection))

	if _, err := s.pool.Exec(ctx, stmt, id, g.RepoPath, g.CommitHash, time.Now().UTC(), g.NodesCount, graphJSON, metaJSON); err != nil {
		return fmt.Errorf("store code graph: %w", err)
	}
	return nil
}

// GetStats reports row counts and embedding availability for a collection.
func (s *Store) GetStats(ctx context.Context, collection string) (memory.StoreStats, error) {
	if err := s.Open(ctx, collection); err != nil {
		return memory.StoreStats{}, err
	}
	stats := memory.StoreStats{Collection: collection, EmbeddingsEnabled: s.embeddingEnabled()}

	if err := s.pool.QueryRow(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM %s`, conversationsTable(collection))).
		Scan(&stats.ConversationCount); err != nil {
		return memory.StoreStats{}, fmt.Errorf("count conversations: %w", err)
	}
	if err := s.pool.QueryRow(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE insight_type IS NULL`, reflectionsTable(collection))).
		Scan(&stats.ReflectionCount); err != nil {
		return memory.StoreStats{}, fmt.Errorf("count reflections: %w", err)
	}
	if err := s.pool.QueryRow(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE insight_type IS NOT NULL`, reflectionsTable(collection))).
		Scan(&stats.InsightCount); err != nil {
		return memory.StoreStats{}, fmt.Errorf("count insights: %w", err)
	}
	return stats, nil
}

// HealthCheck verifies the underlying pool can reach the database.
func (s *Store) HealthCheck(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("memory store health check: %w", err)
	}
	return nil
}

// ResetDatabase drops every physical table for a collection and re-runs its
// schema migration. Intended for test fixtures and destructive admin use.
func (s *Store) ResetDatabase(ctx context.Context, collection string) error {
	if err := memory.ValidateCollectionName(collection); err != nil {
		return err
	}

	for _, table := range []string{conversationsTable(collection), reflectionsTable(collection), codeGraphsTable(collection), subcategoriesTable(collection)} {
		if _, err := s.pool.Exec(ctx, fmt.Sprintf(`DROP TABLE IF EXISTS %s`, table)); err != nil {
			return fmt.Errorf("drop table %s: %w", table, err)
		}
	}

	s.mu.Lock()
	delete(s.migrated, collection)
	s.mu.Unlock()

	return s.Open(ctx, collection)
}
