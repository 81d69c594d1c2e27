package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

// ensureSchema issues idempotent CREATE TABLE IF NOT EXISTS / ADD COLUMN IF
// NOT EXISTS statements for the given collection's physical tables. It is
// safe to call on every store open and under concurrent callers: Store
// serializes the first-open migration per collection with its mutex.
func (s *Store) ensureSchema(ctx context.Context, collection string) error {
	conv := conversationsTable(collection)
	refl := reflectionsTable(collection)
	graphs := codeGraphsTable(collection)
	subs := subcategoriesTable(collection)

	stmts := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			content TEXT NOT NULL,
			metadata JSONB NOT NULL DEFAULT '{}',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			embedding REAL[],
			fingerprint BYTEA
		)`, conv),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_created_at_idx ON %s (created_at)`, collection, conv),

		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			content TEXT NOT NULL,
			tags TEXT[] NOT NULL DEFAULT '{}',
			metadata JSONB NOT NULL DEFAULT '{}',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			embedding REAL[],
			fingerprint BYTEA
		)`, refl),
		fmt.Sprintf(`ALTER TABLE %s ADD COLUMN IF NOT EXISTS insight_type TEXT`, refl),
		fmt.Sprintf(`ALTER TABLE %s ADD COLUMN IF NOT EXISTS usage_count INTEGER NOT NULL DEFAULT 0`, refl),
		fmt.Sprintf(`ALTER TABLE %s ADD COLUMN IF NOT EXISTS last_used_at TIMESTAMPTZ`, refl),
		fmt.Sprintf(`ALTER TABLE %s ADD COLUMN IF NOT EXISTS confidence_score REAL NOT NULL DEFAULT 0.5`, refl),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_created_at_idx ON %s (created_at)`, collection, refl),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_insight_type_idx ON %s (insight_type)`, collection, refl),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_usage_count_idx ON %s (usage_count)`, collection, refl),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_last_used_at_idx ON %s (last_used_at)`, collection, refl),

		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			repo_path TEXT NOT NULL,
			commit_hash TEXT NOT NULL,
			indexed_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			nodes_count INTEGER NOT NULL DEFAULT 0,
			graph_data JSONB NOT NULL DEFAULT '{}',
			metadata JSONB NOT NULL DEFAULT '{}'
		)`, graphs),

		fmt.Sprintf(`ALTER TABLE %s ADD COLUMN IF NOT EXISTS subcategory_id TEXT`, refl),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_subcategory_id_idx ON %s (subcategory_id)`, collection, refl),

		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			parent_category TEXT NOT NULL,
			name TEXT NOT NULL,
			keywords TEXT[] NOT NULL DEFAULT '{}',
			memory_count INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			last_used_at TIMESTAMPTZ,
			access_count INTEGER NOT NULL DEFAULT 0,
			centroid REAL[],
			archived BOOLEAN NOT NULL DEFAULT false
		)`, subs),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_parent_category_idx ON %s (parent_category)`, collection, subs),
	}

	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil && !isAlreadyExists(err) {
			return fmt.Errorf("ensure schema %q: %w", collection, err)
		}
	}
	return nil
}

func isAlreadyExists(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// 42701 duplicate_column, 42P07 duplicate_table
		return pgErr.Code == "42701" || pgErr.Code == "42P07"
	}
	return strings.Contains(err.Error(), "already exists")
}

func conversationsTable(collection string) string { return collection + "_conversations" }
func reflectionsTable(collection string) string    { return collection + "_reflections" }
func codeGraphsTable(collection string) string     { return collection + "_code_graphs" }
func subcategoriesTable(collection string) string  { return collection + "_subcategories" }
