package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	domainevolution "github.com/lesleslie/session-buddy/internal/domain/evolution"
	"github.com/lesleslie/session-buddy/internal/evolution"
	"github.com/lesleslie/session-buddy/internal/fingerprint"
)

// SubcategoryAdapter implements evolution.SubcategoryStore against one
// collection's reflections table, with subcategory membership tracked by
// the reflections row's subcategory_id column.
type SubcategoryAdapter struct {
	store      *Store
	collection string
}

// NewSubcategoryAdapter builds a SubcategoryStore scoped to collection. An
// empty collection defaults to defaultExportCollection.
func NewSubcategoryAdapter(store *Store, collection string) *SubcategoryAdapter {
	if collection == "" {
		collection = defaultExportCollection
	}
	return &SubcategoryAdapter{store: store, collection: collection}
}

// Subcategories returns every subcategory of the given category.
func (a *SubcategoryAdapter) Subcategories(ctx context.Context, category domainevolution.Category) ([]domainevolution.Subcategory, error) {
	if err := a.store.Open(ctx, a.collection); err != nil {
		return nil, err
	}
	rows, err := a.store.pool.Query(ctx, fmt.Sprintf(
		`SELECT id, parent_category, name, keywords, memory_count, created_at, updated_at, last_used_at, access_count, centroid, archived
		 FROM %s WHERE parent_category = $1`, subcategoriesTable(a.collection)), string(category))
	if err != nil {
		return nil, fmt.Errorf("subcategories: %w", err)
	}
	defer rows.Close()

	var out []domainevolution.Subcategory
	for rows.Next() {
		sub, err := scanSubcategory(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sub)
	}
	return out, rows.Err()
}

// Members returns every reflection row currently assigned to subcategoryID.
func (a *SubcategoryAdapter) Members(ctx context.Context, subcategoryID string) ([]evolution.Memory, error) {
	if err := a.store.Open(ctx, a.collection); err != nil {
		return nil, err
	}
	rows, err := a.store.pool.Query(ctx, fmt.Sprintf(
		`SELECT id, content, embedding, fingerprint, last_used_at, usage_count
		 FROM %s WHERE subcategory_id = $1`, reflectionsTable(a.collection)), subcategoryID)
	if err != nil {
		return nil, fmt.Errorf("subcategory members: %w", err)
	}
	defer rows.Close()

	var out []evolution.Memory
	for rows.Next() {
		var m evolution.Memory
		var fp []byte
		if err := rows.Scan(&m.ID, &m.Content, &m.Embedding, &fp, &m.LastUsedAt, &m.AccessCount); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		if len(fp) > 0 {
			sig, err := fingerprint.Unmarshal(fp)
			if err == nil {
				m.Fingerprint = &sig
			}
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// ReplaceSubcategories atomically replaces category's subcategory rows and
// re-points every assigned reflection's subcategory_id.
func (a *SubcategoryAdapter) ReplaceSubcategories(ctx context.Context, category domainevolution.Category, subs []domainevolution.Subcategory, assignments map[string]string) error {
	if err := a.store.Open(ctx, a.collection); err != nil {
		return err
	}

	tx, err := a.store.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("replace subcategories: begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	subsTable := subcategoriesTable(a.collection)
	if _, err := tx.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE parent_category = $1`, subsTable), string(category)); err != nil {
		return fmt.Errorf("replace subcategories: clear: %w", err)
	}

	for i := range subs {
		if subs[i].ID == "" {
			subs[i].ID = uuid.NewString()
		}
		s := subs[i]
		_, err := tx.Exec(ctx, fmt.Sprintf(`
			INSERT INTO %s (id, parent_category, name, keywords, memory_count, created_at, updated_at, last_used_at, access_count, centroid, archived)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		`, subsTable), s.ID, string(category), s.Name, pgTextArray(s.Keywords), s.MemoryCount,
			s.CreatedAt, s.UpdatedAt, s.LastUsedAt, s.AccessCount, s.Centroid, s.Archived)
		if err != nil {
			return fmt.Errorf("replace subcategories: insert %s: %w", s.ID, err)
		}
	}

	reflTable := reflectionsTable(a.collection)
	for memID, subID := range assignments {
		if _, err := tx.Exec(ctx, fmt.Sprintf(`UPDATE %s SET subcategory_id = $1 WHERE id = $2`, reflTable), subID, memID); err != nil {
			return fmt.Errorf("replace subcategories: assign %s: %w", memID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("replace subcategories: commit: %w", err)
	}
	return nil
}

// ArchiveSubcategory marks a subcategory archived without deleting it or
// its members, reporting zero bytes freed since nothing is removed.
func (a *SubcategoryAdapter) ArchiveSubcategory(ctx context.Context, id string) (int64, error) {
	if err := a.store.Open(ctx, a.collection); err != nil {
		return 0, err
	}
	tag, err := a.store.pool.Exec(ctx, fmt.Sprintf(`UPDATE %s SET archived = true, updated_at = now() WHERE id = $1`, subcategoriesTable(a.collection)), id)
	if err := execExpectOne(tag, err, "archive subcategory %s", id); err != nil {
		return 0, err
	}
	return 0, nil
}

// DeleteSubcategory removes the subcategory row together with its member
// reflection rows, reporting the approximate bytes freed by the deleted
// member content.
func (a *SubcategoryAdapter) DeleteSubcategory(ctx context.Context, id string) (int64, error) {
	if err := a.store.Open(ctx, a.collection); err != nil {
		return 0, err
	}

	reflTable := reflectionsTable(a.collection)
	var freed int64
	row := a.store.pool.QueryRow(ctx, fmt.Sprintf(`SELECT COALESCE(SUM(length(content)), 0) FROM %s WHERE subcategory_id = $1`, reflTable), id)
	if err := row.Scan(&freed); err != nil {
		return 0, fmt.Errorf("delete subcategory %s: measure: %w", id, err)
	}

	tx, err := a.store.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("delete subcategory %s: begin: %w", id, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE subcategory_id = $1`, reflTable), id); err != nil {
		return 0, fmt.Errorf("delete subcategory %s: members: %w", id, err)
	}
	tag, err := tx.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, subcategoriesTable(a.collection)), id)
	if err := execExpectOne(tag, err, "delete subcategory %s", id); err != nil {
		return 0, err
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("delete subcategory %s: commit: %w", id, err)
	}
	return freed, nil
}

func scanSubcategory(row scannable) (domainevolution.Subcategory, error) {
	var s domainevolution.Subcategory
	var category string
	if err := row.Scan(&s.ID, &category, &s.Name, &s.Keywords, &s.MemoryCount, &s.CreatedAt, &s.UpdatedAt,
		&s.LastUsedAt, &s.AccessCount, &s.Centroid, &s.Archived); err != nil {
		return domainevolution.Subcategory{}, fmt.Errorf("scan subcategory: %w", err)
	}
	s.ParentCategory = domainevolution.Category(category)
	return s, nil
}
