package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/lesleslie/session-buddy/internal/domain/memory"
	"github.com/lesleslie/session-buddy/internal/fingerprint"
)

// StoreReflection stores a plain reflection row (insight_type left NULL).
func (s *Store) StoreReflection(ctx context.Context, collection, content string, tags []string) (string, error) {
	if err := s.Open(ctx, collection); err != nil {
		return "", err
	}

	id := uuid.NewString()
	emb, err := s.embed(ctx, content)
	if err != nil {
		return "", fmt.Errorf("embed reflection: %w", err)
	}
	sig, err := s.fingerprint.Compute(ctx, content)
	if err != nil {
		return "", fmt.Errorf("fingerprint reflection: %w", err)
	}
	fp := fingerprint.Marshal(sig)
	now := time.Now().UTC()

	stmt := fmt.Sprintf(`
		INSERT INTO %s (id, content, tags, metadata, created_at, updated_at, embedding, fingerprint, insight_type)
		VALUES ($1, $2, $3, '{}', $4, $4, $5, $6, NULL)
	`, reflectionsTable(collection))

	if _, err := s.pool.Exec(ctx, stmt, id, content, pgTextArray(tags), now, emb, fp); err != nil {
		return "", fmt.Errorf("store reflection: %w", err)
	}
	return id, nil
}

// SearchReflections searches reflection rows (insight_type IS NULL) by
// semantic similarity or, when useEmbeddings is false or no embedder is
// configured, by substring/tag match.
func (s *Store) SearchReflections(ctx context.Context, collection, query string, limit int, useEmbeddings bool) ([]memory.ScoredReflection, error) {
	if err := s.Open(ctx, collection); err != nil {
		return nil, err
	}
	table := reflectionsTable(collection)

	if useEmbeddings && s.embeddingEnabled() {
		qEmb, err := s.embed(ctx, query)
		if err != nil {
			return nil, fmt.Errorf("embed query: %w", err)
		}
		rows, err := s.pool.Query(ctx, fmt.Sprintf(
			`SELECT id, content, tags, metadata, created_at, updated_at, embedding, insight_type, usage_count, last_used_at, confidence_score
			 FROM %s WHERE insight_type IS NULL AND embedding IS NOT NULL`, table))
		if err != nil {
			return nil, fmt.Errorf("search reflections: %w", err)
		}
		defer rows.Close()

		var hits []memory.ScoredReflection
		for rows.Next() {
			r, err := scanReflection(rows)
			if err != nil {
				return nil, err
			}
			score := cosineSimilarity(qEmb, r.Embedding)
			hits = append(hits, memory.ScoredReflection{Reflection: r, Score: score})
		}
		if err := rows.Err(); err != nil {
			return nil, err
		}
		sortScoredReflectionsDesc(hits)
		return capReflections(hits, limit), nil
	}

	rows, err := s.pool.Query(ctx, fmt.Sprintf(
		`SELECT id, content, tags, metadata, created_at, updated_at, embedding, insight_type, usage_count, last_used_at, confidence_score
		 FROM %s WHERE insight_type IS NULL AND (content ILIKE $1 OR $2 = ANY(tags)) ORDER BY updated_at DESC LIMIT $3`,
		table), "%"+query+"%", query, limit)
	if err != nil {
		return nil, fmt.Errorf("search reflections: %w", err)
	}
	defer rows.Close()

	var hits []memory.ScoredReflection
	for rows.Next() {
		r, err := scanReflection(rows)
		if err != nil {
			return nil, err
		}
		hits = append(hits, memory.ScoredReflection{Reflection: r, Score: 1.0})
	}
	return hits, rows.Err()
}

// GetReflectionByID fetches a single reflection or insight row by id.
func (s *Store) GetReflectionByID(ctx context.Context, collection, id string) (memory.Reflection, error) {
	if err := s.Open(ctx, collection); err != nil {
		return memory.Reflection{}, err
	}
	row := s.pool.QueryRow(ctx, fmt.Sprintf(
		`SELECT id, content, tags, metadata, created_at, updated_at, embedding, insight_type, usage_count, last_used_at, confidence_score
		 FROM %s WHERE id = $1`, reflectionsTable(collection)), id)
	r, err := scanReflection(row)
	if err != nil {
		return memory.Reflection{}, notFoundWrap(err, "get reflection %s", id)
	}
	return r, nil
}

// SimilaritySearch unions conversation and reflection matches into a single
// labelled result set.
func (s *Store) SimilaritySearch(ctx context.Context, collection, query string, limit int) ([]memory.SimilarityHit, error) {
	convs, err := s.SearchConversations(ctx, collection, query, limit, 0, "")
	if err != nil {
		return nil, err
	}
	refls, err := s.SearchReflections(ctx, collection, query, limit, true)
	if err != nil {
		return nil, err
	}

	hits := make([]memory.SimilarityHit, 0, len(convs)+len(refls))
	for _, c := range convs {
		hits = append(hits, memory.SimilarityHit{Kind: "conversation", ID: c.ID, Content: c.Content, Score: c.Score})
	}
	for _, r := range refls {
		hits = append(hits, memory.SimilarityHit{Kind: "reflection", ID: r.ID, Content: r.Content, Score: r.Score})
	}
	sortSimilarityHitsDesc(hits)
	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

func scanReflection(row scannable) (memory.Reflection, error) {
	var r memory.Reflection
	var tags []string
	var metaJSON []byte
	var insightType *string
	if err := row.Scan(&r.ID, &r.Content, &tags, &metaJSON, &r.CreatedAt, &r.UpdatedAt, &r.Embedding,
		&insightType, &r.UsageCount, &r.LastUsedAt, &r.ConfidenceScore); err != nil {
		return memory.Reflection{}, fmt.Errorf("scan reflection: %w", err)
	}
	r.Tags = tags
	if insightType != nil {
		r.InsightType = *insightType
	}
	if err := json.Unmarshal(metaJSON, &r.Metadata); err != nil {
		return memory.Reflection{}, fmt.Errorf("unmarshal metadata: %w", err)
	}
	return r, nil
}

func sortScoredReflectionsDesc(hits []memory.ScoredReflection) {
	for i := 1; i < len(hits); i++ {
		for j := i; j > 0 && hits[j].Score > hits[j-1].Score; j-- {
			hits[j], hits[j-1] = hits[j-1], hits[j]
		}
	}
}

func capReflections(hits []memory.ScoredReflection, limit int) []memory.ScoredReflection {
	if limit > 0 && len(hits) > limit {
		return hits[:limit]
	}
	return hits
}

func sortSimilarityHitsDesc(hits []memory.SimilarityHit) {
	for i := 1; i < len(hits); i++ {
		for j := i; j > 0 && hits[j].Score > hits[j-1].Score; j-- {
			hits[j], hits[j-1] = hits[j-1], hits[j]
		}
	}
}
