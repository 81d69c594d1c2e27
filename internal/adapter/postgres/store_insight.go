package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/lesleslie/session-buddy/internal/domain/memory"
	"github.com/lesleslie/session-buddy/internal/fingerprint"
)

// StoreInsight stores a promoted reflection row with insight_type set,
// sanitising insight_type and embedding quality_score/source ids into
// metadata per the shared reflections/insights table schema.
func (s *Store) StoreInsight(
	ctx context.Context,
	collection, content, insightType string,
	topics, projects []string,
	sourceConversationID, sourceReflectionID string,
	confidenceScore, qualityScore float64,
) (string, error) {
	if err := s.Open(ctx, collection); err != nil {
		return "", err
	}

	insightType = memory.SanitizeInsightType(insightType)
	id := uuid.NewString()

	meta := map[string]any{
		"topics":        orEmpty(topics),
		"projects":      orEmpty(sanitizeProjects(projects)),
		"quality_score": qualityScore,
	}
	if sourceConversationID != "" {
		meta["source_conversation_id"] = sourceConversationID
	}
	if sourceReflectionID != "" {
		meta["source_reflection_id"] = sourceReflectionID
	}
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return "", fmt.Errorf("marshal metadata: %w", err)
	}

	emb, err := s.embed(ctx, content)
	if err != nil {
		return "", fmt.Errorf("embed insight: %w", err)
	}
	sig, err := s.fingerprint.Compute(ctx, content)
	if err != nil {
		return "", fmt.Errorf("fingerprint insight: %w", err)
	}
	fp := fingerprint.Marshal(sig)
	now := time.Now().UTC()

	stmt := fmt.Sprintf(`
		INSERT INTO %s (id, content, tags, metadata, created_at, updated_at, embedding, fingerprint,
			insight_type, usage_count, confidence_score)
		VALUES ($1, $2, '{}', $3, $4, $4, $5, $6, $7, 0, $8)
	`, reflectionsTable(collection))

	if _, err := s.pool.Exec(ctx, stmt, id, content, metaJSON, now, emb, fp, insightType, confidenceScore); err != nil {
		return "", fmt.Errorf("store insight: %w", err)
	}
	return id, nil
}

func sanitizeProjects(projects []string) []string {
	out := make([]string, 0, len(projects))
	for _, p := range projects {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// SearchInsights filters insight rows (insight_type IS NOT NULL) by minimum
// quality score, then ranks semantically when available, post-filtering by
// minSimilarity. Wildcard queries "*" and "" use the text-search path and
// return all qualifying insights ordered by created_at descending.
func (s *Store) SearchInsights(ctx context.Context, collection, query string, limit int, minQualityScore, minSimilarity float64, useEmbeddings bool) ([]memory.ScoredInsight, error) {
	if err := s.Open(ctx, collection); err != nil {
		return nil, err
	}
	table := reflectionsTable(collection)
	wildcard := query == "*" || query == ""

	if !wildcard && useEmbeddings && s.embeddingEnabled() {
		qEmb, err := s.embed(ctx, query)
		if err != nil {
			return nil, fmt.Errorf("embed query: %w", err)
		}
		rows, err := s.pool.Query(ctx, fmt.Sprintf(
			`SELECT id, content, tags, metadata, created_at, updated_at, embedding, insight_type, usage_count, last_used_at, confidence_score
			 FROM %s WHERE insight_type IS NOT NULL AND embedding IS NOT NULL`, table))
		if err != nil {
			return nil, fmt.Errorf("search insights: %w", err)
		}
		defer rows.Close()

		var hits []memory.ScoredInsight
		for rows.Next() {
			ins, err := scanInsight(rows)
			if err != nil {
				return nil, err
			}
			if ins.QualityScore < minQualityScore {
				continue
			}
			score := cosineSimilarity(qEmb, ins.Embedding)
			if score >= minSimilarity {
				hits = append(hits, memory.ScoredInsight{Insight: ins, Score: score})
			}
		}
		if err := rows.Err(); err != nil {
			return nil, err
		}
		sortScoredInsightsDesc(hits)
		return capInsights(hits, limit), nil
	}

	var rows pgx.Rows
	var err error
	if wildcard {
		rows, err = s.pool.Query(ctx, fmt.Sprintf(
			`SELECT id, content, tags, metadata, created_at, updated_at, embedding, insight_type, usage_count, last_used_at, confidence_score
			 FROM %s WHERE insight_type IS NOT NULL ORDER BY created_at DESC LIMIT $1`, table), limit)
	} else {
		rows, err = s.pool.Query(ctx, fmt.Sprintf(
			`SELECT id, content, tags, metadata, created_at, updated_at, embedding, insight_type, usage_count, last_used_at, confidence_score
			 FROM %s WHERE insight_type IS NOT NULL AND content ILIKE $1 ORDER BY created_at DESC LIMIT $2`, table),
			"%"+query+"%", limit)
	}
	if err != nil {
		return nil, fmt.Errorf("search insights: %w", err)
	}
	defer rows.Close()

	var hits []memory.ScoredInsight
	for rows.Next() {
		ins, err := scanInsight(rows)
		if err != nil {
			return nil, err
		}
		if ins.QualityScore < minQualityScore {
			continue
		}
		hits = append(hits, memory.ScoredInsight{Insight: ins, Score: 1.0})
	}
	return hits, rows.Err()
}

// UpdateInsightUsage atomically increments usage_count and stamps
// last_used_at/updated_at in a single statement. Returns false if no
// matching insight row exists.
func (s *Store) UpdateInsightUsage(ctx context.Context, collection, id string) (bool, error) {
	if err := s.Open(ctx, collection); err != nil {
		return false, err
	}
	now := time.Now().UTC()
	tag, err := s.pool.Exec(ctx, fmt.Sprintf(
		`UPDATE %s SET usage_count = usage_count + 1, last_used_at = $2, updated_at = $2
		 WHERE id = $1 AND insight_type IS NOT NULL`, reflectionsTable(collection)), id, now)
	if err != nil {
		return false, fmt.Errorf("update insight usage: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// GetInsightsStatistics summarizes the insights partition of the table.
func (s *Store) GetInsightsStatistics(ctx context.Context, collection string) (memory.InsightsStatistics, error) {
	if err := s.Open(ctx, collection); err != nil {
		return memory.InsightsStatistics{}, err
	}
	table := reflectionsTable(collection)

	stats := memory.InsightsStatistics{ByType: map[string]int{}}
	row := s.pool.QueryRow(ctx, fmt.Sprintf(
		`SELECT COUNT(*), COALESCE(AVG((metadata->>'quality_score')::float8), 0), COALESCE(AVG(usage_count), 0)
		 FROM %s WHERE insight_type IS NOT NULL`, table))
	if err := row.Scan(&stats.Total, &stats.AvgQuality, &stats.AvgUsage); err != nil {
		return memory.InsightsStatistics{}, fmt.Errorf("get insights statistics: %w", err)
	}

	rows, err := s.pool.Query(ctx, fmt.Sprintf(
		`SELECT insight_type, COUNT(*) FROM %s WHERE insight_type IS NOT NULL GROUP BY insight_type`, table))
	if err != nil {
		return memory.InsightsStatistics{}, fmt.Errorf("get insights statistics by type: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var t string
		var c int
		if err := rows.Scan(&t, &c); err != nil {
			return memory.InsightsStatistics{}, fmt.Errorf("scan insight type count: %w", err)
		}
		stats.ByType[t] = c
	}
	return stats, rows.Err()
}

func scanInsight(row scannable) (memory.Insight, error) {
	var id, content, insightType string
	var tags []string
	var metaJSON []byte
	var createdAt, updatedAt time.Time
	var embedding []float32
	var usageCount int
	var lastUsedAt *time.Time
	var confidenceScore float64

	if err := row.Scan(&id, &content, &tags, &metaJSON, &createdAt, &updatedAt, &embedding,
		&insightType, &usageCount, &lastUsedAt, &confidenceScore); err != nil {
		return memory.Insight{}, fmt.Errorf("scan insight: %w", err)
	}

	var meta map[string]any
	if err := json.Unmarshal(metaJSON, &meta); err != nil {
		return memory.Insight{}, fmt.Errorf("unmarshal metadata: %w", err)
	}

	ins := memory.Insight{
		ID:              id,
		Content:         content,
		InsightType:     insightType,
		ConfidenceScore: confidenceScore,
		UsageCount:      usageCount,
		LastUsedAt:      lastUsedAt,
		Metadata:        meta,
		CreatedAt:       createdAt,
		UpdatedAt:       updatedAt,
		Embedding:       embedding,
	}
	if qs, ok := meta["quality_score"].(float64); ok {
		ins.QualityScore = qs
	}
	if topics, ok := meta["topics"].([]any); ok {
		ins.Topics = toStringSlice(topics)
	}
	if projects, ok := meta["projects"].([]any); ok {
		ins.Projects = toStringSlice(projects)
	}
	if v, ok := meta["source_conversation_id"].(string); ok {
		ins.SourceConversationID = v
	}
	if v, ok := meta["source_reflection_id"].(string); ok {
		ins.SourceReflectionID = v
	}
	return ins, nil
}

func toStringSlice(items []any) []string {
	out := make([]string, 0, len(items))
	for _, v := range items {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func sortScoredInsightsDesc(hits []memory.ScoredInsight) {
	for i := 1; i < len(hits); i++ {
		for j := i; j > 0 && hits[j].Score > hits[j-1].Score; j-- {
			hits[j], hits[j-1] = hits[j-1], hits[j]
		}
	}
}

func capInsights(hits []memory.ScoredInsight, limit int) []memory.ScoredInsight {
	if limit > 0 && len(hits) > limit {
		return hits[:limit]
	}
	return hits
}
