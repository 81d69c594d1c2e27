package postgres

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lesleslie/session-buddy/internal/domain/memory"
	"github.com/lesleslie/session-buddy/internal/fingerprint"
)

// StoreConversation upserts a conversation keyed by a content hash, so
// storing identical content twice updates the existing row in place.
func (s *Store) StoreConversation(ctx context.Context, collection, content string, metadata map[string]any) (string, error) {
	if err := s.Open(ctx, collection); err != nil {
		return "", err
	}

	id := contentHash(content)
	metaJSON, err := json.Marshal(orMap(metadata))
	if err != nil {
		return "", fmt.Errorf("marshal metadata: %w", err)
	}

	emb, err := s.embed(ctx, content)
	if err != nil {
		return "", fmt.Errorf("embed conversation: %w", err)
	}
	sig, err := s.fingerprint.Compute(ctx, content)
	if err != nil {
		return "", fmt.Errorf("fingerprint conversation: %w", err)
	}
	fp := fingerprint.Marshal(sig)

	now := time.Now().UTC()
	table := conversationsTable(collection)
	stmt := fmt.Sprintf(`
		INSERT INTO %s (id, content, metadata, created_at, updated_at, embedding, fingerprint)
		VALUES ($1, $2, $3, $4, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			content = EXCLUDED.content,
			metadata = EXCLUDED.metadata,
			updated_at = $4,
			embedding = EXCLUDED.embedding,
			fingerprint = EXCLUDED.fingerprint
	`, table)

	if _, err := s.pool.Exec(ctx, stmt, id, content, metaJSON, now, emb, fp); err != nil {
		return "", fmt.Errorf("store conversation: %w", err)
	}
	return id, nil
}

// SearchConversations ranks conversations by cosine similarity against an
// embedding query when an embedder is configured, otherwise falls back to
// a substring match ordered by recency. project, when non-empty, restricts
// results to rows whose metadata.project matches exactly.
func (s *Store) SearchConversations(ctx context.Context, collection, query string, limit int, threshold float64, project string) ([]memory.ScoredConversation, error) {
	if err := s.Open(ctx, collection); err != nil {
		return nil, err
	}
	table := conversationsTable(collection)

	if s.embeddingEnabled() {
		qEmb, err := s.embed(ctx, query)
		if err != nil {
			return nil, fmt.Errorf("embed query: %w", err)
		}
		rows, err := s.pool.Query(ctx, fmt.Sprintf(
			`SELECT id, content, metadata, created_at, updated_at, embedding FROM %s WHERE embedding IS NOT NULL`, table))
		if err != nil {
			return nil, fmt.Errorf("search conversations: %w", err)
		}
		defer rows.Close()

		var hits []memory.ScoredConversation
		for rows.Next() {
			var c memory.Conversation
			var metaJSON []byte
			if err := rows.Scan(&c.ID, &c.Content, &metaJSON, &c.CreatedAt, &c.UpdatedAt, &c.Embedding); err != nil {
				return nil, fmt.Errorf("scan conversation: %w", err)
			}
			if err := json.Unmarshal(metaJSON, &c.Metadata); err != nil {
				return nil, fmt.Errorf("unmarshal metadata: %w", err)
			}
			if !matchesProject(c.Metadata, project) {
				continue
			}
			score := cosineSimilarity(qEmb, c.Embedding)
			if score >= threshold {
				hits = append(hits, memory.ScoredConversation{Conversation: c, Score: score})
			}
		}
		if err := rows.Err(); err != nil {
			return nil, err
		}
		sortScoredConversationsDesc(hits)
		return capConversations(hits, limit), nil
	}

	rows, err := s.pool.Query(ctx, fmt.Sprintf(
		`SELECT id, content, metadata, created_at, updated_at FROM %s WHERE content ILIKE $1 ORDER BY updated_at DESC`,
		table), "%"+query+"%")
	if err != nil {
		return nil, fmt.Errorf("search conversations: %w", err)
	}
	defer rows.Close()

	var hits []memory.ScoredConversation
	for rows.Next() {
		var c memory.Conversation
		var metaJSON []byte
		if err := rows.Scan(&c.ID, &c.Content, &metaJSON, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan conversation: %w", err)
		}
		if err := json.Unmarshal(metaJSON, &c.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshal metadata: %w", err)
		}
		if !matchesProject(c.Metadata, project) {
			continue
		}
		hits = append(hits, memory.ScoredConversation{Conversation: c, Score: 1.0})
		if limit > 0 && len(hits) >= limit {
			break
		}
	}
	return hits, rows.Err()
}

func matchesProject(metadata map[string]any, project string) bool {
	if project == "" {
		return true
	}
	v, ok := metadata["project"].(string)
	return ok && v == project
}

func contentHash(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])[:16]
}

func orMap(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}

func sortScoredConversationsDesc(hits []memory.ScoredConversation) {
	for i := 1; i < len(hits); i++ {
		for j := i; j > 0 && hits[j].Score > hits[j-1].Score; j-- {
			hits[j], hits[j-1] = hits[j-1], hits[j]
		}
	}
}

func capConversations(hits []memory.ScoredConversation, limit int) []memory.ScoredConversation {
	if limit > 0 && len(hits) > limit {
		return hits[:limit]
	}
	return hits
}
