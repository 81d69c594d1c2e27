package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/lesleslie/session-buddy/internal/adapter/httpsync"
)

// exportedReflection mirrors enough of a reflections-table row to round
// trip through a cloud upload or an HTTP batch_store_memories call.
type exportedReflection struct {
	ID          string         `json:"id"`
	Content     string         `json:"content"`
	Tags        []string       `json:"tags"`
	Metadata    map[string]any `json:"metadata"`
	InsightType *string        `json:"insight_type,omitempty"`
}

// ExportReflections returns every reflection and insight row for the
// default collection as a JSON array, for the cloud sync method to upload
// as reflection.duckdb.
func (s *Store) ExportReflections(ctx context.Context) ([]byte, error) {
	rows, err := s.exportReflectionRows(ctx, defaultExportCollection, "")
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(rows)
	if err != nil {
		return nil, fmt.Errorf("marshal reflections export: %w", err)
	}
	return data, nil
}

// ExportKnowledgeGraph returns every stored code graph for the default
// collection as a JSON array, for the cloud sync method to upload as
// knowledge_graph.duckdb.
func (s *Store) ExportKnowledgeGraph(ctx context.Context) ([]byte, error) {
	if err := s.Open(ctx, defaultExportCollection); err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, fmt.Sprintf(
		`SELECT repo_path, commit_hash, nodes_count, graph_data, metadata FROM %s`,
		codeGraphsTable(defaultExportCollection)))
	if err != nil {
		return nil, fmt.Errorf("export knowledge graph: %w", err)
	}
	defer rows.Close()

	type graphRow struct {
		RepoPath   string         `json:"repo_path"`
		CommitHash string         `json:"commit_hash"`
		NodesCount int            `json:"nodes_count"`
		GraphData  map[string]any `json:"graph_data"`
		Metadata   map[string]any `json:"metadata"`
	}

	var graphs []graphRow
	for rows.Next() {
		var g graphRow
		var graphJSON, metaJSON []byte
		if err := rows.Scan(&g.RepoPath, &g.CommitHash, &g.NodesCount, &graphJSON, &metaJSON); err != nil {
			return nil, fmt.Errorf("scan code graph: %w", err)
		}
		if err := json.Unmarshal(graphJSON, &g.GraphData); err != nil {
			return nil, fmt.Errorf("unmarshal graph data: %w", err)
		}
		if err := json.Unmarshal(metaJSON, &g.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshal graph metadata: %w", err)
		}
		graphs = append(graphs, g)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	data, err := json.Marshal(graphs)
	if err != nil {
		return nil, fmt.Errorf("marshal knowledge graph export: %w", err)
	}
	return data, nil
}

// ExportMemoryRecords builds the flat record list the HTTP sync method
// ships to a local MCP endpoint via batch_store_memories.
func (s *Store) ExportMemoryRecords(ctx context.Context, includeReflections, includeKnowledgeGraph bool) ([]httpsync.MemoryRecord, error) {
	if err := s.Open(ctx, defaultExportCollection); err != nil {
		return nil, err
	}

	var records []httpsync.MemoryRecord

	convRows, err := s.pool.Query(ctx, fmt.Sprintf(
		`SELECT content, metadata FROM %s`, conversationsTable(defaultExportCollection)))
	if err != nil {
		return nil, fmt.Errorf("export conversations: %w", err)
	}
	for convRows.Next() {
		var content string
		var metaJSON []byte
		if err := convRows.Scan(&content, &metaJSON); err != nil {
			convRows.Close()
			return nil, fmt.Errorf("scan conversation: %w", err)
		}
		var meta map[string]any
		if err := json.Unmarshal(metaJSON, &meta); err != nil {
			convRows.Close()
			return nil, fmt.Errorf("unmarshal metadata: %w", err)
		}
		records = append(records, httpsync.MemoryRecord{Kind: "conversation", Content: content, Meta: meta})
	}
	if err := convRows.Err(); err != nil {
		convRows.Close()
		return nil, err
	}
	convRows.Close()

	if !includeReflections {
		return records, nil
	}

	reflRows, err := s.exportReflectionRows(ctx, defaultExportCollection, "")
	if err != nil {
		return nil, err
	}
	for _, r := range reflRows {
		kind := "reflection"
		if r.InsightType != nil {
			kind = "insight"
		}
		meta := r.Metadata
		if meta == nil {
			meta = map[string]any{}
		}
		meta["tags"] = r.Tags
		records = append(records, httpsync.MemoryRecord{Kind: kind, Content: r.Content, Meta: meta})
	}

	if includeKnowledgeGraph {
		graphJSON, err := s.ExportKnowledgeGraph(ctx)
		if err != nil {
			return nil, err
		}
		if string(graphJSON) != "null" {
			records = append(records, httpsync.MemoryRecord{
				Kind:    "knowledge_graph",
				Content: string(graphJSON),
			})
		}
	}

	return records, nil
}

func (s *Store) exportReflectionRows(ctx context.Context, collection, filter string) ([]exportedReflection, error) {
	if err := s.Open(ctx, collection); err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`SELECT id, content, tags, metadata, insight_type FROM %s`, reflectionsTable(collection))
	if filter != "" {
		query += " " + filter
	}

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("export reflections: %w", err)
	}
	defer rows.Close()

	var out []exportedReflection
	for rows.Next() {
		var r exportedReflection
		var metaJSON []byte
		if err := rows.Scan(&r.ID, &r.Content, &r.Tags, &metaJSON, &r.InsightType); err != nil {
			return nil, fmt.Errorf("scan reflection: %w", err)
		}
		if err := json.Unmarshal(metaJSON, &r.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshal metadata: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

const defaultExportCollection = "default"
