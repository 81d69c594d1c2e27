// Package memory provides the domain model for the layered memory store:
// conversations, reflections, and insights, plus the collection-name and
// embedding-dimension invariants shared by every store operation.
package memory

import (
	"fmt"
	"regexp"
	"time"

	"github.com/lesleslie/session-buddy/internal/domain"
)

// EmbeddingDim is the fixed vector dimension D every collection is opened
// with; it never changes for a given collection once set.
const EmbeddingDim = 384

// collectionNamePattern is the strict allow-list collection and insight-type
// names are checked against before being embedded into physical table/column
// identifiers, preventing SQL injection at the identifier level.
var collectionNamePattern = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// ValidateCollectionName rejects any name outside the letters/digits/
// underscore, non-empty allow-list.
func ValidateCollectionName(name string) error {
	if name == "" || !collectionNamePattern.MatchString(name) {
		return fmt.Errorf("%w: invalid collection name %q", domain.ErrValidation, name)
	}
	return nil
}

// SanitizeInsightType validates insightType against the same allow-list as
// collection names, falling back to "general" when it fails.
func SanitizeInsightType(insightType string) string {
	if insightType == "" || !collectionNamePattern.MatchString(insightType) {
		return "general"
	}
	return insightType
}

// Conversation is content-addressed: its ID is derived from its content, so
// storing identical content twice updates the existing row rather than
// creating a duplicate.
type Conversation struct {
	ID        string
	Content   string
	Metadata  map[string]any
	CreatedAt time.Time
	UpdatedAt time.Time
	Embedding []float32
	Fingerprint []byte
}

// ScoredConversation pairs a Conversation with its similarity score from a
// search operation.
type ScoredConversation struct {
	Conversation
	Score float64
}

// Reflection is a user- or system-authored note, tagged and embedded, not
// yet promoted to an insight. Reflections and insights share a table;
// InsightType being empty is what makes a row a reflection.
type Reflection struct {
	ID        string
	Content   string
	Tags      []string
	Metadata  map[string]any
	CreatedAt time.Time
	UpdatedAt time.Time
	Embedding []float32
	Fingerprint []byte

	// The following are populated only when this row is actually an
	// insight (InsightType != ""); see Insight below for the promoted view.
	InsightType      string
	UsageCount       int
	LastUsedAt       *time.Time
	ConfidenceScore  float64
}

// IsInsight reports whether this row represents an insight rather than a
// plain reflection, per the invariant insight_type IS NULL <=> reflection.
func (r Reflection) IsInsight() bool { return r.InsightType != "" }

// Insight is the promoted view of a Reflection row with InsightType set.
type Insight struct {
	ID                     string
	Content                string
	InsightType            string
	Topics                 []string
	Projects               []string
	SourceConversationID   string
	SourceReflectionID     string
	ConfidenceScore        float64
	QualityScore           float64
	UsageCount             int
	LastUsedAt             *time.Time
	Metadata               map[string]any
	CreatedAt              time.Time
	UpdatedAt              time.Time
	Embedding              []float32
	Fingerprint            []byte
}

// ScoredReflection pairs a Reflection with its similarity score.
type ScoredReflection struct {
	Reflection
	Score float64
}

// ScoredInsight pairs an Insight with its similarity score.
type ScoredInsight struct {
	Insight
	Score float64
}

// SimilarityHit is a union result from a combined conversation+reflection
// search, labelled with its source kind.
type SimilarityHit struct {
	Kind  string // "conversation" or "reflection"
	ID    string
	Content string
	Score float64
}

// CodeGraph is a write-only collaborator artifact recording a repository
// index snapshot.
type CodeGraph struct {
	ID         string // repo_path + commit_hash
	RepoPath   string
	CommitHash string
	IndexedAt  time.Time
	NodesCount int
	GraphData  map[string]any
	Metadata   map[string]any
}

// InsightsStatistics summarizes the insights table.
type InsightsStatistics struct {
	Total      int
	AvgQuality float64
	AvgUsage   float64
	ByType     map[string]int
}

// StoreStats is a general health/size snapshot of a collection.
type StoreStats struct {
	Collection        string
	ConversationCount int
	ReflectionCount   int
	InsightCount      int
	EmbeddingsEnabled bool
}
