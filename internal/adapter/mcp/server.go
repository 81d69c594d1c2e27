// Package mcp exposes the memory store, worker pool, sync orchestrator, and
// category evolution engine as Model Context Protocol tools and resources,
// so an assistant session can reach every operation through one endpoint.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/lesleslie/session-buddy/internal/adapter/otel"
	domainevolution "github.com/lesleslie/session-buddy/internal/domain/evolution"
	domainmemory "github.com/lesleslie/session-buddy/internal/domain/memory"
	domainpool "github.com/lesleslie/session-buddy/internal/domain/pool"
	domainsync "github.com/lesleslie/session-buddy/internal/domain/sync"
	"github.com/lesleslie/session-buddy/internal/evolution"
	"github.com/lesleslie/session-buddy/internal/pool"
	"github.com/lesleslie/session-buddy/internal/port/messagequeue"
)

// ServerConfig configures the MCP server's identity and transport address.
type ServerConfig struct {
	Addr    string
	Name    string
	Version string
	APIKey  string
}

// MemoryStore is the narrow surface of *postgres.Store the tools depend on.
type MemoryStore interface {
	StoreConversation(ctx context.Context, collection, content string, metadata map[string]any) (string, error)
	SearchConversations(ctx context.Context, collection, query string, limit int, threshold float64, project string) ([]domainmemory.ScoredConversation, error)

	StoreReflection(ctx context.Context, collection, content string, tags []string) (string, error)
	SearchReflections(ctx context.Context, collection, query string, limit int, useEmbeddings bool) ([]domainmemory.ScoredReflection, error)

	StoreInsight(ctx context.Context, collection, content, insightType string, topics, projects []string, sourceConversationID, sourceReflectionID string, confidenceScore, qualityScore float64) (string, error)
	SearchInsights(ctx context.Context, collection, query string, limit int, minQualityScore, minSimilarity float64, useEmbeddings bool) ([]domainmemory.ScoredInsight, error)
	UpdateInsightUsage(ctx context.Context, collection, id string) (bool, error)
	GetInsightsStatistics(ctx context.Context, collection string) (domainmemory.InsightsStatistics, error)

	GetStats(ctx context.Context, collection string) (domainmemory.StoreStats, error)
	HealthCheck(ctx context.Context) error
}

// PoolRouter is the narrow surface of *pool.Manager the tools depend on.
type PoolRouter interface {
	RouteTask(ctx context.Context, prompt string, taskCtx map[string]any, selector pool.Selector, timeout time.Duration) (string, any, error)
	GetHealthStatus() map[string]domainpool.PoolHealth
}

// SyncOrchestrator is the narrow surface of *sync.HybridAkoshaSync the
// sync_memories tool depends on.
type SyncOrchestrator interface {
	SyncMemories(ctx context.Context, forceMethod domainsync.ForceMethod, uploadReflections, uploadKnowledgeGraph bool) (domainsync.Result, error)
}

// SubcategoryAssigner is the narrow surface of *evolution.Engine the
// assign_subcategory and evolve_category tools depend on.
type SubcategoryAssigner interface {
	AssignSubcategory(ctx context.Context, mem evolution.Memory, category *domainevolution.Category, cfg domainevolution.Config, useFingerprintPrefilter bool) (domainevolution.AssignmentResult, error)
	EvolveCategory(ctx context.Context, category domainevolution.Category, memories []evolution.Memory, cfg domainevolution.Config) (domainevolution.EvolutionSnapshot, error)
}

// ServerDeps are the collaborators the MCP server delegates tool calls to.
// A nil field makes the tools backed by it report a configuration error
// instead of panicking. Events and Metrics are optional: a nil Events
// skips publishing, and a nil Metrics skips recording, so the server still
// runs standalone (e.g. in tests) without a message queue or meter.
type ServerDeps struct {
	Memory    MemoryStore
	Pool      PoolRouter
	Sync      SyncOrchestrator
	Evolution SubcategoryAssigner
	Events    messagequeue.Queue
	Metrics   *otel.Metrics
}

// publish sends a domain event and swallows the error into a log line: a
// tool call that already committed its side effect should not fail the
// caller just because the event bus is unavailable.
func (s *Server) publish(ctx context.Context, subject string, payload any) {
	if s.deps.Events == nil {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		slog.Error("marshal domain event", "subject", subject, "error", err)
		return
	}
	if err := s.deps.Events.Publish(ctx, subject, data); err != nil {
		slog.Error("publish domain event", "subject", subject, "error", err)
	}
}

// Server wraps a mark3labs/mcp-go server with this project's tool and
// resource registrations.
type Server struct {
	cfg       ServerConfig
	mcpServer *mcpserver.MCPServer
	httpSrv   *mcpserver.StreamableHTTPServer
	rawSrv    *http.Server
	deps      ServerDeps
}

// NewServer builds an MCP server with every tool and resource registered.
func NewServer(cfg ServerConfig, deps ServerDeps) *Server {
	if cfg.Name == "" {
		cfg.Name = "session-buddy"
	}
	if cfg.Version == "" {
		cfg.Version = "0.1.0"
	}

	s := &Server{
		cfg:       cfg,
		mcpServer: mcpserver.NewMCPServer(cfg.Name, cfg.Version),
		deps:      deps,
	}
	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer exposes the underlying mcp-go server, mainly for tests.
func (s *Server) MCPServer() *mcpserver.MCPServer { return s.mcpServer }

// Start begins serving the MCP protocol over streamable HTTP at cfg.Addr.
// Requests are gated by AuthMiddleware when cfg.APIKey is set.
func (s *Server) Start() error {
	s.httpSrv = mcpserver.NewStreamableHTTPServer(s.mcpServer)
	addr := s.cfg.Addr
	if addr == "" {
		addr = ":8682"
	}

	handler := otel.HTTPMiddleware(s.cfg.Name)(s.httpSrv)
	if s.cfg.APIKey != "" {
		handler = AuthMiddleware(s.cfg.APIKey, handler)
	}

	s.rawSrv = &http.Server{Addr: addr, Handler: handler}
	go func() {
		_ = s.rawSrv.ListenAndServe()
	}()
	return nil
}

// Stop gracefully shuts down the MCP HTTP transport.
func (s *Server) Stop(ctx context.Context) error {
	if s.rawSrv == nil {
		return nil
	}
	if err := s.rawSrv.Shutdown(ctx); err != nil {
		return fmt.Errorf("stop mcp server: %w", err)
	}
	return nil
}
