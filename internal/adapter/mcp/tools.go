package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/lesleslie/session-buddy/internal/adapter/otel"
	domainevolution "github.com/lesleslie/session-buddy/internal/domain/evolution"
	domainsync "github.com/lesleslie/session-buddy/internal/domain/sync"
	"github.com/lesleslie/session-buddy/internal/evolution"
	"github.com/lesleslie/session-buddy/internal/pool"
	"github.com/lesleslie/session-buddy/internal/port/messagequeue"
)

// storeOp opens a span around a memory store mutation and returns a finish
// func that records the operation counter and duration histogram when the
// caller's deps.Metrics is configured.
func (s *Server) storeOp(ctx context.Context, op, collection string) (context.Context, func()) {
	ctx, span := otel.StartStoreSpan(ctx, op, collection)
	start := time.Now()
	return ctx, func() {
		span.End()
		if s.deps.Metrics == nil {
			return
		}
		attrs := metric.WithAttributes(attribute.String("op", op), attribute.String("collection", collection))
		s.deps.Metrics.StoreOpsTotal.Add(ctx, 1, attrs)
		s.deps.Metrics.StoreOpDuration.Record(ctx, time.Since(start).Seconds(), attrs)
	}
}

// registerTools registers every MCP tool on the server.
func (s *Server) registerTools() {
	s.mcpServer.AddTools(
		s.storeConversationTool(),
		s.searchConversationsTool(),
		s.storeReflectionTool(),
		s.searchReflectionsTool(),
		s.storeInsightTool(),
		s.searchInsightsTool(),
		s.updateInsightUsageTool(),
		s.getStatsTool(),
		s.healthCheckTool(),
		s.routeTaskTool(),
		s.getPoolHealthTool(),
		s.syncMemoriesTool(),
		s.assignSubcategoryTool(),
		s.evolveCategoryTool(),
	)
}

func (s *Server) storeConversationTool() mcpserver.ServerTool {
	tool := mcplib.NewTool("store_conversation",
		mcplib.WithDescription("Store a conversation turn in the memory store"),
		mcplib.WithString("content", mcplib.Required(), mcplib.Description("The conversation content to store")),
		mcplib.WithString("collection", mcplib.Description("Collection name, defaults to \"default\"")),
	)
	return mcpserver.ServerTool{Tool: tool, Handler: s.handleStoreConversation}
}

func (s *Server) handleStoreConversation(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) { //nolint:gocritic
	if s.deps.Memory == nil {
		return mcplib.NewToolResultError("memory store not configured"), nil
	}
	args := req.GetArguments()
	content := argString(args, "content", "")
	if content == "" {
		return mcplib.NewToolResultError("content is required"), nil
	}
	collection := argString(args, "collection", defaultCollection)
	metadata := argMap(args, "metadata")

	ctx, done := s.storeOp(ctx, "store_conversation", collection)
	defer done()

	id, err := s.deps.Memory.StoreConversation(ctx, collection, content, metadata)
	if err != nil {
		return mcplib.NewToolResultErrorFromErr("failed to store conversation", err), nil
	}
	return toolResultJSON(fmt.Sprintf(`{"id":%q}`, id)), nil
}

func (s *Server) searchConversationsTool() mcpserver.ServerTool {
	tool := mcplib.NewTool("search_conversations",
		mcplib.WithDescription("Search stored conversations by similarity"),
		mcplib.WithString("query", mcplib.Required(), mcplib.Description("The search query")),
		mcplib.WithString("collection", mcplib.Description("Collection name, defaults to \"default\"")),
		mcplib.WithString("project", mcplib.Description("Restrict results to this project")),
		mcplib.WithNumber("threshold", mcplib.Description("Minimum similarity score (0-1)")),
		mcplib.WithNumber("min_score", mcplib.Description("Alias for threshold, kept for backward compatibility")),
	)
	return mcpserver.ServerTool{Tool: tool, Handler: s.handleSearchConversations}
}

func (s *Server) handleSearchConversations(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) { //nolint:gocritic
	if s.deps.Memory == nil {
		return mcplib.NewToolResultError("memory store not configured"), nil
	}
	args := req.GetArguments()
	query := argString(args, "query", "")
	if query == "" {
		return mcplib.NewToolResultError("query is required"), nil
	}
	collection := argString(args, "collection", defaultCollection)
	limit := argInt(args, "limit", 10)
	threshold := argFloat(args, "threshold", argFloat(args, "min_score", 0.0))
	project := argString(args, "project", "")

	results, err := s.deps.Memory.SearchConversations(ctx, collection, query, limit, threshold, project)
	if err != nil {
		return mcplib.NewToolResultErrorFromErr("failed to search conversations", err), nil
	}
	return marshalResult(results)
}

func (s *Server) storeReflectionTool() mcpserver.ServerTool {
	tool := mcplib.NewTool("store_reflection",
		mcplib.WithDescription("Store a reflection note"),
		mcplib.WithString("content", mcplib.Required(), mcplib.Description("The reflection content")),
		mcplib.WithString("collection", mcplib.Description("Collection name, defaults to \"default\"")),
	)
	return mcpserver.ServerTool{Tool: tool, Handler: s.handleStoreReflection}
}

func (s *Server) handleStoreReflection(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) { //nolint:gocritic
	if s.deps.Memory == nil {
		return mcplib.NewToolResultError("memory store not configured"), nil
	}
	args := req.GetArguments()
	content := argString(args, "content", "")
	if content == "" {
		return mcplib.NewToolResultError("content is required"), nil
	}
	collection := argString(args, "collection", defaultCollection)
	tags := argStringSlice(args, "tags")

	ctx, done := s.storeOp(ctx, "store_reflection", collection)
	defer done()

	id, err := s.deps.Memory.StoreReflection(ctx, collection, content, tags)
	if err != nil {
		return mcplib.NewToolResultErrorFromErr("failed to store reflection", err), nil
	}
	return toolResultJSON(fmt.Sprintf(`{"id":%q}`, id)), nil
}

func (s *Server) searchReflectionsTool() mcpserver.ServerTool {
	tool := mcplib.NewTool("search_reflections",
		mcplib.WithDescription("Search stored reflections by similarity"),
		mcplib.WithString("query", mcplib.Required(), mcplib.Description("The search query")),
		mcplib.WithString("collection", mcplib.Description("Collection name, defaults to \"default\"")),
	)
	return mcpserver.ServerTool{Tool: tool, Handler: s.handleSearchReflections}
}

func (s *Server) handleSearchReflections(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) { //nolint:gocritic
	if s.deps.Memory == nil {
		return mcplib.NewToolResultError("memory store not configured"), nil
	}
	args := req.GetArguments()
	query := argString(args, "query", "")
	if query == "" {
		return mcplib.NewToolResultError("query is required"), nil
	}
	collection := argString(args, "collection", defaultCollection)
	limit := argInt(args, "limit", 10)
	useEmbeddings := argBool(args, "use_embeddings", true)

	results, err := s.deps.Memory.SearchReflections(ctx, collection, query, limit, useEmbeddings)
	if err != nil {
		return mcplib.NewToolResultErrorFromErr("failed to search reflections", err), nil
	}
	return marshalResult(results)
}

func (s *Server) storeInsightTool() mcpserver.ServerTool {
	tool := mcplib.NewTool("store_insight",
		mcplib.WithDescription("Promote a conversation or reflection into an insight"),
		mcplib.WithString("content", mcplib.Required(), mcplib.Description("The insight content")),
		mcplib.WithString("insight_type", mcplib.Required(), mcplib.Description("Insight category, e.g. \"pattern\" or \"preference\"")),
		mcplib.WithString("collection", mcplib.Description("Collection name, defaults to \"default\"")),
		mcplib.WithString("source_conversation_id", mcplib.Description("ID of the conversation this insight was promoted from")),
		mcplib.WithString("source_reflection_id", mcplib.Description("ID of the reflection this insight was promoted from")),
	)
	return mcpserver.ServerTool{Tool: tool, Handler: s.handleStoreInsight}
}

func (s *Server) handleStoreInsight(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) { //nolint:gocritic
	if s.deps.Memory == nil {
		return mcplib.NewToolResultError("memory store not configured"), nil
	}
	args := req.GetArguments()
	content := argString(args, "content", "")
	insightType := argString(args, "insight_type", "")
	if content == "" || insightType == "" {
		return mcplib.NewToolResultError("content and insight_type are required"), nil
	}
	collection := argString(args, "collection", defaultCollection)
	topics := argStringSlice(args, "topics")
	projects := argStringSlice(args, "projects")
	sourceConversationID := argString(args, "source_conversation_id", "")
	sourceReflectionID := argString(args, "source_reflection_id", "")
	confidenceScore := argFloat(args, "confidence_score", 0.0)
	qualityScore := argFloat(args, "quality_score", 0.0)

	ctx, done := s.storeOp(ctx, "store_insight", collection)
	defer done()

	id, err := s.deps.Memory.StoreInsight(ctx, collection, content, insightType, topics, projects,
		sourceConversationID, sourceReflectionID, confidenceScore, qualityScore)
	if err != nil {
		return mcplib.NewToolResultErrorFromErr("failed to store insight", err), nil
	}

	s.publish(ctx, messagequeue.SubjectInsightStored, messagequeue.InsightStoredPayload{
		ID:              id,
		Collection:      collection,
		InsightType:     insightType,
		ConfidenceScore: confidenceScore,
	})
	return toolResultJSON(fmt.Sprintf(`{"id":%q}`, id)), nil
}

func (s *Server) searchInsightsTool() mcpserver.ServerTool {
	tool := mcplib.NewTool("search_insights",
		mcplib.WithDescription("Search stored insights by similarity and quality"),
		mcplib.WithString("query", mcplib.Required(), mcplib.Description("The search query")),
		mcplib.WithString("collection", mcplib.Description("Collection name, defaults to \"default\"")),
	)
	return mcpserver.ServerTool{Tool: tool, Handler: s.handleSearchInsights}
}

func (s *Server) handleSearchInsights(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) { //nolint:gocritic
	if s.deps.Memory == nil {
		return mcplib.NewToolResultError("memory store not configured"), nil
	}
	args := req.GetArguments()
	query := argString(args, "query", "")
	if query == "" {
		return mcplib.NewToolResultError("query is required"), nil
	}
	collection := argString(args, "collection", defaultCollection)
	limit := argInt(args, "limit", 10)
	minQuality := argFloat(args, "min_quality_score", 0.0)
	minSimilarity := argFloat(args, "min_similarity", 0.0)
	useEmbeddings := argBool(args, "use_embeddings", true)

	results, err := s.deps.Memory.SearchInsights(ctx, collection, query, limit, minQuality, minSimilarity, useEmbeddings)
	if err != nil {
		return mcplib.NewToolResultErrorFromErr("failed to search insights", err), nil
	}
	return marshalResult(results)
}

func (s *Server) updateInsightUsageTool() mcpserver.ServerTool {
	tool := mcplib.NewTool("update_insight_usage",
		mcplib.WithDescription("Record that an insight was used, bumping its usage count"),
		mcplib.WithString("id", mcplib.Required(), mcplib.Description("The insight ID")),
		mcplib.WithString("collection", mcplib.Description("Collection name, defaults to \"default\"")),
	)
	return mcpserver.ServerTool{Tool: tool, Handler: s.handleUpdateInsightUsage}
}

func (s *Server) handleUpdateInsightUsage(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) { //nolint:gocritic
	if s.deps.Memory == nil {
		return mcplib.NewToolResultError("memory store not configured"), nil
	}
	args := req.GetArguments()
	id := argString(args, "id", "")
	if id == "" {
		return mcplib.NewToolResultError("id is required"), nil
	}
	collection := argString(args, "collection", defaultCollection)

	updated, err := s.deps.Memory.UpdateInsightUsage(ctx, collection, id)
	if err != nil {
		return mcplib.NewToolResultErrorFromErr("failed to update insight usage", err), nil
	}
	return toolResultJSON(fmt.Sprintf(`{"updated":%t}`, updated)), nil
}

func (s *Server) getStatsTool() mcpserver.ServerTool {
	tool := mcplib.NewTool("get_stats",
		mcplib.WithDescription("Get conversation/reflection/insight counts for a collection"),
		mcplib.WithString("collection", mcplib.Description("Collection name, defaults to \"default\"")),
	)
	return mcpserver.ServerTool{Tool: tool, Handler: s.handleGetStats}
}

func (s *Server) handleGetStats(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) { //nolint:gocritic
	if s.deps.Memory == nil {
		return mcplib.NewToolResultError("memory store not configured"), nil
	}
	collection := argString(req.GetArguments(), "collection", defaultCollection)
	stats, err := s.deps.Memory.GetStats(ctx, collection)
	if err != nil {
		return mcplib.NewToolResultErrorFromErr("failed to get stats", err), nil
	}
	return marshalResult(stats)
}

func (s *Server) healthCheckTool() mcpserver.ServerTool {
	tool := mcplib.NewTool("health_check",
		mcplib.WithDescription("Check connectivity to the memory store's database"),
	)
	return mcpserver.ServerTool{Tool: tool, Handler: s.handleHealthCheck}
}

func (s *Server) handleHealthCheck(ctx context.Context, _ mcplib.CallToolRequest) (*mcplib.CallToolResult, error) { //nolint:gocritic
	if s.deps.Memory == nil {
		return mcplib.NewToolResultError("memory store not configured"), nil
	}
	if err := s.deps.Memory.HealthCheck(ctx); err != nil {
		return mcplib.NewToolResultErrorFromErr("health check failed", err), nil
	}
	return toolResultJSON(`{"status":"ok"}`), nil
}

func (s *Server) routeTaskTool() mcpserver.ServerTool {
	tool := mcplib.NewTool("route_task",
		mcplib.WithDescription("Route a task to a worker pool by selector strategy"),
		mcplib.WithString("prompt", mcplib.Required(), mcplib.Description("The task prompt")),
		mcplib.WithString("selector", mcplib.Description("Pool selection strategy: least_loaded, round_robin, or random")),
	)
	return mcpserver.ServerTool{Tool: tool, Handler: s.handleRouteTask}
}

func (s *Server) handleRouteTask(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) { //nolint:gocritic
	if s.deps.Pool == nil {
		return mcplib.NewToolResultError("pool router not configured"), nil
	}
	args := req.GetArguments()
	prompt := argString(args, "prompt", "")
	if prompt == "" {
		return mcplib.NewToolResultError("prompt is required"), nil
	}
	selector := pool.Selector(argString(args, "selector", string(pool.SelectorLeastLoaded)))
	taskCtx := argMap(args, "task_context")
	timeoutSeconds := argInt(args, "timeout_seconds", 60)

	start := time.Now()
	poolID, result, err := s.deps.Pool.RouteTask(ctx, prompt, taskCtx, selector, time.Duration(timeoutSeconds)*time.Second)
	if err != nil {
		if s.deps.Metrics != nil {
			s.deps.Metrics.PoolTasksFailed.Add(ctx, 1, metric.WithAttributes(attribute.String("pool_id", poolID)))
		}
		s.publish(ctx, messagequeue.SubjectPoolTaskFailed, messagequeue.PoolTaskFailedPayload{
			PoolID: poolID,
			Error:  err.Error(),
		})
		return mcplib.NewToolResultErrorFromErr("failed to route task", err), nil
	}
	if s.deps.Metrics != nil {
		attrs := metric.WithAttributes(attribute.String("pool_id", poolID), attribute.String("selector", string(selector)))
		s.deps.Metrics.PoolTasksRouted.Add(ctx, 1, attrs)
		s.deps.Metrics.PoolTaskDuration.Record(ctx, time.Since(start).Seconds(), attrs)
	}
	return marshalResult(map[string]any{"pool_id": poolID, "result": result})
}

func (s *Server) getPoolHealthTool() mcpserver.ServerTool {
	tool := mcplib.NewTool("get_pool_health",
		mcplib.WithDescription("Get the health status of every worker pool"),
	)
	return mcpserver.ServerTool{Tool: tool, Handler: s.handleGetPoolHealth}
}

func (s *Server) handleGetPoolHealth(_ context.Context, _ mcplib.CallToolRequest) (*mcplib.CallToolResult, error) { //nolint:gocritic
	if s.deps.Pool == nil {
		return mcplib.NewToolResultError("pool router not configured"), nil
	}
	return marshalResult(s.deps.Pool.GetHealthStatus())
}

func (s *Server) syncMemoriesTool() mcpserver.ServerTool {
	tool := mcplib.NewTool("sync_memories",
		mcplib.WithDescription("Sync memories to cloud storage or an HTTP fallback endpoint"),
		mcplib.WithString("force_method", mcplib.Description("Force a specific method: cloud, http, or auto (default)")),
		mcplib.WithBoolean("upload_reflections", mcplib.Description("Include reflections in the sync, defaults to true")),
		mcplib.WithBoolean("upload_knowledge_graph", mcplib.Description("Include the knowledge graph in the sync, defaults to true")),
	)
	return mcpserver.ServerTool{Tool: tool, Handler: s.handleSyncMemories}
}

func (s *Server) handleSyncMemories(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) { //nolint:gocritic
	if s.deps.Sync == nil {
		return mcplib.NewToolResultError("sync orchestrator not configured"), nil
	}
	args := req.GetArguments()
	forceMethod := domainsync.ForceMethod(argString(args, "force_method", string(domainsync.ForceAuto)))
	uploadReflections := argBool(args, "upload_reflections", true)
	uploadKnowledgeGraph := argBool(args, "upload_knowledge_graph", true)

	ctx, span := otel.StartSyncSpan(ctx, string(forceMethod))
	defer span.End()

	result, err := s.deps.Sync.SyncMemories(ctx, forceMethod, uploadReflections, uploadKnowledgeGraph)
	if err != nil {
		return mcplib.NewToolResultErrorFromErr("sync failed", err), nil
	}

	if s.deps.Metrics != nil {
		outcome := "success"
		if !result.Success {
			outcome = "failure"
		}
		attrs := metric.WithAttributes(attribute.String("method", result.Method), attribute.String("outcome", outcome))
		s.deps.Metrics.SyncRuns.Add(ctx, 1, attrs)
		s.deps.Metrics.SyncDuration.Record(ctx, result.DurationSeconds, attrs)
		s.deps.Metrics.SyncBytesShipped.Add(ctx, result.BytesTransferred, attrs)
	}
	s.publish(ctx, messagequeue.SubjectSyncCompleted, messagequeue.SyncCompletedPayload{
		Method:           result.Method,
		Success:          result.Success,
		FilesUploaded:    result.FilesUploaded,
		BytesTransferred: result.BytesTransferred,
		DurationSeconds:  result.DurationSeconds,
	})
	return marshalResult(result)
}

func (s *Server) assignSubcategoryTool() mcpserver.ServerTool {
	tool := mcplib.NewTool("assign_subcategory",
		mcplib.WithDescription("Assign a memory to a category subcategory"),
		mcplib.WithString("memory_id", mcplib.Required(), mcplib.Description("ID of the memory being assigned")),
		mcplib.WithString("content", mcplib.Required(), mcplib.Description("The memory's content")),
		mcplib.WithString("category", mcplib.Description("Explicit category: facts, preferences, skills, rules, or context")),
		mcplib.WithBoolean("use_fingerprint_prefilter", mcplib.Description("Narrow candidates with a MinHash prefilter before scoring")),
	)
	return mcpserver.ServerTool{Tool: tool, Handler: s.handleAssignSubcategory}
}

func (s *Server) handleAssignSubcategory(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) { //nolint:gocritic
	if s.deps.Evolution == nil {
		return mcplib.NewToolResultError("evolution engine not configured"), nil
	}
	args := req.GetArguments()
	memoryID := argString(args, "memory_id", "")
	content := argString(args, "content", "")
	if memoryID == "" || content == "" {
		return mcplib.NewToolResultError("memory_id and content are required"), nil
	}
	mem := evolution.Memory{
		ID:        memoryID,
		Content:   content,
		Embedding: argFloatSlice(args, "embedding"),
	}

	var category *domainevolution.Category
	if raw := argString(args, "category", ""); raw != "" {
		c := domainevolution.Category(raw)
		if !domainevolution.ValidCategory(c) {
			return mcplib.NewToolResultError(fmt.Sprintf("unknown category %q", raw)), nil
		}
		category = &c
	}
	useFingerprintPrefilter := argBool(args, "use_fingerprint_prefilter", false)

	result, err := s.deps.Evolution.AssignSubcategory(ctx, mem, category, configFromArgs(args), useFingerprintPrefilter)
	if err != nil {
		return mcplib.NewToolResultErrorFromErr("failed to assign subcategory", err), nil
	}
	return marshalResult(result)
}

func (s *Server) evolveCategoryTool() mcpserver.ServerTool {
	tool := mcplib.NewTool("evolve_category",
		mcplib.WithDescription("Re-cluster a category's memories into fresh subcategories and apply temporal decay"),
		mcplib.WithString("category", mcplib.Required(), mcplib.Description("Category to evolve: facts, preferences, skills, rules, or context")),
	)
	return mcpserver.ServerTool{Tool: tool, Handler: s.handleEvolveCategory}
}

func (s *Server) handleEvolveCategory(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) { //nolint:gocritic
	if s.deps.Evolution == nil {
		return mcplib.NewToolResultError("evolution engine not configured"), nil
	}
	args := req.GetArguments()
	category := domainevolution.Category(argString(args, "category", ""))
	if !domainevolution.ValidCategory(category) {
		return mcplib.NewToolResultError(fmt.Sprintf("unknown category %q", category)), nil
	}

	var memories []evolution.Memory
	if raw, ok := args["memories"].([]any); ok {
		memories = make([]evolution.Memory, 0, len(raw))
		for _, item := range raw {
			m, ok := item.(map[string]any)
			if !ok {
				continue
			}
			memories = append(memories, evolution.Memory{
				ID:        argString(m, "id", ""),
				Content:   argString(m, "content", ""),
				Embedding: argFloatSlice(m, "embedding"),
			})
		}
	}

	ctx, span := otel.StartEvolutionSpan(ctx, string(category))
	defer span.End()

	snapshot, err := s.deps.Evolution.EvolveCategory(ctx, category, memories, configFromArgs(args))
	if err != nil {
		return mcplib.NewToolResultErrorFromErr("failed to evolve category", err), nil
	}

	if snapshot.SkippedReason == "" {
		if s.deps.Metrics != nil {
			s.deps.Metrics.CategoryEvolved.Add(ctx, 1, metric.WithAttributes(attribute.String("category", string(category))))
		}
		s.publish(ctx, messagequeue.SubjectCategoryEvolved, messagequeue.CategoryEvolvedPayload{
			Category:         string(category),
			SubcategoryCount: snapshot.AfterState.SubcategoryCount,
			MemoriesAffected: snapshot.AfterState.TotalMemories,
		})
	}
	return marshalResult(snapshot)
}

// configFromArgs builds an evolution.Config from an optional "config" object
// argument, falling back to the fixed values below for anything omitted.
// These values are not read from the loaded config's Evolution block.
func configFromArgs(args map[string]any) domainevolution.Config {
	cfg := domainevolution.Config{
		TemporalDecayEnabled: true,
		TemporalDecayDays:    90,
		DecayAccessThreshold: 2,
		ArchiveOption:        true,
		MinSilhouetteScore:   0.2,
		MinClusterSize:       5,
		MaxClusters:          20,
		SimilarityThreshold:  0.6,
		FingerprintThreshold: 0.5,
		MemoryCountThreshold: 10,
	}
	raw := argMap(args, "config")
	if raw == nil {
		return cfg
	}
	cfg.TemporalDecayEnabled = argBool(raw, "temporal_decay_enabled", cfg.TemporalDecayEnabled)
	cfg.TemporalDecayDays = argInt(raw, "temporal_decay_days", cfg.TemporalDecayDays)
	cfg.DecayAccessThreshold = argInt(raw, "decay_access_threshold", cfg.DecayAccessThreshold)
	cfg.ArchiveOption = argBool(raw, "archive_option", cfg.ArchiveOption)
	cfg.MinSilhouetteScore = argFloat(raw, "min_silhouette_score", cfg.MinSilhouetteScore)
	cfg.MinClusterSize = argInt(raw, "min_cluster_size", cfg.MinClusterSize)
	cfg.MaxClusters = argInt(raw, "max_clusters", cfg.MaxClusters)
	cfg.SimilarityThreshold = argFloat(raw, "similarity_threshold", cfg.SimilarityThreshold)
	cfg.FingerprintThreshold = argFloat(raw, "fingerprint_threshold", cfg.FingerprintThreshold)
	cfg.MemoryCountThreshold = argInt(raw, "memory_count_threshold", cfg.MemoryCountThreshold)
	return cfg
}

func marshalResult(v any) (*mcplib.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcplib.NewToolResultErrorFromErr("failed to marshal result", err), nil
	}
	return toolResultJSON(string(data)), nil
}
