package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/lesleslie/session-buddy/internal/adapter/httpsync"
	"github.com/lesleslie/session-buddy/internal/adapter/mcp"
	cbnats "github.com/lesleslie/session-buddy/internal/adapter/nats"
	"github.com/lesleslie/session-buddy/internal/adapter/natskv"
	"github.com/lesleslie/session-buddy/internal/adapter/objectstore"
	"github.com/lesleslie/session-buddy/internal/adapter/otel"
	"github.com/lesleslie/session-buddy/internal/adapter/postgres"
	"github.com/lesleslie/session-buddy/internal/adapter/ristretto"
	"github.com/lesleslie/session-buddy/internal/adapter/tiered"
	"github.com/lesleslie/session-buddy/internal/config"
	domainsync "github.com/lesleslie/session-buddy/internal/domain/sync"
	"github.com/lesleslie/session-buddy/internal/embedder"
	"github.com/lesleslie/session-buddy/internal/evolution"
	"github.com/lesleslie/session-buddy/internal/fingerprint"
	"github.com/lesleslie/session-buddy/internal/git"
	"github.com/lesleslie/session-buddy/internal/logger"
	"github.com/lesleslie/session-buddy/internal/pool"
	"github.com/lesleslie/session-buddy/internal/port/messagequeue"
	"github.com/lesleslie/session-buddy/internal/resilience"
	"github.com/lesleslie/session-buddy/internal/sync"
)

func main() {
	// Temporary bootstrap logger until config is loaded.
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})))

	if err := run(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	flags, err := config.ParseFlags(nil)
	if err != nil {
		return fmt.Errorf("flags: %w", err)
	}

	cfg, _, err := config.LoadWithCLI(flags)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	// Replace bootstrap logger with configured one.
	log, logCloser := logger.New(cfg.Logging)
	slog.SetDefault(log)
	defer logCloser.Close()

	mcpAddr := fmt.Sprintf(":%d", cfg.MCP.ServerPort)

	slog.Info("config loaded",
		"mcp_addr", mcpAddr,
		"log_level", cfg.Logging.Level,
		"pg_max_conns", cfg.Postgres.MaxConns,
	)

	ctx := context.Background()

	otelShutdown, err := otel.InitTracer(otel.OTELConfig{
		Enabled:     cfg.OTEL.Enabled,
		Endpoint:    cfg.OTEL.Endpoint,
		ServiceName: cfg.OTEL.ServiceName,
		Insecure:    cfg.OTEL.Insecure,
		SampleRate:  cfg.OTEL.SampleRate,
	})
	if err != nil {
		return fmt.Errorf("otel: %w", err)
	}
	metrics, err := otel.NewMetrics()
	if err != nil {
		return fmt.Errorf("otel metrics: %w", err)
	}

	// --- Infrastructure ---

	pgPool, err := postgres.NewPool(ctx, cfg.Postgres)
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	slog.Info("postgres connected")

	// Run migrations
	if err := postgres.RunMigrations(ctx, cfg.Postgres.DSN); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	slog.Info("migrations applied")

	// NATS
	queue, err := cbnats.ConnectWithStream(ctx, cfg.NATS.URL, cfg.NATS.StreamName)
	if err != nil {
		return fmt.Errorf("nats: %w", err)
	}
	breaker := resilience.NewBreaker(cfg.Breaker.MaxFailures, cfg.Breaker.Timeout)
	queue.SetBreaker(breaker)
	slog.Info("nats connected")

	// Two-tier fingerprint cache: ristretto in-process, NATS KV remote.
	l1, err := ristretto.New(cfg.Cache.L1MaxSizeMB * 1024 * 1024)
	if err != nil {
		return fmt.Errorf("l1 cache: %w", err)
	}
	defer l1.Close()

	kv, err := queue.EnsureKVBucket(ctx, cfg.NATS.KVBucket, cfg.Cache.L2TTL)
	if err != nil {
		return fmt.Errorf("l2 cache bucket: %w", err)
	}
	l2 := natskv.New(kv)
	fingerprintCache := fingerprint.NewCachingComputer(tiered.New(l1, l2, cfg.Cache.L2TTL))

	// --- Memory store (C4) ---
	embed := embedder.NewLocal(cfg.Memory.EmbeddingDim)
	store := postgres.NewStore(pgPool, embed).WithFingerprintCache(fingerprintCache)
	if err := store.Open(ctx, cfg.Memory.CollectionName); err != nil {
		return fmt.Errorf("open collection %q: %w", cfg.Memory.CollectionName, err)
	}
	slog.Info("memory store ready", "collection", cfg.Memory.CollectionName)

	gitPool := git.NewPool(cfg.Git.MaxConcurrent)

	// --- Worker pool (C5/C6) ---
	// pool.Pool fixes its worker count at 3; pool.worker_count instead
	// controls how many pools the manager starts, so routing strategies
	// have more than one candidate to pick from.
	manager := pool.GetOrCreateManager(checkpointExecutor(gitPool, queue, cfg.Memory.CollectionName))
	poolCount := cfg.Pool.WorkerCount
	if poolCount < 1 {
		poolCount = 1
	}
	for i := 0; i < poolCount; i++ {
		if _, err := manager.CreatePool(ctx, fmt.Sprintf("pool-%d", i)); err != nil {
			return fmt.Errorf("create pool %d: %w", i, err)
		}
	}
	slog.Info("worker pools started", "count", poolCount)

	// --- Category evolution (C9) ---
	subcategories := postgres.NewSubcategoryAdapter(store, cfg.Memory.CollectionName)
	evolutionEngine := evolution.GetOrCreateEngine(subcategories, nil)

	// --- Hybrid sync (C7/C8) ---
	domainSyncCfg := buildSyncConfig(cfg.Akosha)

	var cloudMethod domainsync.Method
	if domainSyncCfg.CloudConfigured() {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Akosha.CloudRegion))
		if err != nil {
			return fmt.Errorf("aws config: %w", err)
		}
		endpoint := cfg.Akosha.CloudEndpoint
		s3Client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
			if endpoint != "" {
				o.BaseEndpoint = &endpoint
			}
		})
		cloudMethod, err = objectstore.NewCloudSyncMethod(s3Client, domainSyncCfg, store, breaker)
		if err != nil {
			return fmt.Errorf("cloud sync method: %w", err)
		}
	}
	httpMethod := httpsync.NewHttpSyncMethod(domainSyncCfg, store, breaker)
	hybridSync := sync.NewHybridAkoshaSync(log, cloudMethod, httpMethod)

	// --- MCP server ---
	mcpServer := mcp.NewServer(mcp.ServerConfig{
		Addr:   mcpAddr,
		Name:   cfg.OTEL.ServiceName,
		APIKey: os.Getenv("SESSION_BUDDY_API_KEY"),
	}, mcp.ServerDeps{
		Memory:    store,
		Pool:      manager,
		Sync:      hybridSync,
		Evolution: evolutionEngine,
		Events:    queue,
		Metrics:   metrics,
	})

	if err := mcpServer.Start(); err != nil {
		return fmt.Errorf("start mcp server: %w", err)
	}
	slog.Info("mcp server started", "addr", mcpAddr)

	cancelEvents, err := subscribeDomainEvents(ctx, queue, metrics)
	if err != nil {
		return fmt.Errorf("subscribe domain events: %w", err)
	}

	// Wait for interrupt signal
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)
	<-done

	// --- Ordered Graceful Shutdown ---
	// Phase 1: Stop accepting new MCP requests
	slog.Info("shutdown phase 1: stopping mcp server")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := mcpServer.Stop(shutdownCtx); err != nil {
		slog.Error("mcp shutdown error", "error", err)
	}

	// Phase 2: Cancel NATS subscribers (stop processing new messages)
	slog.Info("shutdown phase 2: cancelling nats subscribers")
	cancelEvents()

	// Phase 3: Drain NATS (flush pending publishes, wait for acks)
	slog.Info("shutdown phase 3: draining nats connection")
	if err := queue.Drain(); err != nil {
		slog.Error("nats drain error", "error", err)
	}

	// Phase 4: Close database (last, so in-flight queries can complete)
	slog.Info("shutdown phase 4: closing database pool")
	pgPool.Close()

	if otelShutdown != nil {
		if err := otelShutdown(shutdownCtx); err != nil {
			slog.Error("otel shutdown error", "error", err)
		}
	}

	slog.Info("shutdown complete")
	return nil
}

// buildSyncConfig converts the YAML/ENV-facing Akosha config into the
// domain sync.Config the hybrid orchestrator and its methods consume.
func buildSyncConfig(a config.Akosha) domainsync.Config {
	force := domainsync.ForceAuto
	switch a.ForceMethod {
	case "cloud":
		force = domainsync.ForceCloud
	case "http":
		force = domainsync.ForceHTTP
	}
	return domainsync.Config{
		CloudBucket:          a.CloudBucket,
		CloudEndpoint:        a.CloudEndpoint,
		CloudRegion:          a.CloudRegion,
		SystemID:             a.SystemID,
		UploadOnSessionEnd:   a.UploadOnSessionEnd,
		EnableFallback:       a.EnableFallback,
		ForceMethod:          force,
		UploadTimeoutSeconds: a.UploadTimeoutSeconds,
		MaxRetries:           a.MaxRetries,
		RetryBackoffSeconds:  a.RetryBackoffSeconds,
		EnableCompression:    a.EnableCompression,
		EnableDeduplication:  a.EnableDeduplication,
		ChunkSizeMB:          a.ChunkSizeMB,
		HTTPEndpoint:         a.HTTPEndpoint,
		HTTPProbeTimeoutMS:   int(a.HTTPProbeTimeout / time.Millisecond),
	}
}

// checkpointExecutor adapts git checkpoint commits to pool.Executor: a
// routed task's prompt names the project and its context carries the
// working directory and quality score. Any other kind of delegated work
// is this coordinator's out-of-scope execute_task_logic collaborator.
func checkpointExecutor(gitPool *git.Pool, queue *cbnats.Queue, collection string) pool.Executor {
	return func(ctx context.Context, prompt string, taskCtx map[string]any) (any, error) {
		dir, _ := taskCtx["dir"].(string)
		if dir == "" {
			return nil, fmt.Errorf("checkpoint task requires a %q context value", "dir")
		}
		var quality int
		switch q := taskCtx["quality_score"].(type) {
		case float64:
			quality = int(q)
		case int:
			quality = q
		}
		outcome, err := git.CreateCheckpointCommit(ctx, gitPool, dir, prompt, quality)
		if err != nil {
			return outcome, err
		}
		if outcome.Result != git.CleanResult {
			publishEvent(ctx, queue, messagequeue.SubjectCheckpointCreated, messagequeue.CheckpointCreatedPayload{
				ID:         outcome.Result,
				Collection: collection,
				Kind:       "checkpoint",
			})
		}
		return outcome, nil
	}
}

// publishEvent logs instead of failing the caller when the queue can't
// accept the event: the underlying operation already committed.
func publishEvent(ctx context.Context, queue *cbnats.Queue, subject string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		slog.Error("marshal domain event", "subject", subject, "error", err)
		return
	}
	if err := queue.Publish(ctx, subject, data); err != nil {
		slog.Error("publish domain event", "subject", subject, "error", err)
	}
}

// subscribeDomainEvents records pool task failures as metrics, so
// dashboards see them even when nothing polls the health tools directly.
func subscribeDomainEvents(ctx context.Context, queue *cbnats.Queue, metrics *otel.Metrics) (func(), error) {
	return queue.Subscribe(ctx, messagequeue.SubjectPoolTaskFailed, func(_ context.Context, _ string, data []byte) error {
		var payload messagequeue.PoolTaskFailedPayload
		if err := json.Unmarshal(data, &payload); err != nil {
			return err
		}
		metrics.PoolTasksFailed.Add(ctx, 1)
		slog.Warn("pool task failed", "pool_id", payload.PoolID, "task_id", payload.TaskID)
		return nil
	})
}
