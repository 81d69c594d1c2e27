package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	if cfg.Memory.EmbeddingDim != 384 {
		t.Errorf("expected embedding dim 384, got %d", cfg.Memory.EmbeddingDim)
	}
	if cfg.Breaker.Timeout != 30*time.Second {
		t.Errorf("expected breaker timeout 30s, got %v", cfg.Breaker.Timeout)
	}
	if cfg.Pool.WorkerCount != 3 {
		t.Errorf("expected pool worker count 3, got %d", cfg.Pool.WorkerCount)
	}
}

func TestLoadYAMLOverride(t *testing.T) {
	dir := t.TempDir()
	yamlPath := filepath.Join(dir, "test.yaml")

	content := `
postgres:
  max_conns: 20
logging:
  level: "debug"
memory:
  collection_name: "scratch"
`
	if err := os.WriteFile(yamlPath, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := Defaults()
	if err := loadYAML(&cfg, yamlPath); err != nil {
		t.Fatal(err)
	}

	if cfg.Postgres.MaxConns != 20 {
		t.Errorf("expected max_conns 20, got %d", cfg.Postgres.MaxConns)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("expected log level debug, got %s", cfg.Logging.Level)
	}
	if cfg.Memory.CollectionName != "scratch" {
		t.Errorf("expected collection_name scratch, got %s", cfg.Memory.CollectionName)
	}
	if cfg.NATS.URL != "nats://localhost:4222" {
		t.Errorf("expected default NATS URL, got %s", cfg.NATS.URL)
	}
}

func TestLoadYAMLMissing(t *testing.T) {
	cfg := Defaults()
	if err := loadYAML(&cfg, "/nonexistent/path.yaml"); err != nil {
		t.Errorf("missing YAML should not error, got %v", err)
	}
}

func TestEnvOverride(t *testing.T) {
	cfg := Defaults()

	t.Setenv("DATABASE_URL", "postgres://test:test@db:5432/test")
	t.Setenv("SESSION_BUDDY_PG_MAX_CONNS", "25")
	t.Setenv("SESSION_BUDDY_LOG_LEVEL", "warn")
	t.Setenv("SESSION_BUDDY_BREAKER_TIMEOUT", "1m")
	t.Setenv("SESSION_BUDDY_COLLECTION_NAME", "work")

	loadEnv(&cfg)

	if cfg.Postgres.DSN != "postgres://test:test@db:5432/test" {
		t.Errorf("expected test DSN, got %s", cfg.Postgres.DSN)
	}
	if cfg.Postgres.MaxConns != 25 {
		t.Errorf("expected max_conns 25, got %d", cfg.Postgres.MaxConns)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("expected log level warn, got %s", cfg.Logging.Level)
	}
	if cfg.Breaker.Timeout != time.Minute {
		t.Errorf("expected breaker timeout 1m, got %v", cfg.Breaker.Timeout)
	}
	if cfg.Memory.CollectionName != "work" {
		t.Errorf("expected collection_name work, got %s", cfg.Memory.CollectionName)
	}
}

func TestValidateRequired(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		errMsg string
	}{
		{"empty DSN", func(c *Config) { c.Postgres.DSN = "" }, "postgres.dsn is required"},
		{"zero max_conns", func(c *Config) { c.Postgres.MaxConns = 0 }, "postgres.max_conns must be >= 1"},
		{"zero breaker failures", func(c *Config) { c.Breaker.MaxFailures = 0 }, "breaker.max_failures must be >= 1"},
		{"zero embedding dim", func(c *Config) { c.Memory.EmbeddingDim = 0 }, "memory.embedding_dim must be >= 1"},
		{"bad transport", func(c *Config) { c.MCP.Transport = "carrier-pigeon" }, "mcp.transport must be stdio or http"},
		{"bad force method", func(c *Config) { c.Akosha.ForceMethod = "teleport" }, "akosha.force_method must be one of auto, cloud, http"},
		{
			"cloud forced without bucket",
			func(c *Config) { c.Akosha.ForceMethod = "cloud"; c.Akosha.CloudBucket = "" },
			"akosha.force_method=cloud requires akosha.cloud_bucket",
		},
		{
			"cluster bounds inverted",
			func(c *Config) { c.Evolution.MinClusterSize = 99; c.Evolution.MaxClusters = 1 },
			"evolution.min_cluster_size must be <= evolution.max_clusters",
		},
		{"zero pool workers", func(c *Config) { c.Pool.WorkerCount = 0 }, "pool.worker_count must be >= 1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.modify(&cfg)
			err := validate(&cfg)
			if err == nil {
				t.Fatalf("expected error %q, got nil", tt.errMsg)
			}
			if err.Error() != tt.errMsg {
				t.Errorf("expected %q, got %q", tt.errMsg, err.Error())
			}
		})
	}
}

func TestValidateDefaults(t *testing.T) {
	cfg := Defaults()
	if err := validate(&cfg); err != nil {
		t.Errorf("defaults should validate, got %v", err)
	}
}
