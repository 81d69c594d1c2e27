package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the path checked for YAML configuration.
const DefaultConfigFile = "session-buddy.yaml"

// CLIFlags holds command-line flag values. Nil pointers indicate unset
// flags that should not override the config.
type CLIFlags struct {
	ConfigPath *string
	LogLevel   *string
	DSN        *string
	Transport  *string
}

// ParseFlags parses command-line arguments into CLIFlags. Passing nil args
// parses os.Args[1:].
func ParseFlags(args []string) (CLIFlags, error) {
	var flags CLIFlags

	fs := flag.NewFlagSet("session-buddy", flag.ContinueOnError)
	configPath := fs.String("config", "", "path to YAML config file")
	fs.StringVar(configPath, "c", "", "path to YAML config file (shorthand)")
	logLevel := fs.String("log-level", "", "logging level (debug, info, warn, error)")
	dsn := fs.String("dsn", "", "PostgreSQL connection string")
	transport := fs.String("transport", "", "tool transport: stdio or http")

	if err := fs.Parse(args); err != nil {
		return flags, fmt.Errorf("parse flags: %w", err)
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "config", "c":
			flags.ConfigPath = configPath
		case "log-level":
			flags.LogLevel = logLevel
		case "dsn":
			flags.DSN = dsn
		case "transport":
			flags.Transport = transport
		}
	})

	return flags, nil
}

// Load returns a Config using the hierarchy: defaults < YAML < ENV.
func Load() (*Config, error) {
	return LoadFrom(DefaultConfigFile)
}

// LoadWithCLI returns a Config using the full hierarchy: defaults < YAML <
// ENV < CLI flags.
func LoadWithCLI(flags CLIFlags) (*Config, string, error) {
	yamlPath := DefaultConfigFile
	if flags.ConfigPath != nil {
		yamlPath = *flags.ConfigPath
	}

	cfg := Defaults()

	if err := loadYAML(&cfg, yamlPath); err != nil {
		return nil, "", fmt.Errorf("config yaml: %w", err)
	}

	loadEnv(&cfg)
	applyCLI(&cfg, flags)

	if err := validate(&cfg); err != nil {
		return nil, "", fmt.Errorf("config validate: %w", err)
	}

	return &cfg, yamlPath, nil
}

// LoadFrom returns a Config loaded from the given YAML path using the
// hierarchy: defaults < YAML < ENV. The YAML file is optional.
func LoadFrom(yamlPath string) (*Config, error) {
	cfg := Defaults()

	if err := loadYAML(&cfg, yamlPath); err != nil {
		return nil, fmt.Errorf("config yaml: %w", err)
	}

	loadEnv(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validate: %w", err)
	}

	return &cfg, nil
}

func applyCLI(cfg *Config, flags CLIFlags) {
	if flags.LogLevel != nil {
		cfg.Logging.Level = *flags.LogLevel
	}
	if flags.DSN != nil {
		cfg.Postgres.DSN = *flags.DSN
	}
	if flags.Transport != nil {
		cfg.MCP.Transport = *flags.Transport
	}
}

func loadYAML(cfg *Config, path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path is validated by caller
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	return nil
}

// loadEnv overlays SESSION_BUDDY_-prefixed (and a few conventional)
// environment variables onto cfg. Only non-empty env values override.
func loadEnv(cfg *Config) {
	setString(&cfg.Postgres.DSN, "DATABASE_URL")
	setInt32(&cfg.Postgres.MaxConns, "SESSION_BUDDY_PG_MAX_CONNS")
	setInt32(&cfg.Postgres.MinConns, "SESSION_BUDDY_PG_MIN_CONNS")
	setDuration(&cfg.Postgres.MaxConnLifetime, "SESSION_BUDDY_PG_MAX_CONN_LIFETIME")
	setDuration(&cfg.Postgres.MaxConnIdleTime, "SESSION_BUDDY_PG_MAX_CONN_IDLE_TIME")
	setDuration(&cfg.Postgres.HealthCheck, "SESSION_BUDDY_PG_HEALTH_CHECK")

	setString(&cfg.NATS.URL, "NATS_URL")
	setString(&cfg.NATS.KVBucket, "SESSION_BUDDY_NATS_KV_BUCKET")
	setString(&cfg.NATS.StreamName, "SESSION_BUDDY_NATS_STREAM")

	setString(&cfg.Logging.Level, "SESSION_BUDDY_LOG_LEVEL")
	setString(&cfg.Logging.Service, "SESSION_BUDDY_LOG_SERVICE")
	setBool(&cfg.Logging.Async, "SESSION_BUDDY_LOG_ASYNC")

	setInt(&cfg.Breaker.MaxFailures, "SESSION_BUDDY_BREAKER_MAX_FAILURES")
	setDuration(&cfg.Breaker.Timeout, "SESSION_BUDDY_BREAKER_TIMEOUT")

	setInt(&cfg.Git.MaxConcurrent, "SESSION_BUDDY_GIT_MAX_CONCURRENT")
	setString(&cfg.Git.PruneDelay, "SESSION_BUDDY_GIT_PRUNE_DELAY")
	setInt(&cfg.Git.GCAutoThreshold, "SESSION_BUDDY_GIT_GC_AUTO_THRESHOLD")

	setInt64(&cfg.Cache.L1MaxSizeMB, "SESSION_BUDDY_CACHE_L1_SIZE_MB")
	setDuration(&cfg.Cache.L2TTL, "SESSION_BUDDY_CACHE_L2_TTL")

	setBool(&cfg.OTEL.Enabled, "SESSION_BUDDY_OTEL_ENABLED")
	setString(&cfg.OTEL.Endpoint, "SESSION_BUDDY_OTEL_ENDPOINT")
	setFloat64(&cfg.OTEL.SampleRate, "SESSION_BUDDY_OTEL_SAMPLE_RATE")

	setString(&cfg.MCP.Transport, "SESSION_BUDDY_MCP_TRANSPORT")
	setInt(&cfg.MCP.ServerPort, "SESSION_BUDDY_MCP_PORT")

	setString(&cfg.Memory.CollectionName, "SESSION_BUDDY_COLLECTION_NAME")
	setString(&cfg.Memory.DatabasePath, "SESSION_BUDDY_DATABASE_PATH")
	setInt(&cfg.Memory.EmbeddingDim, "SESSION_BUDDY_EMBEDDING_DIM")
	setBool(&cfg.Memory.EnableEmbeddings, "SESSION_BUDDY_ENABLE_EMBEDDINGS")
	setBool(&cfg.Memory.EnableVSS, "SESSION_BUDDY_ENABLE_VSS")

	setString(&cfg.Akosha.CloudBucket, "SESSION_BUDDY_AKOSHA_CLOUD_BUCKET")
	setString(&cfg.Akosha.CloudEndpoint, "SESSION_BUDDY_AKOSHA_CLOUD_ENDPOINT")
	setString(&cfg.Akosha.CloudRegion, "SESSION_BUDDY_AKOSHA_CLOUD_REGION")
	setString(&cfg.Akosha.SystemID, "SESSION_BUDDY_AKOSHA_SYSTEM_ID")
	setString(&cfg.Akosha.ForceMethod, "SESSION_BUDDY_AKOSHA_FORCE_METHOD")
	setBool(&cfg.Akosha.EnableFallback, "SESSION_BUDDY_AKOSHA_ENABLE_FALLBACK")
	setBool(&cfg.Akosha.UploadOnSessionEnd, "SESSION_BUDDY_AKOSHA_UPLOAD_ON_SESSION_END")
	setInt(&cfg.Akosha.UploadTimeoutSeconds, "SESSION_BUDDY_AKOSHA_UPLOAD_TIMEOUT_SECONDS")
	setInt(&cfg.Akosha.MaxRetries, "SESSION_BUDDY_AKOSHA_MAX_RETRIES")
	setFloat64(&cfg.Akosha.RetryBackoffSeconds, "SESSION_BUDDY_AKOSHA_RETRY_BACKOFF_SECONDS")
	setBool(&cfg.Akosha.EnableCompression, "SESSION_BUDDY_AKOSHA_ENABLE_COMPRESSION")
	setBool(&cfg.Akosha.EnableDeduplication, "SESSION_BUDDY_AKOSHA_ENABLE_DEDUPLICATION")
	setInt(&cfg.Akosha.ChunkSizeMB, "SESSION_BUDDY_AKOSHA_CHUNK_SIZE_MB")
	setString(&cfg.Akosha.HTTPEndpoint, "SESSION_BUDDY_AKOSHA_HTTP_ENDPOINT")

	setBool(&cfg.Evolution.TemporalDecayEnabled, "SESSION_BUDDY_EVOLUTION_TEMPORAL_DECAY_ENABLED")
	setInt(&cfg.Evolution.TemporalDecayDays, "SESSION_BUDDY_EVOLUTION_TEMPORAL_DECAY_DAYS")
	setInt(&cfg.Evolution.DecayAccessThreshold, "SESSION_BUDDY_EVOLUTION_DECAY_ACCESS_THRESHOLD")
	setBool(&cfg.Evolution.ArchiveOption, "SESSION_BUDDY_EVOLUTION_ARCHIVE_OPTION")
	setFloat64(&cfg.Evolution.MinSilhouetteScore, "SESSION_BUDDY_EVOLUTION_MIN_SILHOUETTE_SCORE")
	setInt(&cfg.Evolution.MinClusterSize, "SESSION_BUDDY_EVOLUTION_MIN_CLUSTER_SIZE")
	setInt(&cfg.Evolution.MaxClusters, "SESSION_BUDDY_EVOLUTION_MAX_CLUSTERS")
	setFloat64(&cfg.Evolution.SimilarityThreshold, "SESSION_BUDDY_EVOLUTION_SIMILARITY_THRESHOLD")
	setFloat64(&cfg.Evolution.FingerprintThreshold, "SESSION_BUDDY_EVOLUTION_FINGERPRINT_THRESHOLD")

	setInt(&cfg.Pool.WorkerCount, "SESSION_BUDDY_POOL_WORKER_COUNT")
	setDuration(&cfg.Pool.QueuePollInterval, "SESSION_BUDDY_POOL_QUEUE_POLL_INTERVAL")
	setDuration(&cfg.Pool.IdleUnhealthy, "SESSION_BUDDY_POOL_IDLE_UNHEALTHY")
}

func validate(cfg *Config) error {
	if cfg.Postgres.DSN == "" {
		return errors.New("postgres.dsn is required")
	}
	if cfg.Postgres.MaxConns < 1 {
		return errors.New("postgres.max_conns must be >= 1")
	}
	if cfg.Breaker.MaxFailures < 1 {
		return errors.New("breaker.max_failures must be >= 1")
	}
	if cfg.Memory.EmbeddingDim < 1 {
		return errors.New("memory.embedding_dim must be >= 1")
	}
	if cfg.MCP.Transport != "stdio" && cfg.MCP.Transport != "http" {
		return errors.New("mcp.transport must be stdio or http")
	}
	switch cfg.Akosha.ForceMethod {
	case "auto", "cloud", "http":
	default:
		return errors.New("akosha.force_method must be one of auto, cloud, http")
	}
	if cfg.Akosha.ForceMethod == "cloud" && cfg.Akosha.CloudBucket == "" {
		return errors.New("akosha.force_method=cloud requires akosha.cloud_bucket")
	}
	if cfg.Evolution.MinClusterSize > cfg.Evolution.MaxClusters {
		return errors.New("evolution.min_cluster_size must be <= evolution.max_clusters")
	}
	if cfg.Pool.WorkerCount < 1 {
		return errors.New("pool.worker_count must be >= 1")
	}
	return nil
}

func hostnameOrDefault() string {
	if h, err := os.Hostname(); err == nil && h != "" {
		return h
	}
	if h := os.Getenv("HOSTNAME"); h != "" {
		return h
	}
	if h := os.Getenv("COMPUTERNAME"); h != "" {
		return h
	}
	return "session-buddy"
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}
func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}
func setInt32(dst *int32, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 32); err == nil {
			*dst = int32(n)
		}
	}
}
func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}
func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = n
		}
	}
}
func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}
func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
