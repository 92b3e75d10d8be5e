// This file demonstrates the same layered configuration loading the teacher
// used: defaults, then a base file, then an environment-specific file, then
// environment variables — now producing a Config describing the memory
// service instead of an HTTP/DynamoDB backend.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Loader loads configuration from a directory of YAML files plus
// environment-variable overrides.
type Loader struct {
	basePath    string
	environment Environment
	sources     []string
}

// NewLoader creates a configuration loader rooted at basePath.
func NewLoader(basePath string, env Environment) *Loader {
	if basePath == "" {
		basePath = "config"
	}
	return &Loader{basePath: basePath, environment: env, sources: make([]string, 0, 4)}
}

// Load resolves the final configuration: defaults -> base.yaml ->
// <environment>.yaml -> environment variables.
func (l *Loader) Load() (*Config, error) {
	cfg := DefaultConfig(l.environment)
	l.sources = append(l.sources, "defaults")

	if err := l.loadFile("base", cfg); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load base config: %w", err)
	}
	envFile := strings.ToLower(string(l.environment))
	if err := l.loadFile(envFile, cfg); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load %s config: %w", envFile, err)
	}

	l.loadEnvironmentVariables(cfg)
	l.sources = append(l.sources, "environment")

	cfg.LoadedFrom = l.sources
	cfg.Version = "1.0.0"

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (l *Loader) loadFile(name string, cfg *Config) error {
	path := filepath.Join(l.basePath, name+".yaml")
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	l.sources = append(l.sources, path)
	return nil
}

// loadEnvironmentVariables overlays the highest-priority source: the
// process environment. Only the fields operators most commonly need to
// override without editing YAML are wired here.
func (l *Loader) loadEnvironmentVariables(cfg *Config) {
	if v := os.Getenv("MEMORYD_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("MEMORYD_SQLITE_PATH"); v != "" {
		cfg.Storage.SQLitePath = v
	}
	if v := os.Getenv("MEMORYD_VECTOR_INDEX_PATH"); v != "" {
		cfg.Storage.VectorIndexPath = v
	}
	if v := os.Getenv("MEMORYD_RATE_LIMITER_MODE"); v != "" {
		cfg.RateLimiter.Mode = v
	}
	if v := os.Getenv("MEMORYD_RATE_LIMITER_REDIS_ADDR"); v != "" {
		cfg.RateLimiter.RedisAddr = v
	}
	if v := os.Getenv("MEMORYD_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("MEMORYD_EMBEDDING_PROVIDER"); v != "" {
		cfg.Embedding.Provider = v
	}
}

// DefaultConfig returns the spec's stated defaults for every tunable.
func DefaultConfig(env Environment) *Config {
	return &Config{
		Environment: env,
		Server: Server{
			Port:            8090,
			Host:            "127.0.0.1",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    10 * time.Second,
			ShutdownTimeout: 5 * time.Second,
		},
		Storage: Storage{
			SQLitePath:       "./data/memoryd.db",
			VectorIndexPath:  "./data/vectors.bolt",
			WriterQueueDepth: 1,
			BusyTimeout:      5 * time.Second,
			MigrateOnStartup: true,
		},
		SizeLimits: SizeLimits{
			NameMaxLength:         100,
			TitleMaxLength:        200,
			DescriptionMaxLength:  1000,
			ContentMaxLength:      50_000,
			MetadataMaxBytes:      16_384,
			TagsMaxCount:          20,
			ExamplesMaxCount:      10,
			BulkOperationMax:      100,
			RegexPatternMaxLength: 500,
		},
		Query: Query{
			DefaultLimit:        20,
			MaxLimit:            100,
			MaxOffset:           10_000,
			TopKSemantic:        20,
			MaxRelationDepth:    10,
			CacheTTL:            5 * time.Minute,
			CacheMaxItems:       10_000,
			DuplicateSimilarity: 0.92,
			RerankEnabled:       false,
			RerankTopK:          20,
			QueryRewriteEnabled: false,
		},
		Ranking: Ranking{
			KeywordWeight:   0.45,
			SemanticWeight:  0.35,
			PriorityWeight:  0.10,
			FreshnessWeight: 0.10,
		},
		Classification: Classification{
			HighConfidenceThreshold: 0.85,
			LowConfidenceThreshold:  0.6,
			EnableLLMFallback:       true,
			PreferLLM:               false,
			MaxPatternBoost:         0.15,
			MaxPatternPenalty:       0.3,
			LearningRate:            0.05,
			FeedbackDecayDays:       30,
			CacheSize:               500,
			CacheTTL:                5 * time.Minute,
		},
		Capture: Capture{
			TriggerConfidenceCeiling: 0.9,
			SweepMinMessages:         3,
			SweepConfidenceThreshold: 0.7,
			SweepMaxEntries:          10,
			AutoStoreOnSweep:         false,
		},
		Consolidation: Consolidation{
			SimilarityThreshold: 0.85,
			MaxIterations:       50,
			MinCommunitySize:    2,
			RandomSeed:          42,
			MinRewardDelta:      0.1,
			MinPairCount:        1,
		},
		Coordinator: Coordinator{
			CheckInterval:     60 * time.Second,
			PressureThreshold: 0.8,
			EvictionTarget:    0.7,
			TotalLimitMB:      256,
		},
		RateLimiter: RateLimiter{
			Mode:               "local",
			FailMode:           "local-fallback",
			MaxRequests:        100,
			WindowMs:           60_000,
			MinBurstProtection: 0,
			MaxResidentKeys:    100_000,
			RedisAddr:          "localhost:6379",
			BreakerTimeout:     30 * time.Second,
		},
		AutoContext: AutoContext{
			Enabled:        true,
			AutoSession:    true,
			DefaultAgentID: "default-agent",
			CacheTTL:       5 * time.Second,
		},
		Embedding: Embedding{
			Provider:  "none",
			Model:     "",
			Dimension: 0,
		},
		Logging:  Logging{Level: "info", Format: "json"},
		Metrics:  Metrics{Enabled: true, Namespace: "memoryd", Path: "/metrics"},
		Tracing:  Tracing{Enabled: false, ServiceName: "memoryd", SampleRate: 0.1},
		Worker:   Worker{PoolSize: 4, QueueSize: 256},
		EventBus: EventBus{Enabled: false, EventBusName: "default", Region: "us-east-1"},
	}
}
