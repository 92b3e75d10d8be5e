// Package config provides the service's configuration structure. It
// demonstrates the same practices the teacher's configuration package used:
// logical grouping, struct-tag validation, sensible defaults, and explicit
// environment overrides — now describing the memory service's own domain
// (ranking, classification, rate limiting, coordinator, storage) instead of
// an HTTP/DynamoDB backend.
package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config is the complete service configuration.
type Config struct {
	Environment    Environment    `yaml:"environment" json:"environment" validate:"required,oneof=development staging production"`
	Server         Server         `yaml:"server" json:"server" validate:"required,dive"`
	Storage        Storage        `yaml:"storage" json:"storage" validate:"required,dive"`
	SizeLimits     SizeLimits     `yaml:"sizeLimits" json:"sizeLimits" validate:"required,dive"`
	Query          Query          `yaml:"query" json:"query" validate:"required,dive"`
	Ranking        Ranking        `yaml:"ranking" json:"ranking" validate:"required,dive"`
	Classification Classification `yaml:"classification" json:"classification" validate:"required,dive"`
	Capture        Capture        `yaml:"capture" json:"capture" validate:"required,dive"`
	Consolidation  Consolidation  `yaml:"consolidation" json:"consolidation" validate:"required,dive"`
	Coordinator    Coordinator    `yaml:"coordinator" json:"coordinator" validate:"required,dive"`
	RateLimiter    RateLimiter    `yaml:"rateLimiter" json:"rateLimiter" validate:"required,dive"`
	AutoContext    AutoContext    `yaml:"autoContext" json:"autoContext" validate:"required,dive"`
	Embedding      Embedding      `yaml:"embedding" json:"embedding" validate:"dive"`
	Logging        Logging        `yaml:"logging" json:"logging" validate:"dive"`
	Metrics        Metrics        `yaml:"metrics" json:"metrics" validate:"dive"`
	Tracing        Tracing        `yaml:"tracing" json:"tracing" validate:"dive"`
	Worker         Worker         `yaml:"worker" json:"worker" validate:"dive"`
	EventBus       EventBus       `yaml:"eventBus" json:"eventBus" validate:"dive"`

	Version    string   `yaml:"version" json:"version"`
	LoadedFrom []string `yaml:"-" json:"-"`
}

// Environment represents the deployment environment.
type Environment string

const (
	Development Environment = "development"
	Staging     Environment = "staging"
	Production  Environment = "production"
)

// Server carries the minimal health/metrics HTTP surface (not the MCP tool
// surface, which is external per spec section 1).
type Server struct {
	Port            int           `yaml:"port" json:"port" validate:"required,min=1,max=65535"`
	Host            string        `yaml:"host" json:"host" validate:"required"`
	ReadTimeout     time.Duration `yaml:"readTimeout" json:"readTimeout" validate:"required,min=1s"`
	WriteTimeout    time.Duration `yaml:"writeTimeout" json:"writeTimeout" validate:"required,min=1s"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout" json:"shutdownTimeout" validate:"required,min=1s"`
}

// Storage configures the embedded relational store and vector index.
type Storage struct {
	SQLitePath       string        `yaml:"sqlitePath" json:"sqlitePath" validate:"required"`
	VectorIndexPath  string        `yaml:"vectorIndexPath" json:"vectorIndexPath" validate:"required"`
	WriterQueueDepth int           `yaml:"writerQueueDepth" json:"writerQueueDepth" validate:"min=1"`
	BusyTimeout      time.Duration `yaml:"busyTimeout" json:"busyTimeout" validate:"min=0"`
	MigrateOnStartup bool          `yaml:"migrateOnStartup" json:"migrateOnStartup"`
}

// SizeLimits mirrors spec section 6.3's SIZE_LIMITS block.
type SizeLimits struct {
	NameMaxLength         int `yaml:"nameMaxLength" json:"nameMaxLength" validate:"min=1"`
	TitleMaxLength        int `yaml:"titleMaxLength" json:"titleMaxLength" validate:"min=1"`
	DescriptionMaxLength  int `yaml:"descriptionMaxLength" json:"descriptionMaxLength" validate:"min=1"`
	ContentMaxLength      int `yaml:"contentMaxLength" json:"contentMaxLength" validate:"min=1"`
	MetadataMaxBytes      int `yaml:"metadataMaxBytes" json:"metadataMaxBytes" validate:"min=1"`
	TagsMaxCount          int `yaml:"tagsMaxCount" json:"tagsMaxCount" validate:"min=1"`
	ExamplesMaxCount      int `yaml:"examplesMaxCount" json:"examplesMaxCount" validate:"min=1"`
	BulkOperationMax      int `yaml:"bulkOperationMax" json:"bulkOperationMax" validate:"min=1"`
	RegexPatternMaxLength int `yaml:"regexPatternMaxLength" json:"regexPatternMaxLength" validate:"min=1"`
}

// Query configures the retrieval pipeline's pagination and channel caps.
type Query struct {
	DefaultLimit        int           `yaml:"defaultLimit" json:"defaultLimit" validate:"min=1"`
	MaxLimit            int           `yaml:"maxLimit" json:"maxLimit" validate:"min=1"`
	MaxOffset           int           `yaml:"maxOffset" json:"maxOffset" validate:"min=0"`
	TopKSemantic        int           `yaml:"topKSemantic" json:"topKSemantic" validate:"min=1"`
	MaxRelationDepth    int           `yaml:"maxRelationDepth" json:"maxRelationDepth" validate:"min=1,max=10"`
	CacheTTL            time.Duration `yaml:"cacheTTL" json:"cacheTTL" validate:"min=0"`
	CacheMaxItems       int64         `yaml:"cacheMaxItems" json:"cacheMaxItems" validate:"min=1"`
	DuplicateSimilarity float64       `yaml:"duplicateSimilarity" json:"duplicateSimilarity" validate:"min=0,max=1"`
	RerankEnabled       bool          `yaml:"rerankEnabled" json:"rerankEnabled"`
	RerankTopK          int           `yaml:"rerankTopK" json:"rerankTopK" validate:"min=1"`
	QueryRewriteEnabled bool          `yaml:"queryRewriteEnabled" json:"queryRewriteEnabled"`
}

// Ranking holds the fused-score weights from spec section 4.2 step 5. These
// are configuration, not constants, per the Open Question resolution.
type Ranking struct {
	KeywordWeight   float64 `yaml:"keywordWeight" json:"keywordWeight" validate:"min=0,max=1"`
	SemanticWeight  float64 `yaml:"semanticWeight" json:"semanticWeight" validate:"min=0,max=1"`
	PriorityWeight  float64 `yaml:"priorityWeight" json:"priorityWeight" validate:"min=0,max=1"`
	FreshnessWeight float64 `yaml:"freshnessWeight" json:"freshnessWeight" validate:"min=0,max=1"`
}

// Classification configures the hybrid pattern/LLM classifier.
type Classification struct {
	HighConfidenceThreshold float64       `yaml:"highConfidenceThreshold" json:"highConfidenceThreshold" validate:"min=0,max=1"`
	LowConfidenceThreshold  float64       `yaml:"lowConfidenceThreshold" json:"lowConfidenceThreshold" validate:"min=0,max=1"`
	EnableLLMFallback       bool          `yaml:"enableLLMFallback" json:"enableLLMFallback"`
	PreferLLM               bool          `yaml:"preferLLM" json:"preferLLM"`
	MaxPatternBoost         float64       `yaml:"maxPatternBoost" json:"maxPatternBoost" validate:"min=0,max=1"`
	MaxPatternPenalty       float64       `yaml:"maxPatternPenalty" json:"maxPatternPenalty" validate:"min=0,max=1"`
	LearningRate            float64       `yaml:"learningRate" json:"learningRate" validate:"min=0,max=1"`
	FeedbackDecayDays       int           `yaml:"feedbackDecayDays" json:"feedbackDecayDays" validate:"min=1"`
	CacheSize               int           `yaml:"cacheSize" json:"cacheSize" validate:"min=1"`
	CacheTTL                time.Duration `yaml:"cacheTTL" json:"cacheTTL" validate:"min=0"`
}

// Capture configures trigger detection and the missed-extraction sweep.
type Capture struct {
	TriggerConfidenceCeiling float64 `yaml:"triggerConfidenceCeiling" json:"triggerConfidenceCeiling" validate:"min=0,max=1"`
	SweepMinMessages         int     `yaml:"sweepMinMessages" json:"sweepMinMessages" validate:"min=1"`
	SweepConfidenceThreshold float64 `yaml:"sweepConfidenceThreshold" json:"sweepConfidenceThreshold" validate:"min=0,max=1"`
	SweepMaxEntries          int     `yaml:"sweepMaxEntries" json:"sweepMaxEntries" validate:"min=1"`
	AutoStoreOnSweep         bool    `yaml:"autoStoreOnSweep" json:"autoStoreOnSweep"`
}

// Consolidation configures duplicate grouping, community detection, and DPO export.
type Consolidation struct {
	SimilarityThreshold float64 `yaml:"similarityThreshold" json:"similarityThreshold" validate:"min=0,max=1"`
	MaxIterations       int     `yaml:"maxIterations" json:"maxIterations" validate:"min=1"`
	MinCommunitySize    int     `yaml:"minCommunitySize" json:"minCommunitySize" validate:"min=1"`
	RandomSeed          uint64  `yaml:"randomSeed" json:"randomSeed"`
	MinRewardDelta      float64 `yaml:"minRewardDelta" json:"minRewardDelta" validate:"min=0"`
	MinPairCount        int     `yaml:"minPairCount" json:"minPairCount" validate:"min=1"`
}

// Coordinator configures the memory coordinator's eviction policy.
type Coordinator struct {
	CheckInterval     time.Duration `yaml:"checkInterval" json:"checkInterval" validate:"min=1s"`
	PressureThreshold float64       `yaml:"pressureThreshold" json:"pressureThreshold" validate:"min=0,max=1"`
	EvictionTarget    float64       `yaml:"evictionTarget" json:"evictionTarget" validate:"min=0,max=1"`
	TotalLimitMB      int64         `yaml:"totalLimitMB" json:"totalLimitMB" validate:"min=1"`
}

// RateLimiter configures local/remote rate limiting and fail modes.
type RateLimiter struct {
	Mode               string        `yaml:"mode" json:"mode" validate:"oneof=local remote"`
	FailMode           string        `yaml:"failMode" json:"failMode" validate:"oneof=closed local-fallback open"`
	MaxRequests        int           `yaml:"maxRequests" json:"maxRequests" validate:"min=1"`
	WindowMs           int64         `yaml:"windowMs" json:"windowMs" validate:"min=1"`
	MinBurstProtection int           `yaml:"minBurstProtection" json:"minBurstProtection" validate:"min=0"`
	MaxResidentKeys    int           `yaml:"maxResidentKeys" json:"maxResidentKeys" validate:"min=1"`
	RedisAddr          string        `yaml:"redisAddr" json:"redisAddr"`
	BreakerTimeout     time.Duration `yaml:"breakerTimeout" json:"breakerTimeout" validate:"min=0"`
}

// AutoContext configures working-directory/environment detection.
type AutoContext struct {
	Enabled        bool          `yaml:"enabled" json:"enabled"`
	AutoSession    bool          `yaml:"autoSession" json:"autoSession"`
	DefaultAgentID string        `yaml:"defaultAgentId" json:"defaultAgentId"`
	CacheTTL       time.Duration `yaml:"cacheTTL" json:"cacheTTL" validate:"min=0"`
}

// Embedding selects the embedding provider (consumed via internal/embedding.Provider).
type Embedding struct {
	Provider  string `yaml:"provider" json:"provider"`
	Model     string `yaml:"model" json:"model"`
	Dimension int    `yaml:"dimension" json:"dimension" validate:"min=0"`
}

// Logging configures zap.
type Logging struct {
	Level  string `yaml:"level" json:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" json:"format" validate:"oneof=json console"`
}

// Metrics configures the Prometheus exporter.
type Metrics struct {
	Enabled   bool   `yaml:"enabled" json:"enabled"`
	Namespace string `yaml:"namespace" json:"namespace"`
	Path      string `yaml:"path" json:"path"`
}

// Tracing configures the OpenTelemetry exporter.
type Tracing struct {
	Enabled     bool    `yaml:"enabled" json:"enabled"`
	ServiceName string  `yaml:"serviceName" json:"serviceName"`
	Endpoint    string  `yaml:"endpoint" json:"endpoint"`
	SampleRate  float64 `yaml:"sampleRate" json:"sampleRate" validate:"min=0,max=1"`
}

// Worker configures the bounded async side-effect queue.
type Worker struct {
	PoolSize  int `yaml:"poolSize" json:"poolSize" validate:"min=1"`
	QueueSize int `yaml:"queueSize" json:"queueSize" validate:"min=1"`
}

// EventBus configures the optional EventBridge-backed notification bus.
type EventBus struct {
	Enabled      bool   `yaml:"enabled" json:"enabled"`
	EventBusName string `yaml:"eventBusName" json:"eventBusName"`
	Region       string `yaml:"region" json:"region"`
}

var validate = validator.New()

// Validate runs struct-tag validation over the full configuration tree.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	if c.Ranking.KeywordWeight+c.Ranking.SemanticWeight+c.Ranking.PriorityWeight+c.Ranking.FreshnessWeight <= 0 {
		return fmt.Errorf("configuration validation failed: ranking weights must sum to a positive value")
	}
	if c.Coordinator.EvictionTarget > c.Coordinator.PressureThreshold {
		return fmt.Errorf("configuration validation failed: coordinator.evictionTarget must be <= pressureThreshold")
	}
	return nil
}
