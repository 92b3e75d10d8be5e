// Package di wires every service the daemon needs from a loaded
// internal/config.Config. Every long-lived dependency is constructed once
// here and passed explicitly into the types that need it (spec section 9:
// "constructed once in internal/di and passed explicitly into
// constructors -- never package-level vars"). Grounded on the teacher's
// internal/di package, which built its container the same way
// (config-driven constructor graph, no global state) for a DynamoDB/CQRS
// domain; this package keeps that shape and rebuilds the graph for the
// SQLite/repository domain the rest of this module implements.
package di

import (
	"context"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/agentmemory/memoryd/internal/capture"
	"github.com/agentmemory/memoryd/internal/classification"
	"github.com/agentmemory/memoryd/internal/config"
	"github.com/agentmemory/memoryd/internal/coordinator"
	"github.com/agentmemory/memoryd/internal/embedding"
	"github.com/agentmemory/memoryd/internal/eventbus"
	"github.com/agentmemory/memoryd/internal/extraction"
	"github.com/agentmemory/memoryd/internal/lockservice"
	"github.com/agentmemory/memoryd/internal/observability"
	"github.com/agentmemory/memoryd/internal/permission"
	"github.com/agentmemory/memoryd/internal/query"
	"github.com/agentmemory/memoryd/internal/ratelimit"
	"github.com/agentmemory/memoryd/internal/repository"
	"github.com/agentmemory/memoryd/internal/store/sqlite"
	"github.com/agentmemory/memoryd/internal/store/vectorindex"
	"github.com/agentmemory/memoryd/internal/validation"
	"github.com/agentmemory/memoryd/internal/worker"
)

// Container holds every constructed singleton the daemon's transport layer
// (cmd/memoryd) dispatches into. Nothing in here is a package-level var;
// every field is set exactly once by New.
type Container struct {
	Config *config.Config
	Log    *zap.Logger

	DB      *sqlite.DB
	Vectors *vectorindex.Index

	Entries       *repository.EntryRepository
	Tags          *repository.TagRepository
	Relations     *repository.RelationRepository
	Conversations *repository.ConversationRepository
	Episodes      *repository.EpisodeRepository
	Locks         *repository.LockRepository
	Feedback      *repository.FeedbackRepository
	Decisions     *repository.DecisionRepository

	Embedder  embedding.Provider
	Extractor extraction.Provider

	Classifier *classification.Classifier
	QueryCache *query.ResultCache
	Query      *query.Pipeline
	Capture    *capture.Pipeline
	Sweeper    *capture.Sweeper

	Coordinator *coordinator.Coordinator
	Locking     *lockservice.Service
	RateLimiter ratelimit.Limiter
	Permission  *permission.Service
	Workers     *worker.Pool
	Events      eventbus.Bus
	Notifier    *eventbus.Notifier

	Metrics *observability.Metrics

	redisClient *redis.Client
}

// New builds the full dependency graph from cfg. The returned Container
// owns every closeable resource it constructs; callers must defer Close.
func New(ctx context.Context, cfg *config.Config, log *zap.Logger) (*Container, error) {
	if log == nil {
		log = zap.NewNop()
	}

	db, err := sqlite.Open(ctx, cfg.Storage.SQLitePath, log)
	if err != nil {
		return nil, fmt.Errorf("di: open sqlite: %w", err)
	}

	vectors, err := vectorindex.Open(cfg.Storage.VectorIndexPath)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("di: open vector index: %w", err)
	}

	limits := limitsFromConfig(cfg)
	metrics := observability.NewMetrics(cfg.Metrics.Namespace)

	c := &Container{
		Config:  cfg,
		Log:     log,
		DB:      db,
		Vectors: vectors,
		Metrics: metrics,
	}

	c.Entries = repository.NewEntryRepository(db, limits, log)
	c.Tags = repository.NewTagRepository(db, log)
	c.Relations = repository.NewRelationRepository(db, log)
	c.Conversations = repository.NewConversationRepository(db, log)
	c.Episodes = repository.NewEpisodeRepository(db, log)
	c.Locks = repository.NewLockRepository(db, log)
	c.Feedback = repository.NewFeedbackRepository(db, log)
	c.Decisions = repository.NewDecisionRepository(db)

	// No concrete embedding/extraction provider ships with this module
	// (spec section 1 Non-goals); every caller already degrades through
	// the Unavailable stub when cfg.Embedding.Provider names nothing this
	// binary links in.
	c.Embedder = embedding.Unavailable{}
	c.Extractor = extraction.Unavailable{}

	c.Classifier = classification.New(classification.DefaultPatterns(), c.Feedback, c.Extractor, classificationConfig(cfg), log)

	queryCache, err := query.NewResultCache(cfg.Query.CacheMaxItems, metrics)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("di: new query cache: %w", err)
	}
	c.QueryCache = queryCache
	c.Query = query.New(c.Entries, c.Tags, c.Relations, c.Embedder, vectors, queryCache, limits, log)
	c.Sweeper = capture.NewSweeper(c.Conversations, c.Entries, c.Extractor, c.Embedder, vectors, log)

	c.Workers = worker.New(worker.Config{MaxWorkers: cfg.Worker.PoolSize, MaxQueueSize: cfg.Worker.QueueSize}, metrics, log)
	if cfg.EventBus.Enabled {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.EventBus.Region))
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("di: load AWS config for event bus: %w", err)
		}
		c.Events = eventbus.NewEventBridgeBus(eventbridge.NewFromConfig(awsCfg), cfg.EventBus.EventBusName, "memoryd", log)
	} else {
		c.Events = eventbus.Noop{}
	}
	c.Notifier = eventbus.NewNotifier(c.Events, c.Workers, log)
	c.Capture = capture.New(c.Classifier, c.Entries, c.Notifier, log)

	c.Coordinator = coordinator.New(coordinator.Config{
		CheckIntervalMs:   int(cfg.Coordinator.CheckInterval.Milliseconds()),
		TotalLimitMB:      int(cfg.Coordinator.TotalLimitMB),
		PressureThreshold: cfg.Coordinator.PressureThreshold,
		EvictionTarget:    cfg.Coordinator.EvictionTarget,
	}, metrics, log)
	c.Coordinator.Register("query", 5, c.QueryCache)
	c.Coordinator.Register("classification", 5, c.Classifier)

	c.Locking = lockservice.New(c.Locks, int(cfg.Coordinator.CheckInterval.Milliseconds()), log)

	if cfg.RateLimiter.Mode == "remote" {
		c.redisClient = redis.NewClient(&redis.Options{Addr: cfg.RateLimiter.RedisAddr})
	}
	c.RateLimiter = ratelimit.New(ratelimit.Config{
		Mode:               cfg.RateLimiter.Mode,
		FailMode:           ratelimit.FailMode(cfg.RateLimiter.FailMode),
		MaxRequests:        cfg.RateLimiter.MaxRequests,
		WindowMs:           int(cfg.RateLimiter.WindowMs),
		MinBurstProtection: cfg.RateLimiter.MinBurstProtection,
		MaxResidentKeys:    cfg.RateLimiter.MaxResidentKeys,
	}, c.redisClient, log)

	permCfg := permission.Config{AdminRole: "admin"}
	permSvc, uerr := permission.New(permCfg)
	if uerr != nil {
		c.Close()
		return nil, fmt.Errorf("di: new permission service: %w", uerr)
	}
	c.Permission = permSvc

	return c, nil
}

// Close releases every resource the container opened: it stops the worker
// pool, the lock-service sweep and the coordinator, closes the redis
// client, then closes the vector index and the database.
func (c *Container) Close() error {
	if c.Workers != nil {
		c.Workers.StopWait()
	}
	if c.Locking != nil {
		c.Locking.Stop()
	}
	if c.Coordinator != nil {
		c.Coordinator.Stop()
	}
	if c.redisClient != nil {
		c.redisClient.Close()
	}
	var firstErr error
	if c.Vectors != nil {
		if err := c.Vectors.Close(); err != nil {
			firstErr = err
		}
	}
	if c.DB != nil {
		if err := c.DB.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func limitsFromConfig(cfg *config.Config) validation.Limits {
	return validation.Limits{
		NameMaxLength:         cfg.SizeLimits.NameMaxLength,
		TitleMaxLength:        cfg.SizeLimits.TitleMaxLength,
		DescriptionMaxLength:  cfg.SizeLimits.DescriptionMaxLength,
		ContentMaxLength:      cfg.SizeLimits.ContentMaxLength,
		MetadataMaxBytes:      cfg.SizeLimits.MetadataMaxBytes,
		TagsMaxCount:          cfg.SizeLimits.TagsMaxCount,
		ExamplesMaxCount:      cfg.SizeLimits.ExamplesMaxCount,
		BulkOperationMax:      cfg.SizeLimits.BulkOperationMax,
		RegexPatternMaxLength: cfg.SizeLimits.RegexPatternMaxLength,
		MaxQueryLimit:         cfg.Query.MaxLimit,
		DefaultQueryLimit:     cfg.Query.DefaultLimit,
		MaxOffset:             cfg.Query.MaxOffset,
	}
}

func classificationConfig(cfg *config.Config) classification.Config {
	return classification.Config{
		LowConfidenceThreshold: cfg.Classification.LowConfidenceThreshold,
		MaxPatternPenalty:      cfg.Classification.MaxPatternPenalty,
		MaxPatternBoost:        cfg.Classification.MaxPatternBoost,
		LearningRate:           cfg.Classification.LearningRate,
		FeedbackDecayDays:      cfg.Classification.FeedbackDecayDays,
		CacheSize:              cfg.Classification.CacheSize,
		CacheTTL:               cfg.Classification.CacheTTL,
	}
}
