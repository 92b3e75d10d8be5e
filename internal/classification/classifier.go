package classification

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"

	"github.com/agentmemory/memoryd/internal/domain/feedback"
	apperrors "github.com/agentmemory/memoryd/internal/errors"
	"github.com/agentmemory/memoryd/internal/extraction"
)

// PatternStore is the persistence boundary the classifier needs for its
// learning loop, satisfied by *internal/repository.FeedbackRepository.
type PatternStore interface {
	GetPattern(ctx context.Context, patternID string) (feedback.PatternConfidence, *apperrors.UnifiedError)
	UpsertPattern(ctx context.Context, pc feedback.PatternConfidence) *apperrors.UnifiedError
	RecordCorrection(ctx context.Context, fb feedback.ClassificationFeedback) *apperrors.UnifiedError
}

// Result is the classifier's output.
type Result struct {
	Type       Type
	Confidence float64
	Method     Method
	Reasoning  string
}

// Config holds the classifier's tunable thresholds (spec section 4.3.1),
// sourced from internal/config.Config rather than hard-coded constants.
type Config struct {
	LowConfidenceThreshold float64
	MaxPatternPenalty      float64 // P: multiplier floor is 1-P
	MaxPatternBoost        float64 // B: multiplier ceiling is 1+B
	LearningRate           float64
	FeedbackDecayDays      int
	CacheSize              int
	CacheTTL               time.Duration
}

type cacheKey struct {
	textHash  string
	preferLLM bool
}

// Classifier is the hybrid pattern/LLM classifier.
type Classifier struct {
	patterns []Pattern
	store    PatternStore
	llm      extraction.Provider
	cfg      Config
	cache    *lru.LRU[cacheKey, Result]
	log      *zap.Logger
}

// New constructs a Classifier. llm may be extraction.Unavailable{}.
func New(patterns []Pattern, store PatternStore, llm extraction.Provider, cfg Config, log *zap.Logger) *Classifier {
	size := cfg.CacheSize
	if size <= 0 {
		size = 500
	}
	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Classifier{
		patterns: patterns,
		store:    store,
		llm:      llm,
		cfg:      cfg,
		cache:    lru.NewLRU[cacheKey, Result](size, nil, ttl),
		log:      log,
	}
}

func hashText(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// Classify maps text to a Result. forceType, when non-empty, short-circuits
// to MethodForced with confidence 1.0 and bypasses the cache (spec section
// 4.3.1: "Forced-mode results are NOT cached").
func (c *Classifier) Classify(ctx context.Context, text string, forceType Type, preferLLM bool) Result {
	if forceType != "" {
		predicted := c.patternResult(text)
		if predicted.Type != "" && predicted.Type != forceType {
			c.recordDivergence(ctx, text, predicted.Type, forceType)
		}
		return Result{Type: forceType, Confidence: 1.0, Method: MethodForced}
	}

	key := cacheKey{textHash: hashText(text), preferLLM: preferLLM}
	if cached, ok := c.cache.Get(key); ok {
		return cached
	}

	patternResult := c.patternResult(text)

	useLLM := c.llm.IsAvailable() && (preferLLM || patternResult.Confidence < c.cfg.LowConfidenceThreshold)
	result := patternResult
	if useLLM {
		if llmResult, ok := c.tryLLM(ctx, text); ok {
			result = llmResult
		}
	}

	c.cache.Add(key, result)
	return result
}

func (c *Classifier) tryLLM(ctx context.Context, text string) (Result, bool) {
	out, err := c.llm.Classify(ctx, text)
	if err != nil || out.Type == "" {
		return Result{}, false
	}
	return Result{Type: Type(out.Type), Confidence: out.Confidence, Method: MethodLLM, Reasoning: out.Reasoning}, true
}

// scored is an internal accumulator for one candidate type's weighted
// evidence during the pattern stage.
type scored struct {
	weight float64
	vetoed bool
}

func (c *Classifier) patternResult(text string) Result {
	byType := map[Type]*scored{}
	for _, p := range c.patterns {
		if !p.Regex.MatchString(text) {
			continue
		}
		s := byType[p.Type]
		if s == nil {
			s = &scored{}
			byType[p.Type] = s
		}
		if p.AntiPattern {
			s.vetoed = true
			continue
		}
		mult := c.effectiveMultiplier(p.ID)
		s.weight += p.BaseWeight * mult
	}

	var bestType Type
	var bestWeight float64
	totalWeight := 0.0
	for t, s := range byType {
		if s.vetoed {
			continue
		}
		totalWeight += s.weight
		if s.weight > bestWeight {
			bestWeight = s.weight
			bestType = t
		}
	}
	if bestType == "" {
		return Result{Method: MethodFallback}
	}

	confidence := bestWeight
	if totalWeight > bestWeight {
		// Competing matches across types reduce confidence (spec section 4.3.1).
		confidence = bestWeight / totalWeight * bestWeight
	}
	if confidence > 1 {
		confidence = 1
	}
	return Result{Type: bestType, Confidence: confidence, Method: MethodRegex}
}

func (c *Classifier) effectiveMultiplier(patternID string) float64 {
	if c.store == nil {
		return 1.0
	}
	pc, err := c.store.GetPattern(context.Background(), patternID)
	if err != nil {
		return 1.0
	}
	if pc.FeedbackMultiplier == 0 {
		return 1.0
	}
	return pc.FeedbackMultiplier
}

func (c *Classifier) recordDivergence(ctx context.Context, text string, predicted, actual Type) {
	if c.store == nil {
		return
	}
	c.store.RecordCorrection(ctx, feedback.ClassificationFeedback{
		TextHash:   hashText(text),
		Predicted:  string(predicted),
		Actual:     string(actual),
		Method:     feedback.MethodForced,
		WasCorrect: predicted == actual,
		CreatedAt:  time.Now().UTC(),
	})
}

// RecordCorrection implements the learning loop (spec section 4.3.1):
// appends a feedback row and nudges every pattern that matched text toward
// the correct/incorrect bound.
func (c *Classifier) RecordCorrection(ctx context.Context, text string, predicted, actual Type) *apperrors.UnifiedError {
	correct := predicted == actual
	if err := c.store.RecordCorrection(ctx, feedback.ClassificationFeedback{
		TextHash:   hashText(text),
		Predicted:  string(predicted),
		Actual:     string(actual),
		WasCorrect: correct,
		CreatedAt:  time.Now().UTC(),
	}); err != nil {
		return err
	}

	for _, p := range c.patterns {
		if !p.Regex.MatchString(text) {
			continue
		}
		pc, err := c.store.GetPattern(ctx, p.ID)
		if err != nil {
			continue
		}
		if pc.PatternID == "" {
			pc.PatternID = p.ID
			pc.PatternType = p.PatternType
			pc.BaseWeight = p.BaseWeight
			pc.FeedbackMultiplier = 1.0
		}
		pc.ApplyFeedback(correct, c.cfg.LearningRate, 1-c.cfg.MaxPatternPenalty, 1+c.cfg.MaxPatternBoost)
		c.store.UpsertPattern(ctx, pc)
	}
	return nil
}

// SizeBytes reports the classification cache's current entry count,
// satisfying coordinator.Cache so it can register under the
// "classification" name (spec section 4.5.1). Entries are small and
// uniform, so count stands in for a byte size.
func (c *Classifier) SizeBytes() int64 {
	return int64(c.cache.Len())
}

// Evict purges up to n least-recently-used classification cache entries.
func (c *Classifier) Evict(n int) int {
	evicted := 0
	for ; evicted < n; evicted++ {
		if _, _, ok := c.cache.RemoveOldest(); !ok {
			break
		}
	}
	return evicted
}
