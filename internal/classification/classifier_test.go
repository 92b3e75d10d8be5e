package classification

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/agentmemory/memoryd/internal/domain/feedback"
	apperrors "github.com/agentmemory/memoryd/internal/errors"
	"github.com/agentmemory/memoryd/internal/extraction"
)

type fakeStore struct {
	patterns    map[string]feedback.PatternConfidence
	corrections []feedback.ClassificationFeedback
}

func newFakeStore() *fakeStore {
	return &fakeStore{patterns: map[string]feedback.PatternConfidence{}}
}

func (f *fakeStore) GetPattern(_ context.Context, id string) (feedback.PatternConfidence, *apperrors.UnifiedError) {
	if pc, ok := f.patterns[id]; ok {
		return pc, nil
	}
	return feedback.PatternConfidence{PatternID: id, FeedbackMultiplier: 1.0}, nil
}

func (f *fakeStore) UpsertPattern(_ context.Context, pc feedback.PatternConfidence) *apperrors.UnifiedError {
	f.patterns[pc.PatternID] = pc
	return nil
}

func (f *fakeStore) RecordCorrection(_ context.Context, fb feedback.ClassificationFeedback) *apperrors.UnifiedError {
	f.corrections = append(f.corrections, fb)
	return nil
}

func testConfig() Config {
	return Config{
		LowConfidenceThreshold: 0.6,
		MaxPatternPenalty:      0.3,
		MaxPatternBoost:        0.15,
		LearningRate:           0.1,
	}
}

func TestClassifyToolCommandPattern(t *testing.T) {
	c := New(DefaultPatterns(), newFakeStore(), extraction.Unavailable{}, testConfig(), zap.NewNop())
	result := c.Classify(context.Background(), "run the deploy command from the cli", "", false)
	require.Equal(t, TypeTool, result.Type)
	require.Equal(t, MethodRegex, result.Method)
}

func TestClassifyAntiPatternVetoesMakeTool(t *testing.T) {
	c := New(DefaultPatterns(), newFakeStore(), extraction.Unavailable{}, testConfig(), zap.NewNop())
	result := c.Classify(context.Background(), "make sure you always write tests", "", false)
	require.Equal(t, TypeGuideline, result.Type)
}

func TestClassifyForcedBypassesPatternsAndCache(t *testing.T) {
	store := newFakeStore()
	c := New(DefaultPatterns(), store, extraction.Unavailable{}, testConfig(), zap.NewNop())
	result := c.Classify(context.Background(), "run the deploy command", TypeKnowledge, false)
	require.Equal(t, TypeKnowledge, result.Type)
	require.Equal(t, 1.0, result.Confidence)
	require.Equal(t, MethodForced, result.Method)
	require.Len(t, store.corrections, 1, "forced divergence from the pattern prediction should be recorded")

	_, cached := c.cache.Get(cacheKey{textHash: hashText("run the deploy command"), preferLLM: false})
	require.False(t, cached, "forced-mode results must not populate the cache")
}

func TestClassifyCachesNonForcedResult(t *testing.T) {
	c := New(DefaultPatterns(), newFakeStore(), extraction.Unavailable{}, testConfig(), zap.NewNop())
	text := "run the deploy command"
	first := c.Classify(context.Background(), text, "", false)
	second := c.Classify(context.Background(), text, "", false)
	require.Equal(t, first, second)
}

func TestClassifyFallsBackWhenNoPatternMatches(t *testing.T) {
	c := New(DefaultPatterns(), newFakeStore(), extraction.Unavailable{}, testConfig(), zap.NewNop())
	result := c.Classify(context.Background(), "the quick brown fox", "", false)
	require.Equal(t, MethodFallback, result.Method)
	require.Empty(t, result.Type)
}

func TestRecordCorrectionAdjustsPatternMultiplier(t *testing.T) {
	store := newFakeStore()
	c := New(DefaultPatterns(), store, extraction.Unavailable{}, testConfig(), zap.NewNop())
	text := "run the deploy command from the cli"

	err := c.RecordCorrection(context.Background(), text, TypeTool, TypeTool)
	require.Nil(t, err)

	pc := store.patterns["tool-command"]
	require.Greater(t, pc.FeedbackMultiplier, 1.0, "a correct match should nudge the multiplier above the neutral 1.0 baseline")
	require.Equal(t, 1, pc.CorrectMatches)
}

func TestRecordCorrectionPenalizesIncorrectMatch(t *testing.T) {
	store := newFakeStore()
	c := New(DefaultPatterns(), store, extraction.Unavailable{}, testConfig(), zap.NewNop())
	text := "run the deploy command from the cli"

	err := c.RecordCorrection(context.Background(), text, TypeTool, TypeKnowledge)
	require.Nil(t, err)

	pc := store.patterns["tool-command"]
	require.Less(t, pc.FeedbackMultiplier, 1.0)
	require.Equal(t, 1, pc.IncorrectMatches)
}
