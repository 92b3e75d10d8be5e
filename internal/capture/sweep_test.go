package capture

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/agentmemory/memoryd/internal/domain/conversation"
	"github.com/agentmemory/memoryd/internal/domain/scope"
	"github.com/agentmemory/memoryd/internal/extraction"
	"github.com/agentmemory/memoryd/internal/repository"
	"github.com/agentmemory/memoryd/internal/store/sqlite"
	"github.com/agentmemory/memoryd/internal/validation"
)

type fakeExtractor struct {
	candidates []extraction.Candidate
	available  bool
}

func (f *fakeExtractor) IsAvailable() bool { return f.available }
func (f *fakeExtractor) Classify(context.Context, string) (extraction.ClassifyResult, error) {
	return extraction.ClassifyResult{}, nil
}
func (f *fakeExtractor) ExtractCandidates(context.Context, []extraction.Message) ([]extraction.Candidate, error) {
	return f.candidates, nil
}

func setupSweepTest(t *testing.T) (*Sweeper, string, *fakeExtractor) {
	t.Helper()
	db, err := sqlite.Open(context.Background(), ":memory:", zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	convoRepo := repository.NewConversationRepository(db, zap.NewNop())
	entryRepo := repository.NewEntryRepository(db, validation.DefaultLimits(), zap.NewNop())

	convo := conversation.NewConversation("session-1", "proj-1", "test", time.Now().UTC())
	require.Nil(t, convoRepo.Create(context.Background(), convo))

	for i := 0; i < 3; i++ {
		msg := conversation.Message{
			ID:             "msg-" + string(rune('a'+i)),
			ConversationID: convo.ID,
			Role:           conversation.RoleUser,
			Content:        "message content describing PostgreSQL, Zod, and npm run test:integration",
			CreatedAt:      time.Now().UTC(),
		}
		require.Nil(t, convoRepo.AppendMessage(context.Background(), msg))
	}

	extractor := &fakeExtractor{available: true}
	sweeper := NewSweeper(convoRepo, entryRepo, extractor, nil, nil, zap.NewNop())
	return sweeper, convo.ID, extractor
}

func TestSweepReturnsThreeEntriesAcrossTypes(t *testing.T) {
	sweeper, convoID, extractor := setupSweepTest(t)
	extractor.candidates = []extraction.Candidate{
		{Type: "knowledge", Title: "uses postgresql", Content: "the project uses PostgreSQL 16", Category: "fact", Confidence: 0.9},
		{Type: "guideline", Title: "validate with zod", Content: "always validate input with zod", Category: "code_style", Confidence: 0.88},
		{Type: "tool", Title: "npm run test integration", Content: "run npm run test:integration for integration tests", Category: "cli", Confidence: 0.87},
	}

	result := sweeper.Run(context.Background(), convoID, scope.Scope{Type: scope.Project, ID: "proj-1"}, "agent-1", SweepConfig{})

	require.True(t, result.Success)
	require.Equal(t, 3, result.TotalExtracted)
	require.Len(t, result.MissedEntries, 3)
	require.Equal(t, 0, result.DuplicatesFiltered)
	require.Equal(t, 0, result.BelowThresholdCount)
}

func TestSweepFiltersBelowThreshold(t *testing.T) {
	sweeper, convoID, extractor := setupSweepTest(t)
	extractor.candidates = []extraction.Candidate{
		{Type: "knowledge", Title: "low confidence fact", Content: "maybe true", Category: "fact", Confidence: 0.5},
	}

	result := sweeper.Run(context.Background(), convoID, scope.Scope{Type: scope.Project, ID: "proj-1"}, "agent-1", SweepConfig{})

	require.True(t, result.Success)
	require.Equal(t, 1, result.BelowThresholdCount)
	require.Empty(t, result.MissedEntries)
}

func TestSweepFiltersExactTitleDuplicate(t *testing.T) {
	sweeper, convoID, extractor := setupSweepTest(t)
	sc := scope.Scope{Type: scope.Project, ID: "proj-1"}

	extractor.candidates = []extraction.Candidate{
		{Type: "knowledge", Title: "uses postgresql", Content: "the project uses PostgreSQL 16", Category: "fact", Confidence: 0.9},
	}
	first := sweeper.Run(context.Background(), convoID, sc, "agent-1", SweepConfig{AutoStore: true})
	require.Len(t, first.MissedEntries, 1)
	require.NotEmpty(t, first.MissedEntries[0].ID)

	second := sweeper.Run(context.Background(), convoID, sc, "agent-1", SweepConfig{AutoStore: true})
	require.Equal(t, 1, second.DuplicatesFiltered)
	require.Empty(t, second.MissedEntries)
}

func TestSweepShortCircuitsBelowMinMessages(t *testing.T) {
	db, err := sqlite.Open(context.Background(), ":memory:", zap.NewNop())
	require.NoError(t, err)
	defer db.Close()

	convoRepo := repository.NewConversationRepository(db, zap.NewNop())
	entryRepo := repository.NewEntryRepository(db, validation.DefaultLimits(), zap.NewNop())
	convo := conversation.NewConversation("session-1", "proj-1", "test", time.Now().UTC())
	require.Nil(t, convoRepo.Create(context.Background(), convo))

	extractor := &fakeExtractor{available: true}
	sweeper := NewSweeper(convoRepo, entryRepo, extractor, nil, nil, zap.NewNop())

	result := sweeper.Run(context.Background(), convo.ID, scope.Scope{Type: scope.Project, ID: "proj-1"}, "agent-1", SweepConfig{})
	require.True(t, result.Success)
	require.Empty(t, result.MissedEntries)
	require.Equal(t, 0, result.TotalExtracted)
}

func TestSweepReportsFailureWhenExtractorUnavailable(t *testing.T) {
	sweeper, convoID, extractor := setupSweepTest(t)
	extractor.available = false

	result := sweeper.Run(context.Background(), convoID, scope.Scope{Type: scope.Project, ID: "proj-1"}, "agent-1", SweepConfig{})
	require.False(t, result.Success)
	require.NotEmpty(t, result.Error)
}
