package query

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/agentmemory/memoryd/internal/domain/entrytype"
	"github.com/agentmemory/memoryd/internal/domain/scope"
	"github.com/agentmemory/memoryd/internal/repository"
	"github.com/agentmemory/memoryd/internal/store/sqlite"
	"github.com/agentmemory/memoryd/internal/validation"
)

func setupPipelineTest(t *testing.T) *Pipeline {
	t.Helper()
	db, err := sqlite.Open(context.Background(), ":memory:", zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	limits := validation.DefaultLimits()
	entries := repository.NewEntryRepository(db, limits, zap.NewNop())
	tags := repository.NewTagRepository(db, zap.NewNop())
	relations := repository.NewRelationRepository(db, zap.NewNop())

	sc := scope.Scope{Type: scope.Project, ID: "proj-1"}
	now := time.Now().UTC()

	k := &entrytype.Knowledge{
		Common:   entrytype.NewCommon(sc, "agent-1", now),
		Title:    "project uses postgresql",
		Content:  "the backend persists data in PostgreSQL 16 with row level security",
		Category: entrytype.KnowledgeFact,
	}
	require.Nil(t, entries.CreateKnowledge(context.Background(), "agent-1", k))

	tool := &entrytype.Tool{
		Common:      entrytype.NewCommon(sc, "agent-1", now),
		Name:        "run-tests",
		Description: "runs npm run test:integration",
		Category:    entrytype.ToolCLI,
	}
	require.Nil(t, entries.CreateTool(context.Background(), "agent-1", tool))

	tg, tagErr := tags.GetOrCreate(context.Background(), "database", sc)
	require.Nil(t, tagErr)
	require.Nil(t, tags.Attach(context.Background(), k.ID, tg.ID))

	return New(entries, tags, relations, nil, nil, nil, limits, zap.NewNop())
}

func TestPipelineFindsKeywordMatchViaFTS(t *testing.T) {
	p := setupPipelineTest(t)
	resp, err := p.Run(context.Background(), Request{Search: "postgresql", SearchControls: SearchControls{UseFTS5: true}})
	require.NoError(t, err)
	require.NotEmpty(t, resp.Items)
	require.Equal(t, "project uses postgresql", resp.Items[0].Row.Title)
}

func TestPipelineFallsBackToLikeWhenFTSDisabled(t *testing.T) {
	p := setupPipelineTest(t)
	resp, err := p.Run(context.Background(), Request{Search: "test:integration"})
	require.NoError(t, err)
	require.NotEmpty(t, resp.Items)
}

func TestPipelineListsEverythingWithEmptySearch(t *testing.T) {
	p := setupPipelineTest(t)
	resp, err := p.Run(context.Background(), Request{})
	require.NoError(t, err)
	require.Len(t, resp.Items, 2)
}

func TestPipelineFiltersByTag(t *testing.T) {
	p := setupPipelineTest(t)
	resp, err := p.Run(context.Background(), Request{Filters: Filters{Tags: []string{"database"}}})
	require.NoError(t, err)
	require.Len(t, resp.Items, 1)
	require.Equal(t, "project uses postgresql", resp.Items[0].Row.Title)
}

func TestPipelinePaginates(t *testing.T) {
	p := setupPipelineTest(t)
	resp, err := p.Run(context.Background(), Request{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, resp.Items, 1)
}

func TestPipelineServesCachedResponseOnSecondCall(t *testing.T) {
	p := setupPipelineTest(t)
	cache, cacheErr := NewResultCache(100, nil)
	require.NoError(t, cacheErr)
	p.cache = cache

	req := Request{Search: "postgresql", SearchControls: SearchControls{UseFTS5: true}}
	first, err := p.Run(context.Background(), req)
	require.NoError(t, err)
	require.False(t, first.Meta.FromCache)

	second, err := p.Run(context.Background(), req)
	require.NoError(t, err)
	require.True(t, second.Meta.FromCache)
}
