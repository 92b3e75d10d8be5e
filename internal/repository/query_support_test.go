package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/agentmemory/memoryd/internal/domain/entrytype"
	"github.com/agentmemory/memoryd/internal/domain/scope"
)

func TestSearchFTSMatchesContent(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	k := &entrytype.Knowledge{Common: entrytype.Common{Scope: scope.Scope{Type: scope.Global}}, Title: "db choice", Content: "the team picked PostgreSQL for durability"}
	require.Nil(t, repo.CreateKnowledge(ctx, "agent", k))

	hits, uerr := repo.SearchFTS(ctx, `"postgresql"`, nil)
	require.Nil(t, uerr)
	require.Len(t, hits, 1)
	assert.Equal(t, k.ID, hits[0].EntryID)
}

func TestSearchLikeMatchesSubstring(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	tool := &entrytype.Tool{Common: entrytype.Common{Scope: scope.Scope{Type: scope.Global}}, Name: "run-lint", Description: "runs golangci-lint across the module"}
	require.Nil(t, repo.CreateTool(ctx, "agent", tool))

	rows, uerr := repo.SearchLike(ctx, "golangci", nil)
	require.Nil(t, uerr)
	require.Len(t, rows, 1)
	assert.Equal(t, tool.ID, rows[0].ID)
}

func TestListFiltersByKindAndMinPriority(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	g := &entrytype.Guideline{Name: "high-pri", Content: "x", Category: entrytype.CategoryWorkflow, Priority: 90,
		Common: entrytype.Common{Scope: scope.Scope{Type: scope.Global}}}
	require.Nil(t, repo.CreateGuideline(ctx, "agent", g))
	low := &entrytype.Guideline{Name: "low-pri", Content: "y", Category: entrytype.CategoryWorkflow, Priority: 10,
		Common: entrytype.Common{Scope: scope.Scope{Type: scope.Global}}}
	require.Nil(t, repo.CreateGuideline(ctx, "agent", low))

	rows, uerr := repo.List(ctx, ListFilter{Kinds: []entrytype.Kind{entrytype.KindGuideline}, MinPriority: 50})
	require.Nil(t, uerr)
	require.Len(t, rows, 1)
	assert.Equal(t, "high-pri", rows[0].Name)
}

func TestGetByIDsReturnsOnlyRequested(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	a := &entrytype.Guideline{Name: "a", Content: "x", Category: entrytype.CategoryWorkflow,
		Common: entrytype.Common{Scope: scope.Scope{Type: scope.Global}}}
	b := &entrytype.Guideline{Name: "b", Content: "x", Category: entrytype.CategoryWorkflow,
		Common: entrytype.Common{Scope: scope.Scope{Type: scope.Global}}}
	require.Nil(t, repo.CreateGuideline(ctx, "agent", a))
	require.Nil(t, repo.CreateGuideline(ctx, "agent", b))

	rows, uerr := repo.GetByIDs(ctx, []string{a.ID})
	require.Nil(t, uerr)
	require.Len(t, rows, 1)
	assert.Equal(t, a.ID, rows[0].ID)
}

func TestFindByTitleExactScopedMatch(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	sc := scope.Scope{Type: scope.Project, ID: "proj-1"}
	k := &entrytype.Knowledge{Common: entrytype.Common{Scope: sc}, Title: "release cadence", Content: "ships every two weeks"}
	require.Nil(t, repo.CreateKnowledge(ctx, "agent", k))

	found, uerr := repo.FindByTitle(ctx, entrytype.KindKnowledge, "release cadence", sc)
	require.Nil(t, uerr)
	require.NotNil(t, found)
	assert.Equal(t, k.ID, found.ID)

	missing, uerr := repo.FindByTitle(ctx, entrytype.KindKnowledge, "no such title", sc)
	require.Nil(t, uerr)
	assert.Nil(t, missing)
}
