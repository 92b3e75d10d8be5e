package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/agentmemory/memoryd/internal/domain/entrytype"
	"github.com/agentmemory/memoryd/internal/domain/scope"
	apperrors "github.com/agentmemory/memoryd/internal/errors"
	"github.com/agentmemory/memoryd/internal/store/sqlite"
	"github.com/agentmemory/memoryd/internal/validation"
)

func newTestRepo(t *testing.T) *EntryRepository {
	t.Helper()
	db, err := sqlite.Open(context.Background(), ":memory:", zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewEntryRepository(db, validation.DefaultLimits(), zap.NewNop())
}

func TestCreateGuidelineSucceeds(t *testing.T) {
	repo := newTestRepo(t)
	g := &entrytype.Guideline{
		Name:     "use-context",
		Content:  "always thread context.Context through blocking calls",
		Category: entrytype.CategoryCodeStyle,
		Priority: 80,
	}
	g.Scope = scope.Scope{Type: scope.Project, ID: "proj-1"}

	uerr := repo.CreateGuideline(context.Background(), "agent-1", g)
	require.Nil(t, uerr)
	assert.NotEmpty(t, g.ID)
}

func TestCreateGuidelineDuplicateNameRejected(t *testing.T) {
	repo := newTestRepo(t)
	s := scope.Scope{Type: scope.Project, ID: "proj-1"}
	g1 := &entrytype.Guideline{Name: "dup", Content: "first", Scope: s}
	g2 := &entrytype.Guideline{Name: "dup", Content: "second", Scope: s}

	require.Nil(t, repo.CreateGuideline(context.Background(), "agent-1", g1))
	uerr := repo.CreateGuideline(context.Background(), "agent-1", g2)
	require.NotNil(t, uerr)
	assert.Equal(t, apperrors.CodeUniqueConstraint, uerr.Code)
}

func TestCreateGuidelineRejectsBadPriority(t *testing.T) {
	repo := newTestRepo(t)
	g := &entrytype.Guideline{Name: "x", Content: "y", Priority: 200, Scope: scope.Scope{Type: scope.Global}}
	uerr := repo.CreateGuideline(context.Background(), "agent-1", g)
	require.NotNil(t, uerr)
	assert.Equal(t, apperrors.CodeValidation, uerr.Code)
}

func TestGetByNameScopeExact(t *testing.T) {
	repo := newTestRepo(t)
	s := scope.Scope{Type: scope.Project, ID: "proj-1"}
	g := &entrytype.Guideline{Name: "scoped", Content: "c", Scope: s}
	require.Nil(t, repo.CreateGuideline(context.Background(), "agent-1", g))

	found, uerr := repo.GetByName(context.Background(), entrytype.KindGuideline, "scoped", s)
	require.Nil(t, uerr)
	require.NotNil(t, found)
	assert.Equal(t, g.ID, found.ID)

	notFound, uerr := repo.GetByName(context.Background(), entrytype.KindGuideline, "scoped", scope.Scope{Type: scope.Project, ID: "other"})
	require.Nil(t, uerr)
	assert.Nil(t, notFound)
}

func TestSoftDeleteMarksInactiveAndDeindexes(t *testing.T) {
	repo := newTestRepo(t)
	s := scope.Scope{Type: scope.Global}
	g := &entrytype.Guideline{Name: "temp", Content: "to delete", Scope: s}
	require.Nil(t, repo.CreateGuideline(context.Background(), "agent-1", g))

	require.Nil(t, repo.SoftDelete(context.Background(), "agent-1", entrytype.KindGuideline, g.ID))

	found, uerr := repo.GetByName(context.Background(), entrytype.KindGuideline, "temp", s)
	require.Nil(t, uerr)
	assert.Nil(t, found)
}

func TestSoftDeleteNotFound(t *testing.T) {
	repo := newTestRepo(t)
	uerr := repo.SoftDelete(context.Background(), "agent-1", entrytype.KindGuideline, "missing")
	require.NotNil(t, uerr)
	assert.Equal(t, apperrors.CodeNotFound, uerr.Code)
}

func TestCreateKnowledgeConfidenceBounds(t *testing.T) {
	repo := newTestRepo(t)
	k := &entrytype.Knowledge{Title: "t", Content: "c", Confidence: 1.5, Scope: scope.Scope{Type: scope.Global}}
	uerr := repo.CreateKnowledge(context.Background(), "agent-1", k)
	require.NotNil(t, uerr)
	assert.Equal(t, apperrors.CodeValidation, uerr.Code)
}
