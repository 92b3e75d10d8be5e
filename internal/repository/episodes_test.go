package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/agentmemory/memoryd/internal/domain/episode"
	apperrors "github.com/agentmemory/memoryd/internal/errors"
	"github.com/agentmemory/memoryd/internal/store/sqlite"
)

func newEpisodeRepo(t *testing.T) *EpisodeRepository {
	t.Helper()
	db, err := sqlite.Open(context.Background(), ":memory:", zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewEpisodeRepository(db, zap.NewNop())
}

func TestStartEpisodeRejectsSecondActive(t *testing.T) {
	repo := newEpisodeRepo(t)
	ctx := context.Background()
	now := time.Now().UTC()

	e1 := episode.NewEpisode("sess-1", "first", now)
	require.Nil(t, repo.StartEpisode(ctx, e1))

	e2 := episode.NewEpisode("sess-1", "second", now)
	uerr := repo.StartEpisode(ctx, e2)
	require.NotNil(t, uerr)
	assert.Equal(t, apperrors.CodeInvalidAction, uerr.Code)
}

func TestTransitionAndAppendEventAfterTerminalFails(t *testing.T) {
	repo := newEpisodeRepo(t)
	ctx := context.Background()
	now := time.Now().UTC()

	e := episode.NewEpisode("sess-2", "work", now)
	require.Nil(t, repo.StartEpisode(ctx, e))

	require.Nil(t, repo.Transition(ctx, e.ID, episode.StatusCompleted))

	uerr := repo.AppendEvent(ctx, episode.EpisodeEvent{ID: "ev-1", EpisodeID: e.ID, Type: episode.EventCheckpoint, CreatedAt: now})
	require.NotNil(t, uerr)
	assert.Equal(t, apperrors.CodeInvalidAction, uerr.Code)
}

func TestActiveForSession(t *testing.T) {
	repo := newEpisodeRepo(t)
	ctx := context.Background()
	now := time.Now().UTC()

	none, uerr := repo.ActiveForSession(ctx, "sess-3")
	require.Nil(t, uerr)
	assert.Nil(t, none)

	e := episode.NewEpisode("sess-3", "work", now)
	require.Nil(t, repo.StartEpisode(ctx, e))

	active, uerr := repo.ActiveForSession(ctx, "sess-3")
	require.Nil(t, uerr)
	require.NotNil(t, active)
	assert.Equal(t, e.ID, active.ID)
}
