package episode

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/agentmemory/memoryd/internal/errors"
)

func TestTransitionLegalPath(t *testing.T) {
	now := time.Now().UTC()
	e := NewEpisode("sess-1", "refactor auth", now)

	require.Nil(t, e.Transition("episode.transition", StatusActive, now.Add(time.Second)))
	assert.Equal(t, StatusActive, e.Status)

	require.Nil(t, e.Transition("episode.transition", StatusCompleted, now.Add(2*time.Second)))
	assert.Equal(t, StatusCompleted, e.Status)
	assert.True(t, e.IsTerminal())
}

func TestTransitionRejectsFromTerminal(t *testing.T) {
	now := time.Now().UTC()
	e := NewEpisode("sess-1", "refactor auth", now)
	e.Status = StatusFailed

	err := e.Transition("episode.transition", StatusActive, now)
	require.NotNil(t, err)
	assert.Equal(t, apperrors.CodeInvalidAction, err.Code)
}

func TestTransitionRejectsIllegalEdge(t *testing.T) {
	now := time.Now().UTC()
	e := NewEpisode("sess-1", "refactor auth", now)

	err := e.Transition("episode.transition", StatusFailed, now)
	require.NotNil(t, err)
	assert.Equal(t, apperrors.CodeInvalidAction, err.Code)
}
