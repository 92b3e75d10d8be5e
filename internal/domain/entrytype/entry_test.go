package entrytype

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/agentmemory/memoryd/internal/domain/scope"
)

func TestNewCommonStampsActiveAndTimestamps(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewCommon(scope.Scope{Type: scope.Project, ID: "proj-1"}, "agent-1", now)

	assert.NotEmpty(t, c.ID)
	assert.True(t, c.IsActive)
	assert.Equal(t, now, c.CreatedAt)
	assert.Equal(t, now, c.UpdatedAt)
}

func TestKnowledgeValidAt(t *testing.T) {
	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	until := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	k := &Knowledge{ValidFrom: &from, ValidUntil: &until}

	assert.False(t, k.ValidAt(from.Add(-time.Hour)))
	assert.True(t, k.ValidAt(from))
	assert.True(t, k.ValidAt(until))
	assert.False(t, k.ValidAt(until.Add(time.Hour)))
}

func TestKnowledgeValidAtUnbounded(t *testing.T) {
	k := &Knowledge{}
	assert.True(t, k.ValidAt(time.Now().UTC()))
}

func TestEntryKinds(t *testing.T) {
	var entries []Entry = []Entry{&Guideline{}, &Knowledge{}, &Tool{}, &Experience{}}
	want := []Kind{KindGuideline, KindKnowledge, KindTool, KindExperience}
	for i, e := range entries {
		assert.Equal(t, want[i], e.Kind())
	}
}
