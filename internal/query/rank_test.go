package query

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/agentmemory/memoryd/internal/domain/scope"
	"github.com/agentmemory/memoryd/internal/repository"
)

func TestMergeUsesChannelScoreAloneWhenOnlyOneChannelRan(t *testing.T) {
	now := time.Now().UTC()
	rows := map[string]repository.Row{
		"e1": {ID: "e1", Priority: 10, CreatedAt: now, Scope: scope.Scope{Type: scope.Global}},
	}
	merged := Merge(rows, []KeywordHit{{EntryID: "e1", Score: 0.8}}, nil, now)
	require.Len(t, merged, 1)
	require.InDelta(t, 0.8, merged[0].Score, 1e-9)
}

func TestMergeFusesBothChannelsWithPriorityAndFreshness(t *testing.T) {
	now := time.Now().UTC()
	rows := map[string]repository.Row{
		"e1": {ID: "e1", Priority: 100, CreatedAt: now, Scope: scope.Scope{Type: scope.Global}},
	}
	merged := Merge(rows, []KeywordHit{{EntryID: "e1", Score: 1.0}}, []SemanticHit{{EntryID: "e1", Score: 1.0}}, now)
	require.Len(t, merged, 1)
	// keyword(0.45) + semantic(0.35) + priority(0.10*1) + freshness(0.10*1) = 1.0
	require.InDelta(t, 1.0, merged[0].Score, 1e-9)
}

func TestMergeRanksHigherScoreFirst(t *testing.T) {
	now := time.Now().UTC()
	rows := map[string]repository.Row{
		"hi": {ID: "hi", CreatedAt: now, Scope: scope.Scope{Type: scope.Global}},
		"lo": {ID: "lo", CreatedAt: now, Scope: scope.Scope{Type: scope.Global}},
	}
	merged := Merge(rows, []KeywordHit{{EntryID: "hi", Score: 0.9}, {EntryID: "lo", Score: 0.1}}, nil, now)
	require.Equal(t, "hi", merged[0].Row.ID)
	require.Equal(t, "lo", merged[1].Row.ID)
}

func TestMergeTieBreaksByScopeSpecificityThenRecency(t *testing.T) {
	now := time.Now().UTC()
	older := now.Add(-time.Hour)
	rows := map[string]repository.Row{
		"global":  {ID: "global", CreatedAt: now, Scope: scope.Scope{Type: scope.Global}},
		"project": {ID: "project", CreatedAt: older, Scope: scope.Scope{Type: scope.Project}},
	}
	merged := Merge(rows, []KeywordHit{{EntryID: "global", Score: 0.5}, {EntryID: "project", Score: 0.5}}, nil, now)
	require.Equal(t, "project", merged[0].Row.ID, "project scope is more specific than global")
}
