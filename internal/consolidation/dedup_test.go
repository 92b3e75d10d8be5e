package consolidation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentmemory/memoryd/internal/domain/entrytype"
	"github.com/agentmemory/memoryd/internal/domain/scope"
	"github.com/agentmemory/memoryd/internal/repository"
)

func row(id string, kind entrytype.Kind, s scope.Scope) repository.Row {
	return repository.Row{ID: id, Kind: kind, Scope: s}
}

func TestGroupDuplicatesClustersSimilarVectorsWithinScope(t *testing.T) {
	s := scope.Scope{Type: scope.Project, ID: "p1"}
	rows := []repository.Row{
		row("a", entrytype.KindKnowledge, s),
		row("b", entrytype.KindKnowledge, s),
		row("c", entrytype.KindTool, s),
	}
	vectors := map[string][]float32{
		"a": {1, 0, 0},
		"b": {0.99, 0.01, 0},
		"c": {0, 1, 0},
	}

	groups := GroupDuplicates(rows, vectors, 0.9)
	require.Len(t, groups, 1)
	assert.ElementsMatch(t, []string{"a", "b"}, groups[0].EntryIDs)
	assert.Equal(t, []entrytype.Kind{entrytype.KindKnowledge}, groups[0].DominantTypes)
	assert.Greater(t, groups[0].AvgSimilarity, 0.9)
}

func TestGroupDuplicatesDropsSingletons(t *testing.T) {
	s := scope.Scope{Type: scope.Global}
	rows := []repository.Row{
		row("a", entrytype.KindKnowledge, s),
		row("b", entrytype.KindTool, s),
	}
	vectors := map[string][]float32{"a": {1, 0}, "b": {0, 1}}

	groups := GroupDuplicates(rows, vectors, 0.9)
	assert.Empty(t, groups)
}

func TestGroupDuplicatesNeverCrossesScopeBoundaries(t *testing.T) {
	s1 := scope.Scope{Type: scope.Project, ID: "p1"}
	s2 := scope.Scope{Type: scope.Project, ID: "p2"}
	rows := []repository.Row{
		row("a", entrytype.KindKnowledge, s1),
		row("b", entrytype.KindKnowledge, s2),
	}
	vectors := map[string][]float32{"a": {1, 0}, "b": {1, 0}}

	groups := GroupDuplicates(rows, vectors, 0.5)
	assert.Empty(t, groups, "identical vectors in different scopes must not cluster together")
}

func TestGroupDuplicatesSkipsRowsWithoutAVector(t *testing.T) {
	s := scope.Scope{Type: scope.Global}
	rows := []repository.Row{
		row("a", entrytype.KindKnowledge, s),
		row("b", entrytype.KindKnowledge, s),
	}
	vectors := map[string][]float32{"a": {1, 0}} // "b" has none

	groups := GroupDuplicates(rows, vectors, 0.5)
	assert.Empty(t, groups)
}
