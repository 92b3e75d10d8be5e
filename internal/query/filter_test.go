package query

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/agentmemory/memoryd/internal/repository"
)

func TestFilterExcludesInactiveByDefault(t *testing.T) {
	candidates := []Candidate{
		{Row: repository.Row{ID: "active", IsActive: true}},
		{Row: repository.Row{ID: "inactive", IsActive: false}},
	}
	out := Filter(candidates, Filters{}, nil)
	require.Len(t, out, 1)
	require.Equal(t, "active", out[0].Row.ID)
}

func TestFilterIncludesInactiveWhenRequested(t *testing.T) {
	candidates := []Candidate{
		{Row: repository.Row{ID: "inactive", IsActive: false}},
	}
	out := Filter(candidates, Filters{IncludeInactive: true}, nil)
	require.Len(t, out, 1)
}

func TestFilterAppliesMinPriority(t *testing.T) {
	candidates := []Candidate{
		{Row: repository.Row{ID: "low", IsActive: true, Priority: 10}},
		{Row: repository.Row{ID: "high", IsActive: true, Priority: 90}},
	}
	out := Filter(candidates, Filters{MinPriority: 50}, nil)
	require.Len(t, out, 1)
	require.Equal(t, "high", out[0].Row.ID)
}

func TestFilterRestrictsToAllowedIDs(t *testing.T) {
	candidates := []Candidate{
		{Row: repository.Row{ID: "keep", IsActive: true}},
		{Row: repository.Row{ID: "drop", IsActive: true}},
	}
	out := Filter(candidates, Filters{}, map[string]bool{"keep": true})
	require.Len(t, out, 1)
	require.Equal(t, "keep", out[0].Row.ID)
}
