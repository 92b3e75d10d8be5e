package consolidation

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/agentmemory/memoryd/internal/repository"
)

func TestExportDPOFormsPairWhenRewardDeltaMeetsThreshold(t *testing.T) {
	decisions := []repository.Decision{
		{ID: "1", StateFeatures: `{"k":"v"}`, Prompt: "p", Outcome: "good", Reward: 0.9},
		{ID: "2", StateFeatures: `{"k":"v"}`, Prompt: "p", Outcome: "bad", Reward: 0.5},
	}

	result := ExportDPO(decisions, DPOConfig{MinRewardDelta: 0.1, MinPairs: 1})
	assert.True(t, result.Success)
	assert.Len(t, result.Pairs, 1)
	assert.Equal(t, "good", result.Pairs[0].Chosen)
	assert.Equal(t, "bad", result.Pairs[0].Rejected)
}

func TestExportDPOSkipsPairBelowRewardDelta(t *testing.T) {
	decisions := []repository.Decision{
		{ID: "1", StateFeatures: `{"k":"v"}`, Outcome: "a", Reward: 0.52},
		{ID: "2", StateFeatures: `{"k":"v"}`, Outcome: "b", Reward: 0.50},
	}

	result := ExportDPO(decisions, DPOConfig{MinRewardDelta: 0.1, MinPairs: 1})
	assert.False(t, result.Success)
	assert.Equal(t, "Insufficient training pairs", result.Error)
}

func TestExportDPONeverPairsAcrossStateBuckets(t *testing.T) {
	decisions := []repository.Decision{
		{ID: "1", StateFeatures: `{"k":"a"}`, Outcome: "x", Reward: 0.9},
		{ID: "2", StateFeatures: `{"k":"b"}`, Outcome: "y", Reward: 0.1},
	}

	result := ExportDPO(decisions, DPOConfig{MinRewardDelta: 0.1, MinPairs: 1})
	assert.False(t, result.Success)
	assert.Empty(t, result.Pairs)
}

func TestExportDPOReturnsInsufficientWhenBelowMinPairs(t *testing.T) {
	decisions := []repository.Decision{
		{ID: "1", StateFeatures: `{"k":"v"}`, Outcome: "a", Reward: 0.9},
		{ID: "2", StateFeatures: `{"k":"v"}`, Outcome: "b", Reward: 0.1},
	}

	result := ExportDPO(decisions, DPOConfig{MinRewardDelta: 0.1, MinPairs: 5})
	assert.False(t, result.Success)
	assert.Equal(t, "Insufficient training pairs", result.Error)
}

func TestExportDPOEveryPairSatisfiesMinRewardDelta(t *testing.T) {
	decisions := []repository.Decision{
		{ID: "1", StateFeatures: `{"k":"v"}`, Outcome: "a", Reward: 0.95},
		{ID: "2", StateFeatures: `{"k":"v"}`, Outcome: "b", Reward: 0.80},
		{ID: "3", StateFeatures: `{"k":"v"}`, Outcome: "c", Reward: 0.10},
	}

	result := ExportDPO(decisions, DPOConfig{MinRewardDelta: 0.1, MinPairs: 1})
	assert := assert.New(t)
	assert.True(result.Success)
	rewards := map[string]float64{"a": 0.95, "b": 0.80, "c": 0.10}
	for _, p := range result.Pairs {
		assert.NotEqual(p.Chosen, p.Rejected)
		assert.GreaterOrEqual(rewards[p.Chosen]-rewards[p.Rejected], 0.1)
	}
}
