package capture

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/agentmemory/memoryd/internal/domain/entrytype"
)

func TestHasHighConfidenceTriggerMatchesFixedBy(t *testing.T) {
	d := NewDetector()
	require.True(t, d.HasHighConfidenceTrigger("fixed the flaky test by adding a retry"))
}

func TestHasHighConfidenceTriggerIgnoresColonOnly(t *testing.T) {
	d := NewDetector()
	require.False(t, d.HasHighConfidenceTrigger("database: postgres 16"))
}

func TestParseFixedByExtractsScenarioAndOutcome(t *testing.T) {
	d := NewDetector()
	parsed, ok := d.Parse("fixed the flaky integration test by adding a retry with backoff")
	require.True(t, ok)
	require.Equal(t, entrytype.OutcomeSuccess, parsed.Outcome)
	require.Contains(t, parsed.Title, "fixed:")
	require.Contains(t, parsed.Scenario, "fixed by")
}

func TestParseRootCauseMarksFailureOutcome(t *testing.T) {
	d := NewDetector()
	parsed, ok := d.Parse("root cause was a missing index on the sessions table")
	require.True(t, ok)
	require.Equal(t, entrytype.OutcomeFailure, parsed.Outcome)
}

func TestParseNoTriggerReturnsFalse(t *testing.T) {
	d := NewDetector()
	_, ok := d.Parse("the quick brown fox jumps over the lazy dog")
	require.False(t, ok)
}

func TestInferCategoryFromKeywords(t *testing.T) {
	require.Equal(t, "testing", inferCategory("the unit test suite was flaky"))
	require.Equal(t, "deployment", inferCategory("the CI pipeline failed to deploy"))
	require.Equal(t, "general", inferCategory("nothing special happened today"))
}
