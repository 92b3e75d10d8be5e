package context

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDetectCachesUntilTTL(t *testing.T) {
	calls := 0
	d := NewDetector(50*time.Millisecond, func() string { calls++; return "sess-1" })

	dir := t.TempDir()
	first := d.Detect(dir)
	second := d.Detect(dir)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, calls)

	time.Sleep(80 * time.Millisecond)
	d.Detect(dir)
	assert.Equal(t, 2, calls)
}

func TestRefreshClearsBeforeRedetecting(t *testing.T) {
	calls := 0
	d := NewDetector(time.Minute, func() string { calls++; return "sess-1" })
	dir := t.TempDir()

	d.Detect(dir)
	d.Refresh(dir)
	assert.Equal(t, 2, calls)
}

func TestEnrichParamsFillsOnlyEmptyFields(t *testing.T) {
	d := NewDetector(time.Minute, func() string { return "sess-1" })
	dir := t.TempDir()

	p := d.EnrichParams(dir, Params{ProjectID: "explicit-project"})
	assert.Equal(t, "explicit-project", p.ProjectID)
	assert.Equal(t, "sess-1", p.SessionID)
	assert.NotEmpty(t, p.AgentID)
}

func TestClearEvictsAllEntries(t *testing.T) {
	calls := 0
	d := NewDetector(time.Minute, func() string { calls++; return "sess-1" })
	dir := t.TempDir()

	d.Detect(dir)
	d.Clear()
	d.Detect(dir)
	assert.Equal(t, 2, calls)
}
