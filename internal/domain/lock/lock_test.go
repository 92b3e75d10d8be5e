package lock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewNonExpiring(t *testing.T) {
	now := time.Now().UTC()
	l := New("/repo/file.go", "agent-1", 0, now)
	assert.Nil(t, l.ExpiresAt)
	assert.False(t, l.Expired(now.Add(365*24*time.Hour)))
}

func TestExpiry(t *testing.T) {
	now := time.Now().UTC()
	l := New("/repo/file.go", "agent-1", time.Minute, now)
	assert.False(t, l.Expired(now.Add(30*time.Second)))
	assert.True(t, l.Expired(now.Add(90*time.Second)))
}
