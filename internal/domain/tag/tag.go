// Package tag implements Tag and the EntryTag many-to-many attachment
// (spec section 3), grounded on the teacher's edge-table idiom
// (internal/domain/edge/edge.go) generalized from a graph edge to a
// scoped label attachment with a uniqueness invariant.
package tag

import (
	"time"

	"github.com/google/uuid"

	"github.com/agentmemory/memoryd/internal/domain/scope"
)

// Tag is a scoped label, unique by (name, scope) pair.
type Tag struct {
	ID        string
	Name      string
	Scope     scope.Scope
	CreatedAt time.Time
}

// NewTag stamps a fresh Tag.
func NewTag(name string, s scope.Scope, now time.Time) Tag {
	return Tag{ID: uuid.New().String(), Name: name, Scope: s, CreatedAt: now}
}

// EntryTag attaches a Tag to an Entry. (EntryID, TagID) is unique
// (spec section 8, P-uniq-attach): attaching the same tag twice is a no-op,
// never a duplicate row.
type EntryTag struct {
	EntryID   string
	TagID     string
	CreatedAt time.Time
}
