// Package relation implements EntryRelation, the typed directed edge between
// two entries (spec section 3), grounded on the teacher's
// internal/domain/edge/edge.go (a typed, directed, weighted graph edge)
// generalized from a single node-kind edge to a cross-kind entry relation.
package relation

import (
	"time"

	"github.com/google/uuid"

	"github.com/agentmemory/memoryd/internal/domain/entrytype"
)

// Type labels the nature of the causal or reference link.
type Type string

const (
	TypeCausedBy    Type = "caused_by"
	TypeReferences  Type = "references"
	TypeSupersedes  Type = "supersedes"
	TypeRelatedTo   Type = "related_to"
	TypeDerivedFrom Type = "derived_from"
)

// EntryRelation is a typed directed edge (sourceType, sourceId) ->
// (targetType, targetId).
type EntryRelation struct {
	ID           string
	SourceType   entrytype.Kind
	SourceID     string
	TargetType   entrytype.Kind
	TargetID     string
	RelationType Type
	CreatedAt    time.Time
}

// New stamps a fresh EntryRelation.
func New(sourceType entrytype.Kind, sourceID string, targetType entrytype.Kind, targetID string, relType Type, now time.Time) EntryRelation {
	return EntryRelation{
		ID:           uuid.New().String(),
		SourceType:   sourceType,
		SourceID:     sourceID,
		TargetType:   targetType,
		TargetID:     targetID,
		RelationType: relType,
		CreatedAt:    now,
	}
}

// Direction controls which side of the edge a traversal walks.
type Direction string

const (
	DirectionOutgoing Direction = "outgoing"
	DirectionIncoming Direction = "incoming"
	DirectionBoth     Direction = "both"
)
