// Package scope implements the four-level containment hierarchy shared by
// every entity: global ⊃ org ⊃ project ⊃ session (spec section 3, invariant
// a). Grounded on the teacher's shared value-object idiom
// (internal/domain/shared/value_objects.go, graph_id.go) generalized from a
// single scoped GraphID to a typed, ordered scope chain.
package scope

import apperrors "github.com/agentmemory/memoryd/internal/errors"

// Type is one of the four containment levels.
type Type string

const (
	Global  Type = "global"
	Org     Type = "org"
	Project Type = "project"
	Session Type = "session"
)

// rank orders scopes from broadest (0) to narrowest (3); used both for
// "narrower scopes outrank broader on ties" (spec section 4.2 step 5) and
// for walking the ancestor chain under inheritance.
var rank = map[Type]int{Global: 0, Org: 1, Project: 2, Session: 3}

// Specificity returns the scope's rank, narrowest highest.
func (t Type) Specificity() int { return rank[t] }

// Valid reports whether t is one of the four recognized scope types.
func (t Type) Valid() bool {
	_, ok := rank[t]
	return ok
}

// Scope pairs a scope type with its id. Global scope never carries an id
// (spec section 3, invariant a: scope = global ↔ scopeId = null).
type Scope struct {
	Type Type
	ID   string
}

// Validate enforces invariant (a).
func (s Scope) Validate(op string) *apperrors.UnifiedError {
	if !s.Type.Valid() {
		return apperrors.NewValidation(op, "unrecognized scope type: "+string(s.Type))
	}
	if s.Type == Global && s.ID != "" {
		return apperrors.NewValidation(op, "global scope must not carry a scopeId")
	}
	if s.Type != Global && s.ID == "" {
		return apperrors.NewValidation(op, "scopeId is required when scope is not global")
	}
	return nil
}

// Ancestors returns the scope's ancestor chain from itself to global,
// narrowest first, for inheritance expansion. IDs for ancestor levels are
// left empty: ancestor matching is performed by the repository layer via
// the caller-supplied (type, id) pairs recorded in the request, since a
// session's org/project ancestry is external knowledge the scope value
// itself does not carry.
func (s Scope) Ancestors() []Type {
	out := make([]Type, 0, 4)
	for t := s.Type.Specificity(); t >= 0; t-- {
		for candidate, r := range rank {
			if r == t {
				out = append(out, candidate)
			}
		}
	}
	return out
}
