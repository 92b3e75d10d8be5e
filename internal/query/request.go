// Package query implements the retrieval pipeline: normalize/validate →
// plan → keyword/semantic channels → merge & rank → filter → paginate &
// cache (spec section 4.2). Grounded on the teacher's application/queries
// CQRS query-side bus generalized from a single graph-traversal query to a
// multi-channel fused-ranking pipeline.
package query

import (
	"strings"

	"github.com/agentmemory/memoryd/internal/domain/entrytype"
	"github.com/agentmemory/memoryd/internal/domain/relation"
	"github.com/agentmemory/memoryd/internal/domain/scope"
	apperrors "github.com/agentmemory/memoryd/internal/errors"
	"github.com/agentmemory/memoryd/internal/validation"
)

// Action selects the pipeline's top-level mode.
type Action string

const (
	ActionSearch  Action = "search"
	ActionList    Action = "list"
	ActionRelated Action = "related"
)

// ScopeRequest carries the caller's scope and inheritance preference.
type ScopeRequest struct {
	Type    scope.Type
	ID      string
	Inherit bool
}

// RelatedTo requests a relation-traversal expansion (spec section 4.2).
type RelatedTo struct {
	Type      entrytype.Kind
	ID        string
	Direction relation.Direction
	MaxDepth  int
}

// Filters narrows the merged candidate set (spec section 4.2).
type Filters struct {
	Tags            []string
	MinPriority     int
	AtTime          *string
	CreatedAfter    *string
	CreatedBefore   *string
	ValidDuring     *string
	IncludeInactive bool
}

// SearchControls tunes the keyword/regex/fuzzy channels.
type SearchControls struct {
	UseFTS5 bool
	Fuzzy   bool
	Regex   string
	Fields  []string
}

// Request is the normalized, validated pipeline input (spec section 4.2).
type Request struct {
	Action         Action
	Search         string
	Scope          ScopeRequest
	Types          []entrytype.Kind
	Filters        Filters
	SearchControls SearchControls
	SemanticSearch bool
	RelatedTo      *RelatedTo
	Limit          int
	Offset         int
	Compact        bool
	Fields         []string
}

// knownFields restricts the `fields` projection/search-field control to
// columns the pipeline actually understands (spec section 4.2: "unknown
// fields silently dropped").
var knownFields = map[string]bool{"name": true, "title": true, "content": true}

// Normalize applies size limits, clamps pagination, rejects ReDoS-flagged
// regex, and canonicalizes tags (spec section 4.2 step 1). It mutates a
// copy and returns it; the caller's original Request is untouched.
func Normalize(req Request, limits validation.Limits) (Request, *apperrors.UnifiedError) {
	const op = "query.normalize"
	out := req

	if out.Action == "" {
		out.Action = ActionSearch
	}
	if len(out.Types) == 0 {
		out.Types = []entrytype.Kind{entrytype.KindGuideline, entrytype.KindKnowledge, entrytype.KindTool, entrytype.KindExperience}
	}

	out.Limit = validation.ClampLimit(out.Limit, limits.MaxQueryLimit)
	if out.Limit == 1 && req.Limit == 0 {
		out.Limit = limits.DefaultQueryLimit
	}
	out.Offset = validation.ClampOffset(out.Offset, limits.MaxOffset)

	canonical := make([]string, 0, len(out.Filters.Tags))
	for _, t := range out.Filters.Tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t != "" {
			canonical = append(canonical, t)
		}
	}
	out.Filters.Tags = canonical

	fields := make([]string, 0, len(out.SearchControls.Fields))
	for _, f := range out.SearchControls.Fields {
		if knownFields[strings.ToLower(f)] {
			fields = append(fields, strings.ToLower(f))
		}
	}
	out.SearchControls.Fields = fields

	if out.SearchControls.Regex != "" {
		if uerr := validation.CheckRegexSafety(op, out.SearchControls.Regex, limits.RegexPatternMaxLength); uerr != nil {
			return Request{}, uerr
		}
	}

	if out.RelatedTo != nil {
		rel := *out.RelatedTo
		out.RelatedTo = &rel
		if out.RelatedTo.MaxDepth <= 0 || out.RelatedTo.MaxDepth > 10 {
			out.RelatedTo.MaxDepth = 10
		}
		if out.RelatedTo.Direction == "" {
			out.RelatedTo.Direction = relation.DirectionOutgoing
		}
	}

	return out, nil
}
