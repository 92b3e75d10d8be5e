package query

import (
	"context"
	"time"

	"github.com/agentmemory/memoryd/internal/repository"
)

// Filter narrows a merged candidate set by tags, priority, temporal window,
// and active status (spec section 4.2 step 6). Relation-traversal results
// from expandRelated arrive in allowedIDs and narrow the candidates like the
// tag filter: a request with no search term lists the reached entries, and a
// search combined with relatedTo keeps only hits that were also reached.
func Filter(candidates []Candidate, f Filters, allowedIDs map[string]bool) []Candidate {
	out := candidates[:0]
	for _, c := range candidates {
		if allowedIDs != nil && !allowedIDs[c.Row.ID] {
			continue
		}
		if !f.IncludeInactive && !c.Row.IsActive {
			continue
		}
		if f.MinPriority > 0 && c.Row.Priority < f.MinPriority {
			continue
		}
		if f.CreatedAfter != nil {
			if t, err := time.Parse(time.RFC3339, *f.CreatedAfter); err == nil && c.Row.CreatedAt.Before(t) {
				continue
			}
		}
		if f.CreatedBefore != nil {
			if t, err := time.Parse(time.RFC3339, *f.CreatedBefore); err == nil && c.Row.CreatedAt.After(t) {
				continue
			}
		}
		out = append(out, c)
	}
	return out
}

// tagFilterIDs resolves Filters.Tags to the set of entry ids carrying every
// requested tag, nil when no tag filter was requested.
func tagFilterIDs(ctx context.Context, tags *repository.TagRepository, f Filters) (map[string]bool, error) {
	if len(f.Tags) == 0 {
		return nil, nil
	}
	ids, uerr := tags.EntryIDsMatchingAllTags(ctx, f.Tags)
	if uerr != nil {
		return nil, uerr
	}
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set, nil
}

// expandRelated runs the relation-traversal BFS and returns the reached
// entry ids. They are not filtered by req.Types here; the candidates they
// are intersected with already are.
func expandRelated(ctx context.Context, relations *repository.RelationRepository, rel *RelatedTo) (map[string]bool, error) {
	if rel == nil {
		return nil, nil
	}
	reached, uerr := relations.Traverse(ctx, rel.Type, rel.ID, rel.Direction, rel.MaxDepth)
	if uerr != nil {
		return nil, uerr
	}
	set := make(map[string]bool, len(reached))
	for _, ep := range reached {
		set[ep.ID] = true
	}
	return set, nil
}
