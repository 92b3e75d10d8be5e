package query

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/agentmemory/memoryd/internal/embedding"
	"github.com/agentmemory/memoryd/internal/repository"
	"github.com/agentmemory/memoryd/internal/store/vectorindex"
	"github.com/agentmemory/memoryd/internal/validation"
)

// Item is one ranked, paginated result.
type Item struct {
	Row   repository.Row
	Score float64
}

// Meta reports degraded-path flags the caller should surface (spec section
// 4.2 step 8: "a channel failure degrades rather than aborts the request").
type Meta struct {
	Degraded       bool
	KeywordFailed  bool
	SemanticFailed bool
	FromCache      bool
	TotalMatched   int
}

// Response is the pipeline's final output.
type Response struct {
	Items []Item
	Meta  Meta
}

// Pipeline wires every retrieval stage together (spec section 4.2).
type Pipeline struct {
	entries   *repository.EntryRepository
	tags      *repository.TagRepository
	relations *repository.RelationRepository
	embedder  embedding.Provider
	vectors   *vectorindex.Index
	cache     *ResultCache
	limits    validation.Limits
	log       *zap.Logger
}

// New constructs a Pipeline. embedder/vectors/cache may be nil; the
// pipeline degrades to keyword-only search and skips caching respectively.
func New(entries *repository.EntryRepository, tags *repository.TagRepository, relations *repository.RelationRepository,
	embedder embedding.Provider, vectors *vectorindex.Index, cache *ResultCache, limits validation.Limits, log *zap.Logger) *Pipeline {
	if embedder == nil {
		embedder = embedding.Unavailable{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Pipeline{entries: entries, tags: tags, relations: relations, embedder: embedder, vectors: vectors, cache: cache, limits: limits, log: log}
}

// Run executes the full normalize → plan → channels → merge → filter →
// paginate → cache pipeline for req.
func (p *Pipeline) Run(ctx context.Context, req Request) (Response, error) {
	norm, uerr := Normalize(req, p.limits)
	if uerr != nil {
		return Response{}, uerr
	}

	if p.cache != nil {
		if resp, ok := p.cache.Get(norm); ok {
			resp.Meta.FromCache = true
			return resp, nil
		}
	}

	semanticAvailable := p.embedder.IsAvailable() && p.vectors != nil
	plan := Build(norm, semanticAvailable)

	var meta Meta
	var keywordHits []KeywordHit
	var semanticHits []SemanticHit

	if plan.Keyword {
		hits, err := keywordSearch(ctx, p.entries, norm)
		if err != nil {
			p.log.Warn("keyword channel failed, degrading", zap.Error(err))
			meta.Degraded, meta.KeywordFailed = true, true
		} else {
			keywordHits = hits
		}
	}
	if plan.Semantic {
		hits, err := semanticSearch(ctx, p.embedder, p.vectors, norm.Types, norm.Search)
		if err != nil {
			p.log.Warn("semantic channel failed, degrading", zap.Error(err))
			meta.Degraded, meta.SemanticFailed = true, true
		} else {
			semanticHits = hits
		}
	}

	candidateRows, err := p.loadCandidateRows(ctx, norm, keywordHits, semanticHits, plan)
	if err != nil {
		return Response{}, err
	}

	merged := Merge(candidateRows, keywordHits, semanticHits, time.Now().UTC())

	var allowedIDs map[string]bool
	if plan.Relation {
		ids, relErr := expandRelated(ctx, p.relations, norm.RelatedTo)
		if relErr != nil {
			return Response{}, relErr
		}
		allowedIDs = ids
	}
	if tagIDs, tagErr := tagFilterIDs(ctx, p.tags, norm.Filters); tagErr != nil {
		return Response{}, tagErr
	} else if tagIDs != nil {
		allowedIDs = intersect(allowedIDs, tagIDs)
	}

	filtered := Filter(merged, norm.Filters, allowedIDs)
	meta.TotalMatched = len(filtered)

	page := paginate(filtered, norm.Offset, norm.Limit)
	items := make([]Item, len(page))
	for i, c := range page {
		items[i] = Item{Row: c.Row, Score: c.Score}
	}

	resp := Response{Items: items, Meta: meta}
	if p.cache != nil && !meta.Degraded {
		p.cache.Set(norm, resp)
	}
	return resp, nil
}

// loadCandidateRows resolves every row a channel or a pure-filter listing
// touched, keyed by id, so Merge never needs to query the store itself.
func (p *Pipeline) loadCandidateRows(ctx context.Context, req Request, keyword []KeywordHit, semantic []SemanticHit, plan Plan) (map[string]repository.Row, error) {
	ids := make(map[string]bool)
	for _, h := range keyword {
		ids[h.EntryID] = true
	}
	for _, h := range semantic {
		ids[h.EntryID] = true
	}

	out := make(map[string]repository.Row, len(ids))

	if !plan.Keyword && !plan.Semantic {
		rows, uerr := p.entries.List(ctx, repository.ListFilter{
			Kinds:           req.Types,
			IncludeInactive: req.Filters.IncludeInactive,
			MinPriority:     req.Filters.MinPriority,
		})
		if uerr != nil {
			return nil, uerr
		}
		for _, r := range rows {
			out[r.ID] = r
		}
		return out, nil
	}

	idList := make([]string, 0, len(ids))
	for id := range ids {
		idList = append(idList, id)
	}
	rows, uerr := p.entries.GetByIDs(ctx, idList)
	if uerr != nil {
		return nil, uerr
	}
	for _, r := range rows {
		out[r.ID] = r
	}
	return out, nil
}

func intersect(a, b map[string]bool) map[string]bool {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	out := make(map[string]bool)
	for id := range a {
		if b[id] {
			out[id] = true
		}
	}
	return out
}

func paginate(candidates []Candidate, offset, limit int) []Candidate {
	if offset >= len(candidates) {
		return nil
	}
	end := offset + limit
	if end > len(candidates) {
		end = len(candidates)
	}
	return candidates[offset:end]
}
