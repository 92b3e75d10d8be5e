package repository

import (
	"context"
	"database/sql"
	"time"

	"go.uber.org/zap"

	"github.com/agentmemory/memoryd/internal/domain/entrytype"
	"github.com/agentmemory/memoryd/internal/domain/relation"
	apperrors "github.com/agentmemory/memoryd/internal/errors"
	"github.com/agentmemory/memoryd/internal/store/sqlite"
)

// RelationRepository owns EntryRelation rows and their BFS traversal used
// by the query pipeline's relation-traversal filter (spec section 4.2).
type RelationRepository struct {
	db  *sqlite.DB
	log *zap.Logger
}

// NewRelationRepository constructs a RelationRepository.
func NewRelationRepository(db *sqlite.DB, log *zap.Logger) *RelationRepository {
	return &RelationRepository{db: db, log: log}
}

// Create persists a new EntryRelation.
func (r *RelationRepository) Create(ctx context.Context, rel relation.EntryRelation) *apperrors.UnifiedError {
	const op = "relations.create"
	if rel.CreatedAt.IsZero() {
		rel.CreatedAt = time.Now().UTC()
	}
	err := r.db.WithWriteTx(ctx, func(tx *sql.Tx) error {
		_, execErr := tx.ExecContext(ctx, `
			INSERT INTO entry_relations (id, source_type, source_id, target_type, target_id, relation_type, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			rel.ID, rel.SourceType, rel.SourceID, rel.TargetType, rel.TargetID, rel.RelationType, rel.CreatedAt)
		return execErr
	})
	if err != nil {
		return apperrors.NewInternal(op, "insert relation failed", err)
	}
	return nil
}

// edgesFrom returns the relations touching (kind, id) in the requested
// direction, used as one BFS expansion step.
func (r *RelationRepository) edgesFrom(ctx context.Context, kind entrytype.Kind, id string, dir relation.Direction) ([]relation.EntryRelation, error) {
	var query string
	switch dir {
	case relation.DirectionIncoming:
		query = `SELECT id, source_type, source_id, target_type, target_id, relation_type, created_at FROM entry_relations WHERE target_type = ? AND target_id = ?`
	default:
		query = `SELECT id, source_type, source_id, target_type, target_id, relation_type, created_at FROM entry_relations WHERE source_type = ? AND source_id = ?`
	}
	rows, err := r.db.Conn().QueryContext(ctx, query, kind, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []relation.EntryRelation
	for rows.Next() {
		var rel relation.EntryRelation
		if scanErr := rows.Scan(&rel.ID, &rel.SourceType, &rel.SourceID, &rel.TargetType, &rel.TargetID, &rel.RelationType, &rel.CreatedAt); scanErr != nil {
			return nil, scanErr
		}
		out = append(out, rel)
	}

	if dir == relation.DirectionBoth {
		inbound, err := r.edgesFrom(ctx, kind, id, relation.DirectionIncoming)
		if err != nil {
			return nil, err
		}
		out = append(out, inbound...)
	}
	return out, nil
}

// Endpoint identifies one side of a relation for BFS frontier tracking.
type Endpoint struct {
	Kind entrytype.Kind
	ID   string
}

// Traverse performs a breadth-first expansion from (kind, id) up to
// maxDepth hops, returning every distinct entry endpoint reached (spec
// section 4.2: "relation-traversal expands the candidate set BFS up to
// maxDepth before filtering").
func (r *RelationRepository) Traverse(ctx context.Context, kind entrytype.Kind, id string, dir relation.Direction, maxDepth int) ([]Endpoint, *apperrors.UnifiedError) {
	const op = "relations.traverse"
	if maxDepth < 0 {
		maxDepth = 0
	}
	if maxDepth > 10 {
		maxDepth = 10
	}

	visited := map[Endpoint]bool{{Kind: kind, ID: id}: true}
	frontier := []Endpoint{{Kind: kind, ID: id}}
	var reached []Endpoint

	for depth := 0; depth < maxDepth && len(frontier) > 0; depth++ {
		var next []Endpoint
		for _, ep := range frontier {
			edges, err := r.edgesFrom(ctx, ep.Kind, ep.ID, dir)
			if err != nil {
				return nil, apperrors.NewInternal(op, "traverse failed", err)
			}
			for _, e := range edges {
				other := Endpoint{Kind: e.TargetType, ID: e.TargetID}
				if other == ep {
					other = Endpoint{Kind: e.SourceType, ID: e.SourceID}
				}
				if visited[other] {
					continue
				}
				visited[other] = true
				reached = append(reached, other)
				next = append(next, other)
			}
		}
		frontier = next
	}
	return reached, nil
}
