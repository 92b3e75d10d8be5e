package repository

import (
	"context"
	"strings"

	"github.com/agentmemory/memoryd/internal/domain/entrytype"
	"github.com/agentmemory/memoryd/internal/domain/scope"
	apperrors "github.com/agentmemory/memoryd/internal/errors"
)

// ListFilter narrows a scoped listing for the query pipeline's filter
// stage and its pure-filter degraded path (spec section 4.2 step 2).
type ListFilter struct {
	Kinds           []entrytype.Kind
	Scopes          []scope.Scope // expanded ancestor chain when inherit=true
	MinPriority     int
	IncludeInactive bool
	CreatedAfter    *string // RFC3339, pre-formatted by the caller
	CreatedBefore   *string
}

// List returns every entry row matching filter, unordered; ranking is the
// query pipeline's concern, not the repository's (spec section 4.2 step 5).
func (r *EntryRepository) List(ctx context.Context, filter ListFilter) ([]Row, *apperrors.UnifiedError) {
	const op = "entries.list"
	query := `SELECT id, entry_type, scope_type, scope_id, name, title, content, category, priority, confidence, outcome, qualifier, current_version, valid_from, valid_until, created_by, created_at, updated_at, is_active FROM entries WHERE 1=1`
	var args []any

	if !filter.IncludeInactive {
		query += ` AND is_active = 1`
	}
	if len(filter.Kinds) > 0 {
		query += ` AND entry_type IN (` + placeholders(len(filter.Kinds)) + `)`
		for _, k := range filter.Kinds {
			args = append(args, string(k))
		}
	}
	if len(filter.Scopes) > 0 {
		clauses := make([]string, len(filter.Scopes))
		for i, s := range filter.Scopes {
			clauses[i] = "(scope_type = ? AND scope_id = ?)"
			args = append(args, string(s.Type), s.ID)
		}
		query += ` AND (` + strings.Join(clauses, " OR ") + `)`
	}
	if filter.MinPriority > 0 {
		query += ` AND priority >= ?`
		args = append(args, filter.MinPriority)
	}
	if filter.CreatedAfter != nil {
		query += ` AND created_at >= ?`
		args = append(args, *filter.CreatedAfter)
	}
	if filter.CreatedBefore != nil {
		query += ` AND created_at <= ?`
		args = append(args, *filter.CreatedBefore)
	}

	rows, err := r.db.Conn().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternal(op, "list query failed", err)
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		var row Row
		var scopeType string
		if scanErr := rows.Scan(&row.ID, &row.Kind, &scopeType, &row.Scope.ID, &row.Name, &row.Title, &row.Content, &row.Category,
			&row.Priority, &row.Confidence, &row.Outcome, &row.Qualifier, &row.CurrentVersion, &row.ValidFrom, &row.ValidUntil,
			&row.CreatedBy, &row.CreatedAt, &row.UpdatedAt, &row.IsActive); scanErr != nil {
			return nil, apperrors.NewInternal(op, "scan row failed", scanErr)
		}
		row.Scope.Type = scope.Type(scopeType)
		out = append(out, row)
	}
	return out, nil
}

// FTSHit pairs a matched row id with SQLite's raw bm25 score (more negative
// is more relevant, per FTS5's convention; the query pipeline normalizes).
type FTSHit struct {
	EntryID string
	BM25    float64
}

// SearchFTS runs query against the entries_fts shadow table, restricted to
// kinds when non-empty. An FTS5 syntax error (malformed operator sequence)
// is reported as a ValidationError so the query pipeline can fall back to
// the LIKE channel rather than surface a 500 (spec section 4.2 step 3).
func (r *EntryRepository) SearchFTS(ctx context.Context, query string, kinds []entrytype.Kind) ([]FTSHit, *apperrors.UnifiedError) {
	const op = "entries.searchFTS"
	sqlQuery := `
		SELECT e.id, bm25(entries_fts) FROM entries_fts
		JOIN entries e ON e.id = entries_fts.entry_id
		WHERE entries_fts MATCH ? AND e.is_active = 1`
	args := []any{query}
	if len(kinds) > 0 {
		sqlQuery += ` AND e.entry_type IN (` + placeholders(len(kinds)) + `)`
		for _, k := range kinds {
			args = append(args, string(k))
		}
	}
	sqlQuery += ` ORDER BY bm25(entries_fts)`

	rows, err := r.db.Conn().QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, apperrors.NewValidation(op, "fts query rejected: "+err.Error())
	}
	defer rows.Close()

	var out []FTSHit
	for rows.Next() {
		var hit FTSHit
		if scanErr := rows.Scan(&hit.EntryID, &hit.BM25); scanErr != nil {
			return nil, apperrors.NewInternal(op, "scan fts hit failed", scanErr)
		}
		out = append(out, hit)
	}
	return out, nil
}

// SearchLike runs a case-insensitive substring scan over name/title/content,
// the degraded channel used when FTS is unavailable or returns zero hits
// under fuzzy=true (spec section 4.2 step 3).
func (r *EntryRepository) SearchLike(ctx context.Context, term string, kinds []entrytype.Kind) ([]Row, *apperrors.UnifiedError) {
	const op = "entries.searchLike"
	query := `
		SELECT id, entry_type, scope_type, scope_id, name, title, content, category, priority, confidence, outcome, qualifier, current_version, valid_from, valid_until, created_by, created_at, updated_at, is_active
		FROM entries WHERE is_active = 1 AND (name LIKE ? ESCAPE '\' OR title LIKE ? ESCAPE '\' OR content LIKE ? ESCAPE '\')`
	pattern := "%" + escapeLike(term) + "%"
	args := []any{pattern, pattern, pattern}
	if len(kinds) > 0 {
		query += ` AND entry_type IN (` + placeholders(len(kinds)) + `)`
		for _, k := range kinds {
			args = append(args, string(k))
		}
	}

	rows, err := r.db.Conn().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternal(op, "like query failed", err)
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		var row Row
		var scopeType string
		if scanErr := rows.Scan(&row.ID, &row.Kind, &scopeType, &row.Scope.ID, &row.Name, &row.Title, &row.Content, &row.Category,
			&row.Priority, &row.Confidence, &row.Outcome, &row.Qualifier, &row.CurrentVersion, &row.ValidFrom, &row.ValidUntil,
			&row.CreatedBy, &row.CreatedAt, &row.UpdatedAt, &row.IsActive); scanErr != nil {
			return nil, apperrors.NewInternal(op, "scan row failed", scanErr)
		}
		row.Scope.Type = scope.Type(scopeType)
		out = append(out, row)
	}
	return out, nil
}

// GetByIDs fetches rows by id; the query pipeline uses it to load the rows
// behind the keyword and semantic channels' hits.
func (r *EntryRepository) GetByIDs(ctx context.Context, ids []string) ([]Row, *apperrors.UnifiedError) {
	const op = "entries.getByIDs"
	if len(ids) == 0 {
		return nil, nil
	}
	query := `
		SELECT id, entry_type, scope_type, scope_id, name, title, content, category, priority, confidence, outcome, qualifier, current_version, valid_from, valid_until, created_by, created_at, updated_at, is_active
		FROM entries WHERE is_active = 1 AND id IN (` + placeholders(len(ids)) + `)`
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	rows, err := r.db.Conn().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternal(op, "get by ids failed", err)
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		var row Row
		var scopeType string
		if scanErr := rows.Scan(&row.ID, &row.Kind, &scopeType, &row.Scope.ID, &row.Name, &row.Title, &row.Content, &row.Category,
			&row.Priority, &row.Confidence, &row.Outcome, &row.Qualifier, &row.CurrentVersion, &row.ValidFrom, &row.ValidUntil,
			&row.CreatedBy, &row.CreatedAt, &row.UpdatedAt, &row.IsActive); scanErr != nil {
			return nil, apperrors.NewInternal(op, "scan row failed", scanErr)
		}
		row.Scope.Type = scope.Type(scopeType)
		out = append(out, row)
	}
	return out, nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
