package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/agentmemory/memoryd/internal/domain/scope"
	"github.com/agentmemory/memoryd/internal/domain/tag"
	apperrors "github.com/agentmemory/memoryd/internal/errors"
	"github.com/agentmemory/memoryd/internal/store/sqlite"
)

// TagRepository owns Tag rows and the EntryTag attach relation.
type TagRepository struct {
	db  *sqlite.DB
	log *zap.Logger
}

// NewTagRepository constructs a TagRepository.
func NewTagRepository(db *sqlite.DB, log *zap.Logger) *TagRepository {
	return &TagRepository{db: db, log: log}
}

// GetOrCreate normalizes name to lowercase and returns the existing Tag for
// (name, scope) or creates one; races are resolved by catching the unique
// violation and re-reading (spec section 4.1 "idempotent attach").
func (r *TagRepository) GetOrCreate(ctx context.Context, name string, s scope.Scope) (t tag.Tag, uerr *apperrors.UnifiedError) {
	const op = "tags.getOrCreate"
	normalized := strings.ToLower(strings.TrimSpace(name))
	if normalized == "" {
		return tag.Tag{}, apperrors.NewValidation(op, "tag name must not be empty")
	}

	if existing, found, err := r.lookup(ctx, normalized, s); err != nil {
		return tag.Tag{}, apperrors.NewInternal(op, "tag lookup failed", err)
	} else if found {
		return existing, nil
	}

	now := time.Now().UTC()
	fresh := tag.NewTag(normalized, s, now)
	err := r.db.WithWriteTx(ctx, func(tx *sql.Tx) error {
		_, execErr := tx.ExecContext(ctx,
			`INSERT INTO tags (id, name, scope_type, scope_id, created_at) VALUES (?, ?, ?, ?, ?)`,
			fresh.ID, fresh.Name, fresh.Scope.Type, fresh.Scope.ID, fresh.CreatedAt)
		return execErr
	})
	if isUniqueViolation(err) {
		existing, found, lookupErr := r.lookup(ctx, normalized, s)
		if lookupErr != nil {
			return tag.Tag{}, apperrors.NewInternal(op, "tag lookup after race failed", lookupErr)
		}
		if found {
			return existing, nil
		}
	}
	if err != nil {
		return tag.Tag{}, apperrors.NewInternal(op, "tag insert failed", err)
	}
	return fresh, nil
}

func (r *TagRepository) lookup(ctx context.Context, normalized string, s scope.Scope) (tag.Tag, bool, error) {
	var t tag.Tag
	var scopeType string
	err := r.db.Conn().QueryRowContext(ctx,
		`SELECT id, name, scope_type, scope_id, created_at FROM tags WHERE name = ? AND scope_type = ? AND scope_id = ?`,
		normalized, s.Type, s.ID).Scan(&t.ID, &t.Name, &scopeType, &t.Scope.ID, &t.CreatedAt)
	if err == sql.ErrNoRows {
		return tag.Tag{}, false, nil
	}
	if err != nil {
		return tag.Tag{}, false, err
	}
	t.Scope.Type = scope.Type(scopeType)
	return t, true, nil
}

// Attach links entryID to tagID, idempotently: (entryId, tagId) is unique
// (spec section 3, P-uniq-attach) so attaching twice is a no-op.
func (r *TagRepository) Attach(ctx context.Context, entryID, tagID string) *apperrors.UnifiedError {
	const op = "tags.attach"
	err := r.db.WithWriteTx(ctx, func(tx *sql.Tx) error {
		_, execErr := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO entry_tags (entry_id, tag_id, created_at) VALUES (?, ?, ?)`,
			entryID, tagID, time.Now().UTC())
		return execErr
	})
	if err != nil {
		return apperrors.NewInternal(op, "attach failed", err)
	}
	return nil
}

// EntryIDsMatchingAllTags returns the ids of every entry tagged with all of
// names (case-insensitive, already-lowercased by the caller), used by the
// query pipeline's tag filter (spec section 4.2 step 6: "tag filter is an
// AND of all requested tags").
func (r *TagRepository) EntryIDsMatchingAllTags(ctx context.Context, names []string) ([]string, *apperrors.UnifiedError) {
	const op = "tags.entryIDsMatchingAllTags"
	if len(names) == 0 {
		return nil, nil
	}
	args := make([]any, len(names))
	for i, n := range names {
		args[i] = n
	}
	query := `
		SELECT et.entry_id
		FROM entry_tags et JOIN tags t ON t.id = et.tag_id
		WHERE t.name IN (` + placeholders(len(names)) + `)
		GROUP BY et.entry_id
		HAVING COUNT(DISTINCT t.name) = ?`
	args = append(args, len(names))

	rows, err := r.db.Conn().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternal(op, "tag intersection query failed", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if scanErr := rows.Scan(&id); scanErr != nil {
			return nil, apperrors.NewInternal(op, "scan entry id failed", scanErr)
		}
		out = append(out, id)
	}
	return out, nil
}

// ListForEntry returns every tag attached to entryID.
func (r *TagRepository) ListForEntry(ctx context.Context, entryID string) ([]tag.Tag, *apperrors.UnifiedError) {
	const op = "tags.listForEntry"
	rows, err := r.db.Conn().QueryContext(ctx, `
		SELECT t.id, t.name, t.scope_type, t.scope_id, t.created_at
		FROM tags t JOIN entry_tags et ON et.tag_id = t.id
		WHERE et.entry_id = ?`, entryID)
	if err != nil {
		return nil, apperrors.NewInternal(op, "list tags failed", err)
	}
	defer rows.Close()

	var out []tag.Tag
	for rows.Next() {
		var t tag.Tag
		var scopeType string
		if scanErr := rows.Scan(&t.ID, &t.Name, &scopeType, &t.Scope.ID, &t.CreatedAt); scanErr != nil {
			return nil, apperrors.NewInternal(op, "scan tag failed", scanErr)
		}
		t.Scope.Type = scope.Type(scopeType)
		out = append(out, t)
	}
	return out, nil
}
