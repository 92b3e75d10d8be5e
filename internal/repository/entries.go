package repository

import (
	"context"
	"database/sql"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/agentmemory/memoryd/internal/domain/entrytype"
	"github.com/agentmemory/memoryd/internal/domain/scope"
	apperrors "github.com/agentmemory/memoryd/internal/errors"
	"github.com/agentmemory/memoryd/internal/store/sqlite"
	"github.com/agentmemory/memoryd/internal/validation"
)

// EntryRepository is the single write/read path for all four Entry
// variants, sharing one physical table (spec section 3 storage mapping).
// Kind-specific columns are simply left at their zero value for rows of a
// different kind.
type EntryRepository struct {
	db     *sqlite.DB
	limits validation.Limits
	log    *zap.Logger
}

// NewEntryRepository constructs an EntryRepository.
func NewEntryRepository(db *sqlite.DB, limits validation.Limits, log *zap.Logger) *EntryRepository {
	return &EntryRepository{db: db, limits: limits, log: log}
}

// CreateGuideline validates and persists a Guideline, indexing its
// name/content into FTS5 in the same transaction.
func (r *EntryRepository) CreateGuideline(ctx context.Context, agent string, g *entrytype.Guideline) *apperrors.UnifiedError {
	const op = "entries.createGuideline"
	if uerr := r.validateCommon(op, g.Scope, g.Name, "", g.Content); uerr != nil {
		return uerr
	}
	if g.Priority < 0 || g.Priority > 100 {
		return apperrors.NewValidation(op, "priority must be within [0,100]")
	}
	now := time.Now().UTC()
	g.Common = entrytype.NewCommon(g.Scope, agent, now)

	err := r.db.WithWriteTx(ctx, func(tx *sql.Tx) error {
		_, execErr := tx.ExecContext(ctx, `
			INSERT INTO entries (id, entry_type, scope_type, scope_id, name, content, category, priority, created_by, created_at, updated_at, is_active)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1)`,
			g.ID, entrytype.KindGuideline, g.Scope.Type, g.Scope.ID, g.Name, g.Content, g.Category, g.Priority, g.CreatedBy, g.CreatedAt, g.UpdatedAt)
		if isUniqueViolation(execErr) {
			return apperrors.NewUniqueConstraint(op, "guideline")
		}
		if execErr != nil {
			return apperrors.NewInternal(op, "insert guideline failed", execErr)
		}
		if idxErr := sqlite.IndexEntry(ctx, tx, g.ID, g.Name, "", g.Content); idxErr != nil {
			return apperrors.NewInternal(op, "fts index failed", idxErr)
		}
		return writeAudit(ctx, tx, entrytype.KindGuideline, g.ID, "create", agent)
	})
	return asUnified(op, err)
}

// CreateKnowledge validates and persists a Knowledge entry.
func (r *EntryRepository) CreateKnowledge(ctx context.Context, agent string, k *entrytype.Knowledge) *apperrors.UnifiedError {
	const op = "entries.createKnowledge"
	if uerr := r.validateCommon(op, k.Scope, "", k.Title, k.Content); uerr != nil {
		return uerr
	}
	if k.Confidence < 0 || k.Confidence > 1 {
		return apperrors.NewValidation(op, "confidence must be within [0,1]")
	}
	now := time.Now().UTC()
	k.Common = entrytype.NewCommon(k.Scope, agent, now)

	err := r.db.WithWriteTx(ctx, func(tx *sql.Tx) error {
		_, execErr := tx.ExecContext(ctx, `
			INSERT INTO entries (id, entry_type, scope_type, scope_id, title, content, category, confidence, valid_from, valid_until, created_by, created_at, updated_at, is_active)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1)`,
			k.ID, entrytype.KindKnowledge, k.Scope.Type, k.Scope.ID, k.Title, k.Content, k.Category, k.Confidence, k.ValidFrom, k.ValidUntil, k.CreatedBy, k.CreatedAt, k.UpdatedAt)
		if execErr != nil {
			return apperrors.NewInternal(op, "insert knowledge failed", execErr)
		}
		if idxErr := sqlite.IndexEntry(ctx, tx, k.ID, "", k.Title, k.Content); idxErr != nil {
			return apperrors.NewInternal(op, "fts index failed", idxErr)
		}
		return writeAudit(ctx, tx, entrytype.KindKnowledge, k.ID, "create", agent)
	})
	return asUnified(op, err)
}

// CreateTool validates and persists a Tool.
func (r *EntryRepository) CreateTool(ctx context.Context, agent string, t *entrytype.Tool) *apperrors.UnifiedError {
	const op = "entries.createTool"
	if uerr := r.validateCommon(op, t.Scope, t.Name, "", t.Description); uerr != nil {
		return uerr
	}
	now := time.Now().UTC()
	t.Common = entrytype.NewCommon(t.Scope, agent, now)

	err := r.db.WithWriteTx(ctx, func(tx *sql.Tx) error {
		_, execErr := tx.ExecContext(ctx, `
			INSERT INTO entries (id, entry_type, scope_type, scope_id, name, content, category, current_version, created_by, created_at, updated_at, is_active)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1)`,
			t.ID, entrytype.KindTool, t.Scope.Type, t.Scope.ID, t.Name, t.Description, t.Category, t.CurrentVersion, t.CreatedBy, t.CreatedAt, t.UpdatedAt)
		if isUniqueViolation(execErr) {
			return apperrors.NewUniqueConstraint(op, "tool")
		}
		if execErr != nil {
			return apperrors.NewInternal(op, "insert tool failed", execErr)
		}
		if idxErr := sqlite.IndexEntry(ctx, tx, t.ID, t.Name, "", t.Description); idxErr != nil {
			return apperrors.NewInternal(op, "fts index failed", idxErr)
		}
		return writeAudit(ctx, tx, entrytype.KindTool, t.ID, "create", agent)
	})
	return asUnified(op, err)
}

// CreateExperience validates and persists an Experience.
func (r *EntryRepository) CreateExperience(ctx context.Context, agent string, e *entrytype.Experience) *apperrors.UnifiedError {
	const op = "entries.createExperience"
	if uerr := r.validateCommon(op, e.Scope, "", e.Title, e.Scenario); uerr != nil {
		return uerr
	}
	now := time.Now().UTC()
	e.Common = entrytype.NewCommon(e.Scope, agent, now)

	err := r.db.WithWriteTx(ctx, func(tx *sql.Tx) error {
		_, execErr := tx.ExecContext(ctx, `
			INSERT INTO entries (id, entry_type, scope_type, scope_id, title, content, category, outcome, qualifier, confidence, created_by, created_at, updated_at, is_active)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1)`,
			e.ID, entrytype.KindExperience, e.Scope.Type, e.Scope.ID, e.Title, e.Scenario, e.Category, e.Outcome, e.Qualifier, e.Confidence, e.CreatedBy, e.CreatedAt, e.UpdatedAt)
		if execErr != nil {
			return apperrors.NewInternal(op, "insert experience failed", execErr)
		}
		if idxErr := sqlite.IndexEntry(ctx, tx, e.ID, "", e.Title, e.Scenario); idxErr != nil {
			return apperrors.NewInternal(op, "fts index failed", idxErr)
		}
		return writeAudit(ctx, tx, entrytype.KindExperience, e.ID, "create", agent)
	})
	return asUnified(op, err)
}

// GetByName performs an exact scoped lookup by (entryType, name, scope);
// repositories are scope-exact, inheritance expansion happens at the query
// layer (spec section 4.1).
func (r *EntryRepository) GetByName(ctx context.Context, kind entrytype.Kind, name string, s scope.Scope) (row *Row, uerr *apperrors.UnifiedError) {
	const op = "entries.getByName"
	q := r.db.Conn().QueryRowContext(ctx, `
		SELECT id, entry_type, scope_type, scope_id, name, title, content, category, priority, confidence, outcome, qualifier, current_version, valid_from, valid_until, created_by, created_at, updated_at, is_active
		FROM entries WHERE entry_type = ? AND name = ? AND scope_type = ? AND scope_id = ? AND is_active = 1`,
		kind, name, s.Type, s.ID)
	r2, err := scanRow(q)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.NewInternal(op, "lookup failed", err)
	}
	return r2, nil
}

// FindByTitle performs an exact scoped lookup by (entryType, title, scope),
// used for the duplicate check ahead of Knowledge/Experience creation where
// the natural key is title rather than name (spec section 4.3.3).
func (r *EntryRepository) FindByTitle(ctx context.Context, kind entrytype.Kind, title string, s scope.Scope) (*Row, *apperrors.UnifiedError) {
	const op = "entries.findByTitle"
	q := r.db.Conn().QueryRowContext(ctx, `
		SELECT id, entry_type, scope_type, scope_id, name, title, content, category, priority, confidence, outcome, qualifier, current_version, valid_from, valid_until, created_by, created_at, updated_at, is_active
		FROM entries WHERE entry_type = ? AND title = ? AND scope_type = ? AND scope_id = ? AND is_active = 1`,
		kind, title, s.Type, s.ID)
	row, err := scanRow(q)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.NewInternal(op, "lookup failed", err)
	}
	return row, nil
}

// SoftDelete flips isActive=false and removes the entry's FTS5 shadow row
// in the same transaction (spec section 4.1 lifecycle).
func (r *EntryRepository) SoftDelete(ctx context.Context, agent string, kind entrytype.Kind, id string) *apperrors.UnifiedError {
	const op = "entries.softDelete"
	err := r.db.WithWriteTx(ctx, func(tx *sql.Tx) error {
		res, execErr := tx.ExecContext(ctx, `UPDATE entries SET is_active = 0, updated_at = ? WHERE id = ? AND is_active = 1`, time.Now().UTC(), id)
		if execErr != nil {
			return apperrors.NewInternal(op, "soft delete failed", execErr)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return apperrors.NewNotFound(op, "entry")
		}
		if idxErr := sqlite.DeindexEntry(ctx, tx, id); idxErr != nil {
			return apperrors.NewInternal(op, "fts deindex failed", idxErr)
		}
		return writeAudit(ctx, tx, kind, id, "soft_delete", agent)
	})
	return asUnified(op, err)
}

func (r *EntryRepository) validateCommon(op string, s scope.Scope, name, title, body string) *apperrors.UnifiedError {
	if uerr := s.Validate(op); uerr != nil {
		return uerr
	}
	if name != "" && !validation.CheckLength(name, r.limits.NameMaxLength) {
		return apperrors.NewSizeLimitExceeded(op, "name", r.limits.NameMaxLength, utf8.RuneCountInString(name), "runes")
	}
	if title != "" && !validation.CheckLength(title, r.limits.TitleMaxLength) {
		return apperrors.NewSizeLimitExceeded(op, "title", r.limits.TitleMaxLength, utf8.RuneCountInString(title), "runes")
	}
	if !validation.CheckLength(body, r.limits.ContentMaxLength) {
		return apperrors.NewSizeLimitExceeded(op, "content", r.limits.ContentMaxLength, utf8.RuneCountInString(body), "runes")
	}
	return nil
}

// Row is the flattened projection of the entries table, used by callers
// (query pipeline, consolidation) that need to read across kinds without
// reconstructing a typed Entry.
type Row struct {
	ID             string
	Kind           entrytype.Kind
	Scope          scope.Scope
	Name           string
	Title          string
	Content        string
	Category       string
	Priority       int
	Confidence     float64
	Outcome        string
	Qualifier      string
	CurrentVersion string
	ValidFrom      *time.Time
	ValidUntil     *time.Time
	CreatedBy      string
	CreatedAt      time.Time
	UpdatedAt      time.Time
	IsActive       bool
}

func scanRow(row *sql.Row) (*Row, error) {
	var r Row
	var scopeType string
	err := row.Scan(&r.ID, &r.Kind, &scopeType, &r.Scope.ID, &r.Name, &r.Title, &r.Content, &r.Category,
		&r.Priority, &r.Confidence, &r.Outcome, &r.Qualifier, &r.CurrentVersion, &r.ValidFrom, &r.ValidUntil,
		&r.CreatedBy, &r.CreatedAt, &r.UpdatedAt, &r.IsActive)
	if err != nil {
		return nil, err
	}
	r.Scope.Type = scope.Type(scopeType)
	return &r, nil
}
