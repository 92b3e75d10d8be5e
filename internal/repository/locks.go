package repository

import (
	"context"
	"database/sql"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/agentmemory/memoryd/internal/domain/lock"
	apperrors "github.com/agentmemory/memoryd/internal/errors"
	"github.com/agentmemory/memoryd/internal/store/sqlite"
)

// LockRepository owns FileLock rows (spec section 4.5.2). Grounded on the
// teacher's optimistic-locking compare-and-swap idiom
// (internal/repository/optimistic_lock.go), adapted from a version counter
// to a TTL-bounded lease.
type LockRepository struct {
	db  *sqlite.DB
	log *zap.Logger
}

// NewLockRepository constructs a LockRepository.
func NewLockRepository(db *sqlite.DB, log *zap.Logger) *LockRepository {
	return &LockRepository{db: db, log: log}
}

// normalizePath resolves relative segments and ".." without touching the
// filesystem (spec section 4.5.2: "Paths are normalized... at the
// repository layer; handler-layer path-policy enforcement is out of
// scope").
func normalizePath(path string) string {
	if !filepath.IsAbs(path) {
		path = "/" + strings.TrimPrefix(path, "/")
	}
	return filepath.Clean(path)
}

// Checkout acquires a lock on filePath for agent. An existing lock that has
// passed expiresAt is deleted in the same transaction as the new insert
// (spec section 4.5.2).
func (r *LockRepository) Checkout(ctx context.Context, filePath, agent string, expiresIn time.Duration) (lock.FileLock, *apperrors.UnifiedError) {
	const op = "locks.checkout"
	if expiresIn > lock.MaxExpiresInSeconds*time.Second {
		return lock.FileLock{}, apperrors.NewValidation(op, "expiresIn exceeds the maximum lease duration")
	}

	path := normalizePath(filePath)
	now := time.Now().UTC()
	fresh := lock.New(path, agent, expiresIn, now)

	err := r.db.WithWriteTx(ctx, func(tx *sql.Tx) error {
		var checkedOutAt time.Time
		var expiresAt sql.NullTime
		scanErr := tx.QueryRowContext(ctx, `SELECT checked_out_at, expires_at FROM file_locks WHERE file_path = ?`, path).Scan(&checkedOutAt, &expiresAt)
		switch {
		case scanErr == sql.ErrNoRows:
			// no existing lock
		case scanErr != nil:
			return apperrors.NewInternal(op, "lookup lock failed", scanErr)
		default:
			existing := lock.FileLock{CheckedOutAt: checkedOutAt}
			if expiresAt.Valid {
				existing.ExpiresAt = &expiresAt.Time
			}
			if !existing.Expired(now) {
				return apperrors.NewInvalidState(op, "file is already checked out")
			}
			if _, delErr := tx.ExecContext(ctx, `DELETE FROM file_locks WHERE file_path = ?`, path); delErr != nil {
				return apperrors.NewInternal(op, "expired lock cleanup failed", delErr)
			}
		}

		_, execErr := tx.ExecContext(ctx, `
			INSERT INTO file_locks (file_path, checked_out_by, checked_out_at, expires_at)
			VALUES (?, ?, ?, ?)`, fresh.FilePath, fresh.CheckedOutBy, fresh.CheckedOutAt, fresh.ExpiresAt)
		return execErr
	})
	if err != nil {
		return lock.FileLock{}, asUnified(op, err)
	}
	return fresh, nil
}

// Release removes a lock held by agent. Releasing a lock not held by agent
// is an InvalidAction; releasing a nonexistent lock is a NotFound.
func (r *LockRepository) Release(ctx context.Context, filePath, agent string) *apperrors.UnifiedError {
	const op = "locks.release"
	path := normalizePath(filePath)
	return asUnified(op, r.db.WithWriteTx(ctx, func(tx *sql.Tx) error {
		var holder string
		scanErr := tx.QueryRowContext(ctx, `SELECT checked_out_by FROM file_locks WHERE file_path = ?`, path).Scan(&holder)
		if scanErr == sql.ErrNoRows {
			return apperrors.NewNotFound(op, "file lock")
		}
		if scanErr != nil {
			return apperrors.NewInternal(op, "lookup lock failed", scanErr)
		}
		if holder != agent {
			return apperrors.NewInvalidState(op, "lock is held by a different agent")
		}
		_, execErr := tx.ExecContext(ctx, `DELETE FROM file_locks WHERE file_path = ?`, path)
		return execErr
	}))
}

// Get returns the lock on filePath, nil if none or expired.
func (r *LockRepository) Get(ctx context.Context, filePath string) (*lock.FileLock, *apperrors.UnifiedError) {
	const op = "locks.get"
	path := normalizePath(filePath)
	var l lock.FileLock
	var expiresAt sql.NullTime
	err := r.db.Conn().QueryRowContext(ctx, `SELECT file_path, checked_out_by, checked_out_at, expires_at FROM file_locks WHERE file_path = ?`, path).
		Scan(&l.FilePath, &l.CheckedOutBy, &l.CheckedOutAt, &expiresAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.NewInternal(op, "lookup lock failed", err)
	}
	if expiresAt.Valid {
		l.ExpiresAt = &expiresAt.Time
	}
	if l.Expired(time.Now().UTC()) {
		return nil, nil
	}
	return &l, nil
}

// CleanupExpired purges every lock past its expiresAt and reports the
// number removed (spec section 4.5.2).
func (r *LockRepository) CleanupExpired(ctx context.Context) (int, *apperrors.UnifiedError) {
	const op = "locks.cleanupExpired"
	var purged int64
	err := r.db.WithWriteTx(ctx, func(tx *sql.Tx) error {
		res, execErr := tx.ExecContext(ctx, `DELETE FROM file_locks WHERE expires_at IS NOT NULL AND expires_at < ?`, time.Now().UTC())
		if execErr != nil {
			return execErr
		}
		purged, execErr = res.RowsAffected()
		return execErr
	})
	if err != nil {
		return 0, apperrors.NewInternal(op, "cleanup failed", err)
	}
	return int(purged), nil
}
