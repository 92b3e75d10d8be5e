package sqlite

import (
	"context"
	"database/sql"
)

// IndexEntry inserts or replaces an entry's FTS5 shadow row. Called inside
// the same write transaction as the primary row (spec section 4.1 point 3).
func IndexEntry(ctx context.Context, tx *sql.Tx, entryID, name, title, content string) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM entries_fts WHERE entry_id = ?`, entryID); err != nil {
		return err
	}
	_, err := tx.ExecContext(ctx,
		`INSERT INTO entries_fts (entry_id, name, title, content) VALUES (?, ?, ?, ?)`,
		entryID, name, title, content)
	return err
}

// DeindexEntry removes an entry's FTS5 shadow row, used on soft-delete
// (isActive=false) so stale rows never surface in search (spec section 4.1).
func DeindexEntry(ctx context.Context, tx *sql.Tx, entryID string) error {
	_, err := tx.ExecContext(ctx, `DELETE FROM entries_fts WHERE entry_id = ?`, entryID)
	return err
}
