package sqlite

import (
	"context"
	"database/sql"
	"fmt"
)

// migrations is an ordered, append-only list of schema steps. Each step runs
// exactly once, tracked in schema_migrations, mirroring cmd/migrate's exit
// code contract (spec section 6.1): a failed step aborts with a non-zero
// status rather than leaving the schema half-applied.
var migrations = []struct {
	version int
	sql     string
}{
	{1, schemaV1},
}

const schemaV1 = `
CREATE TABLE IF NOT EXISTS entries (
	id TEXT PRIMARY KEY,
	entry_type TEXT NOT NULL,
	scope_type TEXT NOT NULL,
	scope_id TEXT NOT NULL DEFAULT '',
	name TEXT NOT NULL DEFAULT '',
	title TEXT NOT NULL DEFAULT '',
	content TEXT NOT NULL DEFAULT '',
	category TEXT NOT NULL DEFAULT '',
	priority INTEGER NOT NULL DEFAULT 0,
	confidence REAL NOT NULL DEFAULT 0,
	outcome TEXT NOT NULL DEFAULT '',
	qualifier TEXT NOT NULL DEFAULT '',
	current_version TEXT NOT NULL DEFAULT '',
	valid_from DATETIME,
	valid_until DATETIME,
	created_by TEXT NOT NULL,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL,
	is_active INTEGER NOT NULL DEFAULT 1
);
CREATE INDEX IF NOT EXISTS idx_entries_scope ON entries(scope_type, scope_id);
CREATE INDEX IF NOT EXISTS idx_entries_type_scope ON entries(entry_type, scope_type, scope_id);
CREATE UNIQUE INDEX IF NOT EXISTS idx_entries_name_scope ON entries(entry_type, name, scope_type, scope_id) WHERE name != '';

CREATE VIRTUAL TABLE IF NOT EXISTS entries_fts USING fts5(
	entry_id UNINDEXED,
	name, title, content,
	tokenize = 'porter unicode61'
);

CREATE TABLE IF NOT EXISTS tags (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	scope_type TEXT NOT NULL,
	scope_id TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_tags_name_scope ON tags(name, scope_type, scope_id);

CREATE TABLE IF NOT EXISTS entry_tags (
	entry_id TEXT NOT NULL,
	tag_id TEXT NOT NULL,
	created_at TEXT NOT NULL,
	PRIMARY KEY (entry_id, tag_id)
);

CREATE TABLE IF NOT EXISTS entry_relations (
	id TEXT PRIMARY KEY,
	source_type TEXT NOT NULL,
	source_id TEXT NOT NULL,
	target_type TEXT NOT NULL,
	target_id TEXT NOT NULL,
	relation_type TEXT NOT NULL,
	created_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_relations_source ON entry_relations(source_type, source_id);
CREATE INDEX IF NOT EXISTS idx_relations_target ON entry_relations(target_type, target_id);

CREATE TABLE IF NOT EXISTS conversations (
	id TEXT PRIMARY KEY,
	session_id TEXT NOT NULL DEFAULT '',
	project_id TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL,
	title TEXT NOT NULL DEFAULT '',
	metadata TEXT NOT NULL DEFAULT '{}',
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS messages (
	id TEXT PRIMARY KEY,
	conversation_id TEXT NOT NULL,
	role TEXT NOT NULL,
	content TEXT NOT NULL,
	context_entries TEXT NOT NULL DEFAULT '[]',
	tools_used TEXT NOT NULL DEFAULT '[]',
	metadata TEXT NOT NULL DEFAULT '{}',
	created_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_messages_conversation ON messages(conversation_id, created_at);

CREATE TABLE IF NOT EXISTS conversation_contexts (
	id TEXT PRIMARY KEY,
	conversation_id TEXT NOT NULL,
	message_id TEXT NOT NULL DEFAULT '',
	entry_type TEXT NOT NULL,
	entry_id TEXT NOT NULL,
	relevance_score REAL,
	created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS episodes (
	id TEXT PRIMARY KEY,
	session_id TEXT NOT NULL,
	name TEXT NOT NULL,
	status TEXT NOT NULL,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_episodes_one_active
	ON episodes(session_id) WHERE status = 'active';

CREATE TABLE IF NOT EXISTS episode_events (
	id TEXT PRIMARY KEY,
	episode_id TEXT NOT NULL,
	type TEXT NOT NULL,
	sequence INTEGER NOT NULL,
	payload TEXT NOT NULL DEFAULT '{}',
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_episode_events_episode ON episode_events(episode_id, sequence);

CREATE TABLE IF NOT EXISTS episode_links (
	id TEXT PRIMARY KEY,
	episode_id TEXT NOT NULL,
	entry_type TEXT NOT NULL,
	entry_id TEXT NOT NULL,
	role TEXT NOT NULL,
	created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS file_locks (
	file_path TEXT PRIMARY KEY,
	checked_out_by TEXT NOT NULL,
	checked_out_at DATETIME NOT NULL,
	expires_at DATETIME
);

CREATE TABLE IF NOT EXISTS classification_feedback (
	id TEXT PRIMARY KEY,
	text_hash TEXT NOT NULL,
	predicted TEXT NOT NULL,
	actual TEXT NOT NULL,
	method TEXT NOT NULL,
	confidence REAL NOT NULL,
	was_correct INTEGER NOT NULL,
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_feedback_hash ON classification_feedback(text_hash);

CREATE TABLE IF NOT EXISTS pattern_confidence (
	pattern_id TEXT PRIMARY KEY,
	pattern_type TEXT NOT NULL,
	base_weight REAL NOT NULL,
	feedback_multiplier REAL NOT NULL DEFAULT 1,
	total_matches INTEGER NOT NULL DEFAULT 0,
	correct_matches INTEGER NOT NULL DEFAULT 0,
	incorrect_matches INTEGER NOT NULL DEFAULT 0,
	updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS audit_log (
	id TEXT PRIMARY KEY,
	entry_type TEXT NOT NULL,
	entry_id TEXT NOT NULL,
	action TEXT NOT NULL,
	agent_id TEXT NOT NULL,
	detail TEXT NOT NULL DEFAULT '{}',
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_audit_entry ON audit_log(entry_type, entry_id);

CREATE TABLE IF NOT EXISTS decision_log (
	id TEXT PRIMARY KEY,
	surface TEXT NOT NULL,
	state_features TEXT NOT NULL DEFAULT '{}',
	prompt TEXT NOT NULL DEFAULT '',
	outcome TEXT NOT NULL DEFAULT '',
	reward REAL NOT NULL DEFAULT 0,
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_decision_surface ON decision_log(surface, created_at);
`

// Migrate applies any pending migration steps in order, tracked in
// schema_migrations so repeated calls (every process start) are idempotent.
func Migrate(ctx context.Context, conn *sql.DB) error {
	if _, err := conn.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (version INTEGER PRIMARY KEY, applied_at TEXT NOT NULL)`); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	for _, m := range migrations {
		var exists int
		err := conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM schema_migrations WHERE version = ?`, m.version).Scan(&exists)
		if err != nil {
			return fmt.Errorf("check migration %d: %w", m.version, err)
		}
		if exists > 0 {
			continue
		}

		tx, err := conn.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", m.version, err)
		}
		if _, err := tx.ExecContext(ctx, m.sql); err != nil {
			tx.Rollback()
			return fmt.Errorf("apply migration %d: %w", m.version, err)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO schema_migrations (version, applied_at) VALUES (?, datetime('now'))`, m.version); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration %d: %w", m.version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.version, err)
		}
	}
	return nil
}
