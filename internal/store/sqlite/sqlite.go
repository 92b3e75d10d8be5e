// Package sqlite owns the embedded relational store: connection bootstrap,
// schema migrations, and the FTS5 shadow-table maintenance every entry
// write must keep consistent (spec section 4.1). Grounded on the teacher's
// single-table DynamoDB repository pattern (internal/repository/ddb/ddb.go)
// generalized to a relational schema, one table per entity family.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// DB wraps a *sql.DB with the single-writer semaphore the embedded engine
// needs under concurrent handler goroutines (spec section 4.1: SQLite's own
// BEGIN IMMEDIATE transactions are the serialization point, but a buffered
// channel of size 1 avoids SQLITE_BUSY errors rather than relying on
// busy_timeout retries alone).
type DB struct {
	conn       *sql.DB
	writerSem  chan struct{}
	log        *zap.Logger
}

// Open connects to the SQLite file at path, applies pragmas suited to a
// single-process embedded engine, and runs pending migrations.
func Open(ctx context.Context, path string, log *zap.Logger) (*DB, error) {
	conn, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=5000&_txlock=immediate")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	db := &DB{conn: conn, writerSem: make(chan struct{}, 1), log: log}
	if err := Migrate(ctx, conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate sqlite: %w", err)
	}
	return db, nil
}

// Close releases the underlying connection pool.
func (db *DB) Close() error { return db.conn.Close() }

// Conn exposes the raw *sql.DB for packages that need read-only queries
// outside a write transaction.
func (db *DB) Conn() *sql.DB { return db.conn }

// WithWriteTx serializes fn behind the writer semaphore and runs it inside a
// BEGIN IMMEDIATE transaction, committing on success and rolling back on any
// error (including a panic, re-raised after rollback).
func (db *DB) WithWriteTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	select {
	case db.writerSem <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-db.writerSem }()

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			db.log.Warn("rollback failed", zap.Error(rbErr))
		}
		return err
	}
	return tx.Commit()
}
