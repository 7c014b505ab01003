package scopestore

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"

	"github.com/cespare/xxhash/v2"
)

// schemaDDL is the complete store layout. Any edit changes SchemaVersion and
// makes existing stores rebuild from scratch.
const schemaDDL = `
CREATE TABLE IF NOT EXISTS version (
  version TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS scope (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  filename TEXT NOT NULL,
  path TEXT NOT NULL,
  start_line INTEGER NOT NULL,
  start_col INTEGER NOT NULL,
  end_line INTEGER NOT NULL,
  end_col INTEGER NOT NULL,
  parser TEXT NOT NULL,
  UNIQUE(filename, path, start_line, end_line)
);
CREATE TABLE IF NOT EXISTS scope_parent (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  path TEXT NOT NULL,
  scope INTEGER NOT NULL REFERENCES scope(id) ON DELETE CASCADE
);
CREATE INDEX IF NOT EXISTS idx_scope_parser_path ON scope(parser, path);
CREATE INDEX IF NOT EXISTS idx_scope_filename ON scope(filename);
CREATE INDEX IF NOT EXISTS idx_scope_parent_scope ON scope_parent(scope);
`

// SchemaVersion is the content hash of the schema definition.
func SchemaVersion() string {
	return strconv.FormatUint(xxhash.Sum64String(schemaDDL), 16)
}

// storedVersion returns the recorded schema version and whether the database
// holds any tables at all.
func storedVersion(ctx context.Context, db *sql.DB) (string, bool, error) {
	var tables int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sqlite_master WHERE type = 'table'`).Scan(&tables); err != nil {
		return "", false, fmt.Errorf("count tables: %w", err)
	}
	if tables == 0 {
		return "", false, nil
	}

	var hasVersion int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'version'`).Scan(&hasVersion); err != nil {
		return "", true, fmt.Errorf("find version table: %w", err)
	}
	if hasVersion == 0 {
		return "", true, nil
	}

	var version sql.NullString
	err := db.QueryRowContext(ctx, `SELECT version FROM version LIMIT 1`).Scan(&version)
	if err == sql.ErrNoRows {
		return "", true, nil
	}
	if err != nil {
		return "", true, fmt.Errorf("read schema version: %w", err)
	}
	return version.String, true, nil
}

func createSchema(ctx context.Context, db *sql.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	if _, err := tx.ExecContext(ctx, schemaDDL); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("create schema: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM version`); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("clear schema version: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO version (version) VALUES (?)`, SchemaVersion()); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("record schema version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema: %w", err)
	}
	return nil
}
