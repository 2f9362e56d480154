package storage

import (
	"database/sql"
	"fmt"
	"time"
)

// migrations are applied in order; the index plus one is the schema
// version recorded in schema_migrations.
var migrations = []string{
	`
CREATE TABLE IF NOT EXISTS document (
  id INTEGER PRIMARY KEY CHECK (id = 1),
  root_id TEXT NOT NULL,
  updated_at INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS nodes (
  id TEXT PRIMARY KEY,
  seq INTEGER NOT NULL,
  x REAL NOT NULL,
  y REAL NOT NULL,
  text TEXT NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS edges (
  id TEXT PRIMARY KEY,
  seq INTEGER NOT NULL,
  start_id TEXT NOT NULL,
  end_id TEXT NOT NULL
);
`,
	`
CREATE INDEX IF NOT EXISTS idx_nodes_seq ON nodes(seq);
CREATE INDEX IF NOT EXISTS idx_edges_seq ON edges(seq);
`,
}

func migrate(db *sql.DB) error {
	if db == nil {
		return fmt.Errorf("document db is nil")
	}
	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS schema_migrations (
  version INTEGER PRIMARY KEY,
  applied_at INTEGER NOT NULL
);
`); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	current, err := schemaVersion(db)
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}

	for i := current; i < len(migrations); i++ {
		version := i + 1
		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", version, err)
		}
		if _, err := tx.Exec(migrations[i]); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("apply migration %d: %w", version, err)
		}
		if _, err := tx.Exec(`INSERT INTO schema_migrations (version, applied_at) VALUES (?, ?)`,
			version, time.Now().UTC().UnixMilli()); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record migration %d: %w", version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", version, err)
		}
	}
	return nil
}

// schemaVersion returns the highest applied migration.
func schemaVersion(db *sql.DB) (int, error) {
	var v int
	err := db.QueryRow(`SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&v)
	return v, err
}
