// Package store is the persistence layer: a content-addressed dedup table for
// node text, session records holding ordered content-id sequences, and the
// retrieval labels derived from them. Branching is not persisted; a session
// records node order only.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

// DB wraps the SQLite database holding saved traces.
type DB struct {
	db   *sql.DB
	path string
}

// Open opens or creates the trace database at dir/traces.db.
func Open(dir string) (*DB, error) {
	dbPath := filepath.Join(dir, "traces.db")

	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	s := &DB{db: db, path: dbPath}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate: %w", err)
	}
	return s, nil
}

func (s *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS content (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		text TEXT NOT NULL,
		kind TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_content_text_kind ON content(text, kind);

	CREATE TABLE IF NOT EXISTS session (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		mode TEXT NOT NULL,
		model_name TEXT NOT NULL,
		summary TEXT NOT NULL DEFAULT '',
		node_sequence TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS retrieval_label (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id INTEGER NOT NULL REFERENCES session(id),
		label_text TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_retrieval_label_session ON retrieval_label(session_id);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Path returns the database file path.
func (s *DB) Path() string { return s.path }

// Close closes the database.
func (s *DB) Close() error {
	return s.db.Close()
}
