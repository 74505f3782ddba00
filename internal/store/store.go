// Package store is the SQLite data access layer for the codex index.
//
// The database lives at <root>/.codex/index.db and holds five tables
// (files, symbols, edges, file_deps, rankings) plus an FTS5 projection
// over symbol text columns. Referential integrity is enforced with
// ON DELETE CASCADE; the FTS projection is kept in sync by triggers.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// ErrNoIndex is returned by OpenExisting when no index database exists
// under the given root.
var ErrNoIndex = errors.New("no index found (run `codex init` first)")

// Dir is the name of the per-root state directory.
const Dir = ".codex"

// DBName is the index database filename inside Dir.
const DBName = "index.db"

// Store is the handle to one index database. It is not safe for
// concurrent use; all access must be funnelled through one owner.
type Store struct {
	db   *sql.DB
	root string
}

// DBPath returns the index database path for a root directory.
func DBPath(root string) string {
	return filepath.Join(root, Dir, DBName)
}

// Open creates the .codex directory if needed, opens the database and
// applies the schema. Used by commands that may initialize an index.
func Open(root string) (*Store, error) {
	if err := os.MkdirAll(filepath.Join(root, Dir), 0o755); err != nil {
		return nil, fmt.Errorf("create %s: %w", Dir, err)
	}
	return open(root)
}

// OpenExisting opens the database only if it already exists. Read-side
// commands use this so a missing index surfaces as ErrNoIndex instead of
// an empty database appearing out of nowhere.
func OpenExisting(root string) (*Store, error) {
	if _, err := os.Stat(DBPath(root)); err != nil {
		return nil, ErrNoIndex
	}
	return open(root)
}

func open(root string) (*Store, error) {
	db, err := sql.Open("sqlite", DBPath(root))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// The handle is single-owner; one connection keeps PRAGMA state and
	// transaction scope unambiguous.
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 30000",
		"PRAGMA cache_size = -65536",
		"PRAGMA temp_store = MEMORY",
		"PRAGMA mmap_size = 268435456",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}
	s := &Store{db: db, root: root}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close flushes the WAL back into the main database file and closes the
// connection. The watcher must be stopped before calling Close.
func (s *Store) Close() error {
	_, _ = s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
	return s.db.Close()
}

// Root returns the root directory this store indexes.
func (s *Store) Root() string {
	return s.root
}

// DB returns the underlying *sql.DB for query operators.
func (s *Store) DB() *sql.DB {
	return s.db
}

// WithTx runs fn inside a single transaction. Any error aborts the
// transaction so the caller observes an all-or-nothing effect.
func (s *Store) WithTx(fn func(tx *sql.Tx) error) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Store) migrate() error {
	if _, err := s.db.Exec(schemaDDL); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

const schemaDDL = `
CREATE TABLE IF NOT EXISTS files (
  id            INTEGER PRIMARY KEY,
  path          TEXT NOT NULL UNIQUE,
  language      TEXT,
  hash          TEXT NOT NULL,
  line_count    INTEGER NOT NULL DEFAULT 0,
  last_indexed  TIMESTAMP
);

CREATE TABLE IF NOT EXISTS symbols (
  id              INTEGER PRIMARY KEY,
  file_id         INTEGER NOT NULL REFERENCES files(id) ON DELETE CASCADE,
  name            TEXT NOT NULL,
  qualified_name  TEXT,
  kind            TEXT NOT NULL,
  start_line      INTEGER NOT NULL,
  end_line        INTEGER NOT NULL,
  signature       TEXT,
  docstring       TEXT,
  content         TEXT,
  exported        INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS edges (
  id              INTEGER PRIMARY KEY,
  from_symbol_id  INTEGER NOT NULL REFERENCES symbols(id) ON DELETE CASCADE,
  to_symbol_id    INTEGER NOT NULL REFERENCES symbols(id) ON DELETE CASCADE,
  kind            TEXT NOT NULL,
  UNIQUE(from_symbol_id, to_symbol_id, kind)
);

CREATE TABLE IF NOT EXISTS file_deps (
  id            INTEGER PRIMARY KEY,
  from_file_id  INTEGER NOT NULL REFERENCES files(id) ON DELETE CASCADE,
  to_file_id    INTEGER NOT NULL REFERENCES files(id) ON DELETE CASCADE,
  kind          TEXT NOT NULL DEFAULT 'import',
  name          TEXT NOT NULL DEFAULT '*',
  UNIQUE(from_file_id, to_file_id, kind, name)
);

CREATE TABLE IF NOT EXISTS rankings (
  symbol_id   INTEGER PRIMARY KEY REFERENCES symbols(id) ON DELETE CASCADE,
  rank        REAL NOT NULL,
  in_degree   INTEGER NOT NULL DEFAULT 0,
  out_degree  INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_symbols_file ON symbols(file_id);
CREATE INDEX IF NOT EXISTS idx_symbols_name ON symbols(name);
CREATE INDEX IF NOT EXISTS idx_symbols_qualified ON symbols(qualified_name);
CREATE INDEX IF NOT EXISTS idx_edges_from ON edges(from_symbol_id);
CREATE INDEX IF NOT EXISTS idx_edges_to ON edges(to_symbol_id);
CREATE INDEX IF NOT EXISTS idx_file_deps_from ON file_deps(from_file_id);
CREATE INDEX IF NOT EXISTS idx_file_deps_to ON file_deps(to_file_id);

CREATE VIRTUAL TABLE IF NOT EXISTS symbols_fts USING fts5(
  name,
  qualified_name,
  signature,
  docstring,
  content,
  content='symbols',
  content_rowid='id',
  tokenize='porter unicode61'
);

CREATE TRIGGER IF NOT EXISTS symbols_ai AFTER INSERT ON symbols BEGIN
  INSERT INTO symbols_fts(rowid, name, qualified_name, signature, docstring, content)
  VALUES (new.id, new.name, coalesce(new.qualified_name, ''), coalesce(new.signature, ''),
          coalesce(new.docstring, ''), coalesce(new.content, ''));
END;

CREATE TRIGGER IF NOT EXISTS symbols_ad AFTER DELETE ON symbols BEGIN
  INSERT INTO symbols_fts(symbols_fts, rowid, name, qualified_name, signature, docstring, content)
  VALUES ('delete', old.id, old.name, coalesce(old.qualified_name, ''), coalesce(old.signature, ''),
          coalesce(old.docstring, ''), coalesce(old.content, ''));
END;

CREATE TRIGGER IF NOT EXISTS symbols_au AFTER UPDATE ON symbols BEGIN
  INSERT INTO symbols_fts(symbols_fts, rowid, name, qualified_name, signature, docstring, content)
  VALUES ('delete', old.id, old.name, coalesce(old.qualified_name, ''), coalesce(old.signature, ''),
          coalesce(old.docstring, ''), coalesce(old.content, ''));
  INSERT INTO symbols_fts(rowid, name, qualified_name, signature, docstring, content)
  VALUES (new.id, new.name, coalesce(new.qualified_name, ''), coalesce(new.signature, ''),
          coalesce(new.docstring, ''), coalesce(new.content, ''));
END;
`
