package store

import (
	"database/sql"
	"fmt"
	"time"
)

// execer is satisfied by both *sql.DB and *sql.Tx so the mutation
// primitives can run standalone or inside the indexer's outer
// transaction.
type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
	Query(query string, args ...any) (*sql.Rows, error)
	QueryRow(query string, args ...any) *sql.Row
}

// UpsertFile inserts or updates the file row for path and reports whether
// the content changed. An unchanged digest only refreshes last_indexed,
// which is what makes repeated indexing of an unchanged tree cheap.
func UpsertFile(e execer, path, language, hash string, lineCount int) (id int64, changed bool, err error) {
	var existingHash string
	err = e.QueryRow("SELECT id, hash FROM files WHERE path = ?", path).Scan(&id, &existingHash)
	switch {
	case err == sql.ErrNoRows:
		res, err := e.Exec(
			"INSERT INTO files (path, language, hash, line_count, last_indexed) VALUES (?, ?, ?, ?, ?)",
			path, language, hash, lineCount, time.Now().UTC(),
		)
		if err != nil {
			return 0, false, fmt.Errorf("insert file %s: %w", path, err)
		}
		id, err = res.LastInsertId()
		if err != nil {
			return 0, false, fmt.Errorf("file id for %s: %w", path, err)
		}
		return id, true, nil
	case err != nil:
		return 0, false, fmt.Errorf("lookup file %s: %w", path, err)
	}

	if existingHash == hash {
		if _, err := e.Exec("UPDATE files SET last_indexed = ? WHERE id = ?", time.Now().UTC(), id); err != nil {
			return 0, false, fmt.Errorf("touch file %s: %w", path, err)
		}
		return id, false, nil
	}

	_, err = e.Exec(
		"UPDATE files SET language = ?, hash = ?, line_count = ?, last_indexed = ? WHERE id = ?",
		language, hash, lineCount, time.Now().UTC(), id,
	)
	if err != nil {
		return 0, false, fmt.Errorf("update file %s: %w", path, err)
	}
	return id, true, nil
}

// FileByPath returns the file row for a relative path, or nil if the
// path is not indexed.
func FileByPath(e execer, path string) (*File, error) {
	f := &File{}
	var lang sql.NullString
	var lastIndexed sql.NullTime
	err := e.QueryRow(
		"SELECT id, path, language, hash, line_count, last_indexed FROM files WHERE path = ?", path,
	).Scan(&f.ID, &f.Path, &lang, &f.Hash, &f.LineCount, &lastIndexed)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("file by path %s: %w", path, err)
	}
	f.Language = lang.String
	f.LastIndexed = lastIndexed.Time
	return f, nil
}

// RemoveStale deletes every file whose path is not in valid. Symbols,
// edges, file-deps and rankings rooted at removed files go with them via
// cascade (symbol deletes fire the FTS triggers).
func RemoveStale(e execer, valid map[string]bool) error {
	rows, err := e.Query("SELECT id, path FROM files")
	if err != nil {
		return fmt.Errorf("list files: %w", err)
	}
	var stale []int64
	for rows.Next() {
		var id int64
		var path string
		if err := rows.Scan(&id, &path); err != nil {
			rows.Close()
			return fmt.Errorf("scan file: %w", err)
		}
		if !valid[path] {
			stale = append(stale, id)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("list files: %w", err)
	}

	for _, id := range stale {
		if _, err := e.Exec("DELETE FROM files WHERE id = ?", id); err != nil {
			return fmt.Errorf("delete stale file %d: %w", id, err)
		}
	}
	return nil
}

// RemoveFile deletes a file row by path, cascading to everything it
// owns. Removing an unknown path is a no-op.
func RemoveFile(e execer, path string) error {
	if _, err := e.Exec("DELETE FROM files WHERE path = ?", path); err != nil {
		return fmt.Errorf("remove file %s: %w", path, err)
	}
	return nil
}
