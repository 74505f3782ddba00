package store

import (
	"database/sql"
	"fmt"
)

// InsertSymbol inserts one symbol row and returns its id. The FTS
// projection row is created by the symbols_ai trigger.
func InsertSymbol(e execer, sym *Symbol) (int64, error) {
	exported := 0
	if sym.Exported {
		exported = 1
	}
	res, err := e.Exec(
		`INSERT INTO symbols (file_id, name, qualified_name, kind, start_line, end_line, signature, docstring, content, exported)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sym.FileID, sym.Name, nullable(sym.QualifiedName), sym.Kind,
		sym.StartLine, sym.EndLine,
		nullable(sym.Signature), nullable(sym.Docstring), nullable(sym.Content), exported,
	)
	if err != nil {
		return 0, fmt.Errorf("insert symbol %s: %w", sym.Name, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("symbol id for %s: %w", sym.Name, err)
	}
	return id, nil
}

// InsertEdge records a directed edge between two symbols. Duplicate
// (from, to, kind) triples are ignored.
func InsertEdge(e execer, from, to int64, kind string) error {
	_, err := e.Exec(
		"INSERT OR IGNORE INTO edges (from_symbol_id, to_symbol_id, kind) VALUES (?, ?, ?)",
		from, to, kind,
	)
	if err != nil {
		return fmt.Errorf("insert edge %d->%d: %w", from, to, err)
	}
	return nil
}

// InsertFileDep records an import relationship between two files.
// Duplicate (from, to, kind, name) quadruples are ignored.
func InsertFileDep(e execer, from, to int64, kind, name string) error {
	_, err := e.Exec(
		"INSERT OR IGNORE INTO file_deps (from_file_id, to_file_id, kind, name) VALUES (?, ?, ?, ?)",
		from, to, kind, name,
	)
	if err != nil {
		return fmt.Errorf("insert file dep %d->%d: %w", from, to, err)
	}
	return nil
}

// ClearFileData deletes everything a file owns before a re-parse:
// rankings rooted at its symbols, edges touching those symbols from
// either endpoint, the symbols themselves, and its outgoing file-deps.
// Incoming file-deps are left for the other endpoint to clean up.
func ClearFileData(e execer, fileID int64) error {
	if _, err := e.Exec(
		"DELETE FROM rankings WHERE symbol_id IN (SELECT id FROM symbols WHERE file_id = ?)", fileID,
	); err != nil {
		return fmt.Errorf("clear rankings for file %d: %w", fileID, err)
	}
	if _, err := e.Exec(
		`DELETE FROM edges WHERE from_symbol_id IN (SELECT id FROM symbols WHERE file_id = ?)
		   OR to_symbol_id IN (SELECT id FROM symbols WHERE file_id = ?)`, fileID, fileID,
	); err != nil {
		return fmt.Errorf("clear edges for file %d: %w", fileID, err)
	}
	if _, err := e.Exec("DELETE FROM symbols WHERE file_id = ?", fileID); err != nil {
		return fmt.Errorf("clear symbols for file %d: %w", fileID, err)
	}
	if _, err := e.Exec("DELETE FROM file_deps WHERE from_file_id = ?", fileID); err != nil {
		return fmt.Errorf("clear file deps for file %d: %w", fileID, err)
	}
	return nil
}

// ExportedSymbols returns name -> symbol id for the exported symbols of
// a file, keyed by both name and qualified name. Used to build the
// cross-file resolution table for files whose digest did not change.
func ExportedSymbols(e execer, fileID int64) (map[string]int64, error) {
	rows, err := e.Query(
		"SELECT id, name, qualified_name FROM symbols WHERE file_id = ? AND exported = 1", fileID,
	)
	if err != nil {
		return nil, fmt.Errorf("exported symbols for file %d: %w", fileID, err)
	}
	defer rows.Close()

	table := make(map[string]int64)
	for rows.Next() {
		var id int64
		var name string
		var qualified sql.NullString
		if err := rows.Scan(&id, &name, &qualified); err != nil {
			return nil, fmt.Errorf("scan exported symbol: %w", err)
		}
		table[name] = id
		if qualified.Valid && qualified.String != "" {
			table[qualified.String] = id
		}
	}
	return table, rows.Err()
}

// SymbolIDsByFile returns all symbol ids belonging to a file.
func SymbolIDsByFile(e execer, fileID int64) ([]int64, error) {
	rows, err := e.Query("SELECT id FROM symbols WHERE file_id = ?", fileID)
	if err != nil {
		return nil, fmt.Errorf("symbols for file %d: %w", fileID, err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan symbol id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
