package codex

import (
	"database/sql"
	"fmt"
	"sort"
)

// Callers returns the symbols with a calls or references edge into any
// symbol matching name (by name or qualified name), distinct by source
// symbol and ordered by source PageRank. Because importing a symbol
// emits references edges from every symbol in the importing file, the
// callers of an exported symbol include all symbols of files that
// import it.
func (q *Queries) Callers(name string) ([]SymbolRef, error) {
	rows, err := q.store.DB().Query(`
		SELECT s.name, COALESCE(s.qualified_name, ''), s.kind, f.path,
		       s.start_line, s.end_line, MIN(e.kind), COALESCE(r.rank, 0)
		FROM edges e
		JOIN symbols target ON target.id = e.to_symbol_id
		JOIN symbols s ON s.id = e.from_symbol_id
		JOIN files f ON f.id = s.file_id
		LEFT JOIN rankings r ON r.symbol_id = s.id
		WHERE e.kind IN ('calls', 'references')
		  AND (target.name = ? OR target.qualified_name = ?)
		GROUP BY s.id
		ORDER BY COALESCE(r.rank, 0) DESC`, name, name)
	if err != nil {
		return nil, fmt.Errorf("callers of %q: %w", name, err)
	}
	defer rows.Close()
	return scanSymbolRefs(rows)
}

// Dependencies returns the symbols reachable by any edge kind from any
// symbol matching name, ordered by target PageRank.
func (q *Queries) Dependencies(name string) ([]SymbolRef, error) {
	rows, err := q.store.DB().Query(`
		SELECT t.name, COALESCE(t.qualified_name, ''), t.kind, f.path,
		       t.start_line, t.end_line, MIN(e.kind), COALESCE(r.rank, 0)
		FROM edges e
		JOIN symbols s ON s.id = e.from_symbol_id
		JOIN symbols t ON t.id = e.to_symbol_id
		JOIN files f ON f.id = t.file_id
		LEFT JOIN rankings r ON r.symbol_id = t.id
		WHERE s.name = ? OR s.qualified_name = ?
		GROUP BY t.id
		ORDER BY COALESCE(r.rank, 0) DESC`, name, name)
	if err != nil {
		return nil, fmt.Errorf("dependencies of %q: %w", name, err)
	}
	defer rows.Close()
	return scanSymbolRefs(rows)
}

// Context returns the single best match for name — exported symbols
// first, then PageRank — with its body, outgoing and incoming edge
// neighborhoods, and same-file siblings. Returns nil when nothing
// matches.
func (q *Queries) Context(name string) (*ContextResult, error) {
	row := q.store.DB().QueryRow(`
		SELECT s.id, s.file_id, s.name, COALESCE(s.qualified_name, ''), s.kind, f.path,
		       s.start_line, s.end_line, COALESCE(s.signature, ''),
		       COALESCE(s.docstring, ''), COALESCE(s.content, ''), s.exported,
		       COALESCE(r.rank, 0)
		FROM symbols s
		JOIN files f ON f.id = s.file_id
		LEFT JOIN rankings r ON r.symbol_id = s.id
		WHERE s.name = ? OR s.qualified_name = ?
		ORDER BY s.exported DESC, COALESCE(r.rank, 0) DESC
		LIMIT 1`, name, name)

	var (
		id, fileID int64
		res        ContextResult
		exported   int
	)
	err := row.Scan(&id, &fileID, &res.Name, &res.QualifiedName, &res.Kind, &res.File,
		&res.StartLine, &res.EndLine, &res.Signature, &res.Docstring, &res.Body,
		&exported, &res.Rank)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("context of %q: %w", name, err)
	}
	res.Exported = exported != 0

	if res.Dependencies, err = q.edgeNeighbors(id, "e.from_symbol_id", "e.to_symbol_id"); err != nil {
		return nil, fmt.Errorf("context of %q: dependencies: %w", name, err)
	}
	if res.Dependents, err = q.edgeNeighbors(id, "e.to_symbol_id", "e.from_symbol_id"); err != nil {
		return nil, fmt.Errorf("context of %q: dependents: %w", name, err)
	}
	if res.Siblings, err = q.siblings(fileID, id); err != nil {
		return nil, fmt.Errorf("context of %q: siblings: %w", name, err)
	}
	return &res, nil
}

// edgeNeighbors returns the symbols on the far side of edges touching
// anchor on the near side. anchorCol and otherCol name edge columns.
func (q *Queries) edgeNeighbors(anchor int64, anchorCol, otherCol string) ([]SymbolRef, error) {
	query := fmt.Sprintf(`
		SELECT s.name, COALESCE(s.qualified_name, ''), s.kind, f.path,
		       s.start_line, s.end_line, MIN(e.kind), COALESCE(r.rank, 0)
		FROM edges e
		JOIN symbols s ON s.id = %s
		JOIN files f ON f.id = s.file_id
		LEFT JOIN rankings r ON r.symbol_id = s.id
		WHERE %s = ?
		GROUP BY s.id
		ORDER BY COALESCE(r.rank, 0) DESC`, otherCol, anchorCol)
	rows, err := q.store.DB().Query(query, anchor)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSymbolRefs(rows)
}

func (q *Queries) siblings(fileID, excludeID int64) ([]SymbolRef, error) {
	rows, err := q.store.DB().Query(`
		SELECT s.name, COALESCE(s.qualified_name, ''), s.kind, f.path,
		       s.start_line, s.end_line, '', COALESCE(r.rank, 0)
		FROM symbols s
		JOIN files f ON f.id = s.file_id
		LEFT JOIN rankings r ON r.symbol_id = s.id
		WHERE s.file_id = ? AND s.id != ?
		ORDER BY s.start_line ASC`, fileID, excludeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSymbolRefs(rows)
}

// DefaultImpactDepth bounds the reverse traversal when the caller
// passes 0.
const DefaultImpactDepth = 10

// Impact walks the FileDep graph in reverse from file: layer 1 is the
// files importing it, layer k+1 the files importing layer k. Each
// reached file reports its minimum depth and symbol count. Ordered by
// depth, then symbol count descending.
func (q *Queries) Impact(file string, maxDepth int) ([]ImpactEntry, error) {
	if maxDepth <= 0 {
		maxDepth = DefaultImpactDepth
	}

	var rootID int64
	err := q.store.DB().QueryRow("SELECT id FROM files WHERE path = ?", file).Scan(&rootID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("impact of %q: %w", file, err)
	}

	// Reverse adjacency: to_file -> from_files.
	reverse := make(map[int64][]int64)
	rows, err := q.store.DB().Query("SELECT from_file_id, to_file_id FROM file_deps")
	if err != nil {
		return nil, fmt.Errorf("impact of %q: load deps: %w", file, err)
	}
	for rows.Next() {
		var from, to int64
		if err := rows.Scan(&from, &to); err != nil {
			rows.Close()
			return nil, fmt.Errorf("impact of %q: scan dep: %w", file, err)
		}
		reverse[to] = append(reverse[to], from)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("impact of %q: %w", file, err)
	}

	depth := map[int64]int{rootID: 0}
	frontier := []int64{rootID}
	var reached []int64
	for d := 1; d <= maxDepth && len(frontier) > 0; d++ {
		var next []int64
		for _, id := range frontier {
			for _, from := range reverse[id] {
				if _, seen := depth[from]; seen {
					continue
				}
				depth[from] = d
				next = append(next, from)
				reached = append(reached, from)
			}
		}
		frontier = next
	}

	entries := make([]ImpactEntry, 0, len(reached))
	for _, id := range reached {
		var path string
		var count int
		err := q.store.DB().QueryRow(
			"SELECT path, (SELECT COUNT(*) FROM symbols WHERE file_id = files.id) FROM files WHERE id = ?", id,
		).Scan(&path, &count)
		if err != nil {
			return nil, fmt.Errorf("impact of %q: file %d: %w", file, id, err)
		}
		entries = append(entries, ImpactEntry{File: path, Depth: depth[id], SymbolCount: count})
	}
	// Depth ascending, then symbol count descending, path as tie-break
	// for stable output.
	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.Depth != b.Depth {
			return a.Depth < b.Depth
		}
		if a.SymbolCount != b.SymbolCount {
			return a.SymbolCount > b.SymbolCount
		}
		return a.File < b.File
	})
	return entries, nil
}
