package codex

import (
	"database/sql"
	"fmt"
	"regexp"
	"strings"

	"github.com/codexhq/codex/internal/store"
)

// Queries is the read-side API over an open index. Results are plain
// records with no references into the store.
type Queries struct {
	store *store.Store
}

// NewQueries wraps an open Store for read-only commands that never
// index.
func NewQueries(s *store.Store) *Queries {
	return &Queries{store: s}
}

// DefaultSearchLimit bounds Search results when the caller passes 0.
const DefaultSearchLimit = 15

var nonWord = regexp.MustCompile(`[^\w\s]`)

// ftsQuery rewrites a free-text query into an FTS5 expression: strip
// punctuation, quote each token, and OR-join so partial matches still
// surface. Empty input yields an empty expression.
func ftsQuery(q string) string {
	cleaned := nonWord.ReplaceAllString(q, " ")
	tokens := strings.Fields(cleaned)
	if len(tokens) == 0 {
		return ""
	}
	quoted := make([]string, len(tokens))
	for i, tok := range tokens {
		quoted[i] = `"` + tok + `"`
	}
	return strings.Join(quoted, " OR ")
}

// Search runs ranked full-text search over the symbol projection.
// Ordering is PageRank first, FTS relevance second, so structurally
// important symbols come first and relevance breaks ties. The snippet highlights matches in the
// body column with >>>/<<< delimiters.
func (q *Queries) Search(query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	match := ftsQuery(query)
	if match == "" {
		return nil, nil
	}

	rows, err := q.store.DB().Query(`
		SELECT s.name, COALESCE(s.qualified_name, ''), s.kind, f.path,
		       s.start_line, s.end_line, COALESCE(s.signature, ''),
		       COALESCE(r.rank, 0),
		       snippet(symbols_fts, 4, '>>>', '<<<', '...', 30)
		FROM symbols_fts
		JOIN symbols s ON s.id = symbols_fts.rowid
		JOIN files f ON f.id = s.file_id
		LEFT JOIN rankings r ON r.symbol_id = s.id
		WHERE symbols_fts MATCH ?
		ORDER BY COALESCE(r.rank, 0) DESC, symbols_fts.rank ASC
		LIMIT ?`, match, limit)
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", query, err)
	}
	defer rows.Close()

	var results []SearchResult
	for rows.Next() {
		var res SearchResult
		if err := rows.Scan(&res.Name, &res.QualifiedName, &res.Kind, &res.File,
			&res.StartLine, &res.EndLine, &res.Signature, &res.Rank, &res.Snippet); err != nil {
			return nil, fmt.Errorf("search %q: scan: %w", query, err)
		}
		results = append(results, res)
	}
	return results, rows.Err()
}

// Stats returns the index-wide row counts.
func (q *Queries) Stats() (*Stats, error) {
	stats := &Stats{}
	row := q.store.DB().QueryRow(`SELECT
		(SELECT COUNT(*) FROM files),
		(SELECT COUNT(*) FROM symbols),
		(SELECT COUNT(*) FROM edges),
		(SELECT COUNT(*) FROM file_deps)`)
	if err := row.Scan(&stats.Files, &stats.Symbols, &stats.Edges, &stats.FileDeps); err != nil {
		return nil, fmt.Errorf("stats: %w", err)
	}
	return stats, nil
}

// scanSymbolRefs reads rows selecting name, qualified name, kind, file
// path, start line, end line, edge kind and rank, in that order.
func scanSymbolRefs(rows *sql.Rows) ([]SymbolRef, error) {
	var refs []SymbolRef
	for rows.Next() {
		var ref SymbolRef
		if err := rows.Scan(&ref.Name, &ref.QualifiedName, &ref.Kind, &ref.File,
			&ref.StartLine, &ref.EndLine, &ref.EdgeKind, &ref.Rank); err != nil {
			return nil, fmt.Errorf("scan symbol ref: %w", err)
		}
		refs = append(refs, ref)
	}
	return refs, rows.Err()
}
