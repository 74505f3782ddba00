package codex

import (
	"database/sql"
	"fmt"
	"sort"
	"strings"
)

// DefaultRankLimit bounds Rank results when the caller passes 0.
const DefaultRankLimit = 20

// rankedKinds are the symbol kinds Rank reports; plain variables are
// excluded.
const rankedKinds = "('function', 'class', 'method', 'interface', 'type')"

// Rank returns the top symbols by PageRank, restricted to declaration
// kinds that carry structural weight.
func (q *Queries) Rank(top int) ([]SymbolRef, error) {
	if top <= 0 {
		top = DefaultRankLimit
	}
	rows, err := q.store.DB().Query(`
		SELECT s.name, COALESCE(s.qualified_name, ''), s.kind, f.path,
		       s.start_line, s.end_line, '', r.rank
		FROM rankings r
		JOIN symbols s ON s.id = r.symbol_id
		JOIN files f ON f.id = s.file_id
		WHERE s.kind IN ` + rankedKinds + `
		ORDER BY r.rank DESC
		LIMIT ?`, top)
	if err != nil {
		return nil, fmt.Errorf("rank: %w", err)
	}
	defer rows.Close()
	return scanSymbolRefs(rows)
}

// Modules partitions files by their first path segment (files at the
// root fall under ".") and reports per-partition file and symbol counts
// plus the set of other partitions it imports from. Ordered by symbol
// count descending.
func (q *Queries) Modules() ([]ModuleInfo, error) {
	rows, err := q.store.DB().Query(`
		SELECT f.id, f.path,
		       (SELECT COUNT(*) FROM symbols s WHERE s.file_id = f.id)
		FROM files f`)
	if err != nil {
		return nil, fmt.Errorf("modules: %w", err)
	}

	fileModule := make(map[int64]string)
	type moduleAgg struct {
		files   int
		symbols int
		deps    map[string]bool
	}
	modules := make(map[string]*moduleAgg)
	for rows.Next() {
		var id int64
		var path string
		var symbols int
		if err := rows.Scan(&id, &path, &symbols); err != nil {
			rows.Close()
			return nil, fmt.Errorf("modules: scan file: %w", err)
		}
		name := moduleName(path)
		fileModule[id] = name
		agg := modules[name]
		if agg == nil {
			agg = &moduleAgg{deps: make(map[string]bool)}
			modules[name] = agg
		}
		agg.files++
		agg.symbols += symbols
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("modules: %w", err)
	}

	rows, err = q.store.DB().Query("SELECT from_file_id, to_file_id FROM file_deps")
	if err != nil {
		return nil, fmt.Errorf("modules: deps: %w", err)
	}
	for rows.Next() {
		var from, to int64
		if err := rows.Scan(&from, &to); err != nil {
			rows.Close()
			return nil, fmt.Errorf("modules: scan dep: %w", err)
		}
		fromModule, toModule := fileModule[from], fileModule[to]
		if fromModule == "" || toModule == "" || fromModule == toModule {
			continue
		}
		modules[fromModule].deps[toModule] = true
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("modules: %w", err)
	}

	infos := make([]ModuleInfo, 0, len(modules))
	for name, agg := range modules {
		deps := make([]string, 0, len(agg.deps))
		for dep := range agg.deps {
			deps = append(deps, dep)
		}
		sort.Strings(deps)
		infos = append(infos, ModuleInfo{Name: name, Files: agg.files, Symbols: agg.symbols, DependsOn: deps})
	}
	sort.Slice(infos, func(i, j int) bool {
		if infos[i].Symbols != infos[j].Symbols {
			return infos[i].Symbols > infos[j].Symbols
		}
		return infos[i].Name < infos[j].Name
	})
	return infos, nil
}

func moduleName(path string) string {
	if i := strings.IndexByte(path, '/'); i >= 0 {
		return path[:i]
	}
	return "."
}

// Brief renders a human-readable index summary: stats, language
// histogram, top modules and top-ranked symbols.
func (q *Queries) Brief() (string, error) {
	stats, err := q.Stats()
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Index: %d files, %d symbols, %d edges, %d file deps\n",
		stats.Files, stats.Symbols, stats.Edges, stats.FileDeps)

	langs, err := q.languageHistogram()
	if err != nil {
		return "", err
	}
	if len(langs) > 0 {
		b.WriteString("Languages:")
		for _, l := range langs {
			fmt.Fprintf(&b, " %s (%d)", l.name, l.count)
		}
		b.WriteString("\n")
	}

	modules, err := q.Modules()
	if err != nil {
		return "", err
	}
	if len(modules) > 0 {
		b.WriteString("Top modules:\n")
		for i, m := range modules {
			if i == 8 {
				break
			}
			fmt.Fprintf(&b, "  %s: %d files, %d symbols\n", m.Name, m.Files, m.Symbols)
		}
	}

	top, err := q.Rank(10)
	if err != nil {
		return "", err
	}
	if len(top) > 0 {
		b.WriteString("Top symbols:\n")
		for _, s := range top {
			fmt.Fprintf(&b, "  %s (%s) %s:%d\n", displayName(s), s.Kind, s.File, s.StartLine)
		}
	}
	return b.String(), nil
}

type langCount struct {
	name  string
	count int
}

func (q *Queries) languageHistogram() ([]langCount, error) {
	rows, err := q.store.DB().Query(`
		SELECT COALESCE(language, ''), COUNT(*) FROM files
		WHERE language IS NOT NULL AND language != ''
		GROUP BY language ORDER BY COUNT(*) DESC, language`)
	if err != nil {
		return nil, fmt.Errorf("language histogram: %w", err)
	}
	defer rows.Close()

	var langs []langCount
	for rows.Next() {
		var l langCount
		if err := rows.Scan(&l.name, &l.count); err != nil {
			return nil, fmt.Errorf("language histogram: scan: %w", err)
		}
		langs = append(langs, l)
	}
	return langs, rows.Err()
}

// preEditDependentLimit caps the dependents listing in PreEdit.
const preEditDependentLimit = 15

// PreEdit renders what an editor should know before touching file: its
// exported symbols, the files that depend on it, and what it imports.
func (q *Queries) PreEdit(file string) (string, error) {
	f, err := q.fileByPath(file)
	if err != nil {
		return "", err
	}
	if f == 0 {
		return fmt.Sprintf("%s is not in the index\n", file), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "File: %s\n", file)

	rows, err := q.store.DB().Query(`
		SELECT name, COALESCE(qualified_name, ''), kind, start_line
		FROM symbols WHERE file_id = ? AND exported = 1
		ORDER BY start_line`, f)
	if err != nil {
		return "", fmt.Errorf("pre-edit %q: exports: %w", file, err)
	}
	var exports []string
	for rows.Next() {
		var name, qualified, kind string
		var line int
		if err := rows.Scan(&name, &qualified, &kind, &line); err != nil {
			rows.Close()
			return "", fmt.Errorf("pre-edit %q: scan export: %w", file, err)
		}
		if qualified != "" {
			name = qualified
		}
		exports = append(exports, fmt.Sprintf("  %s (%s) line %d", name, kind, line))
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return "", fmt.Errorf("pre-edit %q: %w", file, err)
	}
	if len(exports) > 0 {
		b.WriteString("Exported symbols:\n")
		b.WriteString(strings.Join(exports, "\n"))
		b.WriteString("\n")
	}

	dependents, extra, err := q.dependentFiles(f)
	if err != nil {
		return "", fmt.Errorf("pre-edit %q: dependents: %w", file, err)
	}
	if len(dependents) > 0 {
		b.WriteString("Depended on by:\n")
		for _, d := range dependents {
			fmt.Fprintf(&b, "  %s\n", d)
		}
		if extra > 0 {
			fmt.Fprintf(&b, "  ... and %d more\n", extra)
		}
	}

	imports, err := q.importedFiles(f)
	if err != nil {
		return "", fmt.Errorf("pre-edit %q: imports: %w", file, err)
	}
	if len(imports) > 0 {
		b.WriteString("Imports:\n")
		for _, imp := range imports {
			fmt.Fprintf(&b, "  %s\n", imp)
		}
	}
	return b.String(), nil
}

func (q *Queries) fileByPath(path string) (int64, error) {
	var id int64
	err := q.store.DB().QueryRow("SELECT id FROM files WHERE path = ?", path).Scan(&id)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("lookup file %q: %w", path, err)
	}
	return id, nil
}

func (q *Queries) dependentFiles(fileID int64) ([]string, int, error) {
	rows, err := q.store.DB().Query(`
		SELECT f.path FROM file_deps d
		JOIN files f ON f.id = d.from_file_id
		WHERE d.to_file_id = ?
		GROUP BY f.id ORDER BY f.path`, fileID)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var all []string
	for rows.Next() {
		var path string
		if err := rows.Scan(&path); err != nil {
			return nil, 0, err
		}
		all = append(all, path)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	if len(all) > preEditDependentLimit {
		return all[:preEditDependentLimit], len(all) - preEditDependentLimit, nil
	}
	return all, 0, nil
}

func (q *Queries) importedFiles(fileID int64) ([]string, error) {
	rows, err := q.store.DB().Query(`
		SELECT f.path, d.name FROM file_deps d
		JOIN files f ON f.id = d.to_file_id
		WHERE d.from_file_id = ?
		ORDER BY f.path`, fileID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var imports []string
	for rows.Next() {
		var path, name string
		if err := rows.Scan(&path, &name); err != nil {
			return nil, err
		}
		imports = append(imports, fmt.Sprintf("%s (%s)", path, name))
	}
	return imports, rows.Err()
}

func displayName(s SymbolRef) string {
	if s.QualifiedName != "" {
		return s.QualifiedName
	}
	return s.Name
}
