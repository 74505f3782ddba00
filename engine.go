package codex

import (
	"bytes"
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/codexhq/codex/internal/collect"
	"github.com/codexhq/codex/internal/lang"
	"github.com/codexhq/codex/internal/parser"
	"github.com/codexhq/codex/internal/rank"
	"github.com/codexhq/codex/internal/resolve"
	"github.com/codexhq/codex/internal/store"
)

// Engine orchestrates the codex pipeline: collection, parsing, graph
// construction, stale pruning and PageRank. One Engine owns one Store
// handle; it is not safe for concurrent use.
type Engine struct {
	store  *store.Store
	parser *parser.Parser
	root   string
	logger *slog.Logger
}

// Open creates (if needed) and opens the index for root.
func Open(root string, logger *slog.Logger) (*Engine, error) {
	s, err := store.Open(root)
	if err != nil {
		return nil, err
	}
	return newEngine(s, root, logger), nil
}

// OpenExisting opens the index for root, returning store.ErrNoIndex if
// none exists.
func OpenExisting(root string, logger *slog.Logger) (*Engine, error) {
	s, err := store.OpenExisting(root)
	if err != nil {
		return nil, err
	}
	return newEngine(s, root, logger), nil
}

func newEngine(s *store.Store, root string, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{store: s, parser: parser.New(), root: root, logger: logger}
}

// Close releases the store handle, checkpointing the WAL.
func (e *Engine) Close() error {
	return e.store.Close()
}

// Store exposes the underlying store for query operators.
func (e *Engine) Store() *store.Store {
	return e.store
}

// Queries returns the query operators over this engine's store.
func (e *Engine) Queries() *Queries {
	return &Queries{store: e.store}
}

// Root returns the indexed root directory.
func (e *Engine) Root() string {
	return e.root
}

// Digest returns the 16-hex-character content digest used for change
// detection: the prefix of the SHA-256 of the file bytes.
func Digest(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:8])
}

// parsedFile carries what the cross-file resolution pass needs about
// one re-parsed file.
type parsedFile struct {
	id      int64
	rel     string
	imports []parser.Import
}

// IndexProject runs a full index of the root: every live file is
// hashed, changed files are re-parsed, stale files are pruned, and the
// cross-file reference pass runs — all inside one transaction, so
// queries see either the old snapshot or the new one. PageRank runs in
// its own transaction after the index commits.
func (e *Engine) IndexProject(ctx context.Context) (*IndexStats, error) {
	start := time.Now()

	paths, err := collect.Files(e.root)
	if err != nil {
		return nil, fmt.Errorf("collect %s: %w", e.root, err)
	}
	valid := make(map[string]bool, len(paths))
	for _, p := range paths {
		valid[p] = true
	}

	stats := &IndexStats{Files: len(paths)}

	// exported maps rel path -> exported symbol name -> id, for every
	// file seen this run (parsed or loaded from the store when
	// unchanged). allSymbols holds the complete id list per re-parsed
	// file; the reference pass fans out from it.
	exported := make(map[string]map[string]int64)
	allSymbols := make(map[string][]int64)
	var pending []parsedFile

	err = e.store.WithTx(func(tx *sql.Tx) error {
		for _, rel := range paths {
			if err := ctx.Err(); err != nil {
				return err
			}
			content, err := os.ReadFile(filepath.Join(e.root, filepath.FromSlash(rel)))
			if err != nil {
				stats.Skipped++
				continue
			}
			tag, _ := lang.ForPath(rel)
			fileID, changed, err := store.UpsertFile(tx, rel, tag, Digest(content), countLines(content))
			if err != nil {
				return err
			}
			if !changed {
				table, err := store.ExportedSymbols(tx, fileID)
				if err != nil {
					return err
				}
				exported[rel] = table
				stats.Unchanged++
				continue
			}

			if err := store.ClearFileData(tx, fileID); err != nil {
				return err
			}
			res := e.parser.Parse(rel, content)
			symTable, expTable, ids, err := insertSymbols(tx, fileID, res.Symbols)
			if err != nil {
				return err
			}
			if err := insertCallEdges(tx, symTable, res.Calls); err != nil {
				return err
			}
			exported[rel] = expTable
			allSymbols[rel] = ids
			pending = append(pending, parsedFile{id: fileID, rel: rel, imports: res.Imports})
			stats.Indexed++
		}

		if err := store.RemoveStale(tx, valid); err != nil {
			return err
		}

		return e.resolveReferences(tx, pending, exported, allSymbols)
	})
	if err != nil {
		return nil, fmt.Errorf("index %s: %w", e.root, err)
	}

	if err := e.computeRankings(); err != nil {
		return nil, err
	}

	if err := e.fillCounts(stats); err != nil {
		return nil, err
	}
	stats.Duration = time.Since(start)
	stats.DurationMS = stats.Duration.Milliseconds()
	e.logger.Debug("index complete",
		"files", stats.Files, "indexed", stats.Indexed,
		"unchanged", stats.Unchanged, "duration", stats.Duration)
	return stats, nil
}

// ReindexFile re-indexes a single relative path: the incremental path
// used by the watcher and the post-edit hook. A file missing on disk is
// removed from the index. Cross-file references and PageRank are not
// recomputed here; they refresh on the next full index.
func (e *Engine) ReindexFile(ctx context.Context, rel string) error {
	rel = filepath.ToSlash(rel)
	abs := filepath.Join(e.root, filepath.FromSlash(rel))

	info, err := os.Stat(abs)
	if err != nil {
		return e.store.WithTx(func(tx *sql.Tx) error {
			return store.RemoveFile(tx, rel)
		})
	}
	if !collect.SupportedExt(rel) || info.Size() > collect.MaxFileSize {
		return nil
	}

	content, err := os.ReadFile(abs)
	if err != nil {
		return fmt.Errorf("read %s: %w", rel, err)
	}

	return e.store.WithTx(func(tx *sql.Tx) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		tag, _ := lang.ForPath(rel)
		fileID, changed, err := store.UpsertFile(tx, rel, tag, Digest(content), countLines(content))
		if err != nil {
			return err
		}
		if !changed {
			return nil
		}
		if err := store.ClearFileData(tx, fileID); err != nil {
			return err
		}
		res := e.parser.Parse(rel, content)
		symTable, _, _, err := insertSymbols(tx, fileID, res.Symbols)
		if err != nil {
			return err
		}
		if err := insertCallEdges(tx, symTable, res.Calls); err != nil {
			return err
		}
		return e.insertFileDeps(tx, fileID, rel, res.Imports)
	})
}

// insertSymbols writes a file's symbols and returns the lookup tables:
// all names -> id, exported names -> id, and the raw id list.
func insertSymbols(tx *sql.Tx, fileID int64, symbols []parser.Symbol) (symTable, expTable map[string]int64, ids []int64, err error) {
	symTable = make(map[string]int64)
	expTable = make(map[string]int64)
	for i := range symbols {
		ps := &symbols[i]
		id, err := store.InsertSymbol(tx, &store.Symbol{
			FileID:        fileID,
			Name:          ps.Name,
			QualifiedName: ps.QualifiedName,
			Kind:          ps.Kind,
			StartLine:     ps.StartLine,
			EndLine:       ps.EndLine,
			Signature:     ps.Signature,
			Docstring:     ps.Docstring,
			Content:       ps.Content,
			Exported:      ps.Exported,
		})
		if err != nil {
			return nil, nil, nil, err
		}
		symTable[ps.Name] = id
		if ps.QualifiedName != "" {
			symTable[ps.QualifiedName] = id
		}
		if ps.Exported {
			expTable[ps.Name] = id
			if ps.QualifiedName != "" {
				expTable[ps.QualifiedName] = id
			}
		}
		ids = append(ids, id)
	}
	return symTable, expTable, ids, nil
}

// insertCallEdges emits intra-file call edges: caller and callee must
// both resolve in the same file's symbol table and differ.
func insertCallEdges(tx *sql.Tx, symTable map[string]int64, calls []parser.Call) error {
	for _, c := range calls {
		from, ok := symTable[c.Caller]
		if !ok {
			continue
		}
		to, ok := symTable[c.Called]
		if !ok || from == to {
			continue
		}
		if err := store.InsertEdge(tx, from, to, "calls"); err != nil {
			return err
		}
	}
	return nil
}

// insertFileDeps records one FileDep per resolvable import.
func (e *Engine) insertFileDeps(tx *sql.Tx, fileID int64, rel string, imports []parser.Import) error {
	for _, imp := range imports {
		target, ok := resolve.Import(e.root, rel, imp.Source)
		if !ok {
			continue
		}
		targetFile, err := store.FileByPath(tx, target)
		if err != nil {
			return err
		}
		if targetFile == nil {
			continue
		}
		if err := store.InsertFileDep(tx, fileID, targetFile.ID, "import", depName(imp)); err != nil {
			return err
		}
	}
	return nil
}

// resolveReferences is the cross-file pass: for each re-parsed file,
// each resolvable import becomes a FileDep, and each imported name that
// matches an exported symbol in the target gets a references edge from
// every symbol in the importing file. Deliberately coarse — it encodes
// "this file uses X" — and deduplicated by the store's uniqueness
// constraint.
func (e *Engine) resolveReferences(tx *sql.Tx, pending []parsedFile, exported map[string]map[string]int64, allSymbols map[string][]int64) error {
	for _, pf := range pending {
		for _, imp := range pf.imports {
			target, ok := resolve.Import(e.root, pf.rel, imp.Source)
			if !ok {
				continue
			}
			targetFile, err := store.FileByPath(tx, target)
			if err != nil {
				return err
			}
			if targetFile == nil {
				continue
			}
			if err := store.InsertFileDep(tx, pf.id, targetFile.ID, "import", depName(imp)); err != nil {
				return err
			}
			table := exported[target]
			if table == nil {
				continue
			}
			for _, name := range imp.Names {
				targetID, ok := table[name]
				if !ok {
					continue
				}
				for _, sourceID := range allSymbols[pf.rel] {
					if sourceID == targetID {
						continue
					}
					if err := store.InsertEdge(tx, sourceID, targetID, "references"); err != nil {
						return err
					}
				}
			}
		}
	}
	return nil
}

// computeRankings runs PageRank over the whole graph and replaces the
// rankings table in its own transaction.
func (e *Engine) computeRankings() error {
	ids, edges, err := e.store.LoadGraph()
	if err != nil {
		return err
	}
	scores := rank.Compute(ids, edges)
	rankings := make([]store.Ranking, len(scores))
	for i, sc := range scores {
		rankings[i] = store.Ranking{
			SymbolID:  sc.ID,
			Rank:      sc.Rank,
			InDegree:  sc.InDegree,
			OutDegree: sc.OutDegree,
		}
	}
	return e.store.ReplaceRankings(rankings)
}

func (e *Engine) fillCounts(stats *IndexStats) error {
	row := e.store.DB().QueryRow(`SELECT
		(SELECT COUNT(*) FROM symbols),
		(SELECT COUNT(*) FROM edges),
		(SELECT COUNT(*) FROM file_deps)`)
	if err := row.Scan(&stats.Symbols, &stats.Edges, &stats.FileDeps); err != nil {
		return fmt.Errorf("index counts: %w", err)
	}
	return nil
}

// depName renders a FileDep's name column: the comma-joined imported
// identifiers, or "*" for imports with no named bindings.
func depName(imp parser.Import) string {
	if len(imp.Names) == 0 {
		return "*"
	}
	return strings.Join(imp.Names, ",")
}

func countLines(content []byte) int {
	if len(content) == 0 {
		return 0
	}
	n := bytes.Count(content, []byte{'\n'})
	if content[len(content)-1] != '\n' {
		n++
	}
	return n
}
