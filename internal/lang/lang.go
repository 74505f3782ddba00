// Package lang maps file extensions to language tags and owns the
// tree-sitter grammar registry.
package lang

import (
	"path/filepath"
	"strings"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/bash"
	"github.com/smacker/go-tree-sitter/c"
	"github.com/smacker/go-tree-sitter/cpp"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/rust"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

// extToLang maps supported file extensions to canonical language tags.
// json/css/html are tracked languages with no grammar: their files get a
// row in the store but an empty parse result.
var extToLang = map[string]string{
	".ts":   "typescript",
	".tsx":  "tsx",
	".js":   "javascript",
	".jsx":  "javascript",
	".mjs":  "javascript",
	".py":   "python",
	".rs":   "rust",
	".go":   "go",
	".sh":   "bash",
	".bash": "bash",
	".c":    "c",
	".h":    "c",
	".cpp":  "cpp",
	".cc":   "cpp",
	".hpp":  "cpp",
	".json": "json",
	".css":  "css",
	".html": "html",
	".htm":  "html",
}

// ForPath returns the language tag for a file path by extension.
// Returns ("", false) for unsupported extensions.
func ForPath(path string) (string, bool) {
	tag, ok := extToLang[strings.ToLower(filepath.Ext(path))]
	return tag, ok
}

// loaders produce grammars on demand. Tags without a loader (json, css,
// html) are permanently absent.
var loaders = map[string]func() *sitter.Language{
	"typescript": typescript.GetLanguage,
	"tsx":        tsx.GetLanguage,
	"javascript": javascript.GetLanguage,
	"python":     python.GetLanguage,
	"rust":       rust.GetLanguage,
	"go":         golang.GetLanguage,
	"bash":       bash.GetLanguage,
	"c":          c.GetLanguage,
	"cpp":        cpp.GetLanguage,
}

// grammarEntry caches one load attempt. absent is cached too, so a
// missing grammar is probed at most once per process.
type grammarEntry struct {
	grammar *sitter.Language
	absent  bool
}

// Registry lazily loads grammars on first demand.
type Registry struct {
	mu      sync.Mutex
	entries map[string]*grammarEntry
}

// NewRegistry returns an empty registry; grammars load on first Grammar call.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]*grammarEntry)}
}

// Grammar returns the grammar for a language tag, or (nil, false) when
// the tag has no grammar. A failed load is cached as absent.
func (r *Registry) Grammar(tag string) (*sitter.Language, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.entries[tag]; ok {
		if e.absent {
			return nil, false
		}
		return e.grammar, true
	}

	load, ok := loaders[tag]
	if !ok {
		r.entries[tag] = &grammarEntry{absent: true}
		return nil, false
	}
	g := load()
	if g == nil {
		r.entries[tag] = &grammarEntry{absent: true}
		return nil, false
	}
	r.entries[tag] = &grammarEntry{grammar: g}
	return g, true
}
