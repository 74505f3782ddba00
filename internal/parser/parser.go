// Package parser turns source files into symbols, imports and
// intra-file calls by walking tree-sitter concrete syntax trees.
//
// Extraction is deliberately syntactic: names are taken as they appear
// and no scope analysis is attempted. Files whose language has no
// grammar (json, css, html) parse to an empty result but are still
// tracked by the store for hashing and membership.
package parser

import (
	"context"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/codexhq/codex/internal/lang"
)

// Symbol is one extracted declaration. Line numbers are 1-based inclusive.
type Symbol struct {
	Name          string
	QualifiedName string
	Kind          string
	StartLine     int
	EndLine       int
	Signature     string
	Docstring     string
	Content       string
	Exported      bool
}

// Import is one import statement: its raw source specifier and the
// imported identifier names, if any.
type Import struct {
	Source  string
	Names   []string
	Default bool
}

// Call is one call site attributed to its enclosing symbol.
type Call struct {
	Caller string
	Called string
	Line   int
}

// Result is the full parse output for one file.
type Result struct {
	Symbols  []Symbol
	Imports  []Import
	Calls    []Call
	Language string
}

// Parser owns the grammar registry. One Parser serves the whole process.
type Parser struct {
	registry *lang.Registry
}

// New returns a Parser with an empty grammar registry; grammars load on
// first use per language.
func New() *Parser {
	return &Parser{registry: lang.NewRegistry()}
}

// Parse extracts symbols, imports and calls from content. The language
// is detected from relPath's extension. An unsupported extension, an
// absent grammar, or a parser crash all yield an empty result; none of
// them is an error.
func (p *Parser) Parse(relPath string, content []byte) *Result {
	tag, ok := lang.ForPath(relPath)
	if !ok {
		return &Result{}
	}
	res := &Result{Language: tag}

	grammar, ok := p.registry.Grammar(tag)
	if !ok {
		return res
	}

	// Grammar bindings are C code; a crash on one file must not take
	// down the index run.
	defer func() {
		if r := recover(); r != nil {
			*res = Result{Language: tag}
		}
	}()

	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(grammar)

	tree, err := parser.ParseCtx(context.Background(), nil, content)
	if err != nil || tree == nil {
		return res
	}
	defer tree.Close()

	root := tree.RootNode()
	res.Symbols = extractSymbols(root, content, tag)
	res.Imports = extractImports(root, content)
	res.Calls = extractCalls(root, content)
	return res
}

// firstLine returns the trimmed first line of a node's source text.
func firstLine(s string) string {
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			s = s[:i]
			break
		}
	}
	return trimSpace(s)
}

func trimSpace(s string) string {
	start, end := 0, len(s)
	for start < end && isSpace(s[start]) {
		start++
	}
	for end > start && isSpace(s[end-1]) {
		end--
	}
	return s[start:end]
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\r' || b == '\n'
}

// truncate caps s at n runes, never splitting a UTF-8 sequence.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
