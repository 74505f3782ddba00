package codex

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newQueryFixture builds a small three-module repo exercising imports,
// calls and exports.
func newQueryFixture(t *testing.T) *Engine {
	t.Helper()
	e := newTestEngine(t)
	writeFile(t, e.Root(), "core/parse.ts", `// parses raw input
export function parse(input) { return tokenize(input); }
export function tokenize(input) { return input.split(' '); }
`)
	writeFile(t, e.Root(), "app/main.ts", `import { parse } from '../core/parse';
export function run() { parse('x'); }
`)
	writeFile(t, e.Root(), "app/cli.ts", `import { run } from './main';
export function cli() { run(); }
`)
	index(t, e)
	return e
}

func TestSearch_EmptyAndNoMatch(t *testing.T) {
	t.Parallel()
	e := newQueryFixture(t)
	q := e.Queries()

	results, err := q.Search("", 0)
	require.NoError(t, err)
	assert.Empty(t, results)

	results, err = q.Search("hello world", 0)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearch_SnippetHighlights(t *testing.T) {
	t.Parallel()
	e := newQueryFixture(t)

	results, err := e.Queries().Search("tokenize", 0)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, "tokenize", results[0].Name)
	assert.Contains(t, results[0].Snippet, ">>>")
	assert.Contains(t, results[0].Snippet, "<<<")
}

func TestSearch_PunctuationTokenization(t *testing.T) {
	t.Parallel()
	e := newQueryFixture(t)

	// Punctuation splits into tokens that are OR-combined.
	results, err := e.Queries().Search("parse(input)", 0)
	require.NoError(t, err)
	assert.NotEmpty(t, results)
}

func TestContext_PrefersExportedThenRank(t *testing.T) {
	t.Parallel()
	e := newQueryFixture(t)

	res, err := e.Queries().Context("parse")
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, "parse", res.Name)
	assert.Equal(t, "core/parse.ts", res.File)
	assert.True(t, res.Exported)
	assert.Contains(t, res.Body, "tokenize(input)")
	// The comment precedes the export statement, not the declaration
	// inside it, so the prev-sibling docstring rule does not fire.
	assert.Empty(t, res.Docstring)

	// tokenize is both a dependency (parse calls it) and a sibling.
	var depNames []string
	for _, d := range res.Dependencies {
		depNames = append(depNames, d.Name)
	}
	assert.Contains(t, depNames, "tokenize")

	var siblingNames []string
	for _, s := range res.Siblings {
		siblingNames = append(siblingNames, s.Name)
	}
	assert.Equal(t, []string{"tokenize"}, siblingNames)

	// run references parse through the import.
	var dependentNames []string
	for _, d := range res.Dependents {
		dependentNames = append(dependentNames, d.Name)
	}
	assert.Contains(t, dependentNames, "run")
}

func TestContext_NoMatchIsNil(t *testing.T) {
	t.Parallel()
	e := newQueryFixture(t)
	res, err := e.Queries().Context("nonexistent")
	require.NoError(t, err)
	assert.Nil(t, res)
}

func TestImpact_BreadthFirstDepths(t *testing.T) {
	t.Parallel()
	e := newQueryFixture(t)

	entries, err := e.Queries().Impact("core/parse.ts", 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "app/main.ts", entries[0].File)
	assert.Equal(t, 1, entries[0].Depth)
	assert.Equal(t, "app/cli.ts", entries[1].File)
	assert.Equal(t, 2, entries[1].Depth)
}

func TestImpact_UnknownFile(t *testing.T) {
	t.Parallel()
	e := newQueryFixture(t)
	entries, err := e.Queries().Impact("ghost.ts", 0)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRank_FiltersKinds(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t)
	writeFile(t, e.Root(), "a.ts", `export function used(){}
export const LIMIT = 5;
export function caller(){ used(); }
`)
	index(t, e)

	refs, err := e.Queries().Rank(10)
	require.NoError(t, err)
	for _, r := range refs {
		assert.NotEqual(t, "variable", r.Kind, "plain variables are not ranked output")
	}
	require.NotEmpty(t, refs)
	assert.Equal(t, "used", refs[0].Name, "the called symbol outranks its caller")
}

func TestModules_PartitionAndDeps(t *testing.T) {
	t.Parallel()
	e := newQueryFixture(t)

	modules, err := e.Queries().Modules()
	require.NoError(t, err)
	require.Len(t, modules, 2)

	byName := make(map[string]ModuleInfo)
	for _, m := range modules {
		byName[m.Name] = m
	}
	require.Contains(t, byName, "core")
	require.Contains(t, byName, "app")
	assert.Equal(t, 1, byName["core"].Files)
	assert.Equal(t, 2, byName["app"].Files)
	assert.Equal(t, []string{"core"}, byName["app"].DependsOn)
	assert.Empty(t, byName["core"].DependsOn)
}

func TestModules_RootFilesUseDot(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t)
	writeFile(t, e.Root(), "main.ts", "export function main(){}\n")
	index(t, e)

	modules, err := e.Queries().Modules()
	require.NoError(t, err)
	require.Len(t, modules, 1)
	assert.Equal(t, ".", modules[0].Name)
}

func TestStats_Counts(t *testing.T) {
	t.Parallel()
	e := newQueryFixture(t)

	stats, err := e.Queries().Stats()
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Files)
	assert.Equal(t, 4, stats.Symbols)
	assert.Equal(t, 2, stats.FileDeps)
	assert.Greater(t, stats.Edges, 0)
}

func TestBrief_MentionsEverySection(t *testing.T) {
	t.Parallel()
	e := newQueryFixture(t)

	text, err := e.Queries().Brief()
	require.NoError(t, err)
	assert.Contains(t, text, "3 files")
	assert.Contains(t, text, "typescript")
	assert.Contains(t, text, "Top modules:")
	assert.Contains(t, text, "Top symbols:")
}

func TestPreEdit_ListsExportsAndDependents(t *testing.T) {
	t.Parallel()
	e := newQueryFixture(t)

	text, err := e.Queries().PreEdit("core/parse.ts")
	require.NoError(t, err)
	assert.Contains(t, text, "parse (function)")
	assert.Contains(t, text, "app/main.ts")

	text, err = e.Queries().PreEdit("app/main.ts")
	require.NoError(t, err)
	assert.Contains(t, text, "Imports:")
	assert.Contains(t, text, "core/parse.ts (parse)")

	text, err = e.Queries().PreEdit("ghost.ts")
	require.NoError(t, err)
	assert.True(t, strings.Contains(text, "not in the index"))
}

func TestCallers_DistinctAndOrdered(t *testing.T) {
	t.Parallel()
	e := newQueryFixture(t)

	// Every symbol in app/main.ts references parse; run appears once.
	callers, err := e.Queries().Callers("parse")
	require.NoError(t, err)
	require.Len(t, callers, 1)
	assert.Equal(t, "run", callers[0].Name)
}
