// Package codex is a local code-intelligence engine. It scans a source
// tree, extracts a symbol-level dependency graph with tree-sitter,
// ranks symbols with PageRank, and serves structured queries (symbol
// lookup, caller traversal, file impact, full-text search) from a
// SQLite index stored under <root>/.codex/.
//
// The Engine owns indexing; Queries owns reads. The codex CLI under
// cmd/codex exposes both, plus an MCP server and a file watcher for
// incremental re-indexing.
package codex
