package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	codex "github.com/codexhq/codex"
	"github.com/codexhq/codex/internal/watch"
)

const serverVersion = "0.3.0"

func init() {
	rootCmd.AddCommand(mcpCmd)
}

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve code-intelligence tools over MCP on stdio",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := discoverRoot()
		if err != nil {
			return err
		}
		engine, err := codex.OpenExisting(root, nil)
		if err != nil {
			return err
		}
		defer engine.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		ts := &toolServer{engine: engine}

		// The watcher and the request handler share one store handle;
		// the toolServer mutex serializes them.
		watcher := watch.New(root, ts, nil)
		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = watcher.Run(ctx)
		}()

		server := mcp.NewServer(&mcp.Implementation{Name: "codex", Version: serverVersion}, nil)
		registerTools(server, ts)

		err = server.Run(ctx, mcp.NewStdioTransport())
		stop()
		wg.Wait() // watcher must not outlive the store handle
		if err != nil && ctx.Err() == nil {
			return fmt.Errorf("mcp server: %w", err)
		}
		return nil
	},
}

// toolServer serializes all store access from the tool handlers and
// the watcher behind one mutex.
type toolServer struct {
	mu     sync.Mutex
	engine *codex.Engine
}

func (t *toolServer) queries() (*codex.Queries, func()) {
	t.mu.Lock()
	return t.engine.Queries(), t.mu.Unlock
}

// ReindexFile lets the watcher drive the engine through the same lock.
func (t *toolServer) ReindexFile(ctx context.Context, rel string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.engine.ReindexFile(ctx, rel)
}

// logTiming emits the per-call timing line on stderr.
func logTiming(tool string, start time.Time) {
	fmt.Fprintf(os.Stderr, "%s completed in %dms\n", tool, time.Since(start).Milliseconds())
}

type searchParams struct {
	Query string `json:"query" jsonschema:"the search query"`
	Limit int    `json:"limit,omitempty" jsonschema:"maximum results (default 15)"`
}

type symbolParams struct {
	Name string `json:"name" jsonschema:"symbol name or qualified name"`
}

type fileParams struct {
	File string `json:"file" jsonschema:"root-relative file path"`
}

type emptyParams struct{}

type listResult struct {
	Results any `json:"results"`
}

func registerTools(server *mcp.Server, ts *toolServer) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "search_code",
		Description: "Full-text search over indexed symbols, ranked by structural importance.",
	}, ts.searchCode)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_symbol",
		Description: "Get a symbol's signature, body, dependencies, dependents and file siblings.",
	}, ts.getSymbol)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_callers",
		Description: "List the symbols that call or reference a symbol.",
	}, ts.getCallers)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_dependents",
		Description: "List the files affected by changing a file, by import distance.",
	}, ts.getDependents)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_dependencies",
		Description: "List the symbols a symbol depends on.",
	}, ts.getDependencies)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_architecture",
		Description: "Get the project overview: stats, modules and top-ranked symbols.",
	}, ts.getArchitecture)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "reindex_file",
		Description: "Re-index one file after editing it.",
	}, ts.reindexFileTool)
}

func (t *toolServer) searchCode(ctx context.Context, ss *mcp.ServerSession, params *mcp.CallToolParamsFor[searchParams]) (*mcp.CallToolResultFor[listResult], error) {
	defer logTiming("search_code", time.Now())
	q, unlock := t.queries()
	defer unlock()

	results, err := q.Search(params.Arguments.Query, params.Arguments.Limit)
	if err != nil {
		return nil, err
	}
	return jsonResult(listResult{Results: emptyIfNil(results)})
}

func (t *toolServer) getSymbol(ctx context.Context, ss *mcp.ServerSession, params *mcp.CallToolParamsFor[symbolParams]) (*mcp.CallToolResultFor[*codex.ContextResult], error) {
	defer logTiming("get_symbol", time.Now())
	q, unlock := t.queries()
	defer unlock()

	res, err := q.Context(params.Arguments.Name)
	if err != nil {
		return nil, err
	}
	if res == nil {
		return &mcp.CallToolResultFor[*codex.ContextResult]{
			Content: []mcp.Content{&mcp.TextContent{
				Text: fmt.Sprintf("No symbol named %q in the index. Try search_code for a fuzzy match.", params.Arguments.Name),
			}},
		}, nil
	}
	return jsonResultAs[*codex.ContextResult](res)
}

func (t *toolServer) getCallers(ctx context.Context, ss *mcp.ServerSession, params *mcp.CallToolParamsFor[symbolParams]) (*mcp.CallToolResultFor[listResult], error) {
	defer logTiming("get_callers", time.Now())
	q, unlock := t.queries()
	defer unlock()

	refs, err := q.Callers(params.Arguments.Name)
	if err != nil {
		return nil, err
	}
	return jsonResult(listResult{Results: emptyIfNil(refs)})
}

func (t *toolServer) getDependents(ctx context.Context, ss *mcp.ServerSession, params *mcp.CallToolParamsFor[fileParams]) (*mcp.CallToolResultFor[listResult], error) {
	defer logTiming("get_dependents", time.Now())
	q, unlock := t.queries()
	defer unlock()

	entries, err := q.Impact(params.Arguments.File, codex.DefaultImpactDepth)
	if err != nil {
		return nil, err
	}
	return jsonResult(listResult{Results: emptyIfNil(entries)})
}

func (t *toolServer) getDependencies(ctx context.Context, ss *mcp.ServerSession, params *mcp.CallToolParamsFor[symbolParams]) (*mcp.CallToolResultFor[listResult], error) {
	defer logTiming("get_dependencies", time.Now())
	q, unlock := t.queries()
	defer unlock()

	refs, err := q.Dependencies(params.Arguments.Name)
	if err != nil {
		return nil, err
	}
	return jsonResult(listResult{Results: emptyIfNil(refs)})
}

type architectureResult struct {
	Stats   *codex.Stats       `json:"stats"`
	Modules []codex.ModuleInfo `json:"modules"`
	Top     []codex.SymbolRef  `json:"topSymbols"`
}

func (t *toolServer) getArchitecture(ctx context.Context, ss *mcp.ServerSession, params *mcp.CallToolParamsFor[emptyParams]) (*mcp.CallToolResultFor[architectureResult], error) {
	defer logTiming("get_architecture", time.Now())
	q, unlock := t.queries()
	defer unlock()

	stats, err := q.Stats()
	if err != nil {
		return nil, err
	}
	modules, err := q.Modules()
	if err != nil {
		return nil, err
	}
	top, err := q.Rank(10)
	if err != nil {
		return nil, err
	}
	return jsonResultAs[architectureResult](architectureResult{Stats: stats, Modules: modules, Top: top})
}

func (t *toolServer) reindexFileTool(ctx context.Context, ss *mcp.ServerSession, params *mcp.CallToolParamsFor[fileParams]) (*mcp.CallToolResultFor[listResult], error) {
	defer logTiming("reindex_file", time.Now())
	if err := t.ReindexFile(ctx, params.Arguments.File); err != nil {
		return nil, err
	}
	return &mcp.CallToolResultFor[listResult]{
		Content: []mcp.Content{&mcp.TextContent{
			Text: fmt.Sprintf("Reindexed %s", params.Arguments.File),
		}},
	}, nil
}

func jsonResult(v listResult) (*mcp.CallToolResultFor[listResult], error) {
	return jsonResultAs(v)
}

func jsonResultAs[T any](v T) (*mcp.CallToolResultFor[T], error) {
	return &mcp.CallToolResultFor[T]{
		Content:           []mcp.Content{&mcp.TextContent{Text: renderJSON(v)}},
		StructuredContent: v,
	}, nil
}
