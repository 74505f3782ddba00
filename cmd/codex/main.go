// Command codex indexes a source tree into a symbol graph and serves
// structured queries over it, as a CLI and as an MCP server.
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/codexhq/codex/internal/store"
)

var flagVerbose bool

func main() {
	if err := rootCmd.Execute(); err != nil {
		if errors.Is(err, store.ErrNoIndex) {
			fmt.Fprintln(os.Stderr, "codex: no index found. Run `codex init` first.")
		} else {
			fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		}
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "codex",
	Short:         "Local code intelligence: symbol graph, ranking and search",
	Long:          "Codex indexes a source tree with tree-sitter into a SQLite symbol graph, ranks symbols with PageRank, and answers structural queries from the CLI or over MCP.",
	SilenceErrors: true,
	SilenceUsage:  true,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&flagVerbose, "verbose", false, "enable debug logging")
	cobra.OnInitialize(setupLogging)
}

func setupLogging() {
	level := slog.LevelWarn
	if flagVerbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

// discoverRoot picks the project root: CODEX_ROOT wins, then the
// nearest ancestor carrying .codex/index.db, then the current
// directory.
func discoverRoot() (string, error) {
	if env := os.Getenv("CODEX_ROOT"); env != "" {
		abs, err := filepath.Abs(env)
		if err != nil {
			return "", fmt.Errorf("CODEX_ROOT: %w", err)
		}
		return abs, nil
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("getwd: %w", err)
	}
	dir := cwd
	for {
		if _, err := os.Stat(store.DBPath(dir)); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return cwd, nil
		}
		dir = parent
	}
}

// rootFromArgs resolves an optional positional path argument, falling
// back to root discovery.
func rootFromArgs(args []string) (string, error) {
	if len(args) > 0 {
		abs, err := filepath.Abs(args[0])
		if err != nil {
			return "", fmt.Errorf("resolving path %q: %w", args[0], err)
		}
		info, err := os.Stat(abs)
		if err != nil || !info.IsDir() {
			return "", fmt.Errorf("not a directory: %s", abs)
		}
		return abs, nil
	}
	return discoverRoot()
}

// printJSON writes v to stdout as indented JSON. A nil slice renders as
// null; list commands pass their results through emptyIfNil first.
func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// renderJSON is printJSON's string-returning sibling for tool payloads.
func renderJSON(v any) string {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf("{%q: %q}", "error", err.Error())
	}
	return string(data)
}
