package main

import (
	"github.com/spf13/cobra"

	codex "github.com/codexhq/codex"
	"github.com/codexhq/codex/internal/store"
)

var (
	flagLimit int
	flagTop   int
)

func init() {
	searchCmd.Flags().IntVar(&flagLimit, "limit", codex.DefaultSearchLimit, "maximum results")
	rankCmd.Flags().IntVar(&flagTop, "top", codex.DefaultRankLimit, "number of symbols")

	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(callersCmd)
	rootCmd.AddCommand(contextCmd)
	rootCmd.AddCommand(impactCmd)
	rootCmd.AddCommand(depsCmd)
	rootCmd.AddCommand(rankCmd)
	rootCmd.AddCommand(modulesCmd)
	rootCmd.AddCommand(statsCmd)
}

// withQueries opens the index read-side and hands Queries to fn.
func withQueries(fn func(q *codex.Queries) error) error {
	root, err := discoverRoot()
	if err != nil {
		return err
	}
	s, err := store.OpenExisting(root)
	if err != nil {
		return err
	}
	defer s.Close()
	return fn(codex.NewQueries(s))
}

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Ranked full-text symbol search",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withQueries(func(q *codex.Queries) error {
			results, err := q.Search(args[0], flagLimit)
			if err != nil {
				return err
			}
			return printJSON(emptyIfNil(results))
		})
	},
}

var callersCmd = &cobra.Command{
	Use:   "callers <symbol>",
	Short: "Symbols that call or reference a symbol",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withQueries(func(q *codex.Queries) error {
			refs, err := q.Callers(args[0])
			if err != nil {
				return err
			}
			return printJSON(emptyIfNil(refs))
		})
	},
}

var contextCmd = &cobra.Command{
	Use:   "context <symbol>",
	Short: "Symbol body plus its graph neighborhood",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withQueries(func(q *codex.Queries) error {
			res, err := q.Context(args[0])
			if err != nil {
				return err
			}
			return printJSON(res) // null when no match
		})
	},
}

var impactCmd = &cobra.Command{
	Use:   "impact <file>",
	Short: "Files affected by changing a file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withQueries(func(q *codex.Queries) error {
			entries, err := q.Impact(args[0], codex.DefaultImpactDepth)
			if err != nil {
				return err
			}
			return printJSON(emptyIfNil(entries))
		})
	},
}

var depsCmd = &cobra.Command{
	Use:   "deps <symbol>",
	Short: "Symbols a symbol depends on",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withQueries(func(q *codex.Queries) error {
			refs, err := q.Dependencies(args[0])
			if err != nil {
				return err
			}
			return printJSON(emptyIfNil(refs))
		})
	},
}

var rankCmd = &cobra.Command{
	Use:   "rank",
	Short: "Top symbols by PageRank",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withQueries(func(q *codex.Queries) error {
			refs, err := q.Rank(flagTop)
			if err != nil {
				return err
			}
			return printJSON(emptyIfNil(refs))
		})
	},
}

var modulesCmd = &cobra.Command{
	Use:   "modules",
	Short: "Top-level module partition with cross-module imports",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withQueries(func(q *codex.Queries) error {
			infos, err := q.Modules()
			if err != nil {
				return err
			}
			return printJSON(emptyIfNil(infos))
		})
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Index-wide row counts",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withQueries(func(q *codex.Queries) error {
			stats, err := q.Stats()
			if err != nil {
				return err
			}
			return printJSON(stats)
		})
	},
}

// emptyIfNil keeps JSON output a valid array when a query matched
// nothing.
func emptyIfNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
