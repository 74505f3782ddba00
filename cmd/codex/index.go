package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	codex "github.com/codexhq/codex"
	"github.com/codexhq/codex/internal/docs"
	"github.com/codexhq/codex/internal/install"
	"github.com/codexhq/codex/internal/ui"
)

func init() {
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(reindexCmd)
	rootCmd.AddCommand(reindexFileCmd)
	rootCmd.AddCommand(postEditCmd)
	rootCmd.AddCommand(generateDocsCmd)
	rootCmd.AddCommand(uninstallCmd)
}

var initCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Index a project and install assistant configuration",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := rootFromArgs(args)
		if err != nil {
			return err
		}
		ui.Header("Indexing %s", root)

		start := time.Now()
		engine, err := codex.Open(root, nil)
		if err != nil {
			return err
		}
		defer engine.Close()

		stats, err := engine.IndexProject(cmd.Context())
		if err != nil {
			return err
		}
		ui.Success("Indexed %d files (%d parsed, %d unchanged, %d skipped), %d symbols, %d edges in %s",
			stats.Files, stats.Indexed, stats.Unchanged, stats.Skipped,
			stats.Symbols, stats.Edges, time.Since(start).Round(time.Millisecond))

		if err := install.Settings(root); err != nil {
			return fmt.Errorf("install settings: %w", err)
		}
		ui.Info("Installed .claude/settings.json hooks")

		if err := writeDocs(root, engine); err != nil {
			return err
		}
		ui.Info("Wrote CLAUDE.md")
		return nil
	},
}

var reindexCmd = &cobra.Command{
	Use:   "reindex [path]",
	Short: "Run a full re-index and print stats",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := rootFromArgs(args)
		if err != nil {
			return err
		}
		engine, err := codex.Open(root, nil)
		if err != nil {
			return err
		}
		defer engine.Close()

		stats, err := engine.IndexProject(cmd.Context())
		if err != nil {
			return err
		}
		return printJSON(stats)
	},
}

var reindexFileCmd = &cobra.Command{
	Use:   "reindex-file <rel-path>",
	Short: "Incrementally re-index one file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return reindexOne(cmd, args[0])
	},
}

var postEditCmd = &cobra.Command{
	Use:    "post-edit <rel-path>",
	Short:  "Editor hook: silently re-index an edited file",
	Args:   cobra.ExactArgs(1),
	Hidden: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		// Best effort: a hook must never break the editor flow.
		_ = reindexOne(cmd, args[0])
		return nil
	},
}

func reindexOne(cmd *cobra.Command, rel string) error {
	root, err := discoverRoot()
	if err != nil {
		return err
	}
	engine, err := codex.OpenExisting(root, nil)
	if err != nil {
		return err
	}
	defer engine.Close()
	return engine.ReindexFile(cmd.Context(), rel)
}

var generateDocsCmd = &cobra.Command{
	Use:   "generate-docs",
	Short: "Regenerate the codex block of CLAUDE.md",
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
		return writeDocs(root, engine)
	},
}

func writeDocs(root string, engine *codex.Engine) error {
	brief, err := engine.Queries().Brief()
	if err != nil {
		return err
	}
	if err := docs.Write(root, docs.Summary{Brief: brief}); err != nil {
		return fmt.Errorf("generate docs: %w", err)
	}
	return nil
}

var uninstallCmd = &cobra.Command{
	Use:   "uninstall",
	Short: "Remove codex configuration from the project",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := discoverRoot()
		if err != nil {
			return err
		}
		if err := install.Remove(root); err != nil {
			return err
		}
		ui.Success("Removed codex hooks from .claude/settings.json")
		return nil
	},
}
