package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	codex "github.com/codexhq/codex"
)

func init() {
	rootCmd.AddCommand(briefCmd)
	rootCmd.AddCommand(preEditCmd)
}

var briefCmd = &cobra.Command{
	Use:   "brief",
	Short: "Human-readable index overview",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withQueries(func(q *codex.Queries) error {
			text, err := q.Brief()
			if err != nil {
				return err
			}
			fmt.Fprint(os.Stdout, text)
			return nil
		})
	},
}

var preEditCmd = &cobra.Command{
	Use:   "pre-edit <file>",
	Short: "What to know before editing a file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withQueries(func(q *codex.Queries) error {
			text, err := q.PreEdit(args[0])
			if err != nil {
				return err
			}
			fmt.Fprint(os.Stdout, text)
			return nil
		})
	},
}
