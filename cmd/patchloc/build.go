// cmd/patchloc/build.go
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/julianshen/patchloc/internal/advisory"
	"github.com/julianshen/patchloc/internal/config"
	"github.com/julianshen/patchloc/internal/pipeline"
)

func buildCmd() *cobra.Command {
	var (
		strategyFlag string
		fullDiffFlag bool
		astToolFlag  string
	)

	cmd := &cobra.Command{
		Use:   "build <input-file> <output-folder>",
		Short: "Run the advisory diff pipeline",
		Long: `Process an advisory list (JSON, YAML, or CSV) and write checkouts,
per-file diffs, structural diffs, prompt files, and the final
patched_dataset.csv under the output folder.

Individual advisory failures (unreachable repository, unknown refs) are
logged and skipped; only unreadable input aborts the run.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			inputFile, outputRoot := args[0], args[1]

			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("strategy") {
				cfg.Pipeline.Strategy = strategyFlag
				if err := cfg.Validate(); err != nil {
					return err
				}
			}
			if cmd.Flags().Changed("full-diff") {
				cfg.Pipeline.FullDiff = fullDiffFlag
			}
			if astToolFlag != "" {
				cfg.ASTDiff.Command = []string{"java", "-jar", astToolFlag}
			}

			records, err := advisory.Load(inputFile)
			if err != nil {
				return err
			}
			if len(records) == 0 {
				return fmt.Errorf("input file %s contains no advisories", inputFile)
			}

			res, err := pipeline.Run(cmd.Context(), cfg, records, outputRoot)
			if err != nil {
				return err
			}

			fmt.Fprintf(os.Stderr, "patchloc: %d processed, %d skipped\n", len(res.Rows), len(res.Skipped))
			for _, skip := range res.Skipped {
				fmt.Fprintf(os.Stderr, "  skipped %s: %s\n", skip.AdvisoryID, skip.Reason)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&strategyFlag, "strategy", "", "per-file diff strategy: unified, git")
	cmd.Flags().BoolVar(&fullDiffFlag, "full-diff", true, "capture the repository-level diff")
	cmd.Flags().StringVar(&astToolFlag, "ast-tool", "", "path to the structural-diff tool jar")

	return cmd
}
