// cmd/patchloc/fetch.go
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/julianshen/patchloc/internal/ghsa"
)

func fetchCmd() *cobra.Command {
	var (
		cweFlag       string
		ecosystemFlag string
		limitFlag     int
	)

	cmd := &cobra.Command{
		Use:   "fetch <output-file>",
		Short: "Fetch advisories from the GitHub advisory database",
		Long: `Pull global security advisories from the GitHub advisory database
and write them as a JSON advisory list that "patchloc build" accepts.
Set GITHUB_TOKEN for authenticated (higher rate limit) access.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputFile := args[0]

			client := ghsa.NewClient(os.Getenv("GITHUB_TOKEN"))
			records, err := client.Fetch(cmd.Context(), ghsa.Options{
				CWE:       cweFlag,
				Ecosystem: ecosystemFlag,
				Limit:     limitFlag,
			})
			if err != nil {
				return err
			}

			data, err := json.MarshalIndent(records, "", "  ")
			if err != nil {
				return fmt.Errorf("encoding advisories: %w", err)
			}
			if err := os.WriteFile(outputFile, data, 0o644); err != nil {
				return fmt.Errorf("writing %s: %w", outputFile, err)
			}

			fmt.Fprintf(os.Stderr, "patchloc: wrote %d advisories to %s\n", len(records), outputFile)
			return nil
		},
	}

	cmd.Flags().StringVar(&cweFlag, "cwe", "CWE-79", "CWE identifier to filter by")
	cmd.Flags().StringVar(&ecosystemFlag, "ecosystem", "", "package ecosystem to filter by (e.g. npm)")
	cmd.Flags().IntVar(&limitFlag, "limit", 10, "maximum number of advisories to fetch")

	return cmd
}
