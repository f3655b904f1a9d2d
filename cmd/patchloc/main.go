// cmd/patchloc/main.go
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"

	configPath string
)

func versionString() string {
	return fmt.Sprintf("patchloc %s (commit: %s, built: %s)", version, commit, date)
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "patchloc",
		Short: "Build patch-localization datasets from security advisories",
		Long: `patchloc — clone advisory repositories, check out vulnerable and
patched refs, compute per-file and structural diffs, and assemble an
LLM-ready patch-localization dataset.`,
		// Usage stays on for argument errors so a bare "patchloc build"
		// shows what was expected.
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config file")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Println(versionString())
		},
	}

	rootCmd.AddCommand(buildCmd())
	rootCmd.AddCommand(fetchCmd())
	rootCmd.AddCommand(initCmd())
	rootCmd.AddCommand(versionCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
