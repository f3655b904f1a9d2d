// cmd/patchloc/initcmd.go
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/julianshen/patchloc/internal/config"
)

func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init [path]",
		Short: "Write a sample configuration file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			path := "patchloc.toml"
			if len(args) > 0 {
				path = args[0]
			}
			if err := config.WriteSample(path); err != nil {
				return err
			}
			fmt.Fprintf(os.Stderr, "patchloc: wrote sample config to %s\n", path)
			return nil
		},
	}
}
