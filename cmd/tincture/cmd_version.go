package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newVersionCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "tincture %s (commit: %s)\n", c.info.Version, c.info.Commit)
			if c.info.DefaultRevision != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "default revision: %s\n", c.info.DefaultRevision)
			}
		},
	}
}
