package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/talentmatch/internal/version"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "%s version: %s (commit %s, built %s)\n",
				cliName, version.Version, version.Commit, version.Date)
			return err
		},
	}
}
