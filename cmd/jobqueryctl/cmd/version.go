package cmd

import (
	"github.com/spf13/cobra"

	"github.com/cqnkjsx/htcondor/internal/jobqueryctl"
)

func versionCmd(a *jobqueryctl.App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print client version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			a.Out = cmd.OutOrStdout()
			return a.Version()
		},
	}
	return cmd
}
