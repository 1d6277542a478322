package cmd

import (
	"github.com/spf13/cobra"

	"github.com/cqnkjsx/htcondor/internal/jobqueryctl"
)

// RootCmd is the root Cobra command that gets called from the main func.
// All other sub-commands should be registered here.
func RootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "jobqueryctl",
		Short:         "jobqueryctl inspects job history logs.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(
		historyCmd(jobqueryctl.New()),
		versionCmd(jobqueryctl.New()),
	)

	return cmd
}
