package cmd

import (
	"github.com/spf13/cobra"

	"github.com/cqnkjsx/htcondor/internal/jobserverapp"
)

func runCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Runs the job server",
		RunE:  runJobServer,
	}
	return cmd
}

func runJobServer(_ *cobra.Command, _ []string) error {
	config, err := loadConfig()
	if err != nil {
		return err
	}
	return jobserverapp.Run(config)
}
