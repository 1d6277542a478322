package cmd

import (
	"github.com/spf13/cobra"

	"github.com/cqnkjsx/htcondor/internal/jobqueryctl"
)

func historyCmd(a *jobqueryctl.App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Read jobs from a history log",
	}
	cmd.PersistentFlags().StringVarP(&a.Params.Output, "output", "o", jobqueryctl.OutputTable, "Output format: table or yaml")
	cmd.PersistentFlags().Int64Var(&a.Params.MaxRecordBytes, "max-record-bytes", a.Params.MaxRecordBytes,
		"Largest history record read back; 0 reads records of any size")

	cmd.AddCommand(historyListCmd(a), historyShowCmd(a))
	return cmd
}

func historyListCmd(a *jobqueryctl.App) *cobra.Command {
	var submission string
	cmd := &cobra.Command{
		Use:   "list <file>",
		Short: "List the jobs recorded in a history file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a.Out = cmd.OutOrStdout()
			return a.HistoryList(args[0], submission)
		},
	}
	cmd.Flags().StringVar(&submission, "submission", "", "Only list jobs of this submission")
	return cmd
}

func historyShowCmd(a *jobqueryctl.App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <file> <cluster.proc>",
		Short: "Print the full ad of one job",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a.Out = cmd.OutOrStdout()
			return a.HistoryShow(args[0], args[1])
		},
	}
	return cmd
}
