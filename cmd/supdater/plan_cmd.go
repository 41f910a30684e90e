package main

import "github.com/spf13/cobra"

func init() {
	rootCmd.AddCommand(newPlanCmd())
}

func newPlanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "plan",
		Short: "Download changes and list what a full sync would delete, without asking or deleting",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(cmd, runOpts{dryRun: true, preview: true})
		},
	}
}
