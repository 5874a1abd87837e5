package main

import (
	"github.com/spf13/cobra"
)

func newWeeklyReportsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "weekly-reports",
		Short: "Generate and store this week's report for every user, then exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()
			return a.reports.RunAll(cmd.Context())
		},
	}
}
