package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newOperatorsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "operators",
		Short: "List the available mutation operators",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return printNames(cmd, workflow.OperatorNames())
		},
	}
}

func newTestRunnersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "test-runners",
		Short: "List the available test runners",
		Long: `List the built-in test runners and those declared in the runners file
(--runners-file, default orbit-runners.yaml).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return printNames(cmd, workflow.RunnerNames())
		},
	}
}

func printNames(cmd *cobra.Command, names []string) error {
	for _, name := range names {
		if _, err := fmt.Fprintln(cmd.OutOrStdout(), name); err != nil {
			return err
		}
	}

	return nil
}
