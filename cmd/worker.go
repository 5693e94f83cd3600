package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"gooze.dev/pkg/orbit/internal/domain"
	m "gooze.dev/pkg/orbit/internal/model"
)

var workerRootFlag string
var workerTimeoutFlag time.Duration

const rootFlagName = "root"

func newWorkerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "worker <module> <operator> <occurrence> <runner> [-- test-args...]",
		Short: "Execute a single work item and print its result",
		Long: `Apply one mutation to a copy of the project, run the test runner against it
and print the outcome as a JSON array ["outcome", "data"] on standard output.

Nothing else is written to standard output. exec starts this command for every
work item when --isolation process is used.`,
		Args: cobra.MinimumNArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			positional, testArgs := args, []string(nil)
			if dash := cmd.ArgsLenAtDash(); dash >= 0 {
				positional, testArgs = args[:dash], args[dash:]
			}

			item, err := domain.ParseWorkerArgs(positional, testArgs, workerTimeoutFlag)
			if err != nil {
				return err
			}

			root := m.Path(workerRootFlag)
			if root == "" {
				root, err = workflow.FindProjectRoot(m.Path(configFolderPath))
				if err != nil {
					return err
				}
			}

			result, err := workflow.RunWorker(cmd.Context(), root, item)
			if err != nil {
				return err
			}

			return domain.EncodeResult(cmd.OutOrStdout(), result)
		},
	}

	cmd.Flags().StringVar(&workerRootFlag, rootFlagName, "", "project root (default: the module containing the working directory)")
	cmd.Flags().DurationVar(&workerTimeoutFlag, timeoutFlagName, 0, "maximum duration of the test run (0 for none)")

	return cmd
}
