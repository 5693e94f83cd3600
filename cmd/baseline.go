package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	m "gooze.dev/pkg/orbit/internal/model"
)

var baselineTestRunnerFlag string

func newBaselineCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "baseline [-- test-args...]",
		Short: "Run the unmutated tests once and report how long they took",
		Long: `Run the test runner against the unmutated project. The command fails when
the tests do not pass, since mutation testing needs a green baseline.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := workflow.FindProjectRoot(m.Path(configFolderPath))
			if err != nil {
				return fmt.Errorf("failed to find project root: %w", err)
			}

			runner := viper.GetString(initTestRunnerKey)

			elapsed, err := workflow.Baseline(cmd.Context(), root, runner, args)
			if err != nil {
				return err
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Baseline passed with %s in %s\n", runner, elapsed)

			return err
		},
	}

	cmd.Flags().StringVarP(&baselineTestRunnerFlag, testRunnerFlagName, "r", viper.GetString(initTestRunnerKey), "test runner to execute")
	bindFlagToConfig(cmd.Flags().Lookup(testRunnerFlagName), initTestRunnerKey)

	return cmd
}
