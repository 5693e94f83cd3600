package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	m "gooze.dev/pkg/orbit/internal/model"
)

const countsLongDescription = `Count the mutation sites every operator finds in the selected modules.
The total is the number of work items init would create.

` + pathPatternsHelp

var countsOperatorFlags []string

func newCountsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "counts [patterns...]",
		Short: "Count the work items a session would contain",
		Long:  countsLongDescription,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			root, err := workflow.FindProjectRoot(m.Path(configFolderPath))
			if err != nil {
				return fmt.Errorf("failed to find project root: %w", err)
			}

			modules, err := workflow.FindModules(ctx, root, args, viper.GetStringSlice(excludeConfigKey))
			if err != nil {
				return err
			}

			counts, err := workflow.Counts(ctx, modules, viper.GetStringSlice(initOperatorsKey))
			if err != nil {
				return err
			}

			return ui.DisplayCounts(ctx, counts)
		},
	}

	cmd.Flags().StringArrayVarP(&countsOperatorFlags, operatorFlagName, "o", viper.GetStringSlice(initOperatorsKey), "operator to count (can be repeated, default all)")
	bindFlagToConfig(cmd.Flags().Lookup(operatorFlagName), initOperatorsKey)

	return cmd
}
