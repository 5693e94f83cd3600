package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"gooze.dev/pkg/orbit/internal/domain"
	"gooze.dev/pkg/orbit/internal/storage"
)

var reportShowPendingFlag bool
var reportDiffFlag bool
var survivalFailOverFlag float64

// errSurvivalRateExceeded fails survival-rate when --fail-over is exceeded.
var errSurvivalRateExceeded = errors.New("survival rate exceeds threshold")

const (
	showPendingFlagName = "show-pending"
	diffFlagName        = "diff"
	failOverFlagName    = "fail-over"
)

func newReportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report <session>",
		Short: "Print the results of a session",
		Long: `Print one line per work item with its outcome and output, followed by
the number of completed items and the survival rate.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := domain.ReportOptions{
				ShowPending: reportShowPendingFlag,
				ShowDiff:    reportDiffFlag,
			}

			return withWorkDB(cmd.Context(), args[0], storage.ModeOpen, func(db storage.WorkDB) error {
				lines, err := workflow.Report(cmd.Context(), db, opts)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				for _, line := range lines {
					if _, err := fmt.Fprintln(out, line); err != nil {
						return err
					}
				}

				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&reportShowPendingFlag, showPendingFlagName, false, "include work items without a result")
	cmd.Flags().BoolVar(&reportDiffFlag, diffFlagName, false, "show the source diff of surviving mutants")

	return cmd
}

func newSurvivalRateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "survival-rate <session>",
		Short: "Print the fraction of classified mutants that survived",
		Long: `Print survived / (survived + killed) with two decimals. Exceptions are not
counted; a session without classified results prints 0.00.

With --fail-over PERCENT the command fails when the survival rate is above
PERCENT, which makes it usable as a CI gate.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withWorkDB(cmd.Context(), args[0], storage.ModeOpen, func(db storage.WorkDB) error {
				rate, err := workflow.SurvivalRate(cmd.Context(), db)
				if err != nil {
					return err
				}

				if _, err := fmt.Fprintf(cmd.OutOrStdout(), "%.2f\n", rate); err != nil {
					return err
				}

				if cmd.Flags().Changed(failOverFlagName) && rate*100 > survivalFailOverFlag {
					return fmt.Errorf("%w: %.2f%% > %.2f%%", errSurvivalRateExceeded, rate*100, survivalFailOverFlag)
				}

				return nil
			})
		},
	}

	cmd.Flags().Float64Var(&survivalFailOverFlag, failOverFlagName, 0, "fail when the survival rate is above this percentage")

	return cmd
}
