package controller

import (
	"bytes"
	"context"
	"fmt"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	m "gooze.dev/pkg/orbit/internal/model"
)

// SimpleUI implements UI using the cobra command's output writer.
type SimpleUI struct {
	cmd *cobra.Command
}

// NewSimpleUI creates a new SimpleUI.
func NewSimpleUI(cmd *cobra.Command) *SimpleUI {
	return &SimpleUI{cmd: cmd}
}

// Start initializes the UI.
func (s *SimpleUI) Start(ctx context.Context, _ ...StartOption) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return nil
}

// Close finalizes the UI.
func (s *SimpleUI) Close(_ context.Context) {}

// Wait blocks until the UI is closed (no-op for SimpleUI).
func (s *SimpleUI) Wait(_ context.Context) {}

// DisplayConcurrencyInfo shows concurrency settings.
func (s *SimpleUI) DisplayConcurrencyInfo(ctx context.Context, workers int, pending int, total int) {
	if err := ctx.Err(); err != nil {
		return
	}

	s.printf("Running %d of %d work item(s) with %d worker(s)\n", pending, total, workers)
}

// DisplayUpcomingTestsInfo shows the number of pending work items.
func (s *SimpleUI) DisplayUpcomingTestsInfo(ctx context.Context, pending int) {
	if err := ctx.Err(); err != nil {
		return
	}

	s.printf("Pending work items: %d\n", pending)
}

// DisplayStartingTestInfo shows the work item a worker picked up.
func (s *SimpleUI) DisplayStartingTestInfo(ctx context.Context, item m.WorkItem, workerID int) {
	if err := ctx.Err(); err != nil {
		return
	}

	s.printf("[%d] Starting %s\n", workerID, item.WorkItemKey)
}

// DisplayCompletedTestInfo shows the outcome of a work item.
func (s *SimpleUI) DisplayCompletedTestInfo(ctx context.Context, item m.WorkItem, result m.WorkResult) {
	if err := ctx.Err(); err != nil {
		return
	}

	s.printf("Completed %s -> %s\n", item.WorkItemKey, result.Outcome)
}

// DisplayCounts prints per module and operator occurrence counts.
func (s *SimpleUI) DisplayCounts(ctx context.Context, counts []m.OperatorCount) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.printf("\n%s", renderCountsTable(counts))

	return nil
}

// DisplaySummary prints the per-outcome counts of a session.
func (s *SimpleUI) DisplaySummary(ctx context.Context, summary m.Summary) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.printf("\n%s", renderSummaryTable(summary))

	return nil
}

// DisplaySurvivalRate prints the survival rate as a percentage.
func (s *SimpleUI) DisplaySurvivalRate(ctx context.Context, rate float64) {
	if err := ctx.Err(); err != nil {
		return
	}

	s.printf("Survival rate: %.2f%%\n", rate*100)
}

func (s *SimpleUI) printf(format string, args ...interface{}) {
	_, _ = fmt.Fprintf(s.cmd.OutOrStdout(), format, args...)
}

func renderCountsTable(counts []m.OperatorCount) string {
	var tableBuffer bytes.Buffer

	table := tablewriter.NewWriter(&tableBuffer)
	table.SetHeader([]string{"Module", "Operator", "Occurrences"})
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.SetColumnAlignment([]int{tablewriter.ALIGN_LEFT, tablewriter.ALIGN_LEFT, tablewriter.ALIGN_CENTER})

	modules := make(map[string]struct{})
	total := 0

	for _, c := range counts {
		table.Append([]string{c.Module, c.Operator, strconv.Itoa(c.Count)})

		modules[c.Module] = struct{}{}
		total += c.Count
	}

	table.SetFooter([]string{
		fmt.Sprintf("Total Modules %d", len(modules)),
		"",
		strconv.Itoa(total),
	})

	table.Render()

	return tableBuffer.String()
}

func renderSummaryTable(summary m.Summary) string {
	var tableBuffer bytes.Buffer

	table := tablewriter.NewWriter(&tableBuffer)
	table.SetHeader([]string{"Outcome", "Count"})
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.SetColumnAlignment([]int{tablewriter.ALIGN_LEFT, tablewriter.ALIGN_CENTER})

	table.Append([]string{m.Killed.String(), strconv.Itoa(summary.Killed)})
	table.Append([]string{m.Survived.String(), strconv.Itoa(summary.Survived)})
	table.Append([]string{m.Exception.String(), strconv.Itoa(summary.Exception)})
	table.Append([]string{"pending", strconv.Itoa(summary.Pending)})

	table.SetFooter([]string{"Total", strconv.Itoa(summary.Total)})

	table.Render()

	return tableBuffer.String()
}
