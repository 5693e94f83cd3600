// Package controller provides output adapters for displaying session progress and results.
package controller

import (
	"context"
	"io"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	m "gooze.dev/pkg/orbit/internal/model"
)

// StartMode defines the mode of operation for the UI.
type StartMode int

// Available StartMode values.
const (
	ModeReport StartMode = iota
	ModeExec
)

// StartOption is a functional option for Start method.
type StartOption func(*StartConfig)

// StartConfig holds configuration for starting the UI.
type StartConfig struct {
	mode StartMode
}

// WithReportMode sets the UI to static reporting mode.
func WithReportMode() StartOption {
	return func(c *StartConfig) {
		c.mode = ModeReport
	}
}

// WithExecMode sets the UI to live execution mode.
func WithExecMode() StartOption {
	return func(c *StartConfig) {
		c.mode = ModeExec
	}
}

// UI defines the interface for displaying session progress.
// Implementations can use different output methods (simple text, TUI, etc).
type UI interface {
	Start(ctx context.Context, options ...StartOption) error
	Close(ctx context.Context)
	Wait(ctx context.Context) // Wait for UI to finish rendering
	DisplayConcurrencyInfo(ctx context.Context, workers int, pending int, total int)
	DisplayUpcomingTestsInfo(ctx context.Context, pending int)
	DisplayStartingTestInfo(ctx context.Context, item m.WorkItem, workerID int)
	DisplayCompletedTestInfo(ctx context.Context, item m.WorkItem, result m.WorkResult)
	DisplayCounts(ctx context.Context, counts []m.OperatorCount) error
	DisplaySummary(ctx context.Context, summary m.Summary) error
	DisplaySurvivalRate(ctx context.Context, rate float64)
}

// New returns a TUI when the command writes to a terminal and interactive
// output is allowed, otherwise a SimpleUI.
func New(cmd *cobra.Command, interactive bool) UI {
	if interactive && IsTerminal(cmd.OutOrStdout()) {
		return NewTUI(cmd.OutOrStdout())
	}

	return NewSimpleUI(cmd)
}

// IsTerminal reports whether w is a terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}

	return term.IsTerminal(int(f.Fd()))
}
