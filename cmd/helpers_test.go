package cmd

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"

	"gooze.dev/pkg/orbit/internal/controller"
	domainmocks "gooze.dev/pkg/orbit/internal/domain/mocks"
	"gooze.dev/pkg/orbit/internal/storage"
	"gooze.dev/pkg/orbit/internal/storage/file"
)

// setupCommand builds a root command with subs, swaps the workflow for a mock
// and keeps sessions and logs inside temporary directories.
func setupCommand(t *testing.T, subs ...*cobra.Command) (*cobra.Command, *domainmocks.MockWorkflow, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()

	t.Setenv("ORBIT_LOG_FILENAME", filepath.Join(t.TempDir(), "orbit.log"))

	mockWorkflow := domainmocks.NewMockWorkflow(t)

	cmd := newRootCmd()
	cmd.AddCommand(subs...)

	stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	originalWorkflow, originalUI, originalOpen := workflow, ui, openWorkDB
	t.Cleanup(func() {
		workflow, ui, openWorkDB = originalWorkflow, originalUI, originalOpen
		resetFlagBindings()
	})

	dbDir := t.TempDir()
	workflow = mockWorkflow
	ui = controller.NewSimpleUI(cmd)
	openWorkDB = func(ctx context.Context, session string, _ storage.Mode) (storage.WorkDB, error) {
		return file.Open(ctx, dbDir, session, storage.ModeCreate)
	}

	return cmd, mockWorkflow, stdout, stderr
}

// resetFlagBindings binds every config key to a fresh, unchanged flag so
// values parsed by one test do not leak into viper for the next.
func resetFlagBindings() {
	fresh := newRootCmd()
	fresh.AddCommand(
		newInitCmd(),
		newExecCmd(),
		newBaselineCmd(),
		newCountsCmd(),
	)
}
