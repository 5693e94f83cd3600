package cmd

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"gooze.dev/pkg/orbit/internal/domain"
	m "gooze.dev/pkg/orbit/internal/model"
	"gooze.dev/pkg/orbit/internal/storage"
)

func TestExecCmd_ExecutesSession(t *testing.T) {
	cmd, mockWorkflow, stdout, _ := setupCommand(t, newExecCmd())

	mockWorkflow.On("Exec", mock.Anything, mock.Anything, mock.MatchedBy(func(args domain.WorkflowExecArgs) bool {
		return args.Parallel == 3 &&
			args.Rate == 2 &&
			args.ClaimTTL == time.Minute &&
			args.Isolation == domain.IsolationLocal &&
			args.Executable == "" &&
			args.Recorder != nil
	})).Return(m.Summary{Total: 4, Killed: 3, Survived: 1}, nil)
	mockWorkflow.On("Summarize", mock.Anything, mock.Anything).
		Return(m.Summary{Total: 4, Killed: 3, Survived: 1}, nil)

	cmd.SetArgs([]string{"exec", "s1", "-p", "3", "--rate", "2", "--claim-ttl", "1m"})
	require.NoError(t, cmd.Execute())

	output := stdout.String()
	assert.Contains(t, output, "KILLED")
	assert.Contains(t, output, "Survival rate: 25.00%")
}

func TestExecCmd_ProcessIsolation(t *testing.T) {
	cmd, mockWorkflow, _, _ := setupCommand(t, newExecCmd())

	originalExecutable := executable
	executable = func() (string, error) { return "/usr/local/bin/orbit", nil }
	defer func() { executable = originalExecutable }()

	runnersPath := filepath.Join(t.TempDir(), "runners.yaml")

	mockWorkflow.On("Exec", mock.Anything, mock.Anything, mock.MatchedBy(func(args domain.WorkflowExecArgs) bool {
		return args.Isolation == domain.IsolationProcess &&
			args.Executable == "/usr/local/bin/orbit" &&
			assert.ObjectsAreEqual([]string{"--runners-file=" + runnersPath, "--verbose"}, args.WorkerArgs)
	})).Return(m.Summary{}, nil)
	mockWorkflow.On("Summarize", mock.Anything, mock.Anything).Return(m.Summary{}, nil)

	cmd.SetArgs([]string{"--verbose", "--runners-file", runnersPath, "exec", "s1", "--isolation", "process"})
	require.NoError(t, cmd.Execute())
}

func TestExecCmd_Interrupted(t *testing.T) {
	cmd, mockWorkflow, _, stderr := setupCommand(t, newExecCmd())

	mockWorkflow.On("Exec", mock.Anything, mock.Anything, mock.Anything).Return(m.Summary{Total: 1}, context.Canceled)

	cmd.SetArgs([]string{"exec", "s1"})
	err := cmd.Execute()
	require.ErrorIs(t, err, context.Canceled)

	assert.Contains(t, stderr.String(), "run exec again to resume")
	mockWorkflow.AssertNotCalled(t, "Summarize", mock.Anything, mock.Anything)
}

func TestExecCmd_MissingSession(t *testing.T) {
	cmd, _, _, _ := setupCommand(t, newExecCmd())

	openWorkDB = func(context.Context, string, storage.Mode) (storage.WorkDB, error) {
		return nil, storage.ErrNotFound
	}

	cmd.SetArgs([]string{"exec", "nope"})
	err := cmd.Execute()
	require.ErrorIs(t, err, storage.ErrNotFound)
	assert.Contains(t, err.Error(), `session "nope" does not exist`)
}

func TestExecCmd_ServesMetrics(t *testing.T) {
	cmd, mockWorkflow, _, _ := setupCommand(t, newExecCmd())

	mockWorkflow.On("Exec", mock.Anything, mock.Anything, mock.Anything).Return(m.Summary{}, nil)
	mockWorkflow.On("Summarize", mock.Anything, mock.Anything).Return(m.Summary{}, nil)

	cmd.SetArgs([]string{"exec", "s1", "--metrics-addr", "127.0.0.1:0"})
	require.NoError(t, cmd.Execute())
}

func TestExecCmd_InvalidMetricsAddr(t *testing.T) {
	cmd, _, _, _ := setupCommand(t, newExecCmd())

	cmd.SetArgs([]string{"exec", "s1", "--metrics-addr", "127.0.0.1:99999"})
	require.Error(t, cmd.Execute())
}

func TestWorkerGlobalArgs(t *testing.T) {
	t.Setenv("ORBIT_RUNNERS_FILE", "runners.yaml")
	t.Setenv("ORBIT_LOG_VERBOSE", "false")

	args, err := workerGlobalArgs()
	require.NoError(t, err)

	wd, err := os.Getwd()
	require.NoError(t, err)
	assert.Equal(t, []string{"--runners-file=" + filepath.Join(wd, "runners.yaml")}, args)
}
