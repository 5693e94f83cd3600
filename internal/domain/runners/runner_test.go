package runners

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"gooze.dev/pkg/orbit/internal/adapter"
	adaptermocks "gooze.dev/pkg/orbit/internal/adapter/mocks"
)

func TestGoTest_Run(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		wantArgs []string
		result   adapter.CommandResult
		err      error
		passed   bool
		wantErr  bool
	}{
		{
			name:     "default packages",
			wantArgs: []string{"test", "./..."},
			result:   adapter.CommandResult{ExitCode: 0, Output: "ok"},
			passed:   true,
		},
		{
			name:     "explicit packages",
			args:     []string{"./internal/...", "-count=1"},
			wantArgs: []string{"test", "./internal/...", "-count=1"},
			result:   adapter.CommandResult{ExitCode: 1, Output: "FAIL"},
			passed:   false,
		},
		{
			name:     "runner error",
			wantArgs: []string{"test", "./..."},
			err:      adapter.ErrCommandTimeout,
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockAdapter := adaptermocks.NewMockTestRunnerAdapter(t)
			mockAdapter.On("Run", mock.Anything, "/work", "go", tt.wantArgs, []string(nil)).Return(tt.result, tt.err)

			verdict, err := NewGoTest(mockAdapter).Run(context.Background(), "/work", tt.args)
			if tt.wantErr {
				require.ErrorIs(t, err, tt.err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.passed, verdict.Passed)
			assert.Equal(t, tt.result.Output, verdict.Output)
		})
	}
}

func TestExec_Run(t *testing.T) {
	mockAdapter := adaptermocks.NewMockTestRunnerAdapter(t)
	mockAdapter.On("Run", mock.Anything, "/work", "make", []string{"test"}, []string(nil)).
		Return(adapter.CommandResult{ExitCode: 2, Output: "boom"}, nil)

	runner := NewExec(mockAdapter)

	verdict, err := runner.Run(context.Background(), "/work", []string{"make", "test"})
	require.NoError(t, err)
	assert.False(t, verdict.Passed)

	_, err = runner.Run(context.Background(), "/work", nil)
	require.ErrorContains(t, err, "requires a command")
}

func TestRun_TruncatesOutput(t *testing.T) {
	long := strings.Repeat("x", maxOutput) + "FAIL: TestAdd"

	mockAdapter := adaptermocks.NewMockTestRunnerAdapter(t)
	mockAdapter.On("Run", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(adapter.CommandResult{ExitCode: 1, Output: long}, nil)

	verdict, err := NewGoTest(mockAdapter).Run(context.Background(), "/work", nil)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(verdict.Output, "FAIL: TestAdd"))
	assert.Len(t, verdict.Output, maxOutput+len("...\n"))
}

func TestRegistry(t *testing.T) {
	registry := NewRegistry(adapter.NewLocalTestRunnerAdapter())
	assert.Equal(t, []string{"exec", "gotest"}, registry.Names())

	_, err := registry.Get("pytest")
	require.ErrorIs(t, err, ErrUnknownTestRunner)

	runner, err := registry.Get("gotest")
	require.NoError(t, err)
	assert.Equal(t, "gotest", runner.Name())
}

func TestLoad(t *testing.T) {
	t.Run("missing file keeps builtins", func(t *testing.T) {
		registry, err := Load(filepath.Join(t.TempDir(), "absent.yaml"), adapter.NewLocalTestRunnerAdapter())
		require.NoError(t, err)
		assert.Equal(t, []string{"exec", "gotest"}, registry.Names())
	})

	t.Run("declared runners are registered", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "orbit-runners.yaml")
		require.NoError(t, os.WriteFile(path, []byte(`runners:
  - name: make
    command: make
    args: [test]
    env:
      B: "2"
      A: "1"
`), 0o600))

		mockAdapter := adaptermocks.NewMockTestRunnerAdapter(t)
		mockAdapter.On("Run", mock.Anything, "/work", "make", []string{"test", "-j2"}, []string{"A=1", "B=2"}).
			Return(adapter.CommandResult{}, nil)

		registry, err := Load(path, mockAdapter)
		require.NoError(t, err)
		assert.Equal(t, []string{"exec", "gotest", "make"}, registry.Names())

		runner, err := registry.Get("make")
		require.NoError(t, err)
		assert.Equal(t, "make", runner.Description())

		verdict, err := runner.Run(context.Background(), "/work", []string{"-j2"})
		require.NoError(t, err)
		assert.True(t, verdict.Passed)
	})

	errCases := []struct {
		name    string
		content string
		want    string
	}{
		{name: "invalid yaml", content: "runners: [", want: "failed to parse"},
		{name: "missing name", content: "runners:\n  - command: make\n", want: "has no name"},
		{name: "missing command", content: "runners:\n  - name: make\n", want: "has no command"},
		{name: "duplicate", content: "runners:\n  - {name: a, command: x}\n  - {name: a, command: y}\n", want: "declared twice"},
	}

	for _, tc := range errCases {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "runners.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tc.content), 0o600))

			_, err := Load(path, adapter.NewLocalTestRunnerAdapter())
			require.ErrorContains(t, err, tc.want)
		})
	}
}

func TestRun_ErrorKeepsOutput(t *testing.T) {
	mockAdapter := adaptermocks.NewMockTestRunnerAdapter(t)
	mockAdapter.On("Run", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(adapter.CommandResult{Output: "partial"}, errors.New("killed"))

	verdict, err := NewGoTest(mockAdapter).Run(context.Background(), "/work", nil)
	require.Error(t, err)
	assert.Equal(t, "partial", verdict.Output)
}
