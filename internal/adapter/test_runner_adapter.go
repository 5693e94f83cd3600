package adapter

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"time"
)

// ErrCommandTimeout is returned when a command outlives its context deadline.
var ErrCommandTimeout = errors.New("command timed out")

// CommandResult is the outcome of a command that ran to completion.
type CommandResult struct {
	ExitCode int
	Output   string
	Elapsed  time.Duration
}

// TestRunnerAdapter runs test commands on the host.
type TestRunnerAdapter interface {
	// Run executes command with args in dir and returns its combined output.
	// A non-zero exit status is reported through CommandResult.ExitCode. An
	// error means the command could not run to completion: it failed to
	// start, was killed by a signal or hit the context deadline.
	Run(ctx context.Context, dir, command string, args, env []string) (CommandResult, error)
}

// LocalTestRunnerAdapter provides a concrete implementation using os/exec.
type LocalTestRunnerAdapter struct {
	waitDelay time.Duration
}

// NewLocalTestRunnerAdapter constructs a LocalTestRunnerAdapter.
func NewLocalTestRunnerAdapter() *LocalTestRunnerAdapter {
	return &LocalTestRunnerAdapter{
		waitDelay: 5 * time.Second,
	}
}

// Run implements TestRunnerAdapter.
func (a *LocalTestRunnerAdapter) Run(ctx context.Context, dir, command string, args, env []string) (CommandResult, error) {
	cmd := exec.CommandContext(ctx, command, args...)
	cmd.Dir = dir
	// Children such as compiled test binaries may keep the pipes open after
	// the parent is killed.
	cmd.WaitDelay = a.waitDelay

	if len(env) > 0 {
		cmd.Env = append(cmd.Environ(), env...)
	}

	var output bytes.Buffer

	cmd.Stdout = &output
	cmd.Stderr = &output

	start := time.Now()
	err := cmd.Run()
	result := CommandResult{Output: output.String(), Elapsed: time.Since(start)}

	if ctxErr := ctx.Err(); ctxErr != nil {
		if errors.Is(ctxErr, context.DeadlineExceeded) {
			return result, fmt.Errorf("%s: %w", command, ErrCommandTimeout)
		}

		return result, fmt.Errorf("%s: %w", command, ctxErr)
	}

	if err == nil {
		return result, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		code := exitErr.ExitCode()
		if code < 0 {
			return result, fmt.Errorf("%s terminated: %w", command, err)
		}

		result.ExitCode = code

		return result, nil
	}

	slog.Error("Failed to start test command", "command", command, "dir", dir, "error", err)

	return result, fmt.Errorf("failed to run %s: %w", command, err)
}
