// Package runners provides the test runners a worker uses to judge a mutant.
package runners

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"

	"gooze.dev/pkg/orbit/internal/adapter"
)

// ErrUnknownTestRunner is returned when a registry lookup fails.
var ErrUnknownTestRunner = errors.New("unknown test runner")

// maxOutput caps the test output kept in a verdict; the tail is kept since
// failures are reported last.
const maxOutput = 64 << 10

// Verdict is the result of a test run that completed.
type Verdict struct {
	Passed bool
	Output string
}

// TestRunner runs a project's tests in a directory.
type TestRunner interface {
	Name() string
	Description() string
	// Run returns a verdict when the tests ran to completion, and an error when
	// they could not be run or did not finish.
	Run(ctx context.Context, dir string, args []string) (Verdict, error)
}

// commandRunner runs a fixed command followed by the item's test arguments.
type commandRunner struct {
	name        string
	description string
	command     string
	args        []string
	defaultArgs []string
	env         []string
	adapter     adapter.TestRunnerAdapter
}

func (r *commandRunner) Name() string {
	return r.name
}

func (r *commandRunner) Description() string {
	return r.description
}

func (r *commandRunner) Run(ctx context.Context, dir string, args []string) (Verdict, error) {
	if len(args) == 0 {
		args = r.defaultArgs
	}

	command := r.command
	argv := slices.Concat(r.args, args)

	if command == "" {
		if len(argv) == 0 {
			return Verdict{}, fmt.Errorf("%s runner requires a command as its first argument", r.name)
		}

		command, argv = argv[0], argv[1:]
	}

	result, err := r.adapter.Run(ctx, dir, command, argv, r.env)
	if err != nil {
		return Verdict{Output: tail(result.Output)}, err
	}

	return Verdict{Passed: result.ExitCode == 0, Output: tail(result.Output)}, nil
}

func tail(s string) string {
	if len(s) <= maxOutput {
		return s
	}

	return "...\n" + s[len(s)-maxOutput:]
}

// NewGoTest runs go test, on ./... unless the item names packages.
func NewGoTest(a adapter.TestRunnerAdapter) TestRunner {
	return &commandRunner{
		name:        "gotest",
		description: "go test (default ./...)",
		command:     "go",
		args:        []string{"test"},
		defaultArgs: []string{"./..."},
		adapter:     a,
	}
}

// NewExec runs the first test argument as a command with the rest as its
// arguments.
func NewExec(a adapter.TestRunnerAdapter) TestRunner {
	return &commandRunner{
		name:        "exec",
		description: "run the first test argument as a command",
		adapter:     a,
	}
}

// Registry maps runner names to runners.
type Registry struct {
	mu      sync.RWMutex
	runners map[string]TestRunner
}

// NewRegistry creates a registry with the built-in runners backed by a.
func NewRegistry(a adapter.TestRunnerAdapter) *Registry {
	r := &Registry{runners: map[string]TestRunner{}}
	r.runners["gotest"] = NewGoTest(a)
	r.runners["exec"] = NewExec(a)

	return r
}

// Register adds runner, replacing any runner with the same name.
func (r *Registry) Register(runner TestRunner) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.runners[runner.Name()] = runner
}

// Get returns the named runner or an error wrapping ErrUnknownTestRunner.
func (r *Registry) Get(name string) (TestRunner, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	runner, ok := r.runners[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTestRunner, name)
	}

	return runner, nil
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return slices.Sorted(maps.Keys(r.runners))
}
