package domain

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"gooze.dev/pkg/orbit/internal/adapter"
	"gooze.dev/pkg/orbit/internal/controller"
	"gooze.dev/pkg/orbit/internal/domain/operators"
	"gooze.dev/pkg/orbit/internal/domain/runners"
	m "gooze.dev/pkg/orbit/internal/model"
	"gooze.dev/pkg/orbit/internal/storage"
	"gooze.dev/pkg/orbit/internal/storage/file"
)

const flagsModule = "flags/flags.go"

const flagsSrc = `package flags

func Enabled() bool { return true }

func Disabled() bool { return false }
`

// writeProject creates a module rooted in a temp dir and returns its root.
func writeProject(t *testing.T, files map[string]string) string {
	t.Helper()

	root := t.TempDir()
	files["go.mod"] = "module example.com/flags\n\ngo 1.25\n"

	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	}

	return root
}

type fakeRunner struct {
	name string
	run  func(ctx context.Context, dir string, args []string) (runners.Verdict, error)
}

func (f fakeRunner) Name() string { return f.name }

func (f fakeRunner) Description() string { return "fake " + f.name }

func (f fakeRunner) Run(ctx context.Context, dir string, args []string) (runners.Verdict, error) {
	return f.run(ctx, dir, args)
}

func passing() fakeRunner {
	return fakeRunner{name: "fake", run: func(context.Context, string, []string) (runners.Verdict, error) {
		return runners.Verdict{Passed: true, Output: "ok"}, nil
	}}
}

// killsEnabledFlip fails the tests only when Enabled no longer returns true.
func killsEnabledFlip() fakeRunner {
	return fakeRunner{name: "fake", run: func(_ context.Context, dir string, _ []string) (runners.Verdict, error) {
		src, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(flagsModule)))
		if err != nil {
			return runners.Verdict{}, err
		}

		if bytes.Contains(src, []byte("func Enabled() bool { return false }")) {
			return runners.Verdict{Passed: false, Output: "--- FAIL: TestEnabled"}, nil
		}

		return runners.Verdict{Passed: true, Output: "ok"}, nil
	}}
}

func newRunners(rs ...runners.TestRunner) *runners.Registry {
	registry := runners.NewRegistry(adapter.NewLocalTestRunnerAdapter())
	for _, r := range rs {
		registry.Register(r)
	}

	return registry
}

func openDB(t *testing.T) *file.Store {
	t.Helper()

	db, err := file.Open(context.Background(), t.TempDir(), "session", storage.ModeCreate)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return db
}

func sessionConfig(root string) m.SessionConfig {
	return m.SessionConfig{
		Root:       root,
		TestRunner: "fake",
		Timeout:    time.Minute,
	}
}

func quietUI() controller.UI {
	cmd := &cobra.Command{}
	cmd.SetOut(&bytes.Buffer{})

	return controller.NewSimpleUI(cmd)
}

func newTestWorkflow(rs ...runners.TestRunner) Workflow {
	return NewWorkflow(
		adapter.NewLocalSourceFSAdapter(),
		adapter.NewLocalTestRunnerAdapter(),
		operators.Default(),
		newRunners(rs...),
		quietUI(),
	)
}

func populate(t *testing.T, db storage.WorkDB, root string, keys ...m.WorkItemKey) {
	t.Helper()

	cfg := sessionConfig(root)
	items := make([]m.WorkItem, 0, len(keys))

	for _, key := range keys {
		items = append(items, m.NewWorkItem(key, cfg))
	}

	require.NoError(t, db.ResetAndPopulate(context.Background(), items, cfg))
}

func records(t *testing.T, db storage.WorkDB) map[m.WorkItemKey]*m.WorkResult {
	t.Helper()

	out := make(map[m.WorkItemKey]*m.WorkResult)

	for record, err := range db.Records(context.Background()) {
		require.NoError(t, err)
		out[record.Item.WorkItemKey] = record.Result
	}

	return out
}
