package adapter

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	m "gooze.dev/pkg/orbit/internal/model"
)

func moduleNames(modules []m.Module) []string {
	names := make([]string, 0, len(modules))
	for _, module := range modules {
		names = append(names, module.Name)
	}

	return names
}

func newProject(t *testing.T) string {
	t.Helper()

	root := t.TempDir()
	writeTestFile(t, filepath.Join(root, "go.mod"), "module example.com/project\n")
	writeTestFile(t, filepath.Join(root, "main.go"), "package main\n")
	writeTestFile(t, filepath.Join(root, "main_test.go"), "package main\n")
	writeTestFile(t, filepath.Join(root, "README.md"), "# project\n")

	for _, dir := range []string{"calc", "calc/inner", "vendor", "testdata", ".hidden", "_scratch", "nested"} {
		if err := os.MkdirAll(filepath.Join(root, dir), 0o755); err != nil {
			t.Fatalf("failed to create %s: %v", dir, err)
		}

		writeTestFile(t, filepath.Join(root, dir, "file.go"), "package p\n")
	}

	writeTestFile(t, filepath.Join(root, "calc", "gen.go"), "package calc\n")
	writeTestFile(t, filepath.Join(root, "nested", "go.mod"), "module example.com/nested\n")

	return root
}

func TestLocalSourceFSAdapter_FindModules(t *testing.T) {
	root := newProject(t)

	tests := []struct {
		name     string
		patterns []string
		exclude  []string
		want     []string
	}{
		{
			name: "default pattern walks the whole project",
			want: []string{"calc/file.go", "calc/gen.go", "calc/inner/file.go", "main.go"},
		},
		{
			name:     "non recursive directory",
			patterns: []string{"./calc"},
			want:     []string{"calc/file.go", "calc/gen.go"},
		},
		{
			name:     "recursive sub tree",
			patterns: []string{"./calc/..."},
			want:     []string{"calc/file.go", "calc/gen.go", "calc/inner/file.go"},
		},
		{
			name:     "single file and duplicates",
			patterns: []string{"main.go", "./main.go", "."},
			want:     []string{"main.go"},
		},
		{
			name:    "exclude expressions",
			exclude: []string{`^calc/inner/`, `gen\.go$`},
			want:    []string{"calc/file.go", "main.go"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			modules, err := NewLocalSourceFSAdapter().FindModules(context.Background(), m.Path(root), tt.patterns, tt.exclude)
			if err != nil {
				t.Fatalf("FindModules() error = %v", err)
			}

			if got := moduleNames(modules); !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("FindModules() = %v, want %v", got, tt.want)
			}
		})
	}

	t.Run("origin points into the project", func(t *testing.T) {
		modules, err := NewLocalSourceFSAdapter().FindModules(context.Background(), m.Path(root), []string{"./calc"}, nil)
		if err != nil {
			t.Fatalf("FindModules() error = %v", err)
		}

		want := filepath.Join(root, "calc", "file.go")
		if got := string(modules[0].Origin.FullPath); got != want {
			t.Fatalf("FullPath = %s, want %s", got, want)
		}

		if modules[0].Origin.ShortPath != "file.go" {
			t.Fatalf("ShortPath = %s, want file.go", modules[0].Origin.ShortPath)
		}
	})
}

func TestLocalSourceFSAdapter_FindModulesErrors(t *testing.T) {
	root := newProject(t)

	tests := []struct {
		name     string
		patterns []string
		exclude  []string
	}{
		{name: "missing path", patterns: []string{"./nope/..."}},
		{name: "outside root", patterns: []string{"../..."}},
		{name: "not a go file", patterns: []string{"README.md"}},
		{name: "test file", patterns: []string{"main_test.go"}},
		{name: "bad exclude", exclude: []string{"("}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewLocalSourceFSAdapter().FindModules(context.Background(), m.Path(root), tt.patterns, tt.exclude)
			if err == nil {
				t.Fatalf("FindModules() expected error")
			}
		})
	}
}

func TestLocalSourceFSAdapter_ReadFile(t *testing.T) {
	adapter := NewLocalSourceFSAdapter()

	path := filepath.Join(t.TempDir(), "main.go")
	writeTestFile(t, path, "package main\n")

	got, err := adapter.ReadFile(m.Path(path))
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}

	if string(got) != "package main\n" {
		t.Fatalf("ReadFile() = %q", got)
	}
}

func TestLocalSourceFSAdapter_FindProjectRoot(t *testing.T) {
	adapter := NewLocalSourceFSAdapter()

	root := t.TempDir()
	goModDir := filepath.Join(root, "project")
	mustMkdir(t, goModDir)
	writeTestFile(t, filepath.Join(goModDir, "go.mod"), "module example.com/project\n")

	subDir := filepath.Join(goModDir, "sub", "pkg")
	if err := os.MkdirAll(subDir, 0o755); err != nil {
		t.Fatalf("failed to create nested dir: %v", err)
	}

	for _, start := range []string{subDir, filepath.Join(subDir, "file.go")} {
		got, err := adapter.FindProjectRoot(m.Path(start))
		if err != nil {
			t.Fatalf("FindProjectRoot(%s) error = %v", start, err)
		}

		if got != m.Path(goModDir) {
			t.Fatalf("FindProjectRoot(%s) = %s, want %s", start, got, goModDir)
		}
	}
}

func TestLocalSourceFSAdapter_CreateTempDirAndRemoveAll(t *testing.T) {
	adapter := NewLocalSourceFSAdapter()

	tmp, err := adapter.CreateTempDir("orbit-test-*")
	if err != nil {
		t.Fatalf("CreateTempDir() error = %v", err)
	}

	if fi, err := os.Stat(string(tmp)); err != nil || !fi.IsDir() {
		t.Fatalf("CreateTempDir() did not create directory, stat err=%v", err)
	}

	writeTestFile(t, filepath.Join(string(tmp), "file.go"), "package main\n")

	if err := adapter.RemoveAll(tmp); err != nil {
		t.Fatalf("RemoveAll() error = %v", err)
	}

	if _, err := os.Stat(string(tmp)); !os.IsNotExist(err) {
		t.Fatalf("RemoveAll() did not remove directory, stat err=%v", err)
	}
}

func TestLocalSourceFSAdapter_CopyDirAndWriteFile(t *testing.T) {
	adapter := NewLocalSourceFSAdapter()

	src := t.TempDir()
	dst := t.TempDir()

	subDir := filepath.Join(src, "sub")
	mustMkdir(t, subDir)
	writeTestFile(t, filepath.Join(subDir, "main.go"), "package main\n")

	readOnly := filepath.Join(src, "ro.go")
	writeTestFile(t, readOnly, "package ro\n")

	if err := os.Chmod(readOnly, 0o444); err != nil {
		t.Fatalf("chmod: %v", err)
	}

	for _, skipped := range []string{".git", ".orbit"} {
		mustMkdir(t, filepath.Join(src, skipped))
		writeTestFile(t, filepath.Join(src, skipped, "state"), "x")
	}

	extraFile := filepath.Join(src, "extra.go")
	if err := adapter.WriteFile(m.Path(extraFile), []byte("package extra\n"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	if err := adapter.CopyDir(m.Path(src), m.Path(dst)); err != nil {
		t.Fatalf("CopyDir() error = %v", err)
	}

	for _, want := range []string{"sub/main.go", "extra.go", "ro.go"} {
		if _, err := os.Stat(filepath.Join(dst, filepath.FromSlash(want))); err != nil {
			t.Fatalf("CopyDir() did not copy %s: %v", want, err)
		}
	}

	for _, skipped := range []string{".git", ".orbit"} {
		if _, err := os.Stat(filepath.Join(dst, skipped)); !os.IsNotExist(err) {
			t.Fatalf("CopyDir() copied %s", skipped)
		}
	}

	// Workspace copies must be writable so mutants can be written over them.
	if err := adapter.WriteFile(m.Path(filepath.Join(dst, "ro.go")), []byte("package mutated\n"), 0o644); err != nil {
		t.Fatalf("WriteFile() over copied read-only file error = %v", err)
	}
}

func TestLocalSourceFSAdapter_JoinPath(t *testing.T) {
	joined := NewLocalSourceFSAdapter().JoinPath("/tmp", "project", "sub", "file.go")
	if string(joined) != filepath.Join("/tmp", "project", "sub", "file.go") {
		t.Fatalf("JoinPath() = %s", joined)
	}
}

func writeTestFile(t *testing.T, path, contents string) {
	t.Helper()

	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
}

func mustMkdir(t *testing.T, path string) {
	t.Helper()

	if err := os.Mkdir(path, 0o755); err != nil {
		t.Fatalf("failed to create dir %s: %v", path, err)
	}
}
