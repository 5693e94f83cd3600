// Package adapter contains UI and infrastructure adapters for the orbit CLI.
package adapter

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"

	regexp "github.com/wasilibs/go-re2"

	m "gooze.dev/pkg/orbit/internal/model"
)

// SourceFSAdapter abstracts filesystem-specific operations that the domain layer
// relies on when scanning user projects and preparing mutant workspaces.
type SourceFSAdapter interface {
	// FindModules resolves Go-style package patterns relative to root into the
	// non-test Go files they contain, minus those whose slash path matches
	// one of the exclude expressions. Modules are returned sorted by name.
	FindModules(ctx context.Context, root m.Path, patterns, exclude []string) ([]m.Module, error)

	// ReadFile loads a file from disk and returns its contents.
	ReadFile(path m.Path) ([]byte, error)

	// FindProjectRoot searches for go.mod file walking up the directory tree.
	FindProjectRoot(startPath m.Path) (m.Path, error)

	// CreateTempDir creates a temporary directory for mutation testing.
	CreateTempDir(pattern string) (m.Path, error)

	// RemoveAll removes a directory and all its contents.
	RemoveAll(path m.Path) error

	// CopyDir recursively copies a directory tree.
	CopyDir(src, dst m.Path) error

	// WriteFile writes content to a file with the given permissions.
	WriteFile(path m.Path, content []byte, perm os.FileMode) error

	// JoinPath joins path elements into a single path.
	JoinPath(elem ...string) m.Path
}

// LocalSourceFSAdapter is the os backed SourceFSAdapter.
type LocalSourceFSAdapter struct{}

// NewLocalSourceFSAdapter constructs a LocalSourceFSAdapter instance ready to
// be wired into the workflow.
func NewLocalSourceFSAdapter() *LocalSourceFSAdapter {
	return &LocalSourceFSAdapter{}
}

// FindModules implements SourceFSAdapter.
func (a *LocalSourceFSAdapter) FindModules(ctx context.Context, root m.Path, patterns, exclude []string) ([]m.Module, error) {
	if len(patterns) == 0 {
		patterns = []string{"./..."}
	}

	excludes := make([]*regexp.Regexp, 0, len(exclude))

	for _, expr := range exclude {
		re, err := regexp.Compile(expr)
		if err != nil {
			return nil, fmt.Errorf("invalid exclude pattern %q: %w", expr, err)
		}

		excludes = append(excludes, re)
	}

	rootDir := filepath.Clean(string(root))
	found := map[string]bool{}

	for _, pattern := range patterns {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		dir, recursive := strings.CutSuffix(filepath.ToSlash(pattern), "/...")
		if dir == "..." {
			dir, recursive = ".", true
		}

		target := filepath.Join(rootDir, filepath.FromSlash(dir))

		rel, err := filepath.Rel(rootDir, target)
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return nil, fmt.Errorf("pattern %q is outside the project root", pattern)
		}

		info, err := os.Stat(target)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve pattern %q: %w", pattern, err)
		}

		if !info.IsDir() {
			if !isModuleFile(info.Name()) {
				return nil, fmt.Errorf("pattern %q is not a Go source file", pattern)
			}

			found[filepath.ToSlash(rel)] = true

			continue
		}

		err = filepath.WalkDir(target, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}

			if d.IsDir() {
				if p == target {
					return nil
				}

				if !recursive || skipDir(p, d.Name()) {
					return filepath.SkipDir
				}

				return nil
			}

			if !isModuleFile(d.Name()) {
				return nil
			}

			relFile, err := filepath.Rel(rootDir, p)
			if err != nil {
				return err
			}

			found[filepath.ToSlash(relFile)] = true

			return nil
		})
		if err != nil {
			slog.Error("Failed to walk source tree", "pattern", pattern, "error", err)
			return nil, fmt.Errorf("failed to walk %s: %w", target, err)
		}
	}

	modules := make([]m.Module, 0, len(found))

	for name := range found {
		if slices.ContainsFunc(excludes, func(re *regexp.Regexp) bool { return re.MatchString(name) }) {
			slog.Debug("Excluding module", "module", name)
			continue
		}

		modules = append(modules, m.Module{
			Name: name,
			Origin: &m.File{
				ShortPath: m.Path(path.Base(name)),
				FullPath:  m.Path(filepath.Join(rootDir, filepath.FromSlash(name))),
			},
		})
	}

	slices.SortFunc(modules, func(x, y m.Module) int { return strings.Compare(x.Name, y.Name) })

	return modules, nil
}

func isModuleFile(name string) bool {
	return strings.HasSuffix(name, ".go") && !strings.HasSuffix(name, "_test.go")
}

// skipDir mirrors the directories the go tool leaves out of ./... patterns.
func skipDir(p, name string) bool {
	if strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_") || name == "vendor" || name == "testdata" {
		return true
	}

	// Nested modules are separate projects.
	if _, err := os.Stat(filepath.Join(p, "go.mod")); err == nil {
		return true
	}

	return false
}

// ReadFile loads file contents from disk.
func (a *LocalSourceFSAdapter) ReadFile(path m.Path) ([]byte, error) {
	return os.ReadFile(string(path))
}

// FindProjectRoot searches for go.mod file walking up the directory tree.
func (a *LocalSourceFSAdapter) FindProjectRoot(startPath m.Path) (m.Path, error) {
	dir, err := filepath.Abs(string(startPath))
	if err != nil {
		return "", err
	}

	if info, err := os.Stat(dir); err == nil && !info.IsDir() {
		dir = filepath.Dir(dir)
	}

	for {
		goModPath := filepath.Join(dir, "go.mod")
		if _, err := os.Stat(goModPath); err == nil {
			return m.Path(dir), nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("go.mod not found in any parent directory of %s", startPath)
		}

		dir = parent
	}
}

// CreateTempDir creates a temporary directory for mutation testing.
func (a *LocalSourceFSAdapter) CreateTempDir(pattern string) (m.Path, error) {
	tmpDir, err := os.MkdirTemp("", pattern)
	if err != nil {
		return "", err
	}

	return m.Path(tmpDir), nil
}

// RemoveAll removes a directory and all its contents.
func (a *LocalSourceFSAdapter) RemoveAll(path m.Path) error {
	return os.RemoveAll(string(path))
}

// CopyDir recursively copies a directory tree. Version control metadata and
// the default session directory are left out.
func (a *LocalSourceFSAdapter) CopyDir(src, dst m.Path) error {
	return filepath.WalkDir(string(src), func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		relPath, err := filepath.Rel(string(src), p)
		if err != nil {
			return err
		}

		if d.IsDir() {
			switch d.Name() {
			case ".git", ".orbit", "node_modules":
				if relPath != "." {
					return filepath.SkipDir
				}
			}
		}

		targetPath := filepath.Join(string(dst), relPath)

		info, err := d.Info()
		if err != nil {
			return err
		}

		switch {
		case d.IsDir():
			return os.MkdirAll(targetPath, info.Mode().Perm()|0o700)
		case info.Mode()&os.ModeSymlink != 0:
			link, err := os.Readlink(p)
			if err != nil {
				return err
			}

			return os.Symlink(link, targetPath)
		case !info.Mode().IsRegular():
			return nil
		}

		return a.copyFile(p, targetPath, info.Mode())
	})
}

// copyFile copies a single file.
func (a *LocalSourceFSAdapter) copyFile(src, dst string, mode os.FileMode) error {
	// #nosec G304 - src is internal project file path, not user input
	sourceFile, err := os.Open(src)
	if err != nil {
		return err
	}

	defer func() { _ = sourceFile.Close() }()

	if err := os.MkdirAll(filepath.Dir(dst), 0o750); err != nil {
		return err
	}

	// #nosec G304 - dst is internal destination path, not user input
	destFile, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode.Perm()|0o200)
	if err != nil {
		return err
	}

	if _, err := io.Copy(destFile, sourceFile); err != nil {
		_ = destFile.Close()
		return err
	}

	return destFile.Close()
}

// WriteFile writes content to a file with the given permissions.
func (a *LocalSourceFSAdapter) WriteFile(path m.Path, content []byte, perm os.FileMode) error {
	return os.WriteFile(string(path), content, perm)
}

// JoinPath joins path elements into a single path.
func (a *LocalSourceFSAdapter) JoinPath(elem ...string) m.Path {
	return m.Path(filepath.Join(elem...))
}
