package runners

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"gooze.dev/pkg/orbit/internal/adapter"
)

// Definition declares an additional runner in the runners file.
//
//	runners:
//	  - name: make
//	    command: make
//	    args: [test]
//	    env:
//	      CGO_ENABLED: "0"
type Definition struct {
	Name        string            `yaml:"name"`
	Command     string            `yaml:"command"`
	Args        []string          `yaml:"args"`
	Environment map[string]string `yaml:"env"`
	Description string            `yaml:"description"`
}

// File is the structure of the runners file.
type File struct {
	Runners []Definition `yaml:"runners"`
}

// LoadDefinitions reads runner definitions from path. A missing file yields no
// definitions.
func LoadDefinitions(path string) ([]Definition, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("failed to read runners file: %w", err)
	}

	var file File
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse runners file %s: %w", path, err)
	}

	seen := map[string]bool{}

	for i, def := range file.Runners {
		if def.Name == "" {
			return nil, fmt.Errorf("runner #%d in %s has no name", i+1, path)
		}

		if def.Command == "" {
			return nil, fmt.Errorf("runner %q in %s has no command", def.Name, path)
		}

		if seen[def.Name] {
			return nil, fmt.Errorf("runner %q declared twice in %s", def.Name, path)
		}

		seen[def.Name] = true
	}

	return file.Runners, nil
}

// FromDefinition builds a runner that runs def.Command with def.Args followed
// by the item's test arguments.
func FromDefinition(def Definition, a adapter.TestRunnerAdapter) TestRunner {
	env := make([]string, 0, len(def.Environment))
	for k, v := range def.Environment {
		env = append(env, k+"="+v)
	}

	sort.Strings(env)

	description := def.Description
	if description == "" {
		description = def.Command
	}

	return &commandRunner{
		name:        def.Name,
		description: description,
		command:     def.Command,
		args:        def.Args,
		env:         env,
		adapter:     a,
	}
}

// Load builds a registry with the built-in runners plus those declared in
// path.
func Load(path string, a adapter.TestRunnerAdapter) (*Registry, error) {
	registry := NewRegistry(a)
	if err := registry.LoadFile(path, a); err != nil {
		return nil, err
	}

	return registry, nil
}

// LoadFile registers the runners declared in path, replacing runners of the
// same name.
func (r *Registry) LoadFile(path string, a adapter.TestRunnerAdapter) error {
	defs, err := LoadDefinitions(path)
	if err != nil {
		return err
	}

	for _, def := range defs {
		slog.Debug("Registering test runner", "name", def.Name, "command", def.Command)
		r.Register(FromDefinition(def, a))
	}

	return nil
}
