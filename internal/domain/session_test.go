package domain

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gooze.dev/pkg/orbit/internal/adapter"
	"gooze.dev/pkg/orbit/internal/domain/operators"
	m "gooze.dev/pkg/orbit/internal/model"
)

const mathSrc = `package flags

func Inc(n int) int {
	if n > 10 {
		return n
	}

	return n + 1
}
`

func findModules(t *testing.T, root string) []m.Module {
	t.Helper()

	modules, err := adapter.NewLocalSourceFSAdapter().FindModules(context.Background(), m.Path(root), nil, nil)
	require.NoError(t, err)

	return modules
}

func TestInitializer_Initialize(t *testing.T) {
	root := writeProject(t, map[string]string{
		flagsModule:       flagsSrc,
		"flags/math.go":   mathSrc,
		"flags/x_test.go": "package flags\n",
	})

	db := openDB(t)
	in := NewInitializer(adapter.NewLocalSourceFSAdapter(), operators.Default())

	n, err := in.Initialize(context.Background(), db, InitArgs{
		Modules:   findModules(t, root),
		Operators: []string{"boolean", "numbers", "boolean"},
		Config:    sessionConfig(root),
	})
	require.NoError(t, err)

	var got []m.WorkItemKey

	for item, err := range db.PendingItems(context.Background()) {
		require.NoError(t, err)
		assert.Equal(t, "fake", item.TestRunner)

		got = append(got, item.WorkItemKey)
	}

	want := []m.WorkItemKey{
		{Module: "flags/flags.go", Operator: "boolean", Occurrence: 0},
		{Module: "flags/flags.go", Operator: "boolean", Occurrence: 1},
		{Module: "flags/math.go", Operator: "numbers", Occurrence: 0},
		{Module: "flags/math.go", Operator: "numbers", Occurrence: 1},
		{Module: "flags/math.go", Operator: "numbers", Occurrence: 2},
		{Module: "flags/math.go", Operator: "numbers", Occurrence: 3},
	}

	assert.Equal(t, len(want), n)
	assert.Equal(t, want, got)

	cfg, err := db.Config(context.Background())
	require.NoError(t, err)
	assert.Equal(t, sessionConfig(root), cfg)
}

func TestInitializer_ReinitializeDiscardsResults(t *testing.T) {
	root := writeProject(t, map[string]string{flagsModule: flagsSrc})
	db := openDB(t)
	in := NewInitializer(adapter.NewLocalSourceFSAdapter(), operators.Default())

	args := InitArgs{Modules: findModules(t, root), Operators: []string{"boolean"}, Config: sessionConfig(root)}

	_, err := in.Initialize(context.Background(), db, args)
	require.NoError(t, err)

	first := records(t, db)
	for key := range first {
		require.NoError(t, db.AddResult(context.Background(), key, m.WorkResult{Outcome: m.Killed}))
	}

	_, err = in.Initialize(context.Background(), db, args)
	require.NoError(t, err)

	second := records(t, db)
	assert.Len(t, second, len(first))

	for key, result := range second {
		assert.Contains(t, first, key)
		assert.Nil(t, result)
	}
}

func TestInitializer_Errors(t *testing.T) {
	root := writeProject(t, map[string]string{
		flagsModule:      flagsSrc,
		"flags/broken.go": "package flags\n\nfunc {",
	})

	in := NewInitializer(adapter.NewLocalSourceFSAdapter(), operators.Default())
	modules := findModules(t, root)

	tests := []struct {
		name    string
		args    InitArgs
		wantErr error
		wantMsg string
	}{
		{
			name:    "unknown operator",
			args:    InitArgs{Modules: modules[1:], Operators: []string{"nope"}, Config: sessionConfig(root)},
			wantErr: operators.ErrUnknownOperator,
		},
		{
			name:    "unparsable module",
			args:    InitArgs{Modules: modules, Config: sessionConfig(root)},
			wantMsg: "flags/broken.go",
		},
		{
			name:    "missing module",
			args:    InitArgs{Modules: []m.Module{{Name: "gone.go", Origin: &m.File{FullPath: m.Path(root + "/gone.go")}}}, Config: sessionConfig(root)},
			wantMsg: "failed to read module gone.go",
		},
		{
			name:    "missing test runner",
			args:    InitArgs{Modules: modules[1:], Config: m.SessionConfig{Root: root, Timeout: 1}},
			wantErr: ErrInvalidArgs,
		},
		{
			name:    "non-positive timeout",
			args:    InitArgs{Modules: modules[1:], Config: m.SessionConfig{Root: root, TestRunner: "fake"}},
			wantErr: ErrInvalidArgs,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := openDB(t)

			_, err := in.Initialize(context.Background(), db, tt.args)
			require.Error(t, err)

			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			}

			if tt.wantMsg != "" {
				assert.Contains(t, err.Error(), tt.wantMsg)
			}

			assert.Empty(t, records(t, db))
		})
	}
}

func TestInitializer_Count(t *testing.T) {
	root := writeProject(t, map[string]string{flagsModule: flagsSrc})
	in := NewInitializer(adapter.NewLocalSourceFSAdapter(), operators.Default())

	counts, err := in.Count(context.Background(), findModules(t, root), nil)
	require.NoError(t, err)

	names := operators.Default().Names()
	require.Len(t, counts, len(names))

	for i, c := range counts {
		assert.Equal(t, flagsModule, c.Module)
		assert.Equal(t, names[i], c.Operator)

		if c.Operator == "boolean" {
			assert.Equal(t, 2, c.Count)
		}
	}
}
