package domain

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	m "gooze.dev/pkg/orbit/internal/model"
)

func TestEncodeResult(t *testing.T) {
	var buf bytes.Buffer

	require.NoError(t, EncodeResult(&buf, m.WorkResult{Outcome: m.Killed, Data: "line 1\n\"quoted\""}))
	assert.Equal(t, `["killed","line 1\n\"quoted\""]`+"\n", buf.String())

	decoded, err := DecodeResult(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, m.WorkResult{Outcome: m.Killed, Data: "line 1\n\"quoted\""}, decoded)
}

func TestDecodeResult(t *testing.T) {
	tests := []struct {
		name    string
		output  string
		want    m.WorkResult
		wantErr bool
	}{
		{
			name:   "single pair",
			output: `["survived","ok"]`,
			want:   m.WorkResult{Outcome: m.Survived, Data: "ok"},
		},
		{
			name:   "stray output before the pair",
			output: "warning: something\n[\"not\",\"a result\"]\n[\"exception\",\"boom\"]\n",
			want:   m.WorkResult{Outcome: m.Exception, Data: "boom"},
		},
		{
			name:    "no pair",
			output:  "Error: unknown operator\n",
			wantErr: true,
		},
		{
			name:    "empty",
			output:  "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeResult([]byte(tt.output))
			if tt.wantErr {
				require.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestWorkerArgs(t *testing.T) {
	item := m.WorkItem{
		WorkItemKey: m.WorkItemKey{Module: "a/b.go", Operator: "numbers", Occurrence: 3},
		TestRunner:  "gotest",
		TestArgs:    []string{"-run", "TestX", "./a"},
		Timeout:     90 * time.Second,
	}

	args := WorkerArgs("/src", item)
	assert.Equal(t, []string{
		"worker", "--root", "/src", "--timeout", "1m30s",
		"a/b.go", "numbers", "3", "gotest", "--", "-run", "TestX", "./a",
	}, args)

	parsed, err := ParseWorkerArgs(args[5:9], args[10:], 90*time.Second)
	require.NoError(t, err)
	assert.Equal(t, item, parsed)
}

func TestParseWorkerArgs_Errors(t *testing.T) {
	_, err := ParseWorkerArgs([]string{"a.go", "boolean", "0"}, nil, time.Second)
	require.ErrorIs(t, err, ErrInvalidArgs)

	_, err = ParseWorkerArgs([]string{"a.go", "boolean", "-1", "gotest"}, nil, time.Second)
	require.ErrorIs(t, err, ErrInvalidArgs)

	_, err = ParseWorkerArgs([]string{"a.go", "boolean", "x", "gotest"}, nil, time.Second)
	require.ErrorIs(t, err, ErrInvalidArgs)

	_, err = ParseWorkerArgs([]string{"a.go", "boolean", "0", "gotest"}, nil, -time.Second)
	require.ErrorIs(t, err, ErrInvalidTimeout)
}
