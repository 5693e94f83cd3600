package domain

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"time"

	m "gooze.dev/pkg/orbit/internal/model"
)

var errNoResult = errors.New("worker output contains no result")

// EncodeResult writes result as the single JSON line ["outcome","data"].
func EncodeResult(w io.Writer, result m.WorkResult) error {
	line, err := json.Marshal([2]string{result.Outcome.String(), result.Data})
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}

	if _, err := w.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("failed to write result: %w", err)
	}

	return nil
}

// DecodeResult extracts the result pair from a worker's output. The last line
// holding a valid pair wins, so stray output before it is tolerated.
func DecodeResult(output []byte) (m.WorkResult, error) {
	var lines [][]byte

	scanner := bufio.NewScanner(bytes.NewReader(output))
	scanner.Buffer(make([]byte, 0, 64<<10), 16<<20)

	for scanner.Scan() {
		lines = append(lines, slices.Clone(scanner.Bytes()))
	}

	if err := scanner.Err(); err != nil {
		return m.WorkResult{}, fmt.Errorf("failed to read worker output: %w", err)
	}

	for _, line := range slices.Backward(lines) {
		var pair [2]string
		if err := json.Unmarshal(bytes.TrimSpace(line), &pair); err != nil {
			continue
		}

		outcome := m.Outcome(pair[0])
		if !outcome.Valid() {
			continue
		}

		return m.WorkResult{Outcome: outcome, Data: pair[1]}, nil
	}

	return m.WorkResult{}, errNoResult
}

// WorkerArgs renders the worker command line for item.
func WorkerArgs(root m.Path, item m.WorkItem) []string {
	args := []string{
		"worker",
		"--root", string(root),
		"--timeout", item.Timeout.String(),
		item.Module,
		item.Operator,
		strconv.Itoa(item.Occurrence),
		item.TestRunner,
	}

	if len(item.TestArgs) > 0 {
		args = append(args, "--")
		args = append(args, item.TestArgs...)
	}

	return args
}

// ParseWorkerArgs is the inverse of the positional part of WorkerArgs.
func ParseWorkerArgs(positional, testArgs []string, timeout time.Duration) (m.WorkItem, error) {
	if len(positional) != 4 {
		return m.WorkItem{}, fmt.Errorf("%w: expected <module> <operator> <occurrence> <runner>, got %d argument(s)", ErrInvalidArgs, len(positional))
	}

	occurrence, err := strconv.Atoi(positional[2])
	if err != nil || occurrence < 0 {
		return m.WorkItem{}, fmt.Errorf("%w: occurrence %q is not a non-negative integer", ErrInvalidArgs, positional[2])
	}

	if timeout < 0 {
		return m.WorkItem{}, fmt.Errorf("%w: %s", ErrInvalidTimeout, timeout)
	}

	return m.WorkItem{
		WorkItemKey: m.WorkItemKey{
			Module:     positional[0],
			Operator:   positional[1],
			Occurrence: occurrence,
		},
		TestRunner: positional[3],
		TestArgs:   slices.Clone(testArgs),
		Timeout:    timeout,
	}, nil
}
