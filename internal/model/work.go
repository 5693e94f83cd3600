package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Outcome classifies the result of running the test suite against one mutant.
type Outcome string

const (
	// Killed indicates the tests failed, so the mutation was detected.
	Killed Outcome = "killed"
	// Survived indicates the tests passed, so the mutation went unnoticed.
	Survived Outcome = "survived"
	// Exception indicates the run crashed, timed out or could not be set up.
	Exception Outcome = "exception"
)

func (o Outcome) String() string {
	return string(o)
}

// Valid reports whether o is one of the known outcomes.
func (o Outcome) Valid() bool {
	switch o {
	case Killed, Survived, Exception:
		return true
	default:
		return false
	}
}

// WorkItemKey identifies a work item within a session.
type WorkItemKey struct {
	Module     string `json:"module"`
	Operator   string `json:"operator"`
	Occurrence int    `json:"occurrence"`
}

func (k WorkItemKey) String() string {
	return fmt.Sprintf("%s:%s:%d", k.Module, k.Operator, k.Occurrence)
}

// Less orders keys by module, operator and occurrence.
func (k WorkItemKey) Less(other WorkItemKey) bool {
	if k.Module != other.Module {
		return k.Module < other.Module
	}

	if k.Operator != other.Operator {
		return k.Operator < other.Operator
	}

	return k.Occurrence < other.Occurrence
}

// ParseWorkItemKey is the inverse of WorkItemKey.String. Module names may
// contain colons, so the operator and occurrence are taken from the right.
func ParseWorkItemKey(s string) (WorkItemKey, error) {
	occIdx := strings.LastIndex(s, ":")
	if occIdx <= 0 {
		return WorkItemKey{}, fmt.Errorf("malformed work item key %q", s)
	}

	opIdx := strings.LastIndex(s[:occIdx], ":")
	if opIdx <= 0 {
		return WorkItemKey{}, fmt.Errorf("malformed work item key %q", s)
	}

	occurrence, err := strconv.Atoi(s[occIdx+1:])
	if err != nil || occurrence < 0 {
		return WorkItemKey{}, fmt.Errorf("malformed occurrence in work item key %q", s)
	}

	return WorkItemKey{
		Module:     s[:opIdx],
		Operator:   s[opIdx+1 : occIdx],
		Occurrence: occurrence,
	}, nil
}

// WorkItem is one (module, operator, occurrence) trial together with the
// test configuration used to judge it.
type WorkItem struct {
	WorkItemKey
	TestRunner string        `json:"test_runner"`
	TestArgs   []string      `json:"test_args"`
	Timeout    time.Duration `json:"timeout"`
}

// NewWorkItem creates a WorkItem for the given key using the session settings.
func NewWorkItem(key WorkItemKey, cfg SessionConfig) WorkItem {
	args := make([]string, len(cfg.TestArgs))
	copy(args, cfg.TestArgs)

	return WorkItem{
		WorkItemKey: key,
		TestRunner:  cfg.TestRunner,
		TestArgs:    args,
		Timeout:     cfg.Timeout,
	}
}

// WorkResult is the recorded outcome of a work item. Data holds the test
// output for killed/survived and the error text for exception.
type WorkResult struct {
	Outcome Outcome `json:"outcome"`
	Data    string  `json:"data"`
}

// WorkRecord pairs a work item with its result; Result is nil while pending.
type WorkRecord struct {
	Item   WorkItem
	Result *WorkResult
}

// Pending reports whether no result has been recorded yet.
func (r WorkRecord) Pending() bool {
	return r.Result == nil
}

// SessionConfig is the metadata stored alongside the work items of a session.
type SessionConfig struct {
	Root       string        `json:"root"        validate:"required"`
	TestRunner string        `json:"test_runner" validate:"required"`
	TestArgs   []string      `json:"test_args"`
	Timeout    time.Duration `json:"timeout"     validate:"gt=0"`
}
