package domain

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/pmezard/go-difflib/difflib"

	"gooze.dev/pkg/orbit/internal/adapter"
	m "gooze.dev/pkg/orbit/internal/model"
	"gooze.dev/pkg/orbit/internal/storage"
)

// ReportOptions selects what CreateReport includes.
type ReportOptions struct {
	ShowPending bool
	ShowDiff    bool
}

// Reporter summarizes the results stored in a session.
type Reporter interface {
	CreateReport(ctx context.Context, db storage.WorkDB, opts ReportOptions) ([]string, error)
	// SurvivalRate is survived/(survived+killed). Exceptions are ignored and
	// the rate is 0 when nothing was killed or survived.
	SurvivalRate(ctx context.Context, db storage.WorkDB) (float64, error)
	Summarize(ctx context.Context, db storage.WorkDB) (m.Summary, error)
}

type reporter struct {
	fsAdapter adapter.SourceFSAdapter
	operators OperatorCatalog
}

// NewReporter constructs a Reporter. fsAdapter and ops are used to render diffs.
func NewReporter(fsAdapter adapter.SourceFSAdapter, ops OperatorCatalog) Reporter {
	return &reporter{fsAdapter: fsAdapter, operators: ops}
}

func (r *reporter) CreateReport(ctx context.Context, db storage.WorkDB, opts ReportOptions) ([]string, error) {
	var (
		lines   []string
		summary m.Summary
		root    m.Path
	)

	if opts.ShowDiff {
		cfg, err := db.Config(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to read session config: %w", err)
		}

		root = m.Path(cfg.Root)
	}

	for record, err := range db.Records(ctx) {
		if err != nil {
			slog.Error("Failed to read session records", "error", err)
			return nil, fmt.Errorf("failed to read session records: %w", err)
		}

		summary.Add(record.Result)

		key := record.Item.WorkItemKey.String()

		if record.Pending() {
			if opts.ShowPending {
				lines = append(lines, key+" pending")
			}

			continue
		}

		lines = append(lines, fmt.Sprintf("%s %s", key, record.Result.Outcome))
		lines = append(lines, indent(record.Result.Data)...)

		if opts.ShowDiff && record.Result.Outcome == m.Survived {
			lines = append(lines, indent(r.diff(root, record.Item.WorkItemKey))...)
		}
	}

	lines = append(lines, footer(summary)...)

	return lines, nil
}

func (r *reporter) diff(root m.Path, key m.WorkItemKey) string {
	original, mutant, err := Mutate(r.fsAdapter, r.operators, root, key)
	if err != nil {
		return fmt.Sprintf("diff unavailable: %v", err)
	}

	text, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(string(original)),
		B:        difflib.SplitLines(string(mutant)),
		FromFile: "a/" + key.Module,
		ToFile:   "b/" + key.Module,
		Context:  3,
	})
	if err != nil {
		return fmt.Sprintf("diff unavailable: %v", err)
	}

	return text
}

func indent(text string) []string {
	text = strings.TrimRight(text, "\n")
	if text == "" {
		return nil
	}

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = "    " + line
	}

	return lines
}

func footer(s m.Summary) []string {
	percent := 0.0
	if s.Total > 0 {
		percent = float64(s.Complete()) / float64(s.Total) * 100
	}

	return []string{
		fmt.Sprintf("total jobs: %d", s.Total),
		fmt.Sprintf("complete: %d (%.2f%%)", s.Complete(), percent),
		fmt.Sprintf("survival rate: %.2f%%", s.SurvivalRate()*100),
	}
}

func (r *reporter) SurvivalRate(ctx context.Context, db storage.WorkDB) (float64, error) {
	summary, err := Summarize(ctx, db)
	if err != nil {
		return 0, err
	}

	return summary.SurvivalRate(), nil
}

func (r *reporter) Summarize(ctx context.Context, db storage.WorkDB) (m.Summary, error) {
	return Summarize(ctx, db)
}

// Summarize counts the records of db by state.
func Summarize(ctx context.Context, db storage.WorkDB) (m.Summary, error) {
	var summary m.Summary

	for record, err := range db.Records(ctx) {
		if err != nil {
			slog.Error("Failed to read session records", "error", err)
			return m.Summary{}, fmt.Errorf("failed to read session records: %w", err)
		}

		summary.Add(record.Result)
	}

	return summary, nil
}
