package controller

import (
	"context"
	"fmt"
	"io"
	"slices"
	"strings"
	"sync"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	m "gooze.dev/pkg/orbit/internal/model"
)

const recentResults = 8

var (
	titleStyle     = lipgloss.NewStyle().Bold(true)
	faintStyle     = lipgloss.NewStyle().Faint(true)
	killedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	survivedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
	exceptionStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
)

// TUI implements UI using Bubble Tea for live execution progress.
// Static output (tables, rates) is printed above the live view.
type TUI struct {
	output io.Writer

	mu      sync.Mutex
	program *tea.Program
	done    chan struct{}
}

// NewTUI creates a new TUI.
func NewTUI(output io.Writer) *TUI {
	return &TUI{output: output}
}

// Start launches the live view in exec mode. Report mode prints only.
func (t *TUI) Start(ctx context.Context, options ...StartOption) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	cfg := &StartConfig{}
	for _, opt := range options {
		opt(cfg)
	}

	if cfg.mode != ModeExec {
		return nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.program = tea.NewProgram(newExecModel(),
		tea.WithOutput(t.output),
		tea.WithInput(nil),
		tea.WithContext(ctx),
	)
	t.done = make(chan struct{})

	go func(p *tea.Program, done chan struct{}) {
		defer close(done)

		_, _ = p.Run()
	}(t.program, t.done)

	return nil
}

// Close stops the live view and waits for the final frame.
func (t *TUI) Close(ctx context.Context) {
	t.mu.Lock()
	p, done := t.program, t.done
	t.program = nil
	t.mu.Unlock()

	if p == nil {
		return
	}

	p.Send(closeMsg{})

	select {
	case <-done:
	case <-ctx.Done():
		p.Kill()
		<-done
	}
}

// Wait blocks until the live view has exited.
func (t *TUI) Wait(ctx context.Context) {
	t.mu.Lock()
	done := t.done
	t.mu.Unlock()

	if done == nil {
		return
	}

	select {
	case <-done:
	case <-ctx.Done():
	}
}

func (t *TUI) DisplayConcurrencyInfo(_ context.Context, workers int, pending int, total int) {
	t.send(concurrencyMsg{workers: workers, pending: pending, total: total})
}

func (t *TUI) DisplayUpcomingTestsInfo(_ context.Context, pending int) {
	t.send(upcomingMsg(pending))
}

func (t *TUI) DisplayStartingTestInfo(_ context.Context, item m.WorkItem, workerID int) {
	t.send(startedMsg{item: item, workerID: workerID})
}

func (t *TUI) DisplayCompletedTestInfo(_ context.Context, item m.WorkItem, result m.WorkResult) {
	t.send(completedMsg{item: item, result: result})
}

func (t *TUI) DisplayCounts(ctx context.Context, counts []m.OperatorCount) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return t.print(renderCountsTable(counts))
}

func (t *TUI) DisplaySummary(ctx context.Context, summary m.Summary) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return t.print(renderSummaryTable(summary))
}

func (t *TUI) DisplaySurvivalRate(_ context.Context, rate float64) {
	_ = t.print(titleStyle.Render(fmt.Sprintf("Survival rate: %.2f%%", rate*100)) + "\n")
}

func (t *TUI) send(msg tea.Msg) {
	t.mu.Lock()
	p := t.program
	t.mu.Unlock()

	if p != nil {
		p.Send(msg)
	}
}

func (t *TUI) print(s string) error {
	t.mu.Lock()
	p := t.program
	t.mu.Unlock()

	if p != nil {
		p.Println(strings.TrimSuffix(s, "\n"))
		return nil
	}

	_, err := fmt.Fprint(t.output, s)

	return err
}

type concurrencyMsg struct{ workers, pending, total int }

type upcomingMsg int

type startedMsg struct {
	item     m.WorkItem
	workerID int
}

type completedMsg struct {
	item   m.WorkItem
	result m.WorkResult
}

type closeMsg struct{}

// execModel is the Bubble Tea model for a running execution.
type execModel struct {
	spinner  spinner.Model
	bar      progress.Model
	workers  int
	pending  int
	total    int
	summary  m.Summary
	active   map[int]m.WorkItemKey
	recent   []string
	quitting bool
}

func newExecModel() execModel {
	return execModel{
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot)),
		bar:     progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
		active:  make(map[int]m.WorkItemKey),
	}
}

func (em execModel) Init() tea.Cmd {
	return em.spinner.Tick
}

func (em execModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case concurrencyMsg:
		em.workers, em.pending, em.total = msg.workers, msg.pending, msg.total
	case upcomingMsg:
		em.pending = int(msg)
	case startedMsg:
		em.active[msg.workerID] = msg.item.WorkItemKey
	case completedMsg:
		em = em.complete(msg)
	case closeMsg:
		em.quitting = true
		return em, tea.Quit
	case tea.WindowSizeMsg:
		em.bar.Width = min(max(msg.Width-20, 10), 60)
	case spinner.TickMsg:
		var cmd tea.Cmd
		em.spinner, cmd = em.spinner.Update(msg)

		return em, cmd
	}

	return em, nil
}

func (em execModel) complete(msg completedMsg) execModel {
	for id, key := range em.active {
		if key == msg.item.WorkItemKey {
			delete(em.active, id)
			break
		}
	}

	em.summary.Add(&msg.result)

	line := fmt.Sprintf("%s %s", outcomeLabel(msg.result.Outcome), msg.item.WorkItemKey)
	em.recent = append(em.recent, line)

	if len(em.recent) > recentResults {
		em.recent = em.recent[len(em.recent)-recentResults:]
	}

	return em
}

func (em execModel) percent() float64 {
	if em.pending == 0 {
		return 1
	}

	return float64(em.summary.Total) / float64(em.pending)
}

func (em execModel) View() string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s %s\n\n", titleStyle.Render("orbit"),
		faintStyle.Render(fmt.Sprintf("%d worker(s), %d of %d work item(s) pending", em.workers, em.pending, em.total)))

	fmt.Fprintf(&b, "  %s %d/%d\n\n", em.bar.ViewAs(min(em.percent(), 1)), em.summary.Total, em.pending)

	ids := make([]int, 0, len(em.active))
	for id := range em.active {
		ids = append(ids, id)
	}

	slices.Sort(ids)

	for _, id := range ids {
		if em.quitting {
			break
		}

		fmt.Fprintf(&b, "  %s [%d] %s\n", em.spinner.View(), id, em.active[id])
	}

	for _, line := range em.recent {
		fmt.Fprintf(&b, "  %s\n", line)
	}

	fmt.Fprintf(&b, "\n  %s %d  %s %d  %s %d\n",
		killedStyle.Render("killed"), em.summary.Killed,
		survivedStyle.Render("survived"), em.summary.Survived,
		exceptionStyle.Render("exception"), em.summary.Exception)

	return b.String()
}

func outcomeLabel(outcome m.Outcome) string {
	switch outcome {
	case m.Killed:
		return killedStyle.Render("✓ killed   ")
	case m.Survived:
		return survivedStyle.Render("✗ survived ")
	default:
		return exceptionStyle.Render("! exception")
	}
}
