package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/lepinkainen/shelfkeeper/internal/enrichment"
)

const (
	defaultBarWidth = 48
	logLines        = 6
	updateBuffer    = 256
)

// SyncFunc runs one enrichment batch, reporting through progress and
// honouring stop requests made on stopper.
type SyncFunc func(progress enrichment.ProgressFunc, stopper *enrichment.Stopper) (enrichment.Summary, error)

type progressMsg struct {
	done, total int
	msg         string
}

type finishedMsg struct{}

// syncRun carries a running batch's updates to the view.
type syncRun struct {
	updates  chan progressMsg
	finished chan struct{}
	summary  enrichment.Summary
	err      error
}

func newSyncRun() *syncRun {
	return &syncRun{
		updates:  make(chan progressMsg, updateBuffer),
		finished: make(chan struct{}),
	}
}

func (r *syncRun) start(run SyncFunc, stopper *enrichment.Stopper) {
	go func() {
		defer close(r.finished)
		r.summary, r.err = run(r.report, stopper)
	}()
}

// report drops updates the view has not caught up with; the next one
// carries the current counts anyway.
func (r *syncRun) report(done, total int, msg string) {
	select {
	case r.updates <- progressMsg{done: done, total: total, msg: msg}:
	default:
	}
}

func (r *syncRun) next() tea.Msg {
	select {
	case u := <-r.updates:
		return u
	case <-r.finished:
		return finishedMsg{}
	}
}

type syncModel struct {
	title    string
	run      *syncRun
	stopper  *enrichment.Stopper
	bar      progress.Model
	spin     spinner.Model
	done     int
	total    int
	log      []string
	status   string
	finished bool
}

func newSyncModel(title string, run *syncRun, stopper *enrichment.Stopper) *syncModel {
	bar := progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage())
	bar.Width = defaultBarWidth
	spin := spinner.New()
	spin.Spinner = spinner.Dot
	spin.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))

	return &syncModel{
		title:   title,
		run:     run,
		stopper: stopper,
		bar:     bar,
		spin:    spin,
	}
}

func (m *syncModel) Init() tea.Cmd {
	return tea.Batch(m.spin.Tick, m.run.next)
}

func (m *syncModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case progressMsg:
		m.done, m.total = msg.done, msg.total
		if msg.msg != "" {
			m.log = append(m.log, msg.msg)
			if len(m.log) > logLines {
				m.log = m.log[len(m.log)-logLines:]
			}
		}
		return m, m.run.next
	case finishedMsg:
		m.finished = true
		return m, tea.Quit
	case tea.KeyMsg:
		switch msg.String() {
		case "c", "esc", "ctrl+c":
			m.stopper.Cancel()
		case "s":
			m.stopper.StopAndSave()
		}
		switch m.stopper.Requested() {
		case enrichment.Cancelled:
			m.status = "Cancelling, downloaded covers will be removed…"
		case enrichment.Stopped:
			m.status = "Stopping, downloaded covers are kept…"
		}
		return m, nil
	case tea.WindowSizeMsg:
		m.bar.Width = clamp(defaultBarWidth, msg.Width-8, 10)
		return m, nil
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *syncModel) percent() float64 {
	if m.total <= 0 {
		return 0
	}
	return float64(m.done) / float64(m.total)
}

func (m *syncModel) View() string {
	header := headerStyle.Render(m.title)
	counts := fmt.Sprintf("%s %d/%d", m.spin.View(), m.done, m.total)
	bar := m.bar.ViewAs(m.percent())
	logView := logStyle.Render(strings.Join(m.log, "\n"))

	parts := []string{header, counts, bar, logView}
	if m.status != "" {
		parts = append(parts, statusStyle.Render(m.status))
	}
	parts = append(parts, helpStyle.Render("c cancel (remove new covers) | s stop and save"))
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

var (
	logStyle = lipgloss.NewStyle().
			MarginTop(1).
			Foreground(lipgloss.Color("248"))

	statusStyle = lipgloss.NewStyle().
			MarginTop(1).
			Bold(true).
			Foreground(lipgloss.Color("161"))
)

// RunSync shows a progress view while run executes. The view offers cancel,
// which rolls back the covers of the batch, and stop and save, which keeps
// them. If the view exits early the batch is cancelled. RunSync returns once
// the batch has finished.
func RunSync(title string, run SyncFunc) (enrichment.Summary, error) {
	stopper := enrichment.NewStopper()
	r := newSyncRun()
	r.start(run, stopper)

	finalModel, err := runProgram(newSyncModel(title, r, stopper))
	if typed, ok := finalModel.(*syncModel); !ok || !typed.finished {
		stopper.Cancel()
	}
	<-r.finished

	if err != nil {
		return r.summary, fmt.Errorf("running sync view: %w", err)
	}
	return r.summary, r.err
}
