package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/favx/favx/internal/models"
	"github.com/favx/favx/internal/tasks"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	ConfirmView ViewState = iota
	TransferView
	ResultView
)

// Model represents the TUI application state.
type Model struct {
	ctx          context.Context
	engine       *tasks.Engine
	source       models.Provider
	target       models.Provider
	req          tasks.RunRequest
	view         ViewState
	width        int
	height       int
	bar          progress.Model
	progressChan chan tasks.ProgressUpdate
	progress     tasks.ProgressUpdate
	stopping     bool
	report       *tasks.Report
	err          error
	help         help.Model
	keys         keyMap
}

// keyMap defines the key bindings for the TUI.
type keyMap struct {
	yes  key.Binding
	no   key.Binding
	quit key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		yes: key.NewBinding(
			key.WithKeys("y"),
			key.WithHelp("y", "start"),
		),
		no: key.NewBinding(
			key.WithKeys("n", "esc"),
			key.WithHelp("n", "cancel"),
		),
		quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.yes, k.no},
		{k.quit},
	}
}

type progressUpdateMsg tasks.ProgressUpdate

type transferCompleteMsg struct {
	report *tasks.Report
	err    error
}

// NewModel creates a new TUI model around a configured transfer engine.
func NewModel(ctx context.Context, engine *tasks.Engine, source, target models.Provider, req tasks.RunRequest) *Model {
	return &Model{
		ctx:    ctx,
		engine: engine,
		source: source,
		target: target,
		req:    req,
		view:   ConfirmView,
		bar:    progress.New(progress.WithDefaultGradient()),
		help:   help.New(),
		keys:   newKeyMap(),
	}
}

func (m *Model) Init() tea.Cmd {
	return nil
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.bar.Width = msg.Width - 8
		if m.bar.Width > 60 {
			m.bar.Width = 60
		}
		return m, nil

	case tea.KeyMsg:
		switch m.view {
		case ConfirmView:
			return m.handleConfirmKeys(msg)
		case TransferView:
			return m.handleTransferKeys(msg)
		case ResultView:
			return m.handleResultKeys(msg)
		}

	case progressUpdateMsg:
		m.progress = tasks.ProgressUpdate(msg)
		return m, m.waitForProgress()

	case transferCompleteMsg:
		m.report = msg.report
		m.err = msg.err
		m.view = ResultView
		m.progressChan = nil
		return m, nil

	case progress.FrameMsg:
		bar, cmd := m.bar.Update(msg)
		if b, ok := bar.(progress.Model); ok {
			m.bar = b
		}
		return m, cmd
	}

	return m, nil
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	if m.err != nil && m.view != ResultView {
		return styles.err.Render(fmt.Sprintf("Error: %v\n\nPress q to quit", m.err))
	}

	switch m.view {
	case ConfirmView:
		return m.renderConfirm()
	case TransferView:
		return m.renderTransfer()
	case ResultView:
		return m.renderResult()
	default:
		return ""
	}
}

func (m *Model) handleConfirmKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c", "n", "esc":
		return m, tea.Quit
	case "y":
		m.view = TransferView
		return m, m.startTransfer()
	}
	return m, nil
}

func (m *Model) handleTransferKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		m.engine.Stop()
		return m, tea.Quit
	case "q":
		// Cooperative stop: the engine finishes the current item and
		// completes with a partial report.
		m.stopping = true
		m.engine.Stop()
		return m, nil
	}
	return m, nil
}

func (m *Model) handleResultKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c", "enter":
		return m, tea.Quit
	}
	return m, nil
}

func (m *Model) startTransfer() tea.Cmd {
	m.progressChan = make(chan tasks.ProgressUpdate, 50)
	ch := m.progressChan

	go func() {
		report, err := m.engine.Run(m.ctx, ch, m.req)
		m.report = report
		m.err = err
		close(ch)
	}()

	return m.waitForProgress()
}

func (m *Model) waitForProgress() tea.Cmd {
	ch := m.progressChan
	return func() tea.Msg {
		if ch == nil {
			return transferCompleteMsg{report: m.report, err: m.err}
		}
		update, ok := <-ch
		if !ok {
			return transferCompleteMsg{report: m.report, err: m.err}
		}
		return progressUpdateMsg(update)
	}
}

func (m *Model) renderConfirm() string {
	title := styles.title.Render(fmt.Sprintf("Transfer favorites from %s to %s?", m.source, m.target))

	types := "all favorites"
	if len(m.req.Types) > 0 {
		names := make([]string, len(m.req.Types))
		for i, t := range m.req.Types {
			names[i] = string(t)
		}
		types = strings.Join(names, ", ")
	}
	info := fmt.Sprintf("\nSource: %s\nTarget: %s\nTypes: %s\n", m.source, m.target, types)

	helpView := m.help.ShortHelpView([]key.Binding{m.keys.yes, m.keys.no, m.keys.quit})
	return fmt.Sprintf("%s\n%s\n%s", title, info, helpView)
}

func (m *Model) renderTransfer() string {
	title := styles.title.Render("Transferring Favorites")

	var phase string
	switch m.progress.Phase {
	case tasks.PhaseFetch:
		phase = fmt.Sprintf("Fetching %s library...", m.source)
	case tasks.PhaseTransfer:
		phase = fmt.Sprintf("Transferring %s (%d/%d)", m.progress.Type, m.progress.Step, m.progress.Total)
	case tasks.PhasePlaylist:
		phase = "Rebuilding playlist tracks..."
	case tasks.PhaseFinalize:
		phase = "Finishing up..."
	default:
		phase = "Preparing..."
	}

	var bar string
	if m.progress.Phase == tasks.PhaseTransfer && m.progress.Total > 0 {
		bar = m.bar.ViewAs(float64(m.progress.Step) / float64(m.progress.Total))
	}

	status := m.progress.Message
	if m.stopping {
		status = styles.warn.Render("Stopping after the current item...")
	}

	stopKey := key.NewBinding(key.WithKeys("q"), key.WithHelp("q", "stop"))
	helpView := m.help.ShortHelpView([]key.Binding{stopKey})

	return fmt.Sprintf("%s\n\n%s\n%s\n%s\n\n%s", title, phase, bar, status, helpView)
}

func (m *Model) renderResult() string {
	helpView := m.help.ShortHelpView([]key.Binding{m.keys.quit})

	if m.err != nil {
		body := styles.err.Render(fmt.Sprintf("Transfer aborted: %v", m.err))
		if m.report != nil {
			body += fmt.Sprintf("\n\nCompleted before abort: %d added, %d skipped, %d failed",
				m.report.Added, m.report.Skipped, m.report.Failed)
		}
		return fmt.Sprintf("%s\n\n%s", body, helpView)
	}

	if m.report == nil {
		return fmt.Sprintf("%s\n\n%s", styles.err.Render("No report available"), helpView)
	}

	title := styles.ok.Render("✓ Transfer Complete")
	if m.report.Stopped {
		title = styles.warn.Render("Transfer stopped")
	}

	info := fmt.Sprintf(
		"\nRun: %s\nSource: %s\nTarget: %s\nAdded: %d\nSkipped: %d\nFailed: %d",
		m.report.RunID, m.report.Source, m.report.Target,
		m.report.Added, m.report.Skipped, m.report.Failed,
	)

	var failed string
	if failures := m.report.Failures(); len(failures) > 0 {
		failed = fmt.Sprintf("\n\n%s", styles.warn.Render(fmt.Sprintf("%d items failed:", len(failures))))
		for _, o := range failures {
			failed += fmt.Sprintf("\n  • [%s] %s", o.Type, o.Item.Name)
		}
	}

	return fmt.Sprintf("%s\n%s%s\n\n%s", title, info, failed, helpView)
}

var _ tea.Model = (*Model)(nil)
