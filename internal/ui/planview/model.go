package planview

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/deletion-planner/internal/keys"
	"github.com/nhle/deletion-planner/internal/model"
	"github.com/nhle/deletion-planner/internal/plan"
	appsync "github.com/nhle/deletion-planner/internal/sync"
	"github.com/nhle/deletion-planner/internal/theme"
	"github.com/nhle/deletion-planner/internal/ui"
)

// ViewMsg delivers a new plan controller view.
type ViewMsg struct {
	View plan.View
}

// FeedbackSentMsg reports a successful submission. Task statuses may
// have changed on the service, so listings should be reloaded.
type FeedbackSentMsg struct {
	Text string
}

// Model is today's plan view. In feedback mode the cursor marks
// outcomes for planned entries.
type Model struct {
	ctl      *plan.Controller
	keys     *keys.KeyMap
	view     plan.View
	cursor   int
	feedback bool
	spinner  spinner.Model
	width    int
	height   int
}

// New creates a plan view over ctl.
func New(ctl *plan.Controller, k *keys.KeyMap, width, height int) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(theme.ColorBlue)

	return Model{
		ctl:     ctl,
		keys:    k,
		view:    ctl.View(),
		spinner: sp,
		width:   width,
		height:  height,
	}
}

// Init loads today's plan.
func (m Model) Init() tea.Cmd {
	return m.Load()
}

// Capturing reports whether feedback mode owns the keyboard.
func (m Model) Capturing() bool {
	return m.feedback
}

// Update handles messages for the plan view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case ViewMsg:
		wasBusy := m.busy()
		m.view = msg.View
		m.clampCursor()
		if m.feedback && (m.view.Plan == nil || m.view.Plan.Pending() == 0) {
			m.feedback = false
		}
		if m.busy() && !wasBusy {
			return m, m.spinner.Tick
		}
		return m, nil

	case spinner.TickMsg:
		if !m.busy() {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if m.feedback {
			return m.handleFeedbackKeys(msg)
		}
		return m.handleNormalKeys(msg)
	}
	return m, nil
}

func (m Model) busy() bool {
	return m.view.Generating || m.view.Submitting
}

func (m Model) handleNormalKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Up):
		m.moveCursor(-1)
	case key.Matches(msg, m.keys.Down):
		m.moveCursor(1)
	case key.Matches(msg, m.keys.Refresh):
		return m, m.Load()
	case key.Matches(msg, m.keys.Generate):
		return m, m.Generate()
	case key.Matches(msg, m.keys.Feedback):
		if m.view.Plan == nil || m.view.Plan.Pending() == 0 {
			return m, ui.Status("Nothing left to give feedback on", nil)
		}
		m.feedback = true
		m.cursorToPending()
	}
	return m, nil
}

func (m Model) handleFeedbackKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Up):
		m.moveCursor(-1)
	case key.Matches(msg, m.keys.Down):
		m.moveCursor(1)
	case key.Matches(msg, m.keys.MarkDone):
		return m, m.record(model.PlanTaskCompleted)
	case key.Matches(msg, m.keys.MarkMissed):
		return m, m.record(model.PlanTaskMissed)
	case key.Matches(msg, m.keys.MarkDeferred):
		return m, m.record(model.PlanTaskDeferred)
	case key.Matches(msg, m.keys.Unmark):
		if pt, ok := m.selectedEntry(); ok {
			m.ctl.Unrecord(pt.ID)
		}
	case key.Matches(msg, m.keys.Submit):
		return m, m.Submit()
	case key.Matches(msg, m.keys.Back):
		m.feedback = false
		m.ctl.Discard()
	}
	return m, nil
}

func (m *Model) record(status model.PlanTaskStatus) tea.Cmd {
	pt, ok := m.selectedEntry()
	if !ok {
		return nil
	}
	if err := m.ctl.Record(pt.ID, status); err != nil {
		return ui.Status("", err)
	}
	m.moveCursor(1)
	return nil
}

func (m Model) selectedEntry() (model.PlanTask, bool) {
	if m.view.Plan == nil || m.cursor < 0 || m.cursor >= len(m.view.Plan.Tasks) {
		return model.PlanTask{}, false
	}
	return m.view.Plan.Tasks[m.cursor], true
}

func (m *Model) moveCursor(delta int) {
	m.cursor += delta
	m.clampCursor()
}

func (m *Model) clampCursor() {
	n := 0
	if m.view.Plan != nil {
		n = len(m.view.Plan.Tasks)
	}
	if m.cursor >= n {
		m.cursor = n - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

func (m *Model) cursorToPending() {
	for i, pt := range m.view.Plan.Tasks {
		if pt.Status == model.PlanTaskPlanned {
			m.cursor = i
			return
		}
	}
}

// Load returns a command that fetches today's plan.
func (m Model) Load() tea.Cmd {
	ctl := m.ctl
	return func() tea.Msg {
		if _, err := ctl.LoadToday(context.Background()); err != nil {
			return ui.StatusMsg{Err: fmt.Errorf("loading today's plan: %w", err)}
		}
		return nil
	}
}

// Generate returns a command that generates today's plan.
func (m Model) Generate() tea.Cmd {
	ctl := m.ctl
	return func() tea.Msg {
		p, err := ctl.Generate(context.Background(), "")
		if errors.Is(err, appsync.ErrBusy) {
			return ui.StatusMsg{Text: "A plan is already being generated"}
		}
		if err != nil {
			return ui.StatusMsg{Err: fmt.Errorf("generating plan: %w", err)}
		}
		if p == nil {
			return nil
		}
		return ui.StatusMsg{Text: fmt.Sprintf("Planned %d tasks for %s", len(p.Tasks), p.Date)}
	}
}

// Submit returns a command that submits the marked outcomes.
func (m Model) Submit() tea.Cmd {
	ctl := m.ctl
	return func() tea.Msg {
		ack, err := ctl.Submit(context.Background(), "")
		if errors.Is(err, appsync.ErrBusy) {
			return ui.StatusMsg{Text: "Feedback is already being submitted"}
		}
		if err != nil {
			return ui.StatusMsg{Err: err}
		}
		text := ack.Message
		if text == "" {
			text = "Feedback submitted"
		}
		if n := len(ack.Suggestions); n > 0 {
			text = fmt.Sprintf("%s. %d task(s) suggested for deletion", text, n)
		}
		return FeedbackSentMsg{Text: text}
	}
}

// View renders the plan view.
func (m Model) View() string {
	var b strings.Builder

	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(theme.ColorWhite)
	title := "Today's Plan"
	if m.view.Plan != nil {
		title = fmt.Sprintf("Plan for %s", m.view.Plan.Date)
	}
	b.WriteString(titleStyle.Render(title))
	if m.view.FromCache {
		b.WriteString(theme.HelpStyle.Render("  (cached)"))
	}
	if m.view.Generating {
		b.WriteString("  " + m.spinner.View() + " generating...")
	}
	if m.view.Submitting {
		b.WriteString("  " + m.spinner.View() + " submitting...")
	}
	b.WriteString("\n\n")

	switch m.view.State {
	case plan.StateUnknown:
		b.WriteString(theme.HelpStyle.Render("Loading plan..."))
		return b.String()
	case plan.StateAbsent:
		empty := lipgloss.NewStyle().
			Width(m.width).
			Align(lipgloss.Center).
			Foreground(theme.ColorGray)
		b.WriteString(empty.Render("No plan for today yet.\n\nPress g to generate one from your active tasks."))
		return b.String()
	}

	p := m.view.Plan
	if p.OverloadWarning != "" {
		b.WriteString(theme.WarningPanelStyle.Width(m.width - 4).Render("⚠ " + p.OverloadWarning))
		b.WriteString("\n")
	}

	if len(p.Tasks) == 0 {
		b.WriteString(theme.HelpStyle.Render("The plan has no tasks."))
		b.WriteString("\n")
	}
	for i, pt := range p.Tasks {
		b.WriteString(m.renderEntry(i, pt))
		b.WriteString("\n")
	}

	if p.Reasoning != "" {
		b.WriteString("\n")
		b.WriteString(theme.PanelStyle.Width(m.width - 4).Render(p.Reasoning))
		b.WriteString("\n")
	}

	if m.feedback {
		b.WriteString("\n")
		b.WriteString(theme.HelpStyle.Render(
			fmt.Sprintf("%d marked · c done · s missed · l deferred · u unmark · enter submit · esc cancel",
				len(m.view.Selections))))
	}

	return b.String()
}

func (m Model) renderEntry(i int, pt model.PlanTask) string {
	status := string(pt.Status)
	if sel, ok := m.view.Selected(pt.ID); ok {
		status = "→ " + string(sel)
	}

	priority := ""
	if pt.Task != nil {
		priority = theme.PriorityStyle(int(pt.Task.Priority)).Render(pt.Task.Priority.Label()) + " "
	}

	line := fmt.Sprintf("%d. %s%s %s",
		i+1,
		priority,
		pt.Title(),
		theme.PlanStatusStyle(string(pt.Status)).Render("["+status+"]"),
	)
	if pt.Status != model.PlanTaskPlanned {
		line = theme.DimmedStyle.Render(line)
	}

	if i == m.cursor {
		return theme.SelectedItemStyle.Render(line)
	}
	return theme.ListItemStyle.Render(line)
}

// SetSize updates the view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}
