package detail

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/deletion-planner/internal/client"
	"github.com/nhle/deletion-planner/internal/keys"
	"github.com/nhle/deletion-planner/internal/model"
	"github.com/nhle/deletion-planner/internal/tasks"
	"github.com/nhle/deletion-planner/internal/theme"
	"github.com/nhle/deletion-planner/internal/ui"
)

// historyLimit caps the events shown for one task.
const historyLimit = 20

// BackMsg signals the parent to navigate back to the task list.
type BackMsg struct{}

// HistoryMsg carries the lifecycle events of the displayed task.
type HistoryMsg struct {
	TaskID  int64
	History []model.HistoryEntry
}

// UpdatedMsg carries the task as returned by a complete or defer.
type UpdatedMsg struct {
	Task model.Task
}

// Model is the task detail view component.
type Model struct {
	task     *model.Task
	history  []model.HistoryEntry
	viewport viewport.Model
	api      client.API
	store    *tasks.Store
	keys     *keys.KeyMap
	width    int
	height   int
	loading  bool
}

// New creates a new detail view model.
func New(api client.API, s *tasks.Store, k *keys.KeyMap, width, height int) Model {
	vp := viewport.New(width, height-2)
	vp.Style = lipgloss.NewStyle()

	return Model{
		viewport: vp,
		api:      api,
		store:    s,
		keys:     k,
		width:    width,
		height:   height,
	}
}

// Show displays t and returns a command that loads its history.
func (m *Model) Show(t model.Task) tea.Cmd {
	m.task = &t
	m.history = nil
	m.loading = true
	m.viewport.SetContent(m.renderContent())
	m.viewport.GotoTop()
	return m.loadHistory(t.ID)
}

// Task returns the displayed task, if any.
func (m Model) Task() (model.Task, bool) {
	if m.task == nil {
		return model.Task{}, false
	}
	return *m.task, true
}

func (m Model) loadHistory(id int64) tea.Cmd {
	api := m.api
	return func() tea.Msg {
		h, err := api.History(context.Background(), model.HistoryQuery{TaskID: id, Limit: historyLimit})
		if err != nil {
			return ui.StatusMsg{Err: fmt.Errorf("loading history for task #%d: %w", id, err)}
		}
		return HistoryMsg{TaskID: id, History: h}
	}
}

// Update handles messages for the detail view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case HistoryMsg:
		if m.task == nil || msg.TaskID != m.task.ID {
			return m, nil
		}
		m.history = msg.History
		m.loading = false
		m.viewport.SetContent(m.renderContent())
		return m, nil

	case UpdatedMsg:
		if m.task == nil || msg.Task.ID != m.task.ID {
			return m, nil
		}
		t := msg.Task
		m.task = &t
		m.viewport.SetContent(m.renderContent())
		return m, m.loadHistory(t.ID)

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Back):
			return m, func() tea.Msg { return BackMsg{} }

		case key.Matches(msg, m.keys.Refresh):
			if m.task != nil {
				m.loading = true
				return m, m.loadHistory(m.task.ID)
			}

		case key.Matches(msg, m.keys.Complete):
			if m.task != nil && m.task.Status == model.TaskStatusActive {
				return m, m.update(m.task.ID, m.store.Complete)
			}

		case key.Matches(msg, m.keys.Defer):
			if m.task != nil && m.task.Status == model.TaskStatusActive {
				return m, m.update(m.task.ID, m.store.Defer)
			}
		}
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m Model) update(id int64, fn func(context.Context, int64) (*model.Task, error)) tea.Cmd {
	return func() tea.Msg {
		t, err := fn(context.Background(), id)
		if err != nil {
			return ui.StatusMsg{Err: err}
		}
		return UpdatedMsg{Task: *t}
	}
}

// View renders the detail view.
func (m Model) View() string {
	if m.task == nil {
		emptyStyle := lipgloss.NewStyle().
			Width(m.width).
			Height(m.height).
			Align(lipgloss.Center, lipgloss.Center).
			Foreground(theme.ColorGray)
		return emptyStyle.Render("No task selected")
	}
	return m.viewport.View()
}

// renderContent builds the full detail content string for the viewport.
func (m Model) renderContent() string {
	if m.task == nil {
		return ""
	}

	task := m.task
	var sections []string

	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(theme.ColorWhite)
	sections = append(sections, titleStyle.Render(fmt.Sprintf("#%d  %s", task.ID, task.Title)))

	badgeLine := lipgloss.JoinHorizontal(
		lipgloss.Top,
		theme.TaskStatusStyle(string(task.Status)).Render(string(task.Status)),
		"  ",
		theme.PriorityStyle(int(task.Priority)).Render(task.Priority.Label()),
		"  ",
		theme.CategoryStyle(string(task.Category)).Render(task.Category.Label()),
	)
	sections = append(sections, badgeLine, "")

	metaStyle := lipgloss.NewStyle().Foreground(theme.ColorGray)
	valStyle := lipgloss.NewStyle().Foreground(theme.ColorWhite)
	meta := func(label, value string) {
		sections = append(sections, fmt.Sprintf(
			"%s %s",
			metaStyle.Render(fmt.Sprintf("%-12s", label+":")),
			valStyle.Render(value),
		))
	}

	meta("Deferred", fmt.Sprintf("%d times", task.DeferralCount))
	meta("Completed", fmt.Sprintf("%d times", task.CompletionCount))
	if task.Status == model.TaskStatusActive {
		meta("Position", fmt.Sprintf("%d", task.SortOrder+1))
	}
	if task.CreatedAt != "" {
		meta("Created", task.CreatedAt)
	}
	if task.UpdatedAt != "" {
		meta("Updated", task.UpdatedAt)
	}

	sepStyle := lipgloss.NewStyle().Foreground(theme.ColorSubtle)
	separator := sepStyle.Render(strings.Repeat("─", max(0, min(m.width-4, 80))))
	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(theme.ColorWhite)
	dim := lipgloss.NewStyle().Foreground(theme.ColorGray).Italic(true)

	sections = append(sections, "", separator, "", headerStyle.Render("Description"), "")
	if task.Description == "" {
		sections = append(sections, dim.Render("No description"))
	} else {
		sections = append(sections, task.Description)
	}

	sections = append(sections, "", separator, "", headerStyle.Render("History"), "")
	switch {
	case m.loading && len(m.history) == 0:
		sections = append(sections, dim.Render("Loading..."))
	case len(m.history) == 0:
		sections = append(sections, dim.Render("No events"))
	default:
		for _, e := range m.history {
			line := fmt.Sprintf("%s  %s",
				metaStyle.Render(e.Date),
				theme.PlanStatusStyle(e.Action).Render(e.Action),
			)
			sections = append(sections, line)
			if e.AIReasoning != "" {
				sections = append(sections, "    "+dim.Render(e.AIReasoning))
			}
		}
	}

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// SetSize updates the detail view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.viewport.Width = width
	m.viewport.Height = height - 2
	m.viewport.SetContent(m.renderContent())
}
