package insights

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
	"github.com/nhle/deletion-planner/internal/theme"
	"github.com/nhle/deletion-planner/internal/ui"
)

// historyLimit caps the number of history entries fetched for the view.
const historyLimit = 100

type loadedMsg struct {
	stats   *model.Stats
	history []model.HistoryEntry
}

// Model shows planning statistics and the recent task history grouped by
// day.
type Model struct {
	api      client.API
	keys     *keys.KeyMap
	viewport viewport.Model
	stats    *model.Stats
	history  []model.HistoryEntry
	loaded   bool
	width    int
	height   int
}

// New creates an insights view over api.
func New(api client.API, k *keys.KeyMap, width, height int) Model {
	vp := viewport.New(width, height)
	return Model{
		api:      api,
		keys:     k,
		viewport: vp,
		width:    width,
		height:   height,
	}
}

// Load returns a command that fetches stats and history.
func (m Model) Load() tea.Cmd {
	api := m.api
	return func() tea.Msg {
		ctx := context.Background()
		stats, err := api.Stats(ctx)
		if err != nil {
			return ui.StatusMsg{Err: fmt.Errorf("loading stats: %w", err)}
		}
		history, err := api.History(ctx, model.HistoryQuery{Limit: historyLimit})
		if err != nil {
			return ui.StatusMsg{Err: fmt.Errorf("loading history: %w", err)}
		}
		return loadedMsg{stats: stats, history: history}
	}
}

// Update handles messages for the insights view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case loadedMsg:
		m.stats = msg.stats
		m.history = msg.history
		m.loaded = true
		m.viewport.SetContent(m.renderContent())
		m.viewport.GotoTop()
		return m, nil

	case tea.KeyMsg:
		if key.Matches(msg, m.keys.Refresh) {
			return m, m.Load()
		}
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// View renders the insights view.
func (m Model) View() string {
	if !m.loaded {
		return theme.HelpStyle.Render("Loading insights...")
	}
	return m.viewport.View()
}

func (m Model) renderContent() string {
	var b strings.Builder
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(theme.ColorWhite)

	b.WriteString(titleStyle.Render("Stats"))
	b.WriteString("\n")
	b.WriteString(RenderStats(m.stats))
	b.WriteString("\n\n")

	b.WriteString(titleStyle.Render("History"))
	b.WriteString("\n")
	if len(m.history) == 0 {
		b.WriteString(theme.HelpStyle.Render("No history yet."))
		return b.String()
	}

	dates, grouped := model.GroupHistoryByDate(m.history)
	dateStyle := lipgloss.NewStyle().Foreground(theme.ColorBlue).Bold(true)
	for _, date := range dates {
		b.WriteString(dateStyle.Render(date))
		b.WriteString("\n")
		for _, e := range grouped[date] {
			line := fmt.Sprintf("task #%d %s",
				e.TaskID, theme.PlanStatusStyle(e.Action).Render(e.Action))
			if e.AIReasoning != "" {
				line += " " + theme.HelpStyle.Render(e.AIReasoning)
			}
			b.WriteString(theme.ListItemStyle.Render(line))
			b.WriteString("\n")
		}
	}
	return b.String()
}

// RenderStats formats stats as aligned label/value rows.
func RenderStats(s *model.Stats) string {
	if s == nil {
		return ""
	}
	rows := []struct {
		label string
		value string
	}{
		{"Tasks", fmt.Sprintf("%d", s.TotalTasks)},
		{"Active", fmt.Sprintf("%d", s.ActiveTasks)},
		{"Completed", fmt.Sprintf("%d", s.CompletedTasks)},
		{"Deleted", fmt.Sprintf("%d", s.DeletedTasks)},
		{"Plans", fmt.Sprintf("%d", s.TotalPlans)},
		{"Planned entries", fmt.Sprintf("%d", s.TotalPlanTasks)},
		{"Completed entries", fmt.Sprintf("%d", s.CompletedPlanTasks)},
		{"Completion rate", fmt.Sprintf("%.1f%%", s.CompletionRate)},
	}

	labelStyle := lipgloss.NewStyle().Width(20).Foreground(theme.ColorGray)
	var b strings.Builder
	for i, r := range rows {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(labelStyle.Render(r.label))
		b.WriteString(r.value)
	}
	return b.String()
}

// SetSize updates the view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.viewport.Width = width
	m.viewport.Height = height
}
