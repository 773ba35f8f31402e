package suggestions

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/deletion-planner/internal/keys"
	"github.com/nhle/deletion-planner/internal/model"
	"github.com/nhle/deletion-planner/internal/suggest"
	"github.com/nhle/deletion-planner/internal/theme"
	"github.com/nhle/deletion-planner/internal/ui"
)

// ItemsMsg delivers the current suggestion queue.
type ItemsMsg struct {
	Items []model.DeletionSuggestion
}

// Model lists pending deletion suggestions. Accepting one deletes the
// task permanently; the key press is the confirmation.
type Model struct {
	resolver *suggest.Resolver
	keys     *keys.KeyMap
	items    []model.DeletionSuggestion
	cursor   int
	width    int
	height   int
}

// New creates a suggestions view over r.
func New(r *suggest.Resolver, k *keys.KeyMap, width, height int) Model {
	return Model{
		resolver: r,
		keys:     k,
		items:    r.Queue().Items(),
		width:    width,
		height:   height,
	}
}

// Len returns the number of pending suggestions.
func (m Model) Len() int {
	return len(m.items)
}

// Update handles messages for the suggestions view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case ItemsMsg:
		m.items = msg.Items
		if m.cursor >= len(m.items) {
			m.cursor = len(m.items) - 1
		}
		if m.cursor < 0 {
			m.cursor = 0
		}
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Up):
			if m.cursor > 0 {
				m.cursor--
			}
		case key.Matches(msg, m.keys.Down):
			if m.cursor < len(m.items)-1 {
				m.cursor++
			}
		case key.Matches(msg, m.keys.Accept):
			if s, ok := m.selected(); ok {
				return m, m.accept(s)
			}
		case key.Matches(msg, m.keys.Keep):
			if s, ok := m.selected(); ok {
				m.resolver.Keep(s.ID)
				return m, ui.Status(fmt.Sprintf("Kept %q", s.Title), nil)
			}
		case key.Matches(msg, m.keys.DismissAll):
			if len(m.items) > 0 {
				m.resolver.DismissAll()
				return m, ui.Status("Dismissed all suggestions", nil)
			}
		}
	}
	return m, nil
}

func (m Model) selected() (model.DeletionSuggestion, bool) {
	if m.cursor < 0 || m.cursor >= len(m.items) {
		return model.DeletionSuggestion{}, false
	}
	return m.items[m.cursor], true
}

func (m Model) accept(s model.DeletionSuggestion) tea.Cmd {
	r := m.resolver
	return func() tea.Msg {
		if err := r.Accept(context.Background(), s.ID); err != nil {
			return ui.StatusMsg{Err: fmt.Errorf("deleting %q: %w", s.Title, err)}
		}
		return ui.StatusMsg{Text: fmt.Sprintf("Deleted %q", s.Title)}
	}
}

// View renders the suggestions view.
func (m Model) View() string {
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(theme.ColorRed).MarginBottom(1)

	if len(m.items) == 0 {
		return lipgloss.JoinVertical(lipgloss.Left,
			titleStyle.Render("Deletion Suggestions"),
			theme.HelpStyle.Render("No suggestions. Tasks that keep getting deferred or missed show up here."),
		)
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("Deletion Suggestions (%d)", len(m.items))))
	b.WriteString("\n")

	for i, s := range m.items {
		name := s.Title
		if i == m.cursor {
			name = theme.SelectedItemStyle.Render(name)
		} else {
			name = theme.ListItemStyle.Render(name)
		}
		b.WriteString(name)
		b.WriteString("\n")

		if s.DeletionReasoning != "" {
			b.WriteString(theme.ListItemStyle.Render(theme.HelpStyle.Render(s.DeletionReasoning)))
			b.WriteString("\n")
		}
		if len(s.TriggerReasons) > 0 {
			b.WriteString(theme.ListItemStyle.Render(
				lipgloss.NewStyle().Foreground(theme.ColorYellow).Render("• " + strings.Join(s.TriggerReasons, " • ")),
			))
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(theme.HelpStyle.Render("y delete permanently · n keep · X dismiss all"))

	return theme.WarningPanelStyle.Width(m.width - 4).Render(b.String())
}

// SetSize updates the view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}
