package help

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/deletion-planner/internal/keys"
	"github.com/nhle/deletion-planner/internal/theme"
)

// Model is the help overlay view. Bindings are listed per view, and the
// section of the view help was opened from comes first.
type Model struct {
	keys    *keys.KeyMap
	help    help.Model
	current string
	width   int
	height  int
}

// New creates a new help view model.
func New(keys *keys.KeyMap, width, height int) Model {
	h := help.New()
	h.Width = width
	return Model{
		keys:   keys,
		help:   h,
		width:  width,
		height: height,
	}
}

// Init returns the initial command.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages for the help view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	return m, nil
}

// SetCurrent marks the section titled title as the one for the view help
// was opened from. An unknown title leaves the default order.
func (m *Model) SetCurrent(title string) {
	m.current = title
}

// Sections returns the key map sections in display order.
func (m Model) Sections() []keys.Section {
	sections := m.keys.Sections()
	for i, s := range sections {
		if s.Title == m.current && i > 0 {
			ordered := append([]keys.Section{s}, sections[:i]...)
			return append(ordered, sections[i+1:]...)
		}
	}
	return sections
}

// View renders the help overlay.
func (m Model) View() string {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1)
	sectionStyle := lipgloss.NewStyle().Bold(true).Foreground(theme.ColorGray)
	currentStyle := sectionStyle.Foreground(theme.ColorBlue)

	parts := []string{titleStyle.Render("Keyboard Shortcuts")}
	for _, s := range m.Sections() {
		style := sectionStyle
		if s.Title == m.current {
			style = currentStyle
		}
		parts = append(parts, style.Render(s.Title))

		var rows []string
		for _, b := range s.Bindings {
			h := b.Help()
			rows = append(rows, fmt.Sprintf("  %s %s",
				m.help.Styles.FullKey.Render(fmt.Sprintf("%-10s", h.Key)),
				m.help.Styles.FullDesc.Render(h.Desc),
			))
		}
		parts = append(parts, strings.Join(rows, "\n"), "")
	}

	content := lipgloss.JoinVertical(lipgloss.Left, parts...)

	return theme.PanelStyle.
		Width(m.width - 4).
		Height(m.height - 4).
		Render(content)
}

// SetSize updates the help view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.help.Width = width - 4
}
