package tasklist

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/deletion-planner/internal/model"
	"github.com/nhle/deletion-planner/internal/reorder"
	"github.com/nhle/deletion-planner/internal/theme"
)

// TaskItem wraps a model.Task so it can be used in a bubbles/list.
type TaskItem struct {
	Task model.Task
}

// FilterValue returns the string used for fuzzy filtering.
func (i TaskItem) FilterValue() string { return i.Task.Title }

// Title returns the task title for the list.
func (i TaskItem) Title() string { return i.Task.Title }

// Description returns a short summary line for the list.
func (i TaskItem) Description() string {
	parts := []string{
		string(i.Task.Status),
		i.Task.Priority.Label(),
		i.Task.Category.Label(),
	}
	if i.Task.DeferralCount > 0 {
		parts = append(parts, fmt.Sprintf("deferred %dx", i.Task.DeferralCount))
	}
	return strings.Join(parts, " | ")
}

// ItemDelegate implements list.ItemDelegate for rendering task rows.
// While a task is being moved it marks the picked row and the row it
// would land on.
type ItemDelegate struct {
	engine *reorder.Engine
}

// Height returns the number of lines each item takes.
func (d ItemDelegate) Height() int { return 1 }

// Spacing returns the number of blank lines between items.
func (d ItemDelegate) Spacing() int { return 0 }

// Update handles per-item messages (unused).
func (d ItemDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd {
	return nil
}

// Render draws a single task row.
func (d ItemDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	ti, ok := item.(TaskItem)
	if !ok {
		return
	}
	t := ti.Task
	isSelected := index == m.Index()

	var dragging, target int64
	if d.engine != nil {
		dragging = d.engine.Dragging()
		target = d.engine.DropIndicator()
	}

	prefix := "○"
	switch {
	case dragging != 0 && t.ID == dragging:
		prefix = "↕"
	case t.Status == model.TaskStatusCompleted:
		prefix = "✓"
	case t.Status == model.TaskStatusDeleted:
		prefix = "✗"
	}

	priBadge := theme.PriorityStyle(int(t.Priority)).Render(priorityLabel(t.Priority))
	catBadge := theme.CategoryStyle(string(t.Category)).Render(t.Category.Label())

	deferrals := ""
	if t.DeferralCount > 0 {
		deferrals = lipgloss.NewStyle().
			Foreground(theme.ColorYellow).
			Render(fmt.Sprintf(" ↻%d", t.DeferralCount))
	}

	line := fmt.Sprintf("%s %s %s%s%s", prefix, priBadge, t.Title, catBadge, deferrals)
	if t.Status != model.TaskStatusActive {
		line = fmt.Sprintf("%s %s", line, theme.TaskStatusStyle(string(t.Status)).Render(string(t.Status)))
	}

	if t.Status == model.TaskStatusDeleted {
		line = theme.DimmedStyle.Render(line)
	}

	switch {
	case target != 0 && t.ID == target && t.ID != dragging:
		line = theme.DropTargetStyle.Render(line)
	case isSelected:
		line = theme.SelectedItemStyle.Render(line)
	default:
		line = theme.ListItemStyle.Render(line)
	}

	fmt.Fprint(w, line)
}

// priorityLabel returns a short label for the given priority band.
func priorityLabel(p model.Priority) string {
	switch p {
	case model.PriorityUrgent:
		return "!!!"
	case model.PriorityHigh:
		return "!! "
	case model.PriorityMedium:
		return "!  "
	default:
		return "·  "
	}
}
