package tasklist

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/deletion-planner/internal/keys"
	"github.com/nhle/deletion-planner/internal/model"
	"github.com/nhle/deletion-planner/internal/reorder"
	"github.com/nhle/deletion-planner/internal/tasks"
	"github.com/nhle/deletion-planner/internal/theme"
	"github.com/nhle/deletion-planner/internal/ui"
)

// SnapshotMsg delivers a new task store snapshot to the list.
type SnapshotMsg struct {
	Snapshot tasks.Snapshot
}

// NewTaskMsg asks the parent to open the task form.
type NewTaskMsg struct {
	Batch bool
}

// OpenMsg asks the parent to show the detail view for a task.
type OpenMsg struct {
	Task model.Task
}

type listMode int

const (
	modeList listMode = iota
	modeConfirmPurge
)

// formBindings holds form field values on the heap so that huh's Value()
// pointers remain valid across Bubble Tea model copies.
type formBindings struct {
	confirm bool
}

// Model is the task list view. It renders the task store and turns key
// presses into store calls.
type Model struct {
	list        list.Model
	store       *tasks.Store
	engine      *reorder.Engine
	keys        *keys.KeyMap
	snap        tasks.Snapshot
	mode        listMode
	confirmForm *huh.Form
	fb          *formBindings
	purgeID     int64
	purgeTitle  string
	width       int
	height      int
}

// New creates a new task list model.
func New(s *tasks.Store, e *reorder.Engine, k *keys.KeyMap, width, height int) Model {
	delegate := ItemDelegate{engine: e}
	l := list.New([]list.Item{}, delegate, width, height-2)
	l.SetShowTitle(false)
	l.SetShowStatusBar(true)
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)
	l.KeyMap.Quit.SetEnabled(false)

	return Model{
		list:   l,
		store:  s,
		engine: e,
		keys:   k,
		snap:   s.Snapshot(),
		fb:     &formBindings{},
		width:  width,
		height: height,
	}
}

// Init returns a command that loads the current filter.
func (m Model) Init() tea.Cmd {
	return m.Load(m.snap.Filter)
}

// Capturing reports whether the list owns all key input, so global
// keys must not be intercepted.
func (m Model) Capturing() bool {
	return m.mode != modeList || m.engine.Dragging() != 0
}

// Update handles messages for the task list view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case SnapshotMsg:
		m.snap = msg.Snapshot
		items := make([]list.Item, len(msg.Snapshot.Tasks))
		for i, t := range msg.Snapshot.Tasks {
			items[i] = TaskItem{Task: t}
		}
		return m, m.list.SetItems(items)

	case tea.KeyMsg:
		if m.mode == modeConfirmPurge {
			return m.updateConfirm(msg)
		}
		if m.engine.Dragging() != 0 {
			return m.handleDragKeys(msg)
		}
		return m.handleNormalKeys(msg)
	}

	if m.mode == modeConfirmPurge {
		return m.updateConfirm(msg)
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) handleNormalKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.FilterActive):
		return m, m.Load(model.FilterActive)
	case key.Matches(msg, m.keys.FilterCompleted):
		return m, m.Load(model.FilterCompleted)
	case key.Matches(msg, m.keys.FilterDeleted):
		return m, m.Load(model.FilterDeleted)
	case key.Matches(msg, m.keys.FilterAll):
		return m, m.Load(model.FilterAll)
	case key.Matches(msg, m.keys.Refresh):
		return m, m.Load(m.snap.Filter)

	case key.Matches(msg, m.keys.New):
		return m, func() tea.Msg { return NewTaskMsg{} }
	case key.Matches(msg, m.keys.Batch):
		if m.store.BatchBusy() {
			return m, ui.Status("", fmt.Errorf("a batch is already being created"))
		}
		return m, func() tea.Msg { return NewTaskMsg{Batch: true} }
	}

	t, ok := m.SelectedTask()
	if !ok {
		var cmd tea.Cmd
		m.list, cmd = m.list.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.Open):
		return m, func() tea.Msg { return OpenMsg{Task: t} }

	case key.Matches(msg, m.keys.Complete):
		if t.Status == model.TaskStatusCompleted {
			return m, nil
		}
		return m, m.complete(t)

	case key.Matches(msg, m.keys.Defer):
		return m, m.deferTask(t)

	case key.Matches(msg, m.keys.Delete):
		if t.Status == model.TaskStatusDeleted {
			return m.startPurge(t)
		}
		return m, m.softDelete(t)

	case key.Matches(msg, m.keys.Purge):
		return m.startPurge(t)

	case key.Matches(msg, m.keys.Move):
		if !m.engine.Enabled() {
			return m, ui.Status("", model.ErrReorderBlocked)
		}
		m.engine.DragStart(t.ID)
		return m, nil
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// handleDragKeys moves the cursor as the drop target while a task is
// picked up.
func (m Model) handleDragKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Back):
		m.engine.Cancel()
		return m, nil

	case key.Matches(msg, m.keys.Move):
		t, ok := m.SelectedTask()
		if !ok {
			m.engine.Cancel()
			return m, nil
		}
		return m, m.drop(t.ID)

	case key.Matches(msg, m.keys.Up), key.Matches(msg, m.keys.Down):
		var cmd tea.Cmd
		m.list, cmd = m.list.Update(msg)
		if t, ok := m.SelectedTask(); ok {
			m.engine.DragOver(t.ID)
		}
		return m, cmd
	}
	return m, nil
}

func (m Model) startPurge(t model.Task) (Model, tea.Cmd) {
	m.fb.confirm = false
	m.purgeID = t.ID
	m.purgeTitle = t.Title
	m.confirmForm = m.buildConfirmForm()
	m.mode = modeConfirmPurge
	return m, m.confirmForm.Init()
}

func (m Model) buildConfirmForm() *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(fmt.Sprintf("Permanently delete %q?", m.purgeTitle)).
				Description("The task and its history cannot be recovered.").
				Affirmative("Yes, delete").
				Negative("Cancel").
				Value(&m.fb.confirm),
		),
	).WithWidth(m.formWidth())
}

func (m Model) updateConfirm(msg tea.Msg) (Model, tea.Cmd) {
	if m.confirmForm == nil {
		m.mode = modeList
		return m, nil
	}
	mdl, cmd := m.confirmForm.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.confirmForm = f
	}
	if m.confirmForm.State == huh.StateCompleted {
		m.mode = modeList
		if m.fb.confirm {
			return m, m.hardDelete(m.purgeID, m.purgeTitle)
		}
		return m, nil
	}
	if m.confirmForm.State == huh.StateAborted {
		m.mode = modeList
		return m, nil
	}
	return m, cmd
}

// Load returns a command that lists tasks for filter.
func (m Model) Load(filter model.TaskFilter) tea.Cmd {
	s := m.store
	return func() tea.Msg {
		if err := s.List(context.Background(), filter); err != nil {
			return ui.StatusMsg{Err: fmt.Errorf("loading %s tasks: %w", filter, err)}
		}
		return nil
	}
}

func (m Model) complete(t model.Task) tea.Cmd {
	s := m.store
	return func() tea.Msg {
		if _, err := s.Complete(context.Background(), t.ID); err != nil {
			return ui.StatusMsg{Err: err}
		}
		return ui.StatusMsg{Text: fmt.Sprintf("Completed %q", t.Title)}
	}
}

func (m Model) deferTask(t model.Task) tea.Cmd {
	s := m.store
	return func() tea.Msg {
		updated, err := s.Defer(context.Background(), t.ID)
		if err != nil {
			return ui.StatusMsg{Err: err}
		}
		return ui.StatusMsg{Text: fmt.Sprintf("Deferred %q (%d times)", t.Title, updated.DeferralCount)}
	}
}

func (m Model) softDelete(t model.Task) tea.Cmd {
	s := m.store
	return func() tea.Msg {
		if err := s.Delete(context.Background(), t.ID, false); err != nil {
			return ui.StatusMsg{Err: err}
		}
		return ui.StatusMsg{Text: fmt.Sprintf("Deleted %q", t.Title)}
	}
}

func (m Model) hardDelete(id int64, title string) tea.Cmd {
	s := m.store
	return func() tea.Msg {
		if err := s.Delete(context.Background(), id, true); err != nil {
			return ui.StatusMsg{Err: err}
		}
		return ui.StatusMsg{Text: fmt.Sprintf("Permanently deleted %q", title)}
	}
}

func (m Model) drop(target int64) tea.Cmd {
	e := m.engine
	return func() tea.Msg {
		moved, err := e.Drop(context.Background(), target)
		if err != nil {
			return ui.StatusMsg{Err: fmt.Errorf("reordering tasks: %w", err)}
		}
		if !moved {
			return nil
		}
		return ui.StatusMsg{Text: "Order saved"}
	}
}

// SelectedTask returns the task under the cursor.
func (m Model) SelectedTask() (model.Task, bool) {
	item, ok := m.list.SelectedItem().(TaskItem)
	if !ok {
		return model.Task{}, false
	}
	return item.Task, true
}

// View renders the task list view.
func (m Model) View() string {
	if m.mode == modeConfirmPurge && m.confirmForm != nil {
		return lipgloss.NewStyle().Padding(1, 2).Render(m.confirmForm.View())
	}

	tabs := m.renderFilterTabs()
	if !m.snap.Loaded {
		return lipgloss.JoinVertical(lipgloss.Left, tabs, m.renderPlaceholder("Loading tasks..."))
	}
	if len(m.list.Items()) == 0 {
		return lipgloss.JoinVertical(lipgloss.Left, tabs, m.renderEmptyState())
	}
	return lipgloss.JoinVertical(lipgloss.Left, tabs, m.list.View())
}

func (m Model) renderFilterTabs() string {
	parts := make([]string, 0, len(model.Filters)+1)
	for i, f := range model.Filters {
		label := fmt.Sprintf("%d %s", i+1, f)
		if f == m.snap.Filter {
			parts = append(parts, theme.ActiveTabStyle.Render(label))
		} else {
			parts = append(parts, theme.TabStyle.Render(label))
		}
	}

	var notes []string
	if m.snap.FromCache {
		notes = append(notes, "cached "+m.snap.FetchedAt.Format("Jan 02 15:04"))
	}
	if m.snap.Unconfirmed {
		notes = append(notes, "saving order...")
	}
	if m.engine.Dragging() != 0 {
		notes = append(notes, "moving: m drop, esc cancel")
	}
	if len(notes) > 0 {
		parts = append(parts, theme.HelpStyle.Render(strings.Join(notes, " · ")))
	}
	return strings.Join(parts, " ")
}

func (m Model) renderEmptyState() string {
	if m.snap.Filter == model.FilterActive {
		return m.renderPlaceholder("No active tasks.\n\nPress n to add one or b to paste a list.")
	}
	return m.renderPlaceholder(fmt.Sprintf("No %s tasks.", m.snap.Filter))
}

func (m Model) renderPlaceholder(text string) string {
	return lipgloss.NewStyle().
		Width(m.width).
		Height(m.height-2).
		Align(lipgloss.Center, lipgloss.Center).
		Foreground(theme.ColorGray).
		Render(text)
}

// SetSize updates the list dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.list.SetSize(width, height-2)
}

func (m Model) formWidth() int {
	w := m.width - 4
	if w < 40 {
		w = 40
	}
	if w > 100 {
		w = 100
	}
	return w
}
