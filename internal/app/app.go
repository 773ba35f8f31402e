package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/deletion-planner/internal/client"
	"github.com/nhle/deletion-planner/internal/keys"
	"github.com/nhle/deletion-planner/internal/logger"
	"github.com/nhle/deletion-planner/internal/model"
	"github.com/nhle/deletion-planner/internal/plan"
	"github.com/nhle/deletion-planner/internal/reorder"
	"github.com/nhle/deletion-planner/internal/suggest"
	"github.com/nhle/deletion-planner/internal/tasks"
	"github.com/nhle/deletion-planner/internal/ui"
	"github.com/nhle/deletion-planner/internal/ui/command"
	"github.com/nhle/deletion-planner/internal/ui/detail"
	helpview "github.com/nhle/deletion-planner/internal/ui/help"
	"github.com/nhle/deletion-planner/internal/ui/insights"
	"github.com/nhle/deletion-planner/internal/ui/planview"
	"github.com/nhle/deletion-planner/internal/ui/suggestions"
	"github.com/nhle/deletion-planner/internal/ui/taskform"
	"github.com/nhle/deletion-planner/internal/ui/tasklist"
)

// ViewState represents the current active view in the application.
type ViewState int

const (
	ViewTasks ViewState = iota
	ViewPlan
	ViewSuggestions
	ViewInsights
	ViewHelp
	ViewCommand
	ViewTaskForm
	ViewDetail
)

// tabViews are the views reachable with tab, in order.
var tabViews = []ViewState{ViewTasks, ViewPlan, ViewSuggestions, ViewInsights}

// Deps are the components the TUI drives. All of them are shared with
// the caller, which owns their lifetime.
type Deps struct {
	API      client.API
	Tasks    *tasks.Store
	Plan     *plan.Controller
	Resolver *suggest.Resolver
	Engine   *reorder.Engine
}

// feeds bridge component observers into the Bubble Tea loop. They live on
// the heap so every copy of Model shares them.
type feeds struct {
	tasks       *ui.Feed[tasks.Snapshot]
	plan        *ui.Feed[plan.View]
	suggestions *ui.Feed[[]model.DeletionSuggestion]
	cancels     []func()
}

// Model is the root Bubble Tea model that manages view routing,
// layout, and the status line.
type Model struct {
	deps         Deps
	feeds        *feeds
	currentView  ViewState
	previousView ViewState
	layout       ui.Layout
	keys         *keys.KeyMap
	taskList     tasklist.Model
	planView     planview.Model
	suggestView  suggestions.Model
	insightsView insights.Model
	helpView     helpview.Model
	commandView  command.Model
	taskForm     taskform.Model
	detailView   detail.Model
	ready        bool
	status       string
	errText      string
}

// New creates the root model and subscribes to the components in deps.
func New(deps Deps) Model {
	k := keys.DefaultKeyMap()

	f := &feeds{
		tasks:       ui.NewFeed[tasks.Snapshot](),
		plan:        ui.NewFeed[plan.View](),
		suggestions: ui.NewFeed[[]model.DeletionSuggestion](),
	}
	f.cancels = append(f.cancels,
		deps.Tasks.Subscribe(f.tasks.Push),
		deps.Plan.Subscribe(f.plan.Push),
		deps.Resolver.Queue().Subscribe(f.suggestions.Push),
	)

	return Model{
		deps:         deps,
		feeds:        f,
		currentView:  ViewTasks,
		keys:         k,
		taskList:     tasklist.New(deps.Tasks, deps.Engine, k, 80, 24),
		planView:     planview.New(deps.Plan, k, 80, 24),
		suggestView:  suggestions.New(deps.Resolver, k, 80, 24),
		insightsView: insights.New(deps.API, k, 80, 24),
		helpView:     helpview.New(k, 80, 24),
		commandView:  command.New(80, 24),
		taskForm:     taskform.New(80, 24),
		detailView:   detail.New(deps.API, deps.Tasks, k, 80, 24),
	}
}

// Init loads the task list and today's plan and starts listening for
// component changes.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.taskList.Init(),
		m.planView.Init(),
		m.waitTasks(),
		m.waitPlan(),
		m.waitSuggestions(),
	)
}

func (m Model) waitTasks() tea.Cmd {
	return m.feeds.tasks.Next(func(s tasks.Snapshot) tea.Msg {
		return tasklist.SnapshotMsg{Snapshot: s}
	})
}

func (m Model) waitPlan() tea.Cmd {
	return m.feeds.plan.Next(func(v plan.View) tea.Msg {
		return planview.ViewMsg{View: v}
	})
}

func (m Model) waitSuggestions() tea.Cmd {
	return m.feeds.suggestions.Next(func(items []model.DeletionSuggestion) tea.Msg {
		return suggestions.ItemsMsg{Items: items}
	})
}

// Update handles messages and dispatches to the active view.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.layout = ui.NewLayout(msg.Width, msg.Height)
		m.ready = true
		w, h := m.layout.ContentWidth(), m.layout.ContentHeight()
		m.taskList.SetSize(w, h)
		m.planView.SetSize(w, h)
		m.suggestView.SetSize(w, h)
		m.insightsView.SetSize(w, h)
		m.helpView.SetSize(w, h)
		m.commandView.SetSize(w, h)
		m.taskForm.SetSize(w, h)
		m.detailView.SetSize(w, h)
		// Forward to active view so huh forms can calculate their layout.
		return m.updateActiveView(msg)

	case tasklist.SnapshotMsg:
		var cmd tea.Cmd
		m.taskList, cmd = m.taskList.Update(msg)
		return m, tea.Batch(cmd, m.waitTasks())

	case planview.ViewMsg:
		var cmd tea.Cmd
		m.planView, cmd = m.planView.Update(msg)
		return m, tea.Batch(cmd, m.waitPlan())

	case suggestions.ItemsMsg:
		var cmd tea.Cmd
		m.suggestView, cmd = m.suggestView.Update(msg)
		return m, tea.Batch(cmd, m.waitSuggestions())

	case ui.StatusMsg:
		if msg.Err != nil {
			m.errText = msg.Err.Error()
			m.status = ""
		} else {
			m.status = msg.Text
		}
		return m, nil

	case planview.FeedbackSentMsg:
		m.status = msg.Text
		m.errText = ""
		return m, m.taskList.Load(m.deps.Tasks.Filter())

	case tasklist.OpenMsg:
		m.previousView = ViewTasks
		m.currentView = ViewDetail
		return m, m.detailView.Show(msg.Task)

	case detail.BackMsg:
		m.currentView = ViewTasks
		return m, nil

	case detail.HistoryMsg, detail.UpdatedMsg:
		var cmd tea.Cmd
		m.detailView, cmd = m.detailView.Update(msg)
		return m, cmd

	case tasklist.NewTaskMsg:
		return m, m.openForm(msg.Batch)

	case taskform.CreateMsg:
		m.currentView = m.previousView
		return m, m.createTask(msg.Task)

	case taskform.BatchMsg:
		m.currentView = m.previousView
		return m, m.batchCreate(msg.Text)

	case taskform.CancelMsg:
		m.currentView = m.previousView
		return m, nil

	case command.CommandMsg:
		m.currentView = m.previousView
		return m, m.executeCommand(string(msg))

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, m.quit()
		}
		m.status = ""
		if m.capturing() {
			return m.updateActiveView(msg)
		}

		switch {
		case key.Matches(msg, m.keys.Quit):
			if m.currentView == ViewHelp {
				m.currentView = m.previousView
				return m, nil
			}
			return m, m.quit()

		case key.Matches(msg, m.keys.Back) && m.errText != "":
			m.errText = ""
			return m, nil

		case key.Matches(msg, m.keys.Help):
			if m.currentView == ViewHelp {
				m.currentView = m.previousView
				return m, nil
			}
			m.previousView = m.currentView
			m.currentView = ViewHelp
			m.helpView.SetCurrent(helpSection(m.previousView))
			return m, nil

		case key.Matches(msg, m.keys.Command):
			m.previousView = m.currentView
			m.currentView = ViewCommand
			return m, m.commandView.Focus()

		case key.Matches(msg, m.keys.NextView):
			return m, m.cycleView(1)

		case key.Matches(msg, m.keys.PrevView):
			return m, m.cycleView(-1)
		}
	}

	// Delegate to active sub-view
	return m.updateActiveView(msg)
}

// helpSection names the help section for view.
func helpSection(view ViewState) string {
	switch view {
	case ViewPlan:
		return "Today's plan"
	case ViewSuggestions:
		return "Suggestions"
	case ViewTasks, ViewDetail:
		return "Tasks"
	default:
		return "General"
	}
}

// capturing reports whether the active view takes every key press.
func (m Model) capturing() bool {
	switch m.currentView {
	case ViewTaskForm:
		return true
	case ViewCommand:
		return true
	case ViewTasks:
		return m.taskList.Capturing()
	case ViewPlan:
		return m.planView.Capturing()
	}
	return false
}

// updateActiveView dispatches the message to the currently active view.
func (m Model) updateActiveView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch m.currentView {
	case ViewTasks:
		m.taskList, cmd = m.taskList.Update(msg)
	case ViewPlan:
		m.planView, cmd = m.planView.Update(msg)
	case ViewSuggestions:
		m.suggestView, cmd = m.suggestView.Update(msg)
	case ViewInsights:
		m.insightsView, cmd = m.insightsView.Update(msg)
	case ViewHelp:
		m.helpView, cmd = m.helpView.Update(msg)
	case ViewCommand:
		if km, ok := msg.(tea.KeyMsg); ok && key.Matches(km, m.keys.Back) {
			m.currentView = m.previousView
			return m, nil
		}
		m.commandView, cmd = m.commandView.Update(msg)
	case ViewTaskForm:
		m.taskForm, cmd = m.taskForm.Update(msg)
	case ViewDetail:
		m.detailView, cmd = m.detailView.Update(msg)
	}

	return m, cmd
}

func (m *Model) cycleView(delta int) tea.Cmd {
	idx := 0
	for i, v := range tabViews {
		if v == m.currentView {
			idx = i
		}
	}
	idx = (idx + delta + len(tabViews)) % len(tabViews)
	return m.switchTo(tabViews[idx])
}

// switchTo activates view and returns the command that refreshes it.
func (m *Model) switchTo(view ViewState) tea.Cmd {
	m.currentView = view
	if view == ViewInsights {
		return m.insightsView.Load()
	}
	return nil
}

func (m *Model) openForm(batch bool) tea.Cmd {
	if m.currentView != ViewTaskForm {
		m.previousView = m.currentView
	}
	m.currentView = ViewTaskForm
	if batch {
		return m.taskForm.StartBatch()
	}
	return m.taskForm.StartCreate()
}

func (m Model) createTask(n model.NewTask) tea.Cmd {
	s := m.deps.Tasks
	return func() tea.Msg {
		ctx := context.Background()
		created, err := s.Create(ctx, n)
		if err != nil {
			return ui.StatusMsg{Err: err}
		}
		if err := s.List(ctx, s.Filter()); err != nil {
			logger.Warn("reloading tasks after create failed", "err", err)
		}
		return ui.StatusMsg{Text: fmt.Sprintf("Created %q", created.Title)}
	}
}

func (m Model) batchCreate(text string) tea.Cmd {
	s := m.deps.Tasks
	return func() tea.Msg {
		ctx := context.Background()
		created, err := s.BatchCreate(ctx, text)
		if err != nil {
			return ui.StatusMsg{Err: err}
		}
		if err := s.List(ctx, s.Filter()); err != nil {
			logger.Warn("reloading tasks after batch create failed", "err", err)
		}
		return ui.StatusMsg{Text: fmt.Sprintf("Created %d tasks", len(created))}
	}
}

// executeCommand handles a command string from the command palette.
func (m *Model) executeCommand(cmd string) tea.Cmd {
	if rest, ok := strings.CutPrefix(cmd, "filter "); ok {
		filter := model.TaskFilter(strings.TrimSpace(rest))
		if !filter.Valid() {
			return ui.Status("", fmt.Errorf("unknown filter %q", rest))
		}
		m.currentView = ViewTasks
		return m.taskList.Load(filter)
	}

	switch cmd {
	case "tasks", "list":
		return m.switchTo(ViewTasks)
	case "plan", "today":
		return m.switchTo(ViewPlan)
	case "suggestions":
		return m.switchTo(ViewSuggestions)
	case "insights", "history", "stats":
		return m.switchTo(ViewInsights)
	case "new", "add":
		return m.openForm(false)
	case "batch":
		return m.openForm(true)
	case "generate":
		m.currentView = ViewPlan
		return m.planView.Generate()
	case "refresh":
		return m.refresh()
	case "quit", "q":
		return m.quit()
	default:
		return ui.Status("", fmt.Errorf("unknown command %q", cmd))
	}
}

func (m Model) refresh() tea.Cmd {
	switch m.currentView {
	case ViewPlan:
		return m.planView.Load()
	case ViewInsights:
		return m.insightsView.Load()
	default:
		return m.taskList.Load(m.deps.Tasks.Filter())
	}
}

// quit drops the subscriptions and stops applying responses before the
// program exits.
func (m Model) quit() tea.Cmd {
	for _, cancel := range m.feeds.cancels {
		cancel()
	}
	m.feeds.cancels = nil
	m.deps.Tasks.Close()
	m.deps.Plan.Close()
	return tea.Quit
}

// View renders the full terminal UI using the layout manager.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	header := m.layout.RenderHeader("Deletion Planner", m.headerStatus())
	tabs := m.layout.RenderTabs(m.tabLabels(), m.activeTab())
	content := m.renderContent()

	var statusBar string
	if m.errText != "" {
		statusBar = m.layout.RenderErrorBar(m.errText)
	} else {
		statusBar = m.layout.RenderStatusBar(m.keyHints())
	}

	return m.layout.RenderWithFrame(header, tabs, content, statusBar)
}

func (m Model) tabLabels() []string {
	labels := []string{"Tasks", "Today", "Suggestions", "Insights"}
	if n := m.suggestView.Len(); n > 0 {
		labels[2] = fmt.Sprintf("Suggestions (%d)", n)
	}
	return labels
}

func (m Model) activeTab() int {
	view := m.currentView
	if view == ViewHelp || view == ViewCommand || view == ViewTaskForm || view == ViewDetail {
		view = m.previousView
	}
	for i, v := range tabViews {
		if v == view {
			return i
		}
	}
	return 0
}

func (m Model) headerStatus() string {
	if m.deps.Tasks.BatchBusy() {
		return "adding tasks..."
	}
	return model.Today()
}

// renderContent returns the rendered string for the current active view.
func (m Model) renderContent() string {
	switch m.currentView {
	case ViewTasks:
		return m.taskList.View()
	case ViewPlan:
		return m.planView.View()
	case ViewSuggestions:
		return m.suggestView.View()
	case ViewInsights:
		return m.insightsView.View()
	case ViewHelp:
		return m.helpView.View()
	case ViewCommand:
		return m.commandView.View()
	case ViewTaskForm:
		return m.taskForm.View()
	case ViewDetail:
		return m.detailView.View()
	default:
		return ""
	}
}

// keyHints returns the last status message or keyboard shortcut hints
// for the status bar.
func (m Model) keyHints() string {
	if m.status != "" && m.currentView != ViewHelp && m.currentView != ViewCommand {
		return m.status
	}

	switch m.currentView {
	case ViewHelp:
		return "? close help | esc back"
	case ViewCommand:
		return "enter execute | esc back"
	case ViewTaskForm:
		return "enter submit | esc cancel"
	case ViewPlan:
		if m.planView.Capturing() {
			return "c done | s missed | l deferred | u unmark | enter submit | esc cancel"
		}
		return "g generate | f feedback | r refresh | tab next | ? help | q quit"
	case ViewSuggestions:
		return "y delete | n keep | X dismiss all | tab next | q quit"
	case ViewInsights:
		return "j/k scroll | r refresh | tab next | q quit"
	case ViewDetail:
		return "x complete | z defer | r refresh | esc back | q quit"
	default:
		return "enter details | n new | b batch | x complete | z defer | d delete | m move | 1-4 filter | ? help | q quit"
	}
}
