package taskform

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/deletion-planner/internal/model"
	"github.com/nhle/deletion-planner/internal/theme"
)

// CreateMsg is dispatched when a single task is submitted via the form.
type CreateMsg struct {
	Task model.NewTask
}

// BatchMsg is dispatched when a batch of task lines is submitted.
type BatchMsg struct {
	Text string
}

// CancelMsg is dispatched when the user cancels the form.
type CancelMsg struct{}

// formBindings holds form field values on the heap so that huh's Value()
// pointers remain valid across Bubble Tea model copies.
type formBindings struct {
	title       string
	description string
	priority    model.Priority
	category    model.Category
	batch       string
}

// Model is the Bubble Tea model for the task creation form.
type Model struct {
	form   *huh.Form
	fb     *formBindings
	batch  bool
	width  int
	height int
}

// New creates a new task form model.
func New(width, height int) Model {
	return Model{
		fb:     &formBindings{category: model.CategoryUnclassified},
		width:  width,
		height: height,
	}
}

// StartCreate initializes the form for a single task.
func (m *Model) StartCreate() tea.Cmd {
	m.batch = false
	m.fb.title = ""
	m.fb.description = ""
	m.fb.priority = model.PriorityLow
	m.fb.category = model.CategoryUnclassified
	m.form = m.buildCreateForm()
	return m.form.Init()
}

// StartBatch initializes the form for pasting one task per line.
func (m *Model) StartBatch() tea.Cmd {
	m.batch = true
	m.fb.batch = ""
	m.form = m.buildBatchForm()
	return m.form.Init()
}

// Update handles messages for the task form.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if m.form == nil {
		return m, nil
	}

	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State == huh.StateCompleted {
		return m, m.handleSubmit()
	}
	if m.form.State == huh.StateAborted {
		return m, func() tea.Msg { return CancelMsg{} }
	}

	return m, cmd
}

// View renders the task form.
func (m Model) View() string {
	if m.form == nil {
		return ""
	}

	titleText := "New Task"
	if m.batch {
		titleText = "Add Tasks (one per line)"
	}

	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1)

	content := titleStyle.Render(titleText) + "\n" + m.form.View()

	return lipgloss.NewStyle().
		Padding(1, 2).
		Render(content)
}

// SetSize updates the form dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

func (m *Model) buildCreateForm() *huh.Form {
	priorities := make([]huh.Option[model.Priority], len(model.Priorities))
	for i, p := range model.Priorities {
		priorities[i] = huh.NewOption(p.Label(), p)
	}
	categories := make([]huh.Option[model.Category], len(model.Categories))
	for i, c := range model.Categories {
		categories[i] = huh.NewOption(c.Label(), c)
	}

	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Title").
				Placeholder("What needs to be done?").
				Value(&m.fb.title).
				Validate(validateRequired("Title")),
			huh.NewText().
				Title("Description").
				Placeholder("Optional details...").
				Value(&m.fb.description),
			huh.NewSelect[model.Priority]().
				Title("Priority").
				Options(priorities...).
				Value(&m.fb.priority),
			huh.NewSelect[model.Category]().
				Title("Category").
				Options(categories...).
				Value(&m.fb.category),
		),
	).WithWidth(m.formWidth()).WithHeight(m.formHeight())
}

func (m *Model) buildBatchForm() *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewText().
				Title("Tasks").
				Placeholder("Buy milk\nCall the bank\nRenew passport").
				Lines(10).
				Value(&m.fb.batch).
				Validate(validateLines),
		),
	).WithWidth(m.formWidth()).WithHeight(m.formHeight())
}

func (m Model) handleSubmit() tea.Cmd {
	if m.batch {
		text := m.fb.batch
		return func() tea.Msg { return BatchMsg{Text: text} }
	}

	task := model.NewTask{
		Title:       strings.TrimSpace(m.fb.title),
		Description: strings.TrimSpace(m.fb.description),
		Priority:    m.fb.priority,
		Category:    m.fb.category,
	}
	return func() tea.Msg { return CreateMsg{Task: task} }
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

func (m Model) formHeight() int {
	h := m.height - 4
	if h < 10 {
		h = 10
	}
	return h
}

func validateRequired(fieldName string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", fieldName)
		}
		return nil
	}
}

func validateLines(s string) error {
	for _, line := range strings.Split(s, "\n") {
		if strings.TrimSpace(line) != "" {
			return nil
		}
	}
	return fmt.Errorf("enter at least one task")
}
