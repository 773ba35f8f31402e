package keys

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the keybindings for the application. Bindings in
// different views may share keys; only the active view reads them.
type KeyMap struct {
	// Navigation
	Down     key.Binding
	Up       key.Binding
	NextView key.Binding
	PrevView key.Binding

	// Back / Quit
	Back key.Binding
	Quit key.Binding

	// Command palette
	Command key.Binding

	// Help toggle
	Help key.Binding

	// Manual refresh
	Refresh key.Binding

	// Task list filters
	FilterActive    key.Binding
	FilterCompleted key.Binding
	FilterDeleted   key.Binding
	FilterAll       key.Binding

	// Task actions
	New      key.Binding
	Batch    key.Binding
	Complete key.Binding
	Defer    key.Binding
	Delete   key.Binding
	Purge    key.Binding
	Move     key.Binding
	Open     key.Binding

	// Plan actions
	Generate     key.Binding
	Feedback     key.Binding
	MarkDone     key.Binding
	MarkMissed   key.Binding
	MarkDeferred key.Binding
	Unmark       key.Binding
	Submit       key.Binding

	// Suggestion actions
	Accept     key.Binding
	Keep       key.Binding
	DismissAll key.Binding
}

// DefaultKeyMap returns the default set of keybindings.
func DefaultKeyMap() *KeyMap {
	return &KeyMap{
		Down: key.NewBinding(
			key.WithKeys("j", "down"),
			key.WithHelp("j/↓", "down"),
		),
		Up: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("k/↑", "up"),
		),
		NextView: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "next view"),
		),
		PrevView: key.NewBinding(
			key.WithKeys("shift+tab"),
			key.WithHelp("shift+tab", "previous view"),
		),
		Back: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "back / dismiss"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q"),
			key.WithHelp("q", "quit"),
		),
		Command: key.NewBinding(
			key.WithKeys(":"),
			key.WithHelp(":", "command palette"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "toggle help"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "refresh"),
		),
		FilterActive: key.NewBinding(
			key.WithKeys("1"),
			key.WithHelp("1", "active"),
		),
		FilterCompleted: key.NewBinding(
			key.WithKeys("2"),
			key.WithHelp("2", "completed"),
		),
		FilterDeleted: key.NewBinding(
			key.WithKeys("3"),
			key.WithHelp("3", "deleted"),
		),
		FilterAll: key.NewBinding(
			key.WithKeys("4"),
			key.WithHelp("4", "all"),
		),
		New: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "new task"),
		),
		Batch: key.NewBinding(
			key.WithKeys("b"),
			key.WithHelp("b", "batch add"),
		),
		Complete: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "complete"),
		),
		Defer: key.NewBinding(
			key.WithKeys("z"),
			key.WithHelp("z", "defer"),
		),
		Delete: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "delete"),
		),
		Purge: key.NewBinding(
			key.WithKeys("D"),
			key.WithHelp("D", "delete permanently"),
		),
		Move: key.NewBinding(
			key.WithKeys("m"),
			key.WithHelp("m", "pick up / drop"),
		),
		Open: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "details"),
		),
		Generate: key.NewBinding(
			key.WithKeys("g"),
			key.WithHelp("g", "generate plan"),
		),
		Feedback: key.NewBinding(
			key.WithKeys("f"),
			key.WithHelp("f", "feedback mode"),
		),
		MarkDone: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "mark done"),
		),
		MarkMissed: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "mark missed"),
		),
		MarkDeferred: key.NewBinding(
			key.WithKeys("l"),
			key.WithHelp("l", "mark deferred"),
		),
		Unmark: key.NewBinding(
			key.WithKeys("u"),
			key.WithHelp("u", "unmark"),
		),
		Submit: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "submit feedback"),
		),
		Accept: key.NewBinding(
			key.WithKeys("y"),
			key.WithHelp("y", "delete suggested task"),
		),
		Keep: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "keep task"),
		),
		DismissAll: key.NewBinding(
			key.WithKeys("X"),
			key.WithHelp("X", "dismiss all"),
		),
	}
}

// ShortHelp returns the most essential keybindings for the compact help view.
func (k *KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{
		k.Up, k.Down, k.NextView, k.Back,
		k.Quit, k.Help, k.Command,
	}
}

// Section is a titled group of bindings shown together in the help view.
type Section struct {
	Title    string
	Bindings []key.Binding
}

// Sections groups the bindings by the view that reads them.
func (k *KeyMap) Sections() []Section {
	return []Section{
		{"General", []key.Binding{k.Up, k.Down, k.NextView, k.PrevView, k.Back, k.Command, k.Help, k.Refresh, k.Quit}},
		{"Tasks", []key.Binding{k.FilterActive, k.FilterCompleted, k.FilterDeleted, k.FilterAll, k.New, k.Batch, k.Open, k.Complete, k.Defer, k.Delete, k.Purge, k.Move}},
		{"Today's plan", []key.Binding{k.Generate, k.Feedback, k.MarkDone, k.MarkMissed, k.MarkDeferred, k.Unmark, k.Submit}},
		{"Suggestions", []key.Binding{k.Accept, k.Keep, k.DismissAll}},
	}
}

// FullHelp returns the bindings of every section, one column each.
func (k *KeyMap) FullHelp() [][]key.Binding {
	sections := k.Sections()
	out := make([][]key.Binding, len(sections))
	for i, s := range sections {
		out[i] = s.Bindings
	}
	return out
}
