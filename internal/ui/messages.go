package ui

import tea "github.com/charmbracelet/bubbletea"

// StatusMsg reports the outcome of a user action. A non-nil Err is shown
// until dismissed; Text is shown until the next action.
type StatusMsg struct {
	Text string
	Err  error
}

// Status returns a command that emits a StatusMsg.
func Status(text string, err error) tea.Cmd {
	return func() tea.Msg { return StatusMsg{Text: text, Err: err} }
}

// Feed turns observer callbacks into Bubble Tea messages. Only the latest
// value is kept; a slow reader skips intermediate ones.
type Feed[T any] struct {
	ch chan T
}

// NewFeed returns an empty feed.
func NewFeed[T any]() *Feed[T] {
	return &Feed[T]{ch: make(chan T, 1)}
}

// Push replaces any unread value with v. It never blocks.
func (f *Feed[T]) Push(v T) {
	for {
		select {
		case f.ch <- v:
			return
		default:
		}
		select {
		case <-f.ch:
		default:
		}
	}
}

// Next returns a command that waits for the next value and wraps it.
// The caller re-issues Next after each delivery.
func (f *Feed[T]) Next(wrap func(T) tea.Msg) tea.Cmd {
	return func() tea.Msg {
		return wrap(<-f.ch)
	}
}
