package ui

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

type valueMsg struct{ n int }

func TestFeedKeepsLatestValue(t *testing.T) {
	f := NewFeed[int]()
	f.Push(1)
	f.Push(2)
	f.Push(3)

	msg := f.Next(func(n int) tea.Msg { return valueMsg{n: n} })()
	if got := msg.(valueMsg).n; got != 3 {
		t.Errorf("got %d, want 3", got)
	}
}

func TestLayoutContentHeightNeverNegative(t *testing.T) {
	l := NewLayout(80, 2)
	if got := l.ContentHeight(); got != 0 {
		t.Errorf("ContentHeight() = %d, want 0", got)
	}
	l = NewLayout(80, 24)
	if got := l.ContentHeight(); got != 21 {
		t.Errorf("ContentHeight() = %d, want 21", got)
	}
}
