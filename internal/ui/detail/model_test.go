package detail

import (
	"context"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/deletion-planner/internal/keys"
	"github.com/nhle/deletion-planner/internal/model"
	"github.com/nhle/deletion-planner/internal/tasks"
	"github.com/nhle/deletion-planner/tests/testutil"
)

func newDetail(t *testing.T) (Model, *testutil.FakeService, *tasks.Store) {
	t.Helper()
	fake := testutil.NewFakeService()
	s := tasks.NewStore(fake)
	t.Cleanup(s.Close)
	return New(fake, s, keys.DefaultKeyMap(), 80, 30), fake, s
}

func TestShowLoadsHistory(t *testing.T) {
	m, fake, _ := newDetail(t)
	task := fake.Seed("Renew passport")[0]

	cmd := m.Show(task)
	if !strings.Contains(m.View(), "Renew passport") {
		t.Fatalf("view missing title:\n%s", m.View())
	}

	msg := cmd()
	hm, ok := msg.(HistoryMsg)
	if !ok {
		t.Fatalf("msg = %T, want HistoryMsg", msg)
	}
	if hm.TaskID != task.ID || len(hm.History) == 0 {
		t.Fatalf("history = %+v", hm)
	}

	m, _ = m.Update(hm)
	if !strings.Contains(m.View(), model.ActionCreated) {
		t.Errorf("view missing created event:\n%s", m.View())
	}
}

func TestHistoryForOtherTaskIgnored(t *testing.T) {
	m, fake, _ := newDetail(t)
	seeded := fake.Seed("A", "B")
	m.Show(seeded[0])

	m, _ = m.Update(HistoryMsg{TaskID: seeded[1].ID, History: []model.HistoryEntry{
		{TaskID: seeded[1].ID, Date: "2026-01-01", Action: model.ActionDeferred},
	}})
	if strings.Contains(m.View(), model.ActionDeferred) {
		t.Error("history of another task was rendered")
	}
}

func TestCompleteKeyUpdatesTask(t *testing.T) {
	m, fake, s := newDetail(t)
	task := fake.Seed("A")[0]
	if err := s.List(context.Background(), model.FilterActive); err != nil {
		t.Fatal(err)
	}
	m.Show(task)

	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("x")})
	if cmd == nil {
		t.Fatal("complete key returned no command")
	}
	msg := cmd()
	um, ok := msg.(UpdatedMsg)
	if !ok {
		t.Fatalf("msg = %T (%v), want UpdatedMsg", msg, msg)
	}
	if um.Task.Status != model.TaskStatusCompleted {
		t.Errorf("status = %s, want completed", um.Task.Status)
	}

	m, _ = m.Update(um)
	got, _ := m.Task()
	if got.Status != model.TaskStatusCompleted {
		t.Errorf("displayed status = %s", got.Status)
	}
	if _, ok := s.Find(task.ID); ok {
		t.Error("completed task still in the active collection")
	}
}

func TestCompleteIgnoredForInactiveTask(t *testing.T) {
	m, fake, _ := newDetail(t)
	task := fake.Seed("A")[0]
	task.Status = model.TaskStatusDeleted
	m.Show(task)

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("x")})
	if cmd != nil {
		if _, ok := cmd().(UpdatedMsg); ok {
			t.Fatal("deleted task was completed")
		}
	}
	if n := fake.Calls(testutil.OpUpdateTask); n != 0 {
		t.Errorf("UpdateTask called %d times", n)
	}
}

func TestBackKey(t *testing.T) {
	m, _, _ := newDetail(t)
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if cmd == nil {
		t.Fatal("esc returned no command")
	}
	if _, ok := cmd().(BackMsg); !ok {
		t.Error("esc did not produce BackMsg")
	}
}
