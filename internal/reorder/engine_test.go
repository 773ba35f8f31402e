package reorder_test

import (
	"context"
	"errors"
	"testing"

	"github.com/nhle/deletion-planner/internal/client"
	"github.com/nhle/deletion-planner/internal/model"
	"github.com/nhle/deletion-planner/internal/reorder"
	"github.com/nhle/deletion-planner/internal/tasks"
	"github.com/nhle/deletion-planner/tests/testutil"
)

func equal(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestMove(t *testing.T) {
	tests := []struct {
		name     string
		from, to int
		want     []int64
	}{
		{name: "first to last", from: 0, to: 3, want: []int64{2, 3, 4, 1}},
		{name: "last to first", from: 3, to: 0, want: []int64{4, 1, 2, 3}},
		{name: "adjacent down", from: 1, to: 2, want: []int64{1, 3, 2, 4}},
		{name: "adjacent up", from: 2, to: 1, want: []int64{1, 3, 2, 4}},
		{name: "self", from: 2, to: 2, want: []int64{1, 2, 3, 4}},
		{name: "out of range", from: 5, to: 0, want: []int64{1, 2, 3, 4}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := []int64{1, 2, 3, 4}
			got := reorder.Move(in, tt.from, tt.to)
			if !equal(got, tt.want) {
				t.Errorf("Move = %v, want %v", got, tt.want)
			}
			if !equal(in, []int64{1, 2, 3, 4}) {
				t.Errorf("input mutated: %v", in)
			}
		})
	}
}

func setup(t *testing.T) (*testutil.FakeService, *tasks.Store, *reorder.Engine, []model.Task) {
	t.Helper()
	fake := testutil.NewFakeService()
	seeded := fake.Seed("A", "B", "C")
	store := tasks.NewStore(fake)
	if err := store.List(context.Background(), model.FilterActive); err != nil {
		t.Fatal(err)
	}
	return fake, store, reorder.NewEngine(store), seeded
}

func order(s *tasks.Store) []int64 {
	snap := s.Snapshot()
	out := make([]int64, len(snap.Tasks))
	for i, t := range snap.Tasks {
		out[i] = t.ID
	}
	return out
}

func TestDropOnSelfIsNoOp(t *testing.T) {
	fake, _, e, seeded := setup(t)

	e.DragStart(seeded[1].ID)
	e.DragOver(seeded[1].ID)
	moved, err := e.Drop(context.Background(), seeded[1].ID)
	if err != nil || moved {
		t.Fatalf("Drop = %v, %v; want no-op", moved, err)
	}
	if n := fake.Calls(testutil.OpReorderTasks); n != 0 {
		t.Errorf("ReorderTasks called %d times", n)
	}
}

func TestDropWithoutDragIsNoOp(t *testing.T) {
	fake, _, e, seeded := setup(t)

	moved, err := e.Drop(context.Background(), seeded[0].ID)
	if err != nil || moved {
		t.Fatalf("Drop = %v, %v; want no-op", moved, err)
	}
	if n := fake.Calls(testutil.OpReorderTasks); n != 0 {
		t.Errorf("ReorderTasks called %d times", n)
	}
}

func TestDropFirstOntoLast(t *testing.T) {
	fake, store, e, seeded := setup(t)
	a, b, c := seeded[0].ID, seeded[1].ID, seeded[2].ID

	e.DragStart(a)
	e.DragOver(c)
	if got := e.DropIndicator(); got != c {
		t.Errorf("DropIndicator = %d, want %d", got, c)
	}
	if !equal(order(store), []int64{a, b, c}) {
		t.Error("hover changed the order")
	}

	moved, err := e.Drop(context.Background(), c)
	if err != nil || !moved {
		t.Fatalf("Drop = %v, %v", moved, err)
	}
	want := []int64{b, c, a}
	if got := order(store); !equal(got, want) {
		t.Errorf("order = %v, want %v", got, want)
	}
	if n := fake.Calls(testutil.OpReorderTasks); n != 1 {
		t.Errorf("ReorderTasks calls = %d, want 1", n)
	}
	if e.Dragging() != 0 || e.DropIndicator() != 0 {
		t.Error("gesture state not reset")
	}
}

func TestDropFailureReloadsServerOrder(t *testing.T) {
	fake, store, e, seeded := setup(t)
	a, b, c := seeded[0].ID, seeded[1].ID, seeded[2].ID

	boom := &client.Error{Status: 500, Message: "reorder failed"}
	fake.FailNext(testutil.OpReorderTasks, boom)

	e.DragStart(a)
	_, err := e.Drop(context.Background(), c)
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want %v", err, boom)
	}
	if got := order(store); !equal(got, []int64{a, b, c}) {
		t.Errorf("order = %v, want server order", got)
	}
}

func TestDisabledOutsideActive(t *testing.T) {
	fake, store, e, seeded := setup(t)
	if err := store.List(context.Background(), model.FilterAll); err != nil {
		t.Fatal(err)
	}
	if e.Enabled() {
		t.Fatal("enabled over the all filter")
	}

	e.DragStart(seeded[0].ID)
	if e.Dragging() != 0 {
		t.Error("drag started while disabled")
	}
	moved, err := e.Drop(context.Background(), seeded[2].ID)
	if err != nil || moved {
		t.Fatalf("Drop = %v, %v; want no-op", moved, err)
	}
	if n := fake.Calls(testutil.OpReorderTasks); n != 0 {
		t.Errorf("ReorderTasks called %d times", n)
	}
}

func TestCancel(t *testing.T) {
	fake, _, e, seeded := setup(t)

	e.DragStart(seeded[0].ID)
	e.DragOver(seeded[1].ID)
	e.Cancel()

	moved, err := e.Drop(context.Background(), seeded[1].ID)
	if err != nil || moved {
		t.Fatalf("Drop after Cancel = %v, %v", moved, err)
	}
	if n := fake.Calls(testutil.OpReorderTasks); n != 0 {
		t.Errorf("ReorderTasks called %d times", n)
	}
}
