package store_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/nhle/deletion-planner/internal/model"
	"github.com/nhle/deletion-planner/internal/store"
	"github.com/nhle/deletion-planner/tests/testutil"
)

func TestMigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")

	s, err := store.NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("first open: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	s, err = store.NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("second open: %v", err)
	}
	defer s.Close()
}

func TestLoadTasksWithoutSnapshot(t *testing.T) {
	s := testutil.NewTestStore(t)

	_, _, err := s.LoadTasks(context.Background(), model.FilterActive)
	if !errors.Is(err, store.ErrNoSnapshot) {
		t.Fatalf("err = %v, want ErrNoSnapshot", err)
	}
}

func TestSaveTasksRoundTripKeepsOrder(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	tasks := []model.Task{
		{ID: 3, Title: "C", Status: model.TaskStatusActive, Priority: model.PriorityUrgent, Category: model.CategoryCore, SortOrder: 0},
		{ID: 1, Title: "A", Status: model.TaskStatusActive, DeferralCount: 4, SortOrder: 1},
		{ID: 2, Title: "B", Status: model.TaskStatusActive, Category: model.CategoryDeletionCandidate, SortOrder: 2},
	}
	if err := s.SaveTasks(ctx, model.FilterActive, tasks); err != nil {
		t.Fatalf("SaveTasks: %v", err)
	}

	got, fetchedAt, err := s.LoadTasks(ctx, model.FilterActive)
	if err != nil {
		t.Fatalf("LoadTasks: %v", err)
	}
	if fetchedAt.IsZero() {
		t.Error("fetchedAt is zero")
	}
	if len(got) != 3 {
		t.Fatalf("got %d tasks, want 3", len(got))
	}
	for i, want := range []int64{3, 1, 2} {
		if got[i].ID != want {
			t.Errorf("position %d: id = %d, want %d", i, got[i].ID, want)
		}
	}
	if got[0].Priority != model.PriorityUrgent || got[1].DeferralCount != 4 {
		t.Errorf("fields lost: %+v", got)
	}
}

func TestSaveTasksReplacesPreviousSnapshot(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	if err := s.SaveTasks(ctx, model.FilterDeleted, []model.Task{{ID: 1, Title: "A"}, {ID: 2, Title: "B"}}); err != nil {
		t.Fatal(err)
	}
	if err := s.SaveTasks(ctx, model.FilterDeleted, []model.Task{{ID: 2, Title: "B"}}); err != nil {
		t.Fatal(err)
	}
	if err := s.SaveTasks(ctx, model.FilterActive, []model.Task{{ID: 9, Title: "Z"}}); err != nil {
		t.Fatal(err)
	}

	got, _, err := s.LoadTasks(ctx, model.FilterDeleted)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].ID != 2 {
		t.Errorf("deleted snapshot = %+v", got)
	}
}

func TestSaveEmptyListIsASnapshot(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	if err := s.SaveTasks(ctx, model.FilterCompleted, nil); err != nil {
		t.Fatal(err)
	}
	got, _, err := s.LoadTasks(ctx, model.FilterCompleted)
	if err != nil {
		t.Fatalf("LoadTasks: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("got %d tasks", len(got))
	}
}

func TestPlanSnapshotDropsSuggestions(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	plan := model.Plan{
		ID:   5,
		Date: "2026-10-16",
		Tasks: []model.PlanTask{
			{ID: 11, TaskID: 1, Status: model.PlanTaskPlanned, Task: &model.Task{ID: 1, Title: "Write report"}},
		},
		Reasoning:   "one thing at a time",
		Suggestions: []model.DeletionSuggestion{{ID: 1, Title: "Write report"}},
	}
	if err := s.SavePlan(ctx, plan); err != nil {
		t.Fatalf("SavePlan: %v", err)
	}

	got, _, err := s.LoadPlan(ctx, "2026-10-16")
	if err != nil {
		t.Fatalf("LoadPlan: %v", err)
	}
	if got.Reasoning != plan.Reasoning || len(got.Tasks) != 1 || got.Tasks[0].Title() != "Write report" {
		t.Errorf("plan = %+v", got)
	}
	if len(got.Suggestions) != 0 {
		t.Errorf("suggestions were cached: %+v", got.Suggestions)
	}

	if err := s.DeletePlan(ctx, "2026-10-16"); err != nil {
		t.Fatal(err)
	}
	if _, _, err := s.LoadPlan(ctx, "2026-10-16"); !errors.Is(err, store.ErrNoSnapshot) {
		t.Errorf("err = %v, want ErrNoSnapshot", err)
	}
}

func TestSavePlanRequiresDate(t *testing.T) {
	s := testutil.NewTestStore(t)
	if err := s.SavePlan(context.Background(), model.Plan{}); err == nil {
		t.Fatal("expected error for plan without date")
	}
}
