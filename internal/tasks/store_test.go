package tasks_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nhle/deletion-planner/internal/client"
	"github.com/nhle/deletion-planner/internal/model"
	appsync "github.com/nhle/deletion-planner/internal/sync"
	"github.com/nhle/deletion-planner/internal/tasks"
	"github.com/nhle/deletion-planner/tests/testutil"
)

func ids(ts []model.Task) []int64 {
	out := make([]int64, len(ts))
	for i, t := range ts {
		out[i] = t.ID
	}
	return out
}

func equalIDs(a, b []int64) bool {
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

func TestCreateBlankTitleMakesNoCall(t *testing.T) {
	fake := testutil.NewFakeService()
	s := tasks.NewStore(fake)
	ctx := context.Background()

	if err := s.List(ctx, model.FilterActive); err != nil {
		t.Fatal(err)
	}
	before := s.Snapshot()

	for _, title := range []string{"", "   ", "\t\n"} {
		_, err := s.Create(ctx, model.NewTask{Title: title})
		if !model.IsValidation(err) {
			t.Errorf("Create(%q) err = %v, want validation error", title, err)
		}
	}
	if n := fake.Calls(testutil.OpCreateTask); n != 0 {
		t.Errorf("CreateTask called %d times", n)
	}
	if after := s.Snapshot(); len(after.Tasks) != len(before.Tasks) {
		t.Errorf("collection changed: %d -> %d", len(before.Tasks), len(after.Tasks))
	}
}

func TestCreateDoesNotMergeIntoCollection(t *testing.T) {
	fake := testutil.NewFakeService()
	s := tasks.NewStore(fake)
	ctx := context.Background()

	if err := s.List(ctx, model.FilterActive); err != nil {
		t.Fatal(err)
	}
	created, err := s.Create(ctx, model.NewTask{Title: "Write report"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, ok := s.Find(created.ID); ok {
		t.Error("created task merged without a List")
	}

	if err := s.List(ctx, model.FilterActive); err != nil {
		t.Fatal(err)
	}
	if _, ok := s.Find(created.ID); !ok {
		t.Error("created task missing after List")
	}
}

func TestListFailureKeepsCollection(t *testing.T) {
	fake := testutil.NewFakeService()
	fake.Seed("A", "B")
	s := tasks.NewStore(fake)
	ctx := context.Background()

	if err := s.List(ctx, model.FilterActive); err != nil {
		t.Fatal(err)
	}

	boom := &client.Error{Status: 500, Message: "database locked"}
	fake.FailNext(testutil.OpListTasks, boom)
	err := s.List(ctx, model.FilterCompleted)
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want %v", err, boom)
	}

	snap := s.Snapshot()
	if snap.Filter != model.FilterActive || len(snap.Tasks) != 2 {
		t.Errorf("snapshot = %+v, want untouched active listing", snap)
	}
}

func TestSoftAndHardDeleteListings(t *testing.T) {
	fake := testutil.NewFakeService()
	seeded := fake.Seed("Keep", "Soft", "Hard")
	s := tasks.NewStore(fake)
	ctx := context.Background()

	if err := s.List(ctx, model.FilterActive); err != nil {
		t.Fatal(err)
	}

	soft, hard := seeded[1].ID, seeded[2].ID
	if err := s.Delete(ctx, soft, false); err != nil {
		t.Fatalf("soft delete: %v", err)
	}
	if _, ok := s.Find(soft); ok {
		t.Error("soft-deleted task still in active view")
	}

	if err := s.List(ctx, model.FilterDeleted); err != nil {
		t.Fatal(err)
	}
	got, ok := s.Find(soft)
	if !ok || got.Status != model.TaskStatusDeleted {
		t.Fatalf("soft-deleted task not listed under deleted: %+v", s.Snapshot().Tasks)
	}

	if err := s.Delete(ctx, soft, true); err != nil {
		t.Fatalf("hard delete: %v", err)
	}
	if _, ok := s.Find(soft); ok {
		t.Error("hard-deleted task still in deleted view")
	}

	if err := s.Delete(ctx, hard, true); err != nil {
		t.Fatalf("hard delete of active task: %v", err)
	}

	for _, f := range model.Filters {
		if err := s.List(ctx, f); err != nil {
			t.Fatal(err)
		}
		for _, id := range []int64{soft, hard} {
			if _, ok := s.Find(id); ok {
				t.Errorf("task %d visible under %s after hard delete", id, f)
			}
		}
	}
}

func TestQuickActions(t *testing.T) {
	fake := testutil.NewFakeService()
	seeded := fake.Seed("Done", "Later")
	s := tasks.NewStore(fake)
	ctx := context.Background()

	if err := s.List(ctx, model.FilterActive); err != nil {
		t.Fatal(err)
	}

	if _, err := s.Complete(ctx, seeded[0].ID); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if _, ok := s.Find(seeded[0].ID); ok {
		t.Error("completed task still in active view")
	}

	for i := 0; i < 2; i++ {
		if _, err := s.Defer(ctx, seeded[1].ID); err != nil {
			t.Fatalf("Defer: %v", err)
		}
	}
	got, ok := s.Find(seeded[1].ID)
	if !ok || got.DeferralCount != 2 {
		t.Errorf("deferred task = %+v, want DeferralCount 2", got)
	}
}

func TestUpdateFailureLeavesTask(t *testing.T) {
	fake := testutil.NewFakeService()
	seeded := fake.Seed("A")
	s := tasks.NewStore(fake)
	ctx := context.Background()

	if err := s.List(ctx, model.FilterActive); err != nil {
		t.Fatal(err)
	}
	fake.FailNext(testutil.OpUpdateTask, &client.Error{Status: 500, Message: "nope"})

	if _, err := s.Complete(ctx, seeded[0].ID); err == nil {
		t.Fatal("expected error")
	}
	got, ok := s.Find(seeded[0].ID)
	if !ok || got.Status != model.TaskStatusActive {
		t.Errorf("task = %+v, want unchanged", got)
	}
}

func TestReorderSuccessRefreshes(t *testing.T) {
	fake := testutil.NewFakeService()
	seeded := fake.Seed("A", "B", "C")
	s := tasks.NewStore(fake)
	ctx := context.Background()

	if err := s.List(ctx, model.FilterActive); err != nil {
		t.Fatal(err)
	}

	want := []int64{seeded[1].ID, seeded[2].ID, seeded[0].ID}
	if err := s.Reorder(ctx, want); err != nil {
		t.Fatalf("Reorder: %v", err)
	}
	snap := s.Snapshot()
	if !equalIDs(ids(snap.Tasks), want) {
		t.Errorf("order = %v, want %v", ids(snap.Tasks), want)
	}
	if snap.Unconfirmed {
		t.Error("collection still marked unconfirmed")
	}
	if n := fake.Calls(testutil.OpListTasks); n != 2 {
		t.Errorf("ListTasks calls = %d, want 2", n)
	}
}

func TestReorderFailureReloads(t *testing.T) {
	fake := testutil.NewFakeService()
	seeded := fake.Seed("A", "B", "C")
	s := tasks.NewStore(fake)
	ctx := context.Background()

	if err := s.List(ctx, model.FilterActive); err != nil {
		t.Fatal(err)
	}

	var sawUnconfirmed bool
	cancel := s.Subscribe(func(snap tasks.Snapshot) {
		if snap.Unconfirmed {
			sawUnconfirmed = true
		}
	})
	defer cancel()

	boom := &client.Error{Status: 500, Message: "reorder failed"}
	fake.FailNext(testutil.OpReorderTasks, boom)

	err := s.Reorder(ctx, []int64{seeded[2].ID, seeded[0].ID, seeded[1].ID})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want %v", err, boom)
	}
	if !sawUnconfirmed {
		t.Error("optimistic order was never published")
	}

	snap := s.Snapshot()
	original := ids(seeded)
	if !equalIDs(ids(snap.Tasks), original) {
		t.Errorf("order after failure = %v, want server order %v", ids(snap.Tasks), original)
	}
	if snap.Unconfirmed {
		t.Error("reloaded collection still marked unconfirmed")
	}
}

func TestReorderRejectedOutsideActive(t *testing.T) {
	fake := testutil.NewFakeService()
	seeded := fake.Seed("A", "B")
	s := tasks.NewStore(fake)
	ctx := context.Background()

	if err := s.List(ctx, model.FilterAll); err != nil {
		t.Fatal(err)
	}
	err := s.Reorder(ctx, []int64{seeded[1].ID, seeded[0].ID})
	if !errors.Is(err, model.ErrReorderBlocked) {
		t.Fatalf("err = %v, want ErrReorderBlocked", err)
	}
	if n := fake.Calls(testutil.OpReorderTasks); n != 0 {
		t.Errorf("ReorderTasks called %d times", n)
	}
}

func TestBatchCreateRejectsReentry(t *testing.T) {
	fake := testutil.NewFakeService()
	s := tasks.NewStore(fake)
	ctx := context.Background()

	release := fake.Hold(testutil.OpBatchCreate)
	done := make(chan error, 1)
	go func() {
		_, err := s.BatchCreate(ctx, "one\ntwo")
		done <- err
	}()

	deadline := time.Now().Add(2 * time.Second)
	for !s.BatchBusy() {
		if time.Now().After(deadline) {
			t.Fatal("batch never started")
		}
		time.Sleep(time.Millisecond)
	}

	if _, err := s.BatchCreate(ctx, "three"); !errors.Is(err, appsync.ErrBusy) {
		t.Errorf("second BatchCreate err = %v, want ErrBusy", err)
	}

	release()
	if err := <-done; err != nil {
		t.Fatalf("first BatchCreate: %v", err)
	}
	if n := fake.Calls(testutil.OpBatchCreate); n != 1 {
		t.Errorf("BatchCreateTasks calls = %d, want 1", n)
	}
	if s.BatchBusy() {
		t.Error("still busy after completion")
	}
}

func TestBatchCreateEmptyText(t *testing.T) {
	fake := testutil.NewFakeService()
	s := tasks.NewStore(fake)

	_, err := s.BatchCreate(context.Background(), "  \n ")
	if !model.IsValidation(err) {
		t.Fatalf("err = %v, want validation error", err)
	}
	if s.BatchBusy() {
		t.Error("busy flag left set after validation failure")
	}
}

func TestStaleListingDroppedAfterClose(t *testing.T) {
	fake := testutil.NewFakeService()
	fake.Seed("A")
	s := tasks.NewStore(fake)
	ctx := context.Background()

	release := fake.Hold(testutil.OpListTasks)
	done := make(chan error, 1)
	go func() { done <- s.List(ctx, model.FilterActive) }()

	deadline := time.Now().Add(2 * time.Second)
	for fake.Calls(testutil.OpListTasks) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("list never started")
		}
		time.Sleep(time.Millisecond)
	}
	s.Close()
	release()

	if err := <-done; err != nil {
		t.Fatalf("List: %v", err)
	}
	if snap := s.Snapshot(); snap.Loaded || len(snap.Tasks) != 0 {
		t.Errorf("stale response applied: %+v", snap)
	}
}

func TestSubscribeAndCancel(t *testing.T) {
	fake := testutil.NewFakeService()
	fake.Seed("A")
	s := tasks.NewStore(fake)
	ctx := context.Background()

	var calls int
	cancel := s.Subscribe(func(snap tasks.Snapshot) {
		calls++
		if len(snap.Tasks) != 1 {
			t.Errorf("snapshot has %d tasks", len(snap.Tasks))
		}
		snap.Tasks[0].Title = "mutated"
	})

	if err := s.List(ctx, model.FilterActive); err != nil {
		t.Fatal(err)
	}
	if got, _ := s.Find(1); got.Title != "A" {
		t.Errorf("subscriber mutated the collection: %q", got.Title)
	}

	cancel()
	if err := s.List(ctx, model.FilterActive); err != nil {
		t.Fatal(err)
	}
	if calls != 1 {
		t.Errorf("subscriber called %d times, want 1", calls)
	}
}

func TestWarmFromCache(t *testing.T) {
	cache := testutil.NewTestStore(t)
	ctx := context.Background()

	fake := testutil.NewFakeService()
	fake.Seed("Cached")
	first := tasks.NewStore(fake, tasks.WithCache(cache))
	if err := first.List(ctx, model.FilterActive); err != nil {
		t.Fatal(err)
	}

	second := tasks.NewStore(testutil.NewFakeService(), tasks.WithCache(cache))
	if err := second.Warm(ctx, model.FilterActive); err != nil {
		t.Fatalf("Warm: %v", err)
	}
	snap := second.Snapshot()
	if !snap.FromCache || len(snap.Tasks) != 1 || snap.Tasks[0].Title != "Cached" {
		t.Fatalf("warmed snapshot = %+v", snap)
	}

	if err := second.List(ctx, model.FilterActive); err != nil {
		t.Fatal(err)
	}
	snap = second.Snapshot()
	if snap.FromCache || len(snap.Tasks) != 0 {
		t.Errorf("fetch did not replace cached listing: %+v", snap)
	}
}
