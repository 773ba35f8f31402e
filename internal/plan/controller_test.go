package plan_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nhle/deletion-planner/internal/client"
	"github.com/nhle/deletion-planner/internal/model"
	"github.com/nhle/deletion-planner/internal/plan"
	"github.com/nhle/deletion-planner/internal/suggest"
	appsync "github.com/nhle/deletion-planner/internal/sync"
	"github.com/nhle/deletion-planner/internal/tasks"
	"github.com/nhle/deletion-planner/tests/testutil"
)

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}

func TestLoadTodayAbsentIsNotAnError(t *testing.T) {
	fake := testutil.NewFakeService()
	c := plan.NewController(fake, nil)

	state, err := c.LoadToday(context.Background())
	if err != nil {
		t.Fatalf("LoadToday: %v", err)
	}
	if state != plan.StateAbsent {
		t.Errorf("state = %v, want absent", state)
	}
	if v := c.View(); v.Plan != nil || v.State != plan.StateAbsent {
		t.Errorf("view = %+v", v)
	}
}

func TestLoadTodayFailureKeepsPlan(t *testing.T) {
	fake := testutil.NewFakeService()
	fake.Seed("A")
	c := plan.NewController(fake, nil)
	ctx := context.Background()

	if _, err := c.Generate(ctx, ""); err != nil {
		t.Fatal(err)
	}

	boom := &client.Error{Status: 500, Message: "database locked"}
	fake.FailNext(testutil.OpTodayPlan, boom)
	state, err := c.LoadToday(ctx)
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want %v", err, boom)
	}
	if state != plan.StateReady {
		t.Errorf("state = %v, want ready", state)
	}
	if v := c.View(); v.Plan == nil || len(v.Plan.Tasks) != 1 {
		t.Errorf("plan lost after failed load: %+v", v.Plan)
	}
}

func TestSubmitWithoutSelectionsIsRejectedLocally(t *testing.T) {
	fake := testutil.NewFakeService()
	fake.Seed("A")
	c := plan.NewController(fake, nil)

	if _, err := c.Generate(context.Background(), ""); err != nil {
		t.Fatal(err)
	}
	_, err := c.Submit(context.Background(), "")
	if !errors.Is(err, model.ErrNoFeedback) {
		t.Fatalf("err = %v, want ErrNoFeedback", err)
	}
	if n := fake.Calls(testutil.OpSubmitFeedback); n != 0 {
		t.Errorf("SubmitFeedback called %d times", n)
	}
}

func TestRecordLastWriteWins(t *testing.T) {
	fake := testutil.NewFakeService()
	fake.Seed("A", "B")
	c := plan.NewController(fake, nil)

	p, err := c.Generate(context.Background(), "")
	if err != nil {
		t.Fatal(err)
	}
	entry := p.Tasks[0].ID

	for _, s := range []model.PlanTaskStatus{model.PlanTaskMissed, model.PlanTaskDeferred, model.PlanTaskCompleted} {
		if err := c.Record(entry, s); err != nil {
			t.Fatalf("Record(%s): %v", s, err)
		}
	}

	pending := c.Pending()
	if len(pending) != 1 || pending[0].Status != model.PlanTaskCompleted {
		t.Errorf("pending = %+v, want one completed entry", pending)
	}
}

func TestRecordRejectsInvalidInput(t *testing.T) {
	fake := testutil.NewFakeService()
	fake.Seed("A")
	c := plan.NewController(fake, nil)

	if err := c.Record(1, model.PlanTaskCompleted); !model.IsValidation(err) {
		t.Errorf("Record without plan = %v, want validation error", err)
	}

	p, err := c.Generate(context.Background(), "")
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Record(p.Tasks[0].ID, model.PlanTaskPlanned); !model.IsValidation(err) {
		t.Errorf("Record(planned) = %v, want validation error", err)
	}
	if err := c.Record(424242, model.PlanTaskCompleted); !model.IsValidation(err) {
		t.Errorf("Record(unknown) = %v, want validation error", err)
	}
}

func TestDiscardClearsSelections(t *testing.T) {
	fake := testutil.NewFakeService()
	fake.Seed("A", "B")
	c := plan.NewController(fake, nil)

	p, err := c.Generate(context.Background(), "")
	if err != nil {
		t.Fatal(err)
	}
	for _, pt := range p.Tasks {
		if err := c.Record(pt.ID, model.PlanTaskMissed); err != nil {
			t.Fatal(err)
		}
	}
	c.Discard()
	if n := len(c.Pending()); n != 0 {
		t.Errorf("pending = %d after Discard", n)
	}
}

func TestCreatePlanFeedbackScenario(t *testing.T) {
	ctx := context.Background()
	fake := testutil.NewFakeService()
	store := tasks.NewStore(fake)
	c := plan.NewController(fake, suggest.NewQueue())

	created, err := store.Create(ctx, model.NewTask{Title: "Write report", Priority: model.PriorityHigh})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := store.List(ctx, model.FilterActive); err != nil {
		t.Fatal(err)
	}
	if _, ok := store.Find(created.ID); !ok {
		t.Fatal("created task not listed")
	}

	p, err := c.Generate(ctx, "")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(p.Tasks) != 1 || p.Tasks[0].TaskID != created.ID || p.Tasks[0].Status != model.PlanTaskPlanned {
		t.Fatalf("plan = %+v", p)
	}

	if err := c.Record(p.Tasks[0].ID, model.PlanTaskCompleted); err != nil {
		t.Fatal(err)
	}
	ack, err := c.Submit(ctx, "")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if ack.Message == "" {
		t.Error("empty ack message")
	}

	v := c.View()
	if len(v.Selections) != 0 {
		t.Errorf("selections not cleared: %+v", v.Selections)
	}
	if v.Plan == nil || v.Plan.Tasks[0].Status != model.PlanTaskCompleted {
		t.Fatalf("reloaded plan = %+v", v.Plan)
	}

	state, err := c.LoadToday(ctx)
	if err != nil || state != plan.StateReady {
		t.Fatalf("LoadToday = %v, %v", state, err)
	}
	if got := c.View().Plan.Tasks[0].Status; got != model.PlanTaskCompleted {
		t.Errorf("status after reload = %s, want completed", got)
	}

	if err := store.List(ctx, model.FilterCompleted); err != nil {
		t.Fatal(err)
	}
	task, ok := store.Find(created.ID)
	if !ok || task.CompletionCount != 1 {
		t.Errorf("completed task = %+v", task)
	}

	if err := c.Record(p.Tasks[0].ID, model.PlanTaskMissed); !model.IsValidation(err) {
		t.Errorf("re-recording a resolved entry = %v, want validation error", err)
	}
}

func TestSubmitMergesSuggestions(t *testing.T) {
	ctx := context.Background()
	fake := testutil.NewFakeService()
	seeded := fake.Seed("Learn Esperanto")
	stuck := seeded[0]
	stuck.DeferralCount = testutil.DeferralThreshold - 1
	fake.SetTask(stuck)

	q := suggest.NewQueue()
	c := plan.NewController(fake, q)

	p, err := c.Generate(ctx, "")
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Record(p.Tasks[0].ID, model.PlanTaskDeferred); err != nil {
		t.Fatal(err)
	}
	if _, err := c.Submit(ctx, ""); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	if _, ok := q.Get(stuck.ID); !ok {
		t.Errorf("queue = %+v, want suggestion for task %d", q.Items(), stuck.ID)
	}

	if _, err := c.Generate(ctx, ""); err != nil {
		t.Fatal(err)
	}
	if q.Len() != 1 {
		t.Errorf("queue has %d entries, want 1", q.Len())
	}
}

func TestGenerateSuggestionsQueued(t *testing.T) {
	fake := testutil.NewFakeService()
	seeded := fake.Seed("Keep", "Drop")
	drop := seeded[1]
	drop.Category = model.CategoryDeletionCandidate
	fake.SetTask(drop)

	q := suggest.NewQueue()
	c := plan.NewController(fake, q)
	if _, err := c.Generate(context.Background(), ""); err != nil {
		t.Fatal(err)
	}

	items := q.Items()
	if len(items) != 1 || items[0].ID != drop.ID {
		t.Errorf("queue = %+v", items)
	}
	if v := c.View(); len(v.Plan.Suggestions) != 0 {
		t.Error("view plan should not carry suggestions")
	}
}

func TestGenerateRejectsReentry(t *testing.T) {
	fake := testutil.NewFakeService()
	fake.Seed("A")
	c := plan.NewController(fake, nil)
	ctx := context.Background()

	release := fake.Hold(testutil.OpGeneratePlan)
	done := make(chan error, 1)
	go func() {
		_, err := c.Generate(ctx, "")
		done <- err
	}()
	waitFor(t, "generation to start", func() bool { return c.View().Generating })

	if _, err := c.Generate(ctx, ""); !errors.Is(err, appsync.ErrBusy) {
		t.Errorf("second Generate = %v, want ErrBusy", err)
	}

	release()
	if err := <-done; err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if n := fake.Calls(testutil.OpGeneratePlan); n != 1 {
		t.Errorf("GeneratePlan calls = %d, want 1", n)
	}
	if c.View().Generating {
		t.Error("still generating")
	}
}

func TestGenerateFailureClearsBusy(t *testing.T) {
	fake := testutil.NewFakeService()
	c := plan.NewController(fake, nil)

	if _, err := c.Generate(context.Background(), ""); err == nil {
		t.Fatal("expected error with no active tasks")
	}
	if c.View().Generating {
		t.Error("busy flag left set after failure")
	}
	if c.View().State != plan.StateUnknown {
		t.Errorf("state = %v after failed generate", c.View().State)
	}
}

func TestLoadDuringGenerateKeepsGeneratedPlan(t *testing.T) {
	fake := testutil.NewFakeService()
	fake.Seed("A", "B")
	c := plan.NewController(fake, nil)
	ctx := context.Background()

	release := fake.Hold(testutil.OpGeneratePlan)
	done := make(chan error, 1)
	go func() {
		_, err := c.Generate(ctx, "")
		done <- err
	}()
	waitFor(t, "generation to start", func() bool { return c.View().Generating })

	state, err := c.LoadToday(ctx)
	if err != nil {
		t.Fatalf("LoadToday: %v", err)
	}
	if state != plan.StateAbsent {
		t.Fatalf("state = %v, want absent before the plan exists", state)
	}

	release()
	if err := <-done; err != nil {
		t.Fatalf("Generate: %v", err)
	}
	v := c.View()
	if v.State != plan.StateReady || v.Plan == nil || len(v.Plan.Tasks) != 2 {
		t.Errorf("after generate: state=%v plan=%+v", v.State, v.Plan)
	}
}

// slowAbsentToday answers TodayPlan with "no plan" once unblocked, as a
// server would for a request it handled before generation.
type slowAbsentToday struct {
	*testutil.FakeService
	started chan struct{}
	unblock chan struct{}
}

func (s *slowAbsentToday) TodayPlan(ctx context.Context) (*model.Plan, error) {
	close(s.started)
	<-s.unblock
	return nil, nil
}

func TestLoadFinishingAfterGenerateIsDropped(t *testing.T) {
	fake := testutil.NewFakeService()
	fake.Seed("A")
	api := &slowAbsentToday{
		FakeService: fake,
		started:     make(chan struct{}),
		unblock:     make(chan struct{}),
	}
	c := plan.NewController(api, nil)
	ctx := context.Background()

	done := make(chan error, 1)
	go func() {
		_, err := c.LoadToday(ctx)
		done <- err
	}()
	<-api.started

	if _, err := c.Generate(ctx, ""); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	close(api.unblock)
	if err := <-done; err != nil {
		t.Fatalf("LoadToday: %v", err)
	}
	if v := c.View(); v.State != plan.StateReady || v.Plan == nil {
		t.Errorf("generated plan overwritten: state=%v plan=%+v", v.State, v.Plan)
	}
}

func TestSubmitRejectsReentry(t *testing.T) {
	fake := testutil.NewFakeService()
	fake.Seed("A")
	c := plan.NewController(fake, nil)
	ctx := context.Background()

	p, err := c.Generate(ctx, "")
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Record(p.Tasks[0].ID, model.PlanTaskCompleted); err != nil {
		t.Fatal(err)
	}

	release := fake.Hold(testutil.OpSubmitFeedback)
	done := make(chan error, 1)
	go func() {
		_, err := c.Submit(ctx, "")
		done <- err
	}()
	waitFor(t, "submission to start", func() bool { return c.View().Submitting })

	if _, err := c.Submit(ctx, ""); !errors.Is(err, appsync.ErrBusy) {
		t.Errorf("second Submit = %v, want ErrBusy", err)
	}
	release()
	if err := <-done; err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if n := fake.Calls(testutil.OpSubmitFeedback); n != 1 {
		t.Errorf("SubmitFeedback calls = %d, want 1", n)
	}
}

func TestSubmitFailureKeepsSelections(t *testing.T) {
	fake := testutil.NewFakeService()
	fake.Seed("A")
	c := plan.NewController(fake, nil)
	ctx := context.Background()

	p, err := c.Generate(ctx, "")
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Record(p.Tasks[0].ID, model.PlanTaskCompleted); err != nil {
		t.Fatal(err)
	}

	fake.FailNext(testutil.OpSubmitFeedback, &client.Error{Status: 500, Message: "nope"})
	if _, err := c.Submit(ctx, ""); err == nil {
		t.Fatal("expected error")
	}
	if n := len(c.Pending()); n != 1 {
		t.Errorf("pending = %d, want 1", n)
	}
	if c.View().Plan.Tasks[0].Status != model.PlanTaskPlanned {
		t.Error("plan entry changed after failed submit")
	}
}

func TestStaleResponseDroppedAfterClose(t *testing.T) {
	fake := testutil.NewFakeService()
	fake.Seed("A")
	c := plan.NewController(fake, nil)
	ctx := context.Background()

	if _, err := fake.GeneratePlan(ctx, ""); err != nil {
		t.Fatal(err)
	}

	release := fake.Hold(testutil.OpTodayPlan)
	done := make(chan error, 1)
	go func() {
		_, err := c.LoadToday(ctx)
		done <- err
	}()
	waitFor(t, "load to start", func() bool { return fake.Calls(testutil.OpTodayPlan) == 1 })

	c.Close()
	release()
	if err := <-done; err != nil {
		t.Fatalf("LoadToday: %v", err)
	}
	if v := c.View(); v.State != plan.StateUnknown || v.Plan != nil {
		t.Errorf("stale plan applied: %+v", v)
	}
}

func TestWarmFromCache(t *testing.T) {
	ctx := context.Background()
	cache := testutil.NewTestStore(t)

	fake := testutil.NewFakeService()
	fake.Seed("A")
	first := plan.NewController(fake, nil, plan.WithCache(cache))
	p, err := first.Generate(ctx, "")
	if err != nil {
		t.Fatal(err)
	}

	second := plan.NewController(testutil.NewFakeService(), nil, plan.WithCache(cache))
	if err := second.Warm(ctx, p.Date); err != nil {
		t.Fatalf("Warm: %v", err)
	}
	v := second.View()
	if v.State != plan.StateReady || !v.FromCache || v.Plan == nil || len(v.Plan.Tasks) != 1 {
		t.Fatalf("warmed view = %+v", v)
	}

	state, err := second.LoadToday(ctx)
	if err != nil || state != plan.StateAbsent {
		t.Errorf("LoadToday = %v, %v; want absent from the live service", state, err)
	}
}
