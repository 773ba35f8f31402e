package testutil

import (
	"context"
	"math"
	"net/http"
	"sort"
	"strings"
	"sync"

	"github.com/nhle/deletion-planner/internal/client"
	"github.com/nhle/deletion-planner/internal/model"
)

// Op names a FakeService operation for failure injection and call counting.
type Op string

// Operations understood by FakeService.
const (
	OpListTasks      Op = "ListTasks"
	OpCreateTask     Op = "CreateTask"
	OpBatchCreate    Op = "BatchCreateTasks"
	OpUpdateTask     Op = "UpdateTask"
	OpDeleteTask     Op = "DeleteTask"
	OpReorderTasks   Op = "ReorderTasks"
	OpGeneratePlan   Op = "GeneratePlan"
	OpTodayPlan      Op = "TodayPlan"
	OpPlanForDate    Op = "PlanForDate"
	OpSubmitFeedback Op = "SubmitFeedback"
	OpHistory        Op = "History"
	OpStats          Op = "Stats"
	OpHealth         Op = "Health"
)

// DeferralThreshold is the deferral count at which the fake starts
// suggesting a task for deletion after feedback.
const DeferralThreshold = 3

const maxPlanTasks = 4

// FakeService is an in-memory stand-in for the planning service. It
// follows the server's observable behaviour closely enough for scenario
// tests: soft then hard deletion, feedback counters, plan reuse per date
// and deletion suggestions for repeatedly deferred tasks.
type FakeService struct {
	// Today is the date used when a call passes an empty date.
	Today string

	mu       sync.Mutex
	tasks    map[int64]*model.Task
	plans    map[string]*model.Plan
	history  []model.HistoryEntry
	nextID   int64
	failures map[Op][]error
	holds    map[Op]chan struct{}
	calls    map[Op]int
}

var _ client.API = (*FakeService)(nil)

// NewFakeService returns an empty fake whose "today" is model.Today().
func NewFakeService() *FakeService {
	return &FakeService{
		Today:    model.Today(),
		tasks:    make(map[int64]*model.Task),
		plans:    make(map[string]*model.Plan),
		nextID:   1,
		failures: make(map[Op][]error),
		holds:    make(map[Op]chan struct{}),
		calls:    make(map[Op]int),
	}
}

// FailNext makes the next call to op return err. Multiple calls queue.
func (f *FakeService) FailNext(op Op, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[op] = append(f.failures[op], err)
}

// Hold blocks every call to op until the returned release func is called
// or the call's context ends.
func (f *FakeService) Hold(op Op) (release func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := make(chan struct{})
	f.holds[op] = ch
	var once sync.Once
	return func() {
		once.Do(func() {
			f.mu.Lock()
			if f.holds[op] == ch {
				delete(f.holds, op)
			}
			f.mu.Unlock()
			close(ch)
		})
	}
}

// Calls returns how many times op has been invoked, including failures.
func (f *FakeService) Calls(op Op) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

// Seed inserts active tasks with the given titles and returns them.
func (f *FakeService) Seed(titles ...string) []model.Task {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.Task, 0, len(titles))
	for _, title := range titles {
		out = append(out, *f.insert(model.NewTask{Title: title, Category: model.CategoryUnclassified}))
	}
	return out
}

// Task returns a copy of the stored task.
func (f *FakeService) Task(id int64) (model.Task, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tasks[id]
	if !ok {
		return model.Task{}, false
	}
	return *t, true
}

// SetTask overwrites counters and category of a stored task, for tests
// that need a task in a particular state.
func (f *FakeService) SetTask(t model.Task) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := t
	f.tasks[t.ID] = &cp
	if t.ID >= f.nextID {
		f.nextID = t.ID + 1
	}
}

// enter counts the call, waits on any hold and pops an injected failure.
func (f *FakeService) enter(ctx context.Context, op Op) error {
	f.mu.Lock()
	f.calls[op]++
	hold := f.holds[op]
	f.mu.Unlock()

	if hold != nil {
		select {
		case <-hold:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if queued := f.failures[op]; len(queued) > 0 {
		err := queued[0]
		f.failures[op] = queued[1:]
		return err
	}
	return nil
}

func apiError(status int, code, msg string) error {
	return &client.Error{Status: status, Code: code, Message: msg}
}

func (f *FakeService) insert(n model.NewTask) *model.Task {
	maxOrder := -1
	for _, t := range f.tasks {
		if t.SortOrder > maxOrder {
			maxOrder = t.SortOrder
		}
	}
	t := &model.Task{
		ID:          f.nextID,
		Title:       strings.TrimSpace(n.Title),
		Description: n.Description,
		Priority:    n.Priority,
		Category:    n.Category,
		Status:      model.TaskStatusActive,
		SortOrder:   maxOrder + 1,
		CreatedAt:   f.Today,
		UpdatedAt:   f.Today,
	}
	if t.Category == "" {
		t.Category = model.CategoryUnclassified
	}
	f.nextID++
	f.tasks[t.ID] = t
	f.record(t.ID, model.ActionCreated, "")
	return t
}

func (f *FakeService) record(taskID int64, action, reason string) {
	f.history = append(f.history, model.HistoryEntry{
		ID:          int64(len(f.history) + 1),
		TaskID:      taskID,
		Date:        f.Today,
		Action:      action,
		AIReasoning: reason,
	})
}

// sorted returns copies ordered the way the server lists tasks.
func (f *FakeService) sorted(keep func(*model.Task) bool) []model.Task {
	out := make([]model.Task, 0, len(f.tasks))
	for _, t := range f.tasks {
		if keep(t) {
			out = append(out, *t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].SortOrder != out[j].SortOrder {
			return out[i].SortOrder < out[j].SortOrder
		}
		if out[i].Priority != out[j].Priority {
			return out[i].Priority > out[j].Priority
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// ListTasks implements client.API.
func (f *FakeService) ListTasks(ctx context.Context, filter model.TaskFilter) ([]model.Task, error) {
	if err := f.enter(ctx, OpListTasks); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if filter == "" {
		filter = model.FilterActive
	}
	return f.sorted(func(t *model.Task) bool { return filter.Matches(t.Status) }), nil
}

// CreateTask implements client.API.
func (f *FakeService) CreateTask(ctx context.Context, n model.NewTask) (*model.Task, error) {
	if err := n.Validate(); err != nil {
		return nil, err
	}
	if err := f.enter(ctx, OpCreateTask); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	t := *f.insert(n)
	return &t, nil
}

// BatchCreateTasks implements client.API.
func (f *FakeService) BatchCreateTasks(ctx context.Context, text string) ([]model.Task, error) {
	if strings.TrimSpace(text) == "" {
		return nil, model.ErrEmptyBatch
	}
	if err := f.enter(ctx, OpBatchCreate); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var created []model.Task
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			created = append(created, *f.insert(model.NewTask{Title: line}))
		}
	}
	return created, nil
}

// UpdateTask implements client.API.
func (f *FakeService) UpdateTask(ctx context.Context, id int64, p model.TaskPatch) (*model.Task, error) {
	if p.Empty() {
		return nil, model.Invalidf("nothing to update for task %d", id)
	}
	if err := f.enter(ctx, OpUpdateTask); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	t, ok := f.tasks[id]
	if !ok {
		return nil, apiError(http.StatusNotFound, "TASK_NOT_FOUND", "Task not found")
	}
	previous := t.Status
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
	}
	if p.Category != nil {
		t.Category = *p.Category
	}
	if p.SortOrder != nil {
		t.SortOrder = *p.SortOrder
	}
	if p.DeferralCountDelta != nil {
		t.DeferralCount += *p.DeferralCountDelta
		f.record(id, model.ActionDeferred, "")
	}
	if p.Status != nil {
		t.Status = *p.Status
		if t.Status != previous {
			switch t.Status {
			case model.TaskStatusCompleted:
				t.CompletionCount++
				f.record(id, model.ActionCompleted, "")
			case model.TaskStatusDeleted:
				f.record(id, model.ActionDeleted, "")
			}
		}
	}
	cp := *t
	return &cp, nil
}

// DeleteTask implements client.API. A task that is already soft-deleted
// is removed for good even without hard.
func (f *FakeService) DeleteTask(ctx context.Context, id int64, hard bool) error {
	if err := f.enter(ctx, OpDeleteTask); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	t, ok := f.tasks[id]
	if !ok {
		return apiError(http.StatusNotFound, "TASK_NOT_FOUND", "Task not found")
	}
	if hard || t.Status == model.TaskStatusDeleted {
		delete(f.tasks, id)
		return nil
	}
	t.Status = model.TaskStatusDeleted
	f.record(id, model.ActionDeleted, "")
	return nil
}

// ReorderTasks implements client.API.
func (f *FakeService) ReorderTasks(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return model.Invalidf("nothing to reorder")
	}
	if err := f.enter(ctx, OpReorderTasks); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, id := range ids {
		if t, ok := f.tasks[id]; ok {
			t.SortOrder = i
		}
	}
	return nil
}

// GeneratePlan implements client.API. An existing plan for the date is
// returned unchanged.
func (f *FakeService) GeneratePlan(ctx context.Context, date string) (*model.Plan, error) {
	if err := f.enter(ctx, OpGeneratePlan); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	if date == "" {
		date = f.Today
	}
	if existing, ok := f.plans[date]; ok {
		return f.render(existing), nil
	}

	active := f.sorted(func(t *model.Task) bool { return t.Status == model.TaskStatusActive })
	if len(active) == 0 {
		return nil, apiError(http.StatusBadRequest, "NO_ACTIVE_TASKS", "No active tasks to plan")
	}

	plan := &model.Plan{ID: int64(len(f.plans) + 1), Date: date, MaxTasks: maxPlanTasks}
	var suggestions []model.DeletionSuggestion
	for _, t := range active {
		if t.Category == model.CategoryDeletionCandidate {
			suggestions = append(suggestions, suggestionFor(t, "Classified as a deletion candidate"))
			continue
		}
		if len(plan.Tasks) >= maxPlanTasks {
			continue
		}
		plan.Tasks = append(plan.Tasks, model.PlanTask{
			ID:     plan.ID*100 + int64(len(plan.Tasks)+1),
			PlanID: plan.ID,
			TaskID: t.ID,
			Status: model.PlanTaskPlanned,
			Order:  len(plan.Tasks),
		})
		f.record(t.ID, model.ActionPlanned, "")
	}
	plan.Reasoning = "Selected the top active tasks for today."
	if len(active) > maxPlanTasks*2 {
		plan.OverloadWarning = "You have more active tasks than one day can hold."
	}
	f.plans[date] = plan

	out := f.render(plan)
	out.Suggestions = suggestions
	return out, nil
}

// render copies plan and embeds the current state of each task.
func (f *FakeService) render(plan *model.Plan) *model.Plan {
	out := *plan
	out.Tasks = make([]model.PlanTask, len(plan.Tasks))
	for i, pt := range plan.Tasks {
		if t, ok := f.tasks[pt.TaskID]; ok {
			cp := *t
			pt.Task = &cp
		}
		out.Tasks[i] = pt
	}
	return &out
}

// TodayPlan implements client.API.
func (f *FakeService) TodayPlan(ctx context.Context) (*model.Plan, error) {
	if err := f.enter(ctx, OpTodayPlan); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if plan, ok := f.plans[f.Today]; ok {
		return f.render(plan), nil
	}
	return nil, nil
}

// PlanForDate implements client.API.
func (f *FakeService) PlanForDate(ctx context.Context, date string) (*model.Plan, error) {
	if err := f.enter(ctx, OpPlanForDate); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if plan, ok := f.plans[date]; ok {
		return f.render(plan), nil
	}
	return nil, nil
}

// SubmitFeedback implements client.API.
func (f *FakeService) SubmitFeedback(
	ctx context.Context,
	date string,
	results []model.FeedbackEntry,
) (*model.FeedbackAck, error) {
	if len(results) == 0 {
		return nil, model.ErrNoFeedback
	}
	if err := f.enter(ctx, OpSubmitFeedback); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	if date == "" {
		date = f.Today
	}
	plan, ok := f.plans[date]
	if !ok {
		return nil, apiError(http.StatusNotFound, "PLAN_NOT_FOUND", "No plan found for this date")
	}

	for _, r := range results {
		for i := range plan.Tasks {
			pt := &plan.Tasks[i]
			if pt.ID != r.PlanTaskID {
				continue
			}
			pt.Status = r.Status
			t, ok := f.tasks[pt.TaskID]
			if !ok {
				continue
			}
			switch r.Status {
			case model.PlanTaskCompleted:
				t.CompletionCount++
				t.Status = model.TaskStatusCompleted
				f.record(t.ID, model.ActionCompleted, "Task completed by user.")
			case model.PlanTaskMissed:
				f.record(t.ID, model.ActionMissed, "Task was planned but not completed.")
			case model.PlanTaskDeferred:
				t.DeferralCount++
				f.record(t.ID, model.ActionDeferred, "")
			}
		}
	}

	var suggestions []model.DeletionSuggestion
	for _, t := range f.sorted(func(t *model.Task) bool { return t.Status == model.TaskStatusActive }) {
		if t.DeferralCount >= DeferralThreshold {
			suggestions = append(suggestions, suggestionFor(t, "Deferred repeatedly"))
		}
	}
	return &model.FeedbackAck{Message: "Feedback recorded", Suggestions: suggestions}, nil
}

func suggestionFor(t model.Task, reason string) model.DeletionSuggestion {
	return model.DeletionSuggestion{
		ID:                t.ID,
		Title:             t.Title,
		DeletionReasoning: reason + ".",
		TriggerReasons:    []string{reason},
	}
}

// History implements client.API. Entries are returned newest first.
func (f *FakeService) History(ctx context.Context, q model.HistoryQuery) ([]model.HistoryEntry, error) {
	if err := f.enter(ctx, OpHistory); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []model.HistoryEntry
	for i := len(f.history) - 1; i >= 0; i-- {
		e := f.history[i]
		if q.TaskID > 0 && e.TaskID != q.TaskID {
			continue
		}
		out = append(out, e)
	}
	if q.Offset > 0 {
		if q.Offset >= len(out) {
			return nil, nil
		}
		out = out[q.Offset:]
	}
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

// Stats implements client.API.
func (f *FakeService) Stats(ctx context.Context) (*model.Stats, error) {
	if err := f.enter(ctx, OpStats); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	s := &model.Stats{TotalTasks: len(f.tasks), TotalPlans: len(f.plans)}
	for _, t := range f.tasks {
		switch t.Status {
		case model.TaskStatusActive:
			s.ActiveTasks++
		case model.TaskStatusCompleted:
			s.CompletedTasks++
		case model.TaskStatusDeleted:
			s.DeletedTasks++
		}
	}
	for _, p := range f.plans {
		s.TotalPlanTasks += len(p.Tasks)
		for _, pt := range p.Tasks {
			if pt.Status == model.PlanTaskCompleted {
				s.CompletedPlanTasks++
			}
		}
	}
	if s.TotalPlanTasks > 0 {
		s.CompletionRate = math.Round(float64(s.CompletedPlanTasks)/float64(s.TotalPlanTasks)*1000) / 10
	}
	return s, nil
}

// Health implements client.API.
func (f *FakeService) Health(ctx context.Context) (bool, error) {
	if err := f.enter(ctx, OpHealth); err != nil {
		return false, err
	}
	return true, nil
}
