// Package plan tracks the day's plan and the feedback the user has
// marked against it but not yet submitted.
package plan

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/nhle/deletion-planner/internal/client"
	"github.com/nhle/deletion-planner/internal/logger"
	"github.com/nhle/deletion-planner/internal/model"
	"github.com/nhle/deletion-planner/internal/store"
	"github.com/nhle/deletion-planner/internal/suggest"
	appsync "github.com/nhle/deletion-planner/internal/sync"
)

// State distinguishes "not loaded yet" from "no plan for the day" from
// "plan held".
type State int

// Plan states.
const (
	StateUnknown State = iota
	StateAbsent
	StateReady
)

func (s State) String() string {
	switch s {
	case StateAbsent:
		return "absent"
	case StateReady:
		return "ready"
	default:
		return "unknown"
	}
}

// View is a copy of the controller's state handed to observers.
type View struct {
	State State
	Plan  *model.Plan

	// Selections maps plan entry id to the outcome marked for it.
	Selections map[int64]model.PlanTaskStatus

	FromCache  bool
	Generating bool
	Submitting bool
}

// Selected returns the outcome marked for entry id, if any.
func (v View) Selected(id int64) (model.PlanTaskStatus, bool) {
	s, ok := v.Selections[id]
	return s, ok
}

// Controller owns the current plan and the pending feedback selections.
type Controller struct {
	api   client.API
	queue *suggest.Queue
	cache store.Cache

	mu         sync.Mutex
	state      State
	plan       *model.Plan
	fromCache  bool
	selections map[int64]model.PlanTaskStatus
	subs       map[int]func(View)
	nextSub    int

	session    appsync.Session
	generating appsync.Flight
	submitting appsync.Flight
}

// Option configures a Controller.
type Option func(*Controller)

// WithCache stores every loaded plan in c and lets Warm read it back.
func WithCache(c store.Cache) Option {
	return func(ctl *Controller) { ctl.cache = c }
}

// NewController creates a controller over api. Suggestions attached to
// plan and feedback responses are merged into queue.
func NewController(api client.API, queue *suggest.Queue, opts ...Option) *Controller {
	if queue == nil {
		queue = suggest.NewQueue()
	}
	c := &Controller{
		api:        api,
		queue:      queue,
		selections: make(map[int64]model.PlanTaskStatus),
		subs:       make(map[int]func(View)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Queue returns the suggestion queue the controller feeds.
func (c *Controller) Queue() *suggest.Queue {
	return c.queue
}

// Subscribe registers fn to receive a view after every change.
func (c *Controller) Subscribe(fn func(View)) (cancel func()) {
	c.mu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.subs, id)
		c.mu.Unlock()
	}
}

// View returns a copy of the current state.
func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewLocked()
}

func (c *Controller) viewLocked() View {
	v := View{
		State:      c.state,
		FromCache:  c.fromCache,
		Generating: c.generating.Busy(),
		Submitting: c.submitting.Busy(),
		Selections: make(map[int64]model.PlanTaskStatus, len(c.selections)),
	}
	for id, s := range c.selections {
		v.Selections[id] = s
	}
	if c.plan != nil {
		p := *c.plan
		p.Tasks = make([]model.PlanTask, len(c.plan.Tasks))
		copy(p.Tasks, c.plan.Tasks)
		p.Suggestions = nil
		v.Plan = &p
	}
	return v
}

func (c *Controller) commit(mutate func()) {
	c.mu.Lock()
	if mutate != nil {
		mutate()
	}
	v := c.viewLocked()
	subs := make([]func(View), 0, len(c.subs))
	for _, fn := range c.subs {
		subs = append(subs, fn)
	}
	c.mu.Unlock()

	for _, fn := range subs {
		fn(v)
	}
}

// LoadToday fetches today's plan. StateAbsent means no plan has been
// generated yet and is not an error. On failure the held plan is kept.
func (c *Controller) LoadToday(ctx context.Context) (State, error) {
	return c.load(ctx, "today", c.api.TodayPlan)
}

// LoadDate fetches the plan for a YYYY-MM-DD date.
func (c *Controller) LoadDate(ctx context.Context, date string) (State, error) {
	return c.load(ctx, date, func(ctx context.Context) (*model.Plan, error) {
		return c.api.PlanForDate(ctx, date)
	})
}

func (c *Controller) load(
	ctx context.Context,
	label string,
	fetch func(context.Context) (*model.Plan, error),
) (State, error) {
	tok := c.session.Token()
	p, err := fetch(ctx)
	if !c.session.Current(tok) {
		logger.Debug("dropping stale plan response", "date", label)
		return c.View().State, nil
	}
	if err != nil {
		logger.Warn("loading plan failed", "date", label, "err", err)
		return c.View().State, err
	}

	if p == nil {
		c.commit(func() {
			c.state = StateAbsent
			c.plan = nil
			c.fromCache = false
			c.selections = make(map[int64]model.PlanTaskStatus)
		})
		return StateAbsent, nil
	}

	c.apply(ctx, p, false)
	return StateReady, nil
}

// apply installs p as the held plan. Selections survive only for entries
// that are still awaiting feedback.
func (c *Controller) apply(ctx context.Context, p *model.Plan, resetSelections bool) {
	c.queue.Merge(p.Suggestions)

	held := *p
	held.Suggestions = nil
	c.commit(func() {
		c.state = StateReady
		c.plan = &held
		c.fromCache = false
		if resetSelections {
			c.selections = make(map[int64]model.PlanTaskStatus)
			return
		}
		for id := range c.selections {
			if pt, ok := held.Entry(id); !ok || pt.Status != model.PlanTaskPlanned {
				delete(c.selections, id)
			}
		}
	})

	if c.cache != nil && held.Date != "" {
		if err := c.cache.SavePlan(ctx, held); err != nil {
			logger.Warn("caching plan failed", "date", held.Date, "err", err)
		}
	}
}

// Warm seeds an empty controller with the cached plan for date.
func (c *Controller) Warm(ctx context.Context, date string) error {
	if c.cache == nil {
		return nil
	}
	if date == "" {
		date = model.Today()
	}
	if c.View().State != StateUnknown {
		return nil
	}

	p, _, err := c.cache.LoadPlan(ctx, date)
	if errors.Is(err, store.ErrNoSnapshot) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("warming plan %s: %w", date, err)
	}

	c.commit(func() {
		if c.state != StateUnknown {
			return
		}
		c.state = StateReady
		c.plan = p
		c.fromCache = true
	})
	return nil
}

// Generate asks the service for the plan of date (today when empty) and
// replaces the held plan with it. A second call while one is in flight
// fails with sync.ErrBusy.
func (c *Controller) Generate(ctx context.Context, date string) (*model.Plan, error) {
	if err := c.generating.Begin(); err != nil {
		return nil, err
	}
	c.commit(nil)
	defer func() {
		c.generating.End()
		c.commit(nil)
	}()

	p, err := c.api.GeneratePlan(ctx, date)
	if err != nil {
		logger.Warn("generating plan failed", "date", date, "err", err)
		return nil, err
	}
	if !c.session.Open() {
		return p, nil
	}

	// A generated plan is newer than any load still in flight.
	c.session.Token()
	c.apply(ctx, p, true)
	logger.Info("plan generated", "date", p.Date, "entries", len(p.Tasks))
	return p, nil
}

// Record marks an outcome for a plan entry. A later call for the same
// entry replaces the earlier choice. Only entries still awaiting feedback
// can be marked.
func (c *Controller) Record(planTaskID int64, status model.PlanTaskStatus) error {
	if !status.IsFeedback() {
		return model.Invalidf("feedback must be completed, missed or deferred (got %q)", status)
	}

	var err error
	c.commit(func() {
		if c.plan == nil {
			err = model.Invalidf("no plan loaded")
			return
		}
		pt, ok := c.plan.Entry(planTaskID)
		if !ok {
			err = model.Invalidf("plan entry %d is not in the plan for %s", planTaskID, c.plan.Date)
			return
		}
		if pt.Status != model.PlanTaskPlanned {
			err = model.Invalidf("%s is already marked %s", pt.Title(), pt.Status)
			return
		}
		c.selections[planTaskID] = status
	})
	return err
}

// Unrecord clears the outcome marked for a plan entry.
func (c *Controller) Unrecord(planTaskID int64) {
	c.commit(func() { delete(c.selections, planTaskID) })
}

// Discard drops every pending selection.
func (c *Controller) Discard() {
	c.commit(func() { c.selections = make(map[int64]model.PlanTaskStatus) })
}

// Pending returns the marked selections as feedback entries, ordered by
// plan entry order.
func (c *Controller) Pending() []model.FeedbackEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pendingLocked()
}

func (c *Controller) pendingLocked() []model.FeedbackEntry {
	order := make(map[int64]int)
	if c.plan != nil {
		for _, pt := range c.plan.Tasks {
			order[pt.ID] = pt.Order
		}
	}

	out := make([]model.FeedbackEntry, 0, len(c.selections))
	for id, s := range c.selections {
		out = append(out, model.FeedbackEntry{PlanTaskID: id, Status: s})
	}
	sort.Slice(out, func(i, j int) bool {
		oi, oj := order[out[i].PlanTaskID], order[out[j].PlanTaskID]
		if oi != oj {
			return oi < oj
		}
		return out[i].PlanTaskID < out[j].PlanTaskID
	})
	return out
}

// Submit sends the pending selections for date (the held plan's date, or
// today, when empty). With nothing marked it fails without contacting the
// service. On success the submitted selections are cleared, returned
// suggestions are queued and the plan is reloaded.
func (c *Controller) Submit(ctx context.Context, date string) (*model.FeedbackAck, error) {
	c.mu.Lock()
	results := c.pendingLocked()
	if date == "" && c.plan != nil {
		date = c.plan.Date
	}
	c.mu.Unlock()

	if len(results) == 0 {
		return nil, model.ErrNoFeedback
	}
	if date == "" {
		date = model.Today()
	}

	if err := c.submitting.Begin(); err != nil {
		return nil, err
	}
	c.commit(nil)
	defer func() {
		c.submitting.End()
		c.commit(nil)
	}()

	ack, err := c.api.SubmitFeedback(ctx, date, results)
	if err != nil {
		logger.Warn("submitting feedback failed", "date", date, "err", err)
		return nil, err
	}
	if !c.session.Open() {
		return ack, nil
	}

	c.commit(func() {
		for _, r := range results {
			if c.selections[r.PlanTaskID] == r.Status {
				delete(c.selections, r.PlanTaskID)
			}
		}
	})
	c.queue.Merge(ack.Suggestions)
	logger.Info("feedback submitted", "date", date, "entries", len(results), "suggestions", len(ack.Suggestions))

	if _, err := c.reload(ctx, date); err != nil {
		logger.Warn("reloading plan after feedback failed", "date", date, "err", err)
	}
	return ack, nil
}

func (c *Controller) reload(ctx context.Context, date string) (State, error) {
	if date == model.Today() {
		return c.LoadToday(ctx)
	}
	return c.LoadDate(ctx, date)
}

// Close stops applying responses. Requests already in flight complete
// but their results are dropped.
func (c *Controller) Close() {
	c.session.Close()
	c.mu.Lock()
	c.subs = make(map[int]func(View))
	c.mu.Unlock()
}
