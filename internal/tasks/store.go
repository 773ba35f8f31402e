// Package tasks owns the in-memory task collection shown by the list
// views. All writes go through Store so that every view observes the same
// state, and every write is reconciled with the service.
package tasks

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nhle/deletion-planner/internal/client"
	"github.com/nhle/deletion-planner/internal/logger"
	"github.com/nhle/deletion-planner/internal/model"
	"github.com/nhle/deletion-planner/internal/store"
	appsync "github.com/nhle/deletion-planner/internal/sync"
)

// Snapshot is a copy of the store's state handed to observers.
type Snapshot struct {
	Filter model.TaskFilter
	Tasks  []model.Task

	// Loaded is false until the first successful List or Warm.
	Loaded bool

	// FromCache marks a collection seeded from the local cache that has
	// not yet been confirmed by a fetch.
	FromCache bool
	FetchedAt time.Time

	// Unconfirmed is set while an optimistic reorder awaits the service.
	Unconfirmed bool
}

// Store is the single writer of the task collection.
type Store struct {
	api   client.API
	cache store.Cache

	mu          sync.Mutex
	filter      model.TaskFilter
	tasks       []model.Task
	loaded      bool
	fromCache   bool
	fetchedAt   time.Time
	unconfirmed bool
	subs        map[int]func(Snapshot)
	nextSub     int

	session appsync.Session
	batch   appsync.Flight
}

// Option configures a Store.
type Option func(*Store)

// WithCache persists every successful listing to c and lets Warm read
// it back.
func WithCache(c store.Cache) Option {
	return func(s *Store) { s.cache = c }
}

// NewStore creates a store over api. The initial filter is active.
func NewStore(api client.API, opts ...Option) *Store {
	s := &Store{
		api:    api,
		filter: model.FilterActive,
		subs:   make(map[int]func(Snapshot)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Subscribe registers fn to receive a snapshot after every change. The
// returned func removes the subscription.
func (s *Store) Subscribe(fn func(Snapshot)) (cancel func()) {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Filter returns the filter of the held collection.
func (s *Store) Filter() model.TaskFilter {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filter
}

// Find returns a copy of the task with id if it is in the collection.
func (s *Store) Find(id int64) (model.Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexLocked(id); i >= 0 {
		return s.tasks[i], true
	}
	return model.Task{}, false
}

// BatchBusy reports whether a batch creation is in flight.
func (s *Store) BatchBusy() bool {
	return s.batch.Busy()
}

func (s *Store) snapshotLocked() Snapshot {
	tasks := make([]model.Task, len(s.tasks))
	copy(tasks, s.tasks)
	return Snapshot{
		Filter:      s.filter,
		Tasks:       tasks,
		Loaded:      s.loaded,
		FromCache:   s.fromCache,
		FetchedAt:   s.fetchedAt,
		Unconfirmed: s.unconfirmed,
	}
}

func (s *Store) indexLocked(id int64) int {
	for i, t := range s.tasks {
		if t.ID == id {
			return i
		}
	}
	return -1
}

// commit applies mutate under the lock and notifies subscribers with
// the resulting snapshot.
func (s *Store) commit(mutate func()) {
	s.mu.Lock()
	mutate()
	snap := s.snapshotLocked()
	subs := make([]func(Snapshot), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	for _, fn := range subs {
		fn(snap)
	}
}

// List fetches the tasks for filter and replaces the collection. On
// failure the collection is left as it was. A response that arrives after
// a newer List or after Close is dropped.
func (s *Store) List(ctx context.Context, filter model.TaskFilter) error {
	if filter == "" {
		filter = model.FilterActive
	}
	if !filter.Valid() {
		return model.Invalidf("unknown filter %q", filter)
	}

	tok := s.session.Token()
	tasks, err := s.api.ListTasks(ctx, filter)
	if !s.session.Current(tok) {
		logger.Debug("dropping stale task listing", "filter", filter)
		return nil
	}
	if err != nil {
		logger.Warn("listing tasks failed", "filter", filter, "err", err)
		return err
	}

	now := time.Now()
	s.commit(func() {
		s.filter = filter
		s.tasks = tasks
		s.loaded = true
		s.fromCache = false
		s.fetchedAt = now
		s.unconfirmed = false
	})

	if s.cache != nil {
		if err := s.cache.SaveTasks(ctx, filter, tasks); err != nil {
			logger.Warn("caching task listing failed", "filter", filter, "err", err)
		}
	}
	return nil
}

// Warm seeds an unloaded store from the cache so the first frame has
// something to show. It is a no-op once a listing has been applied.
func (s *Store) Warm(ctx context.Context, filter model.TaskFilter) error {
	if s.cache == nil {
		return nil
	}
	s.mu.Lock()
	loaded := s.loaded
	s.mu.Unlock()
	if loaded {
		return nil
	}

	tasks, fetchedAt, err := s.cache.LoadTasks(ctx, filter)
	if errors.Is(err, store.ErrNoSnapshot) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("warming %s tasks: %w", filter, err)
	}

	s.commit(func() {
		if s.loaded {
			return
		}
		s.filter = filter
		s.tasks = tasks
		s.loaded = true
		s.fromCache = true
		s.fetchedAt = fetchedAt
	})
	return nil
}

// Create creates a task. The collection is not changed; callers List
// again to see it.
func (s *Store) Create(ctx context.Context, n model.NewTask) (*model.Task, error) {
	if err := n.Validate(); err != nil {
		return nil, err
	}
	created, err := s.api.CreateTask(ctx, n)
	if err != nil {
		logger.Warn("creating task failed", "err", err)
		return nil, err
	}
	logger.Info("task created", "id", created.ID)
	return created, nil
}

// BatchCreate creates one task per non-blank line of text. A second call
// while one is in flight fails with sync.ErrBusy.
func (s *Store) BatchCreate(ctx context.Context, text string) ([]model.Task, error) {
	if err := s.batch.Begin(); err != nil {
		return nil, err
	}
	defer s.batch.End()

	created, err := s.api.BatchCreateTasks(ctx, text)
	if err != nil {
		if !model.IsValidation(err) {
			logger.Warn("batch create failed", "err", err)
		}
		return nil, err
	}
	logger.Info("tasks created", "count", len(created))
	return created, nil
}

// Update sends patch and applies the returned task. A task whose new
// status no longer matches the current filter leaves the collection.
func (s *Store) Update(ctx context.Context, id int64, patch model.TaskPatch) (*model.Task, error) {
	updated, err := s.api.UpdateTask(ctx, id, patch)
	if err != nil {
		logger.Warn("updating task failed", "id", id, "err", err)
		return nil, err
	}
	if !s.session.Open() {
		return updated, nil
	}

	s.commit(func() {
		i := s.indexLocked(id)
		if i < 0 {
			return
		}
		if s.filter.Matches(updated.Status) {
			s.tasks[i] = *updated
		} else {
			s.tasks = append(s.tasks[:i], s.tasks[i+1:]...)
		}
	})
	return updated, nil
}

// Complete marks a task completed.
func (s *Store) Complete(ctx context.Context, id int64) (*model.Task, error) {
	return s.Update(ctx, id, model.StatusPatch(model.TaskStatusCompleted))
}

// Defer increments a task's deferral counter by one.
func (s *Store) Defer(ctx context.Context, id int64) (*model.Task, error) {
	return s.Update(ctx, id, model.DeferPatch())
}

// Delete soft-deletes a task, or removes it for good when hard is set or
// the task is already soft-deleted. Callers confirm hard deletion with the
// user before calling.
func (s *Store) Delete(ctx context.Context, id int64, hard bool) error {
	if err := s.api.DeleteTask(ctx, id, hard); err != nil {
		logger.Warn("deleting task failed", "id", id, "hard", hard, "err", err)
		return err
	}
	logger.Info("task deleted", "id", id, "hard", hard)
	if !s.session.Open() {
		return nil
	}

	s.commit(func() {
		i := s.indexLocked(id)
		if i < 0 {
			return
		}
		gone := hard || s.tasks[i].Status == model.TaskStatusDeleted
		if !gone && s.filter.Matches(model.TaskStatusDeleted) {
			s.tasks[i].Status = model.TaskStatusDeleted
			return
		}
		s.tasks = append(s.tasks[:i], s.tasks[i+1:]...)
	})
	return nil
}

// Reorder applies orderedIDs to the collection immediately, then sends
// the full ordering. The collection is reloaded from the service either
// way; on failure the reorder error is returned after the reload.
func (s *Store) Reorder(ctx context.Context, orderedIDs []int64) error {
	if len(orderedIDs) == 0 {
		return model.Invalidf("nothing to reorder")
	}
	if s.Filter() != model.FilterActive {
		return model.ErrReorderBlocked
	}

	s.commit(func() {
		s.tasks = applyOrder(s.tasks, orderedIDs)
		s.unconfirmed = true
	})

	if err := s.api.ReorderTasks(ctx, orderedIDs); err != nil {
		logger.Warn("reorder failed, reloading", "err", err)
		if reloadErr := s.List(ctx, model.FilterActive); reloadErr != nil {
			logger.Error("reload after failed reorder failed", "err", reloadErr)
		}
		return err
	}

	if err := s.List(ctx, model.FilterActive); err != nil {
		logger.Warn("refresh after reorder failed", "err", err)
		s.commit(func() { s.unconfirmed = false })
	}
	return nil
}

// applyOrder returns tasks arranged by ids. Tasks missing from ids keep
// their relative order after the listed ones.
func applyOrder(tasks []model.Task, ids []int64) []model.Task {
	byID := make(map[int64]model.Task, len(tasks))
	for _, t := range tasks {
		byID[t.ID] = t
	}

	out := make([]model.Task, 0, len(tasks))
	placed := make(map[int64]bool, len(ids))
	for i, id := range ids {
		t, ok := byID[id]
		if !ok || placed[id] {
			continue
		}
		t.SortOrder = i
		out = append(out, t)
		placed[id] = true
	}
	for _, t := range tasks {
		if !placed[t.ID] {
			out = append(out, t)
		}
	}
	return out
}

// Close stops applying responses. Calls already in flight complete but
// their results are discarded.
func (s *Store) Close() {
	s.session.Close()
	s.mu.Lock()
	s.subs = make(map[int]func(Snapshot))
	s.mu.Unlock()
}
