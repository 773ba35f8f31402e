// Package suggest holds the deletion suggestions received from the
// service and resolves them one by one.
package suggest

import (
	"sync"

	"github.com/nhle/deletion-planner/internal/model"
)

// Queue is the local, never persisted list of pending deletion
// suggestions. It holds at most one entry per task id.
type Queue struct {
	mu      sync.Mutex
	items   []model.DeletionSuggestion
	subs    map[int]func([]model.DeletionSuggestion)
	nextSub int
}

// NewQueue returns an empty queue.
func NewQueue() *Queue {
	return &Queue{subs: make(map[int]func([]model.DeletionSuggestion))}
}

// Merge adds items. An item whose task id is already queued replaces the
// queued content in place; new ids are appended in the order given.
func (q *Queue) Merge(items []model.DeletionSuggestion) {
	if len(items) == 0 {
		return
	}
	q.update(func() {
		for _, it := range items {
			if i := q.indexLocked(it.ID); i >= 0 {
				q.items[i] = it
				continue
			}
			q.items = append(q.items, it)
		}
	})
}

// Items returns a copy of the queued suggestions.
func (q *Queue) Items() []model.DeletionSuggestion {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.copyLocked()
}

// Len returns the number of queued suggestions.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Get returns the suggestion for task id.
func (q *Queue) Get(id int64) (model.DeletionSuggestion, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if i := q.indexLocked(id); i >= 0 {
		return q.items[i], true
	}
	return model.DeletionSuggestion{}, false
}

// Remove drops the suggestion for task id and reports whether it was
// queued.
func (q *Queue) Remove(id int64) bool {
	var removed bool
	q.update(func() {
		if i := q.indexLocked(id); i >= 0 {
			q.items = append(q.items[:i], q.items[i+1:]...)
			removed = true
		}
	})
	return removed
}

// Clear empties the queue.
func (q *Queue) Clear() {
	q.update(func() { q.items = nil })
}

// Subscribe registers fn to receive the queue contents after every
// change.
func (q *Queue) Subscribe(fn func([]model.DeletionSuggestion)) (cancel func()) {
	q.mu.Lock()
	id := q.nextSub
	q.nextSub++
	q.subs[id] = fn
	q.mu.Unlock()

	return func() {
		q.mu.Lock()
		delete(q.subs, id)
		q.mu.Unlock()
	}
}

func (q *Queue) indexLocked(id int64) int {
	for i, it := range q.items {
		if it.ID == id {
			return i
		}
	}
	return -1
}

func (q *Queue) copyLocked() []model.DeletionSuggestion {
	out := make([]model.DeletionSuggestion, len(q.items))
	copy(out, q.items)
	return out
}

func (q *Queue) update(mutate func()) {
	q.mu.Lock()
	mutate()
	items := q.copyLocked()
	subs := make([]func([]model.DeletionSuggestion), 0, len(q.subs))
	for _, fn := range q.subs {
		subs = append(subs, fn)
	}
	q.mu.Unlock()

	for _, fn := range subs {
		fn(items)
	}
}
