// Package reorder turns a pick-hover-drop gesture over the active task
// list into a new ordering and hands it to the task store.
package reorder

import (
	"context"
	"sync"

	"github.com/nhle/deletion-planner/internal/model"
	"github.com/nhle/deletion-planner/internal/tasks"
)

// Move returns a copy of ids with the element at from removed and
// re-inserted at index to. Out-of-range indexes return an unchanged copy.
func Move(ids []int64, from, to int) []int64 {
	out := make([]int64, len(ids))
	copy(out, ids)
	if from < 0 || from >= len(out) || to < 0 || to >= len(out) || from == to {
		return out
	}

	moved := out[from]
	out = append(out[:from], out[from+1:]...)
	out = append(out[:to], append([]int64{moved}, out[to:]...)...)
	return out
}

// Engine holds the state of one drag gesture at a time.
type Engine struct {
	store *tasks.Store

	mu     sync.Mutex
	source int64
	target int64
}

// NewEngine returns an engine that reorders through store.
func NewEngine(store *tasks.Store) *Engine {
	return &Engine{store: store}
}

// Enabled reports whether the store currently holds the active listing.
// Other listings cannot be reordered.
func (e *Engine) Enabled() bool {
	return e.store.Filter() == model.FilterActive
}

// DragStart records id as the dragged task.
func (e *Engine) DragStart(id int64) {
	if !e.Enabled() {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.source = id
	e.target = 0
}

// DragOver marks id as the drop indicator. Nothing is reordered.
func (e *Engine) DragOver(id int64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.source == 0 {
		return
	}
	e.target = id
}

// Dragging returns the dragged task id, or 0.
func (e *Engine) Dragging() int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.source
}

// DropIndicator returns the task currently hovered during a drag, or 0.
func (e *Engine) DropIndicator() int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.target
}

// Cancel abandons the gesture.
func (e *Engine) Cancel() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.source, e.target = 0, 0
}

// Drop ends the gesture on target. It is a no-op when reordering is
// disabled, when no drag is in progress, when either task is not in the
// listing, or when the task is dropped on itself. Otherwise the dragged
// task takes target's position and the new ordering is sent through the
// store, which reloads on failure.
func (e *Engine) Drop(ctx context.Context, target int64) (bool, error) {
	e.mu.Lock()
	source := e.source
	e.source, e.target = 0, 0
	e.mu.Unlock()

	if !e.Enabled() || source == 0 || target == 0 || source == target {
		return false, nil
	}

	snap := e.store.Snapshot()
	ids := make([]int64, len(snap.Tasks))
	from, to := -1, -1
	for i, t := range snap.Tasks {
		ids[i] = t.ID
		switch t.ID {
		case source:
			from = i
		case target:
			to = i
		}
	}
	if from < 0 || to < 0 {
		return false, nil
	}

	if err := e.store.Reorder(ctx, Move(ids, from, to)); err != nil {
		return false, err
	}
	return true, nil
}
