package suggest

import (
	"context"
	"fmt"

	"github.com/nhle/deletion-planner/internal/logger"
)

// Deleter removes tasks. *tasks.Store implements it.
type Deleter interface {
	Delete(ctx context.Context, id int64, hard bool) error
}

// Resolver acts on the suggestions in a Queue.
type Resolver struct {
	queue   *Queue
	deleter Deleter
}

// NewResolver returns a resolver over queue that deletes through d.
func NewResolver(queue *Queue, d Deleter) *Resolver {
	return &Resolver{queue: queue, deleter: d}
}

// Queue returns the queue the resolver acts on.
func (r *Resolver) Queue() *Queue {
	return r.queue
}

// Accept permanently deletes the suggested task and then drops the
// suggestion. If the deletion fails the suggestion stays queued.
func (r *Resolver) Accept(ctx context.Context, id int64) error {
	if _, ok := r.queue.Get(id); !ok {
		return fmt.Errorf("no deletion suggestion for task %d", id)
	}
	if err := r.deleter.Delete(ctx, id, true); err != nil {
		logger.Warn("accepting deletion suggestion failed", "id", id, "err", err)
		return err
	}
	r.queue.Remove(id)
	logger.Info("deletion suggestion accepted", "id", id)
	return nil
}

// Keep drops the suggestion and leaves the task alone.
func (r *Resolver) Keep(id int64) {
	r.queue.Remove(id)
}

// DismissAll drops every suggestion.
func (r *Resolver) DismissAll() {
	r.queue.Clear()
}
