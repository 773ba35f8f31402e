package store

import (
	"context"
	"errors"
	"time"

	"github.com/nhle/deletion-planner/internal/model"
)

// ErrNoSnapshot is returned when nothing has been cached for a key yet.
var ErrNoSnapshot = errors.New("no cached snapshot")

// Cache keeps the last known-good server responses so the UI has
// something to show before the first fetch completes. It is never
// treated as authoritative.
type Cache interface {
	// SaveTasks replaces the cached listing for filter.
	SaveTasks(ctx context.Context, filter model.TaskFilter, tasks []model.Task) error

	// LoadTasks returns the cached listing for filter and when it was
	// fetched.
	LoadTasks(ctx context.Context, filter model.TaskFilter) ([]model.Task, time.Time, error)

	// SavePlan caches a plan keyed by its date. Deletion suggestions are
	// not stored.
	SavePlan(ctx context.Context, plan model.Plan) error

	// LoadPlan returns the cached plan for date.
	LoadPlan(ctx context.Context, date string) (*model.Plan, time.Time, error)

	// DeletePlan drops the cached plan for date.
	DeletePlan(ctx context.Context, date string) error
}
