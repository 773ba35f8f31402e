package model

import "strings"

// TaskStatus is the lifecycle state of a task as reported by the server.
type TaskStatus string

// Task status constants.
const (
	TaskStatusActive    TaskStatus = "active"
	TaskStatusCompleted TaskStatus = "completed"
	TaskStatusDeleted   TaskStatus = "deleted"
)

// Category classifies a task for planning purposes.
type Category string

// Category constants. New tasks default to CategoryUnclassified.
const (
	CategoryUnclassified      Category = "unclassified"
	CategoryCore              Category = "core"
	CategoryDeferrable        Category = "deferrable"
	CategoryDeletionCandidate Category = "deletion_candidate"
)

// Categories lists every category in display order.
var Categories = []Category{
	CategoryUnclassified,
	CategoryCore,
	CategoryDeferrable,
	CategoryDeletionCandidate,
}

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// Label returns a human-readable name for the category.
func (c Category) Label() string {
	switch c {
	case CategoryCore:
		return "core"
	case CategoryDeferrable:
		return "deferrable"
	case CategoryDeletionCandidate:
		return "deletion candidate"
	default:
		return "unclassified"
	}
}

// Priority is a severity band. The values are not contiguous: the gaps
// between bands are part of the wire contract.
type Priority int

// Priority constants.
const (
	PriorityLow    Priority = 0
	PriorityMedium Priority = 1
	PriorityHigh   Priority = 3
	PriorityUrgent Priority = 5
)

// Priorities lists every priority band from lowest to highest.
var Priorities = []Priority{
	PriorityLow,
	PriorityMedium,
	PriorityHigh,
	PriorityUrgent,
}

// Valid reports whether p is one of the defined bands.
func (p Priority) Valid() bool {
	for _, known := range Priorities {
		if p == known {
			return true
		}
	}
	return false
}

// Label returns a human-readable name for the priority band.
func (p Priority) Label() string {
	switch p {
	case PriorityMedium:
		return "medium"
	case PriorityHigh:
		return "high"
	case PriorityUrgent:
		return "urgent"
	default:
		return "low"
	}
}

// ParsePriority maps a band name or its numeric value to a Priority.
func ParsePriority(s string) (Priority, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low", "0", "":
		return PriorityLow, true
	case "medium", "1":
		return PriorityMedium, true
	case "high", "3":
		return PriorityHigh, true
	case "urgent", "5":
		return PriorityUrgent, true
	}
	return PriorityLow, false
}

// Task is a unit of work with a lifecycle and planning metadata.
type Task struct {
	// ID is assigned by the server and never reused, including for
	// soft-deleted tasks.
	ID int64 `json:"id"`

	Title       string   `json:"title"`
	Description string   `json:"description"`
	Priority    Priority `json:"priority"`
	Category    Category `json:"category"`

	// Status is the lifecycle state (use TaskStatus* constants).
	Status TaskStatus `json:"status"`

	// DeferralCount and CompletionCount only ever grow.
	DeferralCount   int `json:"deferral_count"`
	CompletionCount int `json:"completion_count"`

	// SortOrder is the position among active tasks. Only reordering
	// changes it.
	SortOrder int `json:"sort_order"`

	CreatedAt string `json:"created_at,omitempty"`
	UpdatedAt string `json:"updated_at,omitempty"`
}

// TaskFilter selects which tasks a listing returns.
type TaskFilter string

// Filter constants accepted by the list endpoint.
const (
	FilterActive    TaskFilter = "active"
	FilterCompleted TaskFilter = "completed"
	FilterDeleted   TaskFilter = "deleted"
	FilterAll       TaskFilter = "all"
)

// Filters lists the filters in tab order.
var Filters = []TaskFilter{FilterActive, FilterCompleted, FilterDeleted, FilterAll}

// Valid reports whether f is a known filter.
func (f TaskFilter) Valid() bool {
	switch f {
	case FilterActive, FilterCompleted, FilterDeleted, FilterAll:
		return true
	}
	return false
}

// Matches reports whether a task with the given status belongs in a
// listing for f.
func (f TaskFilter) Matches(status TaskStatus) bool {
	if f == FilterAll {
		return true
	}
	return string(f) == string(status)
}

// NewTask holds the fields for creating a task.
type NewTask struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Priority    Priority `json:"priority"`
	Category    Category `json:"category"`
}

// Validate rejects a task whose title is empty or whitespace-only and
// fills in the default category.
func (n *NewTask) Validate() error {
	if strings.TrimSpace(n.Title) == "" {
		return ErrEmptyTitle
	}
	if n.Category == "" {
		n.Category = CategoryUnclassified
	}
	if !n.Category.Valid() {
		return Invalidf("unknown category %q", n.Category)
	}
	if !n.Priority.Valid() {
		return Invalidf("priority must be one of 0, 1, 3, 5 (got %d)", n.Priority)
	}
	return nil
}

// TaskPatch carries a partial update. Only non-nil fields are sent.
type TaskPatch struct {
	Title       *string     `json:"title,omitempty"`
	Description *string     `json:"description,omitempty"`
	Priority    *Priority   `json:"priority,omitempty"`
	Category    *Category   `json:"category,omitempty"`
	Status      *TaskStatus `json:"status,omitempty"`
	SortOrder   *int        `json:"sort_order,omitempty"`

	// DeferralCountDelta is a relative increment applied by the server,
	// so concurrent increments compose.
	DeferralCountDelta *int `json:"deferral_count_delta,omitempty"`
}

// Empty reports whether the patch changes nothing.
func (p TaskPatch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.Priority == nil &&
		p.Category == nil && p.Status == nil && p.SortOrder == nil &&
		p.DeferralCountDelta == nil
}

// StatusPatch returns a patch that only sets the status.
func StatusPatch(status TaskStatus) TaskPatch {
	return TaskPatch{Status: &status}
}

// DeferPatch returns a patch that increments the deferral counter by one.
func DeferPatch() TaskPatch {
	delta := 1
	return TaskPatch{DeferralCountDelta: &delta}
}
