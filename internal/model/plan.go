package model

import "time"

// DateLayout is the calendar-day format used on the wire.
const DateLayout = "2006-01-02"

// Today returns the current local calendar day in DateLayout.
func Today() string {
	return time.Now().Format(DateLayout)
}

// PlanTaskStatus is the feedback state of a plan entry.
type PlanTaskStatus string

// Plan entry status constants. Entries start as PlanTaskPlanned.
const (
	PlanTaskPlanned   PlanTaskStatus = "planned"
	PlanTaskCompleted PlanTaskStatus = "completed"
	PlanTaskDeferred  PlanTaskStatus = "deferred"
	PlanTaskMissed    PlanTaskStatus = "missed"
)

// FeedbackStatuses are the outcomes a user may record for an entry.
var FeedbackStatuses = []PlanTaskStatus{
	PlanTaskCompleted,
	PlanTaskMissed,
	PlanTaskDeferred,
}

// IsFeedback reports whether s is a valid feedback outcome.
func (s PlanTaskStatus) IsFeedback() bool {
	switch s {
	case PlanTaskCompleted, PlanTaskMissed, PlanTaskDeferred:
		return true
	}
	return false
}

// PlanTask is one entry of a daily plan.
type PlanTask struct {
	// ID identifies the entry, not the referenced task.
	ID     int64          `json:"id"`
	PlanID int64          `json:"plan_id,omitempty"`
	TaskID int64          `json:"task_id"`
	Status PlanTaskStatus `json:"status"`
	Order  int            `json:"order"`

	// Task is the referenced task as returned with the plan. It may be
	// stale relative to the task store.
	Task *Task `json:"task"`
}

// Title returns the referenced task's title, or a placeholder when the
// server did not embed it.
func (pt PlanTask) Title() string {
	if pt.Task == nil || pt.Task.Title == "" {
		return "(unknown task)"
	}
	return pt.Task.Title
}

// Plan is the set of tasks selected for one day.
type Plan struct {
	ID              int64                `json:"id,omitempty"`
	Date            string               `json:"date"`
	Tasks           []PlanTask           `json:"tasks"`
	Reasoning       string               `json:"reasoning,omitempty"`
	OverloadWarning string               `json:"overload_warning,omitempty"`
	MaxTasks        int                  `json:"max_tasks,omitempty"`
	Suggestions     []DeletionSuggestion `json:"deletion_suggestions,omitempty"`
	CreatedAt       string               `json:"created_at,omitempty"`
}

// Entry returns the plan entry with the given id.
func (p *Plan) Entry(id int64) (PlanTask, bool) {
	if p == nil {
		return PlanTask{}, false
	}
	for _, pt := range p.Tasks {
		if pt.ID == id {
			return pt, true
		}
	}
	return PlanTask{}, false
}

// Pending returns the number of entries still awaiting feedback.
func (p *Plan) Pending() int {
	if p == nil {
		return 0
	}
	n := 0
	for _, pt := range p.Tasks {
		if pt.Status == PlanTaskPlanned {
			n++
		}
	}
	return n
}

// DeletionSuggestion is an external recommendation to remove a task.
type DeletionSuggestion struct {
	// ID is the id of the underlying task.
	ID                int64    `json:"id"`
	Title             string   `json:"title"`
	DeletionReasoning string   `json:"deletion_reasoning"`
	TriggerReasons    []string `json:"trigger_reasons,omitempty"`
}

// FeedbackEntry is one (plan entry, outcome) pair in a submission.
type FeedbackEntry struct {
	PlanTaskID int64          `json:"plan_task_id"`
	Status     PlanTaskStatus `json:"status"`
}

// FeedbackAck is the server's reply to a feedback submission.
type FeedbackAck struct {
	Message     string               `json:"message"`
	Suggestions []DeletionSuggestion `json:"deletion_suggestions,omitempty"`
}
