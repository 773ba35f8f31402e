package model

// History action constants.
const (
	ActionCreated   = "created"
	ActionPlanned   = "planned"
	ActionCompleted = "completed"
	ActionMissed    = "missed"
	ActionDeferred  = "deferred"
	ActionDeleted   = "deleted"
)

// HistoryEntry records one lifecycle event of a task.
type HistoryEntry struct {
	ID          int64  `json:"id"`
	TaskID      int64  `json:"task_id"`
	Date        string `json:"date"`
	Action      string `json:"action"`
	AIReasoning string `json:"ai_reasoning,omitempty"`
	CreatedAt   string `json:"created_at,omitempty"`
}

// HistoryQuery narrows a history request. A zero TaskID means all tasks.
type HistoryQuery struct {
	TaskID int64
	Limit  int
	Offset int
}

// Stats summarises task and plan counts.
type Stats struct {
	TotalTasks         int     `json:"total_tasks"`
	ActiveTasks        int     `json:"active_tasks"`
	CompletedTasks     int     `json:"completed_tasks"`
	DeletedTasks       int     `json:"deleted_tasks"`
	TotalPlans         int     `json:"total_plans"`
	TotalPlanTasks     int     `json:"total_plan_tasks"`
	CompletedPlanTasks int     `json:"completed_plan_tasks"`
	CompletionRate     float64 `json:"completion_rate"` // percent, 0-100
}

// GroupHistoryByDate buckets entries by date, preserving the order in
// which dates first appear.
func GroupHistoryByDate(entries []HistoryEntry) ([]string, map[string][]HistoryEntry) {
	var dates []string
	grouped := make(map[string][]HistoryEntry)
	for _, e := range entries {
		if _, ok := grouped[e.Date]; !ok {
			dates = append(dates, e.Date)
		}
		grouped[e.Date] = append(grouped[e.Date], e)
	}
	return dates, grouped
}
