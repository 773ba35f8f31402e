package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/nhle/deletion-planner/internal/model"
)

// API is the set of remote operations the task store, plan controller
// and CLI depend on. *Client implements it against the HTTP service;
// tests substitute an in-memory fake.
type API interface {
	ListTasks(ctx context.Context, filter model.TaskFilter) ([]model.Task, error)
	CreateTask(ctx context.Context, task model.NewTask) (*model.Task, error)
	BatchCreateTasks(ctx context.Context, text string) ([]model.Task, error)
	UpdateTask(ctx context.Context, id int64, patch model.TaskPatch) (*model.Task, error)
	DeleteTask(ctx context.Context, id int64, hard bool) error
	ReorderTasks(ctx context.Context, orderedIDs []int64) error

	GeneratePlan(ctx context.Context, date string) (*model.Plan, error)
	// TodayPlan returns (nil, nil) when no plan exists for today yet.
	TodayPlan(ctx context.Context) (*model.Plan, error)
	// PlanForDate returns (nil, nil) when no plan exists for date.
	PlanForDate(ctx context.Context, date string) (*model.Plan, error)
	SubmitFeedback(ctx context.Context, date string, results []model.FeedbackEntry) (*model.FeedbackAck, error)

	History(ctx context.Context, q model.HistoryQuery) ([]model.HistoryEntry, error)
	Stats(ctx context.Context) (*model.Stats, error)
	Health(ctx context.Context) (bool, error)
}

var _ API = (*Client)(nil)

// ListTasks returns the tasks matching filter.
func (c *Client) ListTasks(ctx context.Context, filter model.TaskFilter) ([]model.Task, error) {
	if filter == "" {
		filter = model.FilterActive
	}
	var tasks []model.Task
	path := "/api/tasks?status=" + url.QueryEscape(string(filter))
	if err := c.get(ctx, path, &tasks); err != nil {
		return nil, fmt.Errorf("listing %s tasks: %w", filter, err)
	}
	return tasks, nil
}

// CreateTask creates a single task. An empty or whitespace-only title is
// rejected without contacting the service.
func (c *Client) CreateTask(ctx context.Context, task model.NewTask) (*model.Task, error) {
	if err := task.Validate(); err != nil {
		return nil, err
	}
	task.Title = strings.TrimSpace(task.Title)

	var created model.Task
	if err := c.post(ctx, "/api/tasks", task, &created); err != nil {
		return nil, fmt.Errorf("creating task: %w", err)
	}
	return &created, nil
}

type batchRequest struct {
	Text string `json:"text"`
}

// BatchCreateTasks sends a free-text block that the service splits into
// one task per non-blank line.
func (c *Client) BatchCreateTasks(ctx context.Context, text string) ([]model.Task, error) {
	if strings.TrimSpace(text) == "" {
		return nil, model.ErrEmptyBatch
	}

	var created []model.Task
	if err := c.post(ctx, "/api/tasks/batch", batchRequest{Text: text}, &created); err != nil {
		return nil, fmt.Errorf("creating tasks: %w", err)
	}
	return created, nil
}

// UpdateTask sends only the fields set in patch.
func (c *Client) UpdateTask(ctx context.Context, id int64, patch model.TaskPatch) (*model.Task, error) {
	if patch.Empty() {
		return nil, model.Invalidf("nothing to update for task %d", id)
	}

	var updated model.Task
	if err := c.put(ctx, taskPath(id), patch, &updated); err != nil {
		return nil, fmt.Errorf("updating task %d: %w", id, err)
	}
	return &updated, nil
}

// DeleteTask soft-deletes a task, or removes it permanently when hard is
// set. Hard deletion cannot be undone; callers confirm with the user first.
func (c *Client) DeleteTask(ctx context.Context, id int64, hard bool) error {
	path := taskPath(id)
	if hard {
		path += "?hard=true"
	}
	if err := c.delete(ctx, path, nil); err != nil {
		return fmt.Errorf("deleting task %d: %w", id, err)
	}
	return nil
}

type reorderRequest struct {
	OrderedTaskIDs []int64 `json:"ordered_task_ids"`
}

// ReorderTasks replaces the ordering of the given tasks. The list is the
// full ordering, not a diff.
func (c *Client) ReorderTasks(ctx context.Context, orderedIDs []int64) error {
	if len(orderedIDs) == 0 {
		return model.Invalidf("nothing to reorder")
	}
	if err := c.put(ctx, "/api/tasks/reorder", reorderRequest{OrderedTaskIDs: orderedIDs}, nil); err != nil {
		return fmt.Errorf("reordering tasks: %w", err)
	}
	return nil
}

type generateRequest struct {
	Date string `json:"date,omitempty"`
	Lang string `json:"lang"`
}

// GeneratePlan asks the service to build the plan for date (today when
// empty). Regenerating an existing day returns that day's plan rather
// than a second one.
func (c *Client) GeneratePlan(ctx context.Context, date string) (*model.Plan, error) {
	var plan model.Plan
	if err := c.post(ctx, "/api/plans/generate", generateRequest{Date: date, Lang: c.lang}, &plan); err != nil {
		return nil, fmt.Errorf("generating plan: %w", err)
	}
	return &plan, nil
}

// TodayPlan fetches today's plan.
func (c *Client) TodayPlan(ctx context.Context) (*model.Plan, error) {
	return c.fetchPlan(ctx, "/api/plans/today?lang="+url.QueryEscape(c.lang))
}

// PlanForDate fetches the plan for a YYYY-MM-DD date.
func (c *Client) PlanForDate(ctx context.Context, date string) (*model.Plan, error) {
	return c.fetchPlan(ctx, "/api/plans/"+url.PathEscape(date)+"?lang="+url.QueryEscape(c.lang))
}

// fetchPlan treats a 404 or an empty body as "no plan yet".
func (c *Client) fetchPlan(ctx context.Context, path string) (*model.Plan, error) {
	var raw json.RawMessage
	if err := c.get(ctx, path, &raw); err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("loading plan: %w", err)
	}

	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) || bytes.Equal(trimmed, []byte("{}")) {
		return nil, nil
	}

	var plan model.Plan
	if err := json.Unmarshal(trimmed, &plan); err != nil {
		return nil, fmt.Errorf("decoding plan: %w", err)
	}
	if plan.Date == "" && len(plan.Tasks) == 0 {
		return nil, nil
	}
	return &plan, nil
}

type feedbackRequest struct {
	Date    string                `json:"date,omitempty"`
	Results []model.FeedbackEntry `json:"results"`
	Lang    string                `json:"lang"`
}

// SubmitFeedback records outcomes for plan entries of date.
func (c *Client) SubmitFeedback(
	ctx context.Context,
	date string,
	results []model.FeedbackEntry,
) (*model.FeedbackAck, error) {
	if len(results) == 0 {
		return nil, model.ErrNoFeedback
	}

	var ack model.FeedbackAck
	req := feedbackRequest{Date: date, Results: results, Lang: c.lang}
	if err := c.post(ctx, "/api/feedback", req, &ack); err != nil {
		return nil, fmt.Errorf("submitting feedback: %w", err)
	}
	return &ack, nil
}

// History returns lifecycle events, newest first.
func (c *Client) History(ctx context.Context, q model.HistoryQuery) ([]model.HistoryEntry, error) {
	params := url.Values{}
	limit := q.Limit
	if limit <= 0 {
		limit = 50
	}
	params.Set("limit", strconv.Itoa(limit))
	if q.Offset > 0 {
		params.Set("offset", strconv.Itoa(q.Offset))
	}
	if q.TaskID > 0 {
		params.Set("task_id", strconv.FormatInt(q.TaskID, 10))
	}

	var entries []model.HistoryEntry
	if err := c.get(ctx, "/api/history?"+params.Encode(), &entries); err != nil {
		return nil, fmt.Errorf("loading history: %w", err)
	}
	return entries, nil
}

// Stats returns aggregate counts and the completion rate.
func (c *Client) Stats(ctx context.Context) (*model.Stats, error) {
	var stats model.Stats
	if err := c.get(ctx, "/api/stats", &stats); err != nil {
		return nil, fmt.Errorf("loading stats: %w", err)
	}
	return &stats, nil
}

type healthResponse struct {
	Status string `json:"status"`
	OK     *bool  `json:"ok"`
}

// Health reports whether the service answers its health check.
func (c *Client) Health(ctx context.Context) (bool, error) {
	var resp healthResponse
	if err := c.get(ctx, "/health", &resp); err != nil {
		return false, fmt.Errorf("health check: %w", err)
	}
	if resp.OK != nil {
		return *resp.OK, nil
	}
	return resp.Status == "" || strings.EqualFold(resp.Status, "ok") || strings.EqualFold(resp.Status, "healthy"), nil
}

func taskPath(id int64) string {
	return "/api/tasks/" + strconv.FormatInt(id, 10)
}
