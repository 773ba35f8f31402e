package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/nhle/deletion-planner/internal/model"
	"github.com/nhle/deletion-planner/internal/plan"
)

func validateDate(date string) error {
	if date == "" {
		return nil
	}
	if _, err := time.Parse(model.DateLayout, date); err != nil {
		return model.Invalidf("invalid date %q, use YYYY-MM-DD", date)
	}
	return nil
}

// loadPlan loads the plan for date (today when empty) into the controller.
func loadPlan(ctx *Context, date string) (*model.Plan, error) {
	bg := context.Background()
	var (
		state plan.State
		err   error
	)
	if date == "" || date == model.Today() {
		state, err = ctx.Plan.LoadToday(bg)
	} else {
		state, err = ctx.Plan.LoadDate(bg, date)
	}
	if err != nil {
		return nil, fmt.Errorf("loading plan: %w", err)
	}
	if state == plan.StateAbsent {
		return nil, nil
	}
	return ctx.Plan.View().Plan, nil
}

// PlanTodayCmd prints today's plan.
type PlanTodayCmd struct{}

func (c *PlanTodayCmd) Run(ctx *Context) error {
	p, err := loadPlan(ctx, "")
	if err != nil {
		return err
	}
	if p == nil {
		ctx.printf("No plan for today. Generate one with: planner plan generate\n")
		return nil
	}
	ctx.printPlan(p)
	ctx.printSuggestions()
	return nil
}

// PlanShowCmd prints the plan for a given day.
type PlanShowCmd struct {
	Date string `arg:"" help:"Day (YYYY-MM-DD)."`
}

func (c *PlanShowCmd) Run(ctx *Context) error {
	if err := validateDate(c.Date); err != nil {
		return err
	}
	p, err := loadPlan(ctx, c.Date)
	if err != nil {
		return err
	}
	if p == nil {
		ctx.printf("No plan for %s\n", c.Date)
		return nil
	}
	ctx.printPlan(p)
	return nil
}

// PlanGenerateCmd asks the service to plan a day.
type PlanGenerateCmd struct {
	Date string `help:"Day to plan (YYYY-MM-DD). Defaults to today."`
}

func (c *PlanGenerateCmd) Run(ctx *Context) error {
	if err := validateDate(c.Date); err != nil {
		return err
	}
	p, err := ctx.Plan.Generate(context.Background(), c.Date)
	if err != nil {
		return fmt.Errorf("generating plan: %w", err)
	}
	ctx.printPlan(p)
	ctx.printSuggestions()
	return nil
}

// FeedbackCmd records the outcome of planned tasks and submits them.
type FeedbackCmd struct {
	Date  string   `help:"Plan day (YYYY-MM-DD). Defaults to today."`
	Marks []string `arg:"" help:"Outcomes as <position>=<done|missed|deferred>, e.g. 1=done 3=deferred."`
}

// parseMark splits "2=done" into a 1-based plan position and a status.
func parseMark(s string) (int, model.PlanTaskStatus, error) {
	pos, outcome, ok := strings.Cut(s, "=")
	if !ok {
		return 0, "", model.Invalidf("expected <position>=<outcome>, got %q", s)
	}
	n, err := strconv.Atoi(strings.TrimSpace(pos))
	if err != nil || n < 1 {
		return 0, "", model.Invalidf("invalid position %q", pos)
	}

	switch strings.ToLower(strings.TrimSpace(outcome)) {
	case "done", "completed", "complete":
		return n, model.PlanTaskCompleted, nil
	case "missed", "miss", "skipped":
		return n, model.PlanTaskMissed, nil
	case "deferred", "defer", "later":
		return n, model.PlanTaskDeferred, nil
	}
	return 0, "", model.Invalidf("unknown outcome %q (use done, missed or deferred)", outcome)
}

func (c *FeedbackCmd) Run(ctx *Context) error {
	if err := validateDate(c.Date); err != nil {
		return err
	}

	type mark struct {
		pos    int
		status model.PlanTaskStatus
	}
	marks := make([]mark, 0, len(c.Marks))
	for _, raw := range c.Marks {
		pos, status, err := parseMark(raw)
		if err != nil {
			return err
		}
		marks = append(marks, mark{pos, status})
	}

	p, err := loadPlan(ctx, c.Date)
	if err != nil {
		return err
	}
	if p == nil {
		return model.Invalidf("no plan to give feedback on")
	}

	for _, m := range marks {
		if m.pos > len(p.Tasks) {
			return model.Invalidf("position %d is out of range (plan has %d tasks)", m.pos, len(p.Tasks))
		}
		if err := ctx.Plan.Record(p.Tasks[m.pos-1].ID, m.status); err != nil {
			return err
		}
	}

	ack, err := ctx.Plan.Submit(context.Background(), p.Date)
	if err != nil {
		return err
	}
	msg := ack.Message
	if msg == "" {
		msg = "Feedback submitted"
	}
	ctx.printf("%s\n", msg)
	ctx.printSuggestions()
	return nil
}

// HistoryCmd prints task lifecycle events grouped by day.
type HistoryCmd struct {
	Task   int64 `help:"Only show events for this task ID."`
	Limit  int   `short:"n" help:"Maximum number of events." default:"50"`
	Offset int   `help:"Skip this many events."`
}

func (c *HistoryCmd) Run(ctx *Context) error {
	entries, err := ctx.API.History(context.Background(), model.HistoryQuery{
		TaskID: c.Task,
		Limit:  c.Limit,
		Offset: c.Offset,
	})
	if err != nil {
		return fmt.Errorf("loading history: %w", err)
	}
	if len(entries) == 0 {
		ctx.printf("No history\n")
		return nil
	}

	dates, grouped := model.GroupHistoryByDate(entries)
	for _, date := range dates {
		ctx.printf("%s\n", date)
		for _, e := range grouped[date] {
			ctx.printf("  task #%-4d %s", e.TaskID, e.Action)
			if e.AIReasoning != "" {
				ctx.printf("  %s", e.AIReasoning)
			}
			ctx.printf("\n")
		}
	}
	return nil
}

// StatsCmd prints task and plan counts.
type StatsCmd struct{}

func (c *StatsCmd) Run(ctx *Context) error {
	s, err := ctx.API.Stats(context.Background())
	if err != nil {
		return fmt.Errorf("loading stats: %w", err)
	}
	ctx.printf("Tasks:             %d (%d active, %d completed, %d deleted)\n",
		s.TotalTasks, s.ActiveTasks, s.CompletedTasks, s.DeletedTasks)
	ctx.printf("Plans:             %d\n", s.TotalPlans)
	ctx.printf("Planned entries:   %d (%d completed)\n", s.TotalPlanTasks, s.CompletedPlanTasks)
	ctx.printf("Completion rate:   %.1f%%\n", s.CompletionRate)
	return nil
}
