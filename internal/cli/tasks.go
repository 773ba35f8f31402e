package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/nhle/deletion-planner/internal/model"
)

// TaskListCmd prints the tasks matching a filter.
type TaskListCmd struct {
	Filter string `short:"f" help:"Filter (active|completed|deleted|all)." default:"active" enum:"active,completed,deleted,all"`
}

func (c *TaskListCmd) Run(ctx *Context) error {
	filter := model.TaskFilter(c.Filter)
	if err := ctx.Tasks.List(context.Background(), filter); err != nil {
		return fmt.Errorf("listing tasks: %w", err)
	}

	snap := ctx.Tasks.Snapshot()
	if len(snap.Tasks) == 0 {
		ctx.printf("No %s tasks\n", filter)
		return nil
	}
	ctx.printf("Tasks (%s):\n", filter)
	for _, t := range snap.Tasks {
		ctx.printTask(t)
	}
	return nil
}

// TaskAddCmd creates a single task.
type TaskAddCmd struct {
	Title       string `arg:"" help:"Task title."`
	Description string `short:"d" help:"Optional description."`
	Priority    string `short:"p" help:"Priority (low|medium|high|urgent or 0|1|3|5)." default:"low"`
	Category    string `short:"c" help:"Category (unclassified|core|deferrable|deletion_candidate)." default:"unclassified"`
}

func (c *TaskAddCmd) Run(ctx *Context) error {
	priority, ok := model.ParsePriority(c.Priority)
	if !ok {
		return fmt.Errorf("unknown priority %q", c.Priority)
	}

	created, err := ctx.Tasks.Create(context.Background(), model.NewTask{
		Title:       strings.TrimSpace(c.Title),
		Description: c.Description,
		Priority:    priority,
		Category:    model.Category(c.Category),
	})
	if err != nil {
		return err
	}
	ctx.printf("Created task #%d: %s\n", created.ID, created.Title)
	return nil
}

// TaskBatchCmd creates one task per non-blank line of a file or stdin.
type TaskBatchCmd struct {
	File string `arg:"" optional:"" help:"File with one task per line. Reads stdin when omitted or '-'." type:"path"`
}

func (c *TaskBatchCmd) Run(ctx *Context) error {
	var r io.Reader = os.Stdin
	if c.File != "" && c.File != "-" {
		f, err := os.Open(c.File)
		if err != nil {
			return fmt.Errorf("opening %s: %w", c.File, err)
		}
		defer f.Close()
		r = f
	}

	text, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("reading tasks: %w", err)
	}

	created, err := ctx.Tasks.BatchCreate(context.Background(), string(text))
	if err != nil {
		return err
	}
	ctx.printf("Created %d tasks\n", len(created))
	for _, t := range created {
		ctx.printTask(t)
	}
	return nil
}

// TaskUpdateCmd changes selected fields of a task.
type TaskUpdateCmd struct {
	ID          int64   `arg:"" help:"Task ID."`
	Title       *string `help:"New title."`
	Description *string `help:"New description."`
	Priority    *string `help:"New priority (low|medium|high|urgent)."`
	Category    *string `help:"New category."`
	Status      *string `help:"New status (active|completed|deleted)."`
}

func (c *TaskUpdateCmd) patch() (model.TaskPatch, error) {
	var p model.TaskPatch
	if c.Title != nil {
		title := strings.TrimSpace(*c.Title)
		if title == "" {
			return p, model.ErrEmptyTitle
		}
		p.Title = &title
	}
	p.Description = c.Description
	if c.Priority != nil {
		priority, ok := model.ParsePriority(*c.Priority)
		if !ok {
			return p, model.Invalidf("unknown priority %q", *c.Priority)
		}
		p.Priority = &priority
	}
	if c.Category != nil {
		category := model.Category(*c.Category)
		if !category.Valid() {
			return p, model.Invalidf("unknown category %q", *c.Category)
		}
		p.Category = &category
	}
	if c.Status != nil {
		status := model.TaskStatus(*c.Status)
		switch status {
		case model.TaskStatusActive, model.TaskStatusCompleted, model.TaskStatusDeleted:
		default:
			return p, model.Invalidf("unknown status %q", *c.Status)
		}
		p.Status = &status
	}
	if p.Empty() {
		return p, model.Invalidf("nothing to update")
	}
	return p, nil
}

func (c *TaskUpdateCmd) Run(ctx *Context) error {
	p, err := c.patch()
	if err != nil {
		return err
	}
	updated, err := ctx.Tasks.Update(context.Background(), c.ID, p)
	if err != nil {
		return err
	}
	ctx.printf("Updated task:\n")
	ctx.printTask(*updated)
	return nil
}

// TaskCompleteCmd marks a task completed.
type TaskCompleteCmd struct {
	ID int64 `arg:"" help:"Task ID."`
}

func (c *TaskCompleteCmd) Run(ctx *Context) error {
	t, err := ctx.Tasks.Complete(context.Background(), c.ID)
	if err != nil {
		return err
	}
	ctx.printf("Completed: %s\n", t.Title)
	return nil
}

// TaskDeferCmd bumps a task's deferral counter.
type TaskDeferCmd struct {
	ID int64 `arg:"" help:"Task ID."`
}

func (c *TaskDeferCmd) Run(ctx *Context) error {
	t, err := ctx.Tasks.Defer(context.Background(), c.ID)
	if err != nil {
		return err
	}
	ctx.printf("Deferred: %s (%d times)\n", t.Title, t.DeferralCount)
	return nil
}

// TaskDeleteCmd soft-deletes a task, or removes it for good with --hard.
// Deleting a task that is already soft-deleted removes it for good too.
type TaskDeleteCmd struct {
	ID   int64 `arg:"" help:"Task ID."`
	Hard bool  `help:"Delete permanently, including history."`
	Yes  bool  `short:"y" help:"Skip the confirmation prompt for permanent deletes."`
}

func (c *TaskDeleteCmd) Run(ctx *Context) error {
	bg := context.Background()

	hard := c.Hard
	if !hard {
		if err := ctx.Tasks.List(bg, model.FilterDeleted); err != nil {
			return fmt.Errorf("listing deleted tasks: %w", err)
		}
		_, hard = ctx.Tasks.Find(c.ID)
	}

	if hard && !c.Yes {
		ok, err := Confirm(
			fmt.Sprintf("Permanently delete task #%d?", c.ID),
			"The task and its history cannot be recovered.",
		)
		if err != nil {
			return err
		}
		if !ok {
			ctx.printf("Cancelled\n")
			return nil
		}
	}

	if err := ctx.Tasks.Delete(bg, c.ID, hard); err != nil {
		return err
	}
	if hard {
		ctx.printf("Permanently deleted task #%d\n", c.ID)
	} else {
		ctx.printf("Deleted task #%d (restore with: planner task update %d --status active)\n", c.ID, c.ID)
	}
	return nil
}

// TaskReorderCmd moves one active task to a new position.
type TaskReorderCmd struct {
	ID       int64 `arg:"" help:"Task ID to move."`
	Position int   `arg:"" help:"New 1-based position among active tasks."`
}

func (c *TaskReorderCmd) Run(ctx *Context) error {
	bg := context.Background()
	if err := ctx.Tasks.List(bg, model.FilterActive); err != nil {
		return fmt.Errorf("listing tasks: %w", err)
	}

	snap := ctx.Tasks.Snapshot()
	if c.Position < 1 || c.Position > len(snap.Tasks) {
		return model.Invalidf("position must be between 1 and %d", len(snap.Tasks))
	}
	target := snap.Tasks[c.Position-1].ID
	if _, ok := ctx.Tasks.Find(c.ID); !ok {
		return model.Invalidf("task #%d is not active", c.ID)
	}

	ctx.Engine.DragStart(c.ID)
	moved, err := ctx.Engine.Drop(bg, target)
	if err != nil {
		return err
	}
	if !moved {
		ctx.printf("Task #%d is already at position %d\n", c.ID, c.Position)
		return nil
	}

	ctx.printf("Tasks (active):\n")
	for _, t := range ctx.Tasks.Snapshot().Tasks {
		ctx.printTask(t)
	}
	return nil
}
