// Package cli implements the planner's non-interactive commands. Each
// command is a kong command struct with a Run(*Context) method.
package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/nhle/deletion-planner/internal/client"
	"github.com/nhle/deletion-planner/internal/model"
	"github.com/nhle/deletion-planner/internal/plan"
	"github.com/nhle/deletion-planner/internal/reorder"
	"github.com/nhle/deletion-planner/internal/store"
	"github.com/nhle/deletion-planner/internal/suggest"
	"github.com/nhle/deletion-planner/internal/tasks"
)

// Context carries the components shared by every command.
type Context struct {
	Config     *model.AppConfig
	ConfigPath string
	API        client.API
	Tasks      *tasks.Store
	Plan       *plan.Controller
	Resolver   *suggest.Resolver
	Engine     *reorder.Engine
	Out        io.Writer
}

// NewContext wires the task store, plan controller and suggestion
// resolver over api. A nil cache disables snapshot caching.
func NewContext(cfg *model.AppConfig, api client.API, cache store.Cache, out io.Writer) *Context {
	if out == nil {
		out = os.Stdout
	}

	var taskOpts []tasks.Option
	var planOpts []plan.Option
	if cache != nil {
		taskOpts = append(taskOpts, tasks.WithCache(cache))
		planOpts = append(planOpts, plan.WithCache(cache))
	}

	taskStore := tasks.NewStore(api, taskOpts...)
	queue := suggest.NewQueue()

	return &Context{
		Config:   cfg,
		API:      api,
		Tasks:    taskStore,
		Plan:     plan.NewController(api, queue, planOpts...),
		Resolver: suggest.NewResolver(queue, taskStore),
		Engine:   reorder.NewEngine(taskStore),
		Out:      out,
	}
}

// Close stops the components from applying further responses.
func (c *Context) Close() {
	c.Tasks.Close()
	c.Plan.Close()
}

func (c *Context) printf(format string, args ...any) {
	fmt.Fprintf(c.Out, format, args...)
}

// Confirm asks a yes/no question on the terminal. Tests replace it.
var Confirm = func(title, description string) (bool, error) {
	var ok bool
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(title).
				Description(description).
				Affirmative("Yes").
				Negative("No").
				Value(&ok),
		),
	).Run()
	return ok, err
}

func (c *Context) printTask(t model.Task) {
	line := fmt.Sprintf("  #%-4d %-9s %-7s %s", t.ID, t.Status, t.Priority.Label(), t.Title)
	var extra []string
	if t.Category != model.CategoryUnclassified && t.Category != "" {
		extra = append(extra, t.Category.Label())
	}
	if t.DeferralCount > 0 {
		extra = append(extra, fmt.Sprintf("deferred %dx", t.DeferralCount))
	}
	if t.CompletionCount > 0 {
		extra = append(extra, fmt.Sprintf("done %dx", t.CompletionCount))
	}
	if len(extra) > 0 {
		line += " (" + strings.Join(extra, ", ") + ")"
	}
	c.printf("%s\n", line)
}

func (c *Context) printPlan(p *model.Plan) {
	c.printf("Plan for %s\n", p.Date)
	if p.OverloadWarning != "" {
		c.printf("⚠ %s\n", p.OverloadWarning)
	}
	for i, pt := range p.Tasks {
		c.printf("  %d. [%s] %s\n", i+1, pt.Status, pt.Title())
	}
	if len(p.Tasks) == 0 {
		c.printf("  (no tasks)\n")
	}
	if p.Reasoning != "" {
		c.printf("\n%s\n", p.Reasoning)
	}
}

// printSuggestions lists the queued deletion suggestions.
func (c *Context) printSuggestions() {
	items := c.Resolver.Queue().Items()
	if len(items) == 0 {
		return
	}
	c.printf("\nSuggested for deletion:\n")
	for _, s := range items {
		c.printf("  #%-4d %s\n", s.ID, s.Title)
		if s.DeletionReasoning != "" {
			c.printf("        %s\n", s.DeletionReasoning)
		}
		for _, r := range s.TriggerReasons {
			c.printf("        - %s\n", r)
		}
	}
	c.printf("Delete with: planner task delete --hard <id>\n")
}
