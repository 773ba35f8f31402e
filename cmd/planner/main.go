package main

import (
	"fmt"
	"os"
	"time"

	"github.com/alecthomas/kong"

	"github.com/nhle/deletion-planner/internal/cli"
	"github.com/nhle/deletion-planner/internal/client"
	"github.com/nhle/deletion-planner/internal/credential"
	"github.com/nhle/deletion-planner/internal/logger"
	"github.com/nhle/deletion-planner/internal/model"
	"github.com/nhle/deletion-planner/internal/store"
)

var CLI struct {
	Version kong.VersionFlag
	Config  string `help:"Config file path." type:"path" default:"${config_path}"`
	Debug   bool   `help:"Log at debug level and copy logs to stderr (ignored by tui)."`
	NoCache bool   `help:"Do not read or write the local snapshot cache." name:"no-cache"`

	Tui  cli.TuiCmd `cmd:"" help:"Launch the interactive TUI." default:"1"`
	Task struct {
		List     cli.TaskListCmd     `cmd:"" help:"List tasks." default:"1"`
		Add      cli.TaskAddCmd      `cmd:"" help:"Add a task."`
		Batch    cli.TaskBatchCmd    `cmd:"" help:"Add one task per line from a file or stdin."`
		Update   cli.TaskUpdateCmd   `cmd:"" help:"Change fields of a task."`
		Complete cli.TaskCompleteCmd `cmd:"" help:"Mark a task completed."`
		Defer    cli.TaskDeferCmd    `cmd:"" help:"Defer a task once more."`
		Delete   cli.TaskDeleteCmd   `cmd:"" help:"Delete a task."`
		Reorder  cli.TaskReorderCmd  `cmd:"" help:"Move an active task to a new position."`
	} `cmd:"" help:"Manage tasks."`
	Plan struct {
		Today    cli.PlanTodayCmd    `cmd:"" help:"Show today's plan." default:"1"`
		Generate cli.PlanGenerateCmd `cmd:"" help:"Generate a plan."`
		Show     cli.PlanShowCmd     `cmd:"" help:"Show the plan for a day."`
	} `cmd:"" help:"Daily plans."`
	Feedback cli.FeedbackCmd `cmd:"" help:"Report how planned tasks went."`
	History  cli.HistoryCmd  `cmd:"" help:"Show task history."`
	Stats    cli.StatsCmd    `cmd:"" help:"Show task and plan statistics."`
	Health   cli.HealthCmd   `cmd:"" help:"Check that the planning service is reachable."`
	Inbox    struct {
		Import cli.InboxImportCmd `cmd:"" help:"Create tasks from unread email." default:"1"`
	} `cmd:"" help:"Capture tasks from email."`
	Token struct {
		Set    cli.TokenSetCmd    `cmd:"" help:"Store a credential in the OS keyring."`
		Delete cli.TokenDeleteCmd `cmd:"" help:"Remove a credential from the OS keyring."`
	} `cmd:"" help:"Manage credentials."`
	ConfigCmd struct {
		Init cli.ConfigInitCmd `cmd:"" help:"Write the current configuration to the config file."`
	} `cmd:"" name:"config" help:"Manage the configuration file."`
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name("planner"),
		kong.Description("Plan the day, record how it went, and delete what keeps slipping."),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact:             true,
			NoExpandSubcommands: true,
		}),
		kong.Vars{
			"version":     "v0.1.0",
			"config_path": model.DefaultConfigPath(),
		},
	)

	cfg, err := model.LoadConfig(CLI.Config)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	isTUI := ctx.Command() == "tui"
	if err := logger.Init(logger.Config{
		Debug:     (CLI.Debug || cfg.Log.Debug) && !isTUI,
		ConfigDir: model.ConfigDir(),
	}); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: logging disabled: %v\n", err)
	}

	token, err := credential.APIToken()
	if err != nil {
		logger.Warn("reading API token failed", "err", err)
	}

	api := client.New(cfg.Server.BaseURL,
		client.WithToken(token),
		client.WithLanguage(cfg.Language),
		client.WithTimeout(time.Duration(cfg.Server.TimeoutSec)*time.Second),
		client.WithMaxRetries(cfg.Server.MaxRetries),
	)

	var cache store.Cache
	if cfg.Cache.Enabled && !CLI.NoCache {
		sqlite, err := store.NewSQLiteStore(cfg.Cache.Path)
		if err != nil {
			logger.Warn("snapshot cache unavailable", "path", cfg.Cache.Path, "err", err)
		} else {
			defer sqlite.Close()
			cache = sqlite
		}
	}

	appCtx := cli.NewContext(cfg, api, cache, os.Stdout)
	appCtx.ConfigPath = CLI.Config

	err = ctx.Run(appCtx)
	appCtx.Close()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
