package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/nhle/deletion-planner/internal/app"
	"github.com/nhle/deletion-planner/internal/credential"
	"github.com/nhle/deletion-planner/internal/inbox"
	"github.com/nhle/deletion-planner/internal/logger"
	"github.com/nhle/deletion-planner/internal/model"
)

// TuiCmd launches the interactive interface.
type TuiCmd struct{}

func (c *TuiCmd) Run(ctx *Context) error {
	bg := context.Background()
	if err := ctx.Tasks.Warm(bg, model.FilterActive); err != nil {
		logger.Warn("warming task cache failed", "err", err)
	}
	if err := ctx.Plan.Warm(bg, model.Today()); err != nil {
		logger.Warn("warming plan cache failed", "err", err)
	}

	p := tea.NewProgram(app.New(app.Deps{
		API:      ctx.API,
		Tasks:    ctx.Tasks,
		Plan:     ctx.Plan,
		Resolver: ctx.Resolver,
		Engine:   ctx.Engine,
	}), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("running TUI: %w", err)
	}
	return nil
}

// HealthCmd checks that the planning service is reachable.
type HealthCmd struct{}

func (c *HealthCmd) Run(ctx *Context) error {
	ok, err := ctx.API.Health(context.Background())
	if err != nil {
		return fmt.Errorf("service at %s is unreachable: %w", ctx.Config.Server.BaseURL, err)
	}
	if !ok {
		return fmt.Errorf("service at %s reported unhealthy", ctx.Config.Server.BaseURL)
	}
	ctx.printf("ok: %s\n", ctx.Config.Server.BaseURL)
	return nil
}

// ConfigInitCmd writes the effective configuration to the config file.
type ConfigInitCmd struct {
	Force bool `help:"Overwrite an existing file."`
}

func (c *ConfigInitCmd) Run(ctx *Context) error {
	if _, err := os.Stat(ctx.ConfigPath); err == nil && !c.Force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", ctx.ConfigPath)
	}
	if err := model.SaveConfig(ctx.ConfigPath, ctx.Config); err != nil {
		return err
	}
	ctx.printf("Wrote %s\n", ctx.ConfigPath)
	return nil
}

// PromptSecret reads a secret without echo. Tests replace it.
var PromptSecret = func(title string) (string, error) {
	var value string
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title(title).
				EchoMode(huh.EchoModePassword).
				Value(&value),
		),
	).Run()
	return strings.TrimSpace(value), err
}

// TokenSetCmd stores a credential in the OS keyring.
type TokenSetCmd struct {
	Key   string `arg:"" help:"Credential to set (api-token|imap-password)." enum:"api-token,imap-password"`
	Value string `arg:"" optional:"" help:"Secret value. Prompted for when omitted."`
}

func (c *TokenSetCmd) Run(ctx *Context) error {
	value := c.Value
	if value == "" {
		var err error
		value, err = PromptSecret(c.Key)
		if err != nil {
			return err
		}
	}
	if value == "" {
		return model.Invalidf("%s must not be empty", c.Key)
	}
	if err := credential.Set(c.Key, value); err != nil {
		return fmt.Errorf("storing %s: %w", c.Key, err)
	}
	ctx.printf("Stored %s in the OS keyring\n", c.Key)
	return nil
}

// TokenDeleteCmd removes a credential from the OS keyring.
type TokenDeleteCmd struct {
	Key string `arg:"" help:"Credential to delete (api-token|imap-password)." enum:"api-token,imap-password"`
}

func (c *TokenDeleteCmd) Run(ctx *Context) error {
	if err := credential.Delete(c.Key); err != nil {
		return fmt.Errorf("deleting %s: %w", c.Key, err)
	}
	ctx.printf("Deleted %s\n", c.Key)
	return nil
}

// Mailbox is the part of the IMAP client inbox import uses.
type Mailbox interface {
	FetchUnseen(ctx context.Context, since time.Time, limit int) ([]inbox.Message, error)
	MarkSeen(ctx context.Context, uids []uint32) error
}

// OpenMailbox connects to the configured mailbox. Tests replace it.
var OpenMailbox = func(s inbox.Settings) Mailbox {
	return inbox.NewIMAPClient(s)
}

// InboxImportCmd turns unread emails (or .eml files) into tasks.
type InboxImportCmd struct {
	Files  []string `arg:"" optional:"" type:"existingfile" help:"Message files (.eml) to import instead of the IMAP inbox."`
	DryRun bool     `help:"Print the tasks that would be created."`
	Keep   bool     `help:"Leave imported messages unread."`
}

func (c *InboxImportCmd) Run(ctx *Context) error {
	bg := context.Background()

	var (
		messages []inbox.Message
		mailbox  Mailbox
		err      error
	)
	if len(c.Files) > 0 {
		messages, err = readMessageFiles(c.Files)
	} else {
		mailbox, err = c.openMailbox(ctx)
		if err == nil {
			cfg := ctx.Config.Inbox
			since := time.Now().AddDate(0, 0, -cfg.SinceDays)
			messages, err = mailbox.FetchUnseen(bg, since, cfg.Limit)
		}
	}
	if err != nil {
		return err
	}

	text := inbox.BatchText(messages)
	if text == "" {
		ctx.printf("Nothing to import\n")
		return nil
	}
	if c.DryRun {
		ctx.printf("Would create:\n")
		for _, line := range strings.Split(text, "\n") {
			ctx.printf("  %s\n", line)
		}
		return nil
	}

	created, err := ctx.Tasks.BatchCreate(bg, text)
	if err != nil {
		return err
	}
	ctx.printf("Created %d tasks from %d messages\n", len(created), len(messages))

	if mailbox != nil && !c.Keep {
		uids := make([]uint32, 0, len(messages))
		for _, m := range messages {
			uids = append(uids, m.UID)
		}
		if err := mailbox.MarkSeen(bg, uids); err != nil {
			return fmt.Errorf("tasks created but marking messages read failed: %w", err)
		}
	}
	return nil
}

func (c *InboxImportCmd) openMailbox(ctx *Context) (Mailbox, error) {
	cfg := ctx.Config.Inbox
	if cfg.Host == "" || cfg.Username == "" {
		return nil, model.Invalidf("inbox.host and inbox.username must be set in %s", ctx.ConfigPath)
	}
	password, err := credential.Get(credential.KeyIMAPPassword)
	if errors.Is(err, credential.ErrNotFound) {
		return nil, model.Invalidf("no IMAP password stored; run: planner token set imap-password")
	}
	if err != nil {
		return nil, err
	}

	return OpenMailbox(inbox.Settings{
		Host:     cfg.Host,
		Port:     cfg.Port,
		Username: cfg.Username,
		Password: password,
		TLS:      cfg.TLS,
		Mailbox:  cfg.Mailbox,
	}), nil
}

func readMessageFiles(paths []string) ([]inbox.Message, error) {
	messages := make([]inbox.Message, 0, len(paths))
	for _, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("opening %s: %w", path, err)
		}
		msg, err := inbox.ParseMessage(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
		messages = append(messages, *msg)
	}
	return messages, nil
}
