package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/alecthomas/kingpin/v2"

	"github.com/slok/stackrun/internal/app/history"
	"github.com/slok/stackrun/internal/model"
	"github.com/slok/stackrun/internal/storage/sqlite"
)

// NewHistoryCommand returns the parent command of the run history commands.
func NewHistoryCommand(app *kingpin.Application) *kingpin.CmdClause {
	return app.Command("history", "Inspect previous stack runs.")
}

func newHistoryService(ctx context.Context, rootCmd *RootCommand) (*history.Service, func(), error) {
	repo, err := sqlite.NewRepository(ctx, sqlite.RepositoryConfig{
		DBPath: rootCmd.DBPath,
		Logger: rootCmd.Logger,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("could not create repository: %w", err)
	}

	svc, err := history.NewService(history.ServiceConfig{
		Repository: repo,
		Logger:     rootCmd.Logger,
	})
	if err != nil {
		_ = repo.Close()
		return nil, nil, fmt.Errorf("could not create service: %w", err)
	}

	return svc, func() { _ = repo.Close() }, nil
}

type HistoryListCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	limit        int
	statusFilter string
	format       string
}

// NewHistoryListCommand returns the history list command.
func NewHistoryListCommand(rootCmd *RootCommand, historyCmd *kingpin.CmdClause) *HistoryListCommand {
	c := &HistoryListCommand{rootCmd: rootCmd}

	c.Cmd = historyCmd.Command("list", "List the stack runs, newest first.").Alias("ls")
	c.Cmd.Flag("limit", "Max number of runs (0 lists all).").Short('n').Default("20").IntVar(&c.limit)
	c.Cmd.Flag("status", "Filter by status (succeeded, failed, aborted).").StringVar(&c.statusFilter)
	c.Cmd.Flag("output", "Output format.").Short('o').Default(formatTable).EnumVar(&c.format, formatTable, formatJSON, formatYAML)

	return c
}

func (c HistoryListCommand) Name() string { return c.Cmd.FullCommand() }

func (c HistoryListCommand) Run(ctx context.Context) error {
	var statusFilter *model.RunStatus
	if c.statusFilter != "" {
		status := model.RunStatus(strings.ToLower(c.statusFilter))
		switch status {
		case model.RunStatusSucceeded, model.RunStatusFailed, model.RunStatusAborted:
			statusFilter = &status
		default:
			return fmt.Errorf("invalid status filter: %s (must be: succeeded, failed, aborted)", c.statusFilter)
		}
	}

	svc, closeSvc, err := newHistoryService(ctx, c.rootCmd)
	if err != nil {
		return err
	}
	defer closeSvc()

	runs, err := svc.List(ctx, history.ListRequest{
		Limit:        c.limit,
		StatusFilter: statusFilter,
	})
	if err != nil {
		return fmt.Errorf("could not list runs: %w", err)
	}

	p, err := newPrinter(c.format, c.rootCmd.Stdout)
	if err != nil {
		return err
	}
	if err := p.PrintRunList(runs); err != nil {
		return fmt.Errorf("could not print runs: %w", err)
	}

	return nil
}

type HistoryShowCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	id     string
	format string
}

// NewHistoryShowCommand returns the history show command.
func NewHistoryShowCommand(rootCmd *RootCommand, historyCmd *kingpin.CmdClause) *HistoryShowCommand {
	c := &HistoryShowCommand{rootCmd: rootCmd}

	c.Cmd = historyCmd.Command("show", "Show a stack run and its processes.")
	c.Cmd.Arg("id", "Run ID, or `latest`.").Default(history.LatestAlias).StringVar(&c.id)
	c.Cmd.Flag("output", "Output format.").Short('o').Default(formatTable).EnumVar(&c.format, formatTable, formatJSON, formatYAML)

	return c
}

func (c HistoryShowCommand) Name() string { return c.Cmd.FullCommand() }

func (c HistoryShowCommand) Run(ctx context.Context) error {
	svc, closeSvc, err := newHistoryService(ctx, c.rootCmd)
	if err != nil {
		return err
	}
	defer closeSvc()

	r, err := svc.Show(ctx, history.ShowRequest{ID: c.id})
	if err != nil {
		return fmt.Errorf("could not show run: %w", err)
	}

	p, err := newPrinter(c.format, c.rootCmd.Stdout)
	if err != nil {
		return err
	}
	if err := p.PrintRun(*r); err != nil {
		return fmt.Errorf("could not print run: %w", err)
	}

	return nil
}
