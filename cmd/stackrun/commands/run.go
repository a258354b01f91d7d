package commands

import (
	"context"
	"fmt"

	"github.com/alecthomas/kingpin/v2"

	"github.com/slok/stackrun/internal/app/run"
	"github.com/slok/stackrun/internal/log"
	"github.com/slok/stackrun/internal/runner"
	"github.com/slok/stackrun/internal/shell"
	"github.com/slok/stackrun/internal/storage"
	"github.com/slok/stackrun/internal/storage/memory"
	"github.com/slok/stackrun/internal/storage/sqlite"
)

type RunCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	stack     stackFlags
	noHistory bool
}

// NewRunCommand returns the run command, the default command.
func NewRunCommand(rootCmd *RootCommand, app *kingpin.Application) *RunCommand {
	c := &RunCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("run", "Run the stack processes concurrently (default).").Default()
	c.stack.register(c.Cmd)
	c.Cmd.Flag("no-history", "Don't store the run in the history.").BoolVar(&c.noHistory)

	return c
}

func (c RunCommand) Name() string { return c.Cmd.FullCommand() }

func (c RunCommand) Run(ctx context.Context) error {
	logger := c.rootCmd.Logger

	cfg, file, err := c.stack.load(ctx, logger)
	if err != nil {
		return fmt.Errorf("could not load stack config: %w", err)
	}

	r, err := runner.NewConcurrent(runner.ConcurrentConfig{
		Stdin:    c.rootCmd.Stdin,
		Stdout:   c.rootCmd.Stdout,
		Stderr:   c.rootCmd.Stderr,
		Renderer: c.rootCmd.Renderer,
		Logger:   logger,
	})
	if err != nil {
		return fmt.Errorf("could not create runner: %w", err)
	}

	sh, err := shell.NewExecShell(shell.ExecShellConfig{
		Stdin:  c.rootCmd.Stdin,
		Stdout: c.rootCmd.Stdout,
		Stderr: c.rootCmd.Stderr,
		Logger: logger,
	})
	if err != nil {
		return fmt.Errorf("could not create shell: %w", err)
	}

	repo, closeRepo, err := c.historyRepository(ctx, logger)
	if err != nil {
		return err
	}
	defer closeRepo()

	svc, err := run.NewService(run.ServiceConfig{
		Runner:     r,
		Shell:      sh,
		Repository: repo,
		Renderer:   c.rootCmd.Renderer,
		Logger:     logger,
	})
	if err != nil {
		return fmt.Errorf("could not create service: %w", err)
	}

	record, err := svc.Run(ctx, run.Request{
		Config:      cfg,
		ConfigFile:  file,
		ForceTunnel: c.stack.tunnel,
	})
	if record != nil {
		logger.Infof("Run %s %s", record.ID, record.Status)
	}
	if err != nil {
		return err
	}

	return nil
}

// historyRepository returns the run history repository, when the SQLite database
// can't be used the history is kept in memory.
func (c RunCommand) historyRepository(ctx context.Context, logger log.Logger) (storage.RunRepository, func(), error) {
	noop := func() {}

	if !c.noHistory {
		repo, err := sqlite.NewRepository(ctx, sqlite.RepositoryConfig{
			DBPath: c.rootCmd.DBPath,
			Logger: logger,
		})
		if err == nil {
			return repo, func() { _ = repo.Close() }, nil
		}
		logger.Warningf("Run history disabled, could not open %s: %s", c.rootCmd.DBPath, err)
	}

	repo, err := memory.NewRepository(memory.RepositoryConfig{Logger: logger})
	if err != nil {
		return nil, noop, fmt.Errorf("could not create repository: %w", err)
	}

	return repo, noop, nil
}
