package commands

import (
	"context"
	"fmt"

	"github.com/alecthomas/kingpin/v2"

	"github.com/slok/stackrun/internal/app/run"
	"github.com/slok/stackrun/internal/runner"
	"github.com/slok/stackrun/internal/shell"
)

type PlanCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	stack  stackFlags
	format string
}

// NewPlanCommand returns the plan command.
func NewPlanCommand(rootCmd *RootCommand, app *kingpin.Application) *PlanCommand {
	c := &PlanCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("plan", "Show the resolved stack and the processes that would run, without running them.")
	c.stack.register(c.Cmd)
	c.Cmd.Flag("output", "Output format.").Short('o').Default(formatTable).EnumVar(&c.format, formatTable, formatJSON, formatYAML)

	return c
}

func (c PlanCommand) Name() string { return c.Cmd.FullCommand() }

func (c PlanCommand) Run(ctx context.Context) error {
	logger := c.rootCmd.Logger

	cfg, file, err := c.stack.load(ctx, logger)
	if err != nil {
		return fmt.Errorf("could not load stack config: %w", err)
	}

	// Nothing is executed on a plan, the runner and shell are never called.
	r, err := runner.NewConcurrent(runner.ConcurrentConfig{Renderer: c.rootCmd.Renderer, Logger: logger})
	if err != nil {
		return fmt.Errorf("could not create runner: %w", err)
	}
	sh, err := shell.NewExecShell(shell.ExecShellConfig{Logger: logger})
	if err != nil {
		return fmt.Errorf("could not create shell: %w", err)
	}

	svc, err := run.NewService(run.ServiceConfig{
		Runner:   r,
		Shell:    sh,
		Renderer: c.rootCmd.Renderer,
		Logger:   logger,
	})
	if err != nil {
		return fmt.Errorf("could not create service: %w", err)
	}

	plan, err := svc.Plan(ctx, run.Request{
		Config:      cfg,
		ConfigFile:  file,
		ForceTunnel: c.stack.tunnel,
	})
	if err != nil {
		return err
	}

	p, err := newPrinter(c.format, c.rootCmd.Stdout)
	if err != nil {
		return err
	}
	if err := p.PrintPlan(plan.Stack, plan.Processes); err != nil {
		return fmt.Errorf("could not print plan: %w", err)
	}

	return nil
}
