// Package run runs a stack: hooks, the concurrent processes and the optional tunnel.
package run

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/oklog/ulid/v2"

	"github.com/slok/stackrun/internal/conventions"
	"github.com/slok/stackrun/internal/log"
	"github.com/slok/stackrun/internal/model"
	"github.com/slok/stackrun/internal/runner"
	"github.com/slok/stackrun/internal/shell"
	"github.com/slok/stackrun/internal/stack"
	"github.com/slok/stackrun/internal/storage"
	"github.com/slok/stackrun/internal/tunnel"
	"github.com/slok/stackrun/internal/utils/env"
)

var (
	// ErrTunnelPrecondition is returned when tunneling is enabled but the tunnel can't be planned.
	ErrTunnelPrecondition = errors.New("tunnel precondition failed")
	// ErrProcessesFailed is returned when the processes don't meet the success condition.
	ErrProcessesFailed = errors.New("processes did not meet the success condition")
)

// ServiceConfig is the configuration for the run service.
type ServiceConfig struct {
	Runner runner.Runner
	Shell  shell.Shell
	// Repository stores the run history, optional.
	Repository storage.RunRepository
	// Lookup is the environment used to resolve defaults (default: process env).
	Lookup env.Lookup
	// Executable is the stackrun binary used to launch the tunnel agent (default: current executable).
	Executable string
	// WorkDir is where the run temporary files live (default: current dir).
	WorkDir  string
	Renderer *lipgloss.Renderer
	Logger   log.Logger
	TimeNow  func() time.Time
	NewID    func() string
}

func (c *ServiceConfig) defaults() error {
	if c.Runner == nil {
		return fmt.Errorf("runner is required")
	}

	if c.Shell == nil {
		return fmt.Errorf("shell is required")
	}

	if c.Lookup == nil {
		c.Lookup = env.OSLookup
	}

	if c.Executable == "" {
		exe, err := os.Executable()
		if err != nil {
			return fmt.Errorf("could not get current executable: %w", err)
		}
		c.Executable = exe
	}

	if c.WorkDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("could not get working directory: %w", err)
		}
		c.WorkDir = wd
	}

	if c.Renderer == nil {
		c.Renderer = lipgloss.DefaultRenderer()
	}

	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "app.Run"})

	if c.TimeNow == nil {
		c.TimeNow = time.Now
	}

	if c.NewID == nil {
		c.NewID = func() string { return ulid.Make().String() }
	}

	return nil
}

// Service runs stacks.
type Service struct {
	runner     runner.Runner
	shell      shell.Shell
	repo       storage.RunRepository
	lookup     env.Lookup
	executable string
	workDir    string
	renderer   *lipgloss.Renderer
	logger     log.Logger
	timeNow    func() time.Time
	newID      func() string
}

// NewService creates a new run service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Service{
		runner:     cfg.Runner,
		shell:      cfg.Shell,
		repo:       cfg.Repository,
		lookup:     cfg.Lookup,
		executable: cfg.Executable,
		workDir:    cfg.WorkDir,
		renderer:   cfg.Renderer,
		logger:     cfg.Logger,
		timeNow:    cfg.TimeNow,
		newID:      cfg.NewID,
	}, nil
}

// Request represents the run request parameters.
type Request struct {
	Config model.StackConfig
	// ConfigFile is the file the config was loaded from, only informative.
	ConfigFile string
	// ForceTunnel enables tunneling regardless of the config.
	ForceTunnel bool
}

// PlanResult is what a run would execute.
type PlanResult struct {
	Stack     model.Stack
	Processes []model.Process
	// Tunnel is the tunnel agent payload, nil when tunneling is disabled.
	Tunnel *model.TunnelPayload
}

// Plan resolves the stack and returns the processes that would be launched, without running anything.
func (s *Service) Plan(ctx context.Context, req Request) (*PlanResult, error) {
	st := stack.Resolve(req.Config, s.lookup)
	if req.ForceTunnel {
		st.TunnelEnabled = true
	}
	if err := st.Options.Validate(); err != nil {
		return nil, fmt.Errorf("invalid concurrently options: %w", err)
	}

	procs := stack.Normalize(st.Commands, st.TunnelEnabled, st.Options.PrefixLength)
	plan := &PlanResult{Stack: st, Processes: procs}

	if !st.TunnelEnabled {
		s.logger.Infof("Tunneling is disabled")
		return plan, nil
	}

	tproc, payload, err := tunnel.Plan(tunnel.PlanRequest{
		Specs:        st.Commands,
		Settings:     st.Tunnel,
		PrefixLength: st.Options.PrefixLength,
		Lookup:       s.lookup,
		Executable:   s.executable,
		WorkDir:      s.workDir,
		Renderer:     s.renderer,
	})
	if err != nil {
		if errors.Is(err, tunnel.ErrNoIngress) {
			s.logger.Warningf("No valid tunnel configurations found, commands need both url and tunnelUrl")
		}
		return nil, fmt.Errorf("%w: %w", ErrTunnelPrecondition, err)
	}
	tproc.Index = len(plan.Processes)
	plan.Processes = append(plan.Processes, tproc)
	plan.Tunnel = &payload

	s.logger.Infof("Tunnel %q enabled with %d ingress rules", payload.TunnelName, len(payload.Ingress))

	return plan, nil
}

// Run runs the stack: before commands, the processes concurrently and after commands.
// After commands and cleanup run even when the context is cancelled, so the stack can be torn down.
// The returned record is nil only when the stack could not be planned.
func (s *Service) Run(ctx context.Context, req Request) (*model.RunRecord, error) {
	plan, err := s.Plan(ctx, req)
	if err != nil {
		return nil, err
	}

	record := &model.RunRecord{
		ID:            s.newID(),
		ConfigFile:    req.ConfigFile,
		TunnelEnabled: plan.Stack.TunnelEnabled,
		Status:        model.RunStatusAborted,
		StartedAt:     s.timeNow().UTC(),
	}
	logger := s.logger.WithValues(log.Kv{"run-id": record.ID})

	// After commands, cleanup and history ignore cancellation.
	teardownCtx := context.WithoutCancel(ctx)
	done := func() {
		s.cleanup(logger)
		s.finish(teardownCtx, logger, record)
	}

	for _, cmd := range plan.Stack.BeforeCommands {
		logger.Debugf("Running before command: %s", cmd)
		if err := s.shell.Run(ctx, cmd); err != nil {
			done()
			return record, fmt.Errorf("before command failed: %w", err)
		}
	}

	result := &model.RunResult{}
	if len(plan.Processes) == 0 {
		logger.Warningf("No commands to run")
	} else {
		result, err = s.runner.Run(ctx, plan.Processes, plan.Stack.Options)
		if err != nil {
			record.Status = model.RunStatusFailed
			done()
			return record, fmt.Errorf("could not run processes: %w", err)
		}
		if result == nil {
			result = &model.RunResult{}
		}
	}
	record.Processes = result.Processes

	success := result.Success(plan.Stack.Options.SuccessCondition)
	record.Status = model.RunStatusSucceeded
	if !success {
		record.Status = model.RunStatusFailed
	}

	for _, cmd := range plan.Stack.AfterCommands {
		logger.Debugf("Running after command: %s", cmd)
		if err := s.shell.Run(teardownCtx, cmd); err != nil {
			record.Status = model.RunStatusFailed
			done()
			return record, fmt.Errorf("after command failed: %w", err)
		}
	}

	done()

	if !success {
		return record, ErrProcessesFailed
	}

	return record, nil
}

func (s *Service) cleanup(logger log.Logger) {
	tmp := conventions.RunTmpPath(s.workDir)
	if err := os.RemoveAll(tmp); err != nil {
		logger.Warningf("Could not remove run temporary dir %s: %s", tmp, err)
	}
}

// finish reports the process statuses and stores the run history.
func (s *Service) finish(ctx context.Context, logger log.Logger, record *model.RunRecord) {
	record.FinishedAt = s.timeNow().UTC()

	for _, p := range record.Processes {
		name := p.Name
		if name == "" {
			name = p.Command
		}
		switch p.State {
		case model.ProcessStateSuccess:
			logger.Infof("%s: %s (exit code %d)", name, p.State, p.ExitCode)
		default:
			logger.Warningf("%s: %s (exit code %d)", name, p.State, p.ExitCode)
		}
	}

	if s.repo == nil {
		return
	}
	if err := s.repo.CreateRun(ctx, *record); err != nil {
		logger.Warningf("Could not store run history: %s", err)
		return
	}
	logger.Debugf("Run %s stored with status %s", record.ID, record.Status)
}
