package lib

import (
	"errors"

	"github.com/slok/stackrun/internal/app/run"
	"github.com/slok/stackrun/internal/model"
	storageio "github.com/slok/stackrun/internal/storage/io"
	"github.com/slok/stackrun/internal/tunnel"
)

// Stack configuration types. Every field is optional, unset fields get their defaults when the stack runs.
type (
	// StackConfig is the stack configuration, the same document `stackrun` loads from config files.
	StackConfig = model.StackConfig
	// CommandSpec is a single process of the stack.
	CommandSpec = model.CommandSpec
	// ConcurrentlyOptions are the options of the concurrent run.
	ConcurrentlyOptions = model.ConcurrentlyOptions
	// TunnelConfig is the Cloudflare tunnel configuration.
	TunnelConfig = model.TunnelConfig
	// Env is a set of environment overrides, nil values remove the variable.
	Env = model.Env
	// KillConditions set on what process exits the rest of processes are killed.
	KillConditions = model.KillConditions
	// KillCondition is a process exit kind.
	KillCondition = model.KillCondition
	// InputTarget is a process index or name.
	InputTarget = model.InputTarget
	// ColorMode is how prefix colors are assigned.
	ColorMode = model.ColorMode
	// SuccessCondition sets which process exits make a run successful.
	SuccessCondition = model.SuccessCondition
)

const (
	KillOnFailure   = model.KillOnFailure
	KillOnSuccess   = model.KillOnSuccess
	ColorModeAuto   = model.ColorModeAuto
	ColorModeManual = model.ColorModeManual
	SuccessAll      = model.SuccessAll
	SuccessFirst    = model.SuccessFirst
	SuccessLast     = model.SuccessLast
)

// Run history types.
type (
	// RunRecord is a finished stack run.
	RunRecord = model.RunRecord
	// RunStatus is the final status of a run.
	RunStatus = model.RunStatus
	// ProcessStatus is the terminal status of a process in a run.
	ProcessStatus = model.ProcessStatus
	// ProcessState is the terminal state of a process.
	ProcessState = model.ProcessState
)

const (
	RunStatusSucceeded     = model.RunStatusSucceeded
	RunStatusFailed        = model.RunStatusFailed
	RunStatusAborted       = model.RunStatusAborted
	ProcessStateSuccess    = model.ProcessStateSuccess
	ProcessStateFailed     = model.ProcessStateFailed
	ProcessStateKilled     = model.ProcessStateKilled
	ProcessStateStartError = model.ProcessStateStartError
)

// Ptr returns a pointer to v, handy to set the optional config fields.
func Ptr[T any](v T) *T { return &v }

// DefineConfig returns the config as is, it gives typed config declarations a single entry point.
func DefineConfig(cfg StackConfig) StackConfig { return cfg }

// PlannedProcess is a process that a run would launch.
type PlannedProcess struct {
	Index int
	// Name is the prefix label of the process.
	Name    string
	Command string
	// Argv is set on processes executed without a shell (e.g the tunnel agent).
	Argv        []string
	Cwd         string
	PrefixColor string
}

// Plan is what a run of a stack would execute.
type Plan struct {
	// Config is the stack config with every default applied. The tunnel token is not included.
	Config        StackConfig
	TunnelEnabled bool
	Processes     []PlannedProcess
}

var (
	// ErrNotFound is returned when a run or config file does not exist.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists is returned when a run with the same ID is already stored.
	ErrAlreadyExists = errors.New("already exists")
	// ErrNotValid is returned on invalid input (e.g an unknown kill condition).
	ErrNotValid = errors.New("not valid")
	// ErrEmptyConfig is returned when a config file has no content.
	ErrEmptyConfig = errors.New("empty config")
	// ErrTunnelPrecondition is returned when tunneling is enabled without a token or without tunneled commands.
	ErrTunnelPrecondition = errors.New("tunnel precondition failed")
	// ErrProcessesFailed is returned when the processes don't meet the success condition.
	ErrProcessesFailed = errors.New("processes failed")
)

func fromInternalPlan(p *run.PlanResult) *Plan {
	cfg := p.Stack.AsConfig()
	cfg.CFTunnelConfig.CFToken = nil

	plan := &Plan{
		Config:        cfg,
		TunnelEnabled: p.Stack.TunnelEnabled,
		Processes:     make([]PlannedProcess, 0, len(p.Processes)),
	}
	for _, proc := range p.Processes {
		plan.Processes = append(plan.Processes, PlannedProcess{
			Index:       proc.Index,
			Name:        proc.Label(),
			Command:     proc.Command,
			Argv:        proc.Argv,
			Cwd:         proc.Cwd,
			PrefixColor: proc.PrefixColor,
		})
	}

	return plan
}

func mapError(err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, model.ErrNotFound), errors.Is(err, storageio.ErrConfigNotFound):
		return joinErrors(err, ErrNotFound)
	case errors.Is(err, model.ErrAlreadyExists):
		return joinErrors(err, ErrAlreadyExists)
	case errors.Is(err, storageio.ErrConfigEmpty):
		return joinErrors(err, ErrEmptyConfig)
	case errors.Is(err, run.ErrTunnelPrecondition), errors.Is(err, tunnel.ErrMissingToken), errors.Is(err, tunnel.ErrNoIngress):
		return joinErrors(err, ErrTunnelPrecondition)
	case errors.Is(err, run.ErrProcessesFailed):
		return joinErrors(err, ErrProcessesFailed)
	case errors.Is(err, model.ErrNotValid):
		return joinErrors(err, ErrNotValid)
	default:
		return err
	}
}

func joinErrors(original, sentinel error) error {
	return &mappedError{original: original, sentinel: sentinel}
}

type mappedError struct {
	original error
	sentinel error
}

func (e *mappedError) Error() string { return e.original.Error() }

func (e *mappedError) Is(target error) bool {
	return target == e.sentinel
}

func (e *mappedError) Unwrap() error { return e.original }
