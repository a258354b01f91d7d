// Package printer prints stack plans and run history for humans and machines.
package printer

import (
	"time"

	"github.com/slok/stackrun/internal/conventions"
	"github.com/slok/stackrun/internal/model"
)

// Printer knows how to print stackrun information in different formats.
type Printer interface {
	PrintPlan(stack model.Stack, procs []model.Process) error
	PrintRunList(runs []model.RunRecord) error
	PrintRun(run model.RunRecord) error
	PrintMessage(msg string) error
}

const redacted = "<redacted>"

type planOutput struct {
	Config    model.StackConfig `json:"config" yaml:"config"`
	Processes []processOutput   `json:"processes" yaml:"processes"`
}

type processOutput struct {
	Index       int       `json:"index" yaml:"index"`
	Name        string    `json:"name" yaml:"name"`
	Command     string    `json:"command" yaml:"command"`
	Argv        []string  `json:"argv,omitempty" yaml:"argv,omitempty"`
	Cwd         string    `json:"cwd,omitempty" yaml:"cwd,omitempty"`
	Env         model.Env `json:"env,omitempty" yaml:"env,omitempty"`
	PrefixColor string    `json:"prefixColor,omitempty" yaml:"prefixColor,omitempty"`
	IPC         int       `json:"ipc,omitempty" yaml:"ipc,omitempty"`
}

type runOutput struct {
	ID            string                `json:"id" yaml:"id"`
	ConfigFile    string                `json:"configFile" yaml:"configFile"`
	TunnelEnabled bool                  `json:"tunnelEnabled" yaml:"tunnelEnabled"`
	Status        model.RunStatus       `json:"status" yaml:"status"`
	StartedAt     time.Time             `json:"startedAt" yaml:"startedAt"`
	FinishedAt    *time.Time            `json:"finishedAt" yaml:"finishedAt"`
	Processes     []model.ProcessStatus `json:"processes" yaml:"processes"`
}

type messageOutput struct {
	Message string `json:"message" yaml:"message"`
}

// newPlanOutput returns the plan view with secrets redacted.
func newPlanOutput(stack model.Stack, procs []model.Process) planOutput {
	cfg := stack.AsConfig()
	if cfg.CFTunnelConfig.CFToken != nil && *cfg.CFTunnelConfig.CFToken != "" {
		r := redacted
		cfg.CFTunnelConfig.CFToken = &r
	}

	out := planOutput{Config: cfg, Processes: make([]processOutput, 0, len(procs))}
	for _, p := range procs {
		env := p.Env.Clone()
		if _, ok := env[conventions.EnvTunnelPayload]; ok {
			r := redacted
			env[conventions.EnvTunnelPayload] = &r
		}

		out.Processes = append(out.Processes, processOutput{
			Index:       p.Index,
			Name:        p.Label(),
			Command:     p.Command,
			Argv:        p.Argv,
			Cwd:         p.Cwd,
			Env:         env,
			PrefixColor: p.PrefixColor,
			IPC:         p.IPC,
		})
	}

	return out
}

func newRunOutput(run model.RunRecord) runOutput {
	out := runOutput{
		ID:            run.ID,
		ConfigFile:    run.ConfigFile,
		TunnelEnabled: run.TunnelEnabled,
		Status:        run.Status,
		StartedAt:     run.StartedAt.UTC(),
		Processes:     run.Processes,
	}
	if out.Processes == nil {
		out.Processes = []model.ProcessStatus{}
	}
	if !run.FinishedAt.IsZero() {
		f := run.FinishedAt.UTC()
		out.FinishedAt = &f
	}

	return out
}
