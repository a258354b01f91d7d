package model

import "time"

// Process is a runner ready process descriptor.
type Process struct {
	// Index is the position of the process in the run.
	Index int
	// Name is the process label, when empty the runner labels it by index.
	Name string
	// DisplayName is a pre-rendered label that takes precedence over the name when printing.
	DisplayName string
	// Command is the shell command.
	Command string
	// Argv when set is executed directly without a shell.
	Argv        []string
	Cwd         string
	Env         Env
	PrefixColor string
	IPC         int
}

// Label returns the plain label of the process.
func (p Process) Label() string {
	if p.Name != "" {
		return p.Name
	}
	return itoa(p.Index)
}

// ProcessState is the terminal state of a process.
type ProcessState string

const (
	ProcessStateSuccess    ProcessState = "success"
	ProcessStateFailed     ProcessState = "failed"
	ProcessStateKilled     ProcessState = "killed"
	ProcessStateStartError ProcessState = "start-error"
)

// ProcessStatus is the terminal status of a process in a run.
type ProcessStatus struct {
	Index      int          `json:"index" yaml:"index"`
	Name       string       `json:"name" yaml:"name"`
	Command    string       `json:"command" yaml:"command"`
	State      ProcessState `json:"state" yaml:"state"`
	ExitCode   int          `json:"exitCode" yaml:"exitCode"`
	StartedAt  time.Time    `json:"startedAt" yaml:"startedAt"`
	FinishedAt time.Time    `json:"finishedAt" yaml:"finishedAt"`
}

// Succeeded returns true when the process exited with success.
func (p ProcessStatus) Succeeded() bool { return p.State == ProcessStateSuccess }

// RunResult is the result of a concurrent run.
type RunResult struct {
	// Processes are the statuses in process index order.
	Processes []ProcessStatus
	// ExitOrder are the process indexes in the order they finished.
	ExitOrder []int
}

// Success returns if the run is successful based on the success condition.
func (r RunResult) Success(cond SuccessCondition) bool {
	if len(r.Processes) == 0 {
		return true
	}

	byIndex := map[int]ProcessStatus{}
	for _, p := range r.Processes {
		byIndex[p.Index] = p
	}

	switch cond {
	case SuccessFirst:
		if len(r.ExitOrder) == 0 {
			return false
		}
		return byIndex[r.ExitOrder[0]].Succeeded()
	case SuccessLast:
		if len(r.ExitOrder) == 0 {
			return false
		}
		return byIndex[r.ExitOrder[len(r.ExitOrder)-1]].Succeeded()
	default:
		for _, p := range r.Processes {
			if !p.Succeeded() {
				return false
			}
		}
		return true
	}
}
