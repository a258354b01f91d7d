package model

import (
	"strconv"
	"time"
)

// RunStatus is the final status of a stack run.
type RunStatus string

const (
	RunStatusSucceeded RunStatus = "succeeded"
	RunStatusFailed    RunStatus = "failed"
	// RunStatusAborted is a run that ended before all its processes were launched.
	RunStatusAborted RunStatus = "aborted"
)

// RunRecord is the history record of a stack run.
type RunRecord struct {
	ID            string
	ConfigFile    string
	TunnelEnabled bool
	Status        RunStatus
	Processes     []ProcessStatus
	StartedAt     time.Time
	FinishedAt    time.Time
}

// Duration returns the duration of the run.
func (r RunRecord) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

func itoa(i int) string { return strconv.Itoa(i) }
