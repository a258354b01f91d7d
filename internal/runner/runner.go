// Package runner runs the stack processes concurrently.
package runner

import (
	"context"

	"github.com/slok/stackrun/internal/model"
)

// Runner runs processes concurrently until all of them end.
type Runner interface {
	// Run starts all the processes and blocks until every process reached a terminal state.
	// Process failures are part of the result, errors are only returned when the run itself fails.
	Run(ctx context.Context, procs []model.Process, opts model.RunOptions) (*model.RunResult, error)
}
