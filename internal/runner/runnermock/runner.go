package runnermock

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/slok/stackrun/internal/model"
)

// MockRunner is a mock of runner.Runner.
type MockRunner struct {
	mock.Mock
}

func (m *MockRunner) Run(ctx context.Context, procs []model.Process, opts model.RunOptions) (*model.RunResult, error) {
	args := m.Called(ctx, procs, opts)
	var res *model.RunResult
	if v := args.Get(0); v != nil {
		res = v.(*model.RunResult)
	}
	return res, args.Error(1)
}
