package shellmock

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockShell is a mock of shell.Shell.
type MockShell struct {
	mock.Mock
}

func (m *MockShell) Run(ctx context.Context, command string) error {
	args := m.Called(ctx, command)
	return args.Error(0)
}
