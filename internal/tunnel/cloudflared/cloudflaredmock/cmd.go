package cloudflaredmock

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockCmd is a mock of cloudflared.Cmd.
type MockCmd struct {
	mock.Mock
}

func (m *MockCmd) LookPath() (string, error) {
	args := m.Called()
	return args.String(0), args.Error(1)
}

func (m *MockCmd) Stream(ctx context.Context, env []string, cmdArgs ...string) error {
	args := m.Called(ctx, env, cmdArgs)
	return args.Error(0)
}
