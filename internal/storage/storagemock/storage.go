package storagemock

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/slok/stackrun/internal/model"
)

// MockRunRepository is a mock of storage.RunRepository.
type MockRunRepository struct {
	mock.Mock
}

func (m *MockRunRepository) CreateRun(ctx context.Context, r model.RunRecord) error {
	args := m.Called(ctx, r)
	return args.Error(0)
}

func (m *MockRunRepository) GetRun(ctx context.Context, id string) (*model.RunRecord, error) {
	args := m.Called(ctx, id)
	var r *model.RunRecord
	if v := args.Get(0); v != nil {
		r = v.(*model.RunRecord)
	}
	return r, args.Error(1)
}

func (m *MockRunRepository) ListRuns(ctx context.Context, limit int) ([]model.RunRecord, error) {
	args := m.Called(ctx, limit)
	var rs []model.RunRecord
	if v := args.Get(0); v != nil {
		rs = v.([]model.RunRecord)
	}
	return rs, args.Error(1)
}
