package history_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/slok/stackrun/internal/app/history"
	"github.com/slok/stackrun/internal/model"
	"github.com/slok/stackrun/internal/storage/storagemock"
)

func ptr[T any](v T) *T { return &v }

func TestNewService(t *testing.T) {
	_, err := history.NewService(history.ServiceConfig{})
	assert.Error(t, err)

	svc, err := history.NewService(history.ServiceConfig{Repository: &storagemock.MockRunRepository{}})
	require.NoError(t, err)
	assert.NotNil(t, svc)
}

func TestServiceList(t *testing.T) {
	runs := []model.RunRecord{
		{ID: "r3", Status: model.RunStatusFailed},
		{ID: "r2", Status: model.RunStatusSucceeded},
		{ID: "r1", Status: model.RunStatusFailed},
	}

	tests := map[string]struct {
		mock   func(m *storagemock.MockRunRepository)
		req    history.ListRequest
		expIDs []string
		expErr bool
	}{
		"Listing should pass the limit to the repository.": {
			mock: func(m *storagemock.MockRunRepository) {
				m.On("ListRuns", mock.Anything, 2).Once().Return(runs[:2], nil)
			},
			req:    history.ListRequest{Limit: 2},
			expIDs: []string{"r3", "r2"},
		},
		"Filtering by status should apply the limit after filtering.": {
			mock: func(m *storagemock.MockRunRepository) {
				m.On("ListRuns", mock.Anything, 0).Once().Return(runs, nil)
			},
			req:    history.ListRequest{Limit: 1, StatusFilter: ptr(model.RunStatusFailed)},
			expIDs: []string{"r3"},
		},
		"Filtering without limit should return every matching run.": {
			mock: func(m *storagemock.MockRunRepository) {
				m.On("ListRuns", mock.Anything, 0).Once().Return(runs, nil)
			},
			req:    history.ListRequest{StatusFilter: ptr(model.RunStatusFailed)},
			expIDs: []string{"r3", "r1"},
		},
		"A negative limit should fail.": {
			mock:   func(m *storagemock.MockRunRepository) {},
			req:    history.ListRequest{Limit: -1},
			expErr: true,
		},
		"A repository error should fail.": {
			mock: func(m *storagemock.MockRunRepository) {
				m.On("ListRuns", mock.Anything, 0).Once().Return(nil, fmt.Errorf("something"))
			},
			expErr: true,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			m := &storagemock.MockRunRepository{}
			test.mock(m)

			svc, err := history.NewService(history.ServiceConfig{Repository: m})
			require.NoError(t, err)

			got, err := svc.List(context.Background(), test.req)
			if test.expErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)

			gotIDs := []string{}
			for _, r := range got {
				gotIDs = append(gotIDs, r.ID)
			}
			assert.Equal(t, test.expIDs, gotIDs)
			m.AssertExpectations(t)
		})
	}
}

func TestServiceShow(t *testing.T) {
	tests := map[string]struct {
		mock   func(m *storagemock.MockRunRepository)
		req    history.ShowRequest
		expID  string
		expErr error
	}{
		"Showing a run should get it by ID.": {
			mock: func(m *storagemock.MockRunRepository) {
				m.On("GetRun", mock.Anything, "r1").Once().Return(&model.RunRecord{ID: "r1"}, nil)
			},
			req:   history.ShowRequest{ID: "r1"},
			expID: "r1",
		},
		"The latest alias should show the newest run.": {
			mock: func(m *storagemock.MockRunRepository) {
				m.On("ListRuns", mock.Anything, 1).Once().Return([]model.RunRecord{{ID: "r9"}}, nil)
			},
			req:   history.ShowRequest{ID: "latest"},
			expID: "r9",
		},
		"The latest alias without runs should fail with not found.": {
			mock: func(m *storagemock.MockRunRepository) {
				m.On("ListRuns", mock.Anything, 1).Once().Return([]model.RunRecord{}, nil)
			},
			req:    history.ShowRequest{ID: "latest"},
			expErr: model.ErrNotFound,
		},
		"A missing run should fail with not found.": {
			mock: func(m *storagemock.MockRunRepository) {
				m.On("GetRun", mock.Anything, "rx").Once().Return(nil, fmt.Errorf("run rx: %w", model.ErrNotFound))
			},
			req:    history.ShowRequest{ID: "rx"},
			expErr: model.ErrNotFound,
		},
		"An empty ID should fail.": {
			mock:   func(m *storagemock.MockRunRepository) {},
			req:    history.ShowRequest{},
			expErr: model.ErrNotValid,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			m := &storagemock.MockRunRepository{}
			test.mock(m)

			svc, err := history.NewService(history.ServiceConfig{Repository: m})
			require.NoError(t, err)

			got, err := svc.Show(context.Background(), test.req)
			if test.expErr != nil {
				assert.ErrorIs(t, err, test.expErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, test.expID, got.ID)
			m.AssertExpectations(t)
		})
	}
}
