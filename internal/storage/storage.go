package storage

import (
	"context"

	"github.com/slok/stackrun/internal/model"
)

// RunRepository is the interface for the run history persistence.
type RunRepository interface {
	CreateRun(ctx context.Context, r model.RunRecord) error
	GetRun(ctx context.Context, id string) (*model.RunRecord, error)
	// ListRuns returns the runs newest first, a limit of 0 returns all of them.
	ListRuns(ctx context.Context, limit int) ([]model.RunRecord, error)
}
