// Package history lists and shows the stored stack runs.
package history

import (
	"context"
	"fmt"

	"github.com/slok/stackrun/internal/log"
	"github.com/slok/stackrun/internal/model"
	"github.com/slok/stackrun/internal/storage"
)

// ServiceConfig is the configuration for the history service.
type ServiceConfig struct {
	Repository storage.RunRepository
	Logger     log.Logger
}

func (c *ServiceConfig) defaults() error {
	if c.Repository == nil {
		return fmt.Errorf("repository is required")
	}

	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "app.History"})

	return nil
}

// Service reads the run history.
type Service struct {
	repo   storage.RunRepository
	logger log.Logger
}

// NewService creates a new history service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Service{
		repo:   cfg.Repository,
		logger: cfg.Logger,
	}, nil
}

// ListRequest represents the list request parameters.
type ListRequest struct {
	// Limit is the max number of runs, 0 lists all of them.
	Limit int
	// StatusFilter is an optional filter to only list runs with this status.
	StatusFilter *model.RunStatus
}

// List lists the runs newest first.
func (s *Service) List(ctx context.Context, req ListRequest) ([]model.RunRecord, error) {
	if req.Limit < 0 {
		return nil, fmt.Errorf("limit must be positive: %w", model.ErrNotValid)
	}

	// Filtering happens after the query so the limit can't be honored by the repository.
	limit := req.Limit
	if req.StatusFilter != nil {
		limit = 0
	}

	runs, err := s.repo.ListRuns(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("could not list runs: %w", err)
	}

	if req.StatusFilter != nil {
		filtered := make([]model.RunRecord, 0, len(runs))
		for _, r := range runs {
			if r.Status == *req.StatusFilter {
				filtered = append(filtered, r)
			}
		}
		runs = filtered
		if req.Limit > 0 && len(runs) > req.Limit {
			runs = runs[:req.Limit]
		}
	}

	s.logger.Debugf("found %d runs", len(runs))
	return runs, nil
}

// ShowRequest represents the show request parameters.
type ShowRequest struct {
	// ID is the run ID, the `latest` alias shows the newest run.
	ID string
}

// LatestAlias is the run ID alias of the newest run.
const LatestAlias = "latest"

// Show returns a single run.
func (s *Service) Show(ctx context.Context, req ShowRequest) (*model.RunRecord, error) {
	if req.ID == "" {
		return nil, fmt.Errorf("run id is required: %w", model.ErrNotValid)
	}

	if req.ID == LatestAlias {
		runs, err := s.repo.ListRuns(ctx, 1)
		if err != nil {
			return nil, fmt.Errorf("could not list runs: %w", err)
		}
		if len(runs) == 0 {
			return nil, fmt.Errorf("no runs stored: %w", model.ErrNotFound)
		}
		return &runs[0], nil
	}

	run, err := s.repo.GetRun(ctx, req.ID)
	if err != nil {
		return nil, fmt.Errorf("could not get run: %w", err)
	}

	return run, nil
}
