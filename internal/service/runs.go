package service

import (
	"context"

	"github.com/listenupapp/bulkmeta/internal/domain"
	"github.com/listenupapp/bulkmeta/internal/store"
)

// RunService reads the history of bulk runs.
type RunService struct {
	store store.Store
}

// NewRunService creates the run history service.
func NewRunService(st store.Store) *RunService {
	return &RunService{store: st}
}

// List returns runs newest first.
func (s *RunService) List(ctx context.Context, user *domain.User, params store.PaginationParams) (*store.PaginatedResult[*domain.Run], error) {
	if err := Authorize(user); err != nil {
		return nil, err
	}
	params.Normalize()
	res, err := s.store.ListRuns(ctx, params)
	if err != nil {
		return nil, storeError(err, "")
	}
	return res, nil
}

// Get returns one run.
func (s *RunService) Get(ctx context.Context, user *domain.User, id string) (*domain.Run, error) {
	if err := Authorize(user); err != nil {
		return nil, err
	}
	run, err := s.store.GetRun(ctx, id)
	if err != nil {
		return nil, storeError(err, "run not found")
	}
	return run, nil
}
