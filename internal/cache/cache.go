package cache

import (
	"context"
	"time"

	"billsmith/backend/internal/domain"
)

type RunStatusCache interface {
	Get(ctx context.Context, runID string) (*domain.RunStatus, bool, error)
	Set(ctx context.Context, runID string, status *domain.RunStatus, ttl time.Duration) error
}

type NoopRunStatusCache struct{}

func (NoopRunStatusCache) Get(_ context.Context, _ string) (*domain.RunStatus, bool, error) {
	return nil, false, nil
}

func (NoopRunStatusCache) Set(_ context.Context, _ string, _ *domain.RunStatus, _ time.Duration) error {
	return nil
}
