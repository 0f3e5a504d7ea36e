package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockStore is a mock implementation of Store using testify/mock.
type MockStore struct {
	mock.Mock
}

func (m *MockStore) CreateRun(ctx context.Context, run Run) (Run, error) {
	args := m.Called(ctx, run)
	return args.Get(0).(Run), args.Error(1)
}

func (m *MockStore) GetRun(ctx context.Context, id uuid.UUID) (Run, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(Run), args.Error(1)
}

func (m *MockStore) UpdateRunStatus(ctx context.Context, id uuid.UUID, status RunStatus) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *MockStore) FinishRun(ctx context.Context, id uuid.UUID, status RunStatus, costUSD float64, errMsg string) error {
	args := m.Called(ctx, id, status, costUSD, errMsg)
	return args.Error(0)
}

func (m *MockStore) SaveResults(ctx context.Context, runID uuid.UUID, results []ItemResult) error {
	args := m.Called(ctx, runID, results)
	return args.Error(0)
}

func (m *MockStore) ListResults(ctx context.Context, runID uuid.UUID) ([]ItemResult, error) {
	args := m.Called(ctx, runID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]ItemResult), args.Error(1)
}
