package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/studybuddy/study-service/internal/domain/models"
)

// MockSummaryCache is a mock implementation of summarycache.Service.
type MockSummaryCache struct {
	mock.Mock
}

// Get returns cached summaries and the owner's generation.
func (m *MockSummaryCache) Get(ctx context.Context, ownerID string) ([]models.SessionSummary, int64, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]models.SessionSummary), args.Get(1).(int64), args.Error(2)
}

// Set stores summaries read at generation.
func (m *MockSummaryCache) Set(ctx context.Context, ownerID string, generation int64, summaries []models.SessionSummary) error {
	args := m.Called(ctx, ownerID, generation, summaries)
	return args.Error(0)
}

// Invalidate drops summaries.
func (m *MockSummaryCache) Invalidate(ctx context.Context, ownerID string) error {
	args := m.Called(ctx, ownerID)
	return args.Error(0)
}
