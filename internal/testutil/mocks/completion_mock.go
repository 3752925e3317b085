package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/studybuddy/study-service/internal/services/completion"
)

// MockProvider is a mock implementation of completion.Provider.
type MockProvider struct {
	mock.Mock
}

// Name returns the provider name.
func (m *MockProvider) Name() string {
	return "mock"
}

// Complete returns the configured completion.
func (m *MockProvider) Complete(ctx context.Context, req *completion.Request) (*completion.Response, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*completion.Response), args.Error(1)
}
