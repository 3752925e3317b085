package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/studybuddy/study-service/internal/domain/models"
)

// MockTokenVerifier is a mock implementation of middleware.TokenVerifier.
type MockTokenVerifier struct {
	mock.Mock
}

// Verify validates a token.
func (m *MockTokenVerifier) Verify(ctx context.Context, token string) (*models.Principal, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Principal), args.Error(1)
}
