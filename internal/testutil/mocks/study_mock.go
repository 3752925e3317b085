package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/studybuddy/study-service/internal/services/study"
)

// MockStudyService is a mock implementation of study.Service.
type MockStudyService struct {
	mock.Mock
}

// Explain returns an explanation.
func (m *MockStudyService) Explain(ctx context.Context, topic string) (string, error) {
	args := m.Called(ctx, topic)
	return args.String(0), args.Error(1)
}

// Summarize returns a summary.
func (m *MockStudyService) Summarize(ctx context.Context, text string) (string, error) {
	args := m.Called(ctx, text)
	return args.String(0), args.Error(1)
}

// Quiz returns a quiz.
func (m *MockStudyService) Quiz(ctx context.Context, topic, difficulty string) (*study.Quiz, error) {
	args := m.Called(ctx, topic, difficulty)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*study.Quiz), args.Error(1)
}

// Flashcards returns flashcards.
func (m *MockStudyService) Flashcards(ctx context.Context, topic string) ([]study.Flashcard, error) {
	args := m.Called(ctx, topic)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]study.Flashcard), args.Error(1)
}
