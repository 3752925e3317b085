package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/studybuddy/study-service/internal/core/docdb"
	"github.com/studybuddy/study-service/internal/domain/models"
)

// MockDocDBClient is a mock implementation of docdb.Client.
type MockDocDBClient struct {
	mock.Mock
	sessions *MockSessionsCollection
}

// NewMockDocDBClient creates a new MockDocDBClient.
func NewMockDocDBClient() *MockDocDBClient {
	return &MockDocDBClient{
		sessions: &MockSessionsCollection{},
	}
}

// Sessions returns the mock sessions collection.
func (m *MockDocDBClient) Sessions() docdb.SessionsCollection {
	return m.sessions
}

// GetMockSessions returns the mock sessions collection for setting expectations.
func (m *MockDocDBClient) GetMockSessions() *MockSessionsCollection {
	return m.sessions
}

// EnsureIndexes creates indexes.
func (m *MockDocDBClient) EnsureIndexes(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// Ping checks the database connection.
func (m *MockDocDBClient) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// Close closes the database connection.
func (m *MockDocDBClient) Close(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// MockSessionsCollection is a mock implementation of docdb.SessionsCollection.
type MockSessionsCollection struct {
	mock.Mock
}

// Create inserts a session.
func (m *MockSessionsCollection) Create(ctx context.Context, ownerID, title string, messages []models.ChatMessage) (string, error) {
	args := m.Called(ctx, ownerID, title, messages)
	return args.String(0), args.Error(1)
}

// Get retrieves a session.
func (m *MockSessionsCollection) Get(ctx context.Context, id, ownerID string) (*models.ChatSession, error) {
	args := m.Called(ctx, id, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ChatSession), args.Error(1)
}

// Append replaces a session's messages.
func (m *MockSessionsCollection) Append(ctx context.Context, id, ownerID string, messages []models.ChatMessage, updatedAt time.Time, expectedVersion int64) error {
	args := m.Called(ctx, id, ownerID, messages, updatedAt, expectedVersion)
	return args.Error(0)
}

// Delete removes a session.
func (m *MockSessionsCollection) Delete(ctx context.Context, id, ownerID string) error {
	args := m.Called(ctx, id, ownerID)
	return args.Error(0)
}

// List returns session summaries.
func (m *MockSessionsCollection) List(ctx context.Context, ownerID string) ([]models.SessionSummary, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.SessionSummary), args.Error(1)
}
