// Package docdb provides the chat sessions collection interface.
package docdb

import (
	"context"
	"time"

	"github.com/studybuddy/study-service/internal/domain/models"
)

// SessionsCollection persists chat sessions. Every operation is scoped by
// ownerID: a session owned by someone else behaves exactly like a missing
// one and yields errors.ErrSessionNotFound.
type SessionsCollection interface {
	// Create inserts a new session holding messages and returns its ID.
	// Creation and the first append are one atomic insert.
	Create(ctx context.Context, ownerID, title string, messages []models.ChatMessage) (string, error)

	// Get retrieves a session by ID and owner.
	Get(ctx context.Context, id, ownerID string) (*models.ChatSession, error)

	// Append replaces the full message sequence and updatedAt together,
	// provided the stored version still equals expectedVersion. A stale
	// version yields errors.ErrSessionConflict.
	Append(ctx context.Context, id, ownerID string, messages []models.ChatMessage, updatedAt time.Time, expectedVersion int64) error

	// Delete removes a session by ID and owner.
	Delete(ctx context.Context, id, ownerID string) error

	// List returns the owner's sessions ordered by updatedAt descending.
	List(ctx context.Context, ownerID string) ([]models.SessionSummary, error)
}
