package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	domainerrors "github.com/studybuddy/study-service/internal/domain/errors"
	"github.com/studybuddy/study-service/internal/domain/models"
)

// SessionsCollection keeps sessions in a map guarded by a RWMutex. Stored
// sessions are copied on the way in and out so callers never share slices
// with the store.
type SessionsCollection struct {
	mu       sync.RWMutex
	sessions map[string]*models.ChatSession
	now      func() time.Time
}

// NewSessionsCollection creates an empty collection.
func NewSessionsCollection() *SessionsCollection {
	return &SessionsCollection{
		sessions: make(map[string]*models.ChatSession),
		now:      time.Now,
	}
}

// Create inserts a new session.
func (c *SessionsCollection) Create(_ context.Context, ownerID, title string, messages []models.ChatMessage) (string, error) {
	now := c.now().UTC().Truncate(time.Millisecond)
	session := &models.ChatSession{
		ID:        models.NewSessionID(),
		OwnerID:   ownerID,
		Title:     title,
		Messages:  copyMessages(messages),
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.sessions[session.ID] = session

	return session.ID, nil
}

// Get retrieves a session owned by ownerID.
func (c *SessionsCollection) Get(_ context.Context, id, ownerID string) (*models.ChatSession, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	session, ok := c.owned(id, ownerID)
	if !ok {
		return nil, domainerrors.ErrSessionNotFound
	}
	return copySession(session), nil
}

// Append replaces messages and updatedAt when the version matches.
func (c *SessionsCollection) Append(_ context.Context, id, ownerID string, messages []models.ChatMessage, updatedAt time.Time, expectedVersion int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	session, ok := c.owned(id, ownerID)
	if !ok {
		return domainerrors.ErrSessionNotFound
	}
	if session.Version != expectedVersion {
		return domainerrors.ErrSessionConflict
	}

	session.Messages = copyMessages(messages)
	session.UpdatedAt = updatedAt
	session.Version++
	return nil
}

// Delete removes a session owned by ownerID.
func (c *SessionsCollection) Delete(_ context.Context, id, ownerID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.owned(id, ownerID); !ok {
		return domainerrors.ErrSessionNotFound
	}
	delete(c.sessions, id)
	return nil
}

// List returns the owner's summaries, most recently updated first.
func (c *SessionsCollection) List(_ context.Context, ownerID string) ([]models.SessionSummary, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	summaries := []models.SessionSummary{}
	for _, session := range c.sessions {
		if session.OwnerID != ownerID {
			continue
		}
		summary := session.Summary()
		if summary.Title == "" {
			summary.Title = "New Chat"
		}
		summaries = append(summaries, summary)
	}

	sort.SliceStable(summaries, func(i, j int) bool {
		return summaries[i].UpdatedAt.After(summaries[j].UpdatedAt)
	})
	return summaries, nil
}

func (c *SessionsCollection) owned(id, ownerID string) (*models.ChatSession, bool) {
	session, ok := c.sessions[id]
	if !ok || session.OwnerID != ownerID {
		return nil, false
	}
	return session, true
}

func copySession(s *models.ChatSession) *models.ChatSession {
	out := *s
	out.Messages = copyMessages(s.Messages)
	return &out
}

func copyMessages(messages []models.ChatMessage) []models.ChatMessage {
	out := make([]models.ChatMessage, len(messages))
	copy(out, messages)
	return out
}
