// Package models contains domain models for the study assistant service.
package models

import (
	"time"

	"github.com/google/uuid"
)

// MessageRole represents the role of a message sender.
type MessageRole string

const (
	// RoleSystem represents a system instruction.
	RoleSystem MessageRole = "system"
	// RoleUser represents a message from the user.
	RoleUser MessageRole = "user"
	// RoleAssistant represents a message from the assistant.
	RoleAssistant MessageRole = "assistant"
)

// Valid reports whether r is one of the known roles.
func (r MessageRole) Valid() bool {
	switch r {
	case RoleSystem, RoleUser, RoleAssistant:
		return true
	}
	return false
}

// ChatMessage is a single entry in a session's history. Messages are
// append-only and never mutated after creation.
type ChatMessage struct {
	Role      MessageRole `json:"role" bson:"role"`
	Content   string      `json:"content" bson:"content"`
	Timestamp time.Time   `json:"timestamp" bson:"timestamp"`
}

// NewChatMessage creates a message stamped with the current UTC time.
func NewChatMessage(role MessageRole, content string) ChatMessage {
	return ChatMessage{
		Role:      role,
		Content:   content,
		Timestamp: time.Now().UTC(),
	}
}

// ChatSession is a persisted multi-turn conversation owned by one user.
type ChatSession struct {
	ID        string        `json:"id" bson:"_id"`
	OwnerID   string        `json:"ownerId" bson:"ownerId"`
	Title     string        `json:"title" bson:"title"`
	Messages  []ChatMessage `json:"messages" bson:"messages"`
	Version   int64         `json:"version" bson:"version"`
	CreatedAt time.Time     `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time     `json:"updatedAt" bson:"updatedAt"`
}

// Summary returns the list view of the session.
func (s *ChatSession) Summary() SessionSummary {
	return SessionSummary{
		ID:        s.ID,
		Title:     s.Title,
		UpdatedAt: s.UpdatedAt,
	}
}

// SessionSummary is the list-view projection of a ChatSession.
type SessionSummary struct {
	ID        string    `json:"id" bson:"_id"`
	Title     string    `json:"title" bson:"title"`
	UpdatedAt time.Time `json:"updated_at" bson:"updatedAt"`
}

// NewSessionID mints an opaque session identifier.
func NewSessionID() string {
	return uuid.NewString()
}

// ValidSessionID reports whether id has the shape of a session identifier.
func ValidSessionID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil && len(id) == 36
}

// NextUpdatedAt returns a timestamp strictly after prev, at millisecond
// precision so it survives a round trip through the document store.
func NextUpdatedAt(prev, now time.Time) time.Time {
	next := now.UTC().Truncate(time.Millisecond)
	if !next.After(prev) {
		next = prev.UTC().Truncate(time.Millisecond).Add(time.Millisecond)
	}
	return next
}
