// Package memory provides an in-process document store for development and tests.
package memory

import (
	"context"

	"github.com/studybuddy/study-service/internal/core/docdb"
)

// Client implements the docdb.Client interface without an external database.
type Client struct {
	sessions *SessionsCollection
}

// NewClient creates a new in-memory client.
func NewClient() *Client {
	return &Client{sessions: NewSessionsCollection()}
}

// Sessions returns the chat sessions collection.
func (c *Client) Sessions() docdb.SessionsCollection {
	return c.sessions
}

// EnsureIndexes is a no-op.
func (c *Client) EnsureIndexes(_ context.Context) error {
	return nil
}

// Ping always succeeds.
func (c *Client) Ping(_ context.Context) error {
	return nil
}

// Close is a no-op.
func (c *Client) Close(_ context.Context) error {
	return nil
}
