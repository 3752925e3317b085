// Package vault defines the secrets client interface.
package vault

import (
	"context"
)

// Client resolves secret references such as "dotenv://GROQ_API_KEY".
type Client interface {
	// GetSecret retrieves a secret by URI.
	GetSecret(ctx context.Context, uri string) (string, error)

	// Ping checks if the vault connection is alive.
	Ping(ctx context.Context) error

	// Close closes the vault client connection.
	Close() error
}
