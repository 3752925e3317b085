// Package dotenv provides a vault backed by environment variables.
package dotenv

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
)

// Scheme prefixes every secret URI this vault resolves.
const Scheme = "dotenv://"

// Client implements vault.Client using environment variables, with an
// in-memory overlay for secrets registered at runtime.
type Client struct {
	secrets map[string]string
	mu      sync.RWMutex
}

// NewClient creates a new DotEnv vault client.
func NewClient() *Client {
	return &Client{
		secrets: make(map[string]string),
	}
}

// Put registers a secret in memory and returns its URI.
func (c *Client) Put(key, value string) string {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.secrets[key] = value
	return Scheme + key
}

// GetSecret resolves uri from the environment first, then the in-memory overlay.
func (c *Client) GetSecret(_ context.Context, uri string) (string, error) {
	if !strings.HasPrefix(uri, Scheme) {
		return "", fmt.Errorf("unsupported secret uri %q", uri)
	}
	key := strings.TrimPrefix(uri, Scheme)
	if key == "" {
		return "", fmt.Errorf("secret uri %q names no key", uri)
	}

	if value := os.Getenv(key); value != "" {
		return value, nil
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	if value, ok := c.secrets[key]; ok {
		return value, nil
	}
	return "", fmt.Errorf("secret not found: %s", key)
}

// Ping always succeeds.
func (c *Client) Ping(_ context.Context) error {
	return nil
}

// Close is a no-op.
func (c *Client) Close() error {
	return nil
}
