// Package completion defines the completion provider abstraction shared by
// the chat and study services.
package completion

import (
	"context"

	"github.com/studybuddy/study-service/internal/domain/models"
)

// Type represents the type of completion provider.
type Type string

const (
	// TypeGroq is the Groq OpenAI-compatible API.
	TypeGroq Type = "groq"
	// TypeGemini is the Google Gemini API.
	TypeGemini Type = "gemini"
)

// Message is one {role, content} pair sent to the provider.
type Message struct {
	Role    models.MessageRole
	Content string
}

// Request is a single completion request.
type Request struct {
	// Model overrides the provider's configured model when set.
	Model       string
	Messages    []Message
	Temperature *float64
	MaxTokens   int
	// JSONMode asks the provider to return a single JSON object.
	JSONMode bool
}

// Response is the generated text.
type Response struct {
	Content string
	Model   string
}

// Provider generates completions.
type Provider interface {
	// Name identifies the provider in logs and metrics.
	Name() string

	// Complete sends the request and returns the generated text.
	Complete(ctx context.Context, req *Request) (*Response, error)
}

// Float64 returns a pointer to v, for optional request fields.
func Float64(v float64) *float64 {
	return &v
}

// FromChatMessages converts stored chat messages into provider messages.
func FromChatMessages(messages []models.ChatMessage) []Message {
	out := make([]Message, len(messages))
	for i, m := range messages {
		out[i] = Message{Role: m.Role, Content: m.Content}
	}
	return out
}
