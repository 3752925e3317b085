// Package gemini provides a completion provider for the Google Gemini API.
package gemini

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/studybuddy/study-service/internal/domain/models"
	"github.com/studybuddy/study-service/internal/services/completion"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "gemini-2.5-flash"

// ClientConfig holds the configuration for the Gemini client.
type ClientConfig struct {
	APIKey string
	Model  string
	// BaseURL overrides the API endpoint; empty uses the SDK default.
	BaseURL string
}

// Client implements completion.Provider for Gemini.
type Client struct {
	client *genai.Client
	model  string
}

var _ completion.Provider = (*Client)(nil)

// NewClient creates a new Gemini client.
func NewClient(ctx context.Context, config *ClientConfig) (*Client, error) {
	if config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if config.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}

	clientConfig := &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if config.BaseURL != "" {
		clientConfig.HTTPOptions = genai.HTTPOptions{BaseURL: config.BaseURL}
	}

	gc, err := genai.NewClient(ctx, clientConfig)
	if err != nil {
		return nil, fmt.Errorf("gemini: %w", err)
	}

	model := config.Model
	if model == "" {
		model = DefaultModel
	}

	return &Client{client: gc, model: model}, nil
}

// Name returns the provider name.
func (c *Client) Name() string {
	return string(completion.TypeGemini)
}

// Complete sends a generateContent request.
func (c *Client) Complete(ctx context.Context, req *completion.Request) (*completion.Response, error) {
	model := req.Model
	if model == "" {
		model = c.model
	}

	contents, config := buildRequest(req)
	resp, err := c.client.Models.GenerateContent(ctx, model, contents, config)
	if err != nil {
		return nil, fmt.Errorf("gemini: %w", err)
	}

	return &completion.Response{
		Content: resp.Text(),
		Model:   model,
	}, nil
}

// buildRequest splits system messages into the system instruction and maps
// the remaining turns onto Gemini's user/model roles.
func buildRequest(req *completion.Request) ([]*genai.Content, *genai.GenerateContentConfig) {
	config := &genai.GenerateContentConfig{}
	var system []*genai.Part
	var contents []*genai.Content

	for _, m := range req.Messages {
		switch m.Role {
		case models.RoleSystem:
			system = append(system, &genai.Part{Text: m.Content})
		case models.RoleAssistant:
			contents = append(contents, &genai.Content{
				Role:  genai.RoleModel,
				Parts: []*genai.Part{{Text: m.Content}},
			})
		default:
			contents = append(contents, &genai.Content{
				Role:  genai.RoleUser,
				Parts: []*genai.Part{{Text: m.Content}},
			})
		}
	}

	if len(system) > 0 {
		config.SystemInstruction = &genai.Content{Parts: system}
	}
	if req.Temperature != nil {
		temp := float32(*req.Temperature)
		config.Temperature = &temp
	}
	if req.MaxTokens > 0 {
		config.MaxOutputTokens = int32(req.MaxTokens)
	}
	if req.JSONMode {
		config.ResponseMIMEType = "application/json"
	}

	return contents, config
}
