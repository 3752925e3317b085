// Package study implements the stateless study helpers: topic explanations,
// text summaries, quizzes and flashcards.
package study

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	domainerrors "github.com/studybuddy/study-service/internal/domain/errors"
	"github.com/studybuddy/study-service/internal/domain/models"
	"github.com/studybuddy/study-service/internal/services/completion"
)

// MaxSummaryInput is the number of characters of source text sent for summarising.
const MaxSummaryInput = 15000

// DefaultDifficulty is used when a quiz request names none.
const DefaultDifficulty = "medium"

const (
	explainSystemPrompt    = "You are a helpful AI Study Buddy. Your goal is to simplify complex topics."
	summarizeSystemPrompt  = "You are an expert summarizer."
	quizSystemPrompt       = "You are a quiz assistant. Output ONLY JSON."
	flashcardsSystemPrompt = "You are a study aid generator. Output ONLY JSON."
)

// Question is one multiple-choice quiz question. CorrectAnswer indexes Options.
type Question struct {
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer int      `json:"correct_answer"`
}

// Quiz is a generated quiz.
type Quiz struct {
	Title     string     `json:"title"`
	Questions []Question `json:"questions"`
}

// Flashcard is one term/definition pair.
type Flashcard struct {
	Front string `json:"front"`
	Back  string `json:"back"`
}

// Service generates study material.
type Service interface {
	Explain(ctx context.Context, topic string) (string, error)
	Summarize(ctx context.Context, text string) (string, error)
	Quiz(ctx context.Context, topic, difficulty string) (*Quiz, error)
	Flashcards(ctx context.Context, topic string) ([]Flashcard, error)
}

type service struct {
	provider completion.Provider
}

// NewService creates a new study service.
func NewService(provider completion.Provider) (Service, error) {
	if provider == nil {
		return nil, fmt.Errorf("completion provider is required")
	}
	return &service{provider: provider}, nil
}

// Explain returns a student-friendly explanation of topic.
func (s *service) Explain(ctx context.Context, topic string) (string, error) {
	if strings.TrimSpace(topic) == "" {
		return "", domainerrors.NewValidationError("topic is required", "")
	}

	prompt := fmt.Sprintf("Explain the topic '%s' in a created, simplified way suitable for a student. "+
		"Use analogies if helpful. Keep it concise but informative.", topic)

	return s.complete(ctx, &completion.Request{
		Messages:    prompts(explainSystemPrompt, prompt),
		Temperature: completion.Float64(0.7),
		MaxTokens:   1024,
	})
}

// Summarize returns bullet points and an overview of text. Only the first
// MaxSummaryInput characters are sent.
func (s *service) Summarize(ctx context.Context, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", domainerrors.NewValidationError("text is required", "")
	}

	prompt := "Summarize the following text into key bullet points and a brief overview:\n\n" +
		truncate(text, MaxSummaryInput)

	return s.complete(ctx, &completion.Request{
		Messages: prompts(summarizeSystemPrompt, prompt),
	})
}

// Quiz generates five multiple-choice questions about topic.
func (s *service) Quiz(ctx context.Context, topic, difficulty string) (*Quiz, error) {
	if strings.TrimSpace(topic) == "" {
		return nil, domainerrors.NewValidationError("topic is required", "")
	}
	if strings.TrimSpace(difficulty) == "" {
		difficulty = DefaultDifficulty
	}

	prompt := fmt.Sprintf("Generate a %s difficulty quiz regarding '%s' with 5 multiple choice questions. "+
		"Return strictly valid JSON in the following format: "+
		`{"title": "Quiz Title", "questions": [{"question": "Q1?", "options": ["A", "B", "C", "D"], "correct_answer": 0}]}. `+
		"Ensure correct_answer is an integer index (0-3).", difficulty, topic)

	content, err := s.complete(ctx, &completion.Request{
		Messages: prompts(quizSystemPrompt, prompt),
		JSONMode: true,
	})
	if err != nil {
		return nil, err
	}

	var quiz Quiz
	if err := decodeJSON(content, &quiz); err != nil {
		return nil, err
	}
	if len(quiz.Questions) == 0 {
		return nil, fmt.Errorf("%w: quiz has no questions", domainerrors.ErrCompletionFailed)
	}
	for i, q := range quiz.Questions {
		if q.Question == "" || len(q.Options) == 0 || q.CorrectAnswer < 0 || q.CorrectAnswer >= len(q.Options) {
			return nil, fmt.Errorf("%w: quiz question %d is malformed", domainerrors.ErrCompletionFailed, i)
		}
	}
	if quiz.Title == "" {
		quiz.Title = "Quiz on " + topic
	}
	return &quiz, nil
}

// Flashcards generates five flashcards about topic.
func (s *service) Flashcards(ctx context.Context, topic string) ([]Flashcard, error) {
	if strings.TrimSpace(topic) == "" {
		return nil, domainerrors.NewValidationError("topic is required", "")
	}

	prompt := fmt.Sprintf("Generate 5 flashcards for the topic '%s'. Return strictly valid JSON in the following format: "+
		`{"flashcards": [{"front": "Term", "back": "Definition"}]}.`, topic)

	content, err := s.complete(ctx, &completion.Request{
		Messages: prompts(flashcardsSystemPrompt, prompt),
		JSONMode: true,
	})
	if err != nil {
		return nil, err
	}

	var payload struct {
		Flashcards []Flashcard `json:"flashcards"`
	}
	if err := decodeJSON(content, &payload); err != nil {
		return nil, err
	}
	if len(payload.Flashcards) == 0 {
		return nil, fmt.Errorf("%w: no flashcards generated", domainerrors.ErrCompletionFailed)
	}
	return payload.Flashcards, nil
}

func (s *service) complete(ctx context.Context, req *completion.Request) (string, error) {
	resp, err := s.provider.Complete(ctx, req)
	if err != nil {
		if !errors.Is(err, domainerrors.ErrCompletionFailed) {
			err = fmt.Errorf("%w: %v", domainerrors.ErrCompletionFailed, err)
		}
		return "", err
	}
	if resp == nil || strings.TrimSpace(resp.Content) == "" {
		return "", fmt.Errorf("%w: empty content", domainerrors.ErrCompletionFailed)
	}
	return resp.Content, nil
}

func prompts(system, user string) []completion.Message {
	return []completion.Message{
		{Role: models.RoleSystem, Content: system},
		{Role: models.RoleUser, Content: user},
	}
}

// decodeJSON tolerates a Markdown code fence around the object.
func decodeJSON(content string, v interface{}) error {
	content = strings.TrimSpace(content)
	if strings.HasPrefix(content, "```") {
		content = strings.TrimPrefix(content, "```json")
		content = strings.TrimPrefix(content, "```")
		content = strings.TrimSuffix(strings.TrimSpace(content), "```")
	}
	if err := json.Unmarshal([]byte(content), v); err != nil {
		return fmt.Errorf("%w: malformed JSON: %v", domainerrors.ErrCompletionFailed, err)
	}
	return nil
}

// truncate cuts s to at most n characters without splitting a rune.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
