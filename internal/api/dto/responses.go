package dto

import (
	"time"

	"github.com/studybuddy/study-service/internal/domain/models"
	"github.com/studybuddy/study-service/internal/services/study"
)

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// MessageResponse is one chat message.
type MessageResponse struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// SessionSummaryResponse is one entry of GET /api/chat/sessions.
type SessionSummaryResponse struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ChatResponse is returned by both chat POST endpoints.
type ChatResponse struct {
	SessionID string          `json:"session_id"`
	Message   MessageResponse `json:"message"`
	Title     string          `json:"title"`
}

// ExplainResponse is returned by POST /api/explain.
type ExplainResponse struct {
	Explanation string `json:"explanation"`
	Topic       string `json:"topic"`
}

// SummaryResponse is returned by POST /api/summarize.
type SummaryResponse struct {
	Summary          string `json:"summary"`
	OriginalFilename string `json:"original_filename"`
}

// QuestionResponse is one multiple-choice question.
type QuestionResponse struct {
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer int      `json:"correct_answer"`
}

// QuizResponse is returned by POST /api/quiz.
type QuizResponse struct {
	Title     string             `json:"title"`
	Questions []QuestionResponse `json:"questions"`
}

// FlashcardResponse is one term/definition pair.
type FlashcardResponse struct {
	Front string `json:"front"`
	Back  string `json:"back"`
}

// FlashcardsResponse is returned by POST /api/flashcards.
type FlashcardsResponse struct {
	Flashcards []FlashcardResponse `json:"flashcards"`
}

// MessageFromModel converts a stored chat message.
func MessageFromModel(m models.ChatMessage) MessageResponse {
	return MessageResponse{
		Role:      string(m.Role),
		Content:   m.Content,
		Timestamp: m.Timestamp,
	}
}

// MessagesFromModel converts a session history.
func MessagesFromModel(messages []models.ChatMessage) []MessageResponse {
	out := make([]MessageResponse, len(messages))
	for i, m := range messages {
		out[i] = MessageFromModel(m)
	}
	return out
}

// SummariesFromModel converts session summaries.
func SummariesFromModel(summaries []models.SessionSummary) []SessionSummaryResponse {
	out := make([]SessionSummaryResponse, len(summaries))
	for i, s := range summaries {
		out[i] = SessionSummaryResponse{ID: s.ID, Title: s.Title, UpdatedAt: s.UpdatedAt}
	}
	return out
}

// QuizFromModel converts a generated quiz.
func QuizFromModel(q *study.Quiz) QuizResponse {
	questions := make([]QuestionResponse, len(q.Questions))
	for i, question := range q.Questions {
		questions[i] = QuestionResponse{
			Question:      question.Question,
			Options:       question.Options,
			CorrectAnswer: question.CorrectAnswer,
		}
	}
	return QuizResponse{Title: q.Title, Questions: questions}
}

// FlashcardsFromModel converts generated flashcards.
func FlashcardsFromModel(cards []study.Flashcard) FlashcardsResponse {
	out := make([]FlashcardResponse, len(cards))
	for i, card := range cards {
		out[i] = FlashcardResponse{Front: card.Front, Back: card.Back}
	}
	return FlashcardsResponse{Flashcards: out}
}
