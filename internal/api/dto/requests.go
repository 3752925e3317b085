// Package dto provides Data Transfer Objects for API requests and responses.
package dto

// ChatMessageRequest is the body of POST /api/chat and POST /api/chat/{id}.
type ChatMessageRequest struct {
	Message string `json:"message" binding:"required,max=32000"`
}

// ExplainRequest is the body of POST /api/explain.
type ExplainRequest struct {
	Topic string `json:"topic" binding:"required,max=500"`
}

// SummarizeRequest is the body of POST /api/summarize. Text beyond the
// summariser's input limit is ignored.
type SummarizeRequest struct {
	Text     string `json:"text" binding:"required"`
	Filename string `json:"filename"`
}

// QuizRequest is the body of POST /api/quiz.
type QuizRequest struct {
	Topic      string `json:"topic" binding:"required,max=500"`
	Difficulty string `json:"difficulty" binding:"omitempty,oneof=easy medium hard"`
}

// FlashcardsRequest is the body of POST /api/flashcards.
type FlashcardsRequest struct {
	Topic string `json:"topic" binding:"required,max=500"`
}
