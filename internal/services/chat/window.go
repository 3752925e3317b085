package chat

import (
	"strings"
	"time"

	"github.com/studybuddy/study-service/internal/domain/models"
)

// DefaultTitle names sessions whose first message yields no title words.
const DefaultTitle = "New Chat"

// DeriveTitle builds a session title from the first maxWords words of text,
// suffixed with an ellipsis.
func DeriveTitle(text string, maxWords int) string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return DefaultTitle
	}
	if len(words) > maxWords {
		words = words[:maxWords]
	}
	return strings.Join(words, " ") + "..."
}

// BuildContextWindow returns the last size messages of history. When that
// leaves a single message, a system instruction is prepended so the model
// always has role context. history itself is never modified.
func BuildContextWindow(history []models.ChatMessage, size int, systemPrompt string, now time.Time) []models.ChatMessage {
	start := 0
	if len(history) > size {
		start = len(history) - size
	}

	window := make([]models.ChatMessage, 0, len(history)-start+1)
	if len(history)-start == 1 && systemPrompt != "" {
		window = append(window, models.ChatMessage{
			Role:      models.RoleSystem,
			Content:   systemPrompt,
			Timestamp: now,
		})
	}
	return append(window, history[start:]...)
}
