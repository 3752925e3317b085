package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/studybuddy/study-service/internal/api/dto"
	"github.com/studybuddy/study-service/internal/api/middleware"
	"github.com/studybuddy/study-service/internal/domain/errors"
	"github.com/studybuddy/study-service/internal/domain/models"
	"github.com/studybuddy/study-service/internal/services/chat"
)

// ChatService is the chat orchestration the handler depends on.
type ChatService interface {
	HandleMessage(ctx context.Context, ownerID, sessionID, text string) (*chat.Result, error)
	ListSessions(ctx context.Context, ownerID string) ([]models.SessionSummary, error)
	GetSession(ctx context.Context, ownerID, sessionID string) (*models.ChatSession, error)
	DeleteSession(ctx context.Context, ownerID, sessionID string) error
}

// ChatHandler handles chat session endpoints.
type ChatHandler struct {
	chat ChatService
}

// NewChatHandler creates a new ChatHandler.
func NewChatHandler(chatService ChatService) *ChatHandler {
	return &ChatHandler{
		chat: chatService,
	}
}

// ListSessions handles GET /api/chat/sessions
// @Summary List chat sessions
// @Description Returns the caller's chat sessions, most recently updated first
// @Tags Chat
// @Produce json
// @Success 200 {array} dto.SessionSummaryResponse
// @Failure 401 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Security BearerAuth
// @Router /api/chat/sessions [get]
func (h *ChatHandler) ListSessions(c *gin.Context) {
	principal, ok := requirePrincipal(c)
	if !ok {
		return
	}

	summaries, err := h.chat.ListSessions(c.Request.Context(), principal.SubjectID)
	if err != nil {
		middleware.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.SummariesFromModel(summaries))
}

// GetSession handles GET /api/chat/{sessionId}
// @Summary Get session messages
// @Description Returns the full message history of one of the caller's sessions
// @Tags Chat
// @Produce json
// @Param sessionId path string true "Session ID"
// @Success 200 {array} dto.MessageResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 401 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Security BearerAuth
// @Router /api/chat/{sessionId} [get]
func (h *ChatHandler) GetSession(c *gin.Context) {
	principal, ok := requirePrincipal(c)
	if !ok {
		return
	}

	session, err := h.chat.GetSession(c.Request.Context(), principal.SubjectID, c.Param("sessionId"))
	if err != nil {
		middleware.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.MessagesFromModel(session.Messages))
}

// CreateSession handles POST /api/chat
// @Summary Start a chat session
// @Description Creates a new session holding the first exchange
// @Tags Chat
// @Accept json
// @Produce json
// @Param request body dto.ChatMessageRequest true "First message"
// @Success 200 {object} dto.ChatResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 401 {object} dto.ErrorResponse
// @Failure 502 {object} dto.ErrorResponse
// @Security BearerAuth
// @Router /api/chat [post]
func (h *ChatHandler) CreateSession(c *gin.Context) {
	h.sendMessage(c, "")
}

// ContinueSession handles POST /api/chat/{sessionId}
// @Summary Continue a chat session
// @Description Appends an exchange to one of the caller's sessions
// @Tags Chat
// @Accept json
// @Produce json
// @Param sessionId path string true "Session ID"
// @Param request body dto.ChatMessageRequest true "Next message"
// @Success 200 {object} dto.ChatResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 401 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse
// @Failure 502 {object} dto.ErrorResponse
// @Security BearerAuth
// @Router /api/chat/{sessionId} [post]
func (h *ChatHandler) ContinueSession(c *gin.Context) {
	sessionID := c.Param("sessionId")
	if sessionID == "" {
		middleware.HandleError(c, errors.ErrInvalidSessionID)
		return
	}
	h.sendMessage(c, sessionID)
}

// DeleteSession handles DELETE /api/chat/{sessionId}
// @Summary Delete a chat session
// @Tags Chat
// @Param sessionId path string true "Session ID"
// @Success 204 "Session deleted"
// @Failure 400 {object} dto.ErrorResponse
// @Failure 401 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Security BearerAuth
// @Router /api/chat/{sessionId} [delete]
func (h *ChatHandler) DeleteSession(c *gin.Context) {
	principal, ok := requirePrincipal(c)
	if !ok {
		return
	}

	if err := h.chat.DeleteSession(c.Request.Context(), principal.SubjectID, c.Param("sessionId")); err != nil {
		middleware.HandleError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *ChatHandler) sendMessage(c *gin.Context, sessionID string) {
	principal, ok := requirePrincipal(c)
	if !ok {
		return
	}

	var req dto.ChatMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleError(c, errors.NewValidationError("invalid request body", err.Error()))
		return
	}

	result, err := h.chat.HandleMessage(c.Request.Context(), principal.SubjectID, sessionID, req.Message)
	if err != nil {
		middleware.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ChatResponse{
		SessionID: result.SessionID,
		Message:   dto.MessageFromModel(result.Message),
		Title:     result.Title,
	})
}

// requirePrincipal aborts with 401 when no principal is attached.
func requirePrincipal(c *gin.Context) (*models.Principal, bool) {
	principal, ok := middleware.GetPrincipal(c)
	if !ok {
		middleware.HandleError(c, errors.NewUnauthorizedError("unauthorized", nil))
		return nil, false
	}
	return principal, true
}
