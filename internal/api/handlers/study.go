package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/studybuddy/study-service/internal/api/dto"
	"github.com/studybuddy/study-service/internal/api/middleware"
	"github.com/studybuddy/study-service/internal/domain/errors"
	"github.com/studybuddy/study-service/internal/services/study"
)

// StudyHandler handles the stateless study endpoints.
type StudyHandler struct {
	study study.Service
}

// NewStudyHandler creates a new StudyHandler.
func NewStudyHandler(studyService study.Service) *StudyHandler {
	return &StudyHandler{
		study: studyService,
	}
}

// Explain handles POST /api/explain
// @Summary Explain a topic
// @Tags Study
// @Accept json
// @Produce json
// @Param request body dto.ExplainRequest true "Topic"
// @Success 200 {object} dto.ExplainResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 401 {object} dto.ErrorResponse
// @Failure 502 {object} dto.ErrorResponse
// @Security BearerAuth
// @Router /api/explain [post]
func (h *StudyHandler) Explain(c *gin.Context) {
	var req dto.ExplainRequest
	if !bindJSON(c, &req) {
		return
	}

	explanation, err := h.study.Explain(c.Request.Context(), req.Topic)
	if err != nil {
		middleware.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ExplainResponse{Explanation: explanation, Topic: req.Topic})
}

// Summarize handles POST /api/summarize
// @Summary Summarize text
// @Description Summarizes extracted document text into bullet points and an overview
// @Tags Study
// @Accept json
// @Produce json
// @Param request body dto.SummarizeRequest true "Text to summarize"
// @Success 200 {object} dto.SummaryResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 401 {object} dto.ErrorResponse
// @Failure 502 {object} dto.ErrorResponse
// @Security BearerAuth
// @Router /api/summarize [post]
func (h *StudyHandler) Summarize(c *gin.Context) {
	var req dto.SummarizeRequest
	if !bindJSON(c, &req) {
		return
	}

	summary, err := h.study.Summarize(c.Request.Context(), req.Text)
	if err != nil {
		middleware.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.SummaryResponse{Summary: summary, OriginalFilename: req.Filename})
}

// Quiz handles POST /api/quiz
// @Summary Generate a quiz
// @Tags Study
// @Accept json
// @Produce json
// @Param request body dto.QuizRequest true "Topic and difficulty"
// @Success 200 {object} dto.QuizResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 401 {object} dto.ErrorResponse
// @Failure 502 {object} dto.ErrorResponse
// @Security BearerAuth
// @Router /api/quiz [post]
func (h *StudyHandler) Quiz(c *gin.Context) {
	var req dto.QuizRequest
	if !bindJSON(c, &req) {
		return
	}

	quiz, err := h.study.Quiz(c.Request.Context(), req.Topic, req.Difficulty)
	if err != nil {
		middleware.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.QuizFromModel(quiz))
}

// Flashcards handles POST /api/flashcards
// @Summary Generate flashcards
// @Tags Study
// @Accept json
// @Produce json
// @Param request body dto.FlashcardsRequest true "Topic"
// @Success 200 {object} dto.FlashcardsResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 401 {object} dto.ErrorResponse
// @Failure 502 {object} dto.ErrorResponse
// @Security BearerAuth
// @Router /api/flashcards [post]
func (h *StudyHandler) Flashcards(c *gin.Context) {
	var req dto.FlashcardsRequest
	if !bindJSON(c, &req) {
		return
	}

	cards, err := h.study.Flashcards(c.Request.Context(), req.Topic)
	if err != nil {
		middleware.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.FlashcardsFromModel(cards))
}

func bindJSON(c *gin.Context, v interface{}) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		middleware.HandleError(c, errors.NewValidationError("invalid request body", err.Error()))
		return false
	}
	return true
}
