package handlers_test

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/studybuddy/study-service/internal/api/dto"
	"github.com/studybuddy/study-service/internal/api/handlers"
	domainerrors "github.com/studybuddy/study-service/internal/domain/errors"
	"github.com/studybuddy/study-service/internal/services/study"
	"github.com/studybuddy/study-service/internal/testutil"
	"github.com/studybuddy/study-service/internal/testutil/mocks"
)

func setupStudyRouter(svc *mocks.MockStudyService) *gin.Engine {
	handler := handlers.NewStudyHandler(svc)
	router := testutil.SetupTestRouter()
	router.POST("/api/explain", handler.Explain)
	router.POST("/api/summarize", handler.Summarize)
	router.POST("/api/quiz", handler.Quiz)
	router.POST("/api/flashcards", handler.Flashcards)
	return router
}

func TestStudyHandler_Explain(t *testing.T) {
	// Setup
	svc := &mocks.MockStudyService{}
	svc.On("Explain", mock.Anything, "Gravity").Return("Things fall.", nil)
	router := setupStudyRouter(svc)

	// Execute
	w := testutil.PerformRequest(router, "POST", "/api/explain", dto.ExplainRequest{Topic: "Gravity"}, nil)

	// Assert
	testutil.AssertStatusCode(t, http.StatusOK, w)
	var response dto.ExplainResponse
	testutil.ParseJSONResponse(t, w, &response)
	assert.Equal(t, dto.ExplainResponse{Explanation: "Things fall.", Topic: "Gravity"}, response)
	svc.AssertExpectations(t)
}

func TestStudyHandler_Summarize(t *testing.T) {
	svc := &mocks.MockStudyService{}
	svc.On("Summarize", mock.Anything, "long text").Return("- short", nil)
	router := setupStudyRouter(svc)

	w := testutil.PerformRequest(router, "POST", "/api/summarize", dto.SummarizeRequest{Text: "long text", Filename: "notes.pdf"}, nil)

	testutil.AssertStatusCode(t, http.StatusOK, w)
	assert.JSONEq(t, `{"summary":"- short","original_filename":"notes.pdf"}`, w.Body.String())
}

func TestStudyHandler_Quiz(t *testing.T) {
	svc := &mocks.MockStudyService{}
	svc.On("Quiz", mock.Anything, "Solar System", "").Return(&study.Quiz{
		Title: "Planets",
		Questions: []study.Question{
			{Question: "Largest?", Options: []string{"Mars", "Jupiter", "Venus", "Earth"}, CorrectAnswer: 1},
		},
	}, nil)
	router := setupStudyRouter(svc)

	w := testutil.PerformRequest(router, "POST", "/api/quiz", dto.QuizRequest{Topic: "Solar System"}, nil)

	testutil.AssertStatusCode(t, http.StatusOK, w)
	var response dto.QuizResponse
	testutil.ParseJSONResponse(t, w, &response)
	assert.Equal(t, "Planets", response.Title)
	assert.Equal(t, 1, response.Questions[0].CorrectAnswer)
}

func TestStudyHandler_Quiz_RejectsUnknownDifficulty(t *testing.T) {
	svc := &mocks.MockStudyService{}
	router := setupStudyRouter(svc)

	w := testutil.PerformRequest(router, "POST", "/api/quiz", dto.QuizRequest{Topic: "x", Difficulty: "impossible"}, nil)

	testutil.AssertStatusCode(t, http.StatusBadRequest, w)
	svc.AssertNotCalled(t, "Quiz", mock.Anything, mock.Anything, mock.Anything)
}

func TestStudyHandler_Flashcards_CompletionFailed(t *testing.T) {
	svc := &mocks.MockStudyService{}
	svc.On("Flashcards", mock.Anything, "Python Lists").
		Return(nil, fmt.Errorf("%w: no flashcards generated", domainerrors.ErrCompletionFailed))
	router := setupStudyRouter(svc)

	w := testutil.PerformRequest(router, "POST", "/api/flashcards", dto.FlashcardsRequest{Topic: "Python Lists"}, nil)

	testutil.AssertStatusCode(t, http.StatusBadGateway, w)
}

func TestStudyHandler_MissingTopic(t *testing.T) {
	router := setupStudyRouter(&mocks.MockStudyService{})

	w := testutil.PerformRequest(router, "POST", "/api/explain", map[string]string{}, nil)

	testutil.AssertStatusCode(t, http.StatusBadRequest, w)
	var body dto.ErrorResponse
	testutil.ParseJSONResponse(t, w, &body)
	assert.Equal(t, domainerrors.ErrCodeValidation, body.Code)
}
