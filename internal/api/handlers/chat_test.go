package handlers_test

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/studybuddy/study-service/internal/api/dto"
	"github.com/studybuddy/study-service/internal/api/handlers"
	"github.com/studybuddy/study-service/internal/api/middleware"
	"github.com/studybuddy/study-service/internal/domain/models"
	"github.com/studybuddy/study-service/internal/infrastructure/docdb/memory"
	"github.com/studybuddy/study-service/internal/services/chat"
	"github.com/studybuddy/study-service/internal/services/completion"
	"github.com/studybuddy/study-service/internal/testutil"
	"github.com/studybuddy/study-service/internal/testutil/mocks"
)

const (
	tokenUserA = "token-user-a"
	tokenUserB = "token-user-b"
)

// setupChatRouter wires the chat handler behind a real auth middleware whose
// verifier knows two users.
func setupChatRouter(t *testing.T, provider completion.Provider) *gin.Engine {
	t.Helper()

	verifier := &mocks.MockTokenVerifier{}
	verifier.On("Verify", mock.Anything, tokenUserA).Return(&models.Principal{SubjectID: "user_a"}, nil)
	verifier.On("Verify", mock.Anything, tokenUserB).Return(&models.Principal{SubjectID: "user_b"}, nil)

	svc, err := chat.NewService(&chat.Config{
		Sessions: memory.NewSessionsCollection(),
		Provider: provider,
	})
	require.NoError(t, err)

	handler := handlers.NewChatHandler(svc)
	authMw := middleware.NewAuthMiddleware(verifier, nil)

	router := testutil.SetupTestRouter()
	group := router.Group("/api/chat", authMw.Authenticate())
	group.GET("/sessions", handler.ListSessions)
	group.GET("/:sessionId", handler.GetSession)
	group.POST("", handler.CreateSession)
	group.POST("/", handler.CreateSession)
	group.POST("/:sessionId", handler.ContinueSession)
	group.DELETE("/:sessionId", handler.DeleteSession)
	return router
}

func answeringProvider(content string) *mocks.MockProvider {
	provider := &mocks.MockProvider{}
	provider.On("Complete", mock.Anything, mock.Anything).Return(&completion.Response{Content: content}, nil)
	return provider
}

func TestChatHandler_CreateAndContinue(t *testing.T) {
	// Setup
	router := setupChatRouter(t, answeringProvider("Plants turn light into sugar."))

	// Execute
	w := testutil.PerformRequest(router, "POST", "/api/chat/", dto.ChatMessageRequest{Message: "Explain photosynthesis"}, testutil.BearerHeader(tokenUserA))

	// Assert
	testutil.AssertStatusCode(t, http.StatusOK, w)
	var created dto.ChatResponse
	testutil.ParseJSONResponse(t, w, &created)
	assert.True(t, models.ValidSessionID(created.SessionID))
	assert.Equal(t, "Explain photosynthesis...", created.Title)
	assert.Equal(t, "assistant", created.Message.Role)
	assert.Equal(t, "Plants turn light into sugar.", created.Message.Content)

	// Continue the same session
	w = testutil.PerformRequest(router, "POST", "/api/chat/"+created.SessionID, dto.ChatMessageRequest{Message: "Why green?"}, testutil.BearerHeader(tokenUserA))
	testutil.AssertStatusCode(t, http.StatusOK, w)

	w = testutil.PerformRequest(router, "GET", "/api/chat/"+created.SessionID, nil, testutil.BearerHeader(tokenUserA))
	testutil.AssertStatusCode(t, http.StatusOK, w)
	var messages []dto.MessageResponse
	testutil.ParseJSONResponse(t, w, &messages)
	require.Len(t, messages, 4)
	assert.Equal(t, "user", messages[2].Role)
	assert.Equal(t, "Why green?", messages[2].Content)
	assert.Equal(t, "assistant", messages[3].Role)
}

func TestChatHandler_CreateWithoutTrailingSlash(t *testing.T) {
	router := setupChatRouter(t, answeringProvider("hi"))

	w := testutil.PerformRequest(router, "POST", "/api/chat", dto.ChatMessageRequest{Message: "hello"}, testutil.BearerHeader(tokenUserA))

	testutil.AssertStatusCode(t, http.StatusOK, w)
}

func TestChatHandler_ListSessions(t *testing.T) {
	router := setupChatRouter(t, answeringProvider("ok"))
	for _, text := range []string{"first topic", "second topic"} {
		w := testutil.PerformRequest(router, "POST", "/api/chat", dto.ChatMessageRequest{Message: text}, testutil.BearerHeader(tokenUserA))
		testutil.AssertStatusCode(t, http.StatusOK, w)
	}

	w := testutil.PerformRequest(router, "GET", "/api/chat/sessions", nil, testutil.BearerHeader(tokenUserA))
	testutil.AssertStatusCode(t, http.StatusOK, w)
	var sessions []dto.SessionSummaryResponse
	testutil.ParseJSONResponse(t, w, &sessions)
	require.Len(t, sessions, 2)
	assert.ElementsMatch(t, []string{"first topic...", "second topic..."}, []string{sessions[0].Title, sessions[1].Title})

	w = testutil.PerformRequest(router, "GET", "/api/chat/sessions", nil, testutil.BearerHeader(tokenUserB))
	testutil.AssertStatusCode(t, http.StatusOK, w)
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestChatHandler_OwnershipIsolation(t *testing.T) {
	router := setupChatRouter(t, answeringProvider("ok"))
	w := testutil.PerformRequest(router, "POST", "/api/chat", dto.ChatMessageRequest{Message: "mine"}, testutil.BearerHeader(tokenUserA))
	var created dto.ChatResponse
	testutil.ParseJSONResponse(t, w, &created)
	path := "/api/chat/" + created.SessionID

	get := testutil.PerformRequest(router, "GET", path, nil, testutil.BearerHeader(tokenUserB))
	post := testutil.PerformRequest(router, "POST", path, dto.ChatMessageRequest{Message: "hijack"}, testutil.BearerHeader(tokenUserB))
	del := testutil.PerformRequest(router, "DELETE", path, nil, testutil.BearerHeader(tokenUserB))

	testutil.AssertStatusCode(t, http.StatusNotFound, get)
	testutil.AssertStatusCode(t, http.StatusNotFound, post)
	testutil.AssertStatusCode(t, http.StatusNotFound, del)

	// The owner's session is intact.
	w = testutil.PerformRequest(router, "GET", path, nil, testutil.BearerHeader(tokenUserA))
	testutil.AssertStatusCode(t, http.StatusOK, w)
}

func TestChatHandler_Delete(t *testing.T) {
	router := setupChatRouter(t, answeringProvider("ok"))
	w := testutil.PerformRequest(router, "POST", "/api/chat", dto.ChatMessageRequest{Message: "temp"}, testutil.BearerHeader(tokenUserA))
	var created dto.ChatResponse
	testutil.ParseJSONResponse(t, w, &created)

	w = testutil.PerformRequest(router, "DELETE", "/api/chat/"+created.SessionID, nil, testutil.BearerHeader(tokenUserA))
	testutil.AssertStatusCode(t, http.StatusNoContent, w)
	assert.Empty(t, w.Body.String())

	w = testutil.PerformRequest(router, "DELETE", "/api/chat/"+created.SessionID, nil, testutil.BearerHeader(tokenUserA))
	testutil.AssertStatusCode(t, http.StatusNotFound, w)
}

func TestChatHandler_InvalidSessionID(t *testing.T) {
	provider := &mocks.MockProvider{}
	router := setupChatRouter(t, provider)

	w := testutil.PerformRequest(router, "POST", "/api/chat/not-a-session", dto.ChatMessageRequest{Message: "hi"}, testutil.BearerHeader(tokenUserA))

	testutil.AssertStatusCode(t, http.StatusBadRequest, w)
	var body dto.ErrorResponse
	testutil.ParseJSONResponse(t, w, &body)
	assert.Equal(t, "invalid session ID", body.Message)
	provider.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything)
}

func TestChatHandler_ValidationAndAuth(t *testing.T) {
	router := setupChatRouter(t, &mocks.MockProvider{})

	missingBody := testutil.PerformRequest(router, "POST", "/api/chat", map[string]string{}, testutil.BearerHeader(tokenUserA))
	blank := testutil.PerformRequest(router, "POST", "/api/chat", dto.ChatMessageRequest{Message: "   "}, testutil.BearerHeader(tokenUserA))
	noAuth := testutil.PerformRequest(router, "GET", "/api/chat/sessions", nil, nil)

	testutil.AssertStatusCode(t, http.StatusBadRequest, missingBody)
	testutil.AssertStatusCode(t, http.StatusBadRequest, blank)
	testutil.AssertStatusCode(t, http.StatusUnauthorized, noAuth)
}

func TestChatHandler_CompletionFailure(t *testing.T) {
	provider := &mocks.MockProvider{}
	provider.On("Complete", mock.Anything, mock.Anything).Return(nil, assert.AnError)
	router := setupChatRouter(t, provider)

	w := testutil.PerformRequest(router, "POST", "/api/chat", dto.ChatMessageRequest{Message: "hello"}, testutil.BearerHeader(tokenUserA))

	testutil.AssertStatusCode(t, http.StatusBadGateway, w)
	var body dto.ErrorResponse
	testutil.ParseJSONResponse(t, w, &body)
	assert.Equal(t, "COMPLETION_FAILED", body.Code)
	assert.NotContains(t, w.Body.String(), assert.AnError.Error())

	w = testutil.PerformRequest(router, "GET", "/api/chat/sessions", nil, testutil.BearerHeader(tokenUserA))
	assert.JSONEq(t, `[]`, w.Body.String())
}
