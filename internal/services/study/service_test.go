package study_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/studybuddy/study-service/internal/domain/errors"
	"github.com/studybuddy/study-service/internal/domain/models"
	"github.com/studybuddy/study-service/internal/services/completion"
	"github.com/studybuddy/study-service/internal/services/study"
	"github.com/studybuddy/study-service/internal/testutil/mocks"
)

func newTestService(t *testing.T) (study.Service, *mocks.MockProvider) {
	t.Helper()
	provider := &mocks.MockProvider{}
	svc, err := study.NewService(provider)
	require.NoError(t, err)
	return svc, provider
}

func reply(content string) *completion.Response {
	return &completion.Response{Content: content}
}

func TestNewService_RequiresProvider(t *testing.T) {
	_, err := study.NewService(nil)
	assert.Error(t, err)
}

func TestExplain(t *testing.T) {
	// Arrange
	svc, provider := newTestService(t)
	var captured *completion.Request
	provider.On("Complete", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { captured = args.Get(1).(*completion.Request) }).
		Return(reply("Plants make food from light."), nil)

	// Act
	got, err := svc.Explain(context.Background(), "Photosynthesis")

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "Plants make food from light.", got)
	require.Len(t, captured.Messages, 2)
	assert.Equal(t, models.RoleSystem, captured.Messages[0].Role)
	assert.Contains(t, captured.Messages[1].Content, "'Photosynthesis'")
	require.NotNil(t, captured.Temperature)
	assert.InDelta(t, 0.7, *captured.Temperature, 1e-9)
	assert.Equal(t, 1024, captured.MaxTokens)
	assert.False(t, captured.JSONMode)
}

func TestExplain_Validation(t *testing.T) {
	svc, provider := newTestService(t)

	_, err := svc.Explain(context.Background(), "  ")

	assert.True(t, domainerrors.IsValidationError(err))
	provider.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything)
}

func TestExplain_ProviderFailure(t *testing.T) {
	svc, provider := newTestService(t)
	provider.On("Complete", mock.Anything, mock.Anything).Return(nil, assert.AnError)

	_, err := svc.Explain(context.Background(), "Gravity")

	assert.ErrorIs(t, err, domainerrors.ErrCompletionFailed)
}

func TestSummarize_TruncatesInput(t *testing.T) {
	svc, provider := newTestService(t)
	var captured *completion.Request
	provider.On("Complete", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { captured = args.Get(1).(*completion.Request) }).
		Return(reply("- point"), nil)

	long := strings.Repeat("é", study.MaxSummaryInput+500)
	got, err := svc.Summarize(context.Background(), long)

	require.NoError(t, err)
	assert.Equal(t, "- point", got)
	body := captured.Messages[1].Content
	assert.True(t, strings.HasPrefix(body, "Summarize the following text"))
	assert.Equal(t, study.MaxSummaryInput, strings.Count(body, "é"))
}

func TestQuiz(t *testing.T) {
	svc, provider := newTestService(t)
	var captured *completion.Request
	provider.On("Complete", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { captured = args.Get(1).(*completion.Request) }).
		Return(reply(`{"title":"Solar System","questions":[{"question":"Largest planet?","options":["Mars","Jupiter","Venus","Earth"],"correct_answer":1}]}`), nil)

	quiz, err := svc.Quiz(context.Background(), "Solar System", "")

	require.NoError(t, err)
	assert.Equal(t, "Solar System", quiz.Title)
	require.Len(t, quiz.Questions, 1)
	assert.Equal(t, 1, quiz.Questions[0].CorrectAnswer)
	assert.True(t, captured.JSONMode)
	assert.Contains(t, captured.Messages[1].Content, "Generate a medium difficulty quiz")
}

func TestQuiz_Failures(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"malformed json", `{"title": "x", "questions": [`},
		{"no questions", `{"title":"x","questions":[]}`},
		{"answer out of range", `{"title":"x","questions":[{"question":"q","options":["a","b"],"correct_answer":3}]}`},
		{"missing question text", `{"questions":[{"options":["a"],"correct_answer":0}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, provider := newTestService(t)
			provider.On("Complete", mock.Anything, mock.Anything).Return(reply(tt.content), nil)

			_, err := svc.Quiz(context.Background(), "Topic", "hard")

			assert.ErrorIs(t, err, domainerrors.ErrCompletionFailed)
		})
	}
}

func TestQuiz_FencedJSONAndDefaultTitle(t *testing.T) {
	svc, provider := newTestService(t)
	provider.On("Complete", mock.Anything, mock.Anything).
		Return(reply("```json\n{\"questions\":[{\"question\":\"q\",\"options\":[\"a\",\"b\"],\"correct_answer\":0}]}\n```"), nil)

	quiz, err := svc.Quiz(context.Background(), "Cells", "easy")

	require.NoError(t, err)
	assert.Equal(t, "Quiz on Cells", quiz.Title)
}

func TestFlashcards(t *testing.T) {
	svc, provider := newTestService(t)
	provider.On("Complete", mock.Anything, mock.MatchedBy(func(req *completion.Request) bool {
		return req.JSONMode && strings.Contains(req.Messages[1].Content, "'Python Lists'")
	})).Return(reply(`{"flashcards":[{"front":"append","back":"adds an item"}]}`), nil)

	cards, err := svc.Flashcards(context.Background(), "Python Lists")

	require.NoError(t, err)
	assert.Equal(t, []study.Flashcard{{Front: "append", Back: "adds an item"}}, cards)
	provider.AssertExpectations(t)
}

func TestFlashcards_Empty(t *testing.T) {
	svc, provider := newTestService(t)
	provider.On("Complete", mock.Anything, mock.Anything).Return(reply(`{"flashcards":[]}`), nil)

	_, err := svc.Flashcards(context.Background(), "Anything")

	assert.ErrorIs(t, err, domainerrors.ErrCompletionFailed)
}
