package chat

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/studybuddy/study-service/internal/domain/errors"
	"github.com/studybuddy/study-service/internal/domain/models"
	rediscache "github.com/studybuddy/study-service/internal/infrastructure/cache/redis"
	"github.com/studybuddy/study-service/internal/infrastructure/docdb/memory"
	"github.com/studybuddy/study-service/internal/pkg/seal"
	"github.com/studybuddy/study-service/internal/services/completion"
	"github.com/studybuddy/study-service/internal/services/summarycache"
	"github.com/studybuddy/study-service/internal/testutil/mocks"
)

// scriptedProvider records every request and answers via reply.
type scriptedProvider struct {
	mu       sync.Mutex
	requests []*completion.Request
	reply    func(req *completion.Request) (string, error)
}

func (p *scriptedProvider) Name() string { return "scripted" }

func (p *scriptedProvider) Complete(_ context.Context, req *completion.Request) (*completion.Response, error) {
	p.mu.Lock()
	p.requests = append(p.requests, req)
	p.mu.Unlock()

	if p.reply == nil {
		last := req.Messages[len(req.Messages)-1]
		return &completion.Response{Content: "answer to: " + last.Content}, nil
	}
	content, err := p.reply(req)
	if err != nil {
		return nil, err
	}
	return &completion.Response{Content: content}, nil
}

func (p *scriptedProvider) calls() []*completion.Request {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*completion.Request(nil), p.requests...)
}

func newTestService(t *testing.T, provider completion.Provider) (*Service, *memory.SessionsCollection) {
	t.Helper()
	store := memory.NewSessionsCollection()
	svc, err := NewService(&Config{
		Sessions: store,
		Provider: provider,
	})
	require.NoError(t, err)
	return svc, store
}

func TestNewService_Validation(t *testing.T) {
	_, err := NewService(nil)
	assert.Error(t, err)

	_, err = NewService(&Config{Provider: &scriptedProvider{}})
	assert.ErrorContains(t, err, "sessions collection is required")

	_, err = NewService(&Config{Sessions: memory.NewSessionsCollection()})
	assert.ErrorContains(t, err, "completion provider is required")
}

func TestHandleMessage_NewSession(t *testing.T) {
	// Arrange
	provider := &scriptedProvider{}
	svc, store := newTestService(t, provider)
	ctx := context.Background()

	// Act
	result, err := svc.HandleMessage(ctx, "u1", "", "Explain photosynthesis")

	// Assert
	require.NoError(t, err)
	assert.True(t, models.ValidSessionID(result.SessionID))
	assert.Equal(t, "Explain photosynthesis...", result.Title)
	assert.Equal(t, models.RoleAssistant, result.Message.Role)
	assert.NotEmpty(t, result.Message.Content)

	calls := provider.calls()
	require.Len(t, calls, 1)
	require.Len(t, calls[0].Messages, 2)
	assert.Equal(t, models.RoleSystem, calls[0].Messages[0].Role)
	assert.Equal(t, DefaultSystemPrompt, calls[0].Messages[0].Content)
	assert.Equal(t, "Explain photosynthesis", calls[0].Messages[1].Content)

	session, err := store.Get(ctx, result.SessionID, "u1")
	require.NoError(t, err)
	require.Len(t, session.Messages, 2)
	assert.Equal(t, models.RoleUser, session.Messages[0].Role)
	assert.Equal(t, "Explain photosynthesis...", session.Title)
}

func TestHandleMessage_ContinueRoundTrip(t *testing.T) {
	provider := &scriptedProvider{}
	svc, store := newTestService(t, provider)
	frozen := time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return frozen }
	ctx := context.Background()

	first, err := svc.HandleMessage(ctx, "u1", "", "What is a cell?")
	require.NoError(t, err)
	before, err := store.Get(ctx, first.SessionID, "u1")
	require.NoError(t, err)

	second, err := svc.HandleMessage(ctx, "u1", first.SessionID, "And a nucleus?")
	require.NoError(t, err)

	assert.Equal(t, first.SessionID, second.SessionID)
	assert.Equal(t, "What is a cell?...", second.Title)

	after, err := store.Get(ctx, first.SessionID, "u1")
	require.NoError(t, err)
	require.Len(t, after.Messages, 4)
	assert.Equal(t, models.RoleUser, after.Messages[2].Role)
	assert.Equal(t, "And a nucleus?", after.Messages[2].Content)
	assert.Equal(t, models.RoleAssistant, after.Messages[3].Role)
	assert.True(t, after.UpdatedAt.After(before.UpdatedAt), "updated_at must strictly increase even with a frozen clock")

	// Second turn has more than one message, so no system instruction.
	calls := provider.calls()
	require.Len(t, calls, 2)
	assert.Len(t, calls[1].Messages, 3)
	assert.Equal(t, models.RoleUser, calls[1].Messages[0].Role)
}

func TestHandleMessage_WindowBoundsContextNotHistory(t *testing.T) {
	provider := &scriptedProvider{}
	svc, store := newTestService(t, provider)
	ctx := context.Background()

	result, err := svc.HandleMessage(ctx, "u1", "", "message 1")
	require.NoError(t, err)
	for i := 2; i <= 15; i++ {
		_, err := svc.HandleMessage(ctx, "u1", result.SessionID, fmt.Sprintf("message %d", i))
		require.NoError(t, err)
	}

	session, err := store.Get(ctx, result.SessionID, "u1")
	require.NoError(t, err)
	assert.Len(t, session.Messages, 30)

	for i, call := range provider.calls() {
		assert.LessOrEqual(t, len(call.Messages), 10, "call %d", i)
		last := call.Messages[len(call.Messages)-1]
		assert.Equal(t, fmt.Sprintf("message %d", i+1), last.Content)
	}
}

func TestHandleMessage_OwnershipIsolation(t *testing.T) {
	provider := &scriptedProvider{}
	svc, _ := newTestService(t, provider)
	ctx := context.Background()

	owned, err := svc.HandleMessage(ctx, "user_a", "", "private notes")
	require.NoError(t, err)

	_, err = svc.HandleMessage(ctx, "user_b", owned.SessionID, "let me in")
	assert.ErrorIs(t, err, domainerrors.ErrSessionNotFound)

	_, err = svc.GetSession(ctx, "user_b", owned.SessionID)
	assert.ErrorIs(t, err, domainerrors.ErrSessionNotFound)

	err = svc.DeleteSession(ctx, "user_b", owned.SessionID)
	assert.ErrorIs(t, err, domainerrors.ErrSessionNotFound)

	summaries, err := svc.ListSessions(ctx, "user_b")
	require.NoError(t, err)
	assert.Empty(t, summaries)

	// Only the first request reached the provider.
	assert.Len(t, provider.calls(), 1)
}

func TestHandleMessage_InvalidSessionID(t *testing.T) {
	provider := &scriptedProvider{}
	svc, _ := newTestService(t, provider)

	_, err := svc.HandleMessage(context.Background(), "u1", "not-an-id", "hello")

	assert.ErrorIs(t, err, domainerrors.ErrInvalidSessionID)
	assert.Empty(t, provider.calls())
}

func TestHandleMessage_EmptyText(t *testing.T) {
	svc, _ := newTestService(t, &scriptedProvider{})

	_, err := svc.HandleMessage(context.Background(), "u1", "", "   ")

	assert.True(t, domainerrors.IsValidationError(err))
}

func TestHandleMessage_CompletionFailure(t *testing.T) {
	provider := &mocks.MockProvider{}
	provider.On("Complete", mock.Anything, mock.Anything).Return(nil, assert.AnError)
	svc, store := newTestService(t, provider)
	ctx := context.Background()

	_, err := svc.HandleMessage(ctx, "u1", "", "Explain gravity")

	assert.ErrorIs(t, err, domainerrors.ErrCompletionFailed)
	summaries, err := store.List(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, summaries, "no session may be created when the completion fails")
	provider.AssertExpectations(t)
}

func TestHandleMessage_ConcurrentAppendsBothPersist(t *testing.T) {
	// Arrange
	var barrier sync.WaitGroup
	provider := &scriptedProvider{}
	svc, store := newTestService(t, provider)
	ctx := context.Background()

	seed, err := svc.HandleMessage(ctx, "u1", "", "Start")
	require.NoError(t, err)

	// Both requests read the same version before either commits.
	barrier.Add(2)
	provider.reply = func(req *completion.Request) (string, error) {
		barrier.Done()
		barrier.Wait()
		return "ack " + req.Messages[len(req.Messages)-1].Content, nil
	}

	// Act
	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, text := range []string{"first concurrent", "second concurrent"} {
		wg.Add(1)
		go func(i int, text string) {
			defer wg.Done()
			_, errs[i] = svc.HandleMessage(ctx, "u1", seed.SessionID, text)
		}(i, text)
	}
	wg.Wait()

	// Assert
	require.NoError(t, errs[0])
	require.NoError(t, errs[1])

	session, err := store.Get(ctx, seed.SessionID, "u1")
	require.NoError(t, err)
	require.Len(t, session.Messages, 6)

	contents := make([]string, 0, len(session.Messages))
	for _, m := range session.Messages {
		contents = append(contents, m.Content)
	}
	assert.Contains(t, contents, "first concurrent")
	assert.Contains(t, contents, "ack first concurrent")
	assert.Contains(t, contents, "second concurrent")
	assert.Contains(t, contents, "ack second concurrent")

	// Each exchange stays adjacent.
	for i := 2; i < 6; i += 2 {
		assert.Equal(t, models.RoleUser, session.Messages[i].Role)
		assert.Equal(t, "ack "+session.Messages[i].Content, session.Messages[i+1].Content)
	}
}

func TestHandleMessage_ConflictRetriesExhausted(t *testing.T) {
	sessionID := models.NewSessionID()
	stored := &models.ChatSession{
		ID:       sessionID,
		OwnerID:  "u1",
		Title:    "t",
		Messages: []models.ChatMessage{{Role: models.RoleUser, Content: "hi"}},
		Version:  4,
	}
	sessions := &mocks.MockSessionsCollection{}
	sessions.On("Get", mock.Anything, sessionID, "u1").Return(stored, nil)
	sessions.On("Append", mock.Anything, sessionID, "u1", mock.Anything, mock.Anything, int64(4)).
		Return(domainerrors.ErrSessionConflict)

	svc, err := NewService(&Config{
		Sessions:      sessions,
		Provider:      &scriptedProvider{},
		CommitRetries: 2,
	})
	require.NoError(t, err)

	_, err = svc.HandleMessage(context.Background(), "u1", sessionID, "again")

	assert.ErrorIs(t, err, domainerrors.ErrSessionConflict)
	sessions.AssertNumberOfCalls(t, "Append", 3)
	// Initial read plus one re-read per retry.
	sessions.AssertNumberOfCalls(t, "Get", 3)
}

func TestListSessions_UsesCache(t *testing.T) {
	cache := &mocks.MockSummaryCache{}
	store := memory.NewSessionsCollection()
	svc, err := NewService(&Config{Sessions: store, Provider: &scriptedProvider{}, Summaries: cache})
	require.NoError(t, err)
	ctx := context.Background()

	cached := []models.SessionSummary{{ID: "cached", Title: "From cache"}}
	cache.On("Get", mock.Anything, "u1").Return(cached, int64(0), nil).Once()

	got, err := svc.ListSessions(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, cached, got)

	cache.On("Get", mock.Anything, "u2").Return(nil, int64(3), nil).Once()
	cache.On("Set", mock.Anything, "u2", int64(3), []models.SessionSummary{}).Return(nil).Once()

	got, err = svc.ListSessions(ctx, "u2")
	require.NoError(t, err)
	assert.Empty(t, got)
	cache.AssertExpectations(t)
}

func TestListSessions_SkipsCacheWriteAfterReadError(t *testing.T) {
	cache := &mocks.MockSummaryCache{}
	cache.On("Get", mock.Anything, "u1").Return(nil, int64(0), assert.AnError).Once()
	svc, err := NewService(&Config{Sessions: memory.NewSessionsCollection(), Provider: &scriptedProvider{}, Summaries: cache})
	require.NoError(t, err)

	got, err := svc.ListSessions(context.Background(), "u1")

	require.NoError(t, err)
	assert.Empty(t, got)
	cache.AssertNotCalled(t, "Set", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

// racingSessions deletes a session through the chat service right after the
// first List call has read the store.
type racingSessions struct {
	*memory.SessionsCollection
	once     sync.Once
	onListed func()
}

func (r *racingSessions) List(ctx context.Context, ownerID string) ([]models.SessionSummary, error) {
	summaries, err := r.SessionsCollection.List(ctx, ownerID)
	r.once.Do(r.onListed)
	return summaries, err
}

func TestListSessions_ConcurrentDeleteIsNotMaskedByCache(t *testing.T) {
	// Arrange
	mr := miniredis.RunT(t)
	client, err := rediscache.NewClient(rediscache.Config{Host: mr.Host(), Port: mr.Port()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	summaries, err := summarycache.NewService(&summarycache.Config{CacheClient: client, Sealer: seal.NoOp{}})
	require.NoError(t, err)

	store := &racingSessions{SessionsCollection: memory.NewSessionsCollection()}
	svc, err := NewService(&Config{Sessions: store, Provider: &scriptedProvider{}, Summaries: summaries})
	require.NoError(t, err)
	ctx := context.Background()

	result, err := svc.HandleMessage(ctx, "u1", "", "hello")
	require.NoError(t, err)
	store.onListed = func() {
		require.NoError(t, svc.DeleteSession(ctx, "u1", result.SessionID))
	}

	// Act
	stale, err := svc.ListSessions(ctx, "u1")
	require.NoError(t, err)
	fresh, err := svc.ListSessions(ctx, "u1")
	require.NoError(t, err)

	// Assert
	assert.Len(t, stale, 1)
	assert.Empty(t, fresh)
}

func TestWritesInvalidateCache(t *testing.T) {
	cache := &mocks.MockSummaryCache{}
	cache.On("Invalidate", mock.Anything, "u1").Return(nil)
	svc, err := NewService(&Config{
		Sessions:  memory.NewSessionsCollection(),
		Provider:  &scriptedProvider{},
		Summaries: cache,
	})
	require.NoError(t, err)
	ctx := context.Background()

	result, err := svc.HandleMessage(ctx, "u1", "", "hello")
	require.NoError(t, err)
	_, err = svc.HandleMessage(ctx, "u1", result.SessionID, "again")
	require.NoError(t, err)
	require.NoError(t, svc.DeleteSession(ctx, "u1", result.SessionID))

	cache.AssertNumberOfCalls(t, "Invalidate", 3)
}

func TestDeleteSession(t *testing.T) {
	svc, _ := newTestService(t, &scriptedProvider{})
	ctx := context.Background()

	result, err := svc.HandleMessage(ctx, "u1", "", "temporary")
	require.NoError(t, err)

	require.NoError(t, svc.DeleteSession(ctx, "u1", result.SessionID))
	_, err = svc.GetSession(ctx, "u1", result.SessionID)
	assert.ErrorIs(t, err, domainerrors.ErrSessionNotFound)

	assert.ErrorIs(t, svc.DeleteSession(ctx, "u1", "bad"), domainerrors.ErrInvalidSessionID)
}
