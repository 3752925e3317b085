// Package chat implements the chat session lifecycle: loading or starting a
// session, windowing its history for the completion provider and committing
// the exchange back to the store.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/studybuddy/study-service/internal/core/docdb"
	domainerrors "github.com/studybuddy/study-service/internal/domain/errors"
	"github.com/studybuddy/study-service/internal/domain/models"
	"github.com/studybuddy/study-service/internal/pkg/metrics"
	"github.com/studybuddy/study-service/internal/services/completion"
	"github.com/studybuddy/study-service/internal/services/summarycache"
)

// Defaults applied when the corresponding Config field is zero.
const (
	DefaultContextWindow = 10
	DefaultSystemPrompt  = "You are a helpful AI Tutor."
	DefaultTitleWords    = 4
	DefaultCommitRetries = 5
)

// Config holds the configuration for the chat service.
type Config struct {
	Sessions docdb.SessionsCollection
	Provider completion.Provider
	// Summaries is optional; nil disables list caching.
	Summaries summarycache.Service
	Metrics   metrics.Recorder

	ContextWindow int
	SystemPrompt  string
	TitleWords    int
	CommitRetries int
	Now           func() time.Time
}

// Result is the outcome of one handled message.
type Result struct {
	SessionID string
	Message   models.ChatMessage
	Title     string
}

// Service orchestrates chat sessions.
type Service struct {
	sessions      docdb.SessionsCollection
	provider      completion.Provider
	summaries     summarycache.Service
	metrics       metrics.Recorder
	contextWindow int
	systemPrompt  string
	titleWords    int
	commitRetries int
	now           func() time.Time
}

// NewService creates a new chat service.
func NewService(cfg *Config) (*Service, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if cfg.Sessions == nil {
		return nil, fmt.Errorf("sessions collection is required")
	}
	if cfg.Provider == nil {
		return nil, fmt.Errorf("completion provider is required")
	}

	s := &Service{
		sessions:      cfg.Sessions,
		provider:      cfg.Provider,
		summaries:     cfg.Summaries,
		metrics:       cfg.Metrics,
		contextWindow: cfg.ContextWindow,
		systemPrompt:  cfg.SystemPrompt,
		titleWords:    cfg.TitleWords,
		commitRetries: cfg.CommitRetries,
		now:           cfg.Now,
	}
	if s.metrics == nil {
		s.metrics = metrics.Nop{}
	}
	if s.contextWindow <= 0 {
		s.contextWindow = DefaultContextWindow
	}
	if s.systemPrompt == "" {
		s.systemPrompt = DefaultSystemPrompt
	}
	if s.titleWords <= 0 {
		s.titleWords = DefaultTitleWords
	}
	if s.commitRetries <= 0 {
		s.commitRetries = DefaultCommitRetries
	}
	if s.now == nil {
		s.now = time.Now
	}

	return s, nil
}

// HandleMessage sends text to the session identified by sessionID, or starts
// a new session when sessionID is empty.
func (s *Service) HandleMessage(ctx context.Context, ownerID, sessionID, text string) (*Result, error) {
	if strings.TrimSpace(text) == "" {
		return nil, domainerrors.NewValidationError("message is required", "")
	}

	var (
		session *models.ChatSession
		title   string
		history []models.ChatMessage
	)

	if sessionID == "" {
		title = DeriveTitle(text, s.titleWords)
	} else {
		if !models.ValidSessionID(sessionID) {
			return nil, domainerrors.ErrInvalidSessionID
		}
		var err error
		session, err = s.sessions.Get(ctx, sessionID, ownerID)
		if err != nil {
			return nil, err
		}
		title = session.Title
		history = session.Messages
	}

	userMsg := s.message(models.RoleUser, text)
	history = appendMessages(history, userMsg)

	window := BuildContextWindow(history, s.contextWindow, s.systemPrompt, userMsg.Timestamp)
	resp, err := s.provider.Complete(ctx, &completion.Request{
		Messages: completion.FromChatMessages(window),
	})
	if err != nil {
		if !errors.Is(err, domainerrors.ErrCompletionFailed) {
			err = fmt.Errorf("%w: %v", domainerrors.ErrCompletionFailed, err)
		}
		return nil, err
	}

	assistantMsg := s.message(models.RoleAssistant, resp.Content)

	if session == nil {
		sessionID, err = s.sessions.Create(ctx, ownerID, title, appendMessages(history, assistantMsg))
		if err != nil {
			return nil, fmt.Errorf("failed to create session: %w", err)
		}
	} else if err := s.commit(ctx, session, userMsg, assistantMsg); err != nil {
		return nil, err
	}

	s.invalidate(ctx, ownerID)

	return &Result{
		SessionID: sessionID,
		Message:   assistantMsg,
		Title:     title,
	}, nil
}

// commit appends the exchange with a compare-and-swap on the session
// version. On conflict the session is re-read and the exchange is re-applied
// on top of whatever landed in between.
func (s *Service) commit(ctx context.Context, session *models.ChatSession, exchange ...models.ChatMessage) error {
	messages := appendMessages(session.Messages, exchange...)

	for attempt := 0; ; attempt++ {
		updatedAt := models.NextUpdatedAt(session.UpdatedAt, s.now())
		err := s.sessions.Append(ctx, session.ID, session.OwnerID, messages, updatedAt, session.Version)
		if err == nil {
			return nil
		}
		if !errors.Is(err, domainerrors.ErrSessionConflict) {
			return err
		}

		s.metrics.RecordCommitConflict()
		if attempt >= s.commitRetries {
			return err
		}
		log.Debug().
			Str("session_id", session.ID).
			Int("attempt", attempt+1).
			Msg("session changed during commit, rebasing")

		session, err = s.sessions.Get(ctx, session.ID, session.OwnerID)
		if err != nil {
			return err
		}
		messages = appendMessages(session.Messages, exchange...)
	}
}

// ListSessions returns the owner's sessions, most recently updated first.
func (s *Service) ListSessions(ctx context.Context, ownerID string) ([]models.SessionSummary, error) {
	var generation int64
	cacheable := false
	if s.summaries != nil {
		cached, gen, err := s.summaries.Get(ctx, ownerID)
		switch {
		case err != nil:
			log.Warn().Err(err).Msg("summary cache read failed")
		case cached != nil:
			return cached, nil
		default:
			generation, cacheable = gen, true
		}
	}

	summaries, err := s.sessions.List(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}

	if cacheable {
		if err := s.summaries.Set(ctx, ownerID, generation, summaries); err != nil {
			log.Warn().Err(err).Msg("summary cache write failed")
		}
	}
	return summaries, nil
}

// GetSession returns one of the owner's sessions.
func (s *Service) GetSession(ctx context.Context, ownerID, sessionID string) (*models.ChatSession, error) {
	if !models.ValidSessionID(sessionID) {
		return nil, domainerrors.ErrInvalidSessionID
	}
	return s.sessions.Get(ctx, sessionID, ownerID)
}

// DeleteSession removes one of the owner's sessions.
func (s *Service) DeleteSession(ctx context.Context, ownerID, sessionID string) error {
	if !models.ValidSessionID(sessionID) {
		return domainerrors.ErrInvalidSessionID
	}
	if err := s.sessions.Delete(ctx, sessionID, ownerID); err != nil {
		return err
	}
	s.invalidate(ctx, ownerID)
	return nil
}

func (s *Service) invalidate(ctx context.Context, ownerID string) {
	if s.summaries == nil {
		return
	}
	if err := s.summaries.Invalidate(ctx, ownerID); err != nil {
		log.Warn().Err(err).Msg("summary cache invalidation failed")
	}
}

func (s *Service) message(role models.MessageRole, content string) models.ChatMessage {
	return models.ChatMessage{
		Role:      role,
		Content:   content,
		Timestamp: s.now().UTC(),
	}
}

// appendMessages returns a new slice; base is never written through.
func appendMessages(base []models.ChatMessage, more ...models.ChatMessage) []models.ChatMessage {
	out := make([]models.ChatMessage, 0, len(base)+len(more))
	out = append(out, base...)
	return append(out, more...)
}
