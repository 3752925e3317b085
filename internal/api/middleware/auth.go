package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	domainerrors "github.com/studybuddy/study-service/internal/domain/errors"
	"github.com/studybuddy/study-service/internal/domain/models"
	"github.com/studybuddy/study-service/internal/pkg/metrics"
	"github.com/studybuddy/study-service/internal/services/auth"
)

const principalKey = "principal"

// TokenVerifier verifies bearer tokens.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*models.Principal, error)
}

// AuthMiddleware verifies the bearer token of every protected request and
// attaches the resulting principal to the gin context.
type AuthMiddleware struct {
	verifier TokenVerifier
	metrics  metrics.Recorder
}

// NewAuthMiddleware creates a new AuthMiddleware.
func NewAuthMiddleware(verifier TokenVerifier, recorder metrics.Recorder) *AuthMiddleware {
	if recorder == nil {
		recorder = metrics.Nop{}
	}
	return &AuthMiddleware{
		verifier: verifier,
		metrics:  recorder,
	}
}

// Authenticate returns a gin middleware that validates the Bearer token.
// Verification failures are logged with their reason but the client only
// ever sees a generic unauthorized response.
func (m *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			m.metrics.RecordAuthFailure(auth.Reason(domainerrors.ErrMissingCredential))
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{
				Code:    domainerrors.ErrCodeUnauthorized,
				Message: "missing authorization header",
			})
			return
		}

		principal, err := m.verifier.Verify(c.Request.Context(), token)
		if err != nil {
			reason := auth.Reason(err)
			m.metrics.RecordAuthFailure(reason)

			logger := GetRequestLogger(c)
			event := logger.Debug()
			if reason == "key_set_unavailable" || reason == "unknown" {
				event = logger.Warn()
			}
			event.Err(err).Str("reason", reason).Msg("token rejected")

			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{
				Code:    domainerrors.ErrCodeUnauthorized,
				Message: "unauthorized",
			})
			return
		}

		c.Set(principalKey, principal)
		c.Next()
	}
}

// GetPrincipal retrieves the authenticated principal from the gin context.
func GetPrincipal(c *gin.Context) (*models.Principal, bool) {
	value, exists := c.Get(principalKey)
	if !exists {
		return nil, false
	}
	principal, ok := value.(*models.Principal)
	return principal, ok && principal != nil
}

// bearerToken extracts the credential from an "Authorization: Bearer" header.
func bearerToken(header string) (string, bool) {
	parts := strings.SplitN(strings.TrimSpace(header), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}
