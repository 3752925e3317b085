// Package routes defines the HTTP routes for the study service.
package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/studybuddy/study-service/internal/api/handlers"
	"github.com/studybuddy/study-service/internal/api/middleware"
)

// Config holds the dependencies for setting up routes.
type Config struct {
	HealthHandler  *handlers.HealthHandler
	ChatHandler    *handlers.ChatHandler
	StudyHandler   *handlers.StudyHandler
	AuthMiddleware *middleware.AuthMiddleware
	// MetricsHandler serves /metrics when set.
	MetricsHandler http.Handler
}

// Setup configures all routes on the Gin engine.
func Setup(r *gin.Engine, cfg *Config) {
	// Public routes
	r.GET("/", cfg.HealthHandler.Root)
	r.GET("/health", cfg.HealthHandler.Health)
	r.GET("/ready", cfg.HealthHandler.Ready)
	r.GET("/live", cfg.HealthHandler.Live)
	if cfg.MetricsHandler != nil {
		r.GET("/metrics", gin.WrapH(cfg.MetricsHandler))
	}

	api := r.Group("/api")
	api.Use(cfg.AuthMiddleware.Authenticate())
	{
		chat := api.Group("/chat")
		{
			chat.GET("/sessions", cfg.ChatHandler.ListSessions)
			chat.POST("", cfg.ChatHandler.CreateSession)
			chat.POST("/", cfg.ChatHandler.CreateSession)
			chat.GET("/:sessionId", cfg.ChatHandler.GetSession)
			chat.POST("/:sessionId", cfg.ChatHandler.ContinueSession)
			chat.DELETE("/:sessionId", cfg.ChatHandler.DeleteSession)
		}

		// Stateless study helpers, reachable with or without a trailing slash.
		for path, handler := range map[string]gin.HandlerFunc{
			"/explain":    cfg.StudyHandler.Explain,
			"/summarize":  cfg.StudyHandler.Summarize,
			"/quiz":       cfg.StudyHandler.Quiz,
			"/flashcards": cfg.StudyHandler.Flashcards,
		} {
			api.POST(path, handler)
			api.POST(path+"/", handler)
		}
	}
}

// SetupWithMiddleware sets up routes with common middleware.
func SetupWithMiddleware(r *gin.Engine, cfg *Config, loggingMw *middleware.LoggingMiddleware, errorMw *middleware.ErrorMiddleware, corsCfg middleware.CORSConfig) {
	// Apply global middleware
	r.Use(loggingMw.RequestLogger())
	r.Use(loggingMw.Logger())
	r.Use(errorMw.Recovery())
	r.Use(middleware.NewCORSMiddleware(corsCfg))

	r.NoRoute(middleware.NotFound())

	middleware.SetupCORSRoutes(r, corsCfg)

	Setup(r, cfg)
}
