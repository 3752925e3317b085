// Package main is the entry point for the AI Study Buddy service.
// @title AI Study Buddy API
// @version 1.0
// @description Authenticated study assistant: explanations, summaries, quizzes, flashcards and persisted multi-turn chat.

// @contact.name API Support

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8000
// @BasePath /
// @schemes http https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Bearer token issued by the identity provider
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/studybuddy/study-service/docs"
	"github.com/studybuddy/study-service/internal/api/handlers"
	"github.com/studybuddy/study-service/internal/api/middleware"
	"github.com/studybuddy/study-service/internal/api/routes"
	"github.com/studybuddy/study-service/internal/config"
	"github.com/studybuddy/study-service/internal/core/cache"
	"github.com/studybuddy/study-service/internal/core/docdb"
	"github.com/studybuddy/study-service/internal/core/vault"
	rediscache "github.com/studybuddy/study-service/internal/infrastructure/cache/redis"
	"github.com/studybuddy/study-service/internal/infrastructure/docdb/memory"
	"github.com/studybuddy/study-service/internal/infrastructure/docdb/mongodb"
	dotenvvault "github.com/studybuddy/study-service/internal/infrastructure/vault/dotenv"
	"github.com/studybuddy/study-service/internal/pkg/metrics"
	"github.com/studybuddy/study-service/internal/pkg/seal"
	"github.com/studybuddy/study-service/internal/services/auth"
	"github.com/studybuddy/study-service/internal/services/chat"
	"github.com/studybuddy/study-service/internal/services/completion"
	"github.com/studybuddy/study-service/internal/services/completion/gemini"
	"github.com/studybuddy/study-service/internal/services/completion/groq"
	"github.com/studybuddy/study-service/internal/services/study"
	"github.com/studybuddy/study-service/internal/services/summarycache"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	setupLogger(cfg.Log)

	ctx := context.Background()

	// Metrics registry shared by every component
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := metrics.NewCollector(registry)

	// Initialize vault client using factory pattern
	vaultClient, err := createVaultClient(cfg.Vault)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize vault client")
	}
	defer vaultClient.Close()

	// Initialize cache client using factory pattern; nil disables caching
	cacheClient, err := createCacheClient(cfg.Cache)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize cache client")
	}
	if cacheClient != nil {
		defer cacheClient.Close()
	}

	// Initialize document db client using factory pattern
	docDBClient, err := createDocDBClient(ctx, cfg.DocDB)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize document db client")
	}
	defer docDBClient.Close(ctx)

	// Ensure database indexes
	if err := docDBClient.EnsureIndexes(ctx); err != nil {
		log.Warn().Err(err).Msg("failed to ensure indexes")
	}

	// Token verification
	keySetCache, err := auth.NewKeySetCache(&auth.KeySetCacheConfig{
		URL:                cfg.Auth.JWKSURL(),
		Timeout:            cfg.Auth.JWKSTimeout,
		AllowedAlgorithms:  cfg.Auth.AllowedAlgorithms,
		Metrics:            collector,
		MinRefreshInterval: cfg.Auth.JWKSMinRefresh,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize key set cache")
	}
	verifier, err := auth.NewTokenVerifier(keySetCache, &auth.VerifierConfig{
		Issuer:            cfg.Auth.IssuerURL,
		Audience:          cfg.Auth.Audience,
		Leeway:            cfg.Auth.Leeway,
		AllowedAlgorithms: cfg.Auth.AllowedAlgorithms,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize token verifier")
	}

	// Completion provider, bounded by the configured timeout
	provider, err := createCompletionProvider(ctx, cfg.Completion, vaultClient)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize completion provider")
	}
	bounded := completion.NewBounded(provider, cfg.Completion.Timeout, collector)

	// Session summary cache
	summaries, err := createSummaryCache(cfg, cacheClient)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize summary cache")
	}

	chatService, err := chat.NewService(&chat.Config{
		Sessions:      docDBClient.Sessions(),
		Provider:      bounded,
		Summaries:     summaries,
		Metrics:       collector,
		ContextWindow: cfg.Chat.ContextWindow,
		SystemPrompt:  cfg.Chat.SystemPrompt,
		TitleWords:    cfg.Chat.TitleWords,
		CommitRetries: cfg.Chat.CommitRetries,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize chat service")
	}

	studyService, err := study.NewService(bounded)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize study service")
	}

	// Set Gin mode
	gin.SetMode(cfg.Server.GinMode)

	// Setup router
	router := gin.New()
	routes.SetupWithMiddleware(router, &routes.Config{
		HealthHandler:  handlers.NewHealthHandler(cacheClient, docDBClient),
		ChatHandler:    handlers.NewChatHandler(chatService),
		StudyHandler:   handlers.NewStudyHandler(studyService),
		AuthMiddleware: middleware.NewAuthMiddleware(verifier, collector),
		MetricsHandler: metrics.Handler(registry),
	},
		middleware.NewLoggingMiddleware(collector),
		middleware.NewErrorMiddleware(),
		middleware.DefaultCORSConfig(cfg.CORS.AllowOrigins),
	)

	// Swagger documentation endpoint
	router.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Create HTTP server
	srv := &http.Server{
		Addr:              cfg.Server.Address(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().
			Str("address", cfg.Server.Address()).
			Str("completion", provider.Name()).
			Str("docdb", cfg.DocDB.Type).
			Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server exited")
}

// setupLogger configures the global zerolog logger.
func setupLogger(cfg config.LogConfig) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339Nano

	if cfg.Format == "console" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	} else {
		log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	}
}

// createVaultClient creates a vault client based on the configuration.
func createVaultClient(cfg config.VaultConfig) (vault.Client, error) {
	switch vault.Type(cfg.Type) {
	case vault.TypeDotEnv:
		return dotenvvault.NewClient(), nil
	default:
		return nil, fmt.Errorf("unsupported vault type: %s", cfg.Type)
	}
}

// createCacheClient creates a cache client based on the configuration.
// TypeNone returns a nil client.
func createCacheClient(cfg config.CacheConfig) (cache.Client, error) {
	switch cache.Type(cfg.Type) {
	case cache.TypeRedis:
		client, err := rediscache.NewClient(rediscache.Config{
			Host:       cfg.Host,
			Port:       cfg.Port,
			Password:   cfg.Password,
			DB:         cfg.DB,
			DefaultTTL: cfg.TTL,
		})
		if err != nil {
			return nil, err
		}
		return client, nil
	case cache.TypeNone:
		return nil, nil
	default:
		return nil, fmt.Errorf("unsupported cache type: %s", cfg.Type)
	}
}

// createDocDBClient creates a document database client based on the configuration.
func createDocDBClient(ctx context.Context, cfg config.DocDBConfig) (docdb.Client, error) {
	switch docdb.Type(cfg.Type) {
	case docdb.TypeMongoDB, docdb.TypeCosmosDB:
		// CosmosDB speaks the MongoDB wire protocol
		return mongodb.NewClient(ctx, &mongodb.ClientConfig{
			URI:          cfg.URI,
			DatabaseName: cfg.Database,
		})
	case docdb.TypeMemory:
		log.Warn().Msg("using in-memory session store, sessions are lost on restart")
		return memory.NewClient(), nil
	default:
		return nil, fmt.Errorf("unsupported docdb type: %s", cfg.Type)
	}
}

// createCompletionProvider creates the completion provider based on the configuration.
func createCompletionProvider(ctx context.Context, cfg config.CompletionConfig, vaultClient vault.Client) (completion.Provider, error) {
	apiKey, err := vaultClient.GetSecret(ctx, cfg.APIKeySecret)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve completion API key: %w", err)
	}

	switch completion.Type(cfg.Type) {
	case completion.TypeGroq:
		return groq.NewClient(&groq.ClientConfig{
			BaseURL: cfg.BaseURL,
			APIKey:  apiKey,
			Model:   cfg.Model,
		})
	case completion.TypeGemini:
		return gemini.NewClient(ctx, &gemini.ClientConfig{
			BaseURL: cfg.BaseURL,
			APIKey:  apiKey,
			Model:   cfg.Model,
		})
	default:
		return nil, fmt.Errorf("unsupported completion type: %s", cfg.Type)
	}
}

// createSummaryCache creates the session summary cache. It returns nil when
// caching is disabled.
func createSummaryCache(cfg *config.Config, cacheClient cache.Client) (summarycache.Service, error) {
	if cacheClient == nil {
		return nil, nil
	}

	sealer, err := createSealer(cfg.Vault)
	if err != nil {
		return nil, err
	}

	return summarycache.NewService(&summarycache.Config{
		CacheClient: cacheClient,
		Sealer:      sealer,
		TTL:         cfg.Cache.TTL,
	})
}

// createSealer creates the cache value sealer based on the configuration.
func createSealer(cfg config.VaultConfig) (seal.Sealer, error) {
	if cfg.EncryptionKey == "" {
		log.Warn().Msg("SECRETS_ENCRYPTION_KEY not set, cached summaries are stored unsealed")
		return seal.NoOp{}, nil
	}
	return seal.NewAESGCM(cfg.EncryptionKey)
}
