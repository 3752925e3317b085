// Package config handles application configuration loading and management.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
type Config struct {
	Server     ServerConfig
	Cache      CacheConfig
	DocDB      DocDBConfig
	Vault      VaultConfig
	Auth       AuthConfig
	Completion CompletionConfig
	Chat       ChatConfig
	CORS       CORSConfig
	Log        LogConfig
}

// ServerConfig holds server-related configuration.
type ServerConfig struct {
	Host    string
	Port    int
	GinMode string
}

// Address returns the server address in host:port format.
func (c ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// CacheConfig holds cache-related configuration.
type CacheConfig struct {
	Type     string
	Host     string
	Port     string
	Password string
	DB       int
	TTL      time.Duration
}

// DocDBConfig holds document database configuration.
type DocDBConfig struct {
	Type     string
	URI      string
	Database string
}

// VaultConfig holds vault configuration.
type VaultConfig struct {
	Type          string
	EncryptionKey string
}

// AuthConfig holds identity provider settings used for bearer token verification.
type AuthConfig struct {
	// IssuerURL is the identity provider issuer; the key set is published at
	// {IssuerURL}/.well-known/jwks.json.
	IssuerURL         string
	Audience          string
	JWKSTimeout       time.Duration
	JWKSMinRefresh    time.Duration
	Leeway            time.Duration
	AllowedAlgorithms []string
}

// JWKSURL returns the key-discovery endpoint for the configured issuer.
func (c AuthConfig) JWKSURL() string {
	return strings.TrimRight(c.IssuerURL, "/") + "/.well-known/jwks.json"
}

// CompletionConfig holds completion provider configuration. Empty BaseURL
// and Model fall back to the provider's defaults.
type CompletionConfig struct {
	Type         string
	BaseURL      string
	Model        string
	APIKeySecret string
	Timeout      time.Duration
}

// ChatConfig holds chat session behaviour.
type ChatConfig struct {
	ContextWindow int
	SystemPrompt  string
	TitleWords    int
	CommitRetries int
}

// CORSConfig holds allowed origins for browser clients.
type CORSConfig struct {
	AllowOrigins []string
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string
	Format string
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load()

	completionType := getEnv("COMPLETION_TYPE", "groq")

	cfg := &Config{
		Server: ServerConfig{
			Host:    getEnv("SERVER_HOST", "0.0.0.0"),
			Port:    getEnvAsInt("SERVER_PORT", 8000),
			GinMode: getEnv("GIN_MODE", "release"),
		},
		Cache: CacheConfig{
			Type:     getEnv("CACHE_TYPE", "redis"),
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			TTL:      time.Duration(getEnvAsInt("CACHE_TTL_SECONDS", 120)) * time.Second,
		},
		DocDB: DocDBConfig{
			Type:     getEnv("DOCDB_TYPE", "mongodb"),
			URI:      getEnv("MONGODB_URI", "mongodb://localhost:27017"),
			Database: getEnv("MONGODB_DATABASE", "study_buddy_db"),
		},
		Vault: VaultConfig{
			Type:          getEnv("VAULT_TYPE", "dotenv"),
			EncryptionKey: getEnv("SECRETS_ENCRYPTION_KEY", ""),
		},
		Auth: AuthConfig{
			IssuerURL:         getEnv("AUTH_ISSUER_URL", os.Getenv("CLERK_ISSUER_URL")),
			Audience:          getEnv("AUTH_AUDIENCE", ""),
			JWKSTimeout:       getEnvAsDuration("AUTH_JWKS_TIMEOUT", 5*time.Second),
			JWKSMinRefresh:    getEnvAsDuration("AUTH_JWKS_MIN_REFRESH_INTERVAL", 10*time.Second),
			Leeway:            getEnvAsDuration("AUTH_LEEWAY", 0),
			AllowedAlgorithms: getEnvAsList("AUTH_ALLOWED_ALGORITHMS", []string{"RS256"}),
		},
		Completion: CompletionConfig{
			Type:         completionType,
			BaseURL:      getEnv("COMPLETION_BASE_URL", ""),
			Model:        getEnv("COMPLETION_MODEL", ""),
			APIKeySecret: getEnv("COMPLETION_API_KEY_SECRET", "dotenv://"+strings.ToUpper(completionType)+"_API_KEY"),
			Timeout:      getEnvAsDuration("COMPLETION_TIMEOUT", 60*time.Second),
		},
		Chat: ChatConfig{
			ContextWindow: getEnvAsInt("CHAT_CONTEXT_WINDOW", 10),
			SystemPrompt:  getEnv("CHAT_SYSTEM_PROMPT", "You are a helpful AI Tutor."),
			TitleWords:    getEnvAsInt("CHAT_TITLE_WORDS", 4),
			CommitRetries: getEnvAsInt("CHAT_COMMIT_RETRIES", 5),
		},
		CORS: CORSConfig{
			AllowOrigins: getEnvAsList("CORS_ALLOW_ORIGINS", []string{"*"}),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks settings that have no usable default.
func (c *Config) Validate() error {
	if c.Auth.IssuerURL == "" {
		return fmt.Errorf("AUTH_ISSUER_URL is required")
	}
	if len(c.Auth.AllowedAlgorithms) == 0 {
		return fmt.Errorf("AUTH_ALLOWED_ALGORITHMS must list at least one algorithm")
	}
	if c.Chat.ContextWindow < 1 {
		return fmt.Errorf("CHAT_CONTEXT_WINDOW must be positive, got %d", c.Chat.ContextWindow)
	}
	if c.Chat.TitleWords < 1 {
		return fmt.Errorf("CHAT_TITLE_WORDS must be positive, got %d", c.Chat.TitleWords)
	}
	return nil
}

// getEnv gets an environment variable with a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets an environment variable as an integer with a default value.
func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvAsDuration parses values like "5s" or "250ms".
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// getEnvAsList splits a comma-separated variable, dropping empty items.
func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}
