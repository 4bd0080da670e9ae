// Package config loads Link settings from the environment.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Session store drivers.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreSQLite   = "sqlite"
)

// Generator backends.
const (
	GeneratorRemote = "remote"
	GeneratorOpenAI = "openai"
)

// Config holds the Link configuration.
type Config struct {
	Port       string `env:"PORT" envDefault:"8080"`
	BackendURL string `env:"BACKEND_URL" envDefault:"http://localhost:5050"`

	Cognito CognitoConfig `envPrefix:"COGNITO_"`
	Spotify SpotifyConfig `envPrefix:"SPOTIFY_"`

	SessionStore string `env:"SESSION_STORE" envDefault:"memory"`
	DatabaseURL  string `env:"DATABASE_URL"`

	Generator string       `env:"GENERATOR" envDefault:"remote"`
	OpenAI    OpenAIConfig `envPrefix:"OPENAI_"`

	AllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"*"`
	CookieSecure   bool     `env:"COOKIE_SECURE" envDefault:"false"`
	LogLevel       string   `env:"LOG_LEVEL" envDefault:"info"`
}

// CognitoConfig identifies the user pool app client.
type CognitoConfig struct {
	Region       string `env:"REGION" envDefault:"us-east-1"`
	UserPoolID   string `env:"USER_POOL_ID"`
	ClientID     string `env:"CLIENT_ID"`
	ClientSecret string `env:"CLIENT_SECRET"`
}

// SpotifyConfig is the public half of the Spotify app registration.
type SpotifyConfig struct {
	ClientID    string `env:"CLIENT_ID"`
	RedirectURL string `env:"REDIRECT_URL" envDefault:"http://localhost:8080/callback/spotify"`
}

// OpenAIConfig configures the local development generator.
type OpenAIConfig struct {
	APIKey  string `env:"API_KEY"`
	Model   string `env:"MODEL"`
	BaseURL string `env:"BASE_URL"`
}

// Load reads .env (when present) and parses the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	cfg.SessionStore = strings.ToLower(strings.TrimSpace(cfg.SessionStore))
	cfg.Generator = strings.ToLower(strings.TrimSpace(cfg.Generator))
	cfg.BackendURL = strings.TrimSuffix(cfg.BackendURL, "/")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cross-field requirements.
func (c *Config) Validate() error {
	switch c.SessionStore {
	case StoreMemory, StoreSQLite:
	case StorePostgres:
		if c.DatabaseURL == "" {
			return errors.New("DATABASE_URL is required for the postgres session store")
		}
	default:
		return fmt.Errorf("unknown SESSION_STORE %q", c.SessionStore)
	}

	switch c.Generator {
	case GeneratorRemote:
	case GeneratorOpenAI:
		if c.OpenAI.APIKey == "" {
			return errors.New("OPENAI_API_KEY is required when GENERATOR=openai")
		}
	default:
		return fmt.Errorf("unknown GENERATOR %q", c.Generator)
	}
	return nil
}

// RequireCognito reports a missing app client id. Only commands that talk to
// the identity provider call it.
func (c *Config) RequireCognito() error {
	if c.Cognito.ClientID == "" {
		return errors.New("COGNITO_CLIENT_ID is not set")
	}
	return nil
}

// NewLogger builds the process logger for LOG_LEVEL.
func NewLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn", "warning":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
