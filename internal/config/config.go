// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package config handles application configuration loading from environment
// variables. It provides a centralized Config struct used across the application.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"mailsmith/internal/ai"
)

// Template library sources.
const (
	TemplateSourceEmbedded = "embedded"
	TemplateSourceDir      = "dir"
	TemplateSourceS3       = "s3"
)

// Rate-limit bucketing modes.
const (
	RateLimitByIP     = "ip"
	RateLimitByAPIKey = "api_key"
)

// defaultDBPassword is the development password refused in production.
const defaultDBPassword = "changeme"

// Config holds all application configuration values loaded from the environment.
type Config struct {
	// Server settings
	Host     string `env:"APP_HOST" envDefault:"0.0.0.0"`
	Port     string `env:"APP_PORT" envDefault:"8080"`
	Env      string `env:"APP_ENV" envDefault:"development"` // "development", "production", "testing"
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// PostgreSQL connection
	DBHost     string `env:"POSTGRES_HOST" envDefault:"localhost"`
	DBPort     string `env:"POSTGRES_PORT" envDefault:"5432"`
	DBUser     string `env:"POSTGRES_USER" envDefault:"mailsmith"`
	DBPassword string `env:"POSTGRES_PASSWORD" envDefault:"changeme"`
	DBName     string `env:"POSTGRES_DB" envDefault:"mailsmith"`

	// Valkey (Redis-compatible job store)
	ValkeyHost     string `env:"VALKEY_HOST" envDefault:"localhost"`
	ValkeyPort     string `env:"VALKEY_PORT" envDefault:"6379"`
	ValkeyPassword string `env:"VALKEY_PASSWORD"`
	ValkeyDB       int    `env:"VALKEY_DB" envDefault:"0"`

	// AI provider settings
	AIProvider     string `env:"AI_PROVIDER" envDefault:"openai"` // "openai", "gemini", "claude", "mistral"
	AIMaxRetries   int    `env:"AI_MAX_RETRIES" envDefault:"2"`
	OpenAIKey      string `env:"OPENAI_API_KEY"`
	OpenAIModel    string `env:"OPENAI_MODEL" envDefault:"gpt-4o"`
	OpenAIBaseURL  string `env:"OPENAI_BASE_URL" envDefault:"https://api.openai.com/v1"`
	GeminiKey      string `env:"GEMINI_API_KEY"`
	GeminiModel    string `env:"GEMINI_MODEL" envDefault:"gemini-2.5-pro"`
	GeminiBaseURL  string `env:"GEMINI_BASE_URL" envDefault:"https://generativelanguage.googleapis.com"`
	ClaudeKey      string `env:"CLAUDE_API_KEY"`
	ClaudeModel    string `env:"CLAUDE_MODEL" envDefault:"claude-sonnet-4-5"`
	ClaudeBaseURL  string `env:"CLAUDE_BASE_URL"`
	MistralKey     string `env:"MISTRAL_API_KEY"`
	MistralModel   string `env:"MISTRAL_MODEL" envDefault:"mistral-large-latest"`
	MistralBaseURL string `env:"MISTRAL_BASE_URL" envDefault:"https://api.mistral.ai/v1"`

	// Template fragment library
	TemplateSource   string `env:"TEMPLATE_SOURCE" envDefault:"embedded"`
	TemplateDir      string `env:"TEMPLATE_DIR"`
	S3Endpoint       string `env:"S3_ENDPOINT"`
	S3Region         string `env:"S3_REGION" envDefault:"fsn1"`
	S3AccessKey      string `env:"S3_ACCESS_KEY"`
	S3SecretKey      string `env:"S3_SECRET_KEY"`
	S3TemplateBucket string `env:"S3_TEMPLATE_BUCKET"`
	S3TemplatePrefix string `env:"S3_TEMPLATE_PREFIX"`

	// API access and limits
	APIKeyHash         string        `env:"API_KEY_HASH"`
	RateLimitPerMinute int           `env:"RATE_LIMIT_PER_MINUTE" envDefault:"30"`
	RateLimitBy        string        `env:"RATE_LIMIT_BY" envDefault:"ip"` // "ip" or "api_key"
	GenerateTimeout    time.Duration `env:"GENERATE_TIMEOUT" envDefault:"3m"`
	JobTTL             time.Duration `env:"JOB_TTL" envDefault:"1h"`

	// Output formatting
	StripTracking bool `env:"FORMAT_STRIP_TRACKING" envDefault:"false"`

	// Preview delivery (Postmark)
	PostmarkServerToken  string `env:"POSTMARK_SERVER_TOKEN"`
	PostmarkAccountToken string `env:"POSTMARK_ACCOUNT_TOKEN"`
	PreviewFrom          string `env:"PREVIEW_FROM"`
}

// Load reads an optional .env file and then configuration from environment
// variables. Returns an error if values are invalid or if critical values
// are missing in production mode.
func Load() (*Config, error) {
	// A missing .env file is normal outside development.
	if err := godotenv.Load(); err == nil {
		slog.Debug("loaded .env file")
	}
	return parse(env.Options{})
}

// parse reads configuration using opts and validates it.
func parse(opts env.Options) (*Config, error) {
	cfg := &Config{}
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	cfg.TemplateSource = strings.ToLower(strings.TrimSpace(cfg.TemplateSource))
	cfg.RateLimitBy = strings.ToLower(strings.TrimSpace(cfg.RateLimitBy))

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	var errs []error

	switch c.TemplateSource {
	case TemplateSourceEmbedded:
	case TemplateSourceDir:
		if c.TemplateDir == "" {
			errs = append(errs, errors.New("TEMPLATE_DIR must be set when TEMPLATE_SOURCE=dir"))
		}
	case TemplateSourceS3:
		if c.S3Endpoint == "" || c.S3AccessKey == "" || c.S3SecretKey == "" || c.S3TemplateBucket == "" {
			errs = append(errs, errors.New("S3_ENDPOINT, S3_ACCESS_KEY, S3_SECRET_KEY and S3_TEMPLATE_BUCKET must be set when TEMPLATE_SOURCE=s3"))
		}
	default:
		errs = append(errs, fmt.Errorf("TEMPLATE_SOURCE %q is not one of embedded, dir, s3", c.TemplateSource))
	}

	if c.RateLimitPerMinute <= 0 {
		errs = append(errs, errors.New("RATE_LIMIT_PER_MINUTE must be positive"))
	}
	if c.RateLimitBy != RateLimitByIP && c.RateLimitBy != RateLimitByAPIKey {
		errs = append(errs, fmt.Errorf("RATE_LIMIT_BY %q is not one of ip, api_key", c.RateLimitBy))
	}
	if c.GenerateTimeout <= 0 {
		errs = append(errs, errors.New("GENERATE_TIMEOUT must be positive"))
	}

	if c.PostmarkServerToken != "" && c.PreviewFrom == "" {
		errs = append(errs, errors.New("PREVIEW_FROM must be set when POSTMARK_SERVER_TOKEN is set"))
	}

	if c.Env == "production" {
		if c.DBPassword == defaultDBPassword {
			errs = append(errs, errors.New("POSTGRES_PASSWORD must be set in production"))
		}
		if c.APIKeyHash == "" {
			errs = append(errs, errors.New("API_KEY_HASH must be set in production"))
		}
	}

	return errors.Join(errs...)
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=disable",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName,
	)
}

// Addr returns the server listen address (host:port).
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

// IsDev returns true if the application is running in development mode.
func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// SlogLevel maps LOG_LEVEL to a slog level, defaulting to info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// AIProviders returns per-provider settings for ai.NewRegistry.
func (c *Config) AIProviders() map[string]ai.ProviderConfig {
	return map[string]ai.ProviderConfig{
		"openai":  {APIKey: c.OpenAIKey, Model: c.OpenAIModel, BaseURL: c.OpenAIBaseURL, MaxRetries: c.AIMaxRetries},
		"gemini":  {APIKey: c.GeminiKey, Model: c.GeminiModel, BaseURL: c.GeminiBaseURL, MaxRetries: c.AIMaxRetries},
		"claude":  {APIKey: c.ClaudeKey, Model: c.ClaudeModel, BaseURL: c.ClaudeBaseURL, MaxRetries: c.AIMaxRetries},
		"mistral": {APIKey: c.MistralKey, Model: c.MistralModel, BaseURL: c.MistralBaseURL, MaxRetries: c.AIMaxRetries},
	}
}
