package config

import (
	"github.com/minhvu-dev/enricher/internal/infra/ratelimit"
)

// AppConfig represents the top-level configuration.
type AppConfig struct {
	Server     ServerConfig     `yaml:"server"`
	Logging    LoggingConfig    `yaml:"logging"`
	Completion CompletionConfig `yaml:"completion"`
	RateLimit  RateLimitConfig  `yaml:"rate_limit"`
	Progress   ProgressConfig   `yaml:"progress"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// CompletionConfig holds completion-provider settings.
type CompletionConfig struct {
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"`
}

// RateLimitConfig selects the window store and its budgets.
type RateLimitConfig struct {
	Store   string            `yaml:"store"` // memory, redis
	Redis   ratelimit.Config  `yaml:"redis"`
	Budgets ratelimit.Budgets `yaml:"budgets"`
}

// ProgressConfig controls the progress tracker.
type ProgressConfig struct {
	Liveness bool `yaml:"liveness"`
}
