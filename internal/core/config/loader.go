package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/minhvu-dev/enricher/internal/infra/ratelimit"
)

// Load reads configuration from a YAML file.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg AppConfig
	// Expand environment variables in the YAML content
	expandedData := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Set defaults if necessary
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.RateLimit.Store == "" {
		cfg.RateLimit.Store = "memory"
	}
	if cfg.RateLimit.Budgets.Default.MaxRequests == 0 {
		cfg.RateLimit.Budgets = ratelimit.DefaultBudgets()
	}
	if cfg.RateLimit.Budgets.Default.Window == 0 {
		cfg.RateLimit.Budgets.Default.Window = time.Minute
	}

	return &cfg, nil
}
