package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestLoad_EnvSubstitution(t *testing.T) {
	t.Setenv("TEST_API_KEY", "sk-test-123")

	path := writeConfig(t, `
completion:
  api_key: ${TEST_API_KEY}
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Completion.APIKey != "sk-test-123" {
		t.Errorf("APIKey = %q, want sk-test-123", cfg.Completion.APIKey)
	}
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, `
logging:
  level: debug
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Port = %d, want default 8080", cfg.Server.Port)
	}
	if cfg.RateLimit.Store != "memory" {
		t.Errorf("Store = %q, want memory", cfg.RateLimit.Store)
	}
	if cfg.RateLimit.Budgets.Default.MaxRequests == 0 {
		t.Error("default budget not applied")
	}
	if cfg.RateLimit.Budgets.Default.Window != time.Minute {
		t.Errorf("default window = %v, want 1m", cfg.RateLimit.Budgets.Default.Window)
	}
}

func TestLoad_RouteBudgets(t *testing.T) {
	path := writeConfig(t, `
rate_limit:
  store: memory
  budgets:
    default:
      max_requests: 100
      window: 1m
    routes:
      /api/enrich:
        max_requests: 3
        window: 30s
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	budget := cfg.RateLimit.Budgets.For("/api/enrich")
	if budget.MaxRequests != 3 || budget.Window != 30*time.Second {
		t.Errorf("enrich budget = %+v", budget)
	}
	if got := cfg.RateLimit.Budgets.For("/other"); got.MaxRequests != 100 {
		t.Errorf("default budget = %+v", got)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/config.yaml"); err == nil {
		t.Error("expected error for missing file")
	}
}
