package config

import (
	"os"
	"testing"
	"time"
)

func TestLoad_RequiresAPIBaseURL(t *testing.T) {
	os.Unsetenv("API_BASE_URL")
	_, err := Load()
	if err == nil {
		t.Fatal("expected error when API_BASE_URL is missing")
	}
}

func TestLoad_WithAPIBaseURL(t *testing.T) {
	os.Setenv("API_BASE_URL", "https://api.example.test/")
	defer os.Unsetenv("API_BASE_URL")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.APIBaseURL != "https://api.example.test" {
		t.Errorf("expected trailing slash to be trimmed, got %s", cfg.APIBaseURL)
	}
	if cfg.Port != "8080" {
		t.Errorf("expected default port 8080, got %s", cfg.Port)
	}
	if cfg.ListFetchSize != 1000 {
		t.Errorf("expected default list fetch size 1000, got %d", cfg.ListFetchSize)
	}
	if cfg.PageSize != 10 {
		t.Errorf("expected default page size 10, got %d", cfg.PageSize)
	}
	if cfg.QueryStaleTime != 5*time.Minute {
		t.Errorf("expected default stale time 5m, got %s", cfg.QueryStaleTime)
	}
	if cfg.QueryRetry != 0 {
		t.Errorf("expected reads to default to no retry, got %d", cfg.QueryRetry)
	}
	if cfg.SessionCookieName != "SESSION" {
		t.Errorf("expected default cookie name SESSION, got %s", cfg.SessionCookieName)
	}
	if cfg.AuditEnabled() {
		t.Error("expected audit persistence to be disabled without DATABASE_URL")
	}
}

func TestConfig_IsDev(t *testing.T) {
	c := &Config{Env: "development"}
	if !c.IsDev() {
		t.Error("expected IsDev() to return true for development")
	}

	c.Env = "production"
	if c.IsDev() {
		t.Error("expected IsDev() to return false for production")
	}
}

func validConfig() *Config {
	return &Config{
		Env:               "development",
		APIBaseURL:        "https://api.example.test",
		ListFetchSize:     1000,
		PageSize:          10,
		SessionCookieName: "SESSION",
		DBMaxConns:        10,
		DBMinConns:        1,
	}
}

func TestConfig_Validate(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}

	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"relative base url", func(c *Config) { c.APIBaseURL = "/api" }},
		{"zero fetch size", func(c *Config) { c.ListFetchSize = 0 }},
		{"zero page size", func(c *Config) { c.PageSize = 0 }},
		{"negative retry", func(c *Config) { c.QueryRetry = -1 }},
		{"empty cookie name", func(c *Config) { c.SessionCookieName = "" }},
		{"production without signing key", func(c *Config) { c.Env = "production" }},
		{"min conns above max", func(c *Config) { c.DBMinConns = 20 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			tt.mutate(c)
			if err := c.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
