package config

import (
	"fmt"
	"log"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port              string        `mapstructure:"PORT"`
	Env               string        `mapstructure:"ENV"`
	APIBaseURL        string        `mapstructure:"API_BASE_URL"`
	APITimeout        time.Duration `mapstructure:"API_TIMEOUT"`
	ListFetchSize     int           `mapstructure:"LIST_FETCH_SIZE"`
	PageSize          int           `mapstructure:"PAGE_SIZE"`
	QueryStaleTime    time.Duration `mapstructure:"QUERY_STALE_TIME"`
	QueryRetry        int           `mapstructure:"QUERY_RETRY"`
	ConfirmationTTL   time.Duration `mapstructure:"CONFIRMATION_TTL"`
	SessionCookieName string        `mapstructure:"SESSION_COOKIE_NAME"`
	SessionSigningKey string        `mapstructure:"SESSION_SIGNING_KEY"`
	DatabaseURL       string        `mapstructure:"DATABASE_URL"`
	DBMaxConns        int32         `mapstructure:"DB_MAX_CONNS"`
	DBMinConns        int32         `mapstructure:"DB_MIN_CONNS"`
	CORSOrigins       []string      `mapstructure:"CORS_ORIGINS"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8080")
	v.SetDefault("ENV", "development")
	v.SetDefault("API_TIMEOUT", "30s")
	v.SetDefault("LIST_FETCH_SIZE", 1000)
	v.SetDefault("PAGE_SIZE", 10)
	v.SetDefault("QUERY_STALE_TIME", "5m")
	v.SetDefault("QUERY_RETRY", 0)
	v.SetDefault("CONFIRMATION_TTL", "10m")
	v.SetDefault("SESSION_COOKIE_NAME", "SESSION")
	v.SetDefault("DB_MAX_CONNS", 10)
	v.SetDefault("DB_MIN_CONNS", 1)
	v.SetDefault("CORS_ORIGINS", "http://localhost:5173")

	// Bind env vars explicitly so Unmarshal picks them up
	for _, key := range []string{
		"PORT", "ENV", "API_BASE_URL", "API_TIMEOUT", "LIST_FETCH_SIZE", "PAGE_SIZE",
		"QUERY_STALE_TIME", "QUERY_RETRY", "CONFIRMATION_TTL", "SESSION_COOKIE_NAME",
		"SESSION_SIGNING_KEY", "DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS", "CORS_ORIGINS",
	} {
		_ = v.BindEnv(key)
	}

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if len(cfg.CORSOrigins) <= 1 {
		origins := v.GetString("CORS_ORIGINS")
		if origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}

	if cfg.APIBaseURL == "" {
		return nil, fmt.Errorf("API_BASE_URL is required")
	}
	cfg.APIBaseURL = strings.TrimRight(cfg.APIBaseURL, "/")

	if cfg.IsDev() && cfg.SessionSigningKey == "" {
		log.Println("WARNING: SESSION_SIGNING_KEY is empty; identity tokens are decoded without verification.")
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the server is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// AuditEnabled reports whether mutation audit entries are persisted to Postgres.
func (c *Config) AuditEnabled() bool {
	return c.DatabaseURL != ""
}

// Validate checks that the configuration is coherent enough to serve traffic.
// Production deployments must verify identity tokens, so SESSION_SIGNING_KEY
// becomes mandatory there.
func (c *Config) Validate() error {
	u, err := url.Parse(c.APIBaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("API_BASE_URL must be an absolute URL, got %q", c.APIBaseURL)
	}
	if c.ListFetchSize <= 0 {
		return fmt.Errorf("LIST_FETCH_SIZE must be positive, got %d", c.ListFetchSize)
	}
	if c.PageSize <= 0 {
		return fmt.Errorf("PAGE_SIZE must be positive, got %d", c.PageSize)
	}
	if c.QueryRetry < 0 {
		return fmt.Errorf("QUERY_RETRY must not be negative, got %d", c.QueryRetry)
	}
	if c.SessionCookieName == "" {
		return fmt.Errorf("SESSION_COOKIE_NAME must not be empty")
	}
	if c.IsProduction() && c.SessionSigningKey == "" {
		return fmt.Errorf("SESSION_SIGNING_KEY is required in production")
	}
	if c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("DB_MIN_CONNS (%d) exceeds DB_MAX_CONNS (%d)", c.DBMinConns, c.DBMaxConns)
	}
	return nil
}
