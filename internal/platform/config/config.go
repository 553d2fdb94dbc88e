// Package config loads application configuration from environment variables.
// All variables use the CIDADAO_ prefix. A .env file in the working directory
// is read first when present; variables already set take precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	Upstream UpstreamConfig
	Catalog  CatalogConfig
	Cache    CacheConfig
	Database DatabaseConfig
	Session  SessionConfig
	Log      LogConfig
	QuizPath string
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port int
	Host string
	// AllowedOrigins lists WebSocket origin patterns besides the request host.
	AllowedOrigins []string
}

// UpstreamConfig holds Câmara API settings.
type UpstreamConfig struct {
	BaseURL     string
	Timeout     time.Duration
	Concurrency int
	Retries     int
	// Year of the listed propositions; 0 means the current year.
	Year      int
	SiglaTipo string
}

// CatalogConfig holds listing cache settings.
type CatalogConfig struct {
	StaleAfter time.Duration
	PageSize   int
	// Prewarm fetches the default listing at startup.
	Prewarm bool
}

// CacheConfig holds Dragonfly/Redis connection settings. An empty URL keeps
// listings in process memory.
type CacheConfig struct {
	URL string
	// Namespace prefixes every key the service writes.
	Namespace string
}

// DatabaseConfig holds PostgreSQL connection settings. An empty URL disables
// listing snapshots.
type DatabaseConfig struct {
	URL      string
	MaxConns int
	MinConns int
}

// SessionConfig holds citizen session settings.
type SessionConfig struct {
	IdleTimeout time.Duration
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string
	Format string
}

// Load reads configuration from environment variables with CIDADAO_ prefix.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("reading .env: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:           envInt("CIDADAO_SERVER_PORT", 8080),
			Host:           envStr("CIDADAO_SERVER_HOST", "0.0.0.0"),
			AllowedOrigins: envList("CIDADAO_SERVER_ALLOWED_ORIGINS"),
		},
		Upstream: UpstreamConfig{
			BaseURL:     envStr("CIDADAO_UPSTREAM_URL", "https://dadosabertos.camara.leg.br/api/v2"),
			Timeout:     envDuration("CIDADAO_UPSTREAM_TIMEOUT", 10*time.Second),
			Concurrency: envInt("CIDADAO_UPSTREAM_CONCURRENCY", 4),
			Retries:     envInt("CIDADAO_UPSTREAM_RETRIES", 2),
			Year:        envInt("CIDADAO_UPSTREAM_YEAR", 0),
			SiglaTipo:   envStr("CIDADAO_UPSTREAM_SIGLA_TIPO", "PL"),
		},
		Catalog: CatalogConfig{
			StaleAfter: envDuration("CIDADAO_CATALOG_STALE_AFTER", 5*time.Minute),
			PageSize:   envInt("CIDADAO_CATALOG_PAGE_SIZE", 9),
			Prewarm:    envBool("CIDADAO_CATALOG_PREWARM", true),
		},
		Cache: CacheConfig{
			URL:       envStr("CIDADAO_CACHE_URL", ""),
			Namespace: envStr("CIDADAO_CACHE_NAMESPACE", "cidadao"),
		},
		Database: DatabaseConfig{
			URL:      envStr("CIDADAO_DATABASE_URL", ""),
			MaxConns: envInt("CIDADAO_DATABASE_MAX_CONNS", 10),
			MinConns: envInt("CIDADAO_DATABASE_MIN_CONNS", 1),
		},
		Session: SessionConfig{
			IdleTimeout: envDuration("CIDADAO_SESSION_IDLE_TIMEOUT", 2*time.Hour),
		},
		Log: LogConfig{
			Level:  envStr("CIDADAO_LOG_LEVEL", "info"),
			Format: envStr("CIDADAO_LOG_FORMAT", "json"),
		},
		QuizPath: envStr("CIDADAO_QUIZ_PATH", ""),
	}

	return cfg, nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("CIDADAO_SERVER_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}

	u, err := url.Parse(c.Upstream.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("CIDADAO_UPSTREAM_URL must be an absolute URL, got %q", c.Upstream.BaseURL)
	}
	if c.Upstream.Timeout <= 0 {
		return fmt.Errorf("CIDADAO_UPSTREAM_TIMEOUT must be positive")
	}
	if c.Upstream.Concurrency <= 0 {
		return fmt.Errorf("CIDADAO_UPSTREAM_CONCURRENCY must be positive, got %d", c.Upstream.Concurrency)
	}
	if c.Upstream.Retries < 0 {
		return fmt.Errorf("CIDADAO_UPSTREAM_RETRIES must not be negative, got %d", c.Upstream.Retries)
	}

	if c.Catalog.StaleAfter <= 0 {
		return fmt.Errorf("CIDADAO_CATALOG_STALE_AFTER must be positive")
	}
	if c.Catalog.PageSize <= 0 || c.Catalog.PageSize > 100 {
		return fmt.Errorf("CIDADAO_CATALOG_PAGE_SIZE must be between 1 and 100, got %d", c.Catalog.PageSize)
	}

	if c.Session.IdleTimeout <= 0 {
		return fmt.Errorf("CIDADAO_SESSION_IDLE_TIMEOUT must be positive")
	}

	if c.Database.URL != "" && c.Database.MinConns > c.Database.MaxConns {
		return fmt.Errorf("CIDADAO_DATABASE_MIN_CONNS (%d) exceeds CIDADAO_DATABASE_MAX_CONNS (%d)",
			c.Database.MinConns, c.Database.MaxConns)
	}

	if _, err := c.Log.SlogLevel(); err != nil {
		return err
	}
	if c.Log.Format != "json" && c.Log.Format != "text" {
		return fmt.Errorf("CIDADAO_LOG_FORMAT must be 'json' or 'text', got %q", c.Log.Format)
	}

	return nil
}

// Addr returns the HTTP listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// SlogLevel parses the configured log level.
func (l LogConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return 0, fmt.Errorf("CIDADAO_LOG_LEVEL: %w", err)
	}
	return level, nil
}

// NewLogger builds the process logger: JSON by default, text when requested.
func (l LogConfig) NewLogger() *slog.Logger {
	level, err := l.SlogLevel()
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if l.Format == "text" {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		return strings.EqualFold(v, "true") || v == "1"
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
