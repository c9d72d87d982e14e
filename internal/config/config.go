// Package config loads and normalises quill configuration files.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultAddr         = "127.0.0.1"
	defaultPort         = ":4173"
	defaultName         = "quill"
	defaultTemplatesDir = ""
	defaultAssetsDir    = "ui"
	defaultLogsDir      = "data/logs"
	defaultTokenTTL     = 86400
	defaultSessionTTL   = 86400
	defaultAttempts     = 10
	defaultWindow       = 60
	devJWTSecret        = "quill-dev-secret-change-me"
)

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Addr string `json:"addr" yaml:"addr"`
	Port string `json:"port" yaml:"port"`
}

// Listen joins Addr and Port into a listen address.
func (s ServerConfig) Listen() string {
	port := strings.TrimSpace(s.Port)
	if port != "" && !strings.HasPrefix(port, ":") {
		port = ":" + port
	}
	return strings.TrimSpace(s.Addr) + port
}

// AppConfig configures server-rendered assets, templates and log locations.
type AppConfig struct {
	Name      string `json:"name" yaml:"name"`
	Templates string `json:"templates" yaml:"templates"`
	Assets    string `json:"assets" yaml:"assets"`
	Logs      string `json:"logs" yaml:"logs"`
	LogLevel  string `json:"log_level" yaml:"log_level"`
}

// AuthConfig configures token issuance and the optional remote auth API.
type AuthConfig struct {
	JWTSecret       string `json:"jwt_secret" yaml:"jwt_secret"`
	TokenTTLSeconds int    `json:"token_ttl_seconds" yaml:"token_ttl_seconds"`
	APIURL          string `json:"api_url" yaml:"api_url"`
}

// TokenTTL returns the configured token lifetime.
func (a AuthConfig) TokenTTL() time.Duration {
	return time.Duration(a.TokenTTLSeconds) * time.Second
}

// DatabaseConfig points at the Postgres database. An empty DSN selects the in-memory stores.
type DatabaseConfig struct {
	DSN string `json:"dsn" yaml:"dsn"`
}

// RedisConfig configures the Redis-backed rate limiter. An empty Addr selects the in-memory limiter.
type RedisConfig struct {
	Addr     string `json:"addr" yaml:"addr"`
	Password string `json:"password" yaml:"password"`
	DB       int    `json:"db" yaml:"db"`
}

// RateLimitConfig bounds login/register attempts per client.
type RateLimitConfig struct {
	Attempts      int `json:"attempts" yaml:"attempts"`
	WindowSeconds int `json:"window_seconds" yaml:"window_seconds"`
	// TrustedProxies lists the CIDRs or addresses of reverse proxies whose
	// X-Forwarded-For header identifies the client. Empty means the header
	// is ignored.
	TrustedProxies []string `json:"trusted_proxies" yaml:"trusted_proxies"`
}

// Window returns the rate-limit window.
func (r RateLimitConfig) Window() time.Duration {
	return time.Duration(r.WindowSeconds) * time.Second
}

// SessionConfig configures UI session lifetime.
type SessionConfig struct {
	TTLSeconds int `json:"ttl_seconds" yaml:"ttl_seconds"`
}

// TTL returns the idle lifetime of a UI session.
func (s SessionConfig) TTL() time.Duration {
	return time.Duration(s.TTLSeconds) * time.Second
}

// Config represents the combined runtime settings.
type Config struct {
	Server    ServerConfig    `json:"server" yaml:"server"`
	App       AppConfig       `json:"app" yaml:"app"`
	Auth      AuthConfig      `json:"auth" yaml:"auth"`
	Database  DatabaseConfig  `json:"database" yaml:"database"`
	Redis     RedisConfig     `json:"redis" yaml:"redis"`
	RateLimit RateLimitConfig `json:"rate_limit" yaml:"rate_limit"`
	Session   SessionConfig   `json:"session" yaml:"session"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	cfg := Config{}
	applyDefaults(&cfg)
	return cfg
}

// Load reads the config at path. JSON is the default format; .yaml and .yml
// files are decoded as YAML. A missing file yields the defaults.
func Load(path string) (Config, error) {
	var cfg Config
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return Config{}, fmt.Errorf("read config: %w", err)
	default:
		switch strings.ToLower(filepath.Ext(path)) {
		case ".yaml", ".yml":
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("decode config: %w", err)
			}
		default:
			if err := json.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("decode config: %w", err)
			}
		}
	}
	applyEnv(&cfg)
	applyDefaults(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if cfg.Auth.JWTSecret == "" {
		cfg.Auth.JWTSecret = envValue("QUILL_JWT_SECRET")
	}
	if cfg.Database.DSN == "" {
		cfg.Database.DSN = envValue("QUILL_DATABASE_URL")
	}
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = envValue("QUILL_REDIS_ADDR")
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = defaultAddr
	}
	if cfg.Server.Port == "" {
		cfg.Server.Port = defaultPort
	}
	if cfg.App.Name == "" {
		cfg.App.Name = defaultName
	}
	if cfg.App.Templates == "" {
		cfg.App.Templates = defaultTemplatesDir
	}
	if cfg.App.Assets == "" {
		cfg.App.Assets = defaultAssetsDir
	}
	if cfg.App.Logs == "" {
		cfg.App.Logs = defaultLogsDir
	}
	if cfg.Auth.JWTSecret == "" {
		cfg.Auth.JWTSecret = devJWTSecret
	}
	if cfg.Auth.TokenTTLSeconds <= 0 {
		cfg.Auth.TokenTTLSeconds = defaultTokenTTL
	}
	cfg.Auth.APIURL = strings.TrimSuffix(strings.TrimSpace(cfg.Auth.APIURL), "/")
	if cfg.RateLimit.Attempts <= 0 {
		cfg.RateLimit.Attempts = defaultAttempts
	}
	if cfg.RateLimit.WindowSeconds <= 0 {
		cfg.RateLimit.WindowSeconds = defaultWindow
	}
	if cfg.Session.TTLSeconds <= 0 {
		cfg.Session.TTLSeconds = defaultSessionTTL
	}
}

// UsingDevSecret reports whether the built-in development JWT secret is active.
func (c Config) UsingDevSecret() bool {
	return c.Auth.JWTSecret == devJWTSecret
}

func envValue(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}
