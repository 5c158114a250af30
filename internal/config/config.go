// Package config provides application configuration management.
// Configuration is loaded from environment variables following 12-factor principles.
package config

import (
	"errors"
	"fmt"
	"net/netip"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"

	"github.com/letterbox/letterbox/internal/secret"
)

// MinHashSecretLen is the minimum accepted length of HASH_SECRET in bytes.
const MinHashSecretLen = 16

var (
	// ErrWeakHashSecret indicates HASH_SECRET is shorter than MinHashSecretLen.
	ErrWeakHashSecret = errors.New("HASH_SECRET is too short")
	// ErrInvalidURL indicates a configured URL cannot be used.
	ErrInvalidURL = errors.New("invalid URL")
	// ErrInvalidProxy indicates a TRUSTED_PROXIES entry is neither an IP nor a CIDR.
	ErrInvalidProxy = errors.New("invalid trusted proxy")
)

// Config holds all application configuration.
// All fields are populated from environment variables.
type Config struct {
	// Application settings
	AppEnv  string `env:"APP_ENV" envDefault:"development"`
	AppPort int    `env:"APP_PORT" envDefault:"8080"`

	// Database (PostgreSQL)
	DatabaseURL   string `env:"DATABASE_URL,required,notEmpty"`
	RunMigrations bool   `env:"RUN_MIGRATIONS" envDefault:"true"`
	// Upper bound for a single store call.
	StoreTimeout time.Duration `env:"STORE_TIMEOUT" envDefault:"5s"`

	// Cache (Redis)
	RedisURL string `env:"REDIS_URL,required,notEmpty"`

	// Public base URL used to build confirmation links (e.g., https://news.example.com)
	BaseURL string `env:"BASE_URL" envDefault:"http://localhost:8080"`

	// Server-side key mixed into every operator password hash.
	HashSecret secret.String `env:"HASH_SECRET,required,notEmpty"`

	// Email delivery API
	EmailBaseURL string        `env:"EMAIL_BASE_URL,required,notEmpty"`
	EmailSender  string        `env:"EMAIL_SENDER,required,notEmpty"`
	EmailToken   secret.String `env:"EMAIL_TOKEN,required,notEmpty"`
	EmailTimeout time.Duration `env:"EMAIL_TIMEOUT" envDefault:"10s"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	// Server timeouts. The publish handler lifts the write deadline for the
	// length of a broadcast, which is bounded per recipient by EMAIL_TIMEOUT.
	ReadTimeout     time.Duration `env:"READ_TIMEOUT" envDefault:"5s"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT" envDefault:"30s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`

	// Rate limiting (per client IP)
	RateLimitEnabled bool `env:"RATE_LIMIT_ENABLED" envDefault:"true"`
	RateLimitRPS     int  `env:"RATE_LIMIT_RPS" envDefault:"5"`
	RateLimitBurst   int  `env:"RATE_LIMIT_BURST" envDefault:"10"`

	// Request body size limit in bytes (default 1MB)
	MaxRequestBodySize int64 `env:"MAX_REQUEST_BODY_SIZE" envDefault:"1048576"`

	// Origins allowed to post the signup form cross-origin, comma separated.
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:","`

	// Reverse proxies (IPs or CIDRs) whose X-Forwarded-For / X-Real-IP headers
	// are honoured. Empty means the socket peer is always the client.
	TrustedProxies []string `env:"TRUSTED_PROXIES" envSeparator:","`
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// ConfirmationBaseURL returns BaseURL without a trailing slash.
func (c *Config) ConfirmationBaseURL() string {
	return strings.TrimRight(c.BaseURL, "/")
}

// TrustedProxyPrefixes parses TrustedProxies. A bare IP becomes a single-host prefix.
func (c *Config) TrustedProxyPrefixes() ([]netip.Prefix, error) {
	prefixes := make([]netip.Prefix, 0, len(c.TrustedProxies))
	for _, raw := range c.TrustedProxies {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		if strings.Contains(raw, "/") {
			p, err := netip.ParsePrefix(raw)
			if err != nil {
				return nil, fmt.Errorf("%w: %q", ErrInvalidProxy, raw)
			}
			prefixes = append(prefixes, p.Masked())
			continue
		}
		ip, err := netip.ParseAddr(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrInvalidProxy, raw)
		}
		ip = ip.Unmap()
		prefixes = append(prefixes, netip.PrefixFrom(ip, ip.BitLen()))
	}
	return prefixes, nil
}

// Validate checks constraints that struct tags cannot express.
func (c *Config) Validate() error {
	if c.HashSecret.Len() < MinHashSecretLen {
		return fmt.Errorf("%w: need at least %d bytes", ErrWeakHashSecret, MinHashSecretLen)
	}
	for name, raw := range map[string]string{
		"BASE_URL":       c.BaseURL,
		"EMAIL_BASE_URL": c.EmailBaseURL,
	} {
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("%w: %s=%q", ErrInvalidURL, name, raw)
		}
	}
	if c.MaxRequestBodySize <= 0 {
		return errors.New("MAX_REQUEST_BODY_SIZE must be positive")
	}
	if c.StoreTimeout <= 0 || c.EmailTimeout <= 0 {
		return errors.New("STORE_TIMEOUT and EMAIL_TIMEOUT must be positive")
	}
	if _, err := c.TrustedProxyPrefixes(); err != nil {
		return err
	}
	return nil
}

// Load parses environment variables and returns a Config.
// Returns an error if required variables are missing or invalid.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
