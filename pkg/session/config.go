package session

import (
	"time"

	"github.com/lzztt/session-minimal/pkg/cookie"
)

// Config holds session configuration
type Config struct {
	// Key is the cookie name and store key prefix (default: "koa:sess")
	Key string `env:"SESSION_KEY" envDefault:"koa:sess"`

	// DefaultTTL is the store TTL for records whose cookie has no max age
	DefaultTTL time.Duration `env:"SESSION_DEFAULT_TTL" envDefault:"24h"`

	// Cookie is read from SESSION_COOKIE_* variables
	Cookie cookie.Config `envPrefix:"SESSION_"`
}

// DefaultConfig returns default session configuration
func DefaultConfig() Config {
	return Config{
		Key:        DefaultKey,
		DefaultTTL: DefaultTTL,
		Cookie:     cookie.DefaultConfig(),
	}
}

// NewFromConfig creates a new Manager from the provided Config.
// Options passed explicitly take precedence over cfg.
func NewFromConfig(cfg Config, opts ...Option) *Manager {
	configOpts := []Option{
		WithConfig(cfg),
	}

	configOpts = append(configOpts, opts...)

	return New(configOpts...)
}
