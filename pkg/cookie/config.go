package cookie

import (
	"net/http"
	"time"
)

// Config holds cookie attributes loadable from the environment.
type Config struct {
	Path     string        `env:"COOKIE_PATH" envDefault:"/"`
	Domain   string        `env:"COOKIE_DOMAIN" envDefault:""`
	MaxAge   time.Duration `env:"COOKIE_MAX_AGE" envDefault:"0s"`
	Secure   bool          `env:"COOKIE_SECURE" envDefault:"false"`
	HttpOnly bool          `env:"COOKIE_HTTP_ONLY" envDefault:"true"`
	SameSite http.SameSite `env:"COOKIE_SAME_SITE" envDefault:"0"` // 0 = attribute omitted
}

// DefaultConfig mirrors DefaultOptions.
func DefaultConfig() Config {
	return Config{
		Path:     "/",
		HttpOnly: true,
	}
}

// Options converts the config into options. Every field is applied, so a
// config with HttpOnly=false does turn the flag off.
func (c Config) Options() []Option {
	return []Option{
		WithPath(c.Path),
		WithDomain(c.Domain),
		WithMaxAge(c.MaxAge),
		WithSecure(c.Secure),
		WithHTTPOnly(c.HttpOnly),
		WithSameSite(c.SameSite),
	}
}

// NewFromConfig creates a Manager whose defaults come from cfg; opts are applied after.
func NewFromConfig(cfg Config, opts ...Option) *Manager {
	return New(append(cfg.Options(), opts...)...)
}
