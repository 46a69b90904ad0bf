package cookie

import (
	"net/http"
	"time"
)

// Options describes the attributes emitted with a cookie.
type Options struct {
	Path   string
	Domain string
	// MaxAge is the cookie lifetime. Zero means a browser-session cookie:
	// no max-age or expires attribute is written.
	MaxAge   time.Duration
	Secure   bool
	HttpOnly bool
	SameSite http.SameSite
}

type Option func(*Options)

func WithPath(path string) Option {
	return func(o *Options) {
		o.Path = path
	}
}

func WithDomain(domain string) Option {
	return func(o *Options) {
		o.Domain = domain
	}
}

// WithMaxAge sets the cookie lifetime. Negative values are clamped to zero
// when options are resolved.
func WithMaxAge(d time.Duration) Option {
	return func(o *Options) {
		o.MaxAge = d
	}
}

func WithSecure(secure bool) Option {
	return func(o *Options) {
		o.Secure = secure
	}
}

func WithHTTPOnly(httpOnly bool) Option {
	return func(o *Options) {
		o.HttpOnly = httpOnly
	}
}

func WithSameSite(sameSite http.SameSite) Option {
	return func(o *Options) {
		o.SameSite = sameSite
	}
}

// DefaultOptions returns the base attributes: path "/" and HttpOnly.
func DefaultOptions() Options {
	return Options{
		Path:     "/",
		HttpOnly: true,
	}
}

// Apply copies base, applies opts in order and clamps a negative MaxAge to zero.
// Only the fields touched by an option change, so overrides merge over defaults.
func Apply(base Options, opts ...Option) Options {
	result := base
	for _, opt := range opts {
		if opt != nil {
			opt(&result)
		}
	}
	if result.MaxAge < 0 {
		result.MaxAge = 0
	}
	return result
}
