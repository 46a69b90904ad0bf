package session

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/lzztt/session-minimal/pkg/cookie"
	"github.com/lzztt/session-minimal/pkg/store"
)

// Option is a functional option for configuring the Manager
type Option func(*Manager)

// CookieFunc computes per-request cookie overrides. The result is merged over
// the manager's static cookie options.
type CookieFunc func(r *http.Request, s *Session) []cookie.Option

// ErrorHandler responds to a request whose session could not be loaded or committed.
type ErrorHandler func(w http.ResponseWriter, r *http.Request, err error)

// WithKey sets the cookie name. Store keys are derived as "<key>:<sid>".
// New panics when key is not a valid cookie name.
func WithKey(key string) Option {
	return func(m *Manager) {
		if key != "" {
			m.key = key
		}
	}
}

// WithStore sets the session store
func WithStore(s store.Store) Option {
	return func(m *Manager) {
		m.store = s
	}
}

// WithBackend wraps any supported backend convention into a store.
// It panics when backend implements none of them.
func WithBackend(backend any) Option {
	return func(m *Manager) {
		m.store = store.MustNew(backend)
	}
}

// WithCookie adds static cookie options applied to every session cookie.
func WithCookie(opts ...cookie.Option) Option {
	return func(m *Manager) {
		m.cookieOpts = append(m.cookieOpts, opts...)
	}
}

// WithCookieFunc computes cookie options per request.
func WithCookieFunc(fn CookieFunc) Option {
	return func(m *Manager) {
		m.cookieFunc = fn
	}
}

// WithDefaultTTL sets the store TTL used when the cookie has no max age.
func WithDefaultTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		if ttl > 0 {
			m.defaultTTL = ttl
		}
	}
}

// WithLogger sets the logger
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithObserver registers a lifecycle observer, e.g. a metrics collector.
func WithObserver(o Observer) Option {
	return func(m *Manager) {
		if o != nil {
			m.observer = o
		}
	}
}

// WithErrorHandler sets the handler used by the middleware when loading
// or committing fails before the response was started.
func WithErrorHandler(h ErrorHandler) Option {
	return func(m *Manager) {
		if h != nil {
			m.errorHandler = h
		}
	}
}

// WithConfig applies key, TTL and cookie settings from cfg.
func WithConfig(cfg Config) Option {
	return func(m *Manager) {
		WithKey(cfg.Key)(m)
		WithDefaultTTL(cfg.DefaultTTL)(m)
		WithCookie(cfg.Cookie.Options()...)(m)
	}
}
