package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/lzztt/session-minimal/pkg/cookie"
	"github.com/lzztt/session-minimal/pkg/logger"
	"github.com/lzztt/session-minimal/pkg/store"
)

const (
	// DefaultKey is the default cookie name and store key prefix.
	DefaultKey = "koa:sess"
	// DefaultTTL is the store TTL used when the cookie has no max age.
	DefaultTTL = 24 * time.Hour
)

// Manager loads a session record at the start of a request and reconciles
// the store and the cookie with whatever the handler left behind.
type Manager struct {
	key          string
	store        store.Store
	owned        io.Closer
	cookies      *cookie.Manager
	cookieOpts   []cookie.Option
	cookieFunc   CookieFunc
	defaultTTL   time.Duration
	logger       *slog.Logger
	observer     Observer
	errorHandler ErrorHandler
}

// New creates a new session manager with the given options.
// Without a store the manager owns a fresh in-memory one.
// It panics if the key is not a valid cookie name.
func New(opts ...Option) *Manager {
	m := &Manager{
		key:        DefaultKey,
		defaultTTL: DefaultTTL,
		logger:     slog.Default(),
		observer:   noopObserver{},
	}

	for _, opt := range opts {
		opt(m)
	}

	if !cookie.ValidName(m.key) {
		panic(fmt.Errorf("session: %w: %q", cookie.ErrInvalidName, m.key))
	}
	if m.store == nil {
		mem := store.NewMemory()
		m.store = store.MustNew(mem)
		m.owned = mem
	}
	if m.errorHandler == nil {
		m.errorHandler = defaultErrorHandler
	}

	m.cookies = cookie.New(m.cookieOpts...)
	m.logger = m.logger.With(logger.Component("session"))

	return m
}

// Key returns the cookie name.
func (m *Manager) Key() string {
	return m.key
}

// StoreKey derives the store key for sid.
func (m *Manager) StoreKey(sid string) string {
	return m.key + ":" + sid
}

// Close releases the in-memory store created by New. A store passed in
// through options is left to its owner.
func (m *Manager) Close() error {
	if m.owned == nil {
		return nil
	}
	return m.owned.Close()
}

// Load reads the session for r. A request without a usable cookie gets a new
// id and an empty record without touching the store. A store error aborts the load.
func (m *Manager) Load(r *http.Request) (*Session, error) {
	ctx := r.Context()

	// A value the cookie writer would refuse can never be echoed back, so it
	// is treated like a missing cookie.
	sid, err := m.cookies.Get(r, m.key)
	if err != nil || sid == "" || !cookie.ValidValue(sid) {
		id, err := generateID()
		if err != nil {
			m.observer.Failed("id", err)
			return nil, err
		}
		m.observer.Loaded(false)
		return newSession(id, "", Data{}), nil
	}

	v, found, err := m.store.Get(ctx, m.StoreKey(sid))
	if err != nil {
		m.observer.Failed("get", err)
		return nil, errors.Join(ErrLoad, err)
	}

	data := asData(v)
	m.observer.Loaded(found && data != nil)
	if data == nil {
		data = Data{}
	}

	// The id is kept even when nothing was stored under it, so a record
	// written later reuses the id the client already holds.
	return newSession(sid, sid, data), nil
}

// Commit persists the outcome of the request. It runs once per session;
// later calls return ActionNone. Store writes happen before the cookie is
// emitted, so a failed write never hands the client a dangling id.
func (m *Manager) Commit(w http.ResponseWriter, r *http.Request, s *Session) (Action, error) {
	if s == nil || s.done {
		return ActionNone, nil
	}
	s.done = true

	action, err := m.reconcile(r.Context(), w, r, s)
	if err != nil {
		return action, err
	}

	m.observer.Committed(action)
	if action != ActionNone {
		m.logger.DebugContext(r.Context(), "session committed",
			logger.Action(string(action)),
			logger.SessionID(s.id),
		)
	}
	return action, nil
}

func (m *Manager) reconcile(ctx context.Context, w http.ResponseWriter, r *http.Request, s *Session) (Action, error) {
	var (
		opts     cookie.Options
		resolved bool
	)
	cookieOptions := func() cookie.Options {
		if !resolved {
			opts = m.resolveCookie(r, s)
			resolved = true
		}
		return opts
	}

	if s.id != s.original {
		if s.original != "" {
			if err := m.destroy(ctx, w, s.original, cookieOptions()); err != nil {
				return ActionNone, err
			}
		}
		if s.IsEmpty() {
			if s.original == "" {
				return ActionNone, nil
			}
			return ActionDropped, nil
		}
		if err := m.save(ctx, w, s, cookieOptions()); err != nil {
			return ActionNone, err
		}
		if s.original == "" {
			return ActionCreated, nil
		}
		return ActionRotated, nil
	}

	if !s.Changed() {
		return ActionNone, nil
	}

	if s.IsEmpty() {
		if err := m.destroy(ctx, w, s.id, cookieOptions()); err != nil {
			return ActionNone, err
		}
		return ActionDestroyed, nil
	}

	if err := m.save(ctx, w, s, cookieOptions()); err != nil {
		return ActionNone, err
	}
	return ActionSaved, nil
}

func (m *Manager) save(ctx context.Context, w http.ResponseWriter, s *Session, o cookie.Options) error {
	if err := m.store.Set(ctx, m.StoreKey(s.id), map[string]any(s.Values), m.ttl(o)); err != nil {
		m.observer.Failed("set", err)
		return errors.Join(ErrSave, err)
	}
	if err := m.cookies.Write(w, m.key, s.id, o); err != nil {
		m.observer.Failed("cookie", err)
		return errors.Join(ErrCookie, err)
	}
	return nil
}

func (m *Manager) destroy(ctx context.Context, w http.ResponseWriter, sid string, o cookie.Options) error {
	if err := m.store.Destroy(ctx, m.StoreKey(sid)); err != nil {
		m.observer.Failed("destroy", err)
		return errors.Join(ErrDestroy, err)
	}
	if err := m.cookies.Clear(w, m.key, o); err != nil {
		m.observer.Failed("cookie", err)
		return errors.Join(ErrCookie, err)
	}
	return nil
}

// resolveCookie merges defaults, per-request overrides and the handler's
// max age override, in that order.
func (m *Manager) resolveCookie(r *http.Request, s *Session) cookie.Options {
	var opts []cookie.Option
	if m.cookieFunc != nil {
		opts = m.cookieFunc(r, s)
	}
	if s.maxAge != nil {
		opts = append(opts, cookie.WithMaxAge(*s.maxAge))
	}
	return m.cookies.Resolve(opts...)
}

func (m *Manager) ttl(o cookie.Options) time.Duration {
	if o.MaxAge > 0 {
		return o.MaxAge
	}
	return m.defaultTTL
}

// asData accepts the record shapes backends hand back and rejects everything else.
func asData(v any) Data {
	switch d := v.(type) {
	case map[string]any:
		return Data(d)
	case Data:
		return d
	default:
		return nil
	}
}

func defaultErrorHandler(w http.ResponseWriter, _ *http.Request, _ error) {
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}
